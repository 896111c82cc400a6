package googletasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"tasksync/internal/service"
)

const (
	// OAuth callback timeout
	oauthCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second

	// Starting port for OAuth callback server
	oauthStartPort = 8085

	// Max port attempts
	oauthMaxPortAttempts = 5

	// SessionUser is the username recorded for sessions obtained through
	// the browser flow.
	SessionUser = "google"
)

// Authorize runs the installed-app OAuth flow with PKCE: it prints the
// consent URL to errOut, waits for the loopback callback and exchanges the
// code. The access token becomes the session token.
func Authorize(ctx context.Context, clientJSON []byte, errOut io.Writer) (service.Session, error) {
	oauthConfig, err := google.ConfigFromJSON(clientJSON, tasksScope)
	if err != nil {
		return service.Session{}, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	port, listener, err := findAvailablePort()
	if err != nil {
		return service.Session{}, errors.New("could not bind to local port for OAuth callback")
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()
	authURL := oauthConfig.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, authURL)

	code, err := awaitCallback(ctx, listener, state, oauthCallbackTimeout)
	if err != nil {
		return service.Session{}, err
	}

	exchangeCtx, cancelExchange := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancelExchange()

	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return service.Session{}, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return service.Session{
		Token: token.AccessToken,
		User:  &service.User{Username: SessionUser},
	}, nil
}

// awaitCallback serves /callback on listener until a code with the expected
// state arrives. The server is stopped on every return path.
func awaitCallback(ctx context.Context, listener net.Listener, state string, timeout time.Duration) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			trySend(errCh, errors.New("oauth state mismatch"))
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			trySend(errCh, errors.New("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		trySend(codeCh, code)
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			trySend(errCh, err)
		}
	}()

	select {
	case code := <-codeCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
		return code, nil
	case err := <-errCh:
		server.Close()
		return "", err
	case <-time.After(timeout):
		server.Close()
		return "", errors.New("oauth callback timed out")
	case <-ctx.Done():
		server.Close()
		return "", errors.New("cancelled")
	}
}

// findAvailablePort tries to find an available port starting from oauthStartPort.
func findAvailablePort() (int, net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		port := oauthStartPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return port, listener, nil
		}
	}
	return 0, nil, fmt.Errorf("no available port found")
}

func trySend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
