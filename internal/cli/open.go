package cli

import (
	"context"
	"fmt"
	"log/slog"

	"tasksync/internal/backend/googletasks"
	"tasksync/internal/backend/restapi"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/mirror"
	"tasksync/internal/service"
	"tasksync/internal/store"
)

// OpenStore is the default StoreFactory: it opens the mirror backend named
// by cfg.Store and connects the remote named by cfg.Backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	kv, err := OpenMirror(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.New(mirror.New(kv, logger), func(creds service.CredentialSource) (service.Remote, error) {
		return Connect(ctx, cfg, creds)
	}, logger)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return st, nil
}

// OpenMirror opens the persistence backend selected by cfg.Store.
func OpenMirror(cfg *config.Config) (mirror.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return mirror.NewMemStore(), nil
	case config.StoreSQLite:
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		db, err := mirror.NewSQLiteStore(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.StoreFile, "":
		return mirror.NewFileStore(cfg.StatePath()), nil
	}
	return nil, fmt.Errorf("unknown store: %s", cfg.Store)
}

// Connect builds the remote selected by cfg.Backend.
func Connect(ctx context.Context, cfg *config.Config, creds service.CredentialSource) (service.Remote, error) {
	switch cfg.Backend {
	case config.BackendGoogle:
		c, err := googletasks.New(ctx, creds, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendREST, "":
		c, err := restapi.New(restapi.Options{
			BaseURL:   cfg.APIURL,
			Timeout:   cfg.Timeout,
			UserAgent: "tasksync/" + commands.Version,
		}, creds)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown backend: %s", cfg.Backend)
}
