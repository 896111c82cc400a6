package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Debug("hidden")
	New(&buf, false).Warn("shown", "machine", "auth")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug line logged without --debug: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "level=WARN msg=shown machine=auth") {
		t.Errorf("missing warning: %q", buf.String())
	}

	buf.Reset()
	New(&buf, true).Debug("transition", "event", "Started")
	if !strings.Contains(buf.String(), "level=DEBUG msg=transition event=Started") {
		t.Errorf("missing debug line: %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	if Discard().Enabled(context.Background(), slog.LevelError) {
		t.Error("Discard should be disabled at every level")
	}
}
