package worker

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
)

func TestAsynqLogger(t *testing.T) {
	var buf bytes.Buffer
	var l asynq.Logger = NewAsynqLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	l.Warn("queue ", "paused")
	out := buf.String()
	if !strings.Contains(out, `msg="queue paused"`) || !strings.Contains(out, "component=asynq") || !strings.Contains(out, "level=WARN") {
		t.Fatalf("unexpected output %q", out)
	}
}
