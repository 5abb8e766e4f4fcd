package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/debugit-log/debugit-go/pkg/log"
)

var baseTime = time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)

// createTestLogFile writes events to a CBOR capture in a temp dir.
func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.dlog")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create capture: %v", err)
	}
	defer f.Close()

	enc := log.NewEncoder(f)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			t.Fatalf("encode event: %v", err)
		}
	}
	return path
}

func sampleEvents() []log.Event {
	return []log.Event{
		log.NewEvent(log.LevelDebug, "starting", nil, baseTime, false, ""),
		log.NewEvent(log.LevelInfo, "listening", map[string]any{"port": 8080}, baseTime.Add(time.Second), false, "[main.go:20]"),
		log.NewEvent(log.LevelWarn, "slow request", map[string]any{"ms": 900, "path": "/api"}, baseTime.Add(2*time.Second), false, ""),
		log.NewEvent(log.LevelError, "request failed", map[string]any{"path": "/api"}, baseTime.Add(3*time.Second), true, ""),
	}
}
