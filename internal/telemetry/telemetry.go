// Package telemetry appends structured events to a local JSONL file.
//
// Emission is off unless AGT_OBSERVE_JSON=1. Events never carry raw tool
// payloads or to-do text; only names, sizes, durations and turn IDs.
package telemetry

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	mu     sync.Mutex
	logger = log.Default()
)

// SetLogger routes emission failures to l.
func SetLogger(l *log.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Emit writes one JSON line named name to <Dir()>/events.jsonl.
// fields are copied, then stamped with "event" and an RFC3339Nano "time".
// Failures are logged and otherwise ignored.
func Emit(name string, fields map[string]any) {
	if !Enabled() {
		return
	}

	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	mu.Lock()
	defer mu.Unlock()

	b, err := json.Marshal(m)
	if err != nil {
		logger.Warn("telemetry: marshal", "event", name, "err", err)
		return
	}

	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("telemetry: mkdir", "dir", dir, "err", err)
		return
	}

	path := Path()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("telemetry: open", "path", path, "err", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		logger.Warn("telemetry: write", "path", path, "err", err)
	}
}
