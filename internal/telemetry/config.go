package telemetry

import (
	"os"
	"path/filepath"
)

// observeAtStartup is read once; mid-run changes only take effect through the AGT_OBSERVE_JSON=1 override below.
var observeAtStartup = os.Getenv("AGT_OBSERVE_JSON") == "1"

// DefaultDir holds events.jsonl when AGT_EVENTS_DIR is unset.
const DefaultDir = ".agent"

// Enabled reports whether JSONL emission is on.
func Enabled() bool {
	// Tests flip the env mid-run; honour an explicit "1" at call time.
	if os.Getenv("AGT_OBSERVE_JSON") == "1" {
		return true
	}
	return observeAtStartup
}

// Dir returns the directory events are appended to.
func Dir() string {
	if d := os.Getenv("AGT_EVENTS_DIR"); d != "" {
		return d
	}
	return DefaultDir
}

// Path returns the events file inside Dir.
func Path() string {
	return filepath.Join(Dir(), "events.jsonl")
}
