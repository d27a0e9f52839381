package runner_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/log"
	"github.com/petasbytes/todo-agent/internal/runner"
	"github.com/petasbytes/todo-agent/internal/telemetry"
	"github.com/petasbytes/todo-agent/todo"
	"github.com/petasbytes/todo-agent/tools"
)

type capture struct {
	method string
	url    string
	body   []byte
}

type fakeTransport struct {
	respStatus int
	respBody   []byte
	captured   *capture
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if f.captured != nil {
		f.captured.method = req.Method
		f.captured.url = req.URL.String()
		f.captured.body = b
	}
	resp := &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     make(http.Header),
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func newClientWithTransport(rt http.RoundTripper) *anthropic.Client {
	c := anthropic.NewClient(
		option.WithHTTPClient(&http.Client{Transport: rt}),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &c
}

func newStore(t *testing.T) *todo.Store {
	t.Helper()
	return todo.NewStore(filepath.Join(t.TempDir(), todo.DefaultFile), log.New(io.Discard))
}

// newRunner wires a runner over the to-do tools and a fake transport answering with body.
func newRunner(t *testing.T, store *todo.Store, budget int, body string) (*runner.Runner, *capture) {
	t.Helper()
	return newRunnerWithTools(t, tools.Registry(store, nil), budget, body)
}

func newRunnerWithTools(t *testing.T, defs []tools.ToolDefinition, budget int, body string) (*runner.Runner, *capture) {
	t.Helper()
	capReq := &capture{}
	fake := &fakeTransport{respStatus: 200, respBody: []byte(body), captured: capReq}
	r, err := runner.New(newClientWithTransport(fake), defs, runner.Options{
		TokenBudget: budget,
		Logger:      log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("runner.New: %v", err)
	}
	return r, capReq
}

// toolResult is the wire shape of a tool_result block.
type toolResult struct {
	Type      string `json:"type"`
	ToolUseID string `json:"tool_use_id"`
	IsError   bool   `json:"is_error"`
	Content   []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func decodeResult(t *testing.T, blk anthropic.ContentBlockParamUnion) toolResult {
	t.Helper()
	b, err := json.Marshal(blk)
	if err != nil {
		t.Fatalf("marshal tool_result: %v", err)
	}
	var tr toolResult
	if err := json.Unmarshal(b, &tr); err != nil {
		t.Fatalf("unmarshal tool_result: %v\n%s", err, b)
	}
	return tr
}

// observe turns telemetry on for the test and returns the events file path.
func observe(t *testing.T) string {
	t.Helper()
	t.Setenv("AGT_OBSERVE_JSON", "1")
	t.Setenv("AGT_EVENTS_DIR", filepath.Join(t.TempDir(), "events"))
	return telemetry.Path()
}

func readEventLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan events: %v", err)
	}
	return lines
}

// lastEvent returns the newest event called name, or nil.
func lastEvent(t *testing.T, lines []string, name string) map[string]any {
	t.Helper()
	for i := len(lines) - 1; i >= 0; i-- {
		var m map[string]any
		if err := json.Unmarshal([]byte(lines[i]), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", lines[i], err)
		}
		if m["event"] == name {
			return m
		}
	}
	return nil
}
