package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/petasbytes/todo-agent/internal/config"
	"github.com/petasbytes/todo-agent/internal/web"
	"github.com/petasbytes/todo-agent/memory"
)

type fakeChat struct {
	mu      sync.Mutex
	reply   string
	err     error
	got     []string
	history []memory.Message
}

func (f *fakeChat) Turn(_ context.Context, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, user)
	return f.reply, f.err
}

func (f *fakeChat) History() []memory.Message { return f.history }

type fakeList []string

func (l fakeList) List() []string { return l }

func newServer(chat *fakeChat, items []string) *httptest.Server {
	s := web.New(chat, fakeList(items), web.Options{Logger: log.New(io.Discard)})
	return httptest.NewServer(s.Handler())
}

func decode(t *testing.T, r io.Reader, v any) {
	t.Helper()
	if err := json.NewDecoder(r).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	srv := newServer(&fakeChat{}, nil)
	defer srv.Close()

	res, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var body map[string]string
	decode(t, res.Body, &body)
	if res.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("status=%d body=%v", res.StatusCode, body)
	}
}

func TestIndex_ServesWidget(t *testing.T) {
	srv := newServer(&fakeChat{}, nil)
	defer srv.Close()

	res, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	if !strings.HasPrefix(res.Header.Get("Content-Type"), "text/html") || !strings.Contains(string(b), "api/chat") {
		t.Fatalf("unexpected index: %s", res.Header.Get("Content-Type"))
	}
}

func TestChat_ReturnsReply(t *testing.T) {
	chat := &fakeChat{reply: `Successfully added "buy milk" to your to-do list.`}
	srv := newServer(chat, nil)
	defer srv.Close()

	res, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"add buy milk"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res.Body.Close()
	var body struct{ Reply, Error string }
	decode(t, res.Body, &body)
	if res.StatusCode != http.StatusOK || body.Reply != chat.reply || body.Error != "" {
		t.Fatalf("status=%d body=%+v", res.StatusCode, body)
	}
	if !reflect.DeepEqual(chat.got, []string{"add buy milk"}) {
		t.Fatalf("turns: %v", chat.got)
	}
}

func TestChat_TurnError_ApologisesToUser(t *testing.T) {
	chat := &fakeChat{err: errors.New("upstream 529")}
	srv := newServer(chat, nil)
	defer srv.Close()

	res, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res.Body.Close()
	var body struct{ Reply, Error string }
	decode(t, res.Body, &body)
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: %d", res.StatusCode)
	}
	if body.Reply != "Sorry, an error occurred: upstream 529" || body.Error != "upstream 529" {
		t.Fatalf("body: %+v", body)
	}
}

func TestChat_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `{"message":`},
		{"empty message", `{"message":"   "}`},
		{"missing message", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chat := &fakeChat{reply: "x"}
			srv := newServer(chat, nil)
			defer srv.Close()

			res, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			res.Body.Close()
			if res.StatusCode != http.StatusBadRequest {
				t.Fatalf("status: %d", res.StatusCode)
			}
			if len(chat.got) != 0 {
				t.Fatal("no turn should run for a bad request")
			}
		})
	}
}

func TestTodos(t *testing.T) {
	srv := newServer(&fakeChat{}, []string{"buy milk", "walk dog"})
	defer srv.Close()

	res, err := http.Get(srv.URL + "/api/todos")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var body struct {
		Items []string
		Count int
		Text  string
	}
	decode(t, res.Body, &body)
	if body.Count != 2 || !reflect.DeepEqual(body.Items, []string{"buy milk", "walk dog"}) || body.Text != "- buy milk\n- walk dog" {
		t.Fatalf("body: %+v", body)
	}
}

func TestTodos_Empty(t *testing.T) {
	srv := newServer(&fakeChat{}, []string{})
	defer srv.Close()

	res, err := http.Get(srv.URL + "/api/todos")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var body struct {
		Items []string
		Text  string
	}
	decode(t, res.Body, &body)
	if body.Items == nil || len(body.Items) != 0 || body.Text != "Your to-do list is empty." {
		t.Fatalf("body: %+v", body)
	}
}

func TestHistory(t *testing.T) {
	chat := &fakeChat{history: []memory.Message{{Role: "user", Text: "hi"}, {Role: "assistant", Text: "hello"}}}
	srv := newServer(chat, nil)
	defer srv.Close()

	res, err := http.Get(srv.URL + "/api/history")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	var body struct{ Messages []memory.Message }
	decode(t, res.Body, &body)
	if !reflect.DeepEqual(body.Messages, chat.history) {
		t.Fatalf("messages: %+v", body.Messages)
	}
}

func TestCORS_Preflight(t *testing.T) {
	chat := &fakeChat{}
	s := web.New(chat, fakeList(nil), web.Options{AllowedOrigins: []string{"http://localhost:3000"}, Logger: log.New(io.Discard)})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	res.Body.Close()
	if got := res.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin: %q", got)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWebSocket_Turns(t *testing.T) {
	chat := &fakeChat{reply: "You have 1 task on your to-do list."}
	srv := newServer(chat, nil)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"message": "how many?"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out struct{ Role, Text, Error string }
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Role != "assistant" || out.Text != chat.reply || out.Error != "" {
		t.Fatalf("frame: %+v", out)
	}

	if err := conn.WriteJSON(map[string]string{"message": ""}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out = struct{ Role, Text, Error string }{}
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Error == "" {
		t.Fatalf("expected error frame for empty message, got %+v", out)
	}
}

func TestWebSocket_TurnError(t *testing.T) {
	chat := &fakeChat{err: errors.New("boom")}
	srv := newServer(chat, nil)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.WriteJSON(map[string]string{"message": "hi"})
	var out struct{ Role, Text, Error string }
	if err := conn.ReadJSON(&out); err != nil {
		t.Fatalf("read: %v", err)
	}
	if out.Error != "Sorry, an error occurred: boom" {
		t.Fatalf("frame: %+v", out)
	}
}

func TestWebSocket_RejectsForeignOrigin(t *testing.T) {
	s := web.New(&fakeChat{}, fakeList(nil), web.Options{AllowedOrigins: []string{"http://localhost:3000"}, Logger: log.New(io.Discard)})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	h := http.Header{}
	h.Set("Origin", "http://evil.example")
	_, res, err := websocket.DefaultDialer.Dial(wsURL(srv), h)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if res == nil || res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", res)
	}
}

func defaultServer(chat *fakeChat) *httptest.Server {
	cfg := config.Default()
	s := web.New(chat, fakeList(nil), web.Options{
		AllowedOrigins: cfg.Web.AllowedOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log.New(io.Discard),
	})
	return httptest.NewServer(s.Handler())
}

func TestWebSocket_DefaultConfig_RejectsForeignOrigin(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	srv := defaultServer(chat)
	defer srv.Close()

	h := http.Header{}
	h.Set("Origin", "http://evil.example")
	conn, res, err := websocket.DefaultDialer.Dial(wsURL(srv), h)
	if err == nil {
		_ = conn.WriteJSON(map[string]string{"message": "remove everything from my list"})
		conn.Close()
		t.Fatal("expected handshake failure for a foreign origin")
	}
	if res == nil || res.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", res)
	}
	if len(chat.got) != 0 {
		t.Fatalf("no turn should run, got %v", chat.got)
	}
}

func TestWebSocket_DefaultConfig_AcceptsSameOrigin(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	srv := defaultServer(chat)
	defer srv.Close()

	h := http.Header{}
	h.Set("Origin", srv.URL)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), h)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
}

func TestChat_DefaultConfig_RejectsForeignOrigin(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	srv := defaultServer(chat)
	defer srv.Close()

	// text/plain keeps this a simple request that browsers send without a preflight.
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{"message":"remove everything"}`))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Origin", "http://evil.example")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status: got %d want 403", res.StatusCode)
	}
	if res.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin must not get CORS headers")
	}
	if len(chat.got) != 0 {
		t.Fatalf("no turn should run, got %v", chat.got)
	}
}

func TestChat_DefaultConfig_AcceptsSameOrigin(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	srv := defaultServer(chat)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/chat", strings.NewReader(`{"message":"list"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", srv.URL)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status: got %d want 200", res.StatusCode)
	}
}

func TestWebSocket_WildcardIsExplicitOptIn(t *testing.T) {
	s := web.New(&fakeChat{}, fakeList(nil), web.Options{AllowedOrigins: []string{"*"}, Logger: log.New(io.Discard)})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	h := http.Header{}
	h.Set("Origin", "http://elsewhere.example")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), h)
	if err != nil {
		t.Fatalf("dial with wildcard origins: %v", err)
	}
	defer conn.Close()
}

// slowChat takes longer than the API timeout and fails if its context is cut short.
type slowChat struct{ delay time.Duration }

func (c slowChat) Turn(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(c.delay):
		return "done", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (slowChat) History() []memory.Message { return nil }

func TestChat_NotCutByAPITimeout(t *testing.T) {
	s := web.New(slowChat{delay: 100 * time.Millisecond}, fakeList(nil), web.Options{
		RequestTimeout: 10 * time.Millisecond,
		Logger:         log.New(io.Discard),
	})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	res, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"hi"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer res.Body.Close()
	var body struct{ Reply string }
	decode(t, res.Body, &body)
	if res.StatusCode != http.StatusOK || body.Reply != "done" {
		t.Fatalf("got %d %+v, want 200 with the reply", res.StatusCode, body)
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s := web.New(&fakeChat{}, fakeList(nil), web.Options{Logger: log.New(io.Discard)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("ListenAndServe: %v", err)
	}
}
