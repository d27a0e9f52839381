// Package web serves the browser chat front end and a small JSON API over a session.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/petasbytes/todo-agent/memory"
	"github.com/petasbytes/todo-agent/todo"
)

//go:embed static
var staticFiles embed.FS

// ErrorPrefix starts every failure shown to the user in the chat.
const ErrorPrefix = "Sorry, an error occurred: "

// Chatter runs conversational turns. *session.Session satisfies it.
type Chatter interface {
	Turn(ctx context.Context, user string) (string, error)
	History() []memory.Message
}

// Lister exposes the current to-do items. *todo.Store satisfies it.
type Lister interface {
	List() []string
}

type Options struct {
	// AllowedOrigins lists browser origins that may call the API and open
	// the websocket. Empty means same-origin only; "*" allows any origin.
	AllowedOrigins []string
	// RequestTimeout bounds each /api request; zero means no limit.
	RequestTimeout time.Duration
	Logger         *log.Logger
}

type Server struct {
	chat     Chatter
	todos    Lister
	opts     Options
	logger   *log.Logger
	router   chi.Router
	upgrader websocket.Upgrader
}

func New(chat Chatter, todos Lister, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{chat: chat, todos: todos, opts: opts, logger: opts.Logger}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  s.allowOrigin,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rejectForeignOrigin)
		r.Group(func(r chi.Router) {
			if s.opts.RequestTimeout > 0 {
				r.Use(middleware.Timeout(s.opts.RequestTimeout))
			}
			r.Get("/history", s.handleHistory)
			r.Get("/todos", s.handleTodos)
		})
		// Chat turns are bounded by the model client's own request timeout.
		r.Post("/chat", s.handleChat)
	})

	s.router = r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("web chat listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

type todosResponse struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
	Text  string   `json:"text"`
}

type historyResponse struct {
	Messages []memory.Message `json:"messages"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	b, err := fs.ReadFile(staticFiles, "static/index.html")
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, historyResponse{Messages: s.chat.History()})
}

func (s *Server) handleTodos(w http.ResponseWriter, r *http.Request) {
	items := s.todos.List()
	s.jsonResponse(w, http.StatusOK, todosResponse{Items: items, Count: len(items), Text: todo.Render(items)})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.errorResponse(w, http.StatusBadRequest, "message is required")
		return
	}
	reply, err := s.chat.Turn(r.Context(), req.Message)
	if err != nil {
		s.logger.Error("chat turn failed", "err", err, "request_id", middleware.GetReqID(r.Context()))
		s.jsonResponse(w, http.StatusBadGateway, chatResponse{Reply: ErrorPrefix + err.Error(), Error: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.logger.Debug("http error", "status", status, "message", message)
	s.jsonResponse(w, status, map[string]string{"error": message})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten(),
			"duration", time.Since(start))
	})
}

// originAllowed is the websocket upgrader's origin check.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.allowOrigin(r, origin)
}

func (s *Server) allowOrigin(r *http.Request, origin string) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return sameOrigin(r, origin)
	}
	for _, o := range s.opts.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// sameOrigin reports whether origin names the host the request was sent to.
func sameOrigin(r *http.Request, origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// rejectForeignOrigin refuses browser requests from origins that may not
// drive the agent. Simple cross-site POSTs skip the CORS preflight, so the
// check cannot be left to the browser.
func (s *Server) rejectForeignOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && !s.allowOrigin(r, origin) {
			s.logger.Warn("rejected cross-origin request", "origin", origin, "path", r.URL.Path)
			s.errorResponse(w, http.StatusForbidden, "origin not allowed")
			return
		}
		next.ServeHTTP(w, r)
	})
}
