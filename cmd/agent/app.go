package main

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/log"

	"github.com/petasbytes/todo-agent/internal/config"
	"github.com/petasbytes/todo-agent/internal/provider"
	"github.com/petasbytes/todo-agent/internal/resolver"
	"github.com/petasbytes/todo-agent/internal/runner"
	"github.com/petasbytes/todo-agent/internal/session"
	"github.com/petasbytes/todo-agent/todo"
	"github.com/petasbytes/todo-agent/tools"
)

// app holds the components every front end shares.
type app struct {
	cfg    config.Config
	logger *log.Logger
	store  *todo.Store
	defs   []tools.ToolDefinition
	runner *runner.Runner
}

func newApp(cfg config.Config, logger *log.Logger, opts ...option.RequestOption) (*app, error) {
	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}
	client := provider.NewAnthropicClient(opts...)

	store := todo.NewStore(cfg.TodoPath(), logger)
	res := resolver.New(store, newCompleter(cfg, client))
	defs := tools.Registry(store, res)

	r, err := runner.New(client, defs, runner.Options{
		Model:       anthropic.Model(cfg.Model),
		MaxTokens:   cfg.MaxTokens,
		TokenBudget: cfg.TokenBudget,
		System:      cfg.SystemPrompt,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, store: store, defs: defs, runner: r}, nil
}

func (a *app) session() *session.Session {
	return session.Open(a.cfg.HistoryPath(), a.runner, a.logger)
}

// newCompleter picks the smart-remove backend named by resolver.provider.
func newCompleter(cfg config.Config, client *anthropic.Client) resolver.Completer {
	if strings.EqualFold(cfg.Resolver.Provider, config.ProviderOpenAI) {
		return provider.NewOpenAICompleter(provider.OpenAIConfig{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKey:     cfg.OpenAI.APIKey,
			Model:      cfg.Resolver.Model,
			HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
		})
	}
	model := cfg.Resolver.Model
	if model == "" {
		model = cfg.Model
	}
	return provider.NewAnthropicCompleter(client, model)
}

// historyPath is the readline history file, kept beside the data files.
func historyPath(cfg config.Config) string {
	dir := cfg.DataDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, ".todo-agent_history")
}
