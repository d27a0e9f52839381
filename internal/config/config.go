// Package config resolves runtime settings.
//
// Sources, lowest precedence first: built-in defaults, a .env file, an optional
// YAML file, then AGT_* environment variables. ANTHROPIC_API_KEY is left to the
// Anthropic SDK.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/petasbytes/todo-agent/internal/provider"
	"github.com/petasbytes/todo-agent/memory"
	"github.com/petasbytes/todo-agent/todo"
)

const (
	EnvPrefix         = "AGT"
	DefaultConfigFile = "todo-agent.yaml"
	DefaultEnvFile    = ".env"

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	// Gemini's OpenAI-compatible endpoint.
	DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

type Config struct {
	Model          string        `yaml:"model" envconfig:"MODEL"`
	MaxTokens      int64         `yaml:"max_tokens" envconfig:"MAX_TOKENS"`
	TokenBudget    int           `yaml:"token_budget" envconfig:"TOKEN_BUDGET"`
	SystemPrompt   string        `yaml:"system_prompt" envconfig:"SYSTEM_PROMPT"`
	DataDir        string        `yaml:"data_dir" envconfig:"DATA_DIR"`
	TodoFile       string        `yaml:"todo_file" envconfig:"TODO_FILE"`
	HistoryFile    string        `yaml:"history_file" envconfig:"HISTORY_FILE"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	LogLevel       string        `yaml:"log_level" envconfig:"LOG_LEVEL"`

	Resolver ResolverConfig `yaml:"resolver" envconfig:"RESOLVER"`
	OpenAI   OpenAIConfig   `yaml:"openai" envconfig:"OPENAI"`
	Web      WebConfig      `yaml:"web" envconfig:"WEB"`
}

// ResolverConfig picks the backend that answers smart-remove prompts.
// An empty Model reuses the chat model when Provider is anthropic.
type ResolverConfig struct {
	Provider string `yaml:"provider" envconfig:"PROVIDER"`
	Model    string `yaml:"model" envconfig:"MODEL"`
}

type OpenAIConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL"`
	APIKey  string `yaml:"api_key" envconfig:"API_KEY"`
}

type WebConfig struct {
	Addr           string   `yaml:"addr" envconfig:"ADDR"`
	// AllowedOrigins empty means same-origin only; "*" opts in to any origin.
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Model:          string(provider.DefaultModel),
		MaxTokens:      1024,
		TokenBudget:    8000,
		SystemPrompt:   DefaultSystemPrompt,
		DataDir:        ".",
		TodoFile:       todo.DefaultFile,
		HistoryFile:    memory.DefaultFile,
		RequestTimeout: 60 * time.Second,
		LogLevel:       "info",
		Resolver:       ResolverConfig{Provider: ProviderAnthropic},
		OpenAI:         OpenAIConfig{BaseURL: DefaultOpenAIBaseURL},
		Web:            WebConfig{Addr: "127.0.0.1:8080"},
	}
}

// DefaultSystemPrompt steers the chat model towards the to-do tools.
const DefaultSystemPrompt = `You are a helpful assistant that manages the user's to-do list.
Use the tools to add, list, count and remove tasks; never claim a change you did not make with a tool.
When the user says they finished or no longer need a task but does not quote it exactly, use smart_remove_todo with their words.
Report tool results to the user plainly.`

// Load reads .env from the working directory and the YAML file named by
// AGT_CONFIG, falling back to todo-agent.yaml when it exists.
func Load() (Config, error) {
	return LoadFiles(DefaultEnvFile, os.Getenv(EnvPrefix+"_CONFIG"))
}

// LoadFiles is Load with explicit file locations. A missing envFile is ignored;
// a missing yamlFile is an error unless yamlFile is empty.
func LoadFiles(envFile, yamlFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		// godotenv never overrides variables already set in the process.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if yamlFile == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			yamlFile = DefaultConfigFile
		}
	}
	if yamlFile != "" {
		if err := readYAML(yamlFile, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY")
	}
	return cfg, cfg.Validate()
}

func readYAML(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch {
	case c.Model == "":
		return errors.New("config: model is empty")
	case c.MaxTokens <= 0:
		return fmt.Errorf("config: max_tokens must be positive, got %d", c.MaxTokens)
	case c.TokenBudget <= 0:
		return fmt.Errorf("config: token_budget must be positive, got %d", c.TokenBudget)
	case c.TodoFile == "":
		return errors.New("config: todo_file is empty")
	case c.HistoryFile == "":
		return errors.New("config: history_file is empty")
	case c.RequestTimeout < 0:
		return fmt.Errorf("config: request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	switch strings.ToLower(c.Resolver.Provider) {
	case ProviderAnthropic:
	case ProviderOpenAI:
		if c.Resolver.Model == "" {
			return errors.New("config: resolver.model is required for the openai provider")
		}
		if c.OpenAI.BaseURL == "" {
			return errors.New("config: openai.base_url is required for the openai provider")
		}
	default:
		return fmt.Errorf("config: unknown resolver.provider %q", c.Resolver.Provider)
	}
	return nil
}

// TodoPath is the to-do file, resolved against DataDir unless absolute.
func (c Config) TodoPath() string { return c.resolve(c.TodoFile) }

// HistoryPath is the conversation file, resolved against DataDir unless absolute.
func (c Config) HistoryPath() string { return c.resolve(c.HistoryFile) }

func (c Config) resolve(name string) string {
	if filepath.IsAbs(name) || c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// Level returns the parsed log level, info when unparseable.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
