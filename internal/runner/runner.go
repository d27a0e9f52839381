package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/log"
	"github.com/petasbytes/todo-agent/internal/telemetry"
	"github.com/petasbytes/todo-agent/internal/windowing"
	"github.com/petasbytes/todo-agent/tools"
)

const (
	DefaultMaxTokens   = 1024
	DefaultTokenBudget = 8000
)

// ErrOverBudget means the newest message group alone does not fit the token budget.
var ErrOverBudget = errors.New("windowing: newest group exceeds token budget; raise token_budget")

// Options tunes each request. Zero values fall back to the package defaults.
type Options struct {
	Model       anthropic.Model
	MaxTokens   int64
	TokenBudget int
	System      string
	Logger      *log.Logger
}

type Runner struct {
	Client    *anthropic.Client
	Tools     []tools.ToolDefinition
	opts      Options
	validator *tools.Validator
}

// New compiles the tool schemas and returns a runner ready to step a conversation.
func New(client *anthropic.Client, toolDefs []tools.ToolDefinition, opts Options) (*Runner, error) {
	if opts.Model == "" {
		opts.Model = anthropic.ModelClaude3_7SonnetLatest
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.TokenBudget == 0 {
		opts.TokenBudget = DefaultTokenBudget
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	v, err := tools.NewValidator(toolDefs)
	if err != nil {
		return nil, err
	}
	return &Runner{Client: client, Tools: toolDefs, opts: opts, validator: v}, nil
}

// Model returns the model requests are sent to.
func (r *Runner) Model() anthropic.Model { return r.opts.Model }

func (r *Runner) anthropicTools() []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(r.Tools))
	for _, t := range r.Tools {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: t.InputSchema,
		}})
	}
	return out
}

// RunOneStep sends the budgeted window of conv and executes any tool calls in the reply.
// The returned tool results belong in a single user message appended after the reply;
// an empty slice means the model has finished the turn.
func (r *Runner) RunOneStep(ctx context.Context, conv []anthropic.MessageParam) (*anthropic.Message, []anthropic.ContentBlockParamUnion, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)

	window, stats := windowing.Prepare(conv, windowing.Options{
		Budget: r.opts.TokenBudget,
		Logger: r.opts.Logger,
	})

	fields := stats.Fields()
	fields["turn_id"] = turnID
	fields["model"] = string(r.opts.Model)
	telemetry.Emit("window_prepared", fields)

	if stats.OverBudgetNewest {
		return nil, nil, ErrOverBudget
	}
	if len(window) == 0 {
		return nil, nil, fmt.Errorf("windowing: no message fits the token budget of %d", r.opts.TokenBudget)
	}

	params := anthropic.MessageNewParams{
		Model:     r.opts.Model,
		MaxTokens: r.opts.MaxTokens,
		Messages:  window,
		Tools:     r.anthropicTools(),
	}
	if r.opts.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: r.opts.System}}
	}

	msg, err := r.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	toolResults := []anthropic.ContentBlockParamUnion{}
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			input := json.RawMessage(v.JSON.Input.Raw())
			toolResults = append(toolResults, r.execTool(ctx, v.ID, v.Name, input))
		}
	}
	return msg, toolResults, nil
}

// Text joins the text blocks of msg.
func Text(msg *anthropic.Message) string {
	if msg == nil {
		return ""
	}
	var parts []string
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(anthropic.TextBlock); ok && v.Text != "" {
			parts = append(parts, v.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (r *Runner) execTool(ctx context.Context, id, name string, input json.RawMessage) anthropic.ContentBlockParamUnion {
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	start := time.Now()

	// Error strings are generic so raw payloads never reach telemetry.
	emit := func(outputSize int, errStr string) {
		fields := map[string]any{
			"tool_name":   name,
			"duration_ms": time.Since(start).Milliseconds(),
			"input_size":  len(input),
			"output_size": outputSize,
			"turn_id":     turnID,
			"error":       nil,
		}
		if errStr != "" {
			fields["error"] = errStr
		}
		telemetry.Emit("tool_exec", fields)
	}

	def, ok := tools.Lookup(r.Tools, name)
	if !ok {
		emit(0, "tool not found")
		return anthropic.NewToolResultBlock(id, "tool not found: "+name, true)
	}
	if err := r.validator.Validate(name, input); err != nil {
		r.opts.Logger.Debug("tool input rejected", "tool", name, "err", err)
		emit(0, "invalid input")
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}

	resp, err := def.Function(ctx, input)
	if err != nil {
		r.opts.Logger.Warn("tool failed", "tool", name, "err", err)
		emit(0, "tool error")
		return anthropic.NewToolResultBlock(id, err.Error(), true)
	}
	emit(len(resp), "")
	return anthropic.NewToolResultBlock(id, resp, false)
}
