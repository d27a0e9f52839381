package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/petasbytes/todo-agent/internal/metrics"
	"github.com/petasbytes/todo-agent/internal/resolver"
	"github.com/petasbytes/todo-agent/internal/telemetry"
	"github.com/petasbytes/todo-agent/todo"
)

type AddTodoInput struct {
	Item string `json:"item" jsonschema_description:"The task to add, exactly as it should appear on the list."`
}

type RemoveTodoInput struct {
	Item string `json:"item" jsonschema_description:"The exact text of the task to remove, as shown by list_todos."`
}

type SmartRemoveTodoInput struct {
	Query string `json:"query" jsonschema_description:"The user's own words describing the task they finished or want removed."`
}

// NoInput is the schema for tools that take no arguments.
type NoInput struct{}

var (
	AddTodoInputSchema         = GenerateSchema[AddTodoInput]()
	RemoveTodoInputSchema      = GenerateSchema[RemoveTodoInput]()
	SmartRemoveTodoInputSchema = GenerateSchema[SmartRemoveTodoInput]()
	NoInputSchema              = GenerateSchema[NoInput]()
)

// TodoTools binds the to-do tools to a store and a resolver.
type TodoTools struct {
	store    *todo.Store
	resolver *resolver.Resolver
}

func NewTodoTools(store *todo.Store, res *resolver.Resolver) *TodoTools {
	return &TodoTools{store: store, resolver: res}
}

// Definitions returns the tool definitions in the order they are offered to the model.
func (t *TodoTools) Definitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name: "add_todo",
			Description: `Add a new item to the user's to-do list. Use this when the user wants to add a task.
For example: 'add "buy milk" to my to-do list'.`,
			InputSchema: AddTodoInputSchema,
			Function:    t.AddTodo,
		},
		{
			Name:        "list_todos",
			Description: "List all the items on the user's to-do list.",
			InputSchema: NoInputSchema,
			Function:    t.ListTodos,
		},
		{
			Name:        "remove_todo",
			Description: "Remove an item from the user's to-do list by its exact text. Use this when the user names the task exactly as it appears on the list.",
			InputSchema: RemoveTodoInputSchema,
			Function:    t.RemoveTodo,
		},
		{
			Name: "smart_remove_todo",
			Description: `Remove the to-do item that best matches a loose description, e.g. "I already walked the dog".
Use this when the user completed or wants to delete a task but does not quote it exactly. Pass their words unchanged.`,
			InputSchema: SmartRemoveTodoInputSchema,
			Function:    t.SmartRemoveTodo,
		},
		{
			Name:        "count_todos",
			Description: "Count how many items are on the user's to-do list.",
			InputSchema: NoInputSchema,
			Function:    t.CountTodos,
		},
	}
}

func (t *TodoTools) AddTodo(ctx context.Context, input json.RawMessage) (string, error) {
	var in AddTodoInput
	if err := decode(input, &in); err != nil {
		return "", err
	}
	res, err := t.store.Add(in.Item)
	if err != nil {
		return "", fmt.Errorf("could not add %q: %w", in.Item, err)
	}
	t.observe(ctx, "add_todo", res)
	return res.String(), nil
}

func (t *TodoTools) ListTodos(_ context.Context, input json.RawMessage) (string, error) {
	var in NoInput
	if err := decode(input, &in); err != nil {
		return "", err
	}
	return todo.Render(t.store.List()), nil
}

func (t *TodoTools) RemoveTodo(ctx context.Context, input json.RawMessage) (string, error) {
	var in RemoveTodoInput
	if err := decode(input, &in); err != nil {
		return "", err
	}
	res, err := t.store.Remove(in.Item)
	if err != nil {
		return "", fmt.Errorf("could not remove %q: %w", in.Item, err)
	}
	t.observe(ctx, "remove_todo", res)
	return res.String(), nil
}

func (t *TodoTools) SmartRemoveTodo(ctx context.Context, input json.RawMessage) (string, error) {
	var in SmartRemoveTodoInput
	if err := decode(input, &in); err != nil {
		return "", err
	}
	if t.resolver == nil {
		return "", fmt.Errorf("smart removal is not configured")
	}
	res, err := t.resolver.SmartRemove(ctx, in.Query)
	if err != nil {
		return "", err
	}
	t.observe(ctx, "smart_remove_todo", res)
	return res.String(), nil
}

func (t *TodoTools) CountTodos(_ context.Context, input json.RawMessage) (string, error) {
	var in NoInput
	if err := decode(input, &in); err != nil {
		return "", err
	}
	return todo.CountSentence(t.store.Count()), nil
}

// observe emits list statistics after a mutation.
func (t *TodoTools) observe(ctx context.Context, tool string, res todo.Result) {
	if !res.Changed() || !telemetry.Enabled() {
		return
	}
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := metrics.CountList(t.store.List()).Fields()
	fields["turn_id"] = turnID
	fields["tool_name"] = tool
	fields["at"] = time.Now().UTC().Format(time.RFC3339)
	telemetry.Emit("todo_state", fields)
}

func decode(input json.RawMessage, v any) error {
	if len(bytes.TrimSpace(input)) == 0 {
		return nil
	}
	return json.Unmarshal(input, v)
}
