package tools

import (
	"github.com/petasbytes/todo-agent/internal/resolver"
	"github.com/petasbytes/todo-agent/todo"
)

// Registry returns all tool definitions wired for the agent.
func Registry(store *todo.Store, res *resolver.Resolver) []ToolDefinition {
	return NewTodoTools(store, res).Definitions()
}

// Lookup returns the definition called name, if present.
func Lookup(defs []ToolDefinition, name string) (ToolDefinition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return ToolDefinition{}, false
}
