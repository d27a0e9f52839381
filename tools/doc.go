// Package tools defines tool contracts and implementations.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Validator: checks model-supplied input against the schema before dispatch.
//   - To-do tools: add_todo, list_todos, remove_todo, smart_remove_todo, count_todos.
//   - Invariants: every tool returns a plain sentence; failures surface as errors, never panics.
package tools
