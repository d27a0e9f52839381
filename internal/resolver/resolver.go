// Package resolver turns a free-text removal request into a verified,
// exact-match removal from the to-do list.
//
// The completion model only proposes an item. Its answer is treated like user
// input: nothing is removed unless the answer is byte-identical to an entry
// that is on the list at the time of the call.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petasbytes/todo-agent/internal/telemetry"
	"github.com/petasbytes/todo-agent/todo"
)

// NoMatch is the literal answer the model gives when nothing fits.
const NoMatch = "NONE"

// Completer is a text-in/text-out completion capability.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Resolver picks and removes the item best matching a query.
type Resolver struct {
	store     *todo.Store
	completer Completer
}

// New returns a Resolver removing from store with answers from completer.
func New(store *todo.Store, completer Completer) *Resolver {
	return &Resolver{store: store, completer: completer}
}

const promptTemplate = `You are helping someone manage their to-do list. They want to remove one task.

Their request: %q

Current to-do list:
%s

Reply with the exact text of the single task from the list that best matches the request, copied character for character without the leading "- ". If no task matches well, reply with %s. Reply with nothing else.`

// BuildPrompt renders the fixed instruction for query against items.
func BuildPrompt(query string, items []string) string {
	return fmt.Sprintf(promptTemplate, query, todo.Bullets(items), NoMatch)
}

// SmartRemove asks the completer which item query refers to and removes it.
// A completer failure is returned as an error and the list is left untouched.
func (r *Resolver) SmartRemove(ctx context.Context, query string) (todo.Result, error) {
	items := r.store.List()
	if len(items) == 0 {
		return todo.Result{Status: todo.StatusAlreadyEmpty, Query: query}, nil
	}
	if r.completer == nil {
		return todo.Result{}, errors.New("smart remove: no completion backend configured")
	}

	start := time.Now()
	answer, err := r.completer.Complete(ctx, BuildPrompt(query, items))
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	if err != nil {
		telemetry.Emit("resolver_completion", map[string]any{
			"turn_id":     turnID,
			"duration_ms": time.Since(start).Milliseconds(),
			"candidates":  len(items),
			"matched":     false,
			"error":       "completion failed",
		})
		return todo.Result{}, fmt.Errorf("smart remove: %w", err)
	}

	choice, matched := verify(items, answer)
	telemetry.Emit("resolver_completion", map[string]any{
		"turn_id":     turnID,
		"duration_ms": time.Since(start).Milliseconds(),
		"candidates":  len(items),
		"answer_size": len(answer),
		"matched":     matched,
		"error":       nil,
	})
	if !matched {
		return todo.Result{Status: todo.StatusNoMatch, Query: query}, nil
	}

	res, err := r.store.Remove(choice)
	if err != nil {
		return todo.Result{}, err
	}
	res.Query = query
	return res, nil
}

// verify maps a raw answer onto a list entry. The answer counts only if it,
// or its whitespace-trimmed form, is byte-identical to an entry.
func verify(items []string, answer string) (string, bool) {
	trimmed := strings.TrimSpace(answer)
	if trimmed == NoMatch {
		return "", false
	}
	for _, candidate := range []string{answer, trimmed} {
		for _, it := range items {
			if it == candidate {
				return it, true
			}
		}
	}
	return "", false
}
