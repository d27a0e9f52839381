package todo

import (
	"fmt"
	"strings"
)

// Status identifies the outcome of a list operation.
type Status int

// The zero Status is StatusUnknown, so a zero Result never reads as a success.
const (
	StatusUnknown Status = iota
	StatusAdded
	StatusDuplicate
	StatusRemoved
	StatusNotFound
	StatusAlreadyEmpty
	StatusNoMatch
)

// EmptyMessage is shown when the list has no items.
const EmptyMessage = "Your to-do list is empty."

// Result describes what an operation did. Item is the exact list entry involved;
// Query is the free-text request for outcomes produced by fuzzy resolution.
type Result struct {
	Status Status
	Item   string
	Query  string
}

// Changed reports whether the operation mutated the persisted list.
func (r Result) Changed() bool {
	return r.Status == StatusAdded || r.Status == StatusRemoved
}

// String renders the user-facing message for the outcome.
func (r Result) String() string {
	switch r.Status {
	case StatusAdded:
		return fmt.Sprintf(`Successfully added "%s" to your to-do list.`, r.Item)
	case StatusDuplicate:
		return fmt.Sprintf(`"%s" is already on your to-do list.`, r.Item)
	case StatusRemoved:
		return fmt.Sprintf(`Successfully removed "%s" from your to-do list.`, r.Item)
	case StatusNotFound:
		return fmt.Sprintf(`Could not find "%s" on your to-do list.`, r.Item)
	case StatusAlreadyEmpty:
		return "Your to-do list is already empty."
	case StatusNoMatch:
		return fmt.Sprintf(`Could not find a task matching "%s" on your to-do list.`, r.Query)
	default:
		return fmt.Sprintf("unknown todo status %d", int(r.Status))
	}
}

// Bullets renders items as a newline-joined "- item" block.
func Bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it)
	}
	return strings.Join(lines, "\n")
}

// Render returns the bulleted list, or EmptyMessage when there is nothing to show.
func Render(items []string) string {
	if len(items) == 0 {
		return EmptyMessage
	}
	return Bullets(items)
}

// CountSentence phrases n as a sentence with singular/plural agreement.
func CountSentence(n int) string {
	switch n {
	case 0:
		return "You have no tasks on your to-do list."
	case 1:
		return "You have 1 task on your to-do list."
	default:
		return fmt.Sprintf("You have %d tasks on your to-do list.", n)
	}
}
