package windowing

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/log"
)

// Kind tells a standalone message apart from a tool exchange.
type Kind int

const (
	KindSingle Kind = iota
	KindExchange
)

func (k Kind) String() string {
	if k == KindExchange {
		return "exchange"
	}
	return "single"
}

// Group is the half-open message range [Start, End) of one atomic unit.
type Group struct {
	Kind  Kind
	Start int
	End   int
}

// Len returns the number of messages in the group.
func (g Group) Len() int { return g.End - g.Start }

// GroupMessages splits msgs into atomic units.
//
// An exchange is exactly two adjacent messages: an assistant message holding
// tool_use blocks, then a user message whose leading blocks are the matching
// tool_result blocks (one per tool_use, no extras). Text may follow the results.
// Anything that fails these checks degrades to single-message groups.
func GroupMessages(msgs []anthropic.MessageParam, logger *log.Logger) []Group {
	if logger == nil {
		logger = log.Default()
	}
	groups := make([]Group, 0, len(msgs))
	for i := 0; i < len(msgs); {
		uses := toolUseIDs(msgs[i])
		if msgs[i].Role == anthropic.MessageParamRoleAssistant && len(uses) > 0 {
			var next *anthropic.MessageParam
			if i+1 < len(msgs) {
				next = &msgs[i+1]
			}
			if reason := unpaired(uses, next); reason != "" {
				logger.Debug("tool_use left unpaired", "reason", reason, "index", i)
			} else {
				groups = append(groups, Group{Kind: KindExchange, Start: i, End: i + 2})
				i += 2
				continue
			}
		}
		groups = append(groups, Group{Kind: KindSingle, Start: i, End: i + 1})
		i++
	}
	return groups
}

// unpaired returns why next cannot complete the tool_use ids in uses, or "" when it can.
func unpaired(uses map[string]struct{}, next *anthropic.MessageParam) string {
	if next == nil || next.Role != anthropic.MessageParamRoleUser {
		return "not_followed_by_user"
	}
	results, ordered := leadingResultIDs(*next)
	if !ordered {
		return "ordering_invalid"
	}
	for id := range uses {
		if _, ok := results[id]; !ok {
			return "missing_results"
		}
	}
	for id := range results {
		if _, ok := uses[id]; !ok {
			return "extra_results"
		}
	}
	return ""
}

func toolUseIDs(m anthropic.MessageParam) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, blk := range m.Content {
		if tu := blk.OfToolUse; tu != nil && tu.ID != "" {
			ids[tu.ID] = struct{}{}
		}
	}
	return ids
}

// leadingResultIDs collects tool_result ids from the front of a user message.
// ordered is false when a tool_result appears after any other block.
func leadingResultIDs(m anthropic.MessageParam) (ids map[string]struct{}, ordered bool) {
	ids = make(map[string]struct{})
	pastResults := false
	for _, blk := range m.Content {
		tr := blk.OfToolResult
		if tr == nil {
			pastResults = true
			continue
		}
		if pastResults {
			return ids, false
		}
		if tr.ToolUseID != "" {
			ids[tr.ToolUseID] = struct{}{}
		}
	}
	return ids, true
}

// anchored reports whether a window may begin with this group: the first message
// must come from the user and must not answer a tool call.
func anchored(g Group, msgs []anthropic.MessageParam) bool {
	first := msgs[g.Start]
	if first.Role != anthropic.MessageParamRoleUser {
		return false
	}
	for _, blk := range first.Content {
		if blk.OfToolResult != nil {
			return false
		}
	}
	return true
}
