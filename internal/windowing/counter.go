package windowing

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
)

// Counter estimates the input-token cost of messages.
type Counter interface {
	CountMessage(m anthropic.MessageParam) int
}

// HeuristicCounter charges one unit per rune of text plus a fixed overhead per block.
//   - text: runes of the text
//   - tool_result: runes of its nested text blocks
//   - tool_use: runes of the tool name and of the JSON-encoded input
//   - anything else: overhead only
type HeuristicCounter struct{}

// BlockOverhead is added once per content block.
const BlockOverhead = 4

func (HeuristicCounter) CountMessage(m anthropic.MessageParam) int {
	total := 0
	for _, blk := range m.Content {
		total += countBlock(blk) + BlockOverhead
	}
	return total
}

// CountGroup sums the cost of every message in g.
func CountGroup(c Counter, g Group, msgs []anthropic.MessageParam) int {
	total := 0
	for i := g.Start; i < g.End && i < len(msgs); i++ {
		total += c.CountMessage(msgs[i])
	}
	return total
}

func countBlock(blk anthropic.ContentBlockParamUnion) int {
	switch {
	case blk.OfText != nil:
		return utf8.RuneCountInString(blk.OfText.Text)
	case blk.OfToolResult != nil:
		n := 0
		for _, c := range blk.OfToolResult.Content {
			if c.OfText != nil {
				n += utf8.RuneCountInString(c.OfText.Text)
			}
		}
		return n
	case blk.OfToolUse != nil:
		n := utf8.RuneCountInString(blk.OfToolUse.Name)
		if blk.OfToolUse.Input != nil {
			if b, err := json.Marshal(blk.OfToolUse.Input); err == nil {
				n += utf8.RuneCount(b)
			}
		}
		return n
	}
	return 0
}
