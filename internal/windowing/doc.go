// Package windowing selects the slice of a conversation that is sent to the
// model on each step.
//
// Messages are first grouped into atomic units: an assistant tool_use message
// and the user message carrying its tool_result blocks travel together, every
// other message stands alone. Whole groups are then taken newest first until the
// token budget is spent, and the window is trimmed so that it opens on a plain
// user message.
package windowing
