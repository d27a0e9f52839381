package windowing

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/charmbracelet/log"
)

// Options configures Prepare. A nil Counter means HeuristicCounter.
type Options struct {
	Budget  int
	Counter Counter
	Logger  *log.Logger
}

// Stats summarises one window preparation.
type Stats struct {
	Budget           int
	Total            int // estimated cost of the included groups
	IncludedGroups   int
	SkippedGroups    int
	TrimmedLeading   int // groups dropped so the window opens on a user message
	OverBudgetNewest bool
}

// Fields returns the stats in telemetry form.
func (s Stats) Fields() map[string]any {
	return map[string]any{
		"budget":             s.Budget,
		"total_estimated":    s.Total,
		"included_groups":    s.IncludedGroups,
		"skipped_groups":     s.SkippedGroups,
		"trimmed_leading":    s.TrimmedLeading,
		"over_budget_newest": s.OverBudgetNewest,
	}
}

// Prepare returns the newest suffix of msgs that fits the budget without
// splitting a group. The result is a subslice of msgs, oldest first.
//
// An empty window comes back when the budget is not positive, when the newest
// group alone exceeds it (OverBudgetNewest), or when no included group can open
// a request.
func Prepare(msgs []anthropic.MessageParam, opts Options) ([]anthropic.MessageParam, Stats) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	counter := opts.Counter
	if counter == nil {
		counter = HeuristicCounter{}
	}
	stats := Stats{Budget: opts.Budget}
	if len(msgs) == 0 {
		return nil, stats
	}

	groups := GroupMessages(msgs, logger)
	if opts.Budget <= 0 {
		stats.SkippedGroups = len(groups)
		stats.OverBudgetNewest = true
		return nil, stats
	}

	costs := make([]int, len(groups))
	for i, g := range groups {
		costs[i] = CountGroup(counter, g, msgs)
	}

	first := len(groups)
	for i := len(groups) - 1; i >= 0; i-- {
		if stats.Total+costs[i] > opts.Budget {
			break
		}
		stats.Total += costs[i]
		first = i
	}
	if first == len(groups) {
		logger.Debug("newest group exceeds budget", "budget", opts.Budget, "cost", costs[len(groups)-1])
		stats.SkippedGroups = len(groups)
		stats.OverBudgetNewest = true
		return nil, stats
	}

	for first < len(groups) && !anchored(groups[first], msgs) {
		stats.Total -= costs[first]
		stats.TrimmedLeading++
		first++
	}

	stats.IncludedGroups = len(groups) - first
	stats.SkippedGroups = first
	logger.Debug("window prepared",
		"budget", stats.Budget, "total", stats.Total,
		"included", stats.IncludedGroups, "skipped", stats.SkippedGroups, "trimmed", stats.TrimmedLeading)
	if first == len(groups) {
		return nil, stats
	}
	return msgs[groups[first].Start:], stats
}
