package automation

import (
	"sort"
	"sync"
	"time"
)

// DefaultHistoryLimit caps history queries that do not pass a limit.
const DefaultHistoryLimit = 50

// recentWindow is the lookback used for the recent-executions statistic.
const recentWindow = 30 * 24 * time.Hour

// Ledger is the append-only log of finalized executions. Readers always work
// on a snapshot so concurrent appends cannot corrupt a query.
type Ledger struct {
	mu      sync.RWMutex
	entries []*Execution
}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds a finalized execution record. O(1).
func (l *Ledger) Append(ex *Execution) {
	if ex == nil {
		return
	}
	l.mu.Lock()
	l.entries = append(l.entries, ex)
	l.mu.Unlock()
}

// Len returns the number of recorded executions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// History returns up to limit executions, newest first, optionally filtered by
// rule id. A non-positive limit applies DefaultHistoryLimit.
func (l *Ledger) History(ruleID string, limit int) []*Execution {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	snapshot := l.snapshot()
	out := make([]*Execution, 0, len(snapshot))
	for _, ex := range snapshot {
		if ruleID != "" && ex.RuleID != ruleID {
			continue
		}
		out = append(out, ex.clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TriggeredAt.After(out[j].TriggeredAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Stats aggregates execution analytics. The rules slice is the (possibly
// scope-filtered) rule set from the registry; when scoped is true only
// executions belonging to one of those rules are counted.
type Stats struct {
	TotalRules           int         `json:"total_rules"`
	ActiveRules          int         `json:"active_rules"`
	TotalExecutions      int         `json:"total_executions"`
	RecentExecutions     int         `json:"recent_executions"`
	SuccessfulExecutions int         `json:"successful_executions"`
	FailedExecutions     int         `json:"failed_executions"`
	AverageExecutionMS   float64     `json:"average_execution_time_ms"`
	TopPerformingRules   []RuleStats `json:"top_performing_rules"`
}

// RuleStats ranks one rule by execution volume.
type RuleStats struct {
	RuleID      string  `json:"rule_id"`
	RuleName    string  `json:"rule_name"`
	Executions  int     `json:"executions"`
	SuccessRate float64 `json:"success_rate"`
}

func (l *Ledger) Stats(rules []*Rule, scoped bool) *Stats {
	stats := &Stats{
		TotalRules:         len(rules),
		TopPerformingRules: []RuleStats{},
	}
	inScope := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r.Active {
			stats.ActiveRules++
		}
		inScope[r.ID] = struct{}{}
	}

	now := time.Now()
	var totalDuration time.Duration
	var timed int
	type tally struct {
		name      string
		count     int
		succeeded int
	}
	byRule := map[string]*tally{}

	for _, ex := range l.snapshot() {
		if scoped {
			if _, ok := inScope[ex.RuleID]; !ok {
				continue
			}
		}
		stats.TotalExecutions++
		if now.Sub(ex.TriggeredAt) <= recentWindow {
			stats.RecentExecutions++
		}
		succeeded := ex.Status == StatusCompleted
		if succeeded {
			stats.SuccessfulExecutions++
		} else {
			stats.FailedExecutions++
		}
		if ex.CompletedAt != nil {
			totalDuration += ex.CompletedAt.Sub(ex.TriggeredAt)
			timed++
		}
		t := byRule[ex.RuleID]
		if t == nil {
			t = &tally{name: ex.RuleName}
			byRule[ex.RuleID] = t
		}
		t.count++
		if succeeded {
			t.succeeded++
		}
	}

	if timed > 0 {
		stats.AverageExecutionMS = float64(totalDuration.Milliseconds()) / float64(timed)
	}

	for id, t := range byRule {
		stats.TopPerformingRules = append(stats.TopPerformingRules, RuleStats{
			RuleID:      id,
			RuleName:    t.name,
			Executions:  t.count,
			SuccessRate: float64(t.succeeded) / float64(t.count) * 100,
		})
	}
	sort.Slice(stats.TopPerformingRules, func(i, j int) bool {
		a, b := stats.TopPerformingRules[i], stats.TopPerformingRules[j]
		if a.Executions != b.Executions {
			return a.Executions > b.Executions
		}
		return a.RuleID < b.RuleID
	})
	if len(stats.TopPerformingRules) > 5 {
		stats.TopPerformingRules = stats.TopPerformingRules[:5]
	}
	return stats
}

func (l *Ledger) snapshot() []*Execution {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*Execution(nil), l.entries...)
}
