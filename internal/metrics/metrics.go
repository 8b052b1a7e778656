package metrics

import (
	"sync"
	"sync/atomic"
)

// automationStats holds counters for the rule engine. Kept simple/thread-safe
// for use from the execution hook and exposition.
type automationStats struct {
	eventsReceived uint64
	executions     uint64
	mu             sync.Mutex
	byStatus       map[string]uint64
}

var auto automationStats

// IncEventReceived counts one ingested automation event.
func IncEventReceived() {
	atomic.AddUint64(&auto.eventsReceived, 1)
}

// IncExecution counts one finalized execution by terminal status.
func IncExecution(status string) {
	atomic.AddUint64(&auto.executions, 1)
	auto.mu.Lock()
	if auto.byStatus == nil {
		auto.byStatus = make(map[string]uint64)
	}
	auto.byStatus[status]++
	auto.mu.Unlock()
}

// AutomationSnapshot returns a copy of the current engine counters.
func AutomationSnapshot() (events, executions uint64, byStatus map[string]uint64) {
	events = atomic.LoadUint64(&auto.eventsReceived)
	executions = atomic.LoadUint64(&auto.executions)
	auto.mu.Lock()
	defer auto.mu.Unlock()
	byStatus = make(map[string]uint64, len(auto.byStatus))
	for k, v := range auto.byStatus {
		byStatus[k] = v
	}
	return events, executions, byStatus
}

// rateLimitStats holds counters for rate limit drops (HTTP 429).
type rateLimitStats struct {
	total    uint64
	mu       sync.Mutex
	byPrefix map[string]uint64
}

var rl rateLimitStats

// IncRateLimitDrop increments drop counters for the given prefix.
// Use prefix "global" for global limiter rejections.
func IncRateLimitDrop(prefix string) {
	if prefix == "" {
		prefix = "global"
	}
	atomic.AddUint64(&rl.total, 1)
	rl.mu.Lock()
	if rl.byPrefix == nil {
		rl.byPrefix = make(map[string]uint64)
	}
	rl.byPrefix[prefix]++
	rl.mu.Unlock()
}

// RateLimitSnapshot returns a copy of the current counters.
func RateLimitSnapshot() (total uint64, by map[string]uint64) {
	total = atomic.LoadUint64(&rl.total)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	by = make(map[string]uint64, len(rl.byPrefix))
	for k, v := range rl.byPrefix {
		by[k] = v
	}
	return total, by
}
