package automation

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler owns the recurring timers for time-based rules. Each armed rule
// has at most one outstanding one-shot timer; on fire the rule is handed to
// the fire callback and a fresh timer is armed at interval from the actual
// firing instant (drift-tolerant by design of the schedule semantics).
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]Timer
	clock  Clock
	fire   func(ruleID string)
	logger *logrus.Logger
}

func NewScheduler(clock Clock, logger *logrus.Logger) *Scheduler {
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		timers: make(map[string]Timer),
		clock:  clock,
		logger: logger,
	}
}

// SetFireFunc injects the callback invoked on every timer fire. Must be set
// before the first Arm.
func (s *Scheduler) SetFireFunc(fn func(ruleID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fire = fn
}

// Arm installs the rule's recurring timer. An invalid schedule is logged and
// never fires; arming never fails loudly. Re-arming always disarms first.
func (s *Scheduler) Arm(rule *Rule) {
	interval, err := scheduleInterval(rule.Trigger.Schedule)
	if err != nil {
		s.logger.Warnf("automation: rule %s has an invalid schedule, it will never fire: %v", rule.Name, err)
		return
	}
	delay := s.untilFirstFire(rule.Trigger.Schedule, interval)
	s.armTimer(rule.ID, delay, interval)
	s.logger.Debugf("automation: armed rule %s, first fire in %s, interval %s", rule.Name, delay, interval)
}

// Disarm cancels the outstanding timer for the rule id. Idempotent.
func (s *Scheduler) Disarm(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[ruleID]; ok {
		t.Stop()
		delete(s.timers, ruleID)
	}
}

// Armed reports whether the rule currently has an outstanding timer.
func (s *Scheduler) Armed(ruleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[ruleID]
	return ok
}

// Stop disarms every timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) armTimer(ruleID string, delay, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[ruleID]; ok {
		t.Stop()
	}
	s.timers[ruleID] = s.clock.AfterFunc(delay, func() {
		s.onFire(ruleID, interval)
	})
}

func (s *Scheduler) onFire(ruleID string, interval time.Duration) {
	s.mu.Lock()
	if _, armed := s.timers[ruleID]; !armed {
		// Disarmed between fire and dispatch; the rule was unregistered.
		s.mu.Unlock()
		return
	}
	// Re-arm immediately from the actual firing instant, not the nominal
	// slot, so a Disarm during the fire callback still cancels cleanly.
	s.timers[ruleID] = s.clock.AfterFunc(interval, func() {
		s.onFire(ruleID, interval)
	})
	fire := s.fire
	s.mu.Unlock()

	if fire != nil {
		fire(ruleID)
	}
}

// untilFirstFire computes the delay to the first fire: the next future
// occurrence of schedule.Time when given, otherwise one full interval from
// now.
func (s *Scheduler) untilFirstFire(sched *Schedule, interval time.Duration) time.Duration {
	if sched == nil || sched.Time == "" {
		return interval
	}
	at, err := time.Parse("15:04", sched.Time)
	if err != nil {
		s.logger.Warnf("automation: bad schedule time %q, falling back to interval: %v", sched.Time, err)
		return interval
	}
	now := s.clock.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func scheduleInterval(sched *Schedule) (time.Duration, error) {
	if sched == nil {
		return 0, fmt.Errorf("schedule required")
	}
	switch sched.Frequency {
	case FrequencyDaily:
		return 24 * time.Hour, nil
	case FrequencyWeekly:
		return 7 * 24 * time.Hour, nil
	case FrequencyMonthly:
		return 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported frequency: %q", sched.Frequency)
	}
}
