package automation

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fireRecorder struct {
	mu    sync.Mutex
	fires []string
}

func (f *fireRecorder) record(ruleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fires = append(f.fires, ruleID)
}

func (f *fireRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fires)
}

func newTestScheduler(start time.Time) (*Scheduler, *fakeClock, *fireRecorder) {
	clock := newFakeClock(start)
	rec := &fireRecorder{}
	s := NewScheduler(clock, logrus.New())
	s.SetFireFunc(rec.record)
	return s, clock, rec
}

func dailyRule(id, at string) *Rule {
	return &Rule{
		ID:     id,
		Name:   "daily " + id,
		Active: true,
		Trigger: Trigger{
			Type:     TriggerTimeBased,
			Schedule: &Schedule{Frequency: FrequencyDaily, Time: at},
		},
	}
}

func TestScheduler_FirstFireAtNextWallClockSlot(t *testing.T) {
	// Registered at 10:00 with a 09:00 slot: today's slot already passed, so
	// the first fire lands tomorrow at 09:00, then every 24h.
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s, clock, rec := newTestScheduler(start)

	s.Arm(dailyRule("r1", "09:00"))

	clock.Advance(22 * time.Hour) // 2024-01-02 08:00
	if rec.count() != 0 {
		t.Fatalf("fired too early: %d fires", rec.count())
	}

	clock.Advance(2 * time.Hour) // past 2024-01-02 09:00
	if rec.count() != 1 {
		t.Fatalf("expected first fire at 09:00 next day, got %d fires", rec.count())
	}

	clock.Advance(24 * time.Hour)
	if rec.count() != 2 {
		t.Fatalf("expected recurring daily fire, got %d fires", rec.count())
	}
}

func TestScheduler_TodaySlotStillAhead(t *testing.T) {
	start := time.Date(2024, 1, 1, 8, 30, 0, 0, time.UTC)
	s, clock, rec := newTestScheduler(start)

	s.Arm(dailyRule("r1", "09:00"))

	clock.Advance(31 * time.Minute)
	if rec.count() != 1 {
		t.Fatalf("expected fire at today's 09:00 slot, got %d fires", rec.count())
	}
}

func TestScheduler_IntervalWithoutTimeOfDay(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s, clock, rec := newTestScheduler(start)

	s.Arm(&Rule{
		ID:     "r1",
		Name:   "weekly digest",
		Active: true,
		Trigger: Trigger{
			Type:     TriggerTimeBased,
			Schedule: &Schedule{Frequency: FrequencyWeekly},
		},
	})

	clock.Advance(6 * 24 * time.Hour)
	if rec.count() != 0 {
		t.Fatalf("weekly rule fired early: %d", rec.count())
	}
	clock.Advance(24 * time.Hour)
	if rec.count() != 1 {
		t.Fatalf("expected one fire after 7 days, got %d", rec.count())
	}
}

func TestScheduler_InvalidFrequencyNeverFires(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s, clock, rec := newTestScheduler(start)

	s.Arm(&Rule{
		ID:     "bad",
		Name:   "hourly is not supported",
		Active: true,
		Trigger: Trigger{
			Type:     TriggerTimeBased,
			Schedule: &Schedule{Frequency: "hourly"},
		},
	})

	if s.Armed("bad") {
		t.Error("invalid schedule must not install a timer")
	}
	clock.Advance(90 * 24 * time.Hour)
	if rec.count() != 0 {
		t.Errorf("invalid schedule fired %d times", rec.count())
	}
}

func TestScheduler_DisarmIsIdempotent(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s, clock, rec := newTestScheduler(start)

	s.Arm(dailyRule("r1", ""))
	s.Disarm("r1")
	s.Disarm("r1")
	s.Disarm("never-armed")

	if s.Armed("r1") {
		t.Error("rule still armed after disarm")
	}
	clock.Advance(72 * time.Hour)
	if rec.count() != 0 {
		t.Errorf("disarmed rule fired %d times", rec.count())
	}
}

func TestScheduler_RearmReplacesExistingTimer(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s, clock, rec := newTestScheduler(start)

	rule := dailyRule("r1", "")
	s.Arm(rule)
	s.Arm(rule)

	if got := clock.pendingTimers(); got != 1 {
		t.Fatalf("expected a single outstanding timer per rule, got %d", got)
	}
	clock.Advance(24 * time.Hour)
	if rec.count() != 1 {
		t.Fatalf("expected exactly one fire, got %d", rec.count())
	}
}

func TestScheduler_StopCancelsEverything(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s, clock, rec := newTestScheduler(start)

	s.Arm(dailyRule("r1", ""))
	s.Arm(dailyRule("r2", ""))
	s.Stop()

	clock.Advance(48 * time.Hour)
	if rec.count() != 0 {
		t.Errorf("stopped scheduler fired %d times", rec.count())
	}
}
