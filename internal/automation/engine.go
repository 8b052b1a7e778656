package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Fixed event-type strings used by the convenience trigger wrappers.
const (
	EventDonationMade   = "donation_made"
	EventProfileUpdated = "profile_updated"
	EventSegmentChanged = "segment_changed"
	EventSocialEngaged  = "social_engaged"
)

// Options tunes the engine's dispatch worker pool.
type Options struct {
	Workers   int
	QueueSize int
}

// Engine is the automation rule engine: it owns the rule map and keeps the
// scheduler's timer index and the dispatcher's subscription index consistent
// with it. Construct one per application (or per test); there is no global
// instance.
type Engine struct {
	mu    sync.RWMutex
	rules map[string]*Rule

	dispatcher *Dispatcher
	scheduler  *Scheduler
	executor   *Executor
	evaluator  *Evaluator
	ledger     *Ledger
	clock      Clock
	logger     *logrus.Logger
	tracer     trace.Tracer

	hookMu sync.RWMutex
	hook   func(*Execution)
}

// NewEngine wires the engine from its parts. handlers maps action types to
// their collaborator implementations; clock and logger may be nil.
func NewEngine(handlers map[string]HandlerFunc, opts Options, clock Clock, logger *logrus.Logger) *Engine {
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = logrus.New()
	}
	e := &Engine{
		rules:      make(map[string]*Rule),
		dispatcher: NewDispatcher(opts.Workers, opts.QueueSize, logger),
		scheduler:  NewScheduler(clock, logger),
		executor:   NewExecutor(handlers, clock, logger),
		evaluator:  NewEvaluator(logger),
		ledger:     NewLedger(),
		clock:      clock,
		logger:     logger,
		tracer:     otel.Tracer("donorflow.automation"),
	}
	e.dispatcher.SetRunFunc(e.runRule)
	e.scheduler.SetFireFunc(e.fireScheduled)
	return e
}

// SetExecutionHook installs an optional callback invoked after every
// finalized execution (metrics, live feeds). Runs on the worker goroutine.
func (e *Engine) SetExecutionHook(fn func(*Execution)) {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	e.hook = fn
}

// Close tears down all timers and the worker pool. Executions already in
// flight run to completion and still append their terminal record.
func (e *Engine) Close() {
	e.scheduler.Stop()
	e.dispatcher.Stop()
}

// Register inserts or overwrites a rule by id, assigning an id when empty. A
// previously wired rule is torn down first; the new trigger is wired only if
// the rule is active. Only structurally invalid rules fail.
func (e *Engine) Register(rule *Rule) (*Rule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	stored := rule.clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := e.clock.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.rules[stored.ID]; exists {
		e.unwire(stored.ID)
	}
	e.rules[stored.ID] = stored
	if stored.Active {
		e.wire(stored)
	}
	e.logger.Infof("automation: registered rule %s (%s), trigger=%s, actions=%d, active=%t",
		stored.Name, stored.ID, stored.Trigger.Type, len(stored.Actions), stored.Active)
	return stored.clone(), nil
}

// Unregister tears down the rule's wiring and removes it. Unknown ids are a
// no-op, so unregistering twice is harmless.
func (e *Engine) Unregister(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.rules[id]; !ok {
		return
	}
	e.unwire(id)
	delete(e.rules, id)
	e.logger.Infof("automation: unregistered rule %s", id)
}

// UpdateRuleRequest carries a partial rule update; nil fields keep their
// current value.
type UpdateRuleRequest struct {
	Name    *string   `json:"name,omitempty"`
	ScopeID *string   `json:"scope_id,omitempty"`
	Trigger *Trigger  `json:"trigger,omitempty"`
	Actions *[]Action `json:"actions,omitempty"`
	Active  *bool     `json:"active,omitempty"`
}

// Update merges the partial request into the rule. Existing wiring is always
// torn down; the merged rule is re-wired only when it remains active.
func (e *Engine) Update(id string, req *UpdateRuleRequest) (*Rule, error) {
	if req == nil {
		return nil, fmt.Errorf("request required")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	rule, ok := e.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule not found")
	}

	merged := rule.clone()
	if req.Name != nil {
		merged.Name = *req.Name
	}
	if req.ScopeID != nil {
		merged.ScopeID = *req.ScopeID
	}
	if req.Trigger != nil {
		merged.Trigger = *req.Trigger
	}
	if req.Actions != nil {
		merged.Actions = append([]Action(nil), (*req.Actions)...)
	}
	if req.Active != nil {
		merged.Active = *req.Active
	}
	if err := validateRule(merged); err != nil {
		return nil, err
	}
	merged.UpdatedAt = e.clock.Now()

	e.unwire(id)
	e.rules[id] = merged
	if merged.Active {
		e.wire(merged)
	}
	e.logger.Infof("automation: updated rule %s (%s), active=%t", merged.Name, id, merged.Active)
	return merged.clone(), nil
}

// Get returns a copy of the rule, or nil when unknown.
func (e *Engine) Get(id string) *Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if rule, ok := e.rules[id]; ok {
		return rule.clone()
	}
	return nil
}

// Rules returns copies of all rules, optionally filtered by owning scope.
func (e *Engine) Rules(scopeID string) []*Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		if scopeID != "" && rule.ScopeID != scopeID {
			continue
		}
		out = append(out, rule.clone())
	}
	return out
}

// TriggerEvent is the single ingress point for runtime events. It performs
// the subscriber lookup and hands evaluation/execution off to the worker
// pool; downstream failures never propagate to the caller.
func (e *Engine) TriggerEvent(ctx context.Context, eventType string, payload map[string]interface{}) {
	_, span := e.tracer.Start(ctx, "automation.trigger_event")
	defer span.End()
	span.SetAttributes(attribute.String("automation.event.type", eventType))

	e.logger.Debugf("automation: event %s", eventType)
	e.dispatcher.Dispatch(eventType, payload)
}

// TriggerEmailEvent emits an email lifecycle event: kind is one of opened,
// clicked, not_opened.
func (e *Engine) TriggerEmailEvent(ctx context.Context, kind string, payload map[string]interface{}) {
	e.TriggerEvent(ctx, "email_"+kind, payload)
}

// TriggerDonationEvent emits a donation_made event.
func (e *Engine) TriggerDonationEvent(ctx context.Context, payload map[string]interface{}) {
	e.TriggerEvent(ctx, EventDonationMade, payload)
}

// TriggerEngagementEvent emits a social_engaged event.
func (e *Engine) TriggerEngagementEvent(ctx context.Context, payload map[string]interface{}) {
	e.TriggerEvent(ctx, EventSocialEngaged, payload)
}

// History returns up to limit executions, newest first, optionally filtered
// by rule id.
func (e *Engine) History(ruleID string, limit int) []*Execution {
	return e.ledger.History(ruleID, limit)
}

// Statistics aggregates rule and execution analytics, optionally filtered by
// owning scope.
func (e *Engine) Statistics(scopeID string) *Stats {
	return e.ledger.Stats(e.Rules(scopeID), scopeID != "")
}

// wire and unwire keep the scheduler timer index and dispatcher subscription
// index consistent with the rule map. Callers hold e.mu.
func (e *Engine) wire(rule *Rule) {
	if rule.Trigger.Type == TriggerTimeBased {
		e.scheduler.Arm(rule)
		return
	}
	e.dispatcher.Subscribe(rule)
}

func (e *Engine) unwire(id string) {
	e.scheduler.Disarm(id)
	e.dispatcher.Unsubscribe(id)
}

// runRule evaluates and executes one rule against one event payload. Runs on
// a dispatcher worker.
func (e *Engine) runRule(ruleID, eventType string, payload map[string]interface{}) {
	e.mu.RLock()
	rule, ok := e.rules[ruleID]
	if ok {
		rule = rule.clone()
	}
	e.mu.RUnlock()
	if !ok || !rule.Active {
		// Unregistered or deactivated after dispatch; skip silently.
		return
	}

	if !e.evaluator.Evaluate(rule.Trigger.Conditions, payload) {
		e.logger.Debugf("automation: rule %s did not match event %s", rule.Name, eventType)
		return
	}
	e.logger.Infof("automation: rule %s matched event %s", rule.Name, eventType)

	ex := e.executor.Run(context.Background(), rule, payload)
	e.finish(ex)
}

// fireScheduled enqueues a timer fire into the shared worker pool with the
// synthetic time-based payload.
func (e *Engine) fireScheduled(ruleID string) {
	payload := map[string]interface{}{
		"triggerType":   TriggerTimeBased,
		"scheduledTime": e.clock.Now().Format(time.RFC3339),
	}
	e.dispatcher.Enqueue(ruleID, TriggerTimeBased, payload)
}

// finish appends the terminal record and bumps the owning rule's counters.
// The rule may have been unregistered while the execution was in flight; the
// record is still appended.
func (e *Engine) finish(ex *Execution) {
	e.ledger.Append(ex)

	e.mu.Lock()
	if rule, ok := e.rules[ex.RuleID]; ok {
		rule.Triggered++
		if ex.Status == StatusCompleted {
			rule.Successful++
		} else {
			rule.Failed++
		}
		triggered := ex.TriggeredAt
		rule.LastTriggered = &triggered
	}
	e.mu.Unlock()

	e.hookMu.RLock()
	hook := e.hook
	e.hookMu.RUnlock()
	if hook != nil {
		hook(ex)
	}
}
