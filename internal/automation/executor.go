package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// HandlerFunc performs one action type against an event payload. Handlers are
// external collaborators; the engine only relies on this shape.
type HandlerFunc func(ctx context.Context, params map[string]interface{}, payload map[string]interface{}) error

// Executor runs one rule's ordered action list against one payload, producing
// an execution record. Actions are isolated from each other: a failing action
// is recorded and the sequence continues.
type Executor struct {
	handlers map[string]HandlerFunc
	clock    Clock
	logger   *logrus.Logger
	tracer   trace.Tracer
}

func NewExecutor(handlers map[string]HandlerFunc, clock Clock, logger *logrus.Logger) *Executor {
	if clock == nil {
		clock = NewClock()
	}
	if logger == nil {
		logger = logrus.New()
	}
	if handlers == nil {
		handlers = map[string]HandlerFunc{}
	}
	return &Executor{
		handlers: handlers,
		clock:    clock,
		logger:   logger,
		tracer:   otel.Tracer("donorflow.automation.executor"),
	}
}

// Run executes the rule's actions strictly in declared order and returns the
// finalized execution record. The terminal status is set exactly once:
// completed when every action succeeded, partial when at least one failed
// inside the per-action boundary, failed only for orchestration-level errors
// (which abort the remaining actions).
func (x *Executor) Run(ctx context.Context, rule *Rule, payload map[string]interface{}) *Execution {
	ctx, span := x.tracer.Start(ctx, "automation.execute")
	defer span.End()
	span.SetAttributes(
		attribute.String("automation.rule.id", rule.ID),
		attribute.String("automation.rule.name", rule.Name),
		attribute.Int("automation.rule.actions", len(rule.Actions)),
	)

	ex := &Execution{
		ID:          uuid.NewString(),
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		TriggeredAt: x.clock.Now(),
		Status:      StatusRunning,
		Payload:     payload,
		Actions:     []ActionResult{},
	}

	failures := 0
	var orchestrationErr error

	for i, act := range rule.Actions {
		if act.Type == "" {
			orchestrationErr = fmt.Errorf("action %d has no type", i)
			break
		}
		if act.DelayMinutes > 0 {
			if err := x.clock.Sleep(ctx, time.Duration(act.DelayMinutes)*time.Minute); err != nil {
				orchestrationErr = fmt.Errorf("delay before action %d interrupted: %w", i, err)
				break
			}
		}

		ex.Actions = append(ex.Actions, ActionResult{
			Index:     i,
			Type:      act.Type,
			StartedAt: x.clock.Now(),
			Status:    StatusRunning,
		})
		result := &ex.Actions[len(ex.Actions)-1]

		err := x.invoke(ctx, act, payload)
		done := x.clock.Now()
		result.CompletedAt = &done
		if err != nil {
			result.Status = StatusFailed
			result.Error = err.Error()
			failures++
			x.logger.Warnf("automation: rule %s action %d (%s) failed: %v", rule.Name, i, act.Type, err)
			continue
		}
		result.Status = StatusCompleted
	}

	done := x.clock.Now()
	ex.CompletedAt = &done
	switch {
	case orchestrationErr != nil:
		ex.Status = StatusFailed
		ex.Error = orchestrationErr.Error()
		span.RecordError(orchestrationErr)
		x.logger.Errorf("automation: rule %s execution failed: %v", rule.Name, orchestrationErr)
	case failures == 0:
		ex.Status = StatusCompleted
	default:
		ex.Status = StatusPartial
	}

	span.SetAttributes(attribute.String("automation.execution.status", string(ex.Status)))
	return ex
}

// invoke dispatches to the registered handler, converting missing handlers and
// handler panics into ordinary action errors so they stay inside the
// per-action isolation boundary.
func (x *Executor) invoke(ctx context.Context, act Action, payload map[string]interface{}) (err error) {
	handler, ok := x.handlers[act.Type]
	if !ok {
		return fmt.Errorf("no handler registered for action type %q", act.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action handler panicked: %v", r)
		}
	}()
	return handler(ctx, act.Parameters, payload)
}
