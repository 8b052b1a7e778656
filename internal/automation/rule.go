package automation

import (
	"fmt"
	"time"
)

// Trigger types. A time_based trigger fires on a recurring schedule; the three
// event categories fire when a matching runtime event arrives.
const (
	TriggerTimeBased  = "time_based"
	TriggerEngagement = "engagement_based"
	TriggerBehavior   = "behavior_based"
	TriggerData       = "data_based"
)

// Schedule frequencies for time_based triggers.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Condition operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "not_equals"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpContains    = "contains"
	OpExists      = "exists"
)

// Action types the engine knows how to route to handlers.
const (
	ActionSendEmail      = "send_email"
	ActionPostSocial     = "post_social"
	ActionSendDirectMail = "send_direct_mail"
	ActionAddToSegment   = "add_to_segment"
	ActionUpdateField    = "update_field"
	ActionWait           = "wait"
)

// Schedule describes when a time_based rule fires.
type Schedule struct {
	Frequency string `json:"frequency"`      // daily, weekly, monthly
	Time      string `json:"time,omitempty"` // optional wall-clock time "HH:MM"
}

// Condition is a single field-level check against an event payload. All
// conditions of a trigger combine with logical AND.
type Condition struct {
	Field    string      `json:"field"` // dot-path into the payload
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Trigger is a tagged variant: Schedule is set for time_based triggers,
// Conditions for the event-based categories.
type Trigger struct {
	Type       string      `json:"type"`
	Schedule   *Schedule   `json:"schedule,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Action is one effect performed when a rule fires. DelayMinutes postpones the
// start of this action relative to the previous one.
type Action struct {
	Type         string                 `json:"type"`
	Parameters   map[string]interface{} `json:"parameters,omitempty"`
	DelayMinutes int                    `json:"delay,omitempty"`
}

// Rule pairs one trigger with an ordered action list. Rules are exclusively
// owned by the engine's registry; Scheduler and Dispatcher only ever hold the
// rule id.
type Rule struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ScopeID       string     `json:"scope_id,omitempty"`
	Trigger       Trigger    `json:"trigger"`
	Actions       []Action   `json:"actions"`
	Active        bool       `json:"active"`
	Triggered     int        `json:"triggered"`
	Successful    int        `json:"successful"`
	Failed        int        `json:"failed"`
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// triggerEventTypes maps each event-based trigger category to the concrete
// event-type strings it subscribes to.
var triggerEventTypes = map[string][]string{
	TriggerEngagement: {"email_opened", "email_clicked", "email_not_opened", "social_engaged"},
	TriggerBehavior:   {"donation_made", "page_visited", "form_submitted", "event_registered"},
	TriggerData:       {"profile_updated", "segment_changed", "score_changed"},
}

var knownActionTypes = map[string]bool{
	ActionSendEmail:      true,
	ActionPostSocial:     true,
	ActionSendDirectMail: true,
	ActionAddToSegment:   true,
	ActionUpdateField:    true,
	ActionWait:           true,
}

// EventTypesFor returns the event types an event-based trigger category
// listens on, or nil for time_based and unknown categories.
func EventTypesFor(triggerType string) []string {
	return triggerEventTypes[triggerType]
}

// validateRule rejects structurally invalid rules at registration time.
// Degenerate schedule values (unknown frequency, bad time string) are
// deliberately not rejected here; they surface at arm time and the rule simply
// never fires.
func validateRule(r *Rule) error {
	if r == nil {
		return fmt.Errorf("rule required")
	}
	if r.Name == "" {
		return fmt.Errorf("rule name required")
	}
	switch r.Trigger.Type {
	case TriggerTimeBased:
		if r.Trigger.Schedule == nil {
			return fmt.Errorf("time_based trigger requires a schedule")
		}
	case TriggerEngagement, TriggerBehavior, TriggerData:
		// conditions may be empty; an empty list always matches
	default:
		return fmt.Errorf("unsupported trigger type: %s", r.Trigger.Type)
	}
	for i, act := range r.Actions {
		if act.Type == "" {
			return fmt.Errorf("action %d has no type", i)
		}
		if !knownActionTypes[act.Type] {
			return fmt.Errorf("unsupported action type: %s", act.Type)
		}
		if act.DelayMinutes < 0 {
			return fmt.Errorf("action %d has negative delay", i)
		}
	}
	return nil
}

// clone returns a deep-enough copy for handing out past the registry boundary.
// Payload-level maps inside actions are shared; callers treat them as opaque.
func (r *Rule) clone() *Rule {
	cp := *r
	cp.Actions = append([]Action(nil), r.Actions...)
	cp.Trigger.Conditions = append([]Condition(nil), r.Trigger.Conditions...)
	if r.Trigger.Schedule != nil {
		sched := *r.Trigger.Schedule
		cp.Trigger.Schedule = &sched
	}
	if r.LastTriggered != nil {
		lt := *r.LastTriggered
		cp.LastTriggered = &lt
	}
	return &cp
}
