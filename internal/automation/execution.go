package automation

import "time"

// Status values for executions and their actions. running is the only
// non-terminal value; a finalized execution never changes again.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPartial   Status = "partial"
)

// ActionResult is the outcome trail of one action within an execution.
type ActionResult struct {
	Index       int        `json:"action_index"`
	Type        string     `json:"action_type"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
}

// Execution is one occurrence of a rule firing. Actions only ever grows by
// append, strictly in declared order.
type Execution struct {
	ID          string                 `json:"id"`
	RuleID      string                 `json:"rule_id"`
	RuleName    string                 `json:"rule_name"`
	TriggeredAt time.Time              `json:"triggered_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	Status      Status                 `json:"status"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Actions     []ActionResult         `json:"actions"`
	Error       string                 `json:"error,omitempty"`
}

// clone copies the execution record for handing out of the ledger.
func (e *Execution) clone() *Execution {
	cp := *e
	cp.Actions = append([]ActionResult(nil), e.Actions...)
	if e.CompletedAt != nil {
		done := *e.CompletedAt
		cp.CompletedAt = &done
	}
	return &cp
}
