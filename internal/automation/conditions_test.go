package automation

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestEvaluator_EmptyConditionsAlwaysMatch(t *testing.T) {
	e := NewEvaluator(logrus.New())

	if !e.Evaluate(nil, map[string]interface{}{"anything": 1}) {
		t.Error("nil conditions should match")
	}
	if !e.Evaluate([]Condition{}, nil) {
		t.Error("empty conditions should match even with nil payload")
	}
}

func TestEvaluator_Operators(t *testing.T) {
	payload := map[string]interface{}{
		"event_type": "donation_made",
		"amount":     float64(150),
		"donor": map[string]interface{}{
			"email": "Jordan@Example.org",
			"tier":  nil,
			"stats": map[string]interface{}{
				"lifetime_total": 1200,
			},
		},
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals string", Condition{Field: "event_type", Operator: OpEquals, Value: "donation_made"}, true},
		{"equals string mismatch", Condition{Field: "event_type", Operator: OpEquals, Value: "page_visited"}, false},
		{"equals numeric cross-type", Condition{Field: "amount", Operator: OpEquals, Value: 150}, true},
		{"equals nested path", Condition{Field: "donor.stats.lifetime_total", Operator: OpEquals, Value: 1200}, true},
		{"equals against missing field", Condition{Field: "donor.name", Operator: OpEquals, Value: "Jordan"}, false},
		{"not_equals on missing field", Condition{Field: "donor.name", Operator: OpNotEquals, Value: "Jordan"}, true},
		{"greater_than true", Condition{Field: "amount", Operator: OpGreaterThan, Value: 100}, true},
		{"greater_than false", Condition{Field: "amount", Operator: OpGreaterThan, Value: 150}, false},
		{"greater_than numeric string", Condition{Field: "amount", Operator: OpGreaterThan, Value: "100"}, true},
		{"greater_than non-numeric", Condition{Field: "event_type", Operator: OpGreaterThan, Value: 10}, false},
		{"less_than true", Condition{Field: "amount", Operator: OpLessThan, Value: 200}, true},
		{"less_than false", Condition{Field: "amount", Operator: OpLessThan, Value: 150}, false},
		{"contains case-insensitive", Condition{Field: "donor.email", Operator: OpContains, Value: "example.org"}, true},
		{"contains miss", Condition{Field: "donor.email", Operator: OpContains, Value: "gmail"}, false},
		{"exists present", Condition{Field: "donor.stats.lifetime_total", Operator: OpExists}, true},
		{"exists null value", Condition{Field: "donor.tier", Operator: OpExists}, false},
		{"exists missing path", Condition{Field: "donor.address.city", Operator: OpExists}, false},
		{"exists through non-map", Condition{Field: "amount.cents", Operator: OpExists}, false},
		{"unknown operator fails closed", Condition{Field: "event_type", Operator: "matches", Value: ".*"}, false},
		{"empty field path", Condition{Field: "", Operator: OpExists}, false},
	}

	e := NewEvaluator(logrus.New())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Evaluate([]Condition{tt.cond}, payload)
			if got != tt.want {
				t.Errorf("Evaluate(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestEvaluator_ConditionsCombineWithAnd(t *testing.T) {
	e := NewEvaluator(logrus.New())
	payload := map[string]interface{}{"amount": float64(500), "channel": "web"}

	both := []Condition{
		{Field: "amount", Operator: OpGreaterThan, Value: 100},
		{Field: "channel", Operator: OpEquals, Value: "web"},
	}
	if !e.Evaluate(both, payload) {
		t.Error("expected both conditions to hold")
	}

	oneFails := []Condition{
		{Field: "amount", Operator: OpGreaterThan, Value: 100},
		{Field: "channel", Operator: OpEquals, Value: "mail"},
	}
	if e.Evaluate(oneFails, payload) {
		t.Error("a single failing condition must fail the whole set")
	}
}

func TestResolvePath(t *testing.T) {
	payload := map[string]interface{}{
		"a": map[string]interface{}{
			"b": map[string]interface{}{"c": 42},
		},
	}

	if v := resolvePath(payload, "a.b.c"); v != 42 {
		t.Errorf("expected 42, got %v", v)
	}
	if v := resolvePath(payload, "a.x.c"); v != undefined {
		t.Errorf("expected undefined for missing intermediate, got %v", v)
	}
	if v := resolvePath(nil, "a"); v != undefined {
		t.Errorf("expected undefined for nil payload, got %v", v)
	}
}
