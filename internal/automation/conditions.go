package automation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// undefinedValue marks a dot-path that did not resolve, as distinct from a
// path that resolved to an explicit null.
type undefinedValue struct{}

var undefined = undefinedValue{}

// Evaluator checks trigger conditions against event payloads. It is pure
// apart from warning logs for malformed conditions.
type Evaluator struct {
	logger *logrus.Logger
}

func NewEvaluator(logger *logrus.Logger) *Evaluator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Evaluator{logger: logger}
}

// Evaluate reports whether every condition holds for the payload. An empty
// condition list always matches.
func (e *Evaluator) Evaluate(conditions []Condition, payload map[string]interface{}) bool {
	for _, cond := range conditions {
		if !e.evalCondition(cond, payload) {
			return false
		}
	}
	return true
}

// evalCondition fails closed: an unrecognized operator never matches.
func (e *Evaluator) evalCondition(cond Condition, payload map[string]interface{}) bool {
	resolved := resolvePath(payload, cond.Field)

	switch cond.Operator {
	case OpExists:
		return resolved != undefined && resolved != nil
	case OpEquals:
		return equalValues(resolved, cond.Value)
	case OpNotEquals:
		return !equalValues(resolved, cond.Value)
	case OpGreaterThan:
		a, aok := toNumber(resolved)
		b, bok := toNumber(cond.Value)
		return aok && bok && a > b
	case OpLessThan:
		a, aok := toNumber(resolved)
		b, bok := toNumber(cond.Value)
		return aok && bok && a < b
	case OpContains:
		return strings.Contains(
			strings.ToLower(stringify(resolved)),
			strings.ToLower(stringify(cond.Value)),
		)
	default:
		e.logger.Warnf("automation: unknown condition operator %q on field %q, treating as no match", cond.Operator, cond.Field)
		return false
	}
}

// resolvePath walks a dot-path through nested maps. Any missing intermediate
// key yields undefined.
func resolvePath(payload map[string]interface{}, path string) interface{} {
	if path == "" {
		return undefined
	}
	var current interface{} = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return undefined
		}
		current, ok = m[part]
		if !ok {
			return undefined
		}
	}
	return current
}

// equalValues compares with numeric normalization so that payloads decoded
// from JSON (float64) match condition values written as Go ints. Strings are
// not coerced here; undefined only equals undefined.
func equalValues(a, b interface{}) bool {
	if a == nil || b == nil || a == undefined || b == undefined {
		return a == b
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if !aStr && !bStr {
		na, aok := toNumber(a)
		nb, bok := toNumber(b)
		if aok && bok {
			return na == nb
		}
	}
	return reflect.DeepEqual(a, b)
}

// toNumber coerces numeric types and numeric strings to float64.
func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v interface{}) string {
	if v == nil || v == undefined {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
