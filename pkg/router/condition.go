package router

import (
	"fmt"
	"reflect"
	"slices"
)

// Operator is one comparator of the restricted condition language. The
// set is closed: equality, numeric thresholds and set membership cover
// the routing rules the engine supports, nothing is evaluated as code.
type Operator string

const (
	OpEq  Operator = "eq"
	OpNe  Operator = "ne"
	OpGt  Operator = "gt"
	OpGte Operator = "gte"
	OpLt  Operator = "lt"
	OpLte Operator = "lte"
	OpIn  Operator = "in"
)

// Condition compares one event variable against a fixed value. All of a
// binding's conditions must pass (AND semantics).
type Condition struct {
	Field string   `json:"field" yaml:"field"`
	Op    Operator `json:"op" yaml:"op"`
	Value any      `json:"value" yaml:"value"`
}

// Validate checks the condition is structurally usable.
func (c Condition) Validate() error {
	if c.Field == "" {
		return ErrConditionFieldEmpty
	}
	switch c.Op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperator, c.Op)
	}
}

// Evaluate applies the condition to the event variables. An error means
// the condition could not be evaluated (missing field, type mismatch);
// callers treat that as "not met".
func (c Condition) Evaluate(vars map[string]any) (bool, error) {
	value, ok := vars[c.Field]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrConditionFieldMissing, c.Field)
	}

	switch c.Op {
	case OpEq:
		return looseEqual(value, c.Value), nil
	case OpNe:
		return !looseEqual(value, c.Value), nil
	case OpGt, OpGte, OpLt, OpLte:
		left, err := toNumber(value)
		if err != nil {
			return false, fmt.Errorf("field %q: %w", c.Field, err)
		}
		right, err := toNumber(c.Value)
		if err != nil {
			return false, fmt.Errorf("condition value for %q: %w", c.Field, err)
		}
		switch c.Op {
		case OpGt:
			return left > right, nil
		case OpGte:
			return left >= right, nil
		case OpLt:
			return left < right, nil
		default:
			return left <= right, nil
		}
	case OpIn:
		set, ok := c.Value.([]any)
		if !ok {
			return false, fmt.Errorf("%w: in-operator value for %q must be a list", ErrConditionValueInvalid, c.Field)
		}
		return slices.ContainsFunc(set, func(candidate any) bool {
			return looseEqual(value, candidate)
		}), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, c.Op)
	}
}

// looseEqual compares values across JSON and YAML decodings, where the
// same number may arrive as int, int64 or float64.
func looseEqual(a, b any) bool {
	if na, errA := toNumber(a); errA == nil {
		if nb, errB := toNumber(b); errB == nil {
			return na == nb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func toNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: %T is not numeric", ErrConditionValueInvalid, v)
	}
}
