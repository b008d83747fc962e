package instrument

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OutcomeKind distinguishes the three results of a read or tick.
type OutcomeKind int

const (
	OutcomeOk OutcomeKind = iota
	OutcomeSkip
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOk:
		return "ok"
	case OutcomeSkip:
		return "skip"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is Ok(value), Skip(reason), or Fatal(reason).
type Outcome struct {
	kind   OutcomeKind
	value  any
	reason error
}

func Ok(value any) Outcome { return Outcome{kind: OutcomeOk, value: value} }

func Skip(reason error) Outcome { return Outcome{kind: OutcomeSkip, reason: reason} }

func Fatal(reason error) Outcome { return Outcome{kind: OutcomeFatal, reason: reason} }

func (o Outcome) Kind() OutcomeKind { return o.kind }

func (o Outcome) IsOk() bool { return o.kind == OutcomeOk }

// Value returns the raw value of an Ok outcome, or nil.
func (o Outcome) Value() any { return o.value }

// Err returns the reason for Skip and Fatal outcomes, or nil.
func (o Outcome) Err() error { return o.reason }

var errNotOk = errors.New("outcome carries no value")

func (o Outcome) check() error {
	if o.kind == OutcomeOk {
		return nil
	}
	if o.reason != nil {
		return o.reason
	}
	return errNotOk
}

// String returns the value as text.
func (o Outcome) String() (string, error) {
	if err := o.check(); err != nil {
		return "", err
	}
	switch v := o.value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", errors.New("value is nil")
	default:
		return fmt.Sprint(v), nil
	}
}

// Float returns the value as a float64.
func (o Outcome) Float() (float64, error) {
	if err := o.check(); err != nil {
		return 0, err
	}
	f, ok := AsFloat(o.value)
	if !ok {
		return 0, fmt.Errorf("value %v (%T) is not numeric", o.value, o.value)
	}
	return f, nil
}

// Int returns the value truncated to an int64.
func (o Outcome) Int() (int64, error) {
	f, err := o.Float()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// Floats returns the value as a float64 slice.
func (o Outcome) Floats() ([]float64, error) {
	if err := o.check(); err != nil {
		return nil, err
	}
	values, ok := AsFloats(o.value)
	if !ok {
		return nil, fmt.Errorf("value of type %T is not a numeric array", o.value)
	}
	return values, nil
}

// AsFloat converts common numeric representations to float64.
func AsFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AsFloats converts numeric arrays to []float64.
func AsFloats(value any) ([]float64, bool) {
	switch v := value.(type) {
	case []float64:
		out := make([]float64, len(v))
		copy(out, v)
		return out, true
	case []float32:
		out := make([]float64, len(v))
		for i, f := range v {
			out[i] = float64(f)
		}
		return out, true
	case []int32:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(v))
		for i, item := range v {
			f, ok := AsFloat(item)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
