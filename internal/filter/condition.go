// Package filter turns a FilterSpec into a conjunction of field conditions.
// The same conditions are evaluated in memory and translated to SQL by the
// repository, so both paths select the same events.
package filter

import (
	"strings"
	"time"

	"fleet-analytics-service/internal/model"
)

type Field string

const (
	FieldOwner     Field = "owner"
	FieldCategory  Field = "category"
	FieldEventType Field = "event_type"
	FieldDriver    Field = "driver"
	FieldAsset     Field = "asset"
	FieldAlert     Field = "alert"
	FieldTimestamp Field = "timestamp"
)

type Op int

const (
	OpEq Op = iota
	OpNotEq
	OpContainsFold
	OpIn
	OpPresent
	OpFrom
	OpBefore
	OpAny
)

// Condition restricts one field. OpAny is a disjunction of its Any members.
type Condition struct {
	Field  Field
	Op     Op
	Value  string
	Values []string
	Time   time.Time
	Any    []Condition
}

func Eq(field Field, value string) Condition {
	return Condition{Field: field, Op: OpEq, Value: value}
}

// NotEq matches events that have a value and it differs from value.
func NotEq(field Field, value string) Condition {
	return Condition{Field: field, Op: OpNotEq, Value: value}
}

func ContainsFold(field Field, value string) Condition {
	return Condition{Field: field, Op: OpContainsFold, Value: value}
}

func In(field Field, values ...string) Condition {
	return Condition{Field: field, Op: OpIn, Values: values}
}

func Present(field Field) Condition {
	return Condition{Field: field, Op: OpPresent}
}

// From matches timestamps at or after t.
func From(t time.Time) Condition {
	return Condition{Field: FieldTimestamp, Op: OpFrom, Time: t}
}

// Before matches timestamps strictly before t.
func Before(t time.Time) Condition {
	return Condition{Field: FieldTimestamp, Op: OpBefore, Time: t}
}

func Any(conds ...Condition) Condition {
	return Condition{Op: OpAny, Any: conds}
}

func (c Condition) Match(e model.Event) bool {
	switch c.Op {
	case OpEq:
		return Value(e, c.Field) == c.Value
	case OpNotEq:
		v := Value(e, c.Field)
		return v != "" && v != c.Value
	case OpContainsFold:
		return strings.Contains(strings.ToLower(Value(e, c.Field)), strings.ToLower(c.Value))
	case OpIn:
		v := Value(e, c.Field)
		for _, candidate := range c.Values {
			if v == candidate {
				return true
			}
		}
		return false
	case OpPresent:
		return Value(e, c.Field) != ""
	case OpFrom:
		return !e.Timestamp.Before(c.Time)
	case OpBefore:
		return e.Timestamp.Before(c.Time)
	case OpAny:
		for _, sub := range c.Any {
			if sub.Match(e) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Value reads field from e. Timestamps have no string value.
func Value(e model.Event, field Field) string {
	switch field {
	case FieldOwner:
		return e.Owner
	case FieldCategory:
		return e.Category
	case FieldEventType:
		return e.EventType
	case FieldDriver:
		return e.DriverName
	case FieldAsset:
		return e.AssetName
	case FieldAlert:
		return e.AlertName
	default:
		return ""
	}
}

// Conditions is a conjunction; order does not matter.
type Conditions []Condition

func (cs Conditions) Match(e model.Event) bool {
	for _, c := range cs {
		if !c.Match(e) {
			return false
		}
	}
	return true
}

// Apply keeps the events that satisfy every condition, in input order.
func (cs Conditions) Apply(events []model.Event) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if cs.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// And returns a new conjunction; cs is left untouched.
func (cs Conditions) And(more ...Condition) Conditions {
	out := make(Conditions, 0, len(cs)+len(more))
	out = append(out, cs...)
	return append(out, more...)
}
