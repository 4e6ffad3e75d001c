package aggregate

import (
	"fmt"
	"strconv"
	"time"

	"fleet-analytics-service/internal/model"
)

// Dimension is an axis events are grouped on.
type Dimension string

const (
	Driver    Dimension = "driver"
	Asset     Dimension = "asset"
	Owner     Dimension = "owner"
	EventType Dimension = "event_type"
	Week      Dimension = "week"
	Hour      Dimension = "hour"
)

func (d Dimension) Valid() bool {
	switch d {
	case Driver, Asset, Owner, EventType, Week, Hour:
		return true
	}
	return false
}

func ParseDimension(raw string) (Dimension, error) {
	d := Dimension(raw)
	if !d.Valid() {
		return "", fmt.Errorf("unknown dimension %q", raw)
	}
	return d, nil
}

// EntityDimension maps an entity kind onto the column that names it.
func EntityDimension(kind model.EntityKind) Dimension {
	if kind == model.EntityAsset {
		return Asset
	}
	return Driver
}

// Key returns the group key of e on d. Driver and event type drop events
// without a value; asset and owner group them under model.Unassigned.
func (d Dimension) Key(e model.Event) (string, bool) {
	switch d {
	case Driver:
		return e.DriverName, e.DriverName != ""
	case EventType:
		return e.EventType, e.EventType != ""
	case Asset:
		return orUnassigned(e.AssetName), true
	case Owner:
		return orUnassigned(e.Owner), true
	case Week:
		return WeekOf(e.Timestamp), true
	case Hour:
		return strconv.Itoa(HourOf(e.Timestamp)), true
	default:
		return "", false
	}
}

// HourOf is the UTC hour of t.
func HourOf(t time.Time) int {
	return t.UTC().Hour()
}

// WeekOf is the ISO week of t in UTC, formatted YYYY-Www. Week filters
// parse back to UTC Mondays, so bucket and filter always agree.
func WeekOf(t time.Time) string {
	return model.ISOWeek(t.UTC())
}

func (d Dimension) chronological() bool {
	return d == Week || d == Hour
}

// keyLess orders keys naturally: hours numerically, everything else
// lexicographically (which is chronological for ISO weeks).
func (d Dimension) keyLess(a, b string) bool {
	if d == Hour {
		ai, aerr := strconv.Atoi(a)
		bi, berr := strconv.Atoi(b)
		if aerr == nil && berr == nil && ai != bi {
			return ai < bi
		}
	}
	return a < b
}

func orUnassigned(v string) string {
	if v == "" {
		return model.Unassigned
	}
	return v
}
