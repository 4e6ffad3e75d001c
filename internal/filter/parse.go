package filter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fleet-analytics-service/internal/model"
)

var ErrInvalidValue = errors.New("invalid filter value")

// Params are the raw request parameters of a report.
type Params struct {
	StartDate  string
	EndDate    string
	Owner      string
	DriverName string
	AssetName  string
	EventType  string
	Week       string
	// Name and Kind come from an events page path such as /vehicle/events/:name.
	Name string
	Kind string
}

type Defaults struct {
	RangeDays    int
	MaxRangeDays int
}

// ParseDashboard validates p and fills in the default date range relative
// to now (UTC): start = today - RangeDays, end = today.
func ParseDashboard(kind model.ReportKind, p Params, now time.Time, d Defaults) (model.FilterSpec, error) {
	spec, err := parse(kind, p)
	if err != nil {
		return model.FilterSpec{}, err
	}

	today := model.StartOfDay(now.UTC())
	if spec.StartDate.IsZero() {
		spec.StartDate = today.AddDate(0, 0, -d.RangeDays)
	}
	if spec.EndDate.IsZero() {
		spec.EndDate = today
	}

	if d.MaxRangeDays > 0 && !spec.Empty() {
		days := int(spec.EndDate.Sub(spec.StartDate).Hours() / 24)
		if days > d.MaxRangeDays {
			return model.FilterSpec{}, fmt.Errorf("%w: date range of %d days exceeds %d", ErrInvalidValue, days, d.MaxRangeDays)
		}
	}
	return spec, nil
}

// ParseEvents validates p for an events page. No date defaults apply.
func ParseEvents(kind model.ReportKind, p Params) (model.FilterSpec, error) {
	return parse(kind, p)
}

func parse(kind model.ReportKind, p Params) (model.FilterSpec, error) {
	if !kind.Valid() {
		return model.FilterSpec{}, fmt.Errorf("%w: report %q", ErrInvalidValue, kind)
	}

	var spec model.FilterSpec
	var err error

	if spec.StartDate, err = parseDate("start_date", p.StartDate); err != nil {
		return model.FilterSpec{}, err
	}
	if spec.EndDate, err = parseDate("end_date", p.EndDate); err != nil {
		return model.FilterSpec{}, err
	}

	if week := strings.TrimSpace(p.Week); week != "" {
		from, _, werr := model.ParseISOWeek(week)
		if werr != nil {
			return model.FilterSpec{}, fmt.Errorf("%w: week %q", ErrInvalidValue, week)
		}
		spec.WeekStart = from
	}

	spec.Entity, err = resolveEntity(kind, p)
	if err != nil {
		return model.FilterSpec{}, err
	}

	spec.Owner = strings.TrimSpace(p.Owner)
	spec.EventType = p.EventType
	if kind == model.ReportDriver {
		spec.Category = model.CategoryDriver
	}
	return spec, nil
}

func parseDate(name, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q", ErrInvalidValue, name, raw)
	}
	return parsed, nil
}

// resolveEntity picks the single entity a request refers to. An explicit
// asset wins over a driver, which wins over a path name.
func resolveEntity(kind model.ReportKind, p Params) (model.EntityRef, error) {
	if p.AssetName != "" {
		return model.AssetRef(p.AssetName), nil
	}
	if p.DriverName != "" {
		return model.DriverRef(p.DriverName), nil
	}
	if p.Name == "" {
		if p.Kind != "" {
			if _, err := model.ParseEntityKind(p.Kind); err != nil {
				return model.EntityRef{}, fmt.Errorf("%w: kind %q", ErrInvalidValue, p.Kind)
			}
		}
		return model.EntityRef{}, nil
	}

	entityKind, err := model.ParseEntityKind(p.Kind)
	if err != nil {
		return model.EntityRef{}, fmt.Errorf("%w: kind %q", ErrInvalidValue, p.Kind)
	}
	if entityKind == model.EntityAny && kind == model.ReportDriver {
		entityKind = model.EntityDriver
	}
	return model.EntityRef{Kind: entityKind, Name: p.Name}, nil
}

// ParseDateRange parses optional inclusive day bounds into a half-open
// timestamp range. A missing side is returned as zero.
func ParseDateRange(start, end string) (from, to time.Time, err error) {
	var spec model.FilterSpec
	if spec.StartDate, err = parseDate("start_date", start); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if spec.EndDate, err = parseDate("end_date", end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, to = spec.TimeBounds()
	return from, to, nil
}
