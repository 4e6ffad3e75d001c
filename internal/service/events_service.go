package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
	"fleet-analytics-service/internal/scoring"
)

// DriverEvents lists the driver events of one driver or asset, newest
// first, and scores them. Only the page is read; the score and the total
// come from per-type counts over every matching event.
func (s *ReportService) DriverEvents(ctx context.Context, params filter.Params) (page *model.EventsPage, err error) {
	defer s.observe(model.ReportDriver, "events", time.Now(), &err)

	spec, err := filter.ParseEvents(model.ReportDriver, params)
	if err != nil {
		return nil, err
	}

	events, counts, err := s.scoped(ctx, model.ReportDriver, spec, filter.Driver(spec), s.opts.DriverEventLimit)
	if err != nil {
		return nil, err
	}

	score := scoring.ScoreCounts(s.opts.Scoring, counts, spec.EventType)
	return s.eventsPage(model.ReportDriver, spec, events, counts, &score), nil
}

// VehicleEvents lists the vehicle events of an asset or a driver. A name
// without a kind matches either, and driver matches are limited to the
// Driver and Duty classes.
func (s *ReportService) VehicleEvents(ctx context.Context, params filter.Params) (page *model.EventsPage, err error) {
	defer s.observe(model.ReportVehicle, "events", time.Now(), &err)

	spec, err := filter.ParseEvents(model.ReportVehicle, params)
	if err != nil {
		return nil, err
	}
	if spec.Entity.IsZero() {
		return nil, ErrInvalidFilter
	}

	conds := filter.Vehicle(spec).And(filter.Any(
		filter.In(filter.FieldCategory, model.CategoryDriver, model.CategoryDuty),
		filter.Eq(filter.FieldAsset, spec.Entity.Name),
	))
	events, counts, err := s.scoped(ctx, model.ReportVehicle, spec, conds, s.opts.VehicleEventLimit)
	if err != nil {
		return nil, err
	}
	return s.eventsPage(model.ReportVehicle, spec, events, counts, nil), nil
}

// scoped reads at most limit matching events and counts every match per
// event type. Untyped events are counted under "".
func (s *ReportService) scoped(ctx context.Context, kind model.ReportKind, spec model.FilterSpec, conds filter.Conditions, limit int) ([]model.Event, map[string]int, error) {
	counts := make(map[string]int)
	if spec.Empty() {
		return []model.Event{}, counts, nil
	}

	var events []model.Event
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.events.Events(gctx, kind, conds, limit)
		return err
	})
	g.Go(func() error {
		byType, err := s.events.CountBy(gctx, kind, filter.FieldEventType, conds)
		for _, kc := range byType {
			counts[kc.Key] = kc.Count
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if events == nil {
		events = []model.Event{}
	}
	s.metrics.AddEventsScanned(string(kind), len(events))
	return events, counts, nil
}

func (s *ReportService) eventsPage(kind model.ReportKind, spec model.FilterSpec, events []model.Event, counts map[string]int, score *model.ScoreResult) *model.EventsPage {
	total := 0
	for _, n := range counts {
		total += n
	}
	page := &model.EventsPage{
		Kind:      kind,
		Entity:    spec.Entity,
		EventType: spec.EventType,
		Total:     total,
		Events:    events,
		Score:     score,
	}
	if !spec.WeekStart.IsZero() {
		page.Week = model.ISOWeek(spec.WeekStart)
	}
	return page
}
