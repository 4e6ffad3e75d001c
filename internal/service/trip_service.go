package service

import (
	"context"
	"fmt"
	"time"

	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
	"fleet-analytics-service/internal/trips"
)

const (
	tripEventLimit = 500
	maxTripBatch   = 1000
	tripsLabel     = "trips"
)

// TripStore reads trips, the trip/event join and the rating feed.
type TripStore interface {
	Trips(ctx context.Context, offset, limit int) ([]model.Trip, error)
	TripEvents(ctx context.Context, conds filter.Conditions, limit int) ([]model.TripEvent, error)
	Ratings(ctx context.Context, from, to time.Time) ([]model.RatingRecord, error)
}

// AnnotatedTrips loads one batch of trips and counts, per trip, the events
// of its driver that happened during the trip.
func (s *ReportService) AnnotatedTrips(ctx context.Context, offset, limit int) (page *model.TripPage, err error) {
	defer s.observe(tripsLabel, "annotated", time.Now(), &err)

	if offset < 0 {
		return nil, fmt.Errorf("%w: offset %d", ErrInvalidFilter, offset)
	}
	if limit <= 0 {
		limit = s.opts.TripBatchSize
	}
	if limit > maxTripBatch {
		limit = maxTripBatch
	}

	batch, err := s.trips.Trips(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	dropdowns, err := s.Dropdowns(ctx, model.ReportDriver, "")
	if err != nil {
		return nil, err
	}

	var events []model.Event
	if drivers := trips.Drivers(batch); len(drivers) > 0 {
		from, to := trips.Window(batch)
		conds := filter.Conditions{
			filter.In(filter.FieldDriver, drivers...),
			filter.Present(filter.FieldEventType),
			filter.From(from),
			filter.Before(to.Add(time.Microsecond)),
		}
		events, err = s.events.Events(ctx, model.ReportDriver, conds, 0)
		if err != nil {
			return nil, err
		}
		s.metrics.AddEventsScanned(string(model.ReportDriver), len(events))
	}

	return &model.TripPage{
		Offset:     offset,
		Limit:      limit,
		EventTypes: dropdowns.EventTypes,
		Trips:      trips.Annotate(batch, events, dropdowns.EventTypes),
	}, nil
}

// TripEvents lists vehicle events that fall inside a trip of the same
// asset, newest first. asset is exact; owner is a case-insensitive
// substring.
func (s *ReportService) TripEvents(ctx context.Context, asset, owner string) (events []model.TripEvent, err error) {
	defer s.observe(tripsLabel, "events", time.Now(), &err)

	events, err = s.trips.TripEvents(ctx, filter.TripEvents(asset, owner), tripEventLimit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.TripEvent{}
	}
	return events, nil
}

// AssetRatings rolls the rating feed up per asset and day. Both dates are
// optional and inclusive.
func (s *ReportService) AssetRatings(ctx context.Context, startDate, endDate string) (ratings []model.AssetDailyRating, err error) {
	defer s.observe(tripsLabel, "ratings", time.Now(), &err)

	from, to, err := filter.ParseDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}
	records, err := s.trips.Ratings(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return trips.DailyRatings(records), nil
}
