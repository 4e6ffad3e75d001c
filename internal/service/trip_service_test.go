package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
)

type fakeTrips struct {
	trips   []model.Trip
	records []model.RatingRecord

	gotOffset, gotLimit int
	gotConds            filter.Conditions
	gotFrom, gotTo      time.Time
}

func (f *fakeTrips) Trips(_ context.Context, offset, limit int) ([]model.Trip, error) {
	f.gotOffset, f.gotLimit = offset, limit
	if offset >= len(f.trips) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.trips) {
		end = len(f.trips)
	}
	return f.trips[offset:end], nil
}

func (f *fakeTrips) TripEvents(_ context.Context, conds filter.Conditions, _ int) ([]model.TripEvent, error) {
	f.gotConds = conds
	return nil, nil
}

func (f *fakeTrips) Ratings(_ context.Context, from, to time.Time) ([]model.RatingRecord, error) {
	f.gotFrom, f.gotTo = from, to
	return f.records, nil
}

func TestAnnotatedTrips(t *testing.T) {
	svc, _, trips := newService(t, Options{TripBatchSize: 50})
	trips.trips = []model.Trip{
		{ID: 1, Driver: "A", Asset: "TRK-1", Start: at(6, 7), End: at(6, 9)},
		{ID: 2, Driver: "B", Asset: "TRK-2", Start: at(7, 11), End: at(7, 11)},
		{ID: 3, Driver: "", Asset: "TRK-3", Start: at(7, 0), End: at(7, 23)},
	}

	page, err := svc.AnnotatedTrips(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, trips.gotLimit)
	assert.Equal(t, 50, page.Limit)
	require.Len(t, page.Trips, 3)

	assert.Equal(t, 2, page.Trips[0].EventCounts["Harsh Braking"])
	assert.Equal(t, 0, page.Trips[0].EventCounts["Overspeeding"])
	assert.Equal(t, 1, page.Trips[1].EventCounts["Excessive Idling"])
	assert.Equal(t, 0, page.Trips[2].EventCounts["Harsh Braking"])
	assert.Contains(t, page.EventTypes, "Non Tagging")

	_, err = svc.AnnotatedTrips(context.Background(), 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, maxTripBatch, trips.gotLimit)

	_, err = svc.AnnotatedTrips(context.Background(), -1, 10)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestTripEventsUsesParameterizedConditions(t *testing.T) {
	svc, _, trips := newService(t, Options{})

	events, err := svc.TripEvents(context.Background(), "TRK-1", "kathu")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Equal(t, filter.TripEvents("TRK-1", "kathu"), trips.gotConds)
}

func TestAssetRatings(t *testing.T) {
	svc, _, trips := newService(t, Options{})
	trips.records = []model.RatingRecord{
		{AssetName: "TRK-1", DateStart: at(4, 7), Distance: 100, Cost: 10},
		{AssetName: "TRK-1", DateStart: at(4, 9), Distance: 20, Cost: 2},
	}

	ratings, err := svc.AssetRatings(context.Background(), "2024-03-01", "2024-03-04")
	require.NoError(t, err)
	assert.Equal(t, at(1, 0), trips.gotFrom)
	assert.Equal(t, at(5, 0), trips.gotTo)
	require.Len(t, ratings, 1)
	assert.Equal(t, 10.0, ratings[0].Score)

	_, err = svc.AssetRatings(context.Background(), "01-03-2024", "")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
