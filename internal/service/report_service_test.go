package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-analytics-service/internal/cache"
	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
	"fleet-analytics-service/internal/repository"
)

var today = time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)

func at(d, h int) time.Time {
	return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC)
}

func driverFixture() []model.Event {
	return []model.Event{
		{ID: 1, Owner: "Kathu", Category: "Driver", EventType: "Harsh Braking", Timestamp: at(6, 8), DriverName: "A", AssetName: "TRK-1"},
		{ID: 2, Owner: "Kathu", Category: "Driver", EventType: "Harsh Braking", Timestamp: at(6, 9), DriverName: "A", AssetName: "TRK-1"},
		{ID: 3, Owner: "Kathu", Category: "Driver", EventType: "Overspeeding", Timestamp: at(7, 9), DriverName: "A", AssetName: "TRK-1"},
		{ID: 4, Owner: "Kuruman", Category: "Driver", EventType: "Non Tagging", Timestamp: at(7, 10), AssetName: "TRK-2"},
		{ID: 5, Owner: "Kuruman", Category: "Driver", EventType: "Excessive Idling", Timestamp: at(7, 11), DriverName: "B", AssetName: "TRK-2"},
		{ID: 6, Owner: "Kuruman", Category: "Duty", EventType: "Harsh Braking", Timestamp: at(7, 12), DriverName: "C", AssetName: "TRK-3"},
		{ID: 7, Owner: "Kathu", Category: "Driver", EventType: "Harsh Braking", Timestamp: at(1, 8), DriverName: "A", AssetName: "TRK-1"},
	}
}

func vehicleFixture() []model.Event {
	return []model.Event{
		{ID: 11, Owner: "Kathu Mining", Category: "Truck", EventType: "Overspeeding", Timestamp: at(6, 8), AssetName: "TRK-1"},
		{ID: 12, Owner: "Kathu Mining", Category: "Driver", EventType: "Harsh Braking", Timestamp: at(6, 9), DriverName: "A", AssetName: "TRK-1"},
		{ID: 13, Owner: "kathu mining", Category: "Truck", EventType: "Non Tagging", Timestamp: at(7, 1), DriverName: "X", AssetName: "TRK-2", AlertName: "Battery Disconnect"},
		{ID: 14, Owner: "Kuruman", Category: "Duty", EventType: "Harsh Braking", Timestamp: at(7, 2), DriverName: "B", AssetName: "TRK-3", AlertName: "1E - Battery Disconnect"},
		{ID: 15, Owner: "Kuruman", Category: "Driver", EventType: "Harsh Braking", Timestamp: at(7, 3), DriverName: "TRK-1"},
	}
}

func newService(t *testing.T, opts Options) (*ReportService, *repository.MemoryEventStore, *fakeTrips) {
	t.Helper()
	store := repository.NewMemoryEventStore()
	store.Add(model.ReportDriver, driverFixture()...)
	store.Add(model.ReportVehicle, vehicleFixture()...)
	trips := &fakeTrips{}

	dropdowns := cache.New[model.DropdownSource](10 * time.Minute)
	svc := NewReportService(store, trips, dropdowns, nil, opts).WithClock(func() time.Time { return today })
	return svc, store, trips
}

func TestDriverDashboard(t *testing.T) {
	svc, _, _ := newService(t, Options{})

	dash, err := svc.DriverDashboard(context.Background(), filter.Params{})
	require.NoError(t, err)

	assert.Equal(t, "2024-03-06", dash.Filter.StartDate)
	assert.Equal(t, "2024-03-07", dash.Filter.EndDate)
	// The Duty event and the event outside the default range are out of scope.
	assert.Len(t, dash.Events, 5)
	assert.Equal(t, int64(5), dash.Events[0].ID)
	assert.Nil(t, dash.Battery)

	require.Len(t, dash.Weekly.Data, 2)
	assert.Equal(t, model.ChartPoint{Name: "A", Y: 3, Drilldown: "A"}, dash.Weekly.Data[0])

	require.Len(t, dash.EntityTable, 2)
	assert.Equal(t, model.AssetRef("TRK-1"), dash.EntityTable[0].Entity)
	assert.Equal(t, 3, dash.EntityTable[0].Total)
	assert.Equal(t, 1, dash.EntityTable[1].Total, "Non Tagging is left out of the entity table")
	assert.Contains(t, dash.EntityTable[0].URL, "asset=TRK-1")

	for _, total := range dash.EventTypeTotals {
		assert.NotEqual(t, model.EventTypeNonTagging, total.EventType)
	}
	require.NotEmpty(t, dash.EventTypeTotals)
	assert.Equal(t, "Harsh Braking", dash.EventTypeTotals[0].EventType)
	assert.Equal(t, 2, dash.EventTypeTotals[0].Count)

	assert.Equal(t, []string{"Kathu", "Kuruman"}, dash.Dropdowns.Owners)
	assert.Equal(t, []string{"A", "B"}, dash.Dropdowns.Entities)
	assert.Len(t, dash.Hourly.Categories, 24)

	ownerTotal := 0
	for _, p := range dash.Owners.Data {
		ownerTotal += p.Y
	}
	assert.Equal(t, 5, ownerTotal)
}

func TestDriverDashboardOwnerIsExact(t *testing.T) {
	svc, _, _ := newService(t, Options{})

	dash, err := svc.DriverDashboard(context.Background(), filter.Params{Owner: "kathu"})
	require.NoError(t, err)
	assert.Empty(t, dash.Events)
	assert.Empty(t, dash.Weekly.Data)

	dash, err = svc.DriverDashboard(context.Background(), filter.Params{Owner: "Kathu", StartDate: "2024-03-01"})
	require.NoError(t, err)
	assert.Len(t, dash.Events, 4)
}

func TestVehicleDashboard(t *testing.T) {
	svc, _, _ := newService(t, Options{})

	dash, err := svc.VehicleDashboard(context.Background(), filter.Params{Owner: "KATHU"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", dash.Filter.StartDate)
	assert.Len(t, dash.Events, 3)

	require.NotEmpty(t, dash.Weekly.Data)
	top := dash.Weekly.Data[0]
	assert.Equal(t, "TRK-1", top.Name)
	assert.Equal(t, "TRK-1", top.AssetName)
	assert.Equal(t, "Kathu Mining", top.Owner)

	// Only Driver/Duty events with a driver and a tag reach the table.
	require.Len(t, dash.EntityTable, 1)
	assert.Equal(t, model.DriverRef("A"), dash.EntityTable[0].Entity)

	var types []string
	for _, total := range dash.EventTypeTotals {
		types = append(types, total.EventType)
	}
	assert.Contains(t, types, model.EventTypeNonTagging)

	require.NotNil(t, dash.Battery)
	assert.Equal(t, 1, dash.Battery.Data[0].Y)
	assert.Equal(t, "TRK-2", dash.Battery.Drilldown[0].Data[0].Name)

	assert.Equal(t, []string{"TRK-1", "TRK-2"}, dash.Dropdowns.Entities)
}

func TestDashboardRejectsMalformedFilters(t *testing.T) {
	svc, _, _ := newService(t, Options{MaxRangeDays: 30})
	ctx := context.Background()

	_, err := svc.DriverDashboard(ctx, filter.Params{StartDate: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = svc.VehicleDashboard(ctx, filter.Params{Week: "2024-W99"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = svc.VehicleDashboard(ctx, filter.Params{StartDate: "2023-01-01", EndDate: "2024-03-01"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestDashboardStartAfterEndIsEmpty(t *testing.T) {
	svc, _, _ := newService(t, Options{})

	dash, err := svc.VehicleDashboard(context.Background(), filter.Params{StartDate: "2024-03-07", EndDate: "2024-03-01"})
	require.NoError(t, err)
	assert.Empty(t, dash.Events)
	assert.Empty(t, dash.Weekly.Data)
	assert.Empty(t, dash.EntityTable)
	assert.Equal(t, 0, dash.Battery.Data[0].Y)
}

func TestDashboardReportsAmbiguousDrillIDs(t *testing.T) {
	svc, store, _ := newService(t, Options{})
	store.Add(model.ReportDriver, model.Event{
		ID: 99, Owner: "Kathu", Category: "Driver", EventType: "Harsh Braking", Timestamp: at(7, 1),
		DriverName: "A_2024-W10", AssetName: "TRK-9",
	})

	_, err := svc.DriverDashboard(context.Background(), filter.Params{})
	assert.ErrorIs(t, err, ErrAmbiguousKey)
}

func TestDriverEventsScoresFullSet(t *testing.T) {
	svc, _, _ := newService(t, Options{DriverEventLimit: 2})

	page, err := svc.DriverEvents(context.Background(), filter.Params{Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, model.DriverRef("A"), page.Entity)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, page.Events, 2)
	require.NotNil(t, page.Score)
	assert.Equal(t, 96, page.Score.Score)
	assert.Equal(t, model.ScoreDetail{Count: 3, Penalty: 3}, page.Score.Breakdown["Harsh Braking"])

	page, err = svc.DriverEvents(context.Background(), filter.Params{Name: "A", Week: "2024-W10", EventType: "Harsh Braking"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "2024-W10", page.Week)
	assert.Equal(t, 98, page.Score.Score)

	page, err = svc.DriverEvents(context.Background(), filter.Params{AssetName: "TRK-2"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 90, page.Score.Score)
}

// pageStore records the limits Events is called with.
type pageStore struct {
	*repository.MemoryEventStore
	limits []int
}

func (p *pageStore) Events(ctx context.Context, kind model.ReportKind, conds filter.Conditions, limit int) ([]model.Event, error) {
	p.limits = append(p.limits, limit)
	return p.MemoryEventStore.Events(ctx, kind, conds, limit)
}

func TestEventsPageReadsOnlyThePage(t *testing.T) {
	store := &pageStore{MemoryEventStore: repository.NewMemoryEventStore()}
	store.Add(model.ReportDriver, driverFixture()...)
	for i := 0; i < 500; i++ {
		store.Add(model.ReportDriver, model.Event{ID: int64(100 + i), Owner: "Kathu", Category: "Driver", EventType: "Overspeeding", Timestamp: at(5, i%24), DriverName: "A"})
	}
	svc := NewReportService(store, &fakeTrips{}, nil, nil, Options{DriverEventLimit: 25, VehicleEventLimit: 10})
	ctx := context.Background()

	page, err := svc.DriverEvents(ctx, filter.Params{Name: "A"})
	require.NoError(t, err)
	assert.Equal(t, []int{25}, store.limits)
	assert.Len(t, page.Events, 25)
	assert.Equal(t, 504, page.Total)
	assert.Equal(t, model.ScoreDetail{Count: 3, Penalty: 3}, page.Score.Breakdown["Harsh Braking"])
	assert.Equal(t, 501, page.Score.Breakdown["Overspeeding"].Count)

	store.limits = nil
	store.Add(model.ReportVehicle, vehicleFixture()...)
	vpage, err := svc.VehicleEvents(ctx, filter.Params{Name: "TRK-1"})
	require.NoError(t, err)
	assert.Equal(t, []int{10}, store.limits)
	assert.Equal(t, 3, vpage.Total)
}

// An event recorded in a non-UTC zone must land in the same week on the
// dashboard as the week filter of its click-through.
func TestWeekBucketMatchesWeekFilterAcrossZones(t *testing.T) {
	svc, store, _ := newService(t, Options{})
	sast := time.FixedZone("SAST", 2*60*60)
	store.Add(model.ReportDriver, model.Event{
		ID: 60, Owner: "Kathu", Category: "Driver", EventType: "Harsh Braking",
		Timestamp: time.Date(2024, 3, 4, 1, 0, 0, 0, sast), DriverName: "D", AssetName: "TRK-9",
	})
	ctx := context.Background()

	dash, err := svc.DriverDashboard(ctx, filter.Params{StartDate: "2024-03-03", EndDate: "2024-03-07"})
	require.NoError(t, err)

	weeks := map[string]int{}
	for _, series := range dash.Weekly.Drilldown {
		if series.Name == "D" {
			for _, p := range series.Data {
				weeks[p.Name] = p.Y
			}
		}
	}
	require.Equal(t, map[string]int{"2024-W09": 1}, weeks)

	for week, count := range weeks {
		page, err := svc.DriverEvents(ctx, filter.Params{Name: "D", Week: week})
		require.NoError(t, err)
		assert.Equal(t, count, page.Total, week)
	}
	page, err := svc.DriverEvents(ctx, filter.Params{Name: "D", Week: "2024-W10"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestVehicleEventsEntityResolution(t *testing.T) {
	svc, _, _ := newService(t, Options{})
	ctx := context.Background()

	// TRK-1 is both an asset and, on event 15, a driver name.
	page, err := svc.VehicleEvents(ctx, filter.Params{Name: "TRK-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Nil(t, page.Score)

	page, err = svc.VehicleEvents(ctx, filter.Params{Name: "TRK-1", Kind: "asset"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	// Driver X only appears on a Truck class event, which the guard drops.
	page, err = svc.VehicleEvents(ctx, filter.Params{Name: "X", Kind: "driver"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.NotNil(t, page.Events)

	_, err = svc.VehicleEvents(ctx, filter.Params{})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestDropdownsAreCachedUntilInvalidated(t *testing.T) {
	svc, store, _ := newService(t, Options{})
	ctx := context.Background()

	first, err := svc.Dropdowns(ctx, model.ReportDriver, "")
	require.NoError(t, err)

	store.Add(model.ReportDriver, model.Event{ID: 50, Owner: "Aggeneys", Category: "Driver", EventType: "Harsh Braking", Timestamp: at(7, 5), DriverName: "Z"})

	cached, err := svc.Dropdowns(ctx, model.ReportDriver, "")
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	svc.InvalidateDropdowns()
	fresh, err := svc.Dropdowns(ctx, model.ReportDriver, "")
	require.NoError(t, err)
	assert.Contains(t, fresh.Owners, "Aggeneys")
	assert.Contains(t, fresh.Entities, "Z")

	_, err = svc.Dropdowns(ctx, model.ReportKind("fleet"), "")
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestVehicleDropdownsNarrowWithoutGrowingCache(t *testing.T) {
	store := repository.NewMemoryEventStore()
	store.Add(model.ReportVehicle, vehicleFixture()...)
	dropdowns := cache.New[model.DropdownSource](10 * time.Minute)
	svc := NewReportService(store, &fakeTrips{}, dropdowns, nil, Options{})
	ctx := context.Background()

	got, err := svc.Dropdowns(ctx, model.ReportVehicle, "KATHU")
	require.NoError(t, err)
	assert.Equal(t, []string{"TRK-1", "TRK-2"}, got.Entities)
	assert.Equal(t, []string{"Kathu Mining", "Kuruman", "kathu mining"}, got.Owners)

	got, err = svc.Dropdowns(ctx, model.ReportVehicle, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"TRK-1", "TRK-2", "TRK-3"}, got.Entities)

	got, err = svc.Dropdowns(ctx, model.ReportVehicle, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got.Entities)
	assert.NotNil(t, got.Entities)

	for i := 0; i < 5000; i++ {
		_, err := svc.Dropdowns(ctx, model.ReportVehicle, fmt.Sprintf("owner-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, dropdowns.Size())
}

type failingStore struct{ err error }

func (f failingStore) Events(context.Context, model.ReportKind, filter.Conditions, int) ([]model.Event, error) {
	return nil, f.err
}

func (f failingStore) Distinct(context.Context, model.ReportKind, filter.Field, filter.Conditions) ([]string, error) {
	return nil, f.err
}

func (f failingStore) CountBy(context.Context, model.ReportKind, filter.Field, filter.Conditions) ([]model.KeyCount, error) {
	return nil, f.err
}

func (f failingStore) OwnedEntities(context.Context, model.ReportKind, filter.Field, filter.Conditions) ([]model.OwnedEntity, error) {
	return nil, f.err
}

func TestStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewReportService(failingStore{err: boom}, &fakeTrips{}, nil, nil, Options{})

	_, err := svc.VehicleDashboard(context.Background(), filter.Params{})
	assert.ErrorIs(t, err, boom)

	_, err = svc.DriverEvents(context.Background(), filter.Params{Name: "A"})
	assert.ErrorIs(t, err, boom)
}
