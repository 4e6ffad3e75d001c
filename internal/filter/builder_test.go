package filter

import (
	"testing"
	"time"

	"fleet-analytics-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func ids(events []model.Event) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestOwnerMatchDiffersPerReport(t *testing.T) {
	events := sampleEvents()
	spec := model.FilterSpec{Owner: "Kathu Mining"}

	assert.Equal(t, []int64{1, 2, 6}, ids(Driver(spec).Apply(events)))
	assert.Equal(t, []int64{1, 2, 3, 6}, ids(Vehicle(spec).Apply(events)))

	spec.Owner = "kathu"
	assert.Empty(t, Driver(spec).Apply(events))
	assert.Equal(t, []int64{1, 2, 3, 6}, ids(For(model.ReportVehicle, spec).Apply(events)))
}

func TestDateBoundsAreInclusiveDays(t *testing.T) {
	events := sampleEvents()
	spec := model.FilterSpec{
		StartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, []int64{1, 2, 3}, ids(Driver(spec).Apply(events)))
}

func TestStartAfterEndIsEmpty(t *testing.T) {
	spec := model.FilterSpec{
		StartDate: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
	}

	assert.True(t, spec.Empty())
	assert.Empty(t, Vehicle(spec).Apply(sampleEvents()))
}

func TestEntityCondition(t *testing.T) {
	events := append(sampleEvents(), model.Event{ID: 7, DriverName: "TRK-2", AssetName: "TRK-9"})

	assert.Equal(t, []int64{1, 2, 6}, ids(Conditions{EntityCondition(model.DriverRef("A"))}.Apply(events)))
	assert.Equal(t, []int64{3}, ids(Conditions{EntityCondition(model.AssetRef("TRK-2"))}.Apply(events)))
	assert.Equal(t, []int64{3, 7}, ids(Conditions{EntityCondition(model.EntityRef{Name: "TRK-2"})}.Apply(events)))
}

func TestWeekAndCategory(t *testing.T) {
	from, _, err := model.ParseISOWeek("2024-W10")
	assert.NoError(t, err)

	spec := model.FilterSpec{WeekStart: from, Category: model.CategoryDriver, EventType: "Harsh Braking"}
	assert.Equal(t, []int64{1}, ids(Driver(spec).Apply(sampleEvents())))
}

func TestFilterIsConjunctive(t *testing.T) {
	events := sampleEvents()
	spec := model.FilterSpec{Owner: "kathu", EventType: "Harsh Braking"}

	byOwner := Vehicle(model.FilterSpec{Owner: spec.Owner}).Apply(events)
	both := Vehicle(model.FilterSpec{EventType: spec.EventType}).Apply(byOwner)

	assert.Equal(t, ids(both), ids(Vehicle(spec).Apply(events)))
}
