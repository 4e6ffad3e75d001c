package filter

import (
	"testing"
	"time"

	"fleet-analytics-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestConditionMatch(t *testing.T) {
	ts := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	e := model.Event{
		Owner:      "Kathu Mining",
		Category:   "Driver",
		EventType:  "Harsh Braking",
		Timestamp:  ts,
		DriverName: "A",
		AssetName:  "TRK-1",
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"eq", Eq(FieldOwner, "Kathu Mining"), true},
		{"eq is case sensitive", Eq(FieldOwner, "kathu mining"), false},
		{"contains fold", ContainsFold(FieldOwner, "KATHU"), true},
		{"contains fold miss", ContainsFold(FieldOwner, "kuruman"), false},
		{"not eq", NotEq(FieldEventType, model.EventTypeNonTagging), true},
		{"not eq on empty value", NotEq(FieldAlert, "x"), false},
		{"in", In(FieldCategory, "Driver", "Duty"), true},
		{"in miss", In(FieldCategory, "Duty"), false},
		{"present", Present(FieldAsset), true},
		{"present on empty", Present(FieldAlert), false},
		{"from inclusive", From(ts), true},
		{"before exclusive", Before(ts), false},
		{"any", Any(Eq(FieldAsset, "A"), Eq(FieldDriver, "A")), true},
		{"any none", Any(Eq(FieldAsset, "B"), Eq(FieldDriver, "B")), false},
		{"empty any", Any(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Match(e))
		})
	}
}

func TestConditionsAndDoesNotAlias(t *testing.T) {
	base := make(Conditions, 1, 4)
	base[0] = Eq(FieldOwner, "x")

	a := base.And(Eq(FieldDriver, "A"))
	b := base.And(Eq(FieldDriver, "B"))

	assert.Len(t, base, 1)
	assert.Equal(t, "A", a[1].Value)
	assert.Equal(t, "B", b[1].Value)
}

func TestConditionsOrderIndependent(t *testing.T) {
	events := sampleEvents()
	conds := Conditions{
		ContainsFold(FieldOwner, "kathu"),
		Eq(FieldEventType, "Harsh Braking"),
		From(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)),
	}
	reversed := Conditions{conds[2], conds[1], conds[0]}

	assert.Equal(t, conds.Apply(events), reversed.Apply(events))
	assert.Equal(t, Conditions(nil).Apply(events), events)
}

func sampleEvents() []model.Event {
	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	return []model.Event{
		{ID: 1, Owner: "Kathu Mining", Category: "Driver", EventType: "Harsh Braking", Timestamp: day(4, 8), DriverName: "A", AssetName: "TRK-1"},
		{ID: 2, Owner: "Kathu Mining", Category: "Driver", EventType: "Overspeeding", Timestamp: day(5, 9), DriverName: "A", AssetName: "TRK-1"},
		{ID: 3, Owner: "kathu mining", Category: "Duty", EventType: "Harsh Braking", Timestamp: day(5, 23), DriverName: "B", AssetName: "TRK-2"},
		{ID: 4, Owner: "Kuruman", Category: "Driver", EventType: "Non Tagging", Timestamp: day(6, 0), AssetName: "TRK-3"},
		{ID: 5, Owner: "Kuruman", Category: "Truck", EventType: "Harsh Braking", Timestamp: day(7, 12), DriverName: "C", AssetName: "TRK-3"},
		{ID: 6, Owner: "Kathu Mining", Category: "Driver", EventType: "Harsh Braking", Timestamp: day(3, 23), DriverName: "A", AssetName: "TRK-1"},
	}
}
