package aggregate

import (
	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
)

// BatteryDisconnectAlerts are the alert names counted as battery disconnects.
var BatteryDisconnectAlerts = []string{
	"Battery DC (A/H in depot)",
	"Battery DC (outside of depot)",
	"Battery Disconnect",
	"1A - Battery Disconnect",
	"1A - Battery Disconnect (Kathu)",
	"1A - Battery Disconnect (Kuruman)",
	"1E - Battery Disconnect",
}

// Rule is a named restriction applied after the FilterSpec, for example to
// attribute events to an entity.
type Rule struct {
	Name      string
	Condition filter.Condition
}

var (
	// ExcludeNonTagging drops untagged events and events without a type.
	ExcludeNonTagging = Rule{Name: "exclude_non_tagging", Condition: filter.NotEq(filter.FieldEventType, model.EventTypeNonTagging)}
	RequireDriver     = Rule{Name: "require_driver", Condition: filter.Present(filter.FieldDriver)}
	RequireAsset      = Rule{Name: "require_asset", Condition: filter.Present(filter.FieldAsset)}
	DriverOrDutyClass = Rule{Name: "driver_or_duty_class", Condition: filter.In(filter.FieldCategory, model.CategoryDriver, model.CategoryDuty)}
	BatteryDisconnect = Rule{Name: "battery_disconnect", Condition: filter.In(filter.FieldAlert, BatteryDisconnectAlerts...)}
)

// Apply keeps the events that pass every rule.
func Apply(events []model.Event, rules ...Rule) []model.Event {
	if len(rules) == 0 {
		return events
	}
	conds := make(filter.Conditions, 0, len(rules))
	for _, r := range rules {
		conds = append(conds, r.Condition)
	}
	return conds.Apply(events)
}
