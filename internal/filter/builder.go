package filter

import "fleet-analytics-service/internal/model"

// Driver builds the driver report conditions: owner is an exact match.
func Driver(spec model.FilterSpec) Conditions {
	conds := common(spec)
	if spec.Owner != "" {
		conds = append(conds, Eq(FieldOwner, spec.Owner))
	}
	return conds
}

// Vehicle builds the vehicle report conditions: owner is a case-insensitive
// substring match.
func Vehicle(spec model.FilterSpec) Conditions {
	conds := common(spec)
	if spec.Owner != "" {
		conds = append(conds, ContainsFold(FieldOwner, spec.Owner))
	}
	return conds
}

func For(kind model.ReportKind, spec model.FilterSpec) Conditions {
	if kind == model.ReportVehicle {
		return Vehicle(spec)
	}
	return Driver(spec)
}

// EntityCondition selects events of one entity. A ref without a kind
// matches either an asset or a driver of that name.
func EntityCondition(ref model.EntityRef) Condition {
	switch ref.Kind {
	case model.EntityDriver:
		return Eq(FieldDriver, ref.Name)
	case model.EntityAsset:
		return Eq(FieldAsset, ref.Name)
	default:
		return Any(Eq(FieldAsset, ref.Name), Eq(FieldDriver, ref.Name))
	}
}

func common(spec model.FilterSpec) Conditions {
	var conds Conditions

	from, to := spec.TimeBounds()
	if !from.IsZero() {
		conds = append(conds, From(from))
	}
	if !to.IsZero() {
		conds = append(conds, Before(to))
	}
	if !spec.WeekStart.IsZero() {
		conds = append(conds, From(spec.WeekStart), Before(spec.WeekStart.AddDate(0, 0, 7)))
	}
	if !spec.Entity.IsZero() {
		conds = append(conds, EntityCondition(spec.Entity))
	}
	if spec.EventType != "" {
		conds = append(conds, Eq(FieldEventType, spec.EventType))
	}
	if spec.Category != "" {
		conds = append(conds, Eq(FieldCategory, spec.Category))
	}
	return conds
}

// TripEvents restricts the vehicle side of the trip join: asset is exact,
// owner is a case-insensitive substring.
func TripEvents(asset, owner string) Conditions {
	var conds Conditions
	if asset != "" {
		conds = append(conds, Eq(FieldAsset, asset))
	}
	if owner != "" {
		conds = append(conds, ContainsFold(FieldOwner, owner))
	}
	return conds
}
