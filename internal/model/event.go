package model

import (
	"fmt"
	"strings"
	"time"
)

// ReportKind selects the event table and the filter variant of a report.
type ReportKind string

const (
	ReportDriver  ReportKind = "driver"
	ReportVehicle ReportKind = "vehicle"
)

func (k ReportKind) Valid() bool {
	return k == ReportDriver || k == ReportVehicle
}

const (
	CategoryDriver = "Driver"
	CategoryDuty   = "Duty"

	// EventTypeNonTagging marks events that carry no driver tag.
	EventTypeNonTagging = "Non Tagging"

	// Unassigned is the group key for events without a value on a dimension
	// that keeps nulls.
	Unassigned = "unassigned"
)

// Event is one telemetry record. Empty strings stand for NULL columns.
type Event struct {
	ID              int64     `json:"id"`
	Owner           string    `json:"owner"`
	Category        string    `json:"category"`
	EventType       string    `json:"event_type"`
	Timestamp       time.Time `json:"timestamp"`
	DriverName      string    `json:"driver_name"`
	AssetName       string    `json:"asset_name"`
	AlertName       string    `json:"alert_name"`
	AlertType       string    `json:"alert_type,omitempty"`
	LocationAddress string    `json:"location_address,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
}

// EntityName returns the name the event carries for the given entity kind.
func (e Event) EntityName(kind EntityKind) string {
	switch kind {
	case EntityDriver:
		return e.DriverName
	case EntityAsset:
		return e.AssetName
	default:
		return ""
	}
}

type EntityKind string

const (
	EntityAny    EntityKind = ""
	EntityDriver EntityKind = "driver"
	EntityAsset  EntityKind = "asset"
)

// EntityRef names a driver or an asset. The kind is resolved where the
// report type is known so the two never share one ambiguous string.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	Name string     `json:"name"`
}

func (r EntityRef) IsZero() bool {
	return r.Name == ""
}

func DriverRef(name string) EntityRef {
	return EntityRef{Kind: EntityDriver, Name: name}
}

func AssetRef(name string) EntityRef {
	return EntityRef{Kind: EntityAsset, Name: name}
}

func ParseEntityKind(raw string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return EntityAny, nil
	case "driver":
		return EntityDriver, nil
	case "asset", "vehicle":
		return EntityAsset, nil
	default:
		return EntityAny, fmt.Errorf("unknown entity kind %q", raw)
	}
}
