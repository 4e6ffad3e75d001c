package model

import "time"

type Trip struct {
	ID            int64     `json:"id"`
	Asset         string    `json:"asset"`
	Driver        string    `json:"driver"`
	TripType      string    `json:"trip_type"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Distance      float64   `json:"distance"`
	MaxSpeed      float64   `json:"max_speed"`
	IdleTime      string    `json:"idle_time"`
	StartCoords   string    `json:"start_coords"`
	EndCoords     string    `json:"end_coords"`
	StartOdometer float64   `json:"start_odometer"`
	EndOdometer   float64   `json:"end_odometer"`
}

// AnnotatedTrip carries a count for every known event type, zero included.
type AnnotatedTrip struct {
	Trip
	EventCounts map[string]int `json:"event_counts"`
}

type TripPage struct {
	Offset     int             `json:"offset"`
	Limit      int             `json:"limit"`
	EventTypes []string        `json:"event_types"`
	Trips      []AnnotatedTrip `json:"trips"`
}

// TripEvent is a vehicle event that happened inside a trip of the same asset.
type TripEvent struct {
	VehicleEventID int64     `json:"vehicle_event_id"`
	Owner          string    `json:"owner"`
	AssetName      string    `json:"asset_name"`
	EventDate      time.Time `json:"event_date"`
	EventType      string    `json:"event_type"`
	TripID         int64     `json:"trip_id"`
	TripStart      time.Time `json:"trip_start"`
	TripEnd        time.Time `json:"trip_end"`
	Distance       float64   `json:"distance"`
	StartCoords    string    `json:"start_coords"`
	EndCoords      string    `json:"end_coords"`
}

// RatingRecord is one row of the driver rating feed.
type RatingRecord struct {
	AssetName     string    `json:"asset_name"`
	DriverName    string    `json:"driver_name"`
	DateStart     time.Time `json:"date_start"`
	Cost          float64   `json:"cost"`
	Distance      float64   `json:"distance"`
	Over100Kmh    float64   `json:"over_100kmh"`
	ExcessiveIdle float64   `json:"excessive_idle"`
	SpeedingTrip  float64   `json:"speeding_trip"`
	Brake         float64   `json:"brake"`
	Accel         float64   `json:"accel"`
	Corner        float64   `json:"corner"`
	GForce        float64   `json:"gforce"`
}

// AssetDailyRating sums the rating feed per asset and day. Score is
// distance per unit of cost.
type AssetDailyRating struct {
	AssetName     string  `json:"asset_name"`
	Date          string  `json:"date"`
	Distance      float64 `json:"distance"`
	Cost          float64 `json:"cost"`
	Over100Kmh    float64 `json:"over_100kmh"`
	ExcessiveIdle float64 `json:"excessive_idle"`
	SpeedingTrip  float64 `json:"speeding_trip"`
	Brake         float64 `json:"brake"`
	Accel         float64 `json:"accel"`
	Corner        float64 `json:"corner"`
	GForce        float64 `json:"gforce"`
	Score         float64 `json:"score"`
}
