package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
)

const (
	TripsTable   = "trips_data"
	RatingsTable = "driver_rating"
)

// TripRow is one trips_data record. start and end are nullable; trips
// missing either are skipped.
type TripRow struct {
	ID            int64      `gorm:"column:id;primaryKey"`
	Asset         *string    `gorm:"column:asset"`
	Driver        *string    `gorm:"column:driver"`
	TripType      *string    `gorm:"column:trip_type"`
	Start         *time.Time `gorm:"column:start"`
	End           *time.Time `gorm:"column:end"`
	Distance      *float64   `gorm:"column:distance"`
	MaxSpeed      *float64   `gorm:"column:max_speed"`
	IdleTime      *string    `gorm:"column:idle_time"`
	StartCoords   *string    `gorm:"column:start_coords"`
	EndCoords     *string    `gorm:"column:end_coords"`
	StartOdometer *float64   `gorm:"column:start_odometer"`
	EndOdometer   *float64   `gorm:"column:end_odometer"`
}

// RatingRow is one driver_rating record.
type RatingRow struct {
	AssetName     *string    `gorm:"column:assetName"`
	DriverName    *string    `gorm:"column:driverName"`
	DateStart     *time.Time `gorm:"column:dateStart"`
	Cost          *float64   `gorm:"column:cost"`
	Distance      *float64   `gorm:"column:distance"`
	Over100Kmh    *float64   `gorm:"column:100kmh"`
	ExcessiveIdle *float64   `gorm:"column:excessivei"`
	SpeedingTrip  *float64   `gorm:"column:speedingtr"`
	Brake         *float64   `gorm:"column:brake"`
	Accel         *float64   `gorm:"column:accel"`
	Corner        *float64   `gorm:"column:corner"`
	GForce        *float64   `gorm:"column:gforce"`
}

type TripRepository struct {
	db *gorm.DB
}

func NewTripRepository(db *gorm.DB) *TripRepository {
	return &TripRepository{db: db}
}

// Trips returns one batch of trips ordered by id.
func (r *TripRepository) Trips(ctx context.Context, offset, limit int) ([]model.Trip, error) {
	if !tablesAvailable(r.db.WithContext(ctx), TripsTable) {
		return nil, nil
	}

	var rows []TripRow
	err := r.db.WithContext(ctx).
		Table(TripsTable).
		Select(`id, asset, driver, trip_type, start, "end", distance, max_speed, idle_time,
			start_coords, end_coords, start_odometer, end_odometer`).
		Order("id").
		Offset(offset).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}

	trips := make([]model.Trip, 0, len(rows))
	for _, row := range rows {
		if row.Start == nil || row.End == nil {
			continue
		}
		trips = append(trips, model.Trip{
			ID:            row.ID,
			Asset:         deref(row.Asset),
			Driver:        deref(row.Driver),
			TripType:      deref(row.TripType),
			Start:         *row.Start,
			End:           *row.End,
			Distance:      num(row.Distance),
			MaxSpeed:      num(row.MaxSpeed),
			IdleTime:      deref(row.IdleTime),
			StartCoords:   deref(row.StartCoords),
			EndCoords:     deref(row.EndCoords),
			StartOdometer: num(row.StartOdometer),
			EndOdometer:   num(row.EndOdometer),
		})
	}
	return trips, nil
}

// TripEvents joins vehicle events to the trips of the same asset whose time
// window contains the event. conds restrict the vehicle events.
func (r *TripRepository) TripEvents(ctx context.Context, conds filter.Conditions, limit int) ([]model.TripEvent, error) {
	if !tablesAvailable(r.db.WithContext(ctx), VehicleEventsTable, TripsTable) {
		return nil, nil
	}

	type row struct {
		VehicleEventID int64
		Owner          *string
		AssetName      *string
		EventDate      time.Time
		EventType      *string
		TripID         int64
		TripStart      time.Time
		TripEnd        time.Time
		Distance       *float64
		StartCoords    *string
		EndCoords      *string
	}
	var rows []row

	query := r.db.WithContext(ctx).
		Table(VehicleEventsTable+" v").
		Select(`v.id AS vehicle_event_id,
			v."OwnerName" AS owner,
			v."AssetName" AS asset_name,
			v."EventDate" AS event_date,
			v."Event Types" AS event_type,
			t.id AS trip_id,
			t.start AS trip_start,
			t."end" AS trip_end,
			t.distance AS distance,
			t.start_coords AS start_coords,
			t.end_coords AS end_coords`).
		Joins(`JOIN ` + TripsTable + ` t ON v."AssetName" = t.asset AND v."EventDate" BETWEEN t.start AND t."end"`)

	query, err := applyConditions(query, "v", conds)
	if err != nil {
		return nil, err
	}
	query = query.Order(`v."EventDate" DESC`).Order("t.id")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query trip events: %w", err)
	}

	result := make([]model.TripEvent, 0, len(rows))
	for _, row := range rows {
		result = append(result, model.TripEvent{
			VehicleEventID: row.VehicleEventID,
			Owner:          deref(row.Owner),
			AssetName:      deref(row.AssetName),
			EventDate:      row.EventDate,
			EventType:      deref(row.EventType),
			TripID:         row.TripID,
			TripStart:      row.TripStart,
			TripEnd:        row.TripEnd,
			Distance:       num(row.Distance),
			StartCoords:    deref(row.StartCoords),
			EndCoords:      deref(row.EndCoords),
		})
	}
	return result, nil
}

// Ratings reads the rating feed with dateStart in [from, to). A zero bound
// is open.
func (r *TripRepository) Ratings(ctx context.Context, from, to time.Time) ([]model.RatingRecord, error) {
	if !tablesAvailable(r.db.WithContext(ctx), RatingsTable) {
		return nil, nil
	}

	query := r.db.WithContext(ctx).
		Table(RatingsTable).
		Select(`"assetName", "driverName", "dateStart", cost, distance, "100kmh",
			excessivei, speedingtr, brake, accel, corner, gforce`).
		Where(`"dateStart" IS NOT NULL`)
	if !from.IsZero() {
		query = query.Where(`"dateStart" >= ?`, from)
	}
	if !to.IsZero() {
		query = query.Where(`"dateStart" < ?`, to)
	}

	var rows []RatingRow
	if err := query.Order(`"dateStart"`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}

	records := make([]model.RatingRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.RatingRecord{
			AssetName:     deref(row.AssetName),
			DriverName:    deref(row.DriverName),
			DateStart:     *row.DateStart,
			Cost:          num(row.Cost),
			Distance:      num(row.Distance),
			Over100Kmh:    num(row.Over100Kmh),
			ExcessiveIdle: num(row.ExcessiveIdle),
			SpeedingTrip:  num(row.SpeedingTrip),
			Brake:         num(row.Brake),
			Accel:         num(row.Accel),
			Corner:        num(row.Corner),
			GForce:        num(row.GForce),
		})
	}
	return records, nil
}

func num(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
