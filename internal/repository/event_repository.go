package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
)

const (
	DriverEventsTable  = "drivers"
	VehicleEventsTable = "vehicles"
)

func eventTable(kind model.ReportKind) (string, error) {
	switch kind {
	case model.ReportDriver:
		return DriverEventsTable, nil
	case model.ReportVehicle:
		return VehicleEventsTable, nil
	default:
		return "", fmt.Errorf("unknown report kind %q", kind)
	}
}

// EventRow is the column layout shared by the drivers and vehicles tables.
type EventRow struct {
	ID              int64      `gorm:"column:id;primaryKey"`
	OwnerName       *string    `gorm:"column:OwnerName"`
	Class           *string    `gorm:"column:Class"`
	EventTypes      *string    `gorm:"column:Event Types"`
	EventDate       *time.Time `gorm:"column:EventDate"`
	LinkedName1     *string    `gorm:"column:LinkedName_1"`
	AssetName       *string    `gorm:"column:AssetName"`
	AlertName       *string    `gorm:"column:AlertName"`
	AlertType       *string    `gorm:"column:AlertType"`
	LocationAddress *string    `gorm:"column:LocationAddress"`
	Latitude        *float64   `gorm:"column:Latitude"`
	Longitude       *float64   `gorm:"column:Longitude"`
}

func (r EventRow) toModel() model.Event {
	e := model.Event{
		ID:              r.ID,
		Owner:           deref(r.OwnerName),
		Category:        deref(r.Class),
		EventType:       deref(r.EventTypes),
		DriverName:      deref(r.LinkedName1),
		AssetName:       deref(r.AssetName),
		AlertName:       deref(r.AlertName),
		AlertType:       deref(r.AlertType),
		LocationAddress: deref(r.LocationAddress),
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
	}
	if r.EventDate != nil {
		e.Timestamp = r.EventDate.UTC()
	}
	return e
}

// EventRowFrom is the inverse of toModel, used to seed tables.
func EventRowFrom(e model.Event) EventRow {
	row := EventRow{
		ID:              e.ID,
		OwnerName:       ref(e.Owner),
		Class:           ref(e.Category),
		EventTypes:      ref(e.EventType),
		LinkedName1:     ref(e.DriverName),
		AssetName:       ref(e.AssetName),
		AlertName:       ref(e.AlertName),
		AlertType:       ref(e.AlertType),
		LocationAddress: ref(e.LocationAddress),
		Latitude:        e.Latitude,
		Longitude:       e.Longitude,
	}
	if !e.Timestamp.IsZero() {
		ts := e.Timestamp
		row.EventDate = &ts
	}
	return row
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Events returns the events of kind matching conds, newest first. Rows
// without an EventDate are never returned. limit <= 0 returns every match.
func (r *EventRepository) Events(ctx context.Context, kind model.ReportKind, conds filter.Conditions, limit int) ([]model.Event, error) {
	table, err := eventTable(kind)
	if err != nil {
		return nil, err
	}
	if !r.tablesAvailable(ctx, table) {
		return nil, nil
	}

	query := r.db.WithContext(ctx).
		Table(table).
		Select(`id, "OwnerName", "Class", "Event Types", "EventDate", "LinkedName_1",
			"AssetName", "AlertName", "AlertType", "LocationAddress", "Latitude", "Longitude"`).
		Where(`"EventDate" IS NOT NULL`)

	query, err = applyConditions(query, "", conds)
	if err != nil {
		return nil, err
	}

	query = query.
		Order(clause.OrderByColumn{Column: clause.Column{Name: "EventDate"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []EventRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("query %s events: %w", kind, err)
	}

	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.toModel())
	}
	return events, nil
}

// Distinct returns the sorted non-empty values of field among the events
// matching conds. Like Events, rows without an EventDate are skipped.
func (r *EventRepository) Distinct(ctx context.Context, kind model.ReportKind, field filter.Field, conds filter.Conditions) ([]string, error) {
	table, err := eventTable(kind)
	if err != nil {
		return nil, err
	}
	if !r.tablesAvailable(ctx, table) {
		return nil, nil
	}
	col, err := column("", field)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table(table).
		Clauses(clause.Select{Distinct: true, Columns: []clause.Column{col}}).
		Where(`"EventDate" IS NOT NULL`)

	query, err = applyConditions(query, "", conds.And(filter.Present(field)))
	if err != nil {
		return nil, err
	}

	var values []string
	if err := query.Order(clause.OrderByColumn{Column: col}).Scan(&values).Error; err != nil {
		return nil, fmt.Errorf("distinct %s %s: %w", kind, field, err)
	}
	return values, nil
}

// CountBy counts the events matching conds per value of field, sorted by
// key. Empty and NULL values share the key "".
func (r *EventRepository) CountBy(ctx context.Context, kind model.ReportKind, field filter.Field, conds filter.Conditions) ([]model.KeyCount, error) {
	table, err := eventTable(kind)
	if err != nil {
		return nil, err
	}
	if !r.tablesAvailable(ctx, table) {
		return nil, nil
	}
	col, err := column("", field)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table(table).
		Select("? AS group_key, COUNT(*) AS group_count", col).
		Where(`"EventDate" IS NOT NULL`)

	query, err = applyConditions(query, "", conds)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		GroupKey   *string `gorm:"column:group_key"`
		GroupCount int     `gorm:"column:group_count"`
	}
	if err := query.Group("group_key").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count %s by %s: %w", kind, field, err)
	}

	totals := make(map[string]int, len(rows))
	for _, row := range rows {
		totals[deref(row.GroupKey)] += row.GroupCount
	}
	return sortedCounts(totals), nil
}

// OwnedEntities returns the sorted distinct (owner, entity) pairs among the
// events matching conds. Pairs with an empty side are skipped.
func (r *EventRepository) OwnedEntities(ctx context.Context, kind model.ReportKind, entity filter.Field, conds filter.Conditions) ([]model.OwnedEntity, error) {
	table, err := eventTable(kind)
	if err != nil {
		return nil, err
	}
	if !r.tablesAvailable(ctx, table) {
		return nil, nil
	}
	ownerCol, err := column("", filter.FieldOwner)
	if err != nil {
		return nil, err
	}
	entityCol, err := column("", entity)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).
		Table(table).
		Clauses(clause.Select{Distinct: true, Columns: []clause.Column{ownerCol, entityCol}}).
		Where(`"EventDate" IS NOT NULL`)

	query, err = applyConditions(query, "", conds.And(filter.Present(filter.FieldOwner), filter.Present(entity)))
	if err != nil {
		return nil, err
	}

	var rows []EventRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("owned %s %s: %w", kind, entity, err)
	}

	pairs := make([]model.OwnedEntity, 0, len(rows))
	for _, row := range rows {
		e := row.toModel()
		pairs = append(pairs, model.OwnedEntity{Owner: e.Owner, Entity: filter.Value(e, entity)})
	}
	sortPairs(pairs)
	return pairs, nil
}

func sortedCounts(totals map[string]int) []model.KeyCount {
	counts := make([]model.KeyCount, 0, len(totals))
	for key, n := range totals {
		counts = append(counts, model.KeyCount{Key: key, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Key < counts[j].Key })
	return counts
}

func sortPairs(pairs []model.OwnedEntity) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Owner != pairs[j].Owner {
			return pairs[i].Owner < pairs[j].Owner
		}
		return pairs[i].Entity < pairs[j].Entity
	})
}

func (r *EventRepository) tablesAvailable(ctx context.Context, names ...string) bool {
	return tablesAvailable(r.db.WithContext(ctx), names...)
}

// tablesAvailable reports whether every table exists. The event and trip
// tables are owned by the loader, so a fresh database may not have them.
func tablesAvailable(db *gorm.DB, names ...string) bool {
	migrator := db.Migrator()
	for _, name := range names {
		if !migrator.HasTable(name) {
			return false
		}
	}
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
