package service

import (
	"context"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"fleet-analytics-service/internal/aggregate"
	"fleet-analytics-service/internal/cache"
	"fleet-analytics-service/internal/chart"
	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/metrics"
	"fleet-analytics-service/internal/model"
	"fleet-analytics-service/internal/scoring"
)

var (
	// ErrInvalidFilter marks malformed request parameters.
	ErrInvalidFilter = filter.ErrInvalidValue
	// ErrAmbiguousKey marks a drill-down id shared by two different paths.
	ErrAmbiguousKey = aggregate.ErrAmbiguousKey
)

const (
	driverEventsPath  = "/driver/events"
	vehicleEventsPath = "/vehicle/events"
)

// EventStore reads telemetry events. limit <= 0 returns every match,
// newest first.
type EventStore interface {
	Events(ctx context.Context, kind model.ReportKind, conds filter.Conditions, limit int) ([]model.Event, error)
	Distinct(ctx context.Context, kind model.ReportKind, field filter.Field, conds filter.Conditions) ([]string, error)
	CountBy(ctx context.Context, kind model.ReportKind, field filter.Field, conds filter.Conditions) ([]model.KeyCount, error)
	OwnedEntities(ctx context.Context, kind model.ReportKind, entity filter.Field, conds filter.Conditions) ([]model.OwnedEntity, error)
}

type Options struct {
	DriverRangeDays   int
	VehicleRangeDays  int
	MaxRangeDays      int
	DriverEventLimit  int
	VehicleEventLimit int
	TripBatchSize     int
	TopN              int
	Scoring           scoring.Table
}

func (o Options) withDefaults() Options {
	if o.DriverRangeDays <= 0 {
		o.DriverRangeDays = 1
	}
	if o.VehicleRangeDays <= 0 {
		o.VehicleRangeDays = 2
	}
	if o.DriverEventLimit <= 0 {
		o.DriverEventLimit = 1000
	}
	if o.VehicleEventLimit <= 0 {
		o.VehicleEventLimit = 500
	}
	if o.TripBatchSize <= 0 {
		o.TripBatchSize = 100
	}
	if o.TopN <= 0 {
		o.TopN = 10
	}
	if o.Scoring == nil {
		o.Scoring = scoring.DefaultTable()
	}
	return o
}

type ReportService struct {
	events    EventStore
	trips     TripStore
	dropdowns *cache.TTLCache[model.DropdownSource]
	metrics   *metrics.Manager
	opts      Options
	now       func() time.Time
}

func NewReportService(events EventStore, trips TripStore, dropdowns *cache.TTLCache[model.DropdownSource], m *metrics.Manager, opts Options) *ReportService {
	return &ReportService{
		events:    events,
		trips:     trips,
		dropdowns: dropdowns,
		metrics:   m,
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// WithClock replaces the clock used for default date ranges.
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

func (s *ReportService) DriverDashboard(ctx context.Context, params filter.Params) (dashboard *model.Dashboard, err error) {
	defer s.observe(model.ReportDriver, "dashboard", time.Now(), &err)

	spec, err := filter.ParseDashboard(model.ReportDriver, params, s.now(), filter.Defaults{
		RangeDays:    s.opts.DriverRangeDays,
		MaxRangeDays: s.opts.MaxRangeDays,
	})
	if err != nil {
		return nil, err
	}

	events, dropdowns, err := s.load(ctx, model.ReportDriver, spec, filter.Driver(spec))
	if err != nil {
		return nil, err
	}

	dashboard = &model.Dashboard{
		Kind:      model.ReportDriver,
		Filter:    appliedFilter(spec),
		Events:    head(events, s.opts.DriverEventLimit),
		Dropdowns: dropdowns,
	}
	fixed := fixedParams(spec)

	weeklyPath := []aggregate.Dimension{aggregate.Driver, aggregate.Week, aggregate.EventType}
	weekly, err := aggregate.BuildHierarchy(events, weeklyPath, []int{s.opts.TopN})
	if err != nil {
		return nil, err
	}
	weeklyLinks := chart.Linker{
		Base:    driverEventsPath,
		PathDim: aggregate.Driver,
		Params:  map[aggregate.Dimension]string{aggregate.Week: "week", aggregate.EventType: "event_type"},
		Fixed:   fixed,
	}
	dashboard.Weekly = chart.Drilldown(weekly, chart.Options{Link: weeklyLinks.For(weeklyPath)})

	hourlyPath := []aggregate.Dimension{aggregate.Hour, aggregate.EventType, aggregate.Driver}
	hourly, err := aggregate.BuildHierarchy(events, hourlyPath, []int{0, 0, s.opts.TopN})
	if err != nil {
		return nil, err
	}
	driverLinks := chart.Linker{
		Base:    driverEventsPath,
		PathDim: aggregate.Driver,
		Params:  map[aggregate.Dimension]string{aggregate.EventType: "event_type"},
		Fixed:   fixed,
	}
	dashboard.Hourly = chart.Stacked(hourly, chart.Hours(), chart.Options{Link: driverLinks.For(hourlyPath)})

	ownerPath := []aggregate.Dimension{aggregate.Owner, aggregate.EventType, aggregate.Driver}
	owners, err := aggregate.BuildHierarchy(events, ownerPath, []int{0, 0, s.opts.TopN})
	if err != nil {
		return nil, err
	}
	dashboard.Owners = chart.Drilldown(owners, chart.Options{Link: driverLinks.For(ownerPath)})

	assetLinks := chart.Linker{
		Base:   driverEventsPath,
		Params: map[aggregate.Dimension]string{aggregate.Asset: "asset"},
		Fixed:  fixed,
	}
	dashboard.EntityTable = s.entityTable(
		aggregate.Apply(events, aggregate.RequireAsset, aggregate.ExcludeNonTagging),
		aggregate.Asset, assetLinks.For([]aggregate.Dimension{aggregate.Asset}),
	)

	dashboard.EventTypeTotals = eventTypeTotals(
		aggregate.Apply(events, aggregate.ExcludeNonTagging),
		aggregate.Driver, aggregate.RequireDriver,
		driverLinks.For([]aggregate.Dimension{aggregate.EventType, aggregate.Driver}),
	)
	return dashboard, nil
}

func (s *ReportService) VehicleDashboard(ctx context.Context, params filter.Params) (dashboard *model.Dashboard, err error) {
	defer s.observe(model.ReportVehicle, "dashboard", time.Now(), &err)

	spec, err := filter.ParseDashboard(model.ReportVehicle, params, s.now(), filter.Defaults{
		RangeDays:    s.opts.VehicleRangeDays,
		MaxRangeDays: s.opts.MaxRangeDays,
	})
	if err != nil {
		return nil, err
	}

	events, dropdowns, err := s.load(ctx, model.ReportVehicle, spec, filter.Vehicle(spec))
	if err != nil {
		return nil, err
	}

	dashboard = &model.Dashboard{
		Kind:      model.ReportVehicle,
		Filter:    appliedFilter(spec),
		Events:    head(events, s.opts.VehicleEventLimit),
		Dropdowns: dropdowns,
	}
	owners := dominantOwners(events)
	fixed := fixedParams(spec)
	fixed.Set("kind", "asset")

	assetLinks := chart.Linker{
		Base:    vehicleEventsPath,
		PathDim: aggregate.Asset,
		Params:  map[aggregate.Dimension]string{aggregate.Week: "week", aggregate.EventType: "event_type"},
		Fixed:   fixed,
	}

	weeklyPath := []aggregate.Dimension{aggregate.Asset, aggregate.Week, aggregate.EventType}
	weekly, err := aggregate.BuildHierarchy(events, weeklyPath, []int{s.opts.TopN})
	if err != nil {
		return nil, err
	}
	dashboard.Weekly = chart.Drilldown(weekly, chart.Options{
		Link: assetLinks.For(weeklyPath),
		Decorate: func(keys []string, p *model.ChartPoint) {
			decorateAsset(p, keys[0], owners)
			if len(keys) == 3 {
				p.EventType = keys[2]
			}
		},
	})

	hourlyPath := []aggregate.Dimension{aggregate.Hour, aggregate.EventType, aggregate.Asset}
	hourly, err := aggregate.BuildHierarchy(events, hourlyPath, []int{0, 0, s.opts.TopN})
	if err != nil {
		return nil, err
	}
	dashboard.Hourly = chart.Stacked(hourly, chart.Hours(), chart.Options{
		Link: assetLinks.For(hourlyPath),
		Decorate: func(keys []string, p *model.ChartPoint) {
			if len(keys) == 3 {
				decorateAsset(p, keys[2], owners)
				p.EventType = keys[1]
			}
		},
	})

	ownerPath := []aggregate.Dimension{aggregate.Owner, aggregate.EventType, aggregate.Asset}
	byOwner, err := aggregate.BuildHierarchy(events, ownerPath, []int{0, 0, s.opts.TopN})
	if err != nil {
		return nil, err
	}
	dashboard.Owners = chart.Drilldown(byOwner, chart.Options{
		Link: assetLinks.For(ownerPath),
		Decorate: func(keys []string, p *model.ChartPoint) {
			p.Owner = keys[0]
			if len(keys) == 3 {
				p.EventType = keys[1]
				p.AssetName = keys[2]
			}
		},
	})

	driverFixed := fixedParams(spec)
	driverFixed.Set("kind", "driver")
	driverLinks := chart.Linker{Base: vehicleEventsPath, PathDim: aggregate.Driver, Fixed: driverFixed}
	dashboard.EntityTable = s.entityTable(
		aggregate.Apply(events, aggregate.RequireDriver, aggregate.DriverOrDutyClass, aggregate.ExcludeNonTagging),
		aggregate.Driver, driverLinks.For([]aggregate.Dimension{aggregate.Driver}),
	)

	dashboard.EventTypeTotals = eventTypeTotals(
		events, aggregate.Asset, aggregate.Rule{},
		assetLinks.For([]aggregate.Dimension{aggregate.EventType, aggregate.Asset}),
	)

	battery := aggregate.Apply(events, aggregate.BatteryDisconnect)
	batteryLinks := chart.Linker{Base: vehicleEventsPath, PathDim: aggregate.Asset, Fixed: fixed}
	dashboard.Battery = batteryChart(battery, batteryLinks.For([]aggregate.Dimension{aggregate.Asset}))
	return dashboard, nil
}

// load fetches the filtered events and the dropdown lists concurrently.
func (s *ReportService) load(ctx context.Context, kind model.ReportKind, spec model.FilterSpec, conds filter.Conditions) ([]model.Event, model.Dropdowns, error) {
	var events []model.Event
	var dropdowns model.Dropdowns

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if spec.Empty() {
			events = []model.Event{}
			return nil
		}
		var err error
		events, err = s.events.Events(gctx, kind, conds, 0)
		return err
	})
	g.Go(func() error {
		var err error
		dropdowns, err = s.Dropdowns(gctx, kind, spec.Owner)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, model.Dropdowns{}, err
	}
	if events == nil {
		events = []model.Event{}
	}
	s.metrics.AddEventsScanned(string(kind), len(events))
	return events, dropdowns, nil
}

func (s *ReportService) entityTable(events []model.Event, dim aggregate.Dimension, link func([]string) string) []model.EntityBreakdown {
	kind := model.EntityDriver
	if dim == aggregate.Asset {
		kind = model.EntityAsset
	}

	top := aggregate.TopN(events, dim, s.opts.TopN)
	table := make([]model.EntityBreakdown, 0, len(top))
	for _, g := range top {
		table = append(table, model.EntityBreakdown{
			Entity:    model.EntityRef{Kind: kind, Name: g.Key},
			Total:     g.Count,
			Breakdown: aggregate.Drill(events, dim, aggregate.EventType, g.Key),
			URL:       link([]string{g.Key}),
		})
	}
	return table
}

// eventTypeTotals counts events per type and lists, per type, every entity
// on dim that contributed. entityRule narrows the entity lists only.
func eventTypeTotals(events []model.Event, dim aggregate.Dimension, entityRule aggregate.Rule, link func([]string) string) []model.EventTypeTotal {
	kind := model.EntityDriver
	if dim == aggregate.Asset {
		kind = model.EntityAsset
	}

	entityEvents := events
	if entityRule.Name != "" {
		entityEvents = aggregate.Apply(events, entityRule)
	}

	groups := aggregate.Group(events, aggregate.EventType)
	totals := make([]model.EventTypeTotal, 0, len(groups))
	for _, g := range groups {
		entities := aggregate.TopN(aggregate.Subset(entityEvents, aggregate.EventType, g.Key), dim, 0)
		counts := make([]model.EntityCount, 0, len(entities))
		for _, e := range entities {
			counts = append(counts, model.EntityCount{
				Entity: model.EntityRef{Kind: kind, Name: e.Key},
				Count:  e.Count,
				URL:    link([]string{g.Key, e.Key}),
			})
		}
		totals = append(totals, model.EventTypeTotal{EventType: g.Key, Count: g.Count, Entities: counts})
	}
	return totals
}

const batteryDrilldownID = "battery_disconnects"

func batteryChart(events []model.Event, link func([]string) string) *model.DrilldownChart {
	series := model.ChartSeries{ID: batteryDrilldownID, Name: "Vehicles with Battery Disconnects", Data: make([]model.ChartPoint, 0)}
	for _, g := range aggregate.Group(events, aggregate.Asset) {
		p := model.ChartPoint{Name: g.Key, Y: g.Count, URL: link([]string{g.Key})}
		if g.Key != model.Unassigned {
			p.AssetName = g.Key
		}
		series.Data = append(series.Data, p)
	}
	return &model.DrilldownChart{
		Data:      []model.ChartPoint{{Name: "Battery Disconnects", Y: len(events), Drilldown: batteryDrilldownID}},
		Drilldown: []model.ChartSeries{series},
	}
}

// dominantOwners maps each asset to the owner with the most events on it.
func dominantOwners(events []model.Event) map[string]string {
	counts := make(map[string]map[string]int)
	for _, e := range events {
		asset, _ := aggregate.Asset.Key(e)
		if counts[asset] == nil {
			counts[asset] = make(map[string]int)
		}
		counts[asset][e.Owner]++
	}

	owners := make(map[string]string, len(counts))
	for asset, byOwner := range counts {
		best, bestCount := "", -1
		for owner, n := range byOwner {
			if n > bestCount || (n == bestCount && owner < best) {
				best, bestCount = owner, n
			}
		}
		owners[asset] = best
	}
	return owners
}

func decorateAsset(p *model.ChartPoint, asset string, owners map[string]string) {
	if asset != model.Unassigned {
		p.AssetName = asset
	}
	p.Owner = owners[asset]
}

func appliedFilter(spec model.FilterSpec) model.AppliedFilter {
	applied := model.AppliedFilter{
		Owner:     spec.Owner,
		Entity:    spec.Entity,
		EventType: spec.EventType,
	}
	if !spec.StartDate.IsZero() {
		applied.StartDate = spec.StartDate.Format(model.DateLayout)
	}
	if !spec.EndDate.IsZero() {
		applied.EndDate = spec.EndDate.Format(model.DateLayout)
	}
	if !spec.WeekStart.IsZero() {
		applied.Week = model.ISOWeek(spec.WeekStart)
	}
	return applied
}

// fixedParams carries the scope of a dashboard into its click-through links
// so the events page re-selects the same subset.
func fixedParams(spec model.FilterSpec) url.Values {
	values := url.Values{}
	applied := appliedFilter(spec)
	if applied.StartDate != "" {
		values.Set("start_date", applied.StartDate)
	}
	if applied.EndDate != "" {
		values.Set("end_date", applied.EndDate)
	}
	if spec.Owner != "" {
		values.Set("owner", spec.Owner)
	}
	if spec.EventType != "" {
		values.Set("event_type", spec.EventType)
	}
	return values
}

func head(events []model.Event, n int) []model.Event {
	if n > 0 && len(events) > n {
		return events[:n]
	}
	return events
}

func (s *ReportService) observe(kind model.ReportKind, operation string, started time.Time, err *error) {
	s.metrics.ObserveReport(string(kind), operation, started, *err)
}
