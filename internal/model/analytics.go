package model

// KeyCount is one group of an aggregation.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// AggregationNode is one level of a drill-down tree. ID joins the keys of
// the node and its ancestors and is unique within one tree.
type AggregationNode struct {
	Key      string             `json:"key"`
	ID       string             `json:"id"`
	Count    int                `json:"count"`
	Children []*AggregationNode `json:"children,omitempty"`
}

func (n *AggregationNode) Child(key string) *AggregationNode {
	for _, c := range n.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

func (n *AggregationNode) ChildSum() int {
	total := 0
	for _, c := range n.Children {
		total += c.Count
	}
	return total
}

// Walk visits n and every descendant depth first.
func (n *AggregationNode) Walk(fn func(node *AggregationNode, depth int)) {
	n.walk(fn, 0)
}

func (n *AggregationNode) walk(fn func(*AggregationNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

type ScoreDetail struct {
	Count   int `json:"count"`
	Penalty int `json:"penalty"`
}

type ScoreResult struct {
	Score             int                    `json:"score"`
	SelectedEventType string                 `json:"selected_event_type,omitempty"`
	Breakdown         map[string]ScoreDetail `json:"breakdown"`
}

type ChartPoint struct {
	Name      string `json:"name"`
	Y         int    `json:"y"`
	Drilldown string `json:"drilldown,omitempty"`
	URL       string `json:"url,omitempty"`
	AssetName string `json:"asset_name,omitempty"`
	Owner     string `json:"owner,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

type ChartSeries struct {
	ID   string       `json:"id,omitempty"`
	Name string       `json:"name"`
	Data []ChartPoint `json:"data"`
}

// DrilldownChart is a top level series plus every drill-down series it
// references by id.
type DrilldownChart struct {
	Data      []ChartPoint  `json:"data"`
	Drilldown []ChartSeries `json:"drilldown"`
}

// StackedChart has one series per stack and one category per column.
type StackedChart struct {
	Categories []string      `json:"categories"`
	Series     []ChartSeries `json:"series"`
	Drilldown  []ChartSeries `json:"drilldown"`
}

type EntityBreakdown struct {
	Entity    EntityRef  `json:"entity"`
	Total     int        `json:"total"`
	Breakdown []KeyCount `json:"breakdown"`
	URL       string     `json:"url,omitempty"`
}

type EntityCount struct {
	Entity EntityRef `json:"entity"`
	Count  int       `json:"count"`
	URL    string    `json:"url,omitempty"`
}

type EventTypeTotal struct {
	EventType string        `json:"event_type"`
	Count     int           `json:"count"`
	Entities  []EntityCount `json:"entities"`
}

type Dropdowns struct {
	Owners     []string `json:"owners"`
	Entities   []string `json:"entities"`
	EventTypes []string `json:"event_types"`
}

// OwnedEntity is one distinct (owner, entity) pair.
type OwnedEntity struct {
	Owner  string
	Entity string
}

// DropdownSource holds the unnarrowed values dropdowns are built from.
// OwnedEntities is only filled for vehicle reports.
type DropdownSource struct {
	Owners        []string
	Entities      []string
	EventTypes    []string
	OwnedEntities []OwnedEntity
}

// AppliedFilter echoes the effective filter, defaults included.
type AppliedFilter struct {
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Owner     string    `json:"owner,omitempty"`
	Entity    EntityRef `json:"entity"`
	EventType string    `json:"event_type,omitempty"`
	Week      string    `json:"week,omitempty"`
}

type Dashboard struct {
	Kind            ReportKind        `json:"kind"`
	Filter          AppliedFilter     `json:"filter"`
	Events          []Event           `json:"events"`
	Dropdowns       Dropdowns         `json:"dropdowns"`
	Weekly          DrilldownChart    `json:"weekly"`
	Hourly          StackedChart      `json:"hourly"`
	Owners          DrilldownChart    `json:"owners"`
	EntityTable     []EntityBreakdown `json:"entity_table"`
	EventTypeTotals []EventTypeTotal  `json:"event_type_totals"`
	Battery         *DrilldownChart   `json:"battery,omitempty"`
}

type EventsPage struct {
	Kind      ReportKind   `json:"kind"`
	Entity    EntityRef    `json:"entity"`
	Week      string       `json:"week,omitempty"`
	EventType string       `json:"event_type,omitempty"`
	Total     int          `json:"total"`
	Events    []Event      `json:"events"`
	Score     *ScoreResult `json:"score,omitempty"`
}
