// Package aggregate groups filtered events along dimensions and builds
// drill-down trees. Every function is pure and safe for concurrent use.
package aggregate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"fleet-analytics-service/internal/model"
)

// Delimiter joins ancestor keys into a drill-down id.
const Delimiter = "_"

var ErrAmbiguousKey = errors.New("ambiguous drill-down key")

// DrillID joins keys into the identifier the presentation layer uses to
// link a chart segment to its drill-down series.
func DrillID(keys ...string) string {
	return strings.Join(keys, Delimiter)
}

// TopN orders groups by count descending, ties by the dimension's natural
// key order, and keeps the first n. n <= 0 keeps every group.
func TopN(events []model.Event, dim Dimension, n int) []model.KeyCount {
	groups := tally(events, dim)
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return dim.keyLess(groups[i].Key, groups[j].Key)
	})
	if n > 0 && len(groups) > n {
		groups = groups[:n]
	}
	return groups
}

// Group returns every group of dim: week and hour in chronological order,
// the rest by count descending.
func Group(events []model.Event, dim Dimension) []model.KeyCount {
	if !dim.chronological() {
		return TopN(events, dim, 0)
	}
	groups := tally(events, dim)
	sort.Slice(groups, func(i, j int) bool {
		return dim.keyLess(groups[i].Key, groups[j].Key)
	})
	return groups
}

// Drill regroups the events whose outer key is outerKey by inner.
func Drill(events []model.Event, outer, inner Dimension, outerKey string) []model.KeyCount {
	return Group(Subset(events, outer, outerKey), inner)
}

// Subset keeps the events whose key on dim equals key.
func Subset(events []model.Event, dim Dimension, key string) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range events {
		if k, ok := dim.Key(e); ok && k == key {
			out = append(out, e)
		}
	}
	return out
}

// Total counts the events that have a key on dim.
func Total(events []model.Event, dim Dimension) int {
	total := 0
	for _, e := range events {
		if _, ok := dim.Key(e); ok {
			total++
		}
	}
	return total
}

// BuildHierarchy groups events by path[0], then each group by path[1] and
// so on. limits[i] > 0 keeps only the top limits[i] groups at depth i;
// missing or non-positive limits keep every group. The root carries the
// number of events with a key on path[0].
func BuildHierarchy(events []model.Event, path []Dimension, limits []int) (*model.AggregationNode, error) {
	root := &model.AggregationNode{Count: len(events)}
	if len(path) == 0 {
		return root, nil
	}
	for _, dim := range path {
		if !dim.Valid() {
			return nil, fmt.Errorf("unknown dimension %q", dim)
		}
	}

	root.Count = Total(events, path[0])
	seen := make(map[string]struct{})
	if err := build(root, events, path, limits, seen); err != nil {
		return nil, err
	}
	return root, nil
}

func build(parent *model.AggregationNode, events []model.Event, path []Dimension, limits []int, seen map[string]struct{}) error {
	dim := path[0]

	var groups []model.KeyCount
	if limit := limitAt(limits, 0); limit > 0 {
		groups = TopN(events, dim, limit)
	} else {
		groups = Group(events, dim)
	}

	var buckets map[string][]model.Event
	if len(path) > 1 {
		buckets = partition(events, dim)
	}

	parent.Children = make([]*model.AggregationNode, 0, len(groups))
	for _, g := range groups {
		id := g.Key
		if parent.ID != "" {
			id = DrillID(parent.ID, g.Key)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q", ErrAmbiguousKey, id)
		}
		seen[id] = struct{}{}

		child := &model.AggregationNode{Key: g.Key, ID: id, Count: g.Count}
		if len(path) > 1 {
			var rest []int
			if len(limits) > 1 {
				rest = limits[1:]
			}
			if err := build(child, buckets[g.Key], path[1:], rest, seen); err != nil {
				return err
			}
		}
		parent.Children = append(parent.Children, child)
	}
	return nil
}

func limitAt(limits []int, i int) int {
	if i < len(limits) {
		return limits[i]
	}
	return 0
}

func tally(events []model.Event, dim Dimension) []model.KeyCount {
	index := make(map[string]int)
	groups := make([]model.KeyCount, 0)
	for _, e := range events {
		key, ok := dim.Key(e)
		if !ok {
			continue
		}
		if i, exists := index[key]; exists {
			groups[i].Count++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, model.KeyCount{Key: key, Count: 1})
	}
	return groups
}

func partition(events []model.Event, dim Dimension) map[string][]model.Event {
	buckets := make(map[string][]model.Event)
	for _, e := range events {
		if key, ok := dim.Key(e); ok {
			buckets[key] = append(buckets[key], e)
		}
	}
	return buckets
}
