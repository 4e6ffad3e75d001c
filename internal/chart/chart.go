// Package chart projects aggregation trees onto the series and drilldown
// arrays the dashboard charts consume.
package chart

import (
	"sort"
	"strconv"

	"fleet-analytics-service/internal/model"
)

// Options customise the points of a projection. keys are the node keys
// from the top level down to the point itself.
type Options struct {
	Link     func(keys []string) string
	Decorate func(keys []string, point *model.ChartPoint)
}

// Drilldown turns a tree into a top level series plus one drilldown series
// per internal node, referenced by the node id.
func Drilldown(root *model.AggregationNode, opts Options) model.DrilldownChart {
	chart := model.DrilldownChart{
		Data:      make([]model.ChartPoint, 0, len(root.Children)),
		Drilldown: make([]model.ChartSeries, 0),
	}
	for _, child := range root.Children {
		chart.Data = append(chart.Data, point(child, []string{child.Key}, opts))
	}
	for _, child := range root.Children {
		chart.Drilldown = appendSeries(chart.Drilldown, child, []string{child.Key}, opts)
	}
	return chart
}

func appendSeries(out []model.ChartSeries, node *model.AggregationNode, keys []string, opts Options) []model.ChartSeries {
	if len(node.Children) == 0 {
		return out
	}
	series := model.ChartSeries{ID: node.ID, Name: node.Key, Data: make([]model.ChartPoint, 0, len(node.Children))}
	for _, child := range node.Children {
		series.Data = append(series.Data, point(child, extend(keys, child.Key), opts))
	}
	out = append(out, series)
	for _, child := range node.Children {
		out = appendSeries(out, child, extend(keys, child.Key), opts)
	}
	return out
}

func point(node *model.AggregationNode, keys []string, opts Options) model.ChartPoint {
	p := model.ChartPoint{Name: node.Key, Y: node.Count}
	if len(node.Children) > 0 {
		p.Drilldown = node.ID
	} else if opts.Link != nil {
		p.URL = opts.Link(keys)
	}
	if opts.Decorate != nil {
		opts.Decorate(keys, &p)
	}
	return p
}

// Stacked projects a tree of bucket -> stack -> detail. Every bucket in
// categories becomes a column; each stack key becomes a series with one
// point per column, zero where the bucket has no events of that stack.
// Stacks are ordered by total count descending, then by key.
func Stacked(root *model.AggregationNode, categories []string, opts Options) model.StackedChart {
	chart := model.StackedChart{
		Categories: categories,
		Series:     make([]model.ChartSeries, 0),
		Drilldown:  make([]model.ChartSeries, 0),
	}

	totals := make(map[string]int)
	for _, bucket := range root.Children {
		for _, stack := range bucket.Children {
			totals[stack.Key] += stack.Count
		}
	}
	stacks := make([]string, 0, len(totals))
	for key := range totals {
		stacks = append(stacks, key)
	}
	sort.Slice(stacks, func(i, j int) bool {
		if totals[stacks[i]] != totals[stacks[j]] {
			return totals[stacks[i]] > totals[stacks[j]]
		}
		return stacks[i] < stacks[j]
	})

	for _, stackKey := range stacks {
		series := model.ChartSeries{Name: stackKey, Data: make([]model.ChartPoint, 0, len(categories))}
		for _, category := range categories {
			p := model.ChartPoint{Name: category, EventType: stackKey}
			if bucket := root.Child(category); bucket != nil {
				if stack := bucket.Child(stackKey); stack != nil {
					p = point(stack, []string{category, stackKey}, opts)
					p.EventType = stackKey
					chart.Drilldown = appendSeries(chart.Drilldown, stack, []string{category, stackKey}, opts)
				}
			}
			series.Data = append(series.Data, p)
		}
		chart.Series = append(chart.Series, series)
	}
	return chart
}

// Hours are the 24 hour-of-day categories.
func Hours() []string {
	hours := make([]string, 24)
	for h := range hours {
		hours[h] = strconv.Itoa(h)
	}
	return hours
}

func extend(keys []string, key string) []string {
	out := make([]string, len(keys)+1)
	copy(out, keys)
	out[len(keys)] = key
	return out
}
