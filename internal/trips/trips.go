// Package trips attributes events to trips and rolls the rating feed up
// per asset and day.
package trips

import (
	"sort"
	"strings"
	"time"

	"fleet-analytics-service/internal/model"
)

// Annotate counts, for every trip, the events of the trip's driver whose
// timestamp lies in [Start, End]. Exactly the types in eventTypes get a
// count, zero included; other types are not counted. Trips without a driver keep all-zero counts.
func Annotate(trips []model.Trip, events []model.Event, eventTypes []string) []model.AnnotatedTrip {
	byDriver := make(map[string][]model.Event)
	for _, e := range events {
		if e.DriverName == "" || e.EventType == "" || e.Timestamp.IsZero() {
			continue
		}
		byDriver[e.DriverName] = append(byDriver[e.DriverName], e)
	}
	for _, list := range byDriver {
		sort.Slice(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
	}

	out := make([]model.AnnotatedTrip, 0, len(trips))
	for _, trip := range trips {
		counts := make(map[string]int, len(eventTypes))
		for _, et := range eventTypes {
			counts[et] = 0
		}

		if hasDriver(trip.Driver) {
			list := byDriver[trip.Driver]
			first := sort.Search(len(list), func(i int) bool { return !list[i].Timestamp.Before(trip.Start) })
			for _, e := range list[first:] {
				if e.Timestamp.After(trip.End) {
					break
				}
				if _, ok := counts[e.EventType]; ok {
					counts[e.EventType]++
				}
			}
		}
		out = append(out, model.AnnotatedTrip{Trip: trip, EventCounts: counts})
	}
	return out
}

// Window is the smallest closed time range covering every trip.
func Window(trips []model.Trip) (from, to time.Time) {
	for i, trip := range trips {
		if i == 0 || trip.Start.Before(from) {
			from = trip.Start
		}
		if i == 0 || trip.End.After(to) {
			to = trip.End
		}
	}
	return from, to
}

// Drivers lists the distinct drivers of trips.
func Drivers(trips []model.Trip) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, trip := range trips {
		if !hasDriver(trip.Driver) {
			continue
		}
		if _, ok := seen[trip.Driver]; ok {
			continue
		}
		seen[trip.Driver] = struct{}{}
		out = append(out, trip.Driver)
	}
	sort.Strings(out)
	return out
}

func hasDriver(name string) bool {
	return name != "" && !strings.EqualFold(name, "nan")
}
