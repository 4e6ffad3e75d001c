package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
)

// MemoryEventStore serves events from memory with the same ordering and
// null handling as EventRepository.
type MemoryEventStore struct {
	mu     sync.RWMutex
	events map[model.ReportKind][]model.Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{events: make(map[model.ReportKind][]model.Event)}
}

// Add stores events with their timestamps converted to UTC, as the
// database store returns them.
func (s *MemoryEventStore) Add(kind model.ReportKind, events ...model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if !e.Timestamp.IsZero() {
			e.Timestamp = e.Timestamp.UTC()
		}
		s.events[kind] = append(s.events[kind], e)
	}
}

func (s *MemoryEventStore) Events(_ context.Context, kind model.ReportKind, conds filter.Conditions, limit int) ([]model.Event, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown report kind %q", kind)
	}

	s.mu.RLock()
	out := make([]model.Event, 0)
	for _, e := range s.events[kind] {
		if !e.Timestamp.IsZero() && conds.Match(e) {
			out = append(out, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryEventStore) Distinct(ctx context.Context, kind model.ReportKind, field filter.Field, conds filter.Conditions) ([]string, error) {
	events, err := s.Events(ctx, kind, conds.And(filter.Present(field)), 0)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	values := make([]string, 0)
	for _, e := range events {
		v := filter.Value(e, field)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

func (s *MemoryEventStore) CountBy(ctx context.Context, kind model.ReportKind, field filter.Field, conds filter.Conditions) ([]model.KeyCount, error) {
	events, err := s.Events(ctx, kind, conds, 0)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int)
	for _, e := range events {
		totals[filter.Value(e, field)]++
	}
	return sortedCounts(totals), nil
}

func (s *MemoryEventStore) OwnedEntities(ctx context.Context, kind model.ReportKind, entity filter.Field, conds filter.Conditions) ([]model.OwnedEntity, error) {
	events, err := s.Events(ctx, kind, conds.And(filter.Present(filter.FieldOwner), filter.Present(entity)), 0)
	if err != nil {
		return nil, err
	}

	seen := make(map[model.OwnedEntity]struct{})
	pairs := make([]model.OwnedEntity, 0)
	for _, e := range events {
		pair := model.OwnedEntity{Owner: e.Owner, Entity: filter.Value(e, entity)}
		if _, ok := seen[pair]; ok {
			continue
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	sortPairs(pairs)
	return pairs, nil
}
