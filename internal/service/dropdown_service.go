package service

import (
	"context"
	"sort"
	"time"

	"fleet-analytics-service/internal/filter"
	"fleet-analytics-service/internal/model"
)

// Dropdowns returns the distinct owners, entities and event types offered
// as filter choices. The vehicle entity list is narrowed by owner. The
// unnarrowed lists are cached once per report kind; narrowing happens on
// every call, so arbitrary owner strings never add cache entries.
func (s *ReportService) Dropdowns(ctx context.Context, kind model.ReportKind, owner string) (dropdowns model.Dropdowns, err error) {
	defer s.observe(kind, "dropdowns", time.Now(), &err)

	if !kind.Valid() {
		return model.Dropdowns{}, ErrInvalidFilter
	}

	var src model.DropdownSource
	if s.dropdowns == nil {
		src, err = s.loadDropdownSource(ctx, kind)
	} else {
		src, err = s.dropdowns.GetOrLoad(ctx, string(kind), func(ctx context.Context) (model.DropdownSource, error) {
			return s.loadDropdownSource(ctx, kind)
		})
	}
	if err != nil {
		return model.Dropdowns{}, err
	}
	return narrow(src, kind, owner), nil
}

// InvalidateDropdowns drops every cached dropdown list.
func (s *ReportService) InvalidateDropdowns() {
	if s.dropdowns != nil {
		s.dropdowns.InvalidateAll()
	}
}

func (s *ReportService) loadDropdownSource(ctx context.Context, kind model.ReportKind) (model.DropdownSource, error) {
	var src model.DropdownSource
	var err error

	if src.Owners, err = s.events.Distinct(ctx, kind, filter.FieldOwner, nil); err != nil {
		return model.DropdownSource{}, err
	}
	if src.EventTypes, err = s.events.Distinct(ctx, kind, filter.FieldEventType, nil); err != nil {
		return model.DropdownSource{}, err
	}

	switch kind {
	case model.ReportDriver:
		src.Entities, err = s.events.Distinct(ctx, kind, filter.FieldDriver,
			filter.Conditions{filter.Eq(filter.FieldCategory, model.CategoryDriver)})
	default:
		if src.Entities, err = s.events.Distinct(ctx, kind, filter.FieldAsset, nil); err != nil {
			return model.DropdownSource{}, err
		}
		src.OwnedEntities, err = s.events.OwnedEntities(ctx, kind, filter.FieldAsset, nil)
	}
	if err != nil {
		return model.DropdownSource{}, err
	}
	return src, nil
}

func narrow(src model.DropdownSource, kind model.ReportKind, owner string) model.Dropdowns {
	out := model.Dropdowns{
		Owners:     nonNil(src.Owners),
		Entities:   nonNil(src.Entities),
		EventTypes: nonNil(src.EventTypes),
	}
	if kind != model.ReportVehicle || owner == "" {
		return out
	}

	match := filter.ContainsFold(filter.FieldOwner, owner)
	seen := make(map[string]struct{})
	entities := make([]string, 0)
	for _, pair := range src.OwnedEntities {
		if _, ok := seen[pair.Entity]; ok {
			continue
		}
		if match.Match(model.Event{Owner: pair.Owner}) {
			seen[pair.Entity] = struct{}{}
			entities = append(entities, pair.Entity)
		}
	}
	sort.Strings(entities)
	out.Entities = entities
	return out
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
