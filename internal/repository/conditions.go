package repository

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fleet-analytics-service/internal/filter"
)

var ErrUnsupportedCondition = errors.New("unsupported condition")

// eventColumns maps filter fields onto the event table columns. The names
// are quoted by the dialect, so "Event Types" keeps its space.
var eventColumns = map[filter.Field]string{
	filter.FieldOwner:     "OwnerName",
	filter.FieldCategory:  "Class",
	filter.FieldEventType: "Event Types",
	filter.FieldDriver:    "LinkedName_1",
	filter.FieldAsset:     "AssetName",
	filter.FieldAlert:     "AlertName",
	filter.FieldTimestamp: "EventDate",
}

func column(table string, field filter.Field) (clause.Column, error) {
	name, ok := eventColumns[field]
	if !ok {
		return clause.Column{}, fmt.Errorf("%w: field %q", ErrUnsupportedCondition, field)
	}
	return clause.Column{Table: table, Name: name}, nil
}

// applyConditions adds one WHERE per condition. Every value is bound as a
// parameter; nothing from the request is spliced into SQL text.
func applyConditions(query *gorm.DB, table string, conds filter.Conditions) (*gorm.DB, error) {
	for _, c := range conds {
		sql, vars, err := conditionSQL(table, c)
		if err != nil {
			return nil, err
		}
		query = query.Where(sql, vars...)
	}
	return query, nil
}

func conditionSQL(table string, c filter.Condition) (string, []interface{}, error) {
	if c.Op == filter.OpAny {
		if len(c.Any) == 0 {
			return "1 = 0", nil, nil
		}
		parts := make([]string, 0, len(c.Any))
		var vars []interface{}
		for _, sub := range c.Any {
			sql, subVars, err := conditionSQL(table, sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			vars = append(vars, subVars...)
		}
		return "(" + strings.Join(parts, " OR ") + ")", vars, nil
	}

	col, err := column(table, c.Field)
	if err != nil {
		return "", nil, err
	}

	switch c.Op {
	case filter.OpEq:
		return "? = ?", []interface{}{col, c.Value}, nil
	case filter.OpNotEq:
		return "? IS NOT NULL AND ? <> '' AND ? <> ?", []interface{}{col, col, col, c.Value}, nil
	case filter.OpContainsFold:
		return "LOWER(?) LIKE ? ESCAPE '\\'", []interface{}{col, "%" + escapeLike(strings.ToLower(c.Value)) + "%"}, nil
	case filter.OpIn:
		if len(c.Values) == 0 {
			return "1 = 0", nil, nil
		}
		return "? IN ?", []interface{}{col, c.Values}, nil
	case filter.OpPresent:
		return "? IS NOT NULL AND ? <> ''", []interface{}{col, col}, nil
	case filter.OpFrom:
		return "? >= ?", []interface{}{col, c.Time}, nil
	case filter.OpBefore:
		return "? < ?", []interface{}{col, c.Time}, nil
	default:
		return "", nil, fmt.Errorf("%w: op %d", ErrUnsupportedCondition, c.Op)
	}
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
