// Package scoring turns a driver's events into a 0-100 score using a table
// of per-event-type penalties.
package scoring

import "fleet-analytics-service/internal/model"

const (
	MaxScore = 100
	MinScore = 0
)

// Rule weighs one event type. Cost is informational and does not affect
// the score.
type Rule struct {
	PenaltyPerOccurrence int `json:"penalty"`
	MaxPenalty           int `json:"max_penalty"`
	Cost                 int `json:"cost"`
}

// Table maps event types to their rule. Types missing from the table do
// not affect the score.
type Table map[string]Rule

func DefaultTable() Table {
	return Table{
		"Excessive Idling":   {PenaltyPerOccurrence: 10, MaxPenalty: 100, Cost: 10},
		"Harsh Acceleration": {PenaltyPerOccurrence: 1, MaxPenalty: 100, Cost: 1},
		"Harsh Braking":      {PenaltyPerOccurrence: 1, MaxPenalty: 100, Cost: 1},
		"Harsh Cornering":    {PenaltyPerOccurrence: 1, MaxPenalty: 100, Cost: 1},
		"Overspeeding":       {PenaltyPerOccurrence: 1, MaxPenalty: 100, Cost: 1},
	}
}

// Penalty is the capped penalty for count occurrences.
func (r Rule) Penalty(count int) int {
	p := r.PenaltyPerOccurrence * count
	if p > r.MaxPenalty {
		return r.MaxPenalty
	}
	return p
}

// Score counts events per type and subtracts each configured type's capped
// penalty from MaxScore. When selected is set only that type's penalty is
// subtracted; the breakdown still lists every configured type. The result
// depends only on the multiset of event types.
func Score(table Table, events []model.Event, selected string) model.ScoreResult {
	counts := make(map[string]int)
	for _, e := range events {
		if e.EventType != "" {
			counts[e.EventType]++
		}
	}
	return ScoreCounts(table, counts, selected)
}

// ScoreCounts is Score over precomputed per-type counts, for callers that
// let the store do the counting.
func ScoreCounts(table Table, counts map[string]int, selected string) model.ScoreResult {
	result := model.ScoreResult{
		Score:             MaxScore,
		SelectedEventType: selected,
		Breakdown:         make(map[string]model.ScoreDetail, len(table)),
	}
	for eventType, rule := range table {
		count := counts[eventType]
		penalty := rule.Penalty(count)
		if selected == "" || selected == eventType {
			result.Score -= penalty
		}
		result.Breakdown[eventType] = model.ScoreDetail{Count: count, Penalty: penalty}
	}
	if result.Score < MinScore {
		result.Score = MinScore
	}
	if result.Score > MaxScore {
		result.Score = MaxScore
	}
	return result
}
