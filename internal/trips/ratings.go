package trips

import (
	"sort"

	"fleet-analytics-service/internal/model"
)

// DailyRatings sums the rating feed per asset and UTC day. The score of a
// day is distance per unit of cost, or 0 when nothing was spent.
func DailyRatings(records []model.RatingRecord) []model.AssetDailyRating {
	type key struct{ asset, date string }
	index := make(map[key]int)
	var out []model.AssetDailyRating

	for _, r := range records {
		k := key{asset: r.AssetName, date: r.DateStart.UTC().Format(model.DateLayout)}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, model.AssetDailyRating{AssetName: k.asset, Date: k.date})
		}
		day := &out[i]
		day.Distance += r.Distance
		day.Cost += r.Cost
		day.Over100Kmh += r.Over100Kmh
		day.ExcessiveIdle += r.ExcessiveIdle
		day.SpeedingTrip += r.SpeedingTrip
		day.Brake += r.Brake
		day.Accel += r.Accel
		day.Corner += r.Corner
		day.GForce += r.GForce
	}

	for i := range out {
		if out[i].Cost != 0 {
			out[i].Score = out[i].Distance / out[i].Cost
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssetName != out[j].AssetName {
			return out[i].AssetName < out[j].AssetName
		}
		return out[i].Date < out[j].Date
	})
	if out == nil {
		out = []model.AssetDailyRating{}
	}
	return out
}
