package chart

import (
	"net/url"

	"fleet-analytics-service/internal/aggregate"
	"fleet-analytics-service/internal/model"
)

// Linker builds click-through URLs that re-select the events behind a
// chart segment.
type Linker struct {
	Base string
	// Params names the query parameter each dimension's key is sent as.
	// Dimensions without a parameter are left out of the link.
	Params map[aggregate.Dimension]string
	// PathDim, when set, puts that dimension's key in the path after Base.
	PathDim aggregate.Dimension
	// Fixed are copied into every link, for example the applied dates.
	Fixed url.Values
}

// For returns a link function for trees built along path.
func (l Linker) For(path []aggregate.Dimension) func(keys []string) string {
	return func(keys []string) string {
		query := url.Values{}
		for k, v := range l.Fixed {
			query[k] = append([]string(nil), v...)
		}

		target := l.Base
		for i, key := range keys {
			if i >= len(path) {
				break
			}
			dim := path[i]
			if key == model.Unassigned && (dim == aggregate.Asset || dim == aggregate.Owner) {
				return ""
			}
			if l.PathDim != "" && dim == l.PathDim {
				target += "/" + url.PathEscape(key)
				continue
			}
			if name, ok := l.Params[dim]; ok {
				query.Set(name, key)
			}
		}
		if encoded := query.Encode(); encoded != "" {
			target += "?" + encoded
		}
		return target
	}
}
