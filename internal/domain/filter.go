package domain

import (
	"slices"
	"strings"

	"github.com/vedran77/geev/pkg/geo"
)

// Area restricts results to a radius around a point.
type Area struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

// Filter is an ephemeral query over the item collection. The zero value
// matches every item.
type Filter struct {
	Category    *Category   `json:"category,omitempty"`
	Conditions  []Condition `json:"conditions,omitempty"`
	Search      string      `json:"search,omitempty"`
	Near        *Area       `json:"near,omitempty"`
	MaxDistance *float64    `json:"max_distance,omitempty"`
	IsUrgent    *bool       `json:"is_urgent,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// Merge overlays the non-empty fields of partial onto f.
func (f Filter) Merge(partial Filter) Filter {
	if partial.Category != nil {
		c := *partial.Category
		f.Category = &c
	}
	if partial.Conditions != nil {
		f.Conditions = slices.Clone(partial.Conditions)
	}
	if partial.Search != "" {
		f.Search = partial.Search
	}
	if partial.Near != nil {
		a := *partial.Near
		f.Near = &a
	}
	if partial.MaxDistance != nil {
		f.MaxDistance = cloneFloat(partial.MaxDistance)
	}
	if partial.IsUrgent != nil {
		u := *partial.IsUrgent
		f.IsUrgent = &u
	}
	if partial.Tags != nil {
		f.Tags = slices.Clone(partial.Tags)
	}
	return f
}

func (f Filter) Clone() Filter {
	return Filter{}.Merge(f)
}

// Matches reports whether the item satisfies every active predicate.
func (f Filter) Matches(item *Item) bool {
	if f.Category != nil && item.Category != *f.Category {
		return false
	}
	if f.Search != "" && !MatchesSearch(item, f.Search) {
		return false
	}
	if len(f.Conditions) > 0 && !slices.Contains(f.Conditions, item.Condition) {
		return false
	}
	if f.Near != nil && f.Near.RadiusKm > 0 {
		d := geo.DistanceKm(
			geo.Point{Latitude: f.Near.Latitude, Longitude: f.Near.Longitude},
			geo.Point{Latitude: item.Location.Latitude, Longitude: item.Location.Longitude},
		)
		if d > f.Near.RadiusKm {
			return false
		}
	}
	// Items without a known distance are kept.
	if f.MaxDistance != nil && item.Location.Distance != nil && *item.Location.Distance > *f.MaxDistance {
		return false
	}
	if f.IsUrgent != nil && item.IsUrgent != *f.IsUrgent {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(item.Tags, func(tag string) bool {
		return slices.Contains(f.Tags, tag)
	}) {
		return false
	}
	return true
}

// MatchesSearch is a case-insensitive substring match on the title, the
// description, or any tag.
func MatchesSearch(item *Item, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(item.Title), q) ||
		strings.Contains(strings.ToLower(item.Description), q) {
		return true
	}
	return slices.ContainsFunc(item.Tags, func(tag string) bool {
		return strings.Contains(strings.ToLower(tag), q)
	})
}

// FilterItems returns copies of the matching items, in input order.
func FilterItems(items []*Item, f Filter) []*Item {
	out := make([]*Item, 0, len(items))
	for _, item := range items {
		if f.Matches(item) {
			out = append(out, item.Clone())
		}
	}
	return out
}
