// Package directory filters and orders mechanic and product listings for the
// discovery pages. Everything here is a pure function of its inputs.
package directory

import "strings"

// Wildcard matches every category or city.
const Wildcard = "all"

// Coordinate is a point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lng"`
}

// Entity is a listable mechanic or product. Label carries the city for
// mechanics and the brand for products.
type Entity struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Label       string      `json:"label"`
	Categories  []string    `json:"categories"`
	Rating      float64     `json:"rating"`
	ReviewCount int         `json:"review_count"`
	Price       *int64      `json:"price,omitempty"`
	Experience  int         `json:"experience"`
	Coordinate  *Coordinate `json:"coordinate,omitempty"`
	Description string      `json:"description"`
}

// Query is the filter, sort and location input of a single listing view.
type Query struct {
	Term      string
	Category  string
	City      string
	Sort      SortKey
	Requester *Coordinate
}

// RankedResult pairs an entity with its distance from the requester in km.
// Distance is nil when either side has no coordinate.
type RankedResult struct {
	Entity   Entity   `json:"entity"`
	Distance *float64 `json:"distance_km,omitempty"`
}

// Rank annotates distances, filters and stable-sorts entities for q.
func Rank(entities []Entity, q Query) []RankedResult {
	term := strings.ToLower(strings.TrimSpace(q.Term))

	results := make([]RankedResult, 0, len(entities))
	for _, e := range entities {
		if !matchesTerm(e, term) || !matchesCategory(e, q.Category) || !matchesCity(e, q.City) {
			continue
		}
		results = append(results, RankedResult{
			Entity:   e,
			Distance: distanceKm(q.Requester, e.Coordinate),
		})
	}

	sortResults(results, ParseSortKey(string(q.Sort)))
	return results
}

// Categories returns the distinct category tags of entities in first-seen order.
func Categories(entities []Entity) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, e := range entities {
		for _, c := range e.Categories {
			if _, ok := seen[c]; ok || c == "" {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// Cities returns the distinct labels of entities in first-seen order.
func Cities(entities []Entity) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, e := range entities {
		if _, ok := seen[e.Label]; ok || e.Label == "" {
			continue
		}
		seen[e.Label] = struct{}{}
		out = append(out, e.Label)
	}
	return out
}
