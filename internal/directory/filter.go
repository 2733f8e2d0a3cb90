package directory

import "strings"

// matchesTerm expects term already lower-cased and trimmed.
func matchesTerm(e Entity, term string) bool {
	if term == "" {
		return true
	}
	if containsFold(e.Name, term) || containsFold(e.Label, term) || containsFold(e.Description, term) {
		return true
	}
	for _, c := range e.Categories {
		if containsFold(c, term) {
			return true
		}
	}
	return false
}

func matchesCategory(e Entity, category string) bool {
	if isWildcard(category) {
		return true
	}
	for _, c := range e.Categories {
		if c == category {
			return true
		}
	}
	return false
}

func matchesCity(e Entity, city string) bool {
	if isWildcard(city) {
		return true
	}
	return e.Label == city
}

func isWildcard(v string) bool {
	return v == "" || v == Wildcard
}

func containsFold(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}
