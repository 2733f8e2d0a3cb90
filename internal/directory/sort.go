package directory

import (
	"sort"
	"strings"
)

// SortKey selects the ordering of a listing.
type SortKey string

const (
	SortRating     SortKey = "rating"
	SortReviews    SortKey = "reviews"
	SortPrice      SortKey = "price"
	SortPriceDesc  SortKey = "price-desc"
	SortExperience SortKey = "experience"
	SortDistance   SortKey = "distance"
	SortName       SortKey = "name"
)

// ParseSortKey maps a raw key to a SortKey. "price-asc" is accepted as an
// alias of price; anything unknown falls back to rating.
func ParseSortKey(raw string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case SortRating, SortReviews, SortPrice, SortPriceDesc, SortExperience, SortDistance, SortName:
		return k
	case "price-asc":
		return SortPrice
	default:
		return SortRating
	}
}

type lessFunc func(a, b RankedResult) bool

var comparators = map[SortKey]lessFunc{
	SortRating:     func(a, b RankedResult) bool { return a.Entity.Rating > b.Entity.Rating },
	SortReviews:    func(a, b RankedResult) bool { return a.Entity.ReviewCount > b.Entity.ReviewCount },
	SortExperience: func(a, b RankedResult) bool { return a.Entity.Experience > b.Entity.Experience },
	SortName: func(a, b RankedResult) bool {
		return strings.ToLower(a.Entity.Name) < strings.ToLower(b.Entity.Name)
	},
	SortPrice: func(a, b RankedResult) bool {
		return missingLast(a.Entity.Price, b.Entity.Price, func(x, y int64) bool { return x < y })
	},
	SortPriceDesc: func(a, b RankedResult) bool {
		return missingLast(a.Entity.Price, b.Entity.Price, func(x, y int64) bool { return x > y })
	},
	SortDistance: func(a, b RankedResult) bool {
		return missingLast(a.Distance, b.Distance, func(x, y float64) bool { return x < y })
	},
}

func sortResults(results []RankedResult, key SortKey) {
	less, ok := comparators[key]
	if !ok {
		less = comparators[SortRating]
	}
	sort.SliceStable(results, func(i, j int) bool { return less(results[i], results[j]) })
}

// missingLast orders present values by less and puts nil values after them.
func missingLast[T int64 | float64](a, b *T, less func(x, y T) bool) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return less(*a, *b)
	}
}
