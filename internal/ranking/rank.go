package ranking

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/onnwee/nearcare/internal/dataset"
	"github.com/onnwee/nearcare/internal/geo"
)

// Origin is the point distances are measured from.
type Origin struct {
	Latitude  float64
	Longitude float64
}

// Result is one ranked provider.
type Result struct {
	Rank              int            `json:"rank"`
	Name              string         `json:"name"`
	Gender            dataset.Gender `json:"gender"`
	YearsOfExperience int            `json:"years_of_experience"`
	Organization      string         `json:"organization"`
	Address           string         `json:"address"`
	Phone             string         `json:"phone"`
	DistanceMiles     float64        `json:"distance_miles"`
	Score             int            `json:"score"`
}

// Rank orders candidates for origin. It never modifies candidates and
// returns a new slice, empty when nothing qualifies. Candidates without
// coordinates cannot be measured and are skipped.
func Rank(candidates []dataset.Provider, origin Origin, opts Options) ([]Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	priority := opts.Priority
	if len(priority) == 0 {
		priority = DefaultPriority()
	}
	gender, _ := ParseGender(string(opts.Gender))

	results := make([]Result, 0, len(candidates))
	for _, p := range candidates {
		if !p.HasLocation() {
			continue
		}
		d := geo.DistanceMiles(origin.Latitude, origin.Longitude, p.Latitude, p.Longitude)
		results = append(results, Result{
			Name:              p.Name,
			Gender:            p.Gender,
			YearsOfExperience: p.YearsOfExperience,
			Organization:      p.Organization,
			Address:           p.Address,
			Phone:             dataset.NormalizePhone(p.Phone),
			DistanceMiles:     roundMiles(d),
			Score:             p.Score,
		})
	}

	if opts.Unique {
		results = uniqueByName(results)
	}

	results = slices.DeleteFunc(results, func(r Result) bool {
		return !gender.matches(r.Gender)
	})

	slices.SortStableFunc(results, func(a, b Result) int {
		for _, k := range priority {
			if c := compareBy(k, a, b); c != 0 {
				return c
			}
		}
		return 0
	})

	results = slices.DeleteFunc(results, func(r Result) bool {
		return r.DistanceMiles > opts.MaxDistance
	})
	if len(results) > opts.TopN {
		results = results[:opts.TopN]
	}

	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

// compareBy orders two results by a single key: higher score first, shorter
// distance first, more experience first.
func compareBy(k Key, a, b Result) int {
	switch k {
	case KeyScore:
		return cmp.Compare(b.Score, a.Score)
	case KeyDistance:
		return cmp.Compare(a.DistanceMiles, b.DistanceMiles)
	case KeyExperience:
		return cmp.Compare(b.YearsOfExperience, a.YearsOfExperience)
	default:
		return 0
	}
}

// uniqueByName sorts by name and keeps the first record of each name.
func uniqueByName(results []Result) []Result {
	slices.SortStableFunc(results, func(a, b Result) int {
		return strings.Compare(a.Name, b.Name)
	})
	return slices.CompactFunc(results, func(a, b Result) bool {
		return a.Name == b.Name
	})
}

// roundMiles rounds to one decimal place, halves to even.
func roundMiles(d float64) float64 {
	return math.RoundToEven(d*10) / 10
}
