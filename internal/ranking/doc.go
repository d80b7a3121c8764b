// Package ranking orders candidate providers for a search origin.
//
// Basic Usage:
//
//	priority, err := ranking.ParsePriority([]string{"distance", "score"})
//	if err != nil {
//		return err
//	}
//	opts := ranking.DefaultOptions()
//	opts.Priority = priority
//	opts.TopN = 3
//	opts.MaxDistance = 50
//
//	results, err := ranking.Rank(candidates, ranking.Origin{Latitude: lat, Longitude: lng}, opts)
//
// Pipeline:
//
// Rank computes the geodesic distance of every candidate, projects it to a
// Result, optionally keeps one record per provider name, applies the gender
// filter, sorts by the priority keys, drops results beyond MaxDistance and
// keeps the first TopN. Results are numbered from 1.
//
// Sort Keys:
//
// Score and experience sort descending, distance ascending. Keys left out of
// the priority list do not take part in the sort, and equal records keep
// their relative order.
package ranking
