package catalog

import "strings"

// All is the filter value that places no constraint on a field.
const All = "all"

// Filter returns the records whose name or type contains query
// (case-insensitive) and whose satellite and type equal the given values.
// Passing All for satellite or typ disables that constraint. The result keeps
// the input order and shares no backing array with records.
func Filter(records []Record, query, satellite, typ string) []Record {
	q := strings.ToLower(query)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !matchesQuery(r, q) {
			continue
		}
		if satellite != All && r.Satellite != satellite {
			continue
		}
		if typ != All && r.Type != typ {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchesQuery(r Record, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(r.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(r.Type), lowerQuery)
}

// Facets lists the values offered by the satellite and type dropdowns.
type Facets struct {
	Satellites []string `json:"satellites"`
	Types      []string `json:"types"`
}

// FacetsOf collects distinct satellites and types in first-seen order.
func FacetsOf(records []Record) Facets {
	f := Facets{Satellites: []string{}, Types: []string{}}
	seenSat := make(map[string]bool)
	seenType := make(map[string]bool)
	for _, r := range records {
		if !seenSat[r.Satellite] {
			seenSat[r.Satellite] = true
			f.Satellites = append(f.Satellites, r.Satellite)
		}
		if !seenType[r.Type] {
			seenType[r.Type] = true
			f.Types = append(f.Types, r.Type)
		}
	}
	return f
}
