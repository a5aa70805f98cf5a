package catalog

import "github.com/dustin/go-humanize"

// Summary aggregates a record set for the analytics panel.
type Summary struct {
	Datasets       int             `json:"datasets"`
	TotalBytes     int64           `json:"total_bytes"`
	TotalSize      string          `json:"total_size"`
	TotalDownloads int             `json:"total_downloads"`
	ByQuality      map[Quality]int `json:"by_quality"`
	BySatellite    []SatelliteStat `json:"by_satellite"`
}

// SatelliteStat is the per-satellite slice of a Summary.
type SatelliteStat struct {
	Satellite string `json:"satellite"`
	Datasets  int    `json:"datasets"`
	Bytes     int64  `json:"bytes"`
	Downloads int    `json:"downloads"`
}

// Summarize totals records. Satellites appear in first-seen order.
func Summarize(records []Record) Summary {
	s := Summary{
		ByQuality:   make(map[Quality]int),
		BySatellite: []SatelliteStat{},
	}
	index := make(map[string]int)

	for _, r := range records {
		s.Datasets++
		s.TotalBytes += r.SizeBytes
		s.TotalDownloads += r.Downloads
		s.ByQuality[r.Quality]++

		i, ok := index[r.Satellite]
		if !ok {
			i = len(s.BySatellite)
			index[r.Satellite] = i
			s.BySatellite = append(s.BySatellite, SatelliteStat{Satellite: r.Satellite})
		}
		st := &s.BySatellite[i]
		st.Datasets++
		st.Bytes += r.SizeBytes
		st.Downloads += r.Downloads
	}

	s.TotalSize = humanize.Bytes(uint64(max(s.TotalBytes, 0)))
	return s
}
