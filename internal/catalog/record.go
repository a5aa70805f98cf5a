// Package catalog holds the read-only dataset catalog and the search used by
// the data browser.
package catalog

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Quality is the validation level of a dataset.
type Quality string

const (
	QualityValidated   Quality = "validated"
	QualityProcessing  Quality = "processing"
	QualityPreliminary Quality = "preliminary"
)

// Record is one dataset in the catalog. Records are values; nothing in this
// package mutates a record after Seed builds it.
type Record struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Satellite string  `json:"satellite"`
	Type      string  `json:"type"`
	Date      string  `json:"date"`
	Size      string  `json:"size"`
	SizeBytes int64   `json:"size_bytes"`
	Format    string  `json:"format"`
	Quality   Quality `json:"quality"`
	Downloads int     `json:"downloads"`
}

type seedRecord struct {
	id, name, satellite, typ, date, size, format string
	quality                                      Quality
	downloads                                    int
}

var seed = []seedRecord{
	{"DS-001", "Terra_MODIS_L2_Ocean_Color_2024_001", "Terra", "Ocean Color", "2024-01-15", "2.4 GB", "HDF5", QualityValidated, 1247},
	{"DS-002", "Landsat9_OLI_TIRS_L1TP_2024_002", "Landsat-9", "Multispectral", "2024-01-14", "1.8 GB", "GeoTIFF", QualityProcessing, 892},
	{"DS-003", "Sentinel2A_MSI_L2A_CloudMask_2024_003", "Sentinel-2A", "Cloud Mask", "2024-01-13", "890 MB", "NetCDF", QualityValidated, 2156},
	{"DS-004", "Aqua_MODIS_Chlorophyll_Concentration_2024_004", "Aqua", "Chlorophyll", "2024-01-12", "3.1 GB", "HDF4", QualityValidated, 756},
	{"DS-005", "MODIS_Fire_Detection_Global_2024_005", "Terra", "Fire Detection", "2024-01-11", "445 MB", "CSV", QualityPreliminary, 1834},
}

// Seed returns a fresh copy of the sample catalog.
func Seed() ([]Record, error) {
	out := make([]Record, 0, len(seed))
	for _, s := range seed {
		n, err := humanize.ParseBytes(s.size)
		if err != nil {
			return nil, fmt.Errorf("dataset %s: parsing size %q: %w", s.id, s.size, err)
		}
		out = append(out, Record{
			ID:        s.id,
			Name:      s.name,
			Satellite: s.satellite,
			Type:      s.typ,
			Date:      s.date,
			Size:      s.size,
			SizeBytes: int64(n),
			Format:    s.format,
			Quality:   s.quality,
			Downloads: s.downloads,
		})
	}
	return out, nil
}
