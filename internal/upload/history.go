package upload

import (
	"strconv"
	"time"
)

// History returns the recent-uploads panel entries. They are fixed sample
// records and are never produced or changed by the simulator.
func History() []Task {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		file     File
		ext      string
		status   Status
		progress float64
		at       time.Time
	}{
		{File{"terra_modis_ocean_2024015.hdf", 2400000000, "Terra", "Ocean Color"}, "HDF5", StatusCompleted, 100, day.Add(9 * time.Hour)},
		{File{"landsat9_oli_scene_001.tif", 1800000000, "Landsat-9", "Multispectral"}, "GeoTIFF", StatusCompleted, 100, day.Add(11 * time.Hour)},
		{File{"sentinel2_msi_l2a.SAFE", 890000000, "Sentinel-2A", "Cloud Mask"}, "SAFE", StatusFailed, 67, day.Add(13 * time.Hour)},
	}

	out := make([]Task, len(seed))
	for i, s := range seed {
		t := newTask(strconv.Itoa(i+1), s.file, s.at)
		t.Extension = s.ext
		t.Status = s.status
		t.Progress = s.progress
		out[i] = t
	}
	return out
}
