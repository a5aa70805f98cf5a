package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"x.hdf", "HDF"},
		{"scene.tar.gz", "GZ"},
		{"sentinel2_msi_l2a.SAFE", "SAFE"},
		{"data.NetCDF", "NETCDF"},
		{"README", "Unknown"},
		{"trailing.", "Unknown"},
		{"", "Unknown"},
		{".env", "ENV"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extension(tt.name))
		})
	}
}

func TestSizeLabel(t *testing.T) {
	assert.Equal(t, "0 B", SizeLabel(0))
	assert.Equal(t, "0 B", SizeLabel(-5))
	assert.Equal(t, "1.0 KiB", SizeLabel(1024))
	assert.Equal(t, "2.2 GiB", SizeLabel(2400000000))
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusUploading.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestHistory(t *testing.T) {
	h := History()
	if assert.Len(t, h, 3) {
		assert.Equal(t, StatusCompleted, h[0].Status)
		assert.Equal(t, 100.0, h[0].Progress)
		assert.Equal(t, "HDF5", h[0].Extension)
		assert.Equal(t, "Terra", h[0].Satellite)

		assert.Equal(t, StatusFailed, h[2].Status)
		assert.Equal(t, 67.0, h[2].Progress)
		assert.Equal(t, "Sentinel-2A", h[2].Satellite)
	}

	// Callers get their own copy.
	h[0].Name = "mutated"
	assert.NotEqual(t, "mutated", History()[0].Name)
}
