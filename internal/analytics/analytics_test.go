package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKPIs(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	k := svc.Report().KPIs
	assert.Equal(t, uint64(18_200_000_000_000), k.TotalVolumeBytes)
	assert.Equal(t, "47m", k.AvgProcessing)
	assert.InDelta(t, 47.83, k.AvgProcessingMinutes, 0.01)
	assert.Equal(t, "16:00", k.PeakProcessingHour)
	assert.Equal(t, 96.8, k.SuccessRatePct)
	assert.Equal(t, 247, k.ActiveUsers)
	assert.Equal(t, "14:30 UTC", k.PeakUsage)
}

func TestVolumeTotals(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)
	r := svc.Report()

	assert.Equal(t, map[string]int{
		"Terra":       19400,
		"Aqua":        15000,
		"Landsat-9":   11200,
		"Sentinel-2A": 22400,
	}, r.VolumeTotalsGB)

	tests := []struct {
		date string
		want int
	}{
		{"Jan 15", 8600},
		{"Jan 18", 10700},
		{"Jan 20", 11500},
		{"Jan 21", 9600},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			for _, d := range r.DataVolume {
				if d.Date == tt.date {
					assert.Equal(t, tt.want, d.TotalGB)
					return
				}
			}
			t.Fatalf("no volume for %s", tt.date)
		})
	}
}

func TestDataTypeShares(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	types := svc.Report().DataTypes
	require.Len(t, types, 5)
	assert.Equal(t, "Ocean Color", types[0].Name)
	assert.Equal(t, 35, types[0].Percent)
	sum := 0
	for _, ts := range types {
		sum += ts.Percent
		assert.Regexp(t, `^#[0-9a-f]{6}$`, ts.Color, ts.Name)
	}
	assert.Equal(t, 100, sum)
}

func TestErrorLevels(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	tests := []struct {
		satellite string
		want      ErrorLevel
	}{
		{"Terra", ErrorsWarning},
		{"Aqua", ErrorsWarning},
		{"Landsat-9", ErrorsCritical},
		{"Sentinel-2A", ErrorsWarning},
	}
	perf := svc.Report().Performance
	require.Len(t, perf, len(tests))
	for i, tt := range tests {
		t.Run(tt.satellite, func(t *testing.T) {
			assert.Equal(t, tt.satellite, perf[i].Satellite)
			assert.Equal(t, tt.want, perf[i].ErrorLevel)
		})
	}
}

func TestReportCopiesAreIndependent(t *testing.T) {
	svc, err := NewService()
	require.NoError(t, err)

	r := svc.Report()
	r.DataVolume[0].BySatellite["Terra"] = 0
	r.VolumeTotalsGB["Aqua"] = 0
	r.Performance[0].Errors = 99
	r.DataTypes[0].Percent = 0

	again := svc.Report()
	assert.Equal(t, 2400, again.DataVolume[0].BySatellite["Terra"])
	assert.Equal(t, 15000, again.VolumeTotalsGB["Aqua"])
	assert.Equal(t, 2, again.Performance[0].Errors)
	assert.Equal(t, 35, again.DataTypes[0].Percent)
}
