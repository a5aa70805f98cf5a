// Package analytics serves the weekly data volume, processing time and
// per-satellite performance figures shown in the analytics view.
package analytics

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
)

// VolumeDay is the data received on one day, in GB per satellite.
type VolumeDay struct {
	Date        string         `json:"date"`
	BySatellite map[string]int `json:"by_satellite_gb"`
	TotalGB     int            `json:"total_gb"`
}

// ProcessingSample is the mean processing time of jobs started at Hour.
type ProcessingSample struct {
	Hour    string `json:"hour"`
	Minutes int    `json:"minutes"`
}

// TypeShare is one slice of the data type distribution.
type TypeShare struct {
	Name    string `json:"name"`
	Percent int    `json:"percent"`
	Color   string `json:"color"`
}

// ErrorLevel grades a satellite's error count.
type ErrorLevel string

const (
	ErrorsWarning  ErrorLevel = "warning"
	ErrorsCritical ErrorLevel = "critical"
)

// criticalErrors is the error count above which a satellite is critical.
const criticalErrors = 10

// Performance is one satellite's uptime, volume and error count for the week.
type Performance struct {
	Satellite  string     `json:"satellite"`
	UptimePct  float64    `json:"uptime_pct"`
	VolumeTB   float64    `json:"volume_tb"`
	Errors     int        `json:"errors"`
	ErrorLevel ErrorLevel `json:"error_level"`
}

// KPIs are the headline figures of the report.
type KPIs struct {
	TotalVolume          string  `json:"total_volume"`
	TotalVolumeBytes     uint64  `json:"total_volume_bytes"`
	VolumeTrend          string  `json:"volume_trend"`
	AvgProcessing        string  `json:"avg_processing"`
	AvgProcessingMinutes float64 `json:"avg_processing_minutes"`
	ProcessingTrend      string  `json:"processing_trend"`
	PeakProcessingHour   string  `json:"peak_processing_hour"`
	SuccessRatePct       float64 `json:"success_rate_pct"`
	SuccessTrend         string  `json:"success_trend"`
	ActiveUsers          int     `json:"active_users"`
	PeakUsage            string  `json:"peak_usage"`
}

// Report is the full analytics view.
type Report struct {
	KPIs           KPIs               `json:"kpis"`
	DataVolume     []VolumeDay        `json:"data_volume"`
	VolumeTotalsGB map[string]int     `json:"volume_totals_gb"`
	ProcessingTime []ProcessingSample `json:"processing_time"`
	DataTypes      []TypeShare        `json:"data_types"`
	Performance    []Performance      `json:"satellite_performance"`
}

// Satellites in the order the volume series are plotted.
var satellites = []string{"Terra", "Aqua", "Landsat-9", "Sentinel-2A"}

func day(date string, gb ...int) VolumeDay {
	d := VolumeDay{Date: date, BySatellite: make(map[string]int, len(satellites))}
	for i, name := range satellites {
		d.BySatellite[name] = gb[i]
	}
	return d
}

var seedVolume = []VolumeDay{
	day("Jan 15", 2400, 1800, 1200, 3200),
	day("Jan 16", 2800, 2100, 1400, 2900),
	day("Jan 17", 2200, 1900, 1600, 3100),
	day("Jan 18", 3100, 2400, 1800, 3400),
	day("Jan 19", 2900, 2200, 1500, 3000),
	day("Jan 20", 3300, 2600, 2000, 3600),
	day("Jan 21", 2700, 2000, 1700, 3200),
}

var seedProcessing = []ProcessingSample{
	{"00:00", 45}, {"04:00", 38}, {"08:00", 52},
	{"12:00", 48}, {"16:00", 61}, {"20:00", 43},
}

var seedTypes = []TypeShare{
	{"Ocean Color", 35, "#3b82f6"},
	{"Multispectral", 28, "#06b6d4"},
	{"Thermal", 20, "#10b981"},
	{"Radar", 12, "#f59e0b"},
	{"Other", 5, "#ef4444"},
}

var seedPerformance = []Performance{
	{Satellite: "Terra", UptimePct: 98.5, VolumeTB: 2.8, Errors: 2},
	{Satellite: "Aqua", UptimePct: 97.2, VolumeTB: 2.2, Errors: 4},
	{Satellite: "Landsat-9", UptimePct: 85.0, VolumeTB: 1.6, Errors: 12},
	{Satellite: "Sentinel-2A", UptimePct: 96.8, VolumeTB: 3.2, Errors: 3},
}

var seedKPIs = KPIs{
	TotalVolume:     "18.2 TB",
	VolumeTrend:     "+12.5% vs last week",
	ProcessingTrend: "-8% improvement",
	SuccessRatePct:  96.8,
	SuccessTrend:    "+2.1% this month",
	ActiveUsers:     247,
	PeakUsage:       "14:30 UTC",
}

// Service serves the seeded report.
type Service struct {
	report Report
}

// NewService validates the seed and derives the totals, averages and
// error levels.
func NewService() (*Service, error) {
	r := Report{
		KPIs:           seedKPIs,
		DataVolume:     make([]VolumeDay, len(seedVolume)),
		VolumeTotalsGB: make(map[string]int, len(satellites)),
		ProcessingTime: slices.Clone(seedProcessing),
		DataTypes:      slices.Clone(seedTypes),
		Performance:    slices.Clone(seedPerformance),
	}

	for i, d := range seedVolume {
		d.BySatellite = maps.Clone(d.BySatellite)
		for name, gb := range d.BySatellite {
			d.TotalGB += gb
			r.VolumeTotalsGB[name] += gb
		}
		r.DataVolume[i] = d
	}

	bytes, err := humanize.ParseBytes(r.KPIs.TotalVolume)
	if err != nil {
		return nil, fmt.Errorf("total volume %q: %w", r.KPIs.TotalVolume, err)
	}
	r.KPIs.TotalVolumeBytes = bytes

	if len(r.ProcessingTime) == 0 {
		return nil, errors.New("no processing time samples")
	}
	sum, peak := 0, r.ProcessingTime[0]
	for _, s := range r.ProcessingTime {
		sum += s.Minutes
		if s.Minutes > peak.Minutes {
			peak = s
		}
	}
	r.KPIs.AvgProcessingMinutes = float64(sum) / float64(len(r.ProcessingTime))
	r.KPIs.AvgProcessing = fmt.Sprintf("%dm", int(r.KPIs.AvgProcessingMinutes))
	r.KPIs.PeakProcessingHour = peak.Hour

	total := 0
	for _, t := range r.DataTypes {
		total += t.Percent
	}
	if total != 100 {
		return nil, fmt.Errorf("data type shares sum to %d%%, want 100%%", total)
	}

	for i := range r.Performance {
		r.Performance[i].ErrorLevel = ErrorsWarning
		if r.Performance[i].Errors > criticalErrors {
			r.Performance[i].ErrorLevel = ErrorsCritical
		}
	}

	return &Service{report: r}, nil
}

// Report returns a copy of the report that callers may modify.
func (s *Service) Report() Report {
	r := s.report
	r.DataVolume = make([]VolumeDay, len(s.report.DataVolume))
	for i, d := range s.report.DataVolume {
		d.BySatellite = maps.Clone(d.BySatellite)
		r.DataVolume[i] = d
	}
	r.VolumeTotalsGB = maps.Clone(s.report.VolumeTotalsGB)
	r.ProcessingTime = slices.Clone(s.report.ProcessingTime)
	r.DataTypes = slices.Clone(s.report.DataTypes)
	r.Performance = slices.Clone(s.report.Performance)
	return r
}
