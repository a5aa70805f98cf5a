package main

import (
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/star/satconsole/internal/api"
	"github.com/star/satconsole/internal/auth"
	"github.com/star/satconsole/internal/passes"
	"github.com/star/satconsole/internal/propagation"
	"github.com/star/satconsole/internal/stream"
	"github.com/star/satconsole/internal/upload"
)

// settings is the resolved configuration of the serve command.
type settings struct {
	API     api.Config
	Upload  upload.Config
	Stream  stream.Config
	Passes  passes.Config
	Workers int
}

// registerServeFlags declares every serve setting. Each flag maps to
// SATCONSOLE_<FLAG_NAME> with dashes turned into underscores.
func registerServeFlags(f *pflag.FlagSet) {
	upDef := upload.DefaultConfig()
	stDef := stream.DefaultConfig()

	f.String("http-addr", ":8080", "HTTP listen address")
	f.Bool("auth-enabled", false, "Require a Bearer token for uploads and removals")
	f.String("auth-token", "", "Bearer token accepted when auth is enabled")
	f.Bool("trust-proxy", false, "Take the client IP from proxy headers")
	f.Int64("max-upload-bytes", 8<<30, "Largest accepted multipart upload body")

	f.Duration("upload-interval", upDef.Interval, "Simulated upload tick interval")
	f.Float64("upload-max-increment", upDef.MaxIncrement, "Upper bound of the per-tick progress step")
	f.Float64("upload-failure-rate", upDef.FailureRate, "Per-tick probability that an upload fails")

	f.Int("stream-max-concurrent", stDef.MaxConcurrentPerIP, "Concurrent streams allowed per client IP")
	f.Int("stream-bandwidth-limit", stDef.BandwidthLimit, "Bytes per second per stream, 0 for unlimited")
	f.Duration("stream-keepalive-interval", stDef.KeepaliveInterval, "Interval between keep-alive comments")

	f.Int("prop-workers", runtime.NumCPU(), "SGP4 propagation workers")

	registerStationFlags(f)
}

// registerStationFlags declares the ground station settings shared by the
// serve and fleet commands.
func registerStationFlags(f *pflag.FlagSet) {
	def := passes.DefaultConfig()
	f.String("station-name", def.Station.Name, "Ground station name")
	f.Float64("station-lat", def.Station.LatitudeDeg, "Ground station latitude in degrees")
	f.Float64("station-lon", def.Station.LongitudeDeg, "Ground station longitude in degrees")
	f.Float64("station-alt-km", def.Station.AltitudeKm, "Ground station altitude in km")
	f.Float64("pass-min-elevation", def.MinElevation, "Minimum elevation in degrees for a pass")
	f.Duration("pass-horizon", def.Horizon, "How far ahead to search for the next pass")
}

// loadPassConfig resolves the station settings, falling back to defaults
// for out-of-range values.
func loadPassConfig(v *viper.Viper, logger *slog.Logger) passes.Config {
	def := passes.DefaultConfig()
	c := passes.Config{
		Station: propagation.Station{
			Name:         v.GetString("station-name"),
			LatitudeDeg:  v.GetFloat64("station-lat"),
			LongitudeDeg: v.GetFloat64("station-lon"),
			AltitudeKm:   v.GetFloat64("station-alt-km"),
		},
		MinElevation: v.GetFloat64("pass-min-elevation"),
		Horizon:      v.GetDuration("pass-horizon"),
	}

	if c.Station.LatitudeDeg < -90 || c.Station.LatitudeDeg > 90 || c.Station.LongitudeDeg < -180 || c.Station.LongitudeDeg > 180 {
		logger.Warn("invalid station coordinates, using default station",
			"latitude", c.Station.LatitudeDeg,
			"longitude", c.Station.LongitudeDeg,
			"default", def.Station.Name,
		)
		c.Station = def.Station
	}
	if c.MinElevation < 0 || c.MinElevation >= 90 {
		logger.Warn("invalid pass-min-elevation value, using default", "value", c.MinElevation, "default", def.MinElevation)
		c.MinElevation = def.MinElevation
	}
	if c.Horizon <= 0 || c.Horizon > 7*24*time.Hour {
		logger.Warn("invalid pass-horizon value, using default", "value", c.Horizon, "default", def.Horizon)
		c.Horizon = def.Horizon
	}
	return c
}

// loadSettings resolves and validates the serve settings. Invalid tuning
// values fall back to defaults with a warning; inconsistent auth settings
// are an error.
func loadSettings(v *viper.Viper, logger *slog.Logger) (settings, error) {
	upDef := upload.DefaultConfig()
	stDef := stream.DefaultConfig()

	s := settings{
		API: api.Config{
			Addr: v.GetString("http-addr"),
			Auth: auth.Config{
				Enabled: v.GetBool("auth-enabled"),
				Token:   v.GetString("auth-token"),
			},
			TrustProxy:     v.GetBool("trust-proxy"),
			MaxUploadBytes: v.GetInt64("max-upload-bytes"),
		},
		Upload: upload.Config{
			Interval:     v.GetDuration("upload-interval"),
			MaxIncrement: v.GetFloat64("upload-max-increment"),
			FailureRate:  v.GetFloat64("upload-failure-rate"),
		},
		Stream: stream.Config{
			MaxConcurrentPerIP: v.GetInt("stream-max-concurrent"),
			BandwidthLimit:     v.GetInt("stream-bandwidth-limit"),
			KeepaliveInterval:  v.GetDuration("stream-keepalive-interval"),
			TrustProxy:         v.GetBool("trust-proxy"),
		},
		Passes:  loadPassConfig(v, logger),
		Workers: v.GetInt("prop-workers"),
	}

	if s.API.Auth.Enabled && s.API.Auth.Token == "" {
		return s, errors.New("SATCONSOLE_AUTH_TOKEN is required when auth is enabled")
	}
	if s.API.Addr == "" {
		s.API.Addr = ":8080"
	}
	if s.API.MaxUploadBytes <= 0 {
		logger.Warn("invalid max-upload-bytes value, using default", "value", s.API.MaxUploadBytes, "default", int64(8<<30))
		s.API.MaxUploadBytes = 8 << 30
	}

	if s.Upload.Interval <= 0 {
		logger.Warn("invalid upload-interval value, using default", "value", s.Upload.Interval, "default", upDef.Interval)
		s.Upload.Interval = upDef.Interval
	}
	if s.Upload.MaxIncrement <= 0 || s.Upload.MaxIncrement > 100 {
		logger.Warn("invalid upload-max-increment value, using default", "value", s.Upload.MaxIncrement, "default", upDef.MaxIncrement)
		s.Upload.MaxIncrement = upDef.MaxIncrement
	}
	if s.Upload.FailureRate < 0 || s.Upload.FailureRate > 1 {
		logger.Warn("invalid upload-failure-rate value, using default", "value", s.Upload.FailureRate, "default", upDef.FailureRate)
		s.Upload.FailureRate = upDef.FailureRate
	}

	if s.Stream.MaxConcurrentPerIP < 1 {
		logger.Warn("invalid stream-max-concurrent value, using default", "value", s.Stream.MaxConcurrentPerIP, "default", stDef.MaxConcurrentPerIP)
		s.Stream.MaxConcurrentPerIP = stDef.MaxConcurrentPerIP
	}
	if s.Stream.BandwidthLimit < 0 {
		logger.Warn("invalid stream-bandwidth-limit value, using default", "value", s.Stream.BandwidthLimit, "default", stDef.BandwidthLimit)
		s.Stream.BandwidthLimit = stDef.BandwidthLimit
	}
	if s.Stream.KeepaliveInterval < time.Second {
		logger.Warn("invalid stream-keepalive-interval value, using default", "value", s.Stream.KeepaliveInterval, "default", stDef.KeepaliveInterval)
		s.Stream.KeepaliveInterval = stDef.KeepaliveInterval
	}

	if s.Workers < 1 {
		logger.Warn("invalid prop-workers value, using default", "value", s.Workers, "default", runtime.NumCPU())
		s.Workers = runtime.NumCPU()
	}

	logger.Info("configuration loaded",
		"http_addr", s.API.Addr,
		"auth_enabled", s.API.Auth.Enabled,
		"trust_proxy", s.API.TrustProxy,
		"upload_interval_ms", s.Upload.Interval.Milliseconds(),
		"upload_max_increment", s.Upload.MaxIncrement,
		"upload_failure_rate", s.Upload.FailureRate,
		"stream_max_concurrent_per_ip", s.Stream.MaxConcurrentPerIP,
		"stream_bandwidth_limit", s.Stream.BandwidthLimit,
		"stream_keepalive_interval_seconds", s.Stream.KeepaliveInterval.Seconds(),
		"prop_workers", s.Workers,
		"station", s.Passes.Station.Name,
		"pass_min_elevation", s.Passes.MinElevation,
	)
	return s, nil
}
