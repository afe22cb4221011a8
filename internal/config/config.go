package config

import (
	"time"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/application"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/backend"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/config"
	"github.com/spf13/viper"
)

// ServiceConfig holds all configuration for the navigation service.
type ServiceConfig struct {
	Port          string
	AppEnv        string
	DBConfig      config.DatabaseConfig
	KafkaConfig   config.KafkaConfig
	RedisConfig   config.RedisConfig
	BackendConfig backend.Config
	SnapshotTTL   time.Duration
	Navigation    application.Options
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("NAVIGATION")
	if err != nil {
		return nil, err
	}
	setDefaults(v)

	return &ServiceConfig{
		Port:        config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:      config.GetAppEnv(v),
		DBConfig:    config.LoadDatabaseConfig(v, "DB_NAME"),
		KafkaConfig: config.LoadKafkaConfig(v),
		RedisConfig: config.LoadRedisConfig(v),
		BackendConfig: backend.Config{
			BaseURL:    v.GetString("BACKEND_URL"),
			Timeout:    v.GetDuration("BACKEND_TIMEOUT"),
			MaxRetries: v.GetUint64("BACKEND_MAX_RETRIES"),
		},
		SnapshotTTL: v.GetDuration("SNAPSHOT_TTL"),
		Navigation:  loadNavigationOptions(v),
	}, nil
}

func setDefaults(v *viper.Viper) {
	defaults := application.DefaultOptions()
	t := defaults.Timing

	v.SetDefault("SERVICE_PORT", "8086")
	v.SetDefault("DB_NAME", "kilat_navigation")
	v.SetDefault("BACKEND_URL", "http://localhost:5000")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("BACKEND_MAX_RETRIES", 2)
	v.SetDefault("SNAPSHOT_TTL", "12h")

	v.SetDefault("MONITOR_INTERVAL", t.MonitorInterval)
	v.SetDefault("TRACKING_INTERVAL", t.TrackingInterval)
	v.SetDefault("TRAFFIC_INTERVAL", t.TrafficInterval)
	v.SetDefault("TRAFFIC_MIN_SPACING", t.TrafficMinSpacing)
	v.SetDefault("TRAFFIC_INITIAL_DELAY", t.TrafficInitialDelay)
	v.SetDefault("VISIBILITY_STALE_AFTER", t.VisibilityStaleAfter)
	v.SetDefault("GEOLOCATION_TIMEOUT", t.GeolocationTimeout)
	v.SetDefault("RESTORE_MAX_AGE", t.RestoreMaxAge)
	v.SetDefault("ARRIVAL_THRESHOLD_KM", defaults.Policy.ArrivalThresholdKm)
	v.SetDefault("DETAILED_GEOMETRY_MIN_POINTS", defaults.Render.DetailedGeometryMinPoints)
	v.SetDefault("FIT_PADDING", defaults.Render.FitPadding)
}

func loadNavigationOptions(v *viper.Viper) application.Options {
	opts := application.DefaultOptions()
	opts.Timing = application.Timing{
		MonitorInterval:      v.GetDuration("MONITOR_INTERVAL"),
		TrackingInterval:     v.GetDuration("TRACKING_INTERVAL"),
		TrafficInterval:      v.GetDuration("TRAFFIC_INTERVAL"),
		TrafficMinSpacing:    v.GetDuration("TRAFFIC_MIN_SPACING"),
		TrafficInitialDelay:  v.GetDuration("TRAFFIC_INITIAL_DELAY"),
		VisibilityStaleAfter: v.GetDuration("VISIBILITY_STALE_AFTER"),
		GeolocationTimeout:   v.GetDuration("GEOLOCATION_TIMEOUT"),
		RestoreMaxAge:        v.GetDuration("RESTORE_MAX_AGE"),
	}
	opts.Policy.ArrivalThresholdKm = v.GetFloat64("ARRIVAL_THRESHOLD_KM")
	opts.Render.DetailedGeometryMinPoints = v.GetInt("DETAILED_GEOMETRY_MIN_POINTS")
	opts.Render.FitPadding = v.GetInt("FIT_PADDING")
	return opts
}
