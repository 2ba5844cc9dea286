package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"delivery-trajectory-service/internal/services"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EngineConfig holds the animation engine tunables.
type EngineConfig struct {
	RouteCacheCapacity        int     `yaml:"routeCacheCapacity" validate:"gte=1"`
	PlanningTimeoutMs         int     `yaml:"planningTimeoutMs" validate:"gt=0"`
	PlanningMaxAttempts       int     `yaml:"planningMaxAttempts" validate:"gte=1,lte=10"`
	PlanningBackoffMs         int     `yaml:"planningBackoffMs" validate:"gte=0"`
	MaxConcurrentRoutes       int     `yaml:"maxConcurrentRoutes" validate:"gte=1"`
	SamePlaceThresholdMeters  float64 `yaml:"samePlaceThresholdMeters" validate:"gt=0"`
	NewEpisodeThresholdMeters float64 `yaml:"newEpisodeThresholdMeters" validate:"gtfield=SamePlaceThresholdMeters"`
	FollowResumeDelayMs       int     `yaml:"followResumeDelayMs" validate:"gt=0"`
	MinLegDurationMs          int     `yaml:"minLegDurationMs" validate:"gt=0"`
	MaxLegDurationMs          int     `yaml:"maxLegDurationMs" validate:"gtefield=MinLegDurationMs"`
	LegMillisPerMeter         float64 `yaml:"legMillisPerMeter" validate:"gt=0"`
	FrameIntervalMs           int     `yaml:"frameIntervalMs" validate:"gt=0"`
	CameraThrottleMs          int     `yaml:"cameraThrottleMs" validate:"gte=0"`
}

type RoutingConfig struct {
	Provider    string `yaml:"provider" validate:"oneof=osrm ors"`
	OSRMBaseURL string `yaml:"osrmBaseURL" validate:"omitempty,url"`
	ORSBaseURL  string `yaml:"orsBaseURL" validate:"omitempty,url"`
	ORSProfile  string `yaml:"orsProfile"`
	ORSAPIKey   string `yaml:"-"`
}

type StorageConfig struct {
	// Driver selects the SQL backend for reports and the route store.
	Driver      string `yaml:"driver" validate:"oneof=sqlite postgres"`
	SqlitePath  string `yaml:"sqlitePath" validate:"required_if=Driver sqlite"`
	DatabaseURL string `yaml:"-"`
	RedisAddr   string `yaml:"redisAddr"`
	RedisDB     int    `yaml:"redisDB" validate:"gte=0"`
	RedisTTLSec int    `yaml:"redisTTLSec" validate:"gte=0"`
}

type PollConfig struct {
	Enabled     bool `yaml:"enabled"`
	IntervalMs  int  `yaml:"intervalMs" validate:"gt=0"`
	Concurrency int  `yaml:"concurrency" validate:"gte=1"`
}

type Config struct {
	Port    int           `yaml:"port" validate:"gt=0,lte=65535"`
	Engine  EngineConfig  `yaml:"engine" validate:"required"`
	Routing RoutingConfig `yaml:"routing" validate:"required"`
	Storage StorageConfig `yaml:"storage" validate:"required"`
	Poll    PollConfig    `yaml:"poll"`
}

func Default() Config {
	return Config{
		Port: 8080,
		Engine: EngineConfig{
			RouteCacheCapacity:        50,
			PlanningTimeoutMs:         5000,
			PlanningMaxAttempts:       3,
			PlanningBackoffMs:         300,
			MaxConcurrentRoutes:       4,
			SamePlaceThresholdMeters:  10,
			NewEpisodeThresholdMeters: 100,
			FollowResumeDelayMs:       5000,
			MinLegDurationMs:          500,
			MaxLegDurationMs:          3000,
			LegMillisPerMeter:         10,
			FrameIntervalMs:           16,
			CameraThrottleMs:          100,
		},
		Routing: RoutingConfig{
			Provider:   "osrm",
			ORSProfile: "driving-car",
		},
		Storage: StorageConfig{
			Driver:      "sqlite",
			SqlitePath:  "data/app.db",
			RedisTTLSec: 86400,
		},
		Poll: PollConfig{
			Enabled:     true,
			IntervalMs:  5000,
			Concurrency: 4,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (config.yml when unset, skipped if missing), then environment
// overrides, and validates the result.
func Load() (Config, error) {
	cfg := Default()

	if err := loadFile(Get("CONFIG_FILE", "config.yml"), &cfg); err != nil {
		return Config{}, err
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	ints := map[string]*int{
		"PORT":                   &cfg.Port,
		"ROUTE_CACHE_CAPACITY":   &cfg.Engine.RouteCacheCapacity,
		"PLANNING_TIMEOUT_MS":    &cfg.Engine.PlanningTimeoutMs,
		"PLANNING_MAX_ATTEMPTS":  &cfg.Engine.PlanningMaxAttempts,
		"PLANNING_BACKOFF_MS":    &cfg.Engine.PlanningBackoffMs,
		"MAX_CONCURRENT_ROUTES":  &cfg.Engine.MaxConcurrentRoutes,
		"FOLLOW_RESUME_DELAY_MS": &cfg.Engine.FollowResumeDelayMs,
		"MIN_LEG_DURATION_MS":    &cfg.Engine.MinLegDurationMs,
		"MAX_LEG_DURATION_MS":    &cfg.Engine.MaxLegDurationMs,
		"FRAME_INTERVAL_MS":      &cfg.Engine.FrameIntervalMs,
		"CAMERA_THROTTLE_MS":     &cfg.Engine.CameraThrottleMs,
		"REDIS_DB":               &cfg.Storage.RedisDB,
		"REDIS_TTL_SEC":          &cfg.Storage.RedisTTLSec,
		"POLL_INTERVAL_MS":       &cfg.Poll.IntervalMs,
		"POLL_CONCURRENCY":       &cfg.Poll.Concurrency,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", key, v, err)
		}
		*dst = n
	}

	floats := map[string]*float64{
		"SAME_PLACE_THRESHOLD_METERS":  &cfg.Engine.SamePlaceThresholdMeters,
		"NEW_EPISODE_THRESHOLD_METERS": &cfg.Engine.NewEpisodeThresholdMeters,
		"LEG_MILLIS_PER_METER":         &cfg.Engine.LegMillisPerMeter,
	}
	for key, dst := range floats {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", key, v, err)
		}
		*dst = f
	}

	if v := os.Getenv("POLL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: POLL_ENABLED=%q: %w", v, err)
		}
		cfg.Poll.Enabled = b
	}

	cfg.Routing.Provider = Get("ROUTING_PROVIDER", cfg.Routing.Provider)
	cfg.Routing.OSRMBaseURL = Get("OSRM_BASE_URL", cfg.Routing.OSRMBaseURL)
	cfg.Routing.ORSBaseURL = Get("ORS_BASE_URL", cfg.Routing.ORSBaseURL)
	cfg.Routing.ORSProfile = Get("ORS_PROFILE", cfg.Routing.ORSProfile)
	cfg.Routing.ORSAPIKey = Get("ORS_API_KEY", cfg.Routing.ORSAPIKey)

	cfg.Storage.Driver = Get("DB_DRIVER", cfg.Storage.Driver)
	cfg.Storage.SqlitePath = Get("DB_PATH", cfg.Storage.SqlitePath)
	cfg.Storage.DatabaseURL = Get("DATABASE_URL", cfg.Storage.DatabaseURL)
	cfg.Storage.RedisAddr = Get("REDIS_ADDR", cfg.Storage.RedisAddr)

	return nil
}

// Validate checks cross-field rules the struct tags cannot express.
func (c Config) Validate() error {
	if c.Routing.Provider == "ors" && c.Routing.ORSAPIKey == "" {
		return errors.New("config: ORS_API_KEY is required when routing.provider is ors")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL is required when storage.driver is postgres")
	}
	return nil
}

// EngineOptions converts the engine section into service options.
func (c Config) EngineOptions() services.Options {
	e := c.Engine
	ms := func(n int) time.Duration { return time.Duration(n) * time.Millisecond }
	return services.Options{
		RouteCacheCapacity:        e.RouteCacheCapacity,
		PlanningTimeout:           ms(e.PlanningTimeoutMs),
		PlanningMaxAttempts:       e.PlanningMaxAttempts,
		PlanningBackoff:           ms(e.PlanningBackoffMs),
		MaxConcurrentRoutes:       e.MaxConcurrentRoutes,
		SamePlaceThresholdMeters:  e.SamePlaceThresholdMeters,
		NewEpisodeThresholdMeters: e.NewEpisodeThresholdMeters,
		FollowResumeDelay:         ms(e.FollowResumeDelayMs),
		CameraThrottle:            ms(e.CameraThrottleMs),
		MinLegDuration:            ms(e.MinLegDurationMs),
		MaxLegDuration:            ms(e.MaxLegDurationMs),
		LegMillisPerMeter:         e.LegMillisPerMeter,
		FrameInterval:             ms(e.FrameIntervalMs),
	}
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Poll.IntervalMs) * time.Millisecond
}

func (c Config) RedisTTL() time.Duration {
	return time.Duration(c.Storage.RedisTTLSec) * time.Second
}
