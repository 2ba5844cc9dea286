package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	opts := cfg.EngineOptions()
	assert.Equal(t, 50, opts.RouteCacheCapacity)
	assert.Equal(t, 5*time.Second, opts.PlanningTimeout)
	assert.Equal(t, 3, opts.PlanningMaxAttempts)
	assert.Equal(t, 300*time.Millisecond, opts.PlanningBackoff)
	assert.Equal(t, 16*time.Millisecond, opts.FrameInterval)
	assert.Equal(t, 5*time.Second, opts.FollowResumeDelay)
	assert.Equal(t, 10.0, opts.SamePlaceThresholdMeters)
	assert.Equal(t, 100.0, opts.NewEpisodeThresholdMeters)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
port: 9090
engine:
  routeCacheCapacity: 10
  maxLegDurationMs: 4000
routing:
  provider: osrm
  osrmBaseURL: http://osrm.local:5000
poll:
  enabled: false
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ROUTE_CACHE_CAPACITY", "25")
	t.Setenv("NEW_EPISODE_THRESHOLD_METERS", "250.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 25, cfg.Engine.RouteCacheCapacity)
	assert.Equal(t, 4000, cfg.Engine.MaxLegDurationMs)
	assert.Equal(t, 250.5, cfg.Engine.NewEpisodeThresholdMeters)
	// Untouched keys keep their defaults.
	assert.Equal(t, 3, cfg.Engine.PlanningMaxAttempts)
	assert.Equal(t, "http://osrm.local:5000", cfg.Routing.OSRMBaseURL)
	assert.False(t, cfg.Poll.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"max below min":      "engine:\n  minLegDurationMs: 900\n  maxLegDurationMs: 800\n",
		"unknown provider":   "routing:\n  provider: google\n",
		"zero attempts":      "engine:\n  planningMaxAttempts: 0\n",
		"episode below same": "engine:\n  newEpisodeThresholdMeters: 5\n",
		"bad yaml":           "engine: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", writeConfig(t, body))
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsBadEnvNumber(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))
	t.Setenv("PLANNING_TIMEOUT_MS", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresORSKey(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yml"))
	t.Setenv("ROUTING_PROVIDER", "ors")
	t.Setenv("ORS_API_KEY", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("ORS_API_KEY", "key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.Routing.ORSAPIKey)
}

func TestGet(t *testing.T) {
	t.Setenv("TRAJECTORY_TEST_KEY", "")
	assert.Equal(t, "fallback", Get("TRAJECTORY_TEST_KEY", "fallback"))
	t.Setenv("TRAJECTORY_TEST_KEY", "set")
	assert.Equal(t, "set", Get("TRAJECTORY_TEST_KEY", "fallback"))
}
