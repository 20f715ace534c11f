package config

import (
	"path/filepath"
	"testing"
	"time"

	"rating-engine/internal/elo"
	"rating-engine/internal/tier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DevConfig(t *testing.T) {
	t.Setenv("CONFIG_DIR", filepath.Join("..", "..", "configs"))
	t.Setenv("RATING_SERVICE_SECRET", "s3cret")

	cfg, err := Load("dev")
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Environment)
	assert.Equal(t, "s3cret", cfg.JWT.ServiceSecret)
	assert.Equal(t, elo.DefaultParams(), cfg.RatingParams())
	assert.Equal(t, tier.DefaultDeviationParams(), cfg.DeviationParams())
	assert.Equal(t, tier.DefaultBands(), cfg.TierTable().Bands())
	assert.Equal(t, 8, cfg.RoomCapacity())
	assert.Equal(t, 5*time.Second, cfg.PersistenceOptions().Timeout)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())

	_, err := Load("prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.prod.json")
}

func TestParse_EmptyFallsBackToDefaults(t *testing.T) {
	cfg, err := Parse("test", []byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, elo.DefaultParams(), cfg.RatingParams())
	assert.Equal(t, tier.DefaultBands(), cfg.TierTable().Bands())
	assert.Equal(t, 1200, cfg.MatchmakingOptions().Baseline)

	retry := cfg.RetryOptions()
	assert.Equal(t, 30*time.Second, retry.Interval)
	assert.Equal(t, 8, retry.MaxAttempts)
}

func TestParse_Overrides(t *testing.T) {
	cfg, err := Parse("test", []byte(`{
		"rating": {"initialRating": 1500, "normalK": 28},
		"persistence": {"timeoutMs": 250, "maxRetries": 1},
		"matchmaking": {"browseTolerance": 50}
	}`))
	require.NoError(t, err)

	params := cfg.RatingParams()
	assert.Equal(t, 1500, params.InitialRating)
	assert.Equal(t, 28, params.NormalK)
	assert.Equal(t, 48, params.PlacementK)

	assert.Equal(t, 250*time.Millisecond, cfg.PersistenceOptions().Timeout)
	assert.Equal(t, 1, cfg.PersistenceOptions().MaxRetries)
	assert.Equal(t, 1500, cfg.MatchmakingOptions().Baseline)
	assert.Equal(t, 50, cfg.MatchmakingOptions().BrowseTolerance)
}

func TestParse_RejectsInvalidRatingParams(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bounds inverted", `{"rating": {"minRating": 3000, "maxRating": 2000}}`, "minRating"},
		{"initial outside bounds", `{"rating": {"initialRating": 5000}}`, "initialRating"},
		{"coefficient above previous", `{"rating": {"normalK": 45}}`, "normalK"},
		{"master above high", `{"rating": {"masterK": 30}}`, "masterK"},
		{"thresholds inverted", `{"rating": {"highThreshold": 2500}}`, "highThreshold"},
		{"deviation bounds inverted", `{"deviation": {"minRd": 400}}`, "minRd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse("test", []byte(tt.doc))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("RATING_ENV", "")
	assert.Equal(t, "dev", GetEnv())

	t.Setenv("RATING_ENV", "prod")
	assert.Equal(t, "prod", GetEnv())
}
