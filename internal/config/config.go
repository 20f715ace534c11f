package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rating-engine/internal/elo"
	"rating-engine/internal/matchmaking"
	"rating-engine/internal/models"
	"rating-engine/internal/services"
	"rating-engine/internal/tier"
)

type Config struct {
	Environment string `json:"environment"`
	Server      struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`
	MongoDB struct {
		URI      string `json:"uri"`
		Database string `json:"database"`
	} `json:"mongodb"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	Frontend struct {
		URL string `json:"url"`
	} `json:"frontend"`
	JWT struct {
		ServiceSecret string `json:"serviceSecret"`
		ServiceTTL    int    `json:"serviceTtl"` // in hours
	} `json:"jwt"`
	Rating struct {
		MinRating        int `json:"minRating"`
		MaxRating        int `json:"maxRating"`
		InitialRating    int `json:"initialRating"`
		PlacementGames   int `json:"placementGames"`
		ProvisionalGames int `json:"provisionalGames"`
		HighThreshold    int `json:"highThreshold"`
		MasterThreshold  int `json:"masterThreshold"`
		PlacementK       int `json:"placementK"`
		ProvisionalK     int `json:"provisionalK"`
		NormalK          int `json:"normalK"`
		HighK            int `json:"highK"`
		MasterK          int `json:"masterK"`
		StreakUnit       int `json:"streakUnit"`
		MaxStreakBonus   int `json:"maxStreakBonus"`
		MarginMax        int `json:"marginMax"`
	} `json:"rating"`
	Deviation   tier.DeviationParams `json:"deviation"`
	Tiers       []tier.Band          `json:"tiers"`
	Matchmaking struct {
		BrowseTolerance   int `json:"browseTolerance"`
		RoomCapacity      int `json:"roomCapacity"`
		RequestsPerMinute int `json:"requestsPerMinute"`
	} `json:"matchmaking"`
	Persistence struct {
		TimeoutMs   int `json:"timeoutMs"`
		MaxRetries  int `json:"maxRetries"`
		Concurrency int `json:"concurrency"`
	} `json:"persistence"`
	Retry struct {
		IntervalSeconds int `json:"intervalSeconds"`
		BatchSize       int `json:"batchSize"`
		MaxAttempts     int `json:"maxAttempts"`
		BackoffSeconds  int `json:"backoffSeconds"`
	} `json:"retry"`
}

func Load(env string) (*Config, error) {
	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		// Default to configs directory relative to working directory
		configDir = "configs"
	}

	filename := fmt.Sprintf("config.%s.json", env)
	configPath := filepath.Join(configDir, filename)

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return Parse(env, data)
}

// Parse decodes a config document after expanding ${VAR} references.
func Parse(env string, data []byte) (*Config, error) {
	configStr := expandEnvVars(string(data))

	var cfg Config
	if err := json.Unmarshal([]byte(configStr), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Environment = env
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// validate checks the effective rating and deviation constants, after defaults
// have been applied.
func (c *Config) validate() error {
	p := c.RatingParams()
	if p.MinRating >= p.MaxRating {
		return fmt.Errorf("rating.minRating (%d) must be below rating.maxRating (%d)", p.MinRating, p.MaxRating)
	}
	if p.InitialRating < p.MinRating || p.InitialRating > p.MaxRating {
		return fmt.Errorf("rating.initialRating (%d) must lie within [%d, %d]", p.InitialRating, p.MinRating, p.MaxRating)
	}
	if p.HighThreshold >= p.MasterThreshold {
		return fmt.Errorf("rating.highThreshold (%d) must be below rating.masterThreshold (%d)", p.HighThreshold, p.MasterThreshold)
	}

	ladder := []struct {
		name string
		k    int
	}{
		{"placementK", p.PlacementK},
		{"provisionalK", p.ProvisionalK},
		{"normalK", p.NormalK},
		{"highK", p.HighK},
		{"masterK", p.MasterK},
	}
	for i := 1; i < len(ladder); i++ {
		if ladder[i].k >= ladder[i-1].k {
			return fmt.Errorf("rating.%s (%d) must be below rating.%s (%d)",
				ladder[i].name, ladder[i].k, ladder[i-1].name, ladder[i-1].k)
		}
	}

	d := c.DeviationParams()
	if d.MinRD > d.MaxRD {
		return fmt.Errorf("deviation.minRd (%g) must not exceed deviation.maxRd (%g)", d.MinRD, d.MaxRD)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} with environment variable values
func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func GetEnv() string {
	env := os.Getenv("RATING_ENV")
	if env == "" {
		return "dev"
	}
	return env
}

// RatingParams overlays the configured rating constants on the defaults.
func (c *Config) RatingParams() elo.Params {
	p := elo.DefaultParams()
	r := c.Rating
	setInt(&p.MinRating, r.MinRating)
	setInt(&p.MaxRating, r.MaxRating)
	setInt(&p.InitialRating, r.InitialRating)
	setInt(&p.PlacementGames, r.PlacementGames)
	setInt(&p.ProvisionalGames, r.ProvisionalGames)
	setInt(&p.HighThreshold, r.HighThreshold)
	setInt(&p.MasterThreshold, r.MasterThreshold)
	setInt(&p.PlacementK, r.PlacementK)
	setInt(&p.ProvisionalK, r.ProvisionalK)
	setInt(&p.NormalK, r.NormalK)
	setInt(&p.HighK, r.HighK)
	setInt(&p.MasterK, r.MasterK)
	setInt(&p.StreakUnit, r.StreakUnit)
	setInt(&p.MaxStreakBonus, r.MaxStreakBonus)
	setInt(&p.MarginMax, r.MarginMax)
	return p
}

func (c *Config) DeviationParams() tier.DeviationParams {
	p := tier.DefaultDeviationParams()
	d := c.Deviation
	setFloat(&p.MinRD, d.MinRD)
	setFloat(&p.MaxRD, d.MaxRD)
	setFloat(&p.InitialRD, d.InitialRD)
	setFloat(&p.DecayPerDay, d.DecayPerDay)
	setFloat(&p.ShrinkPerGame, d.ShrinkPerGame)
	return p
}

func (c *Config) TierTable() *tier.Table {
	return tier.NewTable(c.Tiers)
}

func (c *Config) MatchmakingOptions() matchmaking.Options {
	return matchmaking.Options{
		Baseline:        c.RatingParams().InitialRating,
		BrowseTolerance: c.Matchmaking.BrowseTolerance,
	}
}

func (c *Config) RoomCapacity() int {
	if c.Matchmaking.RoomCapacity <= 0 {
		return models.DefaultRoomCapacity
	}
	return c.Matchmaking.RoomCapacity
}

func (c *Config) PersistenceOptions() services.PersistenceOptions {
	opts := services.DefaultPersistenceOptions()
	p := c.Persistence
	if p.TimeoutMs > 0 {
		opts.Timeout = time.Duration(p.TimeoutMs) * time.Millisecond
	}
	if p.MaxRetries > 0 {
		opts.MaxRetries = p.MaxRetries
	}
	setInt(&opts.Concurrency, p.Concurrency)
	return opts
}

func (c *Config) RetryOptions() services.RetryOptions {
	opts := services.DefaultRetryOptions()
	r := c.Retry
	if r.IntervalSeconds > 0 {
		opts.Interval = time.Duration(r.IntervalSeconds) * time.Second
	}
	if r.BackoffSeconds > 0 {
		opts.Backoff = time.Duration(r.BackoffSeconds) * time.Second
	}
	setInt(&opts.BatchSize, r.BatchSize)
	setInt(&opts.MaxAttempts, r.MaxAttempts)
	return opts
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
