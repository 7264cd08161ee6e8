package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/freeeve/conquest/pkg/conquest"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        string   `env:"PORT" envDefault:"8009"`
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`
	DatabaseURL string   `env:"DATABASE_URL"`
	RedisURL    string   `env:"REDIS_URL"`
	JWTSecret   string   `env:"JWT_SECRET"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
	Dev      bool   `env:"DEV" envDefault:"false"`

	TickPeriod        time.Duration `env:"TICK_PERIOD" envDefault:"1s"`
	TicksPerDay       int           `env:"TICKS_PER_DAY" envDefault:"24"`
	MinPlayers        int           `env:"MIN_PLAYERS" envDefault:"1"`
	ChatHistory       int           `env:"CHAT_HISTORY" envDefault:"50"`
	ResourceSyncTicks int           `env:"RESOURCE_SYNC_TICKS" envDefault:"5"`
	GameRetention     time.Duration `env:"GAME_RETENTION" envDefault:"10m"`
	SnapshotTTL       time.Duration `env:"SNAPSHOT_TTL" envDefault:"1h"`

	RateFood       float64 `env:"RATE_FOOD" envDefault:"20"`
	RateMaterials  float64 `env:"RATE_MATERIALS" envDefault:"10"`
	RateEnergy     float64 `env:"RATE_ENERGY" envDefault:"8"`
	TaxPerProvince float64 `env:"TAX_PER_PROVINCE" envDefault:"5"`

	PostConquestMorale   float64 `env:"POST_CONQUEST_MORALE" envDefault:"40"`
	MoraleRecovery       float64 `env:"MORALE_RECOVERY" envDefault:"1"`
	DeficitMoralePenalty float64 `env:"DEFICIT_MORALE_PENALTY" envDefault:"2"`
	StartingStrength     int     `env:"STARTING_STRENGTH" envDefault:"100"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.TickPeriod <= 0:
		return fmt.Errorf("TICK_PERIOD must be positive, got %s", c.TickPeriod)
	case c.TicksPerDay < 1:
		return fmt.Errorf("TICKS_PER_DAY must be at least 1, got %d", c.TicksPerDay)
	case c.MinPlayers < 1:
		return fmt.Errorf("MIN_PLAYERS must be at least 1, got %d", c.MinPlayers)
	case c.ChatHistory < 1:
		return fmt.Errorf("CHAT_HISTORY must be at least 1, got %d", c.ChatHistory)
	case c.ResourceSyncTicks < 1:
		return fmt.Errorf("RESOURCE_SYNC_TICKS must be at least 1, got %d", c.ResourceSyncTicks)
	case c.RateFood < 0 || c.RateMaterials < 0 || c.RateEnergy < 0 || c.TaxPerProvince < 0:
		return fmt.Errorf("production rates and tax must not be negative")
	case c.PostConquestMorale < 0 || c.PostConquestMorale > 100:
		return fmt.Errorf("POST_CONQUEST_MORALE must be within [0,100], got %v", c.PostConquestMorale)
	case c.MoraleRecovery < 0:
		return fmt.Errorf("MORALE_RECOVERY must not be negative, got %v", c.MoraleRecovery)
	case c.DeficitMoralePenalty < 0:
		return fmt.Errorf("DEFICIT_MORALE_PENALTY must not be negative, got %v", c.DeficitMoralePenalty)
	case c.StartingStrength < 0:
		return fmt.Errorf("STARTING_STRENGTH must not be negative, got %d", c.StartingStrength)
	}
	return nil
}

// Rules projects the configuration onto the default rule set.
func (c *Config) Rules() conquest.Rules {
	r := conquest.DefaultRules()
	r.TicksPerDay = c.TicksPerDay
	r.TaxPerProvince = c.TaxPerProvince
	r.BaseRates = map[conquest.ResourceType]float64{
		conquest.Food:      c.RateFood,
		conquest.Materials: c.RateMaterials,
		conquest.Energy:    c.RateEnergy,
	}
	r.PostConquestMorale = c.PostConquestMorale
	r.MoraleRecovery = c.MoraleRecovery
	r.DeficitMoralePenalty = c.DeficitMoralePenalty
	r.StartingStrength = c.StartingStrength
	return r
}
