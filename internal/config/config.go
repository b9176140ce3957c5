package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// EngineConfig collects the product-tunable knobs of the plan generation
// engine. These are deliberately configuration and not code constants:
// none of them is a physical constant, and product wants to tune them
// without a deploy (see especially BreakDropFraction, whose exact cutoff
// has not been confirmed to be load-bearing).
type EngineConfig struct {
	// Safety cap on week-over-week long run growth, in miles.
	LongRunMaxJumpMiles float64 `mapstructure:"long_run_max_jump_miles"`
	// Fractional drop of recent weekly volume vs. baseline that flags an
	// athlete as returning from a break (0.5 = volume halved).
	BreakDropFraction float64 `mapstructure:"break_drop_fraction"`
	// A training gap of at least this many days within the recent window
	// classifies the break as injury/illness rather than life load.
	InjuryGapDays int `mapstructure:"injury_gap_days"`
	// Minimum days of TSB history before zone thresholds are personalized.
	MinZoneSampleDays int `mapstructure:"min_zone_sample_days"`
	// Floor applied to the TSB standard deviation so degenerate (near
	// zero variance) histories cannot collapse the zones.
	ZoneStdDevFloor float64 `mapstructure:"zone_stddev_floor"`
	// Minimum race results before decay constants are calibrated per athlete.
	MinRacesForCalibration int `mapstructure:"min_races_for_calibration"`
	// A recovery week is inserted after this many consecutive build weeks.
	RecoveryIntervalWeeks int `mapstructure:"recovery_interval_weeks"`
	// Duration threshold above which a run counts toward long run stats.
	LongRunMinMinutes float64 `mapstructure:"long_run_min_minutes"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: engine.long_run_max_jump_miles ->
	// ENGINE_LONG_RUN_MAX_JUMP_MILES and so on.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	// --- Defaults ---
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "plan_engine_default")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")

	viper.SetDefault("engine.long_run_max_jump_miles", 3.0)
	viper.SetDefault("engine.break_drop_fraction", 0.5)
	viper.SetDefault("engine.injury_gap_days", 21)
	viper.SetDefault("engine.min_zone_sample_days", 56)
	viper.SetDefault("engine.zone_stddev_floor", 5.0)
	viper.SetDefault("engine.min_races_for_calibration", 3)
	viper.SetDefault("engine.recovery_interval_weeks", 4)
	viper.SetDefault("engine.long_run_min_minutes", 75)

	err = viper.ReadInConfig()
	// Config file is optional; env vars plus defaults are a valid setup.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}

// DefaultEngineConfig returns the engine tunables with their shipped
// defaults, without touching Viper. The engine packages take an
// EngineConfig value directly so tests can construct one without a file.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LongRunMaxJumpMiles:    3.0,
		BreakDropFraction:      0.5,
		InjuryGapDays:          21,
		MinZoneSampleDays:      56,
		ZoneStdDevFloor:        5.0,
		MinRacesForCalibration: 3,
		RecoveryIntervalWeeks:  4,
		LongRunMinMinutes:      75,
	}
}
