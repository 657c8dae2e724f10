package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL       string
	Contract     string
	Arbitrator   string
	InitialBlock int64
	Account      string
	Currency     string
	Concurrency  int
	MaxRetries   int
	RetryBackoff time.Duration
	Out          string
	PGDSN        string
	StatePath    string
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
// InitialBlock below zero means "use the network's builtin table".
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("initial-block", int64(-1))
	v.SetDefault("currency", "TRST")
	v.SetDefault("concurrency", 8)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("out", "./data/questions.jsonl")
	v.SetDefault("state", "./data/scan_state.json")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:       v.GetString("rpc"),
		Contract:     v.GetString("contract"),
		Arbitrator:   v.GetString("arbitrator"),
		InitialBlock: v.GetInt64("initial-block"),
		Account:      v.GetString("account"),
		Currency:     v.GetString("currency"),
		Concurrency:  v.GetInt("concurrency"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		StatePath:    v.GetString("state"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// ResolveInitialBlock picks the scan start: an explicit configuration wins,
// otherwise the network table decides, otherwise zero (full history).
func (c Config) ResolveInitialBlock(chainID uint64) uint64 {
	if c.InitialBlock >= 0 {
		return uint64(c.InitialBlock)
	}
	if block, ok := InitialBlock(chainID); ok {
		return block
	}
	return 0
}
