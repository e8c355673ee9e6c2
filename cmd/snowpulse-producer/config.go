package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultIntervalSecs = 5
	defaultTopic        = "winter_activity"
	defaultBrokerAddr   = "localhost:9092"
	defaultProbeEvery   = 30
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	IntervalSecs  int    `mapstructure:"message-interval-secs"`
	Topic         string `mapstructure:"topic"`
	BrokerAddress string `mapstructure:"broker-address"`
	JournalPath   string `mapstructure:"journal-path"`
	ProbeEvery    int    `mapstructure:"probe-every"`
	ConfigPath    string `mapstructure:"-"` // not from config file
}

func (c appConfig) interval() time.Duration {
	return time.Duration(c.IntervalSecs) * time.Second
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultJournalPath := filepath.Join(home, ".local", "share", "snowpulse", "winter_live.jsonl")

	v := viper.New()
	v.SetEnvPrefix("SNOWPULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("message-interval-secs", defaultIntervalSecs)
	v.SetDefault("topic", defaultTopic)
	v.SetDefault("broker-address", defaultBrokerAddr)
	v.SetDefault("journal-path", defaultJournalPath)
	v.SetDefault("probe-every", defaultProbeEvery)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "snowpulse", "producer.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.IntervalSecs <= 0 {
		return cfg, fmt.Errorf("invalid message-interval-secs: %d", cfg.IntervalSecs)
	}
	if cfg.Topic == "" {
		return cfg, errors.New("topic must not be empty")
	}

	// Expand ~ in journal-path
	if strings.HasPrefix(cfg.JournalPath, "~/") {
		cfg.JournalPath = filepath.Join(home, cfg.JournalPath[2:])
	}

	return cfg, nil
}
