package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultTopic            = "winter_activity"
	defaultBrokerAddr       = "localhost:9092"
	defaultGroupID          = "winter_consumers"
	defaultBindHost         = "127.0.0.1"
	defaultAPIPort          = 3000
	defaultSnapshotInterval = 5
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Topic                string `mapstructure:"topic"`
	BrokerAddress        string `mapstructure:"broker-address"`
	GroupID              string `mapstructure:"group-id"`
	StorePath            string `mapstructure:"store-path"`
	APIEnabled           bool   `mapstructure:"api-enabled"`
	APIPort              int    `mapstructure:"api-port"`
	APIAddr              string `mapstructure:"api-addr"`
	SnapshotIntervalSecs int    `mapstructure:"snapshot-interval-secs"`
	ConfigPath           string `mapstructure:"-"` // not from config file
}

func (c appConfig) snapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalSecs) * time.Second
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultStorePath := filepath.Join(home, ".local", "share", "snowpulse", "snowpulse.db")

	v := viper.New()
	v.SetEnvPrefix("SNOWPULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("topic", defaultTopic)
	v.SetDefault("broker-address", defaultBrokerAddr)
	v.SetDefault("group-id", defaultGroupID)
	v.SetDefault("store-path", defaultStorePath)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("snapshot-interval-secs", defaultSnapshotInterval)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "snowpulse", "consumer.yml"))
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

	if cfg.Topic == "" {
		return cfg, errors.New("topic must not be empty")
	}
	if cfg.GroupID == "" {
		return cfg, errors.New("group-id must not be empty")
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.SnapshotIntervalSecs <= 0 {
		return cfg, fmt.Errorf("invalid snapshot-interval-secs: %d", cfg.SnapshotIntervalSecs)
	}

	// Expand ~ in store-path
	if strings.HasPrefix(cfg.StorePath, "~/") {
		cfg.StorePath = filepath.Join(home, cfg.StorePath[2:])
	}

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(defaultBindHost, strconv.Itoa(cfg.APIPort))
	}

	return cfg, nil
}
