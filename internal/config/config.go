// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/tcr/registry"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "tcr.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type tempConfig struct {
	Config yaml.Node `yaml:"config,omitempty"`
}

type Config struct {
	DatabasePath         string `yaml:"databasePath"         split_words:"true"`
	GenesisFile          string `yaml:"genesisFile"          split_words:"true"`
	BindAddr             string `yaml:"bindAddr"             split_words:"true"`
	ShutdownTimeout      string `yaml:"shutdownTimeout"      split_words:"true"`
	ApiPort              uint   `yaml:"apiPort"              split_words:"true"`
	MetricsPort          uint   `yaml:"metricsPort"          split_words:"true"`
	Tracing              bool   `yaml:"tracing"`
	TracingStdout        bool   `yaml:"tracingStdout"        split_words:"true"`
	BadgerGc             bool   `yaml:"badgerGc"             split_words:"true"`
	BadgerBlockCacheSize int64  `yaml:"badgerBlockCacheSize" split_words:"true"`
	BadgerIndexCacheSize int64  `yaml:"badgerIndexCacheSize" split_words:"true"`
}

// ShutdownTimeoutDuration parses ShutdownTimeout
func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	ret, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: %w", c.ShutdownTimeout, err)
	}
	if ret <= 0 {
		return 0, fmt.Errorf("invalid shutdownTimeout %q: must be positive", c.ShutdownTimeout)
	}
	return ret, nil
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath:    ".tcr",
		GenesisFile:     "",
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         8080,
		MetricsPort:     12798,
		Tracing:         false,
		TracingStdout:   false,
		BadgerGc:        true,
	}
}

var globalConfig = defaultConfig()

// LoadConfig builds the config from the defaults, then the config file, then
// the environment. With an empty configFile the user and system config
// locations are tried in turn
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".tcr", "tcr.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/tcr/tcr.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		var tempCfg tempConfig
		if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
		// Settings may be nested under a top-level "config" key. The
		// section decodes straight onto the defaults so absent keys keep them
		if !tempCfg.Config.IsZero() {
			if err := tempCfg.Config.Decode(globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(buf, globalConfig); err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}
	}
	// Process environment variables
	if err := envconfig.Process("tcr", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	if _, err := globalConfig.ShutdownTimeoutDuration(); err != nil {
		return nil, err
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Genesis describes the starting balances of a new registry
type Genesis struct {
	Balances map[registry.User]registry.Tokens `yaml:"balances"`
}

// DefaultGenesis returns the three-user fixture used when no genesis file is configured
func DefaultGenesis() *Genesis {
	return &Genesis{
		Balances: map[registry.User]registry.Tokens{
			"alice":   100,
			"bob":     100,
			"charlie": 100,
		},
	}
}

// LoadGenesis reads a genesis file, or returns DefaultGenesis for an empty path
func LoadGenesis(path string) (*Genesis, error) {
	if path == "" {
		return DefaultGenesis(), nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading genesis file: %w", err)
	}
	var ret Genesis
	if err := yaml.Unmarshal(buf, &ret); err != nil {
		return nil, fmt.Errorf("error parsing genesis file: %w", err)
	}
	if len(ret.Balances) == 0 {
		return nil, errors.New("genesis file defines no balances")
	}
	for user := range ret.Balances {
		if user == "" {
			return nil, errors.New("genesis file contains an empty user name")
		}
	}
	return &ret, nil
}
