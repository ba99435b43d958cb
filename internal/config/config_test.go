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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/blinklabs-io/tcr/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobalConfig(t *testing.T) {
	t.Helper()
	globalConfig = defaultConfig()
	// Keep the user and system config files out of the way
	t.Setenv("HOME", t.TempDir())
}

func writeFile(t *testing.T, name string, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	resetGlobalConfig(t)
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadCompareFullStruct(t *testing.T) {
	resetGlobalConfig(t)
	path := writeFile(t, "tcr.yaml", `
databasePath: "/var/lib/tcr"
genesisFile: "genesis.yaml"
bindAddr: "127.0.0.1"
shutdownTimeout: "5s"
apiPort: 9000
metricsPort: 9001
tracing: true
tracingStdout: true
badgerGc: false
badgerBlockCacheSize: 33554432
badgerIndexCacheSize: 8388608
`)
	expected := &Config{
		DatabasePath:         "/var/lib/tcr",
		GenesisFile:          "genesis.yaml",
		BindAddr:             "127.0.0.1",
		ShutdownTimeout:      "5s",
		ApiPort:              9000,
		MetricsPort:          9001,
		Tracing:              true,
		TracingStdout:        true,
		BadgerGc:             false,
		BadgerBlockCacheSize: 32 << 20,
		BadgerIndexCacheSize: 8 << 20,
	}
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, expected, cfg)
}

func TestLoadNestedConfigSection(t *testing.T) {
	resetGlobalConfig(t)
	path := writeFile(t, "tcr.yaml", `
config:
  apiPort: 7000
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	expected := defaultConfig()
	expected.ApiPort = 7000
	// Keys missing from the section keep their defaults
	assert.Equal(t, expected, cfg)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	resetGlobalConfig(t)
	path := writeFile(t, "tcr.yaml", "apiPort: 7000\ndatabasePath: from-file\n")
	t.Setenv("TCR_API_PORT", "7100")
	t.Setenv("TCR_BADGER_GC", "false")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(7100), cfg.ApiPort)
	assert.False(t, cfg.BadgerGc)
	assert.Equal(t, "from-file", cfg.DatabasePath)
}

func TestLoadErrors(t *testing.T) {
	resetGlobalConfig(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	resetGlobalConfig(t)
	_, err = LoadConfig(writeFile(t, "bad.yaml", "apiPort: [1, 2"))
	assert.Error(t, err)

	resetGlobalConfig(t)
	_, err = LoadConfig(writeFile(t, "timeout.yaml", "shutdownTimeout: soon"))
	assert.Error(t, err)
}

func TestShutdownTimeoutDuration(t *testing.T) {
	cfg := &Config{}
	timeout, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)

	cfg.ShutdownTimeout = "-1s"
	_, err = cfg.ShutdownTimeoutDuration()
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := defaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}

func TestLoadGenesis(t *testing.T) {
	genesis, err := LoadGenesis("")
	require.NoError(t, err)
	assert.Equal(t, DefaultGenesis(), genesis)

	path := writeFile(t, "genesis.yaml", "balances:\n  dave: 10\n  erin: 20\n")
	genesis, err = LoadGenesis(path)
	require.NoError(t, err)
	assert.Equal(
		t,
		map[registry.User]registry.Tokens{"dave": 10, "erin": 20},
		genesis.Balances,
	)

	_, err = LoadGenesis(writeFile(t, "empty.yaml", "balances: {}\n"))
	assert.Error(t, err)

	_, err = LoadGenesis(writeFile(t, "negative.yaml", "balances:\n  dave: -1\n"))
	assert.Error(t, err)

	_, err = LoadGenesis(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
