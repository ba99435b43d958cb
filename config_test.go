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

package tcr

import (
	"testing"
	"time"

	"github.com/blinklabs-io/tcr/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.NotNil(t, cfg.logger)
	assert.Equal(t, DefaultShutdownTimeout, cfg.shutdownTimeout)
	assert.Empty(t, cfg.dataDir)
	assert.Empty(t, cfg.apiListenAddress)
	assert.False(t, cfg.tracing)
}

func TestNewConfigOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	genesis := map[registry.User]registry.Tokens{"alice": 5}
	cfg := NewConfig(
		WithDatabasePath("/data"),
		WithBadgerGc(true),
		WithBadgerCacheSizes(32<<20, 8<<20),
		WithGenesis(genesis),
		WithApiListenAddress(":9000"),
		WithPrometheusRegistry(reg),
		WithTracing(true),
		WithTracingStdout(true),
		WithShutdownTimeout(5*time.Second),
		// nil keeps the discard logger
		WithLogger(nil),
	)
	assert.Equal(t, "/data", cfg.dataDir)
	assert.True(t, cfg.badgerGc)
	assert.Equal(t, int64(32<<20), cfg.blockCacheSize)
	assert.Equal(t, int64(8<<20), cfg.indexCacheSize)
	assert.Equal(t, genesis, cfg.genesis)
	assert.Equal(t, ":9000", cfg.apiListenAddress)
	assert.Same(t, reg, cfg.promRegistry)
	assert.True(t, cfg.tracing)
	assert.True(t, cfg.tracingStdout)
	assert.Equal(t, 5*time.Second, cfg.shutdownTimeout)
	assert.NotNil(t, cfg.logger)
}
