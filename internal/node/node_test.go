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

package node

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/tcr/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func freePort(t *testing.T) uint {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return uint(port) //nolint:gosec // port from the kernel
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DatabasePath:    t.TempDir(),
		BindAddr:        "127.0.0.1",
		ShutdownTimeout: "5s",
	}
}

func TestRunContextInvalidShutdownTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.ShutdownTimeout = "soon"
	reg := prometheus.NewRegistry()
	err := RunContext(context.Background(), cfg, discardLogger(), reg, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid shutdownTimeout")
}

func TestRunContextMissingGenesisFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.GenesisFile = filepath.Join(t.TempDir(), "missing.yaml")
	reg := prometheus.NewRegistry()
	err := RunContext(context.Background(), cfg, discardLogger(), reg, reg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genesis")
}

func TestRunContextServesMetrics(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := testConfig(t)
	cfg.MetricsPort = freePort(t)
	genesisPath := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(
		t,
		os.WriteFile(genesisPath, []byte("balances:\n  dave: 42\n"), 0o600),
	)
	cfg.GenesisFile = genesisPath
	reg := prometheus.NewRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunContext(ctx, cfg, discardLogger(), reg, reg)
	}()

	client := &http.Client{
		Transport: &http.Transport{DisableKeepAlives: true},
		Timeout:   time.Second,
	}
	url := fmt.Sprintf("http://127.0.0.1:%d/metrics", cfg.MetricsPort)
	var body string
	require.Eventually(t, func() bool {
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		buf, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(buf)
		return strings.Contains(body, "tcr_total_tokens")
	}, 10*time.Second, 50*time.Millisecond)
	assert.Contains(t, body, "tcr_total_tokens 42")

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for shutdown")
	}
}
