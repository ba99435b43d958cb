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

package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blinklabs-io/tcr/internal/config"
	"github.com/blinklabs-io/tcr/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testTransitions = `
- type: submit_proposal
  proposal: p1
  user: alice
  stake: 40
- type: vote_against
  proposal: p1
  user: bob
  stake: 20
- type: vote_for
  proposal: p1
  user: bob
  stake: 10
- type: resolve
  proposal: p1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadTransitions(t *testing.T) {
	records, err := readTransitions(writeFile(t, "t.yaml", testTransitions))
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, registry.KindSubmitProposal, records[0].Type)
	assert.Equal(t, registry.Tokens(40), records[0].Stake)
	assert.Equal(t, registry.KindResolve, records[3].Type)
	assert.Empty(t, records[3].User)
}

func TestReadTransitionsErrors(t *testing.T) {
	_, err := readTransitions(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	_, err = readTransitions(writeFile(t, "bad.yaml", "type: [unterminated"))
	require.Error(t, err)
}

func TestApplyTransitions(t *testing.T) {
	cfg := &config.Config{DatabasePath: t.TempDir()}
	records, err := readTransitions(writeFile(t, "t.yaml", testTransitions))
	require.NoError(t, err)

	ls, db, err := openLedger(cfg, discardLogger())
	require.NoError(t, err)
	var out bytes.Buffer
	applied, rejected, err := applyTransitions(context.Background(), ls, records, &out)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	assert.Equal(t, 3, applied)
	assert.Equal(t, 1, rejected)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(
		t,
		[]string{
			"0 submit_proposal p1: applied",
			"1 vote_against p1: applied",
			"2 vote_for p1: rejected (duplicate_vote)",
			"3 resolve p1: applied (accepted, remainder 0)",
		},
		lines,
	)

	// The result is persisted for the next command
	ls, db, err = openLedger(cfg, discardLogger())
	require.NoError(t, err)
	defer db.Close()
	state := ls.State()
	assert.Equal(t, registry.Tokens(120), state.Balances["alice"])
	assert.Equal(t, registry.Tokens(80), state.Balances["bob"])
	assert.Equal(t, []registry.Proposal{"p1"}, state.Registry)
	assert.Empty(t, state.Proposals)
}

func TestApplyTransitionsInvalidRecord(t *testing.T) {
	cfg := &config.Config{}
	ls, db, err := openLedger(cfg, discardLogger())
	require.NoError(t, err)
	defer db.Close()
	records := []registry.TransitionRecord{
		{Type: registry.KindResolve, Proposal: "p1"},
		{Type: "burn", Proposal: "p1", User: "alice"},
	}
	var out bytes.Buffer
	applied, rejected, err := applyTransitions(context.Background(), ls, records, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transition 1")
	assert.Equal(t, 0, applied)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, "0 resolve p1: rejected (unknown_proposal)\n", out.String())
}

func TestWriteState(t *testing.T) {
	state := registry.NewState(map[registry.User]registry.Tokens{"alice": 10})
	state.Registry = []registry.Proposal{"p0"}
	var out bytes.Buffer
	require.NoError(t, writeState(&out, state))
	var decoded registry.State
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, registry.Tokens(10), decoded.Balances["alice"])
	assert.Equal(t, []registry.Proposal{"p0"}, decoded.Registry)
}

func TestPrintStateProjection(t *testing.T) {
	cfg := &config.Config{DatabasePath: t.TempDir()}
	records, err := readTransitions(writeFile(t, "t.yaml", testTransitions))
	require.NoError(t, err)
	ls, db, err := openLedger(cfg, discardLogger())
	require.NoError(t, err)
	defer db.Close()
	_, _, err = applyTransitions(context.Background(), ls, records[:2], io.Discard)
	require.NoError(t, err)

	var snapshot, projected bytes.Buffer
	require.NoError(t, printState(&snapshot, ls, db, false, ""))
	require.NoError(t, printState(&projected, ls, db, true, ""))
	assert.Equal(t, snapshot.String(), projected.String())
	var decoded registry.State
	require.NoError(t, yaml.Unmarshal(projected.Bytes(), &decoded))
	assert.Equal(t, registry.Votes{"bob": 20}, decoded.Proposals["p1"].VotesAgainst)

	var out bytes.Buffer
	require.NoError(t, printState(&out, ls, db, true, "alice"))
	assert.Equal(t, "alice: 60\n", out.String())
	out.Reset()
	require.NoError(t, printState(&out, ls, db, false, "bob"))
	assert.Equal(t, "bob: 80\n", out.String())
	assert.Error(t, printState(&out, ls, db, true, "mallory"))
	assert.Error(t, printState(&out, ls, db, false, "mallory"))
}

func TestOpenLedgerBadGenesis(t *testing.T) {
	cfg := &config.Config{
		GenesisFile: writeFile(t, "genesis.yaml", "balances: {}\n"),
	}
	_, _, err := openLedger(cfg, discardLogger())
	require.Error(t, err)
}
