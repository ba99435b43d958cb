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

package database_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/tcr/database"
	"github.com/blinklabs-io/tcr/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T, dataDir string) *database.Database {
	t.Helper()
	db, err := database.New(database.Config{DataDir: dataDir})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func testState() registry.State {
	state := registry.NewState(map[registry.User]registry.Tokens{
		"alice":   60,
		"bob":     90,
		"charlie": 100,
	})
	state.Proposals["widget"] = registry.ProposalState{
		VotesFor:     registry.Votes{"alice": 40},
		VotesAgainst: registry.Votes{"bob": 10},
	}
	state.Registry = []registry.Proposal{"gadget", "doohickey"}
	return state
}

func TestGetStateNotFound(t *testing.T) {
	db := newTestDatabase(t, "")
	_, err := db.GetState(nil)
	assert.ErrorIs(t, err, database.ErrStateNotFound)
}

func TestSetGetState(t *testing.T) {
	db := newTestDatabase(t, "")
	state := testState()
	require.NoError(t, db.SetState(state, nil))
	got, err := db.GetState(nil)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestSetGetStateEmpty(t *testing.T) {
	db := newTestDatabase(t, "")
	state := registry.NewState(nil)
	require.NoError(t, db.SetState(state, nil))
	got, err := db.GetState(nil)
	require.NoError(t, err)
	assert.Equal(t, state, got)
	assert.NotNil(t, got.Balances)
	assert.NotNil(t, got.Proposals)
	assert.Nil(t, got.Registry)
}

func TestEncodeStateDeterministic(t *testing.T) {
	stateA := registry.NewState(nil)
	stateB := registry.NewState(nil)
	users := []registry.User{"alice", "bob", "charlie", "dave", "erin"}
	for idx, user := range users {
		stateA.Balances[user] = registry.Tokens(idx)
	}
	for idx := len(users) - 1; idx >= 0; idx-- {
		stateB.Balances[users[idx]] = registry.Tokens(idx)
	}
	dataA, err := database.EncodeState(stateA)
	require.NoError(t, err)
	dataB, err := database.EncodeState(stateB)
	require.NoError(t, err)
	assert.Equal(t, dataA, dataB)
}

func TestDecodeStateInvalid(t *testing.T) {
	_, err := database.DecodeState([]byte{0xff, 0x00})
	assert.Error(t, err)
}

func TestProjection(t *testing.T) {
	db := newTestDatabase(t, "")
	state := testState()
	require.NoError(t, db.SetState(state, nil))

	balance, ok, err := db.GetBalance("bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, registry.Tokens(90), balance)

	_, ok, err = db.GetBalance("mallory")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := db.GetRegistryEntries()
	require.NoError(t, err)
	assert.Equal(t, []registry.Proposal{"gadget", "doohickey"}, entries)

	proposals, err := db.GetPendingProposals()
	require.NoError(t, err)
	assert.Equal(t, state.Proposals, proposals)

	// A second write replaces the projection rather than adding to it
	state.Proposals = map[registry.Proposal]registry.ProposalState{}
	state.Registry = append(state.Registry, "widget")
	require.NoError(t, db.SetState(state, nil))
	proposals, err = db.GetPendingProposals()
	require.NoError(t, err)
	assert.Empty(t, proposals)
	entries, err = db.GetRegistryEntries()
	require.NoError(t, err)
	assert.Equal(t, []registry.Proposal{"gadget", "doohickey", "widget"}, entries)
}

func TestTxnDoRollback(t *testing.T) {
	db := newTestDatabase(t, "")
	errTest := errors.New("test failure")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := db.SetState(testState(), txn); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)
	_, err = db.GetState(nil)
	assert.ErrorIs(t, err, database.ErrStateNotFound)
	_, ok, err := db.GetBalance("alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTxnCommitTwice(t *testing.T) {
	db := newTestDatabase(t, "")
	txn := db.Transaction(true)
	require.NoError(t, db.SetState(testState(), txn))
	require.NoError(t, txn.Commit())
	assert.NoError(t, txn.Commit())
	assert.NoError(t, txn.Rollback())
	txn.Release()
}

func TestPersistentReopen(t *testing.T) {
	dataDir := t.TempDir()
	state := testState()
	db, err := database.New(database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.SetState(state, nil))
	require.NoError(t, db.Close())

	db = newTestDatabase(t, dataDir)
	got, err := db.GetState(nil)
	require.NoError(t, err)
	assert.Equal(t, state, got)
	entries, err := db.GetRegistryEntries()
	require.NoError(t, err)
	assert.Equal(t, state.Registry, entries)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dataDir := t.TempDir()
	db, err := database.New(database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.SetState(testState(), nil))
	// Move only the blob store's timestamp
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(1, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(database.Config{DataDir: dataDir})
	if db != nil {
		defer db.Close()
	}
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)
	assert.NotEqual(t, tsErr.BlobTimestamp, tsErr.MetadataTimestamp)
}

func TestBlobCacheSizes(t *testing.T) {
	db, err := database.New(database.Config{
		BlobBlockCacheSize: 8 << 20,
		BlobIndexCacheSize: 2 << 20,
	})
	require.NoError(t, err)
	defer db.Close()
	opts := db.Blob().DB().Opts()
	assert.Equal(t, int64(8<<20), opts.BlockCacheSize)
	assert.Equal(t, int64(2<<20), opts.IndexCacheSize)
}
