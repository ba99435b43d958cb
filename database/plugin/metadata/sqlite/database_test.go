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

package sqlite

import (
	"testing"

	"github.com/blinklabs-io/tcr/database/models"
	"github.com/blinklabs-io/tcr/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxn struct{}

func (fakeTxn) Commit() error   { return nil }
func (fakeTxn) Rollback() error { return nil }

func newTestStore(t *testing.T) *MetadataStoreSqlite {
	t.Helper()
	store, err := New("", nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	storeA := newTestStore(t)
	storeB := newTestStore(t)
	txn := storeA.Transaction()
	require.NoError(t, storeA.ReplaceProjection(
		[]models.Balance{{User: "alice", Amount: 10}},
		nil,
		nil,
		txn,
	))
	require.NoError(t, txn.Commit())

	balance, err := storeA.GetBalance("alice", nil)
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, uint32(10), balance.Amount)

	balance, err = storeB.GetBalance("alice", nil)
	require.NoError(t, err)
	assert.Nil(t, balance)
}

func TestReplaceProjection(t *testing.T) {
	store := newTestStore(t)
	txn := store.Transaction()
	require.NoError(t, store.ReplaceProjection(
		[]models.Balance{
			{User: "bob", Amount: 70},
			{User: "alice", Amount: 50},
		},
		[]models.Proposal{
			{
				Name:         "widget",
				TotalFor:     50,
				TotalAgainst: 30,
				Votes: []models.ProposalVote{
					{ProposalName: "widget", User: "bob", Side: models.VoteSideAgainst, Stake: 30},
					{ProposalName: "widget", User: "alice", Side: models.VoteSideFor, Stake: 50},
				},
			},
		},
		[]models.RegistryEntry{
			{Position: 1, Name: "gadget"},
		},
		txn,
	))
	require.NoError(t, txn.Commit())

	balances, err := store.GetBalances(nil)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "alice", balances[0].User)

	proposal, err := store.GetPendingProposal("widget", nil)
	require.NoError(t, err)
	require.NotNil(t, proposal)
	require.Len(t, proposal.Votes, 2)
	assert.Equal(t, "alice", proposal.Votes[0].User)
	assert.True(t, proposal.Votes[0].IsFor())
	assert.False(t, proposal.Votes[1].IsFor())

	missing, err := store.GetPendingProposal("nothing", nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Replace with an empty projection
	txn = store.Transaction()
	require.NoError(t, store.ReplaceProjection(nil, nil, nil, txn))
	require.NoError(t, txn.Commit())
	proposals, err := store.GetPendingProposals(nil)
	require.NoError(t, err)
	assert.Empty(t, proposals)
	entries, err := store.GetRegistryEntries(nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
	var voteCount int64
	require.NoError(t, store.DB().Model(&models.ProposalVote{}).Count(&voteCount).Error)
	assert.Equal(t, int64(0), voteCount)
}

func TestTxDB(t *testing.T) {
	store := newTestStore(t)
	_, err := store.txDB(fakeTxn{})
	assert.ErrorIs(t, err, types.ErrTxnWrongType)

	txn := store.Transaction()
	require.NoError(t, txn.Rollback())
	_, err = store.txDB(txn)
	assert.ErrorIs(t, err, types.ErrTxnFinished)

	assert.ErrorIs(t, store.ReplaceProjection(nil, nil, nil, nil), types.ErrNilTxn)
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	for _, want := range []int64{100, 200} {
		txn := store.Transaction()
		require.NoError(t, store.SetCommitTimestamp(want, txn))
		require.NoError(t, txn.Commit())
		ts, err = store.GetCommitTimestamp()
		require.NoError(t, err)
		assert.Equal(t, want, ts)
	}
}
