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

package database

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/blinklabs-io/tcr/database/models"
	"github.com/blinklabs-io/tcr/database/types"
	"github.com/blinklabs-io/tcr/registry"
	"github.com/fxamacker/cbor/v2"
)

const stateBlobKey = "registry_state"

// ErrStateNotFound is returned when no registry state has been persisted yet
var ErrStateNotFound = errors.New("registry state not found")

var snapshotEncMode cbor.EncMode

func init() {
	// Core deterministic encoding sorts map keys, so equal states encode identically
	encMode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoding mode: %s", err))
	}
	snapshotEncMode = encMode
}

// EncodeState returns the CBOR snapshot of a registry state
func EncodeState(state registry.State) ([]byte, error) {
	return snapshotEncMode.Marshal(state)
}

// DecodeState parses a CBOR snapshot. Missing maps come back empty and an
// empty registry comes back nil
func DecodeState(data []byte) (registry.State, error) {
	var tmp registry.State
	if err := cbor.Unmarshal(data, &tmp); err != nil {
		return registry.State{}, fmt.Errorf("decode registry state: %w", err)
	}
	ret := tmp.Clone()
	if len(ret.Registry) == 0 {
		ret.Registry = nil
	}
	return ret, nil
}

// SetState writes the snapshot and replaces the relational projection
// within txn. A nil txn runs in a transaction of its own
func (d *Database) SetState(state registry.State, txn *Txn) error {
	if txn == nil {
		return d.Transaction(true).Do(func(txn *Txn) error {
			return d.SetState(state, txn)
		})
	}
	data, err := EncodeState(state)
	if err != nil {
		return fmt.Errorf("encode registry state: %w", err)
	}
	if err := d.blob.Set(txn.Blob(), []byte(stateBlobKey), data); err != nil {
		return fmt.Errorf("write registry state: %w", err)
	}
	if txn.Metadata() == nil {
		return nil
	}
	balances, proposals, entries := projectState(state)
	if err := d.metadata.ReplaceProjection(
		balances,
		proposals,
		entries,
		txn.Metadata(),
	); err != nil {
		return fmt.Errorf("write registry projection: %w", err)
	}
	return nil
}

// GetState reads the persisted snapshot. A nil txn reads in a blob-only
// transaction of its own
func (d *Database) GetState(txn *Txn) (registry.State, error) {
	if txn == nil {
		txn = NewBlobOnlyTxn(d, false)
		defer txn.Release()
	}
	data, err := d.blob.Get(txn.Blob(), []byte(stateBlobKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return registry.State{}, ErrStateNotFound
		}
		return registry.State{}, err
	}
	return DecodeState(data)
}

// GetBalance returns a user's projected balance. The second return value
// is false for an unknown user
func (d *Database) GetBalance(user registry.User) (registry.Tokens, bool, error) {
	tmpBalance, err := d.metadata.GetBalance(string(user), nil)
	if err != nil {
		return 0, false, err
	}
	if tmpBalance == nil {
		return 0, false, nil
	}
	return registry.Tokens(tmpBalance.Amount), true, nil
}

// GetRegistryEntries returns the admitted proposals in admission order
func (d *Database) GetRegistryEntries() ([]registry.Proposal, error) {
	entries, err := d.metadata.GetRegistryEntries(nil)
	if err != nil {
		return nil, err
	}
	ret := make([]registry.Proposal, 0, len(entries))
	for _, entry := range entries {
		ret = append(ret, registry.Proposal(entry.Name))
	}
	return ret, nil
}

// GetPendingProposals returns the projected pending proposals keyed by name
func (d *Database) GetPendingProposals() (map[registry.Proposal]registry.ProposalState, error) {
	tmpProposals, err := d.metadata.GetPendingProposals(nil)
	if err != nil {
		return nil, err
	}
	ret := make(map[registry.Proposal]registry.ProposalState, len(tmpProposals))
	for _, tmpProposal := range tmpProposals {
		propState := registry.ProposalState{
			VotesFor:     registry.Votes{},
			VotesAgainst: registry.Votes{},
		}
		for _, vote := range tmpProposal.Votes {
			if vote.IsFor() {
				propState.VotesFor[registry.User(vote.User)] = registry.Tokens(vote.Stake)
			} else {
				propState.VotesAgainst[registry.User(vote.User)] = registry.Tokens(vote.Stake)
			}
		}
		ret[registry.Proposal(tmpProposal.Name)] = propState
	}
	return ret, nil
}

// GetProjectedState rebuilds a registry state from the relational projection
func (d *Database) GetProjectedState() (registry.State, error) {
	tmpBalances, err := d.metadata.GetBalances(nil)
	if err != nil {
		return registry.State{}, err
	}
	balances := make(map[registry.User]registry.Tokens, len(tmpBalances))
	for _, tmpBalance := range tmpBalances {
		balances[registry.User(tmpBalance.User)] = registry.Tokens(tmpBalance.Amount)
	}
	ret := registry.NewState(balances)
	if ret.Proposals, err = d.GetPendingProposals(); err != nil {
		return registry.State{}, err
	}
	if ret.Registry, err = d.GetRegistryEntries(); err != nil {
		return registry.State{}, err
	}
	return ret, nil
}

func projectState(
	state registry.State,
) ([]models.Balance, []models.Proposal, []models.RegistryEntry) {
	balances := make([]models.Balance, 0, len(state.Balances))
	for _, user := range slices.Sorted(maps.Keys(state.Balances)) {
		balances = append(balances, models.Balance{
			User:   string(user),
			Amount: uint32(state.Balances[user]),
		})
	}
	proposals := make([]models.Proposal, 0, len(state.Proposals))
	for _, prop := range slices.Sorted(maps.Keys(state.Proposals)) {
		propState := state.Proposals[prop]
		tmpProposal := models.Proposal{
			Name:         string(prop),
			TotalFor:     uint64(propState.VotesFor.Total()),
			TotalAgainst: uint64(propState.VotesAgainst.Total()),
		}
		for _, user := range slices.Sorted(maps.Keys(propState.VotesFor)) {
			tmpProposal.Votes = append(tmpProposal.Votes, models.ProposalVote{
				ProposalName: string(prop),
				User:         string(user),
				Side:         models.VoteSideFor,
				Stake:        uint32(propState.VotesFor[user]),
			})
		}
		for _, user := range slices.Sorted(maps.Keys(propState.VotesAgainst)) {
			tmpProposal.Votes = append(tmpProposal.Votes, models.ProposalVote{
				ProposalName: string(prop),
				User:         string(user),
				Side:         models.VoteSideAgainst,
				Stake:        uint32(propState.VotesAgainst[user]),
			})
		}
		proposals = append(proposals, tmpProposal)
	}
	entries := make([]models.RegistryEntry, 0, len(state.Registry))
	for idx, prop := range state.Registry {
		entries = append(entries, models.RegistryEntry{
			Position: uint(idx + 1), //nolint:gosec // registry length fits
			Name:     string(prop),
		})
	}
	return balances, proposals, entries
}
