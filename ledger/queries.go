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

package ledger

import (
	"slices"

	"github.com/blinklabs-io/tcr/registry"
)

// State returns a copy of the live registry state
func (ls *LedgerState) State() registry.State {
	ls.RLock()
	defer ls.RUnlock()
	return ls.state.Clone()
}

// Balance returns the spendable balance of a user. The second return value
// is false for an unknown user
func (ls *LedgerState) Balance(user registry.User) (registry.Tokens, bool) {
	ls.RLock()
	defer ls.RUnlock()
	balance, ok := ls.state.Balances[user]
	return balance, ok
}

// Proposal returns a copy of a pending proposal
func (ls *LedgerState) Proposal(prop registry.Proposal) (registry.ProposalState, bool) {
	ls.RLock()
	defer ls.RUnlock()
	propState, ok := ls.state.Proposals[prop]
	if !ok {
		return registry.ProposalState{}, false
	}
	return registry.ProposalState{
		VotesFor:     propState.VotesFor.Clone(),
		VotesAgainst: propState.VotesAgainst.Clone(),
	}, true
}

// Proposals returns the names of all pending proposals in sorted order
func (ls *LedgerState) Proposals() []registry.Proposal {
	ls.RLock()
	defer ls.RUnlock()
	ret := make([]registry.Proposal, 0, len(ls.state.Proposals))
	for prop := range ls.state.Proposals {
		ret = append(ret, prop)
	}
	slices.Sort(ret)
	return ret
}

// Registry returns the admitted proposals in admission order
func (ls *LedgerState) Registry() []registry.Proposal {
	ls.RLock()
	defer ls.RUnlock()
	return slices.Clone(ls.state.Registry)
}

// TotalTokens returns the tokens held in balances and stakes
func (ls *LedgerState) TotalTokens() uint64 {
	ls.RLock()
	defer ls.RUnlock()
	return registry.TotalTokens(ls.state)
}
