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

package registry

import (
	"maps"
	"slices"
)

// Proposal identifies an entry seeking admission to the registry
type Proposal string

// User identifies a participant holding tokens
type User string

// Tokens is a balance or stake amount
type Tokens uint32

// Votes maps each voter on one side of a proposal to their stake
type Votes map[User]Tokens

// Total returns the saturating sum of all stakes
func (v Votes) Total() Tokens {
	var total Tokens
	for _, stake := range v {
		total = total.SaturatingAdd(stake)
	}
	return total
}

// Clone returns a copy of the votes. The copy is never nil
func (v Votes) Clone() Votes {
	ret := make(Votes, len(v))
	maps.Copy(ret, v)
	return ret
}

// ProposalState holds the stakes recorded for a pending proposal
type ProposalState struct {
	VotesFor     Votes `cbor:"1,keyasint" json:"votesFor"     yaml:"votesFor"`
	VotesAgainst Votes `cbor:"2,keyasint" json:"votesAgainst" yaml:"votesAgainst"`
}

// NewProposalState returns the state of a freshly submitted proposal, with
// the proposer's stake as the only vote in favor
func NewProposalState(proposer User, stake Tokens) ProposalState {
	return ProposalState{
		VotesFor:     Votes{proposer: stake},
		VotesAgainst: Votes{},
	}
}

// HasVoted reports whether the user has a stake on either side
func (p ProposalState) HasVoted(user User) bool {
	if _, ok := p.VotesFor[user]; ok {
		return true
	}
	_, ok := p.VotesAgainst[user]
	return ok
}

// Staked returns the saturating sum of both sides
func (p ProposalState) Staked() Tokens {
	return p.VotesFor.Total().SaturatingAdd(p.VotesAgainst.Total())
}

func (p ProposalState) clone() ProposalState {
	return ProposalState{
		VotesFor:     p.VotesFor.Clone(),
		VotesAgainst: p.VotesAgainst.Clone(),
	}
}

// State is the full state of the registry
type State struct {
	// Spendable balances. Staked tokens are not included
	Balances map[User]Tokens `cbor:"1,keyasint" json:"balances"  yaml:"balances"`
	// Proposals currently under vote
	Proposals map[Proposal]ProposalState `cbor:"2,keyasint" json:"proposals" yaml:"proposals"`
	// Admitted proposals in admission order
	Registry []Proposal `cbor:"3,keyasint" json:"registry"  yaml:"registry"`
}

// NewState returns an empty registry funded with the given balances
func NewState(balances map[User]Tokens) State {
	ret := State{
		Balances:  make(map[User]Tokens, len(balances)),
		Proposals: make(map[Proposal]ProposalState),
	}
	maps.Copy(ret.Balances, balances)
	return ret
}

// Clone returns a deep copy of the state
func (s State) Clone() State {
	ret := State{
		Balances:  make(map[User]Tokens, len(s.Balances)),
		Proposals: make(map[Proposal]ProposalState, len(s.Proposals)),
		Registry:  slices.Clone(s.Registry),
	}
	maps.Copy(ret.Balances, s.Balances)
	for prop, propState := range s.Proposals {
		ret.Proposals[prop] = propState.clone()
	}
	return ret
}

// Balance returns the spendable balance of a user, or 0 for an unknown user
func (s State) Balance(user User) Tokens {
	return s.Balances[user]
}

// IsPending reports whether the proposal is currently under vote
func (s State) IsPending(prop Proposal) bool {
	_, ok := s.Proposals[prop]
	return ok
}

// IsAdmitted reports whether the proposal has been admitted to the registry
func (s State) IsAdmitted(prop Proposal) bool {
	return slices.Contains(s.Registry, prop)
}
