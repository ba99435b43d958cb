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

// TransitionKind names the type of a transition
type TransitionKind string

const (
	KindSubmitProposal TransitionKind = "submit_proposal"
	KindVoteFor        TransitionKind = "vote_for"
	KindVoteAgainst    TransitionKind = "vote_against"
	KindResolve        TransitionKind = "resolve"
)

// Transition is an input to the registry state machine. The set of
// implementations is closed: SubmitProposal, VoteFor, VoteAgainst and Resolve
type Transition interface {
	Kind() TransitionKind
	Target() Proposal
	apply(next *State, prev State) error
}

// SubmitProposal puts a new proposal under vote, staking the proposer's
// tokens in its favor
type SubmitProposal struct {
	Proposal Proposal
	User     User
	Stake    Tokens
}

func (SubmitProposal) Kind() TransitionKind { return KindSubmitProposal }

func (t SubmitProposal) Target() Proposal { return t.Proposal }

// VoteFor stakes tokens in favor of a pending proposal
type VoteFor struct {
	Proposal Proposal
	User     User
	Stake    Tokens
}

func (VoteFor) Kind() TransitionKind { return KindVoteFor }

func (t VoteFor) Target() Proposal { return t.Proposal }

// VoteAgainst stakes tokens against a pending proposal
type VoteAgainst struct {
	Proposal Proposal
	User     User
	Stake    Tokens
}

func (VoteAgainst) Kind() TransitionKind { return KindVoteAgainst }

func (t VoteAgainst) Target() Proposal { return t.Proposal }

// Resolve closes voting on a pending proposal and settles all stakes
type Resolve struct {
	Proposal Proposal
}

func (Resolve) Kind() TransitionKind { return KindResolve }

func (t Resolve) Target() Proposal { return t.Proposal }
