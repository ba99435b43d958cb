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

import "fmt"

// NextState applies a transition and returns the resulting state. A
// transition that breaks any rule returns the input state unchanged
func NextState(state State, t Transition) State {
	next, _ := Apply(state, t)
	return next
}

// Apply applies a transition like NextState, and also reports why a
// rejected transition was rejected. On rejection the returned state is the
// input state and the error is a *RejectionError. The input state is never
// modified
func Apply(state State, t Transition) (State, error) {
	if t == nil {
		return state, &RejectionError{Err: ErrInvalidTransition}
	}
	// All changes go to a scratch copy, which is dropped on rejection
	next := state.Clone()
	if err := t.apply(&next, state); err != nil {
		return state, &RejectionError{
			Kind:     t.Kind(),
			Proposal: t.Target(),
			Err:      err,
		}
	}
	return next, nil
}

func (t SubmitProposal) apply(next *State, _ State) error {
	if next.IsPending(t.Proposal) || next.IsAdmitted(t.Proposal) {
		return ErrDuplicateProposal
	}
	if err := debit(next, t.User, t.Stake); err != nil {
		return err
	}
	next.Proposals[t.Proposal] = NewProposalState(t.User, t.Stake)
	return nil
}

func (t VoteFor) apply(next *State, _ State) error {
	return castVote(next, t.Proposal, t.User, t.Stake, true)
}

func (t VoteAgainst) apply(next *State, _ State) error {
	return castVote(next, t.Proposal, t.User, t.Stake, false)
}

func castVote(
	next *State,
	prop Proposal,
	user User,
	stake Tokens,
	inFavor bool,
) error {
	propState, ok := next.Proposals[prop]
	if !ok || next.IsAdmitted(prop) {
		return ErrUnknownProposal
	}
	// One vote per user per proposal, on either side
	if propState.HasVoted(user) {
		return ErrDuplicateVote
	}
	// A user without a balance entry cannot stake, not even zero tokens
	bal, ok := next.Balances[user]
	if !ok || stake > bal {
		return ErrInsufficientBalance
	}
	if inFavor {
		propState.VotesFor[user] = stake
	} else {
		propState.VotesAgainst[user] = stake
	}
	// Unreachable while the balance check above holds
	if err := debit(next, user, stake); err != nil {
		return fmt.Errorf(
			"%w: debit after validated vote: %w",
			ErrInvariantViolation,
			err,
		)
	}
	return nil
}

func (t Resolve) apply(next *State, prev State) error {
	if !next.IsPending(t.Proposal) || next.IsAdmitted(t.Proposal) {
		return ErrUnknownProposal
	}
	// Payouts come from the vote records as they were before this transition
	settlement := Settle(prev.Proposals[t.Proposal])
	for user, amount := range settlement.Payouts {
		credit(next, user, amount)
	}
	delete(next.Proposals, t.Proposal)
	if settlement.Outcome == OutcomeAccepted {
		next.Registry = append(next.Registry, t.Proposal)
	}
	return nil
}

// debit removes tokens from a user's balance. It fails for an unknown user
// or a balance smaller than the amount
func debit(s *State, user User, amount Tokens) error {
	bal, ok := s.Balances[user]
	if !ok || bal < amount {
		return ErrInsufficientBalance
	}
	s.Balances[user] = bal.SaturatingSub(amount)
	return nil
}

// credit adds tokens to a user's balance, creating the entry if needed
func credit(s *State, user User, amount Tokens) {
	s.Balances[user] = s.Balances[user].SaturatingAdd(amount)
}
