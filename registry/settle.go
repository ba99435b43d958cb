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

// Outcome is the result of resolving a proposal
type Outcome string

const (
	// OutcomeTie refunds every stake and discards the proposal
	OutcomeTie Outcome = "tie"
	// OutcomeAccepted pays the losing pool to the voters in favor and admits
	// the proposal
	OutcomeAccepted Outcome = "accepted"
	// OutcomeRejected pays the losing pool to the voters against and discards
	// the proposal
	OutcomeRejected Outcome = "rejected"
)

// Settlement describes how the stakes of a proposal are paid out on resolve
type Settlement struct {
	Outcome      Outcome `json:"outcome"`
	TotalFor     Tokens  `json:"totalFor"`
	TotalAgainst Tokens  `json:"totalAgainst"`
	// Share of the losing pool paid to each winning voter
	Share Tokens `json:"share"`
	// Part of the losing pool that does not divide evenly among the winners.
	// It is paid to nobody
	Remainder Tokens `json:"remainder"`
	// Amount credited to each voter, stake included
	Payouts map[User]Tokens `json:"payouts"`
}

// Settle computes the settlement of a pending proposal
func Settle(p ProposalState) Settlement {
	ret := Settlement{
		TotalFor:     p.VotesFor.Total(),
		TotalAgainst: p.VotesAgainst.Total(),
		Payouts:      make(map[User]Tokens, len(p.VotesFor)+len(p.VotesAgainst)),
	}
	switch {
	case ret.TotalFor == ret.TotalAgainst:
		ret.Outcome = OutcomeTie
		for user, stake := range p.VotesFor {
			ret.Payouts[user] = ret.Payouts[user].SaturatingAdd(stake)
		}
		for user, stake := range p.VotesAgainst {
			ret.Payouts[user] = ret.Payouts[user].SaturatingAdd(stake)
		}
		return ret
	case ret.TotalFor > ret.TotalAgainst:
		ret.Outcome = OutcomeAccepted
		ret.payWinners(p.VotesFor, ret.TotalAgainst)
	default:
		ret.Outcome = OutcomeRejected
		ret.payWinners(p.VotesAgainst, ret.TotalFor)
	}
	return ret
}

func (s *Settlement) payWinners(winners Votes, pool Tokens) {
	s.Share = pool.SaturatingDiv(len(winners))
	paid := uint64(s.Share) * uint64(len(winners))
	s.Remainder = Tokens(uint64(pool) - paid) //nolint:gosec // paid <= pool
	for user, stake := range winners {
		s.Payouts[user] = stake.SaturatingAdd(s.Share)
	}
}

// ResolveResult returns the settlement that resolving the proposal in the
// given state would produce, without applying it
func ResolveResult(state State, prop Proposal) (Settlement, error) {
	propState, ok := state.Proposals[prop]
	if !ok || state.IsAdmitted(prop) {
		return Settlement{}, &RejectionError{
			Kind:     KindResolve,
			Proposal: prop,
			Err:      ErrUnknownProposal,
		}
	}
	return Settle(propState), nil
}
