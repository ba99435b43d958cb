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

// TransitionRecord is the serialized form of a transition, as found in
// transition files and API requests
type TransitionRecord struct {
	Type     TransitionKind `json:"type"            yaml:"type"`
	Proposal Proposal       `json:"proposal"        yaml:"proposal"`
	User     User           `json:"user,omitempty"  yaml:"user,omitempty"`
	Stake    Tokens         `json:"stake,omitempty" yaml:"stake,omitempty"`
}

// Transition converts the record into a transition
func (r TransitionRecord) Transition() (Transition, error) {
	if r.Proposal == "" {
		return nil, fmt.Errorf("%w: missing proposal", ErrInvalidTransition)
	}
	if r.Type != KindResolve && r.User == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidTransition)
	}
	switch r.Type {
	case KindSubmitProposal:
		return SubmitProposal{Proposal: r.Proposal, User: r.User, Stake: r.Stake}, nil
	case KindVoteFor:
		return VoteFor{Proposal: r.Proposal, User: r.User, Stake: r.Stake}, nil
	case KindVoteAgainst:
		return VoteAgainst{Proposal: r.Proposal, User: r.User, Stake: r.Stake}, nil
	case KindResolve:
		return Resolve{Proposal: r.Proposal}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidTransition, r.Type)
	}
}

// RecordOf converts a transition into its serialized form
func RecordOf(t Transition) TransitionRecord {
	switch v := t.(type) {
	case SubmitProposal:
		return TransitionRecord{Type: v.Kind(), Proposal: v.Proposal, User: v.User, Stake: v.Stake}
	case VoteFor:
		return TransitionRecord{Type: v.Kind(), Proposal: v.Proposal, User: v.User, Stake: v.Stake}
	case VoteAgainst:
		return TransitionRecord{Type: v.Kind(), Proposal: v.Proposal, User: v.User, Stake: v.Stake}
	case Resolve:
		return TransitionRecord{Type: v.Kind(), Proposal: v.Proposal}
	default:
		return TransitionRecord{}
	}
}
