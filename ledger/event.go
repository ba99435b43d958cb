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
	"github.com/blinklabs-io/tcr/event"
	"github.com/blinklabs-io/tcr/registry"
)

const (
	TransitionAppliedEventType  event.EventType = "registry.transition_applied"
	TransitionRejectedEventType event.EventType = "registry.transition_rejected"
	ProposalResolvedEventType   event.EventType = "registry.proposal_resolved"
)

// TransitionAppliedEvent is emitted after a transition has been applied and persisted
type TransitionAppliedEvent struct {
	Transition registry.TransitionRecord
	// Pending proposal and registry counts after the transition
	PendingProposals int
	RegistrySize     int
}

// TransitionRejectedEvent is emitted when a transition leaves the state unchanged
type TransitionRejectedEvent struct {
	Transition registry.TransitionRecord
	Reason     string
	Error      error
}

// ProposalResolvedEvent is emitted after a Resolve transition, in addition
// to the TransitionAppliedEvent
type ProposalResolvedEvent struct {
	Proposal   registry.Proposal
	Settlement registry.Settlement
}
