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
	"errors"
	"fmt"
)

var (
	// ErrDuplicateProposal is returned when submitting a proposal that is
	// already pending or admitted
	ErrDuplicateProposal = errors.New("proposal already pending or admitted")
	// ErrInsufficientBalance is returned when a stake exceeds the user's
	// spendable balance
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrUnknownProposal is returned when voting on or resolving a proposal
	// that is not pending
	ErrUnknownProposal = errors.New("proposal not pending")
	// ErrDuplicateVote is returned when a user has already voted on either
	// side of a proposal
	ErrDuplicateVote = errors.New("user already voted on proposal")
	// ErrInvariantViolation is returned when a step that was validated
	// beforehand fails anyway. It indicates a corrupt input state
	ErrInvariantViolation = errors.New("registry invariant violation")
	// ErrInvalidTransition is returned for a nil or unrecognized transition
	ErrInvalidTransition = errors.New("invalid transition")
)

// RejectionError describes a transition that left the state unchanged
type RejectionError struct {
	Kind     TransitionKind
	Proposal Proposal
	Err      error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf(
		"%s on proposal %q rejected: %s",
		e.Kind,
		e.Proposal,
		e.Err,
	)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

// Reason returns a short machine-readable name for the rejection
func (e *RejectionError) Reason() string {
	return Reason(e.Err)
}

// Reason maps a rejection error to a short machine-readable name
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	// Checked first, since it wraps the error of the step that failed
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrDuplicateProposal):
		return "duplicate_proposal"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrUnknownProposal):
		return "unknown_proposal"
	case errors.Is(err, ErrDuplicateVote):
		return "duplicate_vote"
	default:
		return "unknown"
	}
}
