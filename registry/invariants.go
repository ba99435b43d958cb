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
	"slices"
)

// TotalTokens returns the sum of all balances and all pending stakes. It is
// computed without saturation
func TotalTokens(s State) uint64 {
	var total uint64
	for _, bal := range s.Balances {
		total += uint64(bal)
	}
	for _, propState := range s.Proposals {
		for _, stake := range propState.VotesFor {
			total += uint64(stake)
		}
		for _, stake := range propState.VotesAgainst {
			total += uint64(stake)
		}
	}
	return total
}

// CheckInvariants verifies the structural invariants of a state: no
// proposal is both pending and admitted, no proposal is admitted twice, and
// no user votes on both sides of a proposal
func CheckInvariants(s State) error {
	var errs []error
	seen := make(map[Proposal]struct{}, len(s.Registry))
	for _, prop := range s.Registry {
		if _, ok := seen[prop]; ok {
			errs = append(
				errs,
				fmt.Errorf("%w: proposal %q admitted twice", ErrInvariantViolation, prop),
			)
		}
		seen[prop] = struct{}{}
		if s.IsPending(prop) {
			errs = append(
				errs,
				fmt.Errorf("%w: proposal %q both pending and admitted", ErrInvariantViolation, prop),
			)
		}
	}
	// Sorted so the joined error is stable
	props := make([]Proposal, 0, len(s.Proposals))
	for prop := range s.Proposals {
		props = append(props, prop)
	}
	slices.Sort(props)
	for _, prop := range props {
		propState := s.Proposals[prop]
		for user := range propState.VotesFor {
			if _, ok := propState.VotesAgainst[user]; ok {
				errs = append(
					errs,
					fmt.Errorf(
						"%w: user %q votes both sides of proposal %q",
						ErrInvariantViolation,
						user,
						prop,
					),
				)
			}
		}
	}
	return errors.Join(errs...)
}
