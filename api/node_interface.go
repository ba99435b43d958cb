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

package api

import (
	"context"

	"github.com/blinklabs-io/tcr/ledger"
	"github.com/blinklabs-io/tcr/registry"
)

// RegistryNode is what the API server needs from the node. It is
// satisfied by *ledger.LedgerState
type RegistryNode interface {
	State() registry.State
	Balance(user registry.User) (registry.Tokens, bool)
	Proposal(prop registry.Proposal) (registry.ProposalState, bool)
	// Registry returns admitted proposals in admission order
	Registry() []registry.Proposal
	Apply(ctx context.Context, t registry.Transition) (ledger.Result, error)
}

var _ RegistryNode = (*ledger.LedgerState)(nil)
