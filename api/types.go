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

import "github.com/blinklabs-io/tcr/registry"

// HealthResponse is returned by GET /health
type HealthResponse struct {
	IsHealthy bool `json:"is_healthy"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	// Machine-readable rejection name, only set for 409
	Reason string `json:"reason,omitempty"`
}

// StateResponse is returned by GET /api/v0/state
type StateResponse struct {
	Balances    map[registry.User]registry.Tokens      `json:"balances"`
	Proposals   map[registry.Proposal]ProposalResponse `json:"proposals"`
	Registry    []registry.Proposal                    `json:"registry"`
	TotalTokens uint64                                 `json:"total_tokens"`
}

// BalanceResponse is returned by GET /api/v0/balances/{user}
type BalanceResponse struct {
	User    registry.User   `json:"user"`
	Balance registry.Tokens `json:"balance"`
}

// ProposalResponse describes a pending proposal
type ProposalResponse struct {
	Proposal     registry.Proposal `json:"proposal"`
	VotesFor     registry.Votes    `json:"votes_for"`
	VotesAgainst registry.Votes    `json:"votes_against"`
	TotalFor     registry.Tokens   `json:"total_for"`
	TotalAgainst registry.Tokens   `json:"total_against"`
}

func newProposalResponse(
	prop registry.Proposal,
	propState registry.ProposalState,
) ProposalResponse {
	return ProposalResponse{
		Proposal:     prop,
		VotesFor:     propState.VotesFor.Clone(),
		VotesAgainst: propState.VotesAgainst.Clone(),
		TotalFor:     propState.VotesFor.Total(),
		TotalAgainst: propState.VotesAgainst.Total(),
	}
}
