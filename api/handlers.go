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
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"slices"

	"github.com/blinklabs-io/tcr/registry"
)

// Transition request bodies are tiny
const maxRequestBodySize = 1 << 20

// writeJSON writes a JSON response with the given status
// code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeError(
	w http.ResponseWriter,
	status int,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, HealthResponse{
		IsHealthy: true,
	})
}

// handleState handles GET /api/v0/state and returns the full registry state
func (s *Server) handleState(
	w http.ResponseWriter,
	_ *http.Request,
) {
	state := s.node.State()
	resp := StateResponse{
		Balances:    state.Balances,
		Proposals:   make(map[registry.Proposal]ProposalResponse, len(state.Proposals)),
		Registry:    state.Registry,
		TotalTokens: registry.TotalTokens(state),
	}
	for prop, propState := range state.Proposals {
		resp.Proposals[prop] = newProposalResponse(prop, propState)
	}
	if resp.Registry == nil {
		resp.Registry = []registry.Proposal{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleBalance handles GET /api/v0/balances/{user}
func (s *Server) handleBalance(
	w http.ResponseWriter,
	r *http.Request,
) {
	user := registry.User(r.PathValue("user"))
	balance, ok := s.node.Balance(user)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown user")
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		User:    user,
		Balance: balance,
	})
}

// handleProposals handles GET /api/v0/proposals and returns a page of
// pending proposals sorted by name
func (s *Server) handleProposals(
	w http.ResponseWriter,
	r *http.Request,
) {
	page, err := parsePageQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	state := s.node.State()
	props := slices.Sorted(maps.Keys(state.Proposals))
	selected := paginate(props, page)
	resp := make([]ProposalResponse, 0, len(selected))
	for _, prop := range selected {
		resp = append(resp, newProposalResponse(prop, state.Proposals[prop]))
	}
	page.writeHeaders(w, len(props))
	writeJSON(w, http.StatusOK, resp)
}

// handleProposal handles GET /api/v0/proposals/{proposal}
func (s *Server) handleProposal(
	w http.ResponseWriter,
	r *http.Request,
) {
	prop := registry.Proposal(r.PathValue("proposal"))
	propState, ok := s.node.Proposal(prop)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown proposal")
		return
	}
	writeJSON(w, http.StatusOK, newProposalResponse(prop, propState))
}

// handleRegistry handles GET /api/v0/registry and returns a page of
// admitted proposals in admission order
func (s *Server) handleRegistry(
	w http.ResponseWriter,
	r *http.Request,
) {
	page, err := parsePageQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries := s.node.Registry()
	page.writeHeaders(w, len(entries))
	writeJSON(w, http.StatusOK, paginate(entries, page))
}

// handleSubmitTransition handles POST /api/v0/transitions. A rejection
// is reported as 409 with the rejection reason
func (s *Server) handleSubmitTransition(
	w http.ResponseWriter,
	r *http.Request,
) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var record registry.TransitionRecord
	if err := dec.Decode(&record); err != nil {
		writeError(w, http.StatusBadRequest, "malformed transition: "+err.Error())
		return
	}
	t, err := record.Transition()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.node.Apply(r.Context(), t)
	if err != nil {
		var rejErr *registry.RejectionError
		if errors.As(err, &rejErr) {
			writeJSON(w, http.StatusConflict, ErrorResponse{
				StatusCode: http.StatusConflict,
				Error:      http.StatusText(http.StatusConflict),
				Message:    rejErr.Error(),
				Reason:     rejErr.Reason(),
			})
			return
		}
		s.logger.Error(
			"failed to apply transition",
			"kind", record.Type,
			"proposal", record.Proposal,
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to apply transition")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
