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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/tcr/database"
	"github.com/blinklabs-io/tcr/event"
	"github.com/blinklabs-io/tcr/registry"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/blinklabs-io/tcr/ledger"

type LedgerStateConfig struct {
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// Balances used to initialize a database with no persisted state
	Genesis map[registry.User]registry.Tokens
}

// Result describes a transition that was applied
type Result struct {
	Transition registry.TransitionRecord `json:"transition"`
	// Only set for Resolve
	Settlement *registry.Settlement `json:"settlement,omitempty"`
}

// LedgerState owns the live registry state and keeps it in step with the database
type LedgerState struct {
	sync.RWMutex
	config  LedgerStateConfig
	db      *database.Database
	state   registry.State
	metrics stateMetrics
	tracer  trace.Tracer
}

func NewLedgerState(cfg LedgerStateConfig) (*LedgerState, error) {
	if cfg.Database == nil {
		return nil, errors.New("no database provided")
	}
	if cfg.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", "ledger")
	ls := &LedgerState{
		config: cfg,
		db:     cfg.Database,
		tracer: otel.Tracer(tracerName),
	}
	// Init metrics
	ls.metrics.init(ls.config.PromRegistry)
	if err := ls.load(); err != nil {
		return nil, err
	}
	ls.updateGauges()
	return ls, nil
}

func (ls *LedgerState) load() error {
	state, err := ls.db.GetState(nil)
	if err != nil {
		if !errors.Is(err, database.ErrStateNotFound) {
			return fmt.Errorf("failed to load registry state: %w", err)
		}
		state = registry.NewState(ls.config.Genesis)
		if err := ls.db.SetState(state, nil); err != nil {
			return fmt.Errorf("failed to persist genesis state: %w", err)
		}
		ls.config.Logger.Info(
			"initialized registry state from genesis",
			"users", len(state.Balances),
			"tokens", registry.TotalTokens(state),
		)
	} else {
		ls.config.Logger.Info(
			"loaded registry state",
			"users", len(state.Balances),
			"pending", len(state.Proposals),
			"admitted", len(state.Registry),
		)
	}
	if err := registry.CheckInvariants(state); err != nil {
		ls.config.Logger.Warn(
			"persisted registry state violates invariants",
			"error", err,
		)
	}
	ls.state = state
	return nil
}

// Apply runs a transition against the live state. A rejected transition
// returns a *registry.RejectionError and changes nothing. A database failure
// also leaves the live state unchanged
func (ls *LedgerState) Apply(
	ctx context.Context,
	t registry.Transition,
) (Result, error) {
	record := registry.RecordOf(t)
	ctx, span := ls.tracer.Start(
		ctx,
		"ledger.apply",
		trace.WithAttributes(
			attribute.String("tcr.transition.kind", string(record.Type)),
			attribute.String("tcr.transition.proposal", string(record.Proposal)),
		),
	)
	defer span.End()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	ls.Lock()
	defer ls.Unlock()
	ret := Result{Transition: record}
	// The settlement has to be computed against the state before resolve
	if r, ok := t.(registry.Resolve); ok {
		if settlement, err := registry.ResolveResult(ls.state, r.Proposal); err == nil {
			ret.Settlement = &settlement
		}
	}
	next, err := registry.Apply(ls.state, t)
	if err != nil {
		reason := registry.Reason(err)
		ls.metrics.transitions.WithLabelValues(string(record.Type), reason).Inc()
		span.SetAttributes(attribute.String("tcr.transition.result", reason))
		ls.config.Logger.Debug(
			"transition rejected",
			"kind", record.Type,
			"proposal", record.Proposal,
			"reason", reason,
		)
		ls.publish(
			TransitionRejectedEventType,
			TransitionRejectedEvent{
				Transition: record,
				Reason:     reason,
				Error:      err,
			},
		)
		return Result{}, err
	}
	if err := ls.db.Transaction(true).Do(func(txn *database.Txn) error {
		return ls.db.SetState(next, txn)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		ls.config.Logger.Error(
			"failed to persist registry state",
			"kind", record.Type,
			"proposal", record.Proposal,
			"error", err,
		)
		return Result{}, fmt.Errorf("persist registry state: %w", err)
	}
	ls.state = next
	ls.metrics.transitions.WithLabelValues(string(record.Type), registry.Reason(nil)).Inc()
	span.SetAttributes(attribute.String("tcr.transition.result", registry.Reason(nil)))
	ls.updateGauges()
	ls.config.Logger.Debug(
		"transition applied",
		"kind", record.Type,
		"proposal", record.Proposal,
		"user", record.User,
		"stake", record.Stake,
	)
	ls.publish(
		TransitionAppliedEventType,
		TransitionAppliedEvent{
			Transition:       record,
			PendingProposals: len(next.Proposals),
			RegistrySize:     len(next.Registry),
		},
	)
	if ret.Settlement != nil {
		if ret.Settlement.Remainder > 0 {
			ls.metrics.droppedRemainder.Add(float64(ret.Settlement.Remainder))
			ls.config.Logger.Info(
				"indivisible remainder dropped on resolve",
				"proposal", record.Proposal,
				"remainder", ret.Settlement.Remainder,
			)
		}
		ls.config.Logger.Info(
			"proposal resolved",
			"proposal", record.Proposal,
			"outcome", ret.Settlement.Outcome,
		)
		ls.publish(
			ProposalResolvedEventType,
			ProposalResolvedEvent{
				Proposal:   record.Proposal,
				Settlement: *ret.Settlement,
			},
		)
	}
	return ret, nil
}

// RecoverCommitTimestampConflict rewrites the persisted state from the
// snapshot, which always commits before the projection. Afterward both
// stores carry the same commit timestamp
func (ls *LedgerState) RecoverCommitTimestampConflict() error {
	ls.Lock()
	defer ls.Unlock()
	if err := ls.db.SetState(ls.state, nil); err != nil {
		return fmt.Errorf("failed to rewrite registry state: %w", err)
	}
	ls.config.Logger.Info("recovered from commit timestamp conflict")
	return nil
}

func (ls *LedgerState) publish(eventType event.EventType, data any) {
	if ls.config.EventBus == nil {
		return
	}
	ls.config.EventBus.PublishAsync(eventType, event.NewEvent(eventType, data))
}

// updateGauges must be called with the lock held
func (ls *LedgerState) updateGauges() {
	ls.metrics.pendingProposals.Set(float64(len(ls.state.Proposals)))
	ls.metrics.registrySize.Set(float64(len(ls.state.Registry)))
	ls.metrics.totalTokens.Set(float64(registry.TotalTokens(ls.state)))
}
