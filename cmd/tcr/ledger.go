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

package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/tcr/database"
	"github.com/blinklabs-io/tcr/internal/config"
	"github.com/blinklabs-io/tcr/ledger"
)

// openLedger opens the persisted ledger state for the one-shot commands. The
// caller must close the returned database
func openLedger(
	cfg *config.Config,
	logger *slog.Logger,
) (*ledger.LedgerState, *database.Database, error) {
	genesis, err := config.LoadGenesis(cfg.GenesisFile)
	if err != nil {
		return nil, nil, err
	}
	needsRecovery := false
	db, err := database.New(database.Config{
		DataDir: cfg.DatabasePath,
		Logger:  logger,
	})
	if db == nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			_ = db.Close()
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		logger.Warn(
			"database initialization error, needs recovery",
			"component", programName,
			"error", err,
		)
		needsRecovery = true
	}
	ls, err := ledger.NewLedgerState(ledger.LedgerStateConfig{
		Logger:   logger,
		Database: db,
		Genesis:  genesis.Balances,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("loading ledger state: %w", err)
	}
	if needsRecovery {
		if err := ls.RecoverCommitTimestampConflict(); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("recovering database: %w", err)
		}
	}
	return ls, db, nil
}
