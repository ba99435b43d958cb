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
	"fmt"
	"io"

	"github.com/blinklabs-io/tcr/database"
	"github.com/blinklabs-io/tcr/ledger"
	"github.com/blinklabs-io/tcr/registry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func writeState(w io.Writer, state registry.State) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("error encoding state: %w", err)
	}
	return enc.Close()
}

// printState writes the ledger state, or the state rebuilt from the sqlite
// projection. A non-empty user limits the output to that user's balance
func printState(
	w io.Writer,
	ls *ledger.LedgerState,
	db *database.Database,
	projection bool,
	user registry.User,
) error {
	state := ls.State()
	if projection {
		var err error
		if state, err = db.GetProjectedState(); err != nil {
			return fmt.Errorf("error reading projection: %w", err)
		}
	}
	if user == "" {
		return writeState(w, state)
	}
	balance, ok := state.Balances[user]
	if projection {
		var err error
		if balance, ok, err = db.GetBalance(user); err != nil {
			return fmt.Errorf("error reading projection: %w", err)
		}
	}
	if !ok {
		return fmt.Errorf("unknown user %q", user)
	}
	_, err := fmt.Fprintf(w, "%s: %d\n", user, balance)
	return err
}

func stateCommand() *cobra.Command {
	var projection bool
	var user string
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the stored registry state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFromCmd(cmd)
			// Keep stdout for the state document
			logger := discardLogger()
			if globalFlags.debug {
				logger = commonRun()
			}
			ls, db, err := openLedger(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return printState(
				cmd.OutOrStdout(),
				ls,
				db,
				projection,
				registry.User(user),
			)
		},
	}
	cmd.Flags().
		BoolVar(&projection, "projection", false, "read the sqlite projection instead of the snapshot")
	cmd.Flags().
		StringVar(&user, "user", "", "print only this user's balance")
	return cmd
}
