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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/blinklabs-io/tcr/ledger"
	"github.com/blinklabs-io/tcr/registry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// readTransitions parses a YAML list of transition records
func readTransitions(path string) ([]registry.TransitionRecord, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading transitions file: %w", err)
	}
	var ret []registry.TransitionRecord
	if err := yaml.Unmarshal(buf, &ret); err != nil {
		return nil, fmt.Errorf("error parsing transitions file: %w", err)
	}
	return ret, nil
}

// applyTransitions applies records in order and writes one line per record.
// Rejections are reported and do not stop the run
func applyTransitions(
	ctx context.Context,
	ls *ledger.LedgerState,
	records []registry.TransitionRecord,
	w io.Writer,
) (int, int, error) {
	var applied, rejected int
	for idx, rec := range records {
		t, err := rec.Transition()
		if err != nil {
			return applied, rejected, fmt.Errorf("transition %d: %w", idx, err)
		}
		res, err := ls.Apply(ctx, t)
		if err != nil {
			var rejErr *registry.RejectionError
			if !errors.As(err, &rejErr) {
				return applied, rejected, fmt.Errorf("transition %d: %w", idx, err)
			}
			rejected++
			fmt.Fprintf(w, "%d %s %s: rejected (%s)\n", idx, rec.Type, rec.Proposal, rejErr.Reason())
			continue
		}
		applied++
		if res.Settlement != nil {
			fmt.Fprintf(
				w,
				"%d %s %s: applied (%s, remainder %d)\n",
				idx,
				rec.Type,
				rec.Proposal,
				res.Settlement.Outcome,
				res.Settlement.Remainder,
			)
			continue
		}
		fmt.Fprintf(w, "%d %s %s: applied\n", idx, rec.Type, rec.Proposal)
	}
	return applied, rejected, nil
}

func applyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply FILE",
		Short: "Apply a YAML file of transitions to the stored registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromCmd(cmd)
			logger := commonRun()
			records, err := readTransitions(args[0])
			if err != nil {
				return err
			}
			ls, db, err := openLedger(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			applied, rejected, err := applyTransitions(
				cmd.Context(),
				ls,
				records,
				cmd.OutOrStdout(),
			)
			logger.Info(
				fmt.Sprintf("applied %d transitions, rejected %d", applied, rejected),
				"component", programName,
			)
			if err != nil {
				slog.Error(err.Error())
			}
			return err
		},
	}
	return cmd
}
