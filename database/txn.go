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

package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/tcr/database/types"
)

// Txn pairs a blob and a metadata transaction so that a snapshot and its
// projection commit together
type Txn struct {
	mu          sync.Mutex
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	readWrite   bool
	done        bool
}

// NewTxn starts a transaction on both stores
func NewTxn(db *Database, readWrite bool) *Txn {
	t := NewBlobOnlyTxn(db, readWrite)
	if db.metadata != nil {
		t.metadataTxn = db.metadata.Transaction()
	}
	return t
}

// NewBlobOnlyTxn starts a transaction that touches only the snapshot store
func NewBlobOnlyTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if db.blob != nil {
		t.blobTxn = db.blob.NewTransaction(readWrite)
	}
	return t
}

func (t *Txn) DB() *Database {
	return t.db
}

// Blob returns the blob transaction handle
func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

// Metadata returns the metadata transaction handle, nil for a blob-only txn
func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

// Do runs fn and commits, or rolls back if fn fails
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit stamps both stores with a shared commit timestamp and commits the
// blob store before the metadata store. A read-only Txn is only released.
// Committing a finished Txn is a no-op
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	if !t.readWrite {
		return t.rollbackLocked()
	}
	if t.blobTxn == nil && t.metadataTxn == nil {
		t.done = true
		return types.ErrNoStoreAvailable
	}
	if err := t.commitLocked(); err != nil {
		// Errors from the cleanup rollback are secondary to the commit failure
		_ = t.rollbackLocked()
		return err
	}
	t.done = true
	return nil
}

func (t *Txn) commitLocked() error {
	if t.blobTxn != nil && t.metadataTxn != nil {
		if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
			return fmt.Errorf("failed to update commit timestamp: %w", err)
		}
	}
	// The snapshot leads, so a metadata failure leaves a timestamp mismatch
	// that is repaired from the snapshot on the next start
	if t.blobTxn != nil {
		if err := t.blobTxn.Commit(); err != nil {
			return fmt.Errorf("blob commit failed: %w", err)
		}
	}
	if t.metadataTxn != nil {
		if err := t.metadataTxn.Commit(); err != nil {
			t.db.logger.Error(
				"partial commit: blob committed, metadata failed",
				"error", err,
			)
			return fmt.Errorf("metadata commit failed after blob commit: %w", err)
		}
	}
	return nil
}

// Rollback discards both transactions. Rolling back a finished Txn is a no-op
func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackLocked()
}

func (t *Txn) rollbackLocked() error {
	if t.done {
		return nil
	}
	t.done = true
	var err error
	for name, txn := range map[string]types.Txn{"blob": t.blobTxn, "metadata": t.metadataTxn} {
		if txn == nil {
			continue
		}
		if rbErr := txn.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("%s rollback: %w", name, rbErr))
		}
	}
	return err
}

// Release frees the transaction's resources. It is safe to defer after Commit
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
