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

package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blinklabs-io/tcr/database/types"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	DefaultBlockCacheSize int64 = 64 << 20
	DefaultIndexCacheSize int64 = 16 << 20
	DefaultGcInterval           = 5 * time.Minute
	// Snapshots are small and rewritten on every transition, so most of a
	// value log file becomes garbage quickly
	gcDiscardRatio = 0.5
)

var errForeignTxn = errors.New("transaction belongs to a different blob store")

// blobTxn is the types.Txn handed out by BlobStoreBadger
type blobTxn struct {
	store  *BlobStoreBadger
	tx     *badger.Txn
	update bool
	done   bool
}

func (t *blobTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if !t.update {
		t.tx.Discard()
		return nil
	}
	return t.tx.Commit()
}

func (t *blobTxn) Rollback() error {
	if !t.done {
		t.done = true
		t.tx.Discard()
	}
	return nil
}

// BlobStoreBadger holds the registry snapshot in badger. Without a data
// directory the store is in-memory
type BlobStoreBadger struct {
	db             *badger.DB
	logger         *slog.Logger
	dataDir        string
	blockCacheSize int64
	indexCacheSize int64
	gcInterval     time.Duration
	gcEnabled      bool
	gcStop         context.CancelFunc
	gcDone         chan struct{}
}

// New opens a badger blob store
func New(opts ...BlobStoreBadgerOptionFunc) (*BlobStoreBadger, error) {
	d := &BlobStoreBadger{
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
		gcInterval:     DefaultGcInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	badgerOpts, err := d.badgerOptions()
	if err != nil {
		return nil, err
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	d.db = db
	// Value log GC only applies to disk-backed stores
	if d.gcEnabled && d.dataDir != "" && d.gcInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		d.gcStop = cancel
		d.gcDone = make(chan struct{})
		go d.runGc(ctx)
	}
	return d, nil
}

func (d *BlobStoreBadger) badgerOptions() (badger.Options, error) {
	logger := NewBadgerLogger(d.logger)
	if d.dataDir == "" {
		return badger.DefaultOptions("").
			WithInMemory(true).
			WithLogger(logger).
			WithBlockCacheSize(d.blockCacheSize).
			WithIndexCacheSize(d.indexCacheSize).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING), nil
	}
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return badger.Options{}, fmt.Errorf("failed to create data dir: %w", err)
	}
	return badger.DefaultOptions(filepath.Join(d.dataDir, "blob")).
		WithLogger(logger).
		WithLoggingLevel(badger.WARNING).
		WithBlockCacheSize(d.blockCacheSize).
		WithIndexCacheSize(d.indexCacheSize).
		WithCompression(options.Snappy), nil
}

func (d *BlobStoreBadger) runGc(ctx context.Context) {
	defer close(d.gcDone)
	ticker := time.NewTicker(d.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// Keep collecting while badger finds files worth rewriting
		for ctx.Err() == nil {
			err := d.db.RunValueLogGC(gcDiscardRatio)
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				d.logger.Warn(
					"blob DB: GC failure",
					"component", "database",
					"error", err,
				)
			}
			break
		}
	}
}

// Close stops background GC and closes badger
func (d *BlobStoreBadger) Close() error {
	if d.gcStop != nil {
		d.gcStop()
		<-d.gcDone
		d.gcStop = nil
	}
	return d.db.Close()
}

// DB returns the badger handle
func (d *BlobStoreBadger) DB() *badger.DB {
	return d.db
}

// NewTransaction starts a badger transaction. Commit on a read-only
// transaction only releases it
func (d *BlobStoreBadger) NewTransaction(update bool) types.Txn {
	return &blobTxn{
		store:  d,
		tx:     d.db.NewTransaction(update),
		update: update,
	}
}

func (d *BlobStoreBadger) txnFor(txn types.Txn) (*badger.Txn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	bt, ok := txn.(*blobTxn)
	if !ok {
		return nil, types.ErrTxnWrongType
	}
	switch {
	case bt.store != d:
		return nil, errForeignTxn
	case bt.done:
		return nil, types.ErrTxnFinished
	case bt.tx == nil:
		return nil, types.ErrBlobStoreUnavailable
	}
	return bt.tx, nil
}

// Get returns a copy of the value stored under key
func (d *BlobStoreBadger) Get(txn types.Txn, key []byte) ([]byte, error) {
	tx, err := d.txnFor(txn)
	if err != nil {
		return nil, err
	}
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, types.ErrBlobKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (d *BlobStoreBadger) Set(txn types.Txn, key, val []byte) error {
	tx, err := d.txnFor(txn)
	if err != nil {
		return err
	}
	return tx.Set(key, val)
}

func (d *BlobStoreBadger) Delete(txn types.Txn, key []byte) error {
	tx, err := d.txnFor(txn)
	if err != nil {
		return err
	}
	return tx.Delete(key)
}
