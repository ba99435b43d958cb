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

package sqlite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/tcr/database/models"
	"github.com/blinklabs-io/tcr/database/types"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const (
	metadataFileName = "metadata.sqlite"
	// WAL journal, no fsync on write, 50MB page cache
	diskPragmas    = "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)&_pragma=busy_timeout(5000)"
	vacuumInterval = 24 * time.Hour
)

// Each in-memory store gets its own named database so that stores opened
// in the same process do not share tables
var memoryDbCounter atomic.Uint64

// metadataTxn is the types.Txn handed out by MetadataStoreSqlite. A failed
// begin is reported by Commit and Rollback
type metadataTxn struct {
	tx   *gorm.DB
	err  error
	done bool
}

func (t *metadataTxn) finish(fn func() *gorm.DB) error {
	if t.err != nil {
		return t.err
	}
	if t.done {
		return nil
	}
	if err := fn().Error; err != nil {
		return err
	}
	t.done = true
	return nil
}

func (t *metadataTxn) Commit() error {
	return t.finish(t.tx.Commit)
}

func (t *metadataTxn) Rollback() error {
	return t.finish(t.tx.Rollback)
}

// MetadataStoreSqlite keeps a queryable projection of the registry state
// in SQLite
type MetadataStoreSqlite struct {
	db         *gorm.DB
	logger     *slog.Logger
	dataDir    string
	stopVacuum context.CancelFunc
	vacuumDone chan struct{}
	closed     atomic.Bool
}

// New opens a SQLite metadata store. An empty dataDir keeps the store in
// memory. The store is returned alongside a migration error so callers can
// close it
func New(
	dataDir string,
	logger *slog.Logger,
) (*MetadataStoreSqlite, error) {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	d := &MetadataStoreSqlite{
		dataDir: dataDir,
		logger:  logger.With("component", "database"),
	}
	dsn, err := d.dsn()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	d.db = db
	if dataDir == "" {
		// Shared-cache tables lock per connection, so serialize access
		sqlDb, err := db.DB()
		if err != nil {
			return d, err
		}
		sqlDb.SetMaxOpenConns(1)
	}
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return d, err
	}
	if err := d.migrate(); err != nil {
		return d, err
	}
	if dataDir != "" {
		ctx, cancel := context.WithCancel(context.Background())
		d.stopVacuum = cancel
		d.vacuumDone = make(chan struct{})
		go d.vacuumLoop(ctx, vacuumInterval)
	}
	return d, nil
}

func (d *MetadataStoreSqlite) dsn() (string, error) {
	if d.dataDir == "" {
		// cache=shared lets every connection in the pool see the same database
		return fmt.Sprintf(
			"file:tcr-metadata-%d?mode=memory&cache=shared",
			memoryDbCounter.Add(1),
		), nil
	}
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data dir: %w", err)
	}
	return fmt.Sprintf(
		"file:%s?%s",
		filepath.Join(d.dataDir, metadataFileName),
		diskPragmas,
	), nil
}

func (d *MetadataStoreSqlite) migrate() error {
	tables := append([]any{&CommitTimestamp{}}, models.MigrateModels...)
	for _, model := range tables {
		d.logger.Debug(fmt.Sprintf("creating table: %T", model))
		if err := d.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

// vacuumLoop frees unused pages of the on-disk database
func (d *MetadataStoreSqlite) vacuumLoop(ctx context.Context, interval time.Duration) {
	defer close(d.vacuumDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		d.logger.Debug("running vacuum on sqlite metadata database")
		if err := d.db.WithContext(ctx).Exec("VACUUM").Error; err != nil {
			d.logger.Error(
				"failed to free unused space in metadata store",
				"error", err,
			)
		}
	}
}

// Close stops the vacuum loop and closes the database. It is idempotent
func (d *MetadataStoreSqlite) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if d.stopVacuum != nil {
		d.stopVacuum()
		<-d.vacuumDone
	}
	sqlDb, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return sqlDb.Close()
}

// DB returns the underlying GORM database handle
func (d *MetadataStoreSqlite) DB() *gorm.DB {
	return d.db
}

// Transaction begins a SQLite transaction
func (d *MetadataStoreSqlite) Transaction() types.Txn {
	tx := d.db.Begin()
	if tx.Error != nil {
		d.logger.Error("failed to begin transaction", "error", tx.Error)
		return &metadataTxn{err: tx.Error}
	}
	return &metadataTxn{tx: tx}
}

// txDB returns the handle to run queries on. A nil txn runs outside any
// transaction
func (d *MetadataStoreSqlite) txDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return d.db, nil
	}
	mt, ok := txn.(*metadataTxn)
	switch {
	case !ok || mt == nil:
		return nil, types.ErrTxnWrongType
	case mt.err != nil:
		return nil, mt.err
	case mt.done:
		return nil, types.ErrTxnFinished
	}
	return mt.tx, nil
}
