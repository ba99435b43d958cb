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
	"errors"

	"github.com/blinklabs-io/tcr/database/models"
	"github.com/blinklabs-io/tcr/database/types"
	"gorm.io/gorm"
)

// ReplaceProjection swaps the whole registry projection for the given rows
// within txn. Votes are inserted through their proposals
func (d *MetadataStoreSqlite) ReplaceProjection(
	balances []models.Balance,
	proposals []models.Proposal,
	entries []models.RegistryEntry,
	txn types.Txn,
) error {
	if txn == nil {
		return types.ErrNilTxn
	}
	db, err := d.txDB(txn)
	if err != nil {
		return err
	}
	for _, model := range []any{
		&models.ProposalVote{},
		&models.Proposal{},
		&models.Balance{},
		&models.RegistryEntry{},
	} {
		if result := db.Where("1 = 1").Delete(model); result.Error != nil {
			return result.Error
		}
	}
	// gorm refuses to create from an empty slice
	if len(balances) > 0 {
		if result := db.Create(&balances); result.Error != nil {
			return result.Error
		}
	}
	if len(proposals) > 0 {
		if result := db.Create(&proposals); result.Error != nil {
			return result.Error
		}
	}
	if len(entries) > 0 {
		if result := db.Create(&entries); result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// GetBalance returns the projected balance for a user
func (d *MetadataStoreSqlite) GetBalance(
	user string,
	txn types.Txn,
) (*models.Balance, error) {
	db, err := d.txDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Balance
	result := db.Where("user_name = ?", user).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetBalances returns every projected balance ordered by user
func (d *MetadataStoreSqlite) GetBalances(
	txn types.Txn,
) ([]models.Balance, error) {
	db, err := d.txDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Balance
	if result := db.Order("user_name").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetPendingProposal returns a pending proposal with its votes
func (d *MetadataStoreSqlite) GetPendingProposal(
	name string,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := d.txDB(txn)
	if err != nil {
		return nil, err
	}
	var ret models.Proposal
	result := db.Preload("Votes", func(db *gorm.DB) *gorm.DB {
		return db.Order("user_name")
	}).Where("name = ?", name).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &ret, nil
}

// GetPendingProposals returns all pending proposals ordered by name
func (d *MetadataStoreSqlite) GetPendingProposals(
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := d.txDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	result := db.Preload("Votes", func(db *gorm.DB) *gorm.DB {
		return db.Order("user_name")
	}).Order("name").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetRegistryEntries returns admitted proposals in admission order
func (d *MetadataStoreSqlite) GetRegistryEntries(
	txn types.Txn,
) ([]models.RegistryEntry, error) {
	db, err := d.txDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.RegistryEntry
	if result := db.Order("position").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
