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

package models

// Vote side constants
const (
	VoteSideFor     = 1
	VoteSideAgainst = 0
)

// Proposal is a pending proposal with its current vote totals
type Proposal struct {
	Name         string         `gorm:"column:name;primaryKey;size:255"`
	TotalFor     uint64         `gorm:"not null"`
	TotalAgainst uint64         `gorm:"not null"`
	Votes        []ProposalVote `gorm:"foreignKey:ProposalName;references:Name;constraint:OnDelete:CASCADE"`
}

func (Proposal) TableName() string {
	return "proposal"
}

// ProposalVote is a single stake recorded on one side of a pending proposal
type ProposalVote struct {
	ID           uint   `gorm:"primarykey"`
	ProposalName string `gorm:"index;uniqueIndex:idx_proposal_vote_unique,priority:1;size:255;not null"`
	User         string `gorm:"column:user_name;uniqueIndex:idx_proposal_vote_unique,priority:2;size:255;not null"`
	Side         uint8  `gorm:"not null"` // 0=against, 1=for
	Stake        uint32 `gorm:"not null"`
}

func (ProposalVote) TableName() string {
	return "proposal_vote"
}

// IsFor reports whether the vote backs the proposal
func (v ProposalVote) IsFor() bool {
	return v.Side == VoteSideFor
}

// RegistryEntry is an admitted proposal. Position preserves admission order
type RegistryEntry struct {
	Position uint   `gorm:"primaryKey"`
	Name     string `gorm:"uniqueIndex;size:255;not null"`
}

func (RegistryEntry) TableName() string {
	return "registry_entry"
}
