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

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokensSaturating(t *testing.T) {
	assert.Equal(t, MaxTokens, MaxTokens.SaturatingAdd(1))
	assert.Equal(t, MaxTokens, Tokens(MaxTokens-5).SaturatingAdd(10))
	assert.Equal(t, Tokens(15), Tokens(5).SaturatingAdd(10))
	assert.Equal(t, Tokens(0), Tokens(1).SaturatingSub(2))
	assert.Equal(t, Tokens(3), Tokens(5).SaturatingSub(2))
	assert.Equal(t, Tokens(0), Tokens(10).SaturatingDiv(0))
	assert.Equal(t, Tokens(3), Tokens(10).SaturatingDiv(3))
}

func TestVotesTotalSaturates(t *testing.T) {
	v := Votes{"a": MaxTokens, "b": 10}
	assert.Equal(t, MaxTokens, v.Total())
}

func TestCreditCreatesBalance(t *testing.T) {
	s := NewState(nil)
	credit(&s, "alice", 5)
	assert.Equal(t, Tokens(5), s.Balance("alice"))
	credit(&s, "alice", MaxTokens)
	assert.Equal(t, MaxTokens, s.Balance("alice"))
	assert.ErrorIs(t, debit(&s, "bob", 0), ErrInsufficientBalance)
	assert.NoError(t, debit(&s, "alice", MaxTokens))
	assert.Equal(t, Tokens(0), s.Balance("alice"))
}

func TestSettleZeroWinners(t *testing.T) {
	// Not reachable through transitions, but must not panic
	var settlement Settlement
	settlement.Payouts = map[User]Tokens{}
	settlement.payWinners(Votes{}, 7)
	assert.Equal(t, Tokens(0), settlement.Share)
	assert.Equal(t, Tokens(7), settlement.Remainder)
	assert.Empty(t, settlement.Payouts)
}
