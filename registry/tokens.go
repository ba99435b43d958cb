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

import "math"

// MaxTokens is the largest representable amount
const MaxTokens Tokens = math.MaxUint32

// SaturatingAdd returns t+o, clamped to MaxTokens
func (t Tokens) SaturatingAdd(o Tokens) Tokens {
	if t > MaxTokens-o {
		return MaxTokens
	}
	return t + o
}

// SaturatingSub returns t-o, clamped to 0
func (t Tokens) SaturatingSub(o Tokens) Tokens {
	if o > t {
		return 0
	}
	return t - o
}

// SaturatingDiv returns t/n, or 0 when n is 0
func (t Tokens) SaturatingDiv(n int) Tokens {
	if n <= 0 {
		return 0
	}
	if uint64(n) > uint64(MaxTokens) {
		return 0
	}
	return t / Tokens(n) //nolint:gosec // bounded above
}
