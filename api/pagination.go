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

package api

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

var ErrInvalidPageQuery = errors.New("invalid pagination parameters")

// pageQuery selects a page of a listing with the count, page and order
// query parameters
type pageQuery struct {
	size   int
	number int
	desc   bool
}

func parsePageQuery(values url.Values) (pageQuery, error) {
	ret := pageQuery{size: DefaultPageSize, number: 1}
	parseInt := func(key string, dst *int) error {
		raw := values.Get(key)
		if raw == "" {
			return nil
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return ErrInvalidPageQuery
		}
		*dst = v
		return nil
	}
	if err := parseInt("count", &ret.size); err != nil {
		return pageQuery{}, err
	}
	if err := parseInt("page", &ret.number); err != nil {
		return pageQuery{}, err
	}
	switch strings.ToLower(values.Get("order")) {
	case "", "asc":
	case "desc":
		ret.desc = true
	default:
		return pageQuery{}, ErrInvalidPageQuery
	}
	ret.size = min(max(ret.size, 1), MaxPageSize)
	ret.number = max(ret.number, 1)
	return ret, nil
}

// pages returns the number of pages needed for total items
func (q pageQuery) pages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + q.size - 1) / q.size
}

// writeHeaders reports the listing totals
func (q pageQuery) writeHeaders(w http.ResponseWriter, total int) {
	total = max(total, 0)
	w.Header().Set("X-Pagination-Count-Total", strconv.Itoa(total))
	w.Header().Set("X-Pagination-Page-Total", strconv.Itoa(q.pages(total)))
}

// paginate returns the selected page without reordering items
func paginate[T any](items []T, q pageQuery) []T {
	ordered := slices.Clone(items)
	if q.desc {
		slices.Reverse(ordered)
	}
	// Compare page numbers first so a huge page cannot overflow the offset
	if q.number > q.pages(len(ordered)) {
		return []T{}
	}
	start := (q.number - 1) * q.size
	return ordered[start:min(start+q.size, len(ordered))]
}
