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
	"math"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  pageQuery
	}{
		{name: "defaults", query: "", want: pageQuery{size: DefaultPageSize, number: 1}},
		{name: "explicit", query: "count=25&page=3&order=DESC", want: pageQuery{size: 25, number: 3, desc: true}},
		{name: "clamped", query: "count=999&page=0", want: pageQuery{size: MaxPageSize, number: 1}},
		{name: "minimum size", query: "count=-4", want: pageQuery{size: 1, number: 1}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			values, err := url.ParseQuery(test.query)
			require.NoError(t, err)
			got, err := parsePageQuery(values)
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestParsePageQueryInvalid(t *testing.T) {
	for _, query := range []string{"count=abc", "page=abc", "order=sideways"} {
		t.Run(query, func(t *testing.T) {
			values, err := url.ParseQuery(query)
			require.NoError(t, err)
			got, err := parsePageQuery(values)
			require.ErrorIs(t, err, ErrInvalidPageQuery)
			assert.Equal(t, pageQuery{}, got)
		})
	}
}

func TestPageQueryWriteHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	pageQuery{size: 100, number: 1}.writeHeaders(rec, 250)
	assert.Equal(t, "250", rec.Header().Get("X-Pagination-Count-Total"))
	assert.Equal(t, "3", rec.Header().Get("X-Pagination-Page-Total"))

	rec = httptest.NewRecorder()
	pageQuery{size: 10, number: 1}.writeHeaders(rec, -1)
	assert.Equal(t, "0", rec.Header().Get("X-Pagination-Count-Total"))
	assert.Equal(t, "0", rec.Header().Get("X-Pagination-Page-Total"))
}

func TestPaginate(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	tests := []struct {
		name  string
		query pageQuery
		want  []string
	}{
		{name: "first page", query: pageQuery{size: 2, number: 1}, want: []string{"a", "b"}},
		{name: "last partial page", query: pageQuery{size: 2, number: 3}, want: []string{"e"}},
		{name: "past the end", query: pageQuery{size: 2, number: 4}, want: []string{}},
		{name: "descending", query: pageQuery{size: 3, number: 1, desc: true}, want: []string{"e", "d", "c"}},
		{name: "huge page number", query: pageQuery{size: 100, number: 184467440737095517}, want: []string{}},
		{name: "max int page number", query: pageQuery{size: 2, number: math.MaxInt}, want: []string{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, paginate(items, test.query))
		})
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, items)
}
