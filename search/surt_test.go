/*
 * Copyright 2025 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package search

import (
	"testing"

	assert "github.com/stretchr/testify/assert"
)

func TestSurt(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"simple", "http://example.com/", "com,example)/", false},
		{"no path", "http://example.com", "com,example)/", false},
		{"path", "https://www.example.com/path/page.html", "com,example,www)/path/page.html", false},
		{"no scheme", "example.com/page", "com,example)/page", false},
		{"port", "http://example.com:8080/x", "com,example:8080)/x", false},
		{"default port dropped", "http://example.com:80/x", "com,example)/x", false},
		{"query sorted", "http://example.com/p?b=2&a=1", "com,example)/p?a=1&b=2", false},
		{"fragment dropped", "http://example.com/p#frag", "com,example)/p", false},
		{"upper case host", "http://Example.COM/P", "com,example)/p", false},
		{"unparseable", "http://", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert := assert.New(t)
			got, err := Surt(tt.url)
			if tt.wantErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tt.want, got)
		})
	}
}

func TestParseMatchType(t *testing.T) {
	assert := assert.New(t)
	for name, want := range map[string]MatchType{
		"exact": MatchExact, "prefix": MatchPrefix, "host": MatchHost, "domain": MatchDomain, "": MatchExact,
	} {
		got, err := ParseMatchType(name)
		assert.NoError(err)
		assert.Equal(want, got)
	}
	_, err := ParseMatchType("fuzzy")
	assert.Error(err)
}

func TestExpandKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		mt   MatchType
		want []KeyQuery
	}{
		{"exact", "com,example)/page", MatchExact,
			[]KeyQuery{{Key: "com,example)/page"}}},
		{"prefix", "com,example)/dir", MatchPrefix,
			[]KeyQuery{{Key: "com,example)/dir", Prefix: true}}},
		{"host", "com,example)/deep/path", MatchHost,
			[]KeyQuery{{Key: "com,example)", Prefix: true}, {Key: "com,example,", Prefix: true}}},
		{"host of subdomain", "com,example,www)/x", MatchHost,
			[]KeyQuery{{Key: "com,example,www)", Prefix: true}, {Key: "com,example,www,", Prefix: true}}},
		{"domain from subdomain", "com,example,mail,imap)/x", MatchDomain,
			[]KeyQuery{{Key: "com,example)", Prefix: true}, {Key: "com,example,", Prefix: true}}},
		{"domain multi label suffix", "uk,co,example,www)/x", MatchDomain,
			[]KeyQuery{{Key: "uk,co,example)", Prefix: true}, {Key: "uk,co,example,", Prefix: true}}},
		{"domain drops port", "com,example:8080)/x", MatchDomain,
			[]KeyQuery{{Key: "com,example)", Prefix: true}, {Key: "com,example,", Prefix: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandKey(tt.key, tt.mt)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
