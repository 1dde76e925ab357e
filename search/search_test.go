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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nlnwa/cdxj/zipnum"
	assert "github.com/stretchr/testify/assert"
)

func writeCdxj(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.cdxj")
	assert.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestSearchHostMatch(t *testing.T) {
	assert := assert.New(t)
	path := writeCdxj(t, `com,example)/ 20200101000000 {"status":"200"}
com,example)/a 20200101000000 {"status":"200"}
com,example,www)/ 20200101000000 {"status":"200"}
com,other)/ 20200101000000 {"status":"200"}
`)

	queries, err := ExpandURL("http://example.com/ignored/path", MatchHost)
	assert.NoError(err)

	var out bytes.Buffer
	n, err := New().Search(context.Background(), &out, queries, []string{path})
	assert.NoError(err)
	assert.Equal(3, n)
	assert.Equal(`com,example)/ 20200101000000 {"status":"200"}
com,example)/a 20200101000000 {"status":"200"}
com,example,www)/ 20200101000000 {"status":"200"}
`, out.String())
}

func TestSearchDomainMatch(t *testing.T) {
	assert := assert.New(t)
	path := writeCdxj(t, `com,example)/ 20200101000000 {}
com,example,mail)/ 20200101000000 {}
com,examples)/ 20200101000000 {}
`)

	queries, err := ExpandURL("http://mail.example.com/", MatchDomain)
	assert.NoError(err)

	var out bytes.Buffer
	n, err := New().Search(context.Background(), &out, queries, []string{path})
	assert.NoError(err)
	assert.Equal(2, n)
	assert.NotContains(out.String(), "com,examples")
}

func TestSearchDateRangeAndFieldFilter(t *testing.T) {
	assert := assert.New(t)
	var b strings.Builder
	for year := 2020; year <= 2024; year++ {
		fmt.Fprintf(&b, "com,example)/ %d0101000000 {\"status\":\"200\"}\n", year)
		fmt.Fprintf(&b, "com,example)/ %d0601000000 {\"status\":\"404\"}\n", year)
	}
	path := writeCdxj(t, b.String())

	f, err := NewFilter("2022", "2023", []string{"status=200"})
	assert.NoError(err)

	var out bytes.Buffer
	n, err := New(WithFilter(f)).Search(context.Background(), &out,
		[]KeyQuery{{Key: "com,example)/"}}, []string{path})
	assert.NoError(err)
	assert.Equal(2, n)
	assert.Equal(`com,example)/ 20220101000000 {"status":"200"}
com,example)/ 20230101000000 {"status":"200"}
`, out.String())
}

func TestSearchZipnum(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "com,site%02d)/ 20200101000000 {\"n\":%d}\n", i, i)
	}
	_, err := zipnum.Write(context.Background(), dir, strings.NewReader(b.String()),
		zipnum.WithChunkLines(4), zipnum.WithBaseName("test"))
	assert.NoError(err)

	// both the index file and the bare shard file are searchable
	for _, path := range []string{
		filepath.Join(dir, "test.idx"),
		filepath.Join(dir, "test.cdx.gz"),
	} {
		var out bytes.Buffer
		n, err := New().Search(context.Background(), &out,
			[]KeyQuery{{Key: "com,site13)/"}}, []string{path})
		assert.NoError(err, path)
		assert.Equal(1, n, path)
		assert.Equal("com,site13)/ 20200101000000 {\"n\":13}\n", out.String())
	}
}

func TestSearchSortDedupeLimit(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	// two files carrying overlapping captures
	a := filepath.Join(dir, "a.cdxj")
	assert.NoError(os.WriteFile(a, []byte(`com,example)/ 20200101000000 {"src":"a"}
com,example)/ 20200102000000 {"src":"a"}
`), 0644))
	b := filepath.Join(dir, "b.cdxj")
	assert.NoError(os.WriteFile(b, []byte(`com,example)/ 20200101000000 {"src":"b"}
com,example)/ 20200103000000 {"src":"b"}
`), 0644))

	var out bytes.Buffer
	n, err := New(WithSort(true), WithDedupe(true)).Search(context.Background(), &out,
		[]KeyQuery{{Key: "com,example)/"}}, []string{a, b})
	assert.NoError(err)
	assert.Equal(3, n)
	assert.Equal(`com,example)/ 20200101000000 {"src":"a"}
com,example)/ 20200102000000 {"src":"a"}
com,example)/ 20200103000000 {"src":"b"}
`, out.String())

	out.Reset()
	n, err = New(WithSort(true), WithDedupe(true), WithLimit(2)).Search(context.Background(), &out,
		[]KeyQuery{{Key: "com,example)/"}}, []string{a, b})
	assert.NoError(err)
	assert.Equal(2, n)
}

func TestSearchSkipErrors(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "good.cdxj")
	assert.NoError(os.WriteFile(good, []byte("com,example)/ 20200101000000 {}\n"), 0644))
	// a shard with no companion index cannot be searched
	orphan := filepath.Join(dir, "orphan.cdx.gz")
	assert.NoError(os.WriteFile(orphan, []byte{0x1f, 0x8b}, 0644))

	q := []KeyQuery{{Key: "com,example)/"}}
	var out bytes.Buffer
	_, err := New().Search(context.Background(), &out, q, []string{orphan, good})
	assert.Error(err)

	out.Reset()
	n, err := New(WithSkipErrors(true)).Search(context.Background(), &out, q, []string{orphan, good})
	assert.NoError(err)
	assert.Equal(1, n)
	assert.Equal("com,example)/ 20200101000000 {}\n", out.String())
}

func TestSearchNoMatches(t *testing.T) {
	assert := assert.New(t)
	path := writeCdxj(t, "com,example)/ 20200101000000 {}\n")

	var out bytes.Buffer
	n, err := New().Search(context.Background(), &out,
		[]KeyQuery{{Key: "org,absent)/"}}, []string{path})
	assert.NoError(err)
	assert.Equal(0, n)
	assert.Empty(out.String())
}
