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

package merge

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/nlnwa/cdxj"
	assert "github.com/stretchr/testify/assert"
)

func mergeStrings(t *testing.T, inputs ...string) (string, error) {
	t.Helper()
	sources := make([]Source, len(inputs))
	for i, in := range inputs {
		sources[i] = Source{Name: "input", Reader: strings.NewReader(in)}
	}
	var buf bytes.Buffer
	_, err := Merge(context.Background(), &buf, sources...)
	return buf.String(), err
}

func TestMergeTwoStreams(t *testing.T) {
	assert := assert.New(t)
	a := `com,a)/ 20230101000000 {"s":200}
com,b)/ 20230101000000 {"s":200}
`
	b := `com,a)/ 20230201000000 {"s":200}
com,c)/ 20230101000000 {"s":200}
`
	want := `com,a)/ 20230101000000 {"s":200}
com,a)/ 20230201000000 {"s":200}
com,b)/ 20230101000000 {"s":200}
com,c)/ 20230101000000 {"s":200}
`
	got, err := mergeStrings(t, a, b)
	assert.NoError(err)
	assert.Equal(want, got)
}

func TestMergePreservesMultisetAndOrder(t *testing.T) {
	assert := assert.New(t)
	inputs := []string{
		"com,a)/ 20200101000000 {}\ncom,a)/ 20210101000000 {}\ncom,d)/ 20200101000000 {}\n",
		"com,b)/ 20200101000000 {}\n",
		"",
		"com,a)/ 20200101000000 {}\ncom,c)/ 20200101000000 {}\n",
	}
	got, err := mergeStrings(t, inputs...)
	assert.NoError(err)

	var all []string
	for _, in := range inputs {
		for _, line := range strings.Split(strings.TrimRight(in, "\n"), "\n") {
			if line != "" {
				all = append(all, line)
			}
		}
	}
	sort.Strings(all)
	assert.Equal(strings.Join(all, "\n")+"\n", got)

	// output sorted by (surt, ts)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	for i := 1; i < len(lines); i++ {
		assert.LessOrEqual(
			string(cdxj.SortKey([]byte(lines[i-1]))),
			string(cdxj.SortKey([]byte(lines[i]))))
	}
}

func TestMergeDeterministicTieOrder(t *testing.T) {
	assert := assert.New(t)
	// identical sort key, differing payloads; full line bytes decide,
	// independent of source order
	a := "com,a)/ 20200101000000 {\"from\":\"a\"}\n"
	b := "com,a)/ 20200101000000 {\"from\":\"b\"}\n"
	got, err := mergeStrings(t, b, a)
	assert.NoError(err)
	assert.Equal(
		"com,a)/ 20200101000000 {\"from\":\"a\"}\ncom,a)/ 20200101000000 {\"from\":\"b\"}\n",
		got)
}

func TestMergeUnsortedInput(t *testing.T) {
	assert := assert.New(t)
	in := `com,b)/ 20200101000000 {}
com,a)/ 20200101000000 {}
`
	_, err := mergeStrings(t, in)
	assert.Error(err)
	var unsorted *cdxj.UnsortedError
	assert.ErrorAs(err, &unsorted)
	assert.Equal(2, unsorted.Line)
}

func TestMergeMalformedLine(t *testing.T) {
	assert := assert.New(t)
	_, err := mergeStrings(t, "com,a)/\n")
	assert.Error(err)
	var syntax *cdxj.SyntaxError
	assert.ErrorAs(err, &syntax)
}

func TestMergeTimestampOrderWithinKey(t *testing.T) {
	assert := assert.New(t)
	a := "com,a)/ 20230201000000 {}\n"
	b := "com,a)/ 20230101000000 {}\ncom,a)/ 20230301000000 {}\n"
	got, err := mergeStrings(t, a, b)
	assert.NoError(err)
	assert.Equal(
		"com,a)/ 20230101000000 {}\ncom,a)/ 20230201000000 {}\ncom,a)/ 20230301000000 {}\n",
		got)
}

func TestMergeSkipsBlankLines(t *testing.T) {
	assert := assert.New(t)
	got, err := mergeStrings(t, "com,a)/ 20200101000000 {}\n\ncom,b)/ 20200101000000 {}\n")
	assert.NoError(err)
	assert.Equal("com,a)/ 20200101000000 {}\ncom,b)/ 20200101000000 {}\n", got)
}

func TestMergeCancellation(t *testing.T) {
	assert := assert.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	_, err := Merge(ctx, &buf, Source{Name: "a", Reader: strings.NewReader("com,a)/ 20200101000000 {}\n")})
	assert.ErrorIs(err, context.Canceled)
}
