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

package filter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	assert "github.com/stretchr/testify/assert"
)

func TestFindExcessive(t *testing.T) {
	assert := assert.New(t)
	input := strings.Repeat("pt,trap)/loop 20200101000000 {}\n", 5) +
		"pt,ok)/ 20200101000000 {}\n"

	found, err := FindExcessive(context.Background(), strings.NewReader(input), 2)
	assert.NoError(err)
	assert.Equal([]KeyCount{{Key: "pt,trap)/loop", Count: 5}}, found)

	var buf bytes.Buffer
	assert.NoError(WriteExcessive(&buf, found, 2))
	assert.Equal("pt,trap)/loop\t5\n# Found 1 URLs with > 2 occurrences\n", buf.String())
}

func TestFindExcessiveOrdering(t *testing.T) {
	assert := assert.New(t)
	input := strings.Repeat("com,b)/ 20200101000000 {}\n", 3) +
		strings.Repeat("com,a)/ 20200101000000 {}\n", 3) +
		strings.Repeat("com,c)/ 20200101000000 {}\n", 5)

	found, err := FindExcessive(context.Background(), strings.NewReader(input), 2)
	assert.NoError(err)
	// descending count, ties by key
	assert.Equal([]KeyCount{
		{Key: "com,c)/", Count: 5},
		{Key: "com,a)/", Count: 3},
		{Key: "com,b)/", Count: 3},
	}, found)
}

func TestFindExcessiveThresholdIsExclusive(t *testing.T) {
	assert := assert.New(t)
	input := strings.Repeat("com,a)/ 20200101000000 {}\n", 2)
	found, err := FindExcessive(context.Background(), strings.NewReader(input), 2)
	assert.NoError(err)
	assert.Empty(found)
}

func TestLoadExcessive(t *testing.T) {
	assert := assert.New(t)
	blacklist := "pt,trap)/loop\t5\n# Found 1 URLs with > 2 occurrences\n\ncom,bare)/\n"
	keys, err := LoadExcessive(strings.NewReader(blacklist))
	assert.NoError(err)
	assert.Len(keys, 2)
	assert.Contains(keys, "pt,trap)/loop")
	assert.Contains(keys, "com,bare)/")
}

func TestRemoveExcessive(t *testing.T) {
	assert := assert.New(t)
	input := `com,a)/ 20200101000000 {}
com,trap)/ 20200101000000 {}
com,trap)/ 20200102000000 {}
com,z)/ 20200101000000 {}
`
	var buf bytes.Buffer
	kept, dropped, err := RemoveExcessive(context.Background(), &buf,
		strings.NewReader(input), map[string]struct{}{"com,trap)/": {}})
	assert.NoError(err)
	assert.Equal(uint64(2), kept)
	assert.Equal(uint64(2), dropped)
	assert.Equal("com,a)/ 20200101000000 {}\ncom,z)/ 20200101000000 {}\n", buf.String())
}

func TestAuto(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "input.cdxj")
	input := strings.Repeat("pt,trap)/loop 20200101000000 {}\n", 5) +
		"pt,ok)/ 20200101000000 {}\n"
	assert.NoError(os.WriteFile(path, []byte(input), 0644))

	var buf bytes.Buffer
	excessive, kept, dropped, err := Auto(context.Background(), &buf, path, 2)
	assert.NoError(err)
	assert.Equal(1, excessive)
	assert.Equal(uint64(1), kept)
	assert.Equal(uint64(5), dropped)
	assert.Equal("pt,ok)/ 20200101000000 {}\n", buf.String())
}

func TestAutoRejectsStdin(t *testing.T) {
	var buf bytes.Buffer
	_, _, _, err := Auto(context.Background(), &buf, "-", 2)
	assert.Error(t, err)
}
