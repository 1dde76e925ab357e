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

package discovery

import (
	"os"
	"path/filepath"
	"testing"

	assert "github.com/stretchr/testify/assert"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	assert.NoError(t, os.WriteFile(path, nil, 0644))
	return path
}

func basenames(paths []string) []string {
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	return names
}

func TestResolveWalksDirectories(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.cdxj"))
	touch(t, filepath.Join(dir, "a.cdxj"))
	touch(t, filepath.Join(dir, "sub", "c.cdxj"))
	touch(t, filepath.Join(dir, "notes.txt"))

	files, err := Resolve([]string{dir})
	assert.NoError(err)
	assert.Equal([]string{"a.cdxj", "b.cdxj", "c.cdxj"}, basenames(files))
}

func TestResolveExplicitFilesKeptAsGiven(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	// extension filtering applies to directory walks only
	other := touch(t, filepath.Join(dir, "index.dat"))

	files, err := Resolve([]string{other})
	assert.NoError(err)
	assert.Equal([]string{"index.dat"}, basenames(files))
}

func TestResolveDeduplicates(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	path := touch(t, filepath.Join(dir, "a.cdxj"))

	files, err := Resolve([]string{path, path, dir})
	assert.NoError(err)
	assert.Len(files, 1)
}

func TestResolveExcludes(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "keep.cdxj"))
	touch(t, filepath.Join(dir, "tmp-skip.cdxj"))

	files, err := Resolve([]string{dir}, WithExcludes("tmp-*"))
	assert.NoError(err)
	assert.Equal([]string{"keep.cdxj"}, basenames(files))
}

func TestResolveExtensions(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.cdxj"))
	touch(t, filepath.Join(dir, "b.idx"))
	touch(t, filepath.Join(dir, "c.cdx.gz"))

	files, err := Resolve([]string{dir}, WithExtensions(".idx", ".cdx.gz"))
	assert.NoError(err)
	assert.Equal([]string{"b.idx", "c.cdx.gz"}, basenames(files))
}

func TestResolveMissingPath(t *testing.T) {
	_, err := Resolve([]string{filepath.Join(t.TempDir(), "no-such-file")})
	assert.Error(t, err)
}

func TestDetectType(t *testing.T) {
	dir := t.TempDir()

	gzip := filepath.Join(dir, "sniffed")
	assert.NoError(t, os.WriteFile(gzip, []byte{0x1f, 0x8b, 0x08}, 0644))
	idx := filepath.Join(dir, "summary")
	assert.NoError(t, os.WriteFile(idx, []byte("com,a)/ 20200101000000\tshard\t0\t10\t1\n"), 0644))
	flat := filepath.Join(dir, "plain")
	assert.NoError(t, os.WriteFile(flat, []byte("com,a)/ 20200101000000 {}\n"), 0644))

	tests := []struct {
		name string
		path string
		want FileType
	}{
		{"idx extension", filepath.Join(dir, "x.idx"), TypeZipnumIndex},
		{"cdx.gz extension", filepath.Join(dir, "x.cdx.gz"), TypeZipnumShard},
		{"cdxj.gz extension", filepath.Join(dir, "x.cdxj.gz"), TypeZipnumShard},
		{"cdxj extension", filepath.Join(dir, "x.cdxj"), TypeCDXJ},
		{"gzip magic", gzip, TypeZipnumShard},
		{"tab separated index", idx, TypeZipnumIndex},
		{"flat lines", flat, TypeCDXJ},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectType(tt.path)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompanions(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	idx := touch(t, filepath.Join(dir, "set.idx"))
	shard := touch(t, filepath.Join(dir, "set.cdx.gz"))

	got, err := CompanionShard(idx)
	assert.NoError(err)
	assert.Equal(shard, got)

	got, err = CompanionIndex(shard)
	assert.NoError(err)
	assert.Equal(idx, got)

	_, err = CompanionShard(filepath.Join(dir, "lonely.idx"))
	assert.Error(err)
	_, err = CompanionIndex(filepath.Join(dir, "lonely.cdx.gz"))
	assert.Error(err)
}
