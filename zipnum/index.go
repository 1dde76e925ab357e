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

// Package zipnum encodes sorted CDXJ streams into compressed shard sets with
// a binary-searchable summary index, and decodes them back.
//
// A shard set consists of shard files holding independently gzipped chunks
// of CDXJ lines, a summary index (.idx) with one line per chunk, and a
// location file (.loc) mapping shard names to paths.
package zipnum

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// ShardExt is the file extension of shard files. Shard names in idx and loc
// files omit it.
const ShardExt = ".cdx.gz"

// IndexEntry describes one chunk: the sort key of its first line and the
// compressed byte range holding it.
type IndexEntry struct {
	// Key is the "<surt> <timestamp>" prefix of the chunk's first line.
	Key string
	// Shard is the shard name without the .cdx.gz extension.
	Shard string
	// Offset and Length delimit the gzip member inside the shard file.
	Offset int64
	Length int64
	// ShardNum is the 1-based shard sequence number.
	ShardNum int
}

func (e IndexEntry) String() string {
	return fmt.Sprintf("%s\t%s\t%d\t%d\t%d", e.Key, e.Shard, e.Offset, e.Length, e.ShardNum)
}

// ParseIndexEntry parses one tab separated index line.
func ParseIndexEntry(line string) (IndexEntry, error) {
	parts := strings.Split(line, "\t")
	if len(parts) < 5 {
		return IndexEntry{}, fmt.Errorf("zipnum: index line has %d fields, want 5: %q", len(parts), line)
	}
	offset, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("zipnum: bad offset in index line %q: %w", line, err)
	}
	length, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("zipnum: bad length in index line %q: %w", line, err)
	}
	num, err := strconv.Atoi(parts[4])
	if err != nil {
		return IndexEntry{}, fmt.Errorf("zipnum: bad shard number in index line %q: %w", line, err)
	}
	return IndexEntry{Key: parts[0], Shard: parts[1], Offset: offset, Length: length, ShardNum: num}, nil
}

// ReadIndex reads a summary index. Blank lines and '#' comments are skipped.
func ReadIndex(r io.Reader) ([]IndexEntry, error) {
	var entries []IndexEntry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		e, err := ParseIndexEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Locations maps shard names to paths or URLs, as read from a .loc file.
type Locations map[string]string

// ReadLocations reads a location file: "<shard_name>\t<path_or_url>" lines.
func ReadLocations(r io.Reader) (Locations, error) {
	loc := make(Locations)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) < 2 {
			continue
		}
		loc[parts[0]] = parts[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return loc, nil
}

// Resolve translates a shard name into a file path. A location entry wins;
// relative entries are joined with baseDir. Without an entry the shard is
// expected in baseDir under its conventional file name.
func (l Locations) Resolve(shard, baseDir string) string {
	if path, ok := l[shard]; ok {
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(baseDir, path)
	}
	return filepath.Join(baseDir, shard+ShardExt)
}
