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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nlnwa/cdxj/zipnum"
)

// findInZipnum binary-searches the summary index of a shard set and scans
// only the candidate chunks. Chunks are sorted by the key of their first
// line, so the candidate set is the last chunk whose first key sorts at or
// before the search key plus every following chunk whose first key still
// matches.
func findInZipnum(idxPath string, q KeyQuery, emit func(line []byte) error) error {
	f, err := os.Open(idxPath)
	if err != nil {
		return err
	}
	entries, err := zipnum.ReadIndex(f)
	f.Close()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	loc, err := locationsFor(idxPath)
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(idxPath)

	// Index keys are "<surt> <timestamp>"; comparison against the bare
	// search key works because ' ' sorts below every key byte.
	first := sort.Search(len(entries), func(i int) bool {
		return entries[i].Key > q.Key
	})
	if first > 0 {
		first--
	}

	key := []byte(q.Key)
	for i := first; i < len(entries); i++ {
		if i > first {
			ik := surtField([]byte(entries[i].Key))
			if !matches(ik, key, q.Prefix) {
				break
			}
		}
		shardPath := loc.Resolve(entries[i].Shard, baseDir)
		data, err := zipnum.ReadChunk(shardPath, entries[i].Offset, entries[i].Length)
		if err != nil {
			return err
		}
		if err := Find(bytes.NewReader(data), int64(len(data)), shardPath, q, emit); err != nil {
			return err
		}
	}
	return nil
}

// locationsFor loads the conventional "<base>.loc" next to the index when
// present. Missing location files are fine; shards then resolve by name.
func locationsFor(idxPath string) (zipnum.Locations, error) {
	locPath := strings.TrimSuffix(idxPath, filepath.Ext(idxPath)) + ".loc"
	f, err := os.Open(locPath)
	if err != nil {
		if os.IsNotExist(err) {
			return zipnum.Locations{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return zipnum.ReadLocations(f)
}
