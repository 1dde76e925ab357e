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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/nlnwa/cdxj"
	log "github.com/sirupsen/logrus"
)

// DefaultThreshold is the record count above which a SURT is excessive.
const DefaultThreshold = 1000

// KeyCount is one excessive SURT with its record count.
type KeyCount struct {
	Key   string
	Count uint64
}

// FindExcessive counts records per SURT in a single pass and returns the
// keys whose count exceeds threshold, ordered by descending count with ties
// broken by key. The frequency table lives only for the duration of the call.
func FindExcessive(ctx context.Context, r io.Reader, threshold uint64) ([]KeyCount, error) {
	counts := make(map[string]uint64)
	br := bufio.NewReaderSize(r, defaultBufferSize)
	var n uint64
	for {
		if n&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		n++
		line, err := br.ReadBytes('\n')
		if stripped := cdxj.TrimLineEnding(line); len(stripped) > 0 {
			counts[string(cdxj.Key(stripped))]++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	var excessive []KeyCount
	for key, count := range counts {
		if count > threshold {
			excessive = append(excessive, KeyCount{Key: key, Count: count})
		}
	}
	sort.Slice(excessive, func(i, j int) bool {
		if excessive[i].Count != excessive[j].Count {
			return excessive[i].Count > excessive[j].Count
		}
		return excessive[i].Key < excessive[j].Key
	})
	return excessive, nil
}

// WriteExcessive emits find-mode output: one "<surt>\t<count>" line per key
// followed by a trailing comment summarizing the result.
func WriteExcessive(w io.Writer, keys []KeyCount, threshold uint64) error {
	bw := bufio.NewWriter(w)
	for _, kc := range keys {
		if _, err := fmt.Fprintf(bw, "%s\t%d\n", kc.Key, kc.Count); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "# Found %d URLs with > %d occurrences\n", len(keys), threshold); err != nil {
		return err
	}
	return bw.Flush()
}

// LoadExcessive reads a blacklist file into a key set. The first whitespace
// separated field of each line is the SURT; anything after it is ignored.
// Blank lines and '#' comments are skipped.
func LoadExcessive(r io.Reader) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		keys[strings.Fields(line)[0]] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// RemoveExcessive streams r to w, dropping lines whose SURT is in keys.
func RemoveExcessive(ctx context.Context, w io.Writer, r io.Reader, keys map[string]struct{}) (kept, dropped uint64, err error) {
	br := bufio.NewReaderSize(r, defaultBufferSize)
	bw := bufio.NewWriterSize(w, defaultBufferSize)
	var n uint64
	for {
		if n&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return kept, dropped, err
			}
		}
		n++
		line, err := br.ReadBytes('\n')
		if stripped := cdxj.TrimLineEnding(line); len(stripped) > 0 {
			if _, excessive := keys[string(cdxj.Key(stripped))]; excessive {
				dropped++
			} else {
				kept++
				if _, werr := bw.Write(stripped); werr != nil {
					return kept, dropped, werr
				}
				if werr := bw.WriteByte('\n'); werr != nil {
					return kept, dropped, werr
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return kept, dropped, err
		}
	}
	if err := bw.Flush(); err != nil {
		return kept, dropped, err
	}
	log.Infof("excessive-urls: kept %d lines, dropped %d lines", kept, dropped)
	return kept, dropped, nil
}

// Auto runs find followed by remove over the same file. It needs two passes,
// so the input must be a real file, not the standard input stream.
func Auto(ctx context.Context, w io.Writer, inputPath string, threshold uint64) (excessive int, kept, dropped uint64, err error) {
	if inputPath == "-" {
		return 0, 0, 0, fmt.Errorf("excessive-urls: auto mode requires a file, not stdin")
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return 0, 0, 0, err
	}
	found, err := FindExcessive(ctx, f, threshold)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, 0, 0, err
	}
	log.Infof("excessive-urls: found %d URLs with > %d occurrences", len(found), threshold)

	keys := make(map[string]struct{}, len(found))
	for _, kc := range found {
		keys[kc.Key] = struct{}{}
	}

	f, err = os.Open(inputPath)
	if err != nil {
		return len(found), 0, 0, err
	}
	kept, dropped, err = RemoveExcessive(ctx, w, f, keys)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return len(found), kept, dropped, err
}
