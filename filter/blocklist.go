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

// Package filter implements streaming filters over sorted CDXJ streams:
// a regex blocklist and an excessive-URL cardinality filter.
package filter

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/nlnwa/cdxj"
	log "github.com/sirupsen/logrus"
)

const defaultBufferSize = 1024 * 1024

// Blocklist drops lines matching any of a set of patterns. Patterns are
// matched against the raw line bytes. Literal patterns are categorized into
// prefix and substring fast paths; everything else runs as a full regexp.
type Blocklist struct {
	prefixes   [][]byte
	substrings [][]byte
	patterns   []*regexp.Regexp

	// Kept and Dropped count the lines seen by Apply.
	Kept    uint64
	Dropped uint64
}

// regexp metacharacters that disqualify a pattern from the literal fast paths.
const regexpMeta = `.+*?()|[]{}^$\`

// LoadBlocklist reads a pattern file: one pattern per line, blank lines and
// lines whose first non-space character is '#' are ignored. Patterns that
// fail to compile are skipped with a warning.
func LoadBlocklist(path string) (*Blocklist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseBlocklist(f)
}

// ParseBlocklist reads patterns from r. See LoadBlocklist.
func ParseBlocklist(r io.Reader) (*Blocklist, error) {
	b := &Blocklist{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		b.add(trimmed, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if b.Len() == 0 {
		log.Warn("blocklist: no usable patterns loaded, filter is a no-op")
	}
	return b, nil
}

func (b *Blocklist) add(pattern string, lineNo int) {
	if strings.HasPrefix(pattern, "^") && !strings.ContainsAny(pattern[1:], regexpMeta) {
		b.prefixes = append(b.prefixes, []byte(pattern[1:]))
		return
	}
	if !strings.ContainsAny(pattern, regexpMeta) {
		b.substrings = append(b.substrings, []byte(pattern))
		return
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		log.Warnf("blocklist: invalid pattern at line %d: %q: %v", lineNo, pattern, err)
		return
	}
	b.patterns = append(b.patterns, re)
}

// Len returns the number of usable patterns.
func (b *Blocklist) Len() int {
	return len(b.prefixes) + len(b.substrings) + len(b.patterns)
}

// Match reports whether the line matches any pattern.
func (b *Blocklist) Match(line []byte) bool {
	for _, p := range b.prefixes {
		if bytes.HasPrefix(line, p) {
			return true
		}
	}
	for _, s := range b.substrings {
		if bytes.Contains(line, s) {
			return true
		}
	}
	for _, re := range b.patterns {
		if re.Match(line) {
			return true
		}
	}
	return false
}

// Apply streams r to w, dropping matching lines and counting both outcomes.
func (b *Blocklist) Apply(ctx context.Context, w io.Writer, r io.Reader) error {
	br := bufio.NewReaderSize(r, defaultBufferSize)
	bw := bufio.NewWriterSize(w, defaultBufferSize)
	var n uint64
	for {
		if n&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		n++
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			stripped := cdxj.TrimLineEnding(line)
			if len(stripped) == 0 {
				// preserve blank lines untouched
				if _, werr := bw.Write(line); werr != nil {
					return werr
				}
			} else if b.Match(stripped) {
				b.Dropped++
			} else {
				b.Kept++
				if _, werr := bw.Write(stripped); werr != nil {
					return werr
				}
				if werr := bw.WriteByte('\n'); werr != nil {
					return werr
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	log.Infof("blocklist: kept %d lines, dropped %d lines", b.Kept, b.Dropped)
	return nil
}
