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

// Package merge implements a k-way merge of sorted CDXJ line streams.
package merge

import (
	"bufio"
	"bytes"
	"container/heap"
	"context"
	"fmt"
	"io"

	"github.com/nlnwa/cdxj"
	log "github.com/sirupsen/logrus"
)

// Source is one named sorted line stream.
type Source struct {
	Name   string
	Reader io.Reader
}

// source tracks the read state of one input during the merge.
type source struct {
	name   string
	br     *bufio.Reader
	index  int
	line   []byte // current line, newline stripped
	key    []byte // sort key of current line
	lineNo int
	eof    bool
}

// advance reads the next non-empty line and validates both its structure and
// the sorted invariant against the previous line.
func (s *source) advance() error {
	prev := s.key
	for {
		line, err := s.br.ReadBytes('\n')
		if len(line) == 0 && err == io.EOF {
			s.eof = true
			return nil
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		s.lineNo++
		line = cdxj.TrimLineEnding(line)
		if len(line) == 0 {
			if err == io.EOF {
				s.eof = true
				return nil
			}
			continue
		}

		if err := validateShape(line); err != nil {
			return err.At(s.name, s.lineNo)
		}
		key := cdxj.SortKey(line)
		if prev != nil && bytes.Compare(key, prev) < 0 {
			return &cdxj.UnsortedError{Source: s.name, Line: s.lineNo, Prev: string(prev), Key: string(key)}
		}
		s.line = line
		s.key = key
		return nil
	}
}

// validateShape requires the two space separators of a CDXJ line.
// JSON content is not parsed here; the merge moves lines as opaque bytes.
func validateShape(line []byte) *cdxj.SyntaxError {
	i := bytes.IndexByte(line, ' ')
	if i < 0 {
		return cdxj.NewSyntaxError("missing timestamp field")
	}
	if bytes.IndexByte(line[i+1:], ' ') < 0 {
		return cdxj.NewSyntaxError("missing json field")
	}
	return nil
}

// lineHeap orders sources by full line bytes with the source index as
// tiebreaker, making the merge stable and deterministic.
type lineHeap []*source

func (h lineHeap) Len() int { return len(h) }

func (h lineHeap) Less(i, j int) bool {
	if c := bytes.Compare(h[i].line, h[j].line); c != 0 {
		return c < 0
	}
	return h[i].index < h[j].index
}

func (h lineHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *lineHeap) Push(x interface{}) { *h = append(*h, x.(*source)) }

func (h *lineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	s := old[n-1]
	*h = old[:n-1]
	return s
}

// Merge merges the sorted sources into w. Returns the number of lines
// written. Any structural or ordering violation aborts the merge.
func Merge(ctx context.Context, w io.Writer, sources ...Source) (int64, error) {
	h := make(lineHeap, 0, len(sources))
	for i, src := range sources {
		s := &source{
			name:  src.Name,
			br:    bufio.NewReaderSize(src.Reader, defaultBufferSize),
			index: i,
		}
		if err := s.advance(); err != nil {
			return 0, err
		}
		if !s.eof {
			h = append(h, s)
		}
	}
	heap.Init(&h)

	var written int64
	for h.Len() > 0 {
		if written&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return written, err
			}
		}
		s := h[0]
		if _, err := w.Write(s.line); err != nil {
			return written, err
		}
		if _, err := w.Write([]byte{'\n'}); err != nil {
			return written, err
		}
		written++

		if err := s.advance(); err != nil {
			return written, err
		}
		if s.eof {
			heap.Pop(&h)
		} else {
			heap.Fix(&h, 0)
		}
	}
	log.Infof("[MERGE] complete: %d lines written", written)
	return written, nil
}
