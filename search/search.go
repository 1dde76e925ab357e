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

// Package search answers URL lookups against flat CDXJ files and ZipNum
// shard sets: match-type key expansion, byte-offset binary search, and a
// post-filter pipeline for timestamp ranges and field predicates.
package search

import (
	"bufio"
	"context"
	"io"

	"github.com/nlnwa/cdxj/discovery"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 4

// Searcher runs key queries across a set of index files.
type Searcher struct {
	filter     *Filter
	limit      int
	sort       bool
	dedupe     bool
	workers    int
	skipErrors bool
}

// Option configures a Searcher.
type Option interface {
	apply(*Searcher)
}

type funcOption struct {
	f func(*Searcher)
}

func (fo *funcOption) apply(s *Searcher) {
	fo.f(s)
}

func newFuncOption(f func(*Searcher)) *funcOption {
	return &funcOption{f: f}
}

// WithFilter sets the post-search filter pipeline.
func WithFilter(f *Filter) Option {
	return newFuncOption(func(s *Searcher) {
		s.filter = f
	})
}

// WithLimit truncates the result to at most n lines. Zero means unlimited.
func WithLimit(n int) Option {
	return newFuncOption(func(s *Searcher) {
		s.limit = n
	})
}

// WithSort re-sorts the accumulated result by (surt, timestamp).
func WithSort(sort bool) Option {
	return newFuncOption(func(s *Searcher) {
		s.sort = sort
	})
}

// WithDedupe removes consecutive result lines sharing (surt, timestamp).
func WithDedupe(dedupe bool) Option {
	return newFuncOption(func(s *Searcher) {
		s.dedupe = dedupe
	})
}

// WithWorkers sets how many files are searched in parallel. Defaults to 4.
func WithWorkers(n int) Option {
	return newFuncOption(func(s *Searcher) {
		if n > 0 {
			s.workers = n
		}
	})
}

// WithSkipErrors downgrades per-file failures to warnings.
func WithSkipErrors(skip bool) Option {
	return newFuncOption(func(s *Searcher) {
		s.skipErrors = skip
	})
}

// New creates a Searcher.
func New(opts ...Option) *Searcher {
	s := &Searcher{workers: defaultWorkers}
	for _, opt := range opts {
		opt.apply(s)
	}
	if s.filter == nil {
		s.filter = &Filter{}
	}
	return s
}

// Search resolves paths into index files, runs every key query against each
// file, applies the filter pipeline and writes the result lines to w.
// Returns the number of lines written.
//
// Files are searched in parallel but results are accumulated in file order,
// and within one file in query order. The domain expansion relies on this:
// its apex query sorts before its subdomain query.
func (s *Searcher) Search(ctx context.Context, w io.Writer, queries []KeyQuery, paths []string) (int, error) {
	files, err := discovery.Resolve(paths,
		discovery.WithExtensions(".cdxj", ".idx", ".cdx.gz", ".cdxj.gz"))
	if err != nil {
		return 0, err
	}

	perFile := make([][][]byte, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lines, err := s.searchFile(file, queries)
			if err != nil {
				if s.skipErrors {
					log.Warnf("search: skipping %s: %v", file, err)
					return nil
				}
				return err
			}
			perFile[i] = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var results [][]byte
	for _, lines := range perFile {
		results = append(results, lines...)
	}

	if !s.filter.Empty() {
		kept := results[:0]
		for _, line := range results {
			if s.filter.Match(line) {
				kept = append(kept, line)
			}
		}
		results = kept
	}
	if s.sort {
		SortLines(results)
	}
	if s.dedupe {
		results = Dedupe(results)
	}
	if s.limit > 0 && len(results) > s.limit {
		results = results[:s.limit]
	}

	bw := bufio.NewWriter(w)
	for _, line := range results {
		if _, err := bw.Write(line); err != nil {
			return 0, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return 0, err
		}
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}
	log.Debugf("search: %d files, %d result lines", len(files), len(results))
	return len(results), nil
}

// searchFile runs the key queries against one file, dispatching on its type.
// A bare shard file is searched through its companion index.
func (s *Searcher) searchFile(file string, queries []KeyQuery) ([][]byte, error) {
	t, err := discovery.DetectType(file)
	if err != nil {
		return nil, err
	}
	if t == discovery.TypeZipnumShard {
		file, err = discovery.CompanionIndex(file)
		if err != nil {
			return nil, err
		}
		t = discovery.TypeZipnumIndex
	}

	var lines [][]byte
	emit := func(line []byte) error {
		lines = append(lines, append([]byte(nil), line...))
		return nil
	}
	for _, q := range queries {
		switch t {
		case discovery.TypeZipnumIndex:
			err = findInZipnum(file, q, emit)
		default:
			err = FindInFile(file, q, emit)
		}
		if err != nil {
			return nil, err
		}
	}
	return lines, nil
}
