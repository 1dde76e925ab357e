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

package zipnum

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type readerOptions struct {
	baseDir    string
	locPath    string
	workers    int
	skipErrors bool
}

// ReaderOption configures the decoder.
type ReaderOption interface {
	apply(*readerOptions)
}

type readerFuncOption struct {
	f func(*readerOptions)
}

func (fo *readerFuncOption) apply(o *readerOptions) {
	fo.f(o)
}

func newReaderFuncOption(f func(*readerOptions)) *readerFuncOption {
	return &readerFuncOption{f: f}
}

// WithBaseDir sets the directory shard names are resolved against. Defaults
// to the directory of the index file.
func WithBaseDir(dir string) ReaderOption {
	return newReaderFuncOption(func(o *readerOptions) {
		o.baseDir = dir
	})
}

// WithLocations sets the location file to resolve shard names with. Without
// it a "<base>.loc" file next to the index is used when present.
func WithLocations(path string) ReaderOption {
	return newReaderFuncOption(func(o *readerOptions) {
		o.locPath = path
	})
}

// WithReadWorkers sets the number of parallel decompression workers.
// Defaults to 4.
func WithReadWorkers(n int) ReaderOption {
	return newReaderFuncOption(func(o *readerOptions) {
		if n > 0 {
			o.workers = n
		}
	})
}

// WithSkipErrors downgrades unreadable chunks to warnings. The output then
// has a gap where the chunk's lines would have been.
func WithSkipErrors(skip bool) ReaderOption {
	return newReaderFuncOption(func(o *readerOptions) {
		o.skipErrors = skip
	})
}

// job carries one chunk through the decompression pool. The error is kept on
// the job rather than failing the pool so skip-errors mode can warn and move
// on without losing chunk order.
type job struct {
	entry IndexEntry
	path  string
	data  []byte
	err   error
	done  chan struct{}
}

// Read decodes a complete shard set back into a CDXJ stream on w, in index
// order. The index is read from idxPath, or from stdin when idxPath is "-"
// (stdin input requires WithBaseDir since there is no index directory to
// resolve shards against).
func Read(ctx context.Context, w io.Writer, idxPath string, opts ...ReaderOption) (int64, error) {
	o := readerOptions{workers: DefaultWorkers}
	for _, opt := range opts {
		opt.apply(&o)
	}

	entries, err := readIndexPath(idxPath)
	if err != nil {
		return 0, err
	}
	if o.baseDir == "" && idxPath != "-" {
		o.baseDir = filepath.Dir(idxPath)
	}

	loc, err := loadLocations(idxPath, o.locPath)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan *job)
	ordered := make(chan *job, 2*o.workers)

	// Dispatcher: one job per index entry, in index order.
	g.Go(func() error {
		defer close(tasks)
		defer close(ordered)
		for _, e := range entries {
			j := &job{
				entry: e,
				path:  loc.Resolve(e.Shard, o.baseDir),
				done:  make(chan struct{}),
			}
			select {
			case ordered <- j:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case tasks <- j:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < o.workers; i++ {
		g.Go(func() error {
			for j := range tasks {
				j.data, j.err = ReadChunk(j.path, j.entry.Offset, j.entry.Length)
				close(j.done)
			}
			return nil
		})
	}

	// Emitter: writes chunks in index order.
	var lines int64
	g.Go(func() error {
		bw := bufio.NewWriterSize(w, defaultBufferSize)
		for j := range ordered {
			select {
			case <-j.done:
			case <-gctx.Done():
				return gctx.Err()
			}
			if j.err != nil {
				if o.skipErrors {
					log.Warnf("zipnum: skipping chunk at %s:%d: %v", j.path, j.entry.Offset, j.err)
					continue
				}
				return j.err
			}
			if _, err := bw.Write(j.data); err != nil {
				return err
			}
			lines += countLines(j.data)
			j.data = nil
		}
		return bw.Flush()
	})

	if err := g.Wait(); err != nil {
		return lines, err
	}
	log.Infof("zipnum: decoded %d chunks, %d lines", len(entries), lines)
	return lines, nil
}

func readIndexPath(idxPath string) ([]IndexEntry, error) {
	if idxPath == "-" {
		return ReadIndex(os.Stdin)
	}
	f, err := os.Open(idxPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadIndex(f)
}

// loadLocations reads the configured location file, or the conventional
// "<base>.loc" sibling of the index when one exists. A missing conventional
// file is not an error; shards then resolve by name alone.
func loadLocations(idxPath, locPath string) (Locations, error) {
	if locPath == "" {
		if idxPath == "-" {
			return Locations{}, nil
		}
		locPath = strings.TrimSuffix(idxPath, filepath.Ext(idxPath)) + ".loc"
		if _, err := os.Stat(locPath); err != nil {
			return Locations{}, nil
		}
	}
	f, err := os.Open(locPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLocations(f)
}

func countLines(data []byte) int64 {
	var n int64
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
