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
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/nlnwa/cdxj"
	"github.com/nlnwa/cdxj/internal/atomicfile"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultChunkLines       = 3000
	DefaultShardSize        = 100 * 1024 * 1024
	DefaultCompressionLevel = 6
	DefaultWorkers          = 4

	defaultBufferSize = 1024 * 1024
)

type writerOptions struct {
	chunkLines int
	shardSize  int64
	level      int
	workers    int
	base       string
	idxName    string
	locName    string
}

// WriterOption configures the encoder.
type WriterOption interface {
	apply(*writerOptions)
}

type writerFuncOption struct {
	f func(*writerOptions)
}

func (fo *writerFuncOption) apply(o *writerOptions) {
	fo.f(o)
}

func newWriterFuncOption(f func(*writerOptions)) *writerFuncOption {
	return &writerFuncOption{f: f}
}

func defaultWriterOptions() writerOptions {
	return writerOptions{
		chunkLines: DefaultChunkLines,
		shardSize:  DefaultShardSize,
		level:      DefaultCompressionLevel,
		workers:    DefaultWorkers,
	}
}

// WithChunkLines sets the number of lines per index chunk. Defaults to 3000.
func WithChunkLines(n int) WriterOption {
	return newWriterFuncOption(func(o *writerOptions) {
		if n > 0 {
			o.chunkLines = n
		}
	})
}

// WithShardSize sets the target compressed size per shard file in bytes.
// A chunk is never split, so a single chunk larger than the target still
// forms a valid shard. Defaults to 100 MiB.
func WithShardSize(n int64) WriterOption {
	return newWriterFuncOption(func(o *writerOptions) {
		if n > 0 {
			o.shardSize = n
		}
	})
}

// WithCompressionLevel sets the gzip level, 1 to 9. Defaults to 6.
func WithCompressionLevel(level int) WriterOption {
	return newWriterFuncOption(func(o *writerOptions) {
		if level >= gzip.BestSpeed && level <= gzip.BestCompression {
			o.level = level
		}
	})
}

// WithWorkers sets the number of parallel compression workers. Defaults to 4.
func WithWorkers(n int) WriterOption {
	return newWriterFuncOption(func(o *writerOptions) {
		if n > 0 {
			o.workers = n
		}
	})
}

// WithBaseName sets the base name of the produced artifacts. Defaults to the
// base name of the output directory.
func WithBaseName(base string) WriterOption {
	return newWriterFuncOption(func(o *writerOptions) {
		o.base = base
	})
}

// WithIndexName overrides the summary index file name.
func WithIndexName(name string) WriterOption {
	return newWriterFuncOption(func(o *writerOptions) {
		o.idxName = name
	})
}

// WithLocationName overrides the location file name.
func WithLocationName(name string) WriterOption {
	return newWriterFuncOption(func(o *writerOptions) {
		o.locName = name
	})
}

// Stats summarizes one encoder run.
type Stats struct {
	Lines   int64
	Chunks  int
	Shards  int
	Elapsed time.Duration
}

// chunk is the unit of work handed to the compression pool.
type chunk struct {
	num      int
	firstKey string
	data     []byte
	comp     []byte
	err      error
	done     chan struct{}
}

type shardFile struct {
	num    int // 1-based
	w      *atomicfile.Writer
	offset int64
}

// Write encodes the sorted CDXJ stream r into a shard set in dir. Chunks are
// compressed by a worker pool with at most 2×workers chunks in flight;
// writes preserve chunk order. All artifacts are published atomically: the
// index and location files become visible only after every shard is durable.
func Write(ctx context.Context, dir string, r io.Reader, opts ...WriterOption) (Stats, error) {
	o := defaultWriterOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return Stats{}, err
	}
	base := o.base
	if base == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return Stats{}, err
		}
		base = filepath.Base(abs)
	}

	start := time.Now()
	var stats Stats

	g, gctx := errgroup.WithContext(ctx)
	tasks := make(chan *chunk)
	ordered := make(chan *chunk, 2*o.workers)

	// Producer: chop the input into chunks of chunkLines lines, validating
	// the sorted invariant on the way.
	g.Go(func() error {
		defer close(tasks)
		defer close(ordered)

		br := bufio.NewReaderSize(r, defaultBufferSize)
		var buf bytes.Buffer
		var firstKey string
		var prevKey []byte
		count, num, lineNo := 0, 0, 0

		flush := func() error {
			if count == 0 {
				return nil
			}
			c := &chunk{
				num:      num,
				firstKey: firstKey,
				data:     append([]byte(nil), buf.Bytes()...),
				done:     make(chan struct{}),
			}
			num++
			buf.Reset()
			count = 0
			select {
			case ordered <- c:
			case <-gctx.Done():
				return gctx.Err()
			}
			select {
			case tasks <- c:
			case <-gctx.Done():
				return gctx.Err()
			}
			return nil
		}

		for {
			line, err := br.ReadBytes('\n')
			if stripped := cdxj.TrimLineEnding(line); len(stripped) > 0 {
				lineNo++
				key := cdxj.SortKey(stripped)
				if prevKey != nil && bytes.Compare(key, prevKey) < 0 {
					return &cdxj.UnsortedError{Source: "input", Line: lineNo, Prev: string(prevKey), Key: string(key)}
				}
				prevKey = append(prevKey[:0], key...)
				if count == 0 {
					firstKey = string(key)
				}
				buf.Write(stripped)
				buf.WriteByte('\n')
				count++
				stats.Lines++
				if count >= o.chunkLines {
					if err := flush(); err != nil {
						return err
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
		return flush()
	})

	// Compression pool. Each chunk is one independent gzip member.
	for i := 0; i < o.workers; i++ {
		g.Go(func() error {
			for c := range tasks {
				c.comp, c.err = compressChunk(c.data, o.level)
				c.data = nil
				close(c.done)
			}
			return nil
		})
	}

	// Serializing writer: consumes chunks in production order, appends them
	// to the current shard and rolls to the next shard when the compressed
	// size bound is reached.
	var entries []IndexEntry
	var shards []*shardFile
	g.Go(func() error {
		var current *shardFile
		for c := range ordered {
			select {
			case <-c.done:
			case <-gctx.Done():
				return gctx.Err()
			}
			if c.err != nil {
				return c.err
			}
			if current == nil {
				num := len(shards) + 1
				w, err := atomicfile.Create(filepath.Join(dir, numberedShardName(base, num)+ShardExt))
				if err != nil {
					return err
				}
				current = &shardFile{num: num, w: w}
				shards = append(shards, current)
			}
			if _, err := current.w.Write(c.comp); err != nil {
				return err
			}
			entries = append(entries, IndexEntry{
				Key:      c.firstKey,
				Offset:   current.offset,
				Length:   int64(len(c.comp)),
				ShardNum: current.num,
			})
			current.offset += int64(len(c.comp))
			stats.Chunks++
			if current.offset >= o.shardSize {
				// The next chunk, if any, starts a new shard. The file stays
				// open until finalization because a lone shard is renamed to
				// the plain base name.
				current = nil
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		for _, sf := range shards {
			_ = sf.w.Abort()
		}
		return stats, err
	}

	if err := finalize(dir, base, &o, shards, entries); err != nil {
		for _, sf := range shards {
			_ = sf.w.Abort()
		}
		return stats, err
	}

	stats.Shards = len(shards)
	stats.Elapsed = time.Since(start)
	log.Infof("zipnum: wrote %d lines as %d chunks in %d shard file(s) in %s",
		stats.Lines, stats.Chunks, stats.Shards, stats.Elapsed.Round(time.Millisecond))
	return stats, nil
}

// finalize publishes the shard files under their final names and writes the
// index and location files.
func finalize(dir, base string, o *writerOptions, shards []*shardFile, entries []IndexEntry) error {
	single := len(shards) == 1
	for _, sf := range shards {
		name := shardName(base, sf.num, single)
		if err := sf.w.CloseAs(filepath.Join(dir, name+ShardExt)); err != nil {
			return err
		}
	}

	idxName := o.idxName
	if idxName == "" {
		idxName = base + ".idx"
	}
	idx, err := atomicfile.Create(filepath.Join(dir, idxName))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(idx)
	for _, e := range entries {
		e.Shard = shardName(base, e.ShardNum, single)
		if _, err := fmt.Fprintln(bw, e.String()); err != nil {
			_ = idx.Abort()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = idx.Abort()
		return err
	}
	if err := idx.Close(); err != nil {
		return err
	}

	locName := o.locName
	if locName == "" {
		locName = base + ".loc"
	}
	loc, err := atomicfile.Create(filepath.Join(dir, locName))
	if err != nil {
		return err
	}
	for _, sf := range shards {
		name := shardName(base, sf.num, single)
		if _, err := fmt.Fprintf(loc, "%s\t%s\n", name, name+ShardExt); err != nil {
			_ = loc.Abort()
			return err
		}
	}
	return loc.Close()
}

func compressChunk(data []byte, level int) ([]byte, error) {
	var b bytes.Buffer
	zw, err := gzip.NewWriterLevel(&b, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func numberedShardName(base string, num int) string {
	return fmt.Sprintf("%s-%02d", base, num)
}

func shardName(base string, num int, single bool) string {
	if single {
		return base
	}
	return numberedShardName(base, num)
}
