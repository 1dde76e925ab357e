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

package merge

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/nlnwa/cdxj"
	"github.com/nlnwa/cdxj/internal/atomicfile"
	log "github.com/sirupsen/logrus"
)

const defaultBufferSize = 1024 * 1024

// StdioName denotes the standard input or output stream in path arguments.
const StdioName = "-"

type options struct {
	bufferSize   int
	maxOpenFiles int
}

// Option configures a file merge.
type Option interface {
	apply(*options)
}

type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(o *options) {
	fo.f(o)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{f: f}
}

func defaultOptions() options {
	return options{
		bufferSize:   defaultBufferSize,
		maxOpenFiles: 512,
	}
}

// WithBufferSize sets the per-stream read buffer and the output buffer size.
// Defaults to 1 MiB.
func WithBufferSize(size int) Option {
	return newFuncOption(func(o *options) {
		if size > 0 {
			o.bufferSize = size
		}
	})
}

// WithMaxOpenFiles caps the merge fan-in. When the input set is larger,
// intermediate merges are staged through temporary files. Defaults to 512.
func WithMaxOpenFiles(n int) Option {
	return newFuncOption(func(o *options) {
		if n > 1 {
			o.maxOpenFiles = n
		}
	})
}

// Files merges the given input files into output. Inputs must be resolved
// file paths, or "-" for the standard input stream. An output of "-" writes
// to standard output; otherwise the output file only becomes visible under
// its final name when the merge completes.
func Files(ctx context.Context, output string, inputs []string, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("merge: no input files")
	}

	staged, cleanup, err := stage(ctx, inputs, &o)
	defer cleanup()
	if err != nil {
		return err
	}

	if output == StdioName {
		bw := bufio.NewWriterSize(os.Stdout, o.bufferSize)
		if err := mergePaths(ctx, bw, staged, &o); err != nil {
			return err
		}
		return bw.Flush()
	}

	w, err := atomicfile.Create(output)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(w, o.bufferSize)
	if err := mergePaths(ctx, bw, staged, &o); err != nil {
		_ = w.Abort()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

// stage reduces the input set below the open file cap by merging groups of
// inputs into temporary files, recursively.
func stage(ctx context.Context, inputs []string, o *options) ([]string, func(), error) {
	var temps []string
	cleanup := func() {
		for _, t := range temps {
			os.Remove(t)
		}
	}

	for len(inputs) > o.maxOpenFiles {
		log.Infof("[MERGE] staging: %d inputs exceed fan-in cap %d", len(inputs), o.maxOpenFiles)
		var next []string
		for lo := 0; lo < len(inputs); lo += o.maxOpenFiles {
			hi := lo + o.maxOpenFiles
			if hi > len(inputs) {
				hi = len(inputs)
			}
			group := inputs[lo:hi]
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}
			tmp, err := os.CreateTemp("", "cdxj-merge-stage-*.cdxj")
			if err != nil {
				return nil, cleanup, err
			}
			temps = append(temps, tmp.Name())
			bw := bufio.NewWriterSize(tmp, o.bufferSize)
			err = mergePaths(ctx, bw, group, o)
			if err == nil {
				err = bw.Flush()
			}
			if cerr := tmp.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return nil, cleanup, err
			}
			next = append(next, tmp.Name())
		}
		inputs = next
	}
	return inputs, cleanup, nil
}

func mergePaths(ctx context.Context, w *bufio.Writer, paths []string, o *options) error {
	sources := make([]Source, 0, len(paths))
	var closers []*os.File
	defer func() {
		for _, f := range closers {
			f.Close()
		}
	}()

	for _, path := range paths {
		if path == StdioName {
			sources = append(sources, Source{Name: "stdin", Reader: os.Stdin})
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		closers = append(closers, f)
		sources = append(sources, Source{Name: path, Reader: f})
	}

	_, err := Merge(ctx, w, sources...)
	if err != nil {
		return err
	}

	var errs cdxj.MultiErr
	for _, f := range closers {
		if cerr := f.Close(); cerr != nil {
			errs = append(errs, cerr)
		}
	}
	closers = nil
	return errs.AsError()
}
