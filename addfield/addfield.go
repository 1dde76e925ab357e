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

// Package addfield enriches the JSON payload of CDXJ records, either with a
// fixed set of key/value pairs or with a named transform from a statically
// registered set.
package addfield

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/nlnwa/cdxj"
	log "github.com/sirupsen/logrus"
)

const defaultBufferSize = 1024 * 1024

// TransformFunc rewrites the JSON object of one record. It may modify and
// return its argument.
type TransformFunc func(key, timestamp string, obj map[string]interface{}) (map[string]interface{}, error)

// Annotator applies exactly one of a constant field mapping or a transform
// to every record of a stream.
type Annotator struct {
	fields    map[string]string
	transform TransformFunc
	strict    bool

	// Processed and Skipped count the lines seen by Apply. Skipped lines are
	// unparseable lines passed through unchanged in lenient mode.
	Processed uint64
	Skipped   uint64
}

// Option configures an Annotator.
type Option interface {
	apply(*Annotator)
}

type funcOption struct {
	f func(*Annotator)
}

func (fo *funcOption) apply(a *Annotator) {
	fo.f(a)
}

func newFuncOption(f func(*Annotator)) *funcOption {
	return &funcOption{f: f}
}

// WithFields merges the given constant key/value pairs into every record.
// Existing keys are overwritten.
func WithFields(fields map[string]string) Option {
	return newFuncOption(func(a *Annotator) {
		a.fields = fields
	})
}

// WithTransform applies the given transform to every record.
func WithTransform(fn TransformFunc) Option {
	return newFuncOption(func(a *Annotator) {
		a.transform = fn
	})
}

// WithStrict makes unparseable lines fatal instead of passing them through.
func WithStrict(strict bool) Option {
	return newFuncOption(func(a *Annotator) {
		a.strict = strict
	})
}

// New creates an Annotator. Exactly one of WithFields or WithTransform must
// be given; anything else is a configuration error reported before any I/O.
func New(opts ...Option) (*Annotator, error) {
	a := &Annotator{}
	for _, opt := range opts {
		opt.apply(a)
	}
	if a.fields != nil && a.transform != nil {
		return nil, fmt.Errorf("addfield: both constant fields and a transform configured")
	}
	if a.fields == nil && a.transform == nil {
		return nil, fmt.Errorf("addfield: neither constant fields nor a transform configured")
	}
	return a, nil
}

// Annotate applies the configured enrichment to a single record.
func (a *Annotator) Annotate(r cdxj.Record) (cdxj.Record, error) {
	obj, err := r.Object()
	if err != nil {
		return r, err
	}
	if a.transform != nil {
		obj, err = a.transform(r.Key, r.Timestamp, obj)
		if err != nil {
			return r, err
		}
	} else {
		for k, v := range a.fields {
			obj[k] = v
		}
	}
	if err := r.SetObject(obj); err != nil {
		return r, err
	}
	return r, nil
}

// Apply streams r to w, annotating each line. In lenient mode lines that do
// not parse are emitted unchanged and counted as skipped.
func (a *Annotator) Apply(ctx context.Context, w io.Writer, r io.Reader) error {
	br := bufio.NewReaderSize(r, defaultBufferSize)
	bw := bufio.NewWriterSize(w, defaultBufferSize)
	lineNo := 0
	for {
		if lineNo&0xfff == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line, err := br.ReadBytes('\n')
		if stripped := cdxj.TrimLineEnding(line); len(stripped) > 0 {
			lineNo++
			out, perr := a.annotateLine(stripped)
			if perr != nil {
				if a.strict {
					if se, ok := perr.(*cdxj.SyntaxError); ok {
						return se.At("input", lineNo)
					}
					return perr
				}
				a.Skipped++
				out = stripped
			} else {
				a.Processed++
			}
			if _, werr := bw.Write(out); werr != nil {
				return werr
			}
			if werr := bw.WriteByte('\n'); werr != nil {
				return werr
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
	log.Infof("addfield: processed %d lines, skipped %d lines", a.Processed, a.Skipped)
	return nil
}

func (a *Annotator) annotateLine(line []byte) ([]byte, error) {
	rec, err := cdxj.Parse(line, a.strict)
	if err != nil {
		return nil, err
	}
	rec, err = a.Annotate(rec)
	if err != nil {
		return nil, err
	}
	return rec.Format(), nil
}
