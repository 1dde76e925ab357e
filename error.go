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

package cdxj

import (
	"fmt"
	"strings"
)

// SyntaxError is used for CDXJ lines which do not parse.
type SyntaxError struct {
	msg     string
	source  string
	line    int
	wrapped error
}

func NewSyntaxError(msg string) *SyntaxError {
	return &SyntaxError{msg: msg}
}

func NewWrappedSyntaxError(msg string, wrapped error) *SyntaxError {
	return &SyntaxError{msg: msg, wrapped: wrapped}
}

// At annotates the error with the source name and line number where it occurred.
func (e *SyntaxError) At(source string, line int) *SyntaxError {
	e.source = source
	e.line = line
	return e
}

func (e *SyntaxError) Error() string {
	if e.source != "" {
		return fmt.Sprintf("cdxj: %s at %s line %d", e.msg, e.source, e.line)
	}
	if e.line > 0 {
		return fmt.Sprintf("cdxj: %s at line %d", e.msg, e.line)
	}
	return fmt.Sprintf("cdxj: %s", e.msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.wrapped
}

// UnsortedError is used for violations of the sorted input invariant.
type UnsortedError struct {
	Source string
	Line   int
	Prev   string
	Key    string
}

func (e *UnsortedError) Error() string {
	return fmt.Sprintf("cdxj: unsorted input in %s at line %d: %q < %q", e.Source, e.Line, e.Key, e.Prev)
}

// ShardError is used when a ZipNum chunk cannot be located or decompressed.
type ShardError struct {
	Shard   string
	Offset  int64
	msg     string
	wrapped error
}

func NewShardError(shard string, offset int64, msg string, wrapped error) *ShardError {
	return &ShardError{Shard: shard, Offset: offset, msg: msg, wrapped: wrapped}
}

func (e *ShardError) Error() string {
	return fmt.Sprintf("cdxj: %s in shard %s at offset %d", e.msg, e.Shard, e.Offset)
}

func (e *ShardError) Unwrap() error {
	return e.wrapped
}

// MultiErr collects errors from operations which must run to completion,
// typically closing a set of readers.
type MultiErr []error

func (e MultiErr) Error() string {
	switch len(e) {

	case 0:
		return ""

	case 1:
		return e[0].Error()
	}

	const (
		start = "["
		sep   = ", "
		end   = "]"
	)

	n := len(start) + len(end) + (len(sep) * (len(e) - 1))
	for i := 0; i < len(e); i++ {
		n += len(e[i].Error())
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(start)
	b.WriteString(e[0].Error())
	for _, s := range e[1:] {
		b.WriteString(sep)
		b.WriteString(s.Error())
	}
	b.WriteString(end)
	return b.String()
}

// AsError returns the collected errors as a single error or nil when empty.
func (e MultiErr) AsError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
