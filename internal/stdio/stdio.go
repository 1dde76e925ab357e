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

// Package stdio resolves the "-" path convention: file paths open regular
// files, "-" denotes the standard streams.
package stdio

import (
	"io"
	"os"

	"github.com/nlnwa/cdxj/internal/atomicfile"
)

// StreamName is the path denoting standard input or output.
const StreamName = "-"

// Open opens path for reading, or returns stdin for "-". The returned closer
// never closes stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == StreamName {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// Output is a destination that either commits on Close or discards on Abort.
type Output interface {
	io.Writer
	// Close publishes the output.
	Close() error
	// Abort discards everything written so far. Aborting stdout is a no-op.
	Abort() error
}

type stdout struct{}

func (stdout) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdout) Close() error                { return nil }
func (stdout) Abort() error                { return nil }

// Create opens path for writing through a temp file that is renamed into
// place on Close, or returns stdout for "-".
func Create(path string) (Output, error) {
	if path == StreamName {
		return stdout{}, nil
	}
	return atomicfile.Create(path)
}
