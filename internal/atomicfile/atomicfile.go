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

// Package atomicfile writes files through a temporary name in the target
// directory and renames them into place on close, so that a file under its
// final name is always complete.
package atomicfile

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/tsdb/fileutil"
)

const openFileSuffix = ".open"

// Writer writes to <path>.open-<uuid> and renames to path on Close.
type Writer struct {
	f    *os.File
	path string
	tmp  string
	done bool
}

// Create opens a temporary file next to path for writing.
func Create(path string) (*Writer, error) {
	tmp := path + openFileSuffix + "-" + uuid.New().String()
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, path: path, tmp: tmp}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

// Offset returns the current write position.
func (w *Writer) Offset() (int64, error) {
	return w.f.Seek(0, io.SeekCurrent)
}

// Close syncs the temporary file and renames it to the target path.
// The rename also fsyncs the parent directory.
func (w *Writer) Close() error {
	return w.CloseAs(w.path)
}

// CloseAs is like Close but publishes the file under a different final name
// in the same directory. The ZipNum writer uses this to rename a lone
// "-01" shard to the plain base name once the input is exhausted.
func (w *Writer) CloseAs(path string) error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		os.Remove(w.tmp)
		return err
	}
	if err := w.f.Close(); err != nil {
		os.Remove(w.tmp)
		return err
	}
	return fileutil.Rename(w.tmp, path)
}

// Abort closes and removes the temporary file without publishing it.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.f.Close()
	return os.Remove(w.tmp)
}

// Name returns the final path the writer will publish to.
func (w *Writer) Name() string {
	return w.path
}

// TempName returns the temporary path currently being written.
func (w *Writer) TempName() string {
	return w.tmp
}

// Dir returns the directory the file is created in.
func (w *Writer) Dir() string {
	return filepath.Dir(w.path)
}
