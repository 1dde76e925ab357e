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

package search

import (
	"bytes"
	"io"
	"os"

	"github.com/nlnwa/cdxj"
)

// minReadSize is the smallest unit read from disk during bisection.
const minReadSize = 4096

// Find binary-searches the sorted CDXJ data in r and calls emit for every
// line matching q, in file order. The name is used in error positions.
//
// The bisection works on byte offsets: probe the midpoint, skip to the next
// line boundary and compare that line's SURT field against the key. It
// narrows to the last line known to sort before the key; a short forward
// scan then finds and emits the contiguous match range. An inversion seen
// during the scan is reported as unsorted input.
func Find(r io.ReaderAt, size int64, name string, q KeyQuery, emit func(line []byte) error) error {
	if size == 0 {
		return nil
	}
	key := []byte(q.Key)

	// Bisect. Invariant: every line starting before lo has a SURT field that
	// sorts before the key; every line starting at or after hi does not need
	// to be probed again.
	var lo, hi int64 = 0, size
	for lo < hi {
		mid := (lo + hi) / 2
		pos := mid
		if mid > 0 {
			var err error
			pos, err = nextLineStart(r, size, mid)
			if err != nil {
				return err
			}
		}
		if pos >= hi {
			hi = mid
			continue
		}
		line, _, err := readLine(r, size, pos)
		if err != nil {
			return err
		}
		if bytes.Compare(surtField(line), key) < 0 {
			if pos > lo {
				lo = pos
			} else {
				lo = mid + 1
			}
		} else {
			hi = mid
		}
	}

	// Forward scan from the line boundary at or after lo.
	start := lo
	if start > 0 {
		var err error
		start, err = nextLineStart(r, size, start-1)
		if err != nil {
			return err
		}
	}

	var prev []byte
	lineNo := 0
	for pos := start; pos < size; {
		line, next, err := readLine(r, size, pos)
		if err != nil {
			return err
		}
		pos = next
		line = cdxj.TrimLineEnding(line)
		if len(line) == 0 {
			continue
		}
		lineNo++
		sk := cdxj.SortKey(line)
		if prev != nil && bytes.Compare(sk, prev) < 0 {
			return &cdxj.UnsortedError{Source: name, Line: lineNo, Prev: string(prev), Key: string(sk)}
		}
		prev = append(prev[:0], sk...)

		k := surtField(line)
		switch {
		case matches(k, key, q.Prefix):
			if err := emit(line); err != nil {
				return err
			}
		case bytes.Compare(k, key) > 0:
			return nil
		}
	}
	return nil
}

// FindInFile opens path and runs Find over it.
func FindInFile(path string, q KeyQuery, emit func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	return Find(f, fi.Size(), path, q, emit)
}

func matches(lineKey, searchKey []byte, prefix bool) bool {
	if prefix {
		return bytes.HasPrefix(lineKey, searchKey)
	}
	return bytes.Equal(lineKey, searchKey)
}

// surtField returns the first space separated field of a line.
func surtField(line []byte) []byte {
	if i := bytes.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}

// nextLineStart returns the offset just past the first '\n' at or after pos,
// or size when no newline follows.
func nextLineStart(r io.ReaderAt, size, pos int64) (int64, error) {
	buf := make([]byte, minReadSize)
	for pos < size {
		n, err := r.ReadAt(buf, pos)
		if n > 0 {
			if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
				return pos + int64(i) + 1, nil
			}
			pos += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	return size, nil
}

// readLine reads the line beginning at pos and returns it without its
// newline, along with the offset of the following line.
func readLine(r io.ReaderAt, size, pos int64) ([]byte, int64, error) {
	var line []byte
	buf := make([]byte, minReadSize)
	for pos < size {
		n, err := r.ReadAt(buf, pos)
		if n > 0 {
			if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
				line = append(line, buf[:i]...)
				return line, pos + int64(i) + 1, nil
			}
			line = append(line, buf[:n]...)
			pos += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	return line, size, nil
}
