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

// Package discovery resolves mixed lists of files and directories into a
// deterministic input set, applying exclusion globs.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

type options struct {
	excludes   []string
	extensions []string
}

// Option configures input resolution.
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
		extensions: []string{".cdxj"},
	}
}

// WithExcludes adds glob patterns; files matching any pattern, by basename
// or by full path, are removed from the result.
func WithExcludes(patterns ...string) Option {
	return newFuncOption(func(o *options) {
		o.excludes = append(o.excludes, patterns...)
	})
}

// WithExtensions sets the file name suffixes collected when walking
// directories. Defaults to ".cdxj".
func WithExtensions(extensions ...string) Option {
	return newFuncOption(func(o *options) {
		o.extensions = extensions
	})
}

// Resolve expands the given paths into a sorted, deduplicated list of files.
// Files are included as given; directories are walked recursively collecting
// files with a configured extension. Symlinked directories are followed once,
// a symlink cycle aborts the walk.
func Resolve(paths []string, opts ...Option) ([]string, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}

	found := make(map[string]bool)
	var files []string
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = filepath.Clean(path)
		}
		if found[abs] {
			return
		}
		found[abs] = true
		if excluded, pattern := o.excluded(abs); excluded {
			log.Debugf("[EXCLUDE] %s (matches: %s)", filepath.Base(abs), pattern)
			return
		}
		log.Debugf("[INCLUDE] %s", filepath.Base(abs))
		files = append(files, abs)
	}

	for _, path := range paths {
		fi, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			add(path)
			continue
		}
		log.Debugf("[DISCOVER] scanning directory: %s", path)
		seen := make(map[string]bool)
		if err := walkDir(path, seen, &o, add); err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	log.Debugf("[SUMMARY] %d files included", len(files))
	return files, nil
}

func walkDir(dir string, seen map[string]bool, o *options, add func(string)) error {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return err
	}
	if seen[resolved] {
		return fmt.Errorf("discovery: symlink cycle at %s", dir)
	}
	seen[resolved] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		fi, err := os.Stat(path) // follows symlinks
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if err := walkDir(path, seen, o, add); err != nil {
				return err
			}
			continue
		}
		if o.wantedExtension(entry.Name()) {
			add(path)
		}
	}
	return nil
}

func (o *options) wantedExtension(name string) bool {
	for _, ext := range o.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (o *options) excluded(path string) (bool, string) {
	base := filepath.Base(path)
	for _, pattern := range o.excludes {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true, pattern
		}
		if ok, _ := filepath.Match(pattern, path); ok {
			return true, pattern
		}
	}
	return false, ""
}
