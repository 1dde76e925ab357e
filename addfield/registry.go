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

package addfield

import (
	"fmt"
	"sort"
	"sync"
)

// The transform registry is the extension point for computed fields: the
// upstream tool loaded a user supplied script, here transforms are compiled
// in and selected by name.

var (
	registryMu sync.RWMutex
	registry   = make(map[string]TransformFunc)
)

// Register makes a transform selectable by name. Registering a duplicate
// name panics, like flag registration.
func Register(name string, fn TransformFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("addfield: transform %q registered twice", name))
	}
	registry[name] = fn
}

// Lookup returns the named transform.
func Lookup(name string) (TransformFunc, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("addfield: unknown transform %q (have %v)", name, Names())
	}
	return fn, nil
}

// Names lists the registered transform names.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	// capture-year records the year of the capture timestamp as its own
	// field, a common annotation for collection statistics.
	Register("capture-year", func(key, timestamp string, obj map[string]interface{}) (map[string]interface{}, error) {
		if len(timestamp) >= 4 {
			obj["year"] = timestamp[:4]
		}
		return obj, nil
	})
}
