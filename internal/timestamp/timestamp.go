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

// Package timestamp pads flexible precision timestamps to the 14 digit
// YYYYMMDDhhmmss form used by CDXJ records.
package timestamp

import "time"

const (
	lowTemplate  = "00000101000000"
	highTemplate = "99991231235959"
)

// PadLow expands a prefix timestamp to the earliest 14 digit timestamp it
// covers. "2020" becomes "20200101000000", "202006" becomes "20200601000000".
func PadLow(ts string) string {
	return pad(ts, lowTemplate)
}

// PadHigh expands a prefix timestamp to the latest 14 digit timestamp it
// covers. "2020" becomes "20201231235959".
func PadHigh(ts string) string {
	return pad(ts, highTemplate)
}

func pad(ts, template string) string {
	b := []byte(template)
	n := 0
	for i := 0; i < len(ts) && n < len(b); i++ {
		c := ts[i]
		if c < '0' || c > '9' {
			continue
		}
		b[n] = c
		n++
	}
	return string(b)
}

// Valid reports whether ts is exactly 14 decimal digits.
func Valid(ts string) bool {
	if len(ts) != 14 {
		return false
	}
	for i := 0; i < len(ts); i++ {
		if ts[i] < '0' || ts[i] > '9' {
			return false
		}
	}
	return true
}

// UTC14 formats t as a 14 digit timestamp in UTC.
func UTC14(t time.Time) string {
	return t.UTC().Format("20060102150405")
}
