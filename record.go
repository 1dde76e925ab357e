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
	"bytes"
	"encoding/json"
)

// Record is one parsed CDXJ line.
type Record struct {
	// Key is the SURT sort key, the first space separated field.
	Key string
	// Timestamp is the 14 digit capture time, the second field.
	Timestamp string
	// JSON is the raw metadata object, the remainder of the line. It is kept
	// as bytes so that untouched records round-trip without reserialization.
	JSON []byte
}

// Parse splits a CDXJ line into its three parts. The trailing newline, if
// any, is stripped. In strict mode a line must have a key, a 14 digit
// timestamp and a parseable JSON object; in lenient mode a missing JSON
// segment yields an empty object and the payload is not validated.
func Parse(line []byte, strict bool) (Record, error) {
	line = TrimLineEnding(line)

	i := bytes.IndexByte(line, ' ')
	if i < 0 {
		return Record{}, NewSyntaxError("missing timestamp field")
	}
	rest := line[i+1:]
	j := bytes.IndexByte(rest, ' ')

	var r Record
	if j < 0 {
		if strict {
			return Record{}, NewSyntaxError("missing json field")
		}
		r = Record{Key: string(line[:i]), Timestamp: string(rest), JSON: []byte("{}")}
	} else {
		r = Record{
			Key:       string(line[:i]),
			Timestamp: string(rest[:j]),
			JSON:      append([]byte(nil), rest[j+1:]...),
		}
	}

	if strict {
		if !valid14(r.Timestamp) {
			return Record{}, NewSyntaxError("timestamp is not 14 digits")
		}
		if !json.Valid(r.JSON) {
			return Record{}, NewSyntaxError("json payload does not parse")
		}
	}
	return r, nil
}

// Format renders the record as a CDXJ line without a trailing newline.
func (r Record) Format() []byte {
	b := make([]byte, 0, len(r.Key)+len(r.Timestamp)+len(r.JSON)+2)
	b = append(b, r.Key...)
	b = append(b, ' ')
	b = append(b, r.Timestamp...)
	if len(r.JSON) > 0 {
		b = append(b, ' ')
		b = append(b, r.JSON...)
	}
	return b
}

// Object decodes the JSON payload. An empty payload decodes to an empty map.
func (r Record) Object() (map[string]interface{}, error) {
	obj := make(map[string]interface{})
	if len(r.JSON) == 0 {
		return obj, nil
	}
	if err := json.Unmarshal(r.JSON, &obj); err != nil {
		return nil, NewWrappedSyntaxError("json payload does not parse", err)
	}
	return obj, nil
}

// SetObject replaces the JSON payload with the compact serialization of obj.
// Key order of the serialized object is not preserved.
func (r *Record) SetObject(obj map[string]interface{}) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	r.JSON = b
	return nil
}

// Key returns the SURT field of a raw CDXJ line.
func Key(line []byte) []byte {
	line = TrimLineEnding(line)
	if i := bytes.IndexByte(line, ' '); i >= 0 {
		return line[:i]
	}
	return line
}

// SortKey returns the "<surt> <timestamp>" prefix of a raw line, i.e.
// everything before the JSON object, trimmed of surrounding whitespace.
// This is the comparison key used by merge ordering and ZipNum indexes.
func SortKey(line []byte) []byte {
	line = TrimLineEnding(line)
	if i := bytes.IndexByte(line, '{'); i >= 0 {
		line = line[:i]
	}
	return bytes.TrimSpace(line)
}

// TrimLineEnding strips a trailing LF or CRLF.
func TrimLineEnding(line []byte) []byte {
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
	}
	return line
}

func valid14(ts string) bool {
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
