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
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/nlnwa/cdxj"
	"github.com/nlnwa/cdxj/internal/timestamp"
)

// Op is a field predicate operator.
type Op int8

const (
	OpEqual Op = iota
	OpNotEqual
	OpMatch
	OpNotMatch
)

// Rule is one field predicate over the JSON payload of a line.
type Rule struct {
	Field string
	Op    Op
	Value string
	re    *regexp.Regexp
}

// ParseRule parses a predicate expression. The operator is the first of
// "!~", "~", "!=" or "=" found, checked in that order so the negated forms
// win over their substrings.
func ParseRule(expr string) (Rule, error) {
	type opSpec struct {
		token string
		op    Op
	}
	for _, spec := range []opSpec{
		{"!~", OpNotMatch},
		{"~", OpMatch},
		{"!=", OpNotEqual},
		{"=", OpEqual},
	} {
		i := strings.Index(expr, spec.token)
		if i < 0 {
			continue
		}
		r := Rule{
			Field: strings.TrimSpace(expr[:i]),
			Op:    spec.op,
			Value: strings.TrimSpace(expr[i+len(spec.token):]),
		}
		if r.Field == "" {
			return Rule{}, fmt.Errorf("search: filter %q has no field name", expr)
		}
		if r.Op == OpMatch || r.Op == OpNotMatch {
			re, err := regexp.Compile(r.Value)
			if err != nil {
				return Rule{}, fmt.Errorf("search: filter %q has a bad pattern: %w", expr, err)
			}
			r.re = re
		}
		return r, nil
	}
	return Rule{}, fmt.Errorf("search: filter %q has no operator (want =, !=, ~ or !~)", expr)
}

func (r Rule) matches(value string) bool {
	switch r.Op {
	case OpEqual:
		return value == r.Value
	case OpNotEqual:
		return value != r.Value
	case OpMatch:
		return r.re.MatchString(value)
	case OpNotMatch:
		return !r.re.MatchString(value)
	default:
		return false
	}
}

// Filter is the post-search pipeline condition: an optional timestamp range
// and a conjunction of field predicates.
type Filter struct {
	from  string
	to    string
	rules []Rule
}

// NewFilter builds a filter from flexible precision timestamps and predicate
// expressions. Partial timestamps are padded: the lower bound towards the
// earliest instant of its period, the upper bound towards the latest, so
// from=2020 to=2020 covers all of 2020.
func NewFilter(from, to string, exprs []string) (*Filter, error) {
	f := &Filter{}
	if from != "" {
		f.from = timestamp.PadLow(from)
	}
	if to != "" {
		f.to = timestamp.PadHigh(to)
	}
	for _, expr := range exprs {
		rule, err := ParseRule(expr)
		if err != nil {
			return nil, err
		}
		f.rules = append(f.rules, rule)
	}
	return f, nil
}

// Empty reports whether the filter passes everything.
func (f *Filter) Empty() bool {
	return f.from == "" && f.to == "" && len(f.rules) == 0
}

// Match reports whether a line passes the timestamp range and every
// predicate. Lines that do not parse never pass a non-empty filter. A field
// absent from the payload evaluates as the empty string.
func (f *Filter) Match(line []byte) bool {
	if f.Empty() {
		return true
	}
	rec, err := cdxj.Parse(line, false)
	if err != nil {
		return false
	}
	if f.from != "" && rec.Timestamp < f.from {
		return false
	}
	if f.to != "" && rec.Timestamp > f.to {
		return false
	}
	if len(f.rules) == 0 {
		return true
	}
	obj, err := rec.Object()
	if err != nil {
		return false
	}
	for _, rule := range f.rules {
		if !rule.matches(fieldString(obj, rule.Field)) {
			return false
		}
	}
	return true
}

// fieldString renders a JSON field for predicate comparison. Strings are
// compared as-is, other values by their compact JSON form, so status 200
// compares equal to "200".
func fieldString(obj map[string]interface{}, field string) string {
	v, ok := obj[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// SortLines sorts lines by (surt, timestamp), stably so equal keys keep
// their accumulation order.
func SortLines(lines [][]byte) {
	sort.SliceStable(lines, func(i, j int) bool {
		return bytes.Compare(cdxj.SortKey(lines[i]), cdxj.SortKey(lines[j])) < 0
	})
}

// Dedupe removes consecutive lines sharing the same (surt, timestamp).
func Dedupe(lines [][]byte) [][]byte {
	if len(lines) == 0 {
		return lines
	}
	out := lines[:1]
	prev := cdxj.SortKey(lines[0])
	for _, line := range lines[1:] {
		key := cdxj.SortKey(line)
		if bytes.Equal(key, prev) {
			continue
		}
		out = append(out, line)
		prev = key
	}
	return out
}
