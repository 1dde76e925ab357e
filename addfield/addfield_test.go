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
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nlnwa/cdxj"
	assert "github.com/stretchr/testify/assert"
)

func TestNewConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"fields only", []Option{WithFields(map[string]string{"a": "b"})}, false},
		{"transform only", []Option{WithTransform(func(k, ts string, o map[string]interface{}) (map[string]interface{}, error) { return o, nil })}, false},
		{"both", []Option{
			WithFields(map[string]string{"a": "b"}),
			WithTransform(func(k, ts string, o map[string]interface{}) (map[string]interface{}, error) { return o, nil }),
		}, true},
		{"neither", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnnotateConstantFields(t *testing.T) {
	assert := assert.New(t)
	a, err := New(WithFields(map[string]string{"collection": "web", "status": "999"}))
	assert.NoError(err)

	rec, err := cdxj.Parse([]byte(`com,example)/ 20200101120000 {"status":"200"}`), true)
	assert.NoError(err)
	rec, err = a.Annotate(rec)
	assert.NoError(err)

	obj := make(map[string]interface{})
	assert.NoError(json.Unmarshal(rec.JSON, &obj))
	assert.Equal("web", obj["collection"])
	// existing keys are overwritten
	assert.Equal("999", obj["status"])
}

func TestAnnotateTransform(t *testing.T) {
	assert := assert.New(t)
	fn, err := Lookup("capture-year")
	assert.NoError(err)
	a, err := New(WithTransform(fn))
	assert.NoError(err)

	rec, err := cdxj.Parse([]byte(`com,example)/ 20230615120000 {"status":"200"}`), true)
	assert.NoError(err)
	rec, err = a.Annotate(rec)
	assert.NoError(err)

	obj := make(map[string]interface{})
	assert.NoError(json.Unmarshal(rec.JSON, &obj))
	assert.Equal("2023", obj["year"])
}

func TestApplyLenientPassesBadLines(t *testing.T) {
	assert := assert.New(t)
	a, err := New(WithFields(map[string]string{"c": "x"}))
	assert.NoError(err)

	input := "com,a)/ 20200101000000 {}\nnot a cdxj line\n"
	var buf bytes.Buffer
	assert.NoError(a.Apply(context.Background(), &buf, strings.NewReader(input)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(lines, 2)
	assert.Equal(`com,a)/ 20200101000000 {"c":"x"}`, lines[0])
	assert.Equal("not a cdxj line", lines[1])
	assert.Equal(uint64(1), a.Processed)
	assert.Equal(uint64(1), a.Skipped)
}

func TestApplyStrictFailsOnBadLines(t *testing.T) {
	assert := assert.New(t)
	a, err := New(WithFields(map[string]string{"c": "x"}), WithStrict(true))
	assert.NoError(err)

	var buf bytes.Buffer
	err = a.Apply(context.Background(), &buf, strings.NewReader("com,a)/ 20200101000000 {broken\n"))
	assert.Error(err)
	var syntax *cdxj.SyntaxError
	assert.ErrorAs(err, &syntax)
}

func TestApplyIdempotent(t *testing.T) {
	assert := assert.New(t)
	input := `com,a)/ 20200101000000 {"status":"200"}
com,b)/ 20200101000000 {}
`
	run := func(in string) string {
		a, err := New(WithFields(map[string]string{"collection": "web"}))
		assert.NoError(err)
		var buf bytes.Buffer
		assert.NoError(a.Apply(context.Background(), &buf, strings.NewReader(in)))
		return buf.String()
	}
	once := run(input)
	twice := run(once)

	// compare decoded objects per line; key order of serialized JSON is not stable
	onceLines := strings.Split(strings.TrimRight(once, "\n"), "\n")
	twiceLines := strings.Split(strings.TrimRight(twice, "\n"), "\n")
	assert.Equal(len(onceLines), len(twiceLines))
	for i := range onceLines {
		r1, err := cdxj.Parse([]byte(onceLines[i]), true)
		assert.NoError(err)
		r2, err := cdxj.Parse([]byte(twiceLines[i]), true)
		assert.NoError(err)
		assert.Equal(r1.Key, r2.Key)
		assert.Equal(r1.Timestamp, r2.Timestamp)
		o1, err := r1.Object()
		assert.NoError(err)
		o2, err := r2.Object()
		assert.NoError(err)
		assert.Equal(o1, o2)
	}
}

func TestRegistry(t *testing.T) {
	assert := assert.New(t)
	assert.Contains(Names(), "capture-year")
	_, err := Lookup("no-such-transform")
	assert.Error(err)
}
