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
	"fmt"
	"sort"
	"strings"

	"github.com/nlnwa/whatwg-url/url"
)

// MatchType selects how a URL or SURT key is expanded into key queries.
type MatchType int8

const (
	// MatchExact matches only captures of the exact URL.
	MatchExact MatchType = iota
	// MatchPrefix matches the URL and everything below its path.
	MatchPrefix
	// MatchHost matches every path on the URL's host.
	MatchHost
	// MatchDomain matches the registered domain and all its subdomains.
	MatchDomain
)

func (m MatchType) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchHost:
		return "host"
	case MatchDomain:
		return "domain"
	default:
		return fmt.Sprintf("MatchType(%d)", m)
	}
}

// ParseMatchType parses a match type name.
func ParseMatchType(s string) (MatchType, error) {
	switch strings.ToLower(s) {
	case "", "exact":
		return MatchExact, nil
	case "prefix":
		return MatchPrefix, nil
	case "host":
		return MatchHost, nil
	case "domain":
		return MatchDomain, nil
	default:
		return MatchExact, fmt.Errorf("search: unknown match type %q (want exact, prefix, host or domain)", s)
	}
}

// KeyQuery is one binary-search probe: a key and whether lines only need to
// begin with it.
type KeyQuery struct {
	Key    string
	Prefix bool
}

// Surt converts a URL into its sort-friendly key form: host labels reversed
// and comma separated, a ')' closing the host, then the path and the query
// with its parameters sorted. Fragments and default ports are dropped and the
// whole key is lowercased.
func Surt(rawURL string) (string, error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("search: cannot parse url %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("search: url %q has no host", rawURL)
	}

	var b strings.Builder
	labels := strings.Split(host, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		b.WriteString(labels[i])
		b.WriteByte(',')
	}
	key := strings.TrimSuffix(b.String(), ",")
	if port := u.Port(); port != "" {
		key += ":" + port
	}
	key += ")"

	path := u.Pathname()
	if path == "" {
		path = "/"
	}
	key += path
	if q := strings.TrimPrefix(u.Search(), "?"); q != "" {
		params := strings.Split(q, "&")
		sort.Strings(params)
		key += "?" + strings.Join(params, "&")
	}
	return strings.ToLower(key), nil
}

// ExpandURL converts a URL and a match type into the key queries to run.
func ExpandURL(rawURL string, mt MatchType) ([]KeyQuery, error) {
	key, err := Surt(rawURL)
	if err != nil {
		return nil, err
	}
	return ExpandKey(key, mt)
}

// ExpandKey expands a SURT key according to the match type. Exact and prefix
// use the key as given. Host keeps the URL's host, domain first truncates it
// to the registered domain; both then expand into two prefix queries, one
// for the host itself ("com,example)") and one for hosts below it
// ("com,example,"). A single prefix cannot cover both without also matching
// sibling hosts like "com,examples". The ')' query sorts before the ','
// query, so concatenated results stay globally ordered.
func ExpandKey(key string, mt MatchType) ([]KeyQuery, error) {
	switch mt {
	case MatchExact:
		return []KeyQuery{{Key: key}}, nil
	case MatchPrefix:
		return []KeyQuery{{Key: key, Prefix: true}}, nil
	case MatchHost:
		host := strings.TrimSuffix(hostPart(key), ")")
		return hostQueries(host), nil
	case MatchDomain:
		host := strings.TrimSuffix(hostPart(key), ")")
		if i := strings.IndexByte(host, ':'); i >= 0 {
			host = host[:i]
		}
		return hostQueries(registeredPart(host)), nil
	default:
		return nil, fmt.Errorf("search: unknown match type %v", mt)
	}
}

func hostQueries(host string) []KeyQuery {
	return []KeyQuery{
		{Key: host + ")", Prefix: true},
		{Key: host + ",", Prefix: true},
	}
}

// hostPart returns the key truncated after the ')' closing the host. A key
// with no ')' is returned unchanged.
func hostPart(key string) string {
	if i := strings.IndexByte(key, ')'); i >= 0 {
		return key[:i+1]
	}
	return key
}

// multiLabelSuffixes lists common public suffixes spanning two labels, in
// reversed comma form. Registered-domain truncation keeps one extra label in
// front of these.
var multiLabelSuffixes = map[string]bool{
	"uk,co": true, "uk,org": true, "uk,ac": true, "uk,gov": true,
	"jp,co": true, "jp,ne": true, "jp,or": true, "jp,ac": true,
	"au,com": true, "au,net": true, "au,org": true, "au,edu": true,
	"nz,co": true, "br,com": true, "cn,com": true, "mx,com": true,
	"in,co": true, "za,co": true, "kr,co": true,
}

// registeredPart truncates a reversed comma separated host to its registered
// domain: suffix plus one label.
func registeredPart(revHost string) string {
	labels := strings.Split(revHost, ",")
	n := 2
	if len(labels) > 2 && multiLabelSuffixes[labels[0]+","+labels[1]] {
		n = 3
	}
	if len(labels) <= n {
		return revHost
	}
	return strings.Join(labels[:n], ",")
}
