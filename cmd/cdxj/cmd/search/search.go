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
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	log "github.com/sirupsen/logrus"

	"github.com/nlnwa/cdxj/search"
)

type conf struct {
	url        string
	surt       string
	matchType  string
	fromTs     string
	toTs       string
	filters    []string
	limit      int
	sort       bool
	dedupe     bool
	workers    int
	skipErrors bool
	paths      []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "search <file|dir> ...",
		Short: "Binary search CDXJ files and ZipNum shard sets",
		Long: `Search looks up a URL or SURT key in flat CDXJ files and ZipNum shard
sets. The match type controls the key expansion: exact matches one
URL, prefix everything below its path, host every path on the host,
and domain the registered domain with all subdomains. Results can be
narrowed by a flexible precision timestamp range (--from 2020 covers
all of 2020) and by field predicates over the JSON payload:
status=200, status!=404, mime~text/.*, mime!~image/.*.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing input files")
			}
			if (c.url == "") == (c.surt == "") {
				return errors.New("exactly one of --url and --surt is required")
			}
			c.paths = args
			return runE(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVarP(&c.url, "url", "u", "", "URL to search for")
	cmd.Flags().StringVar(&c.surt, "surt", "", "SURT key to search for")
	cmd.Flags().StringVarP(&c.matchType, "match-type", "m", "exact", "exact, prefix, host or domain")
	cmd.Flags().StringVar(&c.fromTs, "from", "", "earliest timestamp, flexible precision")
	cmd.Flags().StringVar(&c.toTs, "to", "", "latest timestamp, flexible precision")
	cmd.Flags().StringArrayVarP(&c.filters, "filter", "f", nil, "field predicate, repeatable")
	cmd.Flags().IntVarP(&c.limit, "limit", "l", 0, "maximum number of result lines, 0 is unlimited")
	cmd.Flags().BoolVar(&c.sort, "sort", false, "re-sort results by (surt, timestamp)")
	cmd.Flags().BoolVar(&c.dedupe, "dedupe", false, "drop consecutive duplicate (surt, timestamp) results")
	cmd.Flags().IntVar(&c.workers, "workers", 4, "files searched in parallel")
	cmd.Flags().BoolVar(&c.skipErrors, "skip-errors", false, "warn and skip unreadable files")

	return cmd
}

func runE(ctx context.Context, c *conf) error {
	mt, err := search.ParseMatchType(c.matchType)
	if err != nil {
		return err
	}

	var queries []search.KeyQuery
	if c.url != "" {
		queries, err = search.ExpandURL(c.url, mt)
	} else {
		queries, err = search.ExpandKey(c.surt, mt)
	}
	if err != nil {
		return err
	}
	for _, q := range queries {
		log.Debugf("search: key %q prefix=%t", q.Key, q.Prefix)
	}

	f, err := search.NewFilter(c.fromTs, c.toTs, c.filters)
	if err != nil {
		return err
	}

	s := search.New(
		search.WithFilter(f),
		search.WithLimit(c.limit),
		search.WithSort(c.sort),
		search.WithDedupe(c.dedupe),
		search.WithWorkers(c.workers),
		search.WithSkipErrors(c.skipErrors),
	)
	_, err = s.Search(ctx, os.Stdout, queries, c.paths)
	return err
}
