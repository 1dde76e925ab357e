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

package blocklist

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nlnwa/cdxj/filter"
	"github.com/nlnwa/cdxj/internal/stdio"
)

type conf struct {
	blocklist string
	output    string
	input     string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "filter-blocklist <file>",
		Short: "Drop CDXJ lines matching blocklist patterns",
		Long: `Filter-blocklist reads CDXJ lines and drops every line matching any
pattern of a blocklist file: one regular expression per line, blank
lines and '#' comments ignored. Patterns match against the raw line
bytes, so they can anchor on the SURT or hit inside the JSON payload.
The input may be "-" for stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing input file")
			}
			if c.blocklist == "" {
				return errors.New("missing blocklist file")
			}
			c.input = args[0]
			return runE(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVarP(&c.blocklist, "blocklist", "b", "", "blocklist pattern file (required)")
	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "output file, or - for stdout")

	return cmd
}

func runE(ctx context.Context, c *conf) error {
	b, err := filter.LoadBlocklist(c.blocklist)
	if err != nil {
		return err
	}

	in, err := stdio.Open(c.input)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := stdio.Create(c.output)
	if err != nil {
		return err
	}
	if err := b.Apply(ctx, out, in); err != nil {
		_ = out.Abort()
		return err
	}
	return out.Close()
}
