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

package merge

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nlnwa/cdxj/discovery"
	"github.com/nlnwa/cdxj/merge"
)

type conf struct {
	output   string
	excludes []string
	maxOpen  int
	inputs   []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "merge <file|dir> ...",
		Short: "Merge sorted CDXJ files into one sorted stream",
		Long: `Merge performs a k-way merge of sorted CDXJ inputs. Inputs may be
files, directories (walked recursively for *.cdxj files) or "-" for
stdin. Ties between sources are broken by input order, so the merge is
stable and deterministic. Unsorted input aborts the merge.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing input files")
			}
			c.inputs = args
			return runE(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "output file, or - for stdout")
	cmd.Flags().StringArrayVar(&c.excludes, "exclude", nil, "glob pattern of files to exclude, repeatable")
	cmd.Flags().IntVar(&c.maxOpen, "max-open-files", 512, "merge fan-in cap; larger input sets are staged")

	return cmd
}

func runE(ctx context.Context, c *conf) error {
	var inputs []string
	var toResolve []string
	for _, input := range c.inputs {
		// stdin cannot be resolved by the file walker
		if input == merge.StdioName {
			inputs = append(inputs, input)
			continue
		}
		toResolve = append(toResolve, input)
	}
	if len(toResolve) > 0 {
		resolved, err := discovery.Resolve(toResolve, discovery.WithExcludes(c.excludes...))
		if err != nil {
			return err
		}
		inputs = append(inputs, resolved...)
	}

	return merge.Files(ctx, c.output, inputs, merge.WithMaxOpenFiles(c.maxOpen))
}
