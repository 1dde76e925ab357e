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

package excessive

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nlnwa/cdxj/filter"
	"github.com/nlnwa/cdxj/internal/stdio"
)

type conf struct {
	threshold uint64
	blacklist string
	output    string
	input     string
}

func NewCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "filter-excessive-urls",
		Short: "Find or remove URLs with excessive capture counts",
	}
	cmd.AddCommand(newFindCommand())
	cmd.AddCommand(newRemoveCommand())
	cmd.AddCommand(newAutoCommand())
	return cmd
}

func newFindCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "find <file>",
		Short: "List SURTs with more records than the threshold",
		Long: `Find counts records per SURT in one pass and emits every SURT whose
count exceeds the threshold, most frequent first, as "<surt>\t<count>"
lines with a trailing summary comment. The input may be "-" for stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing input file")
			}
			c.input = args[0]
			return runFind(cmd.Context(), c)
		},
	}
	cmd.Flags().Uint64VarP(&c.threshold, "threshold", "t", filter.DefaultThreshold, "record count above which a SURT is excessive")
	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "output file, or - for stdout")
	return cmd
}

func newRemoveCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "remove <file>",
		Short: "Drop records whose SURT is in a blacklist file",
		Long: `Remove drops every line whose SURT appears in the blacklist file, as
produced by find: the first field per line is the SURT, any count field
and '#' comments are ignored. The input may be "-" for stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing input file")
			}
			if c.blacklist == "" {
				return errors.New("missing blacklist file")
			}
			c.input = args[0]
			return runRemove(cmd.Context(), c)
		},
	}
	cmd.Flags().StringVarP(&c.blacklist, "blacklist", "b", "", "blacklist file from find mode (required)")
	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "output file, or - for stdout")
	return cmd
}

func newAutoCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "auto <file>",
		Short: "Find and remove excessive URLs in one command",
		Long: `Auto runs find over the input file, then removes every excessive SURT
from it. Two passes over the input are needed, so the input must be a
file; stdin is rejected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing input file")
			}
			c.input = args[0]
			return runAuto(cmd.Context(), c)
		},
	}
	cmd.Flags().Uint64VarP(&c.threshold, "threshold", "t", filter.DefaultThreshold, "record count above which a SURT is excessive")
	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "output file, or - for stdout")
	return cmd
}

func runFind(ctx context.Context, c *conf) error {
	in, err := stdio.Open(c.input)
	if err != nil {
		return err
	}
	defer in.Close()

	found, err := filter.FindExcessive(ctx, in, c.threshold)
	if err != nil {
		return err
	}

	out, err := stdio.Create(c.output)
	if err != nil {
		return err
	}
	if err := filter.WriteExcessive(out, found, c.threshold); err != nil {
		_ = out.Abort()
		return err
	}
	return out.Close()
}

func runRemove(ctx context.Context, c *conf) error {
	bf, err := stdio.Open(c.blacklist)
	if err != nil {
		return err
	}
	keys, err := filter.LoadExcessive(bf)
	bf.Close()
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
	if _, _, err := filter.RemoveExcessive(ctx, out, in, keys); err != nil {
		_ = out.Abort()
		return err
	}
	return out.Close()
}

func runAuto(ctx context.Context, c *conf) error {
	out, err := stdio.Create(c.output)
	if err != nil {
		return err
	}
	if _, _, _, err := filter.Auto(ctx, out, c.input, c.threshold); err != nil {
		_ = out.Abort()
		return err
	}
	return out.Close()
}
