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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nlnwa/cdxj/addfield"
	"github.com/nlnwa/cdxj/internal/stdio"
)

type conf struct {
	fields    []string
	transform string
	strict    bool
	output    string
	input     string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "addfield <file>",
		Short: "Add fields to the JSON payload of CDXJ records",
		Long: `Addfield rewrites the JSON payload of every record, either merging
constant key=value pairs into it or applying a named transform.
Exactly one of --field and --transform must be given. The input may
be "-" for stdin. In lenient mode (the default) unparseable lines
pass through unchanged; --strict makes them fatal.

Available transforms: ` + strings.Join(addfield.Names(), ", ") + `.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing input file")
			}
			c.input = args[0]
			return runE(cmd.Context(), c)
		},
	}

	cmd.Flags().StringArrayVarP(&c.fields, "field", "f", nil, "constant field as key=value, repeatable")
	cmd.Flags().StringVarP(&c.transform, "transform", "t", "", "named transform to apply")
	cmd.Flags().BoolVarP(&c.strict, "strict", "s", false, "fail on unparseable lines")
	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "output file, or - for stdout")

	return cmd
}

func runE(ctx context.Context, c *conf) error {
	opts := []addfield.Option{addfield.WithStrict(c.strict)}
	if len(c.fields) > 0 {
		fields := make(map[string]string, len(c.fields))
		for _, fieldArg := range c.fields {
			i := strings.IndexByte(fieldArg, '=')
			if i <= 0 {
				return fmt.Errorf("bad field %q, want key=value", fieldArg)
			}
			fields[fieldArg[:i]] = fieldArg[i+1:]
		}
		opts = append(opts, addfield.WithFields(fields))
	}
	if c.transform != "" {
		fn, err := addfield.Lookup(c.transform)
		if err != nil {
			return err
		}
		opts = append(opts, addfield.WithTransform(fn))
	}

	a, err := addfield.New(opts...)
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
	if err := a.Apply(ctx, out, in); err != nil {
		_ = out.Abort()
		return err
	}
	return out.Close()
}
