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

package zipnum

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nlnwa/cdxj/internal/stdio"
	"github.com/nlnwa/cdxj/zipnum"
)

type encodeConf struct {
	chunkLines int
	shardSize  int64
	level      int
	workers    int
	baseName   string
	idxName    string
	locName    string
	outDir     string
	input      string
}

func NewEncodeCommand() *cobra.Command {
	c := &encodeConf{}
	var cmd = &cobra.Command{
		Use:   "zipnum-encode <file>",
		Short: "Pack a sorted CDXJ stream into a ZipNum shard set",
		Long: `Zipnum-encode splits a sorted CDXJ stream into gzip compressed chunks,
writes them into shard files capped by compressed size, and produces a
summary index (.idx) and a shard location file (.loc) next to them.
A lone shard is published under the plain base name, several shards
get "-NN" suffixes. The input may be "-" for stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing input file")
			}
			c.input = args[0]
			return runEncode(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVarP(&c.outDir, "output-dir", "d", ".", "directory the shard set is written to")
	cmd.Flags().IntVar(&c.chunkLines, "chunk-lines", zipnum.DefaultChunkLines, "lines per compressed chunk")
	cmd.Flags().Int64Var(&c.shardSize, "shard-size", zipnum.DefaultShardSize, "target compressed bytes per shard file")
	cmd.Flags().IntVar(&c.level, "compression-level", zipnum.DefaultCompressionLevel, "gzip level, 1-9")
	cmd.Flags().IntVar(&c.workers, "workers", zipnum.DefaultWorkers, "parallel compression workers")
	cmd.Flags().StringVar(&c.baseName, "base-name", "", "artifact base name (default: output directory name)")
	cmd.Flags().StringVar(&c.idxName, "idx-name", "", "summary index file name (default: <base>.idx)")
	cmd.Flags().StringVar(&c.locName, "loc-name", "", "location file name (default: <base>.loc)")

	return cmd
}

func runEncode(ctx context.Context, c *encodeConf) error {
	in, err := stdio.Open(c.input)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = zipnum.Write(ctx, c.outDir, in,
		zipnum.WithChunkLines(c.chunkLines),
		zipnum.WithShardSize(c.shardSize),
		zipnum.WithCompressionLevel(c.level),
		zipnum.WithWorkers(c.workers),
		zipnum.WithBaseName(c.baseName),
		zipnum.WithIndexName(c.idxName),
		zipnum.WithLocationName(c.locName),
	)
	return err
}

type decodeConf struct {
	workers    int
	locFile    string
	baseDir    string
	skipErrors bool
	output     string
	idx        string
}

func NewDecodeCommand() *cobra.Command {
	c := &decodeConf{}
	var cmd = &cobra.Command{
		Use:   "zipnum-decode <idx-file>",
		Short: "Unpack a ZipNum shard set back into a flat CDXJ stream",
		Long: `Zipnum-decode reads a summary index and emits the decompressed chunks
in index order, reproducing the original sorted CDXJ stream. Shard
names resolve through a location file when one is configured or found
next to the index, otherwise by naming convention in the base
directory. The index may be "-" for stdin, in which case --base-dir
is needed to locate the shards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing index file")
			}
			c.idx = args[0]
			return runDecode(cmd.Context(), c)
		},
	}

	cmd.Flags().StringVarP(&c.output, "output", "o", "-", "output file, or - for stdout")
	cmd.Flags().IntVar(&c.workers, "workers", zipnum.DefaultWorkers, "parallel decompression workers")
	cmd.Flags().StringVar(&c.locFile, "loc-file", "", "shard location file")
	cmd.Flags().StringVar(&c.baseDir, "base-dir", "", "directory shard names resolve against (default: index directory)")
	cmd.Flags().BoolVar(&c.skipErrors, "skip-errors", false, "warn and skip unreadable chunks")

	return cmd
}

func runDecode(ctx context.Context, c *decodeConf) error {
	out, err := stdio.Create(c.output)
	if err != nil {
		return err
	}
	_, err = zipnum.Read(ctx, out, c.idx,
		zipnum.WithReadWorkers(c.workers),
		zipnum.WithLocations(c.locFile),
		zipnum.WithBaseDir(c.baseDir),
		zipnum.WithSkipErrors(c.skipErrors),
	)
	if err != nil {
		_ = out.Abort()
		return err
	}
	return out.Close()
}
