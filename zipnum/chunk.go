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
	"compress/gzip"
	"io"
	"os"

	"github.com/nlnwa/cdxj"
)

// ReadChunk decompresses the chunk stored at [offset, offset+length) in the
// shard file. Each chunk is an independent gzip member.
func ReadChunk(shardPath string, offset, length int64) ([]byte, error) {
	f, err := os.Open(shardPath)
	if err != nil {
		return nil, cdxj.NewShardError(shardPath, offset, "shard not readable", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(io.NewSectionReader(f, offset, length))
	if err != nil {
		return nil, cdxj.NewShardError(shardPath, offset, "chunk is not a gzip member", err)
	}
	gz.Multistream(false)
	data, err := io.ReadAll(gz)
	if err != nil {
		return nil, cdxj.NewShardError(shardPath, offset, "chunk decompression failed", err)
	}
	if err := gz.Close(); err != nil {
		return nil, cdxj.NewShardError(shardPath, offset, "chunk decompression failed", err)
	}
	return data, nil
}
