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

package discovery

import (
	"bytes"
	"fmt"
	"os"
	"strings"
)

// FileType classifies searchable index files.
type FileType int

const (
	TypeCDXJ FileType = iota
	TypeZipnumIndex
	TypeZipnumShard
)

func (t FileType) String() string {
	switch t {
	case TypeZipnumIndex:
		return "zipnum_idx"
	case TypeZipnumShard:
		return "zipnum_shard"
	default:
		return "cdxj"
	}
}

// DetectType classifies a file by extension, falling back to sniffing the
// first bytes when the extension is ambiguous. A gzip magic number means a
// shard, a first line with at least four tabs means a ZipNum index,
// everything else is treated as flat CDXJ.
func DetectType(path string) (FileType, error) {
	switch {
	case strings.HasSuffix(path, ".idx"):
		return TypeZipnumIndex, nil
	case strings.HasSuffix(path, ".cdx.gz"), strings.HasSuffix(path, ".cdxj.gz"):
		return TypeZipnumShard, nil
	case strings.HasSuffix(path, ".cdxj"):
		return TypeCDXJ, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return TypeCDXJ, err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	buf = buf[:n]

	if len(buf) >= 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		return TypeZipnumShard, nil
	}
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}
	if bytes.Count(buf, []byte{'\t'}) >= 4 {
		return TypeZipnumIndex, nil
	}
	return TypeCDXJ, nil
}

// CompanionShard returns the shard file conventionally paired with a ZipNum
// index file.
func CompanionShard(idxPath string) (string, error) {
	if strings.HasSuffix(idxPath, ".idx") {
		base := strings.TrimSuffix(idxPath, ".idx")
		for _, ext := range []string{".cdx.gz", ".cdxj.gz"} {
			if _, err := os.Stat(base + ext); err == nil {
				return base + ext, nil
			}
		}
	}
	return "", fmt.Errorf("discovery: no shard file found for index %s", idxPath)
}

// CompanionIndex returns the index file conventionally paired with a ZipNum
// shard file.
func CompanionIndex(shardPath string) (string, error) {
	for _, ext := range []string{".cdx.gz", ".cdxj.gz"} {
		if strings.HasSuffix(shardPath, ext) {
			idx := strings.TrimSuffix(shardPath, ext) + ".idx"
			if _, err := os.Stat(idx); err == nil {
				return idx, nil
			}
		}
	}
	return "", fmt.Errorf("discovery: no index file found for shard %s", shardPath)
}
