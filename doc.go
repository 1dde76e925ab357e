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

/*
Package cdxj handles capture index records in the CDXJ line format.

# CDXJ

A CDXJ line consists of three space separated parts: a sort friendly URI key
(SURT), a 14 digit timestamp and a JSON object holding the capture metadata:

	no,nb)/ 20230101120000 {"url":"https://www.nb.no/","status":"200"}

A CDXJ file is sorted when the sequence of (key, timestamp) pairs is
non-decreasing when compared as raw bytes. All tools in this module rely on
that invariant.

# Packages

The root package holds the line codec and the error types shared by the
subpackages. The pipeline stages live in their own packages:

  - merge: k-way merge of sorted CDXJ streams
  - filter: blocklist and excessive-URL filtering
  - addfield: per-record JSON enrichment
  - zipnum: compressed, binary-searchable shard sets
  - search: binary search over flat files and ZipNum shard sets
  - discovery: input file resolution

The cdxj command in cmd/cdxj exposes each stage as a subcommand.
*/
package cdxj
