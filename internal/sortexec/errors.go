// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sortexec

import (
	"github.com/pingcap/errors"

	"github.com/colsort/sortexec/pkg/block"
)

// Sentinel errors for the spill path, named and constructed the way
// sortexec/sort_partition.go's errSpillIsTriggered/errSpillEmptyChunk and
// sort_util.go's errFailToAddChunk are.
var (
	errSpillEmptyRun  = errors.New("sortexec: cannot spill an empty run")
	errSchemaMismatch = errors.New("sortexec: input block schema does not match header")
)

// checkSchema reports errSchemaMismatch if blk does not carry the same
// number of columns as header: an upstream block incompatible with the
// header is fatal and surfaced rather than silently coerced.
func checkSchema(header block.Header, blk block.Block) error {
	if blk.Header().NumColumns() != header.NumColumns() {
		return errSchemaMismatch
	}
	return nil
}
