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

package memblock

import "strings"

// CaseInsensitiveCollator orders strings ignoring case, a deliberately
// simple stand-in for the collation handles the real engine would load
// from an ICU-backed collation library.
type CaseInsensitiveCollator struct{}

func (CaseInsensitiveCollator) Collate(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
