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

// Package memquota implements the lock-free byte-accounting trees the sort
// engine reports its memory and spill-file usage to. The shape,
// Consume/AttachTo/BytesConsumed/ReplaceBytesUsed, with consumption
// cascading up to an attached parent, mirrors pkg/util/memory.Tracker and
// pkg/util/disk.Tracker as used throughout sortexec/sort.go and
// sortexec/sort_partition.go; the counters themselves use
// go.uber.org/atomic rather than raw sync/atomic, matching the teacher's
// own dependency on that package.
package memquota

import "go.uber.org/atomic"

// Tracker accounts for bytes consumed by one component of the sort engine,
// optionally rolling up into a parent tracker so a top-level budget can see
// the sum across its children.
type Tracker struct {
	label  string
	bytes  atomic.Int64
	limit  int64 // <=0 means unlimited
	parent *Tracker
}

// NewTracker creates a Tracker with the given label and byte limit. A
// non-positive limit means unlimited; the tracker never rejects
// consumption at any limit. The spill and re-merge gates in
// internal/sortexec do not read it: they compare their own running byte
// total against their thresholds.
func NewTracker(label string, bytesLimit int64) *Tracker {
	return &Tracker{label: label, limit: bytesLimit}
}

// Label returns the tracker's label.
func (t *Tracker) Label() string { return t.label }

// SetLabel updates the tracker's label.
func (t *Tracker) SetLabel(label string) { t.label = label }

// AttachTo makes parent the tracker's parent: subsequent Consume calls also
// adjust parent's total (and transitively, its ancestors').
func (t *Tracker) AttachTo(parent *Tracker) { t.parent = parent }

// Consume adjusts the tracker's byte count by delta (which may be
// negative) and propagates the same delta to any attached parent.
func (t *Tracker) Consume(delta int64) {
	t.bytes.Add(delta)
	if t.parent != nil {
		t.parent.Consume(delta)
	}
}

// BytesConsumed returns the tracker's current byte count.
func (t *Tracker) BytesConsumed() int64 { return t.bytes.Load() }

// BytesLimit returns the configured limit (<=0 meaning unlimited).
func (t *Tracker) BytesLimit() int64 { return t.limit }

// ReplaceBytesUsed resets the tracker's own count to bytes without
// touching the parent.
func (t *Tracker) ReplaceBytesUsed(bytes int64) {
	t.bytes.Store(bytes)
}
