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

package memquota

// DiskTracker accounts for bytes written to spill files. It has the same
// shape as Tracker, kept as a distinct named type so a memory tracker and
// a disk tracker can never be attached to each other by a typo, mirroring
// pkg/util/memory.Tracker and pkg/util/disk.Tracker being separate types in
// the teacher despite near-identical APIs.
type DiskTracker struct {
	Tracker
}

// NewDiskTracker creates a DiskTracker with the given label and byte
// limit (<=0 meaning unlimited; precise disk-space accounting is not
// enforced, so this is advisory only).
func NewDiskTracker(label string, bytesLimit int64) *DiskTracker {
	return &DiskTracker{Tracker: *NewTracker(label, bytesLimit)}
}

// AttachTo makes parent the tracker's parent.
func (d *DiskTracker) AttachTo(parent *DiskTracker) {
	d.Tracker.AttachTo(&parent.Tracker)
}
