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

import "github.com/prometheus/client_golang/prometheus"

// Process-wide profiling counters for the external-sort write-part and
// merge events, shaped as prometheus counters the way
// pkg/metrics/resource_group.go's RunawayCheckerCounter is, rather than an
// ad hoc package-level int64.
var (
	externalSortWritePart = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sortexec",
		Subsystem: "external_sort",
		Name:      "write_part_total",
		Help:      "Number of times the merge sorter spilled a sorted run to a temporary file.",
	})

	externalSortMerge = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sortexec",
		Subsystem: "external_sort",
		Name:      "merge_total",
		Help:      "Number of times the merge sorter entered the final multi-way merge across spills.",
	})
)

func init() {
	prometheus.MustRegister(externalSortWritePart, externalSortMerge)
}

// CounterSink is an injected configuration handle. MergeSorter holds one of
// these rather than incrementing the package-level prometheus counters
// directly, so callers that want their own registry (or no metrics at all,
// in tests) can supply it.
type CounterSink interface {
	IncExternalSortWritePart()
	IncExternalSortMerge()
}

// PrometheusCounterSink is the default CounterSink, backed by the
// process-wide prometheus counters registered above.
type PrometheusCounterSink struct{}

func (PrometheusCounterSink) IncExternalSortWritePart() { externalSortWritePart.Inc() }
func (PrometheusCounterSink) IncExternalSortMerge()     { externalSortMerge.Inc() }

// NopCounterSink discards every increment. Useful in tests that don't want
// to touch the process-wide prometheus registry.
type NopCounterSink struct{}

func (NopCounterSink) IncExternalSortWritePart() {}
func (NopCounterSink) IncExternalSortMerge()     {}
