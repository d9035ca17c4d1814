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

// Command sortbench drives internal/sortexec's MergeSorter and FinishSorter
// against synthetic datasets, the demo/benchmark binary DOMAIN STACK calls
// for in SPEC_FULL.md.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pingcap/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/colsort/sortexec/internal/sortexec"
	"github.com/colsort/sortexec/pkg/block"
	"github.com/colsort/sortexec/pkg/memblock"
	"github.com/colsort/sortexec/pkg/memquota"
)

var configPath string

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sc
		log.Warn("received signal to exit")
		cancel()
	}()

	rootCmd := &cobra.Command{
		Use:          "sortbench",
		Short:        "sortbench exercises the streaming ORDER BY engine against synthetic data.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")

	rootCmd.AddCommand(newMergeSortCommand(ctx), newFinishSortCommand(ctx))
	rootCmd.SetOut(os.Stdout)

	if err := rootCmd.Execute(); err != nil {
		log.Error("sortbench failed", zap.Error(err))
		os.Exit(1)
	}
}

func newMergeSortCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "merge-sort",
		Short: "Sort a synthetic unsorted dataset with MergeSorter.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runMergeSort(ctx, cfg)
		},
	}
}

func newFinishSortCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "finish-sort",
		Short: "Finish-sort a synthetic prefix-sorted dataset with FinishSorter.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runFinishSort(ctx, cfg)
		},
	}
}

func runMergeSort(ctx context.Context, cfg sortConfig) error {
	header, blocks := genUnsortedBlocks(cfg)
	input := memblock.NewSliceStream(header, blocks...)

	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsDirection: block.NullsLast}}

	memTracker := memquota.NewTracker("sortbench.merge_sort", 0)
	diskTracker := memquota.NewDiskTracker("sortbench.merge_sort.disk", 0)

	ms := sortexec.NewMergeSorter(input, desc, sortexec.MergeSorterConfig{
		MaxMergedBlockSize:         cfg.Sort.MaxMergedBlockSize,
		Limit:                      cfg.Sort.Limit,
		MaxBytesBeforeRemerge:      cfg.Sort.MaxBytesBeforeRemerge,
		MaxBytesBeforeExternalSort: cfg.Sort.MaxBytesBeforeExternalSort,
		TmpPath:                    cfg.Sort.TmpPath,
		FS:                         afero.NewOsFs(),
		Codec:                      memblock.Codec{},
		Counters:                   sortexec.PrometheusCounterSink{},
		MemTracker:                 memTracker,
		DiskTracker:                diskTracker,
	})
	defer ms.Close()

	start := time.Now()
	rows := 0
	for {
		b, err := ms.Read(ctx)
		if err != nil {
			return err
		}
		if b.NumRows() == 0 {
			break
		}
		rows += b.NumRows()
	}

	fmt.Printf("merge-sort: %d rows in %v (mem still tracked %d bytes, disk %d bytes)\n",
		rows, time.Since(start), memTracker.BytesConsumed(), diskTracker.BytesConsumed())
	return nil
}

func runFinishSort(ctx context.Context, cfg sortConfig) error {
	header, blocks := genPrefixSortedBlocks(cfg)
	input := memblock.NewSliceStream(header, blocks...)

	descSorted := block.SortDescription{{ColumnIndex: 0, Direction: block.Ascending, NullsDirection: block.NullsLast}}
	descFull := block.SortDescription{
		{ColumnIndex: 0, Direction: block.Ascending, NullsDirection: block.NullsLast},
		{ColumnIndex: 1, Direction: block.Ascending, NullsDirection: block.NullsLast},
	}

	fs := sortexec.NewFinishSorter(input, descSorted, descFull, sortexec.FinishSorterConfig{
		MaxMergedBlockSize: cfg.Sort.MaxMergedBlockSize,
		Limit:              cfg.Sort.Limit,
	})

	start := time.Now()
	rows := 0
	for {
		b, err := fs.Read(ctx)
		if err != nil {
			return err
		}
		if b.NumRows() == 0 {
			break
		}
		rows += b.NumRows()
	}

	fmt.Printf("finish-sort: %d rows in %v\n", rows, time.Since(start))
	return nil
}
