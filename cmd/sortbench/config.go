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

package main

import (
	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

// sortConfig decodes the benchmark's TOML config file: the sort
// thresholds and the shape of the synthetic dataset to generate, mirroring
// the teacher's own convention of decoding a struct straight from TOML
// rather than a flag-per-field CLI.
type sortConfig struct {
	Sort struct {
		MaxMergedBlockSize         int    `toml:"max_merged_block_size"`
		Limit                      int64  `toml:"limit"`
		MaxBytesBeforeRemerge      int64  `toml:"max_bytes_before_remerge"`
		MaxBytesBeforeExternalSort int64  `toml:"max_bytes_before_external_sort"`
		TmpPath                    string `toml:"tmp_path"`
	} `toml:"sort"`

	Data struct {
		Rows      int   `toml:"rows"`
		Blocks    int   `toml:"blocks"`
		Seed      int64 `toml:"seed"`
		PrefixKey bool  `toml:"prefix_key"`
	} `toml:"data"`
}

func defaultConfig() sortConfig {
	var cfg sortConfig
	cfg.Sort.MaxMergedBlockSize = 4096
	cfg.Sort.TmpPath = "/tmp/sortbench-spill"
	cfg.Data.Rows = 100000
	cfg.Data.Blocks = 20
	cfg.Data.Seed = 1
	return cfg
}

func loadConfig(path string) (sortConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Annotate(err, "sortbench: decoding config file")
	}
	return cfg, nil
}
