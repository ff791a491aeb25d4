/*
 * Copyright 2025 The Crema Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package domain

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/crema-team/crema/api/types"
)

// Restorer rebuilds a domain from its log directory.
type Restorer struct {
	dir     string
	options LogOptions
	opts    []Option
}

// NewRestorer creates a restorer of the log in dir.
func NewRestorer(options LogOptions, dir string, opts ...Option) *Restorer {
	return &Restorer{
		dir:     dir,
		options: options,
		opts:    opts,
	}
}

// Dir returns the log directory this restorer reads.
func (r *Restorer) Dir() string {
	return r.dir
}

// Restore loads the latest snapshot, replays the entries that follow it and
// returns the active domain. The log directory is left untouched when the log
// cannot be replayed.
func (r *Restorer) Restore(ctx context.Context) (*Domain, error) {
	state, err := readLog(r.dir)
	if err != nil {
		return nil, err
	}

	doc, err := loadDocument(state.info.DomainType, state.snapshot)
	if err != nil {
		if !errors.Is(err, ErrCorruptedLog) {
			err = fmt.Errorf("%s: %s: %w", r.dir, err.Error(), ErrCorruptedLog)
		}
		return nil, err
	}

	d := newDomain(state.info, doc, r.opts...)
	err = d.dispatcher.Invoke(ctx, func() error {
		d.setState(types.DomainStateRestoring)
		for _, entry := range state.entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := d.replay(entry); err != nil {
				return err
			}
		}

		d.logger = openLogger(r.options, r.dir, state.info, state.lastSeq(), state.snapshotSeq)
		d.setState(types.DomainStateActive)
		return nil
	})
	if err != nil {
		d.dispatcher.Dispose()
		return nil, fmt.Errorf("restore %s: %w", r.dir, err)
	}

	d.log.Debugf("restored %s from %d entries", d, len(state.entries))
	return d, nil
}

// FindLogs returns the log directories of the domains of the given database
// under the root of options, sorted by path.
func FindLogs(options LogOptions, databaseID types.ID) ([]string, error) {
	root := filepath.Join(options.Root, databaseID.String())
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, infoFileName)); err != nil {
			continue
		}
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// LogSummary describes a domain log without replaying it.
type LogSummary struct {
	Dir         string           `json:"dir" yaml:"dir"`
	Info        types.DomainInfo `json:"info" yaml:"info"`
	SnapshotSeq int64            `json:"snapshotSeq" yaml:"snapshotSeq"`
	Seq         int64            `json:"seq" yaml:"seq"`
	Entries     int              `json:"entries" yaml:"entries"`
}

// InspectLog reads the log in dir and summarizes it. It fails with
// ErrCorruptedLog on the logs the restorer would reject.
func InspectLog(dir string) (LogSummary, error) {
	state, err := readLog(dir)
	if err != nil {
		return LogSummary{}, err
	}

	return LogSummary{
		Dir:         dir,
		Info:        state.info,
		SnapshotSeq: state.snapshotSeq,
		Seq:         state.lastSeq(),
		Entries:     len(state.entries),
	}, nil
}
