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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/server/profiling/prometheus"
)

const (
	infoFileName   = "info.bson"
	snapshotPrefix = "snapshot-"
	snapshotSuffix = ".xml.gz"
	entrySuffix    = ".entry"
	tempSuffix     = ".tmp"

	logVersion = 1

	// DefaultSnapshotInterval is the number of entries after which a log
	// writes a snapshot and drops the entries it covers.
	DefaultSnapshotInterval = 100
)

// LogOptions configures the logs of domains.
type LogOptions struct {
	// Root is the directory under which each domain logs into
	// <Root>/<database id>/<domain id>.
	Root string

	// SnapshotInterval is the number of entries between snapshots.
	SnapshotInterval int

	// Metrics is optional.
	Metrics *prometheus.Metrics
}

func (o LogOptions) snapshotInterval() int {
	if o.SnapshotInterval <= 0 {
		return DefaultSnapshotInterval
	}
	return o.SnapshotInterval
}

// Dir returns the log directory of the given domain.
func (o LogOptions) Dir(info types.DomainInfo) string {
	return filepath.Join(o.Root, info.DataBaseID.String(), info.ID.String())
}

type logInfo struct {
	Version int              `bson:"version"`
	Info    types.DomainInfo `bson:"info"`
}

// Logger is the write-ahead log of one domain. The log directory holds the
// identity of the domain, the latest snapshot of its document and the entries
// committed after the snapshot, one file per entry. Files are written to a
// temporary name and renamed, so a crash never leaves a partial entry.
//
// A Logger is owned by its domain and only used on the dispatcher of the
// domain.
type Logger struct {
	dir        string
	domainType types.DomainType
	options    LogOptions

	seq         int64
	snapshotSeq int64
	disposed    bool
}

// CreateLogger creates the log of a new domain, starting from the given
// snapshot of its document.
func CreateLogger(options LogOptions, info types.DomainInfo, snapshot []byte) (*Logger, error) {
	dir := options.Dir(info)
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("remove stale log %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log %s: %w", dir, err)
	}

	data, err := bson.Marshal(logInfo{Version: logVersion, Info: info})
	if err != nil {
		return nil, fmt.Errorf("marshal log info: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, infoFileName), data); err != nil {
		return nil, err
	}

	l := &Logger{
		dir:        dir,
		domainType: info.DomainType,
		options:    options,
	}
	if err := l.writeSnapshot(snapshot); err != nil {
		return nil, err
	}
	return l, nil
}

func openLogger(options LogOptions, dir string, info types.DomainInfo, seq, snapshotSeq int64) *Logger {
	return &Logger{
		dir:         dir,
		domainType:  info.DomainType,
		options:     options,
		seq:         seq,
		snapshotSeq: snapshotSeq,
	}
}

// Dir returns the directory of this log.
func (l *Logger) Dir() string {
	return l.dir
}

// Seq returns the sequence of the last appended entry.
func (l *Logger) Seq() int64 {
	return l.seq
}

// EntryCount returns the number of entries not covered by the snapshot.
func (l *Logger) EntryCount() int {
	return int(l.seq - l.snapshotSeq)
}

// Append durably writes the given entry and assigns its sequence. Nothing is
// written if an error is returned.
func (l *Logger) Append(entry *LogEntry) error {
	if l.disposed {
		return ErrLoggerDisposed
	}

	entry.Seq = l.seq + 1
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(l.entryPath(entry.Seq), data); err != nil {
		return err
	}

	l.seq = entry.Seq
	if l.options.Metrics != nil {
		l.options.Metrics.AddDomainLogEntries(string(l.domainType), 1)
	}
	return nil
}

// NeedsSnapshot returns whether enough entries were appended since the last
// snapshot.
func (l *Logger) NeedsSnapshot() bool {
	return !l.disposed && l.EntryCount() >= l.options.snapshotInterval()
}

// Snapshot writes the given document as of the last appended entry and drops
// the entries and snapshots it supersedes.
func (l *Logger) Snapshot(snapshot []byte) error {
	if l.disposed {
		return ErrLoggerDisposed
	}
	if err := l.writeSnapshot(snapshot); err != nil {
		return err
	}
	return l.compact()
}

// Dispose closes this log. If snapshot is given and entries were appended
// since the last snapshot, the document is flushed first.
func (l *Logger) Dispose(snapshot func() ([]byte, error)) error {
	if l.disposed {
		return nil
	}

	var err error
	if snapshot != nil && l.EntryCount() > 0 {
		var data []byte
		if data, err = snapshot(); err == nil {
			err = l.Snapshot(data)
		}
	}
	l.disposed = true
	return err
}

// Delete disposes this log and removes its directory.
func (l *Logger) Delete() error {
	l.disposed = true
	if err := os.RemoveAll(l.dir); err != nil {
		return fmt.Errorf("delete log %s: %w", l.dir, err)
	}
	return nil
}

// CopyTo copies the files of this log into dir, which is created if missing.
func (l *Logger) CopyTo(dir string) error {
	if l.disposed {
		return ErrLoggerDisposed
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	files, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("read log %s: %w", l.dir, err)
	}
	for _, f := range files {
		if f.IsDir() || strings.HasSuffix(f.Name(), tempSuffix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(l.dir, f.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name(), err)
		}
		if err := writeFileAtomic(filepath.Join(dir, f.Name()), data); err != nil {
			return err
		}
	}
	return nil
}

func (l *Logger) writeSnapshot(snapshot []byte) error {
	if err := writeFileAtomic(l.snapshotPath(l.seq), snapshot); err != nil {
		return err
	}
	l.snapshotSeq = l.seq
	if l.options.Metrics != nil {
		l.options.Metrics.ObserveDomainSnapshotBytes(len(snapshot))
	}
	return nil
}

func (l *Logger) compact() error {
	files, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("read log %s: %w", l.dir, err)
	}

	for _, f := range files {
		name := f.Name()
		var seq int64
		var ok bool
		switch {
		case strings.HasPrefix(name, snapshotPrefix):
			seq, ok = parseSeq(name, snapshotPrefix, snapshotSuffix)
			ok = ok && seq < l.snapshotSeq
		case strings.HasSuffix(name, entrySuffix):
			seq, ok = parseSeq(name, "", entrySuffix)
			ok = ok && seq <= l.snapshotSeq
		}
		if !ok {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("compact log %s: %w", l.dir, err)
		}
	}
	return nil
}

func (l *Logger) entryPath(seq int64) string {
	return filepath.Join(l.dir, fmt.Sprintf("%08d%s", seq, entrySuffix))
}

func (l *Logger) snapshotPath(seq int64) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s%08d%s", snapshotPrefix, seq, snapshotSuffix))
}

// logState is the content of a log directory read for replay.
type logState struct {
	info        types.DomainInfo
	snapshot    []byte
	snapshotSeq int64
	entries     []*LogEntry
}

func (s *logState) lastSeq() int64 {
	if len(s.entries) == 0 {
		return s.snapshotSeq
	}
	return s.entries[len(s.entries)-1].Seq
}

// readLog reads the identity, latest snapshot and following entries of the
// log in dir. Entries must follow the snapshot without gaps.
func readLog(dir string) (*logState, error) {
	data, err := os.ReadFile(filepath.Join(dir, infoFileName))
	if err != nil {
		return nil, fmt.Errorf("read log info %s: %s: %w", dir, err.Error(), ErrCorruptedLog)
	}
	var li logInfo
	if err := bson.Unmarshal(data, &li); err != nil {
		return nil, fmt.Errorf("unmarshal log info %s: %s: %w", dir, err.Error(), ErrCorruptedLog)
	}
	if li.Version != logVersion {
		return nil, fmt.Errorf("log version %d of %s: %w", li.Version, dir, ErrCorruptedLog)
	}
	if err := li.Info.Validate(); err != nil {
		return nil, fmt.Errorf("log info %s: %s: %w", dir, err.Error(), ErrCorruptedLog)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", dir, err)
	}

	state := &logState{info: li.Info, snapshotSeq: -1}
	var entrySeqs []int64
	for _, f := range files {
		name := f.Name()
		if strings.HasPrefix(name, snapshotPrefix) {
			if seq, ok := parseSeq(name, snapshotPrefix, snapshotSuffix); ok && seq > state.snapshotSeq {
				state.snapshotSeq = seq
			}
		} else if seq, ok := parseSeq(name, "", entrySuffix); ok {
			entrySeqs = append(entrySeqs, seq)
		}
	}
	if state.snapshotSeq < 0 {
		return nil, fmt.Errorf("no snapshot in %s: %w", dir, ErrCorruptedLog)
	}

	snapshotPath := filepath.Join(dir, fmt.Sprintf("%s%08d%s", snapshotPrefix, state.snapshotSeq, snapshotSuffix))
	if state.snapshot, err = os.ReadFile(snapshotPath); err != nil {
		return nil, fmt.Errorf("read snapshot %s: %s: %w", snapshotPath, err.Error(), ErrCorruptedLog)
	}

	sort.Slice(entrySeqs, func(i, j int) bool { return entrySeqs[i] < entrySeqs[j] })
	expected := state.snapshotSeq + 1
	for _, seq := range entrySeqs {
		// entries left behind by an interrupted compaction
		if seq <= state.snapshotSeq {
			continue
		}
		if seq != expected {
			return nil, fmt.Errorf("missing entry %d in %s: %w", expected, dir, ErrCorruptedLog)
		}

		path := filepath.Join(dir, fmt.Sprintf("%08d%s", seq, entrySuffix))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read entry %s: %s: %w", path, err.Error(), ErrCorruptedLog)
		}
		entry, err := decodeEntry(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if entry.Seq != seq {
			return nil, fmt.Errorf("entry %s has sequence %d: %w", path, entry.Seq, ErrCorruptedLog)
		}
		state.entries = append(state.entries, entry)
		expected++
	}

	return state, nil
}

func parseSeq(name, prefix, suffix string) (int64, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	seq, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix), 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

func writeFileAtomic(path string, data []byte) (err error) {
	tmp := path + tempSuffix
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
