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
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/crema-team/crema/api/types"
)

// EntryType is the kind of mutation recorded by a log entry.
type EntryType string

const (
	// EntryNewRow records rows added to the document. The rows carry every
	// field including generated keys.
	EntryNewRow EntryType = "new-row"

	// EntrySetRow records changed fields of rows found by their keys.
	EntrySetRow EntryType = "set-row"

	// EntryRemoveRow records removed rows, or a cleared table.
	EntryRemoveRow EntryType = "remove-row"

	// EntrySetProperty records a changed property of the document.
	EntrySetProperty EntryType = "set-property"
)

// LogEntry is one committed mutation of a domain.
type LogEntry struct {
	ID            string                `bson:"id"`
	Seq           int64                 `bson:"seq"`
	Type          EntryType             `bson:"type"`
	UserID        string                `bson:"user_id"`
	Signature     types.SignatureDate   `bson:"signature"`
	Rows          []types.DomainRowInfo `bson:"rows,omitempty"`
	PropertyName  string                `bson:"property_name,omitempty"`
	PropertyValue interface{}           `bson:"property_value,omitempty"`
}

func newRowEntry(entryType EntryType, userID string, signature types.SignatureDate, rows []types.DomainRowInfo) *LogEntry {
	return &LogEntry{
		ID:        ulid.Make().String(),
		Type:      entryType,
		UserID:    userID,
		Signature: signature,
		Rows:      rows,
	}
}

func newPropertyEntry(userID string, signature types.SignatureDate, name string, value interface{}) *LogEntry {
	return &LogEntry{
		ID:            ulid.Make().String(),
		Type:          EntrySetProperty,
		UserID:        userID,
		Signature:     signature,
		PropertyName:  name,
		PropertyValue: value,
	}
}

func encodeEntry(entry *LogEntry) ([]byte, error) {
	data, err := bson.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("marshal entry %d: %w", entry.Seq, err)
	}
	return data, nil
}

func decodeEntry(data []byte) (*LogEntry, error) {
	entry := &LogEntry{}
	if err := bson.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %s: %w", err.Error(), ErrCorruptedLog)
	}

	switch entry.Type {
	case EntryNewRow, EntrySetRow, EntryRemoveRow:
		if len(entry.Rows) == 0 {
			return nil, fmt.Errorf("entry %d without rows: %w", entry.Seq, ErrCorruptedLog)
		}
	case EntrySetProperty:
		if entry.PropertyName == "" {
			return nil, fmt.Errorf("entry %d without property: %w", entry.Seq, ErrCorruptedLog)
		}
	default:
		return nil, fmt.Errorf("entry %d of type %q: %w", entry.Seq, entry.Type, ErrCorruptedLog)
	}
	return entry, nil
}
