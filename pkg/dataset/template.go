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

package dataset

import (
	"fmt"
	"time"
)

type templateState struct {
	tableName string
	comment   string
	tags      string
	isNew     bool
	columns   []*Column
	signature Signature
}

func (s *templateState) deepCopy() *templateState {
	clone := *s
	clone.columns = nil
	for _, c := range s.columns {
		clone.columns = append(clone.columns, c.DeepCopy())
	}
	return &clone
}

// TableTemplate is the editable schema of one table. A template that has not
// been saved yet is new, and only a new template can be renamed.
type TableTemplate struct {
	state    *templateState
	original *templateState
}

// NewTableTemplate creates a template with the given columns.
func NewTableTemplate(tableName string, isNew bool, columns ...*Column) (*TableTemplate, error) {
	if tableName == "" {
		return nil, fmt.Errorf("empty table name: %w", ErrInvalidTable)
	}

	state := &templateState{
		tableName: tableName,
		isNew:     isNew,
	}
	for _, c := range columns {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if state.indexOf(c.Name) >= 0 {
			return nil, fmt.Errorf("%s.%s: %w", tableName, c.Name, ErrColumnAlreadyExists)
		}
		clone := c.DeepCopy()
		if clone.DefaultValue != nil {
			value, err := ConvertValue(clone.DataType, clone.DefaultValue)
			if err != nil {
				return nil, err
			}
			clone.DefaultValue = value
		}
		state.columns = append(state.columns, clone)
	}

	return &TableTemplate{state: state}, nil
}

func (s *templateState) indexOf(name string) int {
	for i, c := range s.columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// TableName returns the name of the table described by this template.
func (t *TableTemplate) TableName() string {
	return t.state.tableName
}

// Comment returns the comment of the table.
func (t *TableTemplate) Comment() string {
	return t.state.comment
}

// Tags returns the tags of the table.
func (t *TableTemplate) Tags() string {
	return t.state.tags
}

// IsNew returns whether the template has not been saved yet.
func (t *TableTemplate) IsNew() bool {
	return t.state.isNew
}

// Columns returns copies of the columns in order.
func (t *TableTemplate) Columns() []*Column {
	var columns []*Column
	for _, c := range t.state.columns {
		columns = append(columns, c.DeepCopy())
	}
	return columns
}

// Column returns a copy of the column of the given name.
func (t *TableTemplate) Column(name string) (*Column, error) {
	i := t.state.indexOf(name)
	if i < 0 {
		return nil, fmt.Errorf("%s.%s: %w", t.state.tableName, name, ErrColumnNotFound)
	}
	return t.state.columns[i].DeepCopy(), nil
}

// AddColumn adds a column built from the given member fields.
func (t *TableTemplate) AddColumn(fields map[string]interface{}) (*Column, error) {
	c, err := ColumnFromFields(fields)
	if err != nil {
		return nil, err
	}
	if t.state.indexOf(c.Name) >= 0 {
		return nil, fmt.Errorf("%s.%s: %w", t.state.tableName, c.Name, ErrColumnAlreadyExists)
	}

	t.track()
	t.state.columns = append(t.state.columns, c)
	return c.DeepCopy(), nil
}

// SetColumn changes member fields of the column of the given name.
func (t *TableTemplate) SetColumn(name string, fields map[string]interface{}) (*Column, error) {
	i := t.state.indexOf(name)
	if i < 0 {
		return nil, fmt.Errorf("%s.%s: %w", t.state.tableName, name, ErrColumnNotFound)
	}

	c := t.state.columns[i].DeepCopy()
	if err := c.apply(fields); err != nil {
		return nil, err
	}
	if j := t.state.indexOf(c.Name); j >= 0 && j != i {
		return nil, fmt.Errorf("%s.%s: %w", t.state.tableName, c.Name, ErrColumnAlreadyExists)
	}

	t.track()
	t.state.columns[i] = c
	return c.DeepCopy(), nil
}

// RemoveColumn removes the column of the given name.
func (t *TableTemplate) RemoveColumn(name string) (*Column, error) {
	i := t.state.indexOf(name)
	if i < 0 {
		return nil, fmt.Errorf("%s.%s: %w", t.state.tableName, name, ErrColumnNotFound)
	}

	t.track()
	c := t.state.columns[i]
	t.state.columns = append(t.state.columns[:i], t.state.columns[i+1:]...)
	return c, nil
}

// ClearColumns removes every column and returns how many were removed.
func (t *TableTemplate) ClearColumns() int {
	t.track()
	count := len(t.state.columns)
	t.state.columns = nil
	return count
}

// SetTableName renames the table. Only new templates can be renamed.
func (t *TableTemplate) SetTableName(name string) error {
	if !t.state.isNew {
		return fmt.Errorf("rename %s: %w", t.state.tableName, ErrTemplateNotNew)
	}
	if name == "" {
		return fmt.Errorf("empty table name: %w", ErrInvalidTable)
	}

	t.track()
	t.state.tableName = name
	return nil
}

// SetComment changes the comment of the table.
func (t *TableTemplate) SetComment(comment string) {
	t.track()
	t.state.comment = comment
}

// SetTags changes the tags of the table.
func (t *TableTemplate) SetTags(tags string) {
	t.track()
	t.state.tags = tags
}

// SetSignature records the user and time of the modification in progress.
func (t *TableTemplate) SetSignature(signature Signature) {
	t.track()
	t.state.signature = Signature{ID: signature.ID, DateTime: signature.DateTime.UTC().Truncate(time.Millisecond)}
}

// Signature returns the signature of the last modification.
func (t *TableTemplate) Signature() Signature {
	return t.state.signature
}

// HasChanges returns whether there are uncommitted changes.
func (t *TableTemplate) HasChanges() bool {
	return t.original != nil
}

// AcceptChanges commits the changes made since the last commit.
func (t *TableTemplate) AcceptChanges() {
	t.original = nil
}

// RejectChanges discards the changes made since the last commit.
func (t *TableTemplate) RejectChanges() {
	if t.original != nil {
		t.state = t.original
		t.original = nil
	}
}

// Table creates an empty table with the columns of this template.
func (t *TableTemplate) Table() (*Table, error) {
	return NewTable(t.state.tableName, t.state.columns...)
}

func (t *TableTemplate) track() {
	if t.original == nil {
		t.original = t.state.deepCopy()
	}
}
