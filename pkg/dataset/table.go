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
	"strings"

	"github.com/google/uuid"
)

// keySeparator joins the formatted key values of a row into its index key.
const keySeparator = "\x1f"

// Row is one row of a table. The values are normalized by the data types of
// the columns of the table.
type Row struct {
	values map[string]interface{}
}

// Value returns the value of the given column.
func (r *Row) Value(name string) interface{} {
	return r.values[name]
}

// Fields returns a copy of the values of this row.
func (r *Row) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(r.values))
	for name, value := range r.values {
		fields[name] = value
	}
	return fields
}

// DeepCopy returns a deep copy of this row.
func (r *Row) DeepCopy() *Row {
	if r == nil {
		return nil
	}
	return &Row{values: r.Fields()}
}

// Table is an ordered set of rows indexed by their key columns.
type Table struct {
	name    string
	columns []*Column
	rows    []*Row
	index   map[string]*Row

	// nextID is the last value issued to an auto increment column.
	nextID int64
}

// NewTable creates a new empty table. At least one column must be a key.
func NewTable(name string, columns ...*Column) (*Table, error) {
	if name == "" {
		return nil, fmt.Errorf("empty table name: %w", ErrInvalidTable)
	}

	t := &Table{
		name:  name,
		index: make(map[string]*Row),
	}

	hasKey := false
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%s.%s: %w", name, c.Name, ErrColumnAlreadyExists)
		}
		seen[c.Name] = true

		clone := c.DeepCopy()
		if clone.DefaultValue != nil {
			value, err := ConvertValue(clone.DataType, clone.DefaultValue)
			if err != nil {
				return nil, err
			}
			clone.DefaultValue = value
		}
		hasKey = hasKey || clone.IsKey
		t.columns = append(t.columns, clone)
	}

	if !hasKey {
		return nil, fmt.Errorf("table %s has no key column: %w", name, ErrInvalidTable)
	}

	return t, nil
}

// Name returns the name of this table.
func (t *Table) Name() string {
	return t.name
}

// Columns returns copies of the columns of this table.
func (t *Table) Columns() []*Column {
	var columns []*Column
	for _, c := range t.columns {
		columns = append(columns, c.DeepCopy())
	}
	return columns
}

// Column returns a copy of the column of the given name.
func (t *Table) Column(name string) (*Column, error) {
	c := t.column(name)
	if c == nil {
		return nil, fmt.Errorf("%s.%s: %w", t.name, name, ErrColumnNotFound)
	}
	return c.DeepCopy(), nil
}

// KeyColumns returns copies of the key columns in declaration order.
func (t *Table) KeyColumns() []*Column {
	var columns []*Column
	for _, c := range t.columns {
		if c.IsKey {
			columns = append(columns, c.DeepCopy())
		}
	}
	return columns
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Rows returns copies of the rows in insertion order.
func (t *Table) Rows() []*Row {
	rows := make([]*Row, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, r.DeepCopy())
	}
	return rows
}

// KeysOf returns the key values of the given row in key column order.
func (t *Table) KeysOf(r *Row) []interface{} {
	var keys []interface{}
	for _, c := range t.columns {
		if c.IsKey {
			keys = append(keys, r.values[c.Name])
		}
	}
	return keys
}

// Find returns a copy of the row of the given keys.
func (t *Table) Find(keys []interface{}) (*Row, error) {
	r, err := t.find(keys)
	if err != nil {
		return nil, err
	}
	return r.DeepCopy(), nil
}

func (t *Table) column(name string) *Column {
	for _, c := range t.columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Table) find(keys []interface{}) (*Row, error) {
	key, err := t.indexKeyOf(keys)
	if err != nil {
		return nil, err
	}

	r, ok := t.index[key]
	if !ok {
		return nil, fmt.Errorf("%s%v: %w", t.name, keys, ErrRowNotFound)
	}
	return r, nil
}

func (t *Table) indexKeyOf(keys []interface{}) (string, error) {
	var parts []string
	i := 0
	for _, c := range t.columns {
		if !c.IsKey {
			continue
		}
		if i >= len(keys) {
			return "", fmt.Errorf("%s: expected more than %d keys: %w", t.name, len(keys), ErrInvalidKeys)
		}
		value, err := ConvertValue(c.DataType, keys[i])
		if err != nil {
			return "", err
		}
		parts = append(parts, FormatValue(c.DataType, value))
		i++
	}
	if i != len(keys) {
		return "", fmt.Errorf("%s: expected %d keys, got %d: %w", t.name, i, len(keys), ErrInvalidKeys)
	}

	return strings.Join(parts, keySeparator), nil
}

func (t *Table) indexKeyOfValues(values map[string]interface{}) string {
	var parts []string
	for _, c := range t.columns {
		if c.IsKey {
			parts = append(parts, FormatValue(c.DataType, values[c.Name]))
		}
	}
	return strings.Join(parts, keySeparator)
}

// convertFields normalizes the given fields by the data types of the columns.
func (t *Table) convertFields(fields map[string]interface{}) (map[string]interface{}, error) {
	converted := make(map[string]interface{}, len(fields))
	for name, value := range fields {
		c := t.column(name)
		if c == nil {
			return nil, fmt.Errorf("%s.%s: %w", t.name, name, ErrColumnNotFound)
		}
		v, err := ConvertValue(c.DataType, value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", t.name, name, err)
		}
		converted[name] = v
	}
	return converted, nil
}

// validate checks null and unique constraints of the given values against
// every row except self.
func (t *Table) validate(values map[string]interface{}, self *Row) error {
	for _, c := range t.columns {
		value := values[c.Name]
		if value == nil {
			if c.IsKey || c.NotNull {
				return fmt.Errorf("%s.%s: %w", t.name, c.Name, ErrNullValue)
			}
			continue
		}
		if !c.Unique {
			continue
		}
		formatted := FormatValue(c.DataType, value)
		for _, r := range t.rows {
			if r == self || r.values[c.Name] == nil {
				continue
			}
			if FormatValue(c.DataType, r.values[c.Name]) == formatted {
				return fmt.Errorf("%s.%s=%s: %w", t.name, c.Name, formatted, ErrDuplicateKey)
			}
		}
	}
	return nil
}

func (t *Table) observeIDs(values map[string]interface{}) {
	for _, c := range t.columns {
		if !c.AutoIncrement {
			continue
		}
		if id, ok := values[c.Name].(int64); ok && id > t.nextID {
			t.nextID = id
		}
	}
}

func (t *Table) addRow(fields map[string]interface{}) (*Row, error) {
	converted, err := t.convertFields(fields)
	if err != nil {
		return nil, err
	}

	nextID := t.nextID
	values := make(map[string]interface{}, len(t.columns))
	for _, c := range t.columns {
		value, ok := converted[c.Name]
		if !ok {
			value = c.DefaultValue
		}
		if value == nil && c.AutoIncrement {
			nextID++
			value = nextID
		} else if value == nil && c.IsKey && c.DataType == TypeGUID {
			value = uuid.NewString()
		}
		values[c.Name] = value
	}

	if err := t.validate(values, nil); err != nil {
		return nil, err
	}
	key := t.indexKeyOfValues(values)
	if _, ok := t.index[key]; ok {
		return nil, fmt.Errorf("%s[%s]: %w", t.name, key, ErrDuplicateKey)
	}

	r := &Row{values: values}
	t.rows = append(t.rows, r)
	t.index[key] = r
	t.nextID = nextID
	t.observeIDs(values)
	return r.DeepCopy(), nil
}

func (t *Table) setRow(keys []interface{}, fields map[string]interface{}) (*Row, error) {
	r, err := t.find(keys)
	if err != nil {
		return nil, err
	}
	converted, err := t.convertFields(fields)
	if err != nil {
		return nil, err
	}

	values := r.Fields()
	for name, value := range converted {
		values[name] = value
	}
	if err := t.validate(values, r); err != nil {
		return nil, err
	}

	oldKey := t.indexKeyOfValues(r.values)
	newKey := t.indexKeyOfValues(values)
	if newKey != oldKey {
		if _, ok := t.index[newKey]; ok {
			return nil, fmt.Errorf("%s[%s]: %w", t.name, newKey, ErrDuplicateKey)
		}
		delete(t.index, oldKey)
		t.index[newKey] = r
	}

	r.values = values
	t.observeIDs(values)
	return r.DeepCopy(), nil
}

func (t *Table) removeRow(keys []interface{}) (*Row, error) {
	r, err := t.find(keys)
	if err != nil {
		return nil, err
	}

	delete(t.index, t.indexKeyOfValues(r.values))
	for i, row := range t.rows {
		if row == r {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			break
		}
	}
	return r.DeepCopy(), nil
}

func (t *Table) clear() int {
	count := len(t.rows)
	t.rows = nil
	t.index = make(map[string]*Row)
	return count
}

// deepCopy returns a deep copy of this table.
func (t *Table) deepCopy() *Table {
	clone := &Table{
		name:    t.name,
		columns: t.Columns(),
		rows:    make([]*Row, 0, len(t.rows)),
		index:   make(map[string]*Row, len(t.index)),
		nextID:  t.nextID,
	}
	for _, r := range t.rows {
		row := r.DeepCopy()
		clone.rows = append(clone.rows, row)
		clone.index[clone.indexKeyOfValues(row.values)] = row
	}
	return clone
}
