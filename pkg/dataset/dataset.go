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

/*
Package dataset implements the tabular documents edited in domains: a DataSet
of keyed tables and a TableTemplate describing the columns of one table.

Both documents are transactional. Mutations are recorded against a copy of the
state taken at the first write after the last commit; AcceptChanges drops the
copy and RejectChanges restores it.
*/
package dataset

import (
	"fmt"
	"time"
)

// Signature is the user and time of the last modification of a document.
type Signature struct {
	ID       string
	DateTime time.Time
}

// DataSet is a named set of tables.
type DataSet struct {
	name      string
	tables    map[string]*Table
	order     []string
	signature Signature

	// original holds the state of each table touched since the last commit.
	original          map[string]*Table
	originalSignature *Signature
}

// New creates a new empty data set.
func New(name string) *DataSet {
	return &DataSet{
		name:   name,
		tables: make(map[string]*Table),
	}
}

// Name returns the name of this data set.
func (ds *DataSet) Name() string {
	return ds.name
}

// AddTable adds the given table. Tables are part of the shape of a data set
// and are not covered by AcceptChanges and RejectChanges.
func (ds *DataSet) AddTable(t *Table) error {
	if _, ok := ds.tables[t.name]; ok {
		return fmt.Errorf("%s: %w", t.name, ErrTableAlreadyExists)
	}

	ds.tables[t.name] = t
	ds.order = append(ds.order, t.name)
	return nil
}

// Table returns the table of the given name. The returned table must only be
// read; mutations go through the data set.
func (ds *DataSet) Table(name string) (*Table, error) {
	t, ok := ds.tables[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrTableNotFound)
	}
	return t, nil
}

// Tables returns the tables in the order they were added.
func (ds *DataSet) Tables() []*Table {
	var tables []*Table
	for _, name := range ds.order {
		tables = append(tables, ds.tables[name])
	}
	return tables
}

// AddRow adds a row with the given fields to the table. Missing key values of
// auto increment and guid columns are generated.
func (ds *DataSet) AddRow(table string, fields map[string]interface{}) (*Row, error) {
	t, err := ds.track(table)
	if err != nil {
		return nil, err
	}
	return t.addRow(fields)
}

// SetRow changes the fields of the row of the given keys.
func (ds *DataSet) SetRow(table string, keys []interface{}, fields map[string]interface{}) (*Row, error) {
	t, err := ds.track(table)
	if err != nil {
		return nil, err
	}
	return t.setRow(keys, fields)
}

// RemoveRow removes the row of the given keys.
func (ds *DataSet) RemoveRow(table string, keys []interface{}) (*Row, error) {
	t, err := ds.track(table)
	if err != nil {
		return nil, err
	}
	return t.removeRow(keys)
}

// ClearRows removes every row of the table and returns how many were removed.
func (ds *DataSet) ClearRows(table string) (int, error) {
	t, err := ds.track(table)
	if err != nil {
		return 0, err
	}
	return t.clear(), nil
}

// SetSignature records the user and time of the modification in progress.
func (ds *DataSet) SetSignature(signature Signature) {
	if ds.originalSignature == nil {
		original := ds.signature
		ds.originalSignature = &original
	}
	ds.signature = Signature{ID: signature.ID, DateTime: signature.DateTime.UTC().Truncate(time.Millisecond)}
}

// Signature returns the signature of the last modification.
func (ds *DataSet) Signature() Signature {
	return ds.signature
}

// HasChanges returns whether there are uncommitted changes.
func (ds *DataSet) HasChanges() bool {
	return len(ds.original) > 0 || ds.originalSignature != nil
}

// AcceptChanges commits the changes made since the last commit.
func (ds *DataSet) AcceptChanges() {
	ds.original = nil
	ds.originalSignature = nil
}

// RejectChanges discards the changes made since the last commit.
func (ds *DataSet) RejectChanges() {
	for name, t := range ds.original {
		ds.tables[name] = t
	}
	if ds.originalSignature != nil {
		ds.signature = *ds.originalSignature
	}
	ds.AcceptChanges()
}

func (ds *DataSet) track(name string) (*Table, error) {
	t, err := ds.Table(name)
	if err != nil {
		return nil, err
	}

	if _, ok := ds.original[name]; !ok {
		if ds.original == nil {
			ds.original = make(map[string]*Table)
		}
		ds.original[name] = t.deepCopy()
	}
	return t, nil
}
