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
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/klauspost/compress/gzip"
)

type xmlDataSet struct {
	XMLName    xml.Name   `xml:"DataSet"`
	Name       string     `xml:"name,attr"`
	ModifiedBy string     `xml:"modifiedBy,attr,omitempty"`
	ModifiedAt string     `xml:"modifiedAt,attr,omitempty"`
	Tables     []xmlTable `xml:"Table"`
}

type xmlTable struct {
	Name    string      `xml:"name,attr"`
	NextID  int64       `xml:"nextID,attr,omitempty"`
	Columns []xmlColumn `xml:"Column"`
	Rows    []xmlRow    `xml:"Row"`
}

type xmlColumn struct {
	Name          string  `xml:"name,attr"`
	DataType      string  `xml:"dataType,attr"`
	IsKey         bool    `xml:"isKey,attr,omitempty"`
	Unique        bool    `xml:"unique,attr,omitempty"`
	NotNull       bool    `xml:"notNull,attr,omitempty"`
	AutoIncrement bool    `xml:"autoIncrement,attr,omitempty"`
	DefaultValue  *string `xml:"defaultValue,attr,omitempty"`
	Comment       string  `xml:"comment,attr,omitempty"`
	Tags          string  `xml:"tags,attr,omitempty"`
}

type xmlRow struct {
	Fields []xmlField `xml:"Field"`
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Null  bool   `xml:"null,attr,omitempty"`
	Value string `xml:",chardata"`
}

type xmlTemplate struct {
	XMLName    xml.Name    `xml:"TableTemplate"`
	TableName  string      `xml:"tableName,attr"`
	Comment    string      `xml:"comment,attr,omitempty"`
	Tags       string      `xml:"tags,attr,omitempty"`
	IsNew      bool        `xml:"isNew,attr,omitempty"`
	ModifiedBy string      `xml:"modifiedBy,attr,omitempty"`
	ModifiedAt string      `xml:"modifiedAt,attr,omitempty"`
	Columns    []xmlColumn `xml:"Column"`
}

// MarshalCompressed encodes the committed and pending state of this data set
// as gzip compressed XML.
func (ds *DataSet) MarshalCompressed() ([]byte, error) {
	doc := xmlDataSet{
		Name:       ds.name,
		ModifiedBy: ds.signature.ID,
		ModifiedAt: formatTime(ds.signature.DateTime),
	}
	for _, t := range ds.Tables() {
		xt := xmlTable{
			Name:    t.name,
			NextID:  t.nextID,
			Columns: toXMLColumns(t.columns),
		}
		for _, r := range t.rows {
			var row xmlRow
			for _, c := range t.columns {
				value := r.values[c.Name]
				row.Fields = append(row.Fields, xmlField{
					Name:  c.Name,
					Null:  value == nil,
					Value: FormatValue(c.DataType, value),
				})
			}
			xt.Rows = append(xt.Rows, row)
		}
		doc.Tables = append(doc.Tables, xt)
	}

	return compress(doc)
}

// UnmarshalCompressed decodes a data set encoded by MarshalCompressed. The
// decoded data set has no pending changes.
func UnmarshalCompressed(data []byte) (*DataSet, error) {
	var doc xmlDataSet
	if err := decompress(data, &doc); err != nil {
		return nil, err
	}

	modifiedAt, err := parseTime(doc.ModifiedAt)
	if err != nil {
		return nil, err
	}

	ds := New(doc.Name)
	ds.signature = Signature{ID: doc.ModifiedBy, DateTime: modifiedAt}
	for _, xt := range doc.Tables {
		columns, err := fromXMLColumns(xt.Columns)
		if err != nil {
			return nil, err
		}
		t, err := NewTable(xt.Name, columns...)
		if err != nil {
			return nil, fmt.Errorf("table %s: %s: %w", xt.Name, err.Error(), ErrMalformedSnapshot)
		}
		for _, xr := range xt.Rows {
			fields := make(map[string]interface{}, len(xr.Fields))
			for _, f := range xr.Fields {
				if f.Null {
					fields[f.Name] = nil
					continue
				}
				c := t.column(f.Name)
				if c == nil {
					return nil, fmt.Errorf("%s.%s: %w", xt.Name, f.Name, ErrMalformedSnapshot)
				}
				value, err := ParseValue(c.DataType, f.Value)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %s: %w", xt.Name, f.Name, err.Error(), ErrMalformedSnapshot)
				}
				fields[f.Name] = value
			}
			if _, err := t.addRow(fields); err != nil {
				return nil, fmt.Errorf("%s: %s: %w", xt.Name, err.Error(), ErrMalformedSnapshot)
			}
		}
		if xt.NextID > t.nextID {
			t.nextID = xt.NextID
		}
		if err := ds.AddTable(t); err != nil {
			return nil, fmt.Errorf("%s: %w", err.Error(), ErrMalformedSnapshot)
		}
	}

	return ds, nil
}

// MarshalCompressed encodes this template as gzip compressed XML.
func (t *TableTemplate) MarshalCompressed() ([]byte, error) {
	return compress(xmlTemplate{
		TableName:  t.state.tableName,
		Comment:    t.state.comment,
		Tags:       t.state.tags,
		IsNew:      t.state.isNew,
		ModifiedBy: t.state.signature.ID,
		ModifiedAt: formatTime(t.state.signature.DateTime),
		Columns:    toXMLColumns(t.state.columns),
	})
}

// UnmarshalTemplateCompressed decodes a template encoded by
// TableTemplate.MarshalCompressed.
func UnmarshalTemplateCompressed(data []byte) (*TableTemplate, error) {
	var doc xmlTemplate
	if err := decompress(data, &doc); err != nil {
		return nil, err
	}

	modifiedAt, err := parseTime(doc.ModifiedAt)
	if err != nil {
		return nil, err
	}
	columns, err := fromXMLColumns(doc.Columns)
	if err != nil {
		return nil, err
	}

	template, err := NewTableTemplate(doc.TableName, doc.IsNew, columns...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrMalformedSnapshot)
	}
	template.state.comment = doc.Comment
	template.state.tags = doc.Tags
	template.state.signature = Signature{ID: doc.ModifiedBy, DateTime: modifiedAt}
	return template, nil
}

func toXMLColumns(columns []*Column) []xmlColumn {
	var result []xmlColumn
	for _, c := range columns {
		xc := xmlColumn{
			Name:          c.Name,
			DataType:      string(c.DataType),
			IsKey:         c.IsKey,
			Unique:        c.Unique,
			NotNull:       c.NotNull,
			AutoIncrement: c.AutoIncrement,
			Comment:       c.Comment,
			Tags:          c.Tags,
		}
		if c.DefaultValue != nil {
			value := FormatValue(c.DataType, c.DefaultValue)
			xc.DefaultValue = &value
		}
		result = append(result, xc)
	}
	return result
}

func fromXMLColumns(columns []xmlColumn) ([]*Column, error) {
	var result []*Column
	for _, xc := range columns {
		c := &Column{
			Name:          xc.Name,
			DataType:      DataType(xc.DataType),
			IsKey:         xc.IsKey,
			Unique:        xc.Unique,
			NotNull:       xc.NotNull,
			AutoIncrement: xc.AutoIncrement,
			Comment:       xc.Comment,
			Tags:          xc.Tags,
		}
		if xc.DefaultValue != nil {
			value, err := ParseValue(c.DataType, *xc.DefaultValue)
			if err != nil {
				return nil, fmt.Errorf("column %s: %s: %w", xc.Name, err.Error(), ErrMalformedSnapshot)
			}
			c.DefaultValue = value
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", err.Error(), ErrMalformedSnapshot)
		}
		result = append(result, c)
	}
	return result, nil
}

func compress(doc interface{}) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(xml.Header)); err != nil {
		return nil, fmt.Errorf("write xml header: %w", err)
	}
	if err := xml.NewEncoder(zw).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode xml: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte, doc interface{}) error {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("open gzip reader: %s: %w", err.Error(), ErrMalformedSnapshot)
	}
	defer func() {
		_ = zr.Close()
	}()

	if err := xml.NewDecoder(zr).Decode(doc); err != nil {
		return fmt.Errorf("decode xml: %s: %w", err.Error(), ErrMalformedSnapshot)
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %s: %w", s, err.Error(), ErrMalformedSnapshot)
	}
	return t.UTC(), nil
}
