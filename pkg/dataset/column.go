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
)

// Names of the member fields of a column, used when a column is edited as a
// row of a template.
const (
	ColumnFieldName          = "Name"
	ColumnFieldDataType      = "DataType"
	ColumnFieldIsKey         = "IsKey"
	ColumnFieldUnique        = "Unique"
	ColumnFieldNotNull       = "NotNull"
	ColumnFieldAutoIncrement = "AutoIncrement"
	ColumnFieldDefaultValue  = "DefaultValue"
	ColumnFieldComment       = "Comment"
	ColumnFieldTags          = "Tags"
)

// Column describes one column of a table.
type Column struct {
	Name          string
	DataType      DataType
	IsKey         bool
	Unique        bool
	NotNull       bool
	AutoIncrement bool
	DefaultValue  interface{}
	Comment       string
	Tags          string
}

// Validate returns an error if the column definition is not usable.
func (c *Column) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("empty column name: %w", ErrInvalidColumn)
	}
	if err := c.DataType.Validate(); err != nil {
		return fmt.Errorf("column %s: %w", c.Name, err)
	}
	if c.AutoIncrement && c.DataType != TypeInt {
		return fmt.Errorf("auto increment column %s must be int: %w", c.Name, ErrInvalidColumn)
	}
	if c.DefaultValue != nil {
		if _, err := ConvertValue(c.DataType, c.DefaultValue); err != nil {
			return fmt.Errorf("default value of column %s: %w", c.Name, err)
		}
	}

	return nil
}

// DeepCopy returns a deep copy of this column.
func (c *Column) DeepCopy() *Column {
	if c == nil {
		return nil
	}

	clone := *c
	return &clone
}

// Fields returns the member fields of this column.
func (c *Column) Fields() map[string]interface{} {
	return map[string]interface{}{
		ColumnFieldName:          c.Name,
		ColumnFieldDataType:      string(c.DataType),
		ColumnFieldIsKey:         c.IsKey,
		ColumnFieldUnique:        c.Unique,
		ColumnFieldNotNull:       c.NotNull,
		ColumnFieldAutoIncrement: c.AutoIncrement,
		ColumnFieldDefaultValue:  c.DefaultValue,
		ColumnFieldComment:       c.Comment,
		ColumnFieldTags:          c.Tags,
	}
}

// apply sets the given member fields on this column.
func (c *Column) apply(fields map[string]interface{}) error {
	for name, value := range fields {
		var err error
		switch name {
		case ColumnFieldName:
			err = convertInto(TypeString, value, func(v interface{}) { c.Name = v.(string) })
		case ColumnFieldDataType:
			err = convertInto(TypeString, value, func(v interface{}) { c.DataType = DataType(v.(string)) })
		case ColumnFieldIsKey:
			err = convertInto(TypeBool, value, func(v interface{}) { c.IsKey = v.(bool) })
		case ColumnFieldUnique:
			err = convertInto(TypeBool, value, func(v interface{}) { c.Unique = v.(bool) })
		case ColumnFieldNotNull:
			err = convertInto(TypeBool, value, func(v interface{}) { c.NotNull = v.(bool) })
		case ColumnFieldAutoIncrement:
			err = convertInto(TypeBool, value, func(v interface{}) { c.AutoIncrement = v.(bool) })
		case ColumnFieldDefaultValue:
			c.DefaultValue = value
		case ColumnFieldComment:
			err = convertInto(TypeString, value, func(v interface{}) { c.Comment = v.(string) })
		case ColumnFieldTags:
			err = convertInto(TypeString, value, func(v interface{}) { c.Tags = v.(string) })
		default:
			err = fmt.Errorf("%s: %w", name, ErrUnknownColumnField)
		}
		if err != nil {
			return err
		}
	}

	if c.DefaultValue != nil && c.DataType.Validate() == nil {
		value, err := ConvertValue(c.DataType, c.DefaultValue)
		if err != nil {
			return fmt.Errorf("default value of column %s: %w", c.Name, err)
		}
		c.DefaultValue = value
	}

	return c.Validate()
}

// ColumnFromFields creates a column from the given member fields.
func ColumnFromFields(fields map[string]interface{}) (*Column, error) {
	c := &Column{DataType: TypeString}
	if err := c.apply(fields); err != nil {
		return nil, err
	}
	return c, nil
}

func convertInto(t DataType, value interface{}, set func(interface{})) error {
	converted, err := ConvertValue(t, value)
	if err != nil {
		return err
	}
	if converted == nil {
		return fmt.Errorf("nil member value: %w", ErrInvalidValue)
	}
	set(converted)
	return nil
}
