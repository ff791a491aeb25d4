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
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DataType is the type of the values stored in a column.
type DataType string

const (
	// TypeString stores UTF-8 strings.
	TypeString DataType = "string"

	// TypeInt stores 64-bit signed integers.
	TypeInt DataType = "int"

	// TypeFloat stores 64-bit floating point numbers.
	TypeFloat DataType = "float"

	// TypeBool stores booleans.
	TypeBool DataType = "bool"

	// TypeDateTime stores UTC timestamps with millisecond precision.
	TypeDateTime DataType = "datetime"

	// TypeGUID stores UUIDs in their canonical string form.
	TypeGUID DataType = "guid"
)

// Validate returns an error if the data type is unknown.
func (t DataType) Validate() error {
	switch t {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeDateTime, TypeGUID:
		return nil
	}
	return fmt.Errorf("%s: %w", t, ErrInvalidDataType)
}

// timer is implemented by values that carry a timestamp, e.g. decoded BSON
// date-times.
type timer interface {
	Time() time.Time
}

// ConvertValue normalizes the given value into the canonical Go type of the
// data type: string, int64, float64, bool, time.Time (UTC, milliseconds) or a
// canonical UUID string. Nil stays nil.
func ConvertValue(t DataType, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch t {
	case TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case TypeInt:
		if i, ok := toInt64(value); ok {
			return i, nil
		}
		if s, ok := value.(string); ok {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				return i, nil
			}
		}
	case TypeFloat:
		if f, ok := toFloat64(value); ok {
			return f, nil
		}
		if s, ok := value.(string); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, nil
			}
		}
	case TypeBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, nil
			}
		}
	case TypeDateTime:
		switch v := value.(type) {
		case time.Time:
			return v.UTC().Truncate(time.Millisecond), nil
		case timer:
			return v.Time().UTC().Truncate(time.Millisecond), nil
		case string:
			if tm, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return tm.UTC().Truncate(time.Millisecond), nil
			}
		}
	case TypeGUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v.String(), nil
		case string:
			if id, err := uuid.Parse(v); err == nil {
				return id.String(), nil
			}
		}
	default:
		return nil, fmt.Errorf("%s: %w", t, ErrInvalidDataType)
	}

	return nil, fmt.Errorf("%v(%T) as %s: %w", value, value, t, ErrInvalidValue)
}

// FormatValue returns the canonical string form of a normalized value.
func FormatValue(t DataType, value interface{}) string {
	if value == nil {
		return ""
	}

	switch t {
	case TypeInt:
		if i, ok := value.(int64); ok {
			return strconv.FormatInt(i, 10)
		}
	case TypeFloat:
		if f, ok := value.(float64); ok {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
	case TypeBool:
		if b, ok := value.(bool); ok {
			return strconv.FormatBool(b)
		}
	case TypeDateTime:
		if tm, ok := value.(time.Time); ok {
			return tm.UTC().Format(time.RFC3339Nano)
		}
	}

	return fmt.Sprint(value)
}

// ParseValue parses the canonical string form produced by FormatValue.
func ParseValue(t DataType, s string) (interface{}, error) {
	if t == TypeString {
		return s, nil
	}
	return ConvertValue(t, strings.TrimSpace(s))
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
	case float32:
		if float32(int64(v)) == v {
			return int64(v), true
		}
	case float64:
		if float64(int64(v)) == v {
			return int64(v), true
		}
	}
	return 0, false
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	if i, ok := toInt64(value); ok {
		return float64(i), true
	}
	return 0, false
}
