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
	"github.com/crema-team/crema/pkg/errors"
)

var (
	// ErrInvalidDataType is returned when a column has an unknown data type.
	ErrInvalidDataType = errors.InvalidArgument("invalid data type").WithCode("ErrInvalidDataType")

	// ErrInvalidValue is returned when a value cannot be converted to the
	// data type of its column.
	ErrInvalidValue = errors.InvalidArgument("invalid value").WithCode("ErrInvalidValue")

	// ErrInvalidColumn is returned when a column definition is not usable.
	ErrInvalidColumn = errors.InvalidArgument("invalid column").WithCode("ErrInvalidColumn")

	// ErrUnknownColumnField is returned when a column is edited with a member
	// field it does not have.
	ErrUnknownColumnField = errors.InvalidArgument("unknown column field").WithCode("ErrUnknownColumnField")

	// ErrColumnNotFound is returned when a row refers to a missing column.
	ErrColumnNotFound = errors.NotFound("column not found").WithCode("ErrColumnNotFound")

	// ErrColumnAlreadyExists is returned when a column name is used twice.
	ErrColumnAlreadyExists = errors.AlreadyExists("column already exists").WithCode("ErrColumnAlreadyExists")

	// ErrInvalidTable is returned when a table definition is not usable.
	ErrInvalidTable = errors.InvalidArgument("invalid table").WithCode("ErrInvalidTable")

	// ErrTableNotFound is returned when a data set has no table of the name.
	ErrTableNotFound = errors.NotFound("table not found").WithCode("ErrTableNotFound")

	// ErrTableAlreadyExists is returned when a table name is used twice.
	ErrTableAlreadyExists = errors.AlreadyExists("table already exists").WithCode("ErrTableAlreadyExists")

	// ErrRowNotFound is returned when no row matches the given keys.
	ErrRowNotFound = errors.NotFound("row not found").WithCode("ErrRowNotFound")

	// ErrDuplicateKey is returned when a row would repeat the key, or a unique
	// value, of another row.
	ErrDuplicateKey = errors.AlreadyExists("duplicate key").WithCode("ErrDuplicateKey")

	// ErrNullValue is returned when a key or not-null column has no value.
	ErrNullValue = errors.InvalidArgument("null value").WithCode("ErrNullValue")

	// ErrInvalidKeys is returned when the number of keys does not match the
	// key columns of the table.
	ErrInvalidKeys = errors.InvalidArgument("invalid keys").WithCode("ErrInvalidKeys")

	// ErrTemplateNotNew is returned when the table name of a template that has
	// already been saved is changed.
	ErrTemplateNotNew = errors.FailedPrecond("template is not new").WithCode("ErrTemplateNotNew")

	// ErrMalformedSnapshot is returned when a snapshot cannot be decoded.
	ErrMalformedSnapshot = errors.Internal("malformed snapshot").WithCode("ErrMalformedSnapshot")
)
