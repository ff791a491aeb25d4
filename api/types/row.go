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
package types

import (
	"fmt"

	"github.com/crema-team/crema/internal/validation"
)

// ClearKey is the key value that, as the only key of a removed row, removes
// every row of the table.
const ClearKey = "$clear"

// DomainRowInfo is the unit of row mutation. For table content domains a row
// is a row of the table; for table template domains a row is a column of the
// template and Keys holds the column name.
type DomainRowInfo struct {
	TableName string                 `bson:"table_name" json:"tableName" validate:"required"`
	Keys      []interface{}          `bson:"keys,omitempty" json:"keys,omitempty"`
	Fields    map[string]interface{} `bson:"fields,omitempty" json:"fields,omitempty"`
}

// ClearRowInfo returns the row info that removes every row of the table.
func ClearRowInfo(tableName string) DomainRowInfo {
	return DomainRowInfo{
		TableName: tableName,
		Keys:      []interface{}{ClearKey},
	}
}

// IsClearKey returns whether the keys of this row info are the clear key.
func (i DomainRowInfo) IsClearKey() bool {
	if len(i.Keys) != 1 {
		return false
	}
	key, ok := i.Keys[0].(string)
	return ok && key == ClearKey
}

// Validate validates this row info.
func (i *DomainRowInfo) Validate() error {
	return validation.ValidateStruct(i)
}

// ValidateRowInfos validates the given row infos. At least one is required.
func ValidateRowInfos(rows []DomainRowInfo) error {
	if len(rows) == 0 {
		return fmt.Errorf("no rows: %w", validation.ErrInvalidFields)
	}
	for i := range rows {
		if err := rows[i].Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
