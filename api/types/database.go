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
	"time"

	"github.com/crema-team/crema/internal/validation"
)

// DataBaseInfo is the catalog entry of a database hosting domains.
type DataBaseInfo struct {
	ID        ID        `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name" validate:"required,min=2,max=30,slug"`
	Comment   string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

// Validate validates this database info.
func (i *DataBaseInfo) Validate() error {
	if err := i.ID.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(i)
}

// DeepCopy returns a deep copy of this database info.
func (i *DataBaseInfo) DeepCopy() *DataBaseInfo {
	if i == nil {
		return nil
	}

	clone := *i
	return &clone
}
