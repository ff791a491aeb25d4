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

// DomainType is the type of the document edited in a domain.
type DomainType string

const (
	// DomainTypeTableContent is the type of domains editing the rows of
	// tables.
	DomainTypeTableContent DomainType = "table-content"

	// DomainTypeTableTemplate is the type of domains editing the columns of
	// a table.
	DomainTypeTableTemplate DomainType = "table-template"
)

// ItemType returns the name of the category of the domain type.
func (t DomainType) ItemType() string {
	switch t {
	case DomainTypeTableContent:
		return "tables"
	case DomainTypeTableTemplate:
		return "templates"
	}
	return string(t)
}

// DomainState is the lifecycle state of a domain.
type DomainState string

const (
	// DomainStateUninitialized is the state of a domain not registered yet.
	DomainStateUninitialized DomainState = "uninitialized"

	// DomainStateRestoring is the state of a domain while its log is
	// replayed.
	DomainStateRestoring DomainState = "restoring"

	// DomainStateActive is the state of a domain accepting operations.
	DomainStateActive DomainState = "active"

	// DomainStateDisposing is the state of a domain being torn down.
	DomainStateDisposing DomainState = "disposing"

	// DomainStateDisposed is the final state of a domain.
	DomainStateDisposed DomainState = "disposed"
)

// DomainAccessType is the access level of a user in a domain.
type DomainAccessType string

const (
	// DomainAccessTypeReadOnly allows reading the document only.
	DomainAccessTypeReadOnly DomainAccessType = "read-only"

	// DomainAccessTypeReadWrite allows mutating the document.
	DomainAccessTypeReadWrite DomainAccessType = "read-write"
)

// DomainUserState is the presence of a user in a domain.
type DomainUserState string

const (
	// DomainUserStateOffline is the state of a user whose session is
	// detached.
	DomainUserStateOffline DomainUserState = "offline"

	// DomainUserStateOnline is the state of an attached user.
	DomainUserStateOnline DomainUserState = "online"

	// DomainUserStateEditing is the state of an attached user editing a
	// location.
	DomainUserStateEditing DomainUserState = "editing"
)

// DomainLocationInfo is the cell or row a user is looking at or editing. An
// empty ColumnName refers to the whole row.
type DomainLocationInfo struct {
	TableName  string        `bson:"table_name" json:"tableName"`
	Keys       []interface{} `bson:"keys" json:"keys"`
	ColumnName string        `bson:"column_name" json:"columnName,omitempty"`
}

// IsEmpty returns whether the location refers to nothing.
func (l DomainLocationInfo) IsEmpty() bool {
	return l.TableName == "" && len(l.Keys) == 0 && l.ColumnName == ""
}

// DomainInfo is the identity of a domain.
type DomainInfo struct {
	ID         ID         `bson:"id" json:"id"`
	DataBaseID ID         `bson:"database_id" json:"databaseId"`
	ItemPath   string     `bson:"item_path" json:"itemPath" validate:"required,item_path"`
	ItemType   string     `bson:"item_type" json:"itemType"`
	DomainType DomainType `bson:"domain_type" json:"domainType" validate:"required,oneof=table-content table-template"`
	CreatedBy  string     `bson:"created_by" json:"createdBy"`
	CreatedAt  time.Time  `bson:"created_at" json:"createdAt"`
}

// Validate validates the identity of the domain.
func (i *DomainInfo) Validate() error {
	if err := i.ID.Validate(); err != nil {
		return err
	}
	if err := i.DataBaseID.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(i)
}

// DomainUserInfo is the state of one user in a domain.
type DomainUserInfo struct {
	UserID      string             `json:"userId"`
	DisplayName string             `json:"displayName"`
	AccessType  DomainAccessType   `json:"accessType"`
	State       DomainUserState    `json:"state"`
	Location    DomainLocationInfo `json:"location"`
	IsOwner     bool               `json:"isOwner"`
}

// DomainMetaData is the snapshot of a domain sent to newly attaching
// clients.
type DomainMetaData struct {
	Info             DomainInfo       `json:"info"`
	State            DomainState      `json:"state"`
	Owner            string           `json:"owner"`
	Users            []DomainUserInfo `json:"users"`
	ModificationInfo SignatureDate    `json:"modificationInfo"`
	Data             []byte           `json:"data,omitempty"`
}

// RemoveReason is the reason a user left a domain.
type RemoveReason string

const (
	// RemoveReasonLeft is the reason of a user who left by itself.
	RemoveReasonLeft RemoveReason = "left"

	// RemoveReasonKicked is the reason of a user kicked by the owner or an
	// administrator.
	RemoveReasonKicked RemoveReason = "kicked"
)

// RemoveInfo describes why a user was removed from a domain.
type RemoveInfo struct {
	Reason  RemoveReason `json:"reason"`
	Comment string       `json:"comment,omitempty"`
}
