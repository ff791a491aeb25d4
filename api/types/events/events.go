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
// Package events defines the events raised by domains and by the registry of
// domains.
package events

import (
	"github.com/crema-team/crema/api/types"
)

// DomainEventType represents the type of the DomainEvent.
type DomainEventType string

const (
	// DomainsCreated is raised once for a batch of domains added to the
	// registry.
	DomainsCreated DomainEventType = "domains-created"

	// DomainsDeleted is raised once for a batch of domains removed from the
	// registry. IsCanceled holds one flag per domain.
	DomainsDeleted DomainEventType = "domains-deleted"

	// DomainUserAdded is raised when a user enters a domain.
	DomainUserAdded DomainEventType = "domain-user-added"

	// DomainUserRemoved is raised when a user leaves or is kicked.
	DomainUserRemoved DomainEventType = "domain-user-removed"

	// DomainUserLocationChanged is raised when a user moves to another
	// location.
	DomainUserLocationChanged DomainEventType = "domain-user-location-changed"

	// DomainUserStateChanged is raised when a user goes online or offline.
	DomainUserStateChanged DomainEventType = "domain-user-state-changed"

	// DomainUserEditBegun is raised when a user starts editing a location.
	DomainUserEditBegun DomainEventType = "domain-user-edit-begun"

	// DomainUserEditEnded is raised when a user stops editing.
	DomainUserEditEnded DomainEventType = "domain-user-edit-ended"

	// DomainOwnerChanged is raised when the owner of a domain changes.
	DomainOwnerChanged DomainEventType = "domain-owner-changed"

	// DomainRowAdded is raised after rows are added.
	DomainRowAdded DomainEventType = "domain-row-added"

	// DomainRowChanged is raised after rows are changed.
	DomainRowChanged DomainEventType = "domain-row-changed"

	// DomainRowRemoved is raised after rows are removed.
	DomainRowRemoved DomainEventType = "domain-row-removed"

	// DomainPropertyChanged is raised after a property is changed.
	DomainPropertyChanged DomainEventType = "domain-property-changed"

	// DomainInfoChanged is raised when the identity of a domain changes,
	// e.g. when a new template is renamed.
	DomainInfoChanged DomainEventType = "domain-info-changed"

	// DomainStateChanged is raised when the lifecycle state of a domain
	// changes.
	DomainStateChanged DomainEventType = "domain-state-changed"
)

// IsLifecycle returns whether the event concerns the registry rather than a
// single domain.
func (t DomainEventType) IsLifecycle() bool {
	return t == DomainsCreated || t == DomainsDeleted
}

// DomainEvent represents an event raised by a domain or the registry.
type DomainEvent struct {
	// Type is the type of the event.
	Type DomainEventType

	// DataBaseID is the database of the domains.
	DataBaseID types.ID

	// Domains holds the domains of a lifecycle event, or the single domain
	// the event occurred in.
	Domains []types.DomainInfo

	// CategoryPath is the path of the category of the domains. It is set when
	// the event is delivered through the domain context.
	CategoryPath string

	// UserID is the user who caused the event.
	UserID string

	// Signature is the signature of the mutation.
	Signature types.SignatureDate

	// Rows holds the rows of row events.
	Rows []types.DomainRowInfo

	// PropertyName and PropertyValue are set for property events.
	PropertyName  string
	PropertyValue interface{}

	// User is the state of the user of user events.
	User types.DomainUserInfo

	// Location is the location of location and edit events.
	Location types.DomainLocationInfo

	// Owner is the new owner of owner events.
	Owner string

	// State is the new state of state events.
	State types.DomainState

	// IsCanceled holds one flag per domain of DomainsDeleted events.
	IsCanceled []bool

	// RemoveInfo describes why the user of DomainUserRemoved left.
	RemoveInfo types.RemoveInfo
}

// DomainID returns the id of the first domain of the event.
func (e DomainEvent) DomainID() types.ID {
	if len(e.Domains) == 0 {
		return ""
	}
	return e.Domains[0].ID
}
