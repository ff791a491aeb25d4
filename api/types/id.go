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

// Package types provides the types shared by the domain server, its
// collaborators and the command line tools.
package types

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/crema-team/crema/pkg/errors"
)

var (
	// ErrInvalidID is returned when the given ID is not a UUID.
	ErrInvalidID = errors.InvalidArgument("invalid ID").WithCode("ErrInvalidID")
)

// ID represents the UUID of a domain, a database or a log entry.
type ID string

// NewID creates a new random ID.
func NewID() ID {
	return ID(uuid.NewString())
}

// NameID returns the ID derived from the given name. The same name always
// gives the same ID.
func NameID(name string) ID {
	return ID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String())
}

// String returns a string representation of this ID.
func (id ID) String() string {
	return string(id)
}

// Validate returns error if this ID is not a canonical UUID.
func (id ID) Validate() error {
	parsed, err := uuid.Parse(string(id))
	if err != nil || parsed.String() != string(id) {
		return fmt.Errorf("%s: %w", id, ErrInvalidID)
	}

	return nil
}

// IDFromString parses the given string into an ID in its canonical form.
func IDFromString(s string) (ID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%s: %w", s, ErrInvalidID)
	}

	return ID(parsed.String()), nil
}
