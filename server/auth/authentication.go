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
// Package auth provides the authentication capability attached to every
// mutating call and the token manager that issues and verifies it.
package auth

import (
	"fmt"
	"time"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/pkg/errors"
)

var (
	// ErrAuthenticationExpired is returned when the authentication of a caller
	// has expired.
	ErrAuthenticationExpired = errors.Unauthenticated("authentication expired").WithCode("ErrAuthenticationExpired")

	// ErrInvalidToken is returned when a token cannot be verified.
	ErrInvalidToken = errors.Unauthenticated("invalid token").WithCode("ErrInvalidToken")
)

// Option configures an Authentication.
type Option func(*Authentication)

// WithClock sets the clock used to check the expiry.
func WithClock(now func() time.Time) Option {
	return func(a *Authentication) {
		a.now = now
	}
}

// Authentication is the identity of a caller with its expiry.
type Authentication struct {
	userID      string
	displayName string
	authority   types.Authority
	expiresAt   time.Time
	now         func() time.Time
}

// New creates a new Authentication. A zero expiresAt never expires.
func New(
	userID string,
	displayName string,
	authority types.Authority,
	expiresAt time.Time,
	opts ...Option,
) *Authentication {
	a := &Authentication{
		userID:      userID,
		displayName: displayName,
		authority:   authority,
		expiresAt:   expiresAt,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// UserID returns the id of the user.
func (a *Authentication) UserID() string {
	return a.userID
}

// DisplayName returns the display name of the user.
func (a *Authentication) DisplayName() string {
	return a.displayName
}

// Authority returns the authority of the user.
func (a *Authentication) Authority() types.Authority {
	return a.authority
}

// ExpiresAt returns when the authentication expires.
func (a *Authentication) ExpiresAt() time.Time {
	return a.expiresAt
}

// ValidateExpired returns ErrAuthenticationExpired if the authentication has
// expired.
func (a *Authentication) ValidateExpired() error {
	if a.expiresAt.IsZero() {
		return nil
	}
	if !a.now().Before(a.expiresAt) {
		return fmt.Errorf("%s expired at %s: %w", a.userID, a.expiresAt.Format(time.RFC3339), ErrAuthenticationExpired)
	}
	return nil
}

// String returns a string representation of this authentication.
func (a *Authentication) String() string {
	return fmt.Sprintf("%s(%s)", a.userID, a.authority)
}
