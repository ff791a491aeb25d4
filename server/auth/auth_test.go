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
package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crema-team/crema/api/types"
	"github.com/crema-team/crema/pkg/errors"
	"github.com/crema-team/crema/server/auth"
)

func TestAuthentication(t *testing.T) {
	t.Run("validate expired test", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		a := auth.New("alice", "Alice", types.AuthorityMember, now.Add(time.Minute), auth.WithClock(func() time.Time {
			return now
		}))
		assert.NoError(t, a.ValidateExpired())

		now = now.Add(time.Minute)
		err := a.ValidateExpired()
		assert.ErrorIs(t, err, auth.ErrAuthenticationExpired)
		assert.True(t, errors.IsStatus(err, errors.ErrCodeUnauthenticated))
	})

	t.Run("never expires test", func(t *testing.T) {
		a := auth.New("admin", "Admin", types.AuthorityAdmin, time.Time{})
		assert.NoError(t, a.ValidateExpired())
		assert.Equal(t, "admin(admin)", a.String())
	})
}

func TestTokenManager(t *testing.T) {
	t.Run("generate and verify test", func(t *testing.T) {
		manager := auth.NewTokenManager("secret", time.Hour)
		token, err := manager.GenerateToken("alice", "Alice", types.AuthorityMember)
		require.NoError(t, err)

		a, err := manager.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, "alice", a.UserID())
		assert.Equal(t, "Alice", a.DisplayName())
		assert.Equal(t, types.AuthorityMember, a.Authority())
		assert.NoError(t, a.ValidateExpired())
	})

	t.Run("invalid token test", func(t *testing.T) {
		manager := auth.NewTokenManager("secret", time.Hour)
		token, err := auth.NewTokenManager("other", time.Hour).GenerateToken("alice", "Alice", types.AuthorityMember)
		require.NoError(t, err)

		_, err = manager.VerifyToken(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)

		_, err = manager.VerifyToken("not a token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired token test", func(t *testing.T) {
		manager := auth.NewTokenManager("secret", -time.Minute)
		token, err := manager.GenerateToken("alice", "Alice", types.AuthorityMember)
		require.NoError(t, err)

		_, err = manager.VerifyToken(token)
		assert.ErrorIs(t, err, auth.ErrAuthenticationExpired)
	})
}
