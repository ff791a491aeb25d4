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

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	t.Run("string test", func(t *testing.T) {
		tests := []struct {
			code StatusCode
			want string
		}{
			{ErrCodeInvalidArgument, "invalid_argument"},
			{ErrCodeNotFound, "not_found"},
			{ErrCodePermissionDenied, "permission_denied"},
			{ErrCodeFailedPrecondition, "failed_precondition"},
			{ErrCodeUnimplemented, "unimplemented"},
			{ErrCodeUnavailable, "unavailable"},
			{StatusCode(999), "code_999"},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, tt.code.String())
		}
	})

	t.Run("client and server classification test", func(t *testing.T) {
		assert.True(t, ErrCodeUnimplemented.IsClientError())
		assert.True(t, ErrCodeUnauthenticated.IsClientError())
		assert.False(t, ErrCodeInternal.IsClientError())
		assert.True(t, ErrCodeInternal.IsServerError())
		assert.True(t, ErrCodeUnavailable.IsServerError())
	})
}

func TestStatusOf(t *testing.T) {
	t.Run("wrapped status error test", func(t *testing.T) {
		base := NotFound("domain not found").WithCode("ErrDomainNotFound")
		wrapped := fmt.Errorf("find domain: %w", base)

		assert.Equal(t, ErrCodeNotFound, StatusOf(wrapped))
		assert.Equal(t, "ErrDomainNotFound", CodeOf(wrapped))
		assert.True(t, IsStatus(wrapped, ErrCodeNotFound))
		assert.ErrorIs(t, wrapped, base)
	})

	t.Run("standard error test", func(t *testing.T) {
		assert.Equal(t, StatusCode(0), StatusOf(errors.New("plain")))
		assert.Equal(t, StatusCode(0), StatusOf(nil))
		assert.False(t, IsClientError(errors.New("plain")))
	})
}

func TestMetadata(t *testing.T) {
	t.Run("attach and merge test", func(t *testing.T) {
		base := PermissionDenied("kicked from domain")
		err := WithMetadata(base, map[string]string{"comment": "idle"})
		err = WithMetadata(err, map[string]string{"user": "alice"})

		meta := Metadata(fmt.Errorf("enter: %w", err))
		assert.Equal(t, "idle", meta["comment"])
		assert.Equal(t, "alice", meta["user"])
		assert.Equal(t, ErrCodePermissionDenied, StatusOf(err))
		assert.ErrorIs(t, err, base)
	})

	t.Run("nil and empty test", func(t *testing.T) {
		assert.Nil(t, WithMetadata(nil, map[string]string{"a": "b"}))
		base := Internal("x")
		assert.Equal(t, base, WithMetadata(base, nil))
		assert.Nil(t, Metadata(base))
	})
}
