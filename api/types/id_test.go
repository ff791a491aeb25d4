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

package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crema-team/crema/api/types"
)

func TestID(t *testing.T) {
	t.Run("new id test", func(t *testing.T) {
		id := types.NewID()
		assert.NoError(t, id.Validate())
		assert.NotEqual(t, id, types.NewID())
	})

	t.Run("validate test", func(t *testing.T) {
		assert.ErrorIs(t, types.ID("").Validate(), types.ErrInvalidID)
		assert.ErrorIs(t, types.ID("0123456789abcdef01234567").Validate(), types.ErrInvalidID)
		assert.ErrorIs(t, types.ID("6BA7B810-9DAD-11D1-80B4-00C04FD430C8").Validate(), types.ErrInvalidID)
	})

	t.Run("from string test", func(t *testing.T) {
		id, err := types.IDFromString("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
		assert.NoError(t, err)
		assert.Equal(t, types.ID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"), id)

		_, err = types.IDFromString("not-a-uuid")
		assert.ErrorIs(t, err, types.ErrInvalidID)
	})
}
