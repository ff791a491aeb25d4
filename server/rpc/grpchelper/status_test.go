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

package grpchelper_test

import (
	"context"
	goerrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/crema-team/crema/internal/validation"
	"github.com/crema-team/crema/pkg/errors"
	"github.com/crema-team/crema/server/rpc/grpchelper"
)

func TestStatus(t *testing.T) {
	t.Run("status code test", func(t *testing.T) {
		notFound := errors.NotFound("domain not found").WithCode("ErrDomainNotFound")
		assert.Equal(t, codes.NotFound, grpchelper.CodeOf(fmt.Errorf("d1: %w", notFound)))
		assert.Equal(t, codes.PermissionDenied, grpchelper.CodeOf(errors.PermissionDenied("read only")))
		assert.Equal(t, codes.Unavailable, grpchelper.CodeOf(errors.Unavailable("disposed")))
		assert.Equal(t, codes.Canceled, grpchelper.CodeOf(fmt.Errorf("invoke: %w", context.Canceled)))
		assert.Equal(t, codes.DeadlineExceeded, grpchelper.CodeOf(context.DeadlineExceeded))
		assert.Equal(t, codes.Internal, grpchelper.CodeOf(goerrors.New("plain")))
		assert.Equal(t, codes.OK, grpchelper.CodeOf(nil))
	})

	t.Run("error info test", func(t *testing.T) {
		err := fmt.Errorf("d1: %w", errors.WithMetadata(
			errors.PermissionDenied("kicked").WithCode("ErrKicked"),
			map[string]string{"comment": "bye"},
		))

		st, ok := status.FromError(grpchelper.ToStatusError(err))
		require.True(t, ok)
		assert.Equal(t, codes.PermissionDenied, st.Code())
		assert.Equal(t, err.Error(), st.Message())

		require.Len(t, st.Details(), 1)
		info, ok := st.Details()[0].(*errdetails.ErrorInfo)
		require.True(t, ok)
		assert.Equal(t, "ErrKicked", info.Reason)
		assert.Equal(t, grpchelper.ErrorDomain, info.Domain)
		assert.Equal(t, "bye", info.Metadata["comment"])
	})

	t.Run("bad request test", func(t *testing.T) {
		type DataBase struct {
			Name string `validate:"required,slug"`
		}
		err := validation.ValidateStruct(DataBase{Name: "Default DB"})
		require.Error(t, err)

		st, ok := status.FromError(grpchelper.ToStatusError(err))
		require.True(t, ok)
		assert.Equal(t, codes.InvalidArgument, st.Code())

		var br *errdetails.BadRequest
		for _, detail := range st.Details() {
			if d, ok := detail.(*errdetails.BadRequest); ok {
				br = d
			}
		}
		require.NotNil(t, br)
		require.Len(t, br.FieldViolations, 1)
		assert.Equal(t, "Name", br.FieldViolations[0].Field)
	})

	t.Run("status error passthrough test", func(t *testing.T) {
		err := status.Error(codes.Aborted, "aborted")
		assert.Equal(t, err, grpchelper.ToStatusError(err))
		assert.NoError(t, grpchelper.ToStatusError(nil))
	})
}
