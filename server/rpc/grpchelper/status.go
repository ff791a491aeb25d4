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

package grpchelper

import (
	"context"
	goerrors "errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/crema-team/crema/internal/validation"
	"github.com/crema-team/crema/pkg/errors"
)

// ErrorDomain is the domain of the ErrorInfo details attached to the
// returned statuses.
const ErrorDomain = "crema"

// CodeOf returns the gRPC code of the given error. The status codes of
// pkg/errors share their numbers with gRPC codes.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if goerrors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	if st := errors.StatusOf(err); st != 0 {
		return codes.Code(st)
	}
	return codes.Internal
}

// ToStatusError returns a status error from the given error so that the
// client can tell why the call failed. Errors that already carry a gRPC
// status are returned as they are.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	st := status.New(CodeOf(err), err.Error())

	if code := errors.CodeOf(err); code != "" {
		if withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{
			Reason:   code,
			Domain:   ErrorDomain,
			Metadata: errors.Metadata(err),
		}); derr == nil {
			st = withInfo
		}
	}

	var structErr *validation.StructError
	if goerrors.As(err, &structErr) {
		br := &errdetails.BadRequest{}
		for _, v := range structErr.Violations {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       v.Field,
				Description: v.Description,
			})
		}
		if withBadRequest, derr := st.WithDetails(br); derr == nil {
			st = withBadRequest
		}
	}

	return st.Err()
}
