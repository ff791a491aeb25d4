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

// Package interceptors provides the gRPC interceptors of the RPC server.
package interceptors

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"

	"github.com/crema-team/crema/server/logging"
	"github.com/crema-team/crema/server/rpc/grpchelper"
)

// SlowThreshold is the threshold for slow RPC.
const SlowThreshold = 100 * time.Millisecond

// DefaultInterceptor logs failed and slow calls and converts the returned
// errors to gRPC statuses.
type DefaultInterceptor struct{}

// NewDefaultInterceptor creates a new instance of DefaultInterceptor.
func NewDefaultInterceptor() *DefaultInterceptor {
	return &DefaultInterceptor{}
}

// Unary creates a unary server interceptor for default.
func (i *DefaultInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		reqLogger := logging.From(ctx)
		if err != nil {
			reqLogger.Warnf("RPC : %q %s => %q", info.FullMethod, time.Since(start), err)
			return nil, grpchelper.ToStatusError(err)
		}

		if time.Since(start) > SlowThreshold {
			reqLogger.Infof("RPC : %q %s", info.FullMethod, time.Since(start))
		}
		return resp, nil
	}
}

// Stream creates a stream server interceptor for default.
func (i *DefaultInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		reqLogger := logging.From(ss.Context())

		start := time.Now()
		if err := handler(srv, ss); err != nil {
			if errors.Is(err, context.Canceled) {
				reqLogger.Debugf("RPC : stream %q %s => %q", info.FullMethod, time.Since(start), err.Error())
			} else {
				reqLogger.Warnf("RPC : stream %q %s => %q", info.FullMethod, time.Since(start), err.Error())
			}
			return grpchelper.ToStatusError(err)
		}

		reqLogger.Debugf("RPC : stream %q %s", info.FullMethod, time.Since(start))
		return nil
	}
}
