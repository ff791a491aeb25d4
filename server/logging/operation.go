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
package logging

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap/zapcore"

	crerrors "github.com/crema-team/crema/pkg/errors"
)

// LevelOf determines the level a failed operation is logged at, based on the
// status of the error.
func LevelOf(err error) zapcore.Level {
	if err == nil {
		return zapcore.DebugLevel
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return zapcore.DebugLevel
	}

	switch crerrors.StatusOf(err) {
	case crerrors.ErrCodeInvalidArgument, crerrors.ErrCodeNotFound, crerrors.ErrCodeAlreadyExists:
		// expected validation failures of clients
		return zapcore.InfoLevel
	case crerrors.ErrCodeUnauthenticated, crerrors.ErrCodePermissionDenied,
		crerrors.ErrCodeFailedPrecondition, crerrors.ErrCodeUnimplemented,
		crerrors.ErrCodeResourceExhausted:
		return zapcore.WarnLevel
	case crerrors.ErrCodeInternal, crerrors.ErrCodeUnavailable:
		return zapcore.ErrorLevel
	}

	return zapcore.WarnLevel
}

// LogOperation logs the outcome of an operation: successes at debug level and
// failures at the level of their status.
func LogOperation(logger Logger, operation string, duration time.Duration, err error) {
	if err == nil {
		logger.Debugf("%s %s", operation, duration)
		return
	}

	switch LevelOf(err) {
	case zapcore.DebugLevel:
		logger.Debugf("%s %s => %q", operation, duration, err)
	case zapcore.InfoLevel:
		logger.Infof("%s %s => %q", operation, duration, err)
	case zapcore.ErrorLevel:
		logger.Errorf("%s %s => %q", operation, duration, err)
	default:
		logger.Warnf("%s %s => %q", operation, duration, err)
	}
}
