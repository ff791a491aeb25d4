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
package domain

import (
	"github.com/crema-team/crema/pkg/errors"
)

var (
	// ErrDomainNotActive is returned when an operation is submitted to a
	// domain that is not active.
	ErrDomainNotActive = errors.FailedPrecond("domain is not active").WithCode("ErrDomainNotActive")

	// ErrUserNotEntered is returned when the caller has not entered the domain
	// or has been detached from it.
	ErrUserNotEntered = errors.PermissionDenied("user has not entered the domain").WithCode("ErrUserNotEntered")

	// ErrUserAlreadyEntered is returned when a user enters a domain twice.
	ErrUserAlreadyEntered = errors.AlreadyExists("user has already entered the domain").WithCode("ErrUserAlreadyEntered")

	// ErrUserKicked is returned for the operations of a user kicked from the
	// domain. The comment of the kick is attached as metadata.
	ErrUserKicked = errors.PermissionDenied("user has been kicked from the domain").WithCode("ErrUserKicked")

	// ErrReadOnlyAccess is returned when a read-only user mutates the domain.
	ErrReadOnlyAccess = errors.PermissionDenied("user has read-only access").WithCode("ErrReadOnlyAccess")

	// ErrNotOwner is returned when an operation requires the owner or an
	// administrator.
	ErrNotOwner = errors.PermissionDenied("user is neither the owner nor an administrator").WithCode("ErrNotOwner")

	// ErrLocationLocked is returned when a user changes a row another user is
	// editing.
	ErrLocationLocked = errors.FailedPrecond("location is being edited by another user").WithCode("ErrLocationLocked")

	// ErrNotEditing is returned when a user ends an edit it has not begun.
	ErrNotEditing = errors.FailedPrecond("user is not editing").WithCode("ErrNotEditing")

	// ErrInvalidOwner is returned when ownership is transferred to a user that
	// cannot own the domain.
	ErrInvalidOwner = errors.FailedPrecond("user cannot own the domain").WithCode("ErrInvalidOwner")

	// ErrNotSupported is returned for unknown property names.
	ErrNotSupported = errors.Unimplemented("property is not supported").WithCode("ErrNotSupported")

	// ErrInvalidOperation is returned when the domain is not in the state the
	// operation requires, e.g. when a template that is not new is renamed.
	ErrInvalidOperation = errors.FailedPrecond("invalid operation").WithCode("ErrInvalidOperation")

	// ErrInvalidPropertyValue is returned when a property value has the wrong
	// type.
	ErrInvalidPropertyValue = errors.InvalidArgument("invalid property value").WithCode("ErrInvalidPropertyValue")

	// ErrTableMismatch is returned when a row refers to another table than the
	// template of the domain.
	ErrTableMismatch = errors.InvalidArgument("table does not match the domain").WithCode("ErrTableMismatch")

	// ErrInvalidAccessType is returned for unknown access types.
	ErrInvalidAccessType = errors.InvalidArgument("invalid access type").WithCode("ErrInvalidAccessType")

	// ErrInvalidLocation is returned when a user edits a location without a
	// table.
	ErrInvalidLocation = errors.InvalidArgument("invalid location").WithCode("ErrInvalidLocation")

	// ErrLoggerDisposed is returned when a disposed logger is written.
	ErrLoggerDisposed = errors.FailedPrecond("logger disposed").WithCode("ErrLoggerDisposed")

	// ErrCorruptedLog is returned when a log directory cannot be replayed.
	ErrCorruptedLog = errors.Internal("corrupted log").WithCode("ErrCorruptedLog")
)
