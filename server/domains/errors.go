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
package domains

import (
	"github.com/crema-team/crema/pkg/errors"
)

var (
	// ErrDomainNotFound is returned when a domain cannot be found.
	ErrDomainNotFound = errors.NotFound("domain not found").WithCode("ErrDomainNotFound")

	// ErrDomainAlreadyExists is returned when a domain of the same id, or of
	// the same item in the same database, is already live.
	ErrDomainAlreadyExists = errors.AlreadyExists("domain already exists").WithCode("ErrDomainAlreadyExists")

	// ErrDataBaseNotFound is returned when the category of a database does
	// not exist.
	ErrDataBaseNotFound = errors.NotFound("database not found").WithCode("ErrDataBaseNotFound")

	// ErrDataBaseAlreadyExists is returned when a database is added twice.
	ErrDataBaseAlreadyExists = errors.AlreadyExists("database already exists").WithCode("ErrDataBaseAlreadyExists")

	// ErrInvalidItemPath is returned when the item path of a domain is not
	// under the category of its database and item type.
	ErrInvalidItemPath = errors.InvalidArgument("invalid item path").WithCode("ErrInvalidItemPath")

	// ErrItemNotFound is returned when no category or domain has the given
	// path.
	ErrItemNotFound = errors.NotFound("item not found").WithCode("ErrItemNotFound")

	// ErrNotInitialized is returned when the context is used before
	// Initialize.
	ErrNotInitialized = errors.FailedPrecond("context is not initialized").WithCode("ErrNotInitialized")

	// ErrAlreadyRestored is returned when Restore is called more than once.
	ErrAlreadyRestored = errors.FailedPrecond("domains are already restored").WithCode("ErrAlreadyRestored")

	// ErrTransactionAlreadyExists is returned when a transaction of a database
	// is begun twice.
	ErrTransactionAlreadyExists = errors.AlreadyExists("transaction already exists").WithCode("ErrTransactionAlreadyExists")

	// ErrTransactionNotFound is returned when a database has no transaction.
	ErrTransactionNotFound = errors.NotFound("transaction not found").WithCode("ErrTransactionNotFound")
)
