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
package types

// Authority is the permission level of a user.
type Authority string

const (
	// AuthorityAdmin can mutate, own and delete any domain.
	AuthorityAdmin Authority = "admin"

	// AuthorityMember can mutate and own domains.
	AuthorityMember Authority = "member"

	// AuthorityGuest can only read.
	AuthorityGuest Authority = "guest"
)

// IsAdmin returns whether the authority is administrator-equivalent.
func (a Authority) IsAdmin() bool {
	return a == AuthorityAdmin
}

// CanWrite returns whether the authority allows mutations.
func (a Authority) CanWrite() bool {
	return a == AuthorityAdmin || a == AuthorityMember
}
