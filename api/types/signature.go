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

import (
	"time"
)

// SignatureDate is the user and time stamped on a document by a mutation.
type SignatureDate struct {
	ID       string    `bson:"id" json:"id"`
	DateTime time.Time `bson:"date_time" json:"dateTime"`
}

// IsZero returns whether the signature is empty.
func (s SignatureDate) IsZero() bool {
	return s.ID == "" && s.DateTime.IsZero()
}

// SignatureDateProvider supplies the signature of a mutation.
type SignatureDateProvider interface {
	Provide() SignatureDate
}

// SignatureDateProviderFunc adapts a function to SignatureDateProvider.
type SignatureDateProviderFunc func() SignatureDate

// Provide calls f.
func (f SignatureDateProviderFunc) Provide() SignatureDate {
	return f()
}

// NewSignatureDateProvider returns a provider that signs with the given user
// and the current time.
func NewSignatureDateProvider(userID string) SignatureDateProvider {
	return SignatureDateProviderFunc(func() SignatureDate {
		return SignatureDate{
			ID:       userID,
			DateTime: time.Now().UTC().Truncate(time.Millisecond),
		}
	})
}

// FixedSignatureDateProvider returns a provider that always signs with the
// given signature.
func FixedSignatureDateProvider(signature SignatureDate) SignatureDateProvider {
	return SignatureDateProviderFunc(func() SignatureDate {
		return signature
	})
}
