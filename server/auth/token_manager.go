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
package auth

import (
	goerrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"github.com/crema-team/crema/api/types"
)

var (
	// ErrUnexpectedSigningMethod is returned when the signing method is unexpected.
	ErrUnexpectedSigningMethod = fmt.Errorf("unexpected signing method")
)

// UserClaims is a JWT claims struct for a user.
type UserClaims struct {
	jwt.StandardClaims

	DisplayName string          `json:"name"`
	Authority   types.Authority `json:"authority"`
}

// TokenManager issues and verifies the tokens of users.
type TokenManager struct {
	secretKey     string
	tokenDuration time.Duration
	now           func() time.Time
}

// NewTokenManager creates a new TokenManager.
func NewTokenManager(secretKey string, tokenDuration time.Duration) *TokenManager {
	return &TokenManager{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// GenerateToken generates a new token for the user.
func (m *TokenManager) GenerateToken(userID, displayName string, authority types.Authority) (string, error) {
	now := m.now()
	claims := UserClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(m.tokenDuration).Unix(),
		},
		DisplayName: displayName,
		Authority:   authority,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.secretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken verifies the token and returns the authentication it carries.
func (m *TokenManager) VerifyToken(token string) (*Authentication, error) {
	claims := &UserClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		_, ok := token.Method.(*jwt.SigningMethodHMAC)
		if !ok {
			return nil, fmt.Errorf("%s: %w", token.Method.Alg(), ErrUnexpectedSigningMethod)
		}
		return []byte(m.secretKey), nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if goerrors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("%s: %w", claims.Subject, ErrAuthenticationExpired)
		}
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalidToken)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("empty subject: %w", ErrInvalidToken)
	}

	return New(
		claims.Subject,
		claims.DisplayName,
		claims.Authority,
		time.Unix(claims.ExpiresAt, 0),
		WithClock(m.now),
	), nil
}
