/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"context"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identify an operator allowed to control stations. An empty
// Stations list grants every station.
type Claims struct {
	Stations []string `json:"stations,omitempty"`
	jwt.RegisteredClaims
}

// Allows reports whether the claims cover stationID.
func (c *Claims) Allows(stationID string) bool {
	if c == nil {
		return false
	}
	return len(c.Stations) == 0 || slices.Contains(c.Stations, stationID)
}

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying the verified claims of a request.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext is false for requests that went through no token check,
// which is every request when no signing key is configured.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims, claims != nil
}

// Issue creates an HS256 token for subject.
func Issue(secret []byte, subject string, stations []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Stations: stations,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   subject,
			Issuer:    "stationloop",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Parse validates token string.
func Parse(secret []byte, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("stationloop"))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
