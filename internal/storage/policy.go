/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package storage

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
)

// ErrLocationNotAllowed is returned by LocationPolicy.Resolve.
var ErrLocationNotAllowed = errors.New("storage: location not allowed")

// LocationPolicy limits the free-form locations a caller outside the
// station library may ask for. Local paths must stay inside Root; remote
// locations need their host (the bucket, for s3) listed in AllowedHosts.
type LocationPolicy struct {
	Root         string
	AllowedHosts []string
}

// Resolve returns the location to open for a requested one, or an error
// wrapping ErrLocationNotAllowed.
func (p LocationPolicy) Resolve(location string) (string, error) {
	if scheme, _, remote := strings.Cut(location, "://"); remote {
		switch strings.ToLower(scheme) {
		case "http", "https", "s3":
		default:
			return "", fmt.Errorf("%w: scheme %q", ErrLocationNotAllowed, scheme)
		}
		u, err := url.Parse(location)
		if err != nil || u.Hostname() == "" {
			return "", fmt.Errorf("%w: malformed url", ErrLocationNotAllowed)
		}
		host := u.Hostname()
		if !slices.ContainsFunc(p.AllowedHosts, func(h string) bool { return strings.EqualFold(h, host) }) {
			return "", fmt.Errorf("%w: host %q", ErrLocationNotAllowed, host)
		}
		return location, nil
	}

	if p.Root == "" {
		return "", fmt.Errorf("%w: no media root configured", ErrLocationNotAllowed)
	}
	rel := filepath.FromSlash(location)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q is outside the media root", ErrLocationNotAllowed, location)
	}
	return filepath.Join(p.Root, filepath.Clean(rel)), nil
}
