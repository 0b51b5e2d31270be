/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage resolves track locations to readable audio data on the
// local filesystem, S3-compatible object storage, or plain HTTP.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNotFound is wrapped by every backend when the object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Opener opens the audio data behind a location.
type Opener interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// Router dispatches on the location scheme: s3:// and http(s):// go to
// their backends, everything else is a local path.
type Router struct {
	Local *Filesystem
	S3    *S3
	HTTP  *HTTP

	logger zerolog.Logger
}

// NewRouter builds a router. A nil S3 or HTTP backend rejects those schemes.
func NewRouter(local *Filesystem, objects *S3, web *HTTP, logger zerolog.Logger) *Router {
	if local == nil {
		local = NewFilesystem("")
	}
	return &Router{
		Local:  local,
		S3:     objects,
		HTTP:   web,
		logger: logger.With().Str("component", "storage").Logger(),
	}
}

// Open implements Opener.
func (r *Router) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	scheme, _, hasScheme := strings.Cut(location, "://")
	r.logger.Debug().Str("location", location).Bool("remote", hasScheme).Msg("opening track data")
	if !hasScheme {
		return r.Local.Open(ctx, location)
	}

	switch strings.ToLower(scheme) {
	case "s3":
		if r.S3 == nil {
			return nil, fmt.Errorf("open %s: s3 storage not configured", location)
		}
		return r.S3.Open(ctx, location)
	case "http", "https":
		if r.HTTP == nil {
			return nil, fmt.Errorf("open %s: http storage not configured", location)
		}
		return r.HTTP.Open(ctx, location)
	case "file":
		return r.Local.Open(ctx, strings.TrimPrefix(location, scheme+"://"))
	default:
		return nil, fmt.Errorf("open %s: unsupported scheme %q", location, scheme)
	}
}
