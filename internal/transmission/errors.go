/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package transmission

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPlaylist is returned by Run when no primary sequencer was set.
	ErrNoPlaylist = errors.New("transmission: no playlist set")

	// ErrNothingToPlay is returned by Run when the primary is playing but has
	// no track under its cursor.
	ErrNothingToPlay = errors.New("transmission: primary playlist has no current track")

	// ErrNothingPlayable is returned by Run when every track of a full pass
	// over the primary failed to open or read.
	ErrNothingPlayable = errors.New("transmission: no track in the playlist could be played")

	// ErrAlreadyRunning is returned when Run is entered twice concurrently.
	ErrAlreadyRunning = errors.New("transmission: loop already running")
)

// TransportError is a sink failure. It ends Run; callers decide whether to
// restart the station.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err carries a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
