/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sink implements the audio destinations a transmission loop writes
// to: an Icecast source connection, the built-in listener fan-out, and a
// discarding sink for dry runs.
package sink

import (
	"errors"
	"fmt"

	"github.com/friendsincode/stationloop/internal/transmission"
)

// ErrTransport marks failures of the underlying connection.
var ErrTransport = errors.New("sink transport failure")

var (
	_ transmission.Sink = (*Icecast)(nil)
	_ transmission.Sink = (*Broadcast)(nil)
	_ transmission.Sink = (*Null)(nil)
)

func transportErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrTransport, op, err)
}
