/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sink

import (
	"context"
	"sync"
	"sync/atomic"
)

// Null discards audio. With a bitrate it still paces like a real stream.
type Null struct {
	pacer *Pacer
	sent  atomic.Int64

	mu    sync.Mutex
	title string
}

// NewNull returns a discarding sink; kbps <= 0 disables pacing.
func NewNull(kbps int) *Null {
	return &Null{pacer: NewPacer(kbps)}
}

func (n *Null) Open(ctx context.Context) error { return ctx.Err() }

func (n *Null) Close() error { return nil }

func (n *Null) Send(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.sent.Add(int64(len(p)))
	n.pacer.Add(len(p))
	return nil
}

func (n *Null) Sync(ctx context.Context) error {
	return n.pacer.Wait(ctx)
}

func (n *Null) SetMetadata(_ context.Context, title string) error {
	n.mu.Lock()
	n.title = title
	n.mu.Unlock()
	return nil
}

// BytesSent reports the total discarded.
func (n *Null) BytesSent() int64 { return n.sent.Load() }

// Title is the last metadata set.
func (n *Null) Title() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.title
}
