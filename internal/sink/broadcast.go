/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sink

import (
	"context"

	"github.com/friendsincode/stationloop/internal/broadcast"
)

// Broadcast feeds a built-in listener mount instead of an external server.
type Broadcast struct {
	mount *broadcast.Mount
	pacer *Pacer
}

// NewBroadcast paces output to the mount bitrate.
func NewBroadcast(mount *broadcast.Mount) *Broadcast {
	return &Broadcast{mount: mount, pacer: NewPacer(mount.Bitrate)}
}

func (b *Broadcast) Open(ctx context.Context) error { return ctx.Err() }

func (b *Broadcast) Close() error { return nil }

func (b *Broadcast) Send(ctx context.Context, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mount.Broadcast(p)
	b.pacer.Add(len(p))
	return nil
}

func (b *Broadcast) Sync(ctx context.Context) error {
	return b.pacer.Wait(ctx)
}

func (b *Broadcast) SetMetadata(_ context.Context, title string) error {
	b.mount.SetTitle(title)
	return nil
}

// Mount returns the underlying mount.
func (b *Broadcast) Mount() *broadcast.Mount { return b.mount }
