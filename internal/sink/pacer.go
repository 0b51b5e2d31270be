/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sink

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Pacer holds a sender to a constant byte rate. Bytes are counted as they
// are sent and paid for on Wait, which keeps the stream close to real time
// without delaying each write.
//
// A nil *Pacer never waits.
type Pacer struct {
	limiter *rate.Limiter
	burst   int

	mu      sync.Mutex
	pending int
}

// NewPacer returns a pacer for a stream of kbps kilobits per second, or nil
// when kbps is not positive.
func NewPacer(kbps int) *Pacer {
	if kbps <= 0 {
		return nil
	}
	bytesPerSec := kbps * 1000 / 8
	// One second of audio may go out at once, enough to prime listeners.
	return &Pacer{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec),
		burst:   bytesPerSec,
	}
}

// Add records n bytes as sent.
func (p *Pacer) Add(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	p.pending += n
	p.mu.Unlock()
}

// Wait blocks until every byte recorded since the last Wait is due.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	p.mu.Lock()
	n := p.pending
	p.pending = 0
	p.mu.Unlock()

	for n > 0 {
		step := min(n, p.burst)
		if err := p.limiter.WaitN(ctx, step); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		n -= step
	}
	return nil
}
