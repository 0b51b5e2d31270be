/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package transmission

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
)

const (
	DefaultChunkSize           = 8192
	DefaultJingleOrAdChance    = 40
	DefaultJingleChance        = 20
	DefaultAdvertisementChance = 10
)

// Dice draws a uniform integer in [0, n). *rand.Rand satisfies it.
type Dice interface {
	IntN(n int) int
}

// OpenFunc resolves a track location to its audio bytes.
type OpenFunc func(ctx context.Context, location string) (io.ReadCloser, error)

// Config holds the per-station tuning of a Loop.
type Config struct {
	ChunkSize int

	// Percentages in [0,100]. See PickInterstitial for how they combine.
	JingleOrAdChance    int
	JingleChance        int
	AdvertisementChance int

	Announce bool

	// EndedOnExhaustion fires the stream-ended hook when a non-looping
	// primary runs out, not only on RequestStop.
	EndedOnExhaustion bool

	Dice Dice
	Open OpenFunc
}

// DefaultConfig returns the stock station tuning.
func DefaultConfig() Config {
	return Config{
		ChunkSize:           DefaultChunkSize,
		JingleOrAdChance:    DefaultJingleOrAdChance,
		JingleChance:        DefaultJingleChance,
		AdvertisementChance: DefaultAdvertisementChance,
	}
}

// Validate reports out-of-range values.
func (c Config) Validate() error {
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk size must not be negative, got %d", c.ChunkSize)
	}
	for name, v := range map[string]int{
		"jingle_or_ad_chance":  c.JingleOrAdChance,
		"jingle_chance":        c.JingleChance,
		"advertisement_chance": c.AdvertisementChance,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be within [0,100], got %d", name, v)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.Dice == nil {
		c.Dice = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.Open == nil {
		c.Open = openFile
	}
	return c
}

func openFile(_ context.Context, location string) (io.ReadCloser, error) {
	return os.Open(location)
}
