/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"

	"github.com/spf13/cobra"

	"github.com/friendsincode/stationloop/internal/config"
	"github.com/friendsincode/stationloop/internal/logging"
	"github.com/friendsincode/stationloop/internal/sink"
	"github.com/friendsincode/stationloop/internal/station"
	"github.com/friendsincode/stationloop/internal/track"
	"github.com/friendsincode/stationloop/internal/transmission"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <station-id>",
	Short: "Print what a station would play, without streaming audio",
	Long: "Runs a station's schedule against a discarding sink with a seeded dice, " +
		"so the same seed always yields the same order of tracks and interstitials.",
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

var (
	simulateStationsFile string
	simulateItems        int
	simulateSeed         uint64
	simulateRequests     []string
)

func init() {
	simulateCmd.Flags().StringVar(&simulateStationsFile, "stations", "stations.yaml", "station definitions file")
	simulateCmd.Flags().IntVarP(&simulateItems, "items", "n", 20, "stop after this many items")
	simulateCmd.Flags().Uint64Var(&simulateSeed, "seed", 1, "dice seed")
	simulateCmd.Flags().StringSliceVar(&simulateRequests, "request", nil, "track IDs or locations to request up front")
	rootCmd.AddCommand(simulateCmd)
}

// silence stands in for every track's audio.
type silence struct{}

func (silence) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte{0})), nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	defs, err := config.LoadStations(simulateStationsFile)
	if err != nil {
		return err
	}
	var sc *config.StationConfig
	for i := range defs {
		if defs[i].ID == args[0] {
			sc = &defs[i]
		}
	}
	if sc == nil {
		return fmt.Errorf("%w: %s", station.ErrNotFound, args[0])
	}

	log := logging.Setup("development", "warn")
	st, err := station.FromConfig(*sc, station.Deps{
		Media:  silence{},
		Logger: log,
		Dice:   rand.New(rand.NewPCG(simulateSeed, simulateSeed>>1|1)),
		Sink:   sink.NewNull(0),
	})
	if err != nil {
		return err
	}

	for _, want := range simulateRequests {
		if _, _, err := st.RequestTrack(want, "simulate"); err != nil {
			if _, err := st.Request(track.New(want, track.WithRequestedBy("simulate"))); err != nil {
				return err
			}
		}
	}

	out := cmd.OutOrStdout()
	var (
		mu    sync.Mutex
		count int
		full  = make(chan struct{})
	)
	emit := func(kind transmission.Kind, t *track.Track) {
		mu.Lock()
		defer mu.Unlock()
		if count >= simulateItems {
			return
		}
		count++
		label := t.Name
		if t.Artist != "" {
			label = t.Artist + " - " + t.Name
		}
		if t.IsRequest() {
			label += " (requested by " + t.RequestedBy + ")"
		}
		fmt.Fprintf(out, "%3d  %-13s %s\n", count, kind, label)
		if count == simulateItems {
			close(full)
		}
	}
	loop := st.Loop()
	loop.OnNextTrack(func(t *track.Track) { emit(transmission.KindTrack, t) })
	loop.OnInterstitial(emit)
	loop.OnAnnouncementPlayed(func(t *track.Track) { emit(transmission.KindAnnouncement, t) })

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := st.Start(ctx); err != nil {
		return err
	}

	finished := make(chan struct{})
	go func() {
		_ = st.Wait(ctx)
		close(finished)
	}()

	select {
	case <-full:
	case <-finished:
	case <-ctx.Done():
	}
	return st.Stop(context.Background())
}
