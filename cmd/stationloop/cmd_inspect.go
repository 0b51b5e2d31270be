/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/stationloop/internal/source"
	"github.com/friendsincode/stationloop/internal/track"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <directory|playlist.m3u>",
	Short: "List the tracks a playlist source yields",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var (
	inspectTags bool
	inspectJSON bool
)

func init() {
	inspectCmd.Flags().BoolVar(&inspectTags, "tags", false, "read names and artists from embedded tags")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	tracks, err := source.Load(source.Spec{Path: args[0], ReadTags: inspectTags})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if inspectJSON {
		snaps := make([]track.Snapshot, len(tracks))
		for i, t := range tracks {
			snaps[i] = t.Snapshot()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tARTIST\tDURATION\tLOCATION")
	for i, t := range tracks {
		dur := "-"
		if t.Duration > 0 {
			dur = t.Duration.Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, t.Name, t.Artist, dur, t.Location)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d tracks\n", len(tracks))
	return nil
}
