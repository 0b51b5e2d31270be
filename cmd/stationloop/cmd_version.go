/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/stationloop/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE:  runVersion,
}

var versionCheck bool

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "look up the latest release")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "stationloop %s (%s)\n", version.Version, version.Commit)
	if !versionCheck {
		return nil
	}

	info, err := version.NewChecker().Check(cmd.Context())
	if err != nil {
		return err
	}
	if info.UpdateAvailable {
		fmt.Fprintf(out, "update available: %s %s\n", info.LatestVersion, info.ReleaseURL)
	} else {
		fmt.Fprintln(out, "up to date")
	}
	return nil
}
