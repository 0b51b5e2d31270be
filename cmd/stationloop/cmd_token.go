/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/stationloop/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a control API token signed with STATIONLOOP_JWT_SIGNING_KEY",
	RunE:  runToken,
}

var (
	tokenSubject  string
	tokenStations []string
	tokenTTL      time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "who the token is for")
	tokenCmd.Flags().StringSliceVar(&tokenStations, "station", nil, "limit the token to these stations (default all)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if cfg.JWTSigningKey == "" {
		return errors.New("STATIONLOOP_JWT_SIGNING_KEY is not set")
	}
	token, err := auth.Issue([]byte(cfg.JWTSigningKey), tokenSubject, tokenStations, tokenTTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
