// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverAddr is the pccd metrics endpoint address (host:port).
	serverAddr string

	// metricsPath is the path pccd serves Prometheus metrics on.
	metricsPath string

	// outputFormat controls the output format of controllers list (table or
	// json); version ignores it.
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pccctl",
	Short: "CLI inspector for a running pccd",
	Long:  "pccctl scrapes pccd's Prometheus metrics endpoint and reports per-connection engine state.",

	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:9100", "pccd metrics address (host:port)")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "path", "/metrics", "pccd metrics path")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format: table, json")

	rootCmd.AddCommand(controllersCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
