// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heistp/pcc/internal/pcc"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine's registration name (no version number is printed)",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println(pcc.Name())
			return nil
		},
	}
}
