// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

var errUnsupportedFormat = errors.New("unsupported output format")

func formatControllers(views []controllerView, format string) (string, error) {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(views, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal controllers to JSON: %w", err)
		}
		return string(data), nil
	case formatTable:
		var buf strings.Builder
		w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CONN-ID\tPACING-RATE\tFSM-STATE")
		for _, v := range views {
			fmt.Fprintf(w, "%s\t%.0f B/s\t%s\n", v.ConnID, v.PacingRate, v.stateName())
		}
		if err := w.Flush(); err != nil {
			return "", fmt.Errorf("flush tabwriter: %w", err)
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}
