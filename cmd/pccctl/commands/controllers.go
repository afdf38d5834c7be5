// SPDX-License-Identifier: GPL-3.0
// Copyright 2024 Pete Heist

package commands

import (
	"fmt"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

func controllersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "controllers",
		Short: "Inspect per-connection engine state",
	}
	cmd.AddCommand(controllersListCmd())
	return cmd
}

func controllersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known controllers with their current rate and FSM state",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			views, err := fetchControllers(serverAddr, metricsPath)
			if err != nil {
				return fmt.Errorf("fetch controllers: %w", err)
			}
			out, err := formatControllers(views, outputFormat)
			if err != nil {
				return fmt.Errorf("format controllers: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

// controllerView is one connection's engine snapshot, assembled from the
// pcc_controller_* gauge families pccd exposes.
type controllerView struct {
	ConnID     string  `json:"conn_id"`
	PacingRate float64 `json:"pacing_rate_bytes_per_second"`
	FSMState   int     `json:"fsm_state"`
}

var fsmStateNames = []string{"Start", "DM1", "DM2", "DM3", "DM4", "WaitForDecision", "RateAdjustment"}

func (v controllerView) stateName() string {
	if v.FSMState < 0 || v.FSMState >= len(fsmStateNames) {
		return "Unknown"
	}
	return fsmStateNames[v.FSMState]
}

// fetchControllers scrapes addr+path as a Prometheus text-exposition
// endpoint and joins the pacing_rate and fsm_state gauge families by their
// conn_id label.
func fetchControllers(addr, path string) ([]controllerView, error) {
	url := "http://" + addr + path
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}

	byConn := map[string]*controllerView{}
	ensure := func(connID string) *controllerView {
		v, ok := byConn[connID]
		if !ok {
			v = &controllerView{ConnID: connID}
			byConn[connID] = v
		}
		return v
	}

	if mf, ok := families["pcc_controller_pacing_rate_bytes_per_second"]; ok {
		for _, m := range mf.GetMetric() {
			ensure(labelValue(m.GetLabel(), "conn_id")).PacingRate = m.GetGauge().GetValue()
		}
	}
	if mf, ok := families["pcc_controller_fsm_state"]; ok {
		for _, m := range mf.GetMetric() {
			ensure(labelValue(m.GetLabel(), "conn_id")).FSMState = int(m.GetGauge().GetValue())
		}
	}

	views := make([]controllerView, 0, len(byConn))
	for _, v := range byConn {
		views = append(views, *v)
	}
	return views, nil
}

func labelValue(labels []*dto.LabelPair, name string) string {
	for _, l := range labels {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
