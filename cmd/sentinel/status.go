// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// ProbeStatus holds the result of one health probe.
type ProbeStatus struct {
	Probe  string `json:"probe"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	addr       string
	jsonOutput bool
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show health of a running sentinel process",
		Long:  `Query the liveness and readiness probes of a running sentinel process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", "127.0.0.1:9100", "metrics/health address of the running process")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	client := &http.Client{Timeout: 3 * time.Second}

	statuses := []ProbeStatus{
		queryProbe(client, cfg.addr, "liveness"),
		queryProbe(client, cfg.addr, "readiness"),
	}

	if cfg.jsonOutput {
		out, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		cmd.Println(string(out))
		return nil
	}

	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROBE\tSTATUS\tERROR")
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Probe, s.Status, s.Error)
	}
	_ = w.Flush() //nolint:errcheck // strings.Builder writes cannot fail

	cmd.Println(sb.String())
	return nil
}

func queryProbe(client *http.Client, addr, probe string) ProbeStatus {
	status := ProbeStatus{Probe: probe}

	resp, err := client.Get(fmt.Sprintf("http://%s/healthz/%s", addr, probe))
	if err != nil {
		status.Status = "unreachable"
		status.Error = err.Error()
		return status
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck // nothing useful to do with close error
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		status.Status = "ok"
	case http.StatusServiceUnavailable:
		status.Status = "not ready"
	default:
		status.Status = fmt.Sprintf("unexpected (%d)", resp.StatusCode)
	}
	return status
}
