// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the sentinel CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sentinel",
		Short: "sentinel - MachineNativeOps security core",
		Long: `Sentinel is the security core of the MachineNativeOps platform:
identity storage, credential hashing, session issuance, and an
append-only security audit trail.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
