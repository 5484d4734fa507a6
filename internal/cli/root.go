// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey-rp.
//
// go-passkey-rp is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package cli implements the passkey-rp command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// configFile is the path to the server configuration file
	configFile string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "passkey-rp",
	Short: "WebAuthn relying-party ceremony server",
	Long: `passkey-rp runs a WebAuthn relying party: it orchestrates passkey
registration and authentication ceremonies, stores credentials, and
enriches new registrations with FIDO attestation metadata.

Pending ceremonies can be held in memory or in Redis; credentials in
memory or in PostgreSQL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is /etc/passkey-rp/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
