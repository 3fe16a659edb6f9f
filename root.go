package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shibudb.org/shibuvec/internal/config"
)

func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "shibuvec",
		Short:         "In-memory vector store over a text protocol",
		Long:          `ShibuVec keeps named float vectors in memory and answers nearest-neighbor and vector algebra queries over a line-based TCP protocol.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().String("host", "", "Server host (default from config)")
	rootCmd.PersistentFlags().Int("port", 0, "Server port (default from config)")

	rootCmd.AddCommand(
		NewRunCmd(),
		NewConnectCmd(),
		NewManagerCmd(),
		NewVersionCmd(version),
	)
	return rootCmd
}

// loadConfig layers --config, the environment and the explicitly set
// persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	return cfg, nil
}

// dialHost maps a wildcard listen host to loopback for clients.
func dialHost(host string) string {
	switch host {
	case "", "0.0.0.0", "::":
		return "localhost"
	}
	return host
}

func NewVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ShibuVec version %s\n", version)
			fmt.Fprintf(out, "Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "Copyright (C) 2025 Podcopic Labs\n")
			fmt.Fprintf(out, "License: GNU Affero General Public License v3.0\n")
		},
	}
}
