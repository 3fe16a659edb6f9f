package main

import (
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shibudb.org/shibuvec/cmd/client"
)

func NewConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Open an interactive session with a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			addr := net.JoinHostPort(dialHost(cfg.Host), strconv.Itoa(cfg.Port))
			return client.Connect(cmd.Context(), addr, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
