package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shibudb.org/shibuvec/cmd/server"
	"github.com/shibudb.org/shibuvec/internal/logging"
	"github.com/shibudb.org/shibuvec/internal/storage"
)

const (
	green = "\033[32m"
	cyan  = "\033[36m"
	blue  = "\033[34m"
	reset = "\033[0m"
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the server in the foreground",
		Long: `Run the ShibuVec server in the foreground until interrupted.

Configuration is read from defaults, then --config, then SHIBUVEC_*
environment variables, then flags. The management API listens on
port+1000 unless management_port says otherwise; SIGUSR1 and SIGUSR2
raise or lower the connection limit by 100.`,
		RunE: runServer,
	}

	cmd.Flags().Int32("max-connections", 0, "Maximum concurrent connections (default from config)")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().String("state-dir", "", "Directory for persisted runtime state")
	return cmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("max-connections") {
		cfg.MaxConnections, _ = cmd.Flags().GetInt32("max-connections")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("state-dir") {
		cfg.StateDir, _ = cmd.Flags().GetString("state-dir")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	printStartupBanner(cmd, cfg.Addr())
	srv := server.NewServer(cfg, storage.NewVectorStore(), logger)
	return srv.Run(cmd.Context())
}

func printStartupBanner(cmd *cobra.Command, addr string) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, green+`
  ____  _     _ _           __     __        
 / ___|| |__ (_) |__  _   _ \ \   / /__  ___ 
 \___ \| '_ \| | '_ \| | | | \ \ / / _ \/ __|
  ___) | | | | | |_) | |_| |  \ V /  __/ (__ 
 |____/|_| |_|_|_.__/ \__,_|   \_/ \___|\___|
`+cyan+`In-memory vectors over plain text`+reset)
	fmt.Fprintf(out, "%sVersion:%s %s\n", blue, reset, Version)
	fmt.Fprintf(out, "%sListen :%s %s\n", blue, reset, addr)
}
