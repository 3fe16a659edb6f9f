package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/shibudb.org/shibuvec/cmd/client"
	"github.com/shibudb.org/shibuvec/internal/config"
)

func NewManagerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manager",
		Short: "Manage connection limits of a running server",
		Long:  `Talk to the HTTP management API (port+1000 by default) of a running server.`,
	}

	amountFlag := func(c *cobra.Command) {
		c.Flags().Int32("amount", 100, "Amount to change the limit by")
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show current connection limit and active connections",
		RunE: withManager(func(cmd *cobra.Command, m *client.Manager, _ []string) error {
			s, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current Limit: %d\nActive Connections: %d\n", s.CurrentLimit, s.ActiveConnections)
			return nil
		}),
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show connection and store statistics",
		RunE: withManager(func(cmd *cobra.Command, m *client.Manager, _ []string) error {
			s, err := m.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if conns, ok := s["connections"].(map[string]any); ok {
				fmt.Fprintf(out, "Active Connections: %v\n", conns["active_connections"])
				fmt.Fprintf(out, "Max Connections: %v\n", conns["max_connections"])
				if usage, ok := conns["usage_percentage"].(float64); ok {
					fmt.Fprintf(out, "Usage Percentage: %.1f%%\n", usage)
				}
				fmt.Fprintf(out, "Available Slots: %v\n", conns["available_slots"])
			}
			if store, ok := s["store"].(map[string]any); ok {
				fmt.Fprintf(out, "Vectors: %v\n", store["vectors"])
			}
			return nil
		}),
	}

	limit := &cobra.Command{
		Use:   "limit <new_limit>",
		Short: "Set connection limit to a specific value",
		Args:  cobra.ExactArgs(1),
		RunE: withManager(func(cmd *cobra.Command, m *client.Manager, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid limit value: %s", args[0])
			}
			c, err := m.SetLimit(cmd.Context(), int32(n))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Success: %s\n", c.Message)
			return nil
		}),
	}

	increase := &cobra.Command{
		Use:   "increase",
		Short: "Increase connection limit",
		RunE: withManager(func(cmd *cobra.Command, m *client.Manager, _ []string) error {
			amount, _ := cmd.Flags().GetInt32("amount")
			c, err := m.Increase(cmd.Context(), amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Success: %s\nOld Limit: %d, New Limit: %d\n", c.Message, c.OldLimit, c.NewLimit)
			return nil
		}),
	}
	amountFlag(increase)

	decrease := &cobra.Command{
		Use:   "decrease",
		Short: "Decrease connection limit",
		RunE: withManager(func(cmd *cobra.Command, m *client.Manager, _ []string) error {
			amount, _ := cmd.Flags().GetInt32("amount")
			c, err := m.Decrease(cmd.Context(), amount)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Success: %s\nOld Limit: %d, New Limit: %d\n", c.Message, c.OldLimit, c.NewLimit)
			return nil
		}),
	}
	amountFlag(decrease)

	reset := &cobra.Command{
		Use:   "reset",
		Short: fmt.Sprintf("Reset connection limit to the default (%d)", config.DefaultMaxConnections),
		RunE: withManager(func(cmd *cobra.Command, m *client.Manager, _ []string) error {
			if _, err := m.SetLimit(cmd.Context(), config.DefaultMaxConnections); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Success: Reset connection limit to default (%d)\n", config.DefaultMaxConnections)
			return nil
		}),
	}

	health := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: withManager(func(cmd *cobra.Command, m *client.Manager, _ []string) error {
			h, err := m.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Health Check: %s\nService: %s\n", h.Status, h.Service)
			return nil
		}),
	}

	cmd.AddCommand(status, stats, limit, increase, decrease, reset, health)
	return cmd
}

func withManager(fn func(*cobra.Command, *client.Manager, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		port := cfg.ResolvedManagementPort()
		if port < 0 {
			return fmt.Errorf("management API is disabled in configuration")
		}
		baseURL := "http://" + net.JoinHostPort(dialHost(cfg.Host), strconv.Itoa(port))
		return fn(cmd, client.NewManager(baseURL), args)
	}
}
