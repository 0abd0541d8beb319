package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/interview-coach/internal/config"
	"github.com/GriffinCanCode/interview-coach/internal/grpcclient"
	"github.com/GriffinCanCode/interview-coach/internal/server"
)

var waitFlag time.Duration

var healthCmd = &cobra.Command{
	Use:   "health [addr]",
	Short: "Check a running server's gRPC health",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := config.Load().GRPCAddr
		if len(args) == 1 {
			addr = args[0]
		}
		c, err := grpcclient.New(addr)
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if waitFlag > 0 {
			ctx, cancel := context.WithTimeout(ctx, waitFlag)
			defer cancel()
			if err := c.WaitServing(ctx, server.HealthService); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "SERVING")
			return nil
		}
		status, err := c.Check(ctx, server.HealthService)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), status)
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVar(&waitFlag, "wait", 0, "Wait up to this long for SERVING")
}
