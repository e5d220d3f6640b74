package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "limbo",
		Short: "Minimal Minecraft 1.20.4 limbo server",
		Long: `limbo accepts Minecraft Java 1.20.4 clients, answers server list pings
and parks joined players in an empty world. It can sit behind a Velocity
proxy using modern forwarding.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "config file path (created if missing)")
	return cmd
}
