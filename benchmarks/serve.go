package benchmarks

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zeu5/routing-rl/server"
)

func ServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve environments over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			return withInterrupt(func(ctx context.Context) error {
				return server.NewServer(cfg.Server.Addr, cfg.EnvConfig(), cfg.Server.MaxSize, logger).Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	return cmd
}
