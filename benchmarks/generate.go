package benchmarks

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/zeu5/routing-rl/store"
)

func GenerateCommand() *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate and store the evaluation instances, instance i is generated with seed i",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInterrupt(func(ctx context.Context) error {
				st, err := store.Open(ctx, cfg.StoreOptions())
				if err != nil {
					return err
				}
				defer st.Close()
				return store.Generate(ctx, st, cfg.Problem.Name, samples, cfg.Problem.Size, logger)
			})
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 100, "Number of instances to generate")
	return cmd
}
