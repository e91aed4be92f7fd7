package benchmarks

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"
	"github.com/zeu5/routing-rl/eval"
	"github.com/zeu5/routing-rl/render"
	"github.com/zeu5/routing-rl/store"
	"github.com/zeu5/routing-rl/tsp"
	"go.uber.org/zap"
)

type renderFlags struct {
	seed  int64
	index int
	mode  string
}

// RenderTour follows the nearest neighbor tour of one instance and renders every step
func RenderTour(ctx context.Context, flags renderFlags) error {
	mode, err := render.ParseMode(flags.mode)
	if err != nil {
		return err
	}
	if mode == "" {
		mode = render.ModeRGBArray
	}
	env, err := tsp.NewEnv(cfg.EnvConfig())
	if err != nil {
		return err
	}
	defer env.Close()

	var opts *tsp.ResetOptions
	if flags.index >= 0 {
		st, err := store.Open(ctx, cfg.StoreOptions())
		if err != nil {
			return err
		}
		instance, err := st.Load(ctx, store.Key{Problem: cfg.Problem.Name, Size: cfg.Problem.Size, Index: flags.index})
		st.Close()
		if err != nil {
			return err
		}
		opts = &tsp.ResetOptions{Instance: instance}
	}
	obs, _, err := env.Reset(flags.seed, opts)
	if err != nil {
		return err
	}

	var terminal *render.Terminal
	plotter := render.NewPlotRenderer()
	framesPath := path.Join(cfg.Experiment.SavePath, "frames")
	if mode == render.ModeHuman {
		terminal = render.NewTerminal(os.Stdout, true, render.DefaultMetadata().RenderFPS)
	}
	show := func(step int) error {
		if terminal != nil {
			return terminal.Show(ctx, env.State(), env.Nodes())
		}
		frame, err := plotter.Render(env.State(), env.Nodes())
		if err != nil {
			return err
		}
		return render.SavePNG(path.Join(framesPath, fmt.Sprintf("step_%03d.png", step)), frame)
	}

	if err := show(0); err != nil {
		return err
	}
	model := eval.NearestNeighbor{}
	terminated, truncated := false, false
	for step := 1; !terminated && !truncated; step++ {
		mask, err := env.ActionMasks()
		if err != nil {
			return err
		}
		action, err := model.PredictMasked(eval.Input{Env: env, Observation: obs}, mask)
		if err != nil {
			return err
		}
		obs, _, terminated, truncated, _, err = env.Step(action)
		if err != nil {
			return err
		}
		if err := show(step); err != nil {
			return err
		}
	}
	state := env.State()
	logger.Info("rendered tour",
		zap.Ints("tour", state.VisitOrder),
		zap.Float64("distance", state.CumulativeDistance),
		zap.String("mode", string(mode)),
	)
	return nil
}

func RenderCommand() *cobra.Command {
	flags := renderFlags{}
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the nearest neighbor tour of an instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInterrupt(func(ctx context.Context) error {
				return RenderTour(ctx, flags)
			})
		},
	}
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "Seed of the generated instance")
	cmd.Flags().IntVar(&flags.index, "index", -1, "Render the stored instance with this index instead of generating one")
	cmd.Flags().StringVar(&flags.mode, "mode", string(render.ModeRGBArray), "Render mode: human or rgb_array")
	return cmd
}
