package benchmarks

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeu5/routing-rl/eval"
	"github.com/zeu5/routing-rl/policies"
	"github.com/zeu5/routing-rl/render"
	"github.com/zeu5/routing-rl/store"
	"github.com/zeu5/routing-rl/types"
	"go.uber.org/zap"
)

type evaluateFlags struct {
	model         string
	samples       int
	index         int
	masked        bool
	flatten       bool
	renderMode    string
	trainEpisodes int
	seed          uint64
}

func buildModel(ctx context.Context, flags evaluateFlags) (eval.Model, error) {
	switch flags.model {
	case "nearest":
		return eval.NearestNeighbor{}, nil
	case "uniform":
		return eval.NewUniform(flags.seed), nil
	case "qlearning":
		q := policies.NewQLearningPolicy(0.1, 0.99, 0.1, flags.seed)
		if err := train(ctx, q, flags); err != nil {
			return nil, err
		}
		q.SetEpsilon(0)
		return eval.FromPolicy(q), nil
	}
	return nil, fmt.Errorf("unknown model %q (valid: nearest, uniform, qlearning)", flags.model)
}

// train runs the policy on random instances of the configured problem
func train(ctx context.Context, policy types.Policy, flags evaluateFlags) error {
	p, err := lookupProblem(cfg.Problem.Name)
	if err != nil {
		return err
	}
	env, err := p.ctor(cfg.EnvConfig(), flags.seed, flags.masked)
	if err != nil {
		return err
	}
	agent := types.NewAgent(&types.AgentConfig{
		Episodes:    flags.trainEpisodes,
		Horizon:     cfg.Experiment.Horizon,
		Policy:      policy,
		Environment: env,
	})
	failed := 0
	for i := 0; i < flags.trainEpisodes; i++ {
		eCtx := types.NewEpisodeContext(ctx, 0, i, "train")
		agent.RunEpisode(eCtx)
		if eCtx.Err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
		}
	}
	logger.Info("trained model", zap.Int("episodes", flags.trainEpisodes), zap.Int("errors", failed))
	return nil
}

func Evaluate(ctx context.Context, flags evaluateFlags) error {
	model, err := buildModel(ctx, flags)
	if err != nil {
		return err
	}
	if flags.masked && !eval.SupportsMasking(model) {
		return fmt.Errorf("model %s: %w", flags.model, eval.ErrNoActionMaskingSupport)
	}
	st, err := store.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return err
	}
	defer st.Close()

	opts := eval.Options{
		Problem:           cfg.Problem.Name,
		Size:              cfg.Problem.Size,
		MaxDurationFactor: cfg.Problem.MaxDurationFactor,
		EnableMasking:     flags.masked,
		FlattenObs:        flags.flatten,
		Parallelism:       cfg.Experiment.Parallel,
		Logger:            logger,
	}

	if flags.index >= 0 {
		mode, err := render.ParseMode(flags.renderMode)
		if err != nil {
			return err
		}
		if mode == render.ModeHuman {
			opts.Display = render.NewTerminal(os.Stdout, true, render.DefaultMetadata().RenderFPS)
		}
		reward, err := eval.EvaluateOnInstance(ctx, st, model, flags.index, opts)
		if err != nil {
			return err
		}
		logger.Info("episode reward", zap.String("model", flags.model), zap.Int("index", flags.index), zap.Float64("reward", reward))
		return nil
	}

	mean, std, err := eval.EvaluateOnAllInstances(ctx, st, model, flags.samples, opts)
	if err != nil {
		return err
	}
	fmt.Printf("%s: mean reward %.4f, std %.4f over %d instances\n", flags.model, mean, std, flags.samples)
	return nil
}

func EvaluateCommand() *cobra.Command {
	flags := evaluateFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a model on the stored instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInterrupt(func(ctx context.Context) error {
				return Evaluate(ctx, flags)
			})
		},
	}
	cmd.Flags().StringVar(&flags.model, "model", "nearest", "Model to evaluate: nearest, uniform or qlearning")
	cmd.Flags().IntVar(&flags.samples, "samples", 100, "Number of stored instances to evaluate on")
	cmd.Flags().IntVar(&flags.index, "index", -1, "Evaluate only the instance with this index")
	cmd.Flags().BoolVar(&flags.masked, "masked", false, "Restrict the model to the legal actions")
	cmd.Flags().BoolVar(&flags.flatten, "flatten", false, "Give the model flattened observations")
	cmd.Flags().StringVar(&flags.renderMode, "render", "", "Render mode when evaluating a single instance (human)")
	cmd.Flags().IntVar(&flags.trainEpisodes, "train-episodes", 5000, "Training episodes of the qlearning model")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "Seed of the model")
	return cmd
}
