package eval

import (
	"context"
	"errors"
	"runtime"

	"github.com/zeu5/routing-rl/store"
	"github.com/zeu5/routing-rl/tsp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Display shows the state after every step, render.Terminal is one
type Display interface {
	Show(context.Context, *tsp.EpisodeState, tsp.NodeSet) error
}

type Options struct {
	Problem string
	Size    int
	// MaxDurationFactor of the evaluation environments, tsp.DefaultMaxDurationFactor when 0
	MaxDurationFactor int
	// EnableMasking and FlattenObs should match how the model was trained
	EnableMasking bool
	FlattenObs    bool
	// Display is used by EvaluateOnInstance only
	Display Display
	// Parallelism bounds the instances evaluated at once, the number of CPUs when 0
	Parallelism int
	Logger      *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// EvaluateOnInstance replays the stored instance with the given index, which is also
// its seed, and returns the total reward of the model over the episode
func EvaluateOnInstance(ctx context.Context, st store.Store, model Model, index int, opts Options) (float64, error) {
	key := store.Key{Problem: opts.Problem, Size: opts.Size, Index: index}
	instance, err := st.Load(ctx, key)
	if err != nil {
		return 0, err
	}
	env, err := tsp.NewEnv(tsp.Config{Size: instance.Size, MaxDurationFactor: opts.MaxDurationFactor})
	if err != nil {
		return 0, err
	}
	defer env.Close()

	obs, _, err := env.Reset(int64(index), &tsp.ResetOptions{Instance: instance})
	if err != nil {
		return 0, err
	}
	collect := CollectAction(opts.EnableMasking)

	episodeReward := 0.0
	terminated, truncated := false, false
	for !terminated && !truncated {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		in := Input{Env: env, Observation: obs}
		if opts.FlattenObs {
			in.Flat = obs.Flatten()
		}
		action, err := collect(model, in)
		if err != nil {
			return 0, err
		}
		var reward float64
		obs, reward, terminated, truncated, _, err = env.Step(action)
		if err != nil {
			return 0, err
		}
		episodeReward += reward
		if opts.Display != nil {
			if err := opts.Display.Show(ctx, env.State(), env.Nodes()); err != nil {
				return 0, err
			}
		}
	}
	opts.logger().Debug("evaluated instance",
		zap.Stringer("key", key),
		zap.Float64("reward", episodeReward),
		zap.Bool("terminated", terminated),
	)
	return episodeReward, nil
}

// EvaluateOnAllInstances evaluates the model on the first samples stored instances and
// returns the mean and the population standard deviation of the episode rewards.
// Every instance gets its own environment so instances run concurrently.
func EvaluateOnAllInstances(ctx context.Context, st store.Store, model Model, samples int, opts Options) (float64, float64, error) {
	if samples < 1 {
		return 0, 0, errors.New("at least one sample is needed")
	}
	if opts.EnableMasking && !SupportsMasking(model) {
		return 0, 0, ErrNoActionMaskingSupport
	}
	opts.Display = nil
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	rewards := make([]float64, samples)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)
	for i := 0; i < samples; i++ {
		i := i
		eg.Go(func() error {
			reward, err := EvaluateOnInstance(egCtx, st, model, i, opts)
			if err != nil {
				return err
			}
			rewards[i] = reward
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, 0, err
	}
	mean, std := stat.PopMeanStdDev(rewards, nil)
	opts.logger().Info("evaluation done",
		zap.String("problem", opts.Problem),
		zap.Int("size", opts.Size),
		zap.Int("samples", samples),
		zap.Float64("mean", mean),
		zap.Float64("std", std),
	)
	return mean, std, nil
}
