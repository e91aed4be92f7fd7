package store

import (
	"context"

	"github.com/zeu5/routing-rl/tsp"
	"go.uber.org/zap"
)

// Generate saves samples instances of the given size under keys 0..samples-1.
// Instance i is the one a fresh environment produces when reset with seed i.
func Generate(ctx context.Context, st Store, problem string, samples, size int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	env, err := tsp.NewEnv(tsp.Config{Size: size})
	if err != nil {
		return err
	}
	defer env.Close()

	for i := 0; i < samples; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, _, err := env.Reset(int64(i), nil); err != nil {
			return err
		}
		key := Key{Problem: problem, Size: size, Index: i}
		if err := st.Save(ctx, key, env.Instance()); err != nil {
			return err
		}
		logger.Debug("saved instance", zap.Stringer("key", key))
	}
	logger.Info("generated data set",
		zap.String("problem", problem),
		zap.Int("size", size),
		zap.Int("samples", samples),
	)
	return nil
}
