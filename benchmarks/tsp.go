package benchmarks

import (
	"context"
	"path"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/routing-rl/policies"
	"github.com/zeu5/routing-rl/tsp"
	"github.com/zeu5/routing-rl/tsprl"
	"github.com/zeu5/routing-rl/types"
	"go.uber.org/zap"
)

type tspFlags struct {
	unmasked      bool
	printFreq     time.Duration
	recordTraces  bool
	window        int
	cpuprofile    string
	memprofile    string
	recordQTables bool
	recordGraphs  bool
}

// allVisited holds once every node of the tour has been visited
func allVisited(s types.State) bool {
	state, ok := s.(*tsprl.State)
	if !ok {
		return false
	}
	for _, v := range state.Visited {
		if !v {
			return false
		}
	}
	return true
}

// TSPExperiments compares learned and baseline policies on freshly generated instances
func TSPExperiments(ctx context.Context, flags tspFlags) error {
	p, err := lookupProblem(cfg.Problem.Name)
	if err != nil {
		return err
	}
	masked := p.masked && !flags.unmasked
	saveFile := cfg.Experiment.SavePath

	c, err := types.NewComparison(&types.ComparisonConfig{
		Runs:     cfg.Experiment.Runs,
		Episodes: cfg.Experiment.Episodes,
		Horizon:  cfg.Experiment.Horizon,

		RecordPath:             saveFile,
		ConsecutiveErrorsAbort: 10,
		RecordTraces:           flags.recordTraces,

		ParallelExperiments: cfg.Experiment.Parallel,
		PrintFrequency:      flags.printFreq,
		Logger:              logger,
	})
	if err != nil {
		return err
	}
	stopProfiling, err := startProfiling(saveFile, flags.cpuprofile, flags.memprofile)
	if err != nil {
		return err
	}
	defer stopProfiling()

	plotPath := path.Join(saveFile, "plots")
	c.AddAnalysis("EpisodeReward", types.EpisodeRewardAnalyzerCtor(), chainComparators(
		types.EpisodeRewardSummary(logger),
		types.EpisodeRewardPlotter(plotPath, flags.window),
		types.EpisodeRewardChart(plotPath, flags.window),
	))
	c.AddAnalysis("TourLength", tsprl.TourLengthAnalyzerCtor(), tsprl.TourLengthComparator(plotPath, logger))
	c.AddAnalysis("Coverage", types.CoverageAnalyzerCtor(), types.CoverageComparator(path.Join(saveFile, "coverage"), flags.recordGraphs, logger))
	c.AddAnalysis("Properties", types.PropertyAnalyzerCtor(tsprl.Properties()...), types.PropertyComparator(saveFile, logger))

	seed := cfg.Problem.Seed
	newEnv := func() (types.Environment, error) {
		// every experiment replays the same sequence of instances
		return p.ctor(cfg.EnvConfig(), seed, masked)
	}

	qLearning := policies.NewQLearningPolicy(0.1, 0.99, 0.1, seed+1)
	strictQLearning := policies.NewQLearningPolicy(0.1, 0.99, 0.1, seed+2)
	strict := policies.NewStrictPolicy(strictQLearning).
		AddPolicy(policies.If(allVisited).Then(policies.ActionWithHash(tsprl.NodeAction(tsp.StartingNode).Hash())))

	experiments := []struct {
		name   string
		policy types.Policy
	}{
		{"Random", types.NewRandomPolicy(seed + 3)},
		{"NearestNeighbor", tsprl.NewNearestNeighborPolicy()},
		{"QLearning", qLearning},
		{"QLearning-ReturnWhenDone", strict},
		{"NegVisits", policies.NewSoftMaxNegFreqPolicy(0.3, 0.7, 1, false, seed+4)},
		{"Bonus", policies.NewBonusPolicy(0.1, 0.99, 0.05, 0.5, seed+5)},
	}
	for _, e := range experiments {
		env, err := newEnv()
		if err != nil {
			return err
		}
		c.AddExperiment(types.NewExperiment(e.name, e.policy, env))
	}

	logger.Info("starting comparison",
		zap.String("problem", cfg.Problem.Name),
		zap.Int("size", cfg.Problem.Size),
		zap.Bool("masked", masked),
		zap.Int("episodes", cfg.Experiment.Episodes),
		zap.Int("runs", cfg.Experiment.Runs),
	)
	if err := c.Run(ctx); err != nil {
		return err
	}

	if flags.recordQTables {
		if err := qLearning.Record(path.Join(saveFile, "qtables", "qlearning.json")); err != nil {
			return err
		}
		if err := strictQLearning.Record(path.Join(saveFile, "qtables", "qlearning_return.json")); err != nil {
			return err
		}
	}
	return nil
}

// chainComparators runs the comparators in order, stopping at the first error
func chainComparators(comparators ...types.Comparator) types.Comparator {
	return func(run, episodes int, names []string, ds []types.DataSet) error {
		for _, cmp := range comparators {
			if err := cmp(run, episodes, names, ds); err != nil {
				return err
			}
		}
		return nil
	}
}

func TSPCommand() *cobra.Command {
	flags := tspFlags{}
	var parallel int
	cmd := &cobra.Command{
		Use:   "tsp",
		Short: "Train and compare policies on random instances",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("parallel") {
				cfg.Experiment.Parallel = parallel
			}
			return withInterrupt(func(ctx context.Context) error {
				return TSPExperiments(ctx, flags)
			})
		},
	}
	cmd.Flags().BoolVar(&flags.unmasked, "unmasked", false, "Offer every node to the policies instead of the legal ones")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "Number of experiments running at the same time")
	cmd.Flags().DurationVar(&flags.printFreq, "print-frequency", 0, "Refresh period of the progress lines, 0 disables them")
	cmd.Flags().BoolVar(&flags.recordTraces, "record-traces", false, "Record the trace of every episode")
	cmd.Flags().IntVar(&flags.window, "window", 50, "Moving average window of the reward plots")
	cmd.Flags().BoolVar(&flags.recordGraphs, "record-graphs", false, "Save the visit graph of every experiment")
	cmd.Flags().BoolVar(&flags.recordQTables, "record-qtables", false, "Save the learned q tables")
	cmd.Flags().StringVar(&flags.cpuprofile, "cpuprofile", "", "Write a cpu profile to this file in the save folder")
	cmd.Flags().StringVar(&flags.memprofile, "memprofile", "", "Write a memory profile to this file in the save folder")
	return cmd
}
