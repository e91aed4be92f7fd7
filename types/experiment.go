package types

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/zeu5/routing-rl/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type experimentRunConfig struct {
	// execution configuration
	CurrentRun int
	Episodes   int
	Horizon    int
	Analyzers  map[string]Analyzer
	Context    context.Context
	Logger     *zap.Logger
	Output     *ParallelOutput

	// threshold to abort the experiment
	ConsecutiveErrorsAbort int

	// record flags
	RecordTraces   bool
	ReportSavePath string

	//misc
	LongestExpNameLen int
}

// Experiment encapsulates the different parameters to configure an agent and analyze the traces.
// The policy and environment are owned by the experiment, experiments running
// in parallel must not share them.
type Experiment struct {
	Name        string
	policy      Policy
	environment Environment
}

// NewExperiment creates a new experiment instance
func NewExperiment(name string, policy Policy, environment Environment) *Experiment {
	return &Experiment{
		Name:        name,
		policy:      policy,
		environment: environment,
	}
}

func (e *Experiment) recordTrace(rConfig *experimentRunConfig, trace *Trace) error {
	tracesFile := path.Join(rConfig.ReportSavePath, "traces", e.Name+"_"+strconv.Itoa(rConfig.CurrentRun)+".jsonl")
	bs, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	return util.AppendToFile(tracesFile, string(bs))
}

// Run the experiment for the specified number of episodes, feeding every
// episode to the analyzers
func (e *Experiment) Run(rConfig *experimentRunConfig) error {
	logger := rConfig.Logger.With(zap.String("experiment", e.Name), zap.Int("run", rConfig.CurrentRun))

	agent := NewAgent(&AgentConfig{
		Episodes:    rConfig.Episodes,
		Horizon:     rConfig.Horizon,
		Policy:      e.policy,
		Environment: e.environment,
	})

	totalWithError := 0
	consecutiveErrors := 0
	totalTerminated := 0
	totalTruncated := 0
	totalHorizon := 0
	totalReward := 0.0
	EPPadding := len(strconv.Itoa(rConfig.Episodes))

	start := time.Now()
	for episode := 0; episode < rConfig.Episodes; episode++ {
		select {
		case <-rConfig.Context.Done():
			logger.Info("experiment cancelled", zap.Int("episodes", episode))
			return rConfig.Context.Err()
		default:
		}

		eCtx := NewEpisodeContext(rConfig.Context, rConfig.CurrentRun, episode, e.Name)
		e.runEpisode(eCtx, agent)

		if eCtx.Err != nil {
			totalWithError += 1
			consecutiveErrors += 1
			logger.Debug("episode failed", zap.Int("episode", episode), zap.Error(eCtx.Err))
		} else {
			consecutiveErrors = 0
			totalReward += eCtx.TotalReward
			switch {
			case eCtx.Terminated:
				totalTerminated += 1
			case eCtx.Truncated:
				totalTruncated += 1
			case eCtx.HorizonEnd:
				totalHorizon += 1
			}
		}

		if rConfig.RecordTraces {
			if err := e.recordTrace(rConfig, eCtx.Trace); err != nil {
				logger.Warn("failed to record trace", zap.Error(err))
			}
		}

		// analyze the trace, even if the episode ended with an error
		for _, a := range rConfig.Analyzers {
			a.Analyze(rConfig.CurrentRun, episode, e.Name, eCtx)
		}

		if consecutiveErrors >= rConfig.ConsecutiveErrorsAbort {
			logger.Error("aborting experiment", zap.Int("consecutive_errors", consecutiveErrors), zap.Error(eCtx.Err))
			return fmt.Errorf("experiment %s: %d consecutive errors: %w", e.Name, consecutiveErrors, eCtx.Err)
		}

		if rConfig.Output != nil {
			rConfig.Output.TrySet(fmt.Sprintf("Exp:%*s, Eps:%*d/%d, Term:%*d, Trunc:%*d, Horizon:%*d, Err:%*d, AvgReward:%8.3f",
				rConfig.LongestExpNameLen, e.Name, EPPadding, episode+1, rConfig.Episodes,
				EPPadding, totalTerminated, EPPadding, totalTruncated, EPPadding, totalHorizon, EPPadding, totalWithError,
				totalReward/float64(episode+1)))
		}
	}

	logger.Info("experiment completed",
		zap.Int("episodes", rConfig.Episodes),
		zap.Int("terminated", totalTerminated),
		zap.Int("truncated", totalTruncated),
		zap.Int("horizon", totalHorizon),
		zap.Int("errors", totalWithError),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (e *Experiment) runEpisode(eCtx *EpisodeContext, agent *Agent) {
	defer func() {
		if r := recover(); r != nil {
			eCtx.SetError(fmt.Errorf("%v", r))
		}
	}()
	agent.RunEpisode(eCtx)
}

// Reset cleans the learned information of the policy
func (e *Experiment) Reset() {
	e.policy.Reset()
}

// Generic Dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses the information of the episodes to a DataSet
type Analyzer interface {
	// Run, episode, experiment name, episode
	Analyze(int, int, string, *EpisodeContext)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// AnalyzerCtor creates a fresh analyzer for each experiment
type AnalyzerCtor func() Analyzer

// Comparator differentiates between different datasets with associated names
// run, total episodes, experiment names, datasets
type Comparator func(int, int, []string, []DataSet) error

func NoopComparator() Comparator {
	return func(_, _ int, _ []string, _ []DataSet) error { return nil }
}

// ComparisonConfig contains the configuration for the comparison
type ComparisonConfig struct {
	Runs     int // number of runs
	Episodes int // number of episodes
	Horizon  int // max number of steps per episode

	RecordPath string // path to store the results

	// threshold to abort the experiment
	ConsecutiveErrorsAbort int

	// record flags
	RecordTraces bool

	// number of experiments running at the same time, 0 or 1 runs them one after the other
	ParallelExperiments int
	// refresh period of the terminal progress, 0 disables it
	PrintFrequency time.Duration

	Logger *zap.Logger
}

// Comparison contains the different experiments to compare
// The traces obtained from the experiments are analyzed
// The analyzed datasets are then compared
type Comparison struct {
	Experiments []*Experiment
	analyzers   map[string]AnalyzerCtor
	comparators map[string]Comparator
	cConfig     *ComparisonConfig
	logger      *zap.Logger
}

// NewComparison creates a comparison instance and prepares the record folder
func NewComparison(config *ComparisonConfig) (*Comparison, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ConsecutiveErrorsAbort == 0 {
		config.ConsecutiveErrorsAbort = 10
	}
	if config.Runs == 0 {
		config.Runs = 1
	}

	if err := os.MkdirAll(config.RecordPath, os.ModePerm); err != nil {
		return nil, err
	}
	if config.RecordTraces {
		if err := os.MkdirAll(path.Join(config.RecordPath, "traces"), os.ModePerm); err != nil {
			return nil, err
		}
	}

	return &Comparison{
		Experiments: make([]*Experiment, 0),
		analyzers:   make(map[string]AnalyzerCtor),
		comparators: make(map[string]Comparator),
		cConfig:     config,
		logger:      logger,
	}, nil
}

// AddAnalysis adds an analyzer and comparator to the comparison
func (c *Comparison) AddAnalysis(name string, analyzer AnalyzerCtor, comparator Comparator) {
	c.analyzers[name] = analyzer
	c.comparators[name] = comparator
}

// Add experiments to compare
func (c *Comparison) AddExperiment(e *Experiment) {
	c.Experiments = append(c.Experiments, e)
}

// record the configuration of the comparison
func (c *Comparison) recordConfig() error {
	cfg := c.cConfig
	out := make(map[string]interface{})
	out["runs"] = cfg.Runs
	out["episodes"] = cfg.Episodes
	out["horizon"] = cfg.Horizon
	out["record_traces"] = cfg.RecordTraces
	out["parallel_experiments"] = cfg.ParallelExperiments

	experiments := make([]string, 0)
	for _, e := range c.Experiments {
		experiments = append(experiments, e.Name)
	}
	out["experiments"] = experiments

	analyzers := make([]string, 0)
	for name := range c.analyzers {
		analyzers = append(analyzers, name)
	}
	out["analyzers"] = analyzers

	bs, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return os.WriteFile(path.Join(cfg.RecordPath, "comparison_config.json"), bs, 0644)
}

// Run the comparison
func (c *Comparison) Run(ctx context.Context) error {
	if err := c.recordConfig(); err != nil {
		return err
	}

	longestNameLen := 0
	for _, e := range c.Experiments {
		if len(e.Name) > longestNameLen {
			longestNameLen = len(e.Name)
		}
	}

	for run := 0; run < c.cConfig.Runs; run++ {
		c.logger.Info("starting run", zap.Int("run", run+1), zap.Int("experiments", len(c.Experiments)))

		datasets := make(map[string][]DataSet)
		for name := range c.analyzers {
			datasets[name] = make([]DataSet, len(c.Experiments))
		}
		names := make([]string, len(c.Experiments))
		outputs := make([]*ParallelOutput, len(c.Experiments))
		for i, e := range c.Experiments {
			names[i] = e.Name
			outputs[i] = NewParallelOutput()
		}

		var printer *TerminalPrinter
		if c.cConfig.PrintFrequency > 0 {
			printer = NewTerminalPrinter(ctx, outputs, c.cConfig.PrintFrequency)
			printer.Start()
		}

		g, gCtx := errgroup.WithContext(ctx)
		if c.cConfig.ParallelExperiments > 1 {
			g.SetLimit(c.cConfig.ParallelExperiments)
		} else {
			g.SetLimit(1)
		}
		for i, e := range c.Experiments {
			i, e := i, e
			g.Go(func() error {
				// every run learns from scratch, the last run's policy is kept for inspection
				if run > 0 {
					e.Reset()
				}
				analyzers := make(map[string]Analyzer)
				for name, ctor := range c.analyzers {
					analyzers[name] = ctor()
				}
				err := e.Run(c.prepareRunConfig(gCtx, run, analyzers, outputs[i], longestNameLen))
				for name, a := range analyzers {
					datasets[name][i] = a.DataSet()
				}
				return err
			})
		}
		err := g.Wait()
		if printer != nil {
			printer.Stop()
		}
		if err != nil {
			return err
		}

		for name, comp := range c.comparators {
			if err := comp(run, c.cConfig.Episodes, names, datasets[name]); err != nil {
				return fmt.Errorf("comparator %s: %w", name, err)
			}
		}
	}
	return nil
}

// prepare the run configuration for the experiment
func (c *Comparison) prepareRunConfig(ctx context.Context, run int, analyzers map[string]Analyzer, output *ParallelOutput, longestExpNameLen int) *experimentRunConfig {
	return &experimentRunConfig{
		CurrentRun:             run,
		Episodes:               c.cConfig.Episodes,
		Horizon:                c.cConfig.Horizon,
		Analyzers:              analyzers,
		Context:                ctx,
		Logger:                 c.logger,
		Output:                 output,
		ConsecutiveErrorsAbort: c.cConfig.ConsecutiveErrorsAbort,
		RecordTraces:           c.cConfig.RecordTraces,
		ReportSavePath:         c.cConfig.RecordPath,
		LongestExpNameLen:      longestExpNameLen,
	}
}
