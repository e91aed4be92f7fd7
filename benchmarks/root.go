package benchmarks

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/zeu5/routing-rl/config"
	"go.uber.org/zap"
)

var (
	configPath string
	episodes   int
	horizon    int
	saveFile   string
	runs       int
	size       int
	logLevel   string

	// set by the root command before any subcommand runs
	cfg    *config.Config
	logger *zap.Logger
)

func GetRootCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "routing-rl",
		Short:         "Reinforcement learning experiments on the travelling salesman problem",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path of the yaml configuration file")
	rootCommand.PersistentFlags().IntVarP(&episodes, "episodes", "e", 1000, "Number of episodes to run")
	rootCommand.PersistentFlags().IntVar(&horizon, "horizon", 50, "Horizon of each episode")
	rootCommand.PersistentFlags().StringVarP(&saveFile, "save", "s", "results", "Save the result data in the specified folder")
	rootCommand.PersistentFlags().IntVar(&runs, "runs", 1, "Number of experiment runs")
	rootCommand.PersistentFlags().IntVarP(&size, "size", "n", 10, "Number of nodes of the problem")
	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level")

	// adding the subcommands here
	rootCommand.AddCommand(TSPCommand())
	rootCommand.AddCommand(GenerateCommand())
	rootCommand.AddCommand(EvaluateCommand())
	rootCommand.AddCommand(RenderCommand())
	rootCommand.AddCommand(ServeCommand())
	return rootCommand
}

// setup loads the configuration file, applies the flags given explicitly on
// the command line over it and builds the logger
func setup(cmd *cobra.Command) error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("episodes") {
		c.Experiment.Episodes = episodes
	}
	if flags.Changed("horizon") {
		c.Experiment.Horizon = horizon
	}
	if flags.Changed("save") {
		c.Experiment.SavePath = saveFile
	}
	if flags.Changed("runs") {
		c.Experiment.Runs = runs
	}
	if flags.Changed("size") {
		c.Problem.Size = size
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return err
	}
	l, err := config.NewLogger(c.Log)
	if err != nil {
		return err
	}
	cfg = c
	logger = l
	return nil
}

// withInterrupt runs f with a context that is cancelled on the first interrupt
func withInterrupt(f func(context.Context) error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt) // channel for interrupts from os
	defer signal.Stop(sigCh)

	doneCh := make(chan struct{}) // channel for done signal from application
	defer close(doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sigCh:
			logger.Info("interrupted, stopping")
		case <-doneCh:
		}
		cancel()
	}()

	return f(ctx)
}
