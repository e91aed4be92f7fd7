package types

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// EpisodeRewardDataSet holds the return of every episode of an experiment
type EpisodeRewardDataSet struct {
	Rewards    []float64
	Terminated []bool
	Errors     int
}

// CompletionRate is the fraction of episodes that returned to the start node
func (d *EpisodeRewardDataSet) CompletionRate() float64 {
	if len(d.Terminated) == 0 {
		return 0
	}
	count := 0
	for _, t := range d.Terminated {
		if t {
			count++
		}
	}
	return float64(count) / float64(len(d.Terminated))
}

// MovingAverage smooths the rewards over a trailing window
func (d *EpisodeRewardDataSet) MovingAverage(window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(d.Rewards))
	sum := 0.0
	for i, r := range d.Rewards {
		sum += r
		if i >= window {
			sum -= d.Rewards[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

type EpisodeRewardAnalyzer struct {
	ds *EpisodeRewardDataSet
}

var _ Analyzer = (*EpisodeRewardAnalyzer)(nil)

func NewEpisodeRewardAnalyzer() *EpisodeRewardAnalyzer {
	a := &EpisodeRewardAnalyzer{}
	a.Reset()
	return a
}

func EpisodeRewardAnalyzerCtor() AnalyzerCtor {
	return func() Analyzer {
		return NewEpisodeRewardAnalyzer()
	}
}

func (a *EpisodeRewardAnalyzer) Analyze(_ int, _ int, _ string, eCtx *EpisodeContext) {
	if eCtx.Err != nil {
		a.ds.Errors += 1
		return
	}
	a.ds.Rewards = append(a.ds.Rewards, eCtx.TotalReward)
	a.ds.Terminated = append(a.ds.Terminated, eCtx.Terminated)
}

func (a *EpisodeRewardAnalyzer) DataSet() DataSet {
	return a.ds
}

func (a *EpisodeRewardAnalyzer) Reset() {
	a.ds = &EpisodeRewardDataSet{
		Rewards:    make([]float64, 0),
		Terminated: make([]bool, 0),
	}
}

// EpisodeRewardSummary logs mean and standard deviation of the episode rewards of each experiment
func EpisodeRewardSummary(logger *zap.Logger) Comparator {
	return func(run int, _ int, names []string, ds []DataSet) error {
		for i, name := range names {
			rewards, ok := ds[i].(*EpisodeRewardDataSet)
			if !ok || len(rewards.Rewards) == 0 {
				continue
			}
			mean, std := stat.PopMeanStdDev(rewards.Rewards, nil)
			logger.Info("episode rewards",
				zap.Int("run", run),
				zap.String("experiment", name),
				zap.Float64("mean", mean),
				zap.Float64("std", std),
				zap.Float64("completion_rate", rewards.CompletionRate()),
				zap.Int("errors", rewards.Errors),
			)
		}
		return nil
	}
}

// EpisodeRewardPlotter draws the smoothed learning curve of every experiment in a single png
func EpisodeRewardPlotter(plotPath string, window int) Comparator {
	return func(run int, _ int, names []string, ds []DataSet) error {
		if err := os.MkdirAll(plotPath, os.ModePerm); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Episode reward"
		for i := 0; i < len(names); i++ {
			rewards, ok := ds[i].(*EpisodeRewardDataSet)
			if !ok {
				continue
			}
			avg := rewards.MovingAverage(window)
			points := make(plotter.XYs, len(avg))
			for j, v := range avg {
				points[j] = plotter.XY{
					X: float64(j),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_episode_rewards.png"))
	}
}

// EpisodeRewardChart renders the same learning curves as an interactive html page
func EpisodeRewardChart(chartPath string, window int) Comparator {
	return func(run int, _ int, names []string, ds []DataSet) error {
		if err := os.MkdirAll(chartPath, os.ModePerm); err != nil {
			return err
		}
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title: fmt.Sprintf("Episode rewards, run %d", run),
			}),
			charts.WithInitializationOpts(opts.Initialization{
				Theme: "shine",
			}),
		)

		line = line.SetXAxis(chartAxis(ds))
		for i, name := range names {
			rewards, ok := ds[i].(*EpisodeRewardDataSet)
			if !ok {
				continue
			}
			items := make([]opts.LineData, 0, len(rewards.Rewards))
			for _, v := range rewards.MovingAverage(window) {
				items = append(items, opts.LineData{Value: v})
			}
			line.AddSeries(name, items)
		}

		page := components.NewPage()
		page.AddCharts(line)
		f, err := os.Create(path.Join(chartPath, strconv.Itoa(run)+"_episode_rewards.html"))
		if err != nil {
			return err
		}
		defer f.Close()
		return page.Render(f)
	}
}

// chartAxis numbers the points of the longest reward series. Failed episodes
// are not recorded, so a series can be shorter than the number of episodes.
func chartAxis(ds []DataSet) []string {
	longest := 0
	for _, d := range ds {
		if rewards, ok := d.(*EpisodeRewardDataSet); ok && len(rewards.Rewards) > longest {
			longest = len(rewards.Rewards)
		}
	}
	steps := make([]string, longest)
	for i := range steps {
		steps[i] = strconv.Itoa(i)
	}
	return steps
}
