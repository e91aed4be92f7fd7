package tsprl

import (
	"os"
	"path"
	"strconv"

	"github.com/zeu5/routing-rl/types"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// TourLengthDataSet records the length of every complete tour, indexed by the episode it was found in
type TourLengthDataSet struct {
	Episodes []int
	Lengths  []float64
}

// TourLengthAnalyzer measures the tours of episodes that visited every node and returned to the start
type TourLengthAnalyzer struct {
	ds *TourLengthDataSet
}

var _ types.Analyzer = (*TourLengthAnalyzer)(nil)

func NewTourLengthAnalyzer() *TourLengthAnalyzer {
	a := &TourLengthAnalyzer{}
	a.Reset()
	return a
}

func TourLengthAnalyzerCtor() types.AnalyzerCtor {
	return func() types.Analyzer {
		return NewTourLengthAnalyzer()
	}
}

func (a *TourLengthAnalyzer) Analyze(_ int, episode int, _ string, eCtx *types.EpisodeContext) {
	if eCtx.Err != nil || !eCtx.Terminated {
		return
	}
	_, _, last, ok := eCtx.Trace.Last()
	if !ok {
		return
	}
	lastState, ok := last.(*State)
	if !ok {
		return
	}
	for _, v := range lastState.Visited {
		if !v {
			return
		}
	}
	length := 0.0
	for i := 0; i < eCtx.Trace.Len(); i++ {
		s, action, _, _ := eCtx.Trace.Get(i)
		if st, ok := s.(*State); ok {
			length += st.Cost(action)
		}
	}
	a.ds.Episodes = append(a.ds.Episodes, episode)
	a.ds.Lengths = append(a.ds.Lengths, length)
}

func (a *TourLengthAnalyzer) DataSet() types.DataSet {
	return a.ds
}

func (a *TourLengthAnalyzer) Reset() {
	a.ds = &TourLengthDataSet{
		Episodes: make([]int, 0),
		Lengths:  make([]float64, 0),
	}
}

// TourLengthComparator logs the tour length statistics and plots the tours found over the episodes
func TourLengthComparator(plotPath string, logger *zap.Logger) types.Comparator {
	return func(run int, _ int, names []string, ds []types.DataSet) error {
		if err := os.MkdirAll(plotPath, os.ModePerm); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "Complete tours"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Tour length"
		for i, name := range names {
			tours, ok := ds[i].(*TourLengthDataSet)
			if !ok || len(tours.Lengths) == 0 {
				logger.Info("no complete tour", zap.Int("run", run), zap.String("experiment", name))
				continue
			}
			mean, std := stat.PopMeanStdDev(tours.Lengths, nil)
			logger.Info("tour lengths",
				zap.Int("run", run),
				zap.String("experiment", name),
				zap.Int("tours", len(tours.Lengths)),
				zap.Float64("mean", mean),
				zap.Float64("std", std),
			)

			points := make(plotter.XYs, len(tours.Lengths))
			for j, l := range tours.Lengths {
				points[j] = plotter.XY{X: float64(tours.Episodes[j]), Y: l}
			}
			scatter, err := plotter.NewScatter(points)
			if err != nil {
				continue
			}
			scatter.GlyphStyle.Color = plotutil.Color(i)
			scatter.GlyphStyle.Radius = vg.Points(1.5)
			p.Add(scatter)
			p.Legend.Add(name, scatter)
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_tour_lengths.png"))
	}
}
