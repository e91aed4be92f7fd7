package types

import (
	"encoding/json"
	"os"
	"path"
	"strconv"

	"github.com/zeu5/routing-rl/util"
	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// VisitGraph is the graph of abstract states reached by an experiment,
// with the actions observed between them
type VisitGraph struct {
	Nodes map[string]*Node `json:"nodes"`
}

func NewVisitGraph() *VisitGraph {
	return &VisitGraph{
		Nodes: make(map[string]*Node),
	}
}

// Update adds the transition and reports whether the target state is new
func (v *VisitGraph) Update(from State, action Action, to State) bool {
	fromKey := from.Hash()
	toKey := to.Hash()
	if _, ok := v.Nodes[fromKey]; !ok {
		v.Nodes[fromKey] = NewNode(fromKey)
	}
	isNew := false
	if _, ok := v.Nodes[toKey]; !ok {
		v.Nodes[toKey] = NewNode(toKey)
		isNew = true
	}
	v.Nodes[fromKey].Visits += 1
	v.Nodes[fromKey].AddNext(action.Hash(), toKey)
	return isNew
}

func (v *VisitGraph) Len() int {
	return len(v.Nodes)
}

func (v *VisitGraph) GetVisits() map[string]int {
	results := make(map[string]int)
	for k, n := range v.Nodes {
		results[k] = n.Visits
	}
	return results
}

func (v *VisitGraph) Record(filePath string) error {
	bs, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return util.WriteToFile(filePath, string(bs))
}

type Node struct {
	Key    string `json:"key"`
	Visits int    `json:"visits"`
	// each action can lead to many states
	Next map[string]map[string]bool `json:"next"`
}

func NewNode(key string) *Node {
	return &Node{
		Key:  key,
		Next: make(map[string]map[string]bool),
	}
}

func (n *Node) AddNext(a, next string) {
	if _, ok := n.Next[a]; !ok {
		n.Next[a] = make(map[string]bool)
	}
	n.Next[a][next] = true
}

// CoverageDataSet is the number of distinct states seen after each episode
type CoverageDataSet struct {
	Coverage []int
	graph    *VisitGraph
}

// CoverageAnalyzer tracks how many abstract states an experiment explores over time
type CoverageAnalyzer struct {
	ds *CoverageDataSet
}

var _ Analyzer = (*CoverageAnalyzer)(nil)

func NewCoverageAnalyzer() *CoverageAnalyzer {
	a := &CoverageAnalyzer{}
	a.Reset()
	return a
}

func CoverageAnalyzerCtor() AnalyzerCtor {
	return func() Analyzer {
		return NewCoverageAnalyzer()
	}
}

func (a *CoverageAnalyzer) Analyze(_ int, _ int, _ string, eCtx *EpisodeContext) {
	if eCtx.Trace != nil {
		for i := 0; i < eCtx.Trace.Len(); i++ {
			s, act, ns, _ := eCtx.Trace.Get(i)
			a.ds.graph.Update(s, act, ns)
		}
	}
	a.ds.Coverage = append(a.ds.Coverage, a.ds.graph.Len())
}

func (a *CoverageAnalyzer) DataSet() DataSet {
	return a.ds
}

// Graph is the visit graph accumulated since the last Reset
func (a *CoverageAnalyzer) Graph() *VisitGraph {
	return a.ds.graph
}

func (a *CoverageAnalyzer) Reset() {
	a.ds = &CoverageDataSet{
		Coverage: make([]int, 0),
		graph:    NewVisitGraph(),
	}
}

// CoverageComparator logs the final coverage of every experiment and plots the coverage curves.
// The visit graphs are recorded when recordGraphs is set.
func CoverageComparator(savePath string, recordGraphs bool, logger *zap.Logger) Comparator {
	return func(run int, _ int, names []string, ds []DataSet) error {
		if err := os.MkdirAll(savePath, os.ModePerm); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "State coverage"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Distinct states"
		for i, name := range names {
			coverage, ok := ds[i].(*CoverageDataSet)
			if !ok || len(coverage.Coverage) == 0 {
				continue
			}
			logger.Info("state coverage",
				zap.Int("run", run),
				zap.String("experiment", name),
				zap.Int("states", coverage.Coverage[len(coverage.Coverage)-1]),
			)
			if recordGraphs {
				graphPath := path.Join(savePath, strconv.Itoa(run)+"_"+name+"_visit_graph.json")
				if err := coverage.graph.Record(graphPath); err != nil {
					return err
				}
			}
			points := make(plotter.XYs, len(coverage.Coverage))
			for j, c := range coverage.Coverage {
				points[j] = plotter.XY{X: float64(j), Y: float64(c)}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(name, line)
		}
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(savePath, strconv.Itoa(run)+"_coverage.png"))
	}
}
