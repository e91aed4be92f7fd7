package render

import (
	"image/color"

	"github.com/zeu5/routing-rl/tsp"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DefaultWindowSize is the side of the rendered frames in pixels
const DefaultWindowSize = 512

var (
	startColor     = color.RGBA{R: 255, A: 255}
	visitedColor   = color.RGBA{G: 255, A: 255}
	unvisitedColor = color.RGBA{B: 255, A: 255}
	edgeColor      = color.Black
)

// PlotRenderer draws the tour so far on the unit square: edges in visit
// order, the start node as a red square, visited nodes in green and the
// others in blue
type PlotRenderer struct {
	WindowSize int
}

var _ Renderer = &PlotRenderer{}

func NewPlotRenderer() *PlotRenderer {
	return &PlotRenderer{WindowSize: DefaultWindowSize}
}

func (r *PlotRenderer) Plot(state *tsp.EpisodeState, nodes tsp.NodeSet) (*plot.Plot, error) {
	p := plot.New()
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.HideAxes()
	p.BackgroundColor = color.White

	if len(state.VisitOrder) > 1 {
		tour := make(plotter.XYs, len(state.VisitOrder))
		for i, n := range state.VisitOrder {
			tour[i] = plotter.XY{X: nodes[n].X, Y: nodes[n].Y}
		}
		line, err := plotter.NewLine(tour)
		if err != nil {
			return nil, err
		}
		line.Color = edgeColor
		line.Width = vg.Points(2)
		p.Add(line)
	}

	visited := make(plotter.XYs, 0, len(nodes))
	unvisited := make(plotter.XYs, 0, len(nodes))
	for i := 1; i < len(nodes); i++ {
		xy := plotter.XY{X: nodes[i].X, Y: nodes[i].Y}
		if state.Visited[i] {
			visited = append(visited, xy)
		} else {
			unvisited = append(unvisited, xy)
		}
	}
	for _, group := range []struct {
		points plotter.XYs
		color  color.Color
	}{
		{visited, visitedColor},
		{unvisited, unvisitedColor},
	} {
		if len(group.points) == 0 {
			continue
		}
		s, err := plotter.NewScatter(group.points)
		if err != nil {
			return nil, err
		}
		s.GlyphStyle = draw.GlyphStyle{Color: group.color, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
		p.Add(s)
	}

	start, err := plotter.NewScatter(plotter.XYs{{X: nodes[tsp.StartingNode].X, Y: nodes[tsp.StartingNode].Y}})
	if err != nil {
		return nil, err
	}
	start.GlyphStyle = draw.GlyphStyle{Color: startColor, Radius: vg.Points(4), Shape: draw.SquareGlyph{}}
	p.Add(start)
	return p, nil
}

func (r *PlotRenderer) Render(state *tsp.EpisodeState, nodes tsp.NodeSet) (*Frame, error) {
	p, err := r.Plot(state, nodes)
	if err != nil {
		return nil, err
	}
	size := r.WindowSize
	if size <= 0 {
		size = DefaultWindowSize
	}
	// one point per pixel
	c := vgimg.NewWith(vgimg.UseWH(vg.Length(size), vg.Length(size)), vgimg.UseDPI(int(vg.Inch)))
	p.Draw(draw.New(c))
	return &Frame{Image: c.Image()}, nil
}
