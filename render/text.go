package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/logrusorgru/aurora"
	"github.com/zeu5/routing-rl/tsp"
)

const (
	DefaultTextWidth  = 40
	DefaultTextHeight = 20
)

// TextRenderer lays the nodes out on a character grid:
// S is the start node, o a visited node and . an unvisited one
type TextRenderer struct {
	Width  int
	Height int
	au     aurora.Aurora
}

var _ Renderer = &TextRenderer{}

func NewTextRenderer(colors bool) *TextRenderer {
	return &TextRenderer{
		Width:  DefaultTextWidth,
		Height: DefaultTextHeight,
		au:     aurora.NewAurora(colors),
	}
}

type cell struct {
	r    rune
	kind int
}

const (
	cellEmpty = iota
	cellUnvisited
	cellVisited
	cellStart
)

func (r *TextRenderer) Render(state *tsp.EpisodeState, nodes tsp.NodeSet) (*Frame, error) {
	width, height := r.Width, r.Height
	if width < 2 {
		width = DefaultTextWidth
	}
	if height < 2 {
		height = DefaultTextHeight
	}
	grid := make([][]cell, height)
	for i := range grid {
		grid[i] = make([]cell, width)
	}

	place := func(p tsp.Point, c cell) {
		col := clamp(int(p.X*float64(width-1)+0.5), width)
		// rows grow downwards
		row := clamp(int((1-p.Y)*float64(height-1)+0.5), height)
		if grid[row][col].kind < c.kind {
			grid[row][col] = c
		}
	}
	for i := 1; i < len(nodes); i++ {
		if state.Visited[i] {
			place(nodes[i], cell{'o', cellVisited})
		} else {
			place(nodes[i], cell{'.', cellUnvisited})
		}
	}
	place(nodes[tsp.StartingNode], cell{'S', cellStart})

	var b strings.Builder
	border := "+" + strings.Repeat("-", width) + "+\n"
	b.WriteString(border)
	for _, row := range grid {
		b.WriteByte('|')
		for _, c := range row {
			b.WriteString(r.paint(c))
		}
		b.WriteString("|\n")
	}
	b.WriteString(border)

	order := make([]string, len(state.VisitOrder))
	for i, n := range state.VisitOrder {
		order[i] = strconv.Itoa(n)
	}
	fmt.Fprintf(&b, "step %d  visited %d/%d  distance %.4f\n",
		state.Duration, state.VisitedCount(), len(state.Visited), state.CumulativeDistance)
	fmt.Fprintf(&b, "tour %s\n", strings.Join(order, " -> "))
	return &Frame{Text: b.String()}, nil
}

func (r *TextRenderer) paint(c cell) string {
	s := string(c.r)
	switch c.kind {
	case cellStart:
		return r.au.Red(s).String()
	case cellVisited:
		return r.au.Green(s).String()
	case cellUnvisited:
		return r.au.Blue(s).String()
	}
	return " "
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
