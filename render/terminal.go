package render

import (
	"context"
	"io"
	"time"

	"github.com/gosuri/uilive"
	"github.com/zeu5/routing-rl/tsp"
)

// Terminal shows text frames in place, paced at the metadata frame rate
type Terminal struct {
	renderer *TextRenderer
	writer   *uilive.Writer
	interval time.Duration
	last     time.Time
}

func NewTerminal(out io.Writer, colors bool, fps int) *Terminal {
	w := uilive.New()
	w.Out = out
	if fps <= 0 {
		fps = DefaultMetadata().RenderFPS
	}
	return &Terminal{
		renderer: NewTextRenderer(colors),
		writer:   w,
		interval: time.Second / time.Duration(fps),
	}
}

// Show draws the state and waits until the frame has been on screen for one interval
func (t *Terminal) Show(ctx context.Context, state *tsp.EpisodeState, nodes tsp.NodeSet) error {
	frame, err := t.renderer.Render(state, nodes)
	if err != nil {
		return err
	}
	if !t.last.IsZero() {
		wait := t.interval - time.Since(t.last)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	if _, err := io.WriteString(t.writer, frame.Text); err != nil {
		return err
	}
	t.last = time.Now()
	return t.writer.Flush()
}
