package render

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeu5/routing-rl/tsp"
)

var triangleNodes = tsp.NodeSet{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}

func triangleState(t *testing.T, actions ...int) *tsp.EpisodeState {
	t.Helper()
	env, err := tsp.NewEnv(tsp.Config{Size: 3})
	require.NoError(t, err)
	_, _, err = env.Reset(0, &tsp.ResetOptions{Instance: tsp.NewInstance(0, triangleNodes)})
	require.NoError(t, err)
	for _, a := range actions {
		_, _, _, _, _, err = env.Step(a)
		require.NoError(t, err)
	}
	return env.State()
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, Mode(""), mode)

	mode, err = ParseMode("rgb_array")
	require.NoError(t, err)
	assert.Equal(t, ModeRGBArray, mode)

	_, err = ParseMode("ansi")
	assert.ErrorIs(t, err, ErrUnknownMode)

	assert.True(t, DefaultMetadata().Supports(ModeHuman))
	assert.Equal(t, 4, DefaultMetadata().RenderFPS)
}

func TestTextRenderer(t *testing.T) {
	r := NewTextRenderer(false)
	r.Width, r.Height = 5, 3

	frame, err := r.Render(triangleState(t), triangleNodes)
	require.NoError(t, err)
	want := "+-----+\n" +
		"|.    |\n" +
		"|     |\n" +
		"|S   .|\n" +
		"+-----+\n" +
		"step 0  visited 1/3  distance 0.0000\n" +
		"tour 0\n"
	assert.Equal(t, want, frame.Text)

	frame, err = r.Render(triangleState(t, 1, 2), triangleNodes)
	require.NoError(t, err)
	assert.Contains(t, frame.Text, "|o    |\n")
	assert.Contains(t, frame.Text, "|S   o|\n")
	assert.Contains(t, frame.Text, "step 2  visited 3/3  distance 2.4142\n")
	assert.Contains(t, frame.Text, "tour 0 -> 1 -> 2\n")
	assert.Nil(t, frame.Image)
}

func TestTextRendererColors(t *testing.T) {
	frame, err := NewTextRenderer(true).Render(triangleState(t), triangleNodes)
	require.NoError(t, err)
	assert.Contains(t, frame.Text, "\x1b[")
}

func TestPlotRenderer(t *testing.T) {
	frame, err := NewPlotRenderer().Render(triangleState(t, 1), triangleNodes)
	require.NoError(t, err)
	require.NotNil(t, frame.Image)
	bounds := frame.Image.Bounds()
	assert.Equal(t, DefaultWindowSize, bounds.Dx())
	assert.Equal(t, DefaultWindowSize, bounds.Dy())

	path := filepath.Join(t.TempDir(), "frames", "step_001.png")
	require.NoError(t, SavePNG(path, frame))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, bounds, img.Bounds())

	assert.Error(t, SavePNG(path, &Frame{Text: "no image"}))
}

func TestTerminal(t *testing.T) {
	out := &bytes.Buffer{}
	term := NewTerminal(out, false, 1000)
	require.NoError(t, term.Show(context.Background(), triangleState(t), triangleNodes))
	require.NoError(t, term.Show(context.Background(), triangleState(t, 1), triangleNodes))
	assert.Contains(t, out.String(), "tour 0 -> 1\n")
}

func TestTerminalCancelled(t *testing.T) {
	term := NewTerminal(&bytes.Buffer{}, false, 1)
	require.NoError(t, term.Show(context.Background(), triangleState(t), triangleNodes))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := term.Show(ctx, triangleState(t, 1), triangleNodes)
	assert.ErrorIs(t, err, context.Canceled)
}
