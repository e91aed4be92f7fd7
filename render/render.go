// Package render draws episode states, either as images or as coloured text.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/zeu5/routing-rl/tsp"
)

type Mode string

const (
	// ModeHuman shows frames on the terminal at Metadata.RenderFPS
	ModeHuman Mode = "human"
	// ModeRGBArray returns frames as images
	ModeRGBArray Mode = "rgb_array"
)

var ErrUnknownMode = errors.New("unknown render mode")

// Metadata describes the supported render modes
type Metadata struct {
	RenderModes []Mode
	RenderFPS   int
}

// DefaultMetadata is the metadata of the environment renderers
func DefaultMetadata() Metadata {
	return Metadata{
		RenderModes: []Mode{ModeHuman, ModeRGBArray},
		RenderFPS:   4,
	}
}

func (m Metadata) Supports(mode Mode) bool {
	for _, s := range m.RenderModes {
		if s == mode {
			return true
		}
	}
	return false
}

// ParseMode validates a mode given by name, the empty string means no rendering
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return "", nil
	}
	mode := Mode(s)
	if !DefaultMetadata().Supports(mode) {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return mode, nil
}

// Frame is one rendered state. Image renderers fill Image, text renderers fill Text.
type Frame struct {
	Image image.Image
	Text  string
}

type Renderer interface {
	Render(state *tsp.EpisodeState, nodes tsp.NodeSet) (*Frame, error)
}

// SavePNG encodes the image of the frame to path
func SavePNG(path string, frame *Frame) error {
	if frame == nil || frame.Image == nil {
		return errors.New("frame has no image")
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame.Image); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
