// Package uiframe is a minimal optional UI batching façade: an app may
// mount a handful of Components into a Frame and finalize it into one
// matrix.FullRewrite write batch. It is not a 2-D drawing library — a
// Component owns its own pixel content; uiframe only composes.
package uiframe

import (
	"fmt"

	"github.com/0202alcc/luvatrix/matrix"
)

// Component renders its own content as a pixel rectangle.
type Component interface {
	Width() int
	Height() int
	Render() [][]matrix.PixelValue
}

// placement is a mounted component and its top-left offset in the
// frame's canvas.
type placement struct {
	component Component
	x, y      int
}

// Frame batches component placements into one full-matrix rewrite.
type Frame struct {
	width, height int
	background    matrix.PixelValue
	placements    []placement
}

// BeginFrame starts a new Frame of the given extent, pre-filled with
// background.
func BeginFrame(width, height int, background matrix.PixelValue) *Frame {
	return &Frame{width: width, height: height, background: background}
}

// MountComponent schedules c to be blitted at (x, y) when the frame is
// finalized. Out-of-bounds placements are rejected immediately.
func (f *Frame) MountComponent(c Component, x, y int) error {
	if x < 0 || y < 0 || x+c.Width() > f.width || y+c.Height() > f.height {
		return fmt.Errorf("uiframe: component at (%d,%d) size %dx%d exceeds frame %dx%d",
			x, y, c.Width(), c.Height(), f.width, f.height)
	}
	f.placements = append(f.placements, placement{component: c, x: x, y: y})
	return nil
}

// Finalize composes every mounted component onto a background-filled
// canvas and returns the resulting FullRewrite batch. It does not submit
// the batch; callers pass it to their matrix or AppContext.
func (f *Frame) Finalize() matrix.WriteBatch {
	canvas := make([][]matrix.PixelValue, f.height)
	for y := range canvas {
		row := make([]matrix.PixelValue, f.width)
		for x := range row {
			row[x] = f.background
		}
		canvas[y] = row
	}

	for _, p := range f.placements {
		pixels := p.component.Render()
		for dy, row := range pixels {
			for dx, px := range row {
				canvas[p.y+dy][p.x+dx] = px
			}
		}
	}

	return matrix.WriteBatch{Operations: []matrix.WriteOp{matrix.FullRewrite{Pixels: canvas}}}
}
