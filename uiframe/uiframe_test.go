package uiframe

import (
	"testing"

	"github.com/0202alcc/luvatrix/matrix"
)

type solidComponent struct {
	w, h int
	px   matrix.PixelValue
}

func (s solidComponent) Width() int  { return s.w }
func (s solidComponent) Height() int { return s.h }
func (s solidComponent) Render() [][]matrix.PixelValue {
	rows := make([][]matrix.PixelValue, s.h)
	for y := range rows {
		row := make([]matrix.PixelValue, s.w)
		for x := range row {
			row[x] = s.px
		}
		rows[y] = row
	}
	return rows
}

func TestMountComponentRejectsOutOfBounds(t *testing.T) {
	frame := BeginFrame(4, 4, matrix.PixelValue{})
	c := solidComponent{w: 3, h: 3, px: matrix.PixelValue{R: 1, G: 1, B: 1, A: 255}}
	if err := frame.MountComponent(c, 2, 2); err == nil {
		t.Fatal("expected error for component exceeding frame bounds")
	}
}

func TestMountComponentRejectsNegativeOffset(t *testing.T) {
	frame := BeginFrame(4, 4, matrix.PixelValue{})
	c := solidComponent{w: 1, h: 1}
	if err := frame.MountComponent(c, -1, 0); err == nil {
		t.Fatal("expected error for negative offset")
	}
}

func TestFinalizeFillsBackgroundAndBlitsComponents(t *testing.T) {
	bg := matrix.PixelValue{R: 0, G: 0, B: 0, A: 255}
	frame := BeginFrame(4, 4, bg)
	fg := matrix.PixelValue{R: 255, G: 255, B: 255, A: 255}
	c := solidComponent{w: 2, h: 2, px: fg}
	if err := frame.MountComponent(c, 1, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batch := frame.Finalize()
	if len(batch.Operations) != 1 {
		t.Fatalf("got %d operations, want 1", len(batch.Operations))
	}
	rewrite, ok := batch.Operations[0].(matrix.FullRewrite)
	if !ok {
		t.Fatalf("got %T, want matrix.FullRewrite", batch.Operations[0])
	}
	if rewrite.Pixels[0][0] != bg {
		t.Fatalf("corner = %+v, want background", rewrite.Pixels[0][0])
	}
	if rewrite.Pixels[1][1] != fg {
		t.Fatalf("mounted cell = %+v, want component pixel", rewrite.Pixels[1][1])
	}
	if rewrite.Pixels[2][2] != fg {
		t.Fatalf("mounted cell = %+v, want component pixel", rewrite.Pixels[2][2])
	}
	if rewrite.Pixels[3][3] != bg {
		t.Fatalf("outside-component cell = %+v, want background", rewrite.Pixels[3][3])
	}
}

func TestFinalizeWithNoComponentsIsAllBackground(t *testing.T) {
	bg := matrix.PixelValue{R: 9, G: 9, B: 9, A: 255}
	frame := BeginFrame(2, 2, bg)
	batch := frame.Finalize()
	rewrite := batch.Operations[0].(matrix.FullRewrite)
	for _, row := range rewrite.Pixels {
		for _, px := range row {
			if px != bg {
				t.Fatalf("got %+v, want background everywhere", px)
			}
		}
	}
}
