package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/0202alcc/luvatrix/color"
	"github.com/0202alcc/luvatrix/internal/share"
	"github.com/0202alcc/luvatrix/matrix"
	"github.com/0202alcc/luvatrix/terminal"
)

// TerminalConfig configures a TerminalTarget.
type TerminalConfig struct {
	Output       io.Writer
	ForceColor   bool
	DisableColor bool
	// DoubleBuffer skips re-emitting a frame whose rendered bytes are
	// identical to the previous one, avoiding flicker on static scenes.
	DoubleBuffer bool
}

func defaultTerminalConfig() TerminalConfig {
	return TerminalConfig{Output: os.Stdout}
}

// TerminalOption configures a TerminalTarget at construction time.
type TerminalOption = share.Option[TerminalConfig]

func WithOutput(w io.Writer) TerminalOption {
	return func(c *TerminalConfig) { c.Output = w }
}
func WithForceColor() TerminalOption {
	return func(c *TerminalConfig) { c.ForceColor = true }
}
func WithDisableColor() TerminalOption {
	return func(c *TerminalConfig) { c.DisableColor = true }
}
func WithDoubleBuffer() TerminalOption {
	return func(c *TerminalConfig) { c.DoubleBuffer = true }
}

// cursorManager wraps the ANSI cursor-control sequences used to paint a
// matrix without scrolling the terminal.
type cursorManager struct {
	out io.Writer
}

func (c cursorManager) hide() { fmt.Fprint(c.out, "\033[?25l") }
func (c cursorManager) show() { fmt.Fprint(c.out, "\033[?25h") }
func (c cursorManager) home() { fmt.Fprint(c.out, "\033[H") }

// TerminalTarget is a reference render.Target that blits the RGBA
// matrix as two-row-per-cell ANSI truecolor (or 256/16-color, or
// colorless) background blocks.
type TerminalTarget struct {
	out      io.Writer
	detector *terminal.Detector
	cursor   cursorManager
	cfg      TerminalConfig

	mu      sync.Mutex
	prevBuf []byte
	started bool
}

// NewTerminalTarget constructs a TerminalTarget writing to cfg.Output
// (os.Stdout by default).
func NewTerminalTarget(opts ...TerminalOption) *TerminalTarget {
	cfg := defaultTerminalConfig()
	share.ApplyOptions(&cfg, opts...)
	return &TerminalTarget{
		out:      cfg.Output,
		detector: terminal.NewDetector(cfg.Output),
		cursor:   cursorManager{out: cfg.Output},
		cfg:      cfg,
	}
}

func (t *TerminalTarget) colorMode() color.Mode {
	if t.cfg.ForceColor {
		return color.ModeTrueColor
	}
	if t.cfg.DisableColor || !t.detector.SupportsANSI() {
		return color.ModeNoColor
	}
	switch {
	case t.detector.SupportsTrueColor():
		return color.ModeTrueColor
	case t.detector.Supports256Color():
		return color.Mode256Color
	default:
		return color.ModeANSI
	}
}

// Start hides the cursor and clears the screen.
func (t *TerminalTarget) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}
	t.cursor.hide()
	fmt.Fprint(t.out, "\033[2J")
	t.started = true
	return nil
}

// Stop restores the cursor.
func (t *TerminalTarget) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return nil
	}
	t.cursor.show()
	t.started = false
	t.prevBuf = nil
	return nil
}

// PresentFrame renders frame.RGBA as background-colored half-height
// blocks (each terminal row covers two matrix rows via the upper-half
// block character), honoring DoubleBuffer to skip unchanged frames.
func (t *TerminalTarget) PresentFrame(frame Frame) error {
	mode := t.colorMode()
	var buf bytes.Buffer
	buf.WriteString("\033[H")

	for y := 0; y < frame.Height; y += 2 {
		for x := 0; x < frame.Width; x++ {
			top := frame.RGBA[y][x]
			bottom := top
			if y+1 < frame.Height {
				bottom = frame.RGBA[y+1][x]
			}
			writeHalfBlock(&buf, mode, top, bottom)
		}
		buf.WriteString("\033[0m\r\n")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cfg.DoubleBuffer && bytes.Equal(buf.Bytes(), t.prevBuf) {
		return nil
	}
	if _, err := t.out.Write(buf.Bytes()); err != nil {
		return err
	}
	if t.cfg.DoubleBuffer {
		t.prevBuf = append(t.prevBuf[:0], buf.Bytes()...)
	}
	return nil
}

// writeHalfBlock emits one cell: foreground = top pixel, background =
// bottom pixel, glyph = unicode upper-half block, so one terminal row
// renders two matrix rows.
func writeHalfBlock(buf *bytes.Buffer, mode color.Mode, top, bottom matrix.RGBA) {
	if mode == color.ModeNoColor {
		buf.WriteByte(' ')
		return
	}
	fg := color.NewRGB(top.R, top.G, top.B)
	bg := color.NewRGB(bottom.R, bottom.G, bottom.B).Bg()
	buf.WriteString(fg.Render(mode))
	buf.WriteString(bg.Background(mode))
	buf.WriteString("▀")
}

// ShouldClose is left to an embedding CLI that watches for Ctrl-C or a
// window-close signal; TerminalTarget has no native close affordance, so
// it does not implement render.CloseChecker.

// PumpEvents is a no-op: the terminal target has no separate event loop
// distinct from the HDI event source that reads the same stdin.
func (t *TerminalTarget) PumpEvents() {}
