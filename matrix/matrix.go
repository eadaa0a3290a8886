// Package matrix implements the canonical RGBA255 window surface: a
// fixed-size pixel grid mutated only through atomic write-batch commits,
// with a bounded commit-event queue for downstream consumers (display
// runtimes) to drain.
package matrix

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/0202alcc/luvatrix/internal/share"
	"github.com/0202alcc/luvatrix/logx"
)

// Magenta is the sentinel color written in place of any pixel whose
// channel values failed sanitization (NaN, infinite, or out of [0,255]).
var Magenta = RGBA{R: 255, G: 0, B: 255, A: 255}

// RGBA is a single stored pixel: four 8-bit channels, always in range.
type RGBA struct {
	R, G, B, A uint8
}

// PixelValue is the input shape for write operations. Unlike RGBA it
// carries floats so operations that compute channel values (shaders,
// generators, the Multiply op) can present out-of-range or non-finite
// results; SubmitWriteBatch sanitizes every value before committing.
type PixelValue struct {
	R, G, B, A float64
}

func fromRGBA(p RGBA) PixelValue {
	return PixelValue{R: float64(p.R), G: float64(p.G), B: float64(p.B), A: float64(p.A)}
}

// WriteOp is one operation within a WriteBatch. The concrete types below
// are the only implementations.
type WriteOp interface {
	isWriteOp()
}

// FullRewrite replaces the entire grid. Pixels must be height rows of
// width PixelValues each.
type FullRewrite struct {
	Pixels [][]PixelValue
}

// PushColumn shifts all columns from Index rightward by one (discarding
// the last column) and writes Column at Index. Column must have Height
// entries.
type PushColumn struct {
	Index  int
	Column []PixelValue
}

// ReplaceColumn overwrites column Index in place.
type ReplaceColumn struct {
	Index  int
	Column []PixelValue
}

// PushRow shifts all rows from Index downward by one (discarding the
// last row) and writes Row at Index. Row must have Width entries.
type PushRow struct {
	Index int
	Row   []PixelValue
}

// ReplaceRow overwrites row Index in place.
type ReplaceRow struct {
	Index int
	Row   []PixelValue
}

// ReplaceRect overwrites the Width x Height block starting at (X, Y).
// Pixels must be Height rows of Width PixelValues each.
type ReplaceRect struct {
	X, Y, Width, Height int
	Pixels              [][]PixelValue
}

// Multiply applies a 4x4 color transform to every pixel: each output
// channel i is sum_j Matrix[i][j] * channel[j], rounded half-to-even and
// clamped to [0, 255]. Unlike the other ops it never produces offending
// pixels (sanitization always yields a finite, in-range result).
type Multiply struct {
	Matrix [4][4]float64
}

func (FullRewrite) isWriteOp()   {}
func (PushColumn) isWriteOp()    {}
func (ReplaceColumn) isWriteOp() {}
func (PushRow) isWriteOp()       {}
func (ReplaceRow) isWriteOp()    {}
func (ReplaceRect) isWriteOp()   {}
func (Multiply) isWriteOp()      {}

// WriteBatch is an ordered sequence of operations applied atomically: all
// operations land, or none do.
type WriteBatch struct {
	Operations []WriteOp
}

// CommitEvent marks a successful SubmitWriteBatch: a new revision exists
// and is ready to be blitted.
type CommitEvent struct {
	EventID     uint64
	Revision    uint64
	TimestampNS int64
}

// Config configures a Matrix.
type Config struct {
	// Background seeds every pixel at construction time.
	Background RGBA
	// QueueDepth bounds the commit-event queue. Once full, the oldest
	// pending event is dropped to admit the newest commit: a slow or
	// absent consumer must not grow memory unboundedly, nor force
	// SubmitWriteBatch to block (see display.Runtime, which is expected
	// to drain promptly).
	QueueDepth int
	// Clock returns the current time in nanoseconds; overridable for
	// deterministic tests.
	Clock func() int64
}

func defaultConfig() Config {
	return Config{
		Background: RGBA{0, 0, 0, 255},
		QueueDepth: 256,
		Clock:      func() int64 { return time.Now().UnixNano() },
	}
}

// Option configures a Matrix at construction time.
type Option = share.Option[Config]

// WithBackground sets the seed color for every pixel.
func WithBackground(c RGBA) Option {
	return func(cfg *Config) { cfg.Background = c }
}

// WithQueueDepth bounds the pending commit-event queue.
func WithQueueDepth(depth int) Option {
	return func(cfg *Config) { cfg.QueueDepth = depth }
}

// WithClock overrides the event timestamp source.
func WithClock(clock func() int64) Option {
	return func(cfg *Config) { cfg.Clock = clock }
}

// Matrix is a canonical RGBA255 surface with atomic write-batch commits.
type Matrix struct {
	height, width int

	writeMu sync.Mutex
	grid    [][]RGBA
	revision uint64

	eventMu     sync.Mutex
	eventCond   *sync.Cond
	events      []CommitEvent
	nextEventID uint64
	queueDepth  int
	droppedEvents uint64

	clock func() int64
}

// New constructs a Matrix of the given dimensions, filled with the
// configured background color.
func New(height, width int, opts ...Option) (*Matrix, error) {
	if height <= 0 || width <= 0 {
		return nil, errors.New("matrix: height and width must be > 0")
	}
	cfg := defaultConfig()
	share.ApplyOptions(&cfg, opts...)
	if cfg.QueueDepth <= 0 {
		return nil, errors.New("matrix: queue depth must be > 0")
	}

	grid := make([][]RGBA, height)
	for y := range grid {
		row := make([]RGBA, width)
		for x := range row {
			row[x] = cfg.Background
		}
		grid[y] = row
	}

	m := &Matrix{
		height:      height,
		width:       width,
		grid:        grid,
		nextEventID: 1,
		queueDepth:  cfg.QueueDepth,
		clock:       cfg.Clock,
	}
	m.eventCond = sync.NewCond(&m.eventMu)
	return m, nil
}

// Height returns the number of rows.
func (m *Matrix) Height() int { return m.height }

// Width returns the number of columns.
func (m *Matrix) Width() int { return m.width }

// Revision returns the number of committed write batches so far.
func (m *Matrix) Revision() uint64 {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.revision
}

// ReadSnapshot returns a deep copy of the current grid, safe to read
// without holding any lock.
func (m *Matrix) ReadSnapshot() [][]RGBA {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return cloneGrid(m.grid)
}

// DroppedEventCount reports how many commit events were evicted from the
// queue by overflow (drop-oldest-on-overflow) since construction.
func (m *Matrix) DroppedEventCount() uint64 {
	m.eventMu.Lock()
	defer m.eventMu.Unlock()
	return m.droppedEvents
}

func cloneGrid(grid [][]RGBA) [][]RGBA {
	out := make([][]RGBA, len(grid))
	for i, row := range grid {
		out[i] = append([]RGBA(nil), row...)
	}
	return out
}

// SubmitWriteBatch stages every operation against a scratch copy of the
// grid, applies it atomically on success, and publishes a CommitEvent.
// A pixel with any non-finite (NaN/Inf) channel fails the whole batch
// with an error and leaves the matrix untouched. A pixel with an
// out-of-range but finite channel is instead sanitized to Magenta; the
// count of sanitized pixels is returned alongside the event.
func (m *Matrix) SubmitWriteBatch(batch WriteBatch) (CommitEvent, int, error) {
	if len(batch.Operations) == 0 {
		return CommitEvent{}, 0, errors.New("matrix: write batch must include at least one operation")
	}

	m.writeMu.Lock()
	staged := cloneGrid(m.grid)
	offending := 0
	for i, op := range batch.Operations {
		n, err := m.applyOperation(staged, op)
		if err != nil {
			m.writeMu.Unlock()
			return CommitEvent{}, 0, fmt.Errorf("matrix: operation %d: %w", i, err)
		}
		offending += n
	}
	m.grid = staged
	m.revision++
	event := CommitEvent{
		EventID:     m.nextEventID,
		Revision:    m.revision,
		TimestampNS: m.clock(),
	}
	m.nextEventID++
	m.writeMu.Unlock()

	log := logx.WithFields(logx.EventFields(event.Revision)).WithField(logx.FieldEventID, event.EventID)
	if offending > 0 {
		log.Warn("write batch committed with %d sanitized pixel(s)", offending)
	} else {
		log.Debug("write batch committed")
	}

	m.pushEvent(event)
	return event, offending, nil
}

func (m *Matrix) pushEvent(event CommitEvent) {
	m.eventMu.Lock()
	m.events = append(m.events, event)
	if len(m.events) > m.queueDepth {
		drop := len(m.events) - m.queueDepth
		m.events = m.events[drop:]
		m.droppedEvents += uint64(drop)
		logx.WithFields(logx.EventFields(event.Revision)).Warn(
			"commit event queue overflowed, dropped %d oldest event(s)", drop)
	}
	m.eventCond.Broadcast()
	m.eventMu.Unlock()
}

// PopCommitEvent removes and returns the oldest pending commit event. If
// the queue is empty and timeout is positive, it waits up to timeout for
// one to arrive; a zero or negative timeout polls without blocking.
func (m *Matrix) PopCommitEvent(timeout time.Duration) (CommitEvent, bool) {
	m.eventMu.Lock()
	defer m.eventMu.Unlock()

	if len(m.events) == 0 {
		if timeout <= 0 {
			return CommitEvent{}, false
		}
		deadline := time.Now().Add(timeout)
		for len(m.events) == 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return CommitEvent{}, false
			}
			timer := time.AfterFunc(remaining, m.eventCond.Broadcast)
			m.eventCond.Wait()
			timer.Stop()
		}
	}

	event := m.events[0]
	m.events = m.events[1:]
	return event, true
}

// PendingCommitEventCount reports how many commit events are queued.
func (m *Matrix) PendingCommitEventCount() int {
	m.eventMu.Lock()
	defer m.eventMu.Unlock()
	return len(m.events)
}

func (m *Matrix) applyOperation(grid [][]RGBA, op WriteOp) (int, error) {
	switch o := op.(type) {
	case FullRewrite:
		return sanitizeInto(grid, 0, 0, m.width, m.height, o.Pixels)
	case PushColumn:
		if err := validateIndex(o.Index, m.width, "column index"); err != nil {
			return 0, err
		}
		if len(o.Column) != m.height {
			return 0, fmt.Errorf("column length %d does not match height %d", len(o.Column), m.height)
		}
		if o.Index < m.width-1 {
			for y := 0; y < m.height; y++ {
				copy(grid[y][o.Index+1:], grid[y][o.Index:m.width-1])
			}
		}
		return sanitizeColumn(grid, o.Index, o.Column)
	case ReplaceColumn:
		if err := validateIndex(o.Index, m.width, "column index"); err != nil {
			return 0, err
		}
		if len(o.Column) != m.height {
			return 0, fmt.Errorf("column length %d does not match height %d", len(o.Column), m.height)
		}
		return sanitizeColumn(grid, o.Index, o.Column)
	case PushRow:
		if err := validateIndex(o.Index, m.height, "row index"); err != nil {
			return 0, err
		}
		if len(o.Row) != m.width {
			return 0, fmt.Errorf("row length %d does not match width %d", len(o.Row), m.width)
		}
		if o.Index < m.height-1 {
			copy(grid[o.Index+1:m.height], grid[o.Index:m.height-1])
			// copy shares underlying row slices; make the shifted rows
			// independent before the row below them is overwritten.
			for y := m.height - 1; y > o.Index; y-- {
				grid[y] = append([]RGBA(nil), grid[y]...)
			}
		}
		return sanitizeRow(grid, o.Index, o.Row)
	case ReplaceRow:
		if err := validateIndex(o.Index, m.height, "row index"); err != nil {
			return 0, err
		}
		if len(o.Row) != m.width {
			return 0, fmt.Errorf("row length %d does not match width %d", len(o.Row), m.width)
		}
		return sanitizeRow(grid, o.Index, o.Row)
	case ReplaceRect:
		if err := validateRect(o.X, o.Y, o.Width, o.Height, m.width, m.height); err != nil {
			return 0, err
		}
		if len(o.Pixels) != o.Height {
			return 0, fmt.Errorf("rect has %d rows, expected %d", len(o.Pixels), o.Height)
		}
		return sanitizeInto(grid, o.X, o.Y, o.Width, o.Height, o.Pixels)
	case Multiply:
		return 0, applyMultiply(grid, o.Matrix)
	default:
		return 0, fmt.Errorf("unsupported write op %T", op)
	}
}

func validateIndex(index, upperBound int, label string) error {
	if index < 0 || index >= upperBound {
		return fmt.Errorf("%s out of range: %d", label, index)
	}
	return nil
}

func validateRect(x, y, width, height, matrixWidth, matrixHeight int) error {
	if width <= 0 || height <= 0 {
		return errors.New("rect width/height must be > 0")
	}
	if x < 0 || y < 0 {
		return errors.New("rect x/y must be >= 0")
	}
	if x+width > matrixWidth || y+height > matrixHeight {
		return errors.New("rect exceeds matrix bounds")
	}
	return nil
}

// ErrNonFinitePixel is returned when a write batch contains a pixel
// channel that is NaN or +/-Inf. Unlike an out-of-range finite value
// (which is sanitized to Magenta), a non-finite channel fails the whole
// batch before any grid mutation is committed.
var ErrNonFinitePixel = errors.New("matrix: pixel channel is non-finite (NaN or Inf)")

// channelOutcome distinguishes a cleanly convertible channel from the
// two distinct failure modes sanitizeChannel can report.
type channelOutcome int

const (
	channelOK channelOutcome = iota
	channelOutOfRange
	channelNonFinite
)

func sanitizePixel(v PixelValue) (RGBA, bool, error) {
	r, rk := sanitizeChannel(v.R)
	g, gk := sanitizeChannel(v.G)
	b, bk := sanitizeChannel(v.B)
	a, ak := sanitizeChannel(v.A)
	if rk == channelNonFinite || gk == channelNonFinite || bk == channelNonFinite || ak == channelNonFinite {
		return RGBA{}, false, ErrNonFinitePixel
	}
	if rk == channelOutOfRange || gk == channelOutOfRange || bk == channelOutOfRange || ak == channelOutOfRange {
		return Magenta, true, nil
	}
	return RGBA{R: r, G: g, B: b, A: a}, false, nil
}

func sanitizeChannel(v float64) (uint8, channelOutcome) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, channelNonFinite
	}
	if v < 0 || v > 255 {
		return 0, channelOutOfRange
	}
	return uint8(math.RoundToEven(v)), channelOK
}

func sanitizeInto(grid [][]RGBA, x, y, width, height int, pixels [][]PixelValue) (int, error) {
	offending := 0
	for row := 0; row < height; row++ {
		if len(pixels[row]) != width {
			return 0, fmt.Errorf("row %d has %d pixels, expected %d", row, len(pixels[row]), width)
		}
		for col := 0; col < width; col++ {
			px, bad, err := sanitizePixel(pixels[row][col])
			if err != nil {
				return 0, fmt.Errorf("pixel (%d,%d): %w", x+col, y+row, err)
			}
			if bad {
				offending++
			}
			grid[y+row][x+col] = px
		}
	}
	return offending, nil
}

func sanitizeColumn(grid [][]RGBA, index int, column []PixelValue) (int, error) {
	offending := 0
	for y, v := range column {
		px, bad, err := sanitizePixel(v)
		if err != nil {
			return 0, fmt.Errorf("pixel (%d,%d): %w", index, y, err)
		}
		if bad {
			offending++
		}
		grid[y][index] = px
	}
	return offending, nil
}

func sanitizeRow(grid [][]RGBA, index int, row []PixelValue) (int, error) {
	offending := 0
	for x, v := range row {
		px, bad, err := sanitizePixel(v)
		if err != nil {
			return 0, fmt.Errorf("pixel (%d,%d): %w", x, index, err)
		}
		if bad {
			offending++
		}
		grid[index][x] = px
	}
	return offending, nil
}

func applyMultiply(grid [][]RGBA, cm [4][4]float64) error {
	for i := range cm {
		for j := range cm[i] {
			if math.IsNaN(cm[i][j]) || math.IsInf(cm[i][j], 0) {
				return errors.New("color_matrix must contain only finite values")
			}
		}
	}
	for y := range grid {
		for x := range grid[y] {
			src := fromRGBA(grid[y][x])
			in := [4]float64{src.R, src.G, src.B, src.A}
			var out [4]float64
			for i := 0; i < 4; i++ {
				var sum float64
				for j := 0; j < 4; j++ {
					sum += cm[i][j] * in[j]
				}
				out[i] = clampChannel(sum)
			}
			grid[y][x] = RGBA{R: uint8(out[0]), G: uint8(out[1]), B: uint8(out[2]), A: uint8(out[3])}
		}
	}
	return nil
}

func clampChannel(v float64) float64 {
	v = math.RoundToEven(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
