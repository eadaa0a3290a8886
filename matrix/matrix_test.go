package matrix

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewValidatesDimensions(t *testing.T) {
	if _, err := New(0, 4); err == nil {
		t.Fatal("expected error for zero height")
	}
	if _, err := New(4, 0); err == nil {
		t.Fatal("expected error for zero width")
	}
	m, err := New(2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Height() != 2 || m.Width() != 3 {
		t.Fatalf("got %dx%d, want 2x3", m.Height(), m.Width())
	}
	if m.Revision() != 0 {
		t.Fatalf("initial revision = %d, want 0", m.Revision())
	}
}

func TestSubmitWriteBatchFullRewriteAndRevision(t *testing.T) {
	m, _ := New(2, 2)
	pixels := [][]PixelValue{
		{{R: 10, G: 20, B: 30, A: 255}, {R: 40, G: 50, B: 60, A: 255}},
		{{R: 70, G: 80, B: 90, A: 255}, {R: 100, G: 110, B: 120, A: 255}},
	}
	event, sanitized, err := m.SubmitWriteBatch(WriteBatch{Operations: []WriteOp{FullRewrite{Pixels: pixels}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sanitized != 0 {
		t.Fatalf("sanitized = %d, want 0", sanitized)
	}
	if event.Revision != 1 {
		t.Fatalf("revision = %d, want 1", event.Revision)
	}
	snap := m.ReadSnapshot()
	if snap[0][0] != (RGBA{10, 20, 30, 255}) {
		t.Fatalf("snapshot[0][0] = %+v", snap[0][0])
	}
}

func TestSubmitWriteBatchSanitizesOutOfRangeFinitePixels(t *testing.T) {
	m, _ := New(1, 1)
	pixels := [][]PixelValue{{{R: 999, G: 0, B: 0, A: 255}}}
	_, sanitized, err := m.SubmitWriteBatch(WriteBatch{Operations: []WriteOp{FullRewrite{Pixels: pixels}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sanitized != 1 {
		t.Fatalf("sanitized = %d, want 1", sanitized)
	}
	snap := m.ReadSnapshot()
	if snap[0][0] != Magenta {
		t.Fatalf("snapshot[0][0] = %+v, want magenta sentinel", snap[0][0])
	}
}

func TestSubmitWriteBatchRejectsNonFinitePixels(t *testing.T) {
	m, _ := New(1, 1)
	pixels := [][]PixelValue{{{R: math.NaN(), G: 0, B: 0, A: 255}}}
	_, _, err := m.SubmitWriteBatch(WriteBatch{Operations: []WriteOp{FullRewrite{Pixels: pixels}}})
	if !errors.Is(err, ErrNonFinitePixel) {
		t.Fatalf("err = %v, want ErrNonFinitePixel", err)
	}
	if m.Revision() != 0 {
		t.Fatalf("revision = %d, want 0 (batch must leave the matrix untouched)", m.Revision())
	}

	infPixels := [][]PixelValue{{{R: 0, G: math.Inf(1), B: 0, A: 255}}}
	_, _, err = m.SubmitWriteBatch(WriteBatch{Operations: []WriteOp{FullRewrite{Pixels: infPixels}}})
	if !errors.Is(err, ErrNonFinitePixel) {
		t.Fatalf("err = %v, want ErrNonFinitePixel for +Inf channel", err)
	}
}

func TestPushRowShiftsAndDoesNotAliasRows(t *testing.T) {
	m, _ := New(3, 2)
	first := [][]PixelValue{
		{{R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}},
		{{R: 2, G: 2, B: 2, A: 255}, {R: 2, G: 2, B: 2, A: 255}},
		{{R: 3, G: 3, B: 3, A: 255}, {R: 3, G: 3, B: 3, A: 255}},
	}
	if _, _, err := m.SubmitWriteBatch(WriteBatch{Operations: []WriteOp{FullRewrite{Pixels: first}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newRow := []PixelValue{{R: 9, G: 9, B: 9, A: 255}, {R: 9, G: 9, B: 9, A: 255}}
	if _, _, err := m.SubmitWriteBatch(WriteBatch{Operations: []WriteOp{PushRow{Index: 0, Row: newRow}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := m.ReadSnapshot()
	if snap[0][0] != (RGBA{9, 9, 9, 255}) {
		t.Fatalf("row 0 = %+v, want pushed row", snap[0][0])
	}
	if snap[1][0] != (RGBA{1, 1, 1, 255}) {
		t.Fatalf("row 1 = %+v, want old row 0", snap[1][0])
	}
	if snap[2][0] != (RGBA{2, 2, 2, 255}) {
		t.Fatalf("row 2 = %+v, want old row 1", snap[2][0])
	}

	// Mutating the returned snapshot must not affect the matrix's
	// internal state (rows must not alias after the shift).
	snap[1][0] = RGBA{255, 255, 255, 255}
	snap2 := m.ReadSnapshot()
	if snap2[1][0] == (RGBA{255, 255, 255, 255}) {
		t.Fatal("snapshot mutation leaked into matrix state")
	}
}

func TestPopCommitEventTimesOutWhenEmpty(t *testing.T) {
	m, _ := New(1, 1)
	start := time.Now()
	_, ok := m.PopCommitEvent(20 * time.Millisecond)
	if ok {
		t.Fatal("expected no event")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("returned before timeout elapsed")
	}
}

func TestPopCommitEventWakesOnCommit(t *testing.T) {
	m, _ := New(1, 1)
	done := make(chan CommitEvent, 1)
	go func() {
		event, ok := m.PopCommitEvent(time.Second)
		if ok {
			done <- event
		}
	}()

	time.Sleep(10 * time.Millisecond)
	pixels := [][]PixelValue{{{R: 1, G: 2, B: 3, A: 255}}}
	if _, _, err := m.SubmitWriteBatch(WriteBatch{Operations: []WriteOp{FullRewrite{Pixels: pixels}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case event := <-done:
		if event.Revision != 1 {
			t.Fatalf("revision = %d, want 1", event.Revision)
		}
	case <-time.After(time.Second):
		t.Fatal("PopCommitEvent did not wake on commit")
	}
}

func TestQueueDropsOldestOnOverflow(t *testing.T) {
	m, err := New(1, 1, WithQueueDepth(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pixels := [][]PixelValue{{{R: 1, G: 1, B: 1, A: 255}}}
	for i := 0; i < 3; i++ {
		if _, _, err := m.SubmitWriteBatch(WriteBatch{Operations: []WriteOp{FullRewrite{Pixels: pixels}}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if m.DroppedEventCount() != 2 {
		t.Fatalf("dropped = %d, want 2", m.DroppedEventCount())
	}
	event, ok := m.PopCommitEvent(0)
	if !ok {
		t.Fatal("expected a queued event")
	}
	if event.Revision != 3 {
		t.Fatalf("revision = %d, want newest (3)", event.Revision)
	}
}
