package display

import (
	"testing"
	"time"

	"github.com/0202alcc/luvatrix/matrix"
	"github.com/0202alcc/luvatrix/render"
)

type fakeTarget struct {
	started  bool
	stopped  bool
	frames   []render.Frame
	close    bool
}

func (f *fakeTarget) Start() error { f.started = true; return nil }
func (f *fakeTarget) Stop() error  { f.stopped = true; return nil }
func (f *fakeTarget) PresentFrame(frame render.Frame) error {
	f.frames = append(f.frames, frame)
	return nil
}
func (f *fakeTarget) ShouldClose() bool { return f.close }

func TestRunOnceReturnsNilWithoutCommit(t *testing.T) {
	m, _ := matrix.New(1, 1)
	target := &fakeTarget{}
	rt := New(m, target)
	tick, err := rt.RunOnce(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick != nil {
		t.Fatal("expected nil tick with no commit event pending")
	}
}

func TestRunOnceCoalescesToNewestRevision(t *testing.T) {
	m, _ := matrix.New(1, 1)
	target := &fakeTarget{}
	rt := New(m, target)

	pixels := [][]matrix.PixelValue{{{R: 1, G: 1, B: 1, A: 255}}}
	for i := 0; i < 3; i++ {
		if _, _, err := m.SubmitWriteBatch(matrix.WriteBatch{Operations: []matrix.WriteOp{matrix.FullRewrite{Pixels: pixels}}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	tick, err := rt.RunOnce(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tick == nil {
		t.Fatal("expected a tick")
	}
	if tick.Event.Revision != 3 {
		t.Fatalf("revision = %d, want 3 (newest)", tick.Event.Revision)
	}
	if len(target.frames) != 1 {
		t.Fatalf("frames presented = %d, want exactly 1", len(target.frames))
	}
}

func TestStartStopLifecycle(t *testing.T) {
	m, _ := matrix.New(1, 1)
	target := &fakeTarget{}
	rt := New(m, target)

	if err := rt.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !target.started {
		t.Fatal("expected target to be started")
	}
	if err := rt.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !target.stopped {
		t.Fatal("expected target to be stopped")
	}
}

func TestRunMainThreadExitsOnShouldClose(t *testing.T) {
	m, _ := matrix.New(1, 1)
	target := &fakeTarget{close: true}
	rt := New(m, target)

	done := make(chan error, 1)
	go func() { done <- rt.RunMainThread(10*time.Millisecond, time.Millisecond) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunMainThread did not exit on ShouldClose")
	}
}
