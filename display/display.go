// Package display implements the Display Runtime: a consumer that
// coalesces Window Matrix commit events and hands the newest frame to a
// render target.
package display

import (
	"errors"
	"sync"
	"time"

	"github.com/0202alcc/luvatrix/matrix"
	"github.com/0202alcc/luvatrix/render"
)

// Tick describes one successful run_once call.
type Tick struct {
	Event matrix.CommitEvent
	Frame render.Frame
}

// Runtime consumes matrix commit events and forwards coalesced frames to
// a render target.
type Runtime struct {
	matrix *matrix.Matrix
	target render.Target

	runMu         sync.Mutex
	running       bool
	targetStarted bool
	stopCh        chan struct{}
	doneCh        chan struct{}

	errMu     sync.Mutex
	lastError error
}

// New constructs a Runtime over matrix, presenting to target.
func New(m *matrix.Matrix, target render.Target) *Runtime {
	return &Runtime{matrix: m, target: target}
}

// Start starts the render target and launches the background render
// loop. Calling Start while already running is a no-op.
func (r *Runtime) Start() error {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if r.running {
		return nil
	}
	if err := r.target.Start(); err != nil {
		return err
	}
	r.targetStarted = true
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	go r.runLoop(r.stopCh, r.doneCh)
	return nil
}

// Stop signals the background loop to exit, waits for it, and stops the
// render target exactly once.
func (r *Runtime) Stop() error {
	r.runMu.Lock()
	running := r.running
	stopCh, doneCh := r.stopCh, r.doneCh
	r.running = false
	r.runMu.Unlock()

	if running {
		close(stopCh)
		<-doneCh
	}

	r.runMu.Lock()
	targetStarted := r.targetStarted
	r.targetStarted = false
	r.runMu.Unlock()

	if targetStarted {
		return r.target.Stop()
	}
	return nil
}

// RunMainThread runs the render loop on the calling goroutine, pumping
// target events and stopping when the target reports close. Intended for
// windowing systems that require their event loop on a specific thread.
func (r *Runtime) RunMainThread(timeout time.Duration, idleSleep time.Duration) error {
	if idleSleep < 0 {
		return errors.New("display: idleSleep must be >= 0")
	}
	r.runMu.Lock()
	if r.targetStarted {
		r.runMu.Unlock()
		return errors.New("display: runtime target is already started")
	}
	if err := r.target.Start(); err != nil {
		r.runMu.Unlock()
		return err
	}
	r.targetStarted = true
	r.running = true
	r.runMu.Unlock()

	defer r.Stop()

	for {
		r.runMu.Lock()
		running := r.running
		r.runMu.Unlock()
		if !running {
			return nil
		}

		render.PumpEvents(r.target)
		if render.ShouldClose(r.target) {
			r.runMu.Lock()
			r.running = false
			r.runMu.Unlock()
			return nil
		}

		tick, err := r.RunOnce(timeout)
		if err != nil {
			r.setError(err)
			return err
		}
		if tick == nil && idleSleep > 0 {
			time.Sleep(idleSleep)
		}
	}
}

func (r *Runtime) runLoop(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			return
		default:
		}

		render.PumpEvents(r.target)
		if render.ShouldClose(r.target) {
			r.runMu.Lock()
			r.running = false
			r.runMu.Unlock()
			return
		}

		if _, err := r.RunOnce(100 * time.Millisecond); err != nil {
			r.setError(err)
			r.runMu.Lock()
			r.running = false
			r.runMu.Unlock()
			return
		}
	}
}

// RunOnce pops one commit event (waiting up to timeout if none is
// pending), drains every further queued event non-blocking and keeps the
// newest, then presents a snapshot at that revision. Returns nil if no
// event was available within timeout.
func (r *Runtime) RunOnce(timeout time.Duration) (*Tick, error) {
	event, ok := r.matrix.PopCommitEvent(timeout)
	if !ok {
		return nil, nil
	}

	for {
		newer, ok := r.matrix.PopCommitEvent(0)
		if !ok {
			break
		}
		event = newer
	}

	snapshot := r.matrix.ReadSnapshot()
	frame := render.Frame{
		Revision: event.Revision,
		Width:    r.matrix.Width(),
		Height:   r.matrix.Height(),
		RGBA:     snapshot,
	}
	if err := r.target.PresentFrame(frame); err != nil {
		return nil, err
	}
	return &Tick{Event: event, Frame: frame}, nil
}

// LastError returns the error that stopped the background render loop,
// if any.
func (r *Runtime) LastError() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.lastError
}

func (r *Runtime) setError(err error) {
	r.errMu.Lock()
	r.lastError = err
	r.errMu.Unlock()
}
