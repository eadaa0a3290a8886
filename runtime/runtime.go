// Package runtime implements the Unified Runtime: the single-threaded
// loop that starts the render target, HDI thread, and sensor manager,
// runs one app's lifecycle against an AppContext each tick interleaved
// with energy safety evaluation and frame presentation, and tears every
// subsystem down in reverse order regardless of how the loop exits.
package runtime

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/0202alcc/luvatrix/app"
	"github.com/0202alcc/luvatrix/display"
	"github.com/0202alcc/luvatrix/energy"
	"github.com/0202alcc/luvatrix/hdi"
	"github.com/0202alcc/luvatrix/logx"
	"github.com/0202alcc/luvatrix/matrix"
	"github.com/0202alcc/luvatrix/render"
	"github.com/0202alcc/luvatrix/sensor"
)

// sensorCapabilityMapping maps a coarse sensor capability to the sensor
// type it auto-enables at launch.
var sensorCapabilityMapping = map[string]string{
	"sensor.thermal": "thermal.temperature",
	"sensor.power":   "power.voltage_current",
	"sensor.motion":  "sensor.motion",
}

// Result summarizes one RunApp call.
type Result struct {
	TicksRun              int
	FramesPresented       int
	StoppedByTargetClose  bool
	StoppedByEnergySafety bool
}

// Runtime ties the window matrix, a render target, the HDI thread, and
// the sensor manager to one app's lifecycle.
type Runtime struct {
	matrix   *matrix.Matrix
	target   render.Target
	hdi      *hdi.Thread
	sensors  *sensor.Manager
	registry *app.Registry
	display  *display.Runtime

	capabilities *app.CapabilityResolver
	securityAuditor app.SecurityAuditLogger
	energySafety    *energy.Controller

	lastError error
}

// New constructs a Runtime. capabilities may be nil to grant every
// requested capability; energySafety may be nil to skip thermal/power
// gating entirely.
func New(m *matrix.Matrix, target render.Target, h *hdi.Thread, sensors *sensor.Manager, registry *app.Registry, capabilities *app.CapabilityResolver, securityAuditor app.SecurityAuditLogger, energySafety *energy.Controller) *Runtime {
	if capabilities == nil {
		capabilities = app.NewCapabilityResolver(app.AllowAllCapabilities, nil)
	}
	return &Runtime{
		matrix:          m,
		target:          target,
		hdi:             h,
		sensors:         sensors,
		registry:        registry,
		display:         display.New(m, target),
		capabilities:    capabilities,
		securityAuditor: securityAuditor,
		energySafety:    energySafety,
	}
}

// LastError returns the error that caused the loop to exit, if any.
func (r *Runtime) LastError() error {
	return r.lastError
}

// RunApp loads the app at appDir, resolves its capabilities and
// platform variant, and runs its lifecycle for up to maxTicks ticks at
// targetFPS, presenting frames with displayTimeout patience each tick.
func (r *Runtime) RunApp(appDir string, maxTicks, targetFPS int, displayTimeout time.Duration) (Result, error) {
	var result Result
	if maxTicks <= 0 {
		return result, fmt.Errorf("runtime: maxTicks must be > 0")
	}
	if targetFPS <= 0 {
		return result, fmt.Errorf("runtime: targetFPS must be > 0")
	}

	manifest, err := app.LoadManifest(appDir)
	if err != nil {
		return result, err
	}
	if err := app.ValidateManifest(manifest); err != nil {
		return result, err
	}
	variant, err := app.ResolveVariant(manifest, appDir)
	if err != nil {
		return result, err
	}
	granted, err := r.capabilities.Resolve(manifest)
	if err != nil {
		return result, err
	}
	lifecycle, err := r.registry.Build(variant.Entrypoint)
	if err != nil {
		return result, err
	}

	ctx := app.NewContext(r.matrix, r.hdi, r.sensors, manifest.AppID, granted, r.securityAuditor)
	r.enableGrantedSensors(granted)

	log := logx.WithFields(logx.AppFields(manifest.AppID))
	log.Info("starting app %q (entrypoint %s)", manifest.AppID, variant.Entrypoint)

	targetDT := time.Second / time.Duration(targetFPS)

	if err := r.startSubsystems(); err != nil {
		log.WarnIf(err, "subsystem startup failed")
		return result, err
	}

	defer func() {
		teardownErr := r.teardown(lifecycle, ctx)
		if teardownErr != nil {
			r.lastError = multierr.Append(r.lastError, teardownErr)
			log.WarnIf(teardownErr, "teardown reported errors")
		}
	}()

	if err := lifecycle.Init(ctx); err != nil {
		r.lastError = err
		log.WarnIf(err, "app init failed")
		return result, err
	}

	last := time.Now()
	for tick := 0; tick < maxTicks; tick++ {
		render.PumpEvents(r.target)
		if render.ShouldClose(r.target) {
			result.StoppedByTargetClose = true
			break
		}

		now := time.Now()
		dt := now.Sub(last).Seconds()
		if dt < 0 {
			dt = 0
		}
		last = now

		throttle := 1.0
		if r.energySafety != nil {
			decision := r.energySafety.Evaluate()
			if decision.ThrottleMultiplier > throttle {
				throttle = decision.ThrottleMultiplier
			}
			if decision.ShouldShutdown {
				result.StoppedByEnergySafety = true
				break
			}
		}

		if err := lifecycle.Loop(ctx, dt); err != nil {
			r.lastError = err
			return result, err
		}
		result.TicksRun++

		tickResult, err := r.display.RunOnce(displayTimeout)
		if err != nil {
			r.lastError = err
			return result, err
		}
		if tickResult != nil {
			result.FramesPresented++
		}

		elapsed := time.Since(now)
		sleepFor := time.Duration(float64(targetDT)*throttle) - elapsed
		if sleepFor > 0 {
			time.Sleep(sleepFor)
		}
	}

	log.Info("app %q finished: ticks=%d frames=%d", manifest.AppID, result.TicksRun, result.FramesPresented)
	return result, nil
}

// startSubsystems starts the render target, HDI thread, and sensor
// manager concurrently, aggregating any startup error the way
// flowfx.Parallel aggregates task errors with errgroup+multierr.
func (r *Runtime) startSubsystems() error {
	var g errgroup.Group
	var mu sync.Mutex
	var allErrors error

	g.Go(func() error {
		if err := r.target.Start(); err != nil {
			mu.Lock()
			allErrors = multierr.Append(allErrors, err)
			mu.Unlock()
			return err
		}
		return nil
	})
	g.Go(func() error {
		r.hdi.Start()
		return nil
	})
	g.Go(func() error {
		r.sensors.Start()
		return nil
	})

	if err := g.Wait(); err != nil {
		return allErrors
	}
	return nil
}

func (r *Runtime) teardown(lifecycle app.Lifecycle, ctx *app.Context) error {
	var err error
	if stopErr := lifecycle.Stop(ctx); stopErr != nil {
		err = multierr.Append(err, stopErr)
	}

	var g errgroup.Group
	g.Go(func() error { r.hdi.Stop(); return nil })
	g.Go(func() error { r.sensors.Stop(); return nil })
	g.Wait()

	if stopErr := r.target.Stop(); stopErr != nil {
		err = multierr.Append(err, stopErr)
	}
	return err
}

func (r *Runtime) enableGrantedSensors(granted []string) {
	grantedSet := make(map[string]bool, len(granted))
	for _, c := range granted {
		grantedSet[c] = true
	}
	for capability, sensorType := range sensorCapabilityMapping {
		if grantedSet[capability] {
			r.sensors.SetSensorEnabled(sensorType, true, "unified_runtime")
		}
	}
}
