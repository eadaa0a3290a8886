// Command luvatrix is the reference CLI driving the Unified Runtime:
// run-app launches a manifest-declared app against a terminal render
// target, audit-report summarizes an audit sink, audit-prune trims one
// to a row ceiling.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/0202alcc/luvatrix/app"
	"github.com/0202alcc/luvatrix/audit"
	"github.com/0202alcc/luvatrix/energy"
	"github.com/0202alcc/luvatrix/hdi"
	"github.com/0202alcc/luvatrix/hdi/termsource"
	"github.com/0202alcc/luvatrix/matrix"
	"github.com/0202alcc/luvatrix/render"
	"github.com/0202alcc/luvatrix/runtime"
	"github.com/0202alcc/luvatrix/sensor"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	var err error
	switch strings.ToLower(os.Args[1]) {
	case "run-app":
		err = runApp(os.Args[2:])
	case "audit-report":
		err = auditReport(os.Args[2:])
	case "audit-prune":
		err = auditPrune(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("luvatrix v%s\n", version)
		return
	case "help", "--help", "-h":
		showHelp()
		return
	default:
		fmt.Printf("unknown command: %s\n\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "luvatrix:", err)
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("Usage: luvatrix <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run-app <dir>     Run the app manifest at <dir>")
	fmt.Println("  audit-report      Summarize an audit sink")
	fmt.Println("  audit-prune       Prune an audit sink to a row ceiling")
	fmt.Println("  version           Print the CLI version")
	fmt.Println("  help              Show this help message")
}

func runApp(args []string) error {
	fs := flag.NewFlagSet("run-app", flag.ExitOnError)
	renderBackend := fs.String("render", "terminal", "render backend: terminal")
	sensorBackend := fs.String("sensors", "none", "sensor backend: none, gopsutil")
	ticks := fs.Int("ticks", 600, "maximum ticks to run")
	fps := fs.Int("fps", 60, "target frames per second")
	auditSink := fs.String("audit", "", "path to a JSONL audit sink (empty disables auditing)")
	energyMode := fs.String("energy", "on", "energy safety mode: on, off")
	width := fs.Int("width", 80, "window matrix width in pixels")
	height := fs.Int("height", 48, "window matrix height in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("run-app requires <dir>")
	}
	appDir := fs.Arg(0)

	m, err := matrix.New(*height, *width)
	if err != nil {
		return err
	}

	var target render.Target
	switch *renderBackend {
	case "terminal":
		target = render.NewTerminalTarget(render.WithDoubleBuffer())
	default:
		return fmt.Errorf("unknown render backend: %s", *renderBackend)
	}

	source := termsource.New(nil, "main")
	hdiThread, err := hdi.New(source)
	if err != nil {
		return err
	}

	providers := map[string]sensor.Provider{
		"thermal.temperature":   noopProvider{},
		"power.voltage_current": noopProvider{},
	}
	if *sensorBackend == "gopsutil" {
		providers["thermal.temperature"] = sensor.GopsutilThermalProvider{}
		providers["power.voltage_current"] = sensor.GopsutilCPULoadProvider{}
	}
	sensorMgr, err := sensor.New(providers)
	if err != nil {
		return err
	}

	var auditSinkImpl audit.Sink
	var auditLog func(audit.Entry)
	if *auditSink != "" {
		auditSinkImpl, err = audit.NewJSONLSink(*auditSink)
		if err != nil {
			return err
		}
		defer auditSinkImpl.Close()
		auditLog = func(e audit.Entry) { auditSinkImpl.Log(e) }
	} else {
		auditLog = func(audit.Entry) {}
	}

	var energyController *energy.Controller
	if *energyMode == "on" {
		energyController = energy.New(sensorMgr, energy.WithAuditLogger(func(e energy.AuditEntry) {
			auditLog(audit.Entry{TimestampNS: e.TimestampNS, Action: e.Action, Actor: e.Actor})
		}))
	}

	registry := app.NewRegistry()
	registry.Register("builtin:noop", func() app.Lifecycle { return noopLifecycle{} })

	capabilities := app.NewCapabilityResolver(app.AllowAllCapabilities, func(action, capability string) {
		auditLog(audit.Entry{TimestampNS: time.Now().UnixNano(), Action: action, Actor: "app_runtime", Payload: map[string]any{"capability": capability}})
	})
	securityAuditor := func(action, sensorType string) {
		auditLog(audit.Entry{TimestampNS: time.Now().UnixNano(), Action: action, SensorType: sensorType, Actor: "app_context"})
	}

	rt := runtime.New(m, target, hdiThread, sensorMgr, registry, capabilities, securityAuditor, energyController)
	result, err := rt.RunApp(appDir, *ticks, *fps, 0)
	if err != nil {
		return err
	}
	fmt.Printf("ticks=%d frames=%d target_close=%v energy_shutdown=%v\n",
		result.TicksRun, result.FramesPresented, result.StoppedByTargetClose, result.StoppedByEnergySafety)
	return nil
}

func auditReport(args []string) error {
	fs := flag.NewFlagSet("audit-report", flag.ExitOnError)
	path := fs.String("path", "", "path to a JSONL audit sink")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("audit-report requires -path")
	}
	sink, err := audit.NewJSONLSink(*path)
	if err != nil {
		return err
	}
	defer sink.Close()
	summary, err := sink.Summarize()
	if err != nil {
		return err
	}
	fmt.Printf("total=%d\n", summary.Total)
	for action, count := range summary.ByAction {
		fmt.Printf("  action=%-24s %d\n", action, count)
	}
	for sensorType, count := range summary.BySensor {
		fmt.Printf("  sensor=%-24s %d\n", sensorType, count)
	}
	return nil
}

func auditPrune(args []string) error {
	fs := flag.NewFlagSet("audit-prune", flag.ExitOnError)
	path := fs.String("path", "", "path to a JSONL audit sink")
	maxRows := fs.Int("max-rows", 10000, "maximum rows to retain")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("audit-prune requires -path")
	}
	sink, err := audit.NewJSONLSink(*path)
	if err != nil {
		return err
	}
	defer sink.Close()
	dropped, err := sink.Prune(*maxRows)
	if err != nil {
		return err
	}
	fmt.Printf("dropped=%d\n", dropped)
	return nil
}

type noopProvider struct{}

func (noopProvider) Read() (any, string, error) {
	return nil, "", sensor.ErrSensorReadUnavailable
}

// noopLifecycle is a minimal reference lifecycle for smoke-testing the
// runtime when no real app is registered; it renders nothing and never
// reads HDI or sensors.
type noopLifecycle struct{}

func (noopLifecycle) Init(ctx *app.Context) error           { return nil }
func (noopLifecycle) Loop(ctx *app.Context, dt float64) error { return nil }
func (noopLifecycle) Stop(ctx *app.Context) error            { return nil }
