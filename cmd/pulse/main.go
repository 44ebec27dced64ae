// Command pulse runs a JSON-encoded test plan and streams its event
// log to stdout, one JSON object per line. It is a harness for
// driving the execution engine, not a plan-authoring tool: building
// and editing plans is out of scope here.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pulseload/pulse/internal/engine"
	"github.com/pulseload/pulse/internal/plan"
	"github.com/pulseload/pulse/internal/results"
	"github.com/pulseload/pulse/internal/sysmon"
	"github.com/pulseload/pulse/internal/telemetry"
	"github.com/pulseload/pulse/pkg/config"
	"github.com/pulseload/pulse/pkg/logging"
)

func main() {
	planPath := flag.String("plan", "", "path to a JSON-encoded test plan (required)")
	configPath := flag.String("config", "", "path to a YAML configuration file (overrides PULSE_CONFIG_FILE)")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")
	flag.Parse()

	if *planPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -plan is required")
		flag.Usage()
		os.Exit(2)
	}

	if *configPath != "" {
		os.Setenv("PULSE_CONFIG_FILE", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New("pulse", cfg.Logging.Level, cfg.Logging.Format)

	testPlan, err := loadPlan(*planPath)
	if err != nil {
		logger.WithError(err).Fatal(fmt.Sprintf("load test plan %s", *planPath))
	}

	metrics := telemetry.Init(testPlan.Name)
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SysMon.Enabled {
		samples := make(chan sysmon.Sample, 16)
		go sysmon.Run(ctx, cfg.SysMon.SampleInterval, samples, logger)
		go func() {
			for s := range samples {
				logger.WithContext(ctx).WithFields(map[string]interface{}{
					"cpu_percent": s.CPUPercent,
					"mem_percent": s.MemUsedPercent,
				}).Debug("sysmon sample")
			}
		}()
	}

	engineCfg := engine.Config{
		Client:           cfg.HTTP.ToClientConfig(),
		ProgressInterval: cfg.Runtime.ProgressInterval,
		EventBuffer:      cfg.Runtime.EventBuffer,
		BodyPreviewBytes: cfg.Runtime.BodyPreviewBytes,
	}

	handle := engine.Run(ctx, testPlan, engineCfg, metrics, logger)

	encoder := json.NewEncoder(os.Stdout)
	var exitCode int
	for event := range handle.Events {
		if err := encoder.Encode(eventEnvelope(event)); err != nil {
			logger.WithError(err).Warn("failed to encode event")
		}
		if sc, ok := event.(results.StatusChangeEvent); ok && sc.Status == results.StatusError {
			exitCode = 1
		}
	}

	os.Exit(exitCode)
}

func loadPlan(path string) (*plan.TestPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan file: %w", err)
	}
	var testPlan plan.TestPlan
	if err := json.Unmarshal(data, &testPlan); err != nil {
		return nil, fmt.Errorf("parse plan file: %w", err)
	}
	return &testPlan, nil
}

// eventEnvelope tags an event's dynamic type for JSON output, since
// results.Event carries no discriminator field of its own.
func eventEnvelope(event results.Event) map[string]interface{} {
	switch e := event.(type) {
	case results.StatusChangeEvent:
		return map[string]interface{}{"type": "status_change", "data": e}
	case results.ProgressEvent:
		return map[string]interface{}{"type": "progress", "data": e}
	case results.RequestResultEvent:
		return map[string]interface{}{"type": "request_result", "data": e}
	case results.CompleteEvent:
		return map[string]interface{}{"type": "complete", "data": e}
	default:
		return map[string]interface{}{"type": "unknown"}
	}
}

func serveMetrics(addr string, logger *logging.Logger) {
	if err := telemetry.ListenAndServe(addr, telemetry.Handler()); err != nil {
		logger.WithError(err).Error("metrics server exited")
	}
}
