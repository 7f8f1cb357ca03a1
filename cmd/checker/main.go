// cmd/checker/main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pathfinder-checker/internal/common/config"
	"pathfinder-checker/internal/common/logger"
	"pathfinder-checker/internal/common/observability"
	"pathfinder-checker/internal/orchestrator"
)

func main() {
	configPath := flag.String("config", "", "path to a checker configuration file (overrides discovery)")
	metricsAddr := flag.String("metrics", "", "address to expose Prometheus metrics on (empty disables)")
	flag.Parse()

	var (
		settings *config.Settings
		err      error
	)
	if *configPath != "" {
		settings, err = config.LoadFromFile(*configPath)
	} else {
		settings, err = config.Load()
	}
	if err != nil {
		bootstrap := logger.New("stderr", false)
		bootstrap.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(settings.Log, settings.VerboseLog)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New("pathfinder-checker")
	defer obs.Shutdown()

	if *metricsAddr != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
				log.Warn("metrics endpoint stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	zapLog.Info("starting conformance run",
		zap.String("authContextPath", settings.AuthContextPath),
		zap.String("dataContextPath", settings.DataContextPath),
		zap.String("specVersion", settings.SpecVersion()),
	)

	orch := orchestrator.New(settings, log, obs)
	summary, err := orch.Run(context.Background())
	if err != nil {
		log.Error("conformance run aborted", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	zapLog.Info("conformance run finished",
		zap.Int("checks", len(summary.Results)),
		zap.Int("failed", summary.Failed),
	)
	if !summary.Passed() {
		os.Exit(1)
	}

	// Keep serving stub traffic when the run was asked to leave the stub up.
	if settings.EventsSupport && settings.KeepStub {
		zapLog.Info("stub server left running, press Ctrl+C to exit")
		select {}
	}
}
