package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/config"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/pipeline"
)

// pipeline runs one batch cycle against a running API: price refresh,
// snapshot sweep and alert check. Exit code 2 means the run completed with
// failed steps.
func main() {
	cfg, err := config.LoadPipelineClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("ENV"), cfg.LogLevel)
	defer logger.Sync()
	log := logger.Named("pipeline")

	client := pipeline.NewClient(cfg.APIURL, cfg.APIKey, &http.Client{Timeout: cfg.RequestTimeout})
	runner := pipeline.NewRunner(client, pipeline.Steps{
		RefreshPrices:   cfg.RefreshPrices,
		RecordSnapshots: cfg.RecordSnapshots,
		CheckAlerts:     cfg.CheckAlerts,
	}, log)

	result, err := runner.Run(context.Background())
	if err != nil {
		log.Errorw("Pipeline run failed", "error", err)
		logger.Sync()
		os.Exit(1)
	}

	log.Infow("Pipeline run completed", "errors", len(result.Errors), "duration", result.Duration.String())
	for _, stepErr := range result.Errors {
		log.Warnw("Step failed", "step", stepErr.Step, "error", stepErr.Err.Error())
	}

	if result.Failed() {
		logger.Sync()
		os.Exit(2)
	}
}
