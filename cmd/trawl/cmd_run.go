// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/trawl/pkg/crossval"
	"github.com/AleutianAI/trawl/pkg/dataset"
	"github.com/AleutianAI/trawl/pkg/experiment"
	"github.com/AleutianAI/trawl/pkg/logging"
	"github.com/AleutianAI/trawl/pkg/scoring"
)

func runExperiment(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	scenario, err := loadScenario(runConfigPath)
	if err != nil {
		return err
	}
	if runOutputPath != "" {
		scenario.Output = runOutputPath
	}
	if runKeepData {
		scenario.KeepDatasets = true
	}
	if runJobs > 0 {
		scenario.Jobs = runJobs
	}

	collection, err := dataset.LoadDir(scenario.DatasetsDir)
	if err != nil {
		return err
	}
	logger.Info("datasets loaded", "dir", scenario.DatasetsDir, "count", collection.Len())
	for _, summary := range collection.Summaries() {
		logger.Debug("dataset",
			"name", summary.Name,
			"rows", summary.Rows,
			"features", summary.Features,
			"classes", summary.Classes,
			"imbalance_ratio", summary.ImbalanceRatio,
		)
	}

	specs, err := scenario.Specs()
	if err != nil {
		return err
	}

	opts := []experiment.Option{
		experiment.WithLogger(logger),
		experiment.WithRepetitions(scenario.Repetitions),
		experiment.WithCV(crossval.Spec{Folds: scenario.Folds}),
		experiment.WithJobs(scenario.Jobs),
	}
	if scenario.Seed != nil {
		opts = append(opts, experiment.WithRandomState(experiment.Seeded(*scenario.Seed)))
	}
	if len(scenario.Metrics) > 0 {
		spec, err := scoring.Metrics(scenario.Metrics...)
		if err != nil {
			return err
		}
		opts = append(opts, experiment.WithScoring(spec))
	}
	if scenario.QuietDiagnostics {
		opts = append(opts, experiment.WithQuietDiagnostics())
	}

	exp := experiment.New(collection, specs, opts...)
	logger.Info("scenario ready",
		"name", scenario.Name,
		"total_iterations", exp.TotalIterations(),
	)

	runErr := exp.Run(cmd.Context())
	if runErr != nil {
		logger.Error("run aborted, saving partial results", "error", runErr)
	}
	if err := exp.Save(scenario.Output, scenario.KeepDatasets); err != nil {
		return fmt.Errorf("saving results: %w", err)
	}
	logger.Info("results saved", "path", scenario.Output, "records", len(exp.Results()))
	return runErr
}

func newLogger() *logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{Level: level, Service: "trawl"})
}
