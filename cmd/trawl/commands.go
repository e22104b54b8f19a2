// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"
)

var (
	runConfigPath string
	runOutputPath string
	runKeepData   bool
	runJobs       int
	verbose       bool

	rootCmd = &cobra.Command{
		Use:   "trawl",
		Short: "A cli to benchmark ML pipelines across datasets, seeds and grids",
		Long: `Trawl sweeps the cross product of random seeds, datasets and
estimator configurations, scoring every combination with seeded
cross validation and collecting the results for later analysis.`,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the experiment described by a scenario file",
		RunE:  runExperiment,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect [results.json]",
		Short: "Summarize a persisted experiment: scores, rankings, Friedman test",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectResults,
	}
)

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to the scenario YAML file (required)")
	runCmd.Flags().StringVar(&runOutputPath, "output", "", "Override the scenario's output path")
	runCmd.Flags().BoolVar(&runKeepData, "keep-datasets", false, "Keep raw datasets in the saved snapshot")
	runCmd.Flags().IntVar(&runJobs, "jobs", 0, "Override the scenario's grid-search parallelism")
	_ = runCmd.MarkFlagRequired("config")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
}
