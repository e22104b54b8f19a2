// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/trawl/pkg/analysis"
	"github.com/AleutianAI/trawl/pkg/experiment"
)

func inspectResults(cmd *cobra.Command, args []string) error {
	exp, err := experiment.Load(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d records, metrics %v\n\n",
		exp.RunID(), len(exp.Results()), exp.MetricNames())

	scores, err := analysis.Summarize(exp.Results(), exp.MetricNames())
	if err != nil {
		if errors.Is(err, analysis.ErrNoRecords) {
			fmt.Fprintln(out, "no results to summarize")
			return nil
		}
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATASET\tESTIMATOR\tMETRIC\tMEAN\tSTD\tRUNS")
	for _, s := range scores {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4f\t%.4f\t%d\n",
			s.Dataset, s.Estimator, s.Metric, s.Mean, s.Std, s.Runs)
	}
	w.Flush()

	fmt.Fprintln(out, "\nRankings (1 = best):")
	for _, r := range analysis.Rank(scores) {
		names := make([]string, 0, len(r.Positions))
		for name := range r.Positions {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool { return r.Positions[names[i]] < r.Positions[names[j]] })
		fmt.Fprintf(out, "  %s / %s:", r.Dataset, r.Metric)
		for _, name := range names {
			fmt.Fprintf(out, " %s=%.1f", name, r.Positions[name])
		}
		fmt.Fprintln(out)
	}

	friedman, err := analysis.Friedman(scores)
	if err != nil {
		// Not every snapshot has enough datasets or estimators for the
		// test; the summary above is still useful on its own.
		fmt.Fprintf(out, "\nFriedman test skipped: %v\n", err)
		return nil
	}
	fmt.Fprintln(out, "\nFriedman test:")
	for _, f := range friedman {
		fmt.Fprintf(out, "  %s: chi2=%.4f p=%.4f (%d datasets, %d estimators)\n",
			f.Metric, f.Statistic, f.PValue, f.Datasets, f.Estimators)
	}
	return nil
}
