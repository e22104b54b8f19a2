// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analysis aggregates the score records an experiment run
// produced: per-cell means and standard deviations across repetitions,
// per-dataset estimator rankings, and a Friedman test across datasets.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/AleutianAI/trawl/pkg/experiment"
)

var (
	// ErrNoRecords indicates there is nothing to aggregate.
	ErrNoRecords = errors.New("no score records")

	// ErrUnbalanced indicates the (dataset, estimator) score table has
	// holes, which the rank-based tests cannot tolerate.
	ErrUnbalanced = errors.New("score table is not rectangular")

	// ErrTooSmall indicates too few estimators or datasets for the
	// requested test.
	ErrTooSmall = errors.New("too few estimators or datasets")
)

// Score is one aggregated cell: an estimator's performance on one
// dataset under one metric, summarized across repetitions. Each
// repetition contributes its best grid point's cross-validated mean.
type Score struct {
	Dataset   string  `json:"dataset"`
	Estimator string  `json:"estimator"`
	Metric    string  `json:"metric"`
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Runs      int     `json:"runs"`
}

// Summarize aggregates records into one Score per (dataset, estimator,
// metric) cell, ordered by dataset, then estimator, then metric. A
// record contributes the mean score of its best grid point; records
// whose search lacks the metric are skipped.
func Summarize(records []experiment.ScoreRecord, metrics []string) ([]Score, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	type cellKey struct{ dataset, estimator, metric string }
	cells := map[cellKey][]float64{}
	for _, rec := range records {
		if rec.Search == nil {
			continue
		}
		for _, metric := range metrics {
			best, ok := rec.Search.Best(metric)
			if !ok {
				continue
			}
			key := cellKey{rec.DatasetName, rec.EstimatorName, metric}
			cells[key] = append(cells[key], best.MeanScores[metric])
		}
	}

	out := make([]Score, 0, len(cells))
	for key, values := range cells {
		mean, std := stat.MeanStdDev(values, nil)
		if len(values) < 2 {
			std = 0
		}
		out = append(out, Score{
			Dataset:   key.dataset,
			Estimator: key.estimator,
			Metric:    key.metric,
			Mean:      mean,
			Std:       std,
			Runs:      len(values),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dataset != out[j].Dataset {
			return out[i].Dataset < out[j].Dataset
		}
		if out[i].Estimator != out[j].Estimator {
			return out[i].Estimator < out[j].Estimator
		}
		return out[i].Metric < out[j].Metric
	})
	return out, nil
}

// Ranking is the per-dataset estimator ordering under one metric.
// Positions are average ranks: 1 is best, ties share the mean of the
// positions they span.
type Ranking struct {
	Dataset   string             `json:"dataset"`
	Metric    string             `json:"metric"`
	Positions map[string]float64 `json:"positions"`
}

// Rank computes per-dataset estimator rankings from aggregated scores,
// ordered by dataset then metric.
func Rank(scores []Score) []Ranking {
	type groupKey struct{ dataset, metric string }
	groups := map[groupKey][]Score{}
	for _, s := range scores {
		key := groupKey{s.Dataset, s.Metric}
		groups[key] = append(groups[key], s)
	}

	out := make([]Ranking, 0, len(groups))
	for key, members := range groups {
		out = append(out, Ranking{
			Dataset:   key.dataset,
			Metric:    key.metric,
			Positions: rankPositions(members),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dataset != out[j].Dataset {
			return out[i].Dataset < out[j].Dataset
		}
		return out[i].Metric < out[j].Metric
	})
	return out
}

// rankPositions assigns descending-score average ranks to one group.
func rankPositions(members []Score) map[string]float64 {
	sorted := append([]Score(nil), members...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Mean != sorted[j].Mean {
			return sorted[i].Mean > sorted[j].Mean
		}
		return sorted[i].Estimator < sorted[j].Estimator
	})

	positions := make(map[string]float64, len(sorted))
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].Mean == sorted[i].Mean {
			j++
		}
		avg := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			positions[sorted[k].Estimator] = avg
		}
		i = j
	}
	return positions
}

// FriedmanResult is the outcome of a Friedman rank test for one metric:
// whether estimator performance differs systematically across datasets.
type FriedmanResult struct {
	Metric     string  `json:"metric"`
	Statistic  float64 `json:"statistic"`
	PValue     float64 `json:"p_value"`
	Datasets   int     `json:"datasets"`
	Estimators int     `json:"estimators"`
}

// Friedman runs the Friedman chi-squared test per metric, treating
// datasets as blocks and estimators as treatments. It needs at least
// two estimators and two datasets, and every estimator must have a
// score on every dataset.
func Friedman(scores []Score) ([]FriedmanResult, error) {
	perMetric := map[string][]Ranking{}
	for _, r := range Rank(scores) {
		perMetric[r.Metric] = append(perMetric[r.Metric], r)
	}

	metrics := make([]string, 0, len(perMetric))
	for metric := range perMetric {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)

	out := make([]FriedmanResult, 0, len(metrics))
	for _, metric := range metrics {
		rankings := perMetric[metric]
		result, err := friedmanOne(metric, rankings)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", metric, err)
		}
		out = append(out, result)
	}
	return out, nil
}

func friedmanOne(metric string, rankings []Ranking) (FriedmanResult, error) {
	n := len(rankings) // datasets (blocks)
	if n < 2 {
		return FriedmanResult{}, fmt.Errorf("%w: %d datasets", ErrTooSmall, n)
	}

	estimators := make([]string, 0, len(rankings[0].Positions))
	for name := range rankings[0].Positions {
		estimators = append(estimators, name)
	}
	sort.Strings(estimators)
	k := len(estimators) // treatments
	if k < 2 {
		return FriedmanResult{}, fmt.Errorf("%w: %d estimators", ErrTooSmall, k)
	}

	rankSums := make(map[string]float64, k)
	for _, r := range rankings {
		if len(r.Positions) != k {
			return FriedmanResult{}, fmt.Errorf("%w: dataset %q has %d estimators, want %d",
				ErrUnbalanced, r.Dataset, len(r.Positions), k)
		}
		for _, name := range estimators {
			pos, ok := r.Positions[name]
			if !ok {
				return FriedmanResult{}, fmt.Errorf("%w: dataset %q lacks estimator %q",
					ErrUnbalanced, r.Dataset, name)
			}
			rankSums[name] += pos
		}
	}

	// Chi-squared approximation: 12/(n k (k+1)) * sum(R_j^2) - 3 n (k+1).
	sumSquares := 0.0
	for _, name := range estimators {
		sumSquares += rankSums[name] * rankSums[name]
	}
	statistic := 12/(float64(n)*float64(k)*float64(k+1))*sumSquares - 3*float64(n)*float64(k+1)

	chi2 := distuv.ChiSquared{K: float64(k - 1)}
	return FriedmanResult{
		Metric:     metric,
		Statistic:  statistic,
		PValue:     chi2.Survival(statistic),
		Datasets:   n,
		Estimators: k,
	}, nil
}
