// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/trawl/pkg/experiment"
	"github.com/AleutianAI/trawl/pkg/gridsearch"
)

// record builds a single-metric score record with one point per score.
func record(dataset string, seedIdx int, estimator string, pointMeans ...float64) experiment.ScoreRecord {
	points := make([]gridsearch.PointResult, len(pointMeans))
	for i, mean := range pointMeans {
		points[i] = gridsearch.PointResult{MeanScores: map[string]float64{"accuracy": mean}}
	}
	return experiment.ScoreRecord{
		DatasetName:   dataset,
		SeedIndex:     seedIdx,
		EstimatorName: estimator,
		Search:        &gridsearch.Result{MetricNames: []string{"accuracy"}, Points: points},
	}
}

func TestSummarize(t *testing.T) {
	records := []experiment.ScoreRecord{
		record("iris", 0, "knn", 0.8),
		record("iris", 1, "knn", 0.9),
		record("iris", 0, "centroid", 0.7),
		record("iris", 1, "centroid", 0.7),
	}

	scores, err := Summarize(records, []string{"accuracy"})
	require.NoError(t, err)
	require.Len(t, scores, 2)

	// Sorted by estimator within the dataset.
	centroid, knn := scores[0], scores[1]
	assert.Equal(t, "centroid", centroid.Estimator)
	assert.InDelta(t, 0.7, centroid.Mean, 1e-12)
	assert.InDelta(t, 0.0, centroid.Std, 1e-12)
	assert.Equal(t, 2, centroid.Runs)

	assert.Equal(t, "knn", knn.Estimator)
	assert.InDelta(t, 0.85, knn.Mean, 1e-12)
	assert.InDelta(t, 0.05*math.Sqrt2, knn.Std, 1e-12)
}

func TestSummarize_UsesBestGridPoint(t *testing.T) {
	scores, err := Summarize([]experiment.ScoreRecord{
		record("iris", 0, "knn", 0.7, 0.9, 0.8),
	}, []string{"accuracy"})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 0.9, scores[0].Mean, 1e-12)
	assert.Equal(t, 1, scores[0].Runs)
}

func TestSummarize_SkipsMissingMetrics(t *testing.T) {
	scores, err := Summarize([]experiment.ScoreRecord{
		record("iris", 0, "knn", 0.8),
	}, []string{"accuracy", "f1"})
	require.NoError(t, err)
	require.Len(t, scores, 1, "only the metric the search carries")
	assert.Equal(t, "accuracy", scores[0].Metric)

	_, err = Summarize(nil, []string{"accuracy"})
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestRank(t *testing.T) {
	scores := []Score{
		{Dataset: "iris", Metric: "accuracy", Estimator: "a", Mean: 0.9},
		{Dataset: "iris", Metric: "accuracy", Estimator: "b", Mean: 0.8},
		{Dataset: "iris", Metric: "accuracy", Estimator: "c", Mean: 0.8},
		{Dataset: "iris", Metric: "accuracy", Estimator: "d", Mean: 0.5},
	}

	rankings := Rank(scores)
	require.Len(t, rankings, 1)
	positions := rankings[0].Positions
	assert.Equal(t, 1.0, positions["a"])
	assert.Equal(t, 2.5, positions["b"], "ties share the average rank")
	assert.Equal(t, 2.5, positions["c"])
	assert.Equal(t, 4.0, positions["d"])
}

func TestFriedman_HandComputed(t *testing.T) {
	// Three estimators with identical orderings across four datasets:
	// rank sums 4, 8, 12 give statistic 12/(4*3*4)*224 - 48 = 8.
	var scores []Score
	for _, ds := range []string{"d1", "d2", "d3", "d4"} {
		scores = append(scores,
			Score{Dataset: ds, Metric: "accuracy", Estimator: "a", Mean: 0.9},
			Score{Dataset: ds, Metric: "accuracy", Estimator: "b", Mean: 0.8},
			Score{Dataset: ds, Metric: "accuracy", Estimator: "c", Mean: 0.7},
		)
	}

	results, err := Friedman(scores)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "accuracy", r.Metric)
	assert.Equal(t, 4, r.Datasets)
	assert.Equal(t, 3, r.Estimators)
	assert.InDelta(t, 8.0, r.Statistic, 1e-9)
	assert.InDelta(t, math.Exp(-4), r.PValue, 1e-9, "chi-squared survival with 2 degrees of freedom")
}

func TestFriedman_Errors(t *testing.T) {
	_, err := Friedman([]Score{
		{Dataset: "d1", Metric: "accuracy", Estimator: "a", Mean: 0.9},
		{Dataset: "d1", Metric: "accuracy", Estimator: "b", Mean: 0.8},
	})
	assert.ErrorIs(t, err, ErrTooSmall, "one dataset is not enough")

	_, err = Friedman([]Score{
		{Dataset: "d1", Metric: "accuracy", Estimator: "a", Mean: 0.9},
		{Dataset: "d1", Metric: "accuracy", Estimator: "b", Mean: 0.8},
		{Dataset: "d2", Metric: "accuracy", Estimator: "a", Mean: 0.9},
	})
	assert.ErrorIs(t, err, ErrUnbalanced)
}
