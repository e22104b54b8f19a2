// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/trawl/pkg/dataset"
	"github.com/AleutianAI/trawl/pkg/gridsearch"
	"github.com/AleutianAI/trawl/pkg/logging"
	"github.com/AleutianAI/trawl/pkg/mlearn"
	"github.com/AleutianAI/trawl/pkg/scoring"
)

// twoBlobs builds a 12-row linearly separable binary dataset. The
// labels parameter picks the two class labels.
func twoBlobs(name string, lo, hi float64) dataset.Dataset {
	X := mat.NewDense(12, 2, []float64{
		0.0, 0.1, 0.2, 0.0, 0.1, 0.3, 0.3, 0.2, 0.0, 0.0, 0.2, 0.2,
		10.0, 10.1, 10.2, 9.9, 9.8, 10.0, 10.1, 10.3, 10.0, 9.7, 9.9, 10.2,
	})
	return dataset.Dataset{
		Name: name,
		X:    X,
		Y:    []float64{lo, lo, lo, lo, lo, lo, hi, hi, hi, hi, hi, hi},
	}
}

func quietOptions(extra ...Option) []Option {
	opts := []Option{
		WithLogger(logging.New(logging.Config{Quiet: true})),
		WithQuietProgress(),
	}
	return append(opts, extra...)
}

func accuracyOnly(t *testing.T) scoring.Spec {
	t.Helper()
	spec, err := scoring.Metrics("accuracy")
	require.NoError(t, err)
	return spec
}

func TestExperiment_RunCoversCrossProduct(t *testing.T) {
	collection, err := dataset.New(twoBlobs("iris", 0, 1), twoBlobs("wine", 0, 1))
	require.NoError(t, err)

	specs := []EstimatorSpec{
		Single("knn", &mlearn.KNNClassifier{}, gridsearch.ParamGrid{"k": {1, 3}}),
		Single("centroid", &mlearn.NearestCentroid{}, nil),
	}
	exp := New(collection, specs, quietOptions(
		WithScoring(accuracyOnly(t)),
		WithRepetitions(2),
		WithRandomState(Seeded(42)),
	)...)

	assert.Equal(t, 8, exp.TotalIterations(), "2 seeds x 2 datasets x 2 estimators")
	require.NoError(t, exp.Run(context.Background()))
	require.Len(t, exp.Results(), 8)
	assert.NotEmpty(t, exp.RunID())

	// Records carry the reconstructable key in enumeration order.
	first := exp.Results()[0]
	assert.Equal(t, "iris", first.DatasetName)
	assert.Equal(t, 0, first.SeedIndex)
	assert.Equal(t, "knn", first.EstimatorName)
	require.NotNil(t, first.Search)
	assert.Len(t, first.Search.Points, 2, "one point per grid value")

	last := exp.Results()[7]
	assert.Equal(t, "wine", last.DatasetName)
	assert.Equal(t, 1, last.SeedIndex)
	assert.Equal(t, "centroid", last.EstimatorName)
}

func TestExperiment_Determinism(t *testing.T) {
	run := func() []ScoreRecord {
		collection, err := dataset.New(twoBlobs("iris", 0, 1))
		require.NoError(t, err)
		exp := New(collection, []EstimatorSpec{
			Single("knn", &mlearn.KNNClassifier{}, gridsearch.ParamGrid{"k": {1, 3}}),
		}, quietOptions(
			WithScoring(accuracyOnly(t)),
			WithRepetitions(3),
			WithRandomState(Seeded(1234)),
		)...)
		require.NoError(t, exp.Run(context.Background()))
		return exp.Results()
	}

	assert.Equal(t, run(), run(), "same base seed must reproduce every score")
}

func TestExperiment_RerunReplacesResults(t *testing.T) {
	collection, err := dataset.New(twoBlobs("iris", 0, 1))
	require.NoError(t, err)
	exp := New(collection, []EstimatorSpec{
		Single("knn", &mlearn.KNNClassifier{}, nil),
	}, quietOptions(WithScoring(accuracyOnly(t)), WithRandomState(Seeded(5)))...)

	require.NoError(t, exp.Run(context.Background()))
	firstID := exp.RunID()
	require.Len(t, exp.Results(), 1)

	require.NoError(t, exp.Run(context.Background()))
	assert.Len(t, exp.Results(), 1, "results are rebuilt, not appended across runs")
	assert.NotEqual(t, firstID, exp.RunID())
}

func TestExperiment_EmptyDatasetsIsNoOp(t *testing.T) {
	exp := New(dataset.Empty(), []EstimatorSpec{
		Single("knn", &mlearn.KNNClassifier{}, nil),
	}, quietOptions()...)

	assert.Equal(t, 0, exp.TotalIterations())
	require.NoError(t, exp.Run(context.Background()))
	assert.Empty(t, exp.Results())
}

func TestExperiment_FailurePreservesPriorResults(t *testing.T) {
	// The second dataset uses label 2 for its positive class; the
	// scorer refuses it, so the run must abort on the third combination.
	collection, err := dataset.New(twoBlobs("good", 0, 1), twoBlobs("poison", 0, 2))
	require.NoError(t, err)

	failOn2 := errors.New("label 2 is poison")
	spec, err := scoring.Custom(map[string]scoring.Scorer{
		"picky": func(p scoring.Prediction) (float64, error) {
			for _, label := range p.Truth {
				if label == 2 {
					return 0, failOn2
				}
			}
			return 1, nil
		},
	})
	require.NoError(t, err)

	exp := New(collection, []EstimatorSpec{
		Single("knn", &mlearn.KNNClassifier{}, nil),
		Single("centroid", &mlearn.NearestCentroid{}, nil),
	}, quietOptions(WithScoring(spec), WithRandomState(Seeded(9)))...)

	err = exp.Run(context.Background())
	require.ErrorIs(t, err, failOn2)

	results := exp.Results()
	require.Len(t, results, 2, "exactly the combinations before the failing one")
	assert.Equal(t, "good", results[0].DatasetName)
	assert.Equal(t, "knn", results[0].EstimatorName)
	assert.Equal(t, "good", results[1].DatasetName)
	assert.Equal(t, "centroid", results[1].EstimatorName)
}

func TestExperiment_ConfigurationFailsBeforeEvaluation(t *testing.T) {
	collection, err := dataset.New(twoBlobs("iris", 0, 1))
	require.NoError(t, err)

	exp := New(collection, []EstimatorSpec{
		Single("knn", &mlearn.KNNClassifier{}, gridsearch.ParamGrid{"bogus": {1}}),
	}, quietOptions(WithScoring(accuracyOnly(t)))...)

	err = exp.Run(context.Background())
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, exp.Results())
}

func TestExperiment_ChainedResampler(t *testing.T) {
	collection, err := dataset.New(twoBlobs("iris", 0, 1))
	require.NoError(t, err)

	specs, err := ResamplingSpecs(
		[]NamedResampler{{Name: "ros", Resampler: &mlearn.RandomOversampler{}, Grid: gridsearch.ParamGrid{"ratio": {1.0}}}},
		[]NamedClassifier{{Name: "knn", Classifier: &mlearn.KNNClassifier{}, Grid: gridsearch.ParamGrid{"k": {1}}}},
	)
	require.NoError(t, err)

	exp := New(collection, specs, quietOptions(
		WithScoring(accuracyOnly(t)),
		WithRandomState(Seeded(3)),
	)...)
	require.NoError(t, exp.Run(context.Background()))
	require.Len(t, exp.Results(), 1)
	assert.Equal(t, "ros+knn", exp.Results()[0].EstimatorName)
}
