// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/trawl/pkg/gridsearch"
	"github.com/AleutianAI/trawl/pkg/mlearn"
)

func TestValidateSpecs_Disambiguation(t *testing.T) {
	specs := []EstimatorSpec{
		Single("SVC", &mlearn.KNNClassifier{}, nil),
		Single("SVC", &mlearn.KNNClassifier{}, nil),
		Single("SVC", &mlearn.KNNClassifier{}, nil),
	}
	validated, err := validateSpecs(specs)
	require.NoError(t, err)
	require.Len(t, validated, 3)
	assert.Equal(t, "SVC", validated[0].Name)
	assert.Equal(t, "SVC1", validated[1].Name)
	assert.Equal(t, "SVC2", validated[2].Name)
}

func TestValidateSpecs_CapabilityTag(t *testing.T) {
	pipe, err := mlearn.NewPipeline("knn", &mlearn.KNNClassifier{},
		mlearn.Step{Name: "ros", Resampler: &mlearn.RandomOversampler{}})
	require.NoError(t, err)

	validated, err := validateSpecs([]EstimatorSpec{
		Single("knn", &mlearn.KNNClassifier{}, nil),
		Single("mean", &mlearn.MeanRegressor{}, nil),
		Chain("ros+knn", pipe, nil),
	})
	require.NoError(t, err)
	assert.True(t, validated[0].SupportsStratifiedSplit)
	assert.False(t, validated[1].SupportsStratifiedSplit, "regressor gets plain k-fold")
	assert.True(t, validated[2].SupportsStratifiedSplit, "pipeline answers for its final stage")
}

func TestValidateSpecs_Errors(t *testing.T) {
	_, err := validateSpecs(nil)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = validateSpecs([]EstimatorSpec{{Name: "knn"}})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = validateSpecs([]EstimatorSpec{Single("", &mlearn.KNNClassifier{}, nil)})
	assert.ErrorIs(t, err, ErrConfiguration)

	// Unresolvable grid path fails before any evaluation work.
	_, err = validateSpecs([]EstimatorSpec{
		Single("knn", &mlearn.KNNClassifier{}, gridsearch.ParamGrid{"gamma": {0.1}}),
	})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = validateSpecs([]EstimatorSpec{
		Single("knn", &mlearn.KNNClassifier{}, gridsearch.ParamGrid{"k": {}}),
	})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResamplingSpecs(t *testing.T) {
	resamplers := []NamedResampler{
		{Name: "none"},
		{Name: "ros", Resampler: &mlearn.RandomOversampler{}, Grid: gridsearch.ParamGrid{"ratio": {0.5, 1.0}}},
	}
	classifiers := []NamedClassifier{
		{Name: "knn", Classifier: &mlearn.KNNClassifier{}, Grid: gridsearch.ParamGrid{"k": {1, 3}}},
	}

	specs, err := ResamplingSpecs(resamplers, classifiers)
	require.NoError(t, err)
	require.Len(t, specs, 2)

	// A nil resampler yields the bare classifier with unprefixed keys.
	assert.Equal(t, KindSingle, specs[0].Kind)
	assert.Equal(t, "knn", specs[0].Name)
	assert.Contains(t, specs[0].Grid, "k")

	// A real resampler yields a chain with stage-prefixed keys.
	assert.Equal(t, KindChain, specs[1].Kind)
	assert.Equal(t, "ros+knn", specs[1].Name)
	assert.Contains(t, specs[1].Grid, "ros__ratio")
	assert.Contains(t, specs[1].Grid, "knn__k")

	pipe, ok := specs[1].Estimator.(*mlearn.Pipeline)
	require.True(t, ok)
	assert.Equal(t, []string{"ros", "knn"}, pipe.StageNames())

	_, err = ResamplingSpecs(resamplers, []NamedClassifier{{Name: "broken"}})
	assert.ErrorIs(t, err, mlearn.ErrNilStage)
}

func TestResolveSeeds(t *testing.T) {
	draws, err := resolveSeeds(Seeded(42), 3)
	require.NoError(t, err)
	require.Len(t, draws, 3)
	for i, d := range draws {
		assert.True(t, d.seeded)
		assert.NotZero(t, d.seed, "draw %d", i)
	}
	assert.NotEqual(t, draws[0].seed, draws[1].seed)
	assert.NotEqual(t, draws[1].seed, draws[2].seed)

	again, err := resolveSeeds(Seeded(42), 3)
	require.NoError(t, err)
	assert.Equal(t, draws, again, "derivation is reproducible")

	other, err := resolveSeeds(Seeded(43), 3)
	require.NoError(t, err)
	assert.NotEqual(t, draws[0].seed, other[0].seed, "different bases diverge at index 0")

	unseeded, err := resolveSeeds(RandomState{}, 2)
	require.NoError(t, err)
	assert.False(t, unseeded[0].seeded)
	assert.False(t, unseeded[1].seeded)

	_, err = resolveSeeds(Seeded(1), 0)
	assert.ErrorIs(t, err, ErrConfiguration)
}
