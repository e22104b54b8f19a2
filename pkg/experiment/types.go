// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package experiment orchestrates benchmark sweeps over the cross
// product of random seeds, datasets and estimator configurations. Each
// combination is evaluated with a seeded cross-validation grid search
// and its scores are appended to an ordered result log that can be
// persisted and reloaded.
package experiment

import (
	"fmt"

	"github.com/AleutianAI/trawl/pkg/gridsearch"
	"github.com/AleutianAI/trawl/pkg/mlearn"
)

// SpecKind distinguishes single-stage estimator specs from composite
// pipelines.
type SpecKind int

const (
	// KindSingle is one estimator stage.
	KindSingle SpecKind = iota

	// KindChain is an ordered resampler-then-estimator pipeline.
	KindChain
)

// String returns the kind name.
func (k SpecKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindChain:
		return "chain"
	default:
		return "unknown"
	}
}

// EstimatorSpec names one estimator configuration under benchmark: a
// single stage or a composite pipeline, plus its hyperparameter grid.
// Build specs through the Single and Chain factories so the kind tag
// always matches the estimator shape.
type EstimatorSpec struct {
	// Name identifies the spec in results. Duplicates across an
	// experiment are disambiguated during validation.
	Name string

	// Kind tags the estimator shape.
	Kind SpecKind

	// Estimator is the stage or pipeline to evaluate. It is cloned for
	// every evaluation, never fitted in place.
	Estimator mlearn.Estimator

	// Grid holds candidate hyperparameter values. Nil or empty means
	// one evaluation with the estimator's defaults.
	Grid gridsearch.ParamGrid
}

// Single builds a spec around one estimator stage. Grid keys are bare
// parameter names.
func Single(name string, est mlearn.Estimator, grid gridsearch.ParamGrid) EstimatorSpec {
	return EstimatorSpec{Name: name, Kind: KindSingle, Estimator: est, Grid: grid}
}

// Chain builds a spec around a composite pipeline. Grid keys carry the
// stage prefix ("smote__ratio") so the search routes each value to the
// right stage.
func Chain(name string, pipe *mlearn.Pipeline, grid gridsearch.ParamGrid) EstimatorSpec {
	return EstimatorSpec{Name: name, Kind: KindChain, Estimator: pipe, Grid: grid}
}

// NamedResampler pairs a resampling stage with its stage name and grid.
// A nil Resampler marks the "no resampling" arm of a sweep.
type NamedResampler struct {
	Name      string
	Resampler mlearn.Resampler
	Grid      gridsearch.ParamGrid
}

// NamedClassifier pairs a classifier stage with its stage name and grid.
type NamedClassifier struct {
	Name       string
	Classifier mlearn.Classifier
	Grid       gridsearch.ParamGrid
}

// ResamplingSpecs synthesizes estimator specs as the cross product of
// resamplers and classifiers. A real resampler yields a two-stage chain
// in (resampler, classifier) order; a nil resampler yields the bare
// classifier. Grid keys from both stages are prefixed with their stage
// name in chains and left bare for single-classifier specs.
func ResamplingSpecs(resamplers []NamedResampler, classifiers []NamedClassifier) ([]EstimatorSpec, error) {
	specs := make([]EstimatorSpec, 0, len(resamplers)*len(classifiers))
	for _, res := range resamplers {
		for _, clf := range classifiers {
			if clf.Classifier == nil {
				return nil, fmt.Errorf("classifier %q: %w", clf.Name, mlearn.ErrNilStage)
			}
			if res.Resampler == nil {
				specs = append(specs, Single(clf.Name, clf.Classifier, clf.Grid.Clone()))
				continue
			}
			pipe, err := mlearn.NewPipeline(clf.Name, clf.Classifier.Clone(),
				mlearn.Step{Name: res.Name, Resampler: res.Resampler.Clone()})
			if err != nil {
				return nil, fmt.Errorf("chaining %q with %q: %w", res.Name, clf.Name, err)
			}
			grid := gridsearch.ParamGrid{}
			for key, values := range res.Grid {
				grid[res.Name+mlearn.ParamSep+key] = append([]any(nil), values...)
			}
			for key, values := range clf.Grid {
				grid[clf.Name+mlearn.ParamSep+key] = append([]any(nil), values...)
			}
			specs = append(specs, Chain(res.Name+"+"+clf.Name, pipe, grid))
		}
	}
	return specs, nil
}

// RandomState specifies the base randomness of an experiment. The zero
// value means unseeded: every repetition draws independently from
// ambient randomness and no determinism is guaranteed.
type RandomState struct {
	// Seed is the base seed all repetition seeds derive from.
	Seed int64 `json:"seed"`

	// Seeded reports whether Seed is meaningful.
	Seeded bool `json:"seeded"`
}

// Seeded returns a deterministic RandomState.
func Seeded(seed int64) RandomState {
	return RandomState{Seed: seed, Seeded: true}
}

// seedDraw is one repetition's resolved random state.
type seedDraw struct {
	seed   int64
	seeded bool
}

// validatedSpec is an EstimatorSpec after validation: canonical name,
// checked grid paths, and the split capability resolved once.
type validatedSpec struct {
	Name      string
	Estimator mlearn.Estimator
	Grid      gridsearch.ParamGrid

	// SupportsStratifiedSplit is true when the estimator (or a
	// pipeline's final stage) is classification-capable, which selects
	// stratified cross validation for its combinations.
	SupportsStratifiedSplit bool
}

// ScoreRecord is the outcome of one evaluated combination. Records are
// appended in enumeration order, so position alone reconstructs the
// (seed, dataset, estimator) key; the explicit fields make lookups
// direct.
type ScoreRecord struct {
	// DatasetName is the canonical dataset name.
	DatasetName string `json:"dataset_name"`

	// SeedIndex is the repetition index the combination ran under.
	SeedIndex int `json:"seed_index"`

	// EstimatorName is the canonical estimator spec name.
	EstimatorName string `json:"estimator_name"`

	// Search holds per-grid-point, per-fold and mean scores for every
	// requested metric.
	Search *gridsearch.Result `json:"search"`
}
