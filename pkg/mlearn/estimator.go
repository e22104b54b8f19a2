// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package mlearn defines the estimator contracts the experiment harness
// drives, plus a pipeline combinator and a handful of small reference
// estimators. The harness treats estimators as black boxes: it only needs
// Fit/Predict/SetParams/Clone. Real model implementations live outside
// this module and plug in through the same interfaces.
package mlearn

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted indicates Predict was called before Fit.
	ErrNotFitted = errors.New("estimator is not fitted")

	// ErrUnknownParam indicates SetParams received a parameter the
	// estimator does not expose.
	ErrUnknownParam = errors.New("unknown parameter")

	// ErrEmptyInput indicates Fit received no rows.
	ErrEmptyInput = errors.New("empty training input")
)

// Params is one concrete assignment of hyperparameter values.
type Params map[string]any

// Estimator is the contract for a trainable pipeline stage.
//
// Clone must return an unfitted copy carrying the receiver's
// configuration but none of its fitted state, so a single configured
// estimator can be evaluated many times independently.
type Estimator interface {
	Fit(X *mat.Dense, y []float64) error
	Predict(X *mat.Dense) ([]float64, error)
	SetParams(params Params) error
	Clone() Estimator
}

// Classifier is implemented by estimators whose targets are discrete
// class labels. The experiment validator uses a single type assertion
// against this interface to set the SupportsStratifiedSplit capability
// tag on each validated spec.
type Classifier interface {
	Estimator

	// NumClasses reports the number of distinct labels seen during
	// Fit, or 0 before fitting.
	NumClasses() int
}

// ScoreRanker is implemented by classifiers that can emit a ranking
// score for the positive class, as required by threshold-free metrics
// such as ROC AUC.
type ScoreRanker interface {
	PredictScore(X *mat.Dense) ([]float64, error)
}

// Resampler rewrites a training set before a downstream stage is fit.
// It is never applied at prediction time.
type Resampler interface {
	FitResample(X *mat.Dense, y []float64) (*mat.Dense, []float64, error)
	SetParams(params Params) error
	Clone() Resampler
}

// TakeRows returns a new matrix holding the given rows of X, in order.
func TakeRows(X *mat.Dense, idx []int) *mat.Dense {
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		out.SetRow(i, X.RawRowView(r))
	}
	return out
}

// TakeVec returns a new vector holding the given elements of y, in order.
func TakeVec(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = y[r]
	}
	return out
}

func paramInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func paramFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func unknownParam(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownParam, name)
}
