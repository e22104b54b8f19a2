// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scoring defines the metric contract the evaluation driver
// forwards to the grid search, a registry of built-in metrics, and the
// normalization of caller-facing scoring specifications (a single metric
// name, a list of names, or custom scorer callables).
//
// All metrics are oriented so that higher is better.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

var (
	// ErrUnknownMetric indicates a metric name absent from the registry.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrNoScores indicates a ranking metric was asked to score an
	// estimator that produces no ranking scores.
	ErrNoScores = errors.New("metric needs ranking scores")

	// ErrDegenerate indicates the metric is undefined for the fold's
	// class distribution.
	ErrDegenerate = errors.New("metric undefined for this target distribution")
)

// Prediction carries everything a scorer may need for one evaluated fold.
type Prediction struct {
	// Truth is the ground-truth target of the test rows.
	Truth []float64

	// Labels is the estimator's predicted target.
	Labels []float64

	// Scores is the estimator's positive-class ranking score, or nil
	// when the estimator cannot produce one.
	Scores []float64
}

// Scorer computes one metric value from a fold's predictions.
type Scorer func(p Prediction) (float64, error)

// Spec is a normalized scoring specification: an ordered set of named
// scorers. The order is fixed at construction and drives the layout of
// every score record.
type Spec struct {
	names   []string
	scorers map[string]Scorer
}

// Single builds a Spec from one registered metric name.
func Single(name string) (Spec, error) {
	return Metrics(name)
}

// Metrics builds a Spec from registered metric names, preserving order.
func Metrics(names ...string) (Spec, error) {
	if len(names) == 0 {
		return Spec{}, errors.New("at least one metric is required")
	}
	scorers := make(map[string]Scorer, len(names))
	for _, name := range names {
		s, ok := registry[name]
		if !ok {
			return Spec{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
		}
		if _, dup := scorers[name]; dup {
			return Spec{}, fmt.Errorf("duplicate metric %q", name)
		}
		scorers[name] = s
	}
	return Spec{names: append([]string(nil), names...), scorers: scorers}, nil
}

// Custom builds a Spec from caller-supplied scorers, ordered by name.
func Custom(scorers map[string]Scorer) (Spec, error) {
	if len(scorers) == 0 {
		return Spec{}, errors.New("at least one scorer is required")
	}
	names := make([]string, 0, len(scorers))
	own := make(map[string]Scorer, len(scorers))
	for name, s := range scorers {
		if s == nil {
			return Spec{}, fmt.Errorf("scorer %q is nil", name)
		}
		names = append(names, name)
		own[name] = s
	}
	sort.Strings(names)
	return Spec{names: names, scorers: own}, nil
}

// Default returns the default scoring specification: ROC AUC, F1 and
// geometric mean. Each call builds a fresh value, so no caller can
// mutate the defaults of another.
func Default() Spec {
	spec, err := Metrics("roc_auc", "f1", "geometric_mean")
	if err != nil {
		panic(err) // registry always contains the defaults
	}
	return spec
}

// IsZero reports whether the spec holds no metrics.
func (s Spec) IsZero() bool { return len(s.names) == 0 }

// Names returns the metric names in evaluation order.
func (s Spec) Names() []string { return append([]string(nil), s.names...) }

// Scorer returns the scorer registered under name.
func (s Spec) Scorer(name string) (Scorer, bool) {
	scorer, ok := s.scorers[name]
	return scorer, ok
}

// registry maps built-in metric names to scorers.
var registry = map[string]Scorer{
	"accuracy":               Accuracy,
	"precision":              Precision,
	"recall":                 Recall,
	"f1":                     F1,
	"geometric_mean":         GeometricMean,
	"roc_auc":                ROCAUC,
	"r2":                     R2,
	"neg_mean_squared_error": NegMeanSquaredError,
}

// MetricNames returns the sorted names of all built-in metrics.
func MetricNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Accuracy is the fraction of exactly matching labels.
func Accuracy(p Prediction) (float64, error) {
	if err := checkLabels(p); err != nil {
		return 0, err
	}
	hits := 0
	for i, truth := range p.Truth {
		if p.Labels[i] == truth {
			hits++
		}
	}
	return float64(hits) / float64(len(p.Truth)), nil
}

// Precision is TP / (TP + FP) for the positive (largest) class.
// Returns 0 when nothing was predicted positive.
func Precision(p Prediction) (float64, error) {
	c, err := confusion(p)
	if err != nil {
		return 0, err
	}
	if c.tp+c.fp == 0 {
		return 0, nil
	}
	return float64(c.tp) / float64(c.tp+c.fp), nil
}

// Recall is TP / (TP + FN) for the positive (largest) class.
func Recall(p Prediction) (float64, error) {
	c, err := confusion(p)
	if err != nil {
		return 0, err
	}
	if c.tp+c.fn == 0 {
		return 0, nil
	}
	return float64(c.tp) / float64(c.tp+c.fn), nil
}

// F1 is the harmonic mean of precision and recall.
func F1(p Prediction) (float64, error) {
	precision, err := Precision(p)
	if err != nil {
		return 0, err
	}
	recall, err := Recall(p)
	if err != nil {
		return 0, err
	}
	if precision+recall == 0 {
		return 0, nil
	}
	return 2 * precision * recall / (precision + recall), nil
}

// GeometricMean is sqrt(sensitivity * specificity), the standard score
// for imbalanced binary problems.
func GeometricMean(p Prediction) (float64, error) {
	c, err := confusion(p)
	if err != nil {
		return 0, err
	}
	if c.tp+c.fn == 0 || c.tn+c.fp == 0 {
		return 0, fmt.Errorf("%w: geometric mean needs both classes present", ErrDegenerate)
	}
	sensitivity := float64(c.tp) / float64(c.tp+c.fn)
	specificity := float64(c.tn) / float64(c.tn+c.fp)
	return math.Sqrt(sensitivity * specificity), nil
}

// ROCAUC is the area under the ROC curve, computed from ranking scores
// via the Mann-Whitney statistic with average ranks for ties.
func ROCAUC(p Prediction) (float64, error) {
	if len(p.Truth) == 0 {
		return 0, errors.New("empty prediction")
	}
	if p.Scores == nil {
		return 0, ErrNoScores
	}
	if len(p.Scores) != len(p.Truth) {
		return 0, fmt.Errorf("score/truth length mismatch: %d vs %d", len(p.Scores), len(p.Truth))
	}
	positive := positiveLabel(p.Truth)
	nPos, nNeg := 0, 0
	for _, t := range p.Truth {
		if t == positive {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0, fmt.Errorf("%w: roc_auc needs both classes present", ErrDegenerate)
	}

	idx := make([]int, len(p.Scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return p.Scores[idx[a]] < p.Scores[idx[b]] })

	ranks := make([]float64, len(idx))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && p.Scores[idx[j]] == p.Scores[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	sumPos := 0.0
	for i, t := range p.Truth {
		if t == positive {
			sumPos += ranks[i]
		}
	}
	u := sumPos - float64(nPos)*float64(nPos+1)/2
	return u / (float64(nPos) * float64(nNeg)), nil
}

// R2 is the coefficient of determination.
func R2(p Prediction) (float64, error) {
	if err := checkLabels(p); err != nil {
		return 0, err
	}
	mean := stat.Mean(p.Truth, nil)
	ssRes, ssTot := 0.0, 0.0
	for i, truth := range p.Truth {
		d := truth - p.Labels[i]
		ssRes += d * d
		m := truth - mean
		ssTot += m * m
	}
	if ssTot == 0 {
		return 0, fmt.Errorf("%w: r2 needs target variance", ErrDegenerate)
	}
	return 1 - ssRes/ssTot, nil
}

// NegMeanSquaredError is the negated mean squared error, so that higher
// remains better.
func NegMeanSquaredError(p Prediction) (float64, error) {
	if err := checkLabels(p); err != nil {
		return 0, err
	}
	sum := 0.0
	for i, truth := range p.Truth {
		d := truth - p.Labels[i]
		sum += d * d
	}
	return -sum / float64(len(p.Truth)), nil
}

type confusionCounts struct {
	tp, fp, tn, fn int
}

func confusion(p Prediction) (confusionCounts, error) {
	if err := checkLabels(p); err != nil {
		return confusionCounts{}, err
	}
	positive := positiveLabel(p.Truth)
	var c confusionCounts
	for i, truth := range p.Truth {
		predPos := p.Labels[i] == positive
		truthPos := truth == positive
		switch {
		case predPos && truthPos:
			c.tp++
		case predPos && !truthPos:
			c.fp++
		case !predPos && truthPos:
			c.fn++
		default:
			c.tn++
		}
	}
	return c, nil
}

// positiveLabel treats the largest label present as the positive class,
// matching the usual 0/1 encoding.
func positiveLabel(truth []float64) float64 {
	positive := math.Inf(-1)
	for _, t := range truth {
		if t > positive {
			positive = t
		}
	}
	return positive
}

func checkLabels(p Prediction) error {
	if len(p.Truth) == 0 {
		return errors.New("empty prediction")
	}
	if len(p.Labels) != len(p.Truth) {
		return fmt.Errorf("label/truth length mismatch: %d vs %d", len(p.Labels), len(p.Truth))
	}
	return nil
}
