// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gridsearch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/AleutianAI/trawl/pkg/crossval"
	"github.com/AleutianAI/trawl/pkg/logging"
	"github.com/AleutianAI/trawl/pkg/mlearn"
	"github.com/AleutianAI/trawl/pkg/scoring"
)

var (
	// ErrNilEstimator indicates a search without an estimator.
	ErrNilEstimator = errors.New("estimator must not be nil")

	// ErrNilSplitter indicates a search without a splitter.
	ErrNilSplitter = errors.New("splitter must not be nil")

	// ErrNoScoring indicates a search without any metric.
	ErrNoScoring = errors.New("scoring spec must not be empty")
)

// Search evaluates one estimator's hyperparameter grid under cross
// validation. Grid points may be evaluated in parallel; the fitting and
// scoring of a single point is sequential across its folds.
type Search struct {
	// Estimator is the configured stage or pipeline under evaluation.
	// It is cloned per grid point and per fold, never fitted in place.
	Estimator mlearn.Estimator

	// Grid holds the candidate hyperparameter values. Empty means one
	// evaluation with the estimator's defaults.
	Grid ParamGrid

	// Scoring is the normalized metric specification.
	Scoring scoring.Spec

	// Splitter produces the train/test folds.
	Splitter crossval.Splitter

	// Jobs bounds the number of grid points evaluated concurrently.
	// Values < 1 mean sequential evaluation.
	Jobs int

	// Logger receives diagnostics. Nil disables them.
	Logger *logging.Logger

	// QuietDiagnostics demotes recoverable evaluation diagnostics
	// (such as an estimator that cannot produce ranking scores) from
	// Warn to Debug.
	QuietDiagnostics bool
}

// PointResult holds the cross-validated scores of one grid point.
type PointResult struct {
	// Params is the parameter assignment of this point.
	Params mlearn.Params `json:"params"`

	// FoldScores maps metric name to one score per fold.
	FoldScores map[string][]float64 `json:"fold_scores"`

	// MeanScores maps metric name to the mean across folds.
	MeanScores map[string]float64 `json:"mean_scores"`
}

// Result is the full outcome of a grid search: one PointResult per grid
// point, in grid expansion order.
type Result struct {
	// MetricNames records the scoring order used for the search.
	MetricNames []string `json:"metric_names"`

	// Points holds one result per grid point.
	Points []PointResult `json:"points"`
}

// Best returns the point with the highest mean score for the metric.
func (r *Result) Best(metric string) (PointResult, bool) {
	best, found := PointResult{}, false
	for _, p := range r.Points {
		score, ok := p.MeanScores[metric]
		if !ok {
			continue
		}
		if !found || score > best.MeanScores[metric] {
			best, found = p, true
		}
	}
	return best, found
}

// Evaluate runs the search over one dataset. Any fitting or scoring
// failure aborts the whole search; there is no retry and no partial
// per-point recovery.
func (s *Search) Evaluate(ctx context.Context, X *mat.Dense, y []float64) (*Result, error) {
	if s.Estimator == nil {
		return nil, ErrNilEstimator
	}
	if s.Splitter == nil {
		return nil, ErrNilSplitter
	}
	if s.Scoring.IsZero() {
		return nil, ErrNoScoring
	}

	folds, err := s.Splitter.Split(y)
	if err != nil {
		return nil, fmt.Errorf("splitting: %w", err)
	}

	points := s.Grid.Points()
	results := make([]PointResult, len(points))

	g, gctx := errgroup.WithContext(ctx)
	jobs := s.Jobs
	if jobs < 1 {
		jobs = 1
	}
	g.SetLimit(jobs)

	for i, point := range points {
		i, point := i, point
		g.Go(func() error {
			r, err := s.evaluatePoint(gctx, point, folds, X, y)
			if err != nil {
				return fmt.Errorf("grid point %v: %w", point, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{MetricNames: s.Scoring.Names(), Points: results}, nil
}

func (s *Search) evaluatePoint(ctx context.Context, point mlearn.Params, folds []crossval.Fold, X *mat.Dense, y []float64) (PointResult, error) {
	configured := s.Estimator.Clone()
	if err := configured.SetParams(point); err != nil {
		return PointResult{}, fmt.Errorf("setting params: %w", err)
	}

	names := s.Scoring.Names()
	foldScores := make(map[string][]float64, len(names))
	for _, name := range names {
		foldScores[name] = make([]float64, 0, len(folds))
	}

	for fi, fold := range folds {
		if err := ctx.Err(); err != nil {
			return PointResult{}, err
		}
		est := configured.Clone()
		if err := est.Fit(mlearn.TakeRows(X, fold.Train), mlearn.TakeVec(y, fold.Train)); err != nil {
			return PointResult{}, fmt.Errorf("fold %d: fitting: %w", fi, err)
		}

		testX := mlearn.TakeRows(X, fold.Test)
		labels, err := est.Predict(testX)
		if err != nil {
			return PointResult{}, fmt.Errorf("fold %d: predicting: %w", fi, err)
		}

		pred := scoring.Prediction{
			Truth:  mlearn.TakeVec(y, fold.Test),
			Labels: labels,
		}
		if ranker, ok := est.(mlearn.ScoreRanker); ok {
			ranks, err := ranker.PredictScore(testX)
			if err != nil {
				// Ranking scores are optional until a scorer demands
				// them, so this is a diagnostic, not a failure.
				s.diag("ranking scores unavailable", "fold", fi, "error", err.Error())
			} else {
				pred.Scores = ranks
			}
		}

		for _, name := range names {
			scorer, _ := s.Scoring.Scorer(name)
			score, err := scorer(pred)
			if err != nil {
				return PointResult{}, fmt.Errorf("fold %d: scoring %q: %w", fi, name, err)
			}
			foldScores[name] = append(foldScores[name], score)
		}
	}

	means := make(map[string]float64, len(names))
	for _, name := range names {
		means[name] = stat.Mean(foldScores[name], nil)
	}
	return PointResult{Params: point, FoldScores: foldScores, MeanScores: means}, nil
}

func (s *Search) diag(msg string, args ...any) {
	if s.Logger == nil {
		return
	}
	if s.QuietDiagnostics {
		s.Logger.Debug(msg, args...)
		return
	}
	s.Logger.Warn(msg, args...)
}
