// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/trawl/pkg/crossval"
	"github.com/AleutianAI/trawl/pkg/dataset"
	"github.com/AleutianAI/trawl/pkg/gridsearch"
	"github.com/AleutianAI/trawl/pkg/logging"
	"github.com/AleutianAI/trawl/pkg/scoring"
	"github.com/AleutianAI/trawl/pkg/ux"
)

var tracer = otel.Tracer("aleutian.trawl")

// Experiment sweeps estimator configurations over datasets and seeds.
// Construct with New, configure with options, then call Run. Evaluation
// failures abort the run but never discard the results accumulated
// before the failing combination.
type Experiment struct {
	datasets *dataset.Collection
	specs    []EstimatorSpec

	scoring          scoring.Spec
	cv               crossval.Spec
	jobs             int
	repetitions      int
	randomState      RandomState
	logger           *logging.Logger
	progressOut      io.Writer
	quietProgress    bool
	quietDiagnostics bool

	// Derived during Run and replaced on every invocation.
	validated []validatedSpec
	seeds     []seedDraw
	runID     string
	results   []ScoreRecord
}

// Option configures an Experiment.
type Option func(*Experiment)

// WithScoring sets the metric specification. Defaults to
// scoring.Default().
func WithScoring(spec scoring.Spec) Option {
	return func(e *Experiment) { e.scoring = spec }
}

// WithCV sets the cross-validation specification: a fold count, an
// existing splitter, or explicit index pairs. The zero Spec means
// crossval.DefaultFolds folds.
func WithCV(spec crossval.Spec) Option {
	return func(e *Experiment) { e.cv = spec }
}

// WithJobs bounds the number of grid points evaluated concurrently
// inside each combination. Combinations themselves always run
// sequentially so the result log stays ordered.
func WithJobs(jobs int) Option {
	return func(e *Experiment) { e.jobs = jobs }
}

// WithRepetitions sets how many seeded repetitions to run. Defaults to 1.
func WithRepetitions(n int) Option {
	return func(e *Experiment) { e.repetitions = n }
}

// WithRandomState sets the base random state repetition seeds derive
// from. The default is unseeded.
func WithRandomState(state RandomState) Option {
	return func(e *Experiment) { e.randomState = state }
}

// WithLogger sets the logger. Defaults to logging.Default().
func WithLogger(logger *logging.Logger) Option {
	return func(e *Experiment) { e.logger = logger }
}

// WithProgressWriter redirects the progress line. Primarily for tests.
func WithProgressWriter(w io.Writer) Option {
	return func(e *Experiment) { e.progressOut = w }
}

// WithQuietProgress suppresses progress rendering. Counters still
// advance.
func WithQuietProgress() Option {
	return func(e *Experiment) { e.quietProgress = true }
}

// WithQuietDiagnostics demotes recoverable evaluation diagnostics from
// Warn to Debug for this run only.
func WithQuietDiagnostics() Option {
	return func(e *Experiment) { e.quietDiagnostics = true }
}

// New builds an experiment over the given datasets and estimator specs.
func New(datasets *dataset.Collection, specs []EstimatorSpec, opts ...Option) *Experiment {
	e := &Experiment{
		datasets:    datasets,
		specs:       specs,
		scoring:     scoring.Default(),
		repetitions: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.datasets == nil {
		e.datasets = dataset.Empty()
	}
	if e.logger == nil {
		e.logger = logging.Default()
	}
	return e
}

// TotalIterations returns |seeds| * |datasets| * |specs|, the number of
// combinations one full Run evaluates.
func (e *Experiment) TotalIterations() int {
	return e.repetitions * e.datasets.Len() * len(e.specs)
}

// Results returns the accumulated score records in enumeration order.
func (e *Experiment) Results() []ScoreRecord { return e.results }

// RunID returns the identifier of the most recent Run, or "" before
// the first.
func (e *Experiment) RunID() string { return e.runID }

// Datasets returns the experiment's dataset collection.
func (e *Experiment) Datasets() *dataset.Collection { return e.datasets }

// MetricNames returns the configured metric names in evaluation order.
func (e *Experiment) MetricNames() []string { return e.scoring.Names() }

// Run evaluates every combination of (seed, dataset, estimator spec)
// and appends one ScoreRecord per combination. When the dataset
// collection is empty or not loaded, Run returns immediately without
// touching prior results. Any evaluation failure aborts the run; the
// records accumulated before the failing combination remain readable
// and can still be persisted.
func (e *Experiment) Run(ctx context.Context) error {
	if e.datasets.Len() == 0 {
		e.logger.Info("no datasets loaded, nothing to run", "state", e.datasets.State().String())
		return nil
	}

	ctx, span := tracer.Start(ctx, "experiment.run")
	defer span.End()

	validated, err := validateSpecs(e.specs)
	if err != nil {
		return failSpan(span, err)
	}
	seeds, err := resolveSeeds(e.randomState, e.repetitions)
	if err != nil {
		return failSpan(span, err)
	}

	// A new run replaces all derived state, including prior results.
	e.validated = validated
	e.seeds = seeds
	e.results = nil
	e.runID = uuid.NewString()

	gen := newCombinations(seeds, e.datasets.Items(), validated)
	total := gen.total()
	span.SetAttributes(
		attribute.String("run.id", e.runID),
		attribute.Int("run.total_iterations", total),
		attribute.Int("run.datasets", e.datasets.Len()),
		attribute.Int("run.estimators", len(validated)),
		attribute.Int("run.repetitions", e.repetitions),
	)
	e.logger.Info("experiment started",
		"run_id", e.runID,
		"total_iterations", total,
		"datasets", e.datasets.Len(),
		"estimators", len(validated),
		"repetitions", e.repetitions,
	)

	progress := ux.NewProgress("trawl", total)
	if e.progressOut != nil {
		progress.WithWriter(e.progressOut)
	}
	if e.quietProgress {
		progress.Quiet()
	}
	progress.Start()

	for comb, ok := gen.next(); ok; comb, ok = gen.next() {
		record, err := e.evaluate(ctx, comb)
		if err != nil {
			return failSpan(span, fmt.Errorf("seed %d, dataset %q, estimator %q: %w",
				comb.SeedIndex, comb.Dataset.Name, comb.Spec.Name, err))
		}
		e.results = append(e.results, record)
		progress.Increment()
	}
	progress.Finish()

	e.logger.Info("experiment finished", "run_id", e.runID, "records", len(e.results))
	return nil
}

// failSpan records err on the span and returns it unchanged.
func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// evaluate runs the seeded grid search for one combination.
func (e *Experiment) evaluate(ctx context.Context, comb Combination) (ScoreRecord, error) {
	splitter, err := crossval.Resolve(e.cv, comb.Spec.SupportsStratifiedSplit, comb.Seed.seed, comb.Seed.seeded)
	if err != nil {
		return ScoreRecord{}, fmt.Errorf("resolving cross validation: %w", err)
	}

	search := &gridsearch.Search{
		Estimator:        comb.Spec.Estimator,
		Grid:             comb.Spec.Grid,
		Scoring:          e.scoring,
		Splitter:         splitter,
		Jobs:             e.jobs,
		Logger:           e.logger,
		QuietDiagnostics: e.quietDiagnostics,
	}
	result, err := search.Evaluate(ctx, comb.Dataset.X, comb.Dataset.Y)
	if err != nil {
		return ScoreRecord{}, err
	}
	return ScoreRecord{
		DatasetName:   comb.Dataset.Name,
		SeedIndex:     comb.SeedIndex,
		EstimatorName: comb.Spec.Name,
		Search:        result,
	}, nil
}
