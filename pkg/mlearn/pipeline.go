// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mlearn

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ParamSep separates a stage name from a parameter name in a pipeline
// parameter path, e.g. "smote__ratio" routes "ratio" to the "smote" stage.
const ParamSep = "__"

var (
	// ErrNilStage indicates a pipeline was built with a nil stage.
	ErrNilStage = errors.New("pipeline stage must not be nil")

	// ErrDuplicateStage indicates two pipeline stages share a name.
	ErrDuplicateStage = errors.New("duplicate pipeline stage name")

	// ErrUnknownStage indicates a parameter path names a stage the
	// pipeline does not contain.
	ErrUnknownStage = errors.New("unknown pipeline stage")
)

// Step is a named resampling stage preceding a pipeline's final estimator.
type Step struct {
	Name      string
	Resampler Resampler
}

// Pipeline chains zero or more resampling steps with a final estimator.
// Fit applies the resamplers to the training set in order, then fits the
// final estimator on the rewritten data. Predict delegates to the final
// estimator; resampling never touches evaluation data.
type Pipeline struct {
	steps     []Step
	finalName string
	final     Estimator
}

// NewPipeline builds a pipeline from resampling steps and a final
// estimator. Stage names must be non-empty and unique across steps and
// the final stage.
func NewPipeline(finalName string, final Estimator, steps ...Step) (*Pipeline, error) {
	if final == nil {
		return nil, fmt.Errorf("final stage %q: %w", finalName, ErrNilStage)
	}
	if finalName == "" {
		return nil, errors.New("final stage name must not be empty")
	}
	seen := map[string]bool{finalName: true}
	for _, s := range steps {
		if s.Resampler == nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, ErrNilStage)
		}
		if s.Name == "" {
			return nil, errors.New("stage name must not be empty")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStage, s.Name)
		}
		seen[s.Name] = true
	}
	return &Pipeline{steps: steps, finalName: finalName, final: final}, nil
}

// Final returns the terminal estimator. The experiment validator uses it
// to decide whether the pipeline is classification-capable.
func (p *Pipeline) Final() Estimator { return p.final }

// StageNames returns the names of all stages in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.steps)+1)
	for _, s := range p.steps {
		names = append(names, s.Name)
	}
	return append(names, p.finalName)
}

// Fit resamples the training set through each step, then fits the final
// estimator on the result.
func (p *Pipeline) Fit(X *mat.Dense, y []float64) error {
	var err error
	for _, s := range p.steps {
		X, y, err = s.Resampler.FitResample(X, y)
		if err != nil {
			return fmt.Errorf("resampling stage %q: %w", s.Name, err)
		}
	}
	if err := p.final.Fit(X, y); err != nil {
		return fmt.Errorf("final stage %q: %w", p.finalName, err)
	}
	return nil
}

// Predict delegates to the final estimator.
func (p *Pipeline) Predict(X *mat.Dense) ([]float64, error) {
	return p.final.Predict(X)
}

// PredictScore delegates to the final estimator when it supports ranking
// scores, and fails otherwise.
func (p *Pipeline) PredictScore(X *mat.Dense) ([]float64, error) {
	ranker, ok := p.final.(ScoreRanker)
	if !ok {
		return nil, fmt.Errorf("final stage %q does not produce ranking scores", p.finalName)
	}
	return ranker.PredictScore(X)
}

// SetParams routes each "stage__param" path to the named stage. Paths
// without a stage prefix, or naming an unknown stage, are rejected.
func (p *Pipeline) SetParams(params Params) error {
	perStage := make(map[string]Params)
	for path, value := range params {
		stage, param, ok := strings.Cut(path, ParamSep)
		if !ok {
			return fmt.Errorf("parameter %q: pipeline parameters need a %q-separated stage prefix", path, ParamSep)
		}
		if perStage[stage] == nil {
			perStage[stage] = Params{}
		}
		perStage[stage][param] = value
	}
	for stage, sub := range perStage {
		if stage == p.finalName {
			if err := p.final.SetParams(sub); err != nil {
				return fmt.Errorf("stage %q: %w", stage, err)
			}
			continue
		}
		step, ok := p.step(stage)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
		}
		if err := step.Resampler.SetParams(sub); err != nil {
			return fmt.Errorf("stage %q: %w", stage, err)
		}
	}
	return nil
}

// Clone returns an unfitted pipeline with cloned stages.
func (p *Pipeline) Clone() Estimator {
	steps := make([]Step, len(p.steps))
	for i, s := range p.steps {
		steps[i] = Step{Name: s.Name, Resampler: s.Resampler.Clone()}
	}
	return &Pipeline{steps: steps, finalName: p.finalName, final: p.final.Clone()}
}

func (p *Pipeline) step(name string) (Step, bool) {
	for _, s := range p.steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}
