// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/trawl/pkg/experiment"
	"github.com/AleutianAI/trawl/pkg/gridsearch"
	"github.com/AleutianAI/trawl/pkg/mlearn"
)

// Scenario is the YAML description of one experiment run.
type Scenario struct {
	Name        string `yaml:"name" validate:"required"`
	DatasetsDir string `yaml:"datasets_dir" validate:"required"`
	Output      string `yaml:"output" validate:"required"`

	Repetitions int    `yaml:"repetitions" validate:"omitempty,gte=1"`
	Seed        *int64 `yaml:"seed"`
	Folds       int    `yaml:"folds" validate:"omitempty,gte=2"`
	Jobs        int    `yaml:"jobs" validate:"omitempty,gte=1"`

	Metrics          []string `yaml:"metrics"`
	KeepDatasets     bool     `yaml:"keep_datasets"`
	QuietDiagnostics bool     `yaml:"quiet_diagnostics"`

	Classifiers []StageConfig `yaml:"classifiers" validate:"required,min=1,dive"`
	Resamplers  []StageConfig `yaml:"resamplers" validate:"omitempty,dive"`
}

// StageConfig names one pipeline stage and its hyperparameter grid.
type StageConfig struct {
	Name string           `yaml:"name" validate:"required"`
	Kind string           `yaml:"kind" validate:"required"`
	Grid map[string][]any `yaml:"grid"`
}

var validate = validator.New()

// loadScenario reads, parses and validates a scenario file.
func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := validate.Struct(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if s.Repetitions == 0 {
		s.Repetitions = 1
	}
	return &s, nil
}

// Specs builds the estimator specs the scenario describes: the cross
// product of resamplers and classifiers, or the bare classifiers when
// no resamplers are configured.
func (s *Scenario) Specs() ([]experiment.EstimatorSpec, error) {
	classifiers := make([]experiment.NamedClassifier, 0, len(s.Classifiers))
	for _, cfg := range s.Classifiers {
		clf, err := buildClassifier(cfg.Kind)
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, experiment.NamedClassifier{
			Name:       cfg.Name,
			Classifier: clf,
			Grid:       gridsearch.ParamGrid(cfg.Grid),
		})
	}

	resamplers := make([]experiment.NamedResampler, 0, len(s.Resamplers)+1)
	if len(s.Resamplers) == 0 {
		resamplers = append(resamplers, experiment.NamedResampler{Name: "none"})
	}
	for _, cfg := range s.Resamplers {
		res, err := buildResampler(cfg.Kind)
		if err != nil {
			return nil, err
		}
		resamplers = append(resamplers, experiment.NamedResampler{
			Name:      cfg.Name,
			Resampler: res,
			Grid:      gridsearch.ParamGrid(cfg.Grid),
		})
	}

	return experiment.ResamplingSpecs(resamplers, classifiers)
}

// buildClassifier maps a scenario kind to a fresh classifier.
func buildClassifier(kind string) (mlearn.Classifier, error) {
	switch kind {
	case "knn":
		return &mlearn.KNNClassifier{}, nil
	case "nearest_centroid":
		return &mlearn.NearestCentroid{}, nil
	case "majority":
		return &mlearn.MajorityClassifier{}, nil
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", kind)
	}
}

// buildResampler maps a scenario kind to a fresh resampler. The "none"
// kind yields nil, the marker for the no-resampling arm.
func buildResampler(kind string) (mlearn.Resampler, error) {
	switch kind {
	case "none":
		return nil, nil
	case "random_oversampler":
		return &mlearn.RandomOversampler{}, nil
	default:
		return nil, fmt.Errorf("unknown resampler kind %q", kind)
	}
}
