// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/AleutianAI/trawl/pkg/mlearn"
)

// ErrConfiguration wraps every validation failure. Validation runs in
// full before any evaluation work begins, so a bad grid path or a nil
// estimator never costs a partial run.
var ErrConfiguration = errors.New("invalid experiment configuration")

// validateSpecs canonicalizes the estimator specs: rejects nil
// estimators, disambiguates repeated names with a count-index suffix,
// probes every grid parameter path against a clone, and resolves the
// stratified-split capability once.
func validateSpecs(specs []EstimatorSpec) ([]validatedSpec, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no estimator specs", ErrConfiguration)
	}

	names := make([]string, len(specs))
	for i, spec := range specs {
		if spec.Estimator == nil {
			return nil, fmt.Errorf("%w: spec %q has a nil estimator", ErrConfiguration, spec.Name)
		}
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: spec %d has an empty name", ErrConfiguration, i)
		}
		names[i] = spec.Name
	}
	names = disambiguate(names)

	out := make([]validatedSpec, len(specs))
	for i, spec := range specs {
		if err := probeGrid(spec); err != nil {
			return nil, fmt.Errorf("%w: spec %q: %v", ErrConfiguration, names[i], err)
		}
		out[i] = validatedSpec{
			Name:                    names[i],
			Estimator:               spec.Estimator,
			Grid:                    spec.Grid.Clone(),
			SupportsStratifiedSplit: supportsStratified(spec.Estimator),
		}
	}
	return out, nil
}

// probeGrid applies one candidate value per grid path to a clone, so an
// unresolvable path fails here rather than mid-run.
func probeGrid(spec EstimatorSpec) error {
	for path, values := range spec.Grid {
		if len(values) == 0 {
			return fmt.Errorf("grid path %q has no candidate values", path)
		}
		probe := spec.Estimator.Clone()
		if err := probe.SetParams(mlearn.Params{path: values[0]}); err != nil {
			return fmt.Errorf("grid path %q: %v", path, err)
		}
	}
	return nil
}

// supportsStratified resolves the split capability: pipelines answer
// for their final stage.
func supportsStratified(est mlearn.Estimator) bool {
	if pipe, ok := est.(*mlearn.Pipeline); ok {
		est = pipe.Final()
	}
	_, ok := est.(mlearn.Classifier)
	return ok
}

// resolveSeeds expands a base random state into one draw per
// repetition. Seeded states derive a distinct seed per index with a
// splitmix64 mix, so index 0 and colliding bases still get unique,
// reproducible seeds. Unseeded states yield unseeded draws throughout.
func resolveSeeds(state RandomState, repetitions int) ([]seedDraw, error) {
	if repetitions < 1 {
		return nil, fmt.Errorf("%w: repetitions must be at least 1, got %d", ErrConfiguration, repetitions)
	}
	draws := make([]seedDraw, repetitions)
	if !state.Seeded {
		return draws, nil
	}
	for i := range draws {
		draws[i] = seedDraw{seed: deriveSeed(state.Seed, i), seeded: true}
	}
	return draws, nil
}

// deriveSeed mixes (base, index) through the splitmix64 finalizer.
func deriveSeed(base int64, index int) int64 {
	z := uint64(base) + (uint64(index)+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return int64(z ^ (z >> 31))
}

// disambiguate suffixes repeated names with their occurrence index, so
// ["SVC", "SVC"] becomes ["SVC", "SVC1"].
func disambiguate(names []string) []string {
	seen := map[string]int{}
	out := make([]string, len(names))
	for i, name := range names {
		if n := seen[name]; n > 0 {
			out[i] = name + strconv.Itoa(n)
		} else {
			out[i] = name
		}
		seen[name]++
	}
	return out
}
