// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mlearn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// RandomOversampler balances a training set by duplicating rows of the
// minority classes, sampled with replacement. The output keeps the
// original rows first, followed by the synthesized duplicates, so the
// rewrite is reproducible given the same seed.
type RandomOversampler struct {
	// Ratio is the target size of every class relative to the majority
	// class, in (0, 1]. Values <= 0 fall back to 1 (full balance).
	Ratio float64

	// Seed drives the duplicate selection. Seeded defaults to false,
	// in which case an ambient random source is used.
	Seed   int64
	Seeded bool
}

// FitResample returns the balanced training set.
func (o *RandomOversampler) FitResample(X *mat.Dense, y []float64) (*mat.Dense, []float64, error) {
	rows, _ := X.Dims()
	if rows == 0 || rows != len(y) {
		return nil, nil, fmt.Errorf("%w: %d rows vs %d targets", ErrEmptyInput, rows, len(y))
	}
	ratio := o.Ratio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}

	counts := countLabels(y)
	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	target := int(ratio * float64(maxCount))

	var rng *rand.Rand
	if o.Seeded {
		rng = rand.New(rand.NewSource(o.Seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	perLabel := map[float64][]int{}
	for i, label := range y {
		perLabel[label] = append(perLabel[label], i)
	}

	extra := []int{}
	for _, label := range sortedLabels(counts) {
		members := perLabel[label]
		for n := len(members); n < target; n++ {
			extra = append(extra, members[rng.Intn(len(members))])
		}
	}
	if len(extra) == 0 {
		return X, y, nil
	}

	all := make([]int, 0, rows+len(extra))
	for i := 0; i < rows; i++ {
		all = append(all, i)
	}
	all = append(all, extra...)
	return TakeRows(X, all), TakeVec(y, all), nil
}

// SetParams accepts "ratio" and "random_state".
func (o *RandomOversampler) SetParams(params Params) error {
	for name, value := range params {
		switch name {
		case "ratio":
			f, ok := paramFloat(value)
			if !ok || f <= 0 || f > 1 {
				return fmt.Errorf("parameter ratio: want value in (0, 1], got %v", value)
			}
			o.Ratio = f
		case "random_state":
			seed, ok := paramInt(value)
			if !ok {
				return fmt.Errorf("parameter random_state: want integer, got %v", value)
			}
			o.Seed = int64(seed)
			o.Seeded = true
		default:
			return unknownParam(name)
		}
	}
	return nil
}

// Clone returns a copy preserving configuration.
func (o *RandomOversampler) Clone() Resampler {
	return &RandomOversampler{Ratio: o.Ratio, Seed: o.Seed, Seeded: o.Seeded}
}
