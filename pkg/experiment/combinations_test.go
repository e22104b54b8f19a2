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
	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/trawl/pkg/dataset"
)

func TestCombinations_NestedOrder(t *testing.T) {
	seeds := []seedDraw{{seed: 10, seeded: true}, {seed: 20, seeded: true}}
	datasets := []dataset.Dataset{
		{Name: "iris", X: mat.NewDense(1, 1, []float64{0}), Y: []float64{0}},
		{Name: "wine", X: mat.NewDense(1, 1, []float64{0}), Y: []float64{0}},
	}
	specs := []validatedSpec{{Name: "knn"}, {Name: "centroid"}}

	gen := newCombinations(seeds, datasets, specs)
	require.Equal(t, 8, gen.total())

	type key struct {
		seedIdx   int
		dataset   string
		estimator string
	}
	var got []key
	for comb, ok := gen.next(); ok; comb, ok = gen.next() {
		got = append(got, key{comb.SeedIndex, comb.Dataset.Name, comb.Spec.Name})
	}

	want := []key{
		{0, "iris", "knn"}, {0, "iris", "centroid"},
		{0, "wine", "knn"}, {0, "wine", "centroid"},
		{1, "iris", "knn"}, {1, "iris", "centroid"},
		{1, "wine", "knn"}, {1, "wine", "centroid"},
	}
	assert.Equal(t, want, got, "seeds outermost, then datasets, then estimators")
}

func TestCombinations_Restartable(t *testing.T) {
	seeds := []seedDraw{{seed: 1, seeded: true}}
	datasets := []dataset.Dataset{{Name: "iris", X: mat.NewDense(1, 1, []float64{0}), Y: []float64{0}}}
	specs := []validatedSpec{{Name: "a"}, {Name: "b"}}

	gen := newCombinations(seeds, datasets, specs)
	first, ok := gen.next()
	require.True(t, ok)

	gen.reset()
	again, ok := gen.next()
	require.True(t, ok)
	assert.Equal(t, first, again)

	// Exhaust and confirm termination.
	_, ok = gen.next()
	require.True(t, ok)
	_, ok = gen.next()
	assert.False(t, ok)
}

func TestCombinations_SeedBinding(t *testing.T) {
	seeds := []seedDraw{{seed: 7, seeded: true}, {seed: 9, seeded: true}}
	datasets := []dataset.Dataset{{Name: "iris", X: mat.NewDense(1, 1, []float64{0}), Y: []float64{0}}}
	specs := []validatedSpec{{Name: "a"}}

	gen := newCombinations(seeds, datasets, specs)
	first, _ := gen.next()
	second, _ := gen.next()
	assert.Equal(t, int64(7), first.Seed.seed)
	assert.Equal(t, int64(9), second.Seed.seed)
	assert.Equal(t, 0, first.SeedIndex)
	assert.Equal(t, 1, second.SeedIndex)
}
