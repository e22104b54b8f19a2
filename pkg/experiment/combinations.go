// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import "github.com/AleutianAI/trawl/pkg/dataset"

// Combination is one (seed, dataset, estimator spec) triple awaiting
// evaluation.
type Combination struct {
	SeedIndex int
	Seed      seedDraw
	Dataset   dataset.Dataset
	Spec      validatedSpec
}

// combinations enumerates the cross product of seeds, datasets and
// specs in a fixed nested order: seeds outermost, then datasets, then
// specs, each in declaration order. Enumeration is pure: a combination
// is computed from its position, so the sequence can be restarted or
// re-iterated freely. Downstream consumers rely on this order matching
// the |seeds| x |datasets| x |specs| total.
type combinations struct {
	seeds    []seedDraw
	datasets []dataset.Dataset
	specs    []validatedSpec
	pos      int
}

func newCombinations(seeds []seedDraw, datasets []dataset.Dataset, specs []validatedSpec) *combinations {
	return &combinations{seeds: seeds, datasets: datasets, specs: specs}
}

// total returns the number of combinations the sequence yields.
func (c *combinations) total() int {
	return len(c.seeds) * len(c.datasets) * len(c.specs)
}

// next yields the following combination, or false once exhausted.
func (c *combinations) next() (Combination, bool) {
	if c.pos >= c.total() {
		return Combination{}, false
	}
	comb := c.at(c.pos)
	c.pos++
	return comb, true
}

// reset rewinds the sequence to the first combination.
func (c *combinations) reset() { c.pos = 0 }

// at computes the combination at position i without advancing.
func (c *combinations) at(i int) Combination {
	nSpecs := len(c.specs)
	nPerSeed := len(c.datasets) * nSpecs
	seedIdx := i / nPerSeed
	rem := i % nPerSeed
	return Combination{
		SeedIndex: seedIdx,
		Seed:      c.seeds[seedIdx],
		Dataset:   c.datasets[rem/nSpecs],
		Spec:      c.specs[rem%nSpecs],
	}
}
