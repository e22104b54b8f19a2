// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package crossval provides cross-validation splitters and the
// resolution step that normalizes a caller-facing CV specification into
// a concrete splitter. Splitters always shuffle: the experiment harness
// reseeds the splitter for every combination, and an unshuffled split
// would make that seed meaningless.
package crossval

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// DefaultFolds is used when a specification names no fold count.
const DefaultFolds = 3

var (
	// ErrBadFolds indicates a fold count below 2.
	ErrBadFolds = errors.New("fold count must be at least 2")

	// ErrTooFewSamples indicates fewer samples than folds.
	ErrTooFewSamples = errors.New("more folds than samples")
)

// Fold is one train/test partition of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// Splitter partitions the rows of a dataset into folds.
type Splitter interface {
	// Split produces the folds for a target vector of len(y) rows.
	Split(y []float64) ([]Fold, error)
}

// Seedable is implemented by splitters whose shuffling can be rebound
// to a new random state without mutating the original.
type Seedable interface {
	Splitter

	// WithSeed returns a copy of the splitter driven by the given seed.
	// When seeded is false the copy draws from ambient randomness.
	WithSeed(seed int64, seeded bool) Splitter
}

// KFold shuffles row indices and cuts them into K contiguous folds.
type KFold struct {
	K      int
	Seed   int64
	Seeded bool
}

// WithSeed returns a copy bound to the given random state.
func (k *KFold) WithSeed(seed int64, seeded bool) Splitter {
	return &KFold{K: k.K, Seed: seed, Seeded: seeded}
}

// Split produces K folds over a shuffled permutation of the rows. The
// first len(y) % K folds receive one extra test row.
func (k *KFold) Split(y []float64) ([]Fold, error) {
	n := len(y)
	if err := checkFolds(k.K, n); err != nil {
		return nil, err
	}
	perm := newRNG(k.Seed, k.Seeded).Perm(n)

	folds := make([]Fold, k.K)
	start := 0
	for i := 0; i < k.K; i++ {
		size := n / k.K
		if i < n%k.K {
			size++
		}
		folds[i].Test = sortedCopy(perm[start : start+size])
		start += size
	}
	fillTrain(folds, n)
	return folds, nil
}

// StratifiedKFold preserves per-class label proportions across folds by
// shuffling each class independently and dealing its members round-robin.
type StratifiedKFold struct {
	K      int
	Seed   int64
	Seeded bool
}

// WithSeed returns a copy bound to the given random state.
func (s *StratifiedKFold) WithSeed(seed int64, seeded bool) Splitter {
	return &StratifiedKFold{K: s.K, Seed: seed, Seeded: seeded}
}

// Split produces K folds whose test sets approximate the overall class
// distribution.
func (s *StratifiedKFold) Split(y []float64) ([]Fold, error) {
	n := len(y)
	if err := checkFolds(s.K, n); err != nil {
		return nil, err
	}
	rng := newRNG(s.Seed, s.Seeded)

	labels := make([]float64, 0)
	perClass := map[float64][]int{}
	for i, label := range y {
		if _, ok := perClass[label]; !ok {
			labels = append(labels, label)
		}
		perClass[label] = append(perClass[label], i)
	}
	sort.Float64s(labels)

	folds := make([]Fold, s.K)
	next := 0
	for _, label := range labels {
		members := perClass[label]
		rng.Shuffle(len(members), func(a, b int) {
			members[a], members[b] = members[b], members[a]
		})
		for _, idx := range members {
			folds[next%s.K].Test = append(folds[next%s.K].Test, idx)
			next++
		}
	}
	for i := range folds {
		sort.Ints(folds[i].Test)
	}
	fillTrain(folds, n)
	return folds, nil
}

// IndexSplitter replays explicit, caller-supplied train/test pairs.
type IndexSplitter struct {
	Folds []Fold
}

// Split returns the configured folds unchanged.
func (s *IndexSplitter) Split([]float64) ([]Fold, error) {
	if len(s.Folds) == 0 {
		return nil, errors.New("index splitter has no folds")
	}
	return s.Folds, nil
}

// Spec is the caller-facing cross-validation specification. At most one
// field should be set; a zero Spec means DefaultFolds-fold splitting.
type Spec struct {
	// Folds requests a (Stratified)KFold with this many folds.
	Folds int

	// Splitter supplies an existing splitter. Seedable splitters are
	// rebound to each combination's seed; others are used as-is.
	Splitter Splitter

	// Indices supplies explicit train/test pairs.
	Indices []Fold
}

// Resolve normalizes a Spec into a concrete splitter bound to the given
// random state. Stratified splitting is chosen when the estimator under
// evaluation is classification-capable.
func Resolve(spec Spec, stratified bool, seed int64, seeded bool) (Splitter, error) {
	switch {
	case len(spec.Indices) > 0:
		return &IndexSplitter{Folds: spec.Indices}, nil
	case spec.Splitter != nil:
		if s, ok := spec.Splitter.(Seedable); ok {
			return s.WithSeed(seed, seeded), nil
		}
		return spec.Splitter, nil
	default:
		k := spec.Folds
		if k == 0 {
			k = DefaultFolds
		}
		if k < 2 {
			return nil, fmt.Errorf("%w: got %d", ErrBadFolds, k)
		}
		if stratified {
			return &StratifiedKFold{K: k, Seed: seed, Seeded: seeded}, nil
		}
		return &KFold{K: k, Seed: seed, Seeded: seeded}, nil
	}
}

func checkFolds(k, n int) error {
	if k < 2 {
		return fmt.Errorf("%w: got %d", ErrBadFolds, k)
	}
	if n < k {
		return fmt.Errorf("%w: %d samples into %d folds", ErrTooFewSamples, n, k)
	}
	return nil
}

func fillTrain(folds []Fold, n int) {
	for i := range folds {
		inTest := make([]bool, n)
		for _, idx := range folds[i].Test {
			inTest[idx] = true
		}
		train := make([]int, 0, n-len(folds[i].Test))
		for idx := 0; idx < n; idx++ {
			if !inTest[idx] {
				train = append(train, idx)
			}
		}
		folds[i].Train = train
	}
}

func sortedCopy(idx []int) []int {
	out := append([]int(nil), idx...)
	sort.Ints(out)
	return out
}

func newRNG(seed int64, seeded bool) *rand.Rand {
	if seeded {
		return rand.New(rand.NewSource(seed))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}
