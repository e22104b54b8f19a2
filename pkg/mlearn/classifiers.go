// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package mlearn

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MajorityClassifier always predicts the most frequent training label.
// It is the baseline every real model should beat.
type MajorityClassifier struct {
	classes  []float64
	majority float64
	positive float64 // prior of the largest label, used as a constant ranking score
	fitted   bool
}

// Fit memorizes the majority class of y.
func (c *MajorityClassifier) Fit(_ *mat.Dense, y []float64) error {
	if len(y) == 0 {
		return ErrEmptyInput
	}
	counts := countLabels(y)
	c.classes = sortedLabels(counts)
	c.majority = c.classes[0]
	best := counts[c.majority]
	for _, label := range c.classes {
		if counts[label] > best {
			c.majority, best = label, counts[label]
		}
	}
	positive := c.classes[len(c.classes)-1]
	c.positive = float64(counts[positive]) / float64(len(y))
	c.fitted = true
	return nil
}

// Predict returns the majority label for every row.
func (c *MajorityClassifier) Predict(X *mat.Dense) ([]float64, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	rows, _ := X.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = c.majority
	}
	return out, nil
}

// PredictScore returns the positive-class prior for every row. The
// constant score yields chance-level ranking, as expected of a baseline.
func (c *MajorityClassifier) PredictScore(X *mat.Dense) ([]float64, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	rows, _ := X.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = c.positive
	}
	return out, nil
}

// NumClasses reports the distinct labels seen during Fit.
func (c *MajorityClassifier) NumClasses() int { return len(c.classes) }

// SetParams rejects every parameter; the baseline has none.
func (c *MajorityClassifier) SetParams(params Params) error {
	for name := range params {
		return unknownParam(name)
	}
	return nil
}

// Clone returns an unfitted copy.
func (c *MajorityClassifier) Clone() Estimator { return &MajorityClassifier{} }

// NearestCentroid predicts the label of the closest class centroid in
// Euclidean distance.
type NearestCentroid struct {
	classes   []float64
	centroids *mat.Dense
	fitted    bool
}

// Fit computes one centroid per class.
func (c *NearestCentroid) Fit(X *mat.Dense, y []float64) error {
	rows, cols := X.Dims()
	if rows == 0 || rows != len(y) {
		return fmt.Errorf("%w: %d rows vs %d targets", ErrEmptyInput, rows, len(y))
	}
	c.classes = sortedLabels(countLabels(y))
	c.centroids = mat.NewDense(len(c.classes), cols, nil)
	for ci, label := range c.classes {
		sum := make([]float64, cols)
		n := 0
		for r := 0; r < rows; r++ {
			if y[r] == label {
				floats.Add(sum, X.RawRowView(r))
				n++
			}
		}
		floats.Scale(1/float64(n), sum)
		c.centroids.SetRow(ci, sum)
	}
	c.fitted = true
	return nil
}

// Predict returns the label of the nearest centroid for each row.
func (c *NearestCentroid) Predict(X *mat.Dense) ([]float64, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	rows, _ := X.Dims()
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		best, bestDist := c.classes[0], math.Inf(1)
		for ci, label := range c.classes {
			d := floats.Distance(X.RawRowView(r), c.centroids.RawRowView(ci), 2)
			if d < bestDist {
				best, bestDist = label, d
			}
		}
		out[r] = best
	}
	return out, nil
}

// NumClasses reports the distinct labels seen during Fit.
func (c *NearestCentroid) NumClasses() int { return len(c.classes) }

// SetParams rejects every parameter; the centroid rule has none.
func (c *NearestCentroid) SetParams(params Params) error {
	for name := range params {
		return unknownParam(name)
	}
	return nil
}

// Clone returns an unfitted copy.
func (c *NearestCentroid) Clone() Estimator { return &NearestCentroid{} }

// DefaultNeighbors is the neighbor count a KNNClassifier uses when K is
// left unset.
const DefaultNeighbors = 5

// KNNClassifier is a k-nearest-neighbors vote over the training set.
type KNNClassifier struct {
	// K is the neighbor count. Values < 1 fall back to DefaultNeighbors.
	K int

	trainX  *mat.Dense
	trainY  []float64
	classes []float64
	fitted  bool
}

// Fit memorizes the training set.
func (c *KNNClassifier) Fit(X *mat.Dense, y []float64) error {
	rows, _ := X.Dims()
	if rows == 0 || rows != len(y) {
		return fmt.Errorf("%w: %d rows vs %d targets", ErrEmptyInput, rows, len(y))
	}
	c.trainX = mat.DenseCopyOf(X)
	c.trainY = append([]float64(nil), y...)
	c.classes = sortedLabels(countLabels(y))
	c.fitted = true
	return nil
}

// Predict returns the majority label among the K nearest training rows.
// Distance ties break toward the earlier training row, vote ties toward
// the smaller label.
func (c *KNNClassifier) Predict(X *mat.Dense) ([]float64, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	rows, _ := X.Dims()
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		votes := map[float64]int{}
		for _, n := range c.neighbors(X.RawRowView(r)) {
			votes[c.trainY[n]]++
		}
		best, bestVotes := math.Inf(1), -1
		for _, label := range c.classes {
			if v := votes[label]; v > bestVotes || (v == bestVotes && label < best) {
				best, bestVotes = label, v
			}
		}
		out[r] = best
	}
	return out, nil
}

// PredictScore returns, for each row, the fraction of the K nearest
// neighbors carrying the largest class label.
func (c *KNNClassifier) PredictScore(X *mat.Dense) ([]float64, error) {
	if !c.fitted {
		return nil, ErrNotFitted
	}
	positive := c.classes[len(c.classes)-1]
	rows, _ := X.Dims()
	out := make([]float64, rows)
	for r := 0; r < rows; r++ {
		nbrs := c.neighbors(X.RawRowView(r))
		hits := 0
		for _, n := range nbrs {
			if c.trainY[n] == positive {
				hits++
			}
		}
		out[r] = float64(hits) / float64(len(nbrs))
	}
	return out, nil
}

// NumClasses reports the distinct labels seen during Fit.
func (c *KNNClassifier) NumClasses() int { return len(c.classes) }

// SetParams accepts "k", the neighbor count.
func (c *KNNClassifier) SetParams(params Params) error {
	for name, value := range params {
		switch name {
		case "k":
			k, ok := paramInt(value)
			if !ok || k < 1 {
				return fmt.Errorf("parameter k: want positive integer, got %v", value)
			}
			c.K = k
		default:
			return unknownParam(name)
		}
	}
	return nil
}

// Clone returns an unfitted copy preserving K.
func (c *KNNClassifier) Clone() Estimator { return &KNNClassifier{K: c.K} }

func (c *KNNClassifier) neighbors(row []float64) []int {
	k := c.K
	if k < 1 {
		k = DefaultNeighbors
	}
	n := len(c.trainY)
	if k > n {
		k = n
	}
	idx := make([]int, n)
	dist := make([]float64, n)
	for i := 0; i < n; i++ {
		idx[i] = i
		dist[i] = floats.Distance(row, c.trainX.RawRowView(i), 2)
	}
	sort.SliceStable(idx, func(a, b int) bool { return dist[idx[a]] < dist[idx[b]] })
	return idx[:k]
}

// MeanRegressor predicts the mean of the training targets. It exists so
// the harness has a non-classification estimator to exercise the plain
// KFold path.
type MeanRegressor struct {
	mean   float64
	fitted bool
}

// Fit memorizes the target mean.
func (r *MeanRegressor) Fit(_ *mat.Dense, y []float64) error {
	if len(y) == 0 {
		return ErrEmptyInput
	}
	r.mean = stat.Mean(y, nil)
	r.fitted = true
	return nil
}

// Predict returns the training mean for every row.
func (r *MeanRegressor) Predict(X *mat.Dense) ([]float64, error) {
	if !r.fitted {
		return nil, ErrNotFitted
	}
	rows, _ := X.Dims()
	out := make([]float64, rows)
	for i := range out {
		out[i] = r.mean
	}
	return out, nil
}

// SetParams rejects every parameter.
func (r *MeanRegressor) SetParams(params Params) error {
	for name := range params {
		return unknownParam(name)
	}
	return nil
}

// Clone returns an unfitted copy.
func (r *MeanRegressor) Clone() Estimator { return &MeanRegressor{} }

func countLabels(y []float64) map[float64]int {
	counts := map[float64]int{}
	for _, label := range y {
		counts[label]++
	}
	return counts
}

func sortedLabels(counts map[float64]int) []float64 {
	labels := make([]float64, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Float64s(labels)
	return labels
}
