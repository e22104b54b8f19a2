// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gridsearch evaluates a hyperparameter grid with cross
// validation. The search is evaluation-only: it scores every grid point
// but never refits a winning configuration on the full data.
package gridsearch

import (
	"sort"

	"github.com/AleutianAI/trawl/pkg/mlearn"
)

// ParamGrid maps a parameter path to its candidate values. For pipeline
// estimators the path carries a stage prefix ("smote__ratio"); for
// single estimators it is the bare parameter name.
type ParamGrid map[string][]any

// Points expands the grid into concrete parameter assignments. Keys are
// iterated in sorted order and values in declaration order, so the
// expansion is deterministic. An empty or nil grid expands to a single
// empty assignment: the estimator's defaults.
func (g ParamGrid) Points() []mlearn.Params {
	if len(g) == 0 {
		return []mlearn.Params{{}}
	}
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := []mlearn.Params{{}}
	for _, key := range keys {
		values := g[key]
		next := make([]mlearn.Params, 0, len(points)*len(values))
		for _, base := range points {
			for _, v := range values {
				p := make(mlearn.Params, len(base)+1)
				for bk, bv := range base {
					p[bk] = bv
				}
				p[key] = v
				next = append(next, p)
			}
		}
		points = next
	}
	return points
}

// Size returns the number of points the grid expands to.
func (g ParamGrid) Size() int {
	size := 1
	for _, values := range g {
		size *= len(values)
	}
	return size
}

// Clone returns a deep copy of the grid's key/value structure.
// Candidate values themselves are shared.
func (g ParamGrid) Clone() ParamGrid {
	if g == nil {
		return nil
	}
	out := make(ParamGrid, len(g))
	for k, values := range g {
		out[k] = append([]any(nil), values...)
	}
	return out
}
