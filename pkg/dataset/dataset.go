// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dataset loads and holds the tabular datasets an experiment
// sweeps over. A dataset is immutable once loaded: a name maps to exactly
// one (features, target) pair for the lifetime of a run.
package dataset

import (
	"errors"
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNoDatasets indicates a source directory contained no matching files.
	ErrNoDatasets = errors.New("no dataset files found")

	// ErrShapeMismatch indicates features and target lengths disagree.
	ErrShapeMismatch = errors.New("feature/target shape mismatch")
)

// Dataset is one named (features, target) pair.
type Dataset struct {
	Name string
	X    *mat.Dense
	Y    []float64
}

// State tracks whether a collection currently carries dataset payloads.
// It replaces any implicit "does the field exist" sentinel: a collection
// is explicitly NotLoaded, Loaded, or Stripped.
type State int

const (
	// StateNotLoaded means no datasets were ever supplied.
	StateNotLoaded State = iota

	// StateLoaded means payloads are present and usable.
	StateLoaded

	// StateStripped means payloads were deliberately dropped, typically
	// before persisting an experiment snapshot.
	StateStripped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotLoaded:
		return "not-loaded"
	case StateLoaded:
		return "loaded"
	case StateStripped:
		return "stripped"
	default:
		return "unknown"
	}
}

// Collection holds an experiment's datasets together with their load state.
type Collection struct {
	state State
	items []Dataset
}

// Empty returns a collection in the NotLoaded state.
func Empty() *Collection {
	return &Collection{state: StateNotLoaded}
}

// New builds a Loaded collection from explicit datasets. Duplicate names
// are disambiguated with a count-index suffix ("iris", "iris1", ...).
// Every dataset must have as many target values as feature rows.
func New(items ...Dataset) (*Collection, error) {
	names := make([]string, len(items))
	for i, d := range items {
		rows, _ := d.X.Dims()
		if rows == 0 || rows != len(d.Y) {
			return nil, fmt.Errorf("dataset %q: %w: %d rows vs %d targets", d.Name, ErrShapeMismatch, rows, len(d.Y))
		}
		names[i] = d.Name
	}
	for i, name := range disambiguate(names) {
		items[i].Name = name
	}
	return &Collection{state: StateLoaded, items: items}, nil
}

// State reports whether payloads are present.
func (c *Collection) State() State { return c.state }

// Len returns the number of datasets. It is 0 unless the collection is Loaded.
func (c *Collection) Len() int {
	if c.state != StateLoaded {
		return 0
	}
	return len(c.items)
}

// Items returns the datasets in declaration order. Nil unless Loaded.
func (c *Collection) Items() []Dataset {
	if c.state != StateLoaded {
		return nil
	}
	return c.items
}

// Names returns the dataset names in declaration order.
func (c *Collection) Names() []string {
	names := make([]string, 0, len(c.items))
	for _, d := range c.items {
		names = append(names, d.Name)
	}
	return names
}

// Strip drops all payloads and moves the collection to the Stripped
// state. Used before persistence to keep snapshots small.
func (c *Collection) Strip() {
	c.items = nil
	c.state = StateStripped
}

// Summary describes one dataset's shape and class balance.
type Summary struct {
	Name           string  `json:"name"`
	Rows           int     `json:"rows"`
	Features       int     `json:"features"`
	Classes        int     `json:"classes"`
	ImbalanceRatio float64 `json:"imbalance_ratio"`
}

// Summaries returns per-dataset shape and imbalance summaries. The
// imbalance ratio is majority count over minority count; 1 means balanced.
func (c *Collection) Summaries() []Summary {
	out := make([]Summary, 0, c.Len())
	for _, d := range c.Items() {
		rows, cols := d.X.Dims()
		counts := map[float64]int{}
		for _, label := range d.Y {
			counts[label]++
		}
		minCount, maxCount := rows, 0
		for _, n := range counts {
			if n < minCount {
				minCount = n
			}
			if n > maxCount {
				maxCount = n
			}
		}
		ratio := 0.0
		if minCount > 0 {
			ratio = float64(maxCount) / float64(minCount)
		}
		out = append(out, Summary{
			Name:           d.Name,
			Rows:           rows,
			Features:       cols,
			Classes:        len(counts),
			ImbalanceRatio: ratio,
		})
	}
	return out
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
