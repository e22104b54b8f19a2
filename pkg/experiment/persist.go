// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package experiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/trawl/pkg/dataset"
	"github.com/AleutianAI/trawl/pkg/scoring"
)

// snapshotType tags persisted experiment files so Load can reject
// arbitrary JSON.
const snapshotType = "aleutian.trawl/experiment"

// snapshotVersion guards against future layout changes.
const snapshotVersion = 1

// ErrNotExperiment indicates a file that is not a persisted experiment.
var ErrNotExperiment = errors.New("file is not a persisted experiment")

type snapshot struct {
	Type        string        `json:"type"`
	Version     int           `json:"version"`
	RunID       string        `json:"run_id"`
	Repetitions int           `json:"repetitions"`
	RandomState RandomState   `json:"random_state"`
	MetricNames []string      `json:"metric_names"`
	Datasets    *datasetBlock `json:"datasets,omitempty"`
	Results     []ScoreRecord `json:"results"`
}

type datasetBlock struct {
	State string            `json:"state"`
	Items []datasetSnapshot `json:"items,omitempty"`
}

type datasetSnapshot struct {
	Name     string    `json:"name"`
	Rows     int       `json:"rows"`
	Cols     int       `json:"cols"`
	Features []float64 `json:"features"`
	Target   []float64 `json:"target"`
}

// Save writes the experiment state to path as JSON. Unless keepDatasets
// is set, the live dataset collection is stripped first, permanently:
// snapshots are meant to carry configuration and results, not raw data.
func (e *Experiment) Save(path string, keepDatasets bool) error {
	if !keepDatasets && e.datasets.State() == dataset.StateLoaded {
		e.datasets.Strip()
	}

	snap := snapshot{
		Type:        snapshotType,
		Version:     snapshotVersion,
		RunID:       e.runID,
		Repetitions: e.repetitions,
		RandomState: e.randomState,
		MetricNames: e.scoring.Names(),
		Datasets:    &datasetBlock{State: e.datasets.State().String()},
		Results:     e.results,
	}
	for _, d := range e.datasets.Items() {
		rows, cols := d.X.Dims()
		features := make([]float64, 0, rows*cols)
		for r := 0; r < rows; r++ {
			features = append(features, d.X.RawRowView(r)...)
		}
		snap.Datasets.Items = append(snap.Datasets.Items, datasetSnapshot{
			Name:     d.Name,
			Rows:     rows,
			Cols:     cols,
			Features: features,
			Target:   append([]float64(nil), d.Y...),
		})
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding experiment: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing experiment snapshot: %w", err)
	}
	return nil
}

// Load reads a persisted experiment back for inspection. Estimator
// specs are not part of snapshots, so a loaded experiment carries
// results, metric names and (when kept) datasets, but cannot be re-run
// as-is.
func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotExperiment, err)
	}
	if snap.Type != snapshotType {
		return nil, fmt.Errorf("%w: type tag %q", ErrNotExperiment, snap.Type)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	e := New(nil, nil,
		WithRepetitions(snap.Repetitions),
		WithRandomState(snap.RandomState),
	)
	if len(snap.MetricNames) > 0 {
		// Custom scorers cannot round-trip; unknown names only matter
		// if the caller re-runs, which a loaded experiment cannot do.
		if spec, err := scoring.Metrics(snap.MetricNames...); err == nil {
			e.scoring = spec
		}
	}
	e.runID = snap.RunID
	e.results = snap.Results

	collection, err := loadDatasets(snap.Datasets)
	if err != nil {
		return nil, err
	}
	e.datasets = collection
	return e, nil
}

func loadDatasets(block *datasetBlock) (*dataset.Collection, error) {
	if block == nil {
		return dataset.Empty(), nil
	}
	switch block.State {
	case dataset.StateLoaded.String():
		items := make([]dataset.Dataset, 0, len(block.Items))
		for _, ds := range block.Items {
			if ds.Rows*ds.Cols != len(ds.Features) {
				return nil, fmt.Errorf("%w: dataset %q has %d feature values for a %dx%d matrix",
					ErrNotExperiment, ds.Name, len(ds.Features), ds.Rows, ds.Cols)
			}
			items = append(items, dataset.Dataset{
				Name: ds.Name,
				X:    mat.NewDense(ds.Rows, ds.Cols, ds.Features),
				Y:    ds.Target,
			})
		}
		return dataset.New(items...)
	case dataset.StateStripped.String():
		c := dataset.Empty()
		c.Strip()
		return c, nil
	default:
		return dataset.Empty(), nil
	}
}
