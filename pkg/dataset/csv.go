// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// csvExt is the file extension LoadDir matches, case-insensitively.
const csvExt = ".csv"

// LoadDir reads every CSV file in dir into a Loaded collection. Each
// file becomes one dataset named after the file stem; the first line is
// treated as a header, the last column as the target, and all preceding
// columns as features. Returns ErrNoDatasets when the directory holds
// no CSV files.
func LoadDir(dir string) (*Collection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset directory %s: %w", dir, err)
	}

	var items []Dataset
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), csvExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		d, err := loadCSV(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
		items = append(items, d)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDatasets, dir)
	}
	return New(items...)
}

func loadCSV(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return Dataset{}, err
	}
	if len(records) < 2 {
		return Dataset{}, fmt.Errorf("want a header line and at least one data row, got %d lines", len(records))
	}
	cols := len(records[0])
	if cols < 2 {
		return Dataset{}, fmt.Errorf("want at least one feature column and one target column, got %d columns", cols)
	}

	rows := len(records) - 1
	X := mat.NewDense(rows, cols-1, nil)
	y := make([]float64, rows)
	for r, record := range records[1:] {
		if len(record) != cols {
			return Dataset{}, fmt.Errorf("line %d: want %d columns, got %d", r+2, cols, len(record))
		}
		for c, field := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return Dataset{}, fmt.Errorf("line %d column %d: %w", r+2, c+1, err)
			}
			if c == cols-1 {
				y[r] = v
			} else {
				X.Set(r, c, v)
			}
		}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Dataset{Name: name, X: X, Y: y}, nil
}
