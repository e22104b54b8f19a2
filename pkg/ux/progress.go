// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal feedback for long-running trawl operations.
package ux

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var progressFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress renders a single-line completed/total indicator with elapsed
// time and a remaining-time estimate. It is safe for concurrent use,
// though the experiment driver advances it from a single loop.
type Progress struct {
	mu         sync.Mutex
	label      string
	total      int
	current    int
	started    time.Time
	out        io.Writer
	quiet      bool
	frameIndex int
}

// NewProgress creates a progress indicator for total steps.
func NewProgress(label string, total int) *Progress {
	return &Progress{label: label, total: total, out: os.Stderr}
}

// WithWriter redirects progress output. Primarily used by tests.
func (p *Progress) WithWriter(w io.Writer) *Progress {
	p.mu.Lock()
	p.out = w
	p.mu.Unlock()
	return p
}

// Quiet suppresses all rendering. Counters still advance so that
// Current/Total stay usable for machine consumers.
func (p *Progress) Quiet() *Progress {
	p.mu.Lock()
	p.quiet = true
	p.mu.Unlock()
	return p
}

// Start records the start time and renders the initial line.
func (p *Progress) Start() {
	p.mu.Lock()
	p.started = time.Now()
	p.mu.Unlock()
	p.render()
}

// Increment advances the counter by one completed step and re-renders.
func (p *Progress) Increment() {
	p.mu.Lock()
	p.current++
	p.mu.Unlock()
	p.render()
}

// Current returns the number of completed steps.
func (p *Progress) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Total returns the number of steps announced at construction.
func (p *Progress) Total() int { return p.total }

// Finish clears the progress line and prints a completion summary.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quiet {
		return
	}
	elapsed := time.Since(p.started).Round(time.Second)
	fmt.Fprintf(p.out, "\r\033[K%s [%d/%d] done in %s\n", p.label, p.current, p.total, elapsed)
}

func (p *Progress) render() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quiet {
		return
	}
	frame := progressFrames[p.frameIndex]
	p.frameIndex = (p.frameIndex + 1) % len(progressFrames)

	elapsed := time.Since(p.started)
	eta := "--"
	if p.current > 0 && p.current < p.total {
		perStep := elapsed / time.Duration(p.current)
		remaining := perStep * time.Duration(p.total-p.current)
		eta = remaining.Round(time.Second).String()
	}
	fmt.Fprintf(p.out, "\r\033[K%s %s [%d/%d] elapsed %s eta %s",
		frame, p.label, p.current, p.total, elapsed.Round(time.Second), eta)
}
