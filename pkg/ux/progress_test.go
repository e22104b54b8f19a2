// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgress_Counts(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress("evaluating", 4).WithWriter(&buf)
	p.Start()

	for i := 0; i < 3; i++ {
		p.Increment()
	}

	if p.Current() != 3 {
		t.Errorf("Current() = %d, want 3", p.Current())
	}
	if p.Total() != 4 {
		t.Errorf("Total() = %d, want 4", p.Total())
	}
	if !strings.Contains(buf.String(), "[3/4]") {
		t.Errorf("output missing [3/4]: %q", buf.String())
	}
}

func TestProgress_Finish(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress("evaluating", 2).WithWriter(&buf)
	p.Start()
	p.Increment()
	p.Increment()
	p.Finish()

	out := buf.String()
	if !strings.Contains(out, "[2/2] done in") {
		t.Errorf("Finish output missing summary: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Finish should end the line")
	}
}

func TestProgress_QuietSuppressesOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress("evaluating", 2).WithWriter(&buf).Quiet()
	p.Start()
	p.Increment()
	p.Finish()

	if buf.Len() != 0 {
		t.Errorf("quiet progress wrote %q", buf.String())
	}
	if p.Current() != 1 {
		t.Errorf("quiet progress should still count, got %d", p.Current())
	}
}
