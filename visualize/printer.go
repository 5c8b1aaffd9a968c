// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visualize

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/goki/ki/kit"
)

// PrintModes determine how lines emitted by many kernel threads reach the output
type PrintModes int32

//go:generate stringer -type=PrintModes

var KiT_PrintModes = kit.Enums.AddEnum(PrintModesN, kit.NotBitFlag, nil)

func (ev PrintModes) MarshalJSON() ([]byte, error)  { return kit.EnumMarshalJSON(ev) }
func (ev *PrintModes) UnmarshalJSON(b []byte) error { return kit.EnumUnmarshalJSON(ev, b) }

const (
	// Streamed writes each line as soon as its thread produces it.  Lines of
	// one record are never interleaved, but the order of records across
	// threads is best-effort only and differs from run to run.
	Streamed PrintModes = iota

	// Ordered has each thread store its line in an indexed slot, and emits the
	// slots in index order in a single pass after the launch completes.
	Ordered

	PrintModesN
)

// PrintParams are the launch geometry parameters of the print kernels
type PrintParams struct {

	// threads per block along the synapse slot dimension
	BlockX int `default:"16"`

	// threads per block along the neuron row dimension
	BlockY int `default:"16"`

	// threads per block for 1D neuron printing
	BlockN int `default:"256"`
}

func (pp *PrintParams) Defaults() {
	pp.BlockX = 16
	pp.BlockY = 16
	pp.BlockN = 256
}

// Printer is the output sink of the print kernels.  A Printer serves one
// print call at a time.
type Printer struct {

	// destination of the formatted lines
	W io.Writer

	// how lines from concurrent threads are ordered
	Mode PrintModes

	// write a trailing completion marker line when, and only when, a print
	// call succeeds -- distinguishes complete output from a partial one
	Marker bool

	// launch geometry
	Geom PrintParams

	mu    sync.Mutex
	err   error
	slots []string
	n     atomic.Int64
}

// NewPrinter returns a printer writing to w in given mode, with the
// completion marker on.
func NewPrinter(w io.Writer, mode PrintModes) *Printer {
	pr := &Printer{W: w, Mode: mode, Marker: true}
	pr.Geom.Defaults()
	return pr
}

// begin prepares for a call that can emit up to n records
func (pr *Printer) begin(n int) {
	if pr.Geom.BlockX <= 0 || pr.Geom.BlockY <= 0 || pr.Geom.BlockN <= 0 {
		pr.Geom.Defaults()
	}
	pr.err = nil
	pr.n.Store(0)
	pr.slots = nil
	if pr.Mode == Ordered {
		pr.slots = make([]string, n)
	}
}

// emit is called by a kernel thread with the line for record idx
func (pr *Printer) emit(idx int, line string) {
	pr.n.Add(1)
	if pr.Mode == Ordered {
		pr.slots[idx] = line
		return
	}
	pr.mu.Lock()
	pr.write(line)
	pr.mu.Unlock()
}

// write keeps the first writer error and drops output after it
func (pr *Printer) write(line string) {
	if pr.err != nil {
		return
	}
	if _, err := io.WriteString(pr.W, line); err != nil {
		pr.err = err
	}
}

// end flushes collected output and writes the marker if runErr is nil.
// Returns the number of records emitted.
func (pr *Printer) end(kernel string, runErr error) (int, error) {
	n := int(pr.n.Load())
	if pr.Mode == Ordered {
		for _, ln := range pr.slots {
			if ln != "" {
				pr.write(ln)
			}
		}
		pr.slots = nil
	}
	if runErr != nil {
		return n, fmt.Errorf("%s: %w", kernel, runErr)
	}
	if pr.err == nil && pr.Marker {
		pr.write(fmt.Sprintf("# %s complete: %d records\n", kernel, n))
	}
	if pr.err != nil {
		return n, fmt.Errorf("%s: writing output: %w", kernel, pr.err)
	}
	return n, nil
}
