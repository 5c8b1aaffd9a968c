// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package synapse

import (
	"fmt"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/emer/synview/device"
)

// Matrix is the owning, pitched device allocation of the synapse matrix:
// one row per neuron, a fixed number of synapse slots per row, and rows a
// pitch of bytes apart.  It belongs to the simulation driver, which creates,
// fills and frees it.  The shape is fixed at allocation.
type Matrix struct {
	nrows int
	ncols int
	pitch int
	buf   *device.Buffer
}

// NewMatrix allocates a zeroed nrows x ncols synapse matrix on dv
func NewMatrix(dv *device.Device, nrows, ncols int) (*Matrix, error) {
	if nrows < 0 || ncols < 0 {
		return nil, fmt.Errorf("synapse.NewMatrix: %w: %d x %d", device.ErrDimMismatch, nrows, ncols)
	}
	buf, pitch, err := dv.MallocPitch(ncols*Size, nrows)
	if err != nil {
		return nil, fmt.Errorf("synapse.NewMatrix: %w", err)
	}
	return &Matrix{nrows: nrows, ncols: ncols, pitch: pitch, buf: buf}, nil
}

// NRows returns the number of rows (neurons)
func (mx *Matrix) NRows() int { return mx.nrows }

// NCols returns the number of logical synapse slots per row
func (mx *Matrix) NCols() int { return mx.ncols }

// Pitch returns the bytes between the start of consecutive rows, >= NCols * Size
func (mx *Matrix) Pitch() int { return mx.pitch }

// Mem returns the read-only device memory of the matrix, padding included
func (mx *Matrix) Mem() device.View { return mx.buf.View() }

// Set stores the synapse at given row and slot
func (mx *Matrix) Set(row, col int, sy Synapse) error {
	if row < 0 || row >= mx.nrows || col < 0 || col >= mx.ncols {
		return fmt.Errorf("synapse.Matrix Set: %w: index %d,%d outside %d x %d", device.ErrDimMismatch, row, col, mx.nrows, mx.ncols)
	}
	off := row*mx.pitch + col*Size
	sy.Encode(mx.buf.Bytes()[off : off+Size])
	return nil
}

// View returns the read-only view of the matrix passed to the instrumentation layer
func (mx *Matrix) View() MatrixView {
	return MatrixView{nrows: mx.nrows, ncols: mx.ncols, pitch: mx.pitch, mem: mx.buf.View()}
}

// Free releases the device memory
func (mx *Matrix) Free() {
	mx.buf.Free()
}

// SizeReport returns a string reporting the logical and allocated memory of the matrix
func (mx *Matrix) SizeReport() string {
	var b strings.Builder
	logical := mx.nrows * mx.ncols * Size
	alloc := mx.nrows * mx.pitch
	fmt.Fprintf(&b, "%14s:\t Rows: %d\t Slots: %d\t Pitch: %d\n", "Synapses", mx.nrows, mx.ncols, mx.pitch)
	fmt.Fprintf(&b, "\t%14s:\t SynMem: %v\t Alloc: %v\t Padding: %v\n", "", datasize.ByteSize(logical).HumanReadable(),
		datasize.ByteSize(alloc).HumanReadable(), datasize.ByteSize(alloc-logical).HumanReadable())
	return b.String()
}

// MatrixView is a non-owning, read-only view of a pitched synapse matrix,
// valid only for the duration of the call it is passed to.  Its shape is
// checked once when it is made, by Matrix.View or NewMatrixView, and cannot
// be changed afterwards.  All access goes through bounds-checked accessors
// using the logical row / slot capacity: padding bytes between rows are
// never read.  The zero value is an empty view.
type MatrixView struct {
	nrows int
	ncols int
	pitch int
	mem   device.View
}

// NewMatrixView checks that mem can hold nrows x ncols records at given pitch
// and returns a view onto it.
func NewMatrixView(mem device.View, nrows, ncols, pitch int) (MatrixView, error) {
	switch {
	case nrows < 0 || ncols < 0:
		return MatrixView{}, fmt.Errorf("synapse.NewMatrixView: %w: %d x %d", device.ErrDimMismatch, nrows, ncols)
	case pitch < ncols*Size:
		return MatrixView{}, fmt.Errorf("synapse.NewMatrixView: %w: pitch %d < %d slots * %d bytes", device.ErrDimMismatch, pitch, ncols, Size)
	}
	if nrows > 0 && ncols > 0 {
		need := (nrows-1)*pitch + ncols*Size
		if mem.Len() < need {
			return MatrixView{}, fmt.Errorf("synapse.NewMatrixView: %w: %d bytes of memory, need %d", device.ErrDimMismatch, mem.Len(), need)
		}
	}
	return MatrixView{nrows: nrows, ncols: ncols, pitch: pitch, mem: mem}, nil
}

// NRows returns the number of rows (neurons)
func (mv MatrixView) NRows() int { return mv.nrows }

// NCols returns the number of logical synapse slots per row
func (mv MatrixView) NCols() int { return mv.ncols }

// Pitch returns the bytes between the start of consecutive rows
func (mv MatrixView) Pitch() int { return mv.pitch }

// NSyns returns the number of logical synapse records
func (mv MatrixView) NSyns() int { return mv.nrows * mv.ncols }

// InRange returns true if row, col is a logical cell of the matrix
func (mv MatrixView) InRange(row, col int) bool {
	return row >= 0 && row < mv.nrows && col >= 0 && col < mv.ncols
}

// Offset returns the byte offset of the record at row, col
func (mv MatrixView) Offset(row, col int) (int, error) {
	if !mv.InRange(row, col) {
		return 0, fmt.Errorf("synapse.MatrixView: %w: index %d,%d outside %d x %d", device.ErrDimMismatch, row, col, mv.nrows, mv.ncols)
	}
	return row*mv.pitch + col*Size, nil
}

// At returns the synapse at given row and slot
func (mv MatrixView) At(row, col int) (Synapse, error) {
	off, err := mv.Offset(row, col)
	if err != nil {
		return Synapse{}, err
	}
	sy := Synapse{}
	sy.Target = mv.mem.Int32(off)
	sy.Wt = mv.mem.Float32(off + 4)
	sy.Flags = SynFlags(mv.mem.Int32(off + 8))
	return sy, nil
}
