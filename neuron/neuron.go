// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package neuron holds the per-neuron output flags and weighted sums as
// paired device arrays, and the read-only views used to inspect them.
package neuron

import (
	"fmt"

	"github.com/emer/synview/device"
)

// Neuron is the host-side copy of the state of one neuron, as read from the paired arrays.
type Neuron struct {

	// index of the neuron
	Idx int

	// output flag for the current step: nonzero if the neuron fired
	Output int32

	// pre-threshold accumulated input for the current step
	WtdSum float32
}

// Fired returns true if the neuron fired in the current step
func (nrn *Neuron) Fired() bool { return nrn.Output != 0 }

func (nrn Neuron) String() string {
	return fmt.Sprintf("idx=%d fired=%d wtdsum=%g", nrn.Idx, nrn.Output, nrn.WtdSum)
}

var NeuronVars = []string{"Output", "WtdSum"}

var NeuronVarsMap map[string]int

func init() {
	NeuronVarsMap = make(map[string]int, len(NeuronVars))
	for i, v := range NeuronVars {
		NeuronVarsMap[v] = i
	}
}

// VarByName returns variable by name, or error
func (nrn *Neuron) VarByName(varNm string) (float32, error) {
	i, ok := NeuronVarsMap[varNm]
	if !ok {
		return 0, fmt.Errorf("Neuron VarByName: variable name: %v not valid", varNm)
	}
	if i == 0 {
		return float32(nrn.Output), nil
	}
	return nrn.WtdSum, nil
}

// State owns the paired device arrays: one int32 output flag and one float32
// weighted sum per neuron.  It belongs to the simulation driver.  The number
// of neurons is fixed at allocation.
type State struct {
	n    int
	outs *device.Buffer
	sums *device.Buffer
}

// NewState allocates zeroed state for n neurons on dv
func NewState(dv *device.Device, n int) (*State, error) {
	if n < 0 {
		return nil, fmt.Errorf("neuron.NewState: %w: %d neurons", device.ErrDimMismatch, n)
	}
	outs, err := dv.Malloc(n * 4)
	if err != nil {
		return nil, fmt.Errorf("neuron.NewState: %w", err)
	}
	sums, err := dv.Malloc(n * 4)
	if err != nil {
		outs.Free()
		return nil, fmt.Errorf("neuron.NewState: %w", err)
	}
	return &State{n: n, outs: outs, sums: sums}, nil
}

// Len returns the number of neurons
func (st *State) Len() int { return st.n }

// SetOutput sets the output flag of neuron i
func (st *State) SetOutput(i int, out int32) {
	st.outs.PutInt32(i*4, out)
}

// SetWtdSum sets the weighted sum of neuron i
func (st *State) SetWtdSum(i int, sum float32) {
	st.sums.PutFloat32(i*4, sum)
}

// Output returns the output flag of neuron i, for the driver
func (st *State) Output(i int) int32 {
	return st.outs.View().Int32(i * 4)
}

// WtdSum returns the weighted sum of neuron i, for the driver
func (st *State) WtdSum(i int) float32 {
	return st.sums.View().Float32(i * 4)
}

// View returns the paired read-only view passed to the instrumentation layer
func (st *State) View() View {
	return View{n: st.n, outs: st.outs.View(), sums: st.sums.View()}
}

// Free releases both arrays
func (st *State) Free() {
	st.outs.Free()
	st.sums.Free()
}

// View is a non-owning, read-only view of the paired output / weighted-sum
// arrays.  Its length is checked once when it is made, by State.View or
// NewView, and cannot be changed afterwards, so both arrays are always
// indexed by the same neuron index over the same range.
type View struct {
	n    int
	outs device.View
	sums device.View
}

// NewView pairs the output and weighted-sum arrays of n neurons.
// Returns ErrDimMismatch unless both arrays hold exactly n records.
func NewView(outs, sums device.View, n int) (View, error) {
	if n < 0 || outs.Len() != n*4 || sums.Len() != n*4 {
		return View{}, fmt.Errorf("neuron.NewView: %w: %d neurons, outputs %d bytes, weighted sums %d bytes",
			device.ErrDimMismatch, n, outs.Len(), sums.Len())
	}
	return View{n: n, outs: outs, sums: sums}, nil
}

// Len returns the number of neurons
func (vw View) Len() int { return vw.n }

// At returns the state of neuron i
func (vw View) At(i int) (Neuron, error) {
	if i < 0 || i >= vw.n {
		return Neuron{}, fmt.Errorf("neuron.View: %w: index %d outside %d neurons", device.ErrDimMismatch, i, vw.n)
	}
	return Neuron{Idx: i, Output: vw.outs.Int32(i * 4), WtdSum: vw.sums.Float32(i * 4)}, nil
}

// WtdSum returns the weighted sum of neuron i, which must be in range
func (vw View) WtdSum(i int) float32 { return vw.sums.Float32(i * 4) }

// Outputs returns the view of the output flags alone
func (vw View) Outputs() OutputView {
	return OutputView{n: vw.n, mem: vw.outs}
}

// OutputView is a non-owning, read-only view of the neuron output flags,
// with its length checked once when it is made.
type OutputView struct {
	n   int
	mem device.View
}

// NewOutputView returns a view of the output flags of n neurons in mem,
// which must hold exactly n records.
func NewOutputView(mem device.View, n int) (OutputView, error) {
	if n < 0 || mem.Len() != n*4 {
		return OutputView{}, fmt.Errorf("neuron.NewOutputView: %w: %d neurons, %d bytes", device.ErrDimMismatch, n, mem.Len())
	}
	return OutputView{n: n, mem: mem}, nil
}

// Len returns the number of neurons
func (ov OutputView) Len() int { return ov.n }

// At returns the output flag of neuron i
func (ov OutputView) At(i int) (int32, error) {
	if i < 0 || i >= ov.n {
		return 0, fmt.Errorf("neuron.OutputView: %w: index %d outside %d neurons", device.ErrDimMismatch, i, ov.n)
	}
	return ov.mem.Int32(i * 4), nil
}

// Mem returns the underlying read-only memory, for kernels
func (ov OutputView) Mem() device.View { return ov.mem }
