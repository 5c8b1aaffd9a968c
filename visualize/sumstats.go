// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visualize

import (
	"fmt"
	"strings"

	"github.com/emer/etable/v2/minmax"
	"github.com/emer/synview/device"
	"github.com/emer/synview/neuron"
	"github.com/emer/synview/synapse"
	"github.com/goki/mat32"
)

// SumStats summarize the neuron weighted sums
type SumStats struct {

	// number of neurons
	N int

	// range of weighted sums
	Range minmax.F32

	// sum of weighted sums
	Sum float32

	// average weighted sum
	Avg float32
}

func (ss SumStats) String() string {
	return fmt.Sprintf("WtdSum:\t Avg: %.4g\t Min: %.4g\t Max: %.4g", ss.Avg, ss.Range.Min, ss.Range.Max)
}

// SynStats summarize the synapse matrix over its logical cells.  Weight
// statistics are over active synapses only.
type SynStats struct {

	// number of logical synapse records
	NSyns int

	// number of active synapses
	NActive int

	// range of active weights
	Wt minmax.F32

	// average active weight
	WtAvg float32
}

// PctActive returns the proportion of synapse slots that are active
func (ss SynStats) PctActive() float32 {
	if ss.NSyns == 0 {
		return 0
	}
	return float32(ss.NActive) / float32(ss.NSyns)
}

func (ss SynStats) String() string {
	return fmt.Sprintf("Synapses: %d\t Active: %d\t WtAvg: %.4g\t WtMin: %.4g\t WtMax: %.4g",
		ss.NSyns, ss.NActive, ss.WtAvg, ss.Wt.Min, ss.Wt.Max)
}

// WtdSumStats computes the sum, range and average of the neuron weighted
// sums.  Each block reduces its grid-stride share in shared memory and
// writes one partial record; the partials are then combined on the host in
// block order, so the result does not depend on block scheduling.
func WtdSumStats(dv *device.Device, nv neuron.View, rp *ReduceParams) (SumStats, error) {
	rp = defaultParams(rp)
	n := nv.Len()
	ss := SumStats{N: n}
	if n == 0 {
		return ss, nil
	}
	ln := rp.launch(n, 0, 3)
	nblk := ln.Grid.X
	part, err := dv.Malloc(nblk * 12)
	if err != nil {
		return SumStats{}, fmt.Errorf("wtdSumStats: %w", err)
	}
	defer part.Free()
	err = dv.Run("wtdSumStats", ln, func(th *device.Thread) {
		sum, mn, mx := float32(0), mat32.Inf(1), mat32.Inf(-1)
		for i := th.GlobalX(); i < n; i += th.BlockDim.X * th.GridDim.X {
			v := nv.WtdSum(i)
			sum += v
			mn = mat32.Min(mn, v)
			mx = mat32.Max(mx, v)
		}
		sum, mn, mx = treeF32(th, sum, mn, mx)
		if th.ThreadIdx.X == 0 {
			off := th.BlockIdx.X * 12
			part.PutFloat32(off, sum)
			part.PutFloat32(off+4, mn)
			part.PutFloat32(off+8, mx)
		}
	})
	if err != nil {
		return SumStats{}, fmt.Errorf("wtdSumStats: %w", err)
	}
	pv := part.View()
	ss.Range.Set(mat32.Inf(1), mat32.Inf(-1))
	for bi := 0; bi < nblk; bi++ {
		off := bi * 12
		ss.Sum += pv.Float32(off)
		ss.Range.Min = mat32.Min(ss.Range.Min, pv.Float32(off+4))
		ss.Range.Max = mat32.Max(ss.Range.Max, pv.Float32(off+8))
	}
	ss.Avg = ss.Sum / float32(ss.N)
	return ss, nil
}

// SynapseStats counts the active synapses and summarizes their weights.
// Threads stride over the logical cells of the matrix only, never padding.
func SynapseStats(dv *device.Device, mv synapse.MatrixView, rp *ReduceParams) (SynStats, error) {
	rp = defaultParams(rp)
	ns := mv.NSyns()
	st := SynStats{NSyns: ns}
	if ns == 0 {
		return st, nil
	}
	ln := rp.launch(ns, 1, 3)
	nblk := ln.Grid.X
	part, err := dv.Malloc(nblk * 16)
	if err != nil {
		return SynStats{}, fmt.Errorf("synapseStats: %w", err)
	}
	defer part.Free()
	nc := mv.NCols()
	err = dv.Run("synapseStats", ln, func(th *device.Thread) {
		nact := int32(0)
		sum, mn, mx := float32(0), mat32.Inf(1), mat32.Inf(-1)
		for i := th.GlobalX(); i < ns; i += th.BlockDim.X * th.GridDim.X {
			sy, err := mv.At(i/nc, i%nc)
			if err != nil {
				panic(err)
			}
			if !sy.IsActive() {
				continue
			}
			nact++
			sum += sy.Wt
			mn = mat32.Min(mn, sy.Wt)
			mx = mat32.Max(mx, sy.Wt)
		}
		nact = treeI32(th, nact)
		sum, mn, mx = treeF32(th, sum, mn, mx)
		if th.ThreadIdx.X == 0 {
			off := th.BlockIdx.X * 16
			part.PutInt32(off, nact)
			part.PutFloat32(off+4, sum)
			part.PutFloat32(off+8, mn)
			part.PutFloat32(off+12, mx)
		}
	})
	if err != nil {
		return SynStats{}, fmt.Errorf("synapseStats: %w", err)
	}
	pv := part.View()
	sum := float32(0)
	st.Wt.Set(mat32.Inf(1), mat32.Inf(-1))
	for bi := 0; bi < nblk; bi++ {
		off := bi * 16
		st.NActive += int(pv.Int32(off))
		sum += pv.Float32(off + 4)
		st.Wt.Min = mat32.Min(st.Wt.Min, pv.Float32(off+8))
		st.Wt.Max = mat32.Max(st.Wt.Max, pv.Float32(off+12))
	}
	if st.NActive == 0 {
		st.Wt.Set(0, 0)
		return st, nil
	}
	st.WtAvg = sum / float32(st.NActive)
	return st, nil
}

// Report collects all the statistics of one simulation step
type Report struct {

	// output flag counts
	Neurons Stats

	// weighted sum summary
	WtdSums SumStats

	// synapse matrix summary
	Synapses SynStats
}

// Summarize runs all the reductions over one step of state.  The first
// failure is returned, with no partial report.
func Summarize(dv *device.Device, mv synapse.MatrixView, nv neuron.View, rp *ReduceParams) (Report, error) {
	rp = defaultParams(rp)
	var rep Report
	var err error
	if rep.Neurons, err = NeuronStats(dv, nv.Outputs(), rp); err != nil {
		return Report{}, err
	}
	if rep.WtdSums, err = WtdSumStats(dv, nv, rp); err != nil {
		return Report{}, err
	}
	if rep.Synapses, err = SynapseStats(dv, mv, rp); err != nil {
		return Report{}, err
	}
	return rep, nil
}

func (rp Report) String() string {
	var b strings.Builder
	b.WriteString(rp.Neurons.String())
	b.WriteString("\n")
	b.WriteString(rp.WtdSums.String())
	b.WriteString("\n")
	b.WriteString(rp.Synapses.String())
	b.WriteString("\n")
	return b.String()
}
