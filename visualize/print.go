// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visualize

import (
	"fmt"

	"github.com/emer/synview/device"
	"github.com/emer/synview/neuron"
	"github.com/emer/synview/synapse"
)

// SynapseLine returns the printed line for one synapse matrix cell
func SynapseLine(row, slot int, sy synapse.Synapse) string {
	st := "inactive"
	if sy.IsActive() {
		st = "active"
	}
	return fmt.Sprintf("synapse row=%d slot=%d target=%d wt=%g %s\n", row, slot, sy.Target, sy.Wt, st)
}

// NeuronLine returns the printed line for one neuron
func NeuronLine(nrn neuron.Neuron) string {
	return fmt.Sprintf("neuron idx=%d fired=%d wtdsum=%g\n", nrn.Idx, nrn.Output, nrn.WtdSum)
}

// PrintSynapses prints every logical cell of the synapse matrix, one thread
// per (row, slot) coordinate: X of the launch grid is the slot, Y the row.
// Threads that fall in the padding of the last block, or beyond the logical
// row capacity, emit nothing.  Returns the number of records emitted.
// Line order follows pr.Mode; see PrintModes.
func PrintSynapses(dv *device.Device, mv synapse.MatrixView, pr *Printer) (int, error) {
	const kernel = "printSynapses"
	pr.begin(mv.NSyns())
	if mv.NSyns() == 0 {
		return pr.end(kernel, nil)
	}
	bx, by := pr.Geom.BlockX, pr.Geom.BlockY
	ln := device.Launch{
		Grid:  device.D2(device.GridFor(mv.NCols(), bx), device.GridFor(mv.NRows(), by)),
		Block: device.D2(bx, by),
	}
	err := dv.Run(kernel, ln, func(th *device.Thread) {
		slot, row := th.GlobalX(), th.GlobalY()
		if !mv.InRange(row, slot) {
			return
		}
		sy, err := mv.At(row, slot)
		if err != nil {
			panic(err)
		}
		pr.emit(row*mv.NCols()+slot, SynapseLine(row, slot, sy))
	})
	return pr.end(kernel, err)
}

// PrintNeurons prints the output flag and weighted sum of every neuron,
// one thread per neuron.  The paired view guarantees both arrays cover the
// same neurons.  Returns the number of records emitted.
func PrintNeurons(dv *device.Device, nv neuron.View, pr *Printer) (int, error) {
	const kernel = "printNeurons"
	n := nv.Len()
	pr.begin(n)
	if n == 0 {
		return pr.end(kernel, nil)
	}
	bs := pr.Geom.BlockN
	ln := device.Launch{Grid: device.D1(device.GridFor(n, bs)), Block: device.D1(bs)}
	err := dv.Run(kernel, ln, func(th *device.Thread) {
		ni := th.GlobalX()
		if ni >= n {
			return
		}
		nrn, err := nv.At(ni)
		if err != nil {
			panic(err)
		}
		pr.emit(ni, NeuronLine(nrn))
	})
	return pr.end(kernel, err)
}
