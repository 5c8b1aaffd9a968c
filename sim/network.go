// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sim is a small spiking network driver that owns the device-resident
// synapse matrix and neuron state, and advances them one step at a time.
// It produces the state inspected by the visualize package.
package sim

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/emer/etable/v2/minmax"
	"github.com/emer/synview/device"
	"github.com/emer/synview/neuron"
	"github.com/emer/synview/synapse"
)

// Network holds the device state of a fully recurrent network: each neuron
// has a row of NSlots outgoing synapses onto target neurons.
type Network struct {

	// device holding all state
	Dev *device.Device

	// number of neurons
	NNeurons int

	// synapse slots per neuron
	NSlots int

	// activation function parameters
	Act ActParams

	// outgoing synapses, one row per source neuron
	Syns *synapse.Matrix

	// output flags and weighted sums
	State *neuron.State

	// average and max weighted sum over neurons on the last step
	WtdAvgMax minmax.AvgMax32

	// number of steps run since InitWeights
	Steps int

	netin []float32
}

// NewNetwork allocates a network of nneurons with nslots synapses each on dv
func NewNetwork(dv *device.Device, nneurons, nslots int) (*Network, error) {
	nt := &Network{Dev: dv, NNeurons: nneurons, NSlots: nslots}
	nt.Act.Defaults()
	var err error
	nt.Syns, err = synapse.NewMatrix(dv, nneurons, nslots)
	if err != nil {
		return nil, fmt.Errorf("sim.NewNetwork: %w", err)
	}
	nt.State, err = neuron.NewState(dv, nneurons)
	if err != nil {
		nt.Syns.Free()
		return nil, fmt.Errorf("sim.NewNetwork: %w", err)
	}
	nt.netin = make([]float32, nneurons)
	return nt, nil
}

// InitWeights fills every synapse slot: with probability pConn the slot is an
// active synapse onto a random target with a uniform random weight, otherwise
// it is inactive.  Neuron state is reset to zero.
func (nt *Network) InitWeights(rnd *rand.Rand, pConn float32) error {
	for ri := 0; ri < nt.NNeurons; ri++ {
		for si := 0; si < nt.NSlots; si++ {
			sy := synapse.Synapse{}
			if rnd.Float32() < pConn {
				sy.Target = int32(rnd.Intn(nt.NNeurons))
				sy.Wt = rnd.Float32()
				sy.SetActive(true)
			}
			if err := nt.Syns.Set(ri, si, sy); err != nil {
				return err
			}
		}
	}
	for ni := 0; ni < nt.NNeurons; ni++ {
		nt.State.SetOutput(ni, 0)
		nt.State.SetWtdSum(ni, 0)
	}
	nt.WtdAvgMax.Init()
	nt.Steps = 0
	return nil
}

// Step advances the network by one step.  Each neuron's weighted sum is its
// external input (ext, which may be shorter than NNeurons) plus the weights
// of the active synapses from neurons that fired on the previous step.  The
// new output flags are then computed on the device from the weighted sums.
func (nt *Network) Step(ext []float32) error {
	for ni := range nt.netin {
		nt.netin[ni] = 0
		if ni < len(ext) {
			nt.netin[ni] = ext[ni]
		}
	}
	mv := nt.Syns.View()
	for ri := 0; ri < nt.NNeurons; ri++ {
		if nt.State.Output(ri) == 0 {
			continue
		}
		for si := 0; si < nt.NSlots; si++ {
			sy, err := mv.At(ri, si)
			if err != nil {
				return err
			}
			if !sy.IsActive() || int(sy.Target) >= nt.NNeurons || sy.Target < 0 {
				continue
			}
			nt.netin[sy.Target] += sy.Wt
		}
	}
	nt.WtdAvgMax.Init()
	for ni, v := range nt.netin {
		nt.WtdAvgMax.UpdateVal(v, int32(ni))
	}
	nt.WtdAvgMax.CalcAvg()
	if nt.NNeurons == 0 {
		nt.Steps++
		return nil
	}

	bs := 256
	ln := device.Launch{Grid: device.D1(device.GridFor(nt.NNeurons, bs)), Block: device.D1(bs)}
	st := nt.State
	err := nt.Dev.Run("actFun", ln, func(th *device.Thread) {
		ni := th.GlobalX()
		if ni >= nt.NNeurons {
			return
		}
		ws := nt.netin[ni]
		out := int32(0)
		if nt.Act.Fired(ws) {
			out = 1
		}
		st.SetWtdSum(ni, ws)
		st.SetOutput(ni, out)
	})
	if err != nil {
		return fmt.Errorf("sim.Step: %w", err)
	}
	nt.Steps++
	return nil
}

// Free releases all device memory
func (nt *Network) Free() {
	nt.Syns.Free()
	nt.State.Free()
}

// SizeReport returns a string reporting the size of the network state
func (nt *Network) SizeReport() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s:\t Neurons: %d\t Slots: %d\n", "Network", nt.NNeurons, nt.NSlots)
	b.WriteString(nt.Syns.SizeReport())
	b.WriteString(nt.Dev.SizeReport())
	return b.String()
}
