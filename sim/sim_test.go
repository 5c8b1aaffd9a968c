// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/emer/synview/device"
	"github.com/emer/synview/synapse"
)

// difTol is the numerical difference tolerance for comparing vs. target values
const difTol = float32(1.0e-6)

func TestActFired(t *testing.T) {
	ap := ActParams{}
	ap.Defaults()

	tstx := []float32{0, 0.4, 0.5, 0.505, 0.51, 0.52, 0.6, 1, 2}
	cory := []float32{0, 0, 0, 0.33333334, 0.5, 0.6666667, 0.90909094, 0.98039216, 0.9933775}
	for i := range tstx {
		if y := ap.Act(tstx[i]); math32.Abs(y-cory[i]) > difTol {
			t.Errorf("Act x: %v, y: %v, cor y: %v", tstx[i], y, cory[i])
		}
	}
	if math32.Abs(ap.FireWtdSum-0.51) > difTol {
		t.Errorf("FireWtdSum: %v", ap.FireWtdSum)
	}
	for ws := float32(-1); ws < 2; ws += 0.001 {
		if math32.Abs(ws-ap.FireWtdSum) < 1.0e-4 {
			continue
		}
		if ap.Fired(ws) != (ap.Act(ws) >= ap.FireThr) {
			t.Errorf("Fired(%v) = %v, Act = %v", ws, ap.Fired(ws), ap.Act(ws))
		}
	}

	ap.FireThr = 0
	ap.Update()
	if !ap.Fired(-10) {
		t.Errorf("FireThr 0 should always fire")
	}
	ap.FireThr = 1
	ap.Update()
	if ap.Fired(1000) {
		t.Errorf("FireThr 1 should never fire")
	}
}

func TestNetworkStep(t *testing.T) {
	dv := device.NewDevice("test")
	nt, err := NewNetwork(dv, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer nt.Free()
	if err := nt.InitWeights(rand.New(rand.NewSource(1)), 0); err != nil {
		t.Fatal(err)
	}
	// 0 -> 1 strong, 1 -> 2 weak
	sy := synapse.Synapse{Target: 1, Wt: 1}
	sy.SetActive(true)
	nt.Syns.Set(0, 0, sy)
	sy = synapse.Synapse{Target: 2, Wt: 0.1}
	sy.SetActive(true)
	nt.Syns.Set(1, 1, sy)

	if err := nt.Step([]float32{1}); err != nil {
		t.Fatal(err)
	}
	if nt.State.Output(0) != 1 || nt.State.Output(1) != 0 || nt.State.WtdSum(0) != 1 {
		t.Errorf("step 1: outs %d %d", nt.State.Output(0), nt.State.Output(1))
	}
	if err := nt.Step(nil); err != nil {
		t.Fatal(err)
	}
	if nt.State.Output(0) != 0 || nt.State.Output(1) != 1 || nt.State.WtdSum(1) != 1 {
		t.Errorf("step 2: outs %d %d wtdsum %g", nt.State.Output(0), nt.State.Output(1), nt.State.WtdSum(1))
	}
	if nt.WtdAvgMax.Max != 1 || nt.WtdAvgMax.MaxIdx != 1 {
		t.Errorf("avgmax: %+v", nt.WtdAvgMax)
	}
	if err := nt.Step(nil); err != nil {
		t.Fatal(err)
	}
	if nt.State.Output(2) != 0 || math32.Abs(nt.State.WtdSum(2)-0.1) > difTol {
		t.Errorf("step 3: out %d wtdsum %g", nt.State.Output(2), nt.State.WtdSum(2))
	}
	if nt.Steps != 3 {
		t.Errorf("steps: %d", nt.Steps)
	}
}

func TestInitWeights(t *testing.T) {
	dv := device.NewDevice("test")
	nt, err := NewNetwork(dv, 50, 10)
	if err != nil {
		t.Fatal(err)
	}
	defer nt.Free()
	nt.InitWeights(rand.New(rand.NewSource(3)), 0.5)
	mv := nt.Syns.View()
	nact := 0
	for r := 0; r < nt.NNeurons; r++ {
		for c := 0; c < nt.NSlots; c++ {
			sy, _ := mv.At(r, c)
			if !sy.IsActive() {
				continue
			}
			nact++
			if sy.Target < 0 || int(sy.Target) >= nt.NNeurons || sy.Wt < 0 || sy.Wt >= 1 {
				t.Errorf("synapse %d,%d: %v", r, c, sy)
			}
		}
	}
	if nact < 150 || nact > 350 {
		t.Errorf("active synapses: %d of 500", nact)
	}
}
