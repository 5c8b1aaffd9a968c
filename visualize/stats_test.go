// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visualize

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/emer/synview/device"
	"github.com/emer/synview/neuron"
	"github.com/emer/synview/synapse"
	"github.com/goki/mat32"
)

// Tol is the tolerance for float sums combined in different orders
const Tol = 1.0e-4

func newState(t *testing.T, dv *device.Device, outs []int32, sums []float32) *neuron.State {
	t.Helper()
	st, err := neuron.NewState(dv, len(outs))
	if err != nil {
		t.Fatal(err)
	}
	for i, o := range outs {
		st.SetOutput(i, o)
		if sums != nil {
			st.SetWtdSum(i, sums[i])
		}
	}
	return st
}

func smallParams() *ReduceParams {
	rp := &ReduceParams{BlockSize: 8, MaxBlocks: 4}
	rp.Update()
	return rp
}

func TestReduceParams(t *testing.T) {
	rp := &ReduceParams{BlockSize: 100, MaxBlocks: 0}
	rp.Update()
	if rp.BlockSize != 64 || rp.MaxBlocks != 1 {
		t.Errorf("update: %+v", *rp)
	}
	rp.Defaults()
	if rp.Grid(0) != 1 || rp.Grid(512) != 1 || rp.Grid(513) != 2 || rp.Grid(1<<20) != 64 {
		t.Errorf("grid: %d %d %d %d", rp.Grid(0), rp.Grid(512), rp.Grid(513), rp.Grid(1<<20))
	}
}

func TestNeuronStatsUniform(t *testing.T) {
	dv := device.NewDevice("test")
	sizes := []int{0, 1, 2, 3, 7, 8, 15, 16, 17, 63, 64, 65, 100, 257, 1000, 4099}
	for _, rp := range []*ReduceParams{nil, smallParams()} {
		for _, n := range sizes {
			for _, fl := range []int32{0, 1} {
				outs := make([]int32, n)
				for i := range outs {
					outs[i] = fl
				}
				st := newState(t, dv, outs, nil)
				res, err := NeuronStats(dv, st.View().Outputs(), rp)
				if err != nil {
					t.Fatal(err)
				}
				want := 0
				if fl == 1 {
					want = n
				}
				if res.Fired != want || res.N != n {
					t.Errorf("n=%d flag=%d: got %v, want %d", n, fl, res, want)
				}
				st.Free()
			}
		}
	}
	if dv.NBuffers() != 0 || dv.Used() != 0 {
		t.Errorf("leaked scratch: %d buffers, %d bytes", dv.NBuffers(), dv.Used())
	}
}

func TestNeuronStatsExample(t *testing.T) {
	dv := device.NewDevice("test")
	st := newState(t, dv, []int32{1, 0, 1, 1}, nil)
	defer st.Free()
	res, err := NeuronStats(dv, st.View().Outputs(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fired != 3 {
		t.Errorf("fired: %d, want 3", res.Fired)
	}
	if mat32.Abs(res.PctFired()-0.75) > Tol {
		t.Errorf("pct fired: %g", res.PctFired())
	}
}

func TestNeuronStatsRandom(t *testing.T) {
	dv := device.NewDevice("test")
	dv.ShuffleBlocks = true
	rnd := rand.New(rand.NewSource(1))
	for trl := 0; trl < 20; trl++ {
		n := 1 + rnd.Intn(5000)
		outs := make([]int32, n)
		want := 0
		for i := range outs {
			if rnd.Intn(3) == 0 {
				outs[i] = 1 + rnd.Int31n(5) // any nonzero flag counts as fired
				want++
			}
		}
		st := newState(t, dv, outs, nil)
		for _, rp := range []*ReduceParams{nil, smallParams()} {
			res, err := NeuronStats(dv, st.View().Outputs(), rp)
			if err != nil {
				t.Fatal(err)
			}
			if res.Fired != want {
				t.Errorf("trial %d n=%d: fired %d, want %d", trl, n, res.Fired, want)
			}
		}
		st.Free()
	}
}

func TestNeuronStatsRepeatable(t *testing.T) {
	dv := device.NewDevice("test")
	outs := make([]int32, 3000)
	for i := range outs {
		outs[i] = int32(i % 2)
	}
	st := newState(t, dv, outs, nil)
	defer st.Free()
	ov := st.View().Outputs()
	var wg sync.WaitGroup
	res := make([]Stats, 8)
	errs := make([]error, 8)
	for i := range res {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res[i], errs[i] = NeuronStats(dv, ov, smallParams())
		}(i)
	}
	wg.Wait()
	for i := range res {
		if errs[i] != nil || res[i].Fired != 1500 {
			t.Errorf("call %d: %v %v", i, res[i], errs[i])
		}
	}
	if st.Output(1) != 1 || st.Output(2) != 0 {
		t.Errorf("input modified")
	}
}

func TestNeuronStatsAlloc(t *testing.T) {
	dv := device.NewDevice("test")
	outs := make([]int32, 100)
	st := newState(t, dv, outs, nil)
	defer st.Free()
	dv.MemBytes = dv.Used()
	res, err := NeuronStats(dv, st.View().Outputs(), nil)
	if !errors.Is(err, device.ErrAlloc) {
		t.Errorf("expected ErrAlloc, got %v (%v)", err, res)
	}
	// an empty array never allocates
	if _, err := NeuronStats(dv, neuron.OutputView{}, nil); err != nil {
		t.Errorf("empty: %v", err)
	}
}

func TestNeuronStatsExec(t *testing.T) {
	dv := device.NewDevice("test")
	st := newState(t, dv, make([]int32, 100), nil)
	defer st.Free()
	nbufs, used := dv.NBuffers(), dv.Used()
	rp := &ReduceParams{BlockSize: 2048, MaxBlocks: 4}
	rp.Update()
	res, err := NeuronStats(dv, st.View().Outputs(), rp)
	if !errors.Is(err, device.ErrExec) || !errors.Is(err, device.ErrLaunch) {
		t.Errorf("expected ErrLaunch / ErrExec, got %v", err)
	}
	if errors.Is(err, device.ErrAlloc) {
		t.Errorf("launch failure reported as ErrAlloc: %v", err)
	}
	if res != (Stats{}) {
		t.Errorf("partial result on failure: %v", res)
	}
	if dv.NBuffers() != nbufs || dv.Used() != used {
		t.Errorf("scratch not freed: %d buffers, %d bytes", dv.NBuffers(), dv.Used())
	}
}

func TestWtdSumStats(t *testing.T) {
	dv := device.NewDevice("test")
	dv.ShuffleBlocks = true
	rnd := rand.New(rand.NewSource(2))
	for _, n := range []int{1, 5, 64, 333, 2049} {
		outs := make([]int32, n)
		sums := make([]float32, n)
		want := float32(0)
		mn, mx := mat32.Inf(1), mat32.Inf(-1)
		for i := range sums {
			sums[i] = rnd.Float32()*2 - 1
			want += sums[i]
			mn = mat32.Min(mn, sums[i])
			mx = mat32.Max(mx, sums[i])
		}
		st := newState(t, dv, outs, sums)
		ss, err := WtdSumStats(dv, st.View(), smallParams())
		if err != nil {
			t.Fatal(err)
		}
		if mat32.Abs(ss.Sum-want) > Tol*float32(n) || mat32.Abs(ss.Avg-want/float32(n)) > Tol {
			t.Errorf("n=%d: sum %g want %g, avg %g", n, ss.Sum, want, ss.Avg)
		}
		if ss.Range.Min != mn || ss.Range.Max != mx {
			t.Errorf("n=%d: range %v want %g..%g", n, ss.Range, mn, mx)
		}
		st.Free()
	}
}

func TestSynapseStats(t *testing.T) {
	dv := device.NewDevice("test")
	mx, err := synapse.NewMatrix(dv, 37, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer mx.Free()
	nact := 0
	wsum := float32(0)
	for r := 0; r < mx.NRows(); r++ {
		for c := 0; c < mx.NCols(); c++ {
			sy := synapse.Synapse{Target: int32(c), Wt: float32(r*mx.NCols()+c) * 0.01}
			if (r+c)%3 == 0 {
				sy.SetActive(true)
				nact++
				wsum += sy.Wt
			}
			mx.Set(r, c, sy)
		}
	}
	st, err := SynapseStats(dv, mx.View(), smallParams())
	if err != nil {
		t.Fatal(err)
	}
	if st.NSyns != 37*5 || st.NActive != nact {
		t.Errorf("counts: %v, want %d active", st, nact)
	}
	if mat32.Abs(st.WtAvg-wsum/float32(nact)) > Tol {
		t.Errorf("wt avg: %g want %g", st.WtAvg, wsum/float32(nact))
	}
	if st.Wt.Min != 0 || mat32.Abs(st.Wt.Max-1.83) > Tol {
		t.Errorf("wt range: %v", st.Wt)
	}
}

func TestSummarize(t *testing.T) {
	dv := device.NewDevice("test")
	mx, _ := synapse.NewMatrix(dv, 2, 3)
	defer mx.Free()
	st := newState(t, dv, []int32{1, 0}, []float32{0.5, -0.5})
	defer st.Free()
	rep, err := Summarize(dv, mx.View(), st.View(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Neurons.Fired != 1 || rep.WtdSums.Avg != 0 || rep.Synapses.NActive != 0 || rep.Synapses.NSyns != 6 {
		t.Errorf("report: %v", rep)
	}
	if rep.String() == "" {
		t.Errorf("empty report string")
	}
}
