// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package neuron

import (
	"errors"
	"testing"

	"github.com/emer/synview/device"
)

func TestStateView(t *testing.T) {
	dv := device.NewDevice("test")
	st, err := NewState(dv, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Free()
	for i := 0; i < 4; i++ {
		st.SetOutput(i, int32(i%2))
		st.SetWtdSum(i, float32(i)*0.5)
	}
	vw := st.View()
	for i := 0; i < 4; i++ {
		nrn, err := vw.At(i)
		if err != nil {
			t.Fatal(err)
		}
		if nrn.Output != int32(i%2) || nrn.WtdSum != float32(i)*0.5 || nrn.Idx != i {
			t.Errorf("neuron %d: %v", i, nrn)
		}
		if nrn.Fired() != (i%2 == 1) {
			t.Errorf("neuron %d fired: %v", i, nrn.Fired())
		}
	}
	if _, err := vw.At(4); !errors.Is(err, device.ErrDimMismatch) {
		t.Errorf("At(4): expected ErrDimMismatch, got %v", err)
	}
	ov := vw.Outputs()
	if o, _ := ov.At(3); o != 1 {
		t.Errorf("output 3: %d", o)
	}
	if st.Output(1) != 1 || st.WtdSum(2) != 1 {
		t.Errorf("driver access: %d %g", st.Output(1), st.WtdSum(2))
	}
}

func TestNewViewMismatch(t *testing.T) {
	dv := device.NewDevice("test")
	outs, _ := dv.Malloc(4 * 4)
	sums, _ := dv.Malloc(5 * 4)
	defer outs.Free()
	defer sums.Free()
	if _, err := NewView(outs.View(), sums.View(), 4); !errors.Is(err, device.ErrDimMismatch) {
		t.Errorf("mismatched lengths: expected ErrDimMismatch, got %v", err)
	}
	if _, err := NewView(outs.View(), sums.View().Slice(0, 16), 4); err != nil {
		t.Errorf("matched lengths: %v", err)
	}
	if _, err := NewOutputView(outs.View(), 3); !errors.Is(err, device.ErrDimMismatch) {
		t.Errorf("output view: expected ErrDimMismatch, got %v", err)
	}
	ov, err := NewOutputView(outs.View(), 4)
	if err != nil || ov.Len() != 4 {
		t.Errorf("output view: %v", err)
	}
}

func TestNeuronVars(t *testing.T) {
	nrn := Neuron{Idx: 2, Output: 1, WtdSum: 0.25}
	if v, _ := nrn.VarByName("WtdSum"); v != 0.25 {
		t.Errorf("WtdSum: %g", v)
	}
	if v, _ := nrn.VarByName("Output"); v != 1 {
		t.Errorf("Output: %g", v)
	}
	if _, err := nrn.VarByName("Act"); err == nil {
		t.Errorf("expected error for unknown var")
	}
}

func TestViewLen(t *testing.T) {
	dv := device.NewDevice("test")
	st, err := NewState(dv, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Free()
	vw := st.View()
	if st.Len() != 3 || vw.Len() != 3 || vw.Outputs().Len() != 3 {
		t.Errorf("lengths: %d %d %d", st.Len(), vw.Len(), vw.Outputs().Len())
	}
	if _, err := vw.At(3); !errors.Is(err, device.ErrDimMismatch) {
		t.Errorf("At(3): expected ErrDimMismatch, got %v", err)
	}
	var zv View
	if _, err := zv.At(0); zv.Len() != 0 || !errors.Is(err, device.ErrDimMismatch) {
		t.Errorf("zero view: len %d err %v", zv.Len(), err)
	}
	var zo OutputView
	if _, err := zo.At(0); zo.Len() != 0 || !errors.Is(err, device.ErrDimMismatch) {
		t.Errorf("zero output view: len %d err %v", zo.Len(), err)
	}
}
