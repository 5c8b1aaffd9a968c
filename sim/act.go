// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sim

import "github.com/chewxy/math32"

// ActParams are the X/(X+1) rate-code parameters that turn a neuron's
// weighted input sum into an output flag.  The rate code is
// x/(x+1) of Gain * (wtdSum - Thr) above threshold and 0 below it, and a
// neuron fires when its rate code reaches FireThr.  Update folds FireThr
// back through the rate code into a threshold on the weighted sum itself,
// so Fired is a single comparison per neuron.
type ActParams struct {

	// threshold on the weighted sum below which the rate code is 0
	Thr float32 `default:"0.5"`

	// gain of the rate code above threshold -- lower values give a more graded response
	Gain float32 `default:"100" min:"0"`

	// rate code at or above which the neuron fires, in (0,1) -- values <= 0
	// fire always, and values >= 1 never fire
	FireThr float32 `default:"0.5"`

	// weighted sum at which the rate code reaches FireThr, computed by Update
	FireWtdSum float32 `view:"-" json:"-"`
}

func (ap *ActParams) Defaults() {
	ap.Thr = 0.5
	ap.Gain = 100
	ap.FireThr = 0.5
	ap.Update()
}

// Update must be called after any changes to parameters
func (ap *ActParams) Update() {
	switch {
	case ap.FireThr <= 0:
		ap.FireWtdSum = math32.Inf(-1)
	case ap.FireThr >= 1 || ap.Gain <= 0:
		ap.FireWtdSum = math32.Inf(1)
	default:
		// inverse of x/(x+1) at FireThr, scaled back by Gain
		ap.FireWtdSum = ap.Thr + ap.FireThr/((1-ap.FireThr)*ap.Gain)
	}
}

// Act returns the rate code for given weighted sum
func (ap *ActParams) Act(wtdSum float32) float32 {
	x := ap.Gain * (wtdSum - ap.Thr)
	if x <= 0 {
		return 0
	}
	return x / (x + 1)
}

// Fired returns true if the rate code for given weighted sum reaches FireThr
func (ap *ActParams) Fired(wtdSum float32) bool {
	return wtdSum >= ap.FireWtdSum
}
