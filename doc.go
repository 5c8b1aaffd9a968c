// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package synview is the overall repository for the device-resident
instrumentation of spiking network simulations: dumps of the synapse matrix
and neuron state, and parallel statistics over them, computed where the data
lives.

This top-level of the repository has no functional code -- everything is organized
into the following sub-packages:

* device: the data-parallel execution model -- grid / block / thread launches,
block shared memory and barriers, device memory allocation with pitched rows,
and per-kernel timing.

* synapse and neuron: the record layouts and read-only views of the synapse
matrix and the paired neuron output / weighted-sum arrays.

* visualize: the print kernels and the statistics reductions.

* statlog: a per-step table of statistics for saving and averaging.

* sim: a small recurrent network driver that owns and advances the state.

* examples: visdemo runs the driver and exercises every entry point.
*/
package synview
