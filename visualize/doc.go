// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package visualize provides the device-side instrumentation kernels of a
spiking network simulation: formatted dumps of the synapse matrix and of the
per-neuron state, and parallel reductions that summarize a step.

All entry points take non-owning, read-only views (synapse.MatrixView,
neuron.View, neuron.OutputView) of memory owned by the simulation driver.
Nothing here mutates or frees that memory.  The reductions allocate their own
scratch buffers and release them before returning, on every path.

PrintSynapses and PrintNeurons launch one thread per record.  With the
Streamed print mode each record is one whole line, but lines of different
threads appear in arbitrary order that varies between runs: consumers must
treat the output as an unordered multiset of records, each tagged with its
coordinates.  The Ordered mode emits records in row-major index order at the
cost of buffering the whole dump.  A completion marker line is written only
after a successful launch, so truncated output can be recognized.

NeuronStats is a multi-stage tree reduction: per-block partial counts in
shared memory with a barrier between levels, then repeated launches over the
partials until one value remains.  Integer counts are exact in any block
order.  WtdSumStats and SynapseStats combine their per-block partials on the
host in block order.

Errors wrap the device kinds: device.ErrDimMismatch for inconsistent views,
device.ErrAlloc when scratch memory is not available, and device.ErrExec for
launch or kernel faults.  Use errors.Is to distinguish them.
*/
package visualize
