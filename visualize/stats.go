// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package visualize

import (
	"encoding/binary"
	"fmt"

	"github.com/emer/synview/device"
	"github.com/emer/synview/neuron"
	"github.com/goki/ki/ints"
	"github.com/goki/mat32"
)

// ReduceParams are the launch parameters of the reduction kernels
type ReduceParams struct {

	// threads per block -- rounded down to a power of two by Update
	BlockSize int `default:"256"`

	// maximum number of blocks per stage -- each block loops over the input
	// with a grid stride when the input is larger than the grid
	MaxBlocks int `default:"64"`
}

func (rp *ReduceParams) Defaults() {
	rp.BlockSize = 256
	rp.MaxBlocks = 64
	rp.Update()
}

// Update must be called after any changes to parameters
func (rp *ReduceParams) Update() {
	bs := 1
	for bs*2 <= rp.BlockSize {
		bs *= 2
	}
	rp.BlockSize = bs
	if rp.MaxBlocks < 1 {
		rp.MaxBlocks = 1
	}
}

// Grid returns the number of blocks used for n input values
func (rp *ReduceParams) Grid(n int) int {
	return ints.MaxInt(1, ints.MinInt(rp.MaxBlocks, device.GridFor(n, 2*rp.BlockSize)))
}

// launch returns the launch geometry for n input values
func (rp *ReduceParams) launch(n, sharedWords, sharedF32 int) device.Launch {
	return device.Launch{
		Grid:        device.D1(rp.Grid(n)),
		Block:       device.D1(rp.BlockSize),
		SharedWords: sharedWords * rp.BlockSize,
		SharedF32:   sharedF32 * rp.BlockSize,
	}
}

func defaultParams(rp *ReduceParams) *ReduceParams {
	if rp != nil {
		return rp
	}
	rp = &ReduceParams{}
	rp.Defaults()
	return rp
}

// Stats are the aggregate counts over the neuron output flags
type Stats struct {

	// number of neurons
	N int

	// number of neurons that fired
	Fired int
}

// PctFired returns the proportion of neurons that fired (0 if there are none)
func (st Stats) PctFired() float32 {
	if st.N == 0 {
		return 0
	}
	return float32(st.Fired) / float32(st.N)
}

func (st Stats) String() string {
	return fmt.Sprintf("Neurons: %d\t Fired: %d\t PctFired: %.4g", st.N, st.Fired, st.PctFired())
}

// NeuronStats counts the neurons that fired, as a parallel integer reduction
// over the output flags (any nonzero flag counts as fired).
//
// Each stage runs one block per grid entry: every thread folds a grid-stride
// partial sum, the block combines them in shared memory as a tree with a
// barrier between levels, and thread 0 writes the block total into a scratch
// buffer owned by this call.  Stages repeat over the block totals until a
// single block remains; every stage is a complete launch, so all partials
// are combined before the next stage reads them.  The final count is then
// copied to host memory.
//
// The result is exact and independent of block scheduling order.  An empty
// array returns a zero count without allocating or launching anything.
// Scratch allocation failure returns ErrAlloc and a kernel fault ErrExec,
// never a partial count.  Concurrent calls are safe: each uses its own scratch.
func NeuronStats(dv *device.Device, ov neuron.OutputView, rp *ReduceParams) (Stats, error) {
	rp = defaultParams(rp)
	n := ov.Len()
	if n == 0 {
		return Stats{}, nil
	}
	fired, err := reduceCount(dv, ov.Mem(), n, rp)
	if err != nil {
		return Stats{}, fmt.Errorf("neuronStats: %w", err)
	}
	return Stats{N: n, Fired: int(fired)}, nil
}

// reduceCount runs the reduction stages over n int32 values in mem
func reduceCount(dv *device.Device, mem device.View, n int, rp *ReduceParams) (int32, error) {
	var scratch []*device.Buffer
	defer func() {
		for _, bf := range scratch {
			bf.Free()
		}
	}()
	in := mem
	flags := true
	for stage := 0; ; stage++ {
		ln := rp.launch(n, 1, 0)
		nblk := ln.Grid.X
		out, err := dv.Malloc(nblk * 4)
		if err != nil {
			return 0, fmt.Errorf("partial sums for stage %d: %w", stage, err)
		}
		scratch = append(scratch, out)
		if err := dv.Run("neuronStats", ln, countKernel(in, n, flags, out)); err != nil {
			return 0, err
		}
		if nblk == 1 {
			var res [4]byte
			if err := out.Download(res[:]); err != nil {
				return 0, err
			}
			return int32(binary.LittleEndian.Uint32(res[:])), nil
		}
		in, n, flags = out.View(), nblk, false
	}
}

// countKernel sums n int32 values of in into one partial per block in out.
// If flags is set, each value counts as 1 if nonzero.
func countKernel(in device.View, n int, flags bool, out *device.Buffer) device.Kernel {
	return func(th *device.Thread) {
		bs := th.BlockDim.X
		val := func(i int) int32 {
			v := in.Int32(i * 4)
			if flags && v != 0 {
				return 1
			}
			return v
		}
		sum := int32(0)
		for i := th.BlockIdx.X*bs*2 + th.ThreadIdx.X; i < n; i += bs * 2 * th.GridDim.X {
			sum += val(i)
			if j := i + bs; j < n {
				sum += val(j)
			}
		}
		tot := treeI32(th, sum)
		if th.ThreadIdx.X == 0 {
			out.PutInt32(th.BlockIdx.X*4, tot)
		}
	}
}

// treeI32 combines one value per thread into a block total in shared memory.
// Every thread of the block must call it.  BlockDim.X must be a power of two.
func treeI32(th *device.Thread, v int32) int32 {
	sh := th.Shared()
	tid := th.ThreadIdx.X
	sh[tid] = v
	th.SyncThreads()
	for s := th.BlockDim.X / 2; s > 0; s >>= 1 {
		if tid < s {
			sh[tid] += sh[tid+s]
		}
		th.SyncThreads()
	}
	return sh[0]
}

// treeF32 combines a sum, min and max per thread into block values.
// Every thread of the block must call it.  BlockDim.X must be a power of two.
func treeF32(th *device.Thread, sum, mn, mx float32) (float32, float32, float32) {
	sh := th.SharedF32()
	bs := th.BlockDim.X
	tid := th.ThreadIdx.X
	sh[tid], sh[bs+tid], sh[2*bs+tid] = sum, mn, mx
	th.SyncThreads()
	for s := bs / 2; s > 0; s >>= 1 {
		if tid < s {
			sh[tid] += sh[tid+s]
			sh[bs+tid] = mat32.Min(sh[bs+tid], sh[bs+tid+s])
			sh[2*bs+tid] = mat32.Max(sh[2*bs+tid], sh[2*bs+tid+s])
		}
		th.SyncThreads()
	}
	return sh[0], sh[bs], sh[2*bs]
}
