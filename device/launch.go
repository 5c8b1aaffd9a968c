// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/emer/emergent/v2/timer"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Dim3 is a 3D extent or index, for grids and blocks.
type Dim3 struct {
	X, Y, Z int
}

// D1 returns a 1D extent
func D1(x int) Dim3 { return Dim3{x, 1, 1} }

// D2 returns a 2D extent
func D2(x, y int) Dim3 { return Dim3{x, y, 1} }

// Size returns the total number of elements
func (d Dim3) Size() int { return d.X * d.Y * d.Z }

// Valid returns true if all dimensions are positive
func (d Dim3) Valid() bool { return d.X > 0 && d.Y > 0 && d.Z > 0 }

func (d Dim3) String() string { return fmt.Sprintf("(%d,%d,%d)", d.X, d.Y, d.Z) }

// unlinear converts a linear index into an index within extent d, X fastest
func (d Dim3) unlinear(i int) Dim3 {
	x := i % d.X
	i /= d.X
	return Dim3{x, i % d.Y, i / d.Y}
}

// GridFor returns the number of blocks of given size needed to cover n elements.
func GridFor(n, block int) int {
	if block <= 0 {
		return 0
	}
	return (n + block - 1) / block
}

// Launch is the geometry of one kernel launch
type Launch struct {

	// number of blocks in each dimension
	Grid Dim3

	// number of threads per block in each dimension
	Block Dim3

	// number of int32 words of shared memory per block
	SharedWords int

	// number of float32 words of shared memory per block
	SharedF32 int
}

// Kernel is run once by every thread of a launch.
type Kernel func(th *Thread)

// Thread is the execution context of one kernel thread.
type Thread struct {

	// index of the block within the grid
	BlockIdx Dim3

	// index of the thread within its block
	ThreadIdx Dim3

	// extent of each block
	BlockDim Dim3

	// extent of the grid
	GridDim Dim3

	blk *block
}

// GlobalX returns the global X index of the thread
func (th *Thread) GlobalX() int { return th.BlockIdx.X*th.BlockDim.X + th.ThreadIdx.X }

// GlobalY returns the global Y index of the thread
func (th *Thread) GlobalY() int { return th.BlockIdx.Y*th.BlockDim.Y + th.ThreadIdx.Y }

// Linear returns the linear index of the thread within its block
func (th *Thread) Linear() int {
	return (th.ThreadIdx.Z*th.BlockDim.Y+th.ThreadIdx.Y)*th.BlockDim.X + th.ThreadIdx.X
}

// BlockLinear returns the linear index of the block within the grid
func (th *Thread) BlockLinear() int {
	return (th.BlockIdx.Z*th.GridDim.Y+th.BlockIdx.Y)*th.GridDim.X + th.BlockIdx.X
}

// Shared returns the block's int32 shared memory
func (th *Thread) Shared() []int32 { return th.blk.shared }

// SharedF32 returns the block's float32 shared memory
func (th *Thread) SharedF32() []float32 { return th.blk.sharedF32 }

// SyncThreads waits until every live thread of the block has reached
// the barrier.  Writes to shared memory before the barrier are visible
// to all threads of the block after it.
func (th *Thread) SyncThreads() {
	if !th.blk.bar.wait() {
		panic(errAborted)
	}
}

// errAborted unwinds threads waiting on a barrier of a faulted block
var errAborted = errors.New("block aborted")

type block struct {
	shared    []int32
	sharedF32 []float32
	bar       *barrier
}

// Validate checks the launch against the device limits
func (dv *Device) Validate(ln Launch) error {
	switch {
	case !ln.Grid.Valid():
		return fmt.Errorf("%w: grid %v", ErrLaunch, ln.Grid)
	case !ln.Block.Valid():
		return fmt.Errorf("%w: block %v", ErrLaunch, ln.Block)
	case ln.Block.Size() > dv.MaxThreadsPerBlock:
		return fmt.Errorf("%w: block %v has %d threads, max is %d", ErrLaunch, ln.Block, ln.Block.Size(), dv.MaxThreadsPerBlock)
	case ln.SharedWords < 0 || ln.SharedF32 < 0:
		return fmt.Errorf("%w: negative shared memory size", ErrLaunch)
	}
	return nil
}

// Run launches kern over the grid and blocks until every block has finished.
// Blocks run concurrently on up to NWorkers workers, in unspecified order.
// Any fault in a thread is returned as ErrExec; blocks not yet started
// when a fault occurs are skipped.
func (dv *Device) Run(name string, ln Launch, kern Kernel) error {
	if err := dv.Validate(ln); err != nil {
		return fmt.Errorf("kernel %s: %w", name, err)
	}
	tm := timer.Time{}
	tm.Start()
	defer func() {
		tm.Stop()
		dv.addTime(name, &tm)
	}()

	nblk := ln.Grid.Size()
	order := make([]int, nblk)
	for i := range order {
		order[i] = i
	}
	if dv.ShuffleBlocks {
		rand.Shuffle(nblk, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	var failed atomic.Bool
	p := pool.New().WithErrors().WithFirstError().WithMaxGoroutines(dv.NWorkers)
	for _, bi := range order {
		bi := bi
		p.Go(func() error {
			if failed.Load() {
				return nil
			}
			err := dv.runBlock(name, ln, ln.Grid.unlinear(bi), kern)
			if err != nil {
				failed.Store(true)
			}
			return err
		})
	}
	return p.Wait()
}

// runBlock runs all the threads of one block to completion
func (dv *Device) runBlock(name string, ln Launch, bidx Dim3, kern Kernel) error {
	nthr := ln.Block.Size()
	blk := &block{
		shared:    make([]int32, ln.SharedWords),
		sharedF32: make([]float32, ln.SharedF32),
		bar:       newBarrier(nthr),
	}
	var (
		wg    sync.WaitGroup
		fmu   sync.Mutex
		fault *panics.Recovered
	)
	for ti := 0; ti < nthr; ti++ {
		th := &Thread{BlockIdx: bidx, ThreadIdx: ln.Block.unlinear(ti), BlockDim: ln.Block, GridDim: ln.Grid, blk: blk}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer blk.bar.leave()
			var pc panics.Catcher
			pc.Try(func() { kern(th) })
			rc := pc.Recovered()
			if rc == nil {
				return
			}
			if err, ok := rc.Value.(error); ok && errors.Is(err, errAborted) {
				return
			}
			blk.bar.abort()
			fmu.Lock()
			if fault == nil {
				fault = rc
			}
			fmu.Unlock()
		}()
	}
	wg.Wait()
	if fault != nil {
		return fmt.Errorf("%w: kernel %s block %v: %v", ErrExec, name, bidx, fault.Value)
	}
	return nil
}

// barrier is a reusable block barrier.  Threads that have returned from the
// kernel leave the barrier and are no longer waited on.
type barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	live    int
	arrived int
	gen     int
	broken  bool
}

func newBarrier(n int) *barrier {
	br := &barrier{live: n}
	br.cond = sync.NewCond(&br.mu)
	return br
}

// wait returns false if the barrier was aborted
func (br *barrier) wait() bool {
	br.mu.Lock()
	defer br.mu.Unlock()
	if br.broken {
		return false
	}
	br.arrived++
	if br.arrived >= br.live {
		br.release()
		return true
	}
	gen := br.gen
	for gen == br.gen && !br.broken {
		br.cond.Wait()
	}
	return gen != br.gen
}

func (br *barrier) release() {
	br.arrived = 0
	br.gen++
	br.cond.Broadcast()
}

func (br *barrier) leave() {
	br.mu.Lock()
	br.live--
	if br.arrived > 0 && br.arrived >= br.live {
		br.release()
	}
	br.mu.Unlock()
}

func (br *barrier) abort() {
	br.mu.Lock()
	br.broken = true
	br.cond.Broadcast()
	br.mu.Unlock()
}
