// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package device is a small execution model for data-parallel kernels over
device-resident memory: a grid of blocks, each block a group of threads that
share a scratch memory and can synchronize at barriers.

Blocks are scheduled concurrently on a bounded set of workers, one goroutine
per thread within a running block.  Memory is allocated through the Device,
which keeps track of the total in use so that allocation failures can be
reported as errors instead of silently producing wrong results.

Ownership is explicit: a Buffer is an owning allocation (the caller frees it),
and a View is a read-only, non-owning window onto a Buffer that is only valid
for the duration of a call.
*/
package device

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/c2h5oh/datasize"
	"github.com/emer/emergent/v2/timer"
	"github.com/goki/kigen/ordmap"
)

// Props are the device properties that determine scheduling and allocation.
type Props struct {

	// name of the device, used in reports and error messages
	Name string

	// number of blocks that can be resident at the same time -- analogous to
	// the number of streaming multiprocessors on a GPU.  Defaults to NumCPU.
	NWorkers int

	// maximum number of threads in one block
	MaxThreadsPerBlock int `default:"1024"`

	// total bytes available for allocation -- 0 = unlimited
	MemBytes int64

	// row alignment in bytes used by MallocPitch
	PitchAlign int `default:"256"`

	// issue blocks in a random order on each launch, which makes any dependence
	// on block execution order show up in tests
	ShuffleBlocks bool
}

func (pr *Props) Defaults() {
	pr.NWorkers = runtime.NumCPU()
	pr.MaxThreadsPerBlock = 1024
	pr.MemBytes = 0
	pr.PitchAlign = 256
	pr.Update()
}

// Update must be called after any changes to parameters
func (pr *Props) Update() {
	if pr.NWorkers < 1 {
		pr.NWorkers = 1
	}
	if pr.MaxThreadsPerBlock < 1 {
		pr.MaxThreadsPerBlock = 1
	}
	if pr.PitchAlign < 1 {
		pr.PitchAlign = 1
	}
}

// Device owns the allocation accounting and per-kernel timing for one
// simulated compute device.  It is safe for concurrent use.
type Device struct {
	Props

	// timers for each kernel name, in order of first launch
	FunTimes *ordmap.Map[string, *timer.Time]

	allocMu sync.Mutex
	used    int64
	nBufs   int
	timeMu  sync.Mutex
}

// NewDevice returns a new device with default properties and given name.
func NewDevice(name string) *Device {
	dv := &Device{}
	dv.Defaults()
	dv.Name = name
	dv.FunTimes = ordmap.New[string, *timer.Time]()
	return dv
}

// Used returns the number of bytes currently allocated on the device.
func (dv *Device) Used() int64 {
	dv.allocMu.Lock()
	defer dv.allocMu.Unlock()
	return dv.used
}

// NBuffers returns the number of live (not yet freed) buffers.
func (dv *Device) NBuffers() int {
	dv.allocMu.Lock()
	defer dv.allocMu.Unlock()
	return dv.nBufs
}

// Malloc allocates nbytes of device memory, returning an owning Buffer that
// the caller must Free.  Fails with ErrAlloc if the request would exceed MemBytes.
func (dv *Device) Malloc(nbytes int) (*Buffer, error) {
	if nbytes < 0 {
		return nil, fmt.Errorf("%w: invalid size %d on device %s", ErrAlloc, nbytes, dv.Name)
	}
	dv.allocMu.Lock()
	defer dv.allocMu.Unlock()
	if dv.MemBytes > 0 && dv.used+int64(nbytes) > dv.MemBytes {
		return nil, fmt.Errorf("%w: requested %v with %v of %v in use on device %s", ErrAlloc,
			datasize.ByteSize(nbytes).HumanReadable(), datasize.ByteSize(dv.used).HumanReadable(),
			datasize.ByteSize(dv.MemBytes).HumanReadable(), dv.Name)
	}
	dv.used += int64(nbytes)
	dv.nBufs++
	return &Buffer{dev: dv, data: make([]byte, nbytes)}, nil
}

// MallocPitch allocates height rows of at least widthBytes each, with every row
// starting on a PitchAlign boundary.  Returns the buffer and the pitch
// (byte stride between rows), which is >= widthBytes.
func (dv *Device) MallocPitch(widthBytes, height int) (*Buffer, int, error) {
	if widthBytes < 0 || height < 0 {
		return nil, 0, fmt.Errorf("%w: invalid pitched size %d x %d on device %s", ErrAlloc, widthBytes, height, dv.Name)
	}
	pitch := PitchFor(widthBytes, dv.PitchAlign)
	bf, err := dv.Malloc(pitch * height)
	if err != nil {
		return nil, 0, err
	}
	return bf, pitch, nil
}

// PitchFor returns widthBytes rounded up to a multiple of align.
func PitchFor(widthBytes, align int) int {
	if align <= 1 {
		return widthBytes
	}
	return ((widthBytes + align - 1) / align) * align
}

// release is called by Buffer.Free
func (dv *Device) release(nbytes int) {
	dv.allocMu.Lock()
	dv.used -= int64(nbytes)
	dv.nBufs--
	dv.allocMu.Unlock()
}

// SizeReport returns a string reporting the current memory footprint of the device.
func (dv *Device) SizeReport() string {
	dv.allocMu.Lock()
	defer dv.allocMu.Unlock()
	lim := "unlimited"
	if dv.MemBytes > 0 {
		lim = datasize.ByteSize(dv.MemBytes).HumanReadable()
	}
	return fmt.Sprintf("%14s:\t Buffers: %d\t Mem: %v \t Limit: %s\n", dv.Name, dv.nBufs,
		datasize.ByteSize(dv.used).HumanReadable(), lim)
}

//////////////////////////////////////////////////////////////////////////////////////
//  Timers

// addTime accumulates the duration of one launch into the timer for fun,
// creating it on first use.
func (dv *Device) addTime(fun string, tm *timer.Time) {
	dv.timeMu.Lock()
	defer dv.timeMu.Unlock()
	ft, ok := dv.FunTimes.ValByKey(fun)
	if !ok {
		ft = &timer.Time{}
		dv.FunTimes.Add(fun, ft)
	}
	ft.Total += tm.Total
	ft.N += tm.N
}

// TimerReport writes the amount of time spent in each kernel.
func (dv *Device) TimerReport(w io.Writer) {
	dv.timeMu.Lock()
	defer dv.timeMu.Unlock()
	fmt.Fprintf(w, "TimerReport: %v, NWorkers: %v\n", dv.Name, dv.NWorkers)
	fmt.Fprintf(w, "\tKernel Name\tTotal Secs\tPct\n")
	nfn := dv.FunTimes.Len()
	secs := make([]float64, nfn)
	tot := 0.0
	for i, kv := range dv.FunTimes.Order {
		secs[i] = kv.Val.TotalSecs()
		tot += secs[i]
	}
	for i, kv := range dv.FunTimes.Order {
		pct := 0.0
		if tot > 0 {
			pct = 100 * (secs[i] / tot)
		}
		fmt.Fprintf(w, "\t%v \t%6.4g\t%6.4g\n", kv.Key, secs[i], pct)
	}
	fmt.Fprintf(w, "\tTotal   \t%6.4g\n", tot)
}

// TimerReset resets all kernel timers
func (dv *Device) TimerReset() {
	dv.timeMu.Lock()
	defer dv.timeMu.Unlock()
	for _, kv := range dv.FunTimes.Order {
		kv.Val.Reset()
	}
}
