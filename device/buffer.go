// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
)

// Buffer is an owning allocation of device memory.  The code that allocated
// it is solely responsible for calling Free.  All multi-byte values are
// stored little-endian.
type Buffer struct {
	dev   *Device
	data  []byte
	freed bool
}

// Len returns the size of the buffer in bytes
func (bf *Buffer) Len() int { return len(bf.data) }

// Bytes returns the underlying memory for the owner to fill in.
// Only the owner may write to it, and never while a kernel is reading it.
func (bf *Buffer) Bytes() []byte { return bf.data }

// View returns a read-only, non-owning view of the whole buffer.
func (bf *Buffer) View() View { return View{data: bf.data} }

// Free releases the buffer back to its device.  Freeing twice is logged and ignored.
func (bf *Buffer) Free() {
	if bf.freed {
		log.Printf("device.Buffer Free: buffer of %d bytes on %s already freed\n", len(bf.data), bf.dev.Name)
		return
	}
	bf.freed = true
	bf.dev.release(len(bf.data))
	bf.data = nil
}

// PutInt32 stores v at byte offset off
func (bf *Buffer) PutInt32(off int, v int32) {
	binary.LittleEndian.PutUint32(bf.data[off:off+4], uint32(v))
}

// PutUint32 stores v at byte offset off
func (bf *Buffer) PutUint32(off int, v uint32) {
	binary.LittleEndian.PutUint32(bf.data[off:off+4], v)
}

// PutFloat32 stores v at byte offset off
func (bf *Buffer) PutFloat32(off int, v float32) {
	binary.LittleEndian.PutUint32(bf.data[off:off+4], math.Float32bits(v))
}

// Download copies len(dst) bytes from the start of the buffer into host memory.
// Must only be called after the kernels writing the buffer have completed.
func (bf *Buffer) Download(dst []byte) error {
	if bf.freed {
		return fmt.Errorf("%w: download from freed buffer", ErrExec)
	}
	if len(dst) > len(bf.data) {
		return fmt.Errorf("%w: download of %d bytes from buffer of %d bytes", ErrDimMismatch, len(dst), len(bf.data))
	}
	copy(dst, bf.data)
	return nil
}

// View is a read-only, non-owning window onto device memory.
// Reads outside of the window fault (panic), which a kernel launch
// reports as ErrExec.
type View struct {
	data []byte
}

// Len returns the size of the view in bytes
func (vw View) Len() int { return len(vw.data) }

// Int32 reads the int32 at byte offset off
func (vw View) Int32(off int) int32 {
	return int32(binary.LittleEndian.Uint32(vw.data[off : off+4]))
}

// Uint32 reads the uint32 at byte offset off
func (vw View) Uint32(off int) uint32 {
	return binary.LittleEndian.Uint32(vw.data[off : off+4])
}

// Float32 reads the float32 at byte offset off
func (vw View) Float32(off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(vw.data[off : off+4]))
}

// Slice returns the sub-view of n bytes starting at off
func (vw View) Slice(off, n int) View {
	return View{data: vw.data[off : off+n : off+n]}
}

// Read copies bytes starting at off into dst, returning the number copied.
func (vw View) Read(off int, dst []byte) int {
	if off >= len(vw.data) {
		return 0
	}
	return copy(dst, vw.data[off:])
}
