// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"errors"
	"fmt"
)

// Error kinds reported by the device layer and everything built on it.
// Use errors.Is to test for them -- returned errors are wrapped with detail.
var (
	// ErrDimMismatch is a precondition violation: array lengths, pitch or
	// launch geometry do not agree with the dimensions of the data.
	ErrDimMismatch = errors.New("dimension mismatch")

	// ErrAlloc is a device allocation failure (e.g., reduction scratch space).
	ErrAlloc = errors.New("device allocation failure")

	// ErrExec is a device execution failure: a kernel faulted or could not launch.
	ErrExec = errors.New("device execution failure")

	// ErrLaunch is an invalid launch configuration; it is also an ErrExec.
	ErrLaunch = fmt.Errorf("%w: invalid launch configuration", ErrExec)
)
