// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package synapse defines the synapse record and the pitched synapse matrix
// shared between a simulation driver and the instrumentation kernels.
package synapse

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/goki/ki/bitflag"
)

// Size is the number of bytes of one Synapse record in device memory:
// Target int32, Wt float32, Flags int32, little-endian.
const Size = 12

// SynFlags are bit flags for binary synapse state
type SynFlags int32

const (
	// SynActive indicates that the synapse is enabled and transmits
	SynActive SynFlags = iota

	SynFlagsN
)

// Synapse holds the state of one directed connection, as stored in a row
// of the synapse matrix (one row per neuron).
type Synapse struct {

	// index of the neuron this synapse connects to
	Target int32

	// synaptic weight value
	Wt float32

	// bit flags for binary state variables
	Flags SynFlags
}

var SynapseVars = []string{"Target", "Wt", "Active"}

var SynapseVarsMap map[string]int

func init() {
	SynapseVarsMap = make(map[string]int, len(SynapseVars))
	for i, v := range SynapseVars {
		SynapseVarsMap[v] = i
	}
}

// IsActive returns true if the synapse is enabled
func (sy *Synapse) IsActive() bool {
	return bitflag.Has32(int32(sy.Flags), int(SynActive))
}

// SetActive sets the enabled state of the synapse
func (sy *Synapse) SetActive(on bool) {
	if on {
		bitflag.Set32((*int32)(&sy.Flags), int(SynActive))
	} else {
		bitflag.Clear32((*int32)(&sy.Flags), int(SynActive))
	}
}

func (sy *Synapse) VarNames() []string {
	return SynapseVars
}

// SynapseVarByName returns the index of the variable in the Synapse, or error
func SynapseVarByName(varNm string) (int, error) {
	i, ok := SynapseVarsMap[varNm]
	if !ok {
		return 0, fmt.Errorf("Synapse VarByName: variable name: %v not valid", varNm)
	}
	return i, nil
}

// VarByIndex returns variable using index (0 = first variable in SynapseVars list)
func (sy *Synapse) VarByIndex(idx int) float32 {
	switch idx {
	case 0:
		return float32(sy.Target)
	case 1:
		return sy.Wt
	case 2:
		if sy.IsActive() {
			return 1
		}
		return 0
	}
	return float32(math.NaN())
}

// VarByName returns variable by name, or error
func (sy *Synapse) VarByName(varNm string) (float32, error) {
	i, err := SynapseVarByName(varNm)
	if err != nil {
		return 0, err
	}
	return sy.VarByIndex(i), nil
}

func (sy *Synapse) SetVarByIndex(idx int, val float32) {
	switch idx {
	case 0:
		sy.Target = int32(val)
	case 1:
		sy.Wt = val
	case 2:
		sy.SetActive(val != 0)
	}
}

// SetVarByName sets synapse variable to given value
func (sy *Synapse) SetVarByName(varNm string, val float32) error {
	i, err := SynapseVarByName(varNm)
	if err != nil {
		return err
	}
	sy.SetVarByIndex(i, val)
	return nil
}

// Encode writes the record into the first Size bytes of b
func (sy *Synapse) Encode(b []byte) {
	binary.LittleEndian.PutUint32(b[0:4], uint32(sy.Target))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(sy.Wt))
	binary.LittleEndian.PutUint32(b[8:12], uint32(sy.Flags))
}

// Decode reads the record from the first Size bytes of b
func (sy *Synapse) Decode(b []byte) {
	sy.Target = int32(binary.LittleEndian.Uint32(b[0:4]))
	sy.Wt = math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))
	sy.Flags = SynFlags(binary.LittleEndian.Uint32(b[8:12]))
}

func (sy Synapse) String() string {
	st := "inactive"
	if sy.IsActive() {
		st = "active"
	}
	return fmt.Sprintf("target=%d wt=%g %s", sy.Target, sy.Wt, st)
}
