// Copyright (c) 2024, The Emergent Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package statlog records the per-step statistics reports of a simulation
// run in an etable, one row per step, for saving and averaging.
package statlog

import (
	"fmt"
	"io"
	"strconv"

	"github.com/emer/etable/v2/agg"
	"github.com/emer/etable/v2/etable"
	"github.com/emer/etable/v2/etensor"
	"github.com/emer/synview/visualize"
)

// LogPrec is precision for saving float values in logs
const LogPrec = 4

// Cols are the names of the numeric columns of a step log, in order
var Cols = []string{"N", "Fired", "PctFired", "WtdAvg", "WtdMin", "WtdMax", "NSyns", "NActive", "WtAvg"}

// Log is the step log of one run
type Log struct {

	// one row per step
	Table *etable.Table

	// destination for rows as they are added -- nil to only keep them in Table
	File io.Writer

	// set once headers have been written to File
	hdrs bool
}

// NewLog returns an empty log with given name
func NewLog(name string) *Log {
	lg := &Log{Table: &etable.Table{}}
	lg.Config(name)
	return lg
}

// Config configures the table schema and metadata
func (lg *Log) Config(name string) {
	dt := lg.Table
	dt.SetMetaData("name", name)
	dt.SetMetaData("desc", "Record of instrumentation statistics over simulation steps")
	dt.SetMetaData("read-only", "true")
	dt.SetMetaData("precision", strconv.Itoa(LogPrec))

	sch := etable.Schema{
		{Name: "Step", Type: etensor.INT64, CellShape: nil, DimNames: nil},
	}
	for _, cn := range Cols {
		sch = append(sch, etable.Column{Name: cn, Type: etensor.FLOAT64, CellShape: nil, DimNames: nil})
	}
	dt.SetFromSchema(sch, 0)
	lg.hdrs = false
}

// Rows returns the number of steps logged
func (lg *Log) Rows() int { return lg.Table.Rows }

// Add adds the report of given step as a new row, writing it to File if set
func (lg *Log) Add(step int, rep visualize.Report) error {
	dt := lg.Table
	row := dt.Rows
	dt.SetNumRows(row + 1)

	dt.SetCellFloat("Step", row, float64(step))
	dt.SetCellFloat("N", row, float64(rep.Neurons.N))
	dt.SetCellFloat("Fired", row, float64(rep.Neurons.Fired))
	dt.SetCellFloat("PctFired", row, float64(rep.Neurons.PctFired()))
	dt.SetCellFloat("WtdAvg", row, float64(rep.WtdSums.Avg))
	dt.SetCellFloat("WtdMin", row, float64(rep.WtdSums.Range.Min))
	dt.SetCellFloat("WtdMax", row, float64(rep.WtdSums.Range.Max))
	dt.SetCellFloat("NSyns", row, float64(rep.Synapses.NSyns))
	dt.SetCellFloat("NActive", row, float64(rep.Synapses.NActive))
	dt.SetCellFloat("WtAvg", row, float64(rep.Synapses.WtAvg))

	if lg.File == nil {
		return nil
	}
	if !lg.hdrs {
		if _, err := dt.WriteCSVHeaders(lg.File, etable.Tab); err != nil {
			return fmt.Errorf("statlog: %w", err)
		}
		lg.hdrs = true
	}
	if err := dt.WriteCSVRow(lg.File, row, etable.Tab); err != nil {
		return fmt.Errorf("statlog: %w", err)
	}
	return nil
}

// WriteCSV writes the headers and all rows to w, as tab-separated values
func (lg *Log) WriteCSV(w io.Writer) error {
	dt := lg.Table
	if _, err := dt.WriteCSVHeaders(w, etable.Tab); err != nil {
		return fmt.Errorf("statlog: %w", err)
	}
	for row := 0; row < dt.Rows; row++ {
		if err := dt.WriteCSVRow(w, row, etable.Tab); err != nil {
			return fmt.Errorf("statlog: %w", err)
		}
	}
	return nil
}

// Value returns the logged value of column at given row
func (lg *Log) Value(col string, row int) float64 {
	return lg.Table.CellFloat(col, row)
}

// Means returns the average of each numeric column over all logged steps,
// in Cols order.  Returns nil if nothing has been logged.
func (lg *Log) Means() []float64 {
	if lg.Rows() == 0 {
		return nil
	}
	ix := etable.NewIdxView(lg.Table)
	mns := make([]float64, len(Cols))
	for i, cn := range Cols {
		mns[i] = agg.Mean(ix, cn)[0]
	}
	return mns
}

// Reset removes all rows, keeping the schema
func (lg *Log) Reset() {
	lg.Table.SetNumRows(0)
	lg.hdrs = false
}
