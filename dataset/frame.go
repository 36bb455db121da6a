package dataset

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/achepred/pkg/errors"
)

// Frame is an immutable table of named numeric columns. It implements
// mat.Matrix, so it can be passed straight to the estimators, and unlike
// mat.Dense it can hold zero rows or zero columns.
type Frame struct {
	names []string
	rows  int
	data  []float64 // row-major, rows x len(names)
}

// NewFrame builds a Frame from row-major data. names and data are copied.
func NewFrame(names []string, rows int, data []float64) (*Frame, error) {
	if rows < 0 {
		return nil, errors.NewValueError("NewFrame", fmt.Sprintf("negative row count %d", rows))
	}
	if len(data) != rows*len(names) {
		return nil, errors.NewDimensionError("NewFrame", rows*len(names), len(data), 0)
	}
	return &Frame{
		names: append([]string(nil), names...),
		rows:  rows,
		data:  append([]float64(nil), data...),
	}, nil
}

// FrameFromMatrix copies m into a Frame with the given column names.
func FrameFromMatrix(names []string, m mat.Matrix) (*Frame, error) {
	r, c := m.Dims()
	if c != len(names) {
		return nil, errors.NewDimensionError("FrameFromMatrix", len(names), c, 1)
	}
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	return &Frame{names: append([]string(nil), names...), rows: r, data: data}, nil
}

// Dims implements mat.Matrix.
func (f *Frame) Dims() (int, int) {
	return f.rows, len(f.names)
}

// At implements mat.Matrix.
func (f *Frame) At(i, j int) float64 {
	if i < 0 || i >= f.rows || j < 0 || j >= len(f.names) {
		panic(mat.ErrIndexOutOfRange)
	}
	return f.data[i*len(f.names)+j]
}

// T implements mat.Matrix.
func (f *Frame) T() mat.Matrix {
	return mat.Transpose{Matrix: f}
}

// Names returns a copy of the column names.
func (f *Frame) Names() []string {
	return append([]string(nil), f.names...)
}

// Index returns the position of the named column.
func (f *Frame) Index(name string) (int, bool) {
	for j, n := range f.names {
		if n == name {
			return j, true
		}
	}
	return -1, false
}

// Row returns a copy of row i.
func (f *Frame) Row(i int) []float64 {
	c := len(f.names)
	return append([]float64(nil), f.data[i*c:(i+1)*c]...)
}

// Column returns a copy of column j.
func (f *Frame) Column(j int) []float64 {
	c := len(f.names)
	col := make([]float64, f.rows)
	for i := range col {
		col[i] = f.data[i*c+j]
	}
	return col
}

// Dense returns the values as a new *mat.Dense. An empty Frame yields an
// empty mat.Dense.
func (f *Frame) Dense() *mat.Dense {
	if f.rows == 0 || len(f.names) == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(f.rows, len(f.names), append([]float64(nil), f.data...))
}

// SelectColumns returns a new Frame holding the given columns in the given
// order. Row count and row order are unchanged.
func (f *Frame) SelectColumns(cols []int) *Frame {
	c := len(f.names)
	names := make([]string, len(cols))
	for k, j := range cols {
		names[k] = f.names[j]
	}
	data := make([]float64, 0, f.rows*len(cols))
	for i := 0; i < f.rows; i++ {
		row := f.data[i*c : (i+1)*c]
		for _, j := range cols {
			data = append(data, row[j])
		}
	}
	return &Frame{names: names, rows: f.rows, data: data}
}

// SelectRows returns a new Frame holding the given rows in the given order.
func (f *Frame) SelectRows(rows []int) *Frame {
	c := len(f.names)
	data := make([]float64, 0, len(rows)*c)
	for _, i := range rows {
		data = append(data, f.data[i*c:(i+1)*c]...)
	}
	return &Frame{names: append([]string(nil), f.names...), rows: len(rows), data: data}
}
