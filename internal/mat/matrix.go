// Package mat provides a minimal column-major dense matrix used to hold
// batches of embeddings produced by the encoder.
package mat

import "fmt"

// Matrix is a D x N matrix of float32 stored column-major: column i (an
// embedding) occupies data[i*rows : i*rows+rows] contiguously. This matches
// the layout the encoder is expected to produce (spec §6, "column-major
// preferred, matching encoder").
type Matrix struct {
	rows int // D
	cols int // N
	data []float32
}

// New allocates a zeroed rows x cols matrix.
func New(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float32, rows*cols)}
}

// NewFromColumns builds a matrix from a slice of column vectors, each of
// length rows.
func NewFromColumns(cols [][]float32) (*Matrix, error) {
	if len(cols) == 0 {
		return &Matrix{}, nil
	}
	rows := len(cols[0])
	m := New(rows, len(cols))
	for i, col := range cols {
		if len(col) != rows {
			return nil, fmt.Errorf("mat: column %d has length %d, want %d", i, len(col), rows)
		}
		m.SetColumn(i, col)
	}
	return m, nil
}

// Rows returns D.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns N.
func (m *Matrix) Cols() int { return m.cols }

// Data returns the raw column-major backing slice.
func (m *Matrix) Data() []float32 { return m.data }

// Column returns a view (not a copy) of column i.
func (m *Matrix) Column(i int) []float32 {
	return m.data[i*m.rows : (i+1)*m.rows]
}

// SetColumn copies vec into column i.
func (m *Matrix) SetColumn(i int, vec []float32) {
	copy(m.data[i*m.rows:(i+1)*m.rows], vec)
}

// Slice returns a new Matrix viewing the contiguous column range [from, to).
// The returned matrix shares backing storage with m.
func (m *Matrix) Slice(from, to int) *Matrix {
	return &Matrix{
		rows: m.rows,
		cols: to - from,
		data: m.data[from*m.rows : to*m.rows],
	}
}
