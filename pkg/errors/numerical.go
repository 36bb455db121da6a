package errors

import (
	"fmt"
	"math"
)

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// CheckMatrix returns a ValueError naming the first non-finite cell.
func CheckMatrix(op string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := matrix.At(i, j); !IsFinite(v) {
				return NewValueError(op, fmt.Sprintf("non-finite value %v at row %d, column %d", v, i, j))
			}
		}
	}
	return nil
}

// SafeDivide returns 0 when the denominator is zero or close to it.
func SafeDivide(numerator, denominator float64) float64 {
	if math.Abs(denominator) < 1e-10 {
		return 0
	}
	return numerator / denominator
}
