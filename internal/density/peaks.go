package density

// PeakIndices returns the indices i with 1 <= i <= len(y)-2 where y[i] is
// strictly greater than both neighbours. Boundary samples are never peaks,
// so fewer than three samples yield no peaks.
func PeakIndices(y []float64) []int {
	peaks := []int{}
	for i := 1; i+1 < len(y); i++ {
		if y[i] > y[i-1] && y[i] > y[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// FindPeaks returns the strict local maxima of a curve.
func FindPeaks(curve []CurvePoint) []Peak {
	y := make([]float64, len(curve))
	for i, p := range curve {
		y[i] = p.Y
	}

	idx := PeakIndices(y)
	peaks := make([]Peak, len(idx))
	for i, at := range idx {
		peaks[i] = Peak{Index: at, CurvePoint: curve[at]}
	}
	return peaks
}
