package quantization

import "sort"

// Quantile computes the p-th quantile (0 <= p <= 1) of data using linear
// interpolation between the two nearest order statistics — the "type 7"
// definition (spec §4.3 step 5, pinned as the Open Question resolution in
// spec §9). data is sorted in place.
func Quantile(data []float32, p float32) float32 {
	if len(data) == 0 {
		return 0
	}
	sort.Slice(data, func(i, j int) bool { return data[i] < data[j] })
	return QuantileSorted(data, p)
}

// QuantileSorted computes the p-th type-7 quantile assuming data is already
// sorted ascending. Computing several quantiles over the same residual
// population (as bucket calibration does, spec §4.3 step 4) sorts once and
// calls this repeatedly rather than re-sorting per quantile.
func QuantileSorted(sorted []float32, p float32) float32 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	h := float64(len(sorted)-1) * float64(p)
	lo := int(h)
	if lo < 0 {
		lo = 0
	}
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + float32(frac)*(sorted[lo+1]-sorted[lo])
}
