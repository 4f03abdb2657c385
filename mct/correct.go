package mct

// SubtractBackground subtracts back from f in place, clamping at zero
func SubtractBackground(f, back *Frame) {
	for i := 0; i < FrameSize; i++ {
		if f[i] > back[i] {
			f[i] -= back[i]
		} else {
			f[i] = 0
		}
	}
}

// RepairDeadPixels replaces each flagged pixel in f with an estimate from its
// vertical neighbors.  Pixels on the top row copy the pixel below, those on
// the bottom row copy the pixel above, and the rest take the mean of both.
// Pixels are visited in the order given, so a repaired pixel can feed a
// later repair.  Indices must lie in [0, FrameSize).
func RepairDeadPixels(f *Frame, dead []int) {
	for _, p := range dead {
		switch {
		case p < RowSize:
			f[p] = f[p+RowSize]
		case p >= FrameSize-RowSize:
			f[p] = f[p-RowSize]
		default:
			// halve first, the sum of two 16 bit values may not fit
			f[p] = f[p-RowSize]/2 + f[p+RowSize]/2
		}
	}
}
