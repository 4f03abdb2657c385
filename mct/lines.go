package mct

import (
	vecmath "github.com/cwbudde/algo-vecmath"
)

// bandMean writes the per-column mean of rows [band.Bottom, band.Top) of f into out
func bandMean(out *[RowSize]float64, f *Frame, band LineRange) {
	var sums [RowSize]uint32
	for r := band.Bottom; r < band.Top; r++ {
		row := f.Row(r)
		for c := 0; c < RowSize; c++ {
			sums[c] += uint32(row[c])
		}
	}
	h := float64(band.Height())
	for c := 0; c < RowSize; c++ {
		out[c] = float64(sums[c]) / h
	}
}

// AggregateLines reduces every channel of f to its per-column band mean and
// adds it to the slots of shot in lines.  lines is accumulated into, not
// overwritten, and must be zeroed by the caller before the first shot of a
// batch.  Its length must be at least shots*len(chans)*RowSize and every
// channel must be Valid.
func AggregateLines(f *Frame, shot int, chans []LineRange, lines []float64, shots int, layout LineLayout) {
	var mean [RowSize]float64
	nch := len(chans)
	for ch, band := range chans {
		bandMean(&mean, f, band)
		if layout == ShotMajor {
			start := layout.Index(shot, ch, 0, shots, nch)
			vecmath.AddBlockInPlace(lines[start:start+RowSize], mean[:])
			continue
		}
		for col := 0; col < RowSize; col++ {
			lines[layout.Index(shot, ch, col, shots, nch)] += mean[col]
		}
	}
}

// LineBufferSize is the length of a line buffer for shots shots of nch channels
func LineBufferSize(shots, nch int) int {
	return shots * nch * RowSize
}
