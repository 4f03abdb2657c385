package camera

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// Default bounds for MarkValidPixels, in counts.  Pixels darker than the
// lower bound see no light, pixels brighter than the upper are near
// saturation.
const (
	DefaultValidMin = 300
	DefaultValidMax = 12000
)

// MarkValidPixels reads one batch without background subtraction and marks,
// in the band of every channel, the pixels whose mean over the shots lies
// strictly between lo and hi.  Until the mask is cleared or the channels
// change, reads average each column over the marked rows only; a column
// with no marked rows reads NaN.
func (r *Reader) MarkValidPixels(lo, hi float64) error {
	if lo >= hi {
		return fmt.Errorf("camera: valid pixel bounds [%g, %g] are empty", lo, hi)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.read(nil)
	if err != nil {
		return err
	}
	r.valid = validPixels(out, lo, hi)
	logger.Info().Uint32("start", out.StartFrame).Int("shots", out.Done).
		Float64("min", lo).Float64("max", hi).Msg("valid pixels marked")
	return nil
}

// ClearValidPixels goes back to averaging every row of a band
func (r *Reader) ClearValidPixels() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.valid = nil
}

// ValidPixels returns a copy of the mask of the named channel.  Entry
// (row-Bottom)*RowSize+col is true for a valid pixel.  ok is false if no
// mask is set.
func (r *Reader) ValidPixels(name string) (mask []bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.valid == nil {
		return nil, false
	}
	for i, ch := range r.channels {
		if ch.Name == name {
			return append([]bool(nil), r.valid[i]...), true
		}
	}
	return nil, false
}

// validPixels thresholds the per-pixel mean over the processed shots of out
// within the band of each channel
func validPixels(out *Readout, lo, hi float64) [][]bool {
	masks := make([][]bool, len(out.Channels))
	for i, ch := range out.Channels {
		acc := make([]float64, ch.Range().Height()*mct.RowSize)
		for s := 0; s < out.Done; s++ {
			f := out.Frame(s)
			for j := range acc {
				acc[j] += float64(f[ch.Bottom*mct.RowSize+j])
			}
		}
		floats.Scale(1/float64(out.Done), acc)
		masks[i] = make([]bool, len(acc))
		for j, v := range acc {
			masks[i][j] = lo < v && v < hi
		}
	}
	return masks
}

// maskLines recomputes the lines of the processed shots of out from the
// valid pixels of each band
func maskLines(out *Readout, valid [][]bool) {
	nch := len(out.Channels)
	for ch, mask := range valid {
		bottom := out.Channels[ch].Bottom
		h := out.Channels[ch].Range().Height()
		for s := 0; s < out.Done; s++ {
			f := out.Frame(s)
			for col := 0; col < mct.RowSize; col++ {
				sum, n := 0., 0
				for row := 0; row < h; row++ {
					if mask[row*mct.RowSize+col] {
						sum += float64(f.At(bottom+row, col))
						n++
					}
				}
				v := math.NaN()
				if n != 0 {
					v = sum / float64(n)
				}
				out.Lines[out.Layout.Index(s, ch, col, out.Shots, nch)] = v
			}
		}
	}
}
