package camera

import (
	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// Readout is the result of one read
type Readout struct {
	// StartFrame is the absolute index of the first shot
	StartFrame uint32

	// Shots is the number of shots requested
	Shots int

	// Done is the number of shots which were processed.  It is less than
	// Shots only when the read failed.
	Done int

	// Channels are the bands the lines were reduced from
	Channels []Channel

	// Layout is the stride of Lines
	Layout mct.LineLayout

	// Frames holds Shots corrected frames back to back
	Frames []uint16

	// Lines holds the per-shot band means of each channel
	Lines []float64
}

func newReadout(shots int, start uint32, chs []Channel, layout mct.LineLayout) *Readout {
	return &Readout{
		StartFrame: start,
		Shots:      shots,
		Channels:   append([]Channel(nil), chs...),
		Layout:     layout,
		Frames:     make([]uint16, shots*mct.FrameSize),
		Lines:      make([]float64, mct.LineBufferSize(shots, len(chs))),
	}
}

// Frame returns shot i as a frame, sharing memory with Frames
func (o *Readout) Frame(i int) *mct.Frame {
	return (*mct.Frame)(o.Frames[i*mct.FrameSize : (i+1)*mct.FrameSize])
}

// Channel returns the index of the channel with the given name
func (o *Readout) Channel(name string) (int, bool) {
	for i, ch := range o.Channels {
		if ch.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Line returns a copy of the line profile of channel ch in shot
func (o *Readout) Line(shot, ch int) []float64 {
	nch := len(o.Channels)
	out := make([]float64, mct.RowSize)
	if o.Layout == mct.ShotMajor {
		start := o.Layout.Index(shot, ch, 0, o.Shots, nch)
		copy(out, o.Lines[start:start+mct.RowSize])
		return out
	}
	for col := range out {
		out[col] = o.Lines[o.Layout.Index(shot, ch, col, o.Shots, nch)]
	}
	return out
}

// MeanLines returns the line profile of every channel averaged over the
// processed shots.  The line buffer holds a sum of per-shot means, this
// divides it by the shot count.
func (o *Readout) MeanLines() [][]float64 {
	out := make([][]float64, len(o.Channels))
	sum := make([]float64, mct.RowSize)
	for ch := range o.Channels {
		for i := range sum {
			sum[i] = 0
		}
		for s := 0; s < o.Done; s++ {
			vecmath.AddBlockInPlace(sum, o.Line(s, ch))
		}
		out[ch] = make([]float64, mct.RowSize)
		if o.Done > 0 {
			vecmath.ScaleBlock(out[ch], sum, 1/float64(o.Done))
		}
	}
	return out
}

// Stats returns the mean and sample standard deviation over the processed
// shots of each column of channel ch.  The deviation is NaN for a single shot.
func (o *Readout) Stats(ch int) (mean, std []float64) {
	mean = make([]float64, mct.RowSize)
	std = make([]float64, mct.RowSize)
	if o.Done == 0 {
		return mean, std
	}
	col := make([]float64, o.Done)
	lines := make([][]float64, o.Done)
	for s := range lines {
		lines[s] = o.Line(s, ch)
	}
	for c := 0; c < mct.RowSize; c++ {
		for s := range lines {
			col[s] = lines[s][c]
		}
		mean[c], std[c] = stat.MeanStdDev(col, nil)
	}
	return mean, std
}
