package camera

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.jpl.nasa.gov/bdube/phasetec/imaq"
	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// Background returns a copy of the current background frame, or nil
func (r *Reader) Background() *mct.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.background == nil {
		return nil
	}
	b := *r.background
	return &b
}

// SetBackground reads one batch without background subtraction and keeps
// the per-pixel mean of its shots as the new background.  Block the beam
// before calling it.
func (r *Reader) SetBackground() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out, err := r.read(nil)
	if err != nil {
		return err
	}
	back := MeanFrame(out)
	r.background = back
	logger.Info().Uint32("start", out.StartFrame).Int("shots", out.Done).Msg("background updated")
	return nil
}

// SetBackgroundFrame uses f as the background; nil disables subtraction
func (r *Reader) SetBackgroundFrame(f *mct.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f == nil {
		r.background = nil
		return
	}
	b := *f
	r.background = &b
}

// ClearBackground disables background subtraction
func (r *Reader) ClearBackground() {
	r.SetBackgroundFrame(nil)
	logger.Info().Msg("background cleared")
}

// LoadBackground reads the background from the FITS file at path
func (r *Reader) LoadBackground(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	back, err := ReadFrameFITS(f)
	if err != nil {
		return fmt.Errorf("loading background %s: %w", path, err)
	}
	r.SetBackgroundFrame(back)
	return nil
}

// MeanFrame returns the per-pixel mean of the processed shots of out,
// rounded to the nearest count.  It returns nil if no shot was processed.
func MeanFrame(out *Readout) *mct.Frame {
	if out.Done == 0 {
		return nil
	}
	var sums [mct.FrameSize]uint64
	for s := 0; s < out.Done; s++ {
		f := out.Frame(s)
		for i, v := range f {
			sums[i] += uint64(v)
		}
	}
	n := uint64(out.Done)
	back := &mct.Frame{}
	for i, s := range sums {
		back[i] = uint16((s + n/2) / n)
	}
	return back
}

// ReadFrameFITS reads a single corrected 128x128 frame from a FITS stream
func ReadFrameFITS(r io.Reader) (*mct.Frame, error) {
	frames, err := imaq.ReadFITS(r)
	if err != nil {
		return nil, err
	}
	if len(frames) != 1 {
		return nil, errors.New("camera: expected a single frame, got a cube")
	}
	return &frames[0], nil
}
