package imaq

import (
	"context"

	"golang.org/x/time/rate"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// DefaultFrameRate is the full frame rate of the sensor, in Hz
const DefaultFrameRate = 1610

// Generator fills img with the image ordered frame for an absolute index
type Generator func(index uint32, img *mct.Frame)

// Uniform returns a generator producing frames with every pixel at v
func Uniform(v uint16) Generator {
	return func(index uint32, img *mct.Frame) {
		for i := range img {
			img[i] = v
		}
	}
}

// Chopped returns a generator which alternates between on and off on every
// frame, the way a chopped pump shows up on the probe.  Even frames are on.
func Chopped(on, off uint16) Generator {
	return func(index uint32, img *mct.Frame) {
		v := on
		if index%2 == 1 {
			v = off
		}
		for i := range img {
			img[i] = v
		}
	}
}

// Simulator pushes synthetic frames into a Ring at a fixed rate
type Simulator struct {
	// Ring receives the frames
	Ring *Ring

	// Rate is the frame rate in Hz, DefaultFrameRate if zero
	Rate float64

	// Generate produces the frames, Uniform(8000) if nil.  The output is
	// encoded into readout order before it is pushed.
	Generate Generator
}

// Run produces frames until ctx is done
func (s *Simulator) Run(ctx context.Context) error {
	hz := s.Rate
	if hz <= 0 {
		hz = DefaultFrameRate
	}
	gen := s.Generate
	if gen == nil {
		gen = Uniform(8000)
	}
	lim := rate.NewLimiter(rate.Limit(hz), 1)
	logger.Info().Float64("rate", hz).Int("capacity", s.Ring.Cap()).Msg("simulator started")

	var img, raw mct.Frame
	for {
		if err := lim.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				logger.Info().Uint32("frames", s.Ring.Acquired()).Msg("simulator stopped")
				return ctx.Err()
			}
			return err
		}
		gen(s.Ring.Acquired(), &img)
		mct.Encode(&raw, &img)
		s.Ring.Push(&raw)
	}
}
