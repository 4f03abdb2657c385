package imaq

import (
	"io"
	"os"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// Playback serves raw frames from a recording.  Frame index i is recording
// frame i modulo its length, unless Strict is set.
type Playback struct {
	// Frames holds the raw frames in readout order
	Frames []mct.Frame

	// Strict makes indices past the end of the recording fail
	Strict bool
}

// NewPlayback reads a FITS cube of raw frames from r
func NewPlayback(r io.Reader) (*Playback, error) {
	frames, err := ReadFITS(r)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("frames", len(frames)).Msg("loaded playback recording")
	return &Playback{Frames: frames}, nil
}

// OpenPlayback reads a FITS cube of raw frames from the file at path
func OpenPlayback(path string) (*Playback, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewPlayback(f)
}

// CopyFrame copies the recorded frame for index into dst
func (p *Playback) CopyFrame(index uint32, dst *mct.Frame, policy mct.OverwritePolicy) error {
	n := uint32(len(p.Frames))
	if n == 0 || (p.Strict && index >= n) {
		return ErrFrameUnavailable
	}
	*dst = p.Frames[index%n]
	return nil
}

// LastFrame returns the index of the last recorded frame
func (p *Playback) LastFrame() (uint32, error) {
	if len(p.Frames) == 0 {
		return 0, ErrFrameUnavailable
	}
	return uint32(len(p.Frames) - 1), nil
}
