/*Package camera reads shots from the MCT array and keeps the state that lives
between reads: the running frame counter, the background frame, the dead
pixel list and the named row bands.

A Reader is safe for concurrent use; reads are serialized.  Basic usage:

	rdr, err := camera.NewReader(sess, camera.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	err = rdr.SetBackground() // with the beam blocked
	...
	out, err := rdr.Read()
	probe, _ := out.Channel("Probe1")
	mean, std := out.Stats(probe)
*/
package camera

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// FrameCounter is implemented by sessions which can report the newest frame
// they hold.  Readers use it to resynchronize after losing frames.
type FrameCounter interface {
	LastFrame() (uint32, error)
}

// Reader reads batches of shots from a session
type Reader struct {
	mu sync.Mutex

	sess       mct.Session
	shots      int
	channels   []Channel
	dead       []int
	background *mct.Frame
	overwrite  mct.OverwritePolicy
	layout     mct.LineLayout
	retry      Retry

	// valid holds the valid pixel mask of each channel, nil when unmasked
	valid [][]bool

	// frames is the absolute index of the next frame to read
	frames uint32
}

// NewReader returns a Reader on sess configured by cfg
func NewReader(sess mct.Session, cfg Config) (*Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ow, _ := cfg.OverwritePolicy()
	layout, _ := cfg.LineLayout()
	r := &Reader{
		sess:      sess,
		shots:     cfg.Shots,
		overwrite: ow,
		layout:    layout,
		retry:     cfg.Retry,
	}
	r.channels = append(r.channels, cfg.Channels...)
	if len(cfg.DeadPixels) != 0 {
		r.dead = append(r.dead, cfg.DeadPixels...)
	}
	return r, nil
}

// Shots returns the number of frames per read
func (r *Reader) Shots() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shots
}

// SetShots changes the number of frames per read
func (r *Reader) SetShots(n int) error {
	if n <= 0 {
		return errors.New("camera: shots must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shots = n
	return nil
}

// Channels returns a copy of the configured channels
func (r *Reader) Channels() []Channel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Channel(nil), r.channels...)
}

// SetChannels replaces the configured channels and clears the valid pixel
// mask
func (r *Reader) SetChannels(chs []Channel) error {
	if strs := checkChannels(chs); len(strs) != 0 {
		return fmt.Errorf("camera: invalid channels: %s", strings.Join(strs, "; "))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append([]Channel(nil), chs...)
	r.valid = nil
	return nil
}

// SetDeadPixels replaces the dead pixel list; nil or empty disables repair
func (r *Reader) SetDeadPixels(dead []int) error {
	for _, p := range dead {
		if p < 0 || p >= mct.FrameSize {
			return fmt.Errorf("camera: dead pixel %d outside of frame", p)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(dead) == 0 {
		r.dead = nil
		return nil
	}
	r.dead = append([]int(nil), dead...)
	return nil
}

// NextFrame returns the absolute index the next read starts at
func (r *Reader) NextFrame() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// SetNextFrame moves the frame counter, e.g. after the session was restarted
func (r *Reader) SetNextFrame(n uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = n
}

// Read acquires the next Shots frames with background subtraction and dead
// pixel repair applied.
//
// If acquisition fails part way, the returned Readout holds the shots which
// were processed (see Readout.Done) alongside the error.
func (r *Reader) Read() (*Readout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(r.background)
}

// read runs batches until one succeeds or the retry policy is exhausted.
// r.mu must be held.
func (r *Reader) read(back *mct.Frame) (*Readout, error) {
	var (
		out     *Readout
		err     error
		retries int
	)
	op := func() error {
		out, err = r.readOnce(back)
		if err == nil || errors.Is(err, mct.ErrConfig) || retries >= r.retry.Max {
			// done, or not worth retrying; err is captured in the closure
			return nil
		}
		fc, ok := r.sess.(FrameCounter)
		if !ok {
			return nil
		}
		last, lerr := fc.LastFrame()
		if lerr != nil {
			return nil
		}
		retries++
		logger.Warn().Err(err).Uint32("from", r.frames).Uint32("to", last+1).
			Int("retry", retries).Msg("resynchronizing frame counter")
		r.frames = last + 1
		return err
	}
	berr := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     r.retry.Initial,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         r.retry.MaxInterval,
		MaxElapsedTime:      0,
		Clock:               backoff.SystemClock})
	if berr != nil && err == nil {
		err = berr
	}
	return out, err
}

// readOnce runs one batch at the frame counter.  r.mu must be held.
func (r *Reader) readOnce(back *mct.Frame) (*Readout, error) {
	out := newReadout(r.shots, r.frames, r.channels, r.layout)
	ranges := make([]mct.LineRange, len(r.channels))
	for i, ch := range r.channels {
		ranges[i] = ch.Range()
	}
	b := &mct.Batch{
		Shots:      r.shots,
		StartFrame: r.frames,
		Frames:     out.Frames,
		Channels:   ranges,
		Lines:      out.Lines,
		Layout:     r.layout,
		Background: back,
		DeadPixels: r.dead,
		Overwrite:  r.overwrite,
	}
	start := time.Now()
	err := b.Run(r.sess)
	out.Done = b.Done()
	if r.valid != nil {
		maskLines(out, r.valid)
	}
	if err != nil {
		logger.Warn().Err(err).Int("status", mct.Status(err)).Uint32("start", r.frames).
			Int("done", out.Done).Int("shots", r.shots).Msg("batch aborted")
		return out, err
	}
	r.frames += uint32(r.shots)
	logger.Debug().Uint32("start", out.StartFrame).Int("shots", r.shots).
		Dur("elapsed", time.Since(start)).Msg("batch complete")
	return out, nil
}
