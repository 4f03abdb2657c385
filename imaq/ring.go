/*Package imaq provides in-memory frame sources which satisfy mct.Session.

Ring behaves like the host ring buffer of a frame grabber: frames are pushed
by a producer and addressed by their absolute number, and old frames fall off
the end once the ring is full.  Simulator fills a Ring at a fixed frame rate,
and Playback serves frames recorded in a FITS cube.
*/
package imaq

import (
	"sync"
	"time"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// Ring is a fixed capacity buffer of raw frames indexed by absolute frame
// number.  It is safe for one producer and any number of readers.
type Ring struct {
	// Timeout bounds how long CopyFrame waits for a frame which has not been
	// acquired yet.  Zero waits forever.
	Timeout time.Duration

	mu     sync.Mutex
	frames []mct.Frame
	next   uint32
	closed bool
	signal chan struct{}
}

// NewRing returns a ring holding up to capacity frames
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{
		frames: make([]mct.Frame, capacity),
		signal: make(chan struct{}),
	}
}

// Cap returns the number of frames the ring can hold
func (r *Ring) Cap() int {
	return len(r.frames)
}

// Push stores raw as the next frame and returns its absolute index.
// Frames pushed after Close are dropped.
func (r *Ring) Push(raw *mct.Frame) uint32 {
	r.mu.Lock()
	idx := r.next
	if r.closed {
		r.mu.Unlock()
		return idx
	}
	r.frames[idx%uint32(len(r.frames))] = *raw
	r.next++
	close(r.signal)
	r.signal = make(chan struct{})
	r.mu.Unlock()
	return idx
}

// Acquired returns the number of frames pushed so far
func (r *Ring) Acquired() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}

// LastFrame returns the index of the newest frame in the ring
func (r *Ring) LastFrame() (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next == 0 {
		return 0, ErrFrameUnavailable
	}
	return r.next - 1, nil
}

// oldest returns the index of the oldest frame still held.  r.mu must be held.
func (r *Ring) oldest() uint32 {
	c := uint32(len(r.frames))
	if r.next > c {
		return r.next - c
	}
	return 0
}

// Close wakes up any waiting readers and fails all future copies
func (r *Ring) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.signal)
	}
	return nil
}

// CopyFrame copies frame index into dst, blocking until it has been pushed
func (r *Ring) CopyFrame(index uint32, dst *mct.Frame, policy mct.OverwritePolicy) error {
	var deadline <-chan time.Time
	if r.Timeout > 0 {
		t := time.NewTimer(r.Timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return ErrSessionClosed
		}
		if index < r.next {
			err := r.copyHeld(index, dst, policy)
			r.mu.Unlock()
			return err
		}
		wait := r.signal
		r.mu.Unlock()

		select {
		case <-wait:
		case <-deadline:
			logger.Debug().Uint32("frame", index).Dur("timeout", r.Timeout).Msg("timed out waiting for frame")
			return ErrTimedOut
		}
	}
}

// copyHeld copies a frame that has already been acquired.  r.mu must be held.
func (r *Ring) copyHeld(index uint32, dst *mct.Frame, policy mct.OverwritePolicy) error {
	c := uint32(len(r.frames))
	oldest := r.oldest()
	if index < oldest {
		logger.Debug().Uint32("frame", index).Uint32("oldest", oldest).
			Stringer("policy", policy).Msg("frame evicted from ring")
		switch policy {
		case mct.OverwriteGetOldest:
			index = oldest
		case mct.OverwriteGetNewest:
			index = r.next - 1
		default:
			return ErrBufferOverwritten
		}
	}
	*dst = r.frames[index%c]
	return nil
}
