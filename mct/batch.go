package mct

import "fmt"

// State is the position of a Batch in its life cycle
type State int

const (
	// Idle batches have not been run
	Idle State = iota

	// Running batches are acquiring and processing shots
	Running

	// Completed batches processed every shot
	Completed

	// Aborted batches stopped at an acquisition error
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Batch is one contiguous run of shots through the pipeline.  All buffers
// are owned by the caller.  A Batch can be run once.
type Batch struct {
	// Shots is the number of frames to acquire
	Shots int

	// StartFrame is the absolute index of the first frame on the session
	StartFrame uint32

	// Frames receives the corrected frames, Shots*FrameSize long.
	// Slot i is written once shot i has been processed.
	Frames []uint16

	// Channels are the row bands reduced into Lines, in output order
	Channels []LineRange

	// Lines accumulates the band means, LineBufferSize(Shots, len(Channels))
	// long and zeroed by the caller.  May be nil if there are no channels.
	Lines []float64

	// Layout is the stride of Lines
	Layout LineLayout

	// Background is subtracted from every frame if not nil
	Background *Frame

	// DeadPixels are repaired in every frame if not nil
	DeadPixels []int

	// Overwrite is passed to the session with every copy
	Overwrite OverwritePolicy

	state State
	done  int
}

// State returns the current state of the batch
func (b *Batch) State() State {
	return b.state
}

// Done returns the number of shots which were fully processed
func (b *Batch) Done() int {
	return b.done
}

// Validate checks the batch before any frame is acquired.  The returned
// error is a *ConfigError.
func (b *Batch) Validate() error {
	cerr := &ConfigError{}
	if b.Shots <= 0 {
		cerr.add("shot count %d must be positive", b.Shots)
	}
	for i, ch := range b.Channels {
		if err := ch.Valid(); err != nil {
			cerr.add("channel %d: %v", i, err)
		}
	}
	if b.Shots > 0 {
		if want := b.Shots * FrameSize; len(b.Frames) != want {
			cerr.add("frame buffer holds %d samples, need %d", len(b.Frames), want)
		}
		if want := LineBufferSize(b.Shots, len(b.Channels)); len(b.Lines) != want {
			cerr.add("line buffer holds %d values, need %d", len(b.Lines), want)
		}
	}
	switch b.Layout {
	case ShotMajor, ChannelMajor:
	default:
		cerr.add("unknown line layout %v", b.Layout)
	}
	for i, p := range b.DeadPixels {
		if p < 0 || p >= FrameSize {
			cerr.add("dead pixel %d at index %d outside of [0, %d)", i, p, FrameSize)
		}
	}
	if len(cerr.Problems) != 0 {
		return cerr
	}
	return nil
}

// Run acquires and processes every shot of the batch from sess.
//
// If the session fails to copy a frame the batch is aborted and the session's
// error is returned as is.  Shots before the failed one remain written to
// Frames and accumulated into Lines, later slots are left untouched.
func (b *Batch) Run(sess Session) error {
	if b.state != Idle {
		return ErrBatchUsed
	}
	if err := b.Validate(); err != nil {
		return err
	}
	b.state = Running

	var raw, frame Frame
	for i := 0; i < b.Shots; i++ {
		err := sess.CopyFrame(b.StartFrame+uint32(i), &raw, b.Overwrite)
		if err != nil {
			b.state = Aborted
			return err
		}
		b.process(i, &raw, &frame)
		b.done++
	}
	b.state = Completed
	return nil
}

// process runs the pipeline on raw for shot i, using frame as scratch
func (b *Batch) process(i int, raw, frame *Frame) {
	Remap(frame, raw)
	Transpose(frame)
	if b.Background != nil {
		SubtractBackground(frame, b.Background)
	}
	if b.DeadPixels != nil {
		RepairDeadPixels(frame, b.DeadPixels)
	}
	copy(b.Frames[i*FrameSize:(i+1)*FrameSize], frame[:])
	AggregateLines(frame, i, b.Channels, b.Lines, b.Shots, b.Layout)
}

// RunBatch builds a batch from its arguments and runs it against sess.
// background and dead may be nil to skip their stages.
func RunBatch(shots int, startFrame uint32, sess Session, frames []uint16,
	channels []LineRange, lines []float64, background *Frame, dead []int) error {
	b := &Batch{
		Shots:      shots,
		StartFrame: startFrame,
		Frames:     frames,
		Channels:   channels,
		Lines:      lines,
		Background: background,
		DeadPixels: dead,
	}
	return b.Run(sess)
}
