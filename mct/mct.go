/*Package mct turns raw readouts from a 128x128 multiplexed MCT focal plane into
corrected frames and per-channel line profiles.

Each shot in a batch goes through the same straight line of stages:

	raw --Remap--> image order --Transpose--> row major
	    --SubtractBackground--> (optional)
	    --RepairDeadPixels--> (optional)
	    --AggregateLines--> per-column band means

Frames are fixed size arrays, the geometry of the sensor never changes.
The only thing that can fail is acquisition, which is delegated to a Session.
Nothing in this package locks; callers must not share buffers or sessions
between concurrent batches.
*/
package mct

import "fmt"

const (
	// RowSize is the number of pixels along each side of the sensor
	RowSize = 128

	// FrameSize is the number of pixels in one frame
	FrameSize = RowSize * RowSize

	// Max14Bit is the largest value the ADC can produce
	Max14Bit = 1<<14 - 1

	// muxStride is the readout stride between groups of four columns
	muxStride = 512
)

// Frame is one detector image, raw or corrected.  It is row major once
// it has been remapped and transposed.
type Frame [FrameSize]uint16

// Row returns row r of the frame without copying
func (f *Frame) Row(r int) []uint16 {
	return f[r*RowSize : (r+1)*RowSize]
}

// At returns the pixel at (row, col)
func (f *Frame) At(row, col int) uint16 {
	return f[row*RowSize+col]
}

// LineRange is a band of rows [Bottom, Top) reduced to one value per column.
type LineRange struct {
	Bottom int `json:"bottom" yaml:"bottom"`
	Top    int `json:"top" yaml:"top"`
}

// Valid returns nil if the range selects at least one row inside the frame
func (l LineRange) Valid() error {
	if l.Bottom < 0 || l.Top > RowSize {
		return fmt.Errorf("line range [%d, %d) outside of [0, %d)", l.Bottom, l.Top, RowSize)
	}
	if l.Bottom >= l.Top {
		return fmt.Errorf("line range [%d, %d) is empty", l.Bottom, l.Top)
	}
	return nil
}

// Height is the number of rows in the band
func (l LineRange) Height() int {
	return l.Top - l.Bottom
}

// LineLayout selects the stride of a line buffer.
type LineLayout int

const (
	// ShotMajor indexes lines as shot*nch*RowSize + ch*RowSize + col.
	// Each (shot, channel) profile is contiguous.  This is the default.
	ShotMajor LineLayout = iota

	// ChannelMajor indexes lines as ch*RowSize*shots + col*shots + shot,
	// so consecutive shots of one pixel are contiguous.
	ChannelMajor
)

func (l LineLayout) String() string {
	switch l {
	case ShotMajor:
		return "shot-major"
	case ChannelMajor:
		return "channel-major"
	default:
		return fmt.Sprintf("LineLayout(%d)", int(l))
	}
}

// Index returns the position of (shot, ch, col) in a line buffer holding
// shots shots of nch channels
func (l LineLayout) Index(shot, ch, col, shots, nch int) int {
	if l == ChannelMajor {
		return ch*RowSize*shots + col*shots + shot
	}
	return shot*nch*RowSize + ch*RowSize + col
}

// OverwritePolicy tells a Session what to do when the requested frame has
// already been evicted from its ring
type OverwritePolicy int

const (
	// OverwriteFail returns an error for evicted frames
	OverwriteFail OverwritePolicy = iota

	// OverwriteGetOldest substitutes the oldest frame still held
	OverwriteGetOldest

	// OverwriteGetNewest substitutes the newest frame held
	OverwriteGetNewest
)

func (o OverwritePolicy) String() string {
	switch o {
	case OverwriteFail:
		return "fail"
	case OverwriteGetOldest:
		return "oldest"
	case OverwriteGetNewest:
		return "newest"
	default:
		return fmt.Sprintf("OverwritePolicy(%d)", int(o))
	}
}

// Session is an acquisition session on a frame grabber.  It is owned by the
// caller and passed explicitly into every batch.
type Session interface {
	// CopyFrame copies the raw frame with absolute index into dst.
	// It may block until the frame has been acquired.  A non-nil error
	// carries the vendor status and is returned from a batch unmodified.
	CopyFrame(index uint32, dst *Frame, policy OverwritePolicy) error
}
