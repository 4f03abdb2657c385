package imaq

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

// WriteFITS streams frames to w as a 16-bit cube of 128x128 images.
// Unsigned data is stored with the usual BZERO offset of 32768.
func WriteFITS(w io.Writer, metadata []fitsio.Card, frames []mct.Frame) error {
	if len(frames) == 0 {
		return fmt.Errorf("imaq: no frames to write")
	}
	metadata = append(metadata, fitsio.Card{Name: "BZERO", Value: 32768}, fitsio.Card{Name: "BSCALE", Value: 1.0})
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	dims := []int{mct.RowSize, mct.RowSize}
	if len(frames) > 1 {
		dims = append(dims, len(frames))
	}
	im := fitsio.NewImage(16, dims)
	defer im.Close()
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	ints := make([]int16, len(frames)*mct.FrameSize)
	for n := range frames {
		off := n * mct.FrameSize
		for idx, v := range frames[n] {
			ints[off+idx] = int16(int(v) - 32768)
		}
	}
	err = im.Write(ints)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// ReadFITS reads the first HDU of a FITS stream as a sequence of 128x128
// frames.  The image must be 16-bit; a BZERO card is honored.
func ReadFITS(r io.Reader) ([]mct.Frame, error) {
	f, err := fitsio.Open(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, ok := f.HDU(0).(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("imaq: primary HDU is not an image")
	}
	hdr := img.Header()
	if hdr.Bitpix() != 16 {
		return nil, fmt.Errorf("imaq: expected BITPIX 16, got %d: %w", hdr.Bitpix(), ErrBadGeometry)
	}
	axes := hdr.Axes()
	if len(axes) < 2 || len(axes) > 3 || axes[0] != mct.RowSize || axes[1] != mct.RowSize {
		return nil, fmt.Errorf("imaq: image axes %v are not %dx%d[xN]: %w", axes, mct.RowSize, mct.RowSize, ErrBadGeometry)
	}
	nframes := 1
	if len(axes) == 3 {
		nframes = axes[2]
	}
	bzero := 0
	if c := hdr.Get("BZERO"); c != nil {
		switch v := c.Value.(type) {
		case int:
			bzero = v
		case int64:
			bzero = int(v)
		case float64:
			bzero = int(v)
		}
	}

	ints := make([]int16, nframes*mct.FrameSize)
	err = img.Read(&ints)
	if err != nil {
		return nil, err
	}
	frames := make([]mct.Frame, nframes)
	for n := range frames {
		off := n * mct.FrameSize
		for idx := range frames[n] {
			frames[n][idx] = uint16(int(ints[off+idx]) + bzero)
		}
	}
	return frames, nil
}
