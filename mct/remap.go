// this file contains the index arithmetic that puts pixels where they belong
package mct

// muxIndex returns the position in the raw readout of image pixel i.
// The ADC interleaves four adjacent columns into a 512 sample stride.
func muxIndex(i int) int {
	row := i / RowSize
	col := i % RowSize
	return (col/4)*muxStride + col%4 + row*4
}

// Remap undoes the multiplexed readout order of src and inverts the detector
// polarity, writing the result into dst.  Raw values above Max14Bit saturate
// to zero so the complement never wraps.
func Remap(dst, src *Frame) {
	for i := 0; i < FrameSize; i++ {
		dst[i] = Max14Bit - clamp14(src[muxIndex(i)])
	}
}

// Encode is the inverse of Remap.  It takes an image ordered frame and
// produces the raw readout the sensor would have delivered for it.
func Encode(dst, src *Frame) {
	for i := 0; i < FrameSize; i++ {
		dst[muxIndex(i)] = Max14Bit - clamp14(src[i])
	}
}

func clamp14(v uint16) uint16 {
	if v > Max14Bit {
		return Max14Bit
	}
	return v
}

// Transpose swaps rows and columns of f in place
func Transpose(f *Frame) {
	for i := 0; i < RowSize; i++ {
		for j := i + 1; j < RowSize; j++ {
			a, b := i*RowSize+j, j*RowSize+i
			f[a], f[b] = f[b], f[a]
		}
	}
}
