package mct_test

import (
	"fmt"

	"github.jpl.nasa.gov/bdube/phasetec/mct"
)

type constSession struct {
	img mct.Frame
}

func (c *constSession) CopyFrame(index uint32, dst *mct.Frame, policy mct.OverwritePolicy) error {
	mct.Encode(dst, &c.img)
	return nil
}

func ExampleRunBatch() {
	sess := &constSession{}
	for i := range sess.img {
		sess.img[i] = 500
	}
	const shots = 4
	channels := []mct.LineRange{{Bottom: 83, Top: 88}, {Bottom: 13, Top: 18}}
	frames := make([]uint16, shots*mct.FrameSize)
	lines := make([]float64, mct.LineBufferSize(shots, len(channels)))
	back := &mct.Frame{}
	for i := range back {
		back[i] = 120
	}

	err := mct.RunBatch(shots, 0, sess, frames, channels, lines, back, nil)
	fmt.Println(err, frames[0], lines[mct.ShotMajor.Index(3, 1, 64, shots, len(channels))])
	// Output: <nil> 380 380
}
