package camera

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// TrimFraction is the share of shots cut from each end before the pumped and
// unpumped ratios are averaged
const TrimFraction = 0.2

// Signal is a pump-probe reading of one probe band against a reference band.
// Every slice has one entry per column.  Signals are in mOD,
// -1000*log10(pumped/unpumped), so induced absorption is positive.
type Signal struct {
	// Ratio is the probe/reference ratio averaged over all shots
	Ratio []float64

	// Noise is the standard deviation of the ratio over shots in percent
	// of its mean
	Noise []float64

	// Sig is the referenced signal, from trimmed means of the ratio
	Sig []float64

	// NoRef is the signal of the probe alone, from plain means
	NoRef []float64
}

// Signal computes the pump-probe reading of channel probe normalized by
// channel ref.  The pump is chopped at half the frame rate; firstOn tells
// whether the first shot of the readout was pumped.
func (o *Readout) Signal(probe, ref string, firstOn bool) (*Signal, error) {
	pi, ok := o.Channel(probe)
	if !ok {
		return nil, fmt.Errorf("camera: no channel %q", probe)
	}
	ri, ok := o.Channel(ref)
	if !ok {
		return nil, fmt.Errorf("camera: no channel %q", ref)
	}
	if o.Done < 2 {
		return nil, errors.New("camera: a signal needs at least one pumped and one unpumped shot")
	}

	probes := make([][]float64, o.Done)
	ratios := make([][]float64, o.Done)
	for s := range probes {
		probes[s] = o.Line(s, pi)
		ratios[s] = floats.DivTo(make([]float64, len(probes[s])), probes[s], o.Line(s, ri))
	}

	nOn := (o.Done + 1) / 2
	if !firstOn {
		nOn = o.Done / 2
	}
	var (
		col      = make([]float64, o.Done)
		onRatio  = make([]float64, 0, nOn)
		offRatio = make([]float64, 0, o.Done-nOn)
		onProbe  = make([]float64, 0, nOn)
		offProbe = make([]float64, 0, o.Done-nOn)
	)
	n := len(probes[0])
	out := &Signal{
		Ratio: make([]float64, n),
		Noise: make([]float64, n),
		Sig:   make([]float64, n),
		NoRef: make([]float64, n),
	}
	for c := 0; c < n; c++ {
		onRatio, offRatio = onRatio[:0], offRatio[:0]
		onProbe, offProbe = onProbe[:0], offProbe[:0]
		for s := range ratios {
			col[s] = ratios[s][c]
			if (s%2 == 0) == firstOn {
				onRatio = append(onRatio, ratios[s][c])
				onProbe = append(onProbe, probes[s][c])
			} else {
				offRatio = append(offRatio, ratios[s][c])
				offProbe = append(offProbe, probes[s][c])
			}
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		out.Ratio[c] = mean
		out.Noise[c] = 100 * std / mean
		out.Sig[c] = mOD(trimMean(onRatio, TrimFraction), trimMean(offRatio, TrimFraction))
		out.NoRef[c] = mOD(stat.Mean(onProbe, nil), stat.Mean(offProbe, nil))
	}
	return out, nil
}

func mOD(on, off float64) float64 {
	return -1000 * math.Log10(on/off)
}

// trimMean is the mean of x after dropping the floor(frac*len(x)) smallest
// and largest values.  x is sorted in place.
func trimMean(x []float64, frac float64) float64 {
	sort.Float64s(x)
	k := int(frac * float64(len(x)))
	return stat.Mean(x[k:len(x)-k], nil)
}
