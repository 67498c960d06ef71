package apu

import "math"

// biquad is a second-order IIR filter section (RBJ Audio EQ Cookbook
// coefficients), used to reproduce the 2A03's analog output path: two
// high-pass stages that remove the mixer's DC bias below 90 Hz and 440 Hz,
// and a low-pass stage that rolls off above 14 kHz.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

func newHighpass(sampleRate, cutoff float64) biquad {
	return newBiquad(sampleRate, cutoff, true)
}

func newLowpass(sampleRate, cutoff float64) biquad {
	return newBiquad(sampleRate, cutoff, false)
}

func newBiquad(sampleRate, cutoff float64, highpass bool) biquad {
	const q = 0.7071067811865476 // Butterworth Q, matches a single RC stage
	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw0 := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	var b0, b1, b2 float64
	if highpass {
		b0 = (1 + cosw0) / 2
		b1 = -(1 + cosw0)
		b2 = (1 + cosw0) / 2
	} else {
		b0 = (1 - cosw0) / 2
		b1 = 1 - cosw0
		b2 = (1 - cosw0) / 2
	}
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}
