//
// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package accounting

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// convolve returns the discrete convolution of the mass vectors a and b, of
// length len(a)+len(b)-1.
//
// The convolution is transform-based: both inputs are padded to the output
// length, transformed with a real FFT, multiplied pointwise and transformed
// back, for a total cost of O(n log n) where n is the output length. This
// keeps composition of PLDs with supports of tens of thousands of grid points
// tractable, at the cost of round-off on masses near the float64 noise floor;
// negative round-off results are clamped to zero.
func convolve(a, b []float64) []float64 {
	n := len(a) + len(b) - 1
	fft := fourier.NewFFT(n)

	pa := make([]float64, n)
	copy(pa, a)
	pb := make([]float64, n)
	copy(pb, b)

	ca := fft.Coefficients(nil, pa)
	cb := fft.Coefficients(nil, pb)
	for i := range ca {
		ca[i] *= cb[i]
	}

	// The transform is unnormalized: a round trip scales the sequence by n.
	out := fft.Sequence(nil, ca)
	inv := 1 / float64(n)
	for i := range out {
		out[i] *= inv
		if out[i] < 0 {
			out[i] = 0
		}
	}
	return out
}
