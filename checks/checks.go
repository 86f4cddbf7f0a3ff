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

// Package checks contains checks for the parameters of privacy accounting
// primitives.
package checks

import (
	"fmt"
	"math"
)

// CheckEpsilon returns an error if ε is strictly negative, NaN or ±∞.
func CheckEpsilon(label string, epsilon float64) error {
	if epsilon < 0 || math.IsInf(epsilon, 0) || math.IsNaN(epsilon) {
		return fmt.Errorf("%s: Epsilon is %f, must be nonnegative and finite", label, epsilon)
	}
	return nil
}

// CheckDelta returns an error if δ is NaN or outside of [0, 1].
func CheckDelta(label string, delta float64) error {
	if math.IsNaN(delta) {
		return fmt.Errorf("%s: Delta is %e, cannot be NaN", label, delta)
	}
	if delta < 0 || delta > 1 {
		return fmt.Errorf("%s: Delta is %e, must be within [0, 1]", label, delta)
	}
	return nil
}

// CheckNoiseParameter returns an error if the scale parameter of a Laplace or
// discrete Laplace distribution is nonpositive, NaN or +∞.
func CheckNoiseParameter(label string, parameter float64) error {
	if parameter <= 0 || math.IsInf(parameter, 0) || math.IsNaN(parameter) {
		return fmt.Errorf("%s: NoiseParameter is %f, must be strictly positive and finite", label, parameter)
	}
	return nil
}

// CheckStandardDeviation returns an error if the standard deviation of a
// Gaussian or discrete Gaussian distribution is nonpositive, NaN or +∞.
func CheckStandardDeviation(label string, sigma float64) error {
	if sigma <= 0 || math.IsInf(sigma, 0) || math.IsNaN(sigma) {
		return fmt.Errorf("%s: StandardDeviation is %f, must be strictly positive and finite", label, sigma)
	}
	return nil
}

// CheckSensitivity returns an error if the sensitivity is nonpositive, NaN
// or +∞.
func CheckSensitivity(label string, sensitivity float64) error {
	if sensitivity <= 0 || math.IsInf(sensitivity, 0) || math.IsNaN(sensitivity) {
		return fmt.Errorf("%s: Sensitivity is %f, must be strictly positive and finite", label, sensitivity)
	}
	return nil
}

// CheckDiscretizationInterval returns an error if the discretization interval
// of a privacy loss distribution is nonpositive, NaN or +∞.
func CheckDiscretizationInterval(label string, interval float64) error {
	if interval <= 0 || math.IsInf(interval, 0) || math.IsNaN(interval) {
		return fmt.Errorf("%s: DiscretizationInterval is %e, must be strictly positive and finite", label, interval)
	}
	return nil
}

// CheckTailMassTruncation returns an error if the tail mass truncation bound
// is negative, NaN or +∞.
func CheckTailMassTruncation(label string, tailMassTruncation float64) error {
	if tailMassTruncation < 0 || math.IsInf(tailMassTruncation, 0) || math.IsNaN(tailMassTruncation) {
		return fmt.Errorf("%s: TailMassTruncation is %e, must be nonnegative and finite", label, tailMassTruncation)
	}
	return nil
}

// CheckProbability returns an error if p is NaN or outside of [0, 1].
func CheckProbability(label string, p float64) error {
	if p < 0 || p > 1 || math.IsNaN(p) {
		return fmt.Errorf("%s: probability is %f, must be within [0, 1]", label, p)
	}
	return nil
}
