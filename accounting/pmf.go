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
	"sort"

	"gonum.org/v1/gonum/floats"
)

// ProbabilityMassFunction is a sparse mapping from a discretized privacy loss
// value to the probability mass of that loss. A key k stands for the loss
// k * discretizationInterval of the owning privacy loss distribution. Zero
// masses are never stored.
type ProbabilityMassFunction map[int64]float64

// supportBounds returns the smallest and largest key of the PMF. The PMF must
// be nonempty.
func (pmf ProbabilityMassFunction) supportBounds() (min, max int64) {
	first := true
	for k := range pmf {
		if first || k < min {
			min = k
		}
		if first || k > max {
			max = k
		}
		first = false
	}
	return min, max
}

// sortedKeys returns the keys of the PMF in increasing order.
func (pmf ProbabilityMassFunction) sortedKeys() []int64 {
	keys := make([]int64, 0, len(pmf))
	for k := range pmf {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// dense returns the masses of the PMF as a contiguous slice covering the keys
// [min, max].
func (pmf ProbabilityMassFunction) dense(min, max int64) []float64 {
	out := make([]float64, max-min+1)
	for k, mass := range pmf {
		out[k-min] = mass
	}
	return out
}

// sparsePMF converts a dense mass vector back into a PMF. The i-th entry of
// masses corresponds to the key minKey+i. Zero masses are dropped.
func sparsePMF(masses []float64, minKey int64) ProbabilityMassFunction {
	pmf := make(ProbabilityMassFunction, len(masses))
	for i, mass := range masses {
		if mass > 0 {
			pmf[minKey+int64(i)] = mass
		}
	}
	return pmf
}

// TotalMass returns the probability mass at all finite privacy loss values.
func (pmf ProbabilityMassFunction) TotalMass() float64 {
	masses := make([]float64, 0, len(pmf))
	for _, mass := range pmf {
		masses = append(masses, mass)
	}
	return floats.Sum(masses)
}

// clone returns a deep copy of the PMF.
func (pmf ProbabilityMassFunction) clone() ProbabilityMassFunction {
	out := make(ProbabilityMassFunction, len(pmf))
	for k, mass := range pmf {
		out[k] = mass
	}
	return out
}
