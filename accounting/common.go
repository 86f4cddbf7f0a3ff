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

// Package accounting computes (ε,δ) guarantees of differentially private
// mechanisms under composition, using privacy loss distributions.
//
// The privacy loss distribution (PLD) of two discrete distributions, the
// upper distribution mu_upper and the lower distribution mu_lower, is a
// distribution on real numbers generated by first picking an outcome o
// according to mu_upper and then outputting the privacy loss
// ln(mu_upper(o) / mu_lower(o)). The PLD allows one to (approximately)
// compute the ε-hockey stick divergence between mu_upper and mu_lower,
//   sum_{o} [mu_upper(o) - e^ε * mu_lower(o)]_+,
// which in turn is the smallest δ for which the corresponding mechanism is
// (ε,δ)-differentially private. These definitions extend to continuous
// distributions with probability masses replaced by densities.
package accounting

import (
	"math"

	"github.com/openprivacy/accounting/checks"
)

const (
	// DefaultDiscretizationInterval is the grid spacing used for privacy
	// loss values when the caller does not specify one.
	DefaultDiscretizationInterval = 1e-4
	// DefaultMassTruncationBound is the natural log of the probability mass
	// bound below which the upper distribution's mass may be truncated when
	// the caller does not specify one.
	DefaultMassTruncationBound = -50.0
	// DefaultTailMassTruncation is the default bound on the probability mass
	// that composition may truncate from the tails of the composed PLD.
	DefaultTailMassTruncation = 1e-15
)

// EstimateType denotes the direction in which discretization of privacy loss
// values and truncation of probability mass may err.
type EstimateType int

const (
	// PessimisticEstimate rounds and truncates such that the computed
	// hockey stick divergence is an upper bound on the true value. Privacy
	// guarantees derived from a pessimistic PLD remain valid.
	PessimisticEstimate EstimateType = iota
	// OptimisticEstimate rounds and truncates such that the computed hockey
	// stick divergence is a lower bound on the true value.
	OptimisticEstimate
)

// String returns the stable tag of the estimate type, as used in serialized
// records.
func (e EstimateType) String() string {
	switch e {
	case PessimisticEstimate:
		return "PESSIMISTIC"
	case OptimisticEstimate:
		return "OPTIMISTIC"
	}
	return "UNKNOWN"
}

// roundsUp reports whether privacy loss values of upper-distribution mass are
// rounded toward +∞ under this estimate type.
func (e EstimateType) roundsUp() bool {
	return e == PessimisticEstimate
}

// EpsilonDelta is a privacy guarantee: a mechanism is (ε,δ)-differentially
// private if, for adjacent inputs, the probability of any set of outputs
// differs by at most a factor e^ε plus an additive term δ.
type EpsilonDelta struct {
	Epsilon float64
	Delta   float64
}

// Validate returns an error if the parameters do not form a valid privacy
// guarantee.
func (ed EpsilonDelta) Validate() error {
	if err := checks.CheckEpsilon("EpsilonDelta", ed.Epsilon); err != nil {
		return invalidArgumentf("%v", err)
	}
	if err := checks.CheckDelta("EpsilonDelta", ed.Delta); err != nil {
		return invalidArgumentf("%v", err)
	}
	return nil
}

// roundLoss returns the index of the grid point nearest to x in the given
// direction, where the grid consists of all integer multiples of interval.
// Rounding toward +∞ overstates the privacy loss of the mass assigned to the
// returned grid point, rounding toward -∞ understates it.
func roundLoss(x, interval float64, up bool) int64 {
	if up {
		return int64(math.Ceil(x / interval))
	}
	return int64(math.Floor(x / interval))
}
