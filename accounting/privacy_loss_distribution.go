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
	"math"
	"math/bits"
	"sort"

	log "github.com/golang/glog"
	"github.com/openprivacy/accounting/checks"
)

const (
	// intervalMatchTolerance is the largest difference between discretization
	// intervals under which two PLDs are still considered composable.
	intervalMatchTolerance = 1e-12
	// massSumTolerance is the numerical slack allowed when checking that
	// probability masses sum up to at most 1.
	massSumTolerance = 1e-9
)

// Options are the common optional parameters of the PLD factories. The zero
// value denotes a pessimistic estimate with the default discretization
// interval and mass truncation bound.
type Options struct {
	// EstimateType determines the direction of rounding and truncation.
	EstimateType EstimateType
	// DiscretizationInterval is the grid spacing of the privacy loss values;
	// every loss is rounded to an integer multiple of it. 0 means
	// DefaultDiscretizationInterval.
	DiscretizationInterval float64
	// MassTruncationBound is the natural log of the probability mass of the
	// upper distribution below which mass is either attributed to a privacy
	// loss of +∞ (pessimistic estimate) or discarded (optimistic estimate).
	// 0 means DefaultMassTruncationBound. The larger the bound, the more
	// error it may introduce in divergence calculations.
	MassTruncationBound float64
}

func (opts *Options) withDefaults(label string) (Options, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.DiscretizationInterval == 0 {
		o.DiscretizationInterval = DefaultDiscretizationInterval
	}
	if o.MassTruncationBound == 0 {
		o.MassTruncationBound = DefaultMassTruncationBound
	}
	if o.EstimateType != PessimisticEstimate && o.EstimateType != OptimisticEstimate {
		return o, invalidArgumentf("%s: unknown estimate type %d", label, o.EstimateType)
	}
	if err := checks.CheckDiscretizationInterval(label, o.DiscretizationInterval); err != nil {
		return o, invalidArgumentf("%v", err)
	}
	if o.MassTruncationBound > 0 || math.IsNaN(o.MassTruncationBound) {
		return o, invalidArgumentf("%s: MassTruncationBound is %f, must be nonpositive", label, o.MassTruncationBound)
	}
	return o, nil
}

// PrivacyLossDistribution is the discretized distribution of the privacy loss
// of a mechanism, together with the probability mass of outcomes whose loss is
// +∞. It can be composed with other PLDs and queried for the (ε,δ) trade-off
// curve of the underlying (possibly composed) mechanism.
//
// A PLD is not safe for concurrent mutation: Compose and SelfCompose modify
// the receiver in place and must not run concurrently with any other
// operation on the same instance. Read-only queries may run in parallel.
type PrivacyLossDistribution struct {
	discretizationInterval float64
	infinityMass           float64
	pmf                    ProbabilityMassFunction
	estimateType           EstimateType
}

func newPrivacyLossDistribution(interval, infinityMass float64, pmf ProbabilityMassFunction, estimateType EstimateType) *PrivacyLossDistribution {
	return &PrivacyLossDistribution{
		discretizationInterval: interval,
		infinityMass:           infinityMass,
		pmf:                    pmf,
		estimateType:           estimateType,
	}
}

// DiscretizationInterval returns the grid spacing of the privacy loss values.
func (pld *PrivacyLossDistribution) DiscretizationInterval() float64 {
	return pld.discretizationInterval
}

// EstimateType returns the estimate type of the PLD.
func (pld *PrivacyLossDistribution) EstimateType() EstimateType {
	return pld.estimateType
}

// InfinityMass returns the probability mass of mu_upper over all the outcomes
// that can occur only in mu_upper but not in mu_lower, i.e. outcomes with a
// privacy loss of +∞.
func (pld *PrivacyLossDistribution) InfinityMass() float64 {
	return pld.infinityMass
}

// PMF returns the probability mass function over the finite discretized
// privacy loss values. The returned map must not be modified.
func (pld *PrivacyLossDistribution) PMF() ProbabilityMassFunction {
	return pld.pmf
}

// CreateIdentity creates the PLD of a mechanism that does not leak privacy at
// all: its output is independent of its input, so all mass sits at privacy
// loss 0.
func CreateIdentity(discretizationInterval float64) (*PrivacyLossDistribution, error) {
	if discretizationInterval == 0 {
		discretizationInterval = DefaultDiscretizationInterval
	}
	if err := checks.CheckDiscretizationInterval("CreateIdentity", discretizationInterval); err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	return newPrivacyLossDistribution(discretizationInterval, 0, ProbabilityMassFunction{0: 1}, PessimisticEstimate), nil
}

// CreateForPrivacyParameters creates the pessimistic PLD consistent with an
// externally stated (ε,δ) guarantee: point masses at +ε with probability
// (1-δ)/(1+e^-ε), at -ε with probability (1-δ)/(1+e^ε), and an infinity mass
// of δ. This is the worst-case PLD of any (ε,δ)-differentially private
// mechanism, so it can be used to import such guarantees into the composition
// machinery.
func CreateForPrivacyParameters(privacyParameters EpsilonDelta, discretizationInterval float64) (*PrivacyLossDistribution, error) {
	if err := privacyParameters.Validate(); err != nil {
		return nil, err
	}
	if discretizationInterval == 0 {
		discretizationInterval = DefaultDiscretizationInterval
	}
	if err := checks.CheckDiscretizationInterval("CreateForPrivacyParameters", discretizationInterval); err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	epsilon, delta := privacyParameters.Epsilon, privacyParameters.Delta
	pmf := ProbabilityMassFunction{}
	if delta < 1 {
		// The -ε mass sits at the negation of the rounded +ε grid point, so
		// the two point masses stay symmetric even off the grid.
		key := roundLoss(epsilon, discretizationInterval, true)
		pmf[key] += (1 - delta) / (1 + math.Exp(-epsilon))
		pmf[-key] += (1 - delta) / (1 + math.Exp(epsilon))
	}
	return newPrivacyLossDistribution(discretizationInterval, delta, pmf, PessimisticEstimate), nil
}

// CreateForAdditiveNoise creates the PLD of an additive noise mechanism by
// discretizing its privacy loss onto the grid. Tail masses are taken from the
// mechanism's PrivacyLossTail; in between, the outcomes are split at the
// inverse privacy loss of consecutive grid points (or walked one by one for
// discrete noise) and the mass of each piece is assigned to the grid point
// bounding its loss in the direction of the estimate type.
func CreateForAdditiveNoise(privacyLoss AdditiveNoisePrivacyLoss, opts *Options) (*PrivacyLossDistribution, error) {
	o, err := opts.withDefaults("CreateForAdditiveNoise")
	if err != nil {
		return nil, err
	}
	roundUp := o.EstimateType.roundsUp()
	interval := o.DiscretizationInterval

	tail := privacyLoss.PrivacyLossTail()
	pmf := ProbabilityMassFunction{}
	infinityMass := 0.0
	for loss, mass := range tail.ProbabilityMassFunction {
		if mass <= 0 {
			continue
		}
		if math.IsInf(loss, 1) {
			infinityMass += mass
			continue
		}
		pmf[roundLoss(loss, interval, roundUp)] += mass
	}

	if privacyLoss.DiscreteNoise() {
		for x := int64(math.Ceil(tail.LowerXTruncation)); x <= int64(math.Floor(tail.UpperXTruncation)); x++ {
			mass := privacyLoss.NoiseCDF(float64(x)) - privacyLoss.NoiseCDF(float64(x-1))
			if mass <= 0 {
				continue
			}
			pmf[roundLoss(privacyLoss.PrivacyLoss(float64(x)), interval, roundUp)] += mass
		}
	} else {
		// The privacy loss is non-increasing in the outcome, so walking the
		// outcomes upward corresponds to walking the grid points downward.
		lowerX := tail.LowerXTruncation
		roundedDown := int64(math.Floor(privacyLoss.PrivacyLoss(lowerX) / interval))
		for lowerX < tail.UpperXTruncation {
			upperX := math.Min(tail.UpperXTruncation, privacyLoss.InversePrivacyLoss(float64(roundedDown)*interval))
			// The privacy loss of outcomes in [lowerX, upperX] lies within
			// [roundedDown, roundedDown+1] grid units.
			mass := privacyLoss.NoiseCDF(upperX) - privacyLoss.NoiseCDF(lowerX)
			if mass > 0 {
				key := roundedDown
				if roundUp {
					key++
				}
				pmf[key] += mass
			}
			lowerX = upperX
			roundedDown--
		}
	}
	return newPrivacyLossDistribution(interval, infinityMass, pmf, o.EstimateType), nil
}

// CreateForLaplaceMechanism creates the PLD of the Laplace mechanism with the
// given scale parameter and sensitivity.
func CreateForLaplaceMechanism(parameter, sensitivity float64, opts *Options) (*PrivacyLossDistribution, error) {
	privacyLoss, err := NewLaplacePrivacyLoss(parameter, sensitivity)
	if err != nil {
		return nil, err
	}
	return CreateForAdditiveNoise(privacyLoss, opts)
}

// CreateForGaussianMechanism creates the PLD of the Gaussian mechanism with
// the given standard deviation and sensitivity.
func CreateForGaussianMechanism(standardDeviation, sensitivity float64, opts *Options) (*PrivacyLossDistribution, error) {
	o, err := opts.withDefaults("CreateForGaussianMechanism")
	if err != nil {
		return nil, err
	}
	privacyLoss, err := NewGaussianPrivacyLoss(standardDeviation, sensitivity, o.EstimateType, o.MassTruncationBound)
	if err != nil {
		return nil, err
	}
	return CreateForAdditiveNoise(privacyLoss, &o)
}

// CreateForDiscreteLaplaceMechanism creates the PLD of the discrete Laplace
// mechanism with the given parameter and integer sensitivity.
func CreateForDiscreteLaplaceMechanism(parameter float64, sensitivity int64, opts *Options) (*PrivacyLossDistribution, error) {
	privacyLoss, err := NewDiscreteLaplacePrivacyLoss(parameter, sensitivity)
	if err != nil {
		return nil, err
	}
	return CreateForAdditiveNoise(privacyLoss, opts)
}

// CreateForDiscreteGaussianMechanism creates the PLD of the discrete Gaussian
// mechanism with the given parameter σ and integer sensitivity. A nonpositive
// truncationBound selects the smallest symmetric noise support excluding at
// most 1e-30 mass.
func CreateForDiscreteGaussianMechanism(sigma float64, sensitivity, truncationBound int64, opts *Options) (*PrivacyLossDistribution, error) {
	privacyLoss, err := NewDiscreteGaussianPrivacyLoss(sigma, sensitivity, truncationBound)
	if err != nil {
		return nil, err
	}
	return CreateForAdditiveNoise(privacyLoss, opts)
}

// CreateForRandomizedResponse creates the PLD of the randomized response
// mechanism over numBuckets buckets: with probability 1-noiseParameter the
// input bucket is output unchanged, otherwise a bucket drawn uniformly at
// random from all numBuckets buckets is output.
//
// noiseParameter must lie in [0, 1) and numBuckets must be at least 2. A
// noiseParameter of 0 yields the degenerate noiseless mechanism whose entire
// mass is at privacy loss +∞.
func CreateForRandomizedResponse(noiseParameter float64, numBuckets int64, opts *Options) (*PrivacyLossDistribution, error) {
	if noiseParameter < 0 || noiseParameter >= 1 || math.IsNaN(noiseParameter) {
		return nil, invalidArgumentf("CreateForRandomizedResponse: NoiseParameter is %f, must be within [0, 1)", noiseParameter)
	}
	if numBuckets < 2 {
		return nil, invalidArgumentf("CreateForRandomizedResponse: NumBuckets is %d, must be at least 2", numBuckets)
	}
	o, err := opts.withDefaults("CreateForRandomizedResponse")
	if err != nil {
		return nil, err
	}

	pmf := ProbabilityMassFunction{}
	infinityMass := 0.0
	if noiseParameter == 0 {
		infinityMass = 1
	} else {
		roundUp := o.EstimateType.roundsUp()
		// Under mu_upper, the output equals the input bucket with probability
		// 1 - noiseParameter + noiseParameter/numBuckets; under mu_lower that
		// outcome occurs with probability noiseParameter/numBuckets, and vice
		// versa. All remaining buckets are equally likely under both.
		probOther := noiseParameter / float64(numBuckets)
		probStay := 1 - noiseParameter + probOther
		loss := math.Log(probStay / probOther)
		pmf[roundLoss(loss, o.DiscretizationInterval, roundUp)] += probStay
		pmf[roundLoss(-loss, o.DiscretizationInterval, roundUp)] += probOther
		if numBuckets > 2 {
			pmf[0] += float64(numBuckets-2) * probOther
		}
	}
	return newPrivacyLossDistribution(o.DiscretizationInterval, infinityMass, pmf, o.EstimateType), nil
}

// CreateFromProbabilityMassFunctions creates the PLD of two explicit discrete
// distributions given as maps from outcome to probability. For every outcome
// of pmfUpper the privacy loss ln(pmfUpper(o)/pmfLower(o)) is discretized and
// the outcome's upper mass accumulated at the resulting grid point. Outcomes
// absent from pmfLower have privacy loss +∞. Outcomes whose upper mass has a
// natural log below the mass truncation bound are attributed to +∞
// (pessimistic estimate) or discarded (optimistic estimate).
func CreateFromProbabilityMassFunctions(pmfLower, pmfUpper map[float64]float64, opts *Options) (*PrivacyLossDistribution, error) {
	o, err := opts.withDefaults("CreateFromProbabilityMassFunctions")
	if err != nil {
		return nil, err
	}
	if err := validateOutcomeProbabilities("pmfLower", pmfLower); err != nil {
		return nil, err
	}
	if err := validateOutcomeProbabilities("pmfUpper", pmfUpper); err != nil {
		return nil, err
	}

	roundUp := o.EstimateType.roundsUp()
	pmf := ProbabilityMassFunction{}
	infinityMass := 0.0
	truncatedMass := 0.0
	for outcome, upperMass := range pmfUpper {
		if upperMass == 0 {
			continue
		}
		lowerMass := pmfLower[outcome]
		if lowerMass == 0 {
			infinityMass += upperMass
			continue
		}
		if math.Log(upperMass) < o.MassTruncationBound {
			if o.EstimateType == PessimisticEstimate {
				infinityMass += upperMass
			} else {
				truncatedMass += upperMass
			}
			continue
		}
		pmf[roundLoss(math.Log(upperMass/lowerMass), o.DiscretizationInterval, roundUp)] += upperMass
	}
	if truncatedMass > 0 {
		log.Warningf("CreateFromProbabilityMassFunctions: discarding %e probability mass below the truncation bound; the optimistic divergence estimates will understate it", truncatedMass)
	}
	return newPrivacyLossDistribution(o.DiscretizationInterval, infinityMass, pmf, o.EstimateType), nil
}

func validateOutcomeProbabilities(label string, pmf map[float64]float64) error {
	total := 0.0
	for _, p := range pmf {
		if err := checks.CheckProbability(label, p); err != nil {
			return invalidArgumentf("%v", err)
		}
		total += p
	}
	if total > 1+massSumTolerance {
		return invalidArgumentf("%s: probabilities sum up to %f, must be at most 1", label, total)
	}
	return nil
}

// ValidateComposition returns an error if other cannot be composed with this
// PLD: the discretization intervals and the estimate types have to match.
func (pld *PrivacyLossDistribution) ValidateComposition(other *PrivacyLossDistribution) error {
	if pld.estimateType != other.estimateType {
		return failedPreconditionf("ValidateComposition: estimate types %v and %v do not match", pld.estimateType, other.estimateType)
	}
	if math.Abs(pld.discretizationInterval-other.discretizationInterval) > intervalMatchTolerance {
		return failedPreconditionf("ValidateComposition: discretization intervals %e and %e do not match", pld.discretizationInterval, other.discretizationInterval)
	}
	return nil
}

// Compose composes other into the receiver, so that the receiver afterwards
// represents the privacy loss of running both mechanisms on the same input.
// The finite masses are convolved, while the infinity masses combine by
// inclusion-exclusion since the sum of the losses is infinite as soon as
// either one is.
//
// tailMassTruncation bounds the probability mass that may afterwards be
// removed from the low end of the composed PMF; for pessimistic estimates the
// removed mass is folded into the infinity mass, for optimistic estimates it
// is dropped. other is only read, never modified.
func (pld *PrivacyLossDistribution) Compose(other *PrivacyLossDistribution, tailMassTruncation float64) error {
	if err := pld.ValidateComposition(other); err != nil {
		return err
	}
	if err := checks.CheckTailMassTruncation("Compose", tailMassTruncation); err != nil {
		return invalidArgumentf("%v", err)
	}

	infinityMass := pld.infinityMass + other.infinityMass - pld.infinityMass*other.infinityMass
	pmf := ProbabilityMassFunction{}
	if len(pld.pmf) > 0 && len(other.pmf) > 0 {
		selfMin, selfMax := pld.pmf.supportBounds()
		otherMin, otherMax := other.pmf.supportBounds()
		composed := convolve(pld.pmf.dense(selfMin, selfMax), other.pmf.dense(otherMin, otherMax))

		// Remove the smallest-loss entries whose cumulative mass stays within
		// the truncation budget.
		start := 0
		removed := 0.0
		for start < len(composed) && removed+composed[start] <= tailMassTruncation {
			removed += composed[start]
			start++
		}
		if pld.estimateType == PessimisticEstimate {
			infinityMass += removed
		}
		pmf = sparsePMF(composed[start:], selfMin+otherMin+int64(start))
	}

	pld.infinityMass = infinityMass
	pld.pmf = pmf
	return nil
}

// SelfCompose composes the PLD with itself numTimes-1 more times, so that it
// afterwards represents numTimes independent invocations of the mechanism.
// The composition uses binary exponentiation on the number of invocations,
// performing O(log(numTimes)) convolutions; the truncation budget is split
// evenly across them so that the total truncated mass stays within
// tailMassTruncation.
func (pld *PrivacyLossDistribution) SelfCompose(numTimes int, tailMassTruncation float64) error {
	if numTimes <= 0 {
		return invalidArgumentf("SelfCompose: NumTimes is %d, must be strictly positive", numTimes)
	}
	if err := checks.CheckTailMassTruncation("SelfCompose", tailMassTruncation); err != nil {
		return invalidArgumentf("%v", err)
	}
	if numTimes == 1 {
		return nil
	}

	compositions := bits.OnesCount(uint(numTimes)) + bits.Len(uint(numTimes)) - 1
	perComposition := tailMassTruncation / float64(compositions)

	result := newPrivacyLossDistribution(pld.discretizationInterval, 0, ProbabilityMassFunction{0: 1}, pld.estimateType)
	base := newPrivacyLossDistribution(pld.discretizationInterval, pld.infinityMass, pld.pmf.clone(), pld.estimateType)
	for n := numTimes; n > 0; n >>= 1 {
		if n&1 == 1 {
			if err := result.Compose(base, perComposition); err != nil {
				return err
			}
		}
		if n > 1 {
			if err := base.Compose(base, perComposition); err != nil {
				return err
			}
		}
	}

	pld.infinityMass = result.infinityMass
	pld.pmf = result.pmf
	return nil
}

// GetDeltaForEpsilon computes the ε-hockey stick divergence between mu_upper
// and mu_lower: the smallest δ for which the mechanism represented by this
// PLD is (ε,δ)-differentially private.
func (pld *PrivacyLossDistribution) GetDeltaForEpsilon(epsilon float64) float64 {
	divergence := pld.infinityMass
	for key, mass := range pld.pmf {
		loss := float64(key) * pld.discretizationInterval
		if loss > epsilon {
			// epsilon - loss < 0, so the exponential cannot overflow.
			divergence += mass * (1 - math.Exp(epsilon-loss))
		}
	}
	if divergence < 0 {
		return 0
	}
	if divergence > 1 {
		return 1
	}
	return divergence
}

// GetEpsilonForDelta computes the smallest nonnegative ε for which the hockey
// stick divergence is at most δ, or +∞ when the infinity mass alone already
// exceeds δ.
//
// GetDeltaForEpsilon is non-increasing and piecewise linear in e^ε between
// grid points, so the divergence is accumulated over the discretized losses in
// decreasing order until the bracketing interval is found and the crossing is
// solved in closed form.
func (pld *PrivacyLossDistribution) GetEpsilonForDelta(delta float64) float64 {
	if pld.infinityMass > delta {
		return math.Inf(1)
	}
	massUpper := pld.infinityMass
	massLower := 0.0
	keys := pld.pmf.sortedKeys()
	for i := len(keys) - 1; i >= 0; i-- {
		loss := float64(keys[i]) * pld.discretizationInterval
		if massUpper > delta && massLower > 0 && math.Log((massUpper-delta)/massLower) >= loss {
			// The target ε is at least this loss; the crossing lies in the
			// already accumulated interval.
			break
		}
		mass := pld.pmf[keys[i]]
		massUpper += mass
		massLower += math.Exp(-loss) * mass
		if massUpper >= delta && massLower == 0 {
			// Only occurs when the loss is so large that e^-loss underflows;
			// no finite ε below it can satisfy δ.
			return math.Max(0, loss)
		}
	}
	if massUpper <= massLower+delta {
		return 0
	}
	return math.Log((massUpper - delta) / massLower)
}

// GetDeltaForEpsilonForComposedPLD computes GetDeltaForEpsilon(epsilon) of
// the composition of this PLD and other without modifying either operand and
// without materializing the composed PMF. The result equals composing the two
// PLDs with no tail truncation and then querying the composition.
func (pld *PrivacyLossDistribution) GetDeltaForEpsilonForComposedPLD(other *PrivacyLossDistribution, epsilon float64) (float64, error) {
	if err := pld.ValidateComposition(other); err != nil {
		return 0, err
	}
	interval := pld.discretizationInterval

	// Suffix sums over other's masses and their e^-loss weights, so that for
	// any threshold t,
	//   sum_{b >= t} mass_b * (1 - e^(ε - (a+b)Δ))
	//     = suffixMass(t) - e^(ε - aΔ) * suffixExp(t).
	otherKeys := other.pmf.sortedKeys()
	n := len(otherKeys)
	suffixMass := make([]float64, n+1)
	suffixExp := make([]float64, n+1)
	for i := n - 1; i >= 0; i-- {
		mass := other.pmf[otherKeys[i]]
		suffixMass[i] = suffixMass[i+1] + mass
		suffixExp[i] = suffixExp[i+1] + mass*math.Exp(-float64(otherKeys[i])*interval)
	}

	// Mass pairs where either side is infinite always contribute fully.
	divergence := pld.infinityMass + other.infinityMass - pld.infinityMass*other.infinityMass
	for key, mass := range pld.pmf {
		idx := sort.Search(n, func(i int) bool {
			return float64(key+otherKeys[i])*interval > epsilon
		})
		if idx == n {
			continue
		}
		contribution := suffixMass[idx] - math.Exp(epsilon-float64(key)*interval)*suffixExp[idx]
		if contribution > 0 {
			divergence += mass * contribution
		}
	}
	if divergence < 0 {
		divergence = 0
	}
	if divergence > 1 {
		divergence = 1
	}
	return divergence, nil
}
