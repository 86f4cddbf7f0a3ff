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

	"github.com/openprivacy/accounting/checks"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// PrivacyLossTail describes the tail behavior of an additive noise mechanism's
// privacy loss. Outside of [LowerXTruncation, UpperXTruncation] the privacy
// loss is either constant or negligible, so the mass there is captured
// directly by ProbabilityMassFunction, a map from privacy loss value to the
// probability mass incurring that loss. A key of +∞ holds the mass of
// outcomes that are impossible under the lower distribution.
type PrivacyLossTail struct {
	LowerXTruncation        float64
	UpperXTruncation        float64
	ProbabilityMassFunction map[float64]float64
}

// AdditiveNoisePrivacyLoss is the privacy loss of a mechanism that adds noise
// with a fixed distribution to the result of a function with given
// sensitivity. By convention the upper distribution mu_upper is the noise
// distribution centered at 0 and the lower distribution mu_lower is the noise
// distribution centered at the sensitivity; the privacy loss at an outcome x
// is ln(mu_upper(x) / mu_lower(x)).
//
// The supported mechanism families form a closed set; each is constructed via
// its New* function and consumed by CreateForAdditiveNoise.
type AdditiveNoisePrivacyLoss interface {
	// PrivacyLoss returns the privacy loss at the outcome x. For all
	// supported mechanisms it is non-increasing in x.
	PrivacyLoss(x float64) float64

	// InversePrivacyLoss returns the largest outcome x for which the privacy
	// loss at x is at least the given value, -∞ when no such outcome exists
	// and +∞ when all outcomes qualify.
	InversePrivacyLoss(privacyLoss float64) float64

	// NoiseCDF returns the cumulative density function of the noise
	// distribution at x. For discrete noise it is evaluated at floor(x).
	NoiseCDF(x float64) float64

	// PrivacyLossTail returns the truncation range of the outcomes and the
	// probability masses beyond it.
	PrivacyLossTail() PrivacyLossTail

	// DiscreteNoise reports whether the noise is supported on the integers.
	DiscreteNoise() bool
}

// LaplacePrivacyLoss is the privacy loss of the Laplace mechanism, which adds
// noise drawn from the Laplace distribution with the given scale parameter.
type LaplacePrivacyLoss struct {
	parameter   float64
	sensitivity float64
	dist        distuv.Laplace
}

// NewLaplacePrivacyLoss returns the privacy loss of the Laplace mechanism
// with the given scale parameter and sensitivity.
func NewLaplacePrivacyLoss(parameter, sensitivity float64) (*LaplacePrivacyLoss, error) {
	if err := checks.CheckNoiseParameter("NewLaplacePrivacyLoss", parameter); err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	if err := checks.CheckSensitivity("NewLaplacePrivacyLoss", sensitivity); err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	return &LaplacePrivacyLoss{
		parameter:   parameter,
		sensitivity: sensitivity,
		dist:        distuv.Laplace{Mu: 0, Scale: parameter},
	}, nil
}

// PrivacyLoss returns (|x - sensitivity| - |x|) / parameter, which lies in
// [-sensitivity/parameter, sensitivity/parameter].
func (l *LaplacePrivacyLoss) PrivacyLoss(x float64) float64 {
	return (math.Abs(x-l.sensitivity) - math.Abs(x)) / l.parameter
}

// InversePrivacyLoss returns the largest x whose privacy loss is at least
// privacyLoss.
func (l *LaplacePrivacyLoss) InversePrivacyLoss(privacyLoss float64) float64 {
	maxLoss := l.sensitivity / l.parameter
	if privacyLoss > maxLoss {
		return math.Inf(-1)
	}
	if privacyLoss <= -maxLoss {
		return math.Inf(1)
	}
	return 0.5 * (l.sensitivity - privacyLoss*l.parameter)
}

// NoiseCDF returns the CDF of the Laplace distribution with mean 0 at x.
func (l *LaplacePrivacyLoss) NoiseCDF(x float64) float64 {
	return l.dist.CDF(x)
}

// PrivacyLossTail returns the tail of the Laplace privacy loss: the loss is
// constant at ±sensitivity/parameter for outcomes below 0 and above the
// sensitivity respectively.
func (l *LaplacePrivacyLoss) PrivacyLossTail() PrivacyLossTail {
	maxLoss := l.sensitivity / l.parameter
	return PrivacyLossTail{
		LowerXTruncation: 0,
		UpperXTruncation: l.sensitivity,
		ProbabilityMassFunction: map[float64]float64{
			maxLoss:  l.NoiseCDF(0),
			-maxLoss: 1 - l.NoiseCDF(l.sensitivity),
		},
	}
}

// DiscreteNoise reports that Laplace noise is continuous.
func (l *LaplacePrivacyLoss) DiscreteNoise() bool { return false }

// GaussianPrivacyLoss is the privacy loss of the Gaussian mechanism, which
// adds noise drawn from the Gaussian distribution with the given standard
// deviation.
type GaussianPrivacyLoss struct {
	standardDeviation      float64
	sensitivity            float64
	estimateType           EstimateType
	logMassTruncationBound float64
	dist                   distuv.Normal
}

// NewGaussianPrivacyLoss returns the privacy loss of the Gaussian mechanism
// with the given standard deviation and sensitivity.
//
// Since the privacy loss of Gaussian noise is unbounded, the noise
// distribution has to be truncated: the probability mass with natural log
// below logMassTruncationBound is split evenly between the two tails and,
// for a pessimistic estimate, attributed to a privacy loss of +∞ (lower
// tail) and to the largest remaining loss (upper tail); for an optimistic
// estimate it is discarded.
func NewGaussianPrivacyLoss(standardDeviation, sensitivity float64, estimateType EstimateType, logMassTruncationBound float64) (*GaussianPrivacyLoss, error) {
	if err := checks.CheckStandardDeviation("NewGaussianPrivacyLoss", standardDeviation); err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	if err := checks.CheckSensitivity("NewGaussianPrivacyLoss", sensitivity); err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	if logMassTruncationBound > 0 {
		return nil, invalidArgumentf("NewGaussianPrivacyLoss: LogMassTruncationBound is %f, must be nonpositive", logMassTruncationBound)
	}
	return &GaussianPrivacyLoss{
		standardDeviation:      standardDeviation,
		sensitivity:            sensitivity,
		estimateType:           estimateType,
		logMassTruncationBound: logMassTruncationBound,
		dist:                   distuv.Normal{Mu: 0, Sigma: standardDeviation},
	}, nil
}

// PrivacyLoss returns sensitivity * (sensitivity - 2x) / (2σ²).
func (g *GaussianPrivacyLoss) PrivacyLoss(x float64) float64 {
	variance := g.standardDeviation * g.standardDeviation
	return g.sensitivity * (g.sensitivity - 2*x) / (2 * variance)
}

// InversePrivacyLoss returns the largest x whose privacy loss is at least
// privacyLoss.
func (g *GaussianPrivacyLoss) InversePrivacyLoss(privacyLoss float64) float64 {
	variance := g.standardDeviation * g.standardDeviation
	return 0.5*g.sensitivity - privacyLoss*variance/g.sensitivity
}

// NoiseCDF returns the CDF of the Gaussian distribution with mean 0 at x.
func (g *GaussianPrivacyLoss) NoiseCDF(x float64) float64 {
	return g.dist.CDF(x)
}

// PrivacyLossTail returns the truncated tails of the Gaussian privacy loss.
func (g *GaussianPrivacyLoss) PrivacyLossTail() PrivacyLossTail {
	tailMass := 0.5 * math.Exp(g.logMassTruncationBound)
	lower := g.dist.Quantile(tailMass)
	upper := -lower
	tailPMF := map[float64]float64{}
	if g.estimateType == PessimisticEstimate {
		// The lower tail of outcomes has privacy loss above
		// PrivacyLoss(lower); overstating it as +∞ keeps the estimate valid.
		tailPMF[math.Inf(1)] = tailMass
		tailPMF[g.PrivacyLoss(upper)] = tailMass
	}
	return PrivacyLossTail{
		LowerXTruncation:        lower,
		UpperXTruncation:        upper,
		ProbabilityMassFunction: tailPMF,
	}
}

// DiscreteNoise reports that Gaussian noise is continuous.
func (g *GaussianPrivacyLoss) DiscreteNoise() bool { return false }

// DiscreteLaplacePrivacyLoss is the privacy loss of the discrete Laplace
// mechanism, which adds noise drawn from the distribution on the integers
// with probability mass proportional to exp(-parameter * |x|).
type DiscreteLaplacePrivacyLoss struct {
	parameter   float64
	sensitivity int64
}

// NewDiscreteLaplacePrivacyLoss returns the privacy loss of the discrete
// Laplace mechanism with the given parameter and integer sensitivity.
func NewDiscreteLaplacePrivacyLoss(parameter float64, sensitivity int64) (*DiscreteLaplacePrivacyLoss, error) {
	if err := checks.CheckNoiseParameter("NewDiscreteLaplacePrivacyLoss", parameter); err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	if sensitivity <= 0 {
		return nil, invalidArgumentf("NewDiscreteLaplacePrivacyLoss: Sensitivity is %d, must be strictly positive", sensitivity)
	}
	return &DiscreteLaplacePrivacyLoss{
		parameter:   parameter,
		sensitivity: sensitivity,
	}, nil
}

// PrivacyLoss returns parameter * (|x - sensitivity| - |x|) for an integer
// outcome x.
func (d *DiscreteLaplacePrivacyLoss) PrivacyLoss(x float64) float64 {
	s := float64(d.sensitivity)
	return d.parameter * (math.Abs(x-s) - math.Abs(x))
}

// InversePrivacyLoss returns the largest x whose privacy loss is at least
// privacyLoss.
func (d *DiscreteLaplacePrivacyLoss) InversePrivacyLoss(privacyLoss float64) float64 {
	s := float64(d.sensitivity)
	maxLoss := d.parameter * s
	if privacyLoss > maxLoss {
		return math.Inf(-1)
	}
	if privacyLoss <= -maxLoss {
		return math.Inf(1)
	}
	return 0.5 * (s - privacyLoss/d.parameter)
}

// NoiseCDF returns the CDF of the discrete Laplace distribution at floor(x).
func (d *DiscreteLaplacePrivacyLoss) NoiseCDF(x float64) float64 {
	k := math.Floor(x)
	if k < 0 {
		return math.Exp(d.parameter*k) / (1 + math.Exp(-d.parameter))
	}
	return 1 - math.Exp(-d.parameter*(k+1))/(1+math.Exp(-d.parameter))
}

// PrivacyLossTail returns the tail of the discrete Laplace privacy loss: the
// loss is constant at ±parameter*sensitivity for outcomes at most 0 and at
// least the sensitivity respectively.
func (d *DiscreteLaplacePrivacyLoss) PrivacyLossTail() PrivacyLossTail {
	s := float64(d.sensitivity)
	maxLoss := d.parameter * s
	return PrivacyLossTail{
		LowerXTruncation: 1,
		UpperXTruncation: s - 1,
		ProbabilityMassFunction: map[float64]float64{
			maxLoss:  d.NoiseCDF(0),
			-maxLoss: 1 - d.NoiseCDF(s-1),
		},
	}
}

// DiscreteNoise reports that discrete Laplace noise is discrete.
func (d *DiscreteLaplacePrivacyLoss) DiscreteNoise() bool { return true }

// defaultTruncationBoundMultiplier is chosen so that the mass of a discrete
// Gaussian outside of [-11.6σ, 11.6σ] is at most e^(-11.6²/2) ≈ 2.6e-30.
const defaultTruncationBoundMultiplier = 11.6

// DiscreteGaussianPrivacyLoss is the privacy loss of the discrete Gaussian
// mechanism, which adds noise drawn from the distribution on the integers in
// [-truncationBound, truncationBound] with probability mass proportional to
// exp(-x² / (2σ²)). Note that σ is not equal to the standard deviation of the
// noise.
type DiscreteGaussianPrivacyLoss struct {
	sigma           float64
	sensitivity     int64
	truncationBound int64
	// cumulativeMass[i] is the probability of an outcome of at most
	// i - truncationBound.
	cumulativeMass []float64
}

// NewDiscreteGaussianPrivacyLoss returns the privacy loss of the discrete
// Gaussian mechanism with the given parameter σ and integer sensitivity.
//
// truncationBound limits the support of the noise to integers within
// [-truncationBound, truncationBound]. When it is not positive, the smallest
// symmetric bound keeping the excluded mass at most 1e-30 is used.
func NewDiscreteGaussianPrivacyLoss(sigma float64, sensitivity, truncationBound int64) (*DiscreteGaussianPrivacyLoss, error) {
	if err := checks.CheckStandardDeviation("NewDiscreteGaussianPrivacyLoss", sigma); err != nil {
		return nil, invalidArgumentf("%v", err)
	}
	if sensitivity <= 0 {
		return nil, invalidArgumentf("NewDiscreteGaussianPrivacyLoss: Sensitivity is %d, must be strictly positive", sensitivity)
	}
	if truncationBound <= 0 {
		truncationBound = int64(math.Ceil(defaultTruncationBoundMultiplier * sigma))
	}

	masses := make([]float64, 2*truncationBound+1)
	for i := range masses {
		x := float64(int64(i) - truncationBound)
		masses[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	total := floats.Sum(masses)
	cumulative := make([]float64, len(masses))
	sum := 0.0
	for i, mass := range masses {
		sum += mass / total
		cumulative[i] = sum
	}

	return &DiscreteGaussianPrivacyLoss{
		sigma:           sigma,
		sensitivity:     sensitivity,
		truncationBound: truncationBound,
		cumulativeMass:  cumulative,
	}, nil
}

// TruncationBound returns the symmetric support bound of the noise.
func (d *DiscreteGaussianPrivacyLoss) TruncationBound() int64 {
	return d.truncationBound
}

// PrivacyLoss returns sensitivity * (sensitivity - 2x) / (2σ²) for an integer
// outcome x in the support of the upper distribution, and +∞ when x is
// impossible under the lower distribution.
func (d *DiscreteGaussianPrivacyLoss) PrivacyLoss(x float64) float64 {
	s := float64(d.sensitivity)
	if x < s-float64(d.truncationBound) {
		return math.Inf(1)
	}
	return s * (s - 2*x) / (2 * d.sigma * d.sigma)
}

// InversePrivacyLoss returns the largest x whose finite privacy loss is at
// least privacyLoss.
func (d *DiscreteGaussianPrivacyLoss) InversePrivacyLoss(privacyLoss float64) float64 {
	s := float64(d.sensitivity)
	return 0.5*s - privacyLoss*d.sigma*d.sigma/s
}

// NoiseCDF returns the CDF of the truncated discrete Gaussian distribution at
// floor(x).
func (d *DiscreteGaussianPrivacyLoss) NoiseCDF(x float64) float64 {
	k := math.Floor(x)
	if k < -float64(d.truncationBound) {
		return 0
	}
	if k >= float64(d.truncationBound) {
		return 1
	}
	return d.cumulativeMass[int64(k)+d.truncationBound]
}

// PrivacyLossTail returns the tail of the discrete Gaussian privacy loss:
// outcomes below sensitivity-truncationBound are impossible under the lower
// distribution and incur a privacy loss of +∞.
func (d *DiscreteGaussianPrivacyLoss) PrivacyLossTail() PrivacyLossTail {
	lower := float64(d.sensitivity - d.truncationBound)
	return PrivacyLossTail{
		LowerXTruncation: lower,
		UpperXTruncation: float64(d.truncationBound),
		ProbabilityMassFunction: map[float64]float64{
			math.Inf(1): d.NoiseCDF(lower - 1),
		},
	}
}

// DiscreteNoise reports that discrete Gaussian noise is discrete.
func (d *DiscreteGaussianPrivacyLoss) DiscreteNoise() bool { return true }
