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

import "math"

// PLDAccountant tracks the cumulative privacy loss of a sequence of DpEvents
// by maintaining the privacy loss distribution of everything composed so far.
// All mechanism events are accounted at unit sensitivity, so their noise
// multipliers are the noise scale divided by the sensitivity.
//
// An accountant with no composed events reports an epsilon of 0 for every
// delta. Once a NonPrivateEvent has been composed, it reports an infinite
// epsilon and a delta of 1 forever.
type PLDAccountant struct {
	opts       Options
	pld        *PrivacyLossDistribution
	nonPrivate bool
}

// NewPLDAccountant creates an accountant with no composed events. opts may be
// nil, in which case the defaults of Options apply.
func NewPLDAccountant(opts *Options) (*PLDAccountant, error) {
	o, err := opts.withDefaults("NewPLDAccountant")
	if err != nil {
		return nil, err
	}
	return &PLDAccountant{
		opts: o,
		pld:  newPrivacyLossDistribution(o.DiscretizationInterval, 0, ProbabilityMassFunction{0: 1}, o.EstimateType),
	}, nil
}

// Supports reports whether the accountant can account for event, including
// every event nested inside composed events. Composing an unsupported event
// fails without changing the accountant.
func (a *PLDAccountant) Supports(event DpEvent) bool {
	switch e := event.(type) {
	case NoOpEvent, NonPrivateEvent, GaussianEvent, LaplaceEvent, RandomizedResponseEvent:
		return true
	case SelfComposedEvent:
		return a.Supports(e.Event)
	case ComposedEvent:
		for _, sub := range e.Events {
			if !a.Supports(sub) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compose accounts for count occurrences of event. The event is validated and
// its PLD fully built before the accountant is touched, so a failed
// composition leaves the accountant unchanged.
func (a *PLDAccountant) Compose(event DpEvent, count int) error {
	if count <= 0 {
		return invalidArgumentf("Compose: Count is %d, must be strictly positive", count)
	}
	pld, err := a.eventPLD(event)
	if err != nil {
		return err
	}
	if count > 1 {
		if err := pld.SelfCompose(count, DefaultTailMassTruncation); err != nil {
			return err
		}
	}
	if err := a.pld.Compose(pld, DefaultTailMassTruncation); err != nil {
		return err
	}
	if containsNonPrivate(event) {
		a.nonPrivate = true
	}
	return nil
}

// GetEpsilonForDelta returns the smallest epsilon for which all the composed
// events together are (ε,δ)-differentially private.
func (a *PLDAccountant) GetEpsilonForDelta(delta float64) float64 {
	if a.nonPrivate {
		return math.Inf(1)
	}
	return a.pld.GetEpsilonForDelta(delta)
}

// GetDeltaForEpsilon returns the smallest delta for which all the composed
// events together are (ε,δ)-differentially private.
func (a *PLDAccountant) GetDeltaForEpsilon(epsilon float64) float64 {
	if a.nonPrivate {
		return 1
	}
	return a.pld.GetDeltaForEpsilon(epsilon)
}

// eventPLD builds the PLD of a single event, recursing into composed events.
func (a *PLDAccountant) eventPLD(event DpEvent) (*PrivacyLossDistribution, error) {
	interval := a.opts.DiscretizationInterval
	estimateType := a.opts.EstimateType
	switch e := event.(type) {
	case NoOpEvent:
		return newPrivacyLossDistribution(interval, 0, ProbabilityMassFunction{0: 1}, estimateType), nil
	case NonPrivateEvent:
		return newPrivacyLossDistribution(interval, 1, ProbabilityMassFunction{}, estimateType), nil
	case GaussianEvent:
		return CreateForGaussianMechanism(e.NoiseMultiplier, 1, &a.opts)
	case LaplaceEvent:
		return CreateForLaplaceMechanism(e.NoiseMultiplier, 1, &a.opts)
	case RandomizedResponseEvent:
		return CreateForRandomizedResponse(e.NoiseParameter, e.NumBuckets, &a.opts)
	case SelfComposedEvent:
		if e.Count <= 0 {
			return nil, invalidArgumentf("eventPLD: Count of SelfComposedEvent is %d, must be strictly positive", e.Count)
		}
		pld, err := a.eventPLD(e.Event)
		if err != nil {
			return nil, err
		}
		if err := pld.SelfCompose(e.Count, DefaultTailMassTruncation); err != nil {
			return nil, err
		}
		return pld, nil
	case ComposedEvent:
		result := newPrivacyLossDistribution(interval, 0, ProbabilityMassFunction{0: 1}, estimateType)
		for _, sub := range e.Events {
			pld, err := a.eventPLD(sub)
			if err != nil {
				return nil, err
			}
			if err := result.Compose(pld, DefaultTailMassTruncation); err != nil {
				return nil, err
			}
		}
		return result, nil
	default:
		return nil, unsupportedEventf("eventPLD: event %T cannot be accounted for", event)
	}
}

func containsNonPrivate(event DpEvent) bool {
	switch e := event.(type) {
	case NonPrivateEvent:
		return true
	case SelfComposedEvent:
		return containsNonPrivate(e.Event)
	case ComposedEvent:
		for _, sub := range e.Events {
			if containsNonPrivate(sub) {
				return true
			}
		}
	}
	return false
}
