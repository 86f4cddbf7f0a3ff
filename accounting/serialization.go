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

	log "github.com/golang/glog"
	"github.com/openprivacy/accounting/checks"
)

// SerializedPMFEntry is the probability mass at one finite discretized
// privacy loss value.
type SerializedPMFEntry struct {
	LossValueKey    int64   `json:"loss_value_key"`
	ProbabilityMass float64 `json:"probability_mass"`
}

// SerializedPLD is the logical serialization record of a privacy loss
// distribution. Entries with zero probability mass are never emitted.
type SerializedPLD struct {
	DiscretizationInterval float64              `json:"discretization_interval"`
	InfinityMass           float64              `json:"infinity_mass"`
	EstimateType           string               `json:"estimate_type"`
	PMF                    []SerializedPMFEntry `json:"pmf"`
}

// Serialize converts the PLD into its serialization record. Only pessimistic
// PLDs can be serialized; serializing an optimistic PLD fails with an
// ErrUnimplemented kind, a documented limitation of the current record
// format.
func (pld *PrivacyLossDistribution) Serialize() (*SerializedPLD, error) {
	if pld.estimateType != PessimisticEstimate {
		return nil, unimplementedf("Serialize: only pessimistic privacy loss distributions can be serialized")
	}
	entries := make([]SerializedPMFEntry, 0, len(pld.pmf))
	for _, key := range pld.pmf.sortedKeys() {
		if mass := pld.pmf[key]; mass > 0 {
			entries = append(entries, SerializedPMFEntry{LossValueKey: key, ProbabilityMass: mass})
		}
	}
	return &SerializedPLD{
		DiscretizationInterval: pld.discretizationInterval,
		InfinityMass:           pld.infinityMass,
		EstimateType:           pld.estimateType.String(),
		PMF:                    entries,
	}, nil
}

// Deserialize reconstructs a PLD from its serialization record. The
// reconstructed PLD answers every divergence query identically to the PLD
// that was serialized. Records with missing or inconsistent fields fail with
// an ErrMalformedRecord kind.
func Deserialize(serialized *SerializedPLD) (*PrivacyLossDistribution, error) {
	if serialized == nil {
		return nil, malformedRecordf("Deserialize: record is nil")
	}
	if err := checks.CheckDiscretizationInterval("Deserialize", serialized.DiscretizationInterval); err != nil {
		return nil, malformedRecordf("%v", err)
	}
	var estimateType EstimateType
	switch serialized.EstimateType {
	case PessimisticEstimate.String():
		estimateType = PessimisticEstimate
	case OptimisticEstimate.String():
		estimateType = OptimisticEstimate
	default:
		return nil, malformedRecordf("Deserialize: unknown estimate type %q", serialized.EstimateType)
	}
	if serialized.InfinityMass < 0 || math.IsInf(serialized.InfinityMass, 0) || math.IsNaN(serialized.InfinityMass) {
		return nil, malformedRecordf("Deserialize: InfinityMass is %e, must be nonnegative and finite", serialized.InfinityMass)
	}

	pmf := make(ProbabilityMassFunction, len(serialized.PMF))
	for _, entry := range serialized.PMF {
		if entry.ProbabilityMass < 0 || math.IsInf(entry.ProbabilityMass, 0) || math.IsNaN(entry.ProbabilityMass) {
			return nil, malformedRecordf("Deserialize: probability mass at key %d is %e, must be nonnegative and finite", entry.LossValueKey, entry.ProbabilityMass)
		}
		if _, ok := pmf[entry.LossValueKey]; ok {
			return nil, malformedRecordf("Deserialize: duplicate loss value key %d", entry.LossValueKey)
		}
		if entry.ProbabilityMass == 0 {
			log.Warningf("Deserialize: ignoring zero probability mass at key %d; zero masses are never emitted by Serialize", entry.LossValueKey)
			continue
		}
		pmf[entry.LossValueKey] = entry.ProbabilityMass
	}
	if total := pmf.TotalMass() + serialized.InfinityMass; total > 1+massSumTolerance {
		return nil, malformedRecordf("Deserialize: probability masses sum up to %f, must be at most 1", total)
	}

	return newPrivacyLossDistribution(serialized.DiscretizationInterval, serialized.InfinityMass, pmf, estimateType), nil
}
