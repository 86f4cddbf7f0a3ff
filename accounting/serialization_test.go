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
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		desc   string
		create func() (*PrivacyLossDistribution, error)
	}{
		{"identity", func() (*PrivacyLossDistribution, error) {
			return CreateIdentity(1e-4)
		}},
		{"privacy parameters", func() (*PrivacyLossDistribution, error) {
			return CreateForPrivacyParameters(EpsilonDelta{Epsilon: 1, Delta: 0.01}, 1e-4)
		}},
		{"laplace", func() (*PrivacyLossDistribution, error) {
			return CreateForLaplaceMechanism(1, 1, &Options{DiscretizationInterval: 1e-2})
		}},
		{"gaussian", func() (*PrivacyLossDistribution, error) {
			return CreateForGaussianMechanism(1, 1, &Options{DiscretizationInterval: 1e-2})
		}},
		{"composed randomized response", func() (*PrivacyLossDistribution, error) {
			pld, err := CreateForRandomizedResponse(0.5, 2, &Options{DiscretizationInterval: 1e-2})
			if err != nil {
				return nil, err
			}
			if err := pld.SelfCompose(3, 1e-15); err != nil {
				return nil, err
			}
			return pld, nil
		}},
	} {
		pld, err := tc.create()
		if err != nil {
			t.Fatalf("when %s got err %v", tc.desc, err)
		}
		serialized, err := pld.Serialize()
		if err != nil {
			t.Fatalf("Serialize: when %s got err %v", tc.desc, err)
		}
		restored, err := Deserialize(serialized)
		if err != nil {
			t.Fatalf("Deserialize: when %s got err %v", tc.desc, err)
		}

		if got, want := restored.DiscretizationInterval(), pld.DiscretizationInterval(); got != want {
			t.Errorf("when %s DiscretizationInterval() = %e, want %e", tc.desc, got, want)
		}
		if got, want := restored.EstimateType(), pld.EstimateType(); got != want {
			t.Errorf("when %s EstimateType() = %v, want %v", tc.desc, got, want)
		}
		if got, want := restored.InfinityMass(), pld.InfinityMass(); got != want {
			t.Errorf("when %s InfinityMass() = %e, want %e", tc.desc, got, want)
		}
		if diff := cmp.Diff(pld.PMF(), restored.PMF()); diff != "" {
			t.Errorf("when %s PMF() diverges after round trip (-want +got):\n%s", tc.desc, diff)
		}
		// The masses survive the round trip exactly, but summation order over
		// the rebuilt map may differ, so the queries are compared up to
		// accumulation round-off.
		for _, epsilon := range queryEpsilons {
			if got, want := restored.GetDeltaForEpsilon(epsilon), pld.GetDeltaForEpsilon(epsilon); !nearEqual(got, want, 1e-14) {
				t.Errorf("when %s GetDeltaForEpsilon(%f) = %e after round trip, want %e", tc.desc, epsilon, got, want)
			}
		}
	}
}

func TestSerializeRecordFields(t *testing.T) {
	pld, err := CreateForPrivacyParameters(EpsilonDelta{Epsilon: 1, Delta: 0.01}, 1e-4)
	if err != nil {
		t.Fatalf("CreateForPrivacyParameters: got err %v", err)
	}
	serialized, err := pld.Serialize()
	if err != nil {
		t.Fatalf("Serialize: got err %v", err)
	}
	if got, want := serialized.EstimateType, "PESSIMISTIC"; got != want {
		t.Errorf("EstimateType = %q, want %q", got, want)
	}
	if got, want := serialized.InfinityMass, 0.01; !approxEqual(got, want) {
		t.Errorf("InfinityMass = %f, want %f", got, want)
	}
	if got, want := len(serialized.PMF), 2; got != want {
		t.Fatalf("len(PMF) = %d, want %d", got, want)
	}
	for i, entry := range serialized.PMF {
		if entry.ProbabilityMass <= 0 {
			t.Errorf("PMF[%d].ProbabilityMass = %e, want strictly positive", i, entry.ProbabilityMass)
		}
		if i > 0 && entry.LossValueKey <= serialized.PMF[i-1].LossValueKey {
			t.Errorf("PMF keys not strictly increasing: PMF[%d].LossValueKey = %d after %d", i, entry.LossValueKey, serialized.PMF[i-1].LossValueKey)
		}
	}
}

func TestSerializeOptimisticUnsupported(t *testing.T) {
	pld, err := CreateForLaplaceMechanism(1, 1, &Options{EstimateType: OptimisticEstimate, DiscretizationInterval: 1e-2})
	if err != nil {
		t.Fatalf("CreateForLaplaceMechanism: got err %v", err)
	}
	if _, err := pld.Serialize(); !errors.Is(err, ErrUnimplemented) {
		t.Errorf("Serialize of optimistic PLD err = %v, want ErrUnimplemented kind", err)
	}
}

func TestDeserializeMalformedRecords(t *testing.T) {
	valid := func() *SerializedPLD {
		return &SerializedPLD{
			DiscretizationInterval: 1e-4,
			InfinityMass:           0.1,
			EstimateType:           "PESSIMISTIC",
			PMF: []SerializedPMFEntry{
				{LossValueKey: -10000, ProbabilityMass: 0.4},
				{LossValueKey: 10000, ProbabilityMass: 0.5},
			},
		}
	}
	for _, tc := range []struct {
		desc   string
		mutate func(s *SerializedPLD) *SerializedPLD
	}{
		{"nil record", func(s *SerializedPLD) *SerializedPLD { return nil }},
		{"zero discretization interval", func(s *SerializedPLD) *SerializedPLD {
			s.DiscretizationInterval = 0
			return s
		}},
		{"negative discretization interval", func(s *SerializedPLD) *SerializedPLD {
			s.DiscretizationInterval = -1e-4
			return s
		}},
		{"unknown estimate type", func(s *SerializedPLD) *SerializedPLD {
			s.EstimateType = "EXACT"
			return s
		}},
		{"negative infinity mass", func(s *SerializedPLD) *SerializedPLD {
			s.InfinityMass = -0.1
			return s
		}},
		{"NaN infinity mass", func(s *SerializedPLD) *SerializedPLD {
			s.InfinityMass = math.NaN()
			return s
		}},
		{"negative probability mass", func(s *SerializedPLD) *SerializedPLD {
			s.PMF[0].ProbabilityMass = -0.4
			return s
		}},
		{"infinite probability mass", func(s *SerializedPLD) *SerializedPLD {
			s.PMF[0].ProbabilityMass = math.Inf(1)
			return s
		}},
		{"duplicate loss value key", func(s *SerializedPLD) *SerializedPLD {
			s.PMF[1].LossValueKey = s.PMF[0].LossValueKey
			return s
		}},
		{"masses summing above 1", func(s *SerializedPLD) *SerializedPLD {
			s.PMF[1].ProbabilityMass = 0.9
			return s
		}},
	} {
		_, err := Deserialize(tc.mutate(valid()))
		if !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("Deserialize: when %s err = %v, want ErrMalformedRecord kind", tc.desc, err)
		}
	}
	if _, err := Deserialize(valid()); err != nil {
		t.Errorf("Deserialize of valid record err = %v, want nil", err)
	}
}

func TestDeserializeSkipsZeroMassEntries(t *testing.T) {
	restored, err := Deserialize(&SerializedPLD{
		DiscretizationInterval: 1e-4,
		EstimateType:           "PESSIMISTIC",
		PMF: []SerializedPMFEntry{
			{LossValueKey: 0, ProbabilityMass: 0},
			{LossValueKey: 10000, ProbabilityMass: 1},
		},
	})
	if err != nil {
		t.Fatalf("Deserialize: got err %v", err)
	}
	if _, ok := restored.PMF()[0]; ok {
		t.Errorf("PMF() contains key 0 with zero serialized mass, want it skipped")
	}
	if got, want := restored.PMF()[10000], 1.0; got != want {
		t.Errorf("PMF()[10000] = %f, want %f", got, want)
	}
}

// The record must survive a trip through an external encoding with its field
// names stable.
func TestSerializedRecordJSONStability(t *testing.T) {
	pld, err := CreateForPrivacyParameters(EpsilonDelta{Epsilon: 1, Delta: 0.01}, 1e-4)
	if err != nil {
		t.Fatalf("CreateForPrivacyParameters: got err %v", err)
	}
	serialized, err := pld.Serialize()
	if err != nil {
		t.Fatalf("Serialize: got err %v", err)
	}
	encoded, err := json.Marshal(serialized)
	if err != nil {
		t.Fatalf("json.Marshal: got err %v", err)
	}
	for _, field := range []string{"discretization_interval", "infinity_mass", "estimate_type", "pmf", "loss_value_key", "probability_mass"} {
		if !strings.Contains(string(encoded), field) {
			t.Errorf("encoded record %s does not mention field %q", encoded, field)
		}
	}
	var decoded SerializedPLD
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("json.Unmarshal: got err %v", err)
	}
	restored, err := Deserialize(&decoded)
	if err != nil {
		t.Fatalf("Deserialize: got err %v", err)
	}
	for _, epsilon := range queryEpsilons {
		if got, want := restored.GetDeltaForEpsilon(epsilon), pld.GetDeltaForEpsilon(epsilon); !nearEqual(got, want, 1e-14) {
			t.Errorf("GetDeltaForEpsilon(%f) = %e after JSON round trip, want %e", epsilon, got, want)
		}
	}
}
