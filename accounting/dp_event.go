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

// DpEvent describes the application of a differentially private mechanism
// with just enough detail for privacy accounting: two independently
// implemented mechanisms that are indistinguishable from an accounting
// perspective map onto the same event. Events describing a whole workload are
// built by nesting ComposedEvent and SelfComposedEvent around the mechanism
// events.
//
// The set of events is closed; an accountant reports events it has not been
// designed to handle via its Supports method instead of guessing.
type DpEvent interface {
	isDpEvent()
}

// NoOpEvent is the application of an operation with no privacy impact. It is
// never required, but is a convenient placeholder where an event is expected.
type NoOpEvent struct{}

// NonPrivateEvent is the application of an operation that satisfies no
// (ε,δ) guarantee at all. Accountants report infinite epsilon and a delta of
// 1 once such an event has been composed.
type NonPrivateEvent struct{}

// UnsupportedEvent is the application of an operation that has no accounting
// description yet. Every accountant reports Supports as false for it.
type UnsupportedEvent struct{}

// GaussianEvent is the application of the Gaussian mechanism. For noise
// drawn from N(0, s²) added to a quantity with L2 sensitivity C, the noise
// multiplier is s/C.
type GaussianEvent struct {
	NoiseMultiplier float64
}

// LaplaceEvent is the application of the Laplace mechanism. For noise drawn
// from the Laplace distribution with scale s added to a quantity with L1
// sensitivity C, the noise multiplier is s/C.
type LaplaceEvent struct {
	NoiseMultiplier float64
}

// RandomizedResponseEvent is the application of randomized response over
// NumBuckets buckets: with probability 1-NoiseParameter the input bucket is
// reported unchanged, otherwise a uniformly random bucket is reported.
type RandomizedResponseEvent struct {
	NoiseParameter float64
	NumBuckets     int64
}

// SelfComposedEvent is the repeated application of the same mechanism Count
// times. The applications may be adaptive. It is equivalent to a
// ComposedEvent holding Count copies of Event.
type SelfComposedEvent struct {
	Event DpEvent
	Count int
}

// ComposedEvent is the sequential application of a series of mechanisms on
// the same dataset. The composition may be adaptive.
type ComposedEvent struct {
	Events []DpEvent
}

func (NoOpEvent) isDpEvent()               {}
func (NonPrivateEvent) isDpEvent()         {}
func (UnsupportedEvent) isDpEvent()        {}
func (GaussianEvent) isDpEvent()           {}
func (LaplaceEvent) isDpEvent()            {}
func (RandomizedResponseEvent) isDpEvent() {}
func (SelfComposedEvent) isDpEvent()       {}
func (ComposedEvent) isDpEvent()           {}
