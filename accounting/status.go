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
	"errors"
	"fmt"
)

// Error kinds returned by this package. Callers can match them with errors.Is.
var (
	// ErrInvalidArgument indicates an out-of-domain parameter, e.g. a
	// nonpositive noise scale or sensitivity, a malformed probability value,
	// or out-of-range randomized response parameters.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrFailedPrecondition indicates an attempt to compose privacy loss
	// distributions with mismatched discretization intervals or estimate
	// types. This is a programming error, not a recoverable condition.
	ErrFailedPrecondition = errors.New("failed precondition")
	// ErrUnimplemented indicates an operation that is not supported, e.g.
	// serializing an optimistic privacy loss distribution.
	ErrUnimplemented = errors.New("unimplemented")
	// ErrMalformedRecord indicates a serialized record with missing or
	// inconsistent fields.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnsupportedEvent indicates a DpEvent, possibly nested inside a
	// composed event, that the accountant has not been designed to handle.
	ErrUnsupportedEvent = errors.New("unsupported event")
)

func invalidArgumentf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, a...))
}

func failedPreconditionf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrFailedPrecondition, fmt.Sprintf(format, a...))
}

func unimplementedf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnimplemented, fmt.Sprintf(format, a...))
}

func malformedRecordf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, a...))
}

func unsupportedEventf(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedEvent, fmt.Sprintf(format, a...))
}
