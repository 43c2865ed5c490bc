/*
Copyright (C) 2018 Synopsys, Inc.

Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements. See the NOTICE file
distributed with this work for additional information
regarding copyright ownership. The ASF licenses this file
to you under the Apache License, Version 2.0 (the
"License"); you may not use this file except in compliance
with the License. You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied. See the License for the
specific language governing permissions and limitations
under the License.
*/

package scanservice

import (
	"context"
	"errors"
	"fmt"
)

// ErrCircuitBreakerDisabled is wrapped by the TransportError returned when a
// call is refused without being sent.
var ErrCircuitBreakerDisabled = errors.New("circuit breaker is disabled")

// TransportError is a failed call to the scan service.  StatusCode is 0 when
// there was no response at all.  A 2xx StatusCode with Err set means the
// service answered with a body that couldn't be used.
type TransportError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil && e.StatusCode != 0 {
		return fmt.Sprintf("scan service %s answered with status %d: %v", e.Operation, e.StatusCode, e.Err)
	}
	if e.StatusCode != 0 {
		if e.Body == "" {
			return fmt.Sprintf("scan service %s failed with status %d", e.Operation, e.StatusCode)
		}
		return fmt.Sprintf("scan service %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("scan service %s failed: %v", e.Operation, e.Err)
}

// Unwrap .....
func (e *TransportError) Unwrap() error {
	return e.Err
}

// isServiceFailure is true for failures that say something about the
// service's availability: no response at all, or a 5xx.  A 4xx is the
// caller's problem, and neither a cancelled call nor an unusable 2xx body
// counts against the circuit breaker.
func isServiceFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransportError
	if !errors.As(err, &te) {
		return true
	}
	return te.StatusCode == 0 || te.StatusCode >= 500
}
