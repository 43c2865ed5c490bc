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
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	log "github.com/sirupsen/logrus"
)

// CircuitBreaker stops calls to the scan service after it fails, and lets a
// single call through to check on it after an exponentially growing pause.
// It never retries a call.
type CircuitBreaker struct {
	mutex               sync.Mutex
	state               CircuitBreakerState
	nextCheckTime       *time.Time
	maxBackoffDuration  time.Duration
	consecutiveFailures int
}

// NewCircuitBreaker .....
func NewCircuitBreaker(maxBackoffDuration time.Duration) *CircuitBreaker {
	cb := &CircuitBreaker{
		nextCheckTime:       nil,
		maxBackoffDuration:  maxBackoffDuration,
		consecutiveFailures: 0,
	}
	cb.setState(CircuitBreakerStateEnabled)
	return cb
}

// Model dumps the current state of the circuit breaker
func (cb *CircuitBreaker) Model() *api.ModelCircuitBreaker {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	var nextCheckTime *time.Time
	if cb.nextCheckTime != nil {
		t := *cb.nextCheckTime
		nextCheckTime = &t
	}
	return &api.ModelCircuitBreaker{
		State:               cb.state.String(),
		ConsecutiveFailures: cb.consecutiveFailures,
		MaxBackoffDuration:  *api.NewModelTime(cb.maxBackoffDuration),
		NextCheckTime:       nextCheckTime,
	}
}

// State .....
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// ConsecutiveFailures .....
func (cb *CircuitBreaker) ConsecutiveFailures() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.consecutiveFailures
}

// Reset reenables the circuit breaker regardless of its current state,
// and clears out ConsecutiveFailures and NextCheckTime
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.setState(CircuitBreakerStateEnabled)
	cb.consecutiveFailures = 0
	cb.nextCheckTime = nil
}

func (cb *CircuitBreaker) setState(state CircuitBreakerState) {
	recordCircuitBreakerState(state)
	if state != cb.state {
		recordCircuitBreakerTransition(cb.state, state)
	}
	cb.state = state
}

// isAbleToIssueRequest moves to `Checking` once the next check time has
// passed, and tells whether a request may be sent.  While checking, only
// the one request that moved it there gets through.
func (cb *CircuitBreaker) isAbleToIssueRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	isAble := false
	switch cb.state {
	case CircuitBreakerStateEnabled:
		isAble = true
	case CircuitBreakerStateDisabled:
		if time.Now().After(*cb.nextCheckTime) {
			cb.setState(CircuitBreakerStateChecking)
			isAble = true
		}
	case CircuitBreakerStateChecking:
		isAble = false
	}
	recordCircuitBreakerIsEnabled(isAble)
	return isAble
}

func (cb *CircuitBreaker) failure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	switch cb.state {
	case CircuitBreakerStateEnabled:
		cb.setState(CircuitBreakerStateDisabled)
		cb.consecutiveFailures = 1
		cb.setNextCheckTime()
	case CircuitBreakerStateDisabled:
		break
	case CircuitBreakerStateChecking:
		cb.setState(CircuitBreakerStateDisabled)
		cb.consecutiveFailures++
		cb.setNextCheckTime()
	}
	log.Warnf("scan service circuit breaker: %d consecutive failures, next check at %s", cb.consecutiveFailures, cb.nextCheckTime)
}

func (cb *CircuitBreaker) success() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	switch cb.state {
	case CircuitBreakerStateEnabled:
		break
	case CircuitBreakerStateDisabled:
		break
	case CircuitBreakerStateChecking:
		cb.setState(CircuitBreakerStateEnabled)
		cb.consecutiveFailures = 0
		cb.nextCheckTime = nil
	}
}

// abandoned gives up a check without an answer; the next request checks again.
func (cb *CircuitBreaker) abandoned() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	if cb.state == CircuitBreakerStateChecking {
		cb.setState(CircuitBreakerStateDisabled)
	}
}

func (cb *CircuitBreaker) setNextCheckTime() {
	nextExponentialSeconds := math.Pow(2, float64(cb.consecutiveFailures))
	nextCheckDuration := minDuration(cb.maxBackoffDuration, time.Duration(nextExponentialSeconds)*time.Second)
	nextCheckTime := time.Now().Add(nextCheckDuration)
	cb.nextCheckTime = &nextCheckTime
}

func minDuration(a time.Duration, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// IssueRequest synchronously:
//  - checks whether it's enabled
//  - runs 'request'
//  - looks at the result of 'request', disabling itself on a service failure
//
// A request that fails after `ctx` is done was abandoned by the caller and
// says nothing about the service.
func (cb *CircuitBreaker) IssueRequest(ctx context.Context, description string, request func() error) error {
	if !cb.isAbleToIssueRequest() {
		return &TransportError{Operation: description, Err: fmt.Errorf("unable to issue request: %w", ErrCircuitBreakerDisabled)}
	}
	err := request()
	switch {
	case err != nil && ctx.Err() != nil:
		cb.abandoned()
	case isServiceFailure(err):
		cb.failure()
	default:
		cb.success()
	}
	return err
}
