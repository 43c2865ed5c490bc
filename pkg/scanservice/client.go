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
	"sync"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/config"
	log "github.com/sirupsen/logrus"
)

const (
	maxExponentialBackoffDuration = 5 * time.Minute
)

// Client wraps a RawClientInterface with per-operation timeouts, a circuit
// breaker and metrics.  It's safe for concurrent use.
type Client struct {
	client         RawClientInterface
	circuitBreaker *CircuitBreaker
	host           string
	mutex          sync.RWMutex
	timings        config.Timings
}

// NewClient .....
func NewClient(client RawClientInterface, host string, timings *config.Timings) *Client {
	sc := &Client{
		client:         client,
		circuitBreaker: NewCircuitBreaker(maxExponentialBackoffDuration),
		host:           host,
	}
	sc.SetTimings(timings)
	return sc
}

// NewHTTPClient creates a Client for the configured scan service.
func NewHTTPClient(serviceConfig *config.ScanServiceConfig, timings *config.Timings) *Client {
	raw := NewHTTPRawClient(serviceConfig.URL, serviceConfig.TLSVerification)
	return NewClient(raw, serviceConfig.URL, timings)
}

// Host .....
func (sc *Client) Host() string {
	return sc.host
}

// SetTimings updates the timeouts used for subsequent calls.
func (sc *Client) SetTimings(timings *config.Timings) {
	if timings == nil {
		timings = &config.Timings{}
	}
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.timings = *timings
}

// SetCallerSettings .....
func (sc *Client) SetCallerSettings(settings *config.CallerSettings) error {
	return sc.client.SetCallerSettings(settings)
}

// ResetCircuitBreaker .....
func (sc *Client) ResetCircuitBreaker() {
	sc.circuitBreaker.Reset()
}

// CircuitBreakerModel .....
func (sc *Client) CircuitBreakerModel() *api.ModelCircuitBreaker {
	return sc.circuitBreaker.Model()
}

func (sc *Client) getTimings() config.Timings {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.timings
}

// issue runs `request` through the circuit breaker with a per-call timeout.
// Our own timeout counts as a service failure; the caller's cancellation
// doesn't.
func (sc *Client) issue(ctx context.Context, name string, timeout time.Duration, request func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	err := sc.circuitBreaker.IssueRequest(ctx, name, func() error {
		return request(callCtx)
	})
	recordScanServiceResponseTime(name, time.Since(start))
	recordScanServiceResponse(name, err == nil)
	if err != nil {
		log.Errorf("scan service request %s against %s failed: %s", name, sc.host, err.Error())
	}
	return err
}

// SubmitScan .....
func (sc *Client) SubmitScan(ctx context.Context, request api.ScanRequest) (*api.ScanSubmission, error) {
	var submission *api.ScanSubmission
	timings := sc.getTimings()
	err := sc.issue(ctx, "submitScan", timings.SubmitTimeout(), func(ctx context.Context) error {
		var err error
		submission, err = sc.client.SubmitScan(ctx, request)
		return err
	})
	return submission, err
}

// PollScan issues a single status request for `scanID`.
func (sc *Client) PollScan(ctx context.Context, scanID string) (*api.PollResult, error) {
	var result *api.PollResult
	timings := sc.getTimings()
	err := sc.issue(ctx, "getScan", timings.PollTimeout(), func(ctx context.Context) error {
		var err error
		result, err = sc.client.GetScan(ctx, scanID)
		return err
	})
	if err == nil && result == nil {
		return nil, &TransportError{Operation: "getScan", Err: fmt.Errorf("empty poll result for scan %s", scanID)}
	}
	return result, err
}

// ReviewFinding .....
func (sc *Client) ReviewFinding(ctx context.Context, review api.FindingReview) error {
	timings := sc.getTimings()
	name := review.Decision.String() + "Finding"
	return sc.issue(ctx, name, timings.PollTimeout(), func(ctx context.Context) error {
		return sc.client.ReviewFinding(ctx, review)
	})
}

// ApplyPatches .....
func (sc *Client) ApplyPatches(ctx context.Context, request api.ApplyRequest) (*api.ApplyResult, error) {
	var result *api.ApplyResult
	timings := sc.getTimings()
	err := sc.issue(ctx, "applyPatches", timings.ApplyTimeout(), func(ctx context.Context) error {
		var err error
		result, err = sc.client.ApplyPatches(ctx, request)
		return err
	})
	if err == nil && result == nil {
		result = &api.ApplyResult{}
	}
	return result, err
}

// Health never fails: any error is reported as status "unreachable".  It
// bypasses the circuit breaker so that it can tell when the service is back.
func (sc *Client) Health(ctx context.Context) *api.HealthStatus {
	timings := sc.getTimings()
	ctx, cancel := context.WithTimeout(ctx, timings.PollTimeout())
	defer cancel()
	start := time.Now()
	health, err := sc.client.Health(ctx)
	recordScanServiceResponseTime("health", time.Since(start))
	recordScanServiceResponse("health", err == nil)
	if err != nil || health == nil || health.Status == "" {
		if err != nil {
			log.Debugf("health check against %s failed: %s", sc.host, err.Error())
		}
		health = &api.HealthStatus{Status: api.HealthStatusUnreachable}
	}
	recordHealthStatus(health.Status)
	return health
}
