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

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/config"
)

// MockRawClient is a scripted scan service.  Poll responses are handed out
// in order, the last one repeating once the script runs out.
type MockRawClient struct {
	mutex sync.Mutex
	// script
	ScanID        string
	PollResponses []*api.PollResult
	ApplyResult   *api.ApplyResult
	HealthStatus  string
	SubmitError   error
	PollError     error
	ReviewError   error
	ApplyError    error
	HealthError   error
	// ApplyGate, if set, holds ApplyPatches until it's closed.
	ApplyGate chan struct{}
	// recorded calls
	submits        []api.ScanRequest
	polls          []string
	reviews        []api.FindingReview
	applies        []api.ApplyRequest
	healthChecks   int
	callerSettings *config.CallerSettings
}

// NewMockRawClient .....
func NewMockRawClient(scanID string, pollResponses ...*api.PollResult) *MockRawClient {
	return &MockRawClient{
		ScanID:        scanID,
		PollResponses: pollResponses,
		ApplyResult:   &api.ApplyResult{"status": "success"},
		HealthStatus:  "healthy",
	}
}

// SubmitScan .....
func (mrc *MockRawClient) SubmitScan(ctx context.Context, request api.ScanRequest) (*api.ScanSubmission, error) {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	mrc.submits = append(mrc.submits, request)
	if mrc.SubmitError != nil {
		return nil, mrc.SubmitError
	}
	return &api.ScanSubmission{ScanID: mrc.ScanID}, nil
}

// GetScan .....
func (mrc *MockRawClient) GetScan(ctx context.Context, scanID string) (*api.PollResult, error) {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	mrc.polls = append(mrc.polls, scanID)
	if mrc.PollError != nil {
		return nil, mrc.PollError
	}
	if len(mrc.PollResponses) == 0 {
		return nil, &TransportError{Operation: "getScan", StatusCode: 404, Body: fmt.Sprintf("scan %s not found", scanID)}
	}
	index := len(mrc.polls) - 1
	if index >= len(mrc.PollResponses) {
		index = len(mrc.PollResponses) - 1
	}
	result := *mrc.PollResponses[index]
	if result.Report != nil {
		result.Report = result.Report.Copy()
	}
	return &result, nil
}

// ReviewFinding .....
func (mrc *MockRawClient) ReviewFinding(ctx context.Context, review api.FindingReview) error {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	mrc.reviews = append(mrc.reviews, review)
	return mrc.ReviewError
}

// ApplyPatches .....
func (mrc *MockRawClient) ApplyPatches(ctx context.Context, request api.ApplyRequest) (*api.ApplyResult, error) {
	mrc.mutex.Lock()
	mrc.applies = append(mrc.applies, request)
	gate := mrc.ApplyGate
	mrc.mutex.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, &TransportError{Operation: "applyPatches", Err: ctx.Err()}
		}
	}
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	if mrc.ApplyError != nil {
		return nil, mrc.ApplyError
	}
	result := api.ApplyResult{}
	if mrc.ApplyResult != nil {
		for key, value := range *mrc.ApplyResult {
			result[key] = value
		}
	}
	return &result, nil
}

// Health .....
func (mrc *MockRawClient) Health(ctx context.Context) (*api.HealthStatus, error) {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	mrc.healthChecks++
	if mrc.HealthError != nil {
		return nil, mrc.HealthError
	}
	return &api.HealthStatus{Status: mrc.HealthStatus}, nil
}

// SetCallerSettings .....
func (mrc *MockRawClient) SetCallerSettings(settings *config.CallerSettings) error {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	mrc.callerSettings = settings
	return nil
}

// SetPollResponses replaces the poll script and restarts it.
func (mrc *MockRawClient) SetPollResponses(pollResponses ...*api.PollResult) {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	mrc.PollResponses = pollResponses
	mrc.polls = nil
}

// SetScanID .....
func (mrc *MockRawClient) SetScanID(scanID string) {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	mrc.ScanID = scanID
}

// SetApplyGate .....
func (mrc *MockRawClient) SetApplyGate(gate chan struct{}) {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	mrc.ApplyGate = gate
}

// Submits .....
func (mrc *MockRawClient) Submits() []api.ScanRequest {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	return append([]api.ScanRequest{}, mrc.submits...)
}

// PollCount .....
func (mrc *MockRawClient) PollCount() int {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	return len(mrc.polls)
}

// Reviews .....
func (mrc *MockRawClient) Reviews() []api.FindingReview {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	return append([]api.FindingReview{}, mrc.reviews...)
}

// Applies .....
func (mrc *MockRawClient) Applies() []api.ApplyRequest {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	return append([]api.ApplyRequest{}, mrc.applies...)
}

// HealthChecks .....
func (mrc *MockRawClient) HealthChecks() int {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	return mrc.healthChecks
}

// CallerSettings .....
func (mrc *MockRawClient) CallerSettings() *config.CallerSettings {
	mrc.mutex.Lock()
	defer mrc.mutex.Unlock()
	return mrc.callerSettings
}
