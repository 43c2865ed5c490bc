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
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/config"
	log "github.com/sirupsen/logrus"
)

const (
	callerSettingsHeader = "X-AWS-Config"
	requestIDHeader      = "X-Request-ID"
	maxResponseBodyBytes = 32 << 20
	maxErrorBodyBytes    = 1024
)

// HTTPRawClient talks JSON over HTTP to the scan service.  Deadlines come
// from the contexts passed in; the http.Client itself has no timeout.
type HTTPRawClient struct {
	baseURL    string
	httpClient *http.Client
	mutex      sync.RWMutex
	callerCfg  string
}

// NewHTTPRawClient .....
func NewHTTPRawClient(baseURL string, tlsVerification bool) *HTTPRawClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !tlsVerification {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &HTTPRawClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: transport},
	}
}

// SetCallerSettings sets the settings forwarded in the X-AWS-Config header.
// Empty settings remove the header.
func (hc *HTTPRawClient) SetCallerSettings(settings *config.CallerSettings) error {
	value := ""
	if !settings.IsEmpty() {
		encoded, err := settings.HeaderValue()
		if err != nil {
			return fmt.Errorf("unable to encode caller settings: %w", err)
		}
		value = encoded
	}
	hc.mutex.Lock()
	defer hc.mutex.Unlock()
	hc.callerCfg = value
	return nil
}

type reviewPayload struct {
	ScanID    string        `json:"scan_id"`
	FindingID api.FindingID `json:"finding_id"`
	Reset     bool          `json:"reset,omitempty"`
}

type pollProbe struct {
	Status string `json:"status"`
	Stage  string `json:"stage"`
}

// SubmitScan .....
func (hc *HTTPRawClient) SubmitScan(ctx context.Context, request api.ScanRequest) (*api.ScanSubmission, error) {
	status, body, err := hc.do(ctx, "submitScan", http.MethodPost, "/scan", request)
	if err != nil {
		return nil, err
	}
	var submission api.ScanSubmission
	if err = json.Unmarshal(body, &submission); err != nil {
		return nil, &TransportError{Operation: "submitScan", StatusCode: status, Err: fmt.Errorf("invalid response body: %w", err)}
	}
	if submission.ScanID == "" {
		return nil, &TransportError{Operation: "submitScan", StatusCode: status, Err: fmt.Errorf("response did not include a scan id")}
	}
	return &submission, nil
}

// GetScan treats a 202, or a body with status "processing", as in progress.
// Anything else is decoded as the terminal report.
func (hc *HTTPRawClient) GetScan(ctx context.Context, scanID string) (*api.PollResult, error) {
	path := "/scan/" + url.PathEscape(scanID)
	status, body, err := hc.do(ctx, "getScan", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	probe := pollProbe{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err = json.Unmarshal(body, &probe); err != nil && status != http.StatusAccepted {
			return nil, &TransportError{Operation: "getScan", StatusCode: status, Err: fmt.Errorf("invalid response body: %w", err)}
		}
	}
	if status == http.StatusAccepted || probe.Status == "processing" {
		return &api.PollResult{InProgress: true, Stage: probe.Stage}, nil
	}
	var report api.ScanReport
	if err = json.Unmarshal(body, &report); err != nil {
		return nil, &TransportError{Operation: "getScan", StatusCode: status, Err: fmt.Errorf("invalid report body: %w", err)}
	}
	if report.ScanID == "" {
		report.ScanID = scanID
	}
	if report.Findings == nil {
		report.Findings = []api.Finding{}
	}
	return &api.PollResult{Stage: report.Stage, Report: &report}, nil
}

// ReviewFinding sends approvals and resets to /approve-finding, the latter
// flagged with "reset": true, and rejections to /reject-finding.
func (hc *HTTPRawClient) ReviewFinding(ctx context.Context, review api.FindingReview) error {
	payload := reviewPayload{ScanID: review.ScanID, FindingID: review.FindingID}
	path := "/approve-finding"
	switch review.Decision {
	case api.ReviewDecisionApprove:
	case api.ReviewDecisionReject:
		path = "/reject-finding"
	case api.ReviewDecisionReset:
		payload.Reset = true
	default:
		return fmt.Errorf("invalid review decision %d", review.Decision)
	}
	_, _, err := hc.do(ctx, review.Decision.String()+"Finding", http.MethodPost, path, payload)
	return err
}

// ApplyPatches .....
func (hc *HTTPRawClient) ApplyPatches(ctx context.Context, request api.ApplyRequest) (*api.ApplyResult, error) {
	status, body, err := hc.do(ctx, "applyPatches", http.MethodPost, "/apply-patches", request)
	if err != nil {
		return nil, err
	}
	result := api.ApplyResult{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err = json.Unmarshal(body, &result); err != nil {
			return nil, &TransportError{Operation: "applyPatches", StatusCode: status, Err: fmt.Errorf("invalid response body: %w", err)}
		}
	}
	return &result, nil
}

// Health .....
func (hc *HTTPRawClient) Health(ctx context.Context) (*api.HealthStatus, error) {
	status, body, err := hc.do(ctx, "health", http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	var health api.HealthStatus
	if err = json.Unmarshal(body, &health); err != nil {
		return nil, &TransportError{Operation: "health", StatusCode: status, Err: fmt.Errorf("invalid response body: %w", err)}
	}
	return &health, nil
}

func (hc *HTTPRawClient) do(ctx context.Context, operation string, method string, path string, payload interface{}) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonBytes, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("unable to marshal %s request: %w", operation, err)
		}
		reader = bytes.NewReader(jsonBytes)
	}
	req, err := http.NewRequestWithContext(ctx, method, hc.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("unable to create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.New().String()
	req.Header.Set(requestIDHeader, requestID)
	hc.mutex.RLock()
	if hc.callerCfg != "" {
		req.Header.Set(callerSettingsHeader, hc.callerCfg)
	}
	hc.mutex.RUnlock()

	log.Debugf("issuing %s %s (%s, request id %s)", method, path, operation, requestID)
	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Operation: operation, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Operation: operation, Err: fmt.Errorf("unable to read response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBodyBytes {
			snippet = snippet[:maxErrorBodyBytes]
		}
		return resp.StatusCode, body, &TransportError{Operation: operation, StatusCode: resp.StatusCode, Body: snippet}
	}
	return resp.StatusCode, body, nil
}
