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
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/config"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var raw *MockRawClient
	var client *Client

	BeforeEach(func() {
		raw = NewMockRawClient("scan-1",
			&api.PollResult{InProgress: true, Stage: "analyzer"},
			&api.PollResult{Report: &api.ScanReport{ScanID: "scan-1", Findings: []api.Finding{}}})
		client = NewClient(raw, "mock", &config.Timings{SubmitTimeoutSeconds: 1})
	})

	It("submits scans", func() {
		submission, err := client.SubmitScan(context.Background(), api.ScanRequest{RepoURL: "https://github.com/a/b", Branch: "main"})
		Expect(err).To(BeNil())
		Expect(submission.ScanID).To(Equal("scan-1"))
		Expect(raw.Submits()).To(HaveLen(1))
	})

	It("passes poll responses through in order", func() {
		first, err := client.PollScan(context.Background(), "scan-1")
		Expect(err).To(BeNil())
		Expect(first.InProgress).To(BeTrue())
		Expect(first.Stage).To(Equal("analyzer"))
		second, err := client.PollScan(context.Background(), "scan-1")
		Expect(err).To(BeNil())
		Expect(second.InProgress).To(BeFalse())
		Expect(second.Report.ScanID).To(Equal("scan-1"))
		Expect(raw.PollCount()).To(Equal(2))
	})

	It("returns transport errors without retrying", func() {
		raw.PollError = &TransportError{Operation: "getScan", StatusCode: 500}
		_, err := client.PollScan(context.Background(), "scan-1")
		var te *TransportError
		Expect(errors.As(err, &te)).To(BeTrue())
		Expect(te.StatusCode).To(Equal(500))
		Expect(raw.PollCount()).To(Equal(1))
	})

	It("fails fast once the circuit breaker trips", func() {
		raw.SubmitError = &TransportError{Operation: "submitScan", Err: errors.New("connection refused")}
		_, err := client.SubmitScan(context.Background(), api.ScanRequest{RepoURL: "r"})
		Expect(err).NotTo(BeNil())
		_, err = client.PollScan(context.Background(), "scan-1")
		Expect(errors.Is(err, ErrCircuitBreakerDisabled)).To(BeTrue())
		Expect(raw.PollCount()).To(Equal(0))
		Expect(client.CircuitBreakerModel().State).To(Equal("CircuitBreakerStateDisabled"))

		client.ResetCircuitBreaker()
		_, err = client.PollScan(context.Background(), "scan-1")
		Expect(err).To(BeNil())
	})

	It("forwards reviews with their decision", func() {
		review := api.FindingReview{ScanID: "scan-1", FindingID: api.NewFindingID("finding_0"), Decision: api.ReviewDecisionReset}
		Expect(client.ReviewFinding(context.Background(), review)).To(Succeed())
		Expect(raw.Reviews()).To(Equal([]api.FindingReview{review}))
	})

	It("applies the apply timeout", func() {
		raw.SetApplyGate(make(chan struct{}))
		client.SetTimings(&config.Timings{ApplyTimeoutSeconds: 1})
		start := time.Now()
		_, err := client.ApplyPatches(context.Background(), api.ApplyRequest{ScanID: "scan-1"})
		Expect(err).NotTo(BeNil())
		Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
	})

	It("normalizes health failures", func() {
		Expect(client.Health(context.Background()).Status).To(Equal("healthy"))
		raw.HealthError = errors.New("no route to host")
		Expect(client.Health(context.Background()).Status).To(Equal(api.HealthStatusUnreachable))
		raw.HealthError = nil
		raw.HealthStatus = ""
		Expect(client.Health(context.Background()).Status).To(Equal(api.HealthStatusUnreachable))
	})

	It("checks health even while the circuit breaker is open", func() {
		raw.SubmitError = &TransportError{Operation: "submitScan", StatusCode: 502}
		client.SubmitScan(context.Background(), api.ScanRequest{RepoURL: "r"})
		Expect(client.Health(context.Background()).Status).To(Equal("healthy"))
		Expect(raw.HealthChecks()).To(Equal(1))
	})

	It("hands caller settings to the raw client", func() {
		settings := &config.CallerSettings{AWSRegion: "us-east-1"}
		Expect(client.SetCallerSettings(settings)).To(Succeed())
		Expect(raw.CallerSettings()).To(Equal(settings))
	})
})

var _ = Describe("Client over HTTP", func() {
	It("doesn't hold a cancelled request against the service", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/approve-finding" {
				time.Sleep(200 * time.Millisecond)
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"status":"success"}`)
		}))
		defer server.Close()
		client := NewHTTPClient(&config.ScanServiceConfig{URL: server.URL, TLSVerification: true}, &config.Timings{})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err := client.ReviewFinding(ctx, api.FindingReview{ScanID: "scan-1", FindingID: api.NewFindingID("finding_0"), Decision: api.ReviewDecisionApprove})
		Expect(err).NotTo(BeNil())
		Expect(client.circuitBreaker.State()).To(Equal(CircuitBreakerStateEnabled))

		result, err := client.ApplyPatches(context.Background(), api.ApplyRequest{ScanID: "scan-1"})
		Expect(err).To(BeNil())
		Expect((*result)["status"]).To(Equal("success"))
	})

	It("doesn't trip the circuit breaker on an unusable 2xx body", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `<html>`)
		}))
		defer server.Close()
		client := NewHTTPClient(&config.ScanServiceConfig{URL: server.URL, TLSVerification: true}, &config.Timings{})

		_, err := client.SubmitScan(context.Background(), api.ScanRequest{RepoURL: "https://github.com/a/b", Branch: "main"})
		var te *TransportError
		Expect(errors.As(err, &te)).To(BeTrue())
		Expect(te.StatusCode).To(Equal(http.StatusOK))
		Expect(client.circuitBreaker.State()).To(Equal(CircuitBreakerStateEnabled))
	})
})
