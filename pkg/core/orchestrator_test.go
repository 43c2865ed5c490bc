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

package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/config"
	"github.com/mathenaangeles/Dispatch/pkg/scanservice"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var testRequest = api.ScanRequest{RepoURL: "https://github.com/acme/shop", Branch: "dev"}

func scenarioReport(scanID string) *api.ScanReport {
	return &api.ScanReport{
		ScanID:    scanID,
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
		Findings: []api.Finding{
			{ID: api.NewFindingID("finding_0"), Type: "sql_injection", Severity: api.SeverityHigh, File: "app/db.py", Line: 42},
		},
		PatchPlan: api.NewPatchPlan([]api.PatchPlanEntry{
			{File: "app/db.py", Line: 42, Suggestion: "use a parameterized query"},
		}),
	}
}

func twoFindingReport(scanID string) *api.ScanReport {
	report := scenarioReport(scanID)
	report.Findings = append(report.Findings, api.Finding{
		ID: api.NumericFindingID(7), Type: "hardcoded_secret", Severity: api.SeverityMedium, File: "app/settings.py", Line: 7,
	})
	return report
}

type fakeArchiver struct {
	mutex   sync.Mutex
	reports []*api.ScanReport
	applies []string
}

func (fa *fakeArchiver) ArchiveReport(ctx context.Context, report *api.ScanReport) error {
	fa.mutex.Lock()
	defer fa.mutex.Unlock()
	fa.reports = append(fa.reports, report)
	return nil
}

func (fa *fakeArchiver) ArchiveApplyResult(ctx context.Context, scanID string, result *api.ApplyResult) error {
	fa.mutex.Lock()
	defer fa.mutex.Unlock()
	fa.applies = append(fa.applies, scanID)
	return nil
}

type fakeRecorder struct {
	mutex     sync.Mutex
	scans     []api.ScanRequest
	reports   []*api.ScanReport
	decisions []api.ReviewDecision
	applyErrs []error
}

func (fr *fakeRecorder) RecordScan(ctx context.Context, request api.ScanRequest, report *api.ScanReport, elapsed time.Duration) error {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	fr.scans = append(fr.scans, request)
	fr.reports = append(fr.reports, report)
	return nil
}

func (fr *fakeRecorder) RecordDecision(ctx context.Context, scanID string, findingID api.FindingID, decision api.ReviewDecision) error {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	fr.decisions = append(fr.decisions, decision)
	return errors.New("history is down")
}

func (fr *fakeRecorder) RecordApply(ctx context.Context, scanID string, result *api.ApplyResult, applyErr error) error {
	fr.mutex.Lock()
	defer fr.mutex.Unlock()
	fr.applyErrs = append(fr.applyErrs, applyErr)
	return nil
}

var _ = Describe("Orchestrator", func() {
	var (
		stop         chan struct{}
		raw          *scanservice.MockRawClient
		orchestrator *Orchestrator
		ctx          context.Context
		timings      *config.Timings
	)

	BeforeEach(func() {
		stop = make(chan struct{})
		ctx = context.Background()
		raw = scanservice.NewMockRawClient("scan-1")
		timings = &config.Timings{PollPauseMilliseconds: 1, MaxPollAttempts: 20, ApplyTimeoutSeconds: 5}
		orchestrator = NewOrchestrator(scanservice.NewClient(raw, "mock", timings), timings, stop)
	})

	AfterEach(func() {
		close(stop)
	})

	runScan := func(report *api.ScanReport, processingPolls int) *api.ScanReport {
		raw.SetPollResponses(processingThen(processingPolls, terminal(report))...)
		result, err := orchestrator.RunScan(ctx, testRequest)
		Expect(err).To(BeNil())
		return result
	}

	It("runs the whole review scenario", func() {
		report := runScan(scenarioReport("scan-1"), 2)
		Expect(raw.PollCount()).To(Equal(3))
		Expect(report.Findings).To(HaveLen(1))
		Expect(raw.Submits()).To(Equal([]api.ScanRequest{testRequest}))
		Expect(orchestrator.IsEligible()).To(BeFalse())

		finding, err := orchestrator.Approve(ctx, api.NewFindingID("finding_0"))
		Expect(err).To(BeNil())
		Expect(finding.Approved).To(BeTrue())
		Expect(raw.Reviews()).To(Equal([]api.FindingReview{
			{ScanID: "scan-1", FindingID: api.NewFindingID("finding_0"), Decision: api.ReviewDecisionApprove},
		}))
		Expect(orchestrator.IsEligible()).To(BeTrue())

		result, err := orchestrator.ApplyPatches(ctx)
		Expect(err).To(BeNil())
		Expect((*result)["status"]).To(Equal("success"))
		Expect(raw.Applies()).To(Equal([]api.ApplyRequest{{
			ScanID:             "scan-1",
			RepoURL:            testRequest.RepoURL,
			Branch:             testRequest.Branch,
			ApprovedFindingIDs: []api.FindingID{api.NewFindingID("finding_0")},
		}}))

		view, err := orchestrator.Report()
		Expect(err).To(BeNil())
		Expect(view.Report.PatchesApplied).To(BeTrue())
		Expect(view.Report.Findings[0].Approved).To(BeTrue())
		Expect(view.IsEligible).To(BeFalse())
		Expect(view.ScanStatus).To(Equal("complete"))
	})

	It("polls in the background after starting a scan", func() {
		raw.SetPollResponses(processingThen(3, terminal(scenarioReport("scan-1")))...)
		scanID, err := orchestrator.StartScan(ctx, testRequest)
		Expect(err).To(BeNil())
		Expect(scanID).To(Equal("scan-1"))
		Eventually(func() string {
			view, err := orchestrator.Report()
			Expect(err).To(BeNil())
			return view.ScanStatus
		}).Should(Equal("complete"))
		Expect(raw.PollCount()).To(Equal(4))
	})

	It("refuses a second scan while one is in flight", func() {
		orchestrator.SetTimings(&config.Timings{PollPauseMilliseconds: 50, MaxPollAttempts: 20})
		raw.SetPollResponses(processingThen(5, terminal(scenarioReport("scan-1")))...)
		_, err := orchestrator.StartScan(ctx, testRequest)
		Expect(err).To(BeNil())
		_, err = orchestrator.StartScan(ctx, testRequest)
		Expect(err).To(MatchError(ErrScanInProgress))
		Expect(raw.Submits()).To(HaveLen(1))
		Eventually(func() *api.ScanReport {
			view, _ := orchestrator.Report()
			return view.Report
		}, 2*time.Second).ShouldNot(BeNil())
	})

	It("tracks the stage while polling", func() {
		orchestrator.SetTimings(&config.Timings{PollPauseMilliseconds: 1000, MaxPollAttempts: 20})
		raw.SetPollResponses(processing("analyzer"))
		_, err := orchestrator.StartScan(ctx, testRequest)
		Expect(err).To(BeNil())
		Eventually(func() string {
			model, err := orchestrator.Model()
			Expect(err).To(BeNil())
			return model.Job.Status
		}).Should(Equal("analyzing"))
		model, err := orchestrator.Model()
		Expect(err).To(BeNil())
		Expect(model.ScanInFlight).To(BeTrue())
	})

	It("keeps a failure report after a timeout", func() {
		raw.SetPollResponses(processingThen(20, nil)...)
		_, err := orchestrator.RunScan(ctx, testRequest)
		var timeoutErr *TimeoutError
		Expect(errors.As(err, &timeoutErr)).To(BeTrue())
		Expect(raw.PollCount()).To(Equal(20))

		view, err := orchestrator.Report()
		Expect(err).To(BeNil())
		Expect(view.Report.IsError()).To(BeTrue())
		Expect(view.ScanStatus).To(Equal("failed"))
		Expect(view.IsEligible).To(BeFalse())
	})

	It("fails the scan on a poll error without retrying", func() {
		raw.SetPollResponses(processing("scanner"))
		raw.PollError = &scanservice.TransportError{Operation: "getScan", StatusCode: 404, Body: "not found"}
		_, err := orchestrator.RunScan(ctx, testRequest)
		var transportErr *scanservice.TransportError
		Expect(errors.As(err, &transportErr)).To(BeTrue())
		Expect(raw.PollCount()).To(Equal(1))
		model, err := orchestrator.Model()
		Expect(err).To(BeNil())
		Expect(model.Job.Status).To(Equal("failed"))
		Expect(model.LastError).To(ContainSubstring("not found"))
	})

	It("refuses an empty scan id from the service", func() {
		raw.SetScanID("")
		_, err := orchestrator.SubmitScan(ctx, testRequest)
		Expect(errors.Is(err, ErrEmptyScanID)).To(BeTrue())
		Expect(raw.PollCount()).To(Equal(0))
		model, err := orchestrator.Model()
		Expect(err).To(BeNil())
		Expect(model.ScanInFlight).To(BeFalse())
	})

	It("refuses to poll an empty scan id", func() {
		_, err := orchestrator.PollUntilDone(ctx, "")
		Expect(err).To(MatchError(ErrEmptyScanID))
		Expect(raw.PollCount()).To(Equal(0))
	})

	It("refuses a scan request without a repository", func() {
		_, err := orchestrator.SubmitScan(ctx, api.ScanRequest{RepoURL: "  "})
		Expect(errors.Is(err, ErrInvalidScanRequest)).To(BeTrue())
		Expect(raw.Submits()).To(BeEmpty())
	})

	It("defaults the branch", func() {
		_, err := orchestrator.SubmitScan(ctx, api.ScanRequest{RepoURL: " https://github.com/acme/shop "})
		Expect(err).To(BeNil())
		Expect(raw.Submits()).To(Equal([]api.ScanRequest{{RepoURL: "https://github.com/acme/shop", Branch: api.DefaultBranch}}))
	})

	Describe("reviews", func() {
		BeforeEach(func() {
			runScan(twoFindingReport("scan-1"), 0)
		})

		It("flips between approved and rejected", func() {
			finding, err := orchestrator.Reject(ctx, api.NumericFindingID(7))
			Expect(err).To(BeNil())
			Expect(finding.State()).To(Equal(api.ApprovalStateRejected))

			finding, err = orchestrator.Approve(ctx, api.NewFindingID("7"))
			Expect(err).To(BeNil())
			Expect(finding.Approved).To(BeTrue())
			Expect(finding.Rejected).To(BeFalse())

			finding, err = orchestrator.ResetStatus(ctx, api.NewFindingID("7"))
			Expect(err).To(BeNil())
			Expect(finding.State()).To(Equal(api.ApprovalStatePending))

			reviews := raw.Reviews()
			Expect(reviews).To(HaveLen(3))
			Expect(reviews[2].Decision).To(Equal(api.ReviewDecisionReset))
			Expect(reviews[2].FindingID).To(Equal(api.NumericFindingID(7)))

			view, err := orchestrator.Report()
			Expect(err).To(BeNil())
			Expect(view.Counts).To(Equal(api.ApprovalCounts{Pending: 2}))
		})

		It("sends nothing for an unknown finding", func() {
			_, err := orchestrator.Approve(ctx, api.NewFindingID("finding_9"))
			Expect(errors.Is(err, ErrFindingNotFound)).To(BeTrue())
			Expect(raw.Reviews()).To(BeEmpty())
		})

		It("leaves the finding alone when the service refuses", func() {
			raw.ReviewError = &scanservice.TransportError{Operation: "approveFinding", StatusCode: 400, Body: "bad finding"}
			_, err := orchestrator.Approve(ctx, api.NewFindingID("finding_0"))
			Expect(err).To(HaveOccurred())
			view, err := orchestrator.Report()
			Expect(err).To(BeNil())
			Expect(view.Counts).To(Equal(api.ApprovalCounts{Pending: 2}))
		})

		It("handles concurrent decisions for different findings", func() {
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := orchestrator.Approve(ctx, api.NewFindingID("finding_0"))
				Expect(err).To(BeNil())
			}()
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				_, err := orchestrator.Reject(ctx, api.NumericFindingID(7))
				Expect(err).To(BeNil())
			}()
			wg.Wait()
			view, err := orchestrator.Report()
			Expect(err).To(BeNil())
			Expect(view.Counts).To(Equal(api.ApprovalCounts{Approved: 1, Rejected: 1}))
		})

		It("discards every decision when a new scan starts", func() {
			_, err := orchestrator.Approve(ctx, api.NewFindingID("finding_0"))
			Expect(err).To(BeNil())
			raw.SetScanID("scan-2")
			report := runScan(twoFindingReport("scan-2"), 1)
			Expect(report.ScanID).To(Equal("scan-2"))
			view, err := orchestrator.Report()
			Expect(err).To(BeNil())
			Expect(view.Counts).To(Equal(api.ApprovalCounts{Pending: 2}))
		})

		It("finds the patch for a finding", func() {
			patch, err := orchestrator.PatchForFinding(api.NewFindingID("finding_0"))
			Expect(err).To(BeNil())
			Expect(patch.Suggestion).To(Equal("use a parameterized query"))
			_, err = orchestrator.PatchForFinding(api.NumericFindingID(7))
			Expect(errors.Is(err, ErrNoPatch)).To(BeTrue())

			scanID, plan, err := orchestrator.PatchPlan()
			Expect(err).To(BeNil())
			Expect(scanID).To(Equal("scan-1"))
			Expect(plan.IsNull()).To(BeFalse())
		})
	})

	Describe("applying patches", func() {
		It("refuses an ineligible report without a remote call", func() {
			_, err := orchestrator.ApplyPatches(ctx)
			Expect(err).To(MatchError(ErrNotEligible))

			runScan(scenarioReport("scan-1"), 0)
			_, err = orchestrator.ApplyPatches(ctx)
			Expect(err).To(MatchError(ErrNotEligible))
			Expect(raw.Applies()).To(BeEmpty())
		})

		It("refuses a report without a patch plan", func() {
			report := scenarioReport("scan-1")
			report.PatchPlan = api.PatchPlan{}
			runScan(report, 0)
			_, err := orchestrator.Approve(ctx, api.NewFindingID("finding_0"))
			Expect(err).To(BeNil())
			Expect(orchestrator.IsEligible()).To(BeFalse())
		})

		It("allows one apply at a time", func() {
			runScan(scenarioReport("scan-1"), 0)
			_, err := orchestrator.Approve(ctx, api.NewFindingID("finding_0"))
			Expect(err).To(BeNil())

			gate := make(chan struct{})
			raw.SetApplyGate(gate)
			done := make(chan error, 1)
			go func() {
				_, err := orchestrator.ApplyPatches(ctx)
				done <- err
			}()
			Eventually(func() int { return len(raw.Applies()) }).Should(Equal(1))

			_, err = orchestrator.ApplyPatches(ctx)
			Expect(err).To(MatchError(ErrApplyInProgress))
			_, err = orchestrator.SubmitScan(ctx, testRequest)
			Expect(err).To(MatchError(ErrApplyInProgress))

			close(gate)
			Eventually(done).Should(Receive(BeNil()))
			Expect(raw.Applies()).To(HaveLen(1))
		})

		It("leaves the report untouched when the apply fails", func() {
			runScan(scenarioReport("scan-1"), 0)
			_, err := orchestrator.Approve(ctx, api.NewFindingID("finding_0"))
			Expect(err).To(BeNil())
			raw.ApplyError = &scanservice.TransportError{Operation: "applyPatches", StatusCode: 500, Body: "git push failed"}

			_, err = orchestrator.ApplyPatches(ctx)
			var transportErr *scanservice.TransportError
			Expect(errors.As(err, &transportErr)).To(BeTrue())

			view, err := orchestrator.Report()
			Expect(err).To(BeNil())
			Expect(view.Report.PatchesApplied).To(BeFalse())
			Expect(view.IsEligible).To(BeTrue())
		})
	})

	Describe("health", func() {
		It("records the service health", func() {
			Expect(orchestrator.Health(ctx).Status).To(Equal("healthy"))
			raw.HealthError = errors.New("connection refused")
			Expect(orchestrator.Health(ctx).Status).To(Equal(api.HealthStatusUnreachable))
			model, err := orchestrator.Model()
			Expect(err).To(BeNil())
			Expect(model.Health.Status).To(Equal(api.HealthStatusUnreachable))
		})

		It("checks health periodically", func() {
			orchestrator.SetTimings(&config.Timings{HealthCheckPauseSeconds: 1})
			Eventually(raw.HealthChecks, 3*time.Second).Should(BeNumerically(">=", 1))
			Expect(orchestrator.PauseHealthChecks()).To(Succeed())
		})
	})

	It("dumps its model", func() {
		Expect(orchestrator.SetConfig(&config.Config{
			ScanService: &config.ScanServiceConfig{URL: "http://scans:8000"},
			Caller:      &config.CallerSettings{AWSRegion: "us-east-1"},
			Timings:     timings,
			Port:        8080,
			LogLevel:    "info",
		})).To(Succeed())
		Expect(raw.CallerSettings().AWSRegion).To(Equal("us-east-1"))
		runScan(scenarioReport("scan-1"), 0)
		model, err := orchestrator.Model()
		Expect(err).To(BeNil())
		Expect(model.CircuitBreaker.State).To(ContainSubstring("Enabled"))
		Expect(model.Config.ScanServiceURL).To(Equal("http://scans:8000"))
		Expect(model.Config.Timings.MaxPollAttempts).To(Equal(20))
		Expect(model.Report.FindingCount).To(Equal(1))
	})

	It("stops serving once stopped", func() {
		other := make(chan struct{})
		stopped := NewOrchestrator(scanservice.NewClient(raw, "mock", timings), timings, other)
		close(other)
		Eventually(func() error {
			_, err := stopped.Report()
			return err
		}).Should(MatchError(ErrStopped))
	})
})

var _ = Describe("Orchestrator side effects", func() {
	It("archives and records results", func() {
		stop := make(chan struct{})
		defer close(stop)
		raw := scanservice.NewMockRawClient("scan-1", terminal(scenarioReport("scan-1")))
		timings := &config.Timings{PollPauseMilliseconds: 1}
		archiver := &fakeArchiver{}
		recorder := &fakeRecorder{}
		orchestrator := NewOrchestrator(scanservice.NewClient(raw, "mock", timings), timings, stop,
			WithArchiver(archiver), WithRecorder(recorder))
		ctx := context.Background()

		_, err := orchestrator.RunScan(ctx, testRequest)
		Expect(err).To(BeNil())
		_, err = orchestrator.Approve(ctx, api.NewFindingID("finding_0"))
		Expect(err).To(BeNil())
		_, err = orchestrator.ApplyPatches(ctx)
		Expect(err).To(BeNil())

		Expect(archiver.reports).To(HaveLen(1))
		Expect(archiver.reports[0].ScanID).To(Equal("scan-1"))
		Expect(archiver.applies).To(Equal([]string{"scan-1"}))
		Expect(recorder.scans).To(Equal([]api.ScanRequest{testRequest}))
		Expect(recorder.decisions).To(Equal([]api.ReviewDecision{api.ReviewDecisionApprove}))
		Expect(recorder.applyErrs).To(Equal([]error{nil}))
	})

	It("treats a report with a failed status as a failed scan", func() {
		stop := make(chan struct{})
		defer close(stop)
		failed := &api.ScanReport{ScanID: "scan-1", Status: "failed", Findings: []api.Finding{}}
		raw := scanservice.NewMockRawClient("scan-1", terminal(failed))
		timings := &config.Timings{PollPauseMilliseconds: 1}
		recorder := &fakeRecorder{}
		orchestrator := NewOrchestrator(scanservice.NewClient(raw, "mock", timings), timings, stop, WithRecorder(recorder))
		failedBefore := testutil.ToFloat64(pollOutcomeCounter.With(prometheus.Labels{"outcome": "failed"}))
		completeBefore := testutil.ToFloat64(pollOutcomeCounter.With(prometheus.Labels{"outcome": "complete"}))

		report, err := orchestrator.RunScan(context.Background(), testRequest)
		Expect(err).To(BeNil())
		Expect(report.IsError()).To(BeFalse())
		Expect(report.IsFailed()).To(BeTrue())

		view, err := orchestrator.Report()
		Expect(err).To(BeNil())
		Expect(view.ScanStatus).To(Equal("failed"))
		Expect(testutil.ToFloat64(pollOutcomeCounter.With(prometheus.Labels{"outcome": "failed"}))).To(Equal(failedBefore + 1))
		Expect(testutil.ToFloat64(pollOutcomeCounter.With(prometheus.Labels{"outcome": "complete"}))).To(Equal(completeBefore))
		Expect(recorder.reports).To(HaveLen(1))
		Expect(recorder.reports[0].IsFailed()).To(BeTrue())
	})

	It("uses the configured patch matcher", func() {
		stop := make(chan struct{})
		defer close(stop)
		raw := scanservice.NewMockRawClient("scan-1", terminal(scenarioReport("scan-1")))
		timings := &config.Timings{PollPauseMilliseconds: 1}
		last := func(finding api.Finding, entries []api.PatchPlanEntry) (api.PatchPlanEntry, bool) {
			if len(entries) == 0 {
				return api.PatchPlanEntry{}, false
			}
			return entries[len(entries)-1], true
		}
		orchestrator := NewOrchestrator(scanservice.NewClient(raw, "mock", timings), timings, stop, WithPatchMatcher(last))
		_, err := orchestrator.RunScan(context.Background(), testRequest)
		Expect(err).To(BeNil())
		patch, err := orchestrator.PatchForFinding(api.NewFindingID("finding_0"))
		Expect(err).To(BeNil())
		Expect(patch.File).To(Equal("app/db.py"))
	})
})
