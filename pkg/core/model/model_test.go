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

package model

import (
	"errors"
	"math/rand"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleReport(scanID string) *api.ScanReport {
	return &api.ScanReport{
		ScanID:    scanID,
		Timestamp: "2024-03-01T12:02:05",
		Findings: []api.Finding{
			{ID: api.NumericFindingID(1), Severity: api.SeverityHigh, File: "a.py", Line: 10},
			{ID: api.NewFindingID("finding_2"), Severity: api.SeverityLow, File: "b.py", Line: 3},
			{ID: api.NewFindingID("finding_3"), Severity: "unknown", File: "c.py", Line: 8},
		},
		PatchPlan: api.NewPatchPlan([]api.PatchPlanEntry{
			{File: "a.py", Line: 10, Suggestion: "first"},
			{File: "a.py", Line: 10, Suggestion: "second"},
		}),
	}
}

func completedModel(scanID string) *Model {
	model := NewModel(nil)
	Expect(model.BeginScan(api.ScanRequest{RepoURL: "https://github.com/acme/shop", Branch: "dev"}, start)).To(Succeed())
	Expect(model.AcceptScan(scanID)).To(Succeed())
	_, err := model.CompleteScan(sampleReport(scanID), start.Add(3*time.Minute))
	Expect(err).To(BeNil())
	return model
}

func setState(model *Model, id api.FindingID, state api.ApprovalState) *api.Finding {
	finding, err := model.SetFindingState(model.Report.ScanID, id, state)
	Expect(err).To(BeNil())
	return finding
}

var _ = Describe("Model", func() {
	Describe("scan lifecycle", func() {
		It("refuses a second scan while one is in progress", func() {
			model := NewModel(nil)
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(MatchError(ErrScanInProgress))
			Expect(model.AcceptScan("scan-1")).To(Succeed())
			Expect(model.RecordPoll("scan-1", "analyzer")).To(Succeed())
			Expect(model.Job.Status).To(Equal(ScanStatusAnalyzing))
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(MatchError(ErrScanInProgress))
		})

		It("rejects an empty scan id", func() {
			model := NewModel(nil)
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.AcceptScan("")).To(MatchError(ErrEmptyScanID))
		})

		It("computes the elapsed time from the report timestamp", func() {
			model := completedModel("scan-1")
			Expect(model.LastScanDuration).To(Equal(125 * time.Second))
			Expect(model.Job.Status).To(Equal(ScanStatusComplete))
		})

		It("falls back to the local completion time for odd timestamps", func() {
			model := NewModel(nil)
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.AcceptScan("scan-1")).To(Succeed())
			report := sampleReport("scan-1")
			report.Timestamp = "not a time"
			elapsed, err := model.CompleteScan(report, start.Add(3500*time.Millisecond))
			Expect(err).To(BeNil())
			Expect(elapsed).To(Equal(3500 * time.Millisecond))
		})

		It("ignores results for a superseded scan", func() {
			model := completedModel("scan-1")
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.AcceptScan("scan-2")).To(Succeed())
			_, err := model.CompleteScan(sampleReport("scan-1"), start)
			Expect(errors.Is(err, ErrStaleScan)).To(BeTrue())
			Expect(model.Report).To(BeNil())
		})

		It("ignores a second result for a finished scan", func() {
			model := completedModel("scan-1")
			report := sampleReport("scan-1")
			report.Findings = report.Findings[:1]
			_, err := model.CompleteScan(report, start)
			Expect(errors.Is(err, ErrStaleScan)).To(BeTrue())
			Expect(model.Report.Findings).To(HaveLen(3))
		})

		It("keeps a timeout placeholder as the live report", func() {
			model := NewModel(nil)
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.AcceptScan("scan-1")).To(Succeed())
			Expect(model.TimeoutScan(api.NewErrorReport("scan-1", errors.New("timed out")))).To(Succeed())
			Expect(model.Report.IsError()).To(BeTrue())
			Expect(model.Job.Status).To(Equal(ScanStatusFailed))
			Expect(model.IsEligible()).To(BeFalse())
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
		})

		It("fails a job whose submission failed", func() {
			model := NewModel(nil)
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.FailScan("", errors.New("connection refused"))).To(Succeed())
			Expect(model.Job.Status).To(Equal(ScanStatusFailed))
			Expect(model.LastError).To(Equal("connection refused"))
		})

		It("repairs findings that arrive both approved and rejected", func() {
			model := NewModel(nil)
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.AcceptScan("scan-1")).To(Succeed())
			report := sampleReport("scan-1")
			report.Findings[0].Approved = true
			report.Findings[0].Rejected = true
			_, err := model.CompleteScan(report, start)
			Expect(err).To(BeNil())
			Expect(model.Report.Findings[0].State()).To(Equal(api.ApprovalStatePending))
		})

		It("fills in missing stats", func() {
			model := completedModel("scan-1")
			stats := model.Report.Stats
			Expect(stats.TotalFindings).To(Equal(3))
			Expect(stats.HighSeverity).To(Equal(1))
			Expect(stats.LowSeverity).To(Equal(1))
			Expect(stats.AutoFixable).To(Equal(1))
			Expect(model.SeverityBreakdown()).To(Equal(map[string]int{"high": 1, "low": 1, "unknown": 1}))
		})
	})

	Describe("approvals", func() {
		It("approves, rejects and resets a single finding", func() {
			model := completedModel("scan-1")
			id := api.NumericFindingID(1)

			Expect(setState(model, id, api.ApprovalStateApproved).State()).To(Equal(api.ApprovalStateApproved))
			Expect(model.Counts()).To(Equal(api.ApprovalCounts{Approved: 1, Pending: 2}))

			finding := setState(model, id, api.ApprovalStateRejected)
			Expect(finding.Rejected).To(BeTrue())
			Expect(finding.Approved).To(BeFalse())

			finding = setState(model, id, api.ApprovalStateApproved)
			Expect(finding.Approved).To(BeTrue())
			Expect(finding.Rejected).To(BeFalse())

			setState(model, id, api.ApprovalStatePending)
			Expect(model.Counts()).To(Equal(api.ApprovalCounts{Pending: 3}))
		})

		It("matches ids by their text", func() {
			model := completedModel("scan-1")
			setState(model, api.NewFindingID("1"), api.ApprovalStateApproved)
			Expect(model.Report.Findings[0].Approved).To(BeTrue())
		})

		It("reports unknown findings without changing anything", func() {
			model := completedModel("scan-1")
			_, err := model.SetFindingState("scan-1", api.NewFindingID("nope"), api.ApprovalStateApproved)
			Expect(errors.Is(err, ErrFindingNotFound)).To(BeTrue())
			Expect(model.Counts()).To(Equal(api.ApprovalCounts{Pending: 3}))
		})

		It("reports a missing report", func() {
			model := NewModel(nil)
			_, err := model.SetFindingState("scan-1", api.NumericFindingID(1), api.ApprovalStateApproved)
			Expect(err).To(MatchError(ErrNoActiveScan))
			_, err = model.FindFinding(api.NumericFindingID(1))
			Expect(errors.Is(err, ErrNoActiveScan)).To(BeTrue())
			Expect(errors.Is(err, ErrFindingNotFound)).To(BeTrue())
		})

		It("refuses decisions acknowledged for a replaced report", func() {
			model := completedModel("scan-1")
			_, err := model.SetFindingState("scan-0", api.NumericFindingID(1), api.ApprovalStateApproved)
			Expect(errors.Is(err, ErrStaleScan)).To(BeTrue())
		})

		It("never has a finding both approved and rejected", func() {
			model := completedModel("scan-1")
			ids := []api.FindingID{api.NumericFindingID(1), api.NewFindingID("finding_2"), api.NewFindingID("finding_3")}
			states := []api.ApprovalState{api.ApprovalStatePending, api.ApprovalStateApproved, api.ApprovalStateRejected}
			random := rand.New(rand.NewSource(7))
			for i := 0; i < 500; i++ {
				setState(model, ids[random.Intn(len(ids))], states[random.Intn(len(states))])
				for _, finding := range model.Report.Findings {
					Expect(finding.Approved && finding.Rejected).To(BeFalse())
				}
				counts := model.Counts()
				Expect(counts.Approved + counts.Rejected + counts.Pending).To(Equal(3))
			}
		})

		It("discards approvals when a new scan begins", func() {
			model := completedModel("scan-1")
			setState(model, api.NumericFindingID(1), api.ApprovalStateApproved)
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.Report).To(BeNil())
			Expect(model.Counts()).To(Equal(api.ApprovalCounts{}))
			Expect(model.AcceptScan("scan-2")).To(Succeed())
			_, err := model.CompleteScan(sampleReport("scan-2"), start)
			Expect(err).To(BeNil())
			Expect(model.Counts()).To(Equal(api.ApprovalCounts{Pending: 3}))
		})
	})

	Describe("patch application", func() {
		It("is eligible only with a plan, no prior apply and an approval", func() {
			Expect(IsEligible(nil)).To(BeFalse())

			model := completedModel("scan-1")
			Expect(model.IsEligible()).To(BeFalse())

			setState(model, api.NumericFindingID(1), api.ApprovalStateApproved)
			Expect(model.IsEligible()).To(BeTrue())

			model.Report.PatchPlan = api.PatchPlan{}
			Expect(model.IsEligible()).To(BeFalse())

			Expect(model.Report.PatchPlan.UnmarshalJSON([]byte(`{"summary":"x"}`))).To(Succeed())
			Expect(model.IsEligible()).To(BeTrue())

			model.Report.PatchesApplied = true
			Expect(model.IsEligible()).To(BeFalse())
		})

		It("allows one apply at a time and marks the report applied", func() {
			model := completedModel("scan-1")
			_, err := model.BeginApply()
			Expect(err).To(MatchError(ErrNotEligible))

			setState(model, api.NumericFindingID(1), api.ApprovalStateApproved)
			ticket, err := model.BeginApply()
			Expect(err).To(BeNil())
			Expect(ticket.Request()).To(Equal(api.ApplyRequest{
				ScanID:             "scan-1",
				RepoURL:            "https://github.com/acme/shop",
				Branch:             "dev",
				ApprovedFindingIDs: []api.FindingID{api.NumericFindingID(1)},
			}))

			_, err = model.BeginApply()
			Expect(err).To(MatchError(ErrApplyInProgress))
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(MatchError(ErrApplyInProgress))

			result := &api.ApplyResult{"status": "success"}
			Expect(model.FinishApply("scan-1", result, nil)).To(Succeed())
			Expect(model.ApplyInFlight).To(BeFalse())
			Expect(model.Report.PatchesApplied).To(BeTrue())
			Expect(model.Report.ApplyResult).To(Equal(result))
			Expect(model.Report.Findings).To(HaveLen(3))
			Expect(model.IsEligible()).To(BeFalse())
		})

		It("leaves the report alone when the apply fails", func() {
			model := completedModel("scan-1")
			setState(model, api.NumericFindingID(1), api.ApprovalStateApproved)
			_, err := model.BeginApply()
			Expect(err).To(BeNil())
			Expect(model.FinishApply("scan-1", nil, errors.New("boom"))).To(Succeed())
			Expect(model.ApplyInFlight).To(BeFalse())
			Expect(model.Report.PatchesApplied).To(BeFalse())
			Expect(model.IsEligible()).To(BeTrue())
		})
	})

	Describe("patch lookup", func() {
		It("takes the first entry at the finding's location", func() {
			model := completedModel("scan-1")
			entry, err := model.PatchForFinding(api.NumericFindingID(1))
			Expect(err).To(BeNil())
			Expect(entry.Suggestion).To(Equal("first"))

			_, err = model.PatchForFinding(api.NewFindingID("finding_2"))
			Expect(errors.Is(err, ErrNoPatch)).To(BeTrue())
		})

		It("prefers an entry that names the finding", func() {
			id := api.NewFindingID("finding_9")
			entries := []api.PatchPlanEntry{
				{File: "a.py", Line: 10, Suggestion: "by location"},
				{File: "z.py", Line: 1, Suggestion: "by id", FindingID: &id},
			}
			entry, ok := FirstMatch(api.Finding{ID: id, File: "a.py", Line: 10}, entries)
			Expect(ok).To(BeTrue())
			Expect(entry.Suggestion).To(Equal("by id"))
		})

		It("uses a custom matcher", func() {
			last := func(finding api.Finding, entries []api.PatchPlanEntry) (api.PatchPlanEntry, bool) {
				if len(entries) == 0 {
					return api.PatchPlanEntry{}, false
				}
				return entries[len(entries)-1], true
			}
			model := NewModel(last)
			Expect(model.BeginScan(api.ScanRequest{RepoURL: "r"}, start)).To(Succeed())
			Expect(model.AcceptScan("scan-1")).To(Succeed())
			_, err := model.CompleteScan(sampleReport("scan-1"), start)
			Expect(err).To(BeNil())
			entry, err := model.PatchForFinding(api.NumericFindingID(1))
			Expect(err).To(BeNil())
			Expect(entry.Suggestion).To(Equal("second"))
		})
	})
})
