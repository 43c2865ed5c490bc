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
	"fmt"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/util"
	log "github.com/sirupsen/logrus"
)

// Model is the root of the core model.  It holds at most one scan job and
// one report; a new scan replaces both.  It isn't safe for concurrent use:
// it's owned by the orchestrator's reducer.
type Model struct {
	Job              *ScanJob
	Report           *api.ScanReport
	ApplyInFlight    bool
	LastScanDuration time.Duration
	LastError        string
	Health           *Health
	PatchMatcher     PatchMatcher
}

// Health is the last answer of the scan service's health endpoint.
type Health struct {
	Status      string
	LastChecked time.Time
}

// NewModel .....
func NewModel(matcher PatchMatcher) *Model {
	if matcher == nil {
		matcher = FirstMatch
	}
	return &Model{PatchMatcher: matcher}
}

// scan lifecycle

// BeginScan discards the current report, and with it every approval and
// rejection, and starts tracking a new job.
func (model *Model) BeginScan(request api.ScanRequest, startedAt time.Time) error {
	if model.Job.IsActive() {
		return ErrScanInProgress
	}
	if model.ApplyInFlight {
		return ErrApplyInProgress
	}
	model.Report = nil
	model.LastError = ""
	model.LastScanDuration = 0
	model.Job = &ScanJob{
		RepoURL:   request.RepoURL,
		Branch:    request.Branch,
		Status:    ScanStatusQueued,
		StartedAt: startedAt,
	}
	recordEvent("beginScan")
	return nil
}

// AcceptScan records the scan id the service assigned to the pending job.
func (model *Model) AcceptScan(scanID string) error {
	if scanID == "" {
		return ErrEmptyScanID
	}
	if model.Job == nil || model.Job.ScanID != "" || model.Job.Status.IsTerminal() {
		return fmt.Errorf("unable to accept scan %s: no pending submission", scanID)
	}
	model.Job.ScanID = scanID
	return nil
}

func (model *Model) currentJob(scanID string) (*ScanJob, error) {
	if model.Job == nil || model.Job.ScanID != scanID {
		return nil, fmt.Errorf("scan %s: %w", scanID, ErrStaleScan)
	}
	if !model.Job.IsActive() {
		return nil, fmt.Errorf("scan %s is already %s: %w", scanID, model.Job.Status, ErrStaleScan)
	}
	return model.Job, nil
}

// RecordPoll counts a non-terminal poll answer and updates the job's status
// from the reported stage.
func (model *Model) RecordPoll(scanID string, stage string) error {
	job, err := model.currentJob(scanID)
	if err != nil {
		return err
	}
	job.PollCount++
	return job.setStatus(ScanStatusForStage(stage))
}

// FailScan ends the job after a failed submission or poll.  An empty scanID
// refers to a job whose submission failed.
func (model *Model) FailScan(scanID string, cause error) error {
	job, err := model.currentJob(scanID)
	if err != nil {
		return err
	}
	model.LastError = cause.Error()
	return job.setStatus(ScanStatusFailed)
}

// CompleteScan installs a terminal report as the live report and returns
// the scan's elapsed time: from submission to the report's timestamp.
func (model *Model) CompleteScan(report *api.ScanReport, finishedAt time.Time) (time.Duration, error) {
	job, err := model.currentJob(report.ScanID)
	if err != nil {
		return 0, err
	}
	if report.Repository == "" {
		report.Repository = job.RepoURL
	}
	normalizeFindings(report)
	fillStats(report)

	completedAt := finishedAt
	if report.Timestamp != "" {
		if parsed, err := util.ParseTimestamp(report.Timestamp); err == nil {
			completedAt = parsed
		} else {
			log.Warnf("scan %s: %s; using local completion time", report.ScanID, err.Error())
		}
	}
	elapsed := completedAt.Sub(job.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	model.LastScanDuration = elapsed
	model.Report = report

	status := ScanStatusComplete
	if report.IsFailed() {
		status = ScanStatusFailed
		model.LastError = report.Error
	}
	return elapsed, job.setStatus(status)
}

// TimeoutScan installs `report`, a failure placeholder, as the live report.
func (model *Model) TimeoutScan(report *api.ScanReport) error {
	job, err := model.currentJob(report.ScanID)
	if err != nil {
		return err
	}
	model.Report = report
	model.LastError = report.Error
	return job.setStatus(ScanStatusFailed)
}

// normalizeFindings enforces the approval invariant on incoming findings:
// a finding flagged both approved and rejected is reset to pending.
func normalizeFindings(report *api.ScanReport) {
	if report.Findings == nil {
		report.Findings = []api.Finding{}
	}
	for i := range report.Findings {
		finding := &report.Findings[i]
		if finding.Approved && finding.Rejected {
			log.Warnf("scan %s: finding %s arrived both approved and rejected, resetting to pending", report.ScanID, finding.ID)
			finding.Approved, finding.Rejected = false, false
		}
	}
}

// approvals

// FindFinding .....
func (model *Model) FindFinding(findingID api.FindingID) (*api.Finding, error) {
	if model.Report == nil {
		return nil, fmt.Errorf("finding %s: %w: %w", findingID, ErrFindingNotFound, ErrNoActiveScan)
	}
	for i := range model.Report.Findings {
		if model.Report.Findings[i].ID.Matches(findingID) {
			return &model.Report.Findings[i], nil
		}
	}
	return nil, fmt.Errorf("finding %s: %w", findingID, ErrFindingNotFound)
}

// SetFindingState moves one finding to `state`, leaving every other finding
// alone.  `scanID` is the scan the decision was acknowledged for; if the
// report has been replaced since, nothing changes.
func (model *Model) SetFindingState(scanID string, findingID api.FindingID, state api.ApprovalState) (*api.Finding, error) {
	if model.Report == nil {
		return nil, ErrNoActiveScan
	}
	if model.Report.ScanID != scanID {
		return nil, fmt.Errorf("scan %s: %w", scanID, ErrStaleScan)
	}
	finding, err := model.FindFinding(findingID)
	if err != nil {
		return nil, err
	}
	from := finding.State()
	finding.Approved, finding.Rejected = state.Flags()
	recordFindingTransition(from, state)
	result := *finding
	return &result, nil
}

// Counts .....
func (model *Model) Counts() api.ApprovalCounts {
	counts := api.ApprovalCounts{}
	if model.Report == nil {
		return counts
	}
	for _, finding := range model.Report.Findings {
		switch finding.State() {
		case api.ApprovalStateApproved:
			counts.Approved++
		case api.ApprovalStateRejected:
			counts.Rejected++
		default:
			counts.Pending++
		}
	}
	return counts
}

// patch application

// IsEligible is true when the report has a patch plan, hasn't had it
// applied yet, and has at least one approved finding.
func IsEligible(report *api.ScanReport) bool {
	if report == nil || report.PatchPlan.IsNull() || report.PatchesApplied {
		return false
	}
	for _, finding := range report.Findings {
		if finding.Approved {
			return true
		}
	}
	return false
}

// IsEligible .....
func (model *Model) IsEligible() bool {
	return IsEligible(model.Report)
}

// ApplyTicket is what's needed to issue an apply request, captured when
// the apply begins.
type ApplyTicket struct {
	ScanID             string
	RepoURL            string
	Branch             string
	ApprovedFindingIDs []api.FindingID
}

// Request .....
func (ticket *ApplyTicket) Request() api.ApplyRequest {
	return api.ApplyRequest{
		ScanID:             ticket.ScanID,
		RepoURL:            ticket.RepoURL,
		Branch:             ticket.Branch,
		ApprovedFindingIDs: ticket.ApprovedFindingIDs,
	}
}

// BeginApply marks an apply as in flight.  At most one may be.
func (model *Model) BeginApply() (*ApplyTicket, error) {
	if model.ApplyInFlight {
		return nil, ErrApplyInProgress
	}
	if !model.IsEligible() {
		return nil, ErrNotEligible
	}
	ticket := &ApplyTicket{
		ScanID:             model.Report.ScanID,
		RepoURL:            model.Report.Repository,
		Branch:             api.DefaultBranch,
		ApprovedFindingIDs: []api.FindingID{},
	}
	if model.Job != nil && model.Job.ScanID == model.Report.ScanID {
		ticket.RepoURL = model.Job.RepoURL
		ticket.Branch = model.Job.Branch
	}
	for _, finding := range model.Report.Findings {
		if finding.Approved {
			ticket.ApprovedFindingIDs = append(ticket.ApprovedFindingIDs, finding.ID)
		}
	}
	model.ApplyInFlight = true
	return ticket, nil
}

// FinishApply clears the in-flight flag.  On success it marks the report
// applied and keeps the result on it; on failure the report is untouched.
func (model *Model) FinishApply(scanID string, result *api.ApplyResult, applyErr error) error {
	model.ApplyInFlight = false
	if applyErr != nil {
		model.LastError = applyErr.Error()
		return nil
	}
	if model.Report == nil || model.Report.ScanID != scanID {
		return fmt.Errorf("scan %s: %w", scanID, ErrStaleScan)
	}
	model.Report.PatchesApplied = true
	model.Report.ApplyResult = result
	return nil
}

// queries

// PatchForFinding .....
func (model *Model) PatchForFinding(findingID api.FindingID) (*api.PatchPlanEntry, error) {
	finding, err := model.FindFinding(findingID)
	if err != nil {
		return nil, err
	}
	entries, ok := model.Report.PatchPlan.Entries()
	if !ok {
		return nil, fmt.Errorf("finding %s: %w", findingID, ErrNoPatch)
	}
	entry, ok := model.PatchMatcher(*finding, entries)
	if !ok {
		return nil, fmt.Errorf("finding %s: %w", findingID, ErrNoPatch)
	}
	return &entry, nil
}

// SeverityBreakdown counts findings by severity, as reported.
func (model *Model) SeverityBreakdown() map[string]int {
	breakdown := map[string]int{}
	if model.Report == nil {
		return breakdown
	}
	for _, finding := range model.Report.Findings {
		breakdown[string(finding.Severity)]++
	}
	return breakdown
}

// SetHealth .....
func (model *Model) SetHealth(status string, checkedAt time.Time) {
	model.Health = &Health{Status: status, LastChecked: checkedAt}
}
