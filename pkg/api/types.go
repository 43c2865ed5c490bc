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

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultBranch is used when a scan request doesn't name a branch.
const DefaultBranch = "main"

// ScanRequest is what a user submits to start a scan.
type ScanRequest struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`
}

// Normalized trims the request and fills in the default branch.  It fails
// if there's no repository locator.
func (r ScanRequest) Normalized() (ScanRequest, error) {
	repo := strings.TrimSpace(r.RepoURL)
	if repo == "" {
		return r, fmt.Errorf("repository locator must not be empty")
	}
	branch := strings.TrimSpace(r.Branch)
	if branch == "" {
		branch = DefaultBranch
	}
	return ScanRequest{RepoURL: repo, Branch: branch}, nil
}

// ScanSubmission is the remote service's answer to a scan request.
type ScanSubmission struct {
	ScanID string `json:"scan_id"`
}

// FindingID identifies a finding within a report.  The remote service may
// send ids as JSON strings ("finding_0") or numbers (1); the original form
// is kept so ids are echoed back exactly as received.
type FindingID struct {
	value   string
	numeric bool
}

// NewFindingID .....
func NewFindingID(id string) FindingID {
	return FindingID{value: id}
}

// NumericFindingID .....
func NumericFindingID(id int64) FindingID {
	return FindingID{value: strconv.FormatInt(id, 10), numeric: true}
}

// String .....
func (id FindingID) String() string {
	return id.value
}

// IsEmpty .....
func (id FindingID) IsEmpty() bool {
	return id.value == ""
}

// Matches compares ids by their textual form, so that an id parsed from a
// URL path matches a numeric id from a report.
func (id FindingID) Matches(other FindingID) bool {
	return id.value == other.value
}

// MarshalJSON .....
func (id FindingID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON .....
func (id *FindingID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*id = FindingID{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = FindingID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("invalid finding id %s: %v", string(trimmed), err)
	}
	*id = FindingID{value: n.String(), numeric: true}
	return nil
}

// Severity of a finding.  The remote service may send values outside of
// the known set (for example "unknown"); those are kept verbatim.
type Severity string

// .....
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is a single reported security issue.
type Finding struct {
	ID             FindingID `json:"id"`
	Type           string    `json:"type"`
	Severity       Severity  `json:"severity"`
	Confidence     float64   `json:"confidence"`
	File           string    `json:"file"`
	Line           int       `json:"line"`
	Description    string    `json:"description,omitempty"`
	CodeSnippet    string    `json:"code_snippet"`
	AnalysisText   string    `json:"llm_analysis"`
	RecommendedFix string    `json:"recommended_fix"`
	Approved       bool      `json:"approved"`
	Rejected       bool      `json:"rejected"`
}

// State derives the review state from the approved and rejected flags.
func (f Finding) State() ApprovalState {
	switch {
	case f.Approved:
		return ApprovalStateApproved
	case f.Rejected:
		return ApprovalStateRejected
	default:
		return ApprovalStatePending
	}
}

// PatchPlanEntry is one proposed change of a patch plan.  Only file, line
// and suggestion are guaranteed; the rest is filled in when the remote
// analyzer provides it.
type PatchPlanEntry struct {
	File          string          `json:"file"`
	Line          int             `json:"line"`
	Suggestion    string          `json:"suggestion,omitempty"`
	Description   string          `json:"description,omitempty"`
	FindingID     *FindingID      `json:"finding_id,omitempty"`
	EndLine       int             `json:"end_line,omitempty"`
	Vulnerability string          `json:"vulnerability,omitempty"`
	Severity      Severity        `json:"severity,omitempty"`
	OriginalCode  string          `json:"original_code,omitempty"`
	FixedCode     string          `json:"fixed_code,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	References    json.RawMessage `json:"references,omitempty"`
	Confidence    float64         `json:"confidence,omitempty"`
}

// PatchPlan holds the patch plan exactly as the remote service sent it:
// a list of entries, an arbitrary object, or null.
type PatchPlan struct {
	raw json.RawMessage
}

// NewPatchPlan builds a list-shaped patch plan.
func NewPatchPlan(entries []PatchPlanEntry) PatchPlan {
	if entries == nil {
		entries = []PatchPlanEntry{}
	}
	bytes, err := json.Marshal(entries)
	if err != nil {
		panic(fmt.Errorf("unable to marshal patch plan entries: %v", err))
	}
	return PatchPlan{raw: bytes}
}

// IsNull .....
func (p PatchPlan) IsNull() bool {
	return len(p.raw) == 0
}

// Raw returns the plan's JSON, "null" for a missing plan.
func (p PatchPlan) Raw() json.RawMessage {
	if p.IsNull() {
		return json.RawMessage("null")
	}
	return p.raw
}

// Entries decodes a list-shaped plan.  The second return value is false if
// the plan is null or not a list.
func (p PatchPlan) Entries() ([]PatchPlanEntry, bool) {
	if p.IsNull() || p.raw[0] != '[' {
		return nil, false
	}
	var entries []PatchPlanEntry
	if err := json.Unmarshal(p.raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// MarshalJSON .....
func (p PatchPlan) MarshalJSON() ([]byte, error) {
	return p.Raw(), nil
}

// UnmarshalJSON .....
func (p *PatchPlan) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		p.raw = nil
		return nil
	}
	p.raw = append(json.RawMessage{}, trimmed...)
	return nil
}

// Stats .....
type Stats struct {
	TotalFindings     int `json:"total_findings"`
	TotalFilesScanned int `json:"total_files_scanned"`
	HighSeverity      int `json:"high_severity"`
	MediumSeverity    int `json:"medium_severity,omitempty"`
	LowSeverity       int `json:"low_severity,omitempty"`
	AutoFixable       int `json:"auto_fixable"`
}

// ApplyResult is whatever the remote service answers to a patch application.
type ApplyResult map[string]interface{}

// ScanReport is the terminal result of a scan.  A report with a non-empty
// Error is a failure placeholder, so that failures render the same way as
// results do.
type ScanReport struct {
	ScanID         string       `json:"scan_id"`
	Repository     string       `json:"repo_url"`
	Timestamp      string       `json:"timestamp"`
	Status         string       `json:"status,omitempty"`
	Stage          string       `json:"stage,omitempty"`
	Stats          Stats        `json:"stats"`
	Findings       []Finding    `json:"findings"`
	PatchPlan      PatchPlan    `json:"patch_plan"`
	PatchesApplied bool         `json:"patches_applied"`
	ApplyResult    *ApplyResult `json:"apply_result,omitempty"`
	Error          string       `json:"error,omitempty"`
}

// NewErrorReport .....
func NewErrorReport(scanID string, err error) *ScanReport {
	return &ScanReport{ScanID: scanID, Findings: []Finding{}, Error: err.Error()}
}

// IsError .....
func (r *ScanReport) IsError() bool {
	return r.Error != ""
}

// ReportStatusFailed is the status the scan service reports for a scan that
// failed remotely, with or without an error message.
const ReportStatusFailed = "failed"

// IsFailed is true for error placeholders and for reports whose status says
// the scan failed.
func (r *ScanReport) IsFailed() bool {
	return r.IsError() || r.Status == ReportStatusFailed
}

// Copy returns a deep enough copy for handing out of the model: findings
// are copied, the patch plan and apply result are shared read-only.
func (r *ScanReport) Copy() *ScanReport {
	if r == nil {
		return nil
	}
	c := *r
	c.Findings = make([]Finding, len(r.Findings))
	copy(c.Findings, r.Findings)
	return &c
}

// ReportView is the live report together with its derived queries.
type ReportView struct {
	Report       *ScanReport    `json:"report"`
	Counts       ApprovalCounts `json:"counts"`
	IsEligible   bool           `json:"is_eligible"`
	Severities   map[string]int `json:"severities"`
	ScanStatus   string         `json:"scan_status,omitempty"`
	ScanDuration string         `json:"scan_duration,omitempty"`
}

// PollResult is one answer of the poll endpoint: either still processing
// or a terminal report.
type PollResult struct {
	InProgress bool
	Stage      string
	Report     *ScanReport
}

// FindingReview is a request to change a finding's review state.
type FindingReview struct {
	ScanID    string
	FindingID FindingID
	Decision  ReviewDecision
}

// ApplyRequest .....
type ApplyRequest struct {
	ScanID             string      `json:"scan_id"`
	RepoURL            string      `json:"repo_url"`
	Branch             string      `json:"branch"`
	ApprovedFindingIDs []FindingID `json:"approved_finding_ids"`
}

// HealthStatus .....
type HealthStatus struct {
	Status string `json:"status"`
}

// HealthStatusUnreachable is reported whenever the health probe fails.
const HealthStatusUnreachable = "unreachable"
