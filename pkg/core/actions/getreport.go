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

package actions

import (
	"github.com/mathenaangeles/Dispatch/pkg/api"
	m "github.com/mathenaangeles/Dispatch/pkg/core/model"
	"github.com/mathenaangeles/Dispatch/pkg/util"
)

// GetReport returns a copy of the live report, with its counts and
// eligibility computed in the same step so they agree with each other.
// The report is nil when there's no live report.
type GetReport struct {
	Done chan *api.ReportView
}

// NewGetReport .....
func NewGetReport() *GetReport {
	return &GetReport{Done: make(chan *api.ReportView, 1)}
}

// Apply .....
func (g *GetReport) Apply(model *m.Model) {
	view := &api.ReportView{
		Report:     model.Report.Copy(),
		Counts:     model.Counts(),
		IsEligible: model.IsEligible(),
		Severities: model.SeverityBreakdown(),
	}
	if model.Job != nil {
		view.ScanStatus = model.Job.Status.String()
	}
	if model.Report != nil && model.LastScanDuration > 0 {
		view.ScanDuration = util.FormatScanDuration(model.LastScanDuration)
	}
	g.Done <- view
}

// PatchResult .....
type PatchResult struct {
	Patch *api.PatchPlanEntry
	Err   error
}

// GetPatch finds the patch plan entry for a finding.
type GetPatch struct {
	FindingID api.FindingID
	Done      chan *PatchResult
}

// NewGetPatch .....
func NewGetPatch(findingID api.FindingID) *GetPatch {
	return &GetPatch{FindingID: findingID, Done: make(chan *PatchResult, 1)}
}

// Apply .....
func (g *GetPatch) Apply(model *m.Model) {
	patch, err := model.PatchForFinding(g.FindingID)
	g.Done <- &PatchResult{Patch: patch, Err: err}
}

// PatchPlanResult .....
type PatchPlanResult struct {
	ScanID    string
	PatchPlan api.PatchPlan
	Err       error
}

// GetPatchPlan returns the live report's patch plan as it was received.
type GetPatchPlan struct {
	Done chan *PatchPlanResult
}

// NewGetPatchPlan .....
func NewGetPatchPlan() *GetPatchPlan {
	return &GetPatchPlan{Done: make(chan *PatchPlanResult, 1)}
}

// Apply .....
func (g *GetPatchPlan) Apply(model *m.Model) {
	if model.Report == nil {
		g.Done <- &PatchPlanResult{Err: m.ErrNoActiveScan}
		return
	}
	g.Done <- &PatchPlanResult{ScanID: model.Report.ScanID, PatchPlan: model.Report.PatchPlan}
}
