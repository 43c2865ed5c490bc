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

// GetModel .....
type GetModel struct {
	Done chan *api.Model
}

// NewGetModel .....
func NewGetModel() *GetModel {
	return &GetModel{Done: make(chan *api.Model, 1)}
}

// Apply .....
func (g *GetModel) Apply(model *m.Model) {
	g.Done <- CoreModelToAPIModel(model)
}

// CoreModelToAPIModel .....
func CoreModelToAPIModel(model *m.Model) *api.Model {
	apiModel := &api.Model{
		Counts:        model.Counts(),
		IsEligible:    model.IsEligible(),
		ScanInFlight:  model.Job.IsActive(),
		ApplyInFlight: model.ApplyInFlight,
		LastError:     model.LastError,
	}
	if model.LastScanDuration > 0 {
		apiModel.LastScanDuration = util.FormatScanDuration(model.LastScanDuration)
	}
	if job := model.Job; job != nil {
		apiModel.Job = &api.ModelScanJob{
			ScanID:    job.ScanID,
			RepoURL:   job.RepoURL,
			Branch:    job.Branch,
			Status:    job.Status.String(),
			StartedAt: job.StartedAt,
			PollCount: job.PollCount,
		}
	}
	if report := model.Report; report != nil {
		apiModel.Report = &api.ModelReport{
			ScanID:         report.ScanID,
			Timestamp:      report.Timestamp,
			Error:          report.Error,
			FindingCount:   len(report.Findings),
			PatchPlanNull:  report.PatchPlan.IsNull(),
			PatchesApplied: report.PatchesApplied,
			Severities:     model.SeverityBreakdown(),
		}
	}
	if health := model.Health; health != nil {
		checked := health.LastChecked
		apiModel.Health = &api.ModelHealth{Status: health.Status, LastChecked: &checked}
	}
	return apiModel
}
