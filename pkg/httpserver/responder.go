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

package httpserver

import (
	"context"

	"github.com/mathenaangeles/Dispatch/pkg/api"
)

// Responder is what the HTTP API serves; core.Orchestrator implements it.
type Responder interface {
	StartScan(ctx context.Context, request api.ScanRequest) (string, error)
	Report() (*api.ReportView, error)
	PatchPlan() (string, api.PatchPlan, error)
	Approve(ctx context.Context, findingID api.FindingID) (*api.Finding, error)
	Reject(ctx context.Context, findingID api.FindingID) (*api.Finding, error)
	ResetStatus(ctx context.Context, findingID api.FindingID) (*api.Finding, error)
	PatchForFinding(findingID api.FindingID) (*api.PatchPlanEntry, error)
	ApplyPatches(ctx context.Context) (*api.ApplyResult, error)
	Health(ctx context.Context) *api.HealthStatus
	Model() (*api.Model, error)
}
