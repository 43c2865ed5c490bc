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

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/config"
)

// RawClientInterface is the remote scan service's contract, one method per
// endpoint, allowing it to be mocked for testing.
type RawClientInterface interface {
	SubmitScan(ctx context.Context, request api.ScanRequest) (*api.ScanSubmission, error)
	GetScan(ctx context.Context, scanID string) (*api.PollResult, error)
	ReviewFinding(ctx context.Context, review api.FindingReview) error
	ApplyPatches(ctx context.Context, request api.ApplyRequest) (*api.ApplyResult, error)
	Health(ctx context.Context) (*api.HealthStatus, error)
	SetCallerSettings(settings *config.CallerSettings) error
}
