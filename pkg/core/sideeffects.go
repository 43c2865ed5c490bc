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
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	log "github.com/sirupsen/logrus"
)

const sideEffectTimeout = 30 * time.Second

// Archiving and recording are best effort: failures are logged and counted,
// never returned.

func (o *Orchestrator) sideEffect(name string, do func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(o.ctx, sideEffectTimeout)
	defer cancel()
	if err := do(ctx); err != nil {
		log.Errorf("unable to %s: %s", name, err.Error())
		recordSideEffectError(name)
	}
}

func (o *Orchestrator) archiveReport(report *api.ScanReport) {
	if o.archiver == nil {
		return
	}
	o.sideEffect("archiveReport", func(ctx context.Context) error {
		return o.archiver.ArchiveReport(ctx, report)
	})
}

func (o *Orchestrator) archiveApplyResult(scanID string, result *api.ApplyResult) {
	if o.archiver == nil {
		return
	}
	o.sideEffect("archiveApplyResult", func(ctx context.Context) error {
		return o.archiver.ArchiveApplyResult(ctx, scanID, result)
	})
}

func (o *Orchestrator) recordScan(request api.ScanRequest, report *api.ScanReport, elapsed time.Duration) {
	if o.recorder == nil {
		return
	}
	o.sideEffect("recordScan", func(ctx context.Context) error {
		return o.recorder.RecordScan(ctx, request, report, elapsed)
	})
}

func (o *Orchestrator) recordDecision(scanID string, findingID api.FindingID, decision api.ReviewDecision) {
	if o.recorder == nil {
		return
	}
	o.sideEffect("recordDecision", func(ctx context.Context) error {
		return o.recorder.RecordDecision(ctx, scanID, findingID, decision)
	})
}

func (o *Orchestrator) recordApplyResult(scanID string, result *api.ApplyResult, applyErr error) {
	if o.recorder == nil {
		return
	}
	o.sideEffect("recordApply", func(ctx context.Context) error {
		return o.recorder.RecordApply(ctx, scanID, result, applyErr)
	})
}
