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
	"fmt"
	"sync"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/mathenaangeles/Dispatch/pkg/config"
	"github.com/mathenaangeles/Dispatch/pkg/core/actions"
	m "github.com/mathenaangeles/Dispatch/pkg/core/model"
	"github.com/mathenaangeles/Dispatch/pkg/util"
	log "github.com/sirupsen/logrus"
)

// ErrInvalidScanRequest .....
var ErrInvalidScanRequest = errors.New("invalid scan request")

// ScanService is the remote scan service, as the orchestrator uses it.
type ScanService interface {
	ScanPoller
	SubmitScan(ctx context.Context, request api.ScanRequest) (*api.ScanSubmission, error)
	ReviewFinding(ctx context.Context, review api.FindingReview) error
	ApplyPatches(ctx context.Context, request api.ApplyRequest) (*api.ApplyResult, error)
	Health(ctx context.Context) *api.HealthStatus
	SetTimings(timings *config.Timings)
	SetCallerSettings(settings *config.CallerSettings) error
	CircuitBreakerModel() *api.ModelCircuitBreaker
}

// Archiver keeps copies of terminal reports and apply results.
type Archiver interface {
	ArchiveReport(ctx context.Context, report *api.ScanReport) error
	ArchiveApplyResult(ctx context.Context, scanID string, result *api.ApplyResult) error
}

// Recorder keeps a history of scans, review decisions and applies.
type Recorder interface {
	RecordScan(ctx context.Context, request api.ScanRequest, report *api.ScanReport, elapsed time.Duration) error
	RecordDecision(ctx context.Context, scanID string, findingID api.FindingID, decision api.ReviewDecision) error
	RecordApply(ctx context.Context, scanID string, result *api.ApplyResult, applyErr error) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPatchMatcher replaces the policy pairing findings with patch plan entries.
func WithPatchMatcher(matcher m.PatchMatcher) Option {
	return func(o *Orchestrator) {
		o.matcher = matcher
	}
}

// WithArchiver .....
func WithArchiver(archiver Archiver) Option {
	return func(o *Orchestrator) {
		o.archiver = archiver
	}
}

// WithRecorder .....
func WithRecorder(recorder Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = recorder
	}
}

// Orchestrator drives scans through their lifecycle: submission, polling,
// review of the findings and application of the patch plan.  The model is
// owned by a reducer goroutine; remote calls are made on the caller's
// goroutine and never hold the model.
type Orchestrator struct {
	scanService ScanService
	archiver    Archiver
	recorder    Recorder
	matcher     m.PatchMatcher
	// channels
	actions chan actions.Action
	stop    <-chan struct{}
	// background work, cancelled when stop is closed
	ctx context.Context
	// settings
	mutex       sync.RWMutex
	config      *config.Config
	timings     config.Timings
	healthTimer *util.Timer
}

// NewOrchestrator .....
func NewOrchestrator(scanService ScanService, timings *config.Timings, stop <-chan struct{}, options ...Option) *Orchestrator {
	if timings == nil {
		timings = &config.Timings{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-stop
		cancel()
	}()
	o := &Orchestrator{
		scanService: scanService,
		actions:     make(chan actions.Action),
		stop:        stop,
		ctx:         ctx,
		timings:     *timings,
	}
	for _, option := range options {
		option(o)
	}
	startReducer(m.NewModel(o.matcher), stop, o.actions)
	o.healthTimer = o.startHealthMonitor(timings.HealthCheckPause())
	return o
}

func (o *Orchestrator) apply(action actions.Action) error {
	select {
	case o.actions <- action:
		return nil
	case <-o.stop:
		return ErrStopped
	}
}

func (o *Orchestrator) getTimings() config.Timings {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.timings
}

// SetConfig applies a new configuration: timings, caller settings, and the
// config shown in the model dump.
func (o *Orchestrator) SetConfig(cfg *config.Config) error {
	o.mutex.Lock()
	o.config = cfg
	o.mutex.Unlock()
	o.SetTimings(cfg.Timings)
	return o.SetCallerSettings(cfg.Caller)
}

// SetTimings .....
func (o *Orchestrator) SetTimings(timings *config.Timings) {
	if timings == nil {
		timings = &config.Timings{}
	}
	o.mutex.Lock()
	o.timings = *timings
	o.mutex.Unlock()
	o.scanService.SetTimings(timings)
	if err := o.healthTimer.SetDelay(timings.HealthCheckPause()); err != nil {
		log.Errorf("unable to set health check pause: %s", err.Error())
	}
}

// SetCallerSettings .....
func (o *Orchestrator) SetCallerSettings(settings *config.CallerSettings) error {
	return o.scanService.SetCallerSettings(settings)
}

// scans

// SubmitScan discards the current report, with all of its review state, and
// submits a new scan.  It returns the scan id the service assigned; the scan
// stays in flight until it's polled to completion.
func (o *Orchestrator) SubmitScan(ctx context.Context, request api.ScanRequest) (string, error) {
	normalized, err := request.Normalized()
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidScanRequest, err.Error())
	}
	begin := actions.NewBeginScan(normalized, time.Now())
	if err := o.apply(begin); err != nil {
		return "", err
	}
	if err := <-begin.Done; err != nil {
		log.Warnf("refusing scan of %s: %s", normalized.RepoURL, err.Error())
		return "", err
	}

	submission, err := o.scanService.SubmitScan(ctx, normalized)
	if err == nil && (submission == nil || submission.ScanID == "") {
		err = ErrEmptyScanID
	}
	if err != nil {
		log.Errorf("unable to submit scan of %s: %s", normalized.RepoURL, err.Error())
		if applyErr := o.apply(&actions.FailScan{ScanID: "", Err: err}); applyErr != nil {
			log.Warnf("unable to record failed submission: %s", applyErr.Error())
		}
		return "", fmt.Errorf("unable to submit scan of %s: %w", normalized.RepoURL, err)
	}

	accept := actions.NewAcceptScan(submission.ScanID)
	if err := o.apply(accept); err != nil {
		return "", err
	}
	if err := <-accept.Done; err != nil {
		return "", err
	}
	log.Infof("scan %s submitted for %s@%s", submission.ScanID, normalized.RepoURL, normalized.Branch)
	return submission.ScanID, nil
}

// StartScan submits a scan and polls it to completion in the background.
func (o *Orchestrator) StartScan(ctx context.Context, request api.ScanRequest) (string, error) {
	scanID, err := o.SubmitScan(ctx, request)
	if err != nil {
		return "", err
	}
	go func() {
		if _, err := o.PollUntilDone(o.ctx, scanID); err != nil {
			log.Errorf("scan %s did not complete: %s", scanID, err.Error())
		}
	}()
	return scanID, nil
}

// RunScan submits a scan and waits for its report.
func (o *Orchestrator) RunScan(ctx context.Context, request api.ScanRequest) (*api.ScanReport, error) {
	scanID, err := o.SubmitScan(ctx, request)
	if err != nil {
		return nil, err
	}
	return o.PollUntilDone(ctx, scanID)
}

// PollUntilDone polls the scan until it's terminal and installs the result
// as the live report.  Running out of attempts returns a *TimeoutError and
// installs its failure report instead; a failed poll fails the scan.
func (o *Orchestrator) PollUntilDone(ctx context.Context, scanID string) (*api.ScanReport, error) {
	timings := o.getTimings()
	poller := NewPoller(o.scanService, timings.PollPause(), timings.PollAttempts())
	report, err := poller.Poll(ctx, scanID, func(result *api.PollResult) {
		if applyErr := o.apply(&actions.RecordPoll{ScanID: scanID, Stage: result.Stage}); applyErr != nil {
			log.Warnf("unable to record poll of scan %s: %s", scanID, applyErr.Error())
		}
	})

	var timeoutErr *TimeoutError
	switch {
	case errors.Is(err, ErrEmptyScanID):
		return nil, err
	case errors.As(err, &timeoutErr):
		log.Errorf("scan %s timed out: %s", scanID, err.Error())
		timeout := actions.NewTimeoutScan(timeoutErr.Report())
		if applyErr := o.apply(timeout); applyErr == nil {
			if modelErr := <-timeout.Done; modelErr != nil {
				log.Warnf("unable to record timeout of scan %s: %s", scanID, modelErr.Error())
			}
		}
		o.archiveReport(timeoutErr.Report())
		return nil, err
	case err != nil:
		log.Errorf("unable to poll scan %s: %s", scanID, err.Error())
		if applyErr := o.apply(&actions.FailScan{ScanID: scanID, Err: err}); applyErr != nil {
			log.Warnf("unable to record failure of scan %s: %s", scanID, applyErr.Error())
		}
		return nil, err
	}

	if report.ScanID == "" {
		report.ScanID = scanID
	}
	complete := actions.NewCompleteScan(report, time.Now())
	if err := o.apply(complete); err != nil {
		return nil, err
	}
	result := <-complete.Done
	if result.Err != nil {
		log.Warnf("discarding report of scan %s: %s", scanID, result.Err.Error())
		return nil, result.Err
	}
	if result.Report.IsFailed() {
		recordPollOutcome("failed")
		log.Errorf("scan %s failed: %q", scanID, result.Report.Error)
	} else {
		recordPollOutcome("complete")
		log.Infof("scan %s complete after %s with %d findings", scanID, util.FormatScanDuration(result.Elapsed), len(result.Report.Findings))
	}
	recordScanDuration(result.Elapsed)
	o.archiveReport(result.Report)
	o.recordScan(result.Request, result.Report, result.Elapsed)
	return result.Report, nil
}

// reviews

// Approve .....
func (o *Orchestrator) Approve(ctx context.Context, findingID api.FindingID) (*api.Finding, error) {
	return o.review(ctx, findingID, api.ReviewDecisionApprove)
}

// Reject .....
func (o *Orchestrator) Reject(ctx context.Context, findingID api.FindingID) (*api.Finding, error) {
	return o.review(ctx, findingID, api.ReviewDecisionReject)
}

// ResetStatus returns a finding to pending.
func (o *Orchestrator) ResetStatus(ctx context.Context, findingID api.FindingID) (*api.Finding, error) {
	return o.review(ctx, findingID, api.ReviewDecisionReset)
}

// review changes a finding's state once the service has acknowledged the
// decision.  Nothing is sent for a finding that isn't in the live report.
func (o *Orchestrator) review(ctx context.Context, findingID api.FindingID, decision api.ReviewDecision) (*api.Finding, error) {
	find := actions.NewFindFinding(findingID)
	if err := o.apply(find); err != nil {
		return nil, err
	}
	found := <-find.Done
	if found.Err != nil {
		log.Warnf("unable to %s finding %s: %s", decision, findingID, found.Err.Error())
		recordReview(decision.String(), "rejected")
		return nil, found.Err
	}

	review := api.FindingReview{ScanID: found.ScanID, FindingID: found.Finding.ID, Decision: decision}
	if err := o.scanService.ReviewFinding(ctx, review); err != nil {
		log.Errorf("unable to %s finding %s of scan %s: %s", decision, findingID, found.ScanID, err.Error())
		recordReview(decision.String(), "failure")
		return nil, fmt.Errorf("unable to %s finding %s: %w", decision, findingID, err)
	}

	set := actions.NewSetFindingState(found.ScanID, found.Finding.ID, decision.TargetState())
	if err := o.apply(set); err != nil {
		return nil, err
	}
	result := <-set.Done
	if result.Err != nil {
		recordReview(decision.String(), "stale")
		return nil, result.Err
	}
	recordReview(decision.String(), "success")
	log.Infof("finding %s of scan %s is now %s", findingID, found.ScanID, decision.TargetState())
	o.recordDecision(found.ScanID, found.Finding.ID, decision)
	return result.Finding, nil
}

// patch application

// IsEligible .....
func (o *Orchestrator) IsEligible() bool {
	view, err := o.Report()
	if err != nil {
		return false
	}
	return view.IsEligible
}

// ApplyPatches applies the live report's patch plan.  At most one apply is
// in flight; an ineligible report is refused without a remote call.
func (o *Orchestrator) ApplyPatches(ctx context.Context) (*api.ApplyResult, error) {
	begin := actions.NewBeginApply()
	if err := o.apply(begin); err != nil {
		return nil, err
	}
	started := <-begin.Done
	if started.Err != nil {
		log.Warnf("refusing to apply patches: %s", started.Err.Error())
		recordApply("rejected")
		return nil, started.Err
	}
	ticket := started.Ticket
	log.Infof("applying patches of scan %s with %d approved findings", ticket.ScanID, len(ticket.ApprovedFindingIDs))

	result, applyErr := o.scanService.ApplyPatches(ctx, ticket.Request())
	finish := actions.NewFinishApply(ticket.ScanID, result, applyErr)
	if err := o.apply(finish); err != nil {
		return nil, err
	}
	finishErr := <-finish.Done
	o.recordApplyResult(ticket.ScanID, result, applyErr)
	if applyErr != nil {
		log.Errorf("unable to apply patches of scan %s: %s", ticket.ScanID, applyErr.Error())
		recordApply("failure")
		return nil, fmt.Errorf("unable to apply patches of scan %s: %w", ticket.ScanID, applyErr)
	}
	if finishErr != nil {
		log.Warnf("patches of scan %s applied, but: %s", ticket.ScanID, finishErr.Error())
	}
	recordApply("success")
	o.archiveApplyResult(ticket.ScanID, result)
	return result, nil
}

// reads

// Report returns a copy of the live report with its derived queries.
func (o *Orchestrator) Report() (*api.ReportView, error) {
	get := actions.NewGetReport()
	if err := o.apply(get); err != nil {
		return nil, err
	}
	return <-get.Done, nil
}

// PatchForFinding .....
func (o *Orchestrator) PatchForFinding(findingID api.FindingID) (*api.PatchPlanEntry, error) {
	get := actions.NewGetPatch(findingID)
	if err := o.apply(get); err != nil {
		return nil, err
	}
	result := <-get.Done
	return result.Patch, result.Err
}

// PatchPlan returns the live report's scan id and patch plan.
func (o *Orchestrator) PatchPlan() (string, api.PatchPlan, error) {
	get := actions.NewGetPatchPlan()
	if err := o.apply(get); err != nil {
		return "", api.PatchPlan{}, err
	}
	result := <-get.Done
	return result.ScanID, result.PatchPlan, result.Err
}

// Model dumps the orchestrator's state.
func (o *Orchestrator) Model() (*api.Model, error) {
	get := actions.NewGetModel()
	if err := o.apply(get); err != nil {
		return nil, err
	}
	apiModel := <-get.Done
	apiModel.CircuitBreaker = o.scanService.CircuitBreakerModel()
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	if o.config != nil {
		apiModel.Config = o.config.Model()
	} else {
		apiModel.Config = &api.ModelConfig{Timings: o.timings.Model()}
	}
	return apiModel, nil
}

// Health asks the scan service for its health and records the answer.
func (o *Orchestrator) Health(ctx context.Context) *api.HealthStatus {
	status := o.scanService.Health(ctx)
	if err := o.apply(&actions.SetHealth{Status: status.Status, CheckedAt: time.Now()}); err != nil {
		log.Debugf("unable to record health status: %s", err.Error())
	}
	return status
}
