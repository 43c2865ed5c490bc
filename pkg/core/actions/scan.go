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
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	m "github.com/mathenaangeles/Dispatch/pkg/core/model"
	log "github.com/sirupsen/logrus"
)

// BeginScan .....
type BeginScan struct {
	Request   api.ScanRequest
	StartedAt time.Time
	Done      chan error
}

// NewBeginScan .....
func NewBeginScan(request api.ScanRequest, startedAt time.Time) *BeginScan {
	return &BeginScan{Request: request, StartedAt: startedAt, Done: make(chan error, 1)}
}

// Apply .....
func (b *BeginScan) Apply(model *m.Model) {
	err := model.BeginScan(b.Request, b.StartedAt)
	recordError("beginScan", err)
	if err == nil {
		log.Infof("beginning scan of %s@%s", b.Request.RepoURL, b.Request.Branch)
	}
	b.Done <- err
}

// AcceptScan .....
type AcceptScan struct {
	ScanID string
	Done   chan error
}

// NewAcceptScan .....
func NewAcceptScan(scanID string) *AcceptScan {
	return &AcceptScan{ScanID: scanID, Done: make(chan error, 1)}
}

// Apply .....
func (a *AcceptScan) Apply(model *m.Model) {
	err := model.AcceptScan(a.ScanID)
	recordError("acceptScan", err)
	a.Done <- err
}

// RecordPoll .....
type RecordPoll struct {
	ScanID string
	Stage  string
}

// Apply .....
func (r *RecordPoll) Apply(model *m.Model) {
	err := model.RecordPoll(r.ScanID, r.Stage)
	recordError("recordPoll", err)
	if err != nil {
		log.Warnf("unable to record poll of scan %s: %s", r.ScanID, err.Error())
	}
}

// FailScan .....
type FailScan struct {
	ScanID string
	Err    error
}

// Apply .....
func (f *FailScan) Apply(model *m.Model) {
	err := model.FailScan(f.ScanID, f.Err)
	recordError("failScan", err)
	if err != nil {
		log.Warnf("unable to fail scan %s: %s", f.ScanID, err.Error())
	}
}

// CompleteScanResult carries a copy of the installed report and the
// request that started the scan.
type CompleteScanResult struct {
	Request api.ScanRequest
	Report  *api.ScanReport
	Elapsed time.Duration
	Err     error
}

// CompleteScan .....
type CompleteScan struct {
	Report     *api.ScanReport
	FinishedAt time.Time
	Done       chan *CompleteScanResult
}

// NewCompleteScan .....
func NewCompleteScan(report *api.ScanReport, finishedAt time.Time) *CompleteScan {
	return &CompleteScan{Report: report, FinishedAt: finishedAt, Done: make(chan *CompleteScanResult, 1)}
}

// Apply .....
func (c *CompleteScan) Apply(model *m.Model) {
	elapsed, err := model.CompleteScan(c.Report, c.FinishedAt)
	recordError("completeScan", err)
	if err != nil {
		c.Done <- &CompleteScanResult{Err: err}
		return
	}
	c.Done <- &CompleteScanResult{
		Request: api.ScanRequest{RepoURL: model.Job.RepoURL, Branch: model.Job.Branch},
		Report:  model.Report.Copy(),
		Elapsed: elapsed,
	}
}

// TimeoutScan .....
type TimeoutScan struct {
	Report *api.ScanReport
	Done   chan error
}

// NewTimeoutScan .....
func NewTimeoutScan(report *api.ScanReport) *TimeoutScan {
	return &TimeoutScan{Report: report, Done: make(chan error, 1)}
}

// Apply .....
func (t *TimeoutScan) Apply(model *m.Model) {
	err := model.TimeoutScan(t.Report)
	recordError("timeoutScan", err)
	t.Done <- err
}
