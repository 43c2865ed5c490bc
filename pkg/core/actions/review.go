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
)

// FindingResult .....
type FindingResult struct {
	ScanID  string
	Finding *api.Finding
	Err     error
}

// FindFinding looks up a finding ahead of a review, capturing the scan id
// the review will be sent for.
type FindFinding struct {
	FindingID api.FindingID
	Done      chan *FindingResult
}

// NewFindFinding .....
func NewFindFinding(findingID api.FindingID) *FindFinding {
	return &FindFinding{FindingID: findingID, Done: make(chan *FindingResult, 1)}
}

// Apply .....
func (f *FindFinding) Apply(model *m.Model) {
	finding, err := model.FindFinding(f.FindingID)
	if err != nil {
		f.Done <- &FindingResult{Err: err}
		return
	}
	found := *finding
	f.Done <- &FindingResult{ScanID: model.Report.ScanID, Finding: &found}
}

// SetFindingState applies an acknowledged review decision.
type SetFindingState struct {
	ScanID    string
	FindingID api.FindingID
	State     api.ApprovalState
	Done      chan *FindingResult
}

// NewSetFindingState .....
func NewSetFindingState(scanID string, findingID api.FindingID, state api.ApprovalState) *SetFindingState {
	return &SetFindingState{ScanID: scanID, FindingID: findingID, State: state, Done: make(chan *FindingResult, 1)}
}

// Apply .....
func (s *SetFindingState) Apply(model *m.Model) {
	finding, err := model.SetFindingState(s.ScanID, s.FindingID, s.State)
	recordError("setFindingState", err)
	s.Done <- &FindingResult{ScanID: s.ScanID, Finding: finding, Err: err}
}
