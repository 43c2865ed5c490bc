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

// BeginApplyResult .....
type BeginApplyResult struct {
	Ticket *m.ApplyTicket
	Err    error
}

// BeginApply .....
type BeginApply struct {
	Done chan *BeginApplyResult
}

// NewBeginApply .....
func NewBeginApply() *BeginApply {
	return &BeginApply{Done: make(chan *BeginApplyResult, 1)}
}

// Apply .....
func (b *BeginApply) Apply(model *m.Model) {
	ticket, err := model.BeginApply()
	b.Done <- &BeginApplyResult{Ticket: ticket, Err: err}
}

// FinishApply .....
type FinishApply struct {
	ScanID string
	Result *api.ApplyResult
	Err    error
	Done   chan error
}

// NewFinishApply .....
func NewFinishApply(scanID string, result *api.ApplyResult, err error) *FinishApply {
	return &FinishApply{ScanID: scanID, Result: result, Err: err, Done: make(chan error, 1)}
}

// Apply .....
func (f *FinishApply) Apply(model *m.Model) {
	err := model.FinishApply(f.ScanID, f.Result, f.Err)
	recordError("finishApply", err)
	f.Done <- err
}
