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
	"errors"
	"fmt"
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
	m "github.com/mathenaangeles/Dispatch/pkg/core/model"
)

// Errors returned by the orchestrator; use errors.Is to check for them.
var (
	ErrEmptyScanID     = m.ErrEmptyScanID
	ErrScanInProgress  = m.ErrScanInProgress
	ErrNoActiveScan    = m.ErrNoActiveScan
	ErrFindingNotFound = m.ErrFindingNotFound
	ErrNotEligible     = m.ErrNotEligible
	ErrApplyInProgress = m.ErrApplyInProgress
	ErrStaleScan       = m.ErrStaleScan
	ErrNoPatch         = m.ErrNoPatch
	ErrStopped         = errors.New("orchestrator has been stopped")
)

// TimeoutError is returned when a scan is still processing after the last
// allowed poll.
type TimeoutError struct {
	ScanID   string
	Attempts int
	Waited   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scan %s did not complete after %d polls (%s)", e.ScanID, e.Attempts, e.Waited)
}

// Report renders the timeout as a failed report, so that it can be shown
// the same way results are.
func (e *TimeoutError) Report() *api.ScanReport {
	return api.NewErrorReport(e.ScanID, e)
}
