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

package model

import (
	"fmt"
	"time"
)

// ScanJob is the scan currently being worked on by the remote service.
// ScanID is empty between submission and the service's answer.
type ScanJob struct {
	ScanID    string
	RepoURL   string
	Branch    string
	Status    ScanStatus
	StartedAt time.Time
	PollCount int
}

// IsActive .....
func (job *ScanJob) IsActive() bool {
	return job != nil && !job.Status.IsTerminal()
}

func (job *ScanJob) setStatus(status ScanStatus) error {
	if job.Status == status {
		return nil
	}
	isLegal := IsLegalTransition(job.Status, status)
	recordStateTransition(job.Status, status, isLegal)
	if !isLegal {
		return fmt.Errorf("illegal scan status transition from %s to %s for scan %s", job.Status, status, job.ScanID)
	}
	job.Status = status
	return nil
}
