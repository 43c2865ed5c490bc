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

package api

import (
	"time"
)

// Model is a dump of the orchestrator's state, served at /model.
type Model struct {
	Job              *ModelScanJob
	Report           *ModelReport
	Counts           ApprovalCounts
	IsEligible       bool
	ScanInFlight     bool
	ApplyInFlight    bool
	LastScanDuration string
	LastError        string
	Health           *ModelHealth
	CircuitBreaker   *ModelCircuitBreaker
	Config           *ModelConfig
}

// ModelScanJob .....
type ModelScanJob struct {
	ScanID    string
	RepoURL   string
	Branch    string
	Status    string
	StartedAt time.Time
	PollCount int
}

// ModelReport summarizes the live report without the findings themselves.
type ModelReport struct {
	ScanID         string
	Timestamp      string
	Error          string
	FindingCount   int
	PatchPlanNull  bool
	PatchesApplied bool
	Severities     map[string]int
}

// ApprovalCounts .....
type ApprovalCounts struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
}

// ModelHealth .....
type ModelHealth struct {
	Status      string
	LastChecked *time.Time
}

// ModelConfig .....
type ModelConfig struct {
	ScanServiceURL string
	Port           int
	LogLevel       string
	UseMockMode    bool
	Timings        *ModelTimings
}

// ModelTime ...
type ModelTime struct {
	duration     time.Duration
	Minutes      float64
	Seconds      float64
	Milliseconds float64
}

// NewModelTime consumes a time.Duration and calculates the minutes, seconds,
// and milliseconds
func NewModelTime(duration time.Duration) *ModelTime {
	return &ModelTime{
		duration:     duration,
		Minutes:      float64(duration) / float64(time.Minute),
		Seconds:      float64(duration) / float64(time.Second),
		Milliseconds: float64(duration) / float64(time.Millisecond),
	}
}

// ModelTimings ...
type ModelTimings struct {
	PollPause        ModelTime
	MaxPollAttempts  int
	SubmitTimeout    ModelTime
	PollTimeout      ModelTime
	ApplyTimeout     ModelTime
	HealthCheckPause ModelTime
}

// ModelCircuitBreaker ...
type ModelCircuitBreaker struct {
	State               string
	NextCheckTime       *time.Time
	MaxBackoffDuration  ModelTime
	ConsecutiveFailures int
}
