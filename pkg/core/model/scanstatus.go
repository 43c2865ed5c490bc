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

import "fmt"

// ScanStatus describes where a scan job is in the remote pipeline
type ScanStatus int

// .....
const (
	ScanStatusQueued    ScanStatus = iota
	ScanStatusScanning  ScanStatus = iota
	ScanStatusAnalyzing ScanStatus = iota
	ScanStatusDeploying ScanStatus = iota
	ScanStatusComplete  ScanStatus = iota
	ScanStatusFailed    ScanStatus = iota
)

// String .....
func (status ScanStatus) String() string {
	switch status {
	case ScanStatusQueued:
		return "queued"
	case ScanStatusScanning:
		return "scanning"
	case ScanStatusAnalyzing:
		return "analyzing"
	case ScanStatusDeploying:
		return "deploying"
	case ScanStatusComplete:
		return "complete"
	case ScanStatusFailed:
		return "failed"
	}
	panic(fmt.Errorf("invalid ScanStatus value: %d", status))
}

// MarshalJSON .....
func (status ScanStatus) MarshalJSON() ([]byte, error) {
	jsonString := fmt.Sprintf(`"%s"`, status.String())
	return []byte(jsonString), nil
}

// MarshalText .....
func (status ScanStatus) MarshalText() (text []byte, err error) {
	return []byte(status.String()), nil
}

// IsTerminal .....
func (status ScanStatus) IsTerminal() bool {
	return status == ScanStatusComplete || status == ScanStatusFailed
}

// ScanStatusForStage maps the stage reported while a scan is processing to
// a status: the analyzer and deployer stages have their own, anything else
// counts as scanning.
func ScanStatusForStage(stage string) ScanStatus {
	switch stage {
	case "analyzer":
		return ScanStatusAnalyzing
	case "deployer":
		return ScanStatusDeploying
	default:
		return ScanStatusScanning
	}
}

var inProgress = map[ScanStatus]bool{
	ScanStatusScanning:  true,
	ScanStatusAnalyzing: true,
	ScanStatusDeploying: true,
	ScanStatusComplete:  true,
	ScanStatusFailed:    true,
}

// The remote pipeline doesn't promise to report its stages in order, so
// the in-progress statuses may move between each other freely.
var legalTransitions = map[ScanStatus]map[ScanStatus]bool{
	ScanStatusQueued:    inProgress,
	ScanStatusScanning:  inProgress,
	ScanStatusAnalyzing: inProgress,
	ScanStatusDeploying: inProgress,
	// we never expect to transition FROM a terminal status
	ScanStatusComplete: {},
	ScanStatusFailed:   {},
}

// IsLegalTransition .....
func IsLegalTransition(from ScanStatus, to ScanStatus) bool {
	stateMap, ok := legalTransitions[from]
	if !ok {
		panic(fmt.Errorf("expected to find state transition map for %s but did not", from))
	}
	return from != to && stateMap[to]
}
