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

import "errors"

// .....
var (
	ErrEmptyScanID     = errors.New("scan id must not be empty")
	ErrScanInProgress  = errors.New("a scan is already in progress")
	ErrNoActiveScan    = errors.New("no scan report is available")
	ErrFindingNotFound = errors.New("finding not found in the current report")
	ErrNotEligible     = errors.New("report is not eligible for patch application")
	ErrApplyInProgress = errors.New("patch application is already in progress")
	ErrStaleScan       = errors.New("the scan was superseded by a newer one")
	ErrNoPatch         = errors.New("no patch plan entry matches the finding")
)
