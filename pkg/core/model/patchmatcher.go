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

import "github.com/mathenaangeles/Dispatch/pkg/api"

// PatchMatcher picks the patch plan entry for a finding, if there is one.
type PatchMatcher func(finding api.Finding, entries []api.PatchPlanEntry) (api.PatchPlanEntry, bool)

// FirstMatch pairs a finding with an entry that names it by id; failing
// that, with the first entry at the same file and line.  Several entries
// may share a location; later ones are never picked.
func FirstMatch(finding api.Finding, entries []api.PatchPlanEntry) (api.PatchPlanEntry, bool) {
	for _, entry := range entries {
		if entry.FindingID != nil && entry.FindingID.Matches(finding.ID) {
			return entry, true
		}
	}
	for _, entry := range entries {
		if entry.File == finding.File && entry.Line == finding.Line {
			return entry, true
		}
	}
	return api.PatchPlanEntry{}, false
}

// fillStats fills in what the service left out of the report's stats.
// Medium and low counts are always derived from the findings; the rest
// only when the service sent no stats at all.  A finding counts as auto
// fixable when the patch plan touches its file.
func fillStats(report *api.ScanReport) {
	stats := &report.Stats
	medium, low := 0, 0
	for _, finding := range report.Findings {
		switch finding.Severity {
		case api.SeverityMedium:
			medium++
		case api.SeverityLow:
			low++
		}
	}
	stats.MediumSeverity = medium
	stats.LowSeverity = low

	if stats.TotalFindings != 0 || stats.HighSeverity != 0 || stats.AutoFixable != 0 || len(report.Findings) == 0 {
		return
	}
	stats.TotalFindings = len(report.Findings)
	entries, _ := report.PatchPlan.Entries()
	patchedFiles := map[string]bool{}
	for _, entry := range entries {
		patchedFiles[entry.File] = true
	}
	for _, finding := range report.Findings {
		if finding.Severity == api.SeverityHigh {
			stats.HighSeverity++
		}
		if patchedFiles[finding.File] {
			stats.AutoFixable++
		}
	}
}
