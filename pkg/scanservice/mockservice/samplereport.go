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

package mockservice

import (
	"time"

	"github.com/mathenaangeles/Dispatch/pkg/api"
)

// SampleReport is the report every mock scan completes with: two findings,
// each with a patch plan entry.
func SampleReport(scanID string, repoURL string, finishedAt time.Time) *api.ScanReport {
	findings := []api.Finding{
		{
			ID:             api.NewFindingID("finding_0"),
			Type:           "sql_injection",
			Severity:       api.SeverityHigh,
			Confidence:     0.92,
			File:           "app/db.py",
			Line:           42,
			CodeSnippet:    `cursor.execute("SELECT * FROM users WHERE id = " + user_id)`,
			AnalysisText:   "User input is concatenated into a SQL statement.",
			RecommendedFix: "Use a parameterized query.",
		},
		{
			ID:             api.NewFindingID("finding_1"),
			Type:           "hardcoded_secret",
			Severity:       api.SeverityMedium,
			Confidence:     0.78,
			File:           "app/settings.py",
			Line:           7,
			CodeSnippet:    `API_KEY = "sk-live-0000"`,
			AnalysisText:   "A credential is committed to source control.",
			RecommendedFix: "Read the key from the environment.",
		},
	}
	plan := api.NewPatchPlan([]api.PatchPlanEntry{
		{
			File:         "app/db.py",
			Line:         42,
			Suggestion:   `cursor.execute("SELECT * FROM users WHERE id = %s", (user_id,))`,
			OriginalCode: findings[0].CodeSnippet,
			FixedCode:    `cursor.execute("SELECT * FROM users WHERE id = %s", (user_id,))`,
			Severity:     api.SeverityHigh,
		},
		{
			File:         "app/settings.py",
			Line:         7,
			Suggestion:   `API_KEY = os.environ["API_KEY"]`,
			OriginalCode: findings[1].CodeSnippet,
			FixedCode:    `API_KEY = os.environ["API_KEY"]`,
			Severity:     api.SeverityMedium,
		},
	})
	return &api.ScanReport{
		ScanID:     scanID,
		Repository: repoURL,
		Timestamp:  finishedAt.UTC().Format("2006-01-02T15:04:05.000000"),
		Status:     "complete",
		Stats: api.Stats{
			TotalFindings:     len(findings),
			TotalFilesScanned: 12,
			HighSeverity:      1,
			AutoFixable:       2,
		},
		Findings:  findings,
		PatchPlan: plan,
	}
}
