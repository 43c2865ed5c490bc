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
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/mathenaangeles/Dispatch/pkg/api"
	log "github.com/sirupsen/logrus"
)

var stages = []string{"scanner", "analyzer", "deployer"}

type scan struct {
	request        api.ScanRequest
	pollsRemaining int
	pollsAnswered  int
	report         *api.ScanReport
	lastAWSConfig  string
}

// Service is an in-memory stand-in for the remote scan service.  Every scan
// answers "processing" for a configured number of polls, then completes
// with a canned report.
type Service struct {
	mutex           sync.Mutex
	processingPolls int
	scans           map[string]*scan
}

// NewService .....
func NewService(processingPolls int) *Service {
	if processingPolls < 0 {
		processingPolls = 0
	}
	return &Service{
		processingPolls: processingPolls,
		scans:           map[string]*scan{},
	}
}

// Router serves the scan service's endpoints.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/scan", s.submitScan)
	r.Get("/scan/{scanID}", s.getScan)
	r.Post("/approve-finding", s.approveFinding)
	r.Post("/reject-finding", s.rejectFinding)
	r.Post("/apply-patches", s.applyPatches)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, api.HealthStatus{Status: "healthy"})
	})
	return r
}

// CallerSettingsHeader returns the X-AWS-Config header last sent for
// `scanID`, to check what the client forwards.
func (s *Service) CallerSettingsHeader(scanID string) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if sc, ok := s.scans[scanID]; ok {
		return sc.lastAWSConfig
	}
	return ""
}

func renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"detail": message})
}

func (s *Service) submitScan(w http.ResponseWriter, r *http.Request) {
	var request api.ScanRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	request, err := request.Normalized()
	if err != nil {
		renderError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	scanID := uuid.New().String()
	s.mutex.Lock()
	s.scans[scanID] = &scan{
		request:        request,
		pollsRemaining: s.processingPolls,
		lastAWSConfig:  r.Header.Get("X-AWS-Config"),
	}
	s.mutex.Unlock()
	log.Infof("mock scan service: accepted scan %s of %s@%s", scanID, request.RepoURL, request.Branch)
	render.JSON(w, r, api.ScanSubmission{ScanID: scanID})
}

func (s *Service) getScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sc, ok := s.scans[scanID]
	if !ok {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("scan %s not found", scanID))
		return
	}
	sc.lastAWSConfig = r.Header.Get("X-AWS-Config")
	if sc.pollsRemaining > 0 {
		stage := stages[sc.pollsAnswered%len(stages)]
		sc.pollsRemaining--
		sc.pollsAnswered++
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, map[string]string{"status": "processing", "stage": stage})
		return
	}
	if sc.report == nil {
		sc.report = SampleReport(scanID, sc.request.RepoURL, time.Now())
	}
	render.JSON(w, r, sc.report)
}

type reviewBody struct {
	ScanID    string        `json:"scan_id"`
	FindingID api.FindingID `json:"finding_id"`
	Reset     bool          `json:"reset"`
}

func (s *Service) review(w http.ResponseWriter, r *http.Request, reject bool) {
	var body reviewBody
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sc, ok := s.scans[body.ScanID]
	if !ok || sc.report == nil {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("scan %s not found", body.ScanID))
		return
	}
	for i := range sc.report.Findings {
		finding := &sc.report.Findings[i]
		if !finding.ID.Matches(body.FindingID) {
			continue
		}
		status := "approved"
		switch {
		case body.Reset:
			finding.Approved, finding.Rejected = false, false
			status = "reset"
		case reject:
			finding.Approved, finding.Rejected = false, true
			status = "rejected"
		default:
			finding.Approved, finding.Rejected = true, false
		}
		render.JSON(w, r, map[string]interface{}{"status": status, "finding_id": finding.ID})
		return
	}
	renderError(w, r, http.StatusNotFound, fmt.Sprintf("finding %s not found", body.FindingID))
}

func (s *Service) approveFinding(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, false)
}

func (s *Service) rejectFinding(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, true)
}

func (s *Service) applyPatches(w http.ResponseWriter, r *http.Request) {
	var request api.ApplyRequest
	if err := render.DecodeJSON(r.Body, &request); err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sc, ok := s.scans[request.ScanID]
	if !ok || sc.report == nil {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("scan %s not found", request.ScanID))
		return
	}
	if sc.report.PatchesApplied {
		renderError(w, r, http.StatusConflict, "patches already applied")
		return
	}
	applied := []string{}
	for _, finding := range sc.report.Findings {
		if finding.Approved {
			applied = append(applied, finding.File)
		}
	}
	if len(applied) == 0 {
		renderError(w, r, http.StatusBadRequest, "no approved findings")
		return
	}
	sc.report.PatchesApplied = true
	branch := fmt.Sprintf("dispatch/fix-%s", strings.SplitN(request.ScanID, "-", 2)[0])
	render.JSON(w, r, map[string]interface{}{
		"status":          "success",
		"scan_id":         request.ScanID,
		"base_branch":     request.Branch,
		"branch":          branch,
		"files_patched":   applied,
		"patches_applied": len(applied),
	})
}
