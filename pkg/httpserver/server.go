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

package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// ScanAccepted .....
type ScanAccepted struct {
	ScanID string `json:"scan_id"`
}

// PatchPlanResponse .....
type PatchPlanResponse struct {
	ScanID    string        `json:"scan_id"`
	PatchPlan api.PatchPlan `json:"patch_plan"`
}

// NewRouter serves the orchestrator's HTTP API.
func NewRouter(responder Responder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// state of the program
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/model", func(w http.ResponseWriter, r *http.Request) {
		model, err := responder.Model()
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, model)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, responder.Health(r.Context()))
	})

	// scans
	r.Post("/scan", func(w http.ResponseWriter, r *http.Request) {
		var request api.ScanRequest
		if err := render.DecodeJSON(r.Body, &request); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, &ErrorResponse{Error: fmt.Sprintf("invalid json: %s", err.Error())})
			return
		}
		// the scan outlives the request: it can't be cancelled once submitted
		scanID, err := responder.StartScan(context.WithoutCancel(r.Context()), request)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, &ScanAccepted{ScanID: scanID})
	})
	r.Route("/report", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			view, err := responder.Report()
			if err != nil {
				renderError(w, r, err)
				return
			}
			if view.Report == nil {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, &ErrorResponse{Error: "no scan report is available"})
				return
			}
			render.JSON(w, r, view)
		})
		r.Get("/patch-plan", func(w http.ResponseWriter, r *http.Request) {
			scanID, plan, err := responder.PatchPlan()
			if err != nil {
				renderError(w, r, err)
				return
			}
			render.JSON(w, r, &PatchPlanResponse{ScanID: scanID, PatchPlan: plan})
		})
	})

	// reviews
	r.Route("/findings/{findingID}", func(r chi.Router) {
		r.Post("/approve", reviewHandler(responder.Approve))
		r.Post("/reject", reviewHandler(responder.Reject))
		r.Post("/reset", reviewHandler(responder.ResetStatus))
		r.Get("/patch", func(w http.ResponseWriter, r *http.Request) {
			patch, err := responder.PatchForFinding(findingIDParam(r))
			if err != nil {
				renderError(w, r, err)
				return
			}
			render.JSON(w, r, patch)
		})
	})

	// patch application
	r.Post("/apply", func(w http.ResponseWriter, r *http.Request) {
		result, err := responder.ApplyPatches(context.WithoutCancel(r.Context()))
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, result)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, &ErrorResponse{Error: fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)})
	})
	return r
}

func findingIDParam(r *http.Request) api.FindingID {
	return api.NewFindingID(chi.URLParam(r, "findingID"))
}

func reviewHandler(review func(context.Context, api.FindingID) (*api.Finding, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		finding, err := review(r.Context(), findingIDParam(r))
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, finding)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		duration := time.Since(start)
		log.WithFields(log.Fields{
			"requestID": middleware.GetReqID(r.Context()),
			"status":    ww.Status(),
			"duration":  duration,
		}).Debugf("%s %s", r.Method, r.URL.Path)
		recordHTTPRequest(r.Method, ww.Status(), duration)
	})
}

// SetupHTTPServer .....
func SetupHTTPServer(port int, responder Responder) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewRouter(responder),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ListenAndServe serves until the server is shut down.
func ListenAndServe(server *http.Server) error {
	log.Infof("serving http on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}
