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
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mathenaangeles/Dispatch/pkg/core"
	"github.com/mathenaangeles/Dispatch/pkg/scanservice"
	log "github.com/sirupsen/logrus"
)

// ErrorResponse .....
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code,omitempty"`
}

func errorStatus(err error) int {
	var transportErr *scanservice.TransportError
	var timeoutErr *core.TimeoutError
	switch {
	case errors.Is(err, core.ErrInvalidScanRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFindingNotFound),
		errors.Is(err, core.ErrNoActiveScan),
		errors.Is(err, core.ErrNoPatch):
		return http.StatusNotFound
	case errors.Is(err, core.ErrScanInProgress),
		errors.Is(err, core.ErrApplyInProgress),
		errors.Is(err, core.ErrNotEligible),
		errors.Is(err, core.ErrStaleScan):
		return http.StatusConflict
	case errors.Is(err, core.ErrStopped),
		errors.Is(err, scanservice.ErrCircuitBreakerDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	response := &ErrorResponse{Error: err.Error()}
	var transportErr *scanservice.TransportError
	if errors.As(err, &transportErr) {
		response.StatusCode = transportErr.StatusCode
	}
	if status >= http.StatusInternalServerError {
		log.Errorf("%s %s: %s", r.Method, r.URL.Path, err.Error())
	} else {
		log.Infof("%s %s: %s", r.Method, r.URL.Path, err.Error())
	}
	render.Status(r, status)
	render.JSON(w, r, response)
}
