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

	"github.com/mathenaangeles/Dispatch/pkg/api"
	"github.com/prometheus/client_golang/prometheus"
)

var eventsCounter *prometheus.CounterVec
var stateTransitionCounter *prometheus.CounterVec
var findingTransitionCounter *prometheus.CounterVec

func recordStateTransition(from ScanStatus, to ScanStatus, isLegal bool) {
	stateTransitionCounter.With(prometheus.Labels{
		"from":  from.String(),
		"to":    to.String(),
		"legal": fmt.Sprintf("%t", isLegal)}).Inc()
}

func recordFindingTransition(from api.ApprovalState, to api.ApprovalState) {
	findingTransitionCounter.With(prometheus.Labels{
		"from": from.String(),
		"to":   to.String()}).Inc()
}

func recordEvent(event string) {
	eventsCounter.With(prometheus.Labels{"event": event}).Inc()
}

func init() {
	stateTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "dispatch",
		Subsystem:   "core",
		Name:        "model_scan_state_transitions",
		Help:        "state transitions for scan jobs in the dispatch model",
		ConstLabels: map[string]string{},
	}, []string{"from", "to", "legal"})
	prometheus.MustRegister(stateTransitionCounter)

	findingTransitionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "dispatch",
		Subsystem:   "core",
		Name:        "model_finding_state_transitions",
		Help:        "approval state transitions for findings in the dispatch model",
		ConstLabels: map[string]string{},
	}, []string{"from", "to"})
	prometheus.MustRegister(findingTransitionCounter)

	eventsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "events",
		Help:      "counters for events happening in the core",
	}, []string{"event"})
	prometheus.MustRegister(eventsCounter)
}
