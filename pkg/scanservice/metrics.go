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

package scanservice

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var scanServiceResponse *prometheus.CounterVec
var scanServiceResponseTime *prometheus.HistogramVec
var circuitBreakerState *prometheus.GaugeVec
var requestIsCircuitBreakerEnabled *prometheus.CounterVec
var circuitBreakerTransitions *prometheus.CounterVec
var healthStatus *prometheus.GaugeVec

func recordScanServiceResponse(name string, isSuccessful bool) {
	isSuccessString := fmt.Sprintf("%t", isSuccessful)
	scanServiceResponse.With(prometheus.Labels{"name": name, "isSuccess": isSuccessString}).Inc()
}

func recordScanServiceResponseTime(name string, duration time.Duration) {
	milliseconds := float64(duration / time.Millisecond)
	scanServiceResponseTime.With(prometheus.Labels{"name": name}).Observe(milliseconds)
}

func recordCircuitBreakerState(state CircuitBreakerState) {
	circuitBreakerState.With(prometheus.Labels{}).Set(float64(state))
}

func recordCircuitBreakerIsEnabled(isEnabled bool) {
	isEnabledString := fmt.Sprintf("%t", isEnabled)
	requestIsCircuitBreakerEnabled.With(prometheus.Labels{"isEnabled": isEnabledString}).Inc()
}

func recordCircuitBreakerTransition(from CircuitBreakerState, to CircuitBreakerState) {
	circuitBreakerTransitions.With(prometheus.Labels{"from": from.String(), "to": to.String()}).Inc()
}

func recordHealthStatus(status string) {
	healthStatus.Reset()
	healthStatus.With(prometheus.Labels{"status": status}).Set(1)
}

func init() {
	scanServiceResponse = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "dispatch",
		Subsystem:   "scanservice",
		Name:        "requests",
		Help:        "names and outcomes of HTTP requests issued to the scan service",
		ConstLabels: map[string]string{},
	}, []string{"name", "isSuccess"})
	prometheus.MustRegister(scanServiceResponse)

	scanServiceResponseTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "scanservice",
		Name:      "response_time",
		Help:      "tracks the response times of scan service requests in milliseconds",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 20),
	}, []string{"name"})
	prometheus.MustRegister(scanServiceResponseTime)

	circuitBreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dispatch",
		Subsystem: "scanservice",
		Name:      "circuit_breaker_state",
		Help:      "tracks the state of the circuit breaker; 0 = disabled; 1 = enabled; 2 = checking;",
	}, []string{})
	prometheus.MustRegister(circuitBreakerState)

	requestIsCircuitBreakerEnabled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "dispatch",
		Subsystem:   "scanservice",
		Name:        "request_is_circuit_breaker_enabled",
		Help:        "tracks whether the circuit breaker let a scan service request through",
		ConstLabels: map[string]string{},
	}, []string{"isEnabled"})
	prometheus.MustRegister(requestIsCircuitBreakerEnabled)

	circuitBreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   "dispatch",
		Subsystem:   "scanservice",
		Name:        "circuit_breaker_transitions",
		Help:        "tracks circuit breaker state transitions",
		ConstLabels: map[string]string{},
	}, []string{"from", "to"})
	prometheus.MustRegister(circuitBreakerTransitions)

	healthStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "dispatch",
		Subsystem: "scanservice",
		Name:      "health_status",
		Help:      "the status most recently reported by the scan service's health endpoint",
	}, []string{"status"})
	prometheus.MustRegister(healthStatus)
}
