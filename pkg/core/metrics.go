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

package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var reducerActivityCounter *prometheus.CounterVec
var reducerActionDuration *prometheus.HistogramVec
var pollAttemptCounter prometheus.Counter
var pollOutcomeCounter *prometheus.CounterVec
var reviewCounter *prometheus.CounterVec
var applyCounter *prometheus.CounterVec
var scanDurationHistogram prometheus.Histogram
var sideEffectErrorCounter *prometheus.CounterVec

func recordReducerActivity(action string, duration time.Duration) {
	reducerActivityCounter.With(prometheus.Labels{"action": action}).Inc()
	reducerActionDuration.With(prometheus.Labels{"action": action}).Observe(duration.Seconds())
}

func recordPollAttempt() {
	pollAttemptCounter.Inc()
}

func recordPollOutcome(outcome string) {
	pollOutcomeCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func recordReview(decision string, outcome string) {
	reviewCounter.With(prometheus.Labels{"decision": decision, "outcome": outcome}).Inc()
}

func recordApply(outcome string) {
	applyCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

func recordScanDuration(duration time.Duration) {
	scanDurationHistogram.Observe(duration.Seconds())
}

func recordSideEffectError(name string) {
	sideEffectErrorCounter.With(prometheus.Labels{"name": name}).Inc()
}

func init() {
	reducerActivityCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "reducer_activity",
		Help:      "count of actions processed by the reducer",
	}, []string{"action"})
	prometheus.MustRegister(reducerActivityCounter)

	reducerActionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "reducer_action_duration",
		Help:      "time taken by the reducer to apply an action, in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"action"})
	prometheus.MustRegister(reducerActionDuration)

	pollAttemptCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "poll_attempts",
		Help:      "count of scan status polls issued",
	})
	prometheus.MustRegister(pollAttemptCounter)

	pollOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "poll_outcomes",
		Help:      "how polling for a scan ended: complete, failed, timeout or error",
	}, []string{"outcome"})
	prometheus.MustRegister(pollOutcomeCounter)

	reviewCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "finding_reviews",
		Help:      "count of finding review requests by decision and outcome",
	}, []string{"decision", "outcome"})
	prometheus.MustRegister(reviewCounter)

	applyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "patch_applications",
		Help:      "count of patch application requests by outcome",
	}, []string{"outcome"})
	prometheus.MustRegister(applyCounter)

	scanDurationHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "scan_duration",
		Help:      "time from scan submission to the report's timestamp, in seconds",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
	prometheus.MustRegister(scanDurationHistogram)

	sideEffectErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "core",
		Name:      "side_effect_errors",
		Help:      "count of failures to archive or record scan results",
	}, []string{"name"})
	prometheus.MustRegister(sideEffectErrorCounter)
}
