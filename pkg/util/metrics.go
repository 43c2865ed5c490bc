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

package util

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var timerActionDuration *prometheus.HistogramVec

func recordTimerAction(name string, elapsed time.Duration) {
	timerActionDuration.With(prometheus.Labels{"timer": name}).Observe(elapsed.Seconds())
}

func init() {
	timerActionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "util",
		Name:      "timer_action_duration",
		Help:      "time taken by the actions of periodic timers, in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"timer"})

	prometheus.MustRegister(timerActionDuration)
}
