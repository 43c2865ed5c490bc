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

package history

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var queryCounter *prometheus.CounterVec
var queryDuration *prometheus.HistogramVec

func recordQuery(name string, isSuccessful bool, duration time.Duration) {
	queryCounter.With(prometheus.Labels{"name": name, "success": fmt.Sprintf("%t", isSuccessful)}).Inc()
	queryDuration.With(prometheus.Labels{"name": name}).Observe(duration.Seconds())
}

func init() {
	queryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "history",
		Name:      "queries",
		Help:      "count of history queries by name and success",
	}, []string{"name", "success"})
	prometheus.MustRegister(queryCounter)

	queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "history",
		Name:      "query_duration",
		Help:      "time taken by history queries, in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"name"})
	prometheus.MustRegister(queryDuration)
}
