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
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var httpRequestCounter *prometheus.CounterVec
var httpRequestDuration *prometheus.HistogramVec

func recordHTTPRequest(method string, status int, duration time.Duration) {
	httpRequestCounter.With(prometheus.Labels{"method": method, "code": strconv.Itoa(status)}).Inc()
	httpRequestDuration.With(prometheus.Labels{"method": method}).Observe(duration.Seconds())
}

func init() {
	httpRequestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "http",
		Name:      "requests",
		Help:      "count of http requests served, by method and status code",
	}, []string{"method", "code"})
	prometheus.MustRegister(httpRequestCounter)

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "http",
		Name:      "request_duration",
		Help:      "time taken to serve http requests, in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
	}, []string{"method"})
	prometheus.MustRegister(httpRequestDuration)
}
