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

package archive

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var uploadCounter *prometheus.CounterVec
var uploadDuration *prometheus.HistogramVec

func recordArchiveUpload(object string, isSuccessful bool, duration time.Duration) {
	uploadCounter.With(prometheus.Labels{"object": object, "success": fmt.Sprintf("%t", isSuccessful)}).Inc()
	uploadDuration.With(prometheus.Labels{"object": object}).Observe(duration.Seconds())
}

func init() {
	uploadCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dispatch",
		Subsystem: "archive",
		Name:      "uploads",
		Help:      "count of archive uploads by object and success",
	}, []string{"object", "success"})
	prometheus.MustRegister(uploadCounter)

	uploadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dispatch",
		Subsystem: "archive",
		Name:      "upload_duration",
		Help:      "time taken by archive uploads, in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"object"})
	prometheus.MustRegister(uploadDuration)
}
