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
	"fmt"
	"math"
	"strings"
	"time"
)

// FormatScanDuration renders a scan's elapsed time for display:
//   - non-positive spans are "0s"
//   - a minute or more is "<m>m <s>s", seconds rounded
//   - anything shorter is seconds with one decimal, "3.5s"
func FormatScanDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	totalSeconds := d.Seconds()
	if totalSeconds >= 60 {
		minutes := int(math.Floor(totalSeconds / 60))
		seconds := int(math.Round(math.Mod(totalSeconds, 60)))
		if seconds == 60 {
			minutes++
			seconds = 0
		}
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.1fs", totalSeconds)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses the report timestamps the scan service produces.
// They're ISO 8601, frequently without a zone; zoneless values are UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, time.UTC)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp %q", value)
}
