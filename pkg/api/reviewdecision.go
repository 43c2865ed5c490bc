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

package api

import "fmt"

// ReviewDecision is the intent of a finding review request.  Reset is its
// own decision rather than a flag on approve.
type ReviewDecision int

// .....
const (
	ReviewDecisionApprove ReviewDecision = iota
	ReviewDecisionReject  ReviewDecision = iota
	ReviewDecisionReset   ReviewDecision = iota
)

// String .....
func (d ReviewDecision) String() string {
	switch d {
	case ReviewDecisionApprove:
		return "approve"
	case ReviewDecisionReject:
		return "reject"
	case ReviewDecisionReset:
		return "reset"
	}
	panic(fmt.Errorf("invalid ReviewDecision value: %d", d))
}

// TargetState is the state a finding ends up in once the decision is acknowledged.
func (d ReviewDecision) TargetState() ApprovalState {
	switch d {
	case ReviewDecisionApprove:
		return ApprovalStateApproved
	case ReviewDecisionReject:
		return ApprovalStateRejected
	case ReviewDecisionReset:
		return ApprovalStatePending
	}
	panic(fmt.Errorf("invalid ReviewDecision value: %d", d))
}

// MarshalText .....
func (d ReviewDecision) MarshalText() (text []byte, err error) {
	return []byte(d.String()), nil
}

// ApprovalState of a single finding.
type ApprovalState int

// .....
const (
	ApprovalStatePending  ApprovalState = iota
	ApprovalStateApproved ApprovalState = iota
	ApprovalStateRejected ApprovalState = iota
)

// String .....
func (s ApprovalState) String() string {
	switch s {
	case ApprovalStatePending:
		return "pending"
	case ApprovalStateApproved:
		return "approved"
	case ApprovalStateRejected:
		return "rejected"
	}
	panic(fmt.Errorf("invalid ApprovalState value: %d", s))
}

// Flags returns the (approved, rejected) pair for the state.  The two are
// never both true.
func (s ApprovalState) Flags() (approved bool, rejected bool) {
	switch s {
	case ApprovalStateApproved:
		return true, false
	case ApprovalStateRejected:
		return false, true
	case ApprovalStatePending:
		return false, false
	}
	panic(fmt.Errorf("invalid ApprovalState value: %d", s))
}

// MarshalJSON .....
func (s ApprovalState) MarshalJSON() ([]byte, error) {
	jsonString := fmt.Sprintf(`"%s"`, s.String())
	return []byte(jsonString), nil
}

// MarshalText .....
func (s ApprovalState) MarshalText() (text []byte, err error) {
	return []byte(s.String()), nil
}
