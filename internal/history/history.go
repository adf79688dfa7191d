// Copyright 2026 The Brewpair Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package history is the append-only ledger of who was paired with whom,
// by week. The matching engine queries it to avoid repeat pairings.
package history

import (
	"sort"
	"time"
)

// Record is one pairing outcome for one week. Members are stored sorted so
// the (tenant, members, week) uniqueness constraint dedupes regardless of
// insertion order.
type Record struct {
	TenantID string    `json:"tenant_id"`
	MemberA  string    `json:"member_a"`
	MemberB  string    `json:"member_b"`
	MemberC  *string   `json:"member_c,omitempty"`
	WeekOf   time.Time `json:"week_of"`
}

// NewRecord builds a Record with members in canonical sorted order.
// members must have 2 or 3 entries.
func NewRecord(tenantID string, members []string, weekOf time.Time) Record {
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)

	r := Record{
		TenantID: tenantID,
		MemberA:  sorted[0],
		MemberB:  sorted[1],
		WeekOf:   weekOf,
	}
	if len(sorted) > 2 {
		c := sorted[2]
		r.MemberC = &c
	}
	return r
}

// Members returns the record's members, two or three of them.
func (r Record) Members() []string {
	m := []string{r.MemberA, r.MemberB}
	if r.MemberC != nil {
		m = append(m, *r.MemberC)
	}
	return m
}

// MemberCount is a leaderboard row.
type MemberCount struct {
	UserID string `json:"user_id"`
	Chats  int    `json:"chats"`
}
