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

// Package matching pairs eligible members for the week. It prefers
// partners that have never met within the history window, falls back to
// the longest-ago pairing, keeps timezone affinity as a soft preference,
// and absorbs a single global leftover into a trio.
package matching

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brewpair/brewpair/internal/history"
	"github.com/brewpair/brewpair/internal/roster"
)

// Pair is one proposed pairing with its slot assignment.
type Pair struct {
	MemberA string
	MemberB string
	MemberC *string

	SlotLabel string
	// NeedsCoordination flags pairs that share a reused slot because the
	// pool ran out; the collision is surfaced to humans, never dropped.
	NeedsCoordination bool
}

// Members returns the pair's members, two or three of them.
func (p Pair) Members() []string {
	m := []string{p.MemberA, p.MemberB}
	if p.MemberC != nil {
		m = append(m, *p.MemberC)
	}
	return m
}

// Options tunes a matching run.
type Options struct {
	TotalSlots int
	SlotPrefix string

	// Rand drives shuffling and trio selection; tests inject a seeded
	// source, callers leave it nil for a time-seeded one.
	Rand *rand.Rand
}

// Match pairs the given members. The caller guarantees len(members) >= 2;
// every member ends up in exactly one pair, with at most one trio.
func Match(members []*roster.Member, hist []history.Record, opts Options) []Pair {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	seen, lastMet := indexHistory(hist)

	// Partition into region buckets and shuffle each independently to
	// avoid positional bias.
	buckets := make(map[roster.Region][]string)
	for _, m := range members {
		buckets[m.Region] = append(buckets[m.Region], m.UserID)
	}
	for _, bucket := range buckets {
		shuffle(rng, bucket)
	}

	var pairs []Pair
	var remainder []string

	for _, region := range roster.Regions {
		bucket := buckets[region]
		for len(bucket) >= 2 {
			var pair Pair
			pair, bucket = popPair(bucket, seen, lastMet)
			pairs = append(pairs, pair)
		}
		if len(bucket) == 1 {
			remainder = append(remainder, bucket[0])
		}
	}

	// Cross-region fallback over the leftovers: affinity is a soft
	// preference, nobody sits out for being alone in their bucket.
	for len(remainder) >= 2 {
		var pair Pair
		pair, remainder = popPair(remainder, seen, lastMet)
		pairs = append(pairs, pair)
	}

	// A single globally-unpaired member joins a random pair as a trio.
	if len(remainder) == 1 && len(pairs) > 0 {
		third := remainder[0]
		pairs[rng.Intn(len(pairs))].MemberC = &third
	}

	assignSlots(pairs, opts)
	return pairs
}

// popPair takes the last member of pool and their best partner, returning
// the pair and the shrunken pool.
func popPair(pool []string, seen map[string]struct{}, lastMet map[string]time.Time) (Pair, []string) {
	first := pool[len(pool)-1]
	pool = pool[:len(pool)-1]

	partner := bestPartner(first, pool, seen, lastMet)
	pool = remove(pool, partner)

	return Pair{MemberA: first, MemberB: partner}, pool
}

// bestPartner prefers the first candidate never met within the window; when
// everyone has met, it picks the candidate whose last pairing is oldest.
// Ties stay in shuffled order.
func bestPartner(user string, candidates []string, seen map[string]struct{}, lastMet map[string]time.Time) string {
	for _, c := range candidates {
		if _, met := seen[pairKey(user, c)]; !met {
			return c
		}
	}

	best := candidates[0]
	bestDate, haveDate := lastMet[pairKey(user, best)]
	for _, c := range candidates[1:] {
		date, ok := lastMet[pairKey(user, c)]
		if !haveDate || (ok && date.Before(bestDate)) {
			best = c
			bestDate = date
			haveDate = ok
		}
	}
	return best
}

// indexHistory builds the set of every unordered pair seen in the window
// and the most recent week each pair met. A trio record contributes all
// three of its pairs.
func indexHistory(hist []history.Record) (map[string]struct{}, map[string]time.Time) {
	seen := make(map[string]struct{})
	lastMet := make(map[string]time.Time)

	for _, rec := range hist {
		members := rec.Members()
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				key := pairKey(members[i], members[j])
				seen[key] = struct{}{}
				if prev, ok := lastMet[key]; !ok || rec.WeekOf.After(prev) {
					lastMet[key] = rec.WeekOf
				}
			}
		}
	}
	return seen, lastMet
}

// pairKey is the canonical unordered key for two user IDs.
func pairKey(a, b string) string {
	if a < b {
		return a + ":" + b
	}
	return b + ":" + a
}

// assignSlots hands out slot labels round-robin over the fixed pool;
// pairs beyond the pool reuse labels and are flagged for coordination.
func assignSlots(pairs []Pair, opts Options) {
	if opts.TotalSlots < 1 {
		opts.TotalSlots = 1
	}
	for i := range pairs {
		pairs[i].SlotLabel = SlotLabel(opts.SlotPrefix, i%opts.TotalSlots+1)
		if i >= opts.TotalSlots {
			pairs[i].NeedsCoordination = true
		}
	}
}

// SlotLabel renders the canonical label for a slot number.
func SlotLabel(prefix string, number int) string {
	return fmt.Sprintf("%s%02d", prefix, number)
}

func shuffle(rng *rand.Rand, s []string) {
	rng.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

func remove(pool []string, user string) []string {
	for i, u := range pool {
		if u == user {
			return append(pool[:i], pool[i+1:]...)
		}
	}
	return pool
}
