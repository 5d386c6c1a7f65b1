// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package cluster

import "container/list"

// MatcherStats counts the ways a queued cluster can fail to be paired.
type MatcherStats struct {
	ClustersNoCoincidence  int64
	ClustersMatchedXOnly   int64
	ClustersMatchedYOnly   int64
}

// Matcher pairs clusters arriving on two per-plane FIFOs into Events by
// comparing their center times. It is the sole point where cross-plane
// ordering is enforced; within each plane's queue, clusters keep arrival
// order.
type Matcher struct {
	maxMatchGap  uint64
	safetyMargin uint64

	queueX *list.List // of Cluster
	queueY *list.List // of Cluster

	latestSeen uint64

	Stats MatcherStats
}

// NewMatcher constructs a Matcher. maxMatchGap bounds the difference
// between two clusters' center times for them to be considered a match;
// safetyMargin delays non-final matching until a cluster's right edge is
// safely behind the latest time seen, so a cluster that could still gain
// a partner is not matched prematurely.
func NewMatcher(maxMatchGap, safetyMargin uint64) *Matcher {
	return &Matcher{
		maxMatchGap:  maxMatchGap,
		safetyMargin: safetyMargin,
		queueX:       list.New(),
		queueY:       list.New(),
	}
}

// PushX enqueues a cluster on the X-plane FIFO.
func (m *Matcher) PushX(c Cluster) {
	m.queueX.PushBack(c)
	m.track(c)
}

// PushY enqueues a cluster on the Y-plane FIFO.
func (m *Matcher) PushY(c Cluster) {
	m.queueY.PushBack(c)
	m.track(c)
}

func (m *Matcher) track(c Cluster) {
	if c.TimeEnd > m.latestSeen {
		m.latestSeen = c.TimeEnd
	}
}

// Match drains as many eligible head-of-queue pairs as possible, in
// queue order, and returns the resulting Events. When flush is false,
// only clusters whose TimeEnd already lies more than safetyMargin behind
// the latest time seen are eligible, so a cluster that might still gain a
// same-time partner on the other plane is left queued.
func (m *Matcher) Match(flush bool) []Event {
	var events []Event

	for {
		xFront := m.queueX.Front()
		yFront := m.queueY.Front()

		if xFront == nil && yFront == nil {
			break
		}

		if !flush {
			if xFront != nil && !m.eligible(xFront.Value.(Cluster)) {
				xFront = nil
			}
			if yFront != nil && !m.eligible(yFront.Value.(Cluster)) {
				yFront = nil
			}
			if xFront == nil && yFront == nil {
				break
			}
		}

		switch {
		case xFront != nil && yFront == nil:
			if !flush {
				return events
			}
			m.queueX.Remove(xFront)
			m.Stats.ClustersMatchedXOnly++
		case yFront != nil && xFront == nil:
			if !flush {
				return events
			}
			m.queueY.Remove(yFront)
			m.Stats.ClustersMatchedYOnly++
		default:
			cx := xFront.Value.(Cluster)
			cy := yFront.Value.(Cluster)
			diff := cx.CenterTime() - cy.CenterTime()
			if diff < 0 {
				diff = -diff
			}
			if diff <= float64(m.maxMatchGap) {
				m.queueX.Remove(xFront)
				m.queueY.Remove(yFront)
				events = append(events, Event{X: cx, Y: cy})
				continue
			}
			// Not within the window: drop the older of the two heads and
			// retry, since it can never match anything still queued.
			if cx.CenterTime() < cy.CenterTime() {
				m.queueX.Remove(xFront)
				m.Stats.ClustersNoCoincidence++
			} else {
				m.queueY.Remove(yFront)
				m.Stats.ClustersNoCoincidence++
			}
		}
	}

	return events
}

// DrainStats returns the counters accumulated since the last DrainStats
// call (or since construction) and resets them to zero.
func (m *Matcher) DrainStats() MatcherStats {
	s := m.Stats
	m.Stats = MatcherStats{}
	return s
}

func (m *Matcher) eligible(c Cluster) bool {
	if c.TimeEnd+m.safetyMargin >= m.latestSeen {
		return false
	}
	return true
}
