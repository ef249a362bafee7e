/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package raft

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	electionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raftkv_elections_started_total",
		Help: "Number of times this node started an election.",
	})
	votesGranted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raftkv_votes_granted_total",
		Help: "Number of request_vote RPCs this node granted.",
	})
	votesDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raftkv_votes_denied_total",
		Help: "Number of request_vote RPCs this node denied.",
	})
	appendEntriesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raftkv_append_entries_accepted_total",
		Help: "Number of append_entries RPCs accepted, counted by a follower on acceptance and by the leader per success response.",
	})
	appendEntriesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "raftkv_append_entries_rejected_total",
		Help: "Number of append_entries RPCs rejected, counted by a follower on rejection and by the leader per failure response.",
	})
	commitIndexGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raftkv_commit_index",
		Help: "Highest log index known to be committed.",
	})
	lastAppliedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raftkv_last_applied_index",
		Help: "Highest log index applied to the key-value state machine.",
	})
	isLeaderGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raftkv_is_leader",
		Help: "1 if this node currently believes it is the leader, else 0.",
	})
	currentTermGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "raftkv_current_term",
		Help: "This node's current Raft term.",
	})
)

// publishMetricsLocked refreshes the gauges from the node's current state.
// Called with the node mutex held, after every state transition that could
// move one of these values.
func (n *Node) publishMetricsLocked() {
	commitIndexGauge.Set(float64(n.commitIndex))
	lastAppliedGauge.Set(float64(n.lastApplied))
	currentTermGauge.Set(float64(n.currentTerm))
	if n.role == RoleLeader {
		isLeaderGauge.Set(1)
	} else {
		isLeaderGauge.Set(0)
	}
}
