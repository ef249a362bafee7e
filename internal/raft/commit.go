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

import "sort"

// median returns sorted(xs)[len(xs) - majority(len(xs))], the lower-biased
// median spec §4.6 and §8 property 7 define. Never called with an empty
// slice: the caller always includes the leader's own log size.
func median(xs []uint64) uint64 {
	sorted := append([]uint64(nil), xs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[len(sorted)-majority(len(sorted))]
}

// LeaderAdvanceCommitIndex recomputes commit_index from the leader's view
// of match_index across all peers, exported for tests that want to drive
// commit advancement without a full maintenance tick.
func (n *Node) LeaderAdvanceCommitIndex() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leaderAdvanceCommitIndexLocked()
}

func (n *Node) leaderAdvanceCommitIndexLocked() {
	if n.role != RoleLeader {
		return
	}

	values := make([]uint64, 0, len(n.peerIDs)+1)
	for _, peer := range n.peerIDs {
		values = append(values, n.matchIndex[peer])
	}
	values = append(values, n.raftLog.Size())

	candidate := median(values)
	if candidate > n.commitIndex && n.raftLog.Get(candidate).Term == n.currentTerm {
		n.commitIndex = candidate
		n.publishMetricsLocked()
	}
}
