// Package scheduler implements cluster-state liveness, the validity check,
// and the rebalance algorithm — spec §4.5. It never mutates process or
// transport state directly; it only reads and writes the shared store,
// which is safe for the store's own internal locking to serialize.
package scheduler

import (
	"math/rand"
	"time"

	"github.com/witlox/dcron/errutils"
	"github.com/witlox/dcron/l3"
	"github.com/witlox/dcron/store"
	"github.com/witlox/dcron/wire"
)

var logger = l3.Get()

// DefaultStaleness is the liveness window spec §4.5 recommends: a node
// with no Status newer than this is considered disconnected.
const DefaultStaleness = 180 * time.Second

// Scheduler evaluates cluster validity and computes job placement.
type Scheduler struct {
	store     *store.Store
	staleness time.Duration
}

// New creates a Scheduler bound to st. staleness <= 0 uses DefaultStaleness.
func New(st *store.Store, staleness time.Duration) *Scheduler {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Scheduler{store: st, staleness: staleness}
}

// ActiveNodes returns the ips whose latest Status is within the staleness
// window of now, sorted for deterministic iteration.
func (s *Scheduler) ActiveNodes(now time.Time) []string {
	var active []string
	for _, st := range s.store.ClusterState() {
		if now.Sub(st.Time) < s.staleness {
			active = append(active, st.IP)
		}
	}
	return active
}

// IsValid reports whether every job is assigned to a currently active
// node — spec §4.5's check_cluster_state, minus the rebalance side effect.
func (s *Scheduler) IsValid(now time.Time) bool {
	active := make(map[string]bool)
	for _, ip := range s.ActiveNodes(now) {
		active[ip] = true
	}
	for _, j := range s.store.Jobs() {
		if j.AssignedTo == "" || !active[j.AssignedTo] {
			return false
		}
	}
	return true
}

// CheckClusterState runs the validity check and, when invalid, rebalances
// in place. It returns whether the state was valid *before* any rebalance
// this call performed — the caller uses a false return to decide whether
// to broadcast a Rebalance message and a fresh round of Job announcements,
// per spec §4.5.
func (s *Scheduler) CheckClusterState(now time.Time, rngSeed int64) bool {
	if s.IsValid(now) {
		return true
	}
	if err := s.Rebalance(now, rngSeed); err != nil {
		logger.WarnF("scheduler: rebalance: %v", err)
	}
	return false
}

// Rebalance shuffles the current job set (deterministically, given seed),
// partitions it into len(active) near-equal chunks by index mod
// len(active), assigns each chunk to its corresponding node, then runs a
// greedy pass swapping same-pattern ("overlapping") jobs off the same node
// when an eligible swap partner exists. A no-op when no node is active.
func (s *Scheduler) Rebalance(now time.Time, rngSeed int64) error {
	active := s.ActiveNodes(now)
	if len(active) == 0 {
		logger.WarnF("scheduler: rebalance is a no-op, no active nodes")
		return nil
	}

	jobs := s.store.Jobs()
	if len(jobs) == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(rngSeed))
	rng.Shuffle(len(jobs), func(i, j int) { jobs[i], jobs[j] = jobs[j], jobs[i] })

	assignment := make([]int, len(jobs)) // index into active
	for i := range jobs {
		assignment[i] = i % len(active)
	}

	resolveOverlaps(jobs, assignment, len(active))

	errs := errutils.NewMultiErr(nil)
	for i, j := range jobs {
		ip := active[assignment[i]]
		errs.Add(s.store.UpdateAssignment(j.Pattern, j.Command, ip))
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// resolveOverlaps runs a single greedy pass: for every pair of jobs that
// share a pattern and landed on the same node, swap one of them with a
// job on a different node that doesn't already share that pattern there,
// when such a swap exists. Best-effort only — spec §4.5 only requires
// placing overlapping jobs on distinct nodes "when possible".
func resolveOverlaps(jobs []wire.Job, assignment []int, nodeCount int) {
	if nodeCount < 2 {
		return
	}
	for i := range jobs {
		for k := i + 1; k < len(jobs); k++ {
			if jobs[i].Pattern != jobs[k].Pattern {
				continue
			}
			if assignment[i] != assignment[k] {
				continue
			}
			// jobs[i] and jobs[k] overlap and share a node; find some
			// other job m on a different node whose pattern differs from
			// i's, and swap the nodes of k and m. Whether k then collides
			// with another job on m's node is not checked.
			for m := range jobs {
				if m == i || m == k {
					continue
				}
				if assignment[m] == assignment[k] {
					continue
				}
				if jobs[m].Pattern == jobs[i].Pattern {
					continue
				}
				assignment[k], assignment[m] = assignment[m], assignment[k]
				break
			}
		}
	}
}
