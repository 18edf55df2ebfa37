package scheduler

import (
	"testing"
	"time"

	"github.com/witlox/dcron/store"
	"github.com/witlox/dcron/wire"
)

func TestActiveNodesExcludesStale(t *testing.T) {
	st := store.New("")
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	st.PutStatus(wire.Status{IP: "10.0.0.1", Time: now.Add(-10 * time.Second)})
	st.PutStatus(wire.Status{IP: "10.0.0.2", Time: now.Add(-10 * time.Minute)})

	s := New(st, 180*time.Second)
	active := s.ActiveNodes(now)
	if len(active) != 1 || active[0] != "10.0.0.1" {
		t.Errorf("expected only 10.0.0.1 active, got %v", active)
	}
}

func TestIsValidDetectsUnassignedJob(t *testing.T) {
	st := store.New("")
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	st.PutStatus(wire.Status{IP: "10.0.0.1", Time: now})
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi"})

	s := New(st, 180*time.Second)
	if s.IsValid(now) {
		t.Error("expected invalid state for an unassigned job")
	}
}

func TestIsValidDetectsJobOnDeadNode(t *testing.T) {
	st := store.New("")
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	st.PutStatus(wire.Status{IP: "10.0.0.1", Time: now})
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi", AssignedTo: "10.0.0.99"})

	s := New(st, 180*time.Second)
	if s.IsValid(now) {
		t.Error("expected invalid state when assigned_to names a non-active node")
	}
}

func TestRebalanceLeavesNoJobUnassigned(t *testing.T) {
	st := store.New("")
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		st.PutStatus(wire.Status{IP: ip, Time: now})
	}
	for i := 0; i < 7; i++ {
		st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: jobCommand(i)})
	}

	s := New(st, 180*time.Second)
	if err := s.Rebalance(now, 42); err != nil {
		t.Fatalf("Rebalance: %v", err)
	}

	for _, j := range st.Jobs() {
		if j.AssignedTo == "" {
			t.Errorf("expected every job assigned after rebalance, got %+v", j)
		}
	}
	if !s.IsValid(now) {
		t.Error("expected check_cluster_state to be valid immediately after rebalance")
	}
}

func TestRebalanceIsNoOpWithoutActiveNodes(t *testing.T) {
	st := store.New("")
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi"})

	s := New(st, 180*time.Second)
	if err := s.Rebalance(now, 1); err != nil {
		t.Fatalf("Rebalance: %v", err)
	}
	if s.IsValid(now) {
		t.Error("expected state to remain invalid with no active nodes")
	}
}

func TestRebalanceIsDeterministicGivenSeed(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	build := func() *store.Store {
		st := store.New("")
		for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
			st.PutStatus(wire.Status{IP: ip, Time: now})
		}
		for i := 0; i < 5; i++ {
			st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: jobCommand(i)})
		}
		return st
	}

	st1 := build()
	New(st1, 180*time.Second).Rebalance(now, 7)
	st2 := build()
	New(st2, 180*time.Second).Rebalance(now, 7)

	for i := 0; i < 5; i++ {
		j1, _ := st1.Job("* * * * *", jobCommand(i))
		j2, _ := st2.Job("* * * * *", jobCommand(i))
		if j1.AssignedTo != j2.AssignedTo {
			t.Errorf("expected the same seed to produce the same placement for %s: %q vs %q", jobCommand(i), j1.AssignedTo, j2.AssignedTo)
		}
	}
}

func TestRebalanceSeparatesOverlappingPatternsWhenPossible(t *testing.T) {
	st := store.New("")
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		st.PutStatus(wire.Status{IP: ip, Time: now})
	}
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "a"})
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "b"})

	s := New(st, 180*time.Second)
	if err := s.Rebalance(now, 3); err != nil {
		t.Fatalf("Rebalance: %v", err)
	}

	a, _ := st.Job("* * * * *", "a")
	b, _ := st.Job("* * * * *", "b")
	if a.AssignedTo == b.AssignedTo {
		t.Errorf("expected overlapping patterns separated across 2 active nodes, both landed on %q", a.AssignedTo)
	}
}

func jobCommand(i int) string {
	return string(rune('a' + i))
}
