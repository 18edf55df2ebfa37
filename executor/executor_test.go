package executor

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/witlox/dcron/store"
	"github.com/witlox/dcron/wire"
)

type fakeBroadcaster struct {
	mu  sync.Mutex
	out []wire.Message
}

func (f *fakeBroadcaster) Broadcast(msg wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, msg)
	return nil
}

func (f *fakeBroadcaster) messages() []wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wire.Message(nil), f.out...)
}

func TestHeartbeatEmitsStatusAndBroadcasts(t *testing.T) {
	st := store.New("")
	bc := &fakeBroadcaster{}
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	e := New(Config{SelfIP: "10.0.0.1", Store: st, Broadcaster: bc, Now: func() time.Time { return now }})

	if err := e.heartbeat(context.Background()); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	s, ok := st.Current("10.0.0.1")
	if !ok {
		t.Fatal("expected a status entry after heartbeat")
	}
	if s.State != wire.StateRunning {
		t.Errorf("expected state running, got %q", s.State)
	}
	if len(bc.messages()) != 1 {
		t.Errorf("expected one broadcast status, got %d", len(bc.messages()))
	}
}

func TestTickLaunchesDueOwnedJobAndUpdatesStore(t *testing.T) {
	st := store.New("")
	bc := &fakeBroadcaster{}
	now := time.Date(2026, 7, 31, 12, 15, 0, 0, time.UTC)
	e := New(Config{SelfIP: "10.0.0.1", Store: st, Broadcaster: bc, Now: func() time.Time { return now }})

	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hello", Enabled: true, AssignedTo: "10.0.0.1"})

	if err := e.tickJob(context.Background()); err != nil {
		t.Fatalf("tickJob: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if j, ok := st.Job("* * * * *", "echo hello"); ok && !j.LastRun.IsZero() {
			if j.LastExitCode == nil || *j.LastExitCode != 0 {
				t.Errorf("expected exit code 0 for `echo hello`, got %+v", j.LastExitCode)
			}
			if len(bc.messages()) == 0 {
				t.Error("expected the run result to be rebroadcast")
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected the due job to have run within the deadline")
}

func TestTickSkipsJobsNotOwnedOrDisabled(t *testing.T) {
	st := store.New("")
	now := time.Date(2026, 7, 31, 12, 15, 0, 0, time.UTC)
	e := New(Config{SelfIP: "10.0.0.1", Store: st, Now: func() time.Time { return now }})

	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo not-owned", Enabled: true, AssignedTo: "10.0.0.2"})
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo disabled", Enabled: false, AssignedTo: "10.0.0.1"})

	if err := e.tickJob(context.Background()); err != nil {
		t.Fatalf("tickJob: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	for _, cmd := range []string{"echo not-owned", "echo disabled"} {
		if j, ok := st.Job("* * * * *", cmd); ok && !j.LastRun.IsZero() {
			t.Errorf("expected %q never to run, got LastRun=%v", cmd, j.LastRun)
		}
	}
}

func TestRunCapturesExitCodeAndOutput(t *testing.T) {
	e := New(Config{SelfIP: "10.0.0.1", Store: store.New("")})
	result, err := e.Run(context.Background(), "echo -n hi; exit 3")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", result.ExitCode)
	}
	if result.Stdout != "hi" {
		t.Errorf("expected stdout %q, got %q", "hi", result.Stdout)
	}
}

func TestKillRefusesSelfPid(t *testing.T) {
	e := New(Config{SelfIP: "10.0.0.1", Store: store.New("")})
	if err := e.Kill(os.Getpid()); err == nil {
		t.Error("expected Kill to refuse the current process's own pid")
	}
}

func TestMatchesCommandFalseForUnknownPid(t *testing.T) {
	e := New(Config{SelfIP: "10.0.0.1", Store: store.New("")})
	ok, err := e.MatchesCommand(1<<30, "echo hi")
	if err != nil {
		t.Fatalf("MatchesCommand: %v", err)
	}
	if ok {
		t.Error("expected no match for a nonexistent pid")
	}
}
