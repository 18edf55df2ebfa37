package processor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/witlox/dcron/packet"
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

type fakeProcesses struct {
	mu      sync.Mutex
	killed  []int
	matches bool
	runErr  error
	result  RunResult
}

func (f *fakeProcesses) Run(ctx context.Context, command string) (RunResult, error) {
	return f.result, f.runErr
}

func (f *fakeProcesses) MatchesCommand(pid int, command string) (bool, error) {
	return f.matches, nil
}

func (f *fakeProcesses) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.killed = append(f.killed, pid)
	return nil
}

func enqueueMessage(t *testing.T, p *Processor, msg wire.Message, hmacKey []byte) {
	t.Helper()
	buf, err := wire.Encode(msg, hmacKey)
	if err != nil {
		t.Fatalf("wire.Encode: %v", err)
	}
	for _, frag := range packet.Fragment("11111111-1111-1111-1111-111111111111", buf) {
		if err := p.Enqueue(packet.Encode(frag)); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
}

func TestStatusDispatchUpdatesStore(t *testing.T) {
	st := store.New("")
	p := New(st, Config{SelfIP: "10.0.0.1"})
	enqueueMessage(t, p, wire.Status{IP: "10.0.0.2", Load: 0.5, State: wire.StateRunning}, nil)
	p.Drain(context.Background())

	if _, ok := st.Current("10.0.0.2"); !ok {
		t.Error("expected status to reach the store")
	}
}

func TestJobUpsertAppendsToOwnedCrontab(t *testing.T) {
	st := store.New("")
	crontab, err := NewFileCrontab(filepath.Join(t.TempDir(), "crontab"))
	if err != nil {
		t.Fatalf("NewFileCrontab: %v", err)
	}
	p := New(st, Config{SelfIP: "10.0.0.1", Crontab: crontab})

	enqueueMessage(t, p, wire.Job{Pattern: "* * * * *", Command: "echo hi", AssignedTo: "10.0.0.1"}, nil)
	p.Drain(context.Background())

	lines, err := crontab.readLines()
	if err != nil {
		t.Fatalf("readLines: %v", err)
	}
	if len(lines) != 1 || lines[0] != "echo hi" {
		t.Errorf("expected the owned job appended to the local crontab, got %v", lines)
	}
	if len(st.Jobs()) != 1 {
		t.Error("expected the job to also land in the store")
	}
}

func TestJobUpsertDoesNotTouchCrontabWhenNotOwner(t *testing.T) {
	st := store.New("")
	crontab, err := NewFileCrontab(filepath.Join(t.TempDir(), "crontab"))
	if err != nil {
		t.Fatalf("NewFileCrontab: %v", err)
	}
	p := New(st, Config{SelfIP: "10.0.0.1", Crontab: crontab})

	enqueueMessage(t, p, wire.Job{Pattern: "* * * * *", Command: "echo hi", AssignedTo: "10.0.0.9"}, nil)
	p.Drain(context.Background())

	lines, _ := crontab.readLines()
	if len(lines) != 0 {
		t.Errorf("expected no local crontab mutation for a job owned elsewhere, got %v", lines)
	}
}

func TestJobRemoveKillsMatchingProcessAndPurgesCrontab(t *testing.T) {
	st := store.New("")
	crontab, err := NewFileCrontab(filepath.Join(t.TempDir(), "crontab"))
	if err != nil {
		t.Fatalf("NewFileCrontab: %v", err)
	}
	procs := &fakeProcesses{matches: true}
	p := New(st, Config{SelfIP: "10.0.0.1", Crontab: crontab, Processes: procs})

	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi", AssignedTo: "10.0.0.1", Pid: 1234})
	_ = crontab.Append("echo hi")

	enqueueMessage(t, p, wire.Job{Pattern: "* * * * *", Command: "echo hi", AssignedTo: "10.0.0.1", Pid: 1234, Remove: true}, nil)
	p.Drain(context.Background())

	if len(procs.killed) != 1 || procs.killed[0] != 1234 {
		t.Errorf("expected pid 1234 killed, got %v", procs.killed)
	}
	lines, _ := crontab.readLines()
	if len(lines) != 0 {
		t.Errorf("expected crontab entry removed, got %v", lines)
	}
	if len(st.Jobs()) != 0 {
		t.Error("expected job removed from the store")
	}
}

func TestRebalanceClearsJobsAndCrontabAndBuffer(t *testing.T) {
	st := store.New("")
	crontab, err := NewFileCrontab(filepath.Join(t.TempDir(), "crontab"))
	if err != nil {
		t.Fatalf("NewFileCrontab: %v", err)
	}
	p := New(st, Config{SelfIP: "10.0.0.1", Crontab: crontab})

	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi"})
	_ = crontab.Append("echo hi")

	enqueueMessage(t, p, wire.Rebalance{}, nil)
	p.Drain(context.Background())

	if len(st.Jobs()) != 0 {
		t.Error("expected jobs cleared on rebalance")
	}
	lines, _ := crontab.readLines()
	if len(lines) != 0 {
		t.Error("expected local crontab purged on rebalance")
	}
}

func TestToggleFlipsEnabledAndRebroadcasts(t *testing.T) {
	st := store.New("")
	bc := &fakeBroadcaster{}
	p := New(st, Config{SelfIP: "10.0.0.1", Broadcaster: bc})

	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi", Enabled: true})
	enqueueMessage(t, p, wire.Toggle{Job: wire.Job{Pattern: "* * * * *", Command: "echo hi"}}, nil)
	p.Drain(context.Background())

	j, ok := st.Job("* * * * *", "echo hi")
	if !ok || j.Enabled {
		t.Errorf("expected job disabled after toggle, got %+v ok=%v", j, ok)
	}
	if len(bc.out) != 1 {
		t.Errorf("expected one rebroadcast, got %d", len(bc.out))
	}
}

func TestKillRefusesWhenCommandNoLongerMatches(t *testing.T) {
	st := store.New("")
	procs := &fakeProcesses{matches: false}
	p := New(st, Config{SelfIP: "10.0.0.1", Processes: procs})

	enqueueMessage(t, p, wire.Kill{Job: wire.Job{Command: "echo hi", AssignedTo: "10.0.0.1"}, Pid: 999}, nil)
	p.Drain(context.Background())

	if len(procs.killed) != 0 {
		t.Errorf("expected no kill when the command line no longer matches, got %v", procs.killed)
	}
}

func TestMalformedDatagramIsDroppedNotPanicked(t *testing.T) {
	st := store.New("")
	p := New(st, Config{SelfIP: "10.0.0.1"})

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("expected no panic on a malformed datagram, got %v", r)
		}
	}()
	_ = p.Enqueue(make([]byte, packet.Size))
	p.Drain(context.Background())
}

func TestHMACMismatchDropsGroupWithoutDispatch(t *testing.T) {
	st := store.New("")
	p := New(st, Config{SelfIP: "10.0.0.1", HMACKey: []byte("expected")})

	buf, err := wire.Encode(wire.Status{IP: "10.0.0.2"}, []byte("wrong-key"))
	if err != nil {
		t.Fatalf("wire.Encode: %v", err)
	}
	for _, frag := range packet.Fragment("22222222-2222-2222-2222-222222222222", buf) {
		_ = p.Enqueue(packet.Encode(frag))
	}
	p.Drain(context.Background())

	if _, ok := st.Current("10.0.0.2"); ok {
		t.Error("expected an HMAC-mismatched message never to reach the store")
	}
}

func TestReassemblyBufferDropsOldestPastCap(t *testing.T) {
	st := store.New("")
	p := New(st, Config{SelfIP: "10.0.0.1", BufferCap: 1})

	p.groupFor("aaaa")
	p.groupFor("bbbb")

	p.bmu.Lock()
	stillThere := p.buf.Get("aaaa") != nil
	newOne := p.buf.Get("bbbb") != nil
	p.bmu.Unlock()

	if stillThere {
		t.Error("expected the oldest group evicted once the buffer cap was exceeded")
	}
	if !newOne {
		t.Error("expected the newest group retained")
	}
}
