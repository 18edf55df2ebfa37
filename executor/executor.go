// Package executor runs the two cooperating loops of spec §4.6 — a 5s
// heartbeat and a 15s tick — on top of chrono.Scheduler, the same
// interval-job primitive the teacher exposes for its own distributed
// scheduling. It also implements processor.ProcessManager: everything
// that touches a real OS process (spawn, wait, kill, command-line match)
// lives here, never in the processor, per spec §5's ownership split.
package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	gopsprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/witlox/dcron/chrono"
	"github.com/witlox/dcron/cronmodel"
	"github.com/witlox/dcron/l3"
	"github.com/witlox/dcron/lifecycle"
	"github.com/witlox/dcron/processor"
	"github.com/witlox/dcron/store"
	"github.com/witlox/dcron/wire"
	"github.com/witlox/dcron/workpool"
)

var logger = l3.Get()

const (
	// DefaultHeartbeatInterval matches spec §4.6's 5s heartbeat period.
	DefaultHeartbeatInterval = 5 * time.Second
	// DefaultTickInterval matches spec §4.6's 15s tick period.
	DefaultTickInterval = 15 * time.Second
)

// Config bundles an Executor's fixed parameters.
type Config struct {
	SelfIP            string
	Store             *store.Store
	Broadcaster       processor.Broadcaster
	Workers           *workpool.Pool
	HeartbeatInterval time.Duration
	TickInterval      time.Duration
	Now               func() time.Time // overridable for tests; defaults to time.Now
}

// Executor drives the heartbeat and tick loops and owns process lifecycle
// for this node's jobs.
type Executor struct {
	cfg   Config
	sched chrono.Scheduler
}

// New creates an Executor bound to cfg. Zero-value intervals take the
// package defaults.
func New(cfg Config) *Executor {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Executor{cfg: cfg}
}

// Component wraps Executor as a lifecycle.Component.
func (e *Executor) Component() lifecycle.Component {
	return &lifecycle.SimpleComponent{
		CompId:    "executor",
		StartFunc: e.start,
		StopFunc:  e.stop,
	}
}

func (e *Executor) start() error {
	e.sched = chrono.New()
	if err := e.sched.Start(); err != nil {
		return fmt.Errorf("executor: starting scheduler: %w", err)
	}
	if err := e.sched.AddIntervalJob("heartbeat", "heartbeat", e.heartbeat, e.cfg.HeartbeatInterval); err != nil {
		return fmt.Errorf("executor: scheduling heartbeat: %w", err)
	}
	if err := e.sched.AddIntervalJob("tick", "tick", e.tickJob, e.cfg.TickInterval); err != nil {
		return fmt.Errorf("executor: scheduling tick: %w", err)
	}
	return nil
}

func (e *Executor) stop() error {
	if e.sched == nil {
		return nil
	}
	return e.sched.Stop()
}

// heartbeat samples load and this node's owned jobs' pids, emits a
// Status, then rebroadcasts each owned job's updated pid.
func (e *Executor) heartbeat(ctx context.Context) error {
	sample := 0.0
	if avg, err := load.Avg(); err != nil {
		logger.WarnF("executor: sampling load average: %v", err)
	} else {
		sample = avg.Load1
	}

	status := wire.Status{IP: e.cfg.SelfIP, Load: sample, Time: e.cfg.Now().UTC(), State: wire.StateRunning}
	e.cfg.Store.PutStatus(status)
	e.broadcast(status)

	for _, j := range e.cfg.Store.Jobs() {
		if j.AssignedTo != e.cfg.SelfIP {
			continue
		}
		if pid, ok := e.findPid(j.Command); ok {
			e.cfg.Store.UpdatePid(j.Pattern, j.Command, pid)
			j.Pid = pid
		}
		e.broadcast(j)
	}
	return nil
}

// tickJob evaluates every self-owned, enabled job against the current
// minute and launches the ones that are due.
func (e *Executor) tickJob(ctx context.Context) error {
	now := e.cfg.Now().UTC()
	for _, j := range e.cfg.Store.Jobs() {
		if j.AssignedTo != e.cfg.SelfIP || !j.Enabled {
			continue
		}
		pattern, err := cronmodel.Parse(j.Pattern)
		if err != nil {
			logger.WarnF("executor: job %q has an unparseable pattern %q: %v", j.Command, j.Pattern, err)
			continue
		}
		if !pattern.Matches(now, j.LastRun) {
			continue
		}
		e.launch(ctx, j, now)
	}
	return nil
}

func (e *Executor) launch(ctx context.Context, j wire.Job, firedAt time.Time) {
	run := func() error {
		result, err := e.Run(ctx, j.Command)
		if err != nil {
			logger.WarnF("executor: running job %q: %v", j.Command, err)
			return nil
		}
		j.Pid = result.Pid
		exitCode := result.ExitCode
		j.LastExitCode = &exitCode
		j.LastStdout = result.Stdout
		j.LastStderr = result.Stderr
		j.LastRun = firedAt
		j.Log = append(j.Log, fmt.Sprintf("%s exit=%d at=%s", strings.TrimSpace(j.Command), result.ExitCode, firedAt.Format(time.RFC3339)))
		e.cfg.Store.AddOrUpdateJob(j)
		e.broadcast(j)
		return nil
	}
	if e.cfg.Workers != nil {
		go func() { _ = e.cfg.Workers.Submit(ctx, run) }()
		return
	}
	go func() { _ = run() }()
}

func (e *Executor) broadcast(msg wire.Message) {
	if e.cfg.Broadcaster == nil {
		return
	}
	if err := e.cfg.Broadcaster.Broadcast(msg); err != nil {
		logger.WarnF("executor: broadcasting %s: %v", msg.Kind(), err)
	}
}

// findPid scans the process table for a process whose command line
// contains command, returning the first match.
func (e *Executor) findPid(command string) (int, bool) {
	procs, err := gopsprocess.Processes()
	if err != nil {
		logger.WarnF("executor: scanning process table: %v", err)
		return 0, false
	}
	for _, proc := range procs {
		cmdline, err := proc.Cmdline()
		if err != nil {
			continue
		}
		if strings.Contains(cmdline, command) {
			return int(proc.Pid), true
		}
	}
	return 0, false
}

// RunResult is re-exported from processor so callers depend on one type.
type RunResult = processor.RunResult

// Run spawns `/bin/sh -c command`, waits for it to exit, and captures its
// output — satisfies processor.ProcessManager.
func (e *Executor) Run(ctx context.Context, command string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return RunResult{}, fmt.Errorf("executor: starting %q: %w", command, err)
	}
	pid := cmd.Process.Pid

	err := cmd.Wait()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return RunResult{Pid: pid}, fmt.Errorf("executor: running %q: %w", command, err)
		}
	}

	return RunResult{
		Pid:      pid,
		ExitCode: exitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// MatchesCommand reports whether pid is alive and its command line
// contains command — satisfies processor.ProcessManager.
func (e *Executor) MatchesCommand(pid int, command string) (bool, error) {
	proc, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return false, nil
	}
	cmdline, err := proc.Cmdline()
	if err != nil {
		return false, nil
	}
	return strings.Contains(cmdline, command), nil
}

// Kill sends SIGTERM to pid and every descendant it can enumerate —
// satisfies processor.ProcessManager. Refuses to kill this process.
func (e *Executor) Kill(pid int) error {
	if pid == selfPid() {
		return fmt.Errorf("executor: refusing to kill self-pid %d", pid)
	}
	proc, err := gopsprocess.NewProcess(int32(pid))
	if err != nil {
		return fmt.Errorf("executor: pid %d not found: %w", pid, err)
	}
	var terminateTree func(p *gopsprocess.Process)
	terminateTree = func(p *gopsprocess.Process) {
		children, _ := p.Children()
		for _, child := range children {
			terminateTree(child)
			_ = child.Terminate()
		}
	}
	terminateTree(proc)
	return proc.Terminate()
}

func selfPid() int {
	return os.Getpid()
}
