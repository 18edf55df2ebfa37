// Package processor owns the FIFO queue of raw datagrams and the fragment
// reassembly buffer, and dispatches complete messages by kind — spec §4.4.
// It is the sole owner of the local crontab file; process lifecycle
// (spawn, wait, kill) is delegated to a ProcessManager collaborator so this
// package stays free of os/exec specifics, the same separation of concerns
// the teacher draws between messaging's transport and its listeners.
package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/witlox/dcron/collections"
	"github.com/witlox/dcron/l3"
	"github.com/witlox/dcron/managers"
	"github.com/witlox/dcron/packet"
	"github.com/witlox/dcron/store"
	"github.com/witlox/dcron/wire"
)

var logger = l3.Get()

// DefaultBufferCap is the soft cap on in-flight reassembly fragments
// recommended by spec §4.4, past which the oldest buffered group is
// dropped to bound memory under a storm of incomplete messages.
const DefaultBufferCap = 10_000

// Broadcaster re-sends a Message to the cluster, used for rebroadcasting
// updated Job records after Run/Toggle and Job propagation.
type Broadcaster interface {
	Broadcast(msg wire.Message) error
}

// ProcessManager is the executor-side collaborator for everything
// touching real OS processes: spawning the job's command, waiting on it,
// and killing a process tree that still matches a job's command line.
type ProcessManager interface {
	// Run spawns `/bin/sh -c command` and blocks until it exits.
	Run(ctx context.Context, command string) (result RunResult, err error)
	// MatchesCommand reports whether pid is alive and its command line
	// contains command, guarding against killing an unrelated process
	// that happens to have reused the pid.
	MatchesCommand(pid int, command string) (bool, error)
	// Kill sends SIGTERM to pid's process tree.
	Kill(pid int) error
}

// RunResult carries the outcome of one ad-hoc or scheduled job execution.
type RunResult struct {
	Pid      int
	ExitCode int
	Stdout   string
	Stderr   string
}

// Crontab is the local crontab file, owned solely by the processor —
// spec §4, "Shared resources".
type Crontab interface {
	// Append adds command to the file if not already present, and
	// rewrites it.
	Append(command string) error
	// Remove deletes command from the file and rewrites it.
	Remove(command string) error
	// Purge empties the file of every managed entry.
	Purge() error
}

// Config bundles a Processor's fixed parameters.
type Config struct {
	SelfIP       string
	HMACKey      []byte
	DefaultUser  string
	BufferCap    int
	Broadcaster  Broadcaster
	Processes    ProcessManager
	Crontab      Crontab
}

// Processor is a single-goroutine consumer of raw datagrams. Feed it with
// Enqueue from the transport's receive loop; call Drain to empty the queue
// and dispatch.
type Processor struct {
	cfg   Config
	store *store.Store

	queue collections.Queue[[]byte]
	qmu   sync.Mutex

	buf   managers.ItemManager[*packet.Group] // keyed by packet UUID
	order []string                            // insertion order, for oldest-first eviction
	bmu   sync.Mutex
}

// New creates a Processor bound to st. cfg.BufferCap <= 0 uses
// DefaultBufferCap.
func New(st *store.Store, cfg Config) *Processor {
	if cfg.BufferCap <= 0 {
		cfg.BufferCap = DefaultBufferCap
	}
	return &Processor{
		cfg:   cfg,
		store: st,
		queue: collections.NewSyncQueue[[]byte](),
		buf:   managers.NewItemManager[*packet.Group](),
	}
}

// Enqueue adds a raw datagram to the FIFO queue. The queue itself has no
// bound (only the reassembly buffer does, per spec §4.4); back-pressure on
// malicious or runaway senders is out of scope.
func (p *Processor) Enqueue(datagram []byte) error {
	b := append([]byte(nil), datagram...)
	return p.queue.Enqueue(b)
}

// QueueLen reports the current depth of the datagram queue.
func (p *Processor) QueueLen() int {
	return p.queue.Size()
}

// Drain processes every datagram currently queued, dispatching complete
// messages as they're assembled. It returns once the queue is empty, so
// the caller (the node's event loop) can call it on each wakeup rather
// than dedicating a goroutine to a blocking Run.
func (p *Processor) Drain(ctx context.Context) {
	for {
		raw, err := p.queue.Dequeue()
		if err != nil {
			return
		}
		p.handleDatagram(ctx, raw)
	}
}

func (p *Processor) handleDatagram(ctx context.Context, raw []byte) {
	pkt, err := packet.Decode(raw)
	if err != nil {
		logger.DebugF("processor: dropping malformed datagram: %v", err)
		return
	}

	group := p.groupFor(pkt.UUID)
	group.Add(pkt)
	if !group.Complete() {
		return
	}
	p.removeGroup(pkt.UUID)

	msg, err := wire.Decode(group.Assemble(), p.cfg.HMACKey)
	if err != nil {
		logger.WarnF("processor: dropping group %s: %v", pkt.UUID, err)
		return
	}

	p.dispatch(ctx, msg)
}

func (p *Processor) groupFor(uuid string) *packet.Group {
	p.bmu.Lock()
	defer p.bmu.Unlock()

	if g := p.buf.Get(uuid); g != nil {
		return g
	}

	if len(p.order) >= p.cfg.BufferCap {
		oldest := p.order[0]
		p.order = p.order[1:]
		p.buf.Unregister(oldest)
		logger.DebugF("processor: reassembly buffer at cap, dropping oldest group %s", oldest)
	}

	g := packet.NewGroup(uuid)
	p.buf.Register(uuid, g)
	p.order = append(p.order, uuid)
	return g
}

func (p *Processor) removeGroup(uuid string) {
	p.bmu.Lock()
	defer p.bmu.Unlock()
	p.buf.Unregister(uuid)
	for i, u := range p.order {
		if u == uuid {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// clearReassemblyBuffer drops every in-flight fragment group, as Rebalance
// requires.
func (p *Processor) clearReassemblyBuffer() {
	p.bmu.Lock()
	defer p.bmu.Unlock()
	for _, uuid := range p.order {
		p.buf.Unregister(uuid)
	}
	p.order = nil
}

func (p *Processor) dispatch(ctx context.Context, msg wire.Message) {
	switch m := msg.(type) {
	case wire.Status:
		p.store.PutStatus(m)
	case wire.Rebalance:
		p.handleRebalance()
	case wire.Job:
		if m.Remove {
			p.handleJobRemove(m)
		} else {
			p.handleJobUpsert(m)
		}
	case wire.Run:
		p.handleRun(ctx, m)
	case wire.Kill:
		p.handleKill(m)
	case wire.Toggle:
		p.handleToggle(m)
	default:
		logger.WarnF("processor: no dispatch rule for message kind %q", msg.Kind())
	}
}

func (p *Processor) handleRebalance() {
	p.store.ClearJobs()
	if p.cfg.Crontab != nil {
		if err := p.cfg.Crontab.Purge(); err != nil {
			logger.WarnF("processor: purging local crontab on rebalance: %v", err)
		}
	}
	p.clearReassemblyBuffer()
}

func (p *Processor) handleJobUpsert(j wire.Job) {
	_, existed := p.store.Job(j.Pattern, j.Command)

	if j.User == "" {
		j.User = p.cfg.DefaultUser
	}

	p.store.AddOrUpdateJob(j)

	if existed || j.AssignedTo != p.cfg.SelfIP || p.cfg.Crontab == nil {
		return
	}
	if err := p.cfg.Crontab.Append(j.Command); err != nil {
		logger.WarnF("processor: appending job to local crontab: %v", err)
	}
}

func (p *Processor) handleJobRemove(j wire.Job) {
	if j.AssignedTo == p.cfg.SelfIP {
		if existing, ok := p.store.Job(j.Pattern, j.Command); ok && existing.Pid != 0 && p.cfg.Processes != nil {
			if ok, err := p.cfg.Processes.MatchesCommand(existing.Pid, existing.Command); err == nil && ok {
				if err := p.cfg.Processes.Kill(existing.Pid); err != nil {
					logger.WarnF("processor: killing pid %d for removed job: %v", existing.Pid, err)
				}
			}
		}
		if p.cfg.Crontab != nil {
			if err := p.cfg.Crontab.Remove(j.Command); err != nil {
				logger.WarnF("processor: removing job from local crontab: %v", err)
			}
		}
	}
	p.store.RemoveJob(j)
}

func (p *Processor) handleRun(ctx context.Context, r wire.Run) {
	j := r.Job
	if j.AssignedTo != p.cfg.SelfIP || p.cfg.Processes == nil {
		return
	}
	result, err := p.cfg.Processes.Run(ctx, j.Command)
	if err != nil {
		logger.WarnF("processor: running job %q: %v", j.Command, err)
		return
	}
	p.recordRunResult(j, result)
}

func (p *Processor) recordRunResult(j wire.Job, result RunResult) {
	exitCode := result.ExitCode
	j.Pid = result.Pid
	j.LastExitCode = &exitCode
	j.LastStdout = result.Stdout
	j.LastStderr = result.Stderr
	j.Log = append(j.Log, formatLogLine(j, result))

	p.store.AddOrUpdateJob(j)
	if p.cfg.Broadcaster != nil {
		if err := p.cfg.Broadcaster.Broadcast(j); err != nil {
			logger.WarnF("processor: rebroadcasting job result: %v", err)
		}
	}
}

func formatLogLine(j wire.Job, result RunResult) string {
	return fmt.Sprintf("%s exit=%d", strings.TrimSpace(j.Command), result.ExitCode)
}

func (p *Processor) handleKill(k wire.Kill) {
	if k.Job.AssignedTo != p.cfg.SelfIP || p.cfg.Processes == nil {
		return
	}
	if k.Pid == 0 {
		return
	}
	ok, err := p.cfg.Processes.MatchesCommand(k.Pid, k.Job.Command)
	if err != nil {
		logger.WarnF("processor: checking pid %d before kill: %v", k.Pid, err)
		return
	}
	if !ok {
		logger.WarnF("processor: refusing to kill pid %d, command line no longer matches %q", k.Pid, k.Job.Command)
		return
	}
	if err := p.cfg.Processes.Kill(k.Pid); err != nil {
		logger.WarnF("processor: killing pid %d: %v", k.Pid, err)
	}
}

func (p *Processor) handleToggle(t wire.Toggle) {
	j, ok := p.store.ToggleEnabled(t.Job.Pattern, t.Job.Command)
	if !ok {
		return
	}
	if p.cfg.Broadcaster != nil {
		if err := p.cfg.Broadcaster.Broadcast(j); err != nil {
			logger.WarnF("processor: rebroadcasting toggled job: %v", err)
		}
	}
}
