// Package node wires one running instance together: store, transport,
// processor, scheduler, executor and web server under a single
// lifecycle.ComponentManager, plus the startup NTP skew check and the
// periodic rebalance trigger of spec §4.7. This is the one place that
// knows about every other package; everything else stays decoupled
// through the Broadcaster/ProcessManager/Crontab interfaces.
package node

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/witlox/dcron/chrono"
	"github.com/witlox/dcron/executor"
	"github.com/witlox/dcron/l3"
	"github.com/witlox/dcron/lifecycle"
	"github.com/witlox/dcron/processor"
	"github.com/witlox/dcron/scheduler"
	"github.com/witlox/dcron/store"
	"github.com/witlox/dcron/transport"
	"github.com/witlox/dcron/web"
	"github.com/witlox/dcron/wire"
	"github.com/witlox/dcron/workpool"
)

var logger = l3.Get()

const (
	// DefaultRebalanceCheckInterval matches spec §4.7's 23 s trigger,
	// co-prime with the 5 s heartbeat so the two don't phase-lock.
	DefaultRebalanceCheckInterval = 23 * time.Second
	// DefaultRebalanceSettleDelay is the pause between a Rebalance
	// broadcast and the full job re-broadcast that follows it.
	DefaultRebalanceSettleDelay = 5 * time.Second
	// DefaultDrainInterval is how often the event loop drains the
	// processor's datagram queue.
	DefaultDrainInterval = 100 * time.Millisecond
	// DefaultCommunicationPort is the UDP broadcast port, spec §6.
	DefaultCommunicationPort = 12345
	// DefaultWebPort is the HTTP listen port, spec §6.
	DefaultWebPort = 8080
	// DefaultNTPServer is queried for the startup skew check, spec §6.
	DefaultNTPServer = "pool.ntp.org"
	// DefaultNodeStaleness is the liveness window, spec §4.5/§6.
	DefaultNodeStaleness = 180 * time.Second
	// MaxClockSkew aborts startup when exceeded, spec §6/§7.
	MaxClockSkew = 60 * time.Second
)

// NTPChecker reports this node's clock offset against an NTP server.
type NTPChecker interface {
	Offset(ctx context.Context, server string) (time.Duration, error)
}

// IPDiscoverer reports this node's outward IPv4 address.
type IPDiscoverer interface {
	OutboundIP() (string, error)
}

// Config bundles a Node's fixed parameters, mirroring the CLI surface of
// spec §6.
type Config struct {
	StoragePath       string
	CommunicationPort int
	WebPort           int
	NTPServer         string
	NodeStaleness     time.Duration

	HMACKey         []byte
	DefaultUser     string
	SeedCrontabPath string
	CrontabPath     string
	Workers         int

	NTP NTPChecker
	IP  IPDiscoverer
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.CommunicationPort == 0 {
		c.CommunicationPort = DefaultCommunicationPort
	}
	if c.WebPort == 0 {
		c.WebPort = DefaultWebPort
	}
	if c.NTPServer == "" {
		c.NTPServer = DefaultNTPServer
	}
	if c.NodeStaleness <= 0 {
		c.NodeStaleness = DefaultNodeStaleness
	}
	if c.CrontabPath == "" {
		c.CrontabPath = "crontab.managed"
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.NTP == nil {
		c.NTP = ntpChecker{}
	}
	if c.IP == nil {
		c.IP = ipDiscoverer{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Node is one running instance, identified by its outward IPv4.
type Node struct {
	cfg     Config
	selfIP  string
	manager lifecycle.ComponentManager

	store     *store.Store
	transport *transport.Transport
	processor *processor.Processor
	scheduler *scheduler.Scheduler
	executor  *executor.Executor
	web       *web.Server
	workers   *workpool.Pool

	loopSched chrono.Scheduler
	rngSeed   int64
}

// CheckClockSkew queries ntpClient and returns an error if the offset
// exceeds MaxClockSkew — spec §6/§7: fatal at startup, never at runtime.
func CheckClockSkew(ctx context.Context, ntpClient NTPChecker, server string) error {
	offset, err := ntpClient.Offset(ctx, server)
	if err != nil {
		return fmt.Errorf("node: querying NTP server %s: %w", server, err)
	}
	if offset < 0 {
		offset = -offset
	}
	if offset > MaxClockSkew {
		return fmt.Errorf("node: clock offset %s against %s exceeds the %s limit", offset, server, MaxClockSkew)
	}
	return nil
}

// New builds a Node and registers every component with its manager.
// CheckClockSkew must be called separately by the caller before New, so a
// skew failure aborts before any socket or file is touched.
func New(cfg Config) (*Node, error) {
	cfg.applyDefaults()

	selfIP, err := cfg.IP.OutboundIP()
	if err != nil {
		return nil, fmt.Errorf("node: discovering outbound IP: %w", err)
	}

	n := &Node{cfg: cfg, selfIP: selfIP, manager: lifecycle.NewSimpleComponentManager(), rngSeed: time.Now().UnixNano()}

	n.store = store.New(cfg.StoragePath)
	if cfg.SeedCrontabPath != "" {
		if err := n.store.ImportSeedCrontab(cfg.SeedCrontabPath, cfg.DefaultUser); err != nil {
			logger.WarnF("node: importing seed crontab %s: %v", cfg.SeedCrontabPath, err)
		}
	}

	workers, err := workpool.New(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("node: creating worker pool: %w", err)
	}
	n.workers = workers

	n.transport = transport.New(cfg.CommunicationPort, nil, cfg.HMACKey)

	crontab, err := processor.NewFileCrontab(cfg.CrontabPath)
	if err != nil {
		return nil, fmt.Errorf("node: opening local crontab %s: %w", cfg.CrontabPath, err)
	}

	n.executor = executor.New(executor.Config{
		SelfIP:      selfIP,
		Store:       n.store,
		Broadcaster: n.transport,
		Workers:     n.workers,
	})

	n.processor = processor.New(n.store, processor.Config{
		SelfIP:      selfIP,
		HMACKey:     cfg.HMACKey,
		DefaultUser: cfg.DefaultUser,
		Broadcaster: n.transport,
		Processes:   n.executor,
		Crontab:     crontab,
	})
	n.transport.SetSink(n.processor)

	n.scheduler = scheduler.New(n.store, cfg.NodeStaleness)

	n.web = web.New(web.Config{
		Port:        cfg.WebPort,
		Store:       n.store,
		Scheduler:   n.scheduler,
		Broadcaster: n.transport,
		SelfIP:      selfIP,
		Now:         cfg.Now,
	})

	n.manager.Register(&lifecycle.SimpleComponent{CompId: "store", StartFunc: n.store.Load, StopFunc: n.store.Save})
	n.manager.Register(n.transport.Component())
	n.manager.Register(n.executor.Component())
	n.manager.Register(n.web.Component())
	n.manager.Register(&lifecycle.SimpleComponent{CompId: "event-loop", StartFunc: n.startEventLoop, StopFunc: n.stopEventLoop})

	return n, nil
}

// SelfIP returns this node's outward IPv4 address.
func (n *Node) SelfIP() string {
	return n.selfIP
}

// StartAndWait starts every component and blocks until SIGINT/SIGTERM
// stops them — lifecycle.NewSimpleComponentManager already installs that
// signal handler, spec §5's "cancellation" contract.
func (n *Node) StartAndWait() error {
	if err := n.manager.StartAll(); err != nil {
		return fmt.Errorf("node: starting components: %w", err)
	}
	n.manager.Wait()
	return nil
}

// StopAll stops every component, attempting a final store snapshot.
func (n *Node) StopAll() error {
	return n.manager.StopAll()
}

func (n *Node) startEventLoop() error {
	n.loopSched = chrono.New()
	if err := n.loopSched.Start(); err != nil {
		return fmt.Errorf("node: starting event loop scheduler: %w", err)
	}
	if err := n.loopSched.AddIntervalJob("drain", "drain", n.drain, DefaultDrainInterval); err != nil {
		return fmt.Errorf("node: scheduling datagram drain: %w", err)
	}
	if err := n.loopSched.AddIntervalJob("rebalance-check", "rebalance-check", n.checkClusterState, DefaultRebalanceCheckInterval); err != nil {
		return fmt.Errorf("node: scheduling rebalance check: %w", err)
	}
	return nil
}

func (n *Node) stopEventLoop() error {
	if n.loopSched == nil {
		return nil
	}
	return n.loopSched.Stop()
}

func (n *Node) drain(ctx context.Context) error {
	n.processor.Drain(ctx)
	return nil
}

// checkClusterState runs the validity check every DefaultRebalanceCheckInterval.
// On invalid, it broadcasts a Rebalance and, after a settling delay,
// re-broadcasts the full local job set — spec §4.7.
func (n *Node) checkClusterState(ctx context.Context) error {
	now := n.cfg.Now().UTC()
	if n.scheduler.CheckClusterState(now, n.nextSeed()) {
		return nil
	}
	logger.WarnF("node: cluster state invalid, broadcasting rebalance")
	if err := n.transport.Broadcast(wire.Rebalance{Timestamp: now}); err != nil {
		logger.WarnF("node: broadcasting rebalance: %v", err)
		return nil
	}
	if err := n.loopSched.AddOneShotJob("rebalance-settle", "rebalance-settle", n.rebroadcastJobs, DefaultRebalanceSettleDelay); err != nil {
		logger.WarnF("node: scheduling rebalance settle: %v", err)
	}
	return nil
}

func (n *Node) rebroadcastJobs(ctx context.Context) error {
	for _, j := range n.store.Jobs() {
		if err := n.transport.Broadcast(j); err != nil {
			logger.WarnF("node: re-broadcasting job %q after rebalance: %v", j.Command, err)
		}
	}
	return nil
}

func (n *Node) nextSeed() int64 {
	n.rngSeed = rand.New(rand.NewSource(n.rngSeed)).Int63()
	return n.rngSeed
}
