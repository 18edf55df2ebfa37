// Package store holds the in-memory cluster state: one status history per
// ip and the deduplicated job set, with best-effort snapshot persistence
// grounded on chrono.FileStorage's write-to-temp-then-rename pattern. All
// access is serialized by a single mutex; the processor, scheduler and
// executor are the mutators, web handlers and the scheduler's readers take a
// consistent snapshot via Jobs/ClusterState.
package store

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/witlox/dcron/codec"
	"github.com/witlox/dcron/managers"
	"github.com/witlox/dcron/wire"
)

const (
	statusFileName = "cluster_status.json"
	jobsFileName   = "cluster_jobs.json"

	// DefaultPruneWatermark mirrors the specification's figure, which is
	// large enough that pruning is effectively disabled unless a caller
	// configures a tighter watermark.
	DefaultPruneWatermark = 10_000_000
)

var jsonCodec = codec.JsonCodec()

// Store is the masterless node's soft-state cluster view.
type Store struct {
	mu sync.Mutex

	pathPrefix string

	history managers.ItemManager[[]wire.Status] // keyed by Status.IP
	jobs    managers.ItemManager[wire.Job]      // keyed by jobKey(pattern, command)
	order   []string                            // job key insertion order, so snapshots/iteration are stable
}

// New creates an empty Store. pathPrefix may be empty, disabling
// persistence entirely (Save and Load become no-ops).
func New(pathPrefix string) *Store {
	return &Store{
		pathPrefix: pathPrefix,
		history:    managers.NewItemManager[[]wire.Status](),
		jobs:       managers.NewItemManager[wire.Job](),
	}
}

// hasJobKey reports whether key names a job currently tracked by the
// store. ItemManager.Get returns a zero value for an absent key, so
// presence has to be tracked against order, the same slice that already
// gives jobs their stable iteration sequence.
func (s *Store) hasJobKey(key string) bool {
	for _, k := range s.order {
		if k == key {
			return true
		}
	}
	return false
}

func jobKey(pattern, command string) string {
	return pattern + "\x00" + command
}

// PutStatus appends st to its ip's history.
func (s *Store) PutStatus(st wire.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Register(st.IP, append(s.history.Get(st.IP), st))
}

// Current returns the latest Status recorded for ip, by time.
func (s *Store) Current(ip string) (wire.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.history.Get(ip)
	if len(h) == 0 {
		return wire.Status{}, false
	}
	latest := h[0]
	for _, st := range h[1:] {
		if st.Time.After(latest.Time) {
			latest = st
		}
	}
	return latest, true
}

// ClusterState returns one latest Status per known ip.
func (s *Store) ClusterState() []wire.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	histories := s.history.Items()
	out := make([]wire.Status, 0, len(histories))
	for _, h := range histories {
		if len(h) == 0 {
			continue
		}
		latest := h[0]
		for _, st := range h[1:] {
			if st.Time.After(latest.Time) {
				latest = st
			}
		}
		out = append(out, latest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IP < out[j].IP })
	return out
}

// AddOrUpdateJob inserts j, or merges its result fields into an existing
// job with an identical (pattern, command) key while keeping that job's
// existing AssignedTo — spec §4.3.
func (s *Store) AddOrUpdateJob(j wire.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := jobKey(j.Pattern, j.Command)
	if s.hasJobKey(key) {
		existing := s.jobs.Get(key)
		existing.LastExitCode = j.LastExitCode
		existing.LastStdout = j.LastStdout
		existing.LastStderr = j.LastStderr
		existing.Pid = j.Pid
		existing.LastRun = j.LastRun
		existing.Log = j.Log
		if existing.User == "" {
			existing.User = j.User
		}
		s.jobs.Register(key, existing)
		return
	}
	s.jobs.Register(key, j)
	s.order = append(s.order, key)
}

// RemoveJob deletes the job matching j's (pattern, command) key, if any.
func (s *Store) RemoveJob(j wire.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := jobKey(j.Pattern, j.Command)
	if !s.hasJobKey(key) {
		return
	}
	s.jobs.Unregister(key)
	s.removeFromOrder(key)
}

func (s *Store) removeFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// ClearJobs empties the job set, as Rebalance requires.
func (s *Store) ClearJobs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range s.order {
		s.jobs.Unregister(key)
	}
	s.order = nil
}

// Jobs returns a stable-ordered snapshot of the current job set.
func (s *Store) Jobs() []wire.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]wire.Job, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.jobs.Get(key))
	}
	return out
}

// Job returns the job keyed by (pattern, command), if present.
func (s *Store) Job(pattern, command string) (wire.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := jobKey(pattern, command)
	if !s.hasJobKey(key) {
		return wire.Job{}, false
	}
	return s.jobs.Get(key), true
}

// ErrJobNotFound is returned by UpdateAssignment when the (pattern, command)
// key no longer names a job in the store — it was concurrently removed
// between the rebalance pass reading the job set and writing assignments
// back.
var ErrJobNotFound = fmt.Errorf("store: job not found")

// UpdateAssignment sets AssignedTo on the job keyed by (pattern, command),
// used by the scheduler's rebalance pass.
func (s *Store) UpdateAssignment(pattern, command, assignedTo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := jobKey(pattern, command)
	if !s.hasJobKey(key) {
		return ErrJobNotFound
	}
	j := s.jobs.Get(key)
	j.AssignedTo = assignedTo
	s.jobs.Register(key, j)
	return nil
}

// UpdatePid sets the sampled Pid on the job keyed by (pattern, command),
// used by the executor's heartbeat loop. Unlike AddOrUpdateJob, it never
// touches the other result fields — a heartbeat sample must not clobber
// the last run's exit code/stdout/stderr/log with zero values.
func (s *Store) UpdatePid(pattern, command string, pid int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := jobKey(pattern, command)
	if !s.hasJobKey(key) {
		return
	}
	j := s.jobs.Get(key)
	j.Pid = pid
	s.jobs.Register(key, j)
}

// ToggleEnabled flips Enabled on the job keyed by (pattern, command) and
// returns the updated record.
func (s *Store) ToggleEnabled(pattern, command string) (wire.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := jobKey(pattern, command)
	if !s.hasJobKey(key) {
		return wire.Job{}, false
	}
	j := s.jobs.Get(key)
	j.Enabled = !j.Enabled
	s.jobs.Register(key, j)
	return j, true
}

type statusSnapshot struct {
	History map[string][]wire.Status `json:"history"`
}

type jobSnapshot struct {
	Jobs  []wire.Job `json:"jobs"`
	Order []string   `json:"order"`
}

// Save atomically snapshots status history and job set to two files under
// pathPrefix. A no-op if pathPrefix is empty.
func (s *Store) Save() error {
	if s.pathPrefix == "" {
		return nil
	}
	s.mu.Lock()
	hist := statusSnapshot{History: make(map[string][]wire.Status)}
	for _, h := range s.history.Items() {
		if len(h) == 0 {
			continue
		}
		hist.History[h[0].IP] = h
	}
	jsnap := jobSnapshot{Jobs: make([]wire.Job, 0, len(s.order)), Order: append([]string(nil), s.order...)}
	for _, key := range s.order {
		jsnap.Jobs = append(jsnap.Jobs, s.jobs.Get(key))
	}
	s.mu.Unlock()

	if err := writeAtomic(s.statusPath(), hist); err != nil {
		return fmt.Errorf("store: saving status snapshot: %w", err)
	}
	if err := writeAtomic(s.jobsPath(), jsnap); err != nil {
		return fmt.Errorf("store: saving jobs snapshot: %w", err)
	}
	return nil
}

// Load restores status history and job set from pathPrefix. A snapshot
// that doesn't exist is not an error (first run); one that exists but
// cannot be decoded is ignored with a warning, per spec §7.
func (s *Store) Load() error {
	if s.pathPrefix == "" {
		return nil
	}

	var hist statusSnapshot
	if err := readAtomic(s.statusPath(), &hist); err != nil {
		if !os.IsNotExist(err) {
			logger.WarnF("store: ignoring unreadable status snapshot %s: %v", s.statusPath(), err)
		}
	}

	var jsnap jobSnapshot
	if err := readAtomic(s.jobsPath(), &jsnap); err != nil {
		if !os.IsNotExist(err) {
			logger.WarnF("store: ignoring unreadable jobs snapshot %s: %v", s.jobsPath(), err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if hist.History != nil {
		s.history = managers.NewItemManager[[]wire.Status]()
		for ip, h := range hist.History {
			s.history.Register(ip, h)
		}
	}
	if jsnap.Jobs != nil {
		s.jobs = managers.NewItemManager[wire.Job]()
		s.order = nil
		for _, j := range jsnap.Jobs {
			key := jobKey(j.Pattern, j.Command)
			s.jobs.Register(key, j)
			s.order = append(s.order, key)
		}
	}
	return nil
}

func (s *Store) statusPath() string {
	return strings.TrimRight(s.pathPrefix, "/") + "/" + statusFileName
}

func (s *Store) jobsPath() string {
	return strings.TrimRight(s.pathPrefix, "/") + "/" + jobsFileName
}

func writeAtomic(path string, v interface{}) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := jsonCodec.Write(v, f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readAtomic(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return jsonCodec.Read(f, v)
}

// Prune drops status entries once the total across all ips exceeds
// watermark: for each ip, any entry whose load equals its immediate
// time-predecessor's load is dropped, except the latest entry for that ip
// — spec §4.3/§8 ("pruning preserves latest").
func (s *Store) Prune(watermark int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	histories := s.history.Items()
	total := 0
	for _, h := range histories {
		total += len(h)
	}
	if total <= watermark {
		return
	}

	for _, h := range histories {
		if len(h) <= 1 {
			continue
		}
		kept := make([]wire.Status, 0, len(h))
		for i, st := range h {
			last := i == len(h)-1
			if !last && i > 0 && h[i-1].Load == st.Load {
				continue
			}
			kept = append(kept, st)
		}
		s.history.Register(h[0].IP, kept)
	}
}
