package wire

import "time"

// Kind strings identify which concrete payload an envelope carries. These
// ride the wire as plain text so the tagged union stays stable across
// rewrites of the Go types underneath it.
const (
	KindStatus    = "status"
	KindJob       = "job"
	KindRebalance = "rebalance"
	KindRun       = "run"
	KindKill      = "kill"
	KindToggle    = "toggle"
)

// Message is implemented by every concrete message kind carried over the
// transport. Kind reports the tagged-union discriminator used on the wire.
type Message interface {
	Kind() string
}

// Status is the heartbeat message: one node's current load and state.
type Status struct {
	IP    string    `json:"ip"`
	Load  float64   `json:"load"`
	Time  time.Time `json:"time"`
	State string    `json:"state"`
}

// Node liveness states carried in Status.State.
const (
	StateRunning      = "running"
	StateDisconnected = "disconnected"
)

func (Status) Kind() string { return KindStatus }

// Job mirrors one cron job record. Remove disambiguates an add/update
// broadcast (Remove=false) from a tombstone (Remove=true) sharing the same
// struct, per spec §4.2.
type Job struct {
	Pattern      string   `json:"pattern"`
	Command      string   `json:"command"`
	Enabled      bool     `json:"enabled"`
	Comment      string   `json:"comment"`
	User         string   `json:"user"`
	AssignedTo   string   `json:"assigned_to,omitempty"`
	Pid          int      `json:"pid,omitempty"`
	LastRun      time.Time `json:"last_run,omitempty"`
	LastExitCode *int     `json:"last_exit_code,omitempty"`
	LastStdout   string   `json:"last_stdout,omitempty"`
	LastStderr   string   `json:"last_stderr,omitempty"`
	Log          []string `json:"log,omitempty"`
	Remove       bool     `json:"remove,omitempty"`
}

func (Job) Kind() string { return KindJob }

// Rebalance tells every receiving node to clear its job set and await a
// fresh round of Job announcements.
type Rebalance struct {
	Timestamp time.Time `json:"timestamp"`
}

func (Rebalance) Kind() string { return KindRebalance }

// Run requests ad-hoc execution of Job by its owner.
type Run struct {
	Job Job `json:"job"`
}

func (Run) Kind() string { return KindRun }

// Kill requests termination of Pid on Job's owner, refused if Pid's command
// line no longer contains Job.Command (the processor double-checks this,
// not the sender).
type Kill struct {
	Job Job `json:"job"`
	Pid int `json:"pid"`
}

func (Kill) Kind() string { return KindKill }

// Toggle flips Job.Enabled on the matching record.
type Toggle struct {
	Job Job `json:"job"`
}

func (Toggle) Kind() string { return KindToggle }
