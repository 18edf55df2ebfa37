// Package cronmodel wraps the teacher's chrono.CronSchedule with the
// domain-specific semantics spec.md keeps out of the cron-expression
// engine itself: the @reboot-once-at-startup macro (chrono has no notion
// of it, since it isn't a time-based schedule at all) and the
// once-per-minute idempotence guard driven by a job's last_run.
package cronmodel

import (
	"strings"
	"time"

	"github.com/witlox/dcron/chrono"
)

// Reboot is the pseudo-pattern that fires once, at node startup, instead
// of on any recurring schedule.
const Reboot = "@reboot"

// Pattern is a parsed five-field cron pattern, or the @reboot macro.
type Pattern struct {
	raw      string
	reboot   bool
	schedule *chrono.CronSchedule
}

// Parse parses a five-field cron expression, one of chrono's `@` aliases
// (@yearly, @hourly, ...), or @reboot.
func Parse(expr string) (*Pattern, error) {
	trimmed := strings.TrimSpace(expr)
	if strings.EqualFold(trimmed, Reboot) {
		return &Pattern{raw: trimmed, reboot: true}, nil
	}
	schedule, err := chrono.NewCronSchedule(trimmed)
	if err != nil {
		return nil, err
	}
	return &Pattern{raw: trimmed, schedule: schedule}, nil
}

// String returns the original pattern text.
func (p *Pattern) String() string {
	return p.raw
}

// IsReboot reports whether this pattern is the @reboot macro.
func (p *Pattern) IsReboot() bool {
	return p.reboot
}

// Matches reports whether the job should launch now, given the last time
// it actually ran (the zero Time if it has never run).
//
// For @reboot, it fires exactly once: the first time it is asked about,
// i.e. while lastRun is still zero. For an ordinary pattern, it fires when
// `now` truncated to the minute lands on a scheduled activation and that
// minute has not already been covered by lastRun — the once-per-minute
// idempotence guard from spec §4.6.
func (p *Pattern) Matches(now time.Time, lastRun time.Time) bool {
	if p.reboot {
		return lastRun.IsZero()
	}
	minute := now.Truncate(time.Minute)
	if !lastRun.IsZero() && !lastRun.Truncate(time.Minute).Before(minute) {
		return false
	}
	return p.schedule.Next(minute.Add(-time.Second)).Equal(minute)
}

// Overlaps reports whether two patterns are identical cron expressions —
// "overlapping" jobs in the rebalance sense (spec §3, §4.5): they share a
// pattern but differ by command.
func (p *Pattern) Overlaps(other *Pattern) bool {
	return p.raw == other.raw
}
