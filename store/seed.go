package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/witlox/dcron/vfs"
	"github.com/witlox/dcron/wire"
)

// ImportSeedCrontab reads an optional seed crontab file (five-field
// pattern followed by a shell command, one job per line; blank lines and
// `#`-prefixed comments are skipped) and adds each line as an unassigned
// Job, a candidate for the next rebalance. A missing file is not an error.
// defaultUser fills Job.User when the file carries none — spec.md's
// "crontab-file compatibility [is limited] to reading an initial seed".
func (s *Store) ImportSeedCrontab(path string, defaultUser string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	f, err := vfs.GetManager().OpenRaw(path)
	if err != nil {
		return fmt.Errorf("store: opening seed crontab %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	content, err := f.AsString()
	if err != nil {
		return fmt.Errorf("store: reading seed crontab %s: %w", path, err)
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		job, err := parseSeedLine(line, defaultUser)
		if err != nil {
			logger.WarnF("store: skipping malformed seed crontab line %q: %v", line, err)
			continue
		}
		s.AddOrUpdateJob(job)
	}
	return nil
}

func parseSeedLine(line string, defaultUser string) (wire.Job, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return wire.Job{}, fmt.Errorf("expected a pattern followed by a command")
	}

	if strings.HasPrefix(fields[0], "@") {
		return wire.Job{
			Pattern: fields[0],
			Command: strings.Join(fields[1:], " "),
			Enabled: true,
			User:    defaultUser,
		}, nil
	}

	if len(fields) < 6 {
		return wire.Job{}, fmt.Errorf("expected a 5-field pattern followed by a command")
	}
	return wire.Job{
		Pattern: strings.Join(fields[:5], " "),
		Command: strings.Join(fields[5:], " "),
		Enabled: true,
		User:    defaultUser,
	}, nil
}
