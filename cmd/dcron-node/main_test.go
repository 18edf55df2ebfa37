package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCrontabPathDefaultsWithoutStoragePath(t *testing.T) {
	if got := crontabPath(""); got != "crontab.managed" {
		t.Errorf("expected bare default crontab path, got %q", got)
	}
}

func TestCrontabPathNestsUnderStoragePath(t *testing.T) {
	if got := crontabPath("/var/lib/dcron"); got != "/var/lib/dcron/crontab.managed" {
		t.Errorf("expected crontab path under storage path, got %q", got)
	}
}

func TestSeedCrontabPathDefaultsWithoutStoragePath(t *testing.T) {
	if got := seedCrontabPath(""); got != "crontab.seed" {
		t.Errorf("expected bare default seed crontab path, got %q", got)
	}
}

func TestSeedCrontabPathNestsUnderStoragePath(t *testing.T) {
	if got := seedCrontabPath("/var/lib/dcron"); got != "/var/lib/dcron/crontab.seed" {
		t.Errorf("expected seed crontab path under storage path, got %q", got)
	}
}

func TestJobDefaultsPathNestsUnderStoragePath(t *testing.T) {
	if got := jobDefaultsPath("/var/lib/dcron"); got != "/var/lib/dcron/job-defaults.properties" {
		t.Errorf("expected job defaults path under storage path, got %q", got)
	}
}

func TestLoadDefaultUserMissingFileIsNotAnError(t *testing.T) {
	user, err := loadDefaultUser(filepath.Join(t.TempDir(), "missing.properties"))
	if err != nil {
		t.Fatalf("expected a missing job defaults file to be silently ignored, got %v", err)
	}
	if user != "" {
		t.Errorf("expected no default user without a job defaults file, got %q", user)
	}
}

func TestLoadDefaultUserReadsUserProperty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job-defaults.properties")
	if err := os.WriteFile(path, []byte("user=alice\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	user, err := loadDefaultUser(path)
	if err != nil {
		t.Fatalf("loadDefaultUser: %v", err)
	}
	if user != "alice" {
		t.Errorf("expected default user %q, got %q", "alice", user)
	}
}

func TestRunCommandDeclaresEverySpecFlag(t *testing.T) {
	cmd := runCommand()
	want := map[string]string{
		"log-file":           "l",
		"storage-path":       "p",
		"communication-port": "c",
		"web-port":           "w",
		"ntp-server":         "n",
		"node-staleness":     "s",
		"verbose":            "v",
	}
	if len(cmd.Flags) != len(want) {
		t.Fatalf("expected %d flags, got %d", len(want), len(cmd.Flags))
	}
	for _, fl := range cmd.Flags {
		alias, ok := want[fl.Name]
		if !ok {
			t.Errorf("unexpected flag %q", fl.Name)
			continue
		}
		if len(fl.Aliases) != 1 || fl.Aliases[0] != alias {
			t.Errorf("flag %q: expected single alias %q, got %v", fl.Name, alias, fl.Aliases)
		}
	}
}

func TestRunCommandDefaults(t *testing.T) {
	cmd := runCommand()
	for _, fl := range cmd.Flags {
		switch fl.Name {
		case "communication-port":
			if fl.DefaultString() != "12345" {
				t.Errorf("expected default communication port 12345, got %s", fl.DefaultString())
			}
		case "web-port":
			if fl.DefaultString() != "8080" {
				t.Errorf("expected default web port 8080, got %s", fl.DefaultString())
			}
		case "ntp-server":
			if fl.DefaultString() != "pool.ntp.org" {
				t.Errorf("expected default ntp server pool.ntp.org, got %s", fl.DefaultString())
			}
		case "node-staleness":
			if fl.DefaultString() != "180" {
				t.Errorf("expected default node staleness 180, got %s", fl.DefaultString())
			}
		case "verbose":
			if fl.DefaultString() != "false" {
				t.Errorf("expected verbose to default to false, got %s", fl.DefaultString())
			}
		}
	}
}
