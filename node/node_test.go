package node

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeNTP struct {
	offset time.Duration
	err    error
}

func (f fakeNTP) Offset(ctx context.Context, server string) (time.Duration, error) {
	return f.offset, f.err
}

func TestCheckClockSkewAllowsSmallOffset(t *testing.T) {
	if err := CheckClockSkew(context.Background(), fakeNTP{offset: 2 * time.Second}, "pool.ntp.org"); err != nil {
		t.Errorf("expected a small offset to pass, got %v", err)
	}
}

func TestCheckClockSkewRejectsLargeOffset(t *testing.T) {
	if err := CheckClockSkew(context.Background(), fakeNTP{offset: 90 * time.Second}, "pool.ntp.org"); err == nil {
		t.Error("expected an offset past the limit to fail")
	}
}

func TestCheckClockSkewRejectsLargeNegativeOffset(t *testing.T) {
	if err := CheckClockSkew(context.Background(), fakeNTP{offset: -90 * time.Second}, "pool.ntp.org"); err == nil {
		t.Error("expected a large negative offset to fail")
	}
}

func TestCheckClockSkewPropagatesQueryError(t *testing.T) {
	if err := CheckClockSkew(context.Background(), fakeNTP{err: errors.New("no route to host")}, "pool.ntp.org"); err == nil {
		t.Error("expected a query error to propagate")
	}
}

type fakeIP struct{ ip string }

func (f fakeIP) OutboundIP() (string, error) { return f.ip, nil }

func TestNewWiresComponentsAndDiscoversIP(t *testing.T) {
	dir := t.TempDir()
	n, err := New(Config{
		StoragePath:       dir,
		CommunicationPort: 0,
		WebPort:           0,
		CrontabPath:       dir + "/crontab.managed",
		IP:                fakeIP{ip: "192.0.2.1"},
		NTP:               fakeNTP{},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n.SelfIP() != "192.0.2.1" {
		t.Errorf("expected discovered self IP, got %q", n.SelfIP())
	}
	if len(n.manager.List()) == 0 {
		t.Error("expected at least one registered component")
	}
}
