package web

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

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

func (f *fakeBroadcaster) last() wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.out) == 0 {
		return nil
	}
	return f.out[len(f.out)-1]
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out)
}

func newTestServer(bc *fakeBroadcaster, st *store.Store) *Server {
	return New(Config{SelfIP: "10.0.0.1", Store: st, Broadcaster: bc})
}

func TestAddJobCreatesAndBroadcasts(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestServer(bc, store.New(""))

	form := url.Values{"command": {"echo hi"}, "minute": {"*"}}
	req := httptest.NewRequest(http.MethodPost, "/add_job", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if bc.count() != 1 {
		t.Fatalf("expected one broadcast, got %d", bc.count())
	}
	job, ok := bc.last().(wire.Job)
	if !ok {
		t.Fatalf("expected a wire.Job broadcast, got %T", bc.last())
	}
	if job.Command != "echo hi" || job.Remove {
		t.Errorf("unexpected job broadcast: %+v", job)
	}
}

func TestAddJobConflictsWhenAlreadyPresent(t *testing.T) {
	bc := &fakeBroadcaster{}
	st := store.New("")
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi"})
	s := newTestServer(bc, st)

	form := url.Values{"command": {"echo hi"}}
	req := httptest.NewRequest(http.MethodPost, "/add_job", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if bc.count() != 0 {
		t.Error("expected no broadcast on conflict")
	}
}

func TestAddJobMissingCommandFails(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestServer(bc, store.New(""))

	req := httptest.NewRequest(http.MethodPost, "/add_job", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRemoveJobConflictsWhenMissing(t *testing.T) {
	bc := &fakeBroadcaster{}
	s := newTestServer(bc, store.New(""))

	form := url.Values{"command": {"echo gone"}}
	req := httptest.NewRequest(http.MethodPost, "/remove_job", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRemoveJobAcceptsAndBroadcastsTombstone(t *testing.T) {
	bc := &fakeBroadcaster{}
	st := store.New("")
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi"})
	s := newTestServer(bc, st)

	form := url.Values{"command": {"echo hi"}}
	req := httptest.NewRequest(http.MethodPost, "/remove_job", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	job := bc.last().(wire.Job)
	if !job.Remove {
		t.Error("expected the broadcast job to be a tombstone")
	}
}

func TestListJobsReturnsJSONWhenRequested(t *testing.T) {
	st := store.New("")
	st.AddOrUpdateJob(wire.Job{Pattern: "* * * * *", Command: "echo hi"})
	s := newTestServer(&fakeBroadcaster{}, st)

	req := httptest.NewRequest(http.MethodGet, "/list_jobs?format=json", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "echo hi") {
		t.Errorf("expected body to mention the job command, got %s", rec.Body.String())
	}
}

func TestGetJobLogReturnsConflictWhenMissing(t *testing.T) {
	s := newTestServer(&fakeBroadcaster{}, store.New(""))

	form := url.Values{"command": {"echo missing"}}
	req := httptest.NewRequest(http.MethodPost, "/get_job_log", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
