// Package web implements the node's HTTP surface, spec §6: a handful of
// fixed routes returning HTML or JSON views of the store, and a set of
// POST actions that translate form fields into broadcast messages. The
// teacher's rest/turbo stack pulls in a stale, uncompilable auth
// subpackage (see DESIGN.md), so this package is a fresh net/http.ServeMux
// server instead, keeping only rest/server_context.go's Context shape.
package web

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/witlox/dcron/l3"
	"github.com/witlox/dcron/lifecycle"
	"github.com/witlox/dcron/processor"
	"github.com/witlox/dcron/scheduler"
	"github.com/witlox/dcron/store"
	"github.com/witlox/dcron/wire"
)

var logger = l3.Get()

// Config bundles a Server's fixed parameters.
type Config struct {
	Port        int
	Store       *store.Store
	Scheduler   *scheduler.Scheduler
	Broadcaster processor.Broadcaster
	SelfIP      string
	Now         func() time.Time
}

// Server is the node's HTTP surface.
type Server struct {
	cfg Config
	mux *http.ServeMux
	srv *http.Server
}

// New creates a Server bound to cfg. Routes are wired eagerly so Component
// can be started standalone in tests without a full node.
func New(cfg Config) *Server {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{cfg: cfg, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Component wraps Server as a lifecycle.Component.
func (s *Server) Component() lifecycle.Component {
	return &lifecycle.SimpleComponent{
		CompId:    "web",
		StartFunc: s.start,
		StopFunc:  s.stop,
	}
}

func (s *Server) start() error {
	s.srv = &http.Server{Addr: fmt.Sprintf(":%d", s.cfg.Port), Handler: s.mux}
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("web: listening on %s: %w", s.srv.Addr, err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func (s *Server) stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/list_nodes", s.handleListNodes)
	s.mux.HandleFunc("/list_jobs", s.handleListJobs)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/jobs", s.handleListJobs)
	s.mux.HandleFunc("/cron_in_sync", s.handleCronInSync)
	s.mux.HandleFunc("/export", s.handleExport)
	s.mux.HandleFunc("/add_job", s.handleAddJob)
	s.mux.HandleFunc("/remove_job", s.handleRemoveJob)
	s.mux.HandleFunc("/run_job", s.handleRunJob)
	s.mux.HandleFunc("/kill_job", s.handleKillJob)
	s.mux.HandleFunc("/toggle_job", s.handleToggleJob)
	s.mux.HandleFunc("/get_job_log", s.handleGetJobLog)
	s.mux.HandleFunc("/import", s.handleImport)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	nodes := s.cfg.Store.ClusterState()
	jobs := s.cfg.Store.Jobs()
	var b strings.Builder
	b.WriteString("<html><head><title>dcron</title></head><body>")
	fmt.Fprintf(&b, "<h1>node %s</h1>", s.cfg.SelfIP)
	fmt.Fprintf(&b, "<p>%d nodes, %d jobs</p>", len(nodes), len(jobs))
	b.WriteString("<ul>")
	for _, n := range nodes {
		fmt.Fprintf(&b, "<li>%s — %s (load %.2f)</li>", n.IP, n.State, n.Load)
	}
	b.WriteString("</ul></body></html>")
	c.WriteHTML(http.StatusOK, b.String())
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	nodes := s.cfg.Store.ClusterState()
	if c.WantsJSON() {
		_ = c.WriteJSON(http.StatusOK, nodes)
		return
	}
	var b strings.Builder
	for _, n := range nodes {
		fmt.Fprintf(&b, "%s\t%s\t%.2f\n", n.IP, n.State, n.Load)
	}
	c.WriteText(http.StatusOK, b.String())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.handleListNodes(w, r)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	jobs := s.cfg.Store.Jobs()
	if c.WantsJSON() {
		_ = c.WriteJSON(http.StatusOK, jobs)
		return
	}
	var b strings.Builder
	for _, j := range jobs {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%v\n", j.Pattern, j.Command, j.AssignedTo, j.Enabled)
	}
	c.WriteText(http.StatusOK, b.String())
}

func (s *Server) handleCronInSync(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	in := s.cfg.Scheduler == nil || s.cfg.Scheduler.IsValid(s.cfg.Now())
	if c.WantsJSON() {
		_ = c.WriteJSON(http.StatusOK, map[string]bool{"in_sync": in})
		return
	}
	c.WriteText(http.StatusOK, strconv.FormatBool(in))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	_ = c.WriteJSON(http.StatusOK, s.cfg.Store.Jobs())
}

func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	if c.Method() != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	command := c.FormValue("command")
	if command == "" {
		c.WriteText(http.StatusInternalServerError, "missing required field: command")
		return
	}
	pattern := patternFromForm(c)

	if _, ok := s.cfg.Store.Job(pattern, command); ok {
		c.WriteText(http.StatusConflict, "job already exists")
		return
	}

	j := wire.Job{
		Pattern: pattern,
		Command: command,
		Enabled: c.FormValue("disabled") == "",
		Comment: c.FormValue("comment"),
	}
	if err := s.broadcast(j); err != nil {
		c.WriteText(http.StatusInternalServerError, err.Error())
		return
	}
	c.WriteText(http.StatusCreated, "created")
}

func (s *Server) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	if c.Method() != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	command := c.FormValue("command")
	if command == "" {
		c.WriteText(http.StatusInternalServerError, "missing required field: command")
		return
	}
	pattern := patternFromForm(c)

	existing, ok := s.cfg.Store.Job(pattern, command)
	if !ok {
		c.WriteText(http.StatusConflict, "job not found")
		return
	}
	existing.Remove = true
	if err := s.broadcast(existing); err != nil {
		c.WriteText(http.StatusInternalServerError, err.Error())
		return
	}
	c.WriteText(http.StatusAccepted, "accepted")
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	if c.Method() != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	command := c.FormValue("command")
	if command == "" {
		c.WriteText(http.StatusInternalServerError, "missing required field: command")
		return
	}
	j, ok := s.cfg.Store.Job(patternFromForm(c), command)
	if !ok {
		c.WriteText(http.StatusConflict, "job not found")
		return
	}
	if err := s.broadcast(wire.Run{Job: j}); err != nil {
		c.WriteText(http.StatusInternalServerError, err.Error())
		return
	}
	c.WriteText(http.StatusAccepted, "accepted")
}

func (s *Server) handleKillJob(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	if c.Method() != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	command := c.FormValue("command")
	if command == "" {
		c.WriteText(http.StatusInternalServerError, "missing required field: command")
		return
	}
	j, ok := s.cfg.Store.Job(patternFromForm(c), command)
	if !ok {
		c.WriteText(http.StatusConflict, "job not found")
		return
	}
	if err := s.broadcast(wire.Kill{Job: j, Pid: j.Pid}); err != nil {
		c.WriteText(http.StatusInternalServerError, err.Error())
		return
	}
	c.WriteText(http.StatusAccepted, "accepted")
}

func (s *Server) handleToggleJob(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	if c.Method() != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	command := c.FormValue("command")
	if command == "" {
		c.WriteText(http.StatusInternalServerError, "missing required field: command")
		return
	}
	j, ok := s.cfg.Store.Job(patternFromForm(c), command)
	if !ok {
		c.WriteText(http.StatusConflict, "job not found")
		return
	}
	if err := s.broadcast(wire.Toggle{Job: j}); err != nil {
		c.WriteText(http.StatusInternalServerError, err.Error())
		return
	}
	c.WriteText(http.StatusAccepted, "accepted")
}

func (s *Server) handleGetJobLog(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	if c.Method() != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	command := c.FormValue("command")
	if command == "" {
		c.WriteText(http.StatusInternalServerError, "missing required field: command")
		return
	}
	j, ok := s.cfg.Store.Job(patternFromForm(c), command)
	if !ok {
		c.WriteText(http.StatusConflict, "job not found")
		return
	}
	_ = c.WriteJSON(http.StatusOK, j.Log)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	c := newContext(w, r)
	if c.Method() != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	payload := c.FormValue("payload")
	if payload == "" {
		c.WriteText(http.StatusInternalServerError, "missing required field: payload")
		return
	}
	var jobs []wire.Job
	if err := jsonCodec.Read(strings.NewReader(payload), &jobs); err != nil {
		c.WriteText(http.StatusInternalServerError, fmt.Sprintf("decoding payload: %v", err))
		return
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Command < jobs[j].Command })
	for _, j := range jobs {
		if err := s.broadcast(j); err != nil {
			logger.WarnF("web: broadcasting imported job %q: %v", j.Command, err)
		}
	}
	c.WriteText(http.StatusAccepted, "accepted")
}

func (s *Server) broadcast(msg wire.Message) error {
	if s.cfg.Broadcaster == nil {
		return fmt.Errorf("web: no broadcaster configured")
	}
	return s.cfg.Broadcaster.Broadcast(msg)
}

func patternFromForm(c *Context) string {
	fields := []string{"minute", "hour", "dom", "month", "dow"}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v := c.FormValue(f)
		if v == "" {
			v = "*"
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}
