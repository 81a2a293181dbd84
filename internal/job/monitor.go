// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package job drives one document submission from upload to the extracted
// record: Idle -> Uploading -> Processing -> Done, Failed or Canceled.
//
// The Monitor also owns the unsaved-work flag. It is raised when an upload
// starts and lowered when the job reaches any terminal phase, so callers can
// ask NeedsConfirm or ConfirmExit before letting the user walk away.
package job

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	ferrors "freetron/cli/internal/errors"
	"freetron/cli/internal/model"
	"freetron/cli/internal/rpc"
	"freetron/cli/internal/transport"
	"freetron/cli/internal/validate"
)

// Phase is a step of the job lifecycle.
type Phase int

const (
	Idle Phase = iota
	Uploading
	Processing
	Done
	Failed
	Canceled
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Uploading:
		return "uploading"
	case Processing:
		return "processing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions happen from p.
func (p Phase) Terminal() bool { return p == Done || p == Failed || p == Canceled }

// Active reports whether work is in flight in p.
func (p Phase) Active() bool { return p == Uploading || p == Processing }

// User-facing status messages.
const (
	MsgUploadFailed    = "Error uploading file"
	MsgCanceled        = "Canceled"
	MsgProcessFailed   = "Error processing file"
	MsgProcessCanceled = "Processing canceled"
	MsgTimedOut        = "Processing timed out"
	MsgDownloadFailed  = "Error downloading information"
)

// ExitPrompt is returned by ConfirmExit while work is pending.
const ExitPrompt = "Are you sure you want to leave this page? You will lose data if you do."

var (
	// ErrBusy is returned by Start while a job is uploading or processing.
	ErrBusy = errors.New("job: a submission is already in progress")
	// ErrUploadRejected means the server answered the upload with "failed".
	ErrUploadRejected = errors.New("job: upload rejected by server")
	// ErrBadReply means a reply did not have the expected shape.
	ErrBadReply = errors.New("job: unexpected reply")
	// ErrCanceled is the Result error of a canceled job.
	ErrCanceled = errors.New("job: canceled")
	// ErrTimeout means Policy.Timeout elapsed while processing.
	ErrTimeout = errors.New("job: processing deadline exceeded")
	// ErrAttempts means Policy.MaxAttempts polls did not reach 100%.
	ErrAttempts = errors.New("job: poll attempts exhausted")
)

// Policy bounds the processing poll loop.
type Policy struct {
	// MaxAttempts caps the number of form_process polls; 0 means unlimited
	MaxAttempts int
	// PollInterval is the minimum spacing between polls
	PollInterval time.Duration
	// Timeout bounds the whole processing phase; 0 means no deadline
	Timeout time.Duration
}

// DefaultPolicy polls twice a second without limits.
func DefaultPolicy() Policy {
	return Policy{PollInterval: 500 * time.Millisecond}
}

// Submission is one file to upload under a numeric key.
type Submission struct {
	Key      string
	Path     string
	Filename string
	// ContentType is the declared type of the file
	ContentType string
}

// Events are optional observers. They are called without the Monitor's lock
// held; upload events run on the transport's callback path.
type Events struct {
	OnPhase           func(Phase)
	OnUploadProgress  func(transport.Progress)
	OnProcessProgress func(percent int)
	OnRecord          func(model.Form)
	OnError           func(msg string, err error)
	OnStatusReset     func()
}

func (e Events) withDefaults() Events {
	if e.OnPhase == nil {
		e.OnPhase = func(Phase) {}
	}
	if e.OnUploadProgress == nil {
		e.OnUploadProgress = func(transport.Progress) {}
	}
	if e.OnProcessProgress == nil {
		e.OnProcessProgress = func(int) {}
	}
	if e.OnRecord == nil {
		e.OnRecord = func(model.Form) {}
	}
	if e.OnError == nil {
		e.OnError = func(string, error) {}
	}
	if e.OnStatusReset == nil {
		e.OnStatusReset = func() {}
	}
	return e
}

// Recorder receives job statistics.
type Recorder interface {
	PollAttempt()
	JobFinished(phase string)
}

type noopRecorder struct{}

func (noopRecorder) PollAttempt()       {}
func (noopRecorder) JobFinished(string) {}

// Options configures a Monitor.
type Options struct {
	// UploadPath is the upload endpoint prefix; the key is appended
	UploadPath string
	Policy     Policy
	Events     Events
	// ResetAfter delays OnStatusReset after a job ends; 0 means 3s
	ResetAfter time.Duration
	Logger     *slog.Logger
	Recorder   Recorder
}

// Result is a snapshot of the current or last job.
type Result struct {
	Phase   Phase
	JobID   int64
	Percent int
	Polls   int
	Record  *model.Form
	Message string
	Err     error
}

// Monitor runs one submission at a time.
type Monitor struct {
	t       transport.Transport
	process *rpc.Operation
	getone  *rpc.Operation
	opts    Options
	events  Events
	rec     Recorder
	log     *slog.Logger

	mu      sync.Mutex
	phase   Phase
	unsaved bool
	res     Result
	cur     *run
	reset   *time.Timer
}

// run is the per-submission scope. Callbacks carrying a run other than the
// Monitor's current one are stale and ignored.
type run struct {
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (r *run) close() { r.once.Do(func() { close(r.done) }) }

// New builds a Monitor. f must register form_process and form_getone.
func New(t transport.Transport, f *rpc.Facade, opts Options) *Monitor {
	if opts.UploadPath == "" {
		opts.UploadPath = "/upload"
	}
	if opts.ResetAfter <= 0 {
		opts.ResetAfter = 3 * time.Second
	}
	if opts.Policy.PollInterval < 0 {
		opts.Policy.PollInterval = 0
	}
	m := &Monitor{
		t:       t,
		process: f.MustOp("form_process"),
		getone:  f.MustOp("form_getone"),
		opts:    opts,
		events:  opts.Events.withDefaults(),
		rec:     opts.Recorder,
		log:     opts.Logger,
	}
	if m.rec == nil {
		m.rec = noopRecorder{}
	}
	if m.log == nil {
		m.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m
}

// Phase returns the current phase.
func (m *Monitor) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// NeedsConfirm reports whether leaving now would lose pending work.
func (m *Monitor) NeedsConfirm() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsaved
}

// ConfirmExit returns the prompt to show before exiting, and whether one is
// needed at all.
func (m *Monitor) ConfirmExit() (string, bool) {
	if !m.NeedsConfirm() {
		return "", false
	}
	return ExitPrompt, true
}

// Result returns a snapshot of the current or last job.
func (m *Monitor) Result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := m.res
	res.Phase = m.phase
	return res
}

var closedDone = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Done is closed when the current job has ended and, for a Done job, once
// its record fetch has finished.
func (m *Monitor) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return closedDone
	}
	return m.cur.done
}

// Start validates sub and begins uploading it. Validation failures are
// returned as validation-kind errors and send nothing.
func (m *Monitor) Start(ctx context.Context, sub Submission) error {
	if sub.Filename == "" {
		sub.Filename = filepath.Base(sub.Path)
	}
	if err := validate.CheckKey(sub.Key); err != nil {
		return err
	}
	if err := validate.CheckPDF(sub.ContentType, sub.Filename); err != nil {
		return err
	}
	if fi, err := os.Stat(sub.Path); err != nil {
		return ferrors.Wrap(ferrors.Validation, "cannot read file", err)
	} else if fi.IsDir() {
		return ferrors.New(ferrors.Validation, fmt.Sprintf("%s is a directory", sub.Path))
	}

	m.mu.Lock()
	if m.phase.Active() {
		m.mu.Unlock()
		return ErrBusy
	}
	if m.reset != nil {
		m.reset.Stop()
		m.reset = nil
	}
	rctx, cancel := context.WithCancel(ctx)
	r := &run{parent: ctx, ctx: rctx, cancel: cancel, done: make(chan struct{})}
	m.cur = r
	m.phase = Uploading
	m.unsaved = true
	m.res = Result{}
	m.mu.Unlock()

	m.log.Info("upload started", "key", sub.Key, "file", sub.Filename)
	m.events.OnPhase(Uploading)

	part := transport.FilePart{
		Field:       "file",
		Filename:    sub.Filename,
		ContentType: sub.ContentType,
		Path:        sub.Path,
	}
	call := m.t.Send(rctx, m.opts.UploadPath+"/"+sub.Key, transport.MultipartFile(part), transport.Callbacks{
		OnComplete: func(body []byte) { m.uploaded(r, body) },
		OnFail: func(_ []byte, err error) {
			m.finish(r, Failed, MsgUploadFailed, err)
		},
		OnProgress: func(p transport.Progress) {
			if m.current(r, Uploading) {
				m.events.OnUploadProgress(p)
			}
		},
		OnCancel: func() { m.finish(r, Canceled, MsgCanceled, ErrCanceled) },
	})

	select {
	case <-call.Done():
		if call.Outcome() == "" {
			m.finish(r, Failed, MsgUploadFailed, transport.ErrNoTransport)
		}
	default:
	}
	return nil
}

// Cancel aborts the current job. An upload in flight is aborted and the job
// ends Canceled; a processing job stops polling and ends Canceled.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	r := m.cur
	var msg string
	switch m.phase {
	case Uploading:
		msg = MsgCanceled
	case Processing:
		msg = MsgProcessCanceled
	default:
		m.mu.Unlock()
		return
	}
	m.settleLocked(Canceled, msg, ErrCanceled)
	m.mu.Unlock()
	m.settled(r, Canceled, msg, ErrCanceled)
}

func (m *Monitor) current(r *run, phase Phase) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur == r && m.phase == phase
}

// uploaded interprets the upload reply: "failed" or a numeric job ID.
func (m *Monitor) uploaded(r *run, body []byte) {
	reply := string(bytes.Trim(bytes.TrimSpace(body), `"`))
	if reply == "failed" {
		m.finish(r, Failed, MsgUploadFailed, ErrUploadRejected)
		return
	}
	id, err := strconv.ParseInt(reply, 10, 64)
	if err != nil {
		m.finish(r, Failed, MsgUploadFailed, fmt.Errorf("%w: upload reply %q", ErrBadReply, reply))
		return
	}

	m.mu.Lock()
	if m.cur != r || m.phase != Uploading {
		m.mu.Unlock()
		return
	}
	m.phase = Processing
	m.res.JobID = id
	m.mu.Unlock()

	m.log.Info("processing started", "job", id)
	m.events.OnPhase(Processing)

	pctx, pcancel := r.ctx, context.CancelFunc(func() {})
	if m.opts.Policy.Timeout > 0 {
		pctx, pcancel = context.WithTimeoutCause(r.ctx, m.opts.Policy.Timeout, ErrTimeout)
	}
	go func() {
		defer pcancel()
		m.poll(r, pctx, id)
	}()
}

// poll issues form_process once per tick and never before the previous
// reply has been handled.
func (m *Monitor) poll(r *run, ctx context.Context, id int64) {
	every := rate.Inf
	if m.opts.Policy.PollInterval > 0 {
		every = rate.Every(m.opts.Policy.PollInterval)
	}
	limiter := rate.NewLimiter(every, 1)

	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			m.pollStopped(r, err)
			return
		}
		if limit := m.opts.Policy.MaxAttempts; limit > 0 && attempt >= limit {
			m.finish(r, Failed, MsgTimedOut, ErrAttempts)
			return
		}
		if !m.countPoll(r) {
			return
		}

		raw, err := m.process.Call(ctx, id).Wait(context.Background())
		if err != nil {
			m.pollStopped(r, err)
			return
		}
		pct, err := parsePercent(raw)
		if err != nil {
			m.finish(r, Failed, MsgProcessFailed, err)
			return
		}
		if !m.setPercent(r, pct) {
			return
		}
		m.events.OnProcessProgress(pct)
		if pct == 100 {
			m.completed(r, id)
			return
		}
	}
}

func (m *Monitor) countPoll(r *run) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != r || m.phase != Processing {
		return false
	}
	m.res.Polls++
	m.rec.PollAttempt()
	return true
}

func (m *Monitor) setPercent(r *run, pct int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != r || m.phase != Processing {
		return false
	}
	m.res.Percent = pct
	return true
}

// pollStopped maps a poll-loop interruption to the terminal phase. A
// canceled run is a user cancel; anything else on a live run is a deadline
// or a transport failure.
func (m *Monitor) pollStopped(r *run, err error) {
	switch {
	case r.ctx.Err() != nil:
		m.finish(r, Canceled, MsgProcessCanceled, ErrCanceled)
	case errors.Is(err, transport.ErrTimeout), rpc.KindOf(err) == rpc.KindCanceled, errors.Is(err, context.DeadlineExceeded):
		m.finish(r, Failed, MsgTimedOut, errors.Join(ErrTimeout, err))
	case rpc.KindOf(err) == "":
		// limiter: next tick falls past the deadline
		m.finish(r, Failed, MsgTimedOut, errors.Join(ErrTimeout, err))
	default:
		m.finish(r, Failed, MsgProcessFailed, err)
	}
}

func parsePercent(raw json.RawMessage) (int, error) {
	var reply struct {
		Percent *float64 `json:"percent"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadReply, err)
	}
	if reply.Percent == nil {
		return 0, fmt.Errorf("%w: no percent in %s", ErrBadReply, string(raw))
	}
	p := *reply.Percent
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("%w: percent %v out of range", ErrBadReply, p)
	}
	return int(p), nil
}

// completed moves the job to Done and fetches its record. The fetch is
// bound to the caller's context, not to the processing deadline.
func (m *Monitor) completed(r *run, id int64) {
	if !m.finish(r, Done, "", nil) {
		return
	}
	defer func() {
		r.close()
		m.scheduleReset(r)
	}()

	var forms []model.Form
	if err := m.getone.Call(r.parent, id).Decode(context.Background(), &forms); err != nil {
		m.log.Warn("record fetch failed", "job", id, "error", err)
		m.mu.Lock()
		if m.cur == r {
			m.res.Message = MsgDownloadFailed
			m.res.Err = err
		}
		m.mu.Unlock()
		m.events.OnError(MsgDownloadFailed, err)
		return
	}
	if len(forms) == 0 {
		return
	}
	rec := forms[0]
	m.mu.Lock()
	if m.cur == r {
		m.res.Record = &rec
	}
	m.mu.Unlock()
	m.events.OnRecord(rec)
}

// finish moves r to a terminal phase unless it is stale or already ended.
func (m *Monitor) finish(r *run, to Phase, msg string, err error) bool {
	m.mu.Lock()
	if m.cur != r || m.phase.Terminal() || m.phase == Idle {
		m.mu.Unlock()
		return false
	}
	m.settleLocked(to, msg, err)
	m.mu.Unlock()
	m.settled(r, to, msg, err)
	return true
}

func (m *Monitor) settleLocked(to Phase, msg string, err error) {
	m.phase = to
	m.unsaved = false
	m.res.Message = msg
	m.res.Err = err
}

// settled runs the side effects of a terminal transition outside the lock.
func (m *Monitor) settled(r *run, to Phase, msg string, err error) {
	r.cancel()
	m.rec.JobFinished(to.String())
	if err != nil {
		m.log.Info("job ended", "phase", to.String(), "message", msg, "error", err)
	} else {
		m.log.Info("job ended", "phase", to.String())
	}
	m.events.OnPhase(to)
	if to == Failed {
		m.events.OnError(msg, err)
	}
	if to != Done {
		r.close()
		m.scheduleReset(r)
	}
}

func (m *Monitor) scheduleReset(r *run) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != r {
		return
	}
	if m.reset != nil {
		m.reset.Stop()
	}
	m.reset = time.AfterFunc(m.opts.ResetAfter, func() {
		m.mu.Lock()
		stale := m.cur != r
		m.mu.Unlock()
		if !stale {
			m.events.OnStatusReset()
		}
	})
}
