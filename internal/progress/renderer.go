// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package progress renders job events to the terminal: a progress bar while
// the file uploads, a spinner with the server's percentage while it is
// processed, then the extracted record.
package progress

import (
	"fmt"
	"log/slog"
	"sync"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"freetron/cli/internal/job"
	"freetron/cli/internal/logging"
	"freetron/cli/internal/model"
	"freetron/cli/internal/transport"
)

// Renderer is not safe to share between monitors.
type Renderer struct {
	log *slog.Logger

	mu      sync.Mutex
	prev    job.Phase
	bar     *pterm.ProgressbarPrinter
	spinner *pterm.SpinnerPrinter
	record  *model.Form
}

// New creates a renderer. A nil logger discards.
func New(log *slog.Logger) *Renderer {
	if log == nil {
		log = logging.Discard()
	}
	return &Renderer{log: log}
}

// Events returns the observers to pass to job.Options.
func (r *Renderer) Events() job.Events {
	return job.Events{
		OnPhase:           r.phase,
		OnUploadProgress:  r.upload,
		OnProcessProgress: r.process,
		OnRecord:          r.recordReady,
		OnError:           r.failed,
		OnStatusReset:     func() { r.log.Debug("status reset") },
	}
}

// Record returns the record shown, if any.
func (r *Renderer) Record() *model.Form {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record
}

func (r *Renderer) phase(p job.Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.prev
	r.prev = p

	switch p {
	case job.Uploading:
		cursor.Hide()
		bar, err := pterm.DefaultProgressbar.WithTotal(100).WithTitle("Uploading").WithRemoveWhenDone(true).Start()
		if err == nil {
			r.bar = bar
		}
	case job.Processing:
		r.stopBar()
		sp, err := pterm.DefaultSpinner.WithRemoveWhenDone(false).Start(StatusLine(job.Processing, 0))
		if err == nil {
			r.spinner = sp
		}
	case job.Done:
		r.stopBar()
		if r.spinner != nil {
			r.spinner.Success(StatusLine(job.Done, 100))
			r.spinner = nil
		} else {
			pterm.Success.Println(StatusLine(job.Done, 100))
		}
		cursor.Show()
	case job.Canceled:
		r.stopAll()
		pterm.Warning.Println(CancelMessage(prev))
	case job.Failed:
		// the message follows through OnError
		r.stopAll()
	}
}

func (r *Renderer) upload(p transport.Progress) {
	if p.Direction != transport.Upload {
		return
	}
	pct, ok := p.Percent()
	if !ok {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar == nil {
		return
	}
	if delta := pct - r.bar.Current; delta > 0 {
		r.bar.Add(delta)
	}
}

func (r *Renderer) process(pct int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner != nil {
		r.spinner.UpdateText(StatusLine(job.Processing, pct))
	}
}

func (r *Renderer) recordReady(f model.Form) {
	r.mu.Lock()
	r.record = &f
	r.mu.Unlock()

	pterm.Println()
	_ = pterm.DefaultTable.WithHasHeader(true).WithData(RecordRows(f)).Render()
}

func (r *Renderer) failed(msg string, err error) {
	r.mu.Lock()
	r.stopAll()
	r.mu.Unlock()
	r.log.Debug("job error", "message", msg, "error", err)
	pterm.Error.Println(msg)
}

func (r *Renderer) stopBar() {
	if r.bar != nil {
		_, _ = r.bar.Stop()
		r.bar = nil
	}
}

func (r *Renderer) stopAll() {
	r.stopBar()
	if r.spinner != nil {
		_ = r.spinner.Stop()
		r.spinner = nil
	}
	cursor.Show()
}

// StatusLine is the one-line status shown for a phase.
func StatusLine(p job.Phase, pct int) string {
	switch p {
	case job.Uploading:
		return "Uploading"
	case job.Processing:
		return fmt.Sprintf("Processing %d%%", pct)
	case job.Done:
		return "Processing complete"
	case job.Failed:
		return "Failed"
	case job.Canceled:
		return job.MsgCanceled
	default:
		return ""
	}
}

// CancelMessage names what was canceled given the phase the job left.
func CancelMessage(from job.Phase) string {
	if from == job.Processing {
		return job.MsgProcessCanceled
	}
	return job.MsgCanceled
}

// RecordRows lays a record out as a two-column table with a header.
func RecordRows(f model.Form) pterm.TableData {
	return pterm.TableData{
		{"Field", "Value"},
		{"ID", fmt.Sprint(f.ID)},
		{"Name", f.Name},
		{"Date", f.Date},
		{"Data", f.Data},
	}
}
