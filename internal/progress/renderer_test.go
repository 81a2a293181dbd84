// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package progress

import (
	"errors"
	"io"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freetron/cli/internal/job"
	"freetron/cli/internal/model"
	"freetron/cli/internal/transport"
)

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "Processing 40%", StatusLine(job.Processing, 40))
	assert.Equal(t, "Processing complete", StatusLine(job.Done, 100))
	assert.Equal(t, "Uploading", StatusLine(job.Uploading, 0))
	assert.Empty(t, StatusLine(job.Idle, 0))
}

func TestCancelMessage(t *testing.T) {
	assert.Equal(t, job.MsgCanceled, CancelMessage(job.Uploading))
	assert.Equal(t, job.MsgProcessCanceled, CancelMessage(job.Processing))
}

func TestRecordRows(t *testing.T) {
	rows := RecordRows(model.Form{ID: 7, Name: "scan.pdf", Date: "2026-10-01", Data: "total=12"})
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"ID", "7"}, rows[1])
	assert.Equal(t, []string{"Data", "total=12"}, rows[4])
}

func TestRendererFollowsJob(t *testing.T) {
	pterm.SetDefaultOutput(io.Discard)
	pterm.DisableOutput()
	t.Cleanup(pterm.EnableOutput)

	r := New(nil)
	ev := r.Events()
	ev.OnPhase(job.Uploading)
	ev.OnUploadProgress(transport.Progress{Direction: transport.Upload, Loaded: 50, Total: 100})
	ev.OnUploadProgress(transport.Progress{Direction: transport.Download, Loaded: 1, Total: -1})
	ev.OnPhase(job.Processing)
	ev.OnProcessProgress(60)
	ev.OnPhase(job.Done)
	ev.OnRecord(model.Form{ID: 3, Name: "a.pdf"})
	ev.OnError(job.MsgDownloadFailed, errors.New("boom"))
	ev.OnStatusReset()

	require.NotNil(t, r.Record())
	assert.Equal(t, int64(3), r.Record().ID)
	assert.Nil(t, r.bar)
	assert.Nil(t, r.spinner)
}
