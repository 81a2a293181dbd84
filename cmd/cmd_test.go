// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "freetron/cli/internal/errors"
	"freetron/cli/internal/job"
	"freetron/cli/internal/rpc"
	"freetron/cli/internal/transport"
)

func TestParseFormID(t *testing.T) {
	id, err := parseFormID(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "abc", "-1", "1.5"} {
		_, err := parseFormID(bad)
		assert.True(t, ferrors.Is(err, ferrors.Validation), bad)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "  ", "b", "c"))
	assert.Empty(t, firstNonEmpty("", " "))
}

func TestDetectType(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.bin")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n"), 0o600))
	got, err := detectType(pdf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", got)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("just some notes\n"), 0o600))
	got, err = detectType(txt)
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got)

	_, err = detectType(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)
}

func TestPrintFormsRejectsUnknownFormat(t *testing.T) {
	old := formsOutput
	t.Cleanup(func() { formsOutput = old })
	formsOutput = "xml"
	assert.True(t, ferrors.Is(printForms(nil), ferrors.Validation))
}

func TestReportedError(t *testing.T) {
	base := errors.New("boom")
	err := reported(base)
	var shown reportedError
	assert.True(t, errors.As(err, &shown))
	assert.ErrorIs(t, err, base)
	assert.NoError(t, reported(nil))
}

func TestLoadConfigFlagOverridesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server: https://file.example.com\npoll:\n  interval: 2s\n"), 0o600))
	old := flagConfig
	t.Cleanup(func() { flagConfig = old })
	flagConfig = file

	c := &cobra.Command{}
	c.Flags().String("server", "", "")
	c.Flags().String("socket", "", "")

	cfg, _, err := loadConfig(c)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.Server)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)

	require.NoError(t, c.Flags().Set("server", "https://flag.example.com"))
	cfg, _, err = loadConfig(c)
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com", cfg.Server)
}

func TestWaitJobNeedsSecondInterrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n"), 0o600))

	m := transport.NewManual()
	mon := job.New(m, rpc.New(m, "/rpc", rpc.DefaultOperations), job.Options{})
	require.NoError(t, mon.Start(context.Background(), job.Submission{Key: "7", Path: path, ContentType: "application/pdf"}))
	_, err := m.Await(1, time.Second)
	require.NoError(t, err)

	sigs := make(chan os.Signal, 2)
	done := make(chan struct{})
	go func() {
		waitJob(mon, sigs)
		close(done)
	}()

	sigs <- os.Interrupt
	select {
	case <-done:
		t.Fatal("first interrupt must only warn")
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, job.Uploading, mon.Phase())

	sigs <- os.Interrupt
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("second interrupt did not cancel")
	}
	assert.Equal(t, job.Canceled, mon.Phase())
	assert.False(t, mon.NeedsConfirm())
}
