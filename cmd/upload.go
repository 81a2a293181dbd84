// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	ferrors "freetron/cli/internal/errors"
	"freetron/cli/internal/job"
	"freetron/cli/internal/metrics"
	"freetron/cli/internal/progress"
	"freetron/cli/internal/terminal"
	"freetron/cli/internal/validate"
)

var (
	uploadKey   string
	uploadType  string
	uploadStats bool
)

// confirmWindow is how long a first Ctrl+C stays armed.
const confirmWindow = 5 * time.Second

// uploadCmd submits one PDF form and follows it until its record is extracted.
var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload a PDF form and wait for it to be processed",
	Long: `The upload command sends a PDF form to the server under a numeric key,
shows upload progress, then polls the server while it processes the form and
prints the extracted record once processing reaches 100%.

Press Ctrl+C to cancel. While the upload or processing is still running the
first Ctrl+C asks for confirmation; press it again to cancel.`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return ferrors.Wrap(ferrors.Validation, "cannot read "+path, err)
		}
		if info.IsDir() {
			return ferrors.New(ferrors.Validation, path+" is a directory")
		}
		ctype := uploadType
		if ctype == "" {
			ctype, err = detectType(path)
			if err != nil {
				return ferrors.Wrap(ferrors.Validation, "cannot read "+path, err)
			}
		}
		name := filepath.Base(path)
		printSummary(name, info.Size(), ctype)
		if err := validate.CheckPDF(ctype, name); err != nil {
			return err
		}

		key := strings.TrimSpace(uploadKey)
		if key == "" {
			if key, err = terminal.ReadLine("Key: ", os.Stdin); err != nil {
				return err
			}
			key = strings.TrimSpace(key)
		}
		if err := validate.CheckKey(key); err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if !requireLogin(a) {
			return nil
		}
		defer a.saveSession()

		render := progress.New(a.log)
		mon := job.New(a.tr, a.facade, job.Options{
			UploadPath: a.ep.Upload,
			Policy:     a.policy(),
			Events:     render.Events(),
			Logger:     a.log,
			Recorder:   a.metrics,
		})

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		err = mon.Start(cmd.Context(), job.Submission{Key: key, Path: path, Filename: name, ContentType: ctype})
		if err != nil {
			return err
		}
		waitJob(mon, sigs)

		if uploadStats {
			pterm.Println()
			if err := metrics.WriteSummary(os.Stdout, a.reg); err != nil {
				a.log.Warn("could not write stats", "error", err)
			}
		}

		res := mon.Result()
		a.log.Debug("job finished", "phase", res.Phase.String(), "job", res.JobID, "polls", res.Polls)
		switch {
		case res.Phase == job.Done && res.Err == nil:
			if res.Record == nil {
				pterm.Info.Println("The server returned no record for this form")
			}
			return nil
		case res.Err != nil:
			return reported(res.Err)
		default:
			return reported(fmt.Errorf("job ended in phase %s", res.Phase))
		}
	},
}

// waitJob blocks until the monitor's job ends, turning interrupts into
// cancellation. A first Ctrl+C during pending work only shows the exit prompt.
func waitJob(mon *job.Monitor, sigs <-chan os.Signal) {
	var armed time.Time
	for {
		select {
		case <-mon.Done():
			return
		case sig := <-sigs:
			prompt, pending := mon.ConfirmExit()
			if sig == os.Interrupt && pending && time.Since(armed) > confirmWindow {
				armed = time.Now()
				pterm.Println()
				pterm.Warning.Println(prompt + " Press Ctrl+C again to cancel.")
				continue
			}
			mon.Cancel()
		}
	}
}

// detectType sniffs the content type of path, without parameters.
func detectType(path string) (string, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	ctype, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(ctype), nil
}

func printSummary(name string, size int64, ctype string) {
	label := pterm.NewStyle(pterm.FgLightCyan)
	value := pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	pterm.Println()
	pterm.Println(label.Sprint("→ File: ") + value.Sprint(name))
	pterm.Println(label.Sprint("→ Size: ") + value.Sprint(validate.FormatSize(size)))
	pterm.Println(label.Sprint("→ Type: ") + value.Sprint(ctype))
	pterm.Println()
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadKey, "key", "k", "", "numeric upload key (1-10 digits)")
	uploadCmd.Flags().StringVar(&uploadType, "type", "", "declared content type (detected from the file when empty)")
	uploadCmd.Flags().BoolVar(&uploadStats, "stats", false, "print request statistics when done")
	rootCmd.AddCommand(uploadCmd)
}
