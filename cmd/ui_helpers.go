package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"freetron/cli/internal/auth"
	"freetron/cli/internal/terminal"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// startInlineSpinner animates frames followed by text on one line of w until
// the returned stop function is called, which also clears the line.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
			select {
			case <-stop:
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			wg.Wait()
		})
	}
}

// spin shows a spinner on stderr while fn runs, when stderr is a terminal.
func spin(text string, fn func() error) error {
	if !terminal.IsInteractive() {
		return fn()
	}
	stop := startInlineSpinner(os.Stderr, text, spinnerFrames, 120*time.Millisecond)
	defer stop()
	return fn()
}

func printError(msg string) {
	pterm.Error.Println(msg)
}

func printNotLoggedIn() {
	fmt.Println("🔒 You're not logged in yet!")
	fmt.Println("   Run 'freetron login' to get started.")
}

// requireLogin reports whether a session exists, printing a hint when not.
func requireLogin(a *app) bool {
	st, err := auth.Load(a.km)
	if err != nil || !st.LoggedIn || !a.session.Active() {
		printNotLoggedIn()
		return false
	}
	return true
}
