// Package terminal provides prompts and line clearing for interactive use.
package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Width returns the stdout width, or 80 when stdout is not a terminal.
func Width() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// linesUsed counts the rows textLength characters wrap to at width, plus
// the empty row left after Enter.
func linesUsed(textLength, width int) int {
	if width <= 0 {
		width = 80
	}
	lines := (textLength + width - 1) / width
	if lines < 1 {
		lines = 1
	}
	return lines + 1
}

// ClearPreviousLines erases a prompt and its answer from the terminal.
func ClearPreviousLines(textLength int) {
	clearLines(os.Stdout, linesUsed(textLength, Width()))
}

func clearLines(w io.Writer, n int) {
	for i := 0; i < n; i++ {
		fmt.Fprint(w, "\r\x1b[2K")
		if i < n-1 {
			fmt.Fprint(w, "\x1b[1A")
		}
	}
}

// ReadPassword prompts on stderr and reads a line without echo. When stdin
// is not a terminal the line is read from in as-is, which lets scripts pipe
// a password.
func ReadPassword(prompt string, in io.Reader) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if f, ok := in.(*os.File); ok && f == os.Stdin && term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(in)
}

// ReadLine prompts on stderr and reads one line with echo.
func ReadLine(prompt string, in io.Reader) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	return readLine(in)
}

var (
	readersMu sync.Mutex
	readers   = map[io.Reader]*bufio.Reader{}
)

// buffered returns one reader per source so consecutive prompts on a pipe
// do not lose lines to an earlier reader's buffer.
func buffered(in io.Reader) *bufio.Reader {
	if br, ok := in.(*bufio.Reader); ok {
		return br
	}
	readersMu.Lock()
	defer readersMu.Unlock()
	br, ok := readers[in]
	if !ok {
		br = bufio.NewReader(in)
		readers[in] = br
	}
	return br
}

func readLine(in io.Reader) (string, error) {
	line, err := buffered(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
