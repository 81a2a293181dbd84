package terminal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesUsed(t *testing.T) {
	tests := []struct {
		length, width, want int
	}{
		{0, 80, 2},
		{10, 80, 2},
		{80, 80, 2},
		{81, 80, 3},
		{200, 80, 4},
		{5, 0, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, linesUsed(tt.length, tt.width), "length=%d width=%d", tt.length, tt.width)
	}
}

func TestClearLines(t *testing.T) {
	var buf bytes.Buffer
	clearLines(&buf, 3)
	assert.Equal(t, "\r\x1b[2K\x1b[1A\r\x1b[2K\x1b[1A\r\x1b[2K", buf.String())
}

func TestReadPasswordFromPipe(t *testing.T) {
	in := strings.NewReader("s3cret\nagain\n")
	got, err := ReadPassword("", in)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
	got, err = ReadPassword("", in)
	require.NoError(t, err)
	assert.Equal(t, "again", got)

	got, err = ReadLine("", strings.NewReader("no newline"))
	require.NoError(t, err)
	assert.Equal(t, "no newline", got)

	_, err = ReadLine("", strings.NewReader(""))
	assert.Error(t, err)
}
