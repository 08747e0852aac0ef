package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTableAlignsWideRunes(t *testing.T) {
	var out bytes.Buffer
	err := writeTable(&out, []string{"NAME", "NOTE"}, [][]string{
		{"öğrenci", "a"},
		{"\x1b[1mali\x1b[0m", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "NAME     NOTE\nöğrenci  a\n\x1b[1mali\x1b[0m      b\n", out.String())
}

func TestWriteTableFlattensLongCells(t *testing.T) {
	var out bytes.Buffer
	long := "line one\nline two " + string(bytes.Repeat([]byte("x"), 80))
	require.NoError(t, writeTable(&out, nil, [][]string{{long}}))
	line := out.String()
	assert.NotContains(t, line[:len(line)-1], "\n")
	assert.Contains(t, line, "line one line two")
	assert.Contains(t, line, "…")
}

func TestWriteTableEmpty(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeTable(&out, nil, nil))
	assert.Empty(t, out.String())
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "plain", stripANSI("plain"))
	assert.Equal(t, "red", stripANSI("\x1b[31mred\x1b[0m"))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 30, 0, 0, time.Local)
	assert.Equal(t, "1 hour ago", relativeTime("05.03.2024 09:30", now))
	assert.Equal(t, "", relativeTime("", now))
	assert.Equal(t, "", relativeTime("not a date", now))
}
