package text

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/openbci.go/pkg/cyton"
)

func TestFormatLine(t *testing.T) {
	testCases := []struct {
		sample cyton.Sample
		expect string
	}{
		{cyton.Sample{}, "128 0 0 0 0 0 0 0 0 0 0 0"},
		{cyton.Sample{Counter: 127}, "255 0 0 0 0 0 0 0 0 0 0 0"},
		{cyton.Sample{Counter: 128}, "0 0 0 0 0 0 0 0 0 0 0 0"},
		{cyton.Sample{Counter: 255}, "127 0 0 0 0 0 0 0 0 0 0 0"},
		{
			cyton.Sample{
				Counter:  1,
				Motion:   [3]int16{-1, 2, -300},
				Channels: [8]int32{8388607, -8388608, 1, 2, 3, 4, 5, -6},
			},
			"129 -1 2 -300 8388607 -8388608 1 2 3 4 5 -6",
		},
	}
	for _, tc := range testCases {
		line := FormatLine(tc.sample)
		require.Equal(t, tc.expect, line)
		parsed, err := ParseLine(line)
		require.NoError(t, err)
		require.Equal(t, tc.sample, parsed)
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{
		"",
		"1 2 3",
		"256 0 0 0 0 0 0 0 0 0 0 0",
		"0 70000 0 0 0 0 0 0 0 0 0 0",
		"0 0 0 0 x 0 0 0 0 0 0 0",
	} {
		_, err := ParseLine(line)
		require.Error(t, err, line)
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	require.NoError(t, w.Append(cyton.Sample{Counter: 0}))
	require.NoError(t, w.Append(cyton.Sample{Counter: 1, Motion: [3]int16{1, 2, 3}}))
	require.Zero(t, buf.Len())
	require.NoError(t, w.Close())
	require.Equal(t, "128 0 0 0 0 0 0 0 0 0 0 0\n129 1 2 3 0 0 0 0 0 0 0 0\n", buf.String())
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.txt")
	w, err := Create(path)
	require.NoError(t, err)
	for n := 0; n < 300; n++ {
		require.NoError(t, w.Append(cyton.Sample{Counter: uint8(n)}))
	}
	require.NoError(t, w.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 300)
	require.True(t, strings.HasPrefix(lines[255], "127 "))
}
