package cyton

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chunkReadWriter returns one scripted chunk per Read and records writes.
type chunkReadWriter struct {
	chunks   [][]byte
	reads    int
	written  bytes.Buffer
	readErr  error
	writeErr error
	shortBy  int
	idle     time.Duration
}

func (c *chunkReadWriter) Read(p []byte) (int, error) {
	c.reads++
	if len(c.chunks) == 0 {
		if c.readErr != nil {
			return 0, c.readErr
		}
		time.Sleep(c.idle)
		return 0, nil
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *chunkReadWriter) Write(p []byte) (int, error) {
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.written.Write(p)
	return len(p) - c.shortBy, nil
}

func chunks(strs ...string) [][]byte {
	out := make([][]byte, len(strs))
	for n, s := range strs {
		out[n] = []byte(s)
	}
	return out
}

func TestAwaitPromptAcrossChunks(t *testing.T) {
	rw := &chunkReadWriter{chunks: chunks("$", "$$", "never read")}
	d := NewDriver(rw, 0)
	ack, err := d.AwaitPrompt(context.Background())
	require.NoError(t, err)
	require.Equal(t, "$$$", ack.Text)
	require.Equal(t, 2, rw.reads)
	require.Len(t, rw.chunks, 1)
}

func TestSendCommand(t *testing.T) {
	testCases := []struct {
		name   string
		chunks [][]byte
		text   string
		reads  int
	}{
		{"single chunk", chunks("Success: ch 1$$$"), "Success: ch 1$$$", 1},
		{"split text", chunks("Succ", "ess$", "$", "$"), "Success$$$", 4},
		{"prompts inside text", chunks("a$b$c", "$d"), "a$b$c$d", 2},
		{"idle reads", chunks("", "$$", "", "$"), "$$$", 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rw := &chunkReadWriter{chunks: tc.chunks}
			ack, err := NewDriver(rw, time.Second).SendCommand(context.Background(), "x1060110X")
			require.NoError(t, err)
			require.Equal(t, "x1060110X", rw.written.String())
			require.Equal(t, "x1060110X", ack.Command)
			require.Equal(t, tc.text, ack.Text)
			require.Equal(t, tc.reads, rw.reads)
		})
	}
}

func TestAckString(t *testing.T) {
	require.Equal(t, "Success: Channel set for 3", Ack{Text: "Success: Channel set for 3$$$"}.String())
}

func TestAwaitPromptTimeout(t *testing.T) {
	rw := &chunkReadWriter{chunks: chunks("$", "$"), idle: time.Millisecond}
	d := NewDriver(rw, 20*time.Millisecond)
	ack, err := d.AwaitPrompt(context.Background())
	require.True(t, IsCode(err, CodeProtocolTimeout), "%v", err)
	require.Equal(t, "$$", ack.Text)
}

func TestAwaitPromptCancel(t *testing.T) {
	rw := &chunkReadWriter{idle: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	_, err := NewDriver(rw, 0).AwaitPrompt(ctx)
	require.True(t, errors.Is(err, ErrCancelled))
}

func TestAwaitPromptReadError(t *testing.T) {
	rw := &chunkReadWriter{chunks: chunks("$"), readErr: io.ErrUnexpectedEOF}
	_, err := NewDriver(rw, time.Second).AwaitPrompt(context.Background())
	require.True(t, IsCode(err, CodeTransportIO))
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestWriteErrors(t *testing.T) {
	err := NewDriver(&chunkReadWriter{writeErr: io.ErrClosedPipe}, 0).Write(CmdStartStream)
	require.True(t, IsCode(err, CodeTransportIO))
	require.True(t, errors.Is(err, io.ErrClosedPipe))

	_, err = NewDriver(&chunkReadWriter{shortBy: 1}, 0).SendCommand(context.Background(), CmdSampleRate)
	require.True(t, errors.Is(err, ErrShortWrite))
}

func TestStopStreamDoesNotRead(t *testing.T) {
	rw := &chunkReadWriter{}
	require.NoError(t, NewDriver(rw, 0).StopStream())
	require.Equal(t, "s", rw.written.String())
	require.Zero(t, rw.reads)
}

func TestChannelConfig(t *testing.T) {
	testCases := []struct {
		conf   ChannelConfig
		expect string
	}{
		{ChannelConfig{Channel: 1}, "x1060110X"},
		{ChannelConfig{Channel: 8}, "x8060110X"},
		{ChannelConfig{Channel: 1, Bimodal: true}, "x1060000X"},
		{ChannelConfig{Channel: 2, Bimodal: true}, "x2060000X"},
	}
	for _, tc := range testCases {
		cmd, err := tc.conf.Command()
		require.NoError(t, err)
		require.Len(t, cmd, 9)
		require.Equal(t, tc.expect, cmd)
	}
	for _, ch := range []int{0, 9, 10, -1} {
		_, err := ChannelConfig{Channel: ch}.Command()
		require.True(t, IsCode(err, CodeInvalidCommand), "channel %d", ch)
	}
}

func TestConfigureChannelInvalid(t *testing.T) {
	rw := &chunkReadWriter{}
	_, err := NewDriver(rw, 0).ConfigureChannel(context.Background(), ChannelConfig{Channel: 12})
	require.Error(t, err)
	require.Zero(t, rw.written.Len())
}
