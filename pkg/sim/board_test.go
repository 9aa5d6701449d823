package sim

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/openbci.go/pkg/cyton"
)

func TestOpen(t *testing.T) {
	b, err := Open("sim://?rate=500")
	require.NoError(t, err)
	require.Equal(t, 500, b.Rate)
	b, err = Open("sim://")
	require.NoError(t, err)
	require.Equal(t, cyton.DefaultSampleRateHz, b.Rate)

	for _, path := range []string{"/dev/ttyUSB0", "sim://?rate=fast", "sim://?rate=-1"} {
		_, err = Open(path)
		require.Error(t, err, path)
	}
}

func TestBoardCommands(t *testing.T) {
	b := NewBoard(0)
	d := cyton.NewDriver(b, time.Second)
	ctx := context.Background()

	ack, err := d.SoftReset(ctx)
	require.NoError(t, err)
	require.Contains(t, ack.Text, "ADS1299")

	ack, err = d.ConfigureChannel(ctx, cyton.ChannelConfig{Channel: 2, Bimodal: true})
	require.NoError(t, err)
	require.Equal(t, "Success: Channel set for 2", ack.String())
	require.Equal(t, map[int]string{2: "x2060000X"}, b.ChannelSettings())

	ack, err = d.QueryRegisters(ctx)
	require.NoError(t, err)
	require.Contains(t, ack.Text, "CH2SET, 06, 61")
	require.Contains(t, ack.Text, "CH3SET, 07, 60")

	ack, err = d.SendCommand(ctx, "z")
	require.NoError(t, err)
	require.Contains(t, ack.Text, "Failure")

	require.Equal(t, []string{"v", "x2060000X", "?", "z"}, b.Commands())
}

func TestBoardIdleRead(t *testing.T) {
	b := NewBoard(0)
	b.IdleDelay = time.Millisecond
	n, err := b.Read(make([]byte, 8))
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestBoardStream(t *testing.T) {
	b := NewBoard(0)
	ctx := context.Background()
	_, err := cyton.NewDriver(b, time.Second).StartStream(ctx)
	require.NoError(t, err)
	require.True(t, b.Streaming())

	gen := SineWaves(cyton.DefaultSampleRateHz)
	s := cyton.NewSynchronizer(true)
	for n := 0; n < 600; n++ {
		f, err := s.NextFrame(ctx, b)
		require.NoError(t, err)
		expected := gen(n)
		expected.Counter = uint8(n)
		require.Equal(t, expected, cyton.Decode(f))
	}
	stats := s.Stats()
	require.Zero(t, stats.Resyncs)
	require.Zero(t, stats.BadFooters)

	require.NoError(t, cyton.NewDriver(b, 0).StopStream())
	require.False(t, b.Streaming())

	require.NoError(t, b.Close())
	_, err = b.Read(make([]byte, 1))
	require.Error(t, err)
	_, err = b.Write([]byte("b"))
	require.Error(t, err)
	var _ io.ReadWriteCloser = b
}

func TestBoardPacing(t *testing.T) {
	b := NewBoard(100)
	ctx := context.Background()
	_, err := cyton.NewDriver(b, time.Second).StartStream(ctx)
	require.NoError(t, err)
	s := cyton.NewSynchronizer(false)
	start := time.Now()
	for n := 0; n < 11; n++ {
		_, err := s.NextFrame(ctx, b)
		require.NoError(t, err)
	}
	require.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}
