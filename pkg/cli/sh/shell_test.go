package sh

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/openbci.go/pkg/config"
	"github.com/robotalks/openbci.go/pkg/cyton"
	"github.com/robotalks/openbci.go/pkg/recorder"
	"github.com/robotalks/openbci.go/pkg/sim"
	"github.com/robotalks/openbci.go/pkg/sink/text"
)

func newTestShell() *Shell {
	conf := config.NewConfig()
	conf.Device = "sim://?rate=0"
	return &Shell{Config: conf, Open: recorder.OpenPort}
}

func TestShellNotOpen(t *testing.T) {
	s := newTestShell()
	_, err := s.Send(context.Background(), "?")
	require.Equal(t, errNotOpen, err)
	_, err = s.Record(context.Background(), 1, text.New(&bytes.Buffer{}))
	require.Equal(t, errNotOpen, err)
	s.CloseDevice()
}

func TestShellSession(t *testing.T) {
	s := newTestShell()
	require.NoError(t, s.OpenDevice(""))
	require.Equal(t, "sim://?rate=0", s.Conn.Path)
	board := s.Conn.Port.(*sim.Board)

	ack, err := s.Send(context.Background(), cyton.CmdSoftReset)
	require.NoError(t, err)
	require.Contains(t, ack.String(), "Firmware")

	var out bytes.Buffer
	w := text.New(&out)
	res, err := s.Record(context.Background(), 2, w)
	require.NoError(t, err)
	require.NoError(t, w.Flush())
	require.Equal(t, 2*cyton.DefaultSampleRateHz, res.Samples)
	require.Len(t, strings.Split(strings.TrimSpace(out.String()), "\n"), res.Samples)

	// the port stays open for more commands
	ack, err = s.Send(context.Background(), cyton.CmdQueryRegisters)
	require.NoError(t, err)
	require.Contains(t, ack.Text, "CH1SET, 05, 61")

	s.CloseDevice()
	require.Nil(t, s.Conn)
	_, err = board.Write([]byte(cyton.CmdStopStream))
	require.Error(t, err)
}

func TestShellOpenError(t *testing.T) {
	s := newTestShell()
	err := s.OpenDevice("sim://?rate=bad")
	require.True(t, cyton.IsCode(err, cyton.CodeTransportOpen))
	require.Nil(t, s.Conn)
}
