package cyton

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Board commands.
const (
	CmdStopStream     = "s"
	CmdStartStream    = "b"
	CmdDefaults       = "d"
	CmdQueryRegisters = "?"
	CmdSoftReset      = "v"
	CmdSampleRate     = "~~"
)

// Prompt is the character the board repeats to end a response.
const Prompt = '$'

// PromptCount is the number of Prompt characters ending a response.
const PromptCount = 3

// DefaultChunkSize is the read size used while waiting for a prompt.
const DefaultChunkSize = 256

// Ack is the text the board sent back for a command.
type Ack struct {
	Command string
	Text    string
}

// String implements fmt.Stringer.
func (a Ack) String() string {
	return strings.TrimSpace(strings.TrimRight(a.Text, string(Prompt)))
}

// Driver speaks the ASCII command protocol.
type Driver struct {
	RW io.ReadWriter
	// AckTimeout bounds AwaitPrompt. Zero waits until the prompt arrives
	// or ctx is done.
	AckTimeout time.Duration
	ChunkSize  int
}

// NewDriver creates a Driver.
func NewDriver(rw io.ReadWriter, ackTimeout time.Duration) *Driver {
	return &Driver{RW: rw, AckTimeout: ackTimeout, ChunkSize: DefaultChunkSize}
}

// Write writes a command without waiting for a response.
func (d *Driver) Write(cmd string) error {
	n, err := d.RW.Write([]byte(cmd))
	if err != nil {
		return NewError(CodeTransportIO, fmt.Sprintf("write %q", cmd), err)
	}
	if n != len(cmd) {
		return NewError(CodeTransportIO, fmt.Sprintf("write %q", cmd), ErrShortWrite)
	}
	return nil
}

// SendCommand writes a command and waits for the prompt.
func (d *Driver) SendCommand(ctx context.Context, cmd string) (Ack, error) {
	if err := d.Write(cmd); err != nil {
		return Ack{Command: cmd}, err
	}
	ack, err := d.AwaitPrompt(ctx)
	ack.Command = cmd
	if err == nil {
		glog.V(2).Infof("%q: %s", cmd, ack)
	}
	return ack, err
}

// AwaitPrompt reads the response until it contains PromptCount prompt
// characters, counted across reads.
func (d *Driver) AwaitPrompt(ctx context.Context) (Ack, error) {
	size := d.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	var deadline time.Time
	if d.AckTimeout > 0 {
		deadline = time.Now().Add(d.AckTimeout)
	}

	var text bytes.Buffer
	buf := make([]byte, size)
	prompts := 0
	for {
		select {
		case <-ctx.Done():
			return Ack{Text: text.String()}, cancelled(ctx.Err())
		default:
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return Ack{Text: text.String()}, NewError(CodeProtocolTimeout, "await prompt",
				fmt.Errorf("%d of %d prompts after %v", prompts, PromptCount, d.AckTimeout))
		}
		n, err := d.RW.Read(buf)
		if n > 0 {
			text.Write(buf[:n])
			prompts += bytes.Count(buf[:n], []byte{Prompt})
			if prompts >= PromptCount {
				return Ack{Text: text.String()}, nil
			}
		}
		if err != nil && !os.IsTimeout(err) {
			return Ack{Text: text.String()}, NewError(CodeTransportIO, "await prompt", err)
		}
	}
}

// ConfigureChannel sends the channel settings command.
func (d *Driver) ConfigureChannel(ctx context.Context, conf ChannelConfig) (Ack, error) {
	cmd, err := conf.Command()
	if err != nil {
		return Ack{}, err
	}
	return d.SendCommand(ctx, cmd)
}

// QueryRegisters asks the board to dump its registers.
func (d *Driver) QueryRegisters(ctx context.Context) (Ack, error) {
	return d.SendCommand(ctx, CmdQueryRegisters)
}

// SoftReset resets the board and returns its banner.
func (d *Driver) SoftReset(ctx context.Context) (Ack, error) {
	return d.SendCommand(ctx, CmdSoftReset)
}

// StartStream starts binary streaming.
func (d *Driver) StartStream(ctx context.Context) (Ack, error) {
	return d.SendCommand(ctx, CmdStartStream)
}

// StopStream stops binary streaming. The board may still be sending
// frames, so no response is read.
func (d *Driver) StopStream() error {
	return d.Write(CmdStopStream)
}

// Channel settings fields other than the reference wiring are fixed.
const (
	channelPowerOn  = '0'
	channelGain24   = '6'
	channelInputNrm = '0'
	channelSRB1Off  = '0'
)

// ChannelConfig describes the settings command of one channel.
type ChannelConfig struct {
	// Channel is 1 to NumChannels.
	Channel int
	// Bimodal disconnects the channel from the bias drive and SRB2, used
	// for differential channels.
	Bimodal bool
}

// Command builds "x<ch><power><gain><input><bias><srb2><srb1>X".
func (c ChannelConfig) Command() (string, error) {
	if c.Channel < 1 || c.Channel > NumChannels {
		return "", NewError(CodeInvalidCommand, "channel config",
			fmt.Errorf("channel %d out of range 1-%d", c.Channel, NumChannels))
	}
	bias, srb2 := byte('1'), byte('1')
	if c.Bimodal {
		bias, srb2 = '0', '0'
	}
	return string([]byte{
		'x', byte('0' + c.Channel),
		channelPowerOn, channelGain24, channelInputNrm,
		bias, srb2, channelSRB1Off,
		'X',
	}), nil
}
