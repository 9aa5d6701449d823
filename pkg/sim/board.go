// Package sim simulates a board behind a serial link. It answers
// commands like the firmware and streams generated samples after the
// start command.
package sim

import (
	"bytes"
	"fmt"
	"math"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/openbci.go/pkg/cyton"
)

// Scheme prefixes device paths that open a simulated board.
const Scheme = "sim://"

// DefaultIdleDelay mimics the serial read timeout when nothing is sent.
const DefaultIdleDelay = 10 * time.Millisecond

// Generator produces the n-th sample.
type Generator func(n int) cyton.Sample

// SineWaves generates a sine wave per channel at rate Hz. Amplitudes
// stay below 2^13 so data bytes never form a marker pair.
func SineWaves(rate int) Generator {
	if rate <= 0 {
		rate = cyton.DefaultSampleRateHz
	}
	return func(n int) (s cyton.Sample) {
		t := float64(n) / float64(rate)
		for ch := range s.Channels {
			amp := 1000 * float64(ch+1)
			s.Channels[ch] = int32(amp * math.Sin(2*math.Pi*float64(2*(ch+1))*t))
		}
		s.Motion = [cyton.NumMotion]int16{0, 0, 1000}
		return
	}
}

// Board is a simulated board implementing io.ReadWriteCloser.
type Board struct {
	// Rate paces streaming in frames per second, 0 streams as fast
	// as frames are read.
	Rate      int
	Generator Generator
	IdleDelay time.Duration

	lock      sync.Mutex
	commands  []string
	reply     bytes.Buffer
	pending   []byte
	streaming bool
	started   time.Time
	frames    int
	closed    bool
	channels  map[int]string
}

// NewBoard creates a Board streaming sine waves at rate.
func NewBoard(rate int) *Board {
	return &Board{
		Rate:      rate,
		Generator: SineWaves(rate),
		IdleDelay: DefaultIdleDelay,
		channels:  make(map[int]string),
	}
}

// Open creates a Board from a device path like sim://?rate=250.
func Open(path string) (*Board, error) {
	if !strings.HasPrefix(path, Scheme) {
		return nil, fmt.Errorf("not a simulated device: %q", path)
	}
	u, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	rate := cyton.DefaultSampleRateHz
	if val := u.Query().Get("rate"); val != "" {
		if rate, err = strconv.Atoi(val); err != nil || rate < 0 {
			return nil, fmt.Errorf("invalid rate %q", val)
		}
	}
	glog.Infof("simulated board at %d Hz", rate)
	return NewBoard(rate), nil
}

// Commands returns the commands received so far.
func (b *Board) Commands() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.commands...)
}

// ChannelSettings returns the last settings command per channel.
func (b *Board) ChannelSettings() map[int]string {
	b.lock.Lock()
	defer b.lock.Unlock()
	settings := make(map[int]string, len(b.channels))
	for ch, cmd := range b.channels {
		settings[ch] = cmd
	}
	return settings
}

// Streaming tells whether the board is streaming.
func (b *Board) Streaming() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.streaming
}

// Write implements io.Writer. Each write is one command.
func (b *Board) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.closed {
		return 0, os.ErrClosed
	}
	cmd := string(p)
	b.commands = append(b.commands, cmd)
	glog.V(3).Infof("sim: command %q", cmd)
	switch {
	case cmd == cyton.CmdStartStream:
		b.streaming, b.started, b.frames, b.pending = true, time.Now(), 0, nil
		b.reply.WriteString("Stream started$$$")
	case cmd == cyton.CmdStopStream:
		b.streaming = false
		b.pending = nil
	case cmd == cyton.CmdSoftReset:
		b.channels = make(map[int]string)
		b.reply.WriteString("OpenBCI V3 8-16 channel\nOn Board ADS1299 Device ID: 0x3E\nLIS3DH Device ID: 0x33\nFirmware: v3.1.2\n$$$")
	case cmd == cyton.CmdQueryRegisters:
		b.reply.WriteString(b.registers())
	case cmd == cyton.CmdDefaults:
		b.channels = make(map[int]string)
		b.reply.WriteString("updating channel settings to default$$$")
	case len(cmd) == 9 && cmd[0] == 'x' && cmd[8] == 'X':
		ch := int(cmd[1] - '0')
		if ch < 1 || ch > cyton.NumChannels {
			b.reply.WriteString("Failure: invalid channel$$$")
			break
		}
		b.channels[ch] = cmd
		fmt.Fprintf(&b.reply, "Success: Channel set for %d$$$", ch)
	default:
		fmt.Fprintf(&b.reply, "Failure: unknown command %q$$$", cmd)
	}
	return len(p), nil
}

func (b *Board) registers() string {
	var sb strings.Builder
	sb.WriteString("Board ADS Registers\nADS_ID, 00, 3E\nCONFIG1, 01, 96\n")
	for ch := 1; ch <= cyton.NumChannels; ch++ {
		setting := "60"
		if cmd, ok := b.channels[ch]; ok && cmd[6] == '0' {
			setting = "61"
		}
		fmt.Fprintf(&sb, "CH%dSET, %02X, %s\n", ch, 4+ch, setting)
	}
	sb.WriteString("$$$")
	return sb.String()
}

// Read implements io.Reader. Replies are returned before stream data.
// When idle, Read waits IdleDelay and returns no data like a serial
// port read timing out.
func (b *Board) Read(p []byte) (int, error) {
	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return 0, os.ErrClosed
	}
	if b.reply.Len() > 0 {
		defer b.lock.Unlock()
		return b.reply.Read(p)
	}
	if !b.streaming {
		b.lock.Unlock()
		time.Sleep(b.IdleDelay)
		return 0, nil
	}
	if len(b.pending) == 0 {
		n := b.frames
		b.frames++
		due := b.started.Add(time.Duration(n) * time.Second / time.Duration(max(b.Rate, 1)))
		s := b.Generator(n)
		s.Counter = uint8(n)
		b.pending = cyton.Encode(s)[:]
		if n == 0 {
			// footer of a previous frame the host never saw
			b.pending = append([]byte{cyton.FooterMarker}, b.pending...)
		}
		if wait := time.Until(due); b.Rate > 0 && wait > 0 {
			b.lock.Unlock()
			time.Sleep(wait)
			b.lock.Lock()
		}
		if !b.streaming || b.closed {
			b.pending = nil
			b.lock.Unlock()
			return 0, nil
		}
	}
	n := copy(p, b.pending)
	b.pending = b.pending[n:]
	b.lock.Unlock()
	return n, nil
}

// Close implements io.Closer.
func (b *Board) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.closed = true
	b.streaming = false
	return nil
}
