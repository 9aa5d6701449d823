package cyton

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Sink receives decoded samples, one at a time, on the streaming path.
// A blocking Sink throttles acquisition.
type Sink interface {
	Append(Sample) error
}

// AppendFunc is func type of Sink.
type AppendFunc func(Sample) error

// Append implements Sink.
func (f AppendFunc) Append(s Sample) error {
	return f(s)
}

// State is the state of a Session.
type State int

// Session states.
const (
	StateIdle State = iota
	StateConfiguringChannels
	StateAwaitingStreamStart
	StateStreaming
	StateStopped
)

var stateNames = [...]string{
	StateIdle:                "idle",
	StateConfiguringChannels: "configuring-channels",
	StateAwaitingStreamStart: "awaiting-stream-start",
	StateStreaming:           "streaming",
	StateStopped:             "stopped",
}

// String implements fmt.Stringer.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// StateNotifier is called when the session state changes.
type StateNotifier interface {
	StateChanged(context.Context, State)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, State)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state State) {
	f(ctx, state)
}

// SessionConfig configures an acquisition session.
type SessionConfig struct {
	// DurationSeconds and SampleRateHz bound the number of frames read.
	// Zero or negative DurationSeconds streams until cancelled.
	DurationSeconds int
	SampleRateHz    int
	// BimodalChannels lists the channels configured as bimodal.
	BimodalChannels []int
	AckTimeout      time.Duration
	StrictFooter    bool
	// QueryRegisters dumps the board registers to the log before
	// configuring channels.
	QueryRegisters bool
}

// DefaultSampleRateHz is the board's default sampling rate.
const DefaultSampleRateHz = 250

// DefaultSessionConfig returns the default config.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		SampleRateHz:    DefaultSampleRateHz,
		BimodalChannels: []int{1, 2},
		AckTimeout:      5 * time.Second,
	}
}

// FrameBudget is the number of frames a session reads, 0 for unbounded.
func (c SessionConfig) FrameBudget() int {
	if c.DurationSeconds <= 0 {
		return 0
	}
	return c.SampleRateHz * c.DurationSeconds
}

func (c SessionConfig) isBimodal(ch int) bool {
	for _, n := range c.BimodalChannels {
		if n == ch {
			return true
		}
	}
	return false
}

// Result summarizes a session.
type Result struct {
	// Attempts is the number of frame reads started.
	Attempts int
	// Samples is the number of samples handed to the sink.
	Samples int
	Sync    SyncStats
}

// Session runs one acquisition: configure channels, start streaming,
// forward samples, stop.
type Session struct {
	Config   SessionConfig
	Notifier StateNotifier

	state State
	lock  sync.RWMutex
}

// NewSession creates a Session.
func NewSession(conf SessionConfig) *Session {
	return &Session{Config: conf}
}

// State gets the current state.
func (s *Session) State() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state
}

func (s *Session) setState(ctx context.Context, state State) {
	s.lock.Lock()
	changed := s.state != state
	s.state = state
	notifier := s.Notifier
	s.lock.Unlock()
	if changed {
		glog.V(1).Infof("session %s", state)
		if notifier != nil {
			notifier.StateChanged(ctx, state)
		}
	}
}

// Run drives the board over port until the frame budget is used up, ctx is
// done or the transport fails. The stop command is always sent, and port is
// closed if it implements io.Closer. Cancellation is reported as an error
// wrapping both ErrCancelled and the context error.
func (s *Session) Run(ctx context.Context, port io.ReadWriter, sink Sink) (res Result, err error) {
	driver := NewDriver(port, s.Config.AckTimeout)
	synchronizer := NewSynchronizer(s.Config.StrictFooter)

	s.setState(ctx, StateIdle)
	defer func() {
		s.setState(ctx, StateStopped)
		if stopErr := driver.StopStream(); stopErr != nil {
			glog.Warningf("stop streaming: %v", stopErr)
		}
		if closer, ok := port.(io.Closer); ok {
			if closeErr := closer.Close(); closeErr != nil {
				glog.Warningf("close transport: %v", closeErr)
			}
		}
		res.Sync = synchronizer.Stats()
	}()

	s.setState(ctx, StateConfiguringChannels)
	if s.Config.QueryRegisters {
		ack, err := driver.QueryRegisters(ctx)
		if err != nil {
			return res, err
		}
		glog.Infof("registers:\n%s", ack)
	}
	for ch := 1; ch <= NumChannels; ch++ {
		if _, err = driver.ConfigureChannel(ctx, ChannelConfig{Channel: ch, Bimodal: s.Config.isBimodal(ch)}); err != nil {
			glog.Errorf("configure channel %d: %v", ch, err)
			return res, err
		}
	}

	s.setState(ctx, StateAwaitingStreamStart)
	if _, err = driver.StartStream(ctx); err != nil {
		glog.Errorf("start streaming: %v", err)
		return res, err
	}

	s.setState(ctx, StateStreaming)
	budget := s.Config.FrameBudget()
	for count := 1; budget == 0 || count <= budget; count++ {
		if ctx.Err() != nil {
			return res, cancelled(ctx.Err())
		}
		res.Attempts++
		frame, err := synchronizer.NextFrame(ctx, port)
		if err != nil {
			if !errors.Is(err, ErrCancelled) {
				glog.Errorf("streaming stopped after %d samples: %v", res.Samples, err)
			}
			return res, err
		}
		sample := Decode(frame)
		if glog.V(4) {
			glog.Infof("sample %+v", sample)
		}
		if err = sink.Append(sample); err != nil {
			return res, fmt.Errorf("sink: %w", err)
		}
		res.Samples++
	}
	return res, nil
}
