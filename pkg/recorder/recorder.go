// Package recorder wires a configured session to its sinks.
package recorder

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/robotalks/openbci.go/pkg/config"
	"github.com/robotalks/openbci.go/pkg/cyton"
	"github.com/robotalks/openbci.go/pkg/env"
	fx "github.com/robotalks/openbci.go/pkg/framework"
	"github.com/robotalks/openbci.go/pkg/sim"
	"github.com/robotalks/openbci.go/pkg/sink"
	"github.com/robotalks/openbci.go/pkg/sink/mqtt"
	"github.com/robotalks/openbci.go/pkg/sink/sqlite"
	"github.com/robotalks/openbci.go/pkg/sink/text"
	"github.com/robotalks/openbci.go/pkg/sink/websocket"
	"github.com/robotalks/openbci.go/pkg/transport/serialport"
)

// MQTTConnectTimeout bounds the broker connection at startup.
const MQTTConnectTimeout = 10 * time.Second

// Opener opens the link to the board.
type Opener func(path string, opts serialport.Options) (io.ReadWriteCloser, error)

// OpenPort opens a serial port, or a simulated board for sim:// paths.
func OpenPort(path string, opts serialport.Options) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(path, sim.Scheme) {
		board, err := sim.Open(path)
		if err != nil {
			return nil, cyton.NewError(cyton.CodeTransportOpen, path, err)
		}
		return board, nil
	}
	return serialport.Open(path, opts)
}

// Recorder runs one acquisition session into the configured sinks.
type Recorder struct {
	Config    *config.Config
	Open      Opener
	DeviceID  string
	SessionID string
	// Notifier receives session state changes.
	Notifier cyton.StateNotifier

	session *cyton.Session
	result  cyton.Result
}

// New creates a Recorder.
func New(conf *config.Config) *Recorder {
	deviceID := conf.DeviceID
	if deviceID == "" {
		deviceID = env.DeviceID()
	}
	return &Recorder{
		Config:    conf,
		Open:      OpenPort,
		DeviceID:  deviceID,
		SessionID: uuid.New().String(),
	}
}

// Name implements framework.Named.
func (r *Recorder) Name() string {
	return "recorder"
}

// Result returns the summary of the last run.
func (r *Recorder) Result() cyton.Result {
	return r.result
}

// State returns the current session state.
func (r *Recorder) State() cyton.State {
	if r.session == nil {
		return cyton.StateIdle
	}
	return r.session.State()
}

// Run implements framework.Runnable.
func (r *Recorder) Run(ctx context.Context) (err error) {
	sinks, servers, err := r.buildSinks()
	if err != nil {
		sinks.Close()
		return err
	}
	defer func() {
		if closeErr := sinks.Close(); closeErr != nil {
			glog.Errorf("close sinks: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}()

	if len(servers) > 0 {
		runner := fx.NewRunnerWith(ctx)
		runner.Go(servers...)
		defer func() {
			runner.Stop()
			if waitErr := runner.Wait(); waitErr != nil {
				glog.Errorf("servers: %v", waitErr)
			}
		}()
	}

	port, err := r.Open(r.Config.Device, r.Config.Serial)
	if err != nil {
		return err
	}

	r.session = cyton.NewSession(r.Config.Session.Cyton())
	r.session.Notifier = r.Notifier
	glog.Infof("session %s on %s as %s", r.SessionID, r.Config.Device, r.DeviceID)
	r.result, err = r.session.Run(ctx, port, sinks)
	glog.Infof("session %s: %d samples in %d reads, %d resyncs, %d bytes skipped, %d bad footers",
		r.SessionID, r.result.Samples, r.result.Attempts,
		r.result.Sync.Resyncs, r.result.Sync.Skipped, r.result.Sync.BadFooters)
	return err
}

func (r *Recorder) buildSinks() (sinks sink.Multi, servers []fx.Runnable, err error) {
	out := r.Config.Output
	if out.File != "" {
		w, err := text.Create(out.File)
		if err != nil {
			return sinks, nil, err
		}
		sinks = append(sinks, w)
	}
	if out.SQLite != "" {
		store, err := sqlite.Open(out.SQLite, r.SessionID, r.DeviceID)
		if err != nil {
			return sinks, nil, err
		}
		sinks = append(sinks, store)
	}
	if out.MQTTURL != "" {
		q, err := mqtt.NewQueueFromURL(out.MQTTURL)
		if err != nil {
			return sinks, nil, err
		}
		if err = q.Connect(MQTTConnectTimeout); err != nil {
			return sinks, nil, err
		}
		sinks = append(sinks, mqtt.NewPublisher(q, r.DeviceID, r.SessionID))
	}
	if out.WebsocketAddr != "" {
		hub := websocket.NewHub(out.WebsocketBuffer)
		sinks = append(sinks, hub)
		servers = append(servers, &websocket.Server{Addr: out.WebsocketAddr, Hub: hub})
	}
	return sinks, servers, nil
}
