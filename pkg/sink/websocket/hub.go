// Package websocket streams samples to browser clients as JSON.
package websocket

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/openbci.go/pkg/cyton"
	fx "github.com/robotalks/openbci.go/pkg/framework"
)

// SamplesPath is the websocket endpoint.
const SamplesPath = "/samples"

// DefaultBuffer is the per-client queue length.
const DefaultBuffer = 256

// Message is the JSON document sent for each sample.
type Message struct {
	Seq uint64 `json:"seq"`
	cyton.Sample
}

type client struct {
	ch chan Message
}

// Hub is a sink broadcasting to all connected clients. Append never
// blocks: a client whose queue is full misses the sample.
type Hub struct {
	Buffer int

	lock    sync.Mutex
	clients map[*client]struct{}
	seq     uint64
	closed  bool
	dropped uint64
}

// NewHub creates a Hub.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{Buffer: buffer, clients: make(map[*client]struct{})}
}

// Append implements cyton.Sink.
func (h *Hub) Append(s cyton.Sample) error {
	h.lock.Lock()
	defer h.lock.Unlock()
	msg := Message{Seq: h.seq, Sample: s}
	h.seq++
	for c := range h.clients {
		select {
		case c.ch <- msg:
		default:
			atomic.AddUint64(&h.dropped, 1)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Dropped returns the number of samples not delivered to slow clients.
func (h *Hub) Dropped() uint64 {
	return atomic.LoadUint64(&h.dropped)
}

// Close disconnects all clients.
func (h *Hub) Close() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.ch)
		delete(h.clients, c)
	}
	return nil
}

func (h *Hub) add() *client {
	h.lock.Lock()
	defer h.lock.Unlock()
	if h.closed {
		return nil
	}
	c := &client{ch: make(chan Message, h.Buffer)}
	h.clients[c] = struct{}{}
	return c
}

func (h *Hub) remove(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.ch)
	}
}

// Handler serves one websocket client.
func (h *Hub) Handler() websocket.Handler {
	return func(conn *websocket.Conn) {
		c := h.add()
		if c == nil {
			return
		}
		defer h.remove(c)
		glog.V(2).Infof("websocket client %s connected", conn.Request().RemoteAddr)

		// clients are not expected to send, reading only detects close.
		done := make(chan struct{})
		go func() {
			io.Copy(io.Discard, conn)
			close(done)
		}()
		for {
			select {
			case msg, ok := <-c.ch:
				if !ok {
					return
				}
				if err := websocket.JSON.Send(conn, &msg); err != nil {
					glog.V(2).Infof("websocket send: %v", err)
					return
				}
			case <-done:
				glog.V(2).Infof("websocket client %s disconnected", conn.Request().RemoteAddr)
				return
			}
		}
	}
}

// Server serves a Hub over HTTP until the context is canceled.
type Server struct {
	Addr string
	Hub  *Hub
	// Listener overrides Addr when set.
	Listener net.Listener
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "websocket"
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	ln := s.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", s.Addr); err != nil {
			return err
		}
	}
	mux := http.NewServeMux()
	mux.Handle(SamplesPath, s.Hub.Handler())
	srv := &http.Server{Handler: mux}
	glog.Infof("streaming samples on ws://%s%s", ln.Addr(), SamplesPath)
	err := fx.RunWithContextCloser(ctx, srv, func() error {
		return srv.Serve(ln)
	})
	s.Hub.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
