// Package sh provides an interactive shell talking to the board.
package sh

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/openbci.go/pkg/config"
	"github.com/robotalks/openbci.go/pkg/cyton"
	"github.com/robotalks/openbci.go/pkg/recorder"
	"github.com/robotalks/openbci.go/pkg/sink/text"
	"github.com/robotalks/openbci.go/pkg/transport/serialport"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool

	Shell  *ishell.Shell
	Config *config.Config
	Open   recorder.Opener
	Conn   *Conn
}

// Conn is an open link to the board.
type Conn struct {
	Path   string
	Port   io.ReadWriteCloser
	Driver *cyton.Driver
}

const (
	shellKey       = "$shell"
	noDevicePrompt = "[none] > "
)

var (
	errNotOpen = errors.New("no device open, use open first")

	evalOnly bool

	commands = []*ishell.Cmd{
		&PortsCmd,
		&OpenCmd,
		&CloseCmd,
		&QueryCmd,
		&ResetCmd,
		&DefaultsCmd,
		&SendCmd,
		&RecordCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
		Config:      conf,
		Open:        recorder.OpenPort,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(noDevicePrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an open device.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(errNotOpen)
			return
		}
		fn(c)
	}
}

func (s *Shell) setPrompt(prompt string) {
	if s.Shell != nil {
		s.Shell.SetPrompt(prompt)
	}
}

// OpenDevice opens the device at path, closing the current one.
func (s *Shell) OpenDevice(path string) error {
	if path == "" {
		path = s.Config.Device
	}
	port, err := s.Open(path, s.Config.Serial)
	if err != nil {
		return err
	}
	s.CloseDevice()
	s.Conn = &Conn{
		Path:   path,
		Port:   port,
		Driver: cyton.NewDriver(port, s.Config.Session.AckTimeout),
	}
	s.setPrompt(path + " > ")
	return nil
}

// CloseDevice stops streaming and closes the current device.
func (s *Shell) CloseDevice() {
	if s.Conn == nil {
		return
	}
	if err := s.Conn.Driver.StopStream(); err != nil {
		glog.Warningf("stop streaming: %v", err)
	}
	if err := s.Conn.Port.Close(); err != nil {
		glog.Warningf("close %s: %v", s.Conn.Path, err)
	}
	s.Conn = nil
	s.setPrompt(noDevicePrompt)
}

// Send sends a raw command and waits for the prompt.
func (s *Shell) Send(ctx context.Context, cmd string) (cyton.Ack, error) {
	if s.Conn == nil {
		return cyton.Ack{}, errNotOpen
	}
	return s.Conn.Driver.SendCommand(ctx, cmd)
}

// keeps the port open after a session.
type nonCloser struct {
	io.ReadWriter
}

// Record runs a session on the open device into sink. The device stays
// open afterwards.
func (s *Shell) Record(ctx context.Context, seconds int, sink cyton.Sink) (cyton.Result, error) {
	if s.Conn == nil {
		return cyton.Result{}, errNotOpen
	}
	conf := s.Config.Session.Cyton()
	conf.DurationSeconds = seconds
	return cyton.NewSession(conf).Run(ctx, nonCloser{s.Conn.Port}, sink)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		s.CloseDevice()
		return
	}
	if s.Interactive {
		s.Shell.Run()
		s.CloseDevice()
		return
	}
	log.Fatalln("command expected")
}

func printAck(c *ishell.Context, ack cyton.Ack, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(ack.String())
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ports, err := serialport.List()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// OpenCmd opens a device.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PATH]",
		Func: func(c *ishell.Context) {
			var path string
			if len(c.Args) > 0 {
				path = c.Args[0]
			}
			if err := ShellFrom(c).OpenDevice(path); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the device.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).CloseDevice()
		},
	}

	// QueryCmd dumps the board registers.
	QueryCmd = ishell.Cmd{
		Name:    "query",
		Aliases: []string{"?"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context) {
			ack, err := ShellFrom(c).Conn.Driver.QueryRegisters(context.Background())
			printAck(c, ack, err)
		}),
	}

	// ResetCmd soft resets the board.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context) {
			ack, err := ShellFrom(c).Conn.Driver.SoftReset(context.Background())
			printAck(c, ack, err)
		}),
	}

	// DefaultsCmd restores default channel settings.
	DefaultsCmd = ishell.Cmd{
		Name: "defaults",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context) {
			ack, err := ShellFrom(c).Send(context.Background(), cyton.CmdDefaults)
			printAck(c, ack, err)
		}),
	}

	// SendCmd sends a raw command.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "TEXT",
		Func: MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("TEXT required"))
				return
			}
			ack, err := ShellFrom(c).Send(context.Background(), strings.Join(c.Args, " "))
			printAck(c, ack, err)
		}),
	}

	// RecordCmd records samples.
	RecordCmd = ishell.Cmd{
		Name:    "record",
		Aliases: []string{"r"},
		Help:    "SECONDS [FILE]",
		Func: MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("SECONDS required"))
				return
			}
			seconds, err := strconv.Atoi(c.Args[0])
			if err != nil || seconds <= 0 {
				c.Err(fmt.Errorf("Invalid SECONDS: %q", c.Args[0]))
				return
			}
			path := "-"
			if len(c.Args) > 1 {
				path = c.Args[1]
			}
			out, err := text.Create(path)
			if err != nil {
				c.Err(err)
				return
			}
			defer out.Close()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			res, err := ShellFrom(c).Record(ctx, seconds, out)
			if err != nil && !errors.Is(err, cyton.ErrCancelled) {
				c.Err(err)
			}
			c.Printf("%d samples, %d resyncs\n", res.Samples, res.Sync.Resyncs)
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flags := config.SetupFlags(flag.CommandLine)
	flag.Parse()
	conf, err := flags.Resolve()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).Run(flag.Args()...)
}
