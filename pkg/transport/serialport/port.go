// Package serialport opens the serial link to the board.
package serialport

import (
	"fmt"
	"time"

	"github.com/golang/glog"
	bugst "go.bug.st/serial"

	"github.com/robotalks/openbci.go/pkg/cyton"
)

// Opener opens a serial port; replaced in tests.
type Opener func(path string, mode *bugst.Mode) (bugst.Port, error)

// Open opens the port at path, sets the read timeout, waits for the
// settle delay and drops anything the device sent in the meantime.
// Failures are reported with cyton.CodeTransportOpen.
func Open(path string, opts Options) (bugst.Port, error) {
	return OpenWith(bugst.Open, path, opts)
}

// OpenWith is Open using a specific Opener.
func OpenWith(open Opener, path string, opts Options) (bugst.Port, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, cyton.NewError(cyton.CodeTransportOpen, path, err)
	}
	mode, err := opts.Mode()
	if err != nil {
		return nil, cyton.NewError(cyton.CodeTransportOpen, path, err)
	}
	port, err := open(path, mode)
	if err != nil {
		return nil, cyton.NewError(cyton.CodeTransportOpen, path, err)
	}
	if err = port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, cyton.NewError(cyton.CodeTransportOpen, path, fmt.Errorf("set read timeout: %w", err))
	}
	glog.Infof("opened %s at %d baud", path, opts.BaudRate)
	if opts.SettleDelay > 0 {
		time.Sleep(opts.SettleDelay)
	}
	if err = port.ResetInputBuffer(); err != nil {
		glog.Warningf("%s: reset input buffer: %v", path, err)
	}
	return port, nil
}

// List returns the names of the serial ports on this machine.
func List() ([]string, error) {
	return bugst.GetPortsList()
}
