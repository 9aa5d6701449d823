// Package env provides facts about the host running the recorder.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID salts the machine id so the raw id never leaves the host.
const AppID = "openbci.go"

var protectedID = machineid.ProtectedID

// DeviceID retrieves a stable id for this host. It falls back to the
// hostname when no machine id is available.
func DeviceID() string {
	id, err := protectedID(AppID)
	if err == nil && id != "" {
		return id
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "unknown"
}
