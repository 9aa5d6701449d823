package env

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceID(t *testing.T) {
	defer func(fn func(string) (string, error)) { protectedID = fn }(protectedID)

	protectedID = func(appID string) (string, error) {
		require.Equal(t, AppID, appID)
		return "abc123", nil
	}
	require.Equal(t, "abc123", DeviceID())

	protectedID = func(string) (string, error) { return "", errors.New("no id") }
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	require.Equal(t, host, DeviceID())
}
