package shiftcli

import (
	"fmt"
	"net"
	"time"
)

const (
	daemonStartTimeout = 3 * time.Second
	socketPollInterval = 50 * time.Millisecond
	socketDialTimeout  = 100 * time.Millisecond
)

// EnsureDaemon checks whether a daemon is serving the socket and calls
// spawn to start one if not. Returns nil once the socket answers.
func EnsureDaemon(socketPath string, spawn func() error) error {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	if isDaemonRunning(socketPath) {
		return nil
	}
	if err := spawn(); err != nil {
		return err
	}
	return waitForSocket(socketPath, daemonStartTimeout)
}

// isDaemonRunning reports whether something accepts on the socket.
func isDaemonRunning(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, socketDialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// waitForSocket polls until the socket becomes available or the timeout
// expires.
func waitForSocket(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if isDaemonRunning(socketPath) {
			return nil
		}
		time.Sleep(socketPollInterval)
	}
	return fmt.Errorf("daemon failed to start within %v", timeout)
}
