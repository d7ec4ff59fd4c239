package control

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net"
)

var (
	// ErrAlreadyRunning indicates another instance already holds the control port.
	ErrAlreadyRunning = errors.New("instance already running")
	// ErrNotRunning indicates no live instance could be found.
	ErrNotRunning = errors.New("gia is not running")
	// ErrUnauthorized indicates a request without the per-run secret.
	ErrUnauthorized = errors.New("unauthorized")
)

// Listen binds the deterministic localhost control port for appName.
// A second instance gets ErrAlreadyRunning.
func Listen(appName string) (net.Listener, error) {
	address := fmt.Sprintf("127.0.0.1:%d", PortFromName(appName))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", address, ErrAlreadyRunning)
	}
	return listener, nil
}

// PortFromName hashes appName into the 20000-39999 range.
func PortFromName(appName string) int {
	const (
		minPort = 20000
		maxPort = 39999
	)
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(appName))
	rangeSize := maxPort - minPort + 1
	return minPort + int(hash.Sum32()%uint32(rangeSize))
}
