package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LockFileName is written next to the settings while the app runs.
const LockFileName = "gia.lock"

// Lock is the content of the lockfile: "port|pid|secret".
type Lock struct {
	Port   int
	PID    int
	Secret string
}

func (lock Lock) String() string {
	return fmt.Sprintf("%d|%d|%s", lock.Port, lock.PID, lock.Secret)
}

// WriteLock writes the lockfile readable only by the current user.
func WriteLock(path string, lock Lock) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create lockfile directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(lock.String()), 0o600); err != nil {
		return fmt.Errorf("write lockfile: %w", err)
	}
	return nil
}

// ReadLock parses the lockfile. A missing file reports ErrNotRunning.
func ReadLock(path string) (Lock, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Lock{}, ErrNotRunning
		}
		return Lock{}, fmt.Errorf("read lockfile: %w", err)
	}

	parts := strings.Split(strings.TrimSpace(string(content)), "|")
	if len(parts) != 3 {
		return Lock{}, errors.New("lockfile is malformed")
	}

	port, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Lock{}, errors.New("invalid port number in lockfile")
	}
	if port < 1 || port > 65535 {
		return Lock{}, fmt.Errorf("port number %d is outside valid range (1-65535)", port)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Lock{}, errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return Lock{}, errors.New("secret in lockfile is empty")
	}

	return Lock{Port: port, PID: pid, Secret: secret}, nil
}

// RemoveLock deletes the lockfile if it still belongs to pid.
func RemoveLock(path string, pid int) error {
	lock, err := ReadLock(path)
	if err != nil {
		if errors.Is(err, ErrNotRunning) {
			return nil
		}
		return err
	}
	if lock.PID != pid {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lockfile: %w", err)
	}
	return nil
}
