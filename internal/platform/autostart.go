package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppName is the user-visible application name.
const AppName = "Gia"

// Service defines OS-specific helpers needed by the application.
type Service interface {
	ConfigDir() (string, error)
	EnableAutostart(execPath string) error
	DisableAutostart() error
	AutostartEnabled() (bool, error)
}

type platformService struct {
	appName string
}

// NewService returns the platform implementation for AppName.
func NewService() Service {
	return &platformService{appName: AppName}
}

// ConfigDir returns the per-user directory holding settings, state and logs.
func (service *platformService) ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		homeDir, homeErr := os.UserHomeDir()
		if homeErr != nil {
			if err == nil {
				err = homeErr
			}
			return "", fmt.Errorf("get config dir: %w", err)
		}
		base = fallbackConfigDir(homeDir)
	}
	return filepath.Join(base, slug(service.appName)), nil
}

func slug(appName string) string {
	name := strings.ToLower(strings.TrimSpace(appName))
	if name == "" {
		name = "gia"
	}
	return strings.ReplaceAll(name, " ", "-")
}
