package resources

import (
	"embed"
	"fmt"
	"sync"

	"fyne.io/fyne/v2"
)

const (
	iconDir  = "icons/"
	logoFile = "logo.svg"
)

//go:embed icons/*.svg
var iconFS embed.FS

var iconCache sync.Map

// Stage returns the tray icon for a stage (0..4). Out-of-range stages are clamped.
func Stage(stage int) (fyne.Resource, error) {
	stage = max(0, min(4, stage))
	return loadResource(fmt.Sprintf("stage%d.svg", stage))
}

// MustStage returns the stage icon or panics on error.
func MustStage(stage int) fyne.Resource {
	resource, err := Stage(stage)
	if err != nil {
		panic(err)
	}
	return resource
}

// Logo returns the application logo.
func Logo() (fyne.Resource, error) {
	return loadResource(logoFile)
}

// MustLogo returns the logo or panics on error.
func MustLogo() fyne.Resource {
	resource, err := Logo()
	if err != nil {
		panic(err)
	}
	return resource
}

func loadResource(fileName string) (fyne.Resource, error) {
	path := iconDir + fileName
	if cached, ok := iconCache.Load(path); ok {
		return cached.(fyne.Resource), nil
	}

	data, err := iconFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load resource %s: %w", path, err)
	}

	resource := fyne.NewStaticResource(fileName, data)
	iconCache.Store(path, resource)
	return resource, nil
}
