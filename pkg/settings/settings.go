// Package settings persists the lookup collaborator's browser settings as
// a JSON file next to the binary, shared with the automation process.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DefaultPath is where settings are stored when no path is configured.
const DefaultPath = "settings.json"

// BrowserSettings controls how the lookup collaborator drives its browser.
type BrowserSettings struct {
	// Headless hides the browser window. Monitoring a run means turning
	// this off.
	Headless bool `json:"headless"`

	// ShowPopup enables the provider's result popup handling.
	ShowPopup bool `json:"show_popup"`

	// AutoClose closes the browser when a search finishes.
	AutoClose bool `json:"auto_close"`

	// PageLoadTimeout is the page load timeout in seconds.
	PageLoadTimeout int `json:"page_load_timeout"`

	// ScriptTimeout is the script execution timeout in seconds.
	ScriptTimeout int `json:"script_timeout"`
}

// Settings is the persisted settings document.
type Settings struct {
	Browser BrowserSettings `json:"browser_settings"`
}

// Default returns the settings used when no file exists yet.
func Default() Settings {
	return Settings{
		Browser: BrowserSettings{
			Headless:        true,
			ShowPopup:       true,
			AutoClose:       true,
			PageLoadTimeout: 60,
			ScriptTimeout:   60,
		},
	}
}

// Load reads settings from path, falling back to defaults when the file
// does not exist. A present-but-broken file is an error, not a silent
// default.
func Load(path string) (Settings, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}

	s := Default()
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

// Save writes settings to path, pretty-printed so the file stays hand
// editable.
func Save(path string, s Settings) error {
	if path == "" {
		path = DefaultPath
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
