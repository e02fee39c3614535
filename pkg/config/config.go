package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/koushikyemula/cue/pkg/task"
)

const (
	xdgAppName = "cue"
	configFile = "config.json"

	defaultModel    = "gpt-4o-mini"
	defaultCalendar = "Tasks"
)

// Settings holds user configuration. It is passed explicitly into the
// pipeline; nothing in the core reads it ambiently.
type Settings struct {
	AIEnabled           bool          `json:"aiEnabled"`
	SyncEnabled         bool          `json:"syncEnabled"`
	DefaultPriority     task.Priority `json:"defaultPriority,omitempty"`
	AutoRemoveCompleted bool          `json:"autoRemoveCompleted"`
	Model               string        `json:"model"`
	BaseURL             string        `json:"baseUrl,omitempty"`
	Timezone            string        `json:"timezone,omitempty"` // empty means system local
	Calendar            string        `json:"calendar"`
}

func defaults() *Settings {
	return &Settings{
		AIEnabled: true,
		Model:     defaultModel,
		Calendar:  defaultCalendar,
	}
}

func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName, configFile), nil
}

func Load() (*Settings, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return nil, err
	}
	defer f.Close()

	cfg := defaults()
	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Calendar == "" {
		cfg.Calendar = defaultCalendar
	}
	if !cfg.DefaultPriority.Valid() {
		return nil, fmt.Errorf("config has unknown defaultPriority %q", cfg.DefaultPriority)
	}
	return cfg, nil
}

func Save(cfg *Settings) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
