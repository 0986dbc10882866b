package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings is the operator's persisted preferences.  Empty fields are
// "not set"; Port and Duration fall back to the package defaults.
type Settings struct {
	TelegramToken   string `yaml:"telegram_token,omitempty"`
	TelegramChatID  string `yaml:"telegram_chat_id,omitempty"`
	DefaultTarget   string `yaml:"default_target,omitempty"`
	DefaultPort     int    `yaml:"default_port,omitempty"`
	TrafficDuration int    `yaml:"traffic_duration,omitempty"`
}

// Port returns the configured default port or DefaultPort.
func (s Settings) Port() int {
	if s.DefaultPort > 0 {
		return s.DefaultPort
	}
	return DefaultPort
}

// Duration returns the configured run length in seconds or
// DefaultDurationSeconds.
func (s Settings) Duration() int {
	if s.TrafficDuration > 0 {
		return s.TrafficDuration
	}
	return DefaultDurationSeconds
}

// AlertConfigured reports whether both Telegram credentials are set.
func (s Settings) AlertConfigured() bool {
	return s.TelegramToken != "" && s.TelegramChatID != ""
}

// Store reads and writes Settings as a YAML file.  It is safe for
// concurrent use.
type Store struct {
	path string

	mu       sync.Mutex
	settings Settings
}

// NewStore returns a store for path without touching the file system.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file location.
func (s *Store) Path() string { return s.path }

// Load reads the file.  A missing file is not an error: the store keeps
// empty settings and the file is created by the first Save.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.settings = Settings{}
			return s.settings, nil
		}
		return Settings{}, fmt.Errorf("read settings %s: %w", s.path, err)
	}

	var loaded Settings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	s.settings = loaded
	return loaded, nil
}

// Settings returns the last loaded or saved settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Update applies fn to a copy of the current settings and persists the
// result.  The in-memory copy changes only if the write succeeds.
func (s *Store) Update(fn func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	fn(&next)
	if err := s.write(next); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// write replaces the file atomically.  Credentials live here, so the
// file is private to the owner.
func (s *Store) write(settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".netprobe-*.yaml")
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("save settings: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
