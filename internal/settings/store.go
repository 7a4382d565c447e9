// Package settings persists widget and chat configuration as a JSON
// file next to the data directory. Missing or unreadable files fall
// back to defaults so the server always has a usable configuration.
package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const maxSuggested = 4

// Theme holds the widget color palette.
type Theme struct {
	PrimaryColor    string `json:"primary_color"`
	SecondaryColor  string `json:"secondary_color"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
	BorderColor     string `json:"border_color"`
}

// ChatSettings are the generation knobs applied to every chat request.
type ChatSettings struct {
	MaxContextLength int     `json:"max_context_length"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	EnableStreaming  bool    `json:"enable_streaming"`
}

// Settings is the full persisted configuration document.
type Settings struct {
	Title        string       `json:"title"`
	Subtitle     string       `json:"subtitle"`
	Logo         string       `json:"logo"`
	Accent       string       `json:"accent"`
	Footer       string       `json:"footer"`
	Suggested    []string     `json:"suggested"`
	Theme        Theme        `json:"theme"`
	ChatSettings ChatSettings `json:"chat_settings"`
	ChatIcon     string       `json:"chat_icon"`
	ChatIconText string       `json:"chat_icon_text"`
	LastUpdated  string       `json:"last_updated"`
}

// Defaults returns the settings used when no config file exists.
func Defaults() Settings {
	return Settings{
		Title:    "AI Assistant",
		Subtitle: "Ask me anything about our services and process.",
		Logo:     "",
		Accent:   "#026CBD",
		Footer:   "© 2024 AI Assistant",
		Suggested: []string{
			"What services do you offer?",
			"How does your process work?",
			"How much do you charge?",
			"What's your usual timeline?",
		},
		Theme: Theme{
			PrimaryColor:    "#026CBD",
			SecondaryColor:  "#6c757d",
			BackgroundColor: "#ffffff",
			TextColor:       "#333333",
			BorderColor:     "#e9ecef",
		},
		ChatSettings: ChatSettings{
			MaxContextLength: 3000,
			Temperature:      0.2,
			MaxTokens:        140,
			EnableStreaming:  false,
		},
		ChatIcon:     "",
		ChatIconText: "💬",
		LastUpdated:  time.Now().Format(time.RFC3339),
	}
}

// Store reads and writes the settings file. All methods are safe for
// concurrent use.
type Store struct {
	mu         sync.Mutex
	path       string
	backupPath string
	log        *slog.Logger
}

// NewStore creates a settings store backed by the given file path.
func NewStore(path string, log *slog.Logger) *Store {
	if path == "" {
		path = "./config.json"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		path:       path,
		backupPath: path + ".backup",
		log:        log,
	}
}

// Load returns the current settings. The stored document is decoded on
// top of the defaults so keys added after the file was written still
// have values. Any read or decode failure falls back to defaults.
func (s *Store) Load() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() Settings {
	settings := Defaults()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Error("reading settings file, using defaults", "path", s.path, "error", err)
		}
		return settings
	}

	if err := json.Unmarshal(data, &settings); err != nil {
		s.log.Error("decoding settings file, using defaults", "path", s.path, "error", err)
		return Defaults()
	}

	settings.LastUpdated = time.Now().Format(time.RFC3339)
	return settings
}

// Save writes the settings to disk, backing up the previous file first.
// Empty required fields are refilled from defaults and the suggested
// question list is capped.
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(settings)
}

func (s *Store) saveLocked(settings Settings) error {
	s.backupLocked()

	defaults := Defaults()
	if settings.Title == "" {
		settings.Title = defaults.Title
	}
	if settings.Accent == "" {
		settings.Accent = defaults.Accent
	}
	if len(settings.Suggested) == 0 {
		settings.Suggested = defaults.Suggested
	}
	if len(settings.Suggested) > maxSuggested {
		settings.Suggested = settings.Suggested[:maxSuggested]
	}
	settings.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}

	s.log.Info("settings saved", "path", s.path)
	return nil
}

// Update applies a partial set of changes on top of the current
// settings and persists the result. Unknown keys are logged and
// ignored. Theme and chat keys accept the flat aliases the admin UI
// sends.
func (s *Store) Update(updates map[string]any) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := s.loadLocked()

	for key, value := range updates {
		switch key {
		case "title":
			settings.Title = asString(value)
		case "subtitle":
			settings.Subtitle = asString(value)
		case "logo":
			settings.Logo = asString(value)
		case "accent":
			settings.Accent = asString(value)
		case "footer":
			settings.Footer = asString(value)
		case "suggested":
			settings.Suggested = asStringSlice(value)
		case "chatIcon", "chat_icon":
			settings.ChatIcon = asString(value)
		case "chatIconText", "chat_icon_text":
			settings.ChatIconText = asString(value)
		case "primaryColor", "primary_color":
			settings.Theme.PrimaryColor = asString(value)
		case "secondaryColor", "secondary_color":
			settings.Theme.SecondaryColor = asString(value)
		case "backgroundColor", "background_color":
			settings.Theme.BackgroundColor = asString(value)
		case "textColor", "text_color":
			settings.Theme.TextColor = asString(value)
		case "temperature":
			if f, ok := asFloat(value); ok {
				settings.ChatSettings.Temperature = f
			}
		case "max_tokens":
			if n, ok := asInt(value); ok {
				settings.ChatSettings.MaxTokens = n
			}
		case "max_context_length":
			if n, ok := asInt(value); ok {
				settings.ChatSettings.MaxContextLength = n
			}
		default:
			s.log.Warn("ignoring unknown settings key", "key", key)
		}
	}

	if err := s.saveLocked(settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Reset backs up and removes the settings file so the next Load
// returns defaults.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backupLocked()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing settings file: %w", err)
	}
	s.log.Info("settings reset to defaults")
	return nil
}

func (s *Store) backupLocked() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	if err := os.WriteFile(s.backupPath, data, 0o644); err != nil {
		s.log.Warn("backing up settings file", "error", err)
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStringSlice(v any) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
