package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the persistent application configuration
type Config struct {
	// Backend holds connection settings for the analysis service
	Backend BackendConfig `json:"backend"`

	// UI preferences
	UI UIConfig `json:"ui"`

	// Journal controls local recording of raw stream frames
	Journal JournalConfig `json:"journal"`
}

// BackendConfig holds analysis service settings
type BackendConfig struct {
	BaseURL string `json:"base_url"`
	AgentID string `json:"agent_id"`
	APIKey  string `json:"api_key,omitempty"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	Theme         string `json:"theme"`
	RowHeight     int    `json:"row_height"`     // SVG export row height in px
	ShowStagePane bool   `json:"show_stage_pane"`
}

// JournalConfig controls frame recording
type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"` // defaults to ~/.ecoweave/journal.db
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			AgentID: "bmf-analyzer",
		},
		UI: UIConfig{
			Theme:         "dark",
			RowHeight:     36,
			ShowStagePane: true,
		},
		Journal: JournalConfig{
			Enabled: true,
		},
	}
}

// Dir returns the ecoweave config directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".ecoweave")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config file, falling back to defaults when it is missing.
// The API key may also come from the ECOWEAVE_API_KEY environment variable,
// which takes precedence over the file.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := Path()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if key := os.Getenv("ECOWEAVE_API_KEY"); key != "" {
		cfg.Backend.APIKey = key
	}
	if url := os.Getenv("ECOWEAVE_BASE_URL"); url != "" {
		cfg.Backend.BaseURL = url
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// JournalPath resolves the journal database path.
func (c *Config) JournalPath() (string, error) {
	if c.Journal.Path != "" {
		return c.Journal.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.db"), nil
}
