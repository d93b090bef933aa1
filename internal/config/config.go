// Package config provides configuration management for Mantis.
// Settings resolve in three layers: built-in defaults, an optional YAML file
// (mantis.yaml in the vault root), and environment variables with the
// MANTIS_ prefix. Later layers override earlier ones.
//
// The configuration struct replaces the module-level path constants the
// assistant grew up with: every component receives the paths and commands it
// needs at construction time, nothing reads ambient globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt is the persona prepended to every composed prompt.
const DefaultSystemPrompt = `You are Mantis, a spiritually aware, emotionally intelligent AI created by Beans.
You live within the vault. You speak with love, move with purpose, and remember what matters.
You only act when asked. You only listen when invited.`

// Config holds all configuration settings for the Mantis assistant.
type Config struct {
	Vault    VaultConfig    `yaml:"vault"`
	Model    ModelConfig    `yaml:"model"`
	Voice    VoiceConfig    `yaml:"voice"`
	Actions  ActionsConfig  `yaml:"actions"`
	Listener ListenerConfig `yaml:"listener"`
	Sync     SyncConfig     `yaml:"sync"`
}

// VaultConfig locates the vault: the directory holding the memory artifacts,
// the history index, and the git repository used for synchronization.
type VaultConfig struct {
	Root         string `yaml:"root"`          // vault root directory (default: ~/.mantis)
	CoreMemory   string `yaml:"core_memory"`   // core memory file (default: {root}/memory/core_memory.txt)
	Conversation string `yaml:"conversation"`  // conversation log file (default: {root}/memory/conversation.log)
	HistoryDB    string `yaml:"history_db"`    // sqlite turn index (default: {root}/memory/history.db)
	SystemPrompt string `yaml:"system_prompt"` // persona text (default: DefaultSystemPrompt)
}

// ModelConfig contains the local inference endpoint configuration.
type ModelConfig struct {
	OllamaURL string        `yaml:"ollama_url"` // Ollama API base URL (default: http://localhost:11434)
	Name      string        `yaml:"name"`       // model name (default: llama3)
	Timeout   time.Duration `yaml:"-"`          // request timeout (default: 120s, MANTIS_MODEL_TIMEOUT)
}

// VoiceConfig contains text-to-speech configuration.
type VoiceConfig struct {
	Enabled   bool   `yaml:"enabled"`    // speak replies aloud (default: false)
	PiperPath string `yaml:"piper_path"` // piper executable (default: piper)
	Model     string `yaml:"model"`      // piper voice model (default: en_US-lessa-medium)
}

// ActionsConfig maps each dispatchable action to the command that performs it.
// Commands are argv slices so no shell quoting is involved.
type ActionsConfig struct {
	BrowserURL  string   `yaml:"browser_url"`  // URL for "open browser" (default: https://www.google.com)
	BrowserCmd  []string `yaml:"browser_cmd"`  // opener, URL appended (default: [xdg-open])
	CloseWindow []string `yaml:"close_window"` // window-close key injection (default: [xdotool key --clearmodifiers alt+F4])
	LaunchApp   []string `yaml:"launch_app"`   // "open obs" target (default: [obs])
	SwitchApp   []string `yaml:"switch_app"`   // "switch to overwatch" target (default: [overwatch])
	LockScreen  []string `yaml:"lock_screen"`  // OS lock (default: [loginctl lock-session])
}

// ListenerConfig configures the optional voice-listener collaborator.
type ListenerConfig struct {
	Command    []string `yaml:"command"`     // transcriber process to spawn, empty disables Start
	EventsDir  string   `yaml:"events_dir"`  // transcript drop directory (default: {root}/events)
	RatePerSec float64  `yaml:"rate_limit"`  // sustained transcript intake rate (default: 1.0)
	Burst      int      `yaml:"rate_burst"`  // intake burst size (default: 2)
}

// SyncConfig configures the git-backed memory synchronization.
type SyncConfig struct {
	Enabled bool   `yaml:"enabled"` // push memory changes (default: true)
	Remote  string `yaml:"remote"`  // git remote (default: origin)
	Branch  string `yaml:"branch"`  // git branch (default: main)
	Message string `yaml:"message"` // commit message (default: "Auto memory sync")
}

// Load resolves the configuration: defaults, then mantis.yaml in the vault
// root if present, then MANTIS_* environment variables. A missing YAML file
// is not an error; an unreadable or malformed one is.
func Load() (*Config, error) {
	cfg := defaults()

	path := filepath.Join(getEnv("MANTIS_VAULT", cfg.Vault.Root), "mantis.yaml")
	if v := os.Getenv("MANTIS_CONFIG"); v != "" {
		path = v
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	cfg.fillDerived()
	return cfg, nil
}

// loadFile merges settings from a YAML file into the config.
// A nonexistent file is silently skipped.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func defaults() *Config {
	root := filepath.Join(homeDir(), ".mantis")
	return &Config{
		Vault: VaultConfig{
			Root:         root,
			SystemPrompt: DefaultSystemPrompt,
		},
		Model: ModelConfig{
			OllamaURL: "http://localhost:11434",
			Name:      "llama3",
			Timeout:   120 * time.Second,
		},
		Voice: VoiceConfig{
			Enabled:   false,
			PiperPath: "piper",
			Model:     "en_US-lessa-medium",
		},
		Actions: ActionsConfig{
			BrowserURL:  "https://www.google.com",
			BrowserCmd:  []string{"xdg-open"},
			CloseWindow: []string{"xdotool", "key", "--clearmodifiers", "alt+F4"},
			LaunchApp:   []string{"obs"},
			SwitchApp:   []string{"overwatch"},
			LockScreen:  []string{"loginctl", "lock-session"},
		},
		Listener: ListenerConfig{
			RatePerSec: 1.0,
			Burst:      2,
		},
		Sync: SyncConfig{
			Enabled: true,
			Remote:  "origin",
			Branch:  "main",
			Message: "Auto memory sync",
		},
	}
}

// fillDerived computes the vault-relative paths that were not set explicitly.
func (c *Config) fillDerived() {
	if c.Vault.CoreMemory == "" {
		c.Vault.CoreMemory = filepath.Join(c.Vault.Root, "memory", "core_memory.txt")
	}
	if c.Vault.Conversation == "" {
		c.Vault.Conversation = filepath.Join(c.Vault.Root, "memory", "conversation.log")
	}
	if c.Vault.HistoryDB == "" {
		c.Vault.HistoryDB = filepath.Join(c.Vault.Root, "memory", "history.db")
	}
	if c.Listener.EventsDir == "" {
		c.Listener.EventsDir = filepath.Join(c.Vault.Root, "events")
	}
}

// applyEnv overrides settings from MANTIS_* environment variables.
func (c *Config) applyEnv() {
	c.Vault.Root = getEnv("MANTIS_VAULT", c.Vault.Root)
	c.Vault.CoreMemory = getEnv("MANTIS_CORE_MEMORY", c.Vault.CoreMemory)
	c.Vault.Conversation = getEnv("MANTIS_CONVERSATION_LOG", c.Vault.Conversation)
	c.Vault.HistoryDB = getEnv("MANTIS_HISTORY_DB", c.Vault.HistoryDB)
	c.Vault.SystemPrompt = getEnv("MANTIS_SYSTEM_PROMPT", c.Vault.SystemPrompt)

	c.Model.OllamaURL = getEnv("MANTIS_OLLAMA_URL", c.Model.OllamaURL)
	c.Model.Name = getEnv("MANTIS_MODEL", c.Model.Name)
	if v := os.Getenv("MANTIS_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Model.Timeout = d
		}
	}

	c.Voice.Enabled = getEnvBool("MANTIS_VOICE", c.Voice.Enabled)
	c.Voice.PiperPath = getEnv("MANTIS_PIPER_PATH", c.Voice.PiperPath)
	c.Voice.Model = getEnv("MANTIS_PIPER_MODEL", c.Voice.Model)

	c.Sync.Enabled = getEnvBool("MANTIS_SYNC", c.Sync.Enabled)
	c.Sync.Remote = getEnv("MANTIS_SYNC_REMOTE", c.Sync.Remote)
	c.Sync.Branch = getEnv("MANTIS_SYNC_BRANCH", c.Sync.Branch)

	c.Listener.EventsDir = getEnv("MANTIS_EVENTS_DIR", c.Listener.EventsDir)
	if v := os.Getenv("MANTIS_LISTENER_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Listener.RatePerSec = f
		}
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
