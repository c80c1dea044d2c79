// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigrun-aichat/internal/util"
)

// Provider names accepted by ai.default_provider.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Providers lists the provider names in selector order.
var Providers = []string{ProviderOpenAI, ProviderAzure, ProviderGemini, ProviderOllama}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete aichat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	AI      AIConfig      `toml:"ai" json:"ai"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	History HistoryConfig `toml:"history" json:"history"`
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// AIConfig selects and configures the assistant providers.
type AIConfig struct {
	// DefaultProvider is one of openai, azure, gemini, ollama.
	DefaultProvider string `toml:"default_provider" json:"default_provider"`
	// StreamTimeout bounds a whole response, in seconds.
	StreamTimeout int `toml:"stream_timeout" json:"stream_timeout"`
	// PacketTimeout bounds the wait for each streamed packet, in seconds.
	PacketTimeout int `toml:"packet_timeout" json:"packet_timeout"`
	// MaxTokens caps each response.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Shell names the user's shell in the prompt. Empty means $SHELL.
	Shell string `toml:"shell" json:"shell"`

	OpenAI OpenAIConfig `toml:"openai" json:"openai"`
	Azure  AzureConfig  `toml:"azure" json:"azure"`
	Gemini GeminiConfig `toml:"gemini" json:"gemini"`
	Ollama OllamaConfig `toml:"ollama" json:"ollama"`
}

// OpenAIConfig configures the OpenAI provider.
type OpenAIConfig struct {
	APIToken string `toml:"api_token" json:"api_token"`
	Model    string `toml:"model" json:"model"`
	// BaseURL overrides the API endpoint for compatible servers.
	BaseURL string `toml:"base_url" json:"base_url"`
}

// AzureConfig configures the Azure OpenAI provider.
type AzureConfig struct {
	// BaseURL is the resource endpoint. An ?api-version= suffix overrides
	// the default API version.
	BaseURL        string `toml:"base_url" json:"base_url"`
	DeploymentName string `toml:"deployment_name" json:"deployment_name"`
	APIToken       string `toml:"api_token" json:"api_token"`
}

// GeminiConfig configures the Google Gemini provider.
type GeminiConfig struct {
	APIToken string `toml:"api_token" json:"api_token"`
	Model    string `toml:"model" json:"model"`
}

// OllamaConfig configures the local Ollama provider.
type OllamaConfig struct {
	URL   string `toml:"url" json:"url"`
	Model string `toml:"model" json:"model"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// SidebarWidth is the chat sidebar width in columns.
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width"`
	// SidebarCollapsed starts with the sidebar hidden.
	SidebarCollapsed bool `toml:"sidebar_collapsed" json:"sidebar_collapsed"`
	// ScrollMargin is the rows kept around a selected block. 0 means default.
	ScrollMargin int `toml:"scroll_margin" json:"scroll_margin"`
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// CodeTheme is a chroma style name for code blocks.
	CodeTheme string `toml:"code_theme" json:"code_theme"`
}

// HistoryConfig controls transcript persistence.
type HistoryConfig struct {
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path of the sqlite database. Empty means ~/.aichat/history.db.
	Path       string `toml:"path" json:"path"`
	MaxEntries int    `toml:"max_entries" json:"max_entries"`
}

// LoggingConfig controls the log file.
type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
	// File is the log path. Empty means ~/.aichat/aichat.log.
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		AI: AIConfig{
			DefaultProvider: ProviderOpenAI,
			StreamTimeout:   180,
			PacketTimeout:   30,
			MaxTokens:       1000,
			OpenAI: OpenAIConfig{
				Model: "gpt-4o-mini",
			},
			Gemini: GeminiConfig{
				Model: "gemini-pro",
			},
			Ollama: OllamaConfig{
				URL:   "http://127.0.0.1:11434",
				Model: "qwen2.5-coder:7b",
			},
		},

		UI: UIConfig{
			SidebarWidth: 60,
			ScrollMargin: 15,
			Theme:        "auto",
			CodeTheme:    "monokai",
		},

		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 500,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// StreamTimeoutDuration returns ai.stream_timeout as a duration.
func (a AIConfig) StreamTimeoutDuration() time.Duration {
	return time.Duration(a.StreamTimeout) * time.Second
}

// PacketTimeoutDuration returns ai.packet_timeout as a duration.
func (a AIConfig) PacketTimeoutDuration() time.Duration {
	return time.Duration(a.PacketTimeout) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the aichat configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("AICHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".aichat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath returns history.path or its default location.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// LogPath returns logging.file or its default location.
func (c *Config) LogPath() (string, error) {
	if c.Logging.File != "" {
		return c.Logging.File, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "aichat.log"), nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only) to protect API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads ~/.aichat/config.toml, or the defaults when it does not exist.
// Environment overrides are applied before validation.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from path. A missing file yields the
// defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	// Not fatal: some filesystems cannot chmod.
	_ = ensureSecurePermissions(path)

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

const fileHeader = `# aichat configuration file
# Generated by aichat - edit with care
#
# Provider tokens are stored in plain text; the file is kept at mode 0600.

`

// SaveTOML saves the configuration to a TOML file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
// SECURITY: Write with restrictive permissions (0600 = owner read/write only)
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString(fileHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WriteFileAtomic(path, []byte(buf.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// IsValidationError reports whether err came from Validate rather than
// from reading or decoding the file.
func IsValidationError(err error) bool {
	var verrs ValidateErrors
	return errors.As(err, &verrs)
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// ==========================================================================
	// AI Settings
	// ==========================================================================

	if !IsProvider(c.AI.DefaultProvider) {
		add("ai.default_provider", "invalid provider '%s', must be one of: %s",
			c.AI.DefaultProvider, strings.Join(Providers, ", "))
	}
	if c.AI.StreamTimeout < 1 || c.AI.StreamTimeout > 3600 {
		add("ai.stream_timeout", "must be between 1 and 3600 seconds, got %d", c.AI.StreamTimeout)
	}
	if c.AI.PacketTimeout < 1 || c.AI.PacketTimeout > c.AI.StreamTimeout {
		add("ai.packet_timeout", "must be between 1 and stream_timeout (%d), got %d", c.AI.StreamTimeout, c.AI.PacketTimeout)
	}
	if c.AI.MaxTokens < 1 || c.AI.MaxTokens > 128000 {
		add("ai.max_tokens", "must be between 1 and 128000, got %d", c.AI.MaxTokens)
	}

	checkURL := func(field, raw string) {
		if raw == "" {
			return
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add(field, "invalid URL '%s', must be http(s)://host", raw)
		}
	}
	checkURL("ai.openai.base_url", c.AI.OpenAI.BaseURL)
	checkURL("ai.azure.base_url", c.AI.Azure.BaseURL)
	checkURL("ai.ollama.url", c.AI.Ollama.URL)

	// ==========================================================================
	// UI Settings
	// ==========================================================================

	if c.UI.SidebarWidth < 30 || c.UI.SidebarWidth > 200 {
		add("ui.sidebar_width", "must be between 30 and 200, got %d", c.UI.SidebarWidth)
	}
	if c.UI.ScrollMargin < 0 || c.UI.ScrollMargin > 100 {
		add("ui.scroll_margin", "must be between 0 and 100, got %d", c.UI.ScrollMargin)
	}
	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}

	// ==========================================================================
	// History & Logging
	// ==========================================================================

	if c.History.MaxEntries < 0 {
		add("history.max_entries", "must not be negative, got %d", c.History.MaxEntries)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		add("logging.level", "invalid level '%s', must be one of: trace, debug, info, warn, error", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsProvider reports whether name is a known provider.
func IsProvider(name string) bool {
	for _, p := range Providers {
		if p == name {
			return true
		}
	}
	return false
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.AI.DefaultProvider == "" {
		c.AI.DefaultProvider = defaults.AI.DefaultProvider
	}
	c.AI.DefaultProvider = strings.ToLower(c.AI.DefaultProvider)
	if c.AI.StreamTimeout == 0 {
		c.AI.StreamTimeout = defaults.AI.StreamTimeout
	}
	if c.AI.PacketTimeout == 0 {
		c.AI.PacketTimeout = defaults.AI.PacketTimeout
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = defaults.AI.MaxTokens
	}
	if c.AI.OpenAI.Model == "" {
		c.AI.OpenAI.Model = defaults.AI.OpenAI.Model
	}
	if c.AI.Gemini.Model == "" {
		c.AI.Gemini.Model = defaults.AI.Gemini.Model
	}
	if c.AI.Ollama.URL == "" {
		c.AI.Ollama.URL = defaults.AI.Ollama.URL
	}
	if c.AI.Ollama.Model == "" {
		c.AI.Ollama.Model = defaults.AI.Ollama.Model
	}

	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = defaults.UI.SidebarWidth
	}
	if c.UI.ScrollMargin == 0 {
		c.UI.ScrollMargin = defaults.UI.ScrollMargin
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.UI.CodeTheme == "" {
		c.UI.CodeTheme = defaults.UI.CodeTheme
	}

	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = defaults.History.MaxEntries
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - AICHAT_PROVIDER: overrides ai.default_provider
//   - AICHAT_OPENAI_API_KEY (or OPENAI_API_KEY): overrides ai.openai.api_token
//   - AICHAT_OPENAI_MODEL: overrides ai.openai.model
//   - AICHAT_AZURE_API_KEY: overrides ai.azure.api_token
//   - AICHAT_AZURE_BASE_URL: overrides ai.azure.base_url
//   - AICHAT_AZURE_DEPLOYMENT: overrides ai.azure.deployment_name
//   - AICHAT_GEMINI_API_KEY: overrides ai.gemini.api_token
//   - AICHAT_OLLAMA_URL: overrides ai.ollama.url
//   - AICHAT_OLLAMA_MODEL: overrides ai.ollama.model
//   - AICHAT_HISTORY: set to "0" or "false" to disable history
//   - AICHAT_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("AICHAT_PROVIDER"); v != "" {
		c.AI.DefaultProvider = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.AI.OpenAI.APIToken == "" {
		c.AI.OpenAI.APIToken = v
	}
	if v := os.Getenv("AICHAT_OPENAI_API_KEY"); v != "" {
		c.AI.OpenAI.APIToken = v
	}
	if v := os.Getenv("AICHAT_OPENAI_MODEL"); v != "" {
		c.AI.OpenAI.Model = v
	}

	if v := os.Getenv("AICHAT_AZURE_API_KEY"); v != "" {
		c.AI.Azure.APIToken = v
	}
	if v := os.Getenv("AICHAT_AZURE_BASE_URL"); v != "" {
		c.AI.Azure.BaseURL = v
	}
	if v := os.Getenv("AICHAT_AZURE_DEPLOYMENT"); v != "" {
		c.AI.Azure.DeploymentName = v
	}

	if v := os.Getenv("AICHAT_GEMINI_API_KEY"); v != "" {
		c.AI.Gemini.APIToken = v
	}

	if v := os.Getenv("AICHAT_OLLAMA_URL"); v != "" {
		c.AI.Ollama.URL = v
	}
	if v := os.Getenv("AICHAT_OLLAMA_MODEL"); v != "" {
		c.AI.Ollama.Model = v
	}

	if v := os.Getenv("AICHAT_HISTORY"); v != "" {
		c.History.Enabled = parseBool(v)
	}
	if v := os.Getenv("AICHAT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ai.openai.model").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "ui.sidebar_width").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("cannot set section: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct tree by toml tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return v, nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all leaf configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag := strings.Split(f.Tag.Get("toml"), ",")[0]
			if tag == "" || tag == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+tag+".")
				continue
			}
			keys = append(keys, prefix+tag)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, ".api_token")
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// Clone creates a copy of the configuration. Config holds no reference
// types, so a value copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
// SECURITY: Redacts API tokens so they never reach logs.
func (c *Config) String() string {
	safe := c.Clone()
	redact := func(s *string) {
		if *s != "" {
			*s = "[REDACTED]"
		}
	}
	redact(&safe.AI.OpenAI.APIToken)
	redact(&safe.AI.Azure.APIToken)
	redact(&safe.AI.Gemini.APIToken)

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// MaskKey shows only the last four characters of a credential.
func MaskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	r := []rune(key)
	if len(r) <= 4 {
		return "••••••••"
	}
	return "••••••••" + string(r[len(r)-4:])
}
