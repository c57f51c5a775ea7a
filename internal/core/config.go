// Package core provides configuration management and the engine wiring the
// Slack adapter to reply handlers.
//
// Configuration is loaded from a YAML file with ${ENV_VAR} expansion, so
// credential tokens can stay out of the file itself:
//
//	slack:
//	  bot_token: ${SLACK_BOT_TOKEN}
//	  app_token: ${SLACK_APP_TOKEN}
//	  alias: "!"
//	  conversation_cache_ttl_ms: "300000"
//	storage:
//	  type: memory
//	logging:
//	  level: info
package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/keepmind9/slackbridge/pkg/constants"
)

const (
	DefaultLogLevel        = "info"
	DefaultLogMaxBackups   = 5
	DefaultLogCompress     = true
	DefaultLogEnableStdout = true

	StorageTypeMemory   = "memory"
	StorageTypePostgres = "postgres"
)

// Config represents the complete slackbridge configuration structure
type Config struct {
	Slack   SlackConfig   `yaml:"slack"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// SlackConfig represents credentials and adapter tuning
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
	Alias    string `yaml:"alias"`

	// ConversationCacheTTLMS is the conversation cache entry lifetime in
	// milliseconds. Kept as a string because the value usually arrives via
	// environment expansion; it must parse as a non-negative integer.
	ConversationCacheTTLMS string `yaml:"conversation_cache_ttl_ms"`

	UserListPageSize int    `yaml:"user_list_page_size"`
	DisableUserSync  bool   `yaml:"disable_user_sync"`
	ProxyURL         string `yaml:"proxy_url"`
}

// StorageConfig selects the user store backend
type StorageConfig struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

// LoggingConfig represents log output configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	File         string `yaml:"file"`
	MaxSize      int    `yaml:"max_size"`
	MaxBackups   int    `yaml:"max_backups"`
	MaxAge       int    `yaml:"max_age"`
	Compress     bool   `yaml:"compress"`
	EnableStdout bool   `yaml:"enable_stdout"`
}

// LoadConfig loads configuration from file and expands environment variables
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData, err := expandEnv(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// expandEnv replaces ${VAR_NAME} patterns with environment variable values
func expandEnv(input string) (string, error) {
	var missingVars []string

	result := os.Expand(input, func(key string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		missingVars = append(missingVars, key)
		return ""
	})

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing required environment variables: %s",
			strings.Join(missingVars, ", "))
	}

	return result, nil
}

// validateConfig checks credentials and cache settings and fills defaults.
// Token and TTL problems are startup-fatal: the caller must not proceed to
// connect with a config that fails here.
func validateConfig(config *Config) error {
	if config.Slack.BotToken == "" {
		return fmt.Errorf("slack.bot_token is required")
	}
	if !strings.HasPrefix(config.Slack.BotToken, constants.BotTokenPrefix) {
		return fmt.Errorf("slack.bot_token must start with %q", constants.BotTokenPrefix)
	}
	if config.Slack.AppToken == "" {
		return fmt.Errorf("slack.app_token is required")
	}
	if !strings.HasPrefix(config.Slack.AppToken, constants.AppTokenPrefix) {
		return fmt.Errorf("slack.app_token must start with %q", constants.AppTokenPrefix)
	}

	if config.Slack.ConversationCacheTTLMS == "" {
		config.Slack.ConversationCacheTTLMS = strconv.Itoa(constants.DefaultConversationCacheTTLMS)
	}
	ttl, err := strconv.Atoi(config.Slack.ConversationCacheTTLMS)
	if err != nil {
		return fmt.Errorf("slack.conversation_cache_ttl_ms must be an integer: %w", err)
	}
	if ttl < 0 {
		return fmt.Errorf("slack.conversation_cache_ttl_ms must not be negative (got %d)", ttl)
	}

	if config.Slack.UserListPageSize < 0 {
		return fmt.Errorf("slack.user_list_page_size must not be negative (got %d)", config.Slack.UserListPageSize)
	}
	if config.Slack.UserListPageSize == 0 {
		config.Slack.UserListPageSize = constants.DefaultUserListPageSize
	}
	if config.Slack.UserListPageSize > constants.MaxUserListPageSize {
		return fmt.Errorf("slack.user_list_page_size must not exceed %d (got %d)",
			constants.MaxUserListPageSize, config.Slack.UserListPageSize)
	}

	if config.Storage.Type == "" {
		config.Storage.Type = StorageTypeMemory
	}
	switch config.Storage.Type {
	case StorageTypeMemory:
	case StorageTypePostgres:
		if config.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage type %q", config.Storage.Type)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = DefaultLogLevel
	}
	if config.Logging.MaxSize == 0 {
		config.Logging.MaxSize = constants.DefaultLogMaxSize
	}
	if config.Logging.MaxBackups == 0 {
		config.Logging.MaxBackups = DefaultLogMaxBackups
	}
	if config.Logging.MaxAge == 0 {
		config.Logging.MaxAge = constants.DefaultLogMaxAge
	}
	if !config.Logging.Compress {
		config.Logging.Compress = DefaultLogCompress
	}
	if !config.Logging.EnableStdout {
		config.Logging.EnableStdout = DefaultLogEnableStdout
	}

	return nil
}

// ConversationCacheTTL returns the configured cache TTL as a duration.
// LoadConfig guarantees the stored value parses.
func (c *Config) ConversationCacheTTL() time.Duration {
	ttl, err := strconv.Atoi(c.Slack.ConversationCacheTTLMS)
	if err != nil {
		return constants.DefaultConversationCacheTTL
	}
	return time.Duration(ttl) * time.Millisecond
}
