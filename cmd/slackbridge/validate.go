package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/keepmind9/slackbridge/internal/core"
	"github.com/spf13/cobra"
)

var (
	validateConfigPath string
	validateJSON       bool
)

// ValidationResult represents the validation result
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Config   string   `json:"config"`
	Storage  string   `json:"storage,omitempty"`
	CacheTTL string   `json:"conversation_cache_ttl,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the slackbridge configuration file",
	Long: `Validate the slackbridge configuration file without connecting to Slack.

This command checks:
  - YAML syntax and environment variable expansion
  - Credential token prefixes (xoxb- / xapp-)
  - Conversation cache TTL
  - Storage and logging settings

Exit codes:
  0 - Configuration is valid
  1 - Configuration has errors`,
	Run: func(cmd *cobra.Command, args []string) {
		configFile := validateConfigPath
		if configFile == "" {
			for _, loc := range []string{
				"config.yaml",
				filepath.Join(os.Getenv("HOME"), ".config/slackbridge/config.yaml"),
				"/etc/slackbridge/config.yaml",
			} {
				if _, err := os.Stat(loc); err == nil {
					configFile = loc
					break
				}
			}
		}

		result := ValidationResult{Config: configFile}
		config, err := core.LoadConfig(configFile)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Valid = true
			result.Storage = config.Storage.Type
			result.CacheTTL = config.ConversationCacheTTL().String()
		}

		if validateJSON {
			output, jsonErr := json.MarshalIndent(result, "", "  ")
			if jsonErr != nil {
				fmt.Printf("{\"error\": \"failed to marshal json: %v\"}\n", jsonErr)
				os.Exit(1)
			}
			fmt.Println(string(output))
		} else if result.Valid {
			fmt.Printf("Configuration %s is valid\n", configFile)
			fmt.Printf("  Storage:                %s\n", result.Storage)
			fmt.Printf("  Conversation cache TTL: %s\n", result.CacheTTL)
		} else {
			fmt.Printf("Configuration %s is invalid:\n", configFile)
			for _, e := range result.Errors {
				fmt.Printf("  - %s\n", e)
			}
		}

		if !result.Valid {
			os.Exit(1)
		}
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c", "", "Configuration file path")
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output in JSON format")
}
