// Package config loads runtime configuration for the myriad server.
// Runtime options (listen address, file paths, schedules) come from CLI
// flags and MYRIAD_* environment variables. The inventory definition
// (locations, integrations) lives in a TOML settings file, see settings.go.
package config

import (
	"github.com/paularlott/cli"
)

// Config holds the application runtime configuration
type Config struct {
	DataDir      string
	ListenAddr   string
	SettingsFile string
	SecretsFile  string
	SyncEnabled  bool
	SyncOnStart  bool
	SyncSchedule string
	MCPAuthToken string
	APIAuthToken string
}

// GetFlags returns the CLI flags shared by commands that need the full
// runtime configuration
func GetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:         "data-dir",
			Usage:        "Directory for the SQLite database",
			DefaultValue: "./data",
			EnvVars:      []string{"MYRIAD_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:         "listen-addr",
			Usage:        "HTTP listen address",
			DefaultValue: ":8000",
			EnvVars:      []string{"MYRIAD_LISTEN_ADDR"},
		},
		&cli.StringFlag{
			Name:         "settings",
			Usage:        "Path to the settings TOML file",
			DefaultValue: "myriad.toml",
			EnvVars:      []string{"MYRIAD_SETTINGS_FILE"},
		},
		&cli.StringFlag{
			Name:         "secrets",
			Usage:        "Path to the secrets TOML file",
			DefaultValue: "secrets.toml",
			EnvVars:      []string{"MYRIAD_SECRETS_FILE"},
		},
		&cli.BoolFlag{
			Name:         "sync-enabled",
			Usage:        "Run integration syncs on a schedule",
			DefaultValue: true,
			EnvVars:      []string{"MYRIAD_SYNC_ENABLED"},
		},
		&cli.BoolFlag{
			Name:         "sync-on-start",
			Usage:        "Run a full sync once at server startup",
			DefaultValue: false,
			EnvVars:      []string{"MYRIAD_SYNC_ON_START"},
		},
		&cli.StringFlag{
			Name:         "sync-schedule",
			Usage:        "Cron expression for scheduled syncs",
			DefaultValue: "*/15 * * * *",
			EnvVars:      []string{"MYRIAD_SYNC_SCHEDULE"},
		},
		&cli.StringFlag{
			Name:    "mcp-auth-token",
			Usage:   "Bearer token required on the MCP endpoint (empty disables auth)",
			EnvVars: []string{"MYRIAD_MCP_AUTH_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "api-auth-token",
			Usage:   "Bearer token required on the REST API (empty disables auth)",
			EnvVars: []string{"MYRIAD_API_AUTH_TOKEN"},
		},
	}
}

// Load builds a Config from the parsed command flags
func Load(cmd *cli.Command) *Config {
	return &Config{
		DataDir:      cmd.GetString("data-dir"),
		ListenAddr:   cmd.GetString("listen-addr"),
		SettingsFile: cmd.GetString("settings"),
		SecretsFile:  cmd.GetString("secrets"),
		SyncEnabled:  cmd.GetBool("sync-enabled"),
		SyncOnStart:  cmd.GetBool("sync-on-start"),
		SyncSchedule: cmd.GetString("sync-schedule"),
		MCPAuthToken: cmd.GetString("mcp-auth-token"),
		APIAuthToken: cmd.GetString("api-auth-token"),
	}
}

// IsMCPAuthEnabled checks if MCP authentication is configured
func (c *Config) IsMCPAuthEnabled() bool {
	return c.MCPAuthToken != ""
}

// IsAPIAuthEnabled checks if API authentication is configured
func (c *Config) IsAPIAuthEnabled() bool {
	return c.APIAuthToken != ""
}
