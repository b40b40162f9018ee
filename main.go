package main

import (
	"context"
	"os"

	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"

	"github.com/druroland/myriad/cmd/secret"
	"github.com/druroland/myriad/cmd/server"
	synccmd "github.com/druroland/myriad/cmd/sync"
	"github.com/druroland/myriad/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load .env file if it exists
	env.Load()

	// Initialize structured logging
	log.Configure("info", "console")

	rootCmd := &cli.Command{
		Name:        "myriad",
		Version:     version,
		Usage:       "Home infrastructure inventory with MCP server support",
		Description: "Tracks network hosts and virtual machines by syncing DHCP leases, ARP tables and hypervisor APIs into a local inventory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "log-level",
				Usage:        "Log level (trace, debug, info, warn, error)",
				DefaultValue: "info",
				EnvVars:      []string{"MYRIAD_LOG_LEVEL"},
				Global:       true,
			},
			&cli.StringFlag{
				Name:         "log-format",
				Usage:        "Log format (console, json)",
				DefaultValue: "console",
				EnvVars:      []string{"MYRIAD_LOG_FORMAT"},
				Global:       true,
			},
		},
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logLevel := cmd.GetString("log-level")
			logFormat := cmd.GetString("log-format")
			log.Configure(logLevel, logFormat)
			return ctx, nil
		},
		Commands: []*cli.Command{
			server.Command(),
			{
				Name:        "sync",
				Usage:       "Inventory sync commands",
				Description: "Run integration syncs from the command line",
				Commands:    synccmd.Commands(),
			},
			{
				Name:        "secret",
				Usage:       "Credential management commands",
				Description: "Manage the credentials referenced by the settings file",
				Commands:    secret.Commands(),
			},
		},
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		log.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
