// Package sync implements the manual sync CLI commands
package sync

import (
	"context"
	"fmt"

	"github.com/paularlott/cli"

	"github.com/druroland/myriad/internal/config"
	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/secrets"
	"github.com/druroland/myriad/internal/storage"
	enginesync "github.com/druroland/myriad/internal/sync"
)

// Commands returns the sync subcommands
func Commands() []*cli.Command {
	return []*cli.Command{
		HostsCommand(),
		VMsCommand(),
	}
}

// HostsCommand runs host discovery from the command line
func HostsCommand() *cli.Command {
	return &cli.Command{
		Name:        "hosts",
		Usage:       "Sync hosts from DHCP and ARP sources",
		Description: "Run host discovery against the configured OPNsense and SNMP integrations",
		Flags: append(config.GetFlags(),
			&cli.StringFlag{
				Name:  "integration",
				Usage: "Sync only this integration ID",
			},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			engine, store, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			integration := cmd.GetString("integration")
			if integration != "" {
				result, err := engine.SyncHosts(ctx, integration)
				if err != nil {
					return err
				}
				printHostResult(result)
				return nil
			}

			results := engine.SyncAllHosts(ctx)
			if len(results) == 0 {
				fmt.Println("No host discovery integrations configured")
				return nil
			}
			for i := range results {
				printHostResult(&results[i])
			}
			return nil
		},
	}
}

// VMsCommand syncs hypervisor inventory from the command line
func VMsCommand() *cli.Command {
	return &cli.Command{
		Name:        "vms",
		Usage:       "Sync virtual machines from hypervisors",
		Description: "Reconcile the VM inventory against the configured Proxmox integrations",
		Flags: append(config.GetFlags(),
			&cli.StringFlag{
				Name:  "integration",
				Usage: "Sync only this hypervisor integration ID",
			},
		),
		Run: func(ctx context.Context, cmd *cli.Command) error {
			engine, store, err := buildEngine(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			integration := cmd.GetString("integration")
			if integration != "" {
				result, err := engine.SyncCluster(ctx, integration)
				if err != nil {
					return err
				}
				printClusterResult(result)
				return nil
			}

			results := engine.SyncAllClusters(ctx)
			if len(results) == 0 {
				fmt.Println("No hypervisor integrations configured")
				return nil
			}
			for i := range results {
				printClusterResult(&results[i])
			}
			return nil
		},
	}
}

func buildEngine(cmd *cli.Command) (*enginesync.Engine, storage.Storage, error) {
	cfg := config.Load(cmd)

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, nil, err
	}
	secretData, err := config.LoadSecrets(cfg.SecretsFile)
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewStorage(cfg.DataDir)
	if err != nil {
		return nil, nil, err
	}

	if ls, ok := store.(storage.LocationStorage); ok {
		for _, loc := range settings.Locations {
			location := &model.Location{ID: loc.ID, Name: loc.Name}
			if loc.NetworkCIDR != "" {
				cidr := loc.NetworkCIDR
				location.NetworkCIDR = &cidr
			}
			if loc.Description != "" {
				desc := loc.Description
				location.Description = &desc
			}
			if err := ls.EnsureLocation(location); err != nil {
				store.Close()
				return nil, nil, err
			}
		}
	}

	return enginesync.NewEngine(store, settings, secrets.NewResolver(secretData)), store, nil
}

func printHostResult(result *model.HostSyncResult) {
	if result.Error != "" {
		fmt.Printf("%s: FAILED (%s)\n", result.Source, result.Error)
		return
	}
	fmt.Printf("%s: %d created, %d updated\n", result.Source, result.Created, result.Updated)
}

func printClusterResult(result *model.ClusterSyncResult) {
	if result.Error != "" {
		fmt.Printf("%s: FAILED (%s)\n", result.HypervisorID, result.Error)
		return
	}
	fmt.Printf("%s: %d VMs created, %d updated, %d removed, %d linked to hosts, %d snapshots\n",
		result.HypervisorID, result.VMsCreated, result.VMsUpdated, result.VMsRemoved,
		result.HostsLinked, result.SnapshotsSynced)
}
