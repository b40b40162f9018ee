package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/druroland/myriad/internal/config"
	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/model"
)

// SyncHosts runs a host discovery sync for one integration by ID
func (e *Engine) SyncHosts(ctx context.Context, integrationID string) (*model.HostSyncResult, error) {
	for _, cfg := range e.settings.Integrations.OPNsense {
		if cfg.ID == integrationID {
			return e.syncOPNsense(ctx, cfg)
		}
	}
	for _, cfg := range e.settings.Integrations.SNMP {
		if cfg.ID == integrationID {
			return e.syncSNMP(ctx, cfg)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrIntegrationNotFound, integrationID)
}

// SyncAllHosts runs host discovery for every configured integration.
// One integration failing does not stop the others, its result carries
// the error instead.
func (e *Engine) SyncAllHosts(ctx context.Context) []model.HostSyncResult {
	var results []model.HostSyncResult

	for _, cfg := range e.settings.Integrations.OPNsense {
		result, err := e.syncOPNsense(ctx, cfg)
		if err != nil {
			log.Error("Host sync failed", "integration", cfg.ID, "error", err)
		}
		results = append(results, *result)
	}
	for _, cfg := range e.settings.Integrations.SNMP {
		result, err := e.syncSNMP(ctx, cfg)
		if err != nil {
			log.Error("Host sync failed", "integration", cfg.ID, "error", err)
		}
		results = append(results, *result)
	}

	return results
}

func (e *Engine) syncOPNsense(ctx context.Context, cfg config.OPNsenseSettings) (*model.HostSyncResult, error) {
	result := &model.HostSyncResult{Source: "opnsense:" + cfg.ID, Timestamp: time.Now()}

	creds, err := e.resolver.OPNsense(cfg.CredentialRef)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	client := e.newDHCPClient(cfg, creds)

	if err := client.TestConnection(ctx); err != nil {
		err = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		result.Error = err.Error()
		return result, err
	}

	leases, err := client.Leases(ctx)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	locationID := optional(cfg.LocationID)
	for _, lease := range leases {
		created, err := e.store.UpsertHostFromDiscovery(&model.DiscoveredHost{
			MACAddress:   lease.MACAddress,
			IPAddress:    lease.IPAddress,
			Hostname:     lease.Hostname,
			Source:       model.SourceOPNsenseDHCP,
			IsStatic:     lease.IsStatic,
			LeaseExpires: lease.Expires,
			LocationID:   locationID,
		})
		if err != nil {
			// An errored run reports no counts
			result.Created, result.Updated = 0, 0
			result.Error = err.Error()
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	log.Info("Host sync finished", "integration", cfg.ID,
		"created", result.Created, "updated", result.Updated)
	return result, nil
}

func (e *Engine) syncSNMP(_ context.Context, cfg config.SNMPSettings) (*model.HostSyncResult, error) {
	result := &model.HostSyncResult{Source: "snmp:" + cfg.ID, Timestamp: time.Now()}

	creds, err := e.resolver.SNMP(cfg.CredentialRef)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	client := e.newARPClient(cfg, creds)

	if err := client.TestConnection(); err != nil {
		err = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		result.Error = err.Error()
		return result, err
	}

	entries, err := client.GetARPTable()
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	locationID := optional(cfg.LocationID)
	for _, entry := range entries {
		created, err := e.store.UpsertHostFromDiscovery(&model.DiscoveredHost{
			MACAddress: entry.MACAddress,
			IPAddress:  entry.IPAddress,
			Source:     model.SourceSNMPARP,
			LocationID: locationID,
		})
		if err != nil {
			result.Created, result.Updated = 0, 0
			result.Error = err.Error()
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	log.Info("Host sync finished", "integration", cfg.ID,
		"created", result.Created, "updated", result.Updated)
	return result, nil
}
