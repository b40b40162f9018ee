// Package sync reconciles the inventory with the configured
// integrations: DHCP leases and ARP tables feed the host table,
// hypervisor APIs feed the virtual machine tables.
package sync

import (
	"context"
	"errors"

	"github.com/druroland/myriad/internal/config"
	"github.com/druroland/myriad/internal/secrets"
	"github.com/druroland/myriad/internal/storage"
	"github.com/druroland/myriad/pkg/opnsense"
	"github.com/druroland/myriad/pkg/proxmox"
	"github.com/druroland/myriad/pkg/snmparp"
)

var (
	// ErrIntegrationNotFound is returned when no configured integration
	// has the requested ID
	ErrIntegrationNotFound = errors.New("integration not found")

	// ErrConnectionFailed wraps failures to reach or authenticate
	// against an integration endpoint
	ErrConnectionFailed = errors.New("connection failed")

	// ErrClustersUnsupported is returned when the storage backend does
	// not track hypervisors
	ErrClustersUnsupported = errors.New("storage does not support clusters")
)

// DHCPClient is the part of the OPNsense client the engine uses
type DHCPClient interface {
	TestConnection(ctx context.Context) error
	Leases(ctx context.Context) ([]opnsense.Lease, error)
}

// ClusterClient is the part of the Proxmox client the engine uses
type ClusterClient interface {
	TestConnection(ctx context.Context) (string, error)
	ListVMs(ctx context.Context, node string) ([]proxmox.VM, error)
	GetVMMACs(ctx context.Context, node, vmType string, vmid int64) ([]string, error)
	ListSnapshots(ctx context.Context, node, vmType string, vmid int64) ([]proxmox.Snapshot, error)
}

// ARPClient is the part of the SNMP client the engine uses
type ARPClient interface {
	TestConnection() error
	GetARPTable() ([]snmparp.Entry, error)
}

// Engine runs syncs against the configured integrations. Client
// construction is injectable for testing.
type Engine struct {
	store    storage.Storage
	settings *config.Settings
	resolver *secrets.Resolver

	newDHCPClient    func(cfg config.OPNsenseSettings, creds config.OPNsenseCredentials) DHCPClient
	newClusterClient func(cfg config.ProxmoxSettings, creds config.ProxmoxCredentials) ClusterClient
	newARPClient     func(cfg config.SNMPSettings, creds config.SNMPCredentials) ARPClient
}

// NewEngine creates a sync engine over the given storage, settings and
// secrets
func NewEngine(store storage.Storage, settings *config.Settings, resolver *secrets.Resolver) *Engine {
	return &Engine{
		store:    store,
		settings: settings,
		resolver: resolver,
		newDHCPClient: func(cfg config.OPNsenseSettings, creds config.OPNsenseCredentials) DHCPClient {
			return opnsense.NewClient(cfg.URL, creds.APIKey, creds.APISecret, cfg.VerifyTLS)
		},
		newClusterClient: func(cfg config.ProxmoxSettings, creds config.ProxmoxCredentials) ClusterClient {
			return proxmox.NewClient(cfg.APIURL, creds.TokenID, creds.TokenSecret, cfg.VerifyTLS)
		},
		newARPClient: func(cfg config.SNMPSettings, creds config.SNMPCredentials) ARPClient {
			return snmparp.NewClient(cfg.Host, cfg.Port, creds.Community)
		},
	}
}

func (e *Engine) clusterStore() (storage.ClusterStorage, error) {
	cs, ok := e.store.(storage.ClusterStorage)
	if !ok {
		return nil, ErrClustersUnsupported
	}
	return cs, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
