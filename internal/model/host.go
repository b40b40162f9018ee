package model

import (
	"time"
)

// HostType categorizes a host device
type HostType string

const (
	HostTypeUnknown     HostType = "unknown"
	HostTypeServer      HostType = "server"
	HostTypeWorkstation HostType = "workstation"
	HostTypeLaptop      HostType = "laptop"
	HostTypePhone       HostType = "phone"
	HostTypeTablet      HostType = "tablet"
	HostTypeIOT         HostType = "iot"
	HostTypeNetwork     HostType = "network"
	HostTypePrinter     HostType = "printer"
	HostTypeMedia       HostType = "media"
	HostTypeGaming      HostType = "gaming"
	HostTypeAppliance   HostType = "appliance"
)

// HostStatus is the last observed reachability of a host
type HostStatus string

const (
	HostStatusOnline  HostStatus = "online"
	HostStatusOffline HostStatus = "offline"
	HostStatusUnknown HostStatus = "unknown"
)

// DiscoverySource records how a host entered the inventory
type DiscoverySource string

const (
	SourceManual       DiscoverySource = "manual"
	SourceOPNsenseDHCP DiscoverySource = "opnsense_dhcp"
	SourceSNMPARP      DiscoverySource = "snmp_arp"
)

// Host is a discovered or manually added network host.
// The MAC address is the natural key and is always stored in canonical
// lowercase colon-separated form. Fields the source may not report are
// pointers so that "not reported" is distinguishable from a zero value.
type Host struct {
	ID            int64           `json:"id"`
	MACAddress    string          `json:"mac_address"`
	Hostname      *string         `json:"hostname,omitempty"`
	DisplayName   *string         `json:"display_name,omitempty"`
	IPAddress     *string         `json:"ip_address,omitempty"`
	HostType      HostType        `json:"host_type"`
	Status        HostStatus      `json:"status"`
	Source        DiscoverySource `json:"discovery_source"`
	LocationID    *string         `json:"location_id,omitempty"`
	IsStaticLease bool            `json:"is_static_lease"`
	LeaseExpires  *time.Time      `json:"lease_expires,omitempty"`
	Vendor        *string         `json:"vendor,omitempty"`
	Model         *string         `json:"model,omitempty"`
	FirstSeen     *time.Time      `json:"first_seen,omitempty"`
	LastSeen      *time.Time      `json:"last_seen,omitempty"`
	Notes         *string         `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// EffectiveName returns the best available name for the host
func (h *Host) EffectiveName() string {
	if h.DisplayName != nil && *h.DisplayName != "" {
		return *h.DisplayName
	}
	if h.Hostname != nil && *h.Hostname != "" {
		return *h.Hostname
	}
	return h.MACAddress
}

// HostFilter holds filter criteria for listing hosts
type HostFilter struct {
	LocationID string
	Status     HostStatus
	Limit      int
	Offset     int
}

// HostUpdate carries a partial host edit. Nil fields are left untouched.
type HostUpdate struct {
	Hostname    *string   `json:"hostname,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	IPAddress   *string   `json:"ip_address,omitempty"`
	HostType    *HostType `json:"host_type,omitempty"`
	LocationID  *string   `json:"location_id,omitempty"`
	Vendor      *string   `json:"vendor,omitempty"`
	Model       *string   `json:"model,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
}

// DiscoveredHost is a single observation from a discovery source
type DiscoveredHost struct {
	MACAddress   string
	IPAddress    string
	Hostname     *string
	Source       DiscoverySource
	IsStatic     bool
	LeaseExpires *time.Time
	LocationID   *string
}

// HostStats holds aggregate host counters
type HostStats struct {
	Total         int `json:"total"`
	Online        int `json:"online"`
	Offline       int `json:"offline"`
	StaticLeases  int `json:"static_leases"`
	DynamicLeases int `json:"dynamic_leases"`
}
