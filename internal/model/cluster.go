package model

import (
	"encoding/json"
	"time"
)

// HypervisorType identifies how a hypervisor is managed
type HypervisorType string

const (
	HypervisorProxmox HypervisorType = "proxmox"
	HypervisorLibvirt HypervisorType = "libvirt" // legacy SSH-managed hosts
)

// HypervisorStatus is the outcome of the most recent sync attempt
type HypervisorStatus string

const (
	HypervisorOnline  HypervisorStatus = "online"
	HypervisorOffline HypervisorStatus = "offline"
	HypervisorError   HypervisorStatus = "error"
	HypervisorUnknown HypervisorStatus = "unknown"
)

// VMType distinguishes full virtualization from containers
type VMType string

const (
	VMTypeQEMU VMType = "qemu"
	VMTypeLXC  VMType = "lxc"
)

// VMState is a virtual machine power state
type VMState string

const (
	VMStateRunning   VMState = "running"
	VMStatePaused    VMState = "paused"
	VMStateShutdown  VMState = "shutdown"
	VMStateShutoff   VMState = "shutoff"
	VMStateStopped   VMState = "stopped"
	VMStateCrashed   VMState = "crashed"
	VMStateSuspended VMState = "suspended"
	VMStateUnknown   VMState = "unknown"
)

// MapVMState maps a status string reported by a cluster API onto a VMState.
// Unrecognized values map to unknown; matching is case-insensitive.
func MapVMState(status string) VMState {
	switch VMState(normalizeLower(status)) {
	case VMStateRunning:
		return VMStateRunning
	case VMStateStopped:
		return VMStateStopped
	case VMStatePaused:
		return VMStatePaused
	case VMStateSuspended:
		return VMStateSuspended
	default:
		return VMStateUnknown
	}
}

// Hypervisor is a virtualization host tracked per integration.
// The ID is the stable integration identifier from configuration.
type Hypervisor struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Type          HypervisorType   `json:"hypervisor_type"`
	APIURL        *string          `json:"api_url,omitempty"`
	CredentialRef *string          `json:"credential_ref,omitempty"`
	NodeName      *string          `json:"node_name,omitempty"`
	PVEVersion    *string          `json:"pve_version,omitempty"`
	SSHHost       *string          `json:"ssh_host,omitempty"`
	SSHPort       *int64           `json:"ssh_port,omitempty"`
	SSHUser       *string          `json:"ssh_user,omitempty"`
	SSHKeyRef     *string          `json:"ssh_key_ref,omitempty"`
	Status        HypervisorStatus `json:"status"`
	LastSync      *time.Time       `json:"last_sync,omitempty"`
	LastError     *string          `json:"last_error,omitempty"`
	LocationID    *string          `json:"location_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// VirtualMachine is a VM or container owned by a Hypervisor.
// The uuid is derived deterministically from (node, vmid) and is the
// natural key used by sync upserts.
type VirtualMachine struct {
	ID              int64      `json:"id"`
	UUID            string     `json:"uuid"`
	Name            string     `json:"name"`
	VMID            *int64     `json:"vmid,omitempty"`
	Type            *VMType    `json:"vm_type,omitempty"`
	HypervisorID    string     `json:"hypervisor_id"`
	HostID          *int64     `json:"host_id,omitempty"`
	State           VMState    `json:"state"`
	VCPUs           *int64     `json:"vcpus,omitempty"`
	MemoryMB        *int64     `json:"memory_mb,omitempty"`
	DiskGB          *float64   `json:"disk_gb,omitempty"`
	MACAddresses    string     `json:"mac_addresses,omitempty"` // JSON array
	UptimeSeconds   *int64     `json:"uptime_seconds,omitempty"`
	Tags            *string    `json:"tags,omitempty"`
	LastStateChange *time.Time `json:"last_state_change,omitempty"`
	Description     *string    `json:"description,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// MACList decodes the serialized MAC address list
func (vm *VirtualMachine) MACList() []string {
	if vm.MACAddresses == "" {
		return nil
	}
	var macs []string
	if err := json.Unmarshal([]byte(vm.MACAddresses), &macs); err != nil {
		return nil
	}
	return macs
}

// EncodeMACList serializes a MAC address list for storage
func EncodeMACList(macs []string) string {
	if len(macs) == 0 {
		return "[]"
	}
	data, err := json.Marshal(macs)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// VMSnapshot is a point-in-time snapshot of a virtual machine
type VMSnapshot struct {
	ID          int64     `json:"id"`
	VMID        int64     `json:"vm_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	IsCurrent   bool      `json:"is_current"`
	ParentName  *string   `json:"parent_snapshot_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VMFilter holds filter criteria for listing virtual machines
type VMFilter struct {
	HypervisorID string
	State        VMState
	Type         VMType
	Limit        int
	Offset       int
}

// VMStats holds aggregate VM counters
type VMStats struct {
	Total   int `json:"total"`
	Running int `json:"running"`
	Stopped int `json:"stopped"`
	QEMU    int `json:"qemu"`
	LXC     int `json:"lxc"`
}
