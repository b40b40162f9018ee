package model

import (
	"time"
)

// HostSyncResult is the outcome of one discovery sync run
type HostSyncResult struct {
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// ClusterSyncResult is the outcome of one cluster sync run.
// A failed run carries the error string and zeroed counts.
type ClusterSyncResult struct {
	HypervisorID    string    `json:"hypervisor_id"`
	VMsCreated      int       `json:"vms_created"`
	VMsUpdated      int       `json:"vms_updated"`
	VMsRemoved      int       `json:"vms_removed"`
	HostsLinked     int       `json:"hosts_linked"`
	SnapshotsSynced int       `json:"snapshots_synced"`
	Timestamp       time.Time `json:"timestamp"`
	Error           string    `json:"error,omitempty"`
}
