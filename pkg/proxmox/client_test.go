package proxmox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseNetMAC(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
		ok    bool
	}{
		{"lxc hwaddr", "name=eth0,bridge=vmbr0,hwaddr=AA:BB:CC:DD:EE:FF,ip=dhcp", "aa:bb:cc:dd:ee:ff", true},
		{"qemu macaddr", "e1000,macaddr=AA:BB:CC:DD:EE:01,bridge=vmbr0", "aa:bb:cc:dd:ee:01", true},
		{"qemu model pair", "virtio=AA:BB:CC:DD:EE:02,bridge=vmbr0,firewall=1", "aa:bb:cc:dd:ee:02", true},
		{"no mac", "bridge=vmbr0,firewall=1", "", false},
		{"model value not a mac", "virtio=something,bridge=vmbr0", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseNetMAC(tt.value)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseNetMAC(%q) = %q, %v, want %q, %v", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "PVEAPIToken=root@pam!myriad=secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/api2/json/version":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]string{"version": "8.2.4"},
			})
		case "/api2/json/cluster/resources":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"vmid": 100, "name": "web", "node": "pve1", "type": "qemu", "status": "running",
						"maxcpu": 2, "maxmem": 2147483648, "maxdisk": 34359738368, "uptime": 3600},
					{"vmid": 101, "name": "tmpl", "node": "pve1", "type": "qemu", "status": "stopped", "template": 1},
					{"vmid": 200, "name": "ct", "node": "pve2", "type": "lxc", "status": "stopped"},
				},
			})
		case "/api2/json/nodes/pve1/qemu/100/config":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"net0":  "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0",
					"cores": 2,
				},
			})
		case "/api2/json/nodes/pve1/qemu/100/snapshot":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"name": "before-upgrade", "description": "pre upgrade"},
					{"name": "nightly", "parent": "before-upgrade"},
					{"name": "current", "parent": "nightly"},
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTestConnection(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, "root@pam!myriad", "secret", true)
	version, err := client.TestConnection(context.Background())
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if version != "8.2.4" {
		t.Errorf("version = %q, want 8.2.4", version)
	}

	bad := NewClient(srv.URL, "root@pam!myriad", "wrong", true)
	if _, err := bad.TestConnection(context.Background()); err == nil {
		t.Error("TestConnection with bad token should fail")
	}
}

func TestListVMsSkipsTemplatesAndFiltersNode(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, "root@pam!myriad", "secret", true)

	all, err := client.ListVMs(context.Background(), "")
	if err != nil {
		t.Fatalf("ListVMs: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d VMs, want 2 (template excluded)", len(all))
	}

	node1, err := client.ListVMs(context.Background(), "pve1")
	if err != nil {
		t.Fatalf("ListVMs(pve1): %v", err)
	}
	if len(node1) != 1 || node1[0].VMID != 100 {
		t.Errorf("ListVMs(pve1) = %+v, want only vmid 100", node1)
	}
	if node1[0].MaxMem != 2147483648 {
		t.Errorf("maxmem = %d", node1[0].MaxMem)
	}
}

func TestGetVMMACs(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, "root@pam!myriad", "secret", true)
	macs, err := client.GetVMMACs(context.Background(), "pve1", "qemu", 100)
	if err != nil {
		t.Fatalf("GetVMMACs: %v", err)
	}
	if len(macs) != 1 || macs[0] != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("macs = %v", macs)
	}
}

func TestListSnapshots(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	client := NewClient(srv.URL, "root@pam!myriad", "secret", true)
	snapshots, err := client.ListSnapshots(context.Background(), "pve1", "qemu", 100)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2 (current excluded)", len(snapshots))
	}

	byName := make(map[string]Snapshot)
	for _, s := range snapshots {
		byName[s.Name] = s
	}

	if !byName["nightly"].IsCurrent {
		t.Error("nightly should be marked current")
	}
	if byName["before-upgrade"].IsCurrent {
		t.Error("before-upgrade should not be current")
	}
	if byName["before-upgrade"].Description == nil || *byName["before-upgrade"].Description != "pre upgrade" {
		t.Errorf("description = %v", byName["before-upgrade"].Description)
	}
	if byName["nightly"].Parent == nil || *byName["nightly"].Parent != "before-upgrade" {
		t.Errorf("parent = %v", byName["nightly"].Parent)
	}
}
