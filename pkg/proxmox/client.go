// Package proxmox is a minimal client for the Proxmox VE API using API
// token authentication. It covers cluster resources, guest configuration
// and snapshot listings.
package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/druroland/myriad/internal/mac"
)

const requestTimeout = 30 * time.Second

// VM is a guest entry from the cluster resources endpoint
type VM struct {
	VMID     int64   `json:"vmid"`
	Name     string  `json:"name"`
	Node     string  `json:"node"`
	Type     string  `json:"type"` // "qemu" or "lxc"
	Status   string  `json:"status"`
	MaxCPU   float64 `json:"maxcpu"`
	MaxMem   int64   `json:"maxmem"`
	MaxDisk  int64   `json:"maxdisk"`
	Uptime   int64   `json:"uptime"`
	Template int     `json:"template"`
	Tags     string  `json:"tags"`
}

// Snapshot is a guest snapshot
type Snapshot struct {
	Name        string
	Description *string
	Parent      *string
	IsCurrent   bool
}

// Client talks to one Proxmox VE API endpoint
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client using API token authentication. tokenID is
// the full token identifier, e.g. "root@pam!myriad".
func NewClient(apiURL, tokenID, tokenSecret string, verifyTLS bool) *Client {
	transport := http.DefaultTransport
	if !verifyTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL: strings.TrimRight(apiURL, "/") + "/api2/json",
		token:   fmt.Sprintf("PVEAPIToken=%s=%s", tokenID, tokenSecret),
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

// TestConnection verifies the API is reachable and returns the PVE version
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/version")
	if err != nil {
		return "", err
	}

	var resp struct {
		Data struct {
			Version string `json:"version"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding version response: %w", err)
	}

	return resp.Data.Version, nil
}

// ListVMs returns all guests known to the cluster. Templates are
// excluded. When node is non-empty only guests on that node are returned.
func (c *Client) ListVMs(ctx context.Context, node string) ([]VM, error) {
	body, err := c.get(ctx, "/cluster/resources?type=vm")
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []VM `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding cluster resources: %w", err)
	}

	var vms []VM
	for _, vm := range resp.Data {
		if vm.Template == 1 {
			continue
		}
		if node != "" && vm.Node != node {
			continue
		}
		vms = append(vms, vm)
	}

	return vms, nil
}

// GetVMMACs returns the canonical MAC addresses of a guest's network
// interfaces, read from its configuration
func (c *Client) GetVMMACs(ctx context.Context, node, vmType string, vmid int64) ([]string, error) {
	body, err := c.get(ctx, fmt.Sprintf("/nodes/%s/%s/%d/config", node, vmType, vmid))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding guest config: %w", err)
	}

	var macs []string
	for key, value := range resp.Data {
		if !strings.HasPrefix(key, "net") {
			continue
		}
		raw, ok := value.(string)
		if !ok {
			continue
		}
		if m, ok := parseNetMAC(raw); ok {
			macs = append(macs, m)
		}
	}

	return macs, nil
}

// ListSnapshots returns a guest's snapshots. The synthetic "current"
// entry is dropped, its parent marks the snapshot the guest runs on.
func (c *Client) ListSnapshots(ctx context.Context, node, vmType string, vmid int64) ([]Snapshot, error) {
	body, err := c.get(ctx, fmt.Sprintf("/nodes/%s/%s/%d/snapshot", node, vmType, vmid))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Parent      string `json:"parent"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding snapshots: %w", err)
	}

	currentParent := ""
	for _, entry := range resp.Data {
		if entry.Name == "current" {
			currentParent = entry.Parent
		}
	}

	var snapshots []Snapshot
	for _, entry := range resp.Data {
		if entry.Name == "current" {
			continue
		}
		snap := Snapshot{
			Name:      entry.Name,
			IsCurrent: entry.Name == currentParent,
		}
		if entry.Description != "" {
			desc := entry.Description
			snap.Description = &desc
		}
		if entry.Parent != "" {
			parent := entry.Parent
			snap.Parent = &parent
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// parseNetMAC extracts the MAC address from a netX configuration value.
// LXC interfaces carry "hwaddr=", QEMU interfaces either "macaddr=" or
// the model pair itself, e.g. "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0".
func parseNetMAC(value string) (string, bool) {
	pairs := strings.Split(value, ",")

	for _, pair := range pairs {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		if key == "hwaddr" || key == "macaddr" {
			if m, err := mac.Normalize(kv[1]); err == nil {
				return m, true
			}
		}
	}

	// Fall back to the first pair, whose value is the MAC for QEMU
	// model=MAC notation
	kv := strings.SplitN(pairs[0], "=", 2)
	if len(kv) == 2 && len(strings.TrimSpace(kv[1])) == 17 {
		if m, err := mac.Normalize(kv[1]); err == nil {
			return m, true
		}
	}

	return "", false
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	return body, nil
}
