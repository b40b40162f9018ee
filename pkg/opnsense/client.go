// Package opnsense is a minimal client for the OPNsense REST API,
// covering the DHCPv4 lease and reservation endpoints.
package opnsense

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/mac"
)

const requestTimeout = 30 * time.Second

// leaseTimeLayout is the timestamp format used in DHCP lease rows
const leaseTimeLayout = "2006/01/02 15:04:05"

// Lease is a DHCPv4 lease or static reservation
type Lease struct {
	MACAddress string
	IPAddress  string
	Hostname   *string
	IsStatic   bool
	Expires    *time.Time
}

// Client talks to one OPNsense instance
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
}

// NewClient creates a client for the OPNsense API using key/secret
// basic authentication
func NewClient(baseURL, apiKey, apiSecret string, verifyTLS bool) *Client {
	transport := http.DefaultTransport
	if !verifyTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

// TestConnection verifies the API is reachable and the credentials work
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.get(ctx, "/api/core/firmware/status")
	return err
}

// Leases returns all DHCPv4 leases with static reservations merged in.
// When a MAC has both a reservation and a dynamic lease, the reservation
// wins.
func (c *Client) Leases(ctx context.Context) ([]Lease, error) {
	dynamic, err := c.SearchLeases(ctx)
	if err != nil {
		return nil, err
	}
	static, err := c.SearchReservations(ctx)
	if err != nil {
		return nil, err
	}

	byMAC := make(map[string]Lease, len(dynamic)+len(static))
	order := make([]string, 0, len(dynamic)+len(static))

	for _, lease := range dynamic {
		if _, seen := byMAC[lease.MACAddress]; !seen {
			order = append(order, lease.MACAddress)
		}
		byMAC[lease.MACAddress] = lease
	}
	for _, lease := range static {
		if _, seen := byMAC[lease.MACAddress]; !seen {
			order = append(order, lease.MACAddress)
		}
		byMAC[lease.MACAddress] = lease
	}

	leases := make([]Lease, 0, len(order))
	for _, m := range order {
		leases = append(leases, byMAC[m])
	}
	return leases, nil
}

// SearchLeases returns the active dynamic DHCPv4 leases
func (c *Client) SearchLeases(ctx context.Context) ([]Lease, error) {
	rows, err := c.search(ctx, "/api/dhcpv4/leases/searchLease")
	if err != nil {
		return nil, err
	}

	var leases []Lease
	for _, row := range rows {
		rawMAC := rowString(row, "mac")
		if rawMAC == "" {
			continue
		}
		normalized, err := mac.Normalize(rawMAC)
		if err != nil {
			log.Debug("Skipping lease with unparseable MAC",
				"mac", rawMAC, "address", rowString(row, "address"), "error", err)
			continue
		}

		lease := Lease{
			MACAddress: normalized,
			IPAddress:  rowString(row, "address"),
		}
		if name := rowString(row, "hostname", "client-hostname"); name != "" {
			lease.Hostname = &name
		}
		if ends := rowString(row, "ends"); ends != "" {
			if t, err := time.ParseInLocation(leaseTimeLayout, ends, time.Local); err == nil {
				lease.Expires = &t
			}
		}
		leases = append(leases, lease)
	}

	return leases, nil
}

// SearchReservations returns the static DHCPv4 reservations
func (c *Client) SearchReservations(ctx context.Context) ([]Lease, error) {
	rows, err := c.search(ctx, "/api/dhcpv4/reservations/searchReservation")
	if err != nil {
		return nil, err
	}

	var leases []Lease
	for _, row := range rows {
		rawMAC := rowString(row, "mac")
		if rawMAC == "" {
			continue
		}
		normalized, err := mac.Normalize(rawMAC)
		if err != nil {
			log.Debug("Skipping reservation with unparseable MAC",
				"mac", rawMAC, "address", rowString(row, "ipaddr"), "error", err)
			continue
		}

		lease := Lease{
			MACAddress: normalized,
			IPAddress:  rowString(row, "ipaddr"),
			IsStatic:   true,
		}
		if name := rowString(row, "hostname", "descr"); name != "" {
			lease.Hostname = &name
		}
		leases = append(leases, lease)
	}

	return leases, nil
}

type searchResponse struct {
	Rows []map[string]interface{} `json:"rows"`
}

func (c *Client) search(ctx context.Context, path string) ([]map[string]interface{}, error) {
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return resp.Rows, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)

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

// rowString returns the first present non-empty string value among keys
func rowString(row map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := row[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
