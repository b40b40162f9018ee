// Package snmparp reads the ARP table (ipNetToMediaPhysAddress) of a
// switch or router over SNMP v2c. It backs host discovery on segments
// without a managed DHCP server.
package snmparp

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/druroland/myriad/internal/mac"
)

const (
	oidSysDescr             = "1.3.6.1.2.1.1.1.0"
	oidIPNetToMediaPhysAddr = "1.3.6.1.2.1.4.22.1.2"
	defaultTimeout          = 5 * time.Second
)

// Entry is one ARP table row
type Entry struct {
	IPAddress  string
	MACAddress string
}

// Client queries one SNMP agent
type Client struct {
	target    string
	port      uint16
	community string
}

// NewClient creates a v2c client for the given agent
func NewClient(target string, port uint16, community string) *Client {
	if port == 0 {
		port = 161
	}
	return &Client{
		target:    target,
		port:      port,
		community: community,
	}
}

func (c *Client) session() *gosnmp.GoSNMP {
	return &gosnmp.GoSNMP{
		Target:    c.target,
		Port:      c.port,
		Community: c.community,
		Version:   gosnmp.Version2c,
		Timeout:   defaultTimeout,
		Retries:   1,
	}
}

// TestConnection verifies the agent answers with its system description
func (c *Client) TestConnection() error {
	snmp := c.session()
	if err := snmp.Connect(); err != nil {
		return fmt.Errorf("connecting to %s: %w", c.target, err)
	}
	defer snmp.Conn.Close()

	result, err := snmp.Get([]string{oidSysDescr})
	if err != nil {
		return fmt.Errorf("querying sysDescr: %w", err)
	}
	if len(result.Variables) == 0 {
		return fmt.Errorf("agent %s returned no sysDescr", c.target)
	}

	return nil
}

// GetARPTable walks ipNetToMediaPhysAddress and returns the discovered
// IP to MAC mappings. Rows with malformed MAC values are skipped.
func (c *Client) GetARPTable() ([]Entry, error) {
	snmp := c.session()
	if err := snmp.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.target, err)
	}
	defer snmp.Conn.Close()

	pdus, err := snmp.BulkWalkAll(oidIPNetToMediaPhysAddr)
	if err != nil {
		return nil, fmt.Errorf("walking ARP table: %w", err)
	}

	var entries []Entry
	for _, pdu := range pdus {
		raw, ok := pdu.Value.([]byte)
		if !ok || len(raw) != 6 {
			continue
		}

		normalized, err := mac.Normalize(fmt.Sprintf("%02x%02x%02x%02x%02x%02x",
			raw[0], raw[1], raw[2], raw[3], raw[4], raw[5]))
		if err != nil {
			continue
		}

		ip, ok := ipFromOID(pdu.Name)
		if !ok {
			continue
		}

		entries = append(entries, Entry{IPAddress: ip, MACAddress: normalized})
	}

	return entries, nil
}

// ipFromOID extracts the IP address from an ipNetToMediaPhysAddress
// instance OID, whose last four components are the address octets
func ipFromOID(oid string) (string, bool) {
	parts := strings.Split(strings.Trim(oid, "."), ".")
	if len(parts) < 4 {
		return "", false
	}
	return strings.Join(parts[len(parts)-4:], "."), true
}
