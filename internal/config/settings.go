package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// LocationSettings declares a known network location in the settings file
type LocationSettings struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	NetworkCIDR string `mapstructure:"network_cidr"`
	Description string `mapstructure:"description"`
}

// OPNsenseSettings declares an OPNsense firewall integration
type OPNsenseSettings struct {
	ID            string `mapstructure:"id"`
	Name          string `mapstructure:"name"`
	URL           string `mapstructure:"url"`
	CredentialRef string `mapstructure:"credential_ref"`
	LocationID    string `mapstructure:"location_id"`
	VerifyTLS     bool   `mapstructure:"verify_tls"`
}

// ProxmoxSettings declares a Proxmox VE hypervisor integration
type ProxmoxSettings struct {
	ID            string `mapstructure:"id"`
	Name          string `mapstructure:"name"`
	APIURL        string `mapstructure:"api_url"`
	CredentialRef string `mapstructure:"credential_ref"`
	NodeName      string `mapstructure:"node_name"`
	LocationID    string `mapstructure:"location_id"`
	VerifyTLS     bool   `mapstructure:"verify_tls"`
}

// SNMPSettings declares a switch or router queried for its ARP table
type SNMPSettings struct {
	ID            string `mapstructure:"id"`
	Name          string `mapstructure:"name"`
	Host          string `mapstructure:"host"`
	Port          uint16 `mapstructure:"port"`
	CredentialRef string `mapstructure:"credential_ref"`
	LocationID    string `mapstructure:"location_id"`
}

// IntegrationSettings groups all configured integrations by family
type IntegrationSettings struct {
	OPNsense []OPNsenseSettings `mapstructure:"opnsense"`
	Proxmox  []ProxmoxSettings  `mapstructure:"proxmox"`
	SNMP     []SNMPSettings     `mapstructure:"snmp"`
}

// Settings is the parsed settings TOML file
type Settings struct {
	Locations    []LocationSettings  `mapstructure:"locations"`
	Integrations IntegrationSettings `mapstructure:"integrations"`
}

// OPNsenseCredentials is an API key pair for an OPNsense instance
type OPNsenseCredentials struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// ProxmoxCredentials is an API token for a Proxmox VE instance
type ProxmoxCredentials struct {
	TokenID     string `mapstructure:"token_id"`
	TokenSecret string `mapstructure:"token_secret"`
}

// SNMPCredentials is a v2c community string
type SNMPCredentials struct {
	Community string `mapstructure:"community"`
}

// Secrets is the parsed secrets TOML file, keyed by credential name
// within each integration family
type Secrets struct {
	OPNsense map[string]OPNsenseCredentials `mapstructure:"opnsense"`
	Proxmox  map[string]ProxmoxCredentials  `mapstructure:"proxmox"`
	SNMP     map[string]SNMPCredentials     `mapstructure:"snmp"`
}

// LoadSettings reads the settings TOML file. A missing file yields empty
// settings so the server can run without any integrations configured.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("error reading settings file: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}

	return settings, nil
}

// LoadSecrets reads the secrets TOML file. A missing file yields empty
// secrets, integrations referencing credentials will then fail to resolve.
func LoadSecrets(path string) (*Secrets, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Secrets{}, nil
		}
		return nil, fmt.Errorf("error reading secrets file: %w", err)
	}

	secrets := &Secrets{}
	if err := v.Unmarshal(secrets); err != nil {
		return nil, fmt.Errorf("unable to decode secrets: %w", err)
	}

	return secrets, nil
}
