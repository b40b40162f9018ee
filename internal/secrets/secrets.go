// Package secrets resolves credential references of the form
// "<family>.<key>" against the loaded secrets file. Keeping credentials
// out of the main settings file lets the settings file be committed to
// version control.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/druroland/myriad/internal/config"
)

var (
	// ErrInvalidReference is returned for references that are not in
	// "<family>.<key>" form or name the wrong family
	ErrInvalidReference = errors.New("invalid credential reference")

	// ErrCredentialsNotFound is returned when the referenced entry does
	// not exist in the secrets file
	ErrCredentialsNotFound = errors.New("credentials not found")
)

// Resolver looks up credentials for integration configurations
type Resolver struct {
	secrets *config.Secrets
}

// NewResolver creates a resolver over the given secrets
func NewResolver(secrets *config.Secrets) *Resolver {
	if secrets == nil {
		secrets = &config.Secrets{}
	}
	return &Resolver{secrets: secrets}
}

// OPNsense resolves a reference like "opnsense.home" to an API key pair
func (r *Resolver) OPNsense(ref string) (config.OPNsenseCredentials, error) {
	key, err := parseRef(ref, "opnsense")
	if err != nil {
		return config.OPNsenseCredentials{}, err
	}
	creds, ok := r.secrets.OPNsense[key]
	if !ok {
		return config.OPNsenseCredentials{}, fmt.Errorf("%w: %s", ErrCredentialsNotFound, ref)
	}
	return creds, nil
}

// Proxmox resolves a reference like "proxmox.pve1" to an API token
func (r *Resolver) Proxmox(ref string) (config.ProxmoxCredentials, error) {
	key, err := parseRef(ref, "proxmox")
	if err != nil {
		return config.ProxmoxCredentials{}, err
	}
	creds, ok := r.secrets.Proxmox[key]
	if !ok {
		return config.ProxmoxCredentials{}, fmt.Errorf("%w: %s", ErrCredentialsNotFound, ref)
	}
	return creds, nil
}

// SNMP resolves a reference like "snmp.core-switch" to a community string
func (r *Resolver) SNMP(ref string) (config.SNMPCredentials, error) {
	key, err := parseRef(ref, "snmp")
	if err != nil {
		return config.SNMPCredentials{}, err
	}
	creds, ok := r.secrets.SNMP[key]
	if !ok {
		return config.SNMPCredentials{}, fmt.Errorf("%w: %s", ErrCredentialsNotFound, ref)
	}
	return creds, nil
}

func parseRef(ref, family string) (string, error) {
	parts := strings.SplitN(ref, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	if parts[0] != family {
		return "", fmt.Errorf("%w: %q is not a %s reference", ErrInvalidReference, ref, family)
	}
	return parts[1], nil
}
