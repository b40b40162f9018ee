package model

import (
	"strings"
	"time"
)

// Location is a network segment or site (e.g. home-lan, vps-frankfurt)
type Location struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NetworkCIDR *string   `json:"network_cidr,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func normalizeLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
