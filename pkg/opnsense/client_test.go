package opnsense

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, leases, reservations []map[string]interface{}) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/api/core/firmware/status":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case "/api/dhcpv4/leases/searchLease":
			json.NewEncoder(w).Encode(map[string]interface{}{"rows": leases})
		case "/api/dhcpv4/reservations/searchReservation":
			json.NewEncoder(w).Encode(map[string]interface{}{"rows": reservations})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestTestConnection(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", true)
	if err := client.TestConnection(context.Background()); err != nil {
		t.Errorf("TestConnection: %v", err)
	}

	bad := NewClient(srv.URL, "key", "wrong", true)
	if err := bad.TestConnection(context.Background()); err == nil {
		t.Error("TestConnection with bad credentials should fail")
	}
}

func TestSearchLeases(t *testing.T) {
	srv := newTestServer(t, []map[string]interface{}{
		{
			"mac":      "AA:BB:CC:DD:EE:01",
			"address":  "192.168.1.10",
			"hostname": "nas",
			"ends":     "2026/09/01 10:30:00",
		},
		{
			"mac":             "aa-bb-cc-dd-ee-02",
			"address":         "192.168.1.11",
			"client-hostname": "laptop",
		},
	}, nil)
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", true)
	leases, err := client.SearchLeases(context.Background())
	if err != nil {
		t.Fatalf("SearchLeases: %v", err)
	}
	if len(leases) != 2 {
		t.Fatalf("got %d leases, want 2", len(leases))
	}

	if leases[0].MACAddress != "aa:bb:cc:dd:ee:01" {
		t.Errorf("mac = %q, want normalized form", leases[0].MACAddress)
	}
	if leases[0].Hostname == nil || *leases[0].Hostname != "nas" {
		t.Errorf("hostname = %v, want nas", leases[0].Hostname)
	}
	if leases[0].Expires == nil {
		t.Error("expires not parsed")
	}
	if leases[0].IsStatic {
		t.Error("dynamic lease marked static")
	}

	if leases[1].MACAddress != "aa:bb:cc:dd:ee:02" {
		t.Errorf("mac = %q, want normalized form", leases[1].MACAddress)
	}
	if leases[1].Hostname == nil || *leases[1].Hostname != "laptop" {
		t.Errorf("hostname should fall back to client-hostname, got %v", leases[1].Hostname)
	}
}

func TestLeasesStaticWinsOverDynamic(t *testing.T) {
	srv := newTestServer(t,
		[]map[string]interface{}{
			{"mac": "aa:bb:cc:dd:ee:01", "address": "192.168.1.10", "hostname": "dynamic-name"},
			{"mac": "aa:bb:cc:dd:ee:02", "address": "192.168.1.11"},
		},
		[]map[string]interface{}{
			{"mac": "AA:BB:CC:DD:EE:01", "ipaddr": "192.168.1.5", "hostname": "static-name"},
		})
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", true)
	leases, err := client.Leases(context.Background())
	if err != nil {
		t.Fatalf("Leases: %v", err)
	}
	if len(leases) != 2 {
		t.Fatalf("got %d leases, want 2", len(leases))
	}

	byMAC := make(map[string]Lease)
	for _, l := range leases {
		byMAC[l.MACAddress] = l
	}

	merged := byMAC["aa:bb:cc:dd:ee:01"]
	if !merged.IsStatic {
		t.Error("reservation should win over dynamic lease")
	}
	if merged.IPAddress != "192.168.1.5" {
		t.Errorf("ip = %q, want reservation address", merged.IPAddress)
	}
	if merged.Hostname == nil || *merged.Hostname != "static-name" {
		t.Errorf("hostname = %v, want static-name", merged.Hostname)
	}
}

func TestSearchLeasesSkipsInvalidMAC(t *testing.T) {
	srv := newTestServer(t, []map[string]interface{}{
		{"mac": "not-a-mac", "address": "192.168.1.10"},
		{"mac": "aa:bb:cc:dd:ee:03", "address": "192.168.1.12"},
	}, nil)
	defer srv.Close()

	client := NewClient(srv.URL, "key", "secret", true)
	leases, err := client.SearchLeases(context.Background())
	if err != nil {
		t.Fatalf("SearchLeases: %v", err)
	}
	if len(leases) != 1 {
		t.Fatalf("got %d leases, want the unparseable row dropped", len(leases))
	}
	if leases[0].MACAddress != "aa:bb:cc:dd:ee:03" {
		t.Errorf("mac = %q, want the valid row kept", leases[0].MACAddress)
	}
}
