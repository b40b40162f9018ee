package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/druroland/myriad/internal/model"
)

func setupTestServer(t *testing.T) (*httptest.Server, *mockStorage, *mockSyncer) {
	t.Helper()

	store := newMockStorage()
	syncer := &mockSyncer{}
	handler := NewHandler(store, syncer)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store, syncer
}

func doRequest(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestCreateHostNormalizesMAC(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp := doRequest(t, "POST", server.URL+"/api/hosts", map[string]string{
		"mac_address": "AA-BB-CC-DD-EE-FF",
		"hostname":    "nas",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	var host model.Host
	decodeBody(t, resp, &host)

	if host.MACAddress != "aa:bb:cc:dd:ee:ff" {
		t.Errorf("MAC not normalized: %s", host.MACAddress)
	}
	if host.ID == 0 {
		t.Error("Expected a host ID to be assigned")
	}
}

func TestCreateHostInvalidMAC(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp := doRequest(t, "POST", server.URL+"/api/hosts", map[string]string{
		"mac_address": "not-a-mac",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid MAC, got %d", resp.StatusCode)
	}
}

func TestCreateHostDuplicateMAC(t *testing.T) {
	server, _, _ := setupTestServer(t)

	first := doRequest(t, "POST", server.URL+"/api/hosts", map[string]string{
		"mac_address": "aa:bb:cc:dd:ee:ff",
	})
	first.Body.Close()
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", first.StatusCode)
	}

	// Same address in a different notation must still conflict
	second := doRequest(t, "POST", server.URL+"/api/hosts", map[string]string{
		"mac_address": "AABB.CCDD.EEFF",
	})
	defer second.Body.Close()

	if second.StatusCode != http.StatusConflict {
		t.Errorf("Expected status 409 for duplicate MAC, got %d", second.StatusCode)
	}
}

func TestGetHostNotFound(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp := doRequest(t, "GET", server.URL+"/api/hosts/999", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.StatusCode)
	}
}

func TestUpdateHostPartial(t *testing.T) {
	server, store, _ := setupTestServer(t)

	hostname := "nas"
	notes := "basement rack"
	host := &model.Host{MACAddress: "aa:bb:cc:dd:ee:ff", Hostname: &hostname, Notes: &notes}
	if err := store.CreateHost(host); err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, "PATCH", fmt.Sprintf("%s/api/hosts/%d", server.URL, host.ID), map[string]string{
		"display_name": "Storage NAS",
		"host_type":    "server",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var updated model.Host
	decodeBody(t, resp, &updated)

	if updated.DisplayName == nil || *updated.DisplayName != "Storage NAS" {
		t.Error("Display name not updated")
	}
	if updated.HostType != model.HostTypeServer {
		t.Errorf("Host type = %s, want server", updated.HostType)
	}
	if updated.Hostname == nil || *updated.Hostname != "nas" {
		t.Error("Hostname should be unchanged")
	}
	if updated.Notes == nil || *updated.Notes != "basement rack" {
		t.Error("Notes should be unchanged")
	}
}

func TestUpdateHostClearsLocation(t *testing.T) {
	server, store, _ := setupTestServer(t)

	location := "home-lan"
	host := &model.Host{MACAddress: "aa:bb:cc:dd:ee:ff", LocationID: &location}
	if err := store.CreateHost(host); err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, "PATCH", fmt.Sprintf("%s/api/hosts/%d", server.URL, host.ID), map[string]string{
		"location_id": "",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var updated model.Host
	decodeBody(t, resp, &updated)

	if updated.LocationID != nil {
		t.Errorf("Location should be cleared, got %s", *updated.LocationID)
	}
}

func TestDeleteHost(t *testing.T) {
	server, store, _ := setupTestServer(t)

	host := &model.Host{MACAddress: "aa:bb:cc:dd:ee:ff"}
	if err := store.CreateHost(host); err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, "DELETE", fmt.Sprintf("%s/api/hosts/%d", server.URL, host.ID), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, "GET", fmt.Sprintf("%s/api/hosts/%d", server.URL, host.ID), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", resp.StatusCode)
	}
}

func TestListHostsWithFilter(t *testing.T) {
	server, store, _ := setupTestServer(t)

	online := &model.Host{MACAddress: "aa:bb:cc:dd:ee:01", Status: model.HostStatusOnline}
	offline := &model.Host{MACAddress: "aa:bb:cc:dd:ee:02", Status: model.HostStatusOffline}
	for _, h := range []*model.Host{online, offline} {
		if err := store.CreateHost(h); err != nil {
			t.Fatal(err)
		}
	}

	resp := doRequest(t, "GET", server.URL+"/api/hosts?status=online", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var body struct {
		Hosts []model.Host `json:"hosts"`
		Total int          `json:"total"`
	}
	decodeBody(t, resp, &body)

	if body.Total != 1 || len(body.Hosts) != 1 {
		t.Fatalf("Expected 1 online host, got total=%d len=%d", body.Total, len(body.Hosts))
	}
	if body.Hosts[0].MACAddress != "aa:bb:cc:dd:ee:01" {
		t.Errorf("Wrong host returned: %s", body.Hosts[0].MACAddress)
	}
}

func TestHostStatsEndpoint(t *testing.T) {
	server, store, _ := setupTestServer(t)

	host := &model.Host{MACAddress: "aa:bb:cc:dd:ee:ff", Status: model.HostStatusOnline, IsStaticLease: true}
	if err := store.CreateHost(host); err != nil {
		t.Fatal(err)
	}

	resp := doRequest(t, "GET", server.URL+"/api/hosts/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var stats model.HostStats
	decodeBody(t, resp, &stats)

	if stats.Total != 1 || stats.Online != 1 || stats.StaticLeases != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
