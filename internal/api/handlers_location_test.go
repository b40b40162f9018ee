package api

import (
	"net/http"
	"testing"

	"github.com/druroland/myriad/internal/model"
)

func TestLocationCRUD(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp := doRequest(t, "POST", server.URL+"/api/locations", map[string]string{
		"name":         "Home LAN",
		"network_cidr": "192.168.1.0/24",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", resp.StatusCode)
	}

	var created model.Location
	decodeBody(t, resp, &created)
	if created.ID == "" {
		t.Fatal("Expected a generated location ID")
	}
	if created.NetworkCIDR == nil || *created.NetworkCIDR != "192.168.1.0/24" {
		t.Error("Network CIDR not stored")
	}

	resp = doRequest(t, "GET", server.URL+"/api/locations/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var fetched model.Location
	decodeBody(t, resp, &fetched)
	if fetched.Name != "Home LAN" {
		t.Errorf("Name = %s, want Home LAN", fetched.Name)
	}

	resp = doRequest(t, "PUT", server.URL+"/api/locations/"+created.ID, map[string]string{
		"name": "Home Network",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var updated model.Location
	decodeBody(t, resp, &updated)
	if updated.Name != "Home Network" {
		t.Errorf("Name = %s, want Home Network", updated.Name)
	}

	resp = doRequest(t, "DELETE", server.URL+"/api/locations/"+created.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", resp.StatusCode)
	}

	resp = doRequest(t, "GET", server.URL+"/api/locations/"+created.ID, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", resp.StatusCode)
	}
}

func TestCreateLocationRequiresName(t *testing.T) {
	server, _, _ := setupTestServer(t)

	resp := doRequest(t, "POST", server.URL+"/api/locations", map[string]string{
		"description": "nameless",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}
