package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/sync"
)

// mockSyncer returns canned sync results and records the requested IDs
type mockSyncer struct {
	hostCalls    []string
	clusterCalls []string
	hostErr      error
	clusterErr   error
}

func (m *mockSyncer) SyncHosts(ctx context.Context, integrationID string) (*model.HostSyncResult, error) {
	m.hostCalls = append(m.hostCalls, integrationID)
	if m.hostErr != nil {
		return nil, m.hostErr
	}
	if integrationID != "opnsense-home" {
		return nil, fmt.Errorf("%w: %s", sync.ErrIntegrationNotFound, integrationID)
	}
	return &model.HostSyncResult{Source: "opnsense:" + integrationID, Created: 2, Timestamp: time.Now()}, nil
}

func (m *mockSyncer) SyncAllHosts(ctx context.Context) []model.HostSyncResult {
	m.hostCalls = append(m.hostCalls, "*")
	return []model.HostSyncResult{{Source: "opnsense:opnsense-home", Created: 2, Timestamp: time.Now()}}
}

func (m *mockSyncer) SyncCluster(ctx context.Context, hypervisorID string) (*model.ClusterSyncResult, error) {
	m.clusterCalls = append(m.clusterCalls, hypervisorID)
	if m.clusterErr != nil {
		return nil, m.clusterErr
	}
	if hypervisorID != "proxmox-test" {
		return nil, fmt.Errorf("%w: %s", sync.ErrIntegrationNotFound, hypervisorID)
	}
	return &model.ClusterSyncResult{HypervisorID: hypervisorID, VMsCreated: 1, Timestamp: time.Now()}, nil
}

func (m *mockSyncer) SyncAllClusters(ctx context.Context) []model.ClusterSyncResult {
	m.clusterCalls = append(m.clusterCalls, "*")
	return []model.ClusterSyncResult{{HypervisorID: "proxmox-test", VMsCreated: 1, Timestamp: time.Now()}}
}

// setupTestHandler creates a new Handler with mock storage
func setupTestHandler() *Handler {
	return NewHandler(newMockStorage(), &mockSyncer{})
}

func TestHandler_RegisterRoutes(t *testing.T) {
	handler := setupTestHandler()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	defer server.Close()

	for _, path := range []string{"/api/hosts", "/api/hosts/stats", "/api/vms", "/api/hypervisors", "/api/locations"} {
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: expected status 200, got %d", path, resp.StatusCode)
		}
	}
}
