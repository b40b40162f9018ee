package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/paularlott/mcp"

	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/storage"
)

// Syncer is the part of the sync engine exposed through MCP tools
type Syncer interface {
	SyncHosts(ctx context.Context, integrationID string) (*model.HostSyncResult, error)
	SyncAllHosts(ctx context.Context) []model.HostSyncResult
	SyncCluster(ctx context.Context, hypervisorID string) (*model.ClusterSyncResult, error)
	SyncAllClusters(ctx context.Context) []model.ClusterSyncResult
}

// Server wraps the MCP server with inventory storage
type Server struct {
	mcpServer   *mcp.Server
	storage     storage.Storage
	syncer      Syncer
	bearerToken string
}

// NewServer creates a new MCP server for inventory management
func NewServer(storage storage.Storage, syncer Syncer, bearerToken string) *Server {
	s := &Server{
		mcpServer:   mcp.NewServer("myriad", "1.0.0"),
		storage:     storage,
		syncer:      syncer,
		bearerToken: bearerToken,
	}
	s.registerTools()
	return s
}

// registerTools registers all inventory tools
func (s *Server) registerTools() {
	// Host tools

	s.mcpServer.RegisterTool(
		mcp.NewTool("host_list", "List network hosts, optionally filtered by status or location",
			mcp.String("status", "Filter by status (online, offline, unknown)"),
			mcp.String("location", "Filter by location ID"),
		),
		s.handleHostList,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("host_get", "Get a host by ID or MAC address",
			mcp.String("id", "Host ID or MAC address", mcp.Required()),
		),
		s.handleHostGet,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("host_update", "Update editable fields of a host. Only the provided fields change.",
			mcp.String("id", "Host ID or MAC address", mcp.Required()),
			mcp.String("display_name", "Friendly display name"),
			mcp.String("host_type", "Host type (server, workstation, laptop, phone, tablet, iot, network, printer, media, gaming, appliance, unknown)"),
			mcp.String("location_id", "Location ID to assign the host to"),
			mcp.String("notes", "Free-form notes"),
		),
		s.handleHostUpdate,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("host_delete", "Delete a host from the inventory",
			mcp.String("id", "Host ID or MAC address", mcp.Required()),
		),
		s.handleHostDelete,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("host_stats", "Get aggregate host counters (total, online, offline, lease types)"),
		s.handleHostStats,
	)

	// Virtual machine tools

	s.mcpServer.RegisterTool(
		mcp.NewTool("vm_list", "List virtual machines, optionally filtered by hypervisor or state",
			mcp.String("hypervisor", "Filter by hypervisor ID"),
			mcp.String("state", "Filter by state (running, stopped, paused, suspended, unknown)"),
		),
		s.handleVMList,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("vm_get", "Get a virtual machine by numeric ID, including its snapshots",
			mcp.String("id", "Virtual machine ID", mcp.Required()),
		),
		s.handleVMGet,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("vm_stats", "Get aggregate virtual machine counters (total, running, stopped, by type)"),
		s.handleVMStats,
	)

	// Hypervisor tools

	s.mcpServer.RegisterTool(
		mcp.NewTool("hypervisor_list", "List configured hypervisors and their sync status"),
		s.handleHypervisorList,
	)

	// Location tools

	s.mcpServer.RegisterTool(
		mcp.NewTool("location_list", "List network locations"),
		s.handleLocationList,
	)

	// Sync tools

	s.mcpServer.RegisterTool(
		mcp.NewTool("sync_hosts", "Run host discovery against the configured DHCP and ARP sources",
			mcp.String("integration", "Integration ID (omit to sync all)"),
		),
		s.handleSyncHosts,
	)

	s.mcpServer.RegisterTool(
		mcp.NewTool("sync_vms", "Sync virtual machine inventory from the configured hypervisors",
			mcp.String("integration", "Hypervisor integration ID (omit to sync all)"),
		),
		s.handleSyncVMs,
	)
}

// HandleRequest handles MCP HTTP requests with optional bearer token authentication
func (s *Server) HandleRequest(w http.ResponseWriter, r *http.Request) {
	log.Debug("MCP request received", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	if s.bearerToken != "" {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			log.Warn("MCP request missing Authorization header", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Missing Authorization header", http.StatusUnauthorized)
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			log.Warn("MCP request invalid Authorization format", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid Authorization format", http.StatusUnauthorized)
			return
		}
		token := strings.TrimPrefix(auth, "Bearer ")
		if token != s.bearerToken {
			log.Warn("MCP request invalid token", "remote_addr", r.RemoteAddr)
			http.Error(w, "Unauthorized: Invalid token", http.StatusUnauthorized)
			return
		}
	}

	s.mcpServer.HandleRequest(w, r)
}

// Host tool handlers

func (s *Server) handleHostList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	status, _ := req.String("status")
	location, _ := req.String("location")

	log.Debug("MCP host list request", "status", status, "location", location)

	filter := &model.HostFilter{
		Status:     model.HostStatus(status),
		LocationID: location,
	}

	hosts, total, err := s.storage.ListHosts(filter)
	if err != nil {
		log.Error("MCP host list failed", "error", err)
		return nil, mcp.NewToolErrorInternal("failed to list hosts: " + err.Error())
	}

	if len(hosts) == 0 {
		return mcp.NewToolResponseText("No hosts found"), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d hosts:\n\n", total))
	for _, host := range hosts {
		result.WriteString(s.formatHostSummary(&host))
		result.WriteString("\n")
	}

	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleHostGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	host, err := s.findHost(id)
	if err != nil {
		log.Error("MCP host get failed", "error", err, "id", id)
		return nil, mcp.NewToolErrorInternal("host not found: " + id)
	}

	return mcp.NewToolResponseText(s.formatHostSummary(host)), nil
}

func (s *Server) handleHostUpdate(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	host, err := s.findHost(id)
	if err != nil {
		return nil, mcp.NewToolErrorInternal("host not found: " + id)
	}

	if displayName := req.StringOr("display_name", ""); displayName != "" {
		host.DisplayName = &displayName
	}
	if hostType := req.StringOr("host_type", ""); hostType != "" {
		host.HostType = model.HostType(hostType)
	}
	if locationID := req.StringOr("location_id", ""); locationID != "" {
		host.LocationID = &locationID
	}
	if notes := req.StringOr("notes", ""); notes != "" {
		host.Notes = &notes
	}

	if err := s.storage.UpdateHost(host); err != nil {
		log.Error("MCP host update failed", "error", err, "id", host.ID)
		return nil, mcp.NewToolErrorInternal("failed to update host: " + err.Error())
	}

	log.Info("MCP host updated", "id", host.ID, "name", host.EffectiveName())
	return mcp.NewToolResponseText(fmt.Sprintf("Host updated: %s (ID: %d)", host.EffectiveName(), host.ID)), nil
}

func (s *Server) handleHostDelete(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	id, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}

	host, err := s.findHost(id)
	if err != nil {
		return nil, mcp.NewToolErrorInternal("host not found: " + id)
	}

	if err := s.storage.DeleteHost(host.ID); err != nil {
		log.Error("MCP host delete failed", "error", err, "id", host.ID)
		return nil, mcp.NewToolErrorInternal("failed to delete host: " + err.Error())
	}

	log.Info("MCP host deleted", "id", host.ID)
	return mcp.NewToolResponseText("Host deleted successfully"), nil
}

func (s *Server) handleHostStats(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	stats, err := s.storage.HostStats()
	if err != nil {
		return nil, mcp.NewToolErrorInternal("failed to get host stats: " + err.Error())
	}

	return mcp.NewToolResponseText(fmt.Sprintf(
		"Hosts: %d total, %d online, %d offline\nLeases: %d static, %d dynamic",
		stats.Total, stats.Online, stats.Offline, stats.StaticLeases, stats.DynamicLeases)), nil
}

// Virtual machine tool handlers

func (s *Server) handleVMList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	cs, ok := s.storage.(storage.ClusterStorage)
	if !ok {
		return mcp.NewToolResponseText("Virtual machines are not supported by the current storage backend."), nil
	}

	hypervisor, _ := req.String("hypervisor")
	state, _ := req.String("state")

	filter := &model.VMFilter{
		HypervisorID: hypervisor,
		State:        model.VMState(state),
	}

	vms, total, err := cs.ListVMs(filter)
	if err != nil {
		log.Error("MCP VM list failed", "error", err)
		return nil, mcp.NewToolErrorInternal("failed to list virtual machines: " + err.Error())
	}

	if len(vms) == 0 {
		return mcp.NewToolResponseText("No virtual machines found"), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d virtual machines:\n\n", total))
	for _, vm := range vms {
		result.WriteString(s.formatVMSummary(&vm))
		result.WriteString("\n")
	}

	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleVMGet(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	cs, ok := s.storage.(storage.ClusterStorage)
	if !ok {
		return mcp.NewToolResponseText("Virtual machines are not supported by the current storage backend."), nil
	}

	idStr, err := req.String("id")
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id is required: " + err.Error())
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, mcp.NewToolErrorInvalidParams("id must be numeric: " + idStr)
	}

	vm, err := cs.GetVM(id)
	if err != nil {
		log.Error("MCP VM get failed", "error", err, "id", id)
		return nil, mcp.NewToolErrorInternal("virtual machine not found: " + idStr)
	}

	var result strings.Builder
	result.WriteString(s.formatVMSummary(vm))

	snapshots, err := cs.ListVMSnapshots(vm.ID)
	if err == nil && len(snapshots) > 0 {
		result.WriteString("Snapshots:\n")
		for _, snap := range snapshots {
			marker := ""
			if snap.IsCurrent {
				marker = " (current)"
			}
			result.WriteString(fmt.Sprintf("  - %s%s\n", snap.Name, marker))
		}
	}

	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleVMStats(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	cs, ok := s.storage.(storage.ClusterStorage)
	if !ok {
		return mcp.NewToolResponseText("Virtual machines are not supported by the current storage backend."), nil
	}

	stats, err := cs.VMStats()
	if err != nil {
		return nil, mcp.NewToolErrorInternal("failed to get VM stats: " + err.Error())
	}

	return mcp.NewToolResponseText(fmt.Sprintf(
		"Virtual machines: %d total, %d running, %d stopped\nTypes: %d QEMU, %d LXC",
		stats.Total, stats.Running, stats.Stopped, stats.QEMU, stats.LXC)), nil
}

// Hypervisor tool handlers

func (s *Server) handleHypervisorList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	cs, ok := s.storage.(storage.ClusterStorage)
	if !ok {
		return mcp.NewToolResponseText("Hypervisors are not supported by the current storage backend."), nil
	}

	hypervisors, err := cs.ListHypervisors()
	if err != nil {
		return nil, mcp.NewToolErrorInternal("failed to list hypervisors: " + err.Error())
	}

	if len(hypervisors) == 0 {
		return mcp.NewToolResponseText("No hypervisors found"), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d hypervisors:\n\n", len(hypervisors)))
	for _, hv := range hypervisors {
		result.WriteString(s.formatHypervisorSummary(&hv))
		result.WriteString("\n")
	}

	return mcp.NewToolResponseText(result.String()), nil
}

// Location tool handlers

func (s *Server) handleLocationList(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	ls, ok := s.storage.(storage.LocationStorage)
	if !ok {
		return mcp.NewToolResponseText("Locations are not supported by the current storage backend."), nil
	}

	locations, err := ls.ListLocations()
	if err != nil {
		return nil, mcp.NewToolErrorInternal("failed to list locations: " + err.Error())
	}

	if len(locations) == 0 {
		return mcp.NewToolResponseText("No locations found"), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Found %d locations:\n\n", len(locations)))
	for _, location := range locations {
		result.WriteString(fmt.Sprintf("Name: %s\nID: %s\n", location.Name, location.ID))
		if location.NetworkCIDR != nil {
			result.WriteString(fmt.Sprintf("Network: %s\n", *location.NetworkCIDR))
		}
		if location.Description != nil {
			result.WriteString(fmt.Sprintf("Description: %s\n", *location.Description))
		}
		result.WriteString("\n")
	}

	return mcp.NewToolResponseText(result.String()), nil
}

// Sync tool handlers

func (s *Server) handleSyncHosts(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	if s.syncer == nil {
		return mcp.NewToolResponseText("Sync is not configured"), nil
	}

	integration := req.StringOr("integration", "")
	log.Debug("MCP host sync request", "integration", integration)

	if integration != "" {
		result, err := s.syncer.SyncHosts(ctx, integration)
		if err != nil {
			log.Error("MCP host sync failed", "error", err, "integration", integration)
			return nil, mcp.NewToolErrorInternal("host sync failed: " + err.Error())
		}
		return mcp.NewToolResponseText(fmt.Sprintf(
			"Host sync finished for %s: %d created, %d updated", result.Source, result.Created, result.Updated)), nil
	}

	results := s.syncer.SyncAllHosts(ctx)
	if len(results) == 0 {
		return mcp.NewToolResponseText("No host discovery integrations configured"), nil
	}

	var result strings.Builder
	result.WriteString("Host sync finished:\n")
	for _, r := range results {
		if r.Error != "" {
			result.WriteString(fmt.Sprintf("  - %s: failed (%s)\n", r.Source, r.Error))
		} else {
			result.WriteString(fmt.Sprintf("  - %s: %d created, %d updated\n", r.Source, r.Created, r.Updated))
		}
	}

	return mcp.NewToolResponseText(result.String()), nil
}

func (s *Server) handleSyncVMs(ctx context.Context, req *mcp.ToolRequest) (*mcp.ToolResponse, error) {
	if s.syncer == nil {
		return mcp.NewToolResponseText("Sync is not configured"), nil
	}

	integration := req.StringOr("integration", "")
	log.Debug("MCP VM sync request", "integration", integration)

	if integration != "" {
		result, err := s.syncer.SyncCluster(ctx, integration)
		if err != nil {
			log.Error("MCP VM sync failed", "error", err, "integration", integration)
			return nil, mcp.NewToolErrorInternal("VM sync failed: " + err.Error())
		}
		return mcp.NewToolResponseText(fmt.Sprintf(
			"VM sync finished for %s: %d created, %d updated, %d removed, %d linked to hosts",
			result.HypervisorID, result.VMsCreated, result.VMsUpdated, result.VMsRemoved, result.HostsLinked)), nil
	}

	results := s.syncer.SyncAllClusters(ctx)
	if len(results) == 0 {
		return mcp.NewToolResponseText("No hypervisor integrations configured"), nil
	}

	var result strings.Builder
	result.WriteString("VM sync finished:\n")
	for _, r := range results {
		if r.Error != "" {
			result.WriteString(fmt.Sprintf("  - %s: failed (%s)\n", r.HypervisorID, r.Error))
		} else {
			result.WriteString(fmt.Sprintf("  - %s: %d created, %d updated, %d removed\n",
				r.HypervisorID, r.VMsCreated, r.VMsUpdated, r.VMsRemoved))
		}
	}

	return mcp.NewToolResponseText(result.String()), nil
}

// Utility functions

// findHost resolves a host by numeric ID or MAC address
func (s *Server) findHost(id string) (*model.Host, error) {
	if numericID, err := strconv.ParseInt(id, 10, 64); err == nil {
		return s.storage.GetHost(numericID)
	}
	return s.storage.GetHostByMAC(id)
}

func (s *Server) formatHostSummary(host *model.Host) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Name: %s\n", host.EffectiveName()))
	result.WriteString(fmt.Sprintf("ID: %d\n", host.ID))
	result.WriteString(fmt.Sprintf("MAC: %s\n", host.MACAddress))
	if host.IPAddress != nil {
		result.WriteString(fmt.Sprintf("IP: %s\n", *host.IPAddress))
	}
	result.WriteString(fmt.Sprintf("Type: %s\n", host.HostType))
	result.WriteString(fmt.Sprintf("Status: %s\n", host.Status))
	if host.LocationID != nil {
		if ls, ok := s.storage.(storage.LocationStorage); ok {
			if location, err := ls.GetLocation(*host.LocationID); err == nil {
				result.WriteString(fmt.Sprintf("Location: %s\n", location.Name))
			}
		}
	}
	if host.IsStaticLease {
		result.WriteString("Lease: static\n")
	}
	if host.LastSeen != nil {
		result.WriteString(fmt.Sprintf("Last seen: %s\n", host.LastSeen.Format("2006-01-02 15:04:05")))
	}
	if host.Notes != nil && *host.Notes != "" {
		result.WriteString(fmt.Sprintf("Notes: %s\n", *host.Notes))
	}
	return result.String()
}

func (s *Server) formatVMSummary(vm *model.VirtualMachine) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Name: %s\n", vm.Name))
	result.WriteString(fmt.Sprintf("ID: %d\n", vm.ID))
	if vm.VMID != nil {
		result.WriteString(fmt.Sprintf("VMID: %d\n", *vm.VMID))
	}
	if vm.Type != nil {
		result.WriteString(fmt.Sprintf("Type: %s\n", *vm.Type))
	}
	result.WriteString(fmt.Sprintf("Hypervisor: %s\n", vm.HypervisorID))
	result.WriteString(fmt.Sprintf("State: %s\n", vm.State))
	if vm.VCPUs != nil {
		result.WriteString(fmt.Sprintf("vCPUs: %d\n", *vm.VCPUs))
	}
	if vm.MemoryMB != nil {
		result.WriteString(fmt.Sprintf("Memory: %d MB\n", *vm.MemoryMB))
	}
	if vm.DiskGB != nil {
		result.WriteString(fmt.Sprintf("Disk: %.1f GB\n", *vm.DiskGB))
	}
	if macs := vm.MACList(); len(macs) > 0 {
		result.WriteString(fmt.Sprintf("MACs: %s\n", strings.Join(macs, ", ")))
	}
	return result.String()
}

func (s *Server) formatHypervisorSummary(hv *model.Hypervisor) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Name: %s\n", hv.Name))
	result.WriteString(fmt.Sprintf("ID: %s\n", hv.ID))
	result.WriteString(fmt.Sprintf("Type: %s\n", hv.Type))
	result.WriteString(fmt.Sprintf("Status: %s\n", hv.Status))
	if hv.PVEVersion != nil {
		result.WriteString(fmt.Sprintf("Version: %s\n", *hv.PVEVersion))
	}
	if hv.LastSync != nil {
		result.WriteString(fmt.Sprintf("Last sync: %s\n", hv.LastSync.Format("2006-01-02 15:04:05")))
	}
	if hv.LastError != nil {
		result.WriteString(fmt.Sprintf("Last error: %s\n", *hv.LastError))
	}
	return result.String()
}

// GetHTTPHandler returns the HTTP handler for the MCP server
func (s *Server) GetHTTPHandler() http.HandlerFunc {
	return s.HandleRequest
}

// LogStartup logs MCP server startup information
func (s *Server) LogStartup() {
	log.Info("MCP Server initialized", "version", "1.0.0")
	if s.bearerToken != "" {
		log.Info("MCP authentication enabled", "type", "Bearer token")
	} else {
		log.Info("MCP authentication disabled")
	}
	tools := s.mcpServer.ListTools()
	log.Info("MCP tools registered", "count", len(tools))
	for _, tool := range tools {
		log.Debug("MCP tool registered", "name", tool.Name, "description", tool.Description)
	}
}
