package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/druroland/myriad/internal/config"
	"github.com/druroland/myriad/internal/log"
	"github.com/druroland/myriad/internal/mac"
	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/storage"
	"github.com/druroland/myriad/pkg/proxmox"
)

// VMUUID derives the stable identity of a guest from its node and vmid.
// The same guest always maps to the same UUID across syncs.
func VMUUID(node string, vmid int64) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", node, vmid))).String()
}

// SyncCluster reconciles the virtual machine inventory of one configured
// hypervisor. On failure the hypervisor is marked with status error and
// the returned result carries the error string with zeroed counts.
func (e *Engine) SyncCluster(ctx context.Context, hypervisorID string) (*model.ClusterSyncResult, error) {
	var cfg *config.ProxmoxSettings
	for i := range e.settings.Integrations.Proxmox {
		if e.settings.Integrations.Proxmox[i].ID == hypervisorID {
			cfg = &e.settings.Integrations.Proxmox[i]
			break
		}
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s", ErrIntegrationNotFound, hypervisorID)
	}

	result := &model.ClusterSyncResult{HypervisorID: hypervisorID, Timestamp: time.Now()}

	cs, err := e.clusterStore()
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	hv := &model.Hypervisor{
		ID:            cfg.ID,
		Name:          cfg.Name,
		Type:          model.HypervisorProxmox,
		APIURL:        optional(cfg.APIURL),
		CredentialRef: optional(cfg.CredentialRef),
		NodeName:      optional(cfg.NodeName),
		LocationID:    optional(cfg.LocationID),
	}
	if hv.Name == "" {
		hv.Name = cfg.ID
	}
	if err := cs.EnsureHypervisor(hv); err != nil {
		result.Error = err.Error()
		return result, err
	}

	version, err := e.syncClusterVMs(ctx, cfg, cs, hv, result)
	now := time.Now()
	if err != nil {
		msg := err.Error()
		hv.Status = model.HypervisorError
		hv.LastError = &msg
		if updateErr := cs.UpdateHypervisor(hv); updateErr != nil {
			log.Error("Failed to record hypervisor error", "hypervisor", hv.ID, "error", updateErr)
		}
		*result = model.ClusterSyncResult{
			HypervisorID: hypervisorID,
			Timestamp:    result.Timestamp,
			Error:        msg,
		}
		return result, err
	}

	hv.Status = model.HypervisorOnline
	hv.LastSync = &now
	hv.LastError = nil
	if version != "" {
		hv.PVEVersion = &version
	}
	if err := cs.UpdateHypervisor(hv); err != nil {
		result.Error = err.Error()
		return result, err
	}

	log.Info("Cluster sync finished", "hypervisor", hv.ID,
		"created", result.VMsCreated, "updated", result.VMsUpdated,
		"removed", result.VMsRemoved, "linked", result.HostsLinked)
	return result, nil
}

// SyncAllClusters syncs every configured hypervisor, isolating failures
// per integration
func (e *Engine) SyncAllClusters(ctx context.Context) []model.ClusterSyncResult {
	var results []model.ClusterSyncResult

	for _, cfg := range e.settings.Integrations.Proxmox {
		result, err := e.SyncCluster(ctx, cfg.ID)
		if err != nil {
			log.Error("Cluster sync failed", "hypervisor", cfg.ID, "error", err)
		}
		results = append(results, *result)
	}

	return results
}

func (e *Engine) syncClusterVMs(ctx context.Context, cfg *config.ProxmoxSettings,
	cs storage.ClusterStorage, hv *model.Hypervisor, result *model.ClusterSyncResult) (string, error) {

	creds, err := e.resolver.Proxmox(cfg.CredentialRef)
	if err != nil {
		return "", err
	}

	client := e.newClusterClient(*cfg, creds)

	version, err := client.TestConnection(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	vms, err := client.ListVMs(ctx, cfg.NodeName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	now := time.Now()
	seen := make([]string, 0, len(vms))

	for _, guest := range vms {
		vmUUID := VMUUID(guest.Node, guest.VMID)
		seen = append(seen, vmUUID)

		macs, err := client.GetVMMACs(ctx, guest.Node, guest.Type, guest.VMID)
		if err != nil {
			log.Warn("Failed to read guest config", "hypervisor", hv.ID,
				"vmid", guest.VMID, "error", err)
			macs = nil
		}

		vm := buildVM(vmUUID, hv.ID, guest, macs)

		existing, err := cs.GetVMByUUID(vmUUID)
		switch {
		case err == storage.ErrVMNotFound:
			vm.LastStateChange = &now
			if err := cs.CreateVM(vm); err != nil {
				return "", err
			}
			result.VMsCreated++
		case err != nil:
			return "", err
		default:
			vm.ID = existing.ID
			vm.HostID = existing.HostID
			vm.Description = existing.Description
			vm.LastStateChange = existing.LastStateChange
			if existing.State != vm.State {
				vm.LastStateChange = &now
			}
			if err := cs.UpdateVM(vm); err != nil {
				return "", err
			}
			result.VMsUpdated++
		}

		linked, err := e.linkVMToHost(cs, vm, macs)
		if err != nil {
			return "", err
		}
		result.HostsLinked += linked

		snapshots, err := client.ListSnapshots(ctx, guest.Node, guest.Type, guest.VMID)
		if err != nil {
			log.Warn("Failed to list guest snapshots", "hypervisor", hv.ID,
				"vmid", guest.VMID, "error", err)
			continue
		}
		stored := make([]model.VMSnapshot, 0, len(snapshots))
		for _, snap := range snapshots {
			stored = append(stored, model.VMSnapshot{
				VMID:        vm.ID,
				Name:        snap.Name,
				Description: snap.Description,
				IsCurrent:   snap.IsCurrent,
				ParentName:  snap.Parent,
			})
		}
		snapCreated, err := cs.ReplaceVMSnapshots(vm.ID, stored)
		if err != nil {
			return "", err
		}
		result.SnapshotsSynced += snapCreated
	}

	removed, err := cs.DeleteVMsNotIn(hv.ID, seen)
	if err != nil {
		return "", err
	}
	result.VMsRemoved = removed

	return version, nil
}

// linkVMToHost associates the guest with the inventory hosts owning its
// MAC addresses. Every MAC is tried and each new association counts;
// when several match, the last one keeps the link.
func (e *Engine) linkVMToHost(cs storage.ClusterStorage, vm *model.VirtualMachine, macs []string) (int, error) {
	linked := 0
	for _, m := range macs {
		host, err := e.store.GetHostByMAC(m)
		if err == storage.ErrHostNotFound || errors.Is(err, mac.ErrInvalidFormat) {
			continue
		}
		if err != nil {
			return linked, err
		}
		if vm.HostID != nil && *vm.HostID == host.ID {
			continue
		}
		if err := cs.LinkVMHost(vm.ID, &host.ID); err != nil {
			return linked, err
		}
		vm.HostID = &host.ID
		linked++
	}
	return linked, nil
}

// buildVM converts a cluster resources entry into the stored model.
// Memory is reported in bytes and stored in MiB, disk in bytes and
// stored in GiB.
func buildVM(vmUUID, hypervisorID string, guest proxmox.VM, macs []string) *model.VirtualMachine {
	vmid := guest.VMID
	vm := &model.VirtualMachine{
		UUID:         vmUUID,
		Name:         guest.Name,
		VMID:         &vmid,
		HypervisorID: hypervisorID,
		State:        model.MapVMState(guest.Status),
		MACAddresses: model.EncodeMACList(macs),
	}

	switch guest.Type {
	case "qemu":
		t := model.VMTypeQEMU
		vm.Type = &t
	case "lxc":
		t := model.VMTypeLXC
		vm.Type = &t
	}

	if guest.MaxCPU > 0 {
		vcpus := int64(guest.MaxCPU)
		vm.VCPUs = &vcpus
	}
	if guest.MaxMem > 0 {
		memoryMB := guest.MaxMem / 1048576
		vm.MemoryMB = &memoryMB
	}
	if guest.MaxDisk > 0 {
		diskGB := float64(guest.MaxDisk) / 1073741824
		vm.DiskGB = &diskGB
	}
	if guest.Uptime > 0 {
		uptime := guest.Uptime
		vm.UptimeSeconds = &uptime
	}
	if guest.Tags != "" {
		tags := guest.Tags
		vm.Tags = &tags
	}

	return vm
}
