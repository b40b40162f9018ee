package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/druroland/myriad/internal/model"
)

const hypervisorColumns = `id, name, hypervisor_type, api_url, credential_ref, node_name,
       pve_version, ssh_host, ssh_port, ssh_user, ssh_key_ref, status,
       last_sync, last_error, location_id, created_at, updated_at`

const vmColumns = `id, uuid, name, vmid, vm_type, hypervisor_id, host_id, state,
       vcpus, memory_mb, disk_gb, mac_addresses, uptime_seconds, tags,
       description, last_state_change, created_at, updated_at`

// ListHypervisors returns all hypervisors ordered by name
func (ss *SQLiteStorage) ListHypervisors() ([]model.Hypervisor, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rows, err := ss.db.Query("SELECT " + hypervisorColumns + " FROM hypervisors ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying hypervisors: %w", err)
	}
	defer rows.Close()

	var hypervisors []model.Hypervisor
	for rows.Next() {
		hv, err := scanHypervisor(rows)
		if err != nil {
			return nil, err
		}
		hypervisors = append(hypervisors, *hv)
	}

	return hypervisors, rows.Err()
}

// GetHypervisor retrieves a hypervisor by ID
func (ss *SQLiteStorage) GetHypervisor(id string) (*model.Hypervisor, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.getHypervisor(id)
}

func (ss *SQLiteStorage) getHypervisor(id string) (*model.Hypervisor, error) {
	rows, err := ss.db.Query("SELECT "+hypervisorColumns+" FROM hypervisors WHERE id = ? LIMIT 1", id)
	if err != nil {
		return nil, fmt.Errorf("querying hypervisor: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrHypervisorNotFound
	}

	return scanHypervisor(rows)
}

// EnsureHypervisor creates the hypervisor if it does not exist and
// refreshes its declared attributes if it does. A location assigned by
// the user is not overwritten.
func (ss *SQLiteStorage) EnsureHypervisor(hv *model.Hypervisor) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	existing, err := ss.getHypervisor(hv.ID)
	if err != nil && err != ErrHypervisorNotFound {
		return err
	}

	now := time.Now()

	if err == ErrHypervisorNotFound {
		hv.CreatedAt = now
		hv.UpdatedAt = now
		if hv.Status == "" {
			hv.Status = model.HypervisorUnknown
		}
		_, err := ss.db.Exec(`
			INSERT INTO hypervisors (id, name, hypervisor_type, api_url, credential_ref, node_name,
			                         pve_version, ssh_host, ssh_port, ssh_user, ssh_key_ref, status,
			                         last_sync, last_error, location_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, hv.ID, hv.Name, string(hv.Type), hv.APIURL, hv.CredentialRef, hv.NodeName,
			hv.PVEVersion, hv.SSHHost, hv.SSHPort, hv.SSHUser, hv.SSHKeyRef, string(hv.Status),
			hv.LastSync, hv.LastError, hv.LocationID, hv.CreatedAt, hv.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting hypervisor: %w", err)
		}
		return nil
	}

	locationID := existing.LocationID
	if locationID == nil {
		locationID = hv.LocationID
	}

	_, err = ss.db.Exec(`
		UPDATE hypervisors
		SET name = ?, hypervisor_type = ?, api_url = ?, credential_ref = ?, node_name = ?,
		    ssh_host = ?, ssh_port = ?, ssh_user = ?, ssh_key_ref = ?, location_id = ?, updated_at = ?
		WHERE id = ?
	`, hv.Name, string(hv.Type), hv.APIURL, hv.CredentialRef, hv.NodeName,
		hv.SSHHost, hv.SSHPort, hv.SSHUser, hv.SSHKeyRef, locationID, now, hv.ID)
	if err != nil {
		return fmt.Errorf("updating hypervisor: %w", err)
	}

	hv.Status = existing.Status
	hv.PVEVersion = existing.PVEVersion
	hv.LastSync = existing.LastSync
	hv.LastError = existing.LastError
	hv.LocationID = locationID
	hv.CreatedAt = existing.CreatedAt
	hv.UpdatedAt = now

	return nil
}

// UpdateHypervisor updates an existing hypervisor with the full row contents
func (ss *SQLiteStorage) UpdateHypervisor(hv *model.Hypervisor) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	hv.UpdatedAt = time.Now()

	result, err := ss.db.Exec(`
		UPDATE hypervisors
		SET name = ?, hypervisor_type = ?, api_url = ?, credential_ref = ?, node_name = ?,
		    pve_version = ?, ssh_host = ?, ssh_port = ?, ssh_user = ?, ssh_key_ref = ?,
		    status = ?, last_sync = ?, last_error = ?, location_id = ?, updated_at = ?
		WHERE id = ?
	`, hv.Name, string(hv.Type), hv.APIURL, hv.CredentialRef, hv.NodeName,
		hv.PVEVersion, hv.SSHHost, hv.SSHPort, hv.SSHUser, hv.SSHKeyRef,
		string(hv.Status), hv.LastSync, hv.LastError, hv.LocationID, hv.UpdatedAt, hv.ID)
	if err != nil {
		return fmt.Errorf("updating hypervisor: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrHypervisorNotFound
	}

	return nil
}

// ListVMs returns virtual machines matching the filter plus the total
// match count
func (ss *SQLiteStorage) ListVMs(filter *model.VMFilter) ([]model.VirtualMachine, int, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	where := ""
	var args []interface{}

	if filter != nil {
		var clauses []string
		if filter.HypervisorID != "" {
			clauses = append(clauses, "hypervisor_id = ?")
			args = append(args, filter.HypervisorID)
		}
		if filter.State != "" {
			clauses = append(clauses, "state = ?")
			args = append(args, string(filter.State))
		}
		if filter.Type != "" {
			clauses = append(clauses, "vm_type = ?")
			args = append(args, string(filter.Type))
		}
		for i, clause := range clauses {
			if i == 0 {
				where = " WHERE " + clause
			} else {
				where += " AND " + clause
			}
		}
	}

	var total int
	if err := ss.db.QueryRow("SELECT COUNT(*) FROM virtual_machines"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting virtual machines: %w", err)
	}

	query := "SELECT " + vmColumns + " FROM virtual_machines" + where + " ORDER BY name"
	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := ss.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying virtual machines: %w", err)
	}
	defer rows.Close()

	vms, err := scanVMs(rows)
	if err != nil {
		return nil, 0, err
	}

	return vms, total, nil
}

// GetVM retrieves a virtual machine by ID
func (ss *SQLiteStorage) GetVM(id int64) (*model.VirtualMachine, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.getVM("id = ?", id)
}

// GetVMByUUID retrieves a virtual machine by its derived UUID
func (ss *SQLiteStorage) GetVMByUUID(uuid string) (*model.VirtualMachine, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return ss.getVM("uuid = ?", uuid)
}

func (ss *SQLiteStorage) getVM(clause string, arg interface{}) (*model.VirtualMachine, error) {
	rows, err := ss.db.Query("SELECT "+vmColumns+" FROM virtual_machines WHERE "+clause+" LIMIT 1", arg)
	if err != nil {
		return nil, fmt.Errorf("querying virtual machine: %w", err)
	}
	defer rows.Close()

	vms, err := scanVMs(rows)
	if err != nil {
		return nil, err
	}
	if len(vms) == 0 {
		return nil, ErrVMNotFound
	}
	return &vms[0], nil
}

// CreateVM adds a new virtual machine
func (ss *SQLiteStorage) CreateVM(vm *model.VirtualMachine) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	now := time.Now()
	vm.CreatedAt = now
	vm.UpdatedAt = now
	if vm.State == "" {
		vm.State = model.VMStateUnknown
	}
	if vm.MACAddresses == "" {
		vm.MACAddresses = "[]"
	}

	var vmType interface{}
	if vm.Type != nil {
		vmType = string(*vm.Type)
	}

	result, err := ss.db.Exec(`
		INSERT INTO virtual_machines (uuid, name, vmid, vm_type, hypervisor_id, host_id, state,
		                              vcpus, memory_mb, disk_gb, mac_addresses, uptime_seconds, tags,
		                              description, last_state_change, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, vm.UUID, vm.Name, vm.VMID, vmType, vm.HypervisorID, vm.HostID, string(vm.State),
		vm.VCPUs, vm.MemoryMB, vm.DiskGB, vm.MACAddresses, vm.UptimeSeconds, vm.Tags,
		vm.Description, vm.LastStateChange, vm.CreatedAt, vm.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting virtual machine: %w", err)
	}

	vm.ID, err = result.LastInsertId()
	return err
}

// UpdateVM updates an existing virtual machine with the full row contents
func (ss *SQLiteStorage) UpdateVM(vm *model.VirtualMachine) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	vm.UpdatedAt = time.Now()
	if vm.MACAddresses == "" {
		vm.MACAddresses = "[]"
	}

	var vmType interface{}
	if vm.Type != nil {
		vmType = string(*vm.Type)
	}

	result, err := ss.db.Exec(`
		UPDATE virtual_machines
		SET uuid = ?, name = ?, vmid = ?, vm_type = ?, hypervisor_id = ?, host_id = ?, state = ?,
		    vcpus = ?, memory_mb = ?, disk_gb = ?, mac_addresses = ?, uptime_seconds = ?, tags = ?,
		    description = ?, last_state_change = ?, updated_at = ?
		WHERE id = ?
	`, vm.UUID, vm.Name, vm.VMID, vmType, vm.HypervisorID, vm.HostID, string(vm.State),
		vm.VCPUs, vm.MemoryMB, vm.DiskGB, vm.MACAddresses, vm.UptimeSeconds, vm.Tags,
		vm.Description, vm.LastStateChange, vm.UpdatedAt, vm.ID)
	if err != nil {
		return fmt.Errorf("updating virtual machine: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrVMNotFound
	}

	return nil
}

// DeleteVMsNotIn removes virtual machines of a hypervisor whose UUID is
// not in the given set. Snapshots are removed by the cascade. Returns the
// number of removed machines.
func (ss *SQLiteStorage) DeleteVMsNotIn(hypervisorID string, uuids []string) (int, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	query := "DELETE FROM virtual_machines WHERE hypervisor_id = ?"
	args := []interface{}{hypervisorID}

	if len(uuids) > 0 {
		placeholders := strings.Repeat("?, ", len(uuids)-1) + "?"
		query += " AND uuid NOT IN (" + placeholders + ")"
		for _, u := range uuids {
			args = append(args, u)
		}
	}

	result, err := ss.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting stale virtual machines: %w", err)
	}

	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// LinkVMHost associates a virtual machine with an inventory host, or
// clears the association when hostID is nil
func (ss *SQLiteStorage) LinkVMHost(vmID int64, hostID *int64) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	result, err := ss.db.Exec("UPDATE virtual_machines SET host_id = ?, updated_at = ? WHERE id = ?",
		hostID, time.Now(), vmID)
	if err != nil {
		return fmt.Errorf("linking virtual machine host: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrVMNotFound
	}

	return nil
}

// ReplaceVMSnapshots reconciles the stored snapshot list of a virtual
// machine with the given set, diffing by name. Known snapshots are
// updated in place, vanished ones removed. Returns the number of newly
// created snapshots.
func (ss *SQLiteStorage) ReplaceVMSnapshots(vmID int64, snapshots []model.VMSnapshot) (int, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	tx, err := ss.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := snapshotIDsByName(tx, vmID)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	created := 0
	seen := make(map[string]bool, len(snapshots))

	for _, snap := range snapshots {
		seen[snap.Name] = true

		if id, ok := existing[snap.Name]; ok {
			_, err := tx.Exec(`
				UPDATE vm_snapshots
				SET description = ?, is_current = ?, parent_name = ?, updated_at = ?
				WHERE id = ?
			`, snap.Description, snap.IsCurrent, snap.ParentName, now, id)
			if err != nil {
				return 0, fmt.Errorf("updating snapshot: %w", err)
			}
			continue
		}

		_, err := tx.Exec(`
			INSERT INTO vm_snapshots (vm_id, name, description, is_current, parent_name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, vmID, snap.Name, snap.Description, snap.IsCurrent, snap.ParentName, now, now)
		if err != nil {
			return 0, fmt.Errorf("inserting snapshot: %w", err)
		}
		created++
	}

	for name, id := range existing {
		if seen[name] {
			continue
		}
		if _, err := tx.Exec("DELETE FROM vm_snapshots WHERE id = ?", id); err != nil {
			return 0, fmt.Errorf("deleting snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

func snapshotIDsByName(tx *sql.Tx, vmID int64) (map[string]int64, error) {
	rows, err := tx.Query("SELECT id, name FROM vm_snapshots WHERE vm_id = ?", vmID)
	if err != nil {
		return nil, fmt.Errorf("querying existing snapshots: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		byName[name] = id
	}

	return byName, rows.Err()
}

// ListVMSnapshots returns the snapshots of a virtual machine
func (ss *SQLiteStorage) ListVMSnapshots(vmID int64) ([]model.VMSnapshot, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rows, err := ss.db.Query(`
		SELECT id, vm_id, name, description, is_current, parent_name, created_at, updated_at
		FROM vm_snapshots
		WHERE vm_id = ?
		ORDER BY name
	`, vmID)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.VMSnapshot
	for rows.Next() {
		var s model.VMSnapshot
		err := rows.Scan(&s.ID, &s.VMID, &s.Name, &s.Description, &s.IsCurrent,
			&s.ParentName, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

// VMStats returns aggregate virtual machine counters
func (ss *SQLiteStorage) VMStats() (*model.VMStats, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	stats := &model.VMStats{}
	err := ss.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN state = 'running' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN vm_type = 'qemu' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN vm_type = 'lxc' THEN 1 ELSE 0 END), 0)
		FROM virtual_machines
	`).Scan(&stats.Total, &stats.Running, &stats.QEMU, &stats.LXC)
	if err != nil {
		return nil, fmt.Errorf("querying virtual machine stats: %w", err)
	}

	// Anything not running counts as stopped
	stats.Stopped = stats.Total - stats.Running

	return stats, nil
}

func scanHypervisor(rows *sql.Rows) (*model.Hypervisor, error) {
	var hv model.Hypervisor
	err := rows.Scan(&hv.ID, &hv.Name, &hv.Type, &hv.APIURL, &hv.CredentialRef, &hv.NodeName,
		&hv.PVEVersion, &hv.SSHHost, &hv.SSHPort, &hv.SSHUser, &hv.SSHKeyRef, &hv.Status,
		&hv.LastSync, &hv.LastError, &hv.LocationID, &hv.CreatedAt, &hv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scanning hypervisor: %w", err)
	}
	return &hv, nil
}

func scanVMs(rows *sql.Rows) ([]model.VirtualMachine, error) {
	var vms []model.VirtualMachine

	for rows.Next() {
		var vm model.VirtualMachine
		err := rows.Scan(&vm.ID, &vm.UUID, &vm.Name, &vm.VMID, &vm.Type, &vm.HypervisorID,
			&vm.HostID, &vm.State, &vm.VCPUs, &vm.MemoryMB, &vm.DiskGB, &vm.MACAddresses,
			&vm.UptimeSeconds, &vm.Tags, &vm.Description, &vm.LastStateChange,
			&vm.CreatedAt, &vm.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning virtual machine: %w", err)
		}
		vms = append(vms, vm)
	}

	return vms, rows.Err()
}
