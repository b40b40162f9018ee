package api

import (
	"time"

	"github.com/druroland/myriad/internal/model"
	"github.com/druroland/myriad/internal/storage"
)

// mockStorage is a simple in-memory storage for testing
type mockStorage struct {
	nextHostID  int64
	nextVMID    int64
	hosts       map[int64]*model.Host
	locations   map[string]*model.Location
	hypervisors map[string]*model.Hypervisor
	vms         map[int64]*model.VirtualMachine
	snapshots   map[int64][]model.VMSnapshot
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		hosts:       make(map[int64]*model.Host),
		locations:   make(map[string]*model.Location),
		hypervisors: make(map[string]*model.Hypervisor),
		vms:         make(map[int64]*model.VirtualMachine),
		snapshots:   make(map[int64][]model.VMSnapshot),
	}
}

// Host storage

func (m *mockStorage) ListHosts(filter *model.HostFilter) ([]model.Host, int, error) {
	result := make([]model.Host, 0, len(m.hosts))
	for _, h := range m.hosts {
		if filter != nil && filter.Status != "" && h.Status != filter.Status {
			continue
		}
		if filter != nil && filter.LocationID != "" {
			if h.LocationID == nil || *h.LocationID != filter.LocationID {
				continue
			}
		}
		result = append(result, *h)
	}
	return result, len(result), nil
}

func (m *mockStorage) GetHost(id int64) (*model.Host, error) {
	if h, ok := m.hosts[id]; ok {
		clone := *h
		return &clone, nil
	}
	return nil, storage.ErrHostNotFound
}

func (m *mockStorage) GetHostByMAC(mac string) (*model.Host, error) {
	for _, h := range m.hosts {
		if h.MACAddress == mac {
			clone := *h
			return &clone, nil
		}
	}
	return nil, storage.ErrHostNotFound
}

func (m *mockStorage) CreateHost(host *model.Host) error {
	for _, h := range m.hosts {
		if h.MACAddress == host.MACAddress {
			return storage.ErrDuplicateMAC
		}
	}
	m.nextHostID++
	host.ID = m.nextHostID
	if host.HostType == "" {
		host.HostType = model.HostTypeUnknown
	}
	if host.Status == "" {
		host.Status = model.HostStatusUnknown
	}
	if host.Source == "" {
		host.Source = model.SourceManual
	}
	host.CreatedAt = time.Now()
	host.UpdatedAt = host.CreatedAt
	clone := *host
	m.hosts[host.ID] = &clone
	return nil
}

func (m *mockStorage) UpdateHost(host *model.Host) error {
	if _, ok := m.hosts[host.ID]; !ok {
		return storage.ErrHostNotFound
	}
	host.UpdatedAt = time.Now()
	clone := *host
	m.hosts[host.ID] = &clone
	return nil
}

func (m *mockStorage) DeleteHost(id int64) error {
	if _, ok := m.hosts[id]; !ok {
		return storage.ErrHostNotFound
	}
	delete(m.hosts, id)
	return nil
}

func (m *mockStorage) UpsertHostFromDiscovery(discovered *model.DiscoveredHost) (bool, error) {
	if existing, err := m.GetHostByMAC(discovered.MACAddress); err == nil {
		existing.IPAddress = &discovered.IPAddress
		return false, m.UpdateHost(existing)
	}
	host := &model.Host{
		MACAddress: discovered.MACAddress,
		IPAddress:  &discovered.IPAddress,
		Hostname:   discovered.Hostname,
		Source:     discovered.Source,
		Status:     model.HostStatusOnline,
	}
	return true, m.CreateHost(host)
}

func (m *mockStorage) HostStats() (*model.HostStats, error) {
	stats := &model.HostStats{Total: len(m.hosts)}
	for _, h := range m.hosts {
		if h.Status == model.HostStatusOnline {
			stats.Online++
		}
		if h.IsStaticLease {
			stats.StaticLeases++
		} else {
			stats.DynamicLeases++
		}
	}
	stats.Offline = stats.Total - stats.Online
	return stats, nil
}

func (m *mockStorage) Close() error {
	return nil
}

// LocationStorage implementation

func (m *mockStorage) ListLocations() ([]model.Location, error) {
	result := make([]model.Location, 0, len(m.locations))
	for _, l := range m.locations {
		result = append(result, *l)
	}
	return result, nil
}

func (m *mockStorage) GetLocation(id string) (*model.Location, error) {
	if l, ok := m.locations[id]; ok {
		clone := *l
		return &clone, nil
	}
	return nil, storage.ErrLocationNotFound
}

func (m *mockStorage) CreateLocation(location *model.Location) error {
	clone := *location
	m.locations[location.ID] = &clone
	return nil
}

func (m *mockStorage) UpdateLocation(location *model.Location) error {
	if _, ok := m.locations[location.ID]; !ok {
		return storage.ErrLocationNotFound
	}
	clone := *location
	m.locations[location.ID] = &clone
	return nil
}

func (m *mockStorage) DeleteLocation(id string) error {
	if _, ok := m.locations[id]; !ok {
		return storage.ErrLocationNotFound
	}
	delete(m.locations, id)
	return nil
}

func (m *mockStorage) EnsureLocation(location *model.Location) error {
	clone := *location
	m.locations[location.ID] = &clone
	return nil
}

// ClusterStorage implementation

func (m *mockStorage) ListHypervisors() ([]model.Hypervisor, error) {
	result := make([]model.Hypervisor, 0, len(m.hypervisors))
	for _, hv := range m.hypervisors {
		result = append(result, *hv)
	}
	return result, nil
}

func (m *mockStorage) GetHypervisor(id string) (*model.Hypervisor, error) {
	if hv, ok := m.hypervisors[id]; ok {
		clone := *hv
		return &clone, nil
	}
	return nil, storage.ErrHypervisorNotFound
}

func (m *mockStorage) EnsureHypervisor(hv *model.Hypervisor) error {
	clone := *hv
	m.hypervisors[hv.ID] = &clone
	return nil
}

func (m *mockStorage) UpdateHypervisor(hv *model.Hypervisor) error {
	if _, ok := m.hypervisors[hv.ID]; !ok {
		return storage.ErrHypervisorNotFound
	}
	clone := *hv
	m.hypervisors[hv.ID] = &clone
	return nil
}

func (m *mockStorage) ListVMs(filter *model.VMFilter) ([]model.VirtualMachine, int, error) {
	result := make([]model.VirtualMachine, 0, len(m.vms))
	for _, vm := range m.vms {
		if filter != nil && filter.HypervisorID != "" && vm.HypervisorID != filter.HypervisorID {
			continue
		}
		if filter != nil && filter.State != "" && vm.State != filter.State {
			continue
		}
		result = append(result, *vm)
	}
	return result, len(result), nil
}

func (m *mockStorage) GetVM(id int64) (*model.VirtualMachine, error) {
	if vm, ok := m.vms[id]; ok {
		clone := *vm
		return &clone, nil
	}
	return nil, storage.ErrVMNotFound
}

func (m *mockStorage) GetVMByUUID(uuid string) (*model.VirtualMachine, error) {
	for _, vm := range m.vms {
		if vm.UUID == uuid {
			clone := *vm
			return &clone, nil
		}
	}
	return nil, storage.ErrVMNotFound
}

func (m *mockStorage) CreateVM(vm *model.VirtualMachine) error {
	m.nextVMID++
	vm.ID = m.nextVMID
	clone := *vm
	m.vms[vm.ID] = &clone
	return nil
}

func (m *mockStorage) UpdateVM(vm *model.VirtualMachine) error {
	if _, ok := m.vms[vm.ID]; !ok {
		return storage.ErrVMNotFound
	}
	clone := *vm
	m.vms[vm.ID] = &clone
	return nil
}

func (m *mockStorage) DeleteVMsNotIn(hypervisorID string, uuids []string) (int, error) {
	keep := make(map[string]bool, len(uuids))
	for _, u := range uuids {
		keep[u] = true
	}
	removed := 0
	for id, vm := range m.vms {
		if vm.HypervisorID == hypervisorID && !keep[vm.UUID] {
			delete(m.vms, id)
			delete(m.snapshots, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockStorage) LinkVMHost(vmID int64, hostID *int64) error {
	vm, ok := m.vms[vmID]
	if !ok {
		return storage.ErrVMNotFound
	}
	vm.HostID = hostID
	return nil
}

func (m *mockStorage) ReplaceVMSnapshots(vmID int64, snapshots []model.VMSnapshot) (int, error) {
	known := make(map[string]bool, len(m.snapshots[vmID]))
	for _, snap := range m.snapshots[vmID] {
		known[snap.Name] = true
	}
	created := 0
	for _, snap := range snapshots {
		if !known[snap.Name] {
			created++
		}
	}
	m.snapshots[vmID] = append([]model.VMSnapshot(nil), snapshots...)
	return created, nil
}

func (m *mockStorage) ListVMSnapshots(vmID int64) ([]model.VMSnapshot, error) {
	return append([]model.VMSnapshot(nil), m.snapshots[vmID]...), nil
}

func (m *mockStorage) VMStats() (*model.VMStats, error) {
	stats := &model.VMStats{Total: len(m.vms)}
	for _, vm := range m.vms {
		if vm.State == model.VMStateRunning {
			stats.Running++
		}
		if vm.Type != nil {
			switch *vm.Type {
			case model.VMTypeQEMU:
				stats.QEMU++
			case model.VMTypeLXC:
				stats.LXC++
			}
		}
	}
	stats.Stopped = stats.Total - stats.Running
	return stats, nil
}
