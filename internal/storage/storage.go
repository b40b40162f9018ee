package storage

import (
	"errors"

	"github.com/druroland/myriad/internal/model"
)

var (
	ErrHostNotFound       = errors.New("host not found")
	ErrDuplicateMAC       = errors.New("host with this MAC address already exists")
	ErrLocationNotFound   = errors.New("location not found")
	ErrHypervisorNotFound = errors.New("hypervisor not found")
	ErrVMNotFound         = errors.New("virtual machine not found")
)

// Storage defines the interface for host inventory storage
type Storage interface {
	ListHosts(filter *model.HostFilter) ([]model.Host, int, error)
	GetHost(id int64) (*model.Host, error)
	GetHostByMAC(mac string) (*model.Host, error)
	CreateHost(host *model.Host) error
	UpdateHost(host *model.Host) error
	DeleteHost(id int64) error
	UpsertHostFromDiscovery(discovered *model.DiscoveredHost) (bool, error)
	HostStats() (*model.HostStats, error)
	Close() error
}

// LocationStorage is implemented by backends that track locations
type LocationStorage interface {
	ListLocations() ([]model.Location, error)
	GetLocation(id string) (*model.Location, error)
	CreateLocation(location *model.Location) error
	UpdateLocation(location *model.Location) error
	DeleteLocation(id string) error
	EnsureLocation(location *model.Location) error
}

// ClusterStorage is implemented by backends that track hypervisors,
// virtual machines and their snapshots
type ClusterStorage interface {
	ListHypervisors() ([]model.Hypervisor, error)
	GetHypervisor(id string) (*model.Hypervisor, error)
	EnsureHypervisor(hv *model.Hypervisor) error
	UpdateHypervisor(hv *model.Hypervisor) error

	ListVMs(filter *model.VMFilter) ([]model.VirtualMachine, int, error)
	GetVM(id int64) (*model.VirtualMachine, error)
	GetVMByUUID(uuid string) (*model.VirtualMachine, error)
	CreateVM(vm *model.VirtualMachine) error
	UpdateVM(vm *model.VirtualMachine) error
	DeleteVMsNotIn(hypervisorID string, uuids []string) (int, error)
	LinkVMHost(vmID int64, hostID *int64) error

	ReplaceVMSnapshots(vmID int64, snapshots []model.VMSnapshot) (int, error)
	ListVMSnapshots(vmID int64) ([]model.VMSnapshot, error)
	VMStats() (*model.VMStats, error)
}

// NewStorage creates the SQLite-backed storage in the given data directory
func NewStorage(dataDir string) (Storage, error) {
	return NewSQLiteStorage(dataDir)
}
