package relay

import (
	"fmt"
	"slices"
	"sync"
)

// PortRegistry records which server owns which port. Servers sharing a
// registry cannot be started on the same port; the registry is an ordinary
// value owned by the caller, not process-wide state.
type PortRegistry struct {
	mu     sync.Mutex
	owners map[int]string
}

// NewPortRegistry creates an empty registry.
func NewPortRegistry() *PortRegistry {
	return &PortRegistry{owners: make(map[int]string)}
}

// Acquire claims port for owner. It fails with ErrPortInUse when another
// owner holds the port.
func (r *PortRegistry) Acquire(port int, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.owners[port]; ok {
		return fmt.Errorf("%w: port %d owned by %s", ErrPortInUse, port, cur)
	}
	r.owners[port] = owner
	return nil
}

// Release frees port if owner holds it.
func (r *PortRegistry) Release(port int, owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owners[port] == owner {
		delete(r.owners, port)
	}
}

// Owner returns the owner of port.
func (r *PortRegistry) Owner(port int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[port]
	return owner, ok
}

// Ports returns the claimed ports in ascending order.
func (r *PortRegistry) Ports() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ports := make([]int, 0, len(r.owners))
	for p := range r.owners {
		ports = append(ports, p)
	}
	slices.Sort(ports)
	return ports
}
