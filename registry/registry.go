// Package registry resolves service names to endpoint addresses.
package registry

import (
	"errors"
	"sort"
	"sync"
)

// ErrNoInstances is returned when a service has no registered endpoints.
var ErrNoInstances = errors.New("registry: no instances available")

// ServiceInstance is one endpoint offering a service.
type ServiceInstance struct {
	Addr    string `json:"addr"`
	Weight  int    `json:"weight"` // relative share for weighted balancing
	Version string `json:"version,omitempty"`
}

// Registry publishes and discovers service endpoints.
type Registry interface {
	Register(serviceName string, instance ServiceInstance) error
	Deregister(serviceName string, addr string) error
	Discover(serviceName string) ([]ServiceInstance, error)
	// Watch emits the full instance list after every change until the
	// registry is closed.
	Watch(serviceName string) <-chan []ServiceInstance
	Close() error
}

// StaticRegistry is an in-process Registry for fixed endpoint lists and tests.
type StaticRegistry struct {
	mu        sync.RWMutex
	instances map[string]map[string]ServiceInstance
	watchers  map[string][]chan []ServiceInstance
}

var _ Registry = (*StaticRegistry)(nil)

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		instances: make(map[string]map[string]ServiceInstance),
		watchers:  make(map[string][]chan []ServiceInstance),
	}
}

func (r *StaticRegistry) Register(serviceName string, instance ServiceInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byAddr, ok := r.instances[serviceName]
	if !ok {
		byAddr = make(map[string]ServiceInstance)
		r.instances[serviceName] = byAddr
	}
	byAddr[instance.Addr] = instance
	r.notifyLocked(serviceName)
	return nil
}

func (r *StaticRegistry) Deregister(serviceName string, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances[serviceName], addr)
	r.notifyLocked(serviceName)
	return nil
}

func (r *StaticRegistry) Discover(serviceName string) ([]ServiceInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.listLocked(serviceName)
	if len(list) == 0 {
		return nil, ErrNoInstances
	}
	return list, nil
}

func (r *StaticRegistry) Watch(serviceName string) <-chan []ServiceInstance {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan []ServiceInstance, 1)
	r.watchers[serviceName] = append(r.watchers[serviceName], ch)
	return ch
}

func (r *StaticRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, chans := range r.watchers {
		for _, ch := range chans {
			close(ch)
		}
		delete(r.watchers, name)
	}
	return nil
}

func (r *StaticRegistry) listLocked(serviceName string) []ServiceInstance {
	list := make([]ServiceInstance, 0, len(r.instances[serviceName]))
	for _, inst := range r.instances[serviceName] {
		list = append(list, inst)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Addr < list[j].Addr })
	return list
}

// notifyLocked replaces any undelivered update with the latest list.
func (r *StaticRegistry) notifyLocked(serviceName string) {
	list := r.listLocked(serviceName)
	for _, ch := range r.watchers[serviceName] {
		select {
		case <-ch:
		default:
		}
		ch <- list
	}
}
