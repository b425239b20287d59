// Package loadbalance picks which endpoint a new client handle connects to.
//
//   - RoundRobin:     equal-capacity endpoints
//   - WeightedRandom: endpoints of different capacity, by ServiceInstance.Weight
//   - ConsistentHash: affinity, the same key always lands on the same endpoint
package loadbalance

import (
	"errors"

	"async-rpc/registry"
)

// ErrNoInstances is returned when there is nothing to pick from.
var ErrNoInstances = errors.New("loadbalance: no instances available")

// Balancer selects one instance. Implementations are goroutine-safe.
type Balancer interface {
	Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error)
	Name() string
}

// New returns the balancer registered under name, defaulting to round robin.
// key is only used by consistent hashing.
func New(name, key string) Balancer {
	switch name {
	case "weighted", "weighted_random", "WeightedRandom":
		return &WeightedRandom{}
	case "consistent_hash", "ConsistentHash":
		return NewConsistentHash(key)
	}
	return &RoundRobin{}
}
