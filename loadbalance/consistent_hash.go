package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"async-rpc/registry"
)

// DefaultReplicas is the number of virtual nodes per instance on the ring.
const DefaultReplicas = 100

// ConsistentHash sends every pick with the same Key to the same instance
// while the instance set is unchanged, and moves few keys when it changes.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	                ╲   ╱
type ConsistentHash struct {
	Key      string
	Replicas int // virtual nodes per instance; zero selects DefaultReplicas

	mu    sync.Mutex
	sig   string
	ring  []uint32
	nodes map[uint32]string
}

func NewConsistentHash(key string) *ConsistentHash {
	return &ConsistentHash{Key: key, Replicas: DefaultReplicas}
}

func (b *ConsistentHash) Pick(instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	b.mu.Lock()
	b.rebuildLocked(instances)
	hash := crc32.ChecksumIEEE([]byte(b.Key))
	idx := sort.Search(len(b.ring), func(i int) bool { return b.ring[i] >= hash })
	if idx == len(b.ring) {
		idx = 0
	}
	addr := b.nodes[b.ring[idx]]
	b.mu.Unlock()

	for i := range instances {
		if instances[i].Addr == addr {
			return &instances[i], nil
		}
	}
	return nil, ErrNoInstances
}

func (b *ConsistentHash) Name() string {
	return "ConsistentHash"
}

// rebuildLocked recomputes the ring when the set of addresses changed.
func (b *ConsistentHash) rebuildLocked(instances []registry.ServiceInstance) {
	addrs := make([]string, 0, len(instances))
	for _, inst := range instances {
		addrs = append(addrs, inst.Addr)
	}
	sort.Strings(addrs)
	sig := strings.Join(addrs, ",")
	if sig == b.sig && b.ring != nil {
		return
	}

	replicas := b.Replicas
	if replicas <= 0 {
		replicas = DefaultReplicas
	}
	b.sig = sig
	b.ring = make([]uint32, 0, len(addrs)*replicas)
	b.nodes = make(map[uint32]string, len(addrs)*replicas)
	for _, addr := range addrs {
		for i := 0; i < replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", addr, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = addr
		}
	}
	sort.Slice(b.ring, func(i, j int) bool { return b.ring[i] < b.ring[j] })
}
