package loadbalance

import (
	"errors"
	"fmt"
	"testing"

	"async-rpc/registry"
)

var testInstances = []registry.ServiceInstance{
	{Addr: "127.0.0.1:8001", Weight: 10, Version: "1.0"},
	{Addr: "127.0.0.1:8002", Weight: 5, Version: "1.0"},
	{Addr: "127.0.0.1:8003", Weight: 10, Version: "1.0"},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobin{}

	for i := 0; i < 6; i++ {
		inst, err := b.Pick(testInstances)
		if err != nil {
			t.Fatal(err)
		}
		if want := testInstances[i%3].Addr; inst.Addr != want {
			t.Fatalf("pick %d = %s, want %s", i, inst.Addr, want)
		}
	}
}

func TestEmptyInstances(t *testing.T) {
	for _, b := range []Balancer{&RoundRobin{}, &WeightedRandom{}, NewConsistentHash("k")} {
		if _, err := b.Pick(nil); !errors.Is(err, ErrNoInstances) {
			t.Fatalf("%s: expect ErrNoInstances, got %v", b.Name(), err)
		}
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandom{}

	counts := map[string]int{}
	n := 10000
	for i := 0; i < n; i++ {
		inst, err := b.Pick(testInstances)
		if err != nil {
			t.Fatal(err)
		}
		counts[inst.Addr]++
	}

	// Weight ratio is 10:5:10, so :8001 should be ~2x of :8002.
	ratio := float64(counts["127.0.0.1:8001"]) / float64(counts["127.0.0.1:8002"])
	if ratio < 1.5 || ratio > 2.5 {
		t.Fatalf("weight ratio :8001/:8002 = %.2f, expect ~2.0", ratio)
	}
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandom{}
	instances := []registry.ServiceInstance{{Addr: "a"}, {Addr: "b", Weight: -3}}
	for i := 0; i < 100; i++ {
		if _, err := b.Pick(instances); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNew(t *testing.T) {
	if New("weighted_random", "").Name() != "WeightedRandom" {
		t.Fatal("expect WeightedRandom")
	}
	if New("consistent_hash", "k").Name() != "ConsistentHash" {
		t.Fatal("expect ConsistentHash")
	}
	if New("", "").Name() != "RoundRobin" || New("round_robin", "").Name() != "RoundRobin" {
		t.Fatal("expect RoundRobin as the default")
	}
}

func TestConsistentHashAffinity(t *testing.T) {
	b := NewConsistentHash("user-42")
	first, err := b.Pick(testInstances)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		inst, _ := b.Pick(testInstances)
		if inst.Addr != first.Addr {
			t.Fatalf("same key moved from %s to %s", first.Addr, inst.Addr)
		}
	}

	// Order of the discovered list does not matter.
	reversed := []registry.ServiceInstance{testInstances[2], testInstances[1], testInstances[0]}
	if inst, _ := b.Pick(reversed); inst.Addr != first.Addr {
		t.Fatalf("reordered list moved the key to %s", inst.Addr)
	}

	// Removing a different instance keeps the key where it was.
	var rest []registry.ServiceInstance
	for _, inst := range testInstances {
		if inst.Addr != first.Addr {
			rest = append(rest, inst)
		}
	}
	kept := []registry.ServiceInstance{*first, rest[0]}
	if inst, _ := b.Pick(kept); inst.Addr != first.Addr {
		t.Fatalf("removing %s moved the key to %s", rest[1].Addr, inst.Addr)
	}
}

func TestConsistentHashSpreadsKeys(t *testing.T) {
	counts := map[string]int{}
	for i := 0; i < 300; i++ {
		inst, err := NewConsistentHash(fmt.Sprintf("key-%d", i)).Pick(testInstances)
		if err != nil {
			t.Fatal(err)
		}
		counts[inst.Addr]++
	}
	for _, inst := range testInstances {
		if counts[inst.Addr] == 0 {
			t.Fatalf("no key landed on %s: %v", inst.Addr, counts)
		}
	}
}
