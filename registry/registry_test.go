package registry

import (
	"errors"
	"testing"
	"time"
)

func TestStaticRegisterAndDiscover(t *testing.T) {
	reg := NewStaticRegistry()
	defer reg.Close()

	if _, err := reg.Discover("echo"); !errors.Is(err, ErrNoInstances) {
		t.Fatalf("expect ErrNoInstances for an unknown service, got %v", err)
	}

	reg.Register("echo", ServiceInstance{Addr: "127.0.0.1:8002", Weight: 5})
	reg.Register("echo", ServiceInstance{Addr: "127.0.0.1:8001", Weight: 10})
	reg.Register("echo", ServiceInstance{Addr: "127.0.0.1:8001", Weight: 20}) // replaces

	instances, err := reg.Discover("echo")
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 2 {
		t.Fatalf("expect 2 instances, got %d", len(instances))
	}
	if instances[0].Addr != "127.0.0.1:8001" || instances[0].Weight != 20 {
		t.Fatalf("instances not sorted or not replaced: %+v", instances)
	}

	reg.Deregister("echo", "127.0.0.1:8001")
	instances, _ = reg.Discover("echo")
	if len(instances) != 1 || instances[0].Addr != "127.0.0.1:8002" {
		t.Fatalf("after deregister: %+v", instances)
	}
}

func TestStaticWatch(t *testing.T) {
	reg := NewStaticRegistry()
	ch := reg.Watch("echo")

	reg.Register("echo", ServiceInstance{Addr: "a"})
	reg.Register("echo", ServiceInstance{Addr: "b"})

	// Only the latest list is kept for a slow watcher.
	select {
	case list := <-ch:
		if len(list) != 2 {
			t.Fatalf("expect the latest list of 2, got %+v", list)
		}
	case <-time.After(time.Second):
		t.Fatal("no watch update")
	}

	reg.Close()
	if _, ok := <-ch; ok {
		t.Fatal("watch channel should be closed by Close")
	}
}

// etcd tests need a running etcd on localhost:2379 and are skipped otherwise.
func newTestEtcd(t *testing.T) *EtcdRegistry {
	t.Helper()
	reg, err := NewEtcdRegistry(EtcdConfig{
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: time.Second,
		Prefix:      "/async-rpc-test/" + t.Name(),
		LeaseTTL:    5,
	})
	if err != nil {
		t.Skipf("etcd unavailable: %v", err)
	}
	if _, err := reg.Discover("probe"); err != nil && !errors.Is(err, ErrNoInstances) {
		reg.Close()
		t.Skipf("etcd unavailable: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func TestEtcdRegisterAndDiscover(t *testing.T) {
	reg := newTestEtcd(t)

	inst1 := ServiceInstance{Addr: "127.0.0.1:8001", Weight: 10, Version: "1.0"}
	inst2 := ServiceInstance{Addr: "127.0.0.1:8002", Weight: 5, Version: "1.0"}
	if err := reg.Register("echo", inst1); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("echo", inst2); err != nil {
		t.Fatal(err)
	}

	instances, err := reg.Discover("echo")
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 2 {
		t.Fatalf("expect 2 instances, got %d", len(instances))
	}

	if err := reg.Deregister("echo", inst1.Addr); err != nil {
		t.Fatal(err)
	}
	instances, err = reg.Discover("echo")
	if err != nil {
		t.Fatal(err)
	}
	if len(instances) != 1 || instances[0] != inst2 {
		t.Fatalf("expect only %s after deregister, got %+v", inst2.Addr, instances)
	}
	reg.Deregister("echo", inst2.Addr)
}

func TestEtcdWatch(t *testing.T) {
	reg := newTestEtcd(t)
	ch := reg.Watch("echo")
	time.Sleep(100 * time.Millisecond)

	if err := reg.Register("echo", ServiceInstance{Addr: "127.0.0.1:9001"}); err != nil {
		t.Fatal(err)
	}
	select {
	case list := <-ch:
		if len(list) != 1 || list[0].Addr != "127.0.0.1:9001" {
			t.Fatalf("watch delivered %+v", list)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no watch update")
	}
	reg.Deregister("echo", "127.0.0.1:9001")
}
