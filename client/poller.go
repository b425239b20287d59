package client

// readiness is the set of conditions the poller reports for one channel.
type readiness uint32

const (
	readable readiness = 1 << iota
	writable
	hangup
	failure
)

func (r readiness) has(flag readiness) bool { return r&flag != 0 }

// event is one channel's readiness from a poller wait.
type event struct {
	fd    int
	ready readiness
}

const defaultPollBatch = 64
