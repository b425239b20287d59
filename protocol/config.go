package protocol

// DefaultMaxDepth bounds struct/collection nesting when no depth is given.
const DefaultMaxDepth = 64

// Config tunes the binary codec.
type Config struct {
	// StrictRead rejects envelopes without a version marker.
	StrictRead bool
	// StrictWrite emits the versioned envelope form.
	StrictWrite bool
	// MaxDepth is the nesting ceiling handed to Skip and value readers.
	MaxDepth int
	// MaxStringLength bounds a single string or binary. Zero means no limit
	// beyond the bytes the transport has left.
	MaxStringLength int
}

// DefaultConfig returns lenient reads and strict writes.
func DefaultConfig() *Config {
	return &Config{
		StrictRead:  false,
		StrictWrite: true,
		MaxDepth:    DefaultMaxDepth,
	}
}

// Depth returns the configured depth ceiling, falling back to DefaultMaxDepth.
func (c *Config) Depth() int {
	if c == nil || c.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return c.MaxDepth
}
