package testutil

import (
	"fmt"
	"sync"
)

// SequentialCodes generates deterministic referral codes for tests.
//
// Codes come out as 8 lowercase hex chars ("00000001", "00000002", ...),
// matching the shape of production codes so validation passes.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequentialCodes struct {
	mu sync.Mutex
	n  int64
}

// NewSequentialCodes creates a generator starting at "00000001".
func NewSequentialCodes() *SequentialCodes {
	return &SequentialCodes{}
}

// Next returns the next code in sequence.
func (c *SequentialCodes) Next() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return fmt.Sprintf("%08x", c.n)
}
