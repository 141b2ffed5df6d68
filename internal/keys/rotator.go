// Package keys hands out API credentials from a fixed pool in round-robin order.
package keys

import (
	"errors"
	"sync/atomic"
)

// ErrNoCredentials is returned when a pool holds no credentials at all.
var ErrNoCredentials = errors.New("no API credentials configured")

// Credential is one API key plus a human-readable label. The label is what
// gets logged; the key never is.
type Credential struct {
	Key   string
	Label string
}

// Rotator yields the next credential to use for an outbound call.
type Rotator interface {
	Acquire() (Credential, error)
}

// Pool is an immutable set of credentials cycled in insertion order.
// It is safe for concurrent use.
type Pool struct {
	creds []Credential
	next  atomic.Uint64
}

// NewPool copies creds into a new pool. Entries with an empty key are dropped.
func NewPool(creds []Credential) *Pool {
	kept := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if c.Key == "" {
			continue
		}
		kept = append(kept, c)
	}
	return &Pool{creds: kept}
}

// Acquire returns credential i mod N for the i-th call (0-based).
func (p *Pool) Acquire() (Credential, error) {
	if len(p.creds) == 0 {
		return Credential{}, ErrNoCredentials
	}
	i := p.next.Add(1) - 1
	return p.creds[i%uint64(len(p.creds))], nil
}

// Len reports the number of credentials in the pool.
func (p *Pool) Len() int {
	return len(p.creds)
}

// Labels returns the labels of all credentials in rotation order.
func (p *Pool) Labels() []string {
	labels := make([]string, len(p.creds))
	for i, c := range p.creds {
		labels[i] = c.Label
	}
	return labels
}
