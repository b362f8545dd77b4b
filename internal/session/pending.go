package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pathakanu/claudia/internal/auth"
)

// Registration is a sign-up waiting for its WhatsApp verification code.
type Registration struct {
	Input     auth.SignUpInput
	ExpiresAt time.Time
}

// Pending stores registrations between the send-code and verify-code steps.
type Pending struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]Registration
	now   func() time.Time
}

// NewPending returns a store whose registrations expire after ttl.
func NewPending(ttl time.Duration) *Pending {
	return &Pending{
		ttl:   ttl,
		items: make(map[string]Registration),
		now:   time.Now,
	}
}

// Put stores in and returns the key to retrieve it.
func (p *Pending) Put(in auth.SignUpInput) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expire()
	id := uuid.NewString()
	p.items[id] = Registration{Input: in, ExpiresAt: p.now().Add(p.ttl)}
	return id
}

// Get returns the registration stored under id if it has not expired.
func (p *Pending) Get(id string) (Registration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expire()
	reg, ok := p.items[id]
	return reg, ok
}

// Pop removes and returns the registration stored under id.
func (p *Pending) Pop(id string) (Registration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expire()
	reg, ok := p.items[id]
	if ok {
		delete(p.items, id)
	}
	return reg, ok
}

func (p *Pending) expire() {
	now := p.now()
	for id, reg := range p.items {
		if now.After(reg.ExpiresAt) {
			delete(p.items, id)
		}
	}
}
