package authflow

import (
	"errors"
	"sync"
	"time"
)

var ErrStateNotFound = errors.New("state not found")

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu    sync.RWMutex
	flows map[string]*Flow
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		flows: make(map[string]*Flow),
	}
}

func (r *InMemoryRepo) Upsert(state string, flow *Flow) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if flow == nil {
		return errors.New("flow cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy so callers cannot mutate it afterwards
	stored := *flow
	r.flows[state] = &stored
	return nil
}

func (r *InMemoryRepo) Get(state string) (*Flow, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	flow, exists := r.flows[state]
	if !exists {
		return nil, ErrStateNotFound
	}
	out := *flow
	return &out, nil
}

func (r *InMemoryRepo) Take(state string) (*Flow, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flow, exists := r.flows[state]
	if !exists {
		return nil, ErrStateNotFound
	}
	delete(r.flows, state)
	return flow, nil
}

func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.flows, state)
	return nil
}

func (r *InMemoryRepo) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for state, flow := range r.flows {
		if flow.CreatedAt.Before(cutoff) {
			delete(r.flows, state)
			removed++
		}
	}
	return removed
}
