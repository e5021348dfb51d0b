// Package registry holds the agents known to one simulation run.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"SettlementEngine/internal/agent"
	"SettlementEngine/internal/model"
)

var (
	// ErrDuplicateAgent is returned when an ID is registered twice.
	ErrDuplicateAgent = errors.New("agent already registered")
	// ErrNullID is returned for agents whose ID is empty.
	ErrNullID = errors.New("agent has null id")
)

// Directory is the read side the settlement engine depends on.
type Directory interface {
	Agent(id model.AgentID) (agent.Account, bool)
	FinancialAgents() []agent.Account
}

// Registry is an in-memory Directory. Agents keep registration order.
type Registry struct {
	mu    sync.RWMutex
	byID  map[model.AgentID]agent.Account
	order []model.AgentID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[model.AgentID]agent.Account)}
}

// Register adapts x onto the balance contract and stores it.
func (r *Registry) Register(x any) (agent.Account, error) {
	acct, err := agent.Adapt(x)
	if err != nil {
		return nil, fmt.Errorf("register agent: %w", err)
	}
	id := acct.ID()
	if id.IsNull() {
		return nil, fmt.Errorf("register agent: %w", ErrNullID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("register agent %s: %w", id, ErrDuplicateAgent)
	}
	r.byID[id] = acct
	r.order = append(r.order, id)
	return acct, nil
}

// Remove drops an agent, e.g. after its estate has been settled.
func (r *Registry) Remove(id model.AgentID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Agent looks up an agent by ID.
func (r *Registry) Agent(id model.AgentID) (agent.Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// FinancialAgents returns every registered agent in registration order.
func (r *Registry) FinancialAgents() []agent.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]agent.Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
