// Package depositor keeps a two-way index of which agents bank where.
package depositor

import (
	"slices"

	"SettlementEngine/internal/model"
)

type set map[model.AgentID]struct{}

// Index maps bank -> holders and holder -> banks. Both directions are
// updated together so they never disagree.
type Index struct {
	holders map[model.AgentID]set
	banks   map[model.AgentID]set
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		holders: make(map[model.AgentID]set),
		banks:   make(map[model.AgentID]set),
	}
}

// Register links agentID as a depositor of bankID.
func (x *Index) Register(bankID, agentID model.AgentID) {
	if bankID.IsNull() || agentID.IsNull() {
		return
	}
	link(x.holders, bankID, agentID)
	link(x.banks, agentID, bankID)
}

// Deregister removes a single bank/agent link.
func (x *Index) Deregister(bankID, agentID model.AgentID) {
	unlink(x.holders, bankID, agentID)
	unlink(x.banks, agentID, bankID)
}

// Holders lists the depositors of bankID, sorted.
func (x *Index) Holders(bankID model.AgentID) []model.AgentID {
	return sorted(x.holders[bankID])
}

// HasHolder reports whether agentID banks at bankID.
func (x *Index) HasHolder(bankID, agentID model.AgentID) bool {
	_, ok := x.holders[bankID][agentID]
	return ok
}

// Banks lists the banks agentID holds deposits at, sorted.
func (x *Index) Banks(agentID model.AgentID) []model.AgentID {
	return sorted(x.banks[agentID])
}

// RemoveAgent drops every link of agentID. Cost is proportional to the
// number of banks the agent uses.
func (x *Index) RemoveAgent(agentID model.AgentID) {
	for bankID := range x.banks[agentID] {
		unlink(x.holders, bankID, agentID)
	}
	delete(x.banks, agentID)
}

func link(m map[model.AgentID]set, k, v model.AgentID) {
	s, ok := m[k]
	if !ok {
		s = make(set)
		m[k] = s
	}
	s[v] = struct{}{}
}

func unlink(m map[model.AgentID]set, k, v model.AgentID) {
	s, ok := m[k]
	if !ok {
		return
	}
	delete(s, v)
	if len(s) == 0 {
		delete(m, k)
	}
}

func sorted(s set) []model.AgentID {
	out := make([]model.AgentID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
