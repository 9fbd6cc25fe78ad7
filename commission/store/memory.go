// Package store provides in-memory directory implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/landmark/estate-engine/commission"
)

// =============================================================================
// MEMORY DIRECTORY - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements commission.RoleDirectory, commission.UserDirectory,
// commission.RuleSource and commission.AllocationSink over plain maps.
type Memory struct {
	mu          sync.RWMutex
	roles       map[commission.RoleID]commission.Role
	users       map[commission.UserID]commission.User
	rules       map[commission.ProjectID][]commission.CommissionRule
	allocations map[commission.SaleID][]commission.Allocation
}

func NewMemory() *Memory {
	return &Memory{
		roles:       make(map[commission.RoleID]commission.Role),
		users:       make(map[commission.UserID]commission.User),
		rules:       make(map[commission.ProjectID][]commission.CommissionRule),
		allocations: make(map[commission.SaleID][]commission.Allocation),
	}
}

// PutRole stores or replaces a role.
func (m *Memory) PutRole(role commission.Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roles[role.ID] = role
}

// PutUser stores or replaces a user.
func (m *Memory) PutUser(user commission.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// PutRule appends a rule to its project's set.
func (m *Memory) PutRule(rule commission.CommissionRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ProjectID] = append(m.rules[rule.ProjectID], rule)
}

// Role implements commission.RoleDirectory.
func (m *Memory) Role(_ context.Context, id commission.RoleID) (commission.Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	role, ok := m.roles[id]
	if !ok {
		return commission.Role{}, &commission.ReferenceNotFoundError{Kind: "role", ID: string(id)}
	}
	return role, nil
}

// User implements commission.UserDirectory.
func (m *Memory) User(_ context.Context, id commission.UserID) (commission.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return commission.User{}, &commission.ReferenceNotFoundError{Kind: "user", ID: string(id)}
	}
	return user, nil
}

// AncestorChain follows ManagerID links, immediate manager first. A broken
// link (manager id that resolves to nothing) fails with ReferenceNotFound.
func (m *Memory) AncestorChain(_ context.Context, id commission.UserID) ([]commission.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, &commission.ReferenceNotFoundError{Kind: "user", ID: string(id)}
	}

	var chain []commission.User
	seen := map[commission.UserID]bool{id: true}
	for user.HasManager() {
		next, ok := m.users[user.ManagerID]
		if !ok {
			return nil, &commission.ReferenceNotFoundError{Kind: "user", ID: string(user.ManagerID)}
		}
		if seen[next.ID] {
			break // cycle guard
		}
		seen[next.ID] = true
		chain = append(chain, next)
		user = next
	}
	return chain, nil
}

// ActiveRules implements commission.RuleSource: active rules currently in
// effect, ordered by priority.
func (m *Memory) ActiveRules(_ context.Context, projectID commission.ProjectID) ([]commission.CommissionRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var active []commission.CommissionRule
	for _, rule := range m.rules[projectID] {
		if rule.Active && rule.InEffect(now) {
			active = append(active, rule)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})
	return active, nil
}

// SaveAllocations implements commission.AllocationSink. Replaces any prior
// set for the same sale, which keeps retries idempotent.
func (m *Memory) SaveAllocations(_ context.Context, allocations []commission.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range allocations {
		m.allocations[a.SaleID] = nil
	}
	for _, a := range allocations {
		m.allocations[a.SaleID] = append(m.allocations[a.SaleID], a)
	}
	return nil
}

// AllocationsBySale returns the stored allocations for a sale.
func (m *Memory) AllocationsBySale(_ context.Context, saleID commission.SaleID) ([]commission.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]commission.Allocation, len(m.allocations[saleID]))
	copy(out, m.allocations[saleID])
	return out, nil
}
