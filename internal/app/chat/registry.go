package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"relaychat/internal/pkg/logx"
)

// Member is a registry participant, normally a *Session.
type Member interface {
	// ID identifies the member in logs.
	ID() string

	// Deliver queues env for the member without blocking. It returns false when
	// the member cannot accept it (queue full).
	Deliver(env Envelope) bool

	// Evict tells the member it has been dropped from the registry and should close.
	Evict()
}

// Registry maps group names to the members currently joined to them.
// It is created once per process and handed to every session.
type Registry struct {
	// mu guards groups. It is never held across storage calls.
	mu sync.Mutex

	// groups maps a group name to its membership set.
	groups map[string]map[Member]struct{}

	logger zerolog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]map[Member]struct{}),
		logger: logx.Component("Registry"),
	}
}

// Join adds m to group, creating the set on first use. Joining twice is a no-op.
func (r *Registry) Join(group string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		members = make(map[Member]struct{})
		r.groups[group] = members
	}
	members[m] = struct{}{}

	r.logger.Debug().
		Str("group", group).
		Str("member_id", m.ID()).
		Int("members", len(members)).
		Msg("Member joined group.")
}

// Leave removes m from group and prunes the set once it is empty.
// Leaving a group one is not in is a no-op.
func (r *Registry) Leave(group string, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(group, m)
}

func (r *Registry) removeLocked(group string, m Member) bool {
	members, ok := r.groups[group]
	if !ok {
		return false
	}
	if _, ok := members[m]; !ok {
		return false
	}

	delete(members, m)
	if len(members) == 0 {
		delete(r.groups, group)
	}

	r.logger.Debug().
		Str("group", group).
		Str("member_id", m.ID()).
		Int("members", len(members)).
		Msg("Member left group.")
	return true
}

// Broadcast delivers env to every member of group, the sender included, and
// returns the number of members that accepted it.
//
// Delivery happens under the registry lock and Deliver never blocks, so
// envelopes broadcast to one group reach each member in broadcast order. A
// member that cannot accept the envelope is removed from the group and evicted
// in the background; other members are unaffected.
func (r *Registry) Broadcast(group string, env Envelope) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delivered := 0
	for m := range r.groups[group] {
		if m.Deliver(env) {
			delivered++
			continue
		}

		r.logger.Warn().
			Str("group", group).
			Str("member_id", m.ID()).
			Msg("Member queue full, evicting.")

		r.removeLocked(group, m)
		go m.Evict()
	}

	return delivered
}

// MemberCount returns the number of members joined to group.
func (r *Registry) MemberCount(group string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.groups[group])
}

// IsMember reports whether m is joined to group.
func (r *Registry) IsMember(group string, m Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.groups[group][m]
	return ok
}

// GroupCount returns the number of non-empty groups.
func (r *Registry) GroupCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.groups)
}

// Shutdown evicts every member and clears all groups.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	evicted := make([]Member, 0)
	for _, members := range r.groups {
		for m := range members {
			evicted = append(evicted, m)
		}
	}
	r.groups = make(map[string]map[Member]struct{})
	r.mu.Unlock()

	for _, m := range evicted {
		m.Evict()
	}

	r.logger.Info().Int("evicted", len(evicted)).Msg("Registry shutdown complete.")
}
