package domain

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
)

type Member struct {
	ConnectionID string `json:"userId"`
	Username     string `json:"username"`
}

type RoomSummary struct {
	RoomID string   `json:"roomId"`
	Users  []Member `json:"users"`
}

type UsernameResolver interface {
	Username(connectionID string) (string, bool)
}

// RoomRegistry maps room IDs to their members in join order. Every read or
// write of a room's member list happens inside Do, which holds that room's
// mutex; distinct rooms never contend with each other.
type RoomRegistry struct {
	mu     sync.Mutex
	rooms  map[string]*roomImpl
	names  UsernameResolver
	logger *slog.Logger
}

type roomImpl struct {
	mu      sync.Mutex
	members []string
	// refs counts goroutines holding or waiting for mu; guarded by RoomRegistry.mu.
	refs int
}

func NewRoomRegistry(names UsernameResolver, logger *slog.Logger) *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]*roomImpl),
		names:  names,
		logger: logger,
	}
}

// RoomTx gives access to the rooms locked by a single Do call.
type RoomTx struct {
	registry *RoomRegistry
	rooms    map[string]*roomImpl
}

// Do runs fn while holding the critical section of every listed room. Rooms are
// locked in lexical order so overlapping calls cannot deadlock.
func (r *RoomRegistry) Do(fn func(tx *RoomTx), roomIDs ...string) {
	ids := slices.Clone(roomIDs)
	sort.Strings(ids)
	ids = slices.Compact(ids)

	locked := make(map[string]*roomImpl, len(ids))
	r.mu.Lock()
	for _, id := range ids {
		room, exists := r.rooms[id]
		if !exists {
			room = &roomImpl{}
			r.rooms[id] = room
		}
		room.refs++
		locked[id] = room
	}
	r.mu.Unlock()

	for _, id := range ids {
		locked[id].mu.Lock()
	}
	defer r.release(ids, locked)

	fn(&RoomTx{registry: r, rooms: locked})
}

func (r *RoomRegistry) release(ids []string, locked map[string]*roomImpl) {
	for i := len(ids) - 1; i >= 0; i-- {
		locked[ids[i]].mu.Unlock()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		room := locked[id]
		room.refs--
		if room.refs == 0 && len(room.members) == 0 {
			delete(r.rooms, id)
		}
	}
}

func (tx *RoomTx) room(roomID string) *roomImpl {
	room, ok := tx.rooms[roomID]
	if !ok {
		panic("domain: room " + roomID + " is not locked by this transaction")
	}
	return room
}

// AddMember appends connectionID to the room unless it is already a member.
func (tx *RoomTx) AddMember(roomID, connectionID string) bool {
	room := tx.room(roomID)
	if slices.Contains(room.members, connectionID) {
		return false
	}
	room.members = append(room.members, connectionID)
	return true
}

func (tx *RoomTx) RemoveMember(roomID, connectionID string) bool {
	room := tx.room(roomID)
	i := slices.Index(room.members, connectionID)
	if i < 0 {
		return false
	}
	room.members = slices.Delete(room.members, i, i+1)
	return true
}

func (tx *RoomTx) Contains(roomID, connectionID string) bool {
	return slices.Contains(tx.room(roomID).members, connectionID)
}

// ListMembers resolves every member's username at read time. A member without a
// session should not exist; it is logged, left out and dropped from the room.
func (tx *RoomTx) ListMembers(roomID string) []Member {
	room := tx.room(roomID)
	out := make([]Member, 0, len(room.members))
	kept := room.members[:0]
	for _, connectionID := range room.members {
		username, ok := tx.registry.names.Username(connectionID)
		if !ok {
			tx.registry.logger.Error("room member without session",
				"room", roomID, "connection", connectionID)
			continue
		}
		kept = append(kept, connectionID)
		out = append(out, Member{ConnectionID: connectionID, Username: username})
	}
	clear(room.members[len(kept):])
	room.members = kept
	return out
}

func (r *RoomRegistry) ListMembers(roomID string) []Member {
	var members []Member
	r.Do(func(tx *RoomTx) {
		members = tx.ListMembers(roomID)
	}, roomID)
	return members
}

// Snapshot lists every room that currently has members, ordered by room ID.
// Each room is read in its own critical section.
func (r *RoomRegistry) Snapshot() []RoomSummary {
	r.mu.Lock()
	ids := make([]string, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Strings(ids)

	out := make([]RoomSummary, 0, len(ids))
	for _, id := range ids {
		members := r.ListMembers(id)
		if len(members) == 0 {
			continue
		}
		out = append(out, RoomSummary{RoomID: id, Users: members})
	}
	return out
}

func (r *RoomRegistry) Len() int {
	return len(r.Snapshot())
}
