// Package state keeps the per-principal pending action of multi-step dialogs.
package state

import "sync"

// Action is the pending step of a dialog. A nil Action means none.
type Action interface {
	action()
	// Name is the label used in logs and metrics
	Name() string
}

// AwaitingBanIdentity waits for the owner to name the ban target
type AwaitingBanIdentity struct{}

// AwaitingBanReason waits for the ban reason text
type AwaitingBanReason struct {
	TargetID int64
}

// AwaitingBanConfirm holds the reason until the confirm button is pressed
type AwaitingBanConfirm struct {
	TargetID int64
	Reason   string
}

// AwaitingAppealMessage waits for the appeal text of a banned principal
type AwaitingAppealMessage struct {
	AppellantID int64
}

// AwaitingBroadcastMessage waits for the broadcast text
type AwaitingBroadcastMessage struct{}

// AwaitingInfoLookup waits for an id or @handle to look up
type AwaitingInfoLookup struct{}

func (AwaitingBanIdentity) action()      {}
func (AwaitingBanReason) action()        {}
func (AwaitingBanConfirm) action()       {}
func (AwaitingAppealMessage) action()    {}
func (AwaitingBroadcastMessage) action() {}
func (AwaitingInfoLookup) action()       {}

func (AwaitingBanIdentity) Name() string      { return "awaiting_ban_identity" }
func (AwaitingBanReason) Name() string        { return "awaiting_ban_reason" }
func (AwaitingBanConfirm) Name() string       { return "awaiting_ban_confirm" }
func (AwaitingAppealMessage) Name() string    { return "awaiting_appeal_message" }
func (AwaitingBroadcastMessage) Name() string { return "awaiting_broadcast_message" }
func (AwaitingInfoLookup) Name() string       { return "awaiting_info_lookup" }

// Name returns "none" for a nil action
func Name(a Action) string {
	if a == nil {
		return "none"
	}
	return a.Name()
}

// Store maps principal ids to their pending action. Entries live in memory only.
type Store struct {
	mu      sync.RWMutex
	pending map[int64]Action
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{pending: make(map[int64]Action)}
}

// Get returns the pending action or nil
func (s *Store) Get(id int64) Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending[id]
}

// Set replaces the pending action. Setting nil clears it.
func (s *Store) Set(id int64, a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a == nil {
		delete(s.pending, id)
		return
	}
	s.pending[id] = a
}

// Clear drops the pending action
func (s *Store) Clear(id int64) {
	s.Set(id, nil)
}

// Len returns the number of principals with a pending action
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}
