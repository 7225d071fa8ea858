// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MemoryIdentityStore implements IdentityStore with in-process state.
// It is the authoritative store for single-process deployments and is
// safe for concurrent use.
type MemoryIdentityStore struct {
	mu        sync.RWMutex
	byID      map[ulid.ULID]*Identity
	usernames map[string]ulid.ULID
	order     []ulid.ULID
}

// NewMemoryIdentityStore creates an empty MemoryIdentityStore.
func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{
		byID:      make(map[ulid.ULID]*Identity),
		usernames: make(map[string]ulid.ULID),
	}
}

// Insert stores a new identity. Username uniqueness is case-sensitive and
// permanent: a username stays claimed even after its identity is
// deactivated.
func (s *MemoryIdentityStore) Insert(_ context.Context, identity *Identity) error {
	if identity == nil {
		return oops.Code("STORE_NIL_IDENTITY").Errorf("identity cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernames[identity.Username]; taken {
		return oops.Code("STORE_DUPLICATE_USERNAME").
			With("username", identity.Username).
			Wrap(ErrDuplicateUsername)
	}

	stored := *identity
	s.byID[stored.ID] = &stored
	s.usernames[stored.Username] = stored.ID
	s.order = append(s.order, stored.ID)
	return nil
}

// FindActiveByUsername returns a copy of the first-inserted active
// identity with the given username.
func (s *MemoryIdentityStore) FindActiveByUsername(_ context.Context, username string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Insertion-order scan keeps the tie-break deterministic even though
	// the insert invariant prevents duplicates from arising.
	for _, id := range s.order {
		identity := s.byID[id]
		if identity.Username == username && identity.IsActive {
			found := *identity
			return &found, nil
		}
	}
	return nil, oops.Code("STORE_IDENTITY_NOT_FOUND").
		With("username", username).
		Wrap(ErrNotFound)
}

// Update replaces the stored identity with the same ID.
func (s *MemoryIdentityStore) Update(_ context.Context, identity *Identity) error {
	if identity == nil {
		return oops.Code("STORE_NIL_IDENTITY").Errorf("identity cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[identity.ID]; !ok {
		return oops.Code("STORE_IDENTITY_NOT_FOUND").
			With("id", identity.ID.String()).
			Wrap(ErrNotFound)
	}

	stored := *identity
	s.byID[stored.ID] = &stored
	return nil
}

// All returns copies of every identity in insertion order.
func (s *MemoryIdentityStore) All(_ context.Context) ([]Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identities := make([]Identity, 0, len(s.order))
	for _, id := range s.order {
		identities = append(identities, *s.byID[id])
	}
	return identities, nil
}

// MemorySessionRepository implements SessionRepository with in-process
// state, keyed by token hash.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionRepository creates an empty MemorySessionRepository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]*Session)}
}

// Create stores a new session.
func (r *MemorySessionRepository) Create(_ context.Context, session *Session) error {
	if session == nil {
		return oops.Code("STORE_NIL_SESSION").Errorf("session cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *session
	r.sessions[stored.TokenHash] = &stored
	return nil
}

// GetByTokenHash returns a copy of the session with the given token hash.
func (r *MemorySessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, oops.Code("STORE_SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	found := *session
	return &found, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (r *MemorySessionRepository) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, session := range r.sessions {
		if session.ID == id {
			session.LastSeenAt = lastSeen
			return nil
		}
	}
	return oops.Code("STORE_SESSION_NOT_FOUND").
		With("id", id.String()).
		Wrap(ErrNotFound)
}

// DeleteByTokenHash removes a session by its token hash.
func (r *MemorySessionRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[tokenHash]; !ok {
		return oops.Code("STORE_SESSION_NOT_FOUND").Wrap(ErrNotFound)
	}
	delete(r.sessions, tokenHash)
	return nil
}

// DeleteExpired removes all expired sessions.
func (r *MemorySessionRepository) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var deleted int64
	for hash, session := range r.sessions {
		if session.IsExpiredAt(now) {
			delete(r.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}
