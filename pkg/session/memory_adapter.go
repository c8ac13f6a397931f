package session

import (
	"context"
	"sync"
	"time"
)

// MemoryAdapter implements Adapter with in-process maps. It doubles as a
// tiny user registry so tests and development setups don't need a real
// store. An optional cleanup loop sweeps expired sessions periodically.
type MemoryAdapter struct {
	mu       sync.RWMutex
	sessions map[string]Record
	users    map[string]UserRecord

	ticker *time.Ticker
	done   chan struct{}
}

// NewMemoryAdapter creates an in-memory adapter. A positive cleanupInterval
// starts a background sweep of expired sessions; pass 0 to disable it.
func NewMemoryAdapter(cleanupInterval time.Duration) *MemoryAdapter {
	a := &MemoryAdapter{
		sessions: make(map[string]Record),
		users:    make(map[string]UserRecord),
		done:     make(chan struct{}),
	}

	if cleanupInterval > 0 {
		a.ticker = time.NewTicker(cleanupInterval)
		go a.cleanupLoop()
	}

	return a
}

// PutUser registers a user record so sessions can resolve their owner.
func (a *MemoryAdapter) PutUser(user UserRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.users[user.ID] = UserRecord{ID: user.ID, Attributes: user.Attributes.Clone()}
}

// RemoveUser deletes a user record, leaving its sessions orphaned.
func (a *MemoryAdapter) RemoveUser(userID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.users, userID)
}

// GetSessionAndUser looks up the session and its user in one critical
// section, so the pair is consistent.
func (a *MemoryAdapter) GetSessionAndUser(ctx context.Context, sessionID string) (*Record, *UserRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	record, ok := a.sessions[sessionID]
	if !ok {
		return nil, nil, nil
	}

	recordCopy := record
	recordCopy.Attributes = record.Attributes.Clone()

	user, ok := a.users[record.UserID]
	if !ok {
		return &recordCopy, nil, nil
	}

	userCopy := user
	userCopy.Attributes = user.Attributes.Clone()

	return &recordCopy, &userCopy, nil
}

// SetSession persists a session record.
func (a *MemoryAdapter) SetSession(ctx context.Context, record Record) error {
	if record.ID == "" {
		return ErrInvalidRecord
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	record.Attributes = record.Attributes.Clone()
	a.sessions[record.ID] = record
	return nil
}

// UpdateSessionExpiration sets a new expiry on an existing record. Updating
// a missing record is a no-op: the record may have been swept concurrently.
func (a *MemoryAdapter) UpdateSessionExpiration(ctx context.Context, sessionID string, expiresAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, ok := a.sessions[sessionID]
	if !ok {
		return nil
	}

	record.ExpiresAt = expiresAt
	a.sessions[sessionID] = record
	return nil
}

// DeleteSession removes a session record; missing ids are not an error.
func (a *MemoryAdapter) DeleteSession(ctx context.Context, sessionID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.sessions, sessionID)
	return nil
}

// DeleteUserSessions removes all sessions for a user.
func (a *MemoryAdapter) DeleteUserSessions(ctx context.Context, userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, record := range a.sessions {
		if record.UserID == userID {
			delete(a.sessions, id)
		}
	}
	return nil
}

// DeleteExpiredSessions removes all records past their expiry.
func (a *MemoryAdapter) DeleteExpiredSessions(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	for id, record := range a.sessions {
		if !now.Before(record.ExpiresAt) {
			delete(a.sessions, id)
		}
	}
	return nil
}

// GetUserSessions returns all session records for a user.
func (a *MemoryAdapter) GetUserSessions(ctx context.Context, userID string) ([]Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var records []Record
	for _, record := range a.sessions {
		if record.UserID == userID {
			recordCopy := record
			recordCopy.Attributes = record.Attributes.Clone()
			records = append(records, recordCopy)
		}
	}
	return records, nil
}

// Close stops the cleanup loop.
func (a *MemoryAdapter) Close() error {
	if a.ticker != nil {
		a.ticker.Stop()
		close(a.done)
	}
	return nil
}

func (a *MemoryAdapter) cleanupLoop() {
	for {
		select {
		case <-a.ticker.C:
			_ = a.DeleteExpiredSessions(context.Background())
		case <-a.done:
			return
		}
	}
}
