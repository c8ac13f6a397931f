package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authkit/pkg/session"
)

const defaultKeyPrefix = "auth:"

// getSessionAndUserScript fetches a session document and, when the session
// exists, its owner's document in the same atomic step. It returns an empty
// array for a missing session and a single-element array for an orphaned one.
var getSessionAndUserScript = redis.NewScript(`
local s = redis.call("GET", KEYS[1])
if not s then
	return {}
end
local rec = cjson.decode(s)
local u = redis.call("GET", ARGV[1] .. rec.user_id)
if not u then
	return {s}
end
return {s, u}
`)

// updateExpirationScript rewrites the stored expiry and realigns the key TTL
// in one step. Returns 0 when the session no longer exists.
var updateExpirationScript = redis.NewScript(`
local s = redis.call("GET", KEYS[1])
if not s then
	return 0
end
local rec = cjson.decode(s)
rec.expires_at = tonumber(ARGV[1])
redis.call("SET", KEYS[1], cjson.encode(rec), "PXAT", ARGV[1])
return 1
`)

// deleteSessionScript removes a session document and its entry in the
// owner's index set.
var deleteSessionScript = redis.NewScript(`
local s = redis.call("GET", KEYS[1])
if s then
	local rec = cjson.decode(s)
	redis.call("SREM", ARGV[1] .. rec.user_id, ARGV[2])
	redis.call("DEL", KEYS[1])
end
return 1
`)

// deleteUserSessionsScript removes every session document listed in a
// user's index set, then the set itself.
var deleteUserSessionsScript = redis.NewScript(`
local ids = redis.call("SMEMBERS", KEYS[1])
for _, id in ipairs(ids) do
	redis.call("DEL", ARGV[1] .. id)
end
redis.call("DEL", KEYS[1])
return #ids
`)

// sessionDoc is the persisted JSON shape. Expiry is kept as unix
// milliseconds so the Lua scripts can manipulate it numerically.
type sessionDoc struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	ExpiresAt  int64              `json:"expires_at"`
	Attributes session.Attributes `json:"attributes,omitempty"`
}

type userDoc struct {
	ID         string             `json:"id"`
	Attributes session.Attributes `json:"attributes,omitempty"`
}

// Store is a Redis-backed session.Adapter. It also persists user documents
// so GetSessionAndUser can resolve the owning user in the same round trip.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix overrides the default "auth:" key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a Redis-backed session adapter.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) sessionKey(id string) string { return s.prefix + "session:" + id }
func (s *Store) userKey(id string) string    { return s.prefix + "user:" + id }
func (s *Store) indexKey(userID string) string {
	return s.prefix + "user_sessions:" + userID
}

// GetSessionAndUser implements session.Adapter.
func (s *Store) GetSessionAndUser(ctx context.Context, sessionID string) (*session.Record, *session.UserRecord, error) {
	raw, err := getSessionAndUserScript.Run(ctx, s.client,
		[]string{s.sessionKey(sessionID)},
		s.prefix+"user:",
	).StringSlice()
	if err != nil {
		return nil, nil, errors.Join(session.ErrPersistence, err)
	}
	if len(raw) == 0 {
		return nil, nil, nil
	}

	var sd sessionDoc
	if err := json.Unmarshal([]byte(raw[0]), &sd); err != nil {
		return nil, nil, errors.Join(session.ErrPersistence, err)
	}
	record := &session.Record{
		ID:         sd.ID,
		UserID:     sd.UserID,
		ExpiresAt:  time.UnixMilli(sd.ExpiresAt).UTC(),
		Attributes: sd.Attributes,
	}
	if len(raw) < 2 {
		return record, nil, nil
	}

	var ud userDoc
	if err := json.Unmarshal([]byte(raw[1]), &ud); err != nil {
		return nil, nil, errors.Join(session.ErrPersistence, err)
	}
	return record, &session.UserRecord{ID: ud.ID, Attributes: ud.Attributes}, nil
}

// SetSession implements session.Adapter. The document TTL is aligned to the
// record expiry and the id is added to the owner's index set.
func (s *Store) SetSession(ctx context.Context, record session.Record) error {
	if record.ID == "" {
		return errors.Join(session.ErrPersistence, session.ErrInvalidRecord)
	}
	payload, err := json.Marshal(sessionDoc{
		ID:         record.ID,
		UserID:     record.UserID,
		ExpiresAt:  record.ExpiresAt.UnixMilli(),
		Attributes: record.Attributes,
	})
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.sessionKey(record.ID), payload, 0)
	pipe.PExpireAt(ctx, s.sessionKey(record.ID), record.ExpiresAt)
	pipe.SAdd(ctx, s.indexKey(record.UserID), record.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// UpdateSessionExpiration implements session.Adapter. Updating a session
// that no longer exists is not an error.
func (s *Store) UpdateSessionExpiration(ctx context.Context, sessionID string, expiresAt time.Time) error {
	err := updateExpirationScript.Run(ctx, s.client,
		[]string{s.sessionKey(sessionID)},
		expiresAt.UnixMilli(),
	).Err()
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteSession implements session.Adapter.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	err := deleteSessionScript.Run(ctx, s.client,
		[]string{s.sessionKey(sessionID)},
		s.prefix+"user_sessions:", sessionID,
	).Err()
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteUserSessions implements session.Adapter.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	err := deleteUserSessionsScript.Run(ctx, s.client,
		[]string{s.indexKey(userID)},
		s.prefix+"session:",
	).Err()
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteExpiredSessions implements session.Adapter. Redis evicts expired
// session documents via their TTL; this sweep prunes the ids they leave
// behind in the per-user index sets.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"user_sessions:*", 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		ids, err := s.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return errors.Join(session.ErrPersistence, err)
		}
		for _, id := range ids {
			exists, err := s.client.Exists(ctx, s.sessionKey(id)).Result()
			if err != nil {
				return errors.Join(session.ErrPersistence, err)
			}
			if exists == 0 {
				if err := s.client.SRem(ctx, indexKey, id).Err(); err != nil {
					return errors.Join(session.ErrPersistence, err)
				}
			}
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// GetUserSessions implements session.Adapter.
func (s *Store) GetUserSessions(ctx context.Context, userID string) ([]session.Record, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(userID)).Result()
	if err != nil {
		return nil, errors.Join(session.ErrPersistence, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.sessionKey(id)
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Join(session.ErrPersistence, err)
	}

	records := make([]session.Record, 0, len(raw))
	for _, v := range raw {
		payload, ok := v.(string)
		if !ok {
			continue // evicted since SMEMBERS; left for the next sweep
		}
		var sd sessionDoc
		if err := json.Unmarshal([]byte(payload), &sd); err != nil {
			return nil, errors.Join(session.ErrPersistence, err)
		}
		records = append(records, session.Record{
			ID:         sd.ID,
			UserID:     sd.UserID,
			ExpiresAt:  time.UnixMilli(sd.ExpiresAt).UTC(),
			Attributes: sd.Attributes,
		})
	}
	return records, nil
}

// PutUser persists a user document so session lookups can resolve the
// owner. Stores that keep users elsewhere can mirror only the id.
func (s *Store) PutUser(ctx context.Context, user session.UserRecord) error {
	payload, err := json.Marshal(userDoc{ID: user.ID, Attributes: user.Attributes})
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	if err := s.client.Set(ctx, s.userKey(user.ID), payload, 0).Err(); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// RemoveUser deletes a user document. Existing sessions for the user become
// orphaned and are rejected on their next validation.
func (s *Store) RemoveUser(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

var _ session.Adapter = (*Store)(nil)
