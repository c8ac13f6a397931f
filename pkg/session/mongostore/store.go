package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/authkit/pkg/session"
)

const (
	defaultSessionsCollection = "auth_sessions"
	defaultUsersCollection    = "auth_users"
)

type sessionDoc struct {
	ID         string             `bson:"_id"`
	UserID     string             `bson:"user_id"`
	ExpiresAt  time.Time          `bson:"expires_at"`
	Attributes session.Attributes `bson:"attributes,omitempty"`
}

type userDoc struct {
	ID         string             `bson:"_id"`
	Attributes session.Attributes `bson:"attributes,omitempty"`
}

// sessionWithUser is the $lookup projection used by GetSessionAndUser.
type sessionWithUser struct {
	sessionDoc `bson:",inline"`
	User       []userDoc `bson:"user"`
}

// Store is a MongoDB-backed session.Adapter.
type Store struct {
	sessions *mongo.Collection
	users    *mongo.Collection
}

// Option configures a Store.
type Option func(*config)

type config struct {
	sessionsCollection string
	usersCollection    string
}

// WithSessionsCollection overrides the default "auth_sessions" collection.
func WithSessionsCollection(name string) Option {
	return func(c *config) {
		if name != "" {
			c.sessionsCollection = name
		}
	}
}

// WithUsersCollection overrides the default "auth_users" collection.
func WithUsersCollection(name string) Option {
	return func(c *config) {
		if name != "" {
			c.usersCollection = name
		}
	}
}

// New creates a MongoDB-backed session adapter on the given database.
func New(db *mongo.Database, opts ...Option) *Store {
	cfg := config{
		sessionsCollection: defaultSessionsCollection,
		usersCollection:    defaultUsersCollection,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Store{
		sessions: db.Collection(cfg.sessionsCollection),
		users:    db.Collection(cfg.usersCollection),
	}
}

// EnsureIndexes creates the TTL index that reaps expired sessions and the
// user_id index used by bulk invalidation. Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	})
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// GetSessionAndUser implements session.Adapter. The owning user is resolved
// with a $lookup so both documents come from one server-side operation.
func (s *Store) GetSessionAndUser(ctx context.Context, sessionID string) (*session.Record, *session.UserRecord, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": sessionID}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         s.users.Name(),
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
	}

	cursor, err := s.sessions.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, nil, errors.Join(session.ErrPersistence, err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		if err := cursor.Err(); err != nil {
			return nil, nil, errors.Join(session.ErrPersistence, err)
		}
		return nil, nil, nil
	}

	var doc sessionWithUser
	if err := cursor.Decode(&doc); err != nil {
		return nil, nil, errors.Join(session.ErrPersistence, err)
	}

	record := &session.Record{
		ID:         doc.ID,
		UserID:     doc.UserID,
		ExpiresAt:  doc.ExpiresAt.UTC(),
		Attributes: doc.Attributes,
	}
	if len(doc.User) == 0 {
		return record, nil, nil
	}
	return record, &session.UserRecord{ID: doc.User[0].ID, Attributes: doc.User[0].Attributes}, nil
}

// SetSession implements session.Adapter.
func (s *Store) SetSession(ctx context.Context, record session.Record) error {
	if record.ID == "" {
		return errors.Join(session.ErrPersistence, session.ErrInvalidRecord)
	}
	doc := sessionDoc{
		ID:         record.ID,
		UserID:     record.UserID,
		ExpiresAt:  record.ExpiresAt,
		Attributes: record.Attributes,
	}
	_, err := s.sessions.ReplaceOne(ctx, bson.M{"_id": record.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// UpdateSessionExpiration implements session.Adapter. Updating a session
// that no longer exists is not an error.
func (s *Store) UpdateSessionExpiration(ctx context.Context, sessionID string, expiresAt time.Time) error {
	_, err := s.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"expires_at": expiresAt}},
	)
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteSession implements session.Adapter.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.sessions.DeleteOne(ctx, bson.M{"_id": sessionID}); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteUserSessions implements session.Adapter.
func (s *Store) DeleteUserSessions(ctx context.Context, userID string) error {
	if _, err := s.sessions.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// DeleteExpiredSessions implements session.Adapter. The TTL monitor runs
// roughly once a minute; this gives callers a way to force the sweep.
func (s *Store) DeleteExpiredSessions(ctx context.Context) error {
	_, err := s.sessions.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now()}})
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// GetUserSessions implements session.Adapter.
func (s *Store) GetUserSessions(ctx context.Context, userID string) ([]session.Record, error) {
	cursor, err := s.sessions.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, errors.Join(session.ErrPersistence, err)
	}
	defer cursor.Close(ctx)

	var docs []sessionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Join(session.ErrPersistence, err)
	}

	records := make([]session.Record, 0, len(docs))
	for _, doc := range docs {
		records = append(records, session.Record{
			ID:         doc.ID,
			UserID:     doc.UserID,
			ExpiresAt:  doc.ExpiresAt.UTC(),
			Attributes: doc.Attributes,
		})
	}
	return records, nil
}

// PutUser persists a user document so session lookups can resolve the owner.
func (s *Store) PutUser(ctx context.Context, user session.UserRecord) error {
	doc := userDoc{ID: user.ID, Attributes: user.Attributes}
	_, err := s.users.ReplaceOne(ctx, bson.M{"_id": user.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

// RemoveUser deletes a user document together with all of their sessions.
func (s *Store) RemoveUser(ctx context.Context, userID string) error {
	if err := s.DeleteUserSessions(ctx, userID); err != nil {
		return err
	}
	if _, err := s.users.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return errors.Join(session.ErrPersistence, err)
	}
	return nil
}

var _ session.Adapter = (*Store)(nil)
