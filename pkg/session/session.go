// Package session stores interactive view sessions for the server and the
// terminal viewer.
//
// A session pairs an immutable snapshot with the serialized [view.State] of
// the controller driving it. Hosts apply events by restoring a controller from
// the stored state, mutating it, and writing the new state back:
//
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//	    return err // SESSION_NOT_FOUND when missing or expired
//	}
//	ctrl := view.Restore(nil, sess.Snapshot, sess.State)
//	ctrl.ZoomIn()
//	sess.State = ctrl.State()
//	sess.Touch(ttl)
//	store.Set(ctx, sess)
//
// Backends:
//   - [NewMemoryStore]: in-process, for a single server replica and tests
//   - [NewRedisStore]: shared between replicas, native key expiry
//   - [NewFileStore]: one JSON file per session, used by the CLI to resume views
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/graph"
	"github.com/matzehuels/codeflow/pkg/view"
)

// DefaultTTL is the idle lifetime of a session.
const DefaultTTL = 30 * time.Minute

// Session is one view of one snapshot.
type Session struct {
	ID        string         `json:"id"`
	Snapshot  graph.Snapshot `json:"snapshot"`
	State     view.State     `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// New creates a session for s with the default view state.
func New(s graph.Snapshot, ttl time.Duration) *Session {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	st := view.DefaultState()
	st.SnapshotHash = s.Hash()
	return &Session{
		ID:        uuid.NewString(),
		Snapshot:  s,
		State:     st,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired reports whether the session outlived its TTL.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Touch extends the expiry to ttl from now.
func (s *Session) Touch(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.ExpiresAt = time.Now().Add(ttl)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get returns the session with the given id. Missing and expired
	// sessions both fail with SESSION_NOT_FOUND.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores sess until its ExpiresAt.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// ValidID reports whether id is a well-formed session id. Stores use it to
// reject ids that could escape their key space.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// IDFor derives a stable session id from a name, such as the absolute path
// of a snapshot file, so the CLI can resume the same view.
func IDFor(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeSessionNotFound, "session %q not found", id)
}
