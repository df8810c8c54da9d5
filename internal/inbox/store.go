package inbox

import (
	"context"
	"errors"
	"sync"

	"github.com/nhle/evcharge-console/internal/gateway"
	"github.com/nhle/evcharge-console/internal/model"
	"github.com/nhle/evcharge-console/internal/session"
)

// ErrNotAuthenticated is returned by mutations invoked without a session.
// Passive reads never return it; they quietly reset to an empty state.
var ErrNotAuthenticated = errors.New("not signed in")

// ErrInvalidCategory is returned by Create before any network call when the
// category is not one of the recognized tags.
var ErrInvalidCategory = errors.New("invalid notification category")

// Snapshot is a read-only view of the store handed to UI panels. Consumers
// must route every mutation through the store; the slice is a copy.
type Snapshot struct {
	Records []model.Notification
	Unread  int
	Loading bool
	Err     error
}

// Store owns the canonical in-memory notification list and its derived
// unread count. It reconciles full list fetches against local optimistic
// edits so that a just-read notification is never resurrected as unread,
// and it keeps the count consistent with whichever source (full refresh or
// count poll) completed last.
//
// The list lives only in memory; it is rebuilt from the gateway on every
// full refresh.
type Store struct {
	gw    gateway.Gateway
	creds session.Source

	mu      sync.Mutex
	records []model.Notification
	unread  int
	loading bool
	lastErr error
}

// New creates a Store backed by the given gateway and credential source.
func New(gw gateway.Gateway, creds session.Source) *Store {
	return &Store{gw: gw, creds: creds}
}

// Snapshot returns a copy of the current list, count, and error state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]model.Notification, len(s.records))
	copy(records, s.records)

	return Snapshot{
		Records: records,
		Unread:  s.unread,
		Loading: s.loading,
		Err:     s.lastErr,
	}
}

// UnreadCount returns the current published unread count. The poller uses
// it as the baseline for delta comparisons, so a completed refresh
// re-synchronizes the baseline automatically.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// AdoptUnread overwrites the published unread count with a value from the
// lightweight count poll. The value is provisionally authoritative until
// the next full refresh derives the count from the merged list again.
func (s *Store) AdoptUnread(n int) {
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.unread = n
	s.mu.Unlock()
}

// Reset drops the store to its signed-out state: empty list, zero count,
// no error.
func (s *Store) Reset() {
	s.mu.Lock()
	s.records = nil
	s.unread = 0
	s.lastErr = nil
	s.loading = false
	s.mu.Unlock()
}

// Refresh performs a full list fetch and merges it with local state.
//
// Without a session it resets to empty/zero and reports no error. On a
// transport failure the existing list is left untouched and the error is
// both recorded for the UI and returned. A 401 is treated as "no session",
// not as an error.
func (s *Store) Refresh(ctx context.Context) error {
	if _, ok := s.creds.Token(); !ok {
		s.Reset()
		return nil
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	fresh, err := s.gw.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		if gateway.IsAuthError(err) {
			s.records = nil
			s.unread = 0
			s.lastErr = nil
			return nil
		}
		s.lastErr = err
		return err
	}

	// Merge against the records as they are now, not as they were when
	// the fetch was issued: an optimistic mark-read that landed while the
	// response was in flight must survive the merge.
	s.records = merge(s.records, fresh)
	s.unread = countUnread(s.records)
	s.lastErr = nil
	return nil
}

// MarkRead marks a single notification as read: optimistic local update
// first, then the remote call. A remote failure is returned to the caller
// but the optimistic state is not rolled back; the next full refresh
// settles any disagreement.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	if _, ok := s.creds.Token(); !ok {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		if !s.records[i].IsRead {
			s.records[i].IsRead = true
			if s.unread > 0 {
				s.unread--
			}
		}
		break
	}
	s.mu.Unlock()

	// Remote mark-read is idempotent; an already-read id is not an error.
	return s.gw.MarkRead(ctx, id)
}

// MarkAllRead marks every notification as read and zeroes the count
// immediately, then fires the remote call. Same no-rollback contract as
// MarkRead.
func (s *Store) MarkAllRead(ctx context.Context) error {
	if _, ok := s.creds.Token(); !ok {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	for i := range s.records {
		s.records[i].IsRead = true
	}
	s.unread = 0
	s.mu.Unlock()

	return s.gw.MarkAllRead(ctx)
}

// Create validates the input, stores the notification remotely, and on
// success prepends the server-returned record as unread. There is no local
// optimism here: the id does not exist until the server assigns it, so a
// failed create leaves the list untouched.
func (s *Store) Create(ctx context.Context, in gateway.CreateInput) (model.Notification, error) {
	if _, ok := s.creds.Token(); !ok {
		return model.Notification{}, ErrNotAuthenticated
	}
	if !in.Category.Valid() {
		return model.Notification{}, ErrInvalidCategory
	}

	rec, err := s.gw.Create(ctx, in)
	if err != nil {
		return model.Notification{}, err
	}

	n := rec.Notification()

	s.mu.Lock()
	s.records = append([]model.Notification{n}, s.records...)
	if !n.IsRead {
		s.unread++
	}
	s.mu.Unlock()

	return n, nil
}

// countUnread derives the unread count from a record list.
func countUnread(records []model.Notification) int {
	n := 0
	for _, r := range records {
		if !r.IsRead {
			n++
		}
	}
	return n
}
