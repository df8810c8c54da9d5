package inbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/evcharge-console/internal/gateway"
)

// staticCreds is a fixed credential source for tests.
type staticCreds string

func (c staticCreds) Token() (string, bool) {
	return string(c), c != ""
}

// fakeGateway returns scripted responses and counts calls so tests can
// assert that session-gated operations issue no network traffic.
type fakeGateway struct {
	listRecords []gateway.Record
	listErr     error
	created     gateway.Record
	createErr   error
	markReadErr error
	markAllErr  error

	listCalls     int
	markReadCalls int
	markAllCalls  int
	createCalls   int
	lastMarkedID  string

	// markReadHook, when set, runs inside MarkRead. Tests use it to hold
	// the remote confirmation open while other operations interleave.
	markReadHook func()
}

func (g *fakeGateway) List(ctx context.Context) ([]gateway.Record, error) {
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.listRecords, nil
}

func (g *fakeGateway) UnreadCount(ctx context.Context) (int, error) {
	return 0, nil
}

func (g *fakeGateway) MarkRead(ctx context.Context, id string) error {
	g.markReadCalls++
	g.lastMarkedID = id
	if g.markReadHook != nil {
		g.markReadHook()
	}
	return g.markReadErr
}

func (g *fakeGateway) MarkAllRead(ctx context.Context) error {
	g.markAllCalls++
	return g.markAllErr
}

func (g *fakeGateway) Create(ctx context.Context, in gateway.CreateInput) (gateway.Record, error) {
	g.createCalls++
	if g.createErr != nil {
		return gateway.Record{}, g.createErr
	}
	return g.created, nil
}

// rec builds a gateway.Record with the given read flag; nil means the
// server omitted it.
func rec(id string, read *bool) gateway.Record {
	return gateway.Record{
		ID:        id,
		Title:     "notification " + id,
		Content:   "content " + id,
		Category:  "general",
		Read:      read,
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func boolPtr(b bool) *bool { return &b }

func newTestStore(gw gateway.Gateway) *Store {
	return New(gw, staticCreds("token"))
}

func findRecord(t *testing.T, s *Store, id string) (bool, bool) {
	t.Helper()
	for _, n := range s.Snapshot().Records {
		if n.ID == id {
			return true, n.IsRead
		}
	}
	return false, false
}

func TestRefreshDerivesUnreadCount(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{
		rec("1", boolPtr(true)),
		rec("2", boolPtr(false)),
		rec("3", nil),
	}}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(snap.Records))
	}
	// Record 1 is explicitly read; 2 is explicitly unread; 3 has no
	// server flag and is a new id, so it defaults to unread.
	if snap.Unread != 2 {
		t.Errorf("unread = %d, want 2", snap.Unread)
	}
	if snap.Err != nil {
		t.Errorf("unexpected error flag: %v", snap.Err)
	}
}

func TestRefreshCountOverridesPollValue(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{
		rec("1", boolPtr(false)),
	}}
	s := newTestStore(gw)

	s.AdoptUnread(99)
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want list-derived 1", got)
	}
}

func TestMergeNeverResurrectsReadRecords(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{rec("7", nil)}}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := s.MarkRead(context.Background(), "7"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	// The next refresh omits the read flag again; the local read state
	// must survive the merge.
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	_, isRead := findRecord(t, s, "7")
	if !isRead {
		t.Error("record 7 flipped back to unread after refresh")
	}
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
}

func TestMergeTrustsExplicitServerFlag(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{rec("1", nil)}}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// The server now reports the record explicitly read, e.g. it was
	// read from another device.
	gw.listRecords = []gateway.Record{rec("1", boolPtr(true))}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh: %v", err)
	}

	_, isRead := findRecord(t, s, "1")
	if !isRead {
		t.Error("explicit server read flag was not adopted")
	}
}

func TestRefreshFailurePreservesState(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{rec("1", nil)}}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	gw.listErr = errors.New("connection refused")
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	snap := s.Snapshot()
	if len(snap.Records) != 1 {
		t.Errorf("list was disturbed by a failed refresh: %d records", len(snap.Records))
	}
	if snap.Err == nil {
		t.Error("error flag not recorded for the UI")
	}
}

func TestRefreshAuthFailureResetsSilently(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{rec("1", nil)}}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	gw.listErr = &gateway.AuthError{Message: "expired"}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("auth failure should not be surfaced as an error, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Records) != 0 || snap.Unread != 0 || snap.Err != nil {
		t.Errorf("expected silent empty reset, got %d records, unread %d, err %v",
			len(snap.Records), snap.Unread, snap.Err)
	}
}

func TestRefreshWithoutSessionResetsWithoutNetwork(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{rec("1", nil)}}
	s := New(gw, staticCreds(""))

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("signed-out refresh should not error, got %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Records) != 0 || snap.Unread != 0 || snap.Err != nil {
		t.Errorf("expected empty/zero state with no error, got %+v", snap)
	}
	if gw.listCalls != 0 {
		t.Errorf("signed-out refresh issued %d network calls", gw.listCalls)
	}
}

func TestMarkReadOptimisticWithoutRollback(t *testing.T) {
	gw := &fakeGateway{
		listRecords: []gateway.Record{rec("1", nil), rec("2", nil)},
		markReadErr: errors.New("gateway timeout"),
	}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	err := s.MarkRead(context.Background(), "1")
	if err == nil {
		t.Fatal("expected surfaced remote failure")
	}

	// The optimistic update is intentionally kept despite the failure.
	_, isRead := findRecord(t, s, "1")
	if !isRead {
		t.Error("optimistic read state was rolled back")
	}
	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}
	if gw.lastMarkedID != "1" {
		t.Errorf("remote call marked %q, want 1", gw.lastMarkedID)
	}
}

func TestMarkReadAlreadyReadKeepsCount(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{
		rec("1", boolPtr(true)),
		rec("2", nil),
	}}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := s.MarkRead(context.Background(), "1"); err != nil {
		t.Fatalf("marking an already-read id must not fail: %v", err)
	}

	if got := s.UnreadCount(); got != 1 {
		t.Errorf("unread = %d, want 1", got)
	}
	if gw.markReadCalls != 1 {
		t.Errorf("remote call count = %d, want 1", gw.markReadCalls)
	}
}

func TestMarkReadWithoutSession(t *testing.T) {
	gw := &fakeGateway{}
	s := New(gw, staticCreds(""))

	err := s.MarkRead(context.Background(), "1")
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if gw.markReadCalls != 0 {
		t.Errorf("signed-out mark-read issued %d network calls", gw.markReadCalls)
	}
}

func TestMarkReadCountFloorsAtZero(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{rec("1", nil)}}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// A stale poll already dragged the published count to zero.
	s.AdoptUnread(0)
	if err := s.MarkRead(context.Background(), "1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want floored 0", got)
	}
}

func TestMarkAllReadOptimistic(t *testing.T) {
	gw := &fakeGateway{
		listRecords: []gateway.Record{rec("1", nil), rec("2", nil), rec("3", nil)},
		markAllErr:  errors.New("gateway timeout"),
	}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Even with the remote call failing, the local state settles first.
	if err := s.MarkAllRead(context.Background()); err == nil {
		t.Fatal("expected surfaced remote failure")
	}

	snap := s.Snapshot()
	for _, n := range snap.Records {
		if !n.IsRead {
			t.Errorf("record %s still unread after mark-all-read", n.ID)
		}
	}
	if snap.Unread != 0 {
		t.Errorf("unread = %d, want 0", snap.Unread)
	}
}

func TestCreatePrependsServerRecord(t *testing.T) {
	gw := &fakeGateway{
		listRecords: []gateway.Record{rec("1", boolPtr(false))},
		created:     rec("42", nil),
	}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	n, err := s.Create(context.Background(), gateway.CreateInput{
		Title:    "T",
		Content:  "C",
		Category: "general",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n.ID != "42" {
		t.Errorf("created id = %q, want 42", n.ID)
	}

	snap := s.Snapshot()
	if snap.Records[0].ID != "42" {
		t.Errorf("first record id = %q, want the created 42", snap.Records[0].ID)
	}
	if snap.Records[0].IsRead {
		t.Error("created record should default to unread")
	}
	if snap.Unread != 2 {
		t.Errorf("unread = %d, want 2", snap.Unread)
	}
}

func TestCreateInvalidCategoryIsRejectedBeforeNetwork(t *testing.T) {
	gw := &fakeGateway{}
	s := newTestStore(gw)

	_, err := s.Create(context.Background(), gateway.CreateInput{
		Title:    "T",
		Content:  "C",
		Category: "advertising",
	})
	if !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("err = %v, want ErrInvalidCategory", err)
	}
	if gw.createCalls != 0 {
		t.Errorf("invalid create issued %d network calls", gw.createCalls)
	}
}

func TestCreateFailureLeavesListUntouched(t *testing.T) {
	gw := &fakeGateway{
		listRecords: []gateway.Record{rec("1", nil)},
		createErr:   errors.New("server error"),
	}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	_, err := s.Create(context.Background(), gateway.CreateInput{
		Title:    "T",
		Content:  "C",
		Category: "general",
	})
	if err == nil {
		t.Fatal("expected create failure")
	}

	snap := s.Snapshot()
	if len(snap.Records) != 1 || snap.Unread != 1 {
		t.Errorf("failed create disturbed local state: %d records, unread %d",
			len(snap.Records), snap.Unread)
	}
}

func TestCreateWithoutSession(t *testing.T) {
	gw := &fakeGateway{}
	s := New(gw, staticCreds(""))

	_, err := s.Create(context.Background(), gateway.CreateInput{
		Title:    "T",
		Content:  "C",
		Category: "general",
	})
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if gw.createCalls != 0 {
		t.Errorf("signed-out create issued %d network calls", gw.createCalls)
	}
}

func TestAdoptUnreadFloorsAtZero(t *testing.T) {
	s := newTestStore(&fakeGateway{})

	s.AdoptUnread(-3)
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
}

// TestRefreshRacingMarkRead replays the interleaving where a refresh
// response lands after the optimistic mark-read but before its remote
// confirmation: the optimistic state must survive the merge.
func TestRefreshRacingMarkRead(t *testing.T) {
	gw := &fakeGateway{listRecords: []gateway.Record{rec("7", nil)}}
	s := newTestStore(gw)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if got := s.UnreadCount(); got != 1 {
		t.Fatalf("unread = %d, want 1", got)
	}

	// Hold the remote mark-read open until the racing refresh finishes.
	entered := make(chan struct{})
	release := make(chan struct{})
	gw.markReadHook = func() {
		close(entered)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		done <- s.MarkRead(context.Background(), "7")
	}()

	// Once the gateway call is underway the optimistic update has been
	// applied.
	<-entered
	if _, isRead := findRecord(t, s, "7"); !isRead {
		t.Fatal("optimistic update not applied before the remote call")
	}

	// A refresh whose response omits the read flag for record 7 arrives
	// while the mark-read confirmation is still in flight.
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("racing refresh: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("mark read: %v", err)
	}

	if _, isRead := findRecord(t, s, "7"); !isRead {
		t.Error("refresh erased the optimistic read state")
	}
	if got := s.UnreadCount(); got != 0 {
		t.Errorf("unread = %d, want 0", got)
	}
}
