package sync

import (
	"context"
	"log"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/evcharge-console/internal/gateway"
	"github.com/nhle/evcharge-console/internal/inbox"
	"github.com/nhle/evcharge-console/internal/session"
)

// NewNotificationsMsg is a tea.Msg announcing that the unread counter grew
// since the last observation. Count is the aggregate delta: one message is
// emitted per poll no matter how many notifications arrived.
type NewNotificationsMsg struct {
	Count int
}

// CountSyncedMsg is a tea.Msg sent whenever a poll adopted a changed unread
// count, so the UI can re-render its badge.
type CountSyncedMsg struct {
	Unread int
}

// PollingStoppedMsg is a tea.Msg sent when the polling loop exits on its
// own, e.g. because the session ended mid-lifetime.
type PollingStoppedMsg struct{}

// fetchTimeout is the maximum time allowed for a single count fetch.
const fetchTimeout = 15 * time.Second

// defaultInterval is used when no poll interval is configured.
const defaultInterval = 10 * time.Second

// Poller periodically fetches only the unread count (the cheap endpoint)
// and raises user-visible deltas without disturbing the full list. It runs
// only while a credential is present: Start is a no-op when signed out, and
// a session that ends mid-lifetime stops the loop within one tick.
//
// The poll baseline is the store's published count, so a completed full
// refresh re-synchronizes the baseline before the next comparison.
type Poller struct {
	store    *inbox.Store
	gw       gateway.Gateway
	creds    session.Source
	interval time.Duration

	resultCh chan tea.Msg
	mu       gosync.Mutex
	stopCh   chan struct{}
	running  bool
	primed   bool
}

// New creates a Poller. A non-positive interval falls back to 10 seconds.
func New(store *inbox.Store, gw gateway.Gateway, creds session.Source, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Poller{
		store:    store,
		gw:       gw,
		creds:    creds,
		interval: interval,
		resultCh: make(chan tea.Msg, 16),
	}
}

// Start arms the polling loop and returns a subscription command that
// delivers poller messages to the Bubble Tea runtime. Without a session the
// timer is not armed at all. Every (re)start begins with a fresh baseline
// observation, so logging back in never fires a stale delta burst.
func (p *Poller) Start() tea.Cmd {
	if _, ok := p.creds.Token(); !ok {
		return nil
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return p.waitForResult()
	}
	p.running = true
	p.primed = false
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	go p.loop(stop)

	return p.waitForResult()
}

// Stop halts the polling loop.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Running reports whether the polling loop is currently armed.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// loop runs the ticker until stopped or until the session ends.
func (p *Poller) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !p.CheckOnce() {
				p.markStopped()
				p.send(PollingStoppedMsg{})
				return
			}
		}
	}
}

// CheckOnce performs a single poll: credential gate, count fetch, baseline
// comparison. It returns false when polling should cease because the
// session is gone. Fetch failures are swallowed; polling is never fatal.
func (p *Poller) CheckOnce() bool {
	if _, ok := p.creds.Token(); !ok {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	count, err := p.gw.UnreadCount(ctx)
	if err != nil {
		if gateway.IsAuthError(err) {
			// Credential rejected server-side: the session is over.
			return false
		}
		log.Printf("unread count poll failed: %v", err)
		return true
	}

	prev := p.store.UnreadCount()

	p.mu.Lock()
	first := !p.primed
	p.primed = true
	p.mu.Unlock()

	// Unchanged count: no state mutation, no signal, even back-to-back.
	if count == prev {
		return true
	}

	p.store.AdoptUnread(count)

	// A higher count from a non-zero baseline means new notifications
	// arrived; everything else (first observation after start, recovery
	// from a cold zero, a count reconciled elsewhere) adopts silently.
	if !first && count > prev && prev > 0 {
		p.send(NewNotificationsMsg{Count: count - prev})
	}
	p.send(CountSyncedMsg{Unread: count})

	return true
}

// markStopped records that the loop exited on its own.
func (p *Poller) markStopped() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

// send delivers a message on the result channel without blocking.
func (p *Poller) send(msg tea.Msg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if the channel is full to avoid blocking the poller.
	}
}

// waitForResult returns a tea.Cmd that waits for the next poller message.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return msg
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poller
// message. Call it after processing one to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
