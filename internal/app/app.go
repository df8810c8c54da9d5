package app

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/evcharge-console/internal/cache"
	"github.com/nhle/evcharge-console/internal/gateway"
	"github.com/nhle/evcharge-console/internal/inbox"
	"github.com/nhle/evcharge-console/internal/keys"
	"github.com/nhle/evcharge-console/internal/model"
	"github.com/nhle/evcharge-console/internal/session"
	appsync "github.com/nhle/evcharge-console/internal/sync"
	"github.com/nhle/evcharge-console/internal/ui"
	"github.com/nhle/evcharge-console/internal/ui/command"
	"github.com/nhle/evcharge-console/internal/ui/compose"
	"github.com/nhle/evcharge-console/internal/ui/detail"
	helpview "github.com/nhle/evcharge-console/internal/ui/help"
	"github.com/nhle/evcharge-console/internal/ui/inboxlist"
	loginview "github.com/nhle/evcharge-console/internal/ui/login"
)

// refreshDoneMsg is sent when a full refresh has completed.
type refreshDoneMsg struct {
	err error
}

// mutationDoneMsg is sent when a mark-read or mark-all-read settled.
type mutationDoneMsg struct {
	err error
}

// createDoneMsg is sent when a create call settled.
type createDoneMsg struct {
	notification model.Notification
	err          error
}

// cachedSnapshotMsg carries the snapshot cache contents for the first paint.
type cachedSnapshotMsg struct {
	records []model.Notification
}

// clearToastMsg removes the transient new-notification banner.
type clearToastMsg struct{}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewInbox
	ViewDetail
	ViewCompose
	ViewHelp
	ViewCommand
)

// opTimeout bounds every user-initiated gateway call.
const opTimeout = 30 * time.Second

// toastDuration is how long the "N new notifications" banner stays up.
const toastDuration = 5 * time.Second

// Model is the root Bubble Tea model that manages view routing, layout,
// the session lifecycle, and access to the notification store.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	store        *inbox.Store
	poller       *appsync.Poller
	sess         *session.Session
	snapshots    *cache.Cache
	keys         *keys.KeyMap

	inboxView   inboxlist.Model
	detailView  detail.Model
	composeView compose.Model
	loginView   loginview.Model
	helpView    helpview.Model
	commandView command.Model

	ready     bool
	unread    int
	toast     string
	statusMsg string
}

// New creates the root application model. The snapshot cache may be nil
// when disabled in the configuration.
func New(
	store *inbox.Store,
	poller *appsync.Poller,
	sess *session.Session,
	snapshots *cache.Cache,
) Model {
	k := keys.DefaultKeyMap()

	initial := ViewLogin
	if _, ok := sess.Token(); ok {
		initial = ViewInbox
	}

	return Model{
		currentView: initial,
		store:       store,
		poller:      poller,
		sess:        sess,
		snapshots:   snapshots,
		keys:        k,
		inboxView:   inboxlist.New(store, k, 80, 24),
		detailView:  detail.New(80, 24),
		composeView: compose.New(80, 24),
		loginView:   loginview.New(80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}
}

// Init wires the startup commands: paint the cached snapshot immediately,
// then run the first full refresh and arm the poller if signed in.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewLogin {
		return m.loginView.Start("")
	}

	return tea.Batch(
		m.loadCachedSnapshot(),
		m.refreshCmd(),
		m.poller.Start(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.inboxView.SetSize(contentWidth, contentHeight)
		m.detailView.SetSize(contentWidth, contentHeight)
		m.composeView.SetSize(contentWidth, contentHeight)
		m.loginView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case cachedSnapshotMsg:
		// Only paint the cached list while the first refresh is still
		// in flight; a live snapshot always wins.
		snap := m.store.Snapshot()
		if len(snap.Records) == 0 && len(msg.records) > 0 {
			cmd := m.inboxView.SetItems(inbox.Snapshot{Records: msg.records})
			return m, cmd
		}
		return m, nil

	case refreshDoneMsg:
		snap := m.store.Snapshot()
		m.unread = snap.Unread
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("refresh failed: %v", msg.err)
			return m, m.inboxView.Load()
		}
		m.statusMsg = ""
		return m, tea.Batch(m.inboxView.Load(), m.persistSnapshot(snap))

	case mutationDoneMsg:
		if msg.err != nil {
			// Optimistic state stays; just surface the failure.
			m.statusMsg = fmt.Sprintf("sync failed: %v", msg.err)
		}
		m.unread = m.store.UnreadCount()
		return m, m.inboxView.Load()

	case createDoneMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("create failed: %v", msg.err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("notification %s created", msg.notification.ID)
		m.unread = m.store.UnreadCount()
		m.currentView = ViewInbox
		return m, m.inboxView.Load()

	case appsync.NewNotificationsMsg:
		if msg.Count == 1 {
			m.toast = "1 new notification"
		} else {
			m.toast = fmt.Sprintf("%d new notifications", msg.Count)
		}
		return m, tea.Batch(
			m.poller.WaitForNextResult(),
			tea.Tick(toastDuration, func(time.Time) tea.Msg {
				return clearToastMsg{}
			}),
		)

	case appsync.CountSyncedMsg:
		m.unread = msg.Unread
		return m, m.poller.WaitForNextResult()

	case appsync.PollingStoppedMsg:
		// The session ended mid-lifetime (cleared or rejected).
		if _, ok := m.sess.Token(); !ok {
			return m.signOut("session expired, sign in again")
		}
		return m, m.poller.WaitForNextResult()

	case clearToastMsg:
		m.toast = ""
		return m, nil

	case inboxlist.LoadedMsg:
		var cmd tea.Cmd
		m.inboxView, cmd = m.inboxView.Update(msg)
		return m, cmd

	case inboxlist.SelectedMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		n := msg.Notification
		n.IsRead = true
		m.detailView.SetNotification(n)
		return m, m.markReadCmd(msg.Notification.ID)

	case detail.BackMsg:
		m.currentView = ViewInbox
		m.unread = m.store.UnreadCount()
		return m, m.inboxView.Load()

	case compose.SubmitMsg:
		return m, m.createCmd(msg.Input)

	case compose.CancelMsg:
		m.currentView = ViewInbox
		return m, nil

	case loginview.SubmitMsg:
		return m.signIn(msg.Token)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(string(msg))

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if handled, mdl, cmd := m.handleGlobalKey(msg); handled {
			return mdl, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey processes keys that work regardless of current view.
// Text-entry views only see ctrl+c so typing is never hijacked.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.poller.Stop()
		return true, m, tea.Quit
	}

	if m.currentView == ViewLogin || m.currentView == ViewCompose ||
		m.currentView == ViewCommand {
		return false, m, nil
	}

	switch msg.String() {
	case "q":
		if m.currentView == ViewInbox {
			m.poller.Stop()
			return true, m, tea.Quit
		}

	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}

	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return true, m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return true, m, nil

	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return true, m, m.commandView.Focus()

	case "r":
		if m.currentView == ViewInbox {
			return true, m, m.refreshCmd()
		}

	case "A":
		if m.currentView == ViewInbox {
			return true, m, m.markAllReadCmd()
		}

	case "n":
		if m.currentView == ViewInbox {
			m.previousView = m.currentView
			m.currentView = ViewCompose
			return true, m, m.composeView.Start()
		}

	case "ctrl+l":
		mdl, cmd := m.signOut("")
		return true, mdl, cmd
	}

	return false, m, nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewInbox:
		m.inboxView, cmd = m.inboxView.Update(msg)
	case ViewDetail:
		m.detailView, cmd = m.detailView.Update(msg)
	case ViewCompose:
		m.composeView, cmd = m.composeView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// signIn stores the credential, switches to the inbox, and spins up the
// refresh-and-poll machinery.
func (m Model) signIn(token string) (tea.Model, tea.Cmd) {
	if err := m.sess.SetToken(token); err != nil {
		// The in-memory session is still set; the keyring write is
		// best-effort persistence.
		log.Printf("storing credential: %v", err)
	}

	m.currentView = ViewInbox
	m.statusMsg = ""
	return m, tea.Batch(
		m.refreshCmd(),
		m.poller.Start(),
	)
}

// signOut tears the session down: polling stops, the store resets, and the
// login form comes back with an optional message.
func (m Model) signOut(message string) (tea.Model, tea.Cmd) {
	m.poller.Stop()
	if err := m.sess.Clear(); err != nil {
		log.Printf("clearing credential: %v", err)
	}
	m.store.Reset()
	m.unread = 0
	m.toast = ""
	m.statusMsg = ""
	m.currentView = ViewLogin
	return m, m.loginView.Start(message)
}

// executeCommand handles a command string from the command palette.
func (m Model) executeCommand(cmd string) (tea.Model, tea.Cmd) {
	switch cmd {
	case "refresh", "sync":
		return m, m.refreshCmd()
	case "read all", "mark all read":
		return m, m.markAllReadCmd()
	case "new", "compose":
		m.previousView = m.currentView
		m.currentView = ViewCompose
		return m, m.composeView.Start()
	case "logout", "sign out":
		return m.signOut("")
	case "quit", "q":
		m.poller.Stop()
		return m, tea.Quit
	default:
		m.statusMsg = fmt.Sprintf("unknown command %q", cmd)
		return m, nil
	}
}

// refreshCmd runs a full fetch-and-merge off the UI goroutine.
func (m Model) refreshCmd() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return refreshDoneMsg{err: s.Refresh(ctx)}
	}
}

// markReadCmd marks one notification read. The optimistic flip happens
// synchronously inside the store before the remote call is issued.
func (m Model) markReadCmd(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return mutationDoneMsg{err: s.MarkRead(ctx, id)}
	}
}

// markAllReadCmd marks everything read.
func (m Model) markAllReadCmd() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return mutationDoneMsg{err: s.MarkAllRead(ctx)}
	}
}

// createCmd stores a new notification on the platform.
func (m Model) createCmd(in gateway.CreateInput) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		n, err := s.Create(ctx, in)
		return createDoneMsg{notification: n, err: err}
	}
}

// loadCachedSnapshot reads the last persisted list for the first paint.
func (m Model) loadCachedSnapshot() tea.Cmd {
	if m.snapshots == nil {
		return nil
	}
	c := m.snapshots
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		records, err := c.LoadSnapshot(ctx)
		if err != nil {
			log.Printf("loading cached notifications: %v", err)
			return nil
		}
		return cachedSnapshotMsg{records: records}
	}
}

// persistSnapshot writes the refreshed list to the snapshot cache.
func (m Model) persistSnapshot(snap inbox.Snapshot) tea.Cmd {
	if m.snapshots == nil {
		return nil
	}
	c := m.snapshots
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.SaveSnapshot(ctx, snap.Records); err != nil {
			log.Printf("caching notifications: %v", err)
		}
		return nil
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("EV Charge Console", m.unread, m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewInbox:
		return m.inboxView.View()
	case ViewDetail:
		return m.detailView.View()
	case ViewCompose:
		return m.composeView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// headerStatus returns a short string for the right side of the header.
func (m Model) headerStatus() string {
	if m.toast != "" {
		return m.toast
	}
	if _, ok := m.sess.Token(); !ok {
		return "signed out"
	}
	if m.poller.Running() {
		return "polling"
	}
	return "idle"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show the last failure prominently when present.
	if m.statusMsg != "" && m.currentView == ViewInbox {
		return m.statusMsg
	}

	switch m.currentView {
	case ViewLogin:
		return "enter sign in"
	case ViewDetail:
		return "esc back | j/k scroll"
	case ViewCompose:
		return "enter submit | esc cancel"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	default:
		return "q quit | ? help | r refresh | A read all | n new | u unread only"
	}
}
