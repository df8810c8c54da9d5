package inboxlist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/evcharge-console/internal/inbox"
	"github.com/nhle/evcharge-console/internal/keys"
	"github.com/nhle/evcharge-console/internal/model"
	"github.com/nhle/evcharge-console/internal/theme"
)

// LoadedMsg is sent when a fresh snapshot has been taken from the store.
type LoadedMsg struct {
	Snapshot inbox.Snapshot
}

// SelectedMsg is sent when the user opens a notification.
type SelectedMsg struct {
	Notification model.Notification
}

// Model is the notification inbox list view.
type Model struct {
	list       list.Model
	store      *inbox.Store
	keys       *keys.KeyMap
	unreadOnly bool
	width      int
	height     int
}

// New creates a new inbox list model.
func New(s *inbox.Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, Delegate{}, width, height-2)
	l.Title = "Notifications"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		store:  s,
		keys:   k,
		width:  width,
		height: height,
	}
}

// Init returns a command that loads the initial snapshot.
func (m Model) Init() tea.Cmd {
	return m.Load()
}

// Load returns a command that snapshots the store for rendering.
func (m Model) Load() tea.Cmd {
	s := m.store
	return func() tea.Msg {
		return LoadedMsg{Snapshot: s.Snapshot()}
	}
}

// SetItems replaces the rendered rows from a store snapshot, applying the
// unread-only filter when active.
func (m *Model) SetItems(snap inbox.Snapshot) tea.Cmd {
	items := make([]list.Item, 0, len(snap.Records))
	for _, n := range snap.Records {
		if m.unreadOnly && n.IsRead {
			continue
		}
		items = append(items, Item{Notification: n})
	}
	return m.list.SetItems(items)
}

// Update handles messages for the inbox list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		cmd := m.SetItems(msg.Snapshot)
		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(Item)
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg {
				return SelectedMsg{Notification: item.Notification}
			}

		case key.Matches(msg, m.keys.ToggleUnread):
			m.unreadOnly = !m.unreadOnly
			return m, m.Load()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the inbox list.
func (m Model) View() string {
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}

// UnreadOnly reports whether the unread-only filter is active.
func (m Model) UnreadOnly() bool {
	return m.unreadOnly
}
