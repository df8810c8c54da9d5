package detail

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/evcharge-console/internal/model"
	"github.com/nhle/evcharge-console/internal/theme"
)

// BackMsg is sent when the user leaves the detail view.
type BackMsg struct{}

// Model is the single-notification detail view.
type Model struct {
	notification model.Notification
	viewport     viewport.Model
	width        int
	height       int
}

// New creates a new detail view model.
func New(width, height int) Model {
	vp := viewport.New(width-8, height-10)
	return Model{
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// SetNotification switches the view to the given notification.
func (m *Model) SetNotification(n model.Notification) {
	m.notification = n
	m.viewport.SetContent(n.Content)
	m.viewport.GotoTop()
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, func() tea.Msg { return BackMsg{} }
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the notification detail panel.
func (m Model) View() string {
	n := m.notification

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)

	badge := theme.CategoryStyle(n.Category).Render(string(n.Category))

	meta := n.CreatedAt.Format("Jan 02, 2006 15:04")
	if n.IsRead {
		meta += " | read"
	} else {
		meta += " | unread"
	}

	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		badge, " ", titleStyle.Render(n.Title),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		theme.DimmedStyle.Render(meta),
		"",
		m.viewport.View(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 8
	m.viewport.Height = height - 10
}
