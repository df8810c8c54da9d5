package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/evcharge-console/internal/theme"
)

// SubmitMsg is dispatched when the user submits a credential.
type SubmitMsg struct {
	Token string
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	token string
}

// Model is the sign-in form shown while no session is present.
type Model struct {
	form    *huh.Form
	fb      *formBindings
	message string
	width   int
	height  int
}

// New creates a new login form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start initializes the form, optionally showing a message explaining why
// the user landed here (e.g. an expired session).
func (m *Model) Start(message string) tea.Cmd {
	m.message = message
	m.fb.token = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API Token").
				Placeholder("Paste your platform access token").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.token).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a token is required")
					}
					return nil
				}),
		),
	).WithWidth(m.width - 8)
	return m.form.Init()
}

// Update handles messages for the login form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		token := strings.TrimSpace(m.fb.token)
		m.form = nil
		return m, func() tea.Msg { return SubmitMsg{Token: token} }
	}
	if m.form.State == huh.StateAborted {
		// Nothing to go back to without a session; re-arm the form.
		return m, m.Start(m.message)
	}

	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	parts := []string{titleStyle.Render("Sign In")}
	if m.message != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.message))
	}
	parts = append(parts, m.form.View())

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(strings.Join(parts, "\n"))
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
