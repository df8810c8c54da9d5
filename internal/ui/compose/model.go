package compose

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/evcharge-console/internal/gateway"
	"github.com/nhle/evcharge-console/internal/model"
	"github.com/nhle/evcharge-console/internal/theme"
)

// SubmitMsg is dispatched when the compose form is submitted.
type SubmitMsg struct {
	Input gateway.CreateInput
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title    string
	content  string
	category string
}

// Model is the Bubble Tea model for the create-notification form used by
// station staff and administrators.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new compose form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{category: string(model.CategoryGeneral)},
		width:  width,
		height: height,
	}
}

// Start initializes the form for composing a new notification.
func (m *Model) Start() tea.Cmd {
	m.fb.title = ""
	m.fb.content = ""
	m.fb.category = string(model.CategoryGeneral)
	m.form = m.buildForm()
	return m.form.Init()
}

// buildForm assembles the huh form. The category selector only offers the
// closed tag set, and the validator rejects anything outside it anyway.
func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[string], 0, len(model.Categories))
	for _, c := range model.Categories {
		opts = append(opts, huh.NewOption(string(c), string(c)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("Notification headline").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Content").
				Placeholder("Notification body...").
				Value(&m.fb.content).
				Validate(validateRequired("Content")),
			huh.NewSelect[string]().
				Title("Category").
				Options(opts...).
				Value(&m.fb.category).
				Validate(validateCategory),
		),
	).WithWidth(m.width - 8).WithHeight(m.height - 6)
}

// Update handles messages for the compose form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		input := gateway.CreateInput{
			Title:    strings.TrimSpace(m.fb.title),
			Content:  strings.TrimSpace(m.fb.content),
			Category: model.Category(m.fb.category),
		}
		m.form = nil
		return m, func() tea.Msg { return SubmitMsg{Input: input} }
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the compose form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Notification") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateCategory(s string) error {
	if !model.Category(s).Valid() {
		return fmt.Errorf("unknown category %q", s)
	}
	return nil
}
