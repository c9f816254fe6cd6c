package register

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/campus/internal/session"
	"github.com/fragmede/campus/internal/ui/messages"
)

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true).
			Padding(1, 0)
)

// Roles offered by the form. The service assigns the final role.
var Roles = []string{"student", "teacher"}

const (
	fieldUsername = iota
	fieldEmail
	fieldPassword
	fieldCount
)

// Model is the registration form.
type Model struct {
	inputs     [fieldCount]textinput.Model
	role       int
	focusIndex int
	err        string
	submitting bool
	session    *session.Manager
	width      int
	height     int
}

// New creates an empty registration form.
func New(mgr *session.Manager) Model {
	var m Model
	m.session = mgr
	for i, ph := range []string{"username", "email", "password"} {
		in := textinput.New()
		in.Placeholder = ph
		in.Width = 30
		m.inputs[i] = in
	}
	m.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	m.inputs[fieldUsername].Focus()
	return m
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Role returns the currently selected role.
func (m Model) Role() string {
	return Roles[m.role]
}

// Err returns the message currently shown under the form.
func (m Model) Err() string {
	return m.err
}

// focus moves focus to field i; fieldCount selects the role picker.
func (m *Model) focus(i int) {
	m.focusIndex = (i + fieldCount + 1) % (fieldCount + 1)
	for j := range m.inputs {
		if j == m.focusIndex {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			m.focus(m.focusIndex + 1)
			return m, nil
		case "shift+tab", "up":
			m.focus(m.focusIndex - 1)
			return m, nil
		case "left", "right", " ":
			if m.focusIndex == fieldCount {
				m.role = (m.role + 1) % len(Roles)
				return m, nil
			}
		case "enter":
			if m.submitting {
				return m, nil
			}
			username := strings.TrimSpace(m.inputs[fieldUsername].Value())
			email := strings.TrimSpace(m.inputs[fieldEmail].Value())
			password := m.inputs[fieldPassword].Value()
			if username == "" || email == "" || password == "" {
				m.err = "Username, email and password required"
				return m, nil
			}
			m.submitting = true
			m.err = ""
			mgr, role := m.session, m.Role()
			return m, func() tea.Msg {
				res := mgr.Register(context.Background(), username, email, password, role)
				return messages.RegisterResultMsg{Email: email, Result: res}
			}
		}

	case messages.RegisterResultMsg:
		m.submitting = false
		if !msg.Result.Success {
			m.err = msg.Result.Error
		}
		return m, nil
	}

	if m.focusIndex == fieldCount {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

// View renders the registration form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Create an account"))
	sb.WriteString("\n\n")
	for i, label := range []string{"Username:", "Email:", "Password:"} {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString("\n")
		sb.WriteString(m.inputs[i].View())
		sb.WriteString("\n\n")
	}

	sb.WriteString(labelStyle.Render("Role:"))
	sb.WriteString(" ")
	for i, r := range Roles {
		if i == m.role {
			sb.WriteString(focusedStyle.Render("[" + r + "]"))
		} else {
			sb.WriteString(hintStyle.Render(" " + r + " "))
		}
		sb.WriteString(" ")
	}
	if m.focusIndex == fieldCount {
		sb.WriteString(hintStyle.Render("(space to change)"))
	}
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n\n")
	}

	if m.submitting {
		sb.WriteString("Registering...")
	} else {
		sb.WriteString(focusedStyle.Render("Enter") + " to submit, " + focusedStyle.Render("Esc") + " to cancel")
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}
