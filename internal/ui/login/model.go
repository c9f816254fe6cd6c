package login

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
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true).MarginBottom(1)
	fieldStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).MarginTop(1)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(1, 3)
)

const (
	fieldEmail = iota
	fieldPassword
	numFields
)

var fieldLabels = [numFields]string{"Email", "Password"}

// Model asks for the credentials passed to Manager.Login.
type Model struct {
	fields  [numFields]textinput.Model
	active  int
	err     string
	pending bool
	session *session.Manager
	width   int
	height  int
}

// New returns the form. A non-empty email is filled in and the cursor starts
// on the password.
func New(mgr *session.Manager, email string) Model {
	m := Model{session: mgr}
	for i := range m.fields {
		in := textinput.New()
		in.Prompt = "› "
		in.CharLimit = 254
		in.Width = 32
		m.fields[i] = in
	}
	m.fields[fieldEmail].Placeholder = "you@school.edu"
	m.fields[fieldEmail].SetValue(email)
	m.fields[fieldPassword].EchoMode = textinput.EchoPassword
	m.fields[fieldPassword].EchoCharacter = '•'

	start := fieldEmail
	if email != "" {
		start = fieldPassword
	}
	m.setActive(start)
	return m
}

func (m *Model) SetSize(w, h int) {
	m.width, m.height = w, h
}

// Err returns the message currently shown under the form.
func (m Model) Err() string {
	return m.err
}

func (m *Model) setActive(i int) {
	m.active = (i + numFields) % numFields
	for j := range m.fields {
		if j == m.active {
			m.fields[j].Focus()
		} else {
			m.fields[j].Blur()
		}
	}
}

// submit validates the form and returns the login command.
func (m Model) submit() (Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	email := strings.TrimSpace(m.fields[fieldEmail].Value())
	secret := m.fields[fieldPassword].Value()
	switch {
	case email == "":
		m.err = "Enter your email"
		m.setActive(fieldEmail)
		return m, nil
	case secret == "":
		m.err = "Enter your password"
		m.setActive(fieldPassword)
		return m, nil
	}

	m.pending, m.err = true, ""
	mgr := m.session
	return m, func() tea.Msg {
		return messages.LoginResultMsg{Result: mgr.Login(context.Background(), email, secret)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.LoginResultMsg:
		m.pending = false
		if !msg.Result.Success {
			m.err = msg.Result.Error
			m.fields[fieldPassword].Reset()
			m.setActive(fieldPassword)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyTab, tea.KeyDown:
			m.setActive(m.active + 1)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.setActive(m.active - 1)
			return m, nil
		case tea.KeyEnter:
			if m.active == fieldEmail && m.fields[fieldPassword].Value() == "" {
				m.setActive(fieldPassword)
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.fields[m.active], cmd = m.fields[m.active].Update(msg)
	return m, cmd
}

// View renders the form centered in the viewport.
func (m Model) View() string {
	rows := []string{headerStyle.Render("Log in to campus")}
	for i, f := range m.fields {
		rows = append(rows, fieldStyle.Render(fieldLabels[i]), f.View(), "")
	}

	if m.pending {
		rows = append(rows, mutedStyle.Render("Checking credentials..."))
	} else {
		rows = append(rows,
			accentStyle.Render("enter")+mutedStyle.Render(" log in  ")+
				accentStyle.Render("esc")+mutedStyle.Render(" cancel"),
			mutedStyle.Render("No account yet? esc, then R."),
		)
	}
	if m.err != "" {
		rows = append(rows, failStyle.Render(m.err))
	}

	form := boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}
