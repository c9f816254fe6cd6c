package profileedit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/campus/internal/api"
	"github.com/fragmede/campus/internal/session"
	"github.com/fragmede/campus/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

// Model edits the profile as a JSON object. Saving sends it as the patch.
type Model struct {
	textarea   textarea.Model
	session    *session.Manager
	err        string
	submitting bool
	width      int
	height     int
}

// New creates an edit form pre-filled with the current profile.
func New(mgr *session.Manager, current api.Profile) Model {
	ta := textarea.New()
	ta.Placeholder = `{"name": "..."}`
	ta.SetValue(pretty(current))
	ta.Focus()
	ta.SetWidth(80)
	ta.SetHeight(10)

	return Model{
		textarea: ta,
		session:  mgr,
	}
}

func pretty(p api.Profile) string {
	if p.IsZero() {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, p, "", "  "); err != nil {
		return string(p)
	}
	return buf.String()
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	tw := w - 4
	if tw > 100 {
		tw = 100
	}
	m.textarea.SetWidth(tw)
	th := h - 8
	if th < 5 {
		th = 5
	}
	m.textarea.SetHeight(th)
}

// Err returns the message currently shown under the editor.
func (m Model) Err() string {
	return m.err
}

// Save validates the text as a JSON object and sends it as the patch.
func (m Model) Save() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	text := strings.TrimSpace(m.textarea.Value())
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		m.err = "Profile must be a JSON object"
		return m, nil
	}
	m.submitting = true
	m.err = ""
	mgr := m.session
	patch := json.RawMessage(text)
	return m, func() tea.Msg {
		return messages.UpdateResultMsg{Result: mgr.UpdateProfile(context.Background(), patch)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.UpdateResultMsg:
		m.submitting = false
		if !msg.Result.Success {
			m.err = msg.Result.Error
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// View renders the edit form.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Edit profile"))
	sb.WriteString("\n\n")
	sb.WriteString(m.textarea.View())
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}

	if m.submitting {
		sb.WriteString("Saving...")
	} else {
		sb.WriteString(hintStyle.Render("Ctrl+S to save | Esc to cancel"))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}
