package profile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/campus/internal/render"
	"github.com/fragmede/campus/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6600")).Bold(true).Padding(1, 0)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Bold(true)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	roleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#FF6600")).Bold(true).Padding(0, 1)
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Padding(1, 0)
	textStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
)

// Model is the home view: the signed-in user's profile, or a prompt to log in.
type Model struct {
	state  session.State
	width  int
	height int
}

func New() Model {
	return Model{state: session.State{Loading: true}}
}

// SetState replaces the session snapshot being shown.
func (m *Model) SetState(s session.State) {
	m.state = s
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders the profile.
func (m Model) View() string {
	s := m.state
	switch {
	case s.Loading:
		return titleStyle.Render("Checking session...")
	case !s.LoggedIn():
		return titleStyle.Render("Not logged in") + "\n" +
			hintStyle.Render("Log in or create an account to continue.")
	case s.User.IsZero():
		return titleStyle.Render("Logged in") + " " + roleStyle.Render(s.Role) + "\n" +
			hintStyle.Render("Profile not loaded yet.")
	}

	var sb strings.Builder
	name := s.User.DisplayName()
	if name == "" {
		name = "Profile"
	}
	sb.WriteString(titleStyle.Render(name))
	if s.Role != "" {
		sb.WriteString(" " + roleStyle.Render(s.Role))
	}
	sb.WriteString("\n")

	fields := s.User.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	width := m.width - 4
	for _, k := range keys {
		sb.WriteString(labelStyle.Render(k + ": "))
		sb.WriteString(formatValue(fields[k], width))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatValue(v any, width int) string {
	switch v := v.(type) {
	case nil:
		return valueStyle.Render("-")
	case string:
		text := render.Wrap(v, width)
		if render.LooksLikeHTML(v) {
			text = render.HTMLToText(v, width)
		}
		if strings.Contains(text, "\n") {
			return "\n" + textStyle.Render(text)
		}
		return valueStyle.Render(text)
	case float64, bool:
		return valueStyle.Render(fmt.Sprint(v))
	default:
		data, _ := json.Marshal(v)
		return valueStyle.Render(render.Truncate(string(data), max(width, 20)))
	}
}
