package ui

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fragmede/campus/internal/logging"
	"github.com/fragmede/campus/internal/session"
	"github.com/fragmede/campus/internal/ui/login"
	"github.com/fragmede/campus/internal/ui/messages"
	"github.com/fragmede/campus/internal/ui/profile"
	"github.com/fragmede/campus/internal/ui/profileedit"
	"github.com/fragmede/campus/internal/ui/register"
	"github.com/fragmede/campus/internal/ui/statusbar"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewHome ViewType = iota
	ViewLogin
	ViewRegister
	ViewEditProfile
)

// App is the root Bubble Tea model.
type App struct {
	// View state
	activeView    ViewType
	previousViews []ViewType

	// Child models
	home         profile.Model
	loginForm    login.Model
	registerForm register.Model
	editForm     profileedit.Model
	statusBar    statusbar.Model

	// Shared state
	session *session.Manager
	state   session.State
	updates <-chan session.State
	log     *slog.Logger

	// Dimensions
	width  int
	height int
}

// NewApp creates the root application model. ctx bounds the session
// subscription; cancel it when the program exits.
func NewApp(ctx context.Context, mgr *session.Manager, log *slog.Logger) *App {
	if log == nil {
		log = logging.NewNop()
	}
	return &App{
		activeView: ViewHome,
		home:       profile.New(),
		statusBar:  statusbar.New(),
		session:    mgr,
		state:      mgr.State(),
		updates:    mgr.Subscribe(ctx),
		log:        log,
	}
}

// ActiveView reports which view is showing.
func (a *App) ActiveView() ViewType {
	return a.activeView
}

// Init starts the session restore and begins listening for state changes.
func (a *App) Init() tea.Cmd {
	mgr := a.session
	restore := func() tea.Msg {
		mgr.Restore(context.Background())
		return nil
	}
	return tea.Batch(restore, a.waitForState())
}

// waitForState delivers the next published state as a message.
func (a *App) waitForState() tea.Cmd {
	ch := a.updates
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return messages.SessionChangedMsg{State: s}
	}
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := msg.Height - 1 // Reserve 1 line for status bar.
		a.home.SetSize(msg.Width, contentHeight)
		a.statusBar.SetSize(msg.Width)
		switch a.activeView {
		case ViewLogin:
			a.loginForm.SetSize(msg.Width, contentHeight)
		case ViewRegister:
			a.registerForm.SetSize(msg.Width, contentHeight)
		case ViewEditProfile:
			a.editForm.SetSize(msg.Width, contentHeight)
		}
		return a, nil

	case tea.KeyMsg:
		if a.activeView == ViewHome {
			switch {
			case key.Matches(msg, Keys.Quit):
				return a, tea.Quit
			case key.Matches(msg, Keys.Login):
				return a, a.openLogin("")
			case key.Matches(msg, Keys.Register):
				return a, func() tea.Msg { return messages.OpenRegisterMsg{} }
			case key.Matches(msg, Keys.Logout):
				if a.state.LoggedIn() {
					a.session.Logout()
					a.statusBar.SetStatus("Logged out", false)
				}
				return a, nil
			case key.Matches(msg, Keys.Edit):
				return a, func() tea.Msg { return messages.OpenEditProfileMsg{} }
			case key.Matches(msg, Keys.Refresh):
				if !a.state.LoggedIn() {
					return a, nil
				}
				mgr := a.session
				a.statusBar.SetStatus("Refreshing...", false)
				return a, func() tea.Msg {
					return messages.RefreshResultMsg{Err: mgr.RefreshProfile(context.Background())}
				}
			}
			return a, nil
		}
		// Text input views: Esc goes back, ctrl+c quits, everything else goes to the form.
		switch {
		case key.Matches(msg, Keys.Back):
			return a, a.goBack()
		case msg.String() == "ctrl+c":
			return a, tea.Quit
		case a.activeView == ViewEditProfile && key.Matches(msg, Keys.Save):
			var cmd tea.Cmd
			a.editForm, cmd = a.editForm.Save()
			return a, cmd
		}

	case messages.SessionChangedMsg:
		a.state = msg.State
		a.home.SetState(msg.State)
		a.statusBar.SetState(msg.State)
		if a.activeView == ViewEditProfile && !msg.State.LoggedIn() {
			a.activeView = ViewHome
			a.previousViews = nil
		}
		return a, a.waitForState()

	case messages.OpenLoginMsg:
		return a, a.openLogin(msg.Email)

	case messages.OpenRegisterMsg:
		if !a.state.LoggedIn() {
			a.pushView(ViewRegister)
			a.registerForm = register.New(a.session)
			a.registerForm.SetSize(a.width, a.height-1)
		}
		return a, nil

	case messages.OpenEditProfileMsg:
		if !a.state.LoggedIn() {
			return a, a.openLogin("")
		}
		if a.state.User.IsZero() {
			a.statusBar.SetStatus("Profile not loaded yet", true)
			return a, nil
		}
		a.pushView(ViewEditProfile)
		a.editForm = profileedit.New(a.session, a.state.User)
		a.editForm.SetSize(a.width, a.height-1)
		return a, nil

	case messages.GoBackMsg:
		return a, a.goBack()

	case messages.LoginResultMsg:
		if msg.Result.Success {
			a.statusBar.SetStatus("Logged in as "+msg.Result.Role, false)
			a.log.Info("login from ui", slog.String("role", msg.Result.Role))
			return a, a.goBack()
		}
		if a.state.LoggedIn() {
			// Token committed but the profile did not load.
			a.statusBar.SetStatus(msg.Result.Error+" (r to retry)", true)
			return a, a.goBack()
		}
		// Let the login form show the error.

	case messages.RegisterResultMsg:
		if msg.Result.Success {
			a.statusBar.SetStatus("Registered as "+msg.Result.Role+", please log in", false)
			a.goBack()
			return a, a.openLogin(msg.Email)
		}

	case messages.UpdateResultMsg:
		if msg.Result.Success {
			a.statusBar.SetStatus("Profile saved", false)
			return a, a.goBack()
		}

	case messages.RefreshResultMsg:
		if msg.Err != nil {
			a.statusBar.SetStatus("Refresh failed", true)
		} else {
			a.statusBar.SetStatus("", false)
		}
		return a, nil

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
		return a, nil
	}

	// Route to active view.
	var cmd tea.Cmd
	switch a.activeView {
	case ViewLogin:
		a.loginForm, cmd = a.loginForm.Update(msg)
		cmds = append(cmds, cmd)
	case ViewRegister:
		a.registerForm, cmd = a.registerForm.Update(msg)
		cmds = append(cmds, cmd)
	case ViewEditProfile:
		a.editForm, cmd = a.editForm.Update(msg)
		cmds = append(cmds, cmd)
	}

	a.statusBar, cmd = a.statusBar.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View renders the application.
func (a *App) View() string {
	var content string
	switch a.activeView {
	case ViewHome:
		content = ContentStyle.Render(a.home.View() + "\n\n" + Help())
	case ViewLogin:
		content = a.loginForm.View()
	case ViewRegister:
		content = a.registerForm.View()
	case ViewEditProfile:
		content = a.editForm.View()
	}

	if a.height > 0 {
		content = lipgloss.PlaceVertical(a.height-1, lipgloss.Top, content)
	}
	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
}

// Help renders the key bindings for the home view.
func Help() string {
	bindings := []key.Binding{Keys.Login, Keys.Register, Keys.Edit, Keys.Refresh, Keys.Logout, Keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, HelpKeyStyle.Render(h.Key)+" "+HelpStyle.Render(h.Desc))
	}
	return strings.Join(parts, "  ")
}

func (a *App) openLogin(email string) tea.Cmd {
	if a.state.LoggedIn() && !a.state.User.IsZero() {
		return nil
	}
	a.pushView(ViewLogin)
	a.loginForm = login.New(a.session, email)
	a.loginForm.SetSize(a.width, a.height-1)
	return nil
}

func (a *App) pushView(v ViewType) {
	a.previousViews = append(a.previousViews, a.activeView)
	a.activeView = v
}

func (a *App) goBack() tea.Cmd {
	if len(a.previousViews) > 0 {
		a.activeView = a.previousViews[len(a.previousViews)-1]
		a.previousViews = a.previousViews[:len(a.previousViews)-1]
	} else {
		a.activeView = ViewHome
	}
	return nil
}
