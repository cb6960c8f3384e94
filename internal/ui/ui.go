package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/snooze/internal/lifecycle"
	"github.com/desertthunder/snooze/internal/models"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FeedView ViewState = iota
	FavoritesView
	LoginView
	SignupView
	SubmitView
)

// Controller is the state the TUI renders and the actions it triggers.
//
// Implemented by [lifecycle.Controller].
type Controller interface {
	Startup(ctx context.Context) error
	State() lifecycle.State
	Session() *models.Session
	Feed() []models.Story
	FavoriteStories() []models.Story
	IsFavorite(storyID string) bool
	Pending(storyID string) bool
	Login(ctx context.Context, identity, secret string) (*models.Session, error)
	CreateAccount(ctx context.Context, identity, secret, displayName string) (*models.Session, error)
	Logout(ctx context.Context) error
	SubmitStory(ctx context.Context, draft models.StoryDraft) (*models.Story, error)
	ToggleFavorite(ctx context.Context, storyID string) (bool, error)
	RefreshFeed(ctx context.Context) ([]models.Story, error)
	Subscribe() <-chan lifecycle.Event
}

var _ Controller = (*lifecycle.Controller)(nil)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	ctrl     Controller
	events   <-chan lifecycle.Event
	view     ViewState
	feedList list.Model
	favList  list.Model
	form     form
	status   string
	err      error
	busy     bool
	width    int
	height   int
	help     help.Model
	keys     keyMap
}

// NewModel creates a new TUI model rendering ctrl.
func NewModel(ctx context.Context, ctrl Controller) *Model {
	return &Model{
		ctx:      ctx,
		ctrl:     ctrl,
		events:   ctrl.Subscribe(),
		view:     FeedView,
		feedList: newStoryList("Stories"),
		favList:  newStoryList("Favorites"),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

func newStoryList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()
	return l
}

// Init starts the controller and begins listening for its events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.startup(), m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.feedList.SetSize(msg.Width-4, msg.Height-8)
		m.favList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case FeedView, FavoritesView:
			return m.handleListKeys(msg)
		default:
			return m.handleFormKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgStartupComplete:
		m.err = msg.err()
		return m, m.rebuild()

	case MsgEvent:
		ev := msg.data.(lifecycle.Event)
		m.status = ev.Message
		m.err = ev.Err
		return m, tea.Batch(m.rebuild(), m.waitForEvent())

	case MsgEventsClosed:
		return m, nil

	case MsgActionDone:
		m.busy = false
		if err := msg.err(); err != nil {
			m.err = err
			return m, m.rebuild()
		}
		m.err = nil
		if m.view != FeedView && m.view != FavoritesView {
			m.view = FeedView
		}
		return m, m.rebuild()
	}
	return m, nil
}

// rebuild re-reads the controller state into both lists.
func (m *Model) rebuild() tea.Cmd {
	signedIn := m.ctrl.State() == lifecycle.Authenticated

	items := func(stories []models.Story) []list.Item {
		out := make([]list.Item, len(stories))
		for i, s := range stories {
			out[i] = storyItem{
				story:    s,
				signedIn: signedIn,
				favorite: m.ctrl.IsFavorite(s.ID),
				pending:  m.ctrl.Pending(s.ID),
			}
		}
		return out
	}

	return tea.Batch(
		m.feedList.SetItems(items(m.ctrl.Feed())),
		m.favList.SetItems(items(m.ctrl.FavoriteStories())),
	)
}

func (m *Model) activeList() *list.Model {
	if m.view == FavoritesView {
		return &m.favList
	}
	return &m.feedList
}

func (m *Model) signedIn() bool {
	return m.ctrl.State() == lifecycle.Authenticated
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	active := m.activeList()
	if active.FilterState() == list.Filtering {
		var cmd tea.Cmd
		*active, cmd = active.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.switchTab):
		if m.view == FeedView {
			m.view = FavoritesView
		} else {
			m.view = FeedView
		}
		return m, nil

	case key.Matches(msg, m.keys.favorite):
		item, ok := active.SelectedItem().(storyItem)
		if !ok {
			return m, nil
		}
		if !m.signedIn() {
			m.err = fmt.Errorf("log in to star stories")
			return m, nil
		}
		return m, m.toggle(item.story.ID)

	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.submit):
		if !m.signedIn() {
			m.err = fmt.Errorf("log in to submit stories")
			return m, nil
		}
		return m.openForm(SubmitView, newSubmitForm())

	case key.Matches(msg, m.keys.login):
		if m.signedIn() {
			return m, nil
		}
		return m.openForm(LoginView, newLoginForm())

	case key.Matches(msg, m.keys.signup):
		if m.signedIn() {
			return m, nil
		}
		return m.openForm(SignupView, newSignupForm())

	case key.Matches(msg, m.keys.logout):
		if !m.signedIn() {
			return m, nil
		}
		m.view = FeedView
		return m, m.logout()
	}

	var cmd tea.Cmd
	*active, cmd = active.Update(msg)
	return m, cmd
}

func (m *Model) openForm(view ViewState, f form) (tea.Model, tea.Cmd) {
	m.view = view
	m.form = f
	m.err = nil
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = FeedView
		m.err = nil
		return m, nil
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.submitForm()
	}
	return m, m.form.update(msg)
}

func (m *Model) submitForm() tea.Cmd {
	vals := m.form.values()
	ctx, ctrl := m.ctx, m.ctrl

	switch m.view {
	case LoginView:
		return func() tea.Msg {
			_, err := ctrl.Login(ctx, vals[0], vals[1])
			return actionDoneMsg("login", err)
		}
	case SignupView:
		return func() tea.Msg {
			_, err := ctrl.CreateAccount(ctx, vals[1], vals[2], vals[0])
			return actionDoneMsg("signup", err)
		}
	case SubmitView:
		draft := models.StoryDraft{Author: vals[0], Title: vals[1], URL: vals[2]}
		return func() tea.Msg {
			_, err := ctrl.SubmitStory(ctx, draft)
			return actionDoneMsg("submit", err)
		}
	}
	m.busy = false
	return nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case FeedView:
		m.feedList, cmd = m.feedList.Update(msg)
	case FavoritesView:
		m.favList, cmd = m.favList.Update(msg)
	}
	return m, cmd
}

func (m *Model) startup() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return startupCompleteMsg(ctrl.Startup(ctx))
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg()
		}
		return eventMsg(ev)
	}
}

func (m *Model) toggle(storyID string) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		_, err := ctrl.ToggleFavorite(ctx, storyID)
		return actionDoneMsg("toggle", err)
	}
}

func (m *Model) refresh() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		_, err := ctrl.RefreshFeed(ctx)
		return actionDoneMsg("refresh", err)
	}
}

func (m *Model) logout() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return actionDoneMsg("logout", ctrl.Logout(ctx))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case FeedView:
		body = m.feedList.View()
	case FavoritesView:
		body = m.favList.View()
	default:
		body = m.form.view()
	}

	return strings.Join([]string{m.renderHeader(), body, m.renderStatus(), m.renderHelp()}, "\n")
}

func (m *Model) renderHeader() string {
	who := styles.help.Render("not signed in")
	if sess := m.ctrl.Session(); sess != nil {
		name := sess.DisplayName
		if name == "" {
			name = sess.Identity
		}
		who = styles.ok.Render("signed in as " + name)
	}

	tabs := []string{"feed", "favorites"}
	for i, t := range tabs {
		if ViewState(i) == m.view {
			tabs[i] = styles.active.Render(t)
		}
	}
	return fmt.Sprintf("%s  %s   %s", styles.title.Render("snooze"), strings.Join(tabs, " | "), who)
}

func (m *Model) renderStatus() string {
	switch {
	case m.err != nil:
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.busy:
		return styles.warn.Render("Working...")
	case m.status != "":
		return styles.ok.Render(m.status)
	}
	return ""
}

func (m *Model) renderHelp() string {
	var keys []key.Binding
	switch m.view {
	case FeedView, FavoritesView:
		keys = []key.Binding{m.keys.switchTab, m.keys.refresh}
		if m.signedIn() {
			keys = append(keys, m.keys.favorite, m.keys.submit, m.keys.logout)
		} else {
			keys = append(keys, m.keys.login, m.keys.signup)
		}
		keys = append(keys, m.keys.quit)
	default:
		keys = []key.Binding{m.keys.next, m.keys.confirm, m.keys.back}
	}
	return m.help.ShortHelpView(keys)
}
