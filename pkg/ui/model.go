package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/papercomputeco/flowchat/pkg/chat"
)

const (
	appTitle     = "AI Chat Assistant"
	emptyPrompt  = "Send a message to start the conversation!"
	footerHint   = "enter send · ctrl+o conversations · /attach <ref> · ctrl+c quit"
	drawerWidth  = 36
	chromeHeight = 6 // header, input box, footer
)

// flowResultMsg carries the outcome of a flow run back to the event loop.
type flowResultMsg struct {
	result chat.Result
}

// Model is the top-level bubbletea model. All store mutations happen in
// Update; only the flow call runs in a command.
type Model struct {
	ctx    context.Context
	screen *chat.Screen
	logger *zap.Logger

	input      InputBar
	drawer     Drawer
	drawerOpen bool
	messages   *MessageView
	transcript viewport.Model
	spinner    spinner.Model
	pending    *chat.Request
	markdown   bool

	width  int
	height int
}

// Options configures a Model.
type Options struct {
	// Markdown renders bot replies with glamour.
	Markdown bool
}

// NewModel returns a model driving screen. ctx bounds every flow call.
func NewModel(ctx context.Context, screen *chat.Screen, logger *zap.Logger, opts Options) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = botLabelStyle

	m := &Model{
		ctx:        ctx,
		screen:     screen,
		logger:     logger,
		input:      NewInputBar(),
		drawer:     NewDrawer(),
		messages:   NewMessageView(80, opts.Markdown),
		transcript: viewport.New(80, 20),
		spinner:    sp,
		markdown:   opts.Markdown,
		width:      80,
		height:     24,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+o":
			m.drawerOpen = !m.drawerOpen
			m.resize(m.width, m.height)
			return m, nil
		}

		if m.drawerOpen {
			return m, m.drawer.Update(msg)
		}

		switch msg.String() {
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, cmd
		}
		return m, m.input.Update(msg)

	case SubmitMsg:
		return m, m.submit(msg)

	case flowResultMsg:
		m.screen.Complete(msg.result)
		m.pending = nil
		cmd := m.input.SetDisabled(false)
		m.refresh()
		return m, cmd

	case spinner.TickMsg:
		if m.pending == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshTranscript()
		return m, cmd

	case SelectConversationMsg:
		m.screen.SelectConversation(msg.ID)
		m.drawerOpen = false
		m.resize(m.width, m.height)
		return m, nil

	case NewConversationMsg:
		m.screen.NewConversation()
		m.drawerOpen = false
		m.resize(m.width, m.height)
		return m, nil

	case ClearConversationMsg:
		m.screen.ClearConversation(msg.ID)
		m.refresh()
		return m, nil

	case DeleteConversationMsg:
		m.screen.DeleteConversation(msg.ID)
		m.refresh()
		return m, nil

	case CloseDrawerMsg:
		m.drawerOpen = false
		m.resize(m.width, m.height)
		return m, nil
	}

	return m, m.input.Update(msg)
}

func (m *Model) submit(sub SubmitMsg) tea.Cmd {
	req, err := m.screen.Begin(sub.Text, sub.ImageSrc)
	if err != nil {
		if !errors.Is(err, chat.ErrEmptyInput) {
			m.logger.Warn("submission rejected", zap.Error(err))
		}
		return nil
	}

	m.pending = req
	m.input.SetDisabled(true)
	m.refresh()

	return tea.Batch(m.spinner.Tick, m.runFlow(req))
}

// runFlow performs the network call off the event loop.
func (m *Model) runFlow(req *chat.Request) tea.Cmd {
	ctx, screen := m.ctx, m.screen
	return func() tea.Msg {
		return flowResultMsg{result: screen.Execute(ctx, req)}
	}
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height

	mainWidth := width
	if m.drawerOpen {
		mainWidth = max(width-drawerWidth, 20)
		m.drawer.SetSize(drawerWidth, height)
	}

	m.input.SetWidth(mainWidth)
	m.messages.SetWidth(mainWidth-2, m.markdown)
	m.transcript.Width = mainWidth
	m.transcript.Height = max(height-chromeHeight, 3)
	m.refresh()
}

// refresh re-renders the drawer and the transcript from the store.
func (m *Model) refresh() {
	store := m.screen.Store()
	m.drawer.SetConversations(store.Conversations(), store.ActiveID())
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	active, ok := m.screen.Store().Active()
	if !ok {
		m.transcript.SetContent(mutedStyle.Render(emptyPrompt))
		return
	}

	parts := make([]string, 0, len(active.Messages)+1)
	for _, msg := range active.Messages {
		parts = append(parts, m.messages.Render(msg))
	}
	if m.pending != nil && m.pending.ConversationID == active.ID {
		parts = append(parts, m.messages.RenderLoading(m.spinner.View()))
	}
	if len(parts) == 0 {
		parts = append(parts, mutedStyle.Render(emptyPrompt))
	}

	m.transcript.SetContent(strings.Join(parts, "\n\n"))
	m.transcript.GotoBottom()
}

// View implements tea.Model.
func (m *Model) View() string {
	title := appTitle
	if active, ok := m.screen.Store().Active(); ok {
		title += " · " + active.Title
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(title),
		m.transcript.View(),
		m.input.View(m.transcript.Width),
		mutedStyle.Render(footerHint),
	)

	if !m.drawerOpen {
		return main
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.drawer.View(), main)
}

var _ tea.Model = (*Model)(nil)
