// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/config"
	"github.com/jeranaias/auditchat/internal/model"
	"github.com/jeranaias/auditchat/internal/offline"
	"github.com/jeranaias/auditchat/internal/protocol"
	"github.com/jeranaias/auditchat/internal/ui/styles"
)

// NoticeTTL is how long a notification stays in the status bar.
const NoticeTTL = 5 * time.Second

// Layout constants.
const (
	sidebarWidth    = 30
	minSidebarWidth = 80 // terminal width below which the sidebar is hidden
	composerPrompt  = "> "
	renamePrompt    = "rename> "
)

// =============================================================================
// FOCUS
// =============================================================================

// Focus is the pane receiving key presses.
type Focus int

const (
	FocusComposer Focus = iota
	FocusSidebar
)

// =============================================================================
// MESSAGES
// =============================================================================

// ConfigChangedMsg carries a reloaded configuration.
type ConfigChangedMsg struct {
	Config *config.Config
}

type noticeExpiredMsg struct {
	seq int
}

type notice struct {
	level protocol.Level
	text  string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configure the chat model. Controller is required.
type Options struct {
	Controller *protocol.Controller
	Theme      *styles.Theme
	ShowScores bool

	// Watcher, when set, feeds configuration reloads into the model.
	Watcher *config.Watcher
	// Monitor, when set, follows the offline.forced setting on reload.
	Monitor *offline.Monitor
	// OnConfig is called with every reloaded config after the UI applied it.
	OnConfig func(*config.Config)

	Context context.Context
	Logger  *zap.Logger
}

// Model is the Bubble Tea model for the chat screen. It renders the
// controller's state and implements protocol.Renderer.
type Model struct {
	ctrl    *protocol.Controller
	theme   *styles.Theme
	keys    KeyMap
	help    help.Model
	md      *markdown
	watcher *config.Watcher
	monitor *offline.Monitor
	ctx     context.Context
	logger  *zap.Logger

	onConfig func(*config.Config)

	// Dimensions
	width  int
	height int

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	focus Focus

	// Open conversation
	conversationID string
	title          string
	turns          []*model.Turn

	// Sidebar
	conversations []model.Conversation
	selected      int
	confirmDelete string

	// Rename mode reuses the composer.
	renameID string
	draft    string

	showLedger bool
	showScores bool
	showHelp   bool

	notice         notice
	noticeSeq      int
	scheduledSeq   int
	followUpCursor int
}

// New creates the chat model and registers it as the controller's renderer.
func New(opts Options) *Model {
	ti := textinput.New()
	ti.Prompt = composerPrompt
	ti.Placeholder = "Ask something..."
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ModeAuto)
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &Model{
		ctrl:       opts.Controller,
		theme:      theme,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		md:         newMarkdown(theme.MarkdownStyle()),
		watcher:    opts.Watcher,
		monitor:    opts.Monitor,
		onConfig:   opts.OnConfig,
		ctx:        ctx,
		logger:     logger,
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		title:      model.DefaultTitle,
		showScores: opts.ShowScores,
	}
	m.applyTheme()
	m.ctrl.SetRenderer(m)
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink, the spinner, the controller bootstrap and
// the configuration listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.ctrl.Init(),
		m.waitConfigCmd(),
	)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleResize(msg)
		return m, nil

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, m.settle(cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if !m.ctrl.Idle() {
			m.refreshTranscript(false)
		}
		return m, cmd

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = notice{}
		}
		return m, nil

	case ConfigChangedMsg:
		m.applyConfig(msg.Config)
		return m, m.settle(m.waitConfigCmd())
	}

	return m, m.settle(m.ctrl.Update(msg))
}

// View renders the screen.
func (m *Model) View() string {
	return m.renderScreen()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Focus returns the pane receiving key presses.
func (m *Model) Focus() Focus {
	return m.focus
}

// Input returns the composer's current text.
func (m *Model) Input() string {
	return m.input.Value()
}

// Turns returns the displayed transcript.
func (m *Model) Turns() []*model.Turn {
	return m.turns
}

// Title returns the displayed conversation title.
func (m *Model) Title() string {
	return m.title
}

// Notice returns the current notification text, or "" when none is shown.
func (m *Model) Notice() string {
	return m.notice.text
}

// =============================================================================
// HANDLERS
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	// header (1) + composer (2) + status bar (1)
	vpHeight := m.height - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = vpHeight
	m.input.Width = m.transcriptWidth() - len(composerPrompt) - 2
	m.help.Width = m.width
	m.md.resize(m.transcriptWidth() - 2)
	m.refreshTranscript(true)
}

// settle runs after every state change: it keeps the composer disabled while
// a send is in flight, redraws the transcript and schedules expiry of a
// freshly posted notice.
func (m *Model) settle(cmd tea.Cmd) tea.Cmd {
	if m.ctrl.Busy() {
		m.input.Blur()
	} else if m.focus == FocusComposer && !m.input.Focused() {
		m.input.Focus()
	}
	m.refreshTranscript(false)

	if m.noticeSeq == m.scheduledSeq {
		return cmd
	}
	m.scheduledSeq = m.noticeSeq
	seq := m.noticeSeq
	expire := tea.Tick(NoticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
	return tea.Batch(cmd, expire)
}

func (m *Model) waitConfigCmd() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	changes := m.watcher.Changes()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case cfg := <-changes:
			return ConfigChangedMsg{Config: cfg}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	m.theme = styles.NewTheme(cfg.UI.Theme)
	m.md = newMarkdown(m.theme.MarkdownStyle())
	m.md.resize(m.transcriptWidth() - 2)
	m.showScores = cfg.UI.ShowScores
	if m.monitor != nil {
		m.monitor.SetForced(cfg.Offline.Forced)
	}
	m.applyTheme()
	if m.onConfig != nil {
		m.onConfig(cfg)
	}
	m.logger.Info("configuration reloaded", zap.String("theme", cfg.UI.Theme))
	m.Notify(protocol.LevelInfo, "Configuration reloaded")
}

func (m *Model) applyTheme() {
	m.input.PromptStyle = m.theme.InputPrompt
	m.input.PlaceholderStyle = m.theme.InputPlaceholder
	m.spinner.Style = m.theme.Spinner
}

func (m *Model) transcriptWidth() int {
	if m.width == 0 {
		return 80
	}
	if m.sidebarVisible() {
		return m.width - sidebarWidth - 1
	}
	return m.width
}

func (m *Model) sidebarVisible() bool {
	return m.width >= minSidebarWidth
}
