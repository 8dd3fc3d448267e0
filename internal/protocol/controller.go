// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/conversation"
	"github.com/jeranaias/auditchat/internal/offline"
	"github.com/jeranaias/auditchat/internal/session"
	"github.com/jeranaias/auditchat/internal/storage"
)

// Defaults for audit polling and request deadlines.
const (
	DefaultMaxAttempts    = 10
	DefaultInterval       = 2 * time.Second
	DefaultRequestTimeout = 60 * time.Second
)

// Options configure a Controller. Gateway is required.
type Options struct {
	Gateway  Gateway
	Renderer Renderer
	Store    *conversation.Store
	Session  *session.State
	Settings *storage.Settings

	Queue    *offline.Queue
	Replayer *offline.Replayer
	Monitor  *offline.Monitor

	MaxAttempts    int
	Interval       time.Duration
	RequestTimeout time.Duration

	// Context bounds every request; cancelling it stops reconnect waits.
	Context context.Context
	Logger  *zap.Logger
}

// Controller owns the open conversation, the session state and all audit
// jobs. It must only be used from the Bubble Tea update loop.
type Controller struct {
	gateway  Gateway
	renderer Renderer
	store    *conversation.Store
	session  *session.State
	settings *storage.Settings

	queue    *offline.Queue
	replayer *offline.Replayer
	monitor  *offline.Monitor

	maxAttempts int
	interval    time.Duration
	timeout     time.Duration

	ctx    context.Context
	logger *zap.Logger

	jobs map[string]*AuditJob

	// generation changes whenever a different conversation is put on screen.
	generation uint64
	sending    bool

	// loadingID is the conversation whose history is being fetched.
	loadingID string
}

// New creates a controller with a draft conversation open.
func New(opts Options) *Controller {
	c := &Controller{
		gateway:     opts.Gateway,
		renderer:    opts.Renderer,
		store:       opts.Store,
		session:     opts.Session,
		settings:    opts.Settings,
		queue:       opts.Queue,
		replayer:    opts.Replayer,
		monitor:     opts.Monitor,
		maxAttempts: opts.MaxAttempts,
		interval:    opts.Interval,
		timeout:     opts.RequestTimeout,
		ctx:         opts.Context,
		logger:      opts.Logger,
		jobs:        make(map[string]*AuditJob),
	}
	if c.renderer == nil {
		c.renderer = NopRenderer{}
	}
	if c.store == nil {
		c.store = conversation.NewStore()
	}
	if c.session == nil {
		c.session = session.NewState(session.Options{Settings: opts.Settings})
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.interval <= 0 {
		c.interval = DefaultInterval
	}
	if c.timeout <= 0 {
		c.timeout = DefaultRequestTimeout
	}
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// SetRenderer replaces the renderer. Used by views that are constructed
// after the controller.
func (c *Controller) SetRenderer(r Renderer) {
	if r == nil {
		r = NopRenderer{}
	}
	c.renderer = r
}

// Store returns the conversation store.
func (c *Controller) Store() *conversation.Store {
	return c.store
}

// Session returns the session state.
func (c *Controller) Session() *session.State {
	return c.session
}

// Busy reports whether a send or a history load is in flight. The composer
// stays disabled until it settles.
func (c *Controller) Busy() bool {
	return c.sending || c.loadingID != ""
}

// Loading reports whether the open conversation's history is still being
// fetched.
func (c *Controller) Loading() bool {
	return c.loadingID != ""
}

// Idle reports whether nothing is in flight and no audit job is pending.
func (c *Controller) Idle() bool {
	return !c.Busy() && len(c.jobs) == 0
}

// Online reports the connectivity monitor's view. Without a monitor the
// server is assumed reachable.
func (c *Controller) Online() bool {
	return c.monitor == nil || c.monitor.Online()
}

// PendingOperations returns the number of queued offline operations.
func (c *Controller) PendingOperations() int {
	if c.queue == nil {
		return 0
	}
	return c.queue.Len()
}

// =============================================================================
// EVENT LOOP
// =============================================================================

// Init starts the concurrent bootstrap fetch, the reconnect listener and a
// replay of anything queued by a previous run.
func (c *Controller) Init() tea.Cmd {
	cmds := []tea.Cmd{c.bootstrapCmd(), c.waitReconnectCmd()}
	if c.PendingOperations() > 0 {
		cmds = append(cmds, c.replayCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles controller messages. Messages it does not own are ignored
// and yield a nil command.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ConversationCreatedMsg:
		return c.handleConversationCreated(msg)
	case ProcessResultMsg:
		return c.handleProcessResult(msg)

	case AuditTickMsg:
		return c.handleAuditTick(msg)
	case AuditResultMsg:
		return c.handleAuditResult(msg)

	case ConversationsLoadedMsg:
		return c.handleConversationsLoaded(msg)
	case HistoryLoadedMsg:
		return c.handleHistoryLoaded(msg)
	case BootstrapMsg:
		return c.handleBootstrap(msg)

	case MutationResultMsg:
		return c.handleMutationResult(msg)

	case tea.FocusMsg:
		if c.PendingOperations() > 0 {
			return c.replayCmd()
		}
		return nil
	case ReconnectedMsg:
		return tea.Batch(c.replayCmd(), c.fetchConversationsCmd(), c.waitReconnectCmd())
	case ReplayDoneMsg:
		return c.handleReplayDone(msg)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// requestContext returns a context for one gateway call.
func (c *Controller) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.timeout)
}

// advance marks that a different conversation is going on screen. Audit
// jobs for other conversations are cancelled.
func (c *Controller) advance(nextID string) {
	c.generation++
	c.loadingID = ""
	c.cancelJobsExcept(nextID)
}

func (c *Controller) rememberConversation(id string) {
	if c.settings == nil {
		return
	}
	if err := c.settings.SetLastConversationID(id); err != nil {
		c.logger.Warn("failed to persist last conversation", zap.Error(err))
	}
}

func (c *Controller) refreshList() {
	c.renderer.RefreshConversationList(c.store.Conversations())
}

func isQueued(err error) bool {
	return errors.Is(err, api.ErrQueued)
}
