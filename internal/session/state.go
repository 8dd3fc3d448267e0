// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/storage"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the per-run client session: who is signed in, which audit
// profile and models are active, and the cached profile list.
//
// It is owned by the protocol controller and passed explicitly to the code
// that needs it. Changes to the profile and token are written through to
// the settings store when one is attached.
type State struct {
	mu sync.RWMutex

	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	token    string
	profile  string
	models   map[string]string
	profiles []api.Profile

	settings *storage.Settings
}

// Options seed a new State.
type Options struct {
	// Token from config or environment. Takes precedence over a stored token.
	Token string
	// DefaultProfile is used when no profile has been persisted.
	DefaultProfile string
	// Settings persists profile and token changes. May be nil.
	Settings *storage.Settings
}

// NewState creates session state, restoring persisted values from
// opts.Settings.
func NewState(opts Options) *State {
	now := time.Now()
	s := &State{
		sessionID:    generateSessionID(),
		startTime:    now,
		lastActivity: now,
		token:        opts.Token,
		profile:      opts.DefaultProfile,
		models:       make(map[string]string),
		settings:     opts.Settings,
	}
	if opts.Settings != nil {
		if s.token == "" {
			s.token = opts.Settings.SessionToken()
		}
		if p := opts.Settings.ActiveProfile(); p != "" {
			s.profile = p
		}
	}
	return s
}

// SessionID returns the local session ID.
func (s *State) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Token returns the bearer token ("" when signed out).
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SetToken replaces the bearer token and persists it.
func (s *State) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if s.settings == nil {
		return nil
	}
	return s.settings.SetSessionToken(token)
}

// SignedIn reports whether a token is present.
func (s *State) SignedIn() bool {
	return s.Token() != ""
}

// Profile returns the active audit profile key ("" = server default).
func (s *State) Profile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// SetProfile sets the active profile and persists it.
func (s *State) SetProfile(key string) error {
	s.mu.Lock()
	s.profile = key
	s.mu.Unlock()
	if s.settings == nil {
		return nil
	}
	return s.settings.SetActiveProfile(key)
}

// ProfileName returns the display name of the active profile, falling back
// to its key.
func (s *State) ProfileName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.profiles {
		if p.Key == s.profile {
			return p.Name
		}
	}
	return s.profile
}

// Profiles returns the cached profile list.
func (s *State) Profiles() []api.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.profiles)
}

// SetProfiles caches the profiles offered by the server.
func (s *State) SetProfiles(profiles []api.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = slices.Clone(profiles)
}

// Models returns a copy of the per-role model selection.
func (s *State) Models() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.models)
}

// SetModels merges a model selection. An empty value removes the role.
func (s *State) SetModels(models map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for role, m := range models {
		if m == "" {
			delete(s.models, role)
			continue
		}
		s.models[role] = m
	}
}

// Clear signs out locally: token, profile, models and the last open
// conversation are forgotten.
func (s *State) Clear() error {
	if err := s.ClearLocal(); err != nil {
		return err
	}
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if s.settings == nil {
		return nil
	}
	return s.settings.SetSessionToken("")
}

// ClearLocal forgets profile, models and the last open conversation but
// keeps the token, so operations queued under it can still be replayed.
func (s *State) ClearLocal() error {
	s.mu.Lock()
	s.profile = ""
	s.models = make(map[string]string)
	s.profiles = nil
	s.mu.Unlock()

	if s.settings == nil {
		return nil
	}
	for _, key := range []string{storage.KeyActiveProfile, storage.KeyLastConversationID} {
		if err := s.settings.SetString(key, ""); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// ACTIVITY TRACKING
// =============================================================================

// RecordActivity updates the last activity timestamp.
func (s *State) RecordActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// IdleTime returns how long since last activity.
func (s *State) IdleTime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastActivity)
}

// Duration returns how long the session has been active.
func (s *State) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is a snapshot of the session for the status bar.
type Status struct {
	SessionID string
	SignedIn  bool
	Profile   string
	Duration  time.Duration
	IdleTime  time.Duration
}

// GetStatus returns the current session status.
func (s *State) GetStatus() Status {
	name := s.ProfileName()

	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now()
	return Status{
		SessionID: s.sessionID,
		SignedIn:  s.token != "",
		Profile:   name,
		Duration:  now.Sub(s.startTime),
		IdleTime:  now.Sub(s.lastActivity),
	}
}

// generateSessionID creates a unique session ID.
func generateSessionID() string {
	return "sess_" + time.Now().Format("20060102_150405") + "_" + uuid.NewString()[:8]
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		secs := int(d.Seconds()) % 60
		if secs == 0 {
			return strconv.Itoa(mins) + "m"
		}
		return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
	}
	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	if mins == 0 {
		return strconv.Itoa(hours) + "h"
	}
	return strconv.Itoa(hours) + "h " + strconv.Itoa(mins) + "m"
}
