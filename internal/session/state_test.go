// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/auditchat/internal/api"
	"github.com/jeranaias/auditchat/internal/storage"
)

func memSettings() *storage.Settings {
	return storage.NewSettings(storage.NewMemoryStore())
}

func TestNewState_Defaults(t *testing.T) {
	s := NewState(Options{DefaultProfile: "general"})

	assert.True(t, strings.HasPrefix(s.SessionID(), "sess_"))
	assert.Equal(t, "general", s.Profile())
	assert.False(t, s.SignedIn())
	assert.Empty(t, s.Models())
}

func TestNewState_RestoresPersisted(t *testing.T) {
	settings := memSettings()
	require.NoError(t, settings.SetSessionToken("stored"))
	require.NoError(t, settings.SetActiveProfile("clinical"))

	s := NewState(Options{DefaultProfile: "general", Settings: settings})
	assert.Equal(t, "stored", s.Token())
	assert.Equal(t, "clinical", s.Profile())

	explicit := NewState(Options{Token: "from-env", Settings: settings})
	assert.Equal(t, "from-env", explicit.Token(), "configured token wins over stored")
}

func TestState_SetProfilePersists(t *testing.T) {
	settings := memSettings()
	s := NewState(Options{Settings: settings})

	require.NoError(t, s.SetProfile("legal"))
	assert.Equal(t, "legal", s.Profile())
	assert.Equal(t, "legal", settings.ActiveProfile())
}

func TestState_ProfileName(t *testing.T) {
	s := NewState(Options{DefaultProfile: "legal"})
	assert.Equal(t, "legal", s.ProfileName())

	s.SetProfiles([]api.Profile{{Key: "legal", Name: "Legal review"}})
	assert.Equal(t, "Legal review", s.ProfileName())
	assert.Equal(t, "Legal review", s.GetStatus().Profile)
}

func TestState_SetModelsMerges(t *testing.T) {
	s := NewState(Options{})
	s.SetModels(map[string]string{"chat": "a", "audit": "b"})
	s.SetModels(map[string]string{"audit": "", "chat": "c"})

	assert.Equal(t, map[string]string{"chat": "c"}, s.Models())

	m := s.Models()
	m["chat"] = "mutated"
	assert.Equal(t, "c", s.Models()["chat"], "Models returns a copy")
}

func TestState_Clear(t *testing.T) {
	settings := memSettings()
	require.NoError(t, settings.SetLastConversationID("c1"))
	s := NewState(Options{Settings: settings})
	require.NoError(t, s.SetToken("tok"))
	require.NoError(t, s.SetProfile("legal"))

	require.NoError(t, s.Clear())

	assert.False(t, s.SignedIn())
	assert.Empty(t, s.Profile())
	assert.Empty(t, settings.SessionToken())
	assert.Empty(t, settings.ActiveProfile())
	assert.Empty(t, settings.LastConversationID())
}

func TestState_ClearLocalKeepsToken(t *testing.T) {
	settings := memSettings()
	require.NoError(t, settings.SetLastConversationID("c1"))
	s := NewState(Options{Settings: settings})
	require.NoError(t, s.SetToken("tok"))
	require.NoError(t, s.SetProfile("legal"))

	require.NoError(t, s.ClearLocal())

	assert.True(t, s.SignedIn())
	assert.Equal(t, "tok", settings.SessionToken())
	assert.Empty(t, s.Profile())
	assert.Empty(t, settings.LastConversationID())
}

func TestState_Activity(t *testing.T) {
	s := NewState(Options{})
	time.Sleep(20 * time.Millisecond)
	assert.GreaterOrEqual(t, s.IdleTime(), 20*time.Millisecond)

	s.RecordActivity()
	assert.Less(t, s.IdleTime(), 20*time.Millisecond)
	assert.GreaterOrEqual(t, s.Duration(), 20*time.Millisecond)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{5*time.Minute + 30*time.Second, "5m 30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatDuration(tc.in))
	}
}

// Run with: go test -race ./internal/session/
func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState(Options{Settings: memSettings()})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetProfile("p")
			s.SetModels(map[string]string{"chat": "m"})
			s.RecordActivity()
		}()
		go func() {
			defer wg.Done()
			_ = s.GetStatus()
			_ = s.Models()
		}()
	}
	wg.Wait()
}
