// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the explicit per-run session state.
//
// # Key Types
//
//   - State: token, active audit profile, model selection, cached profiles
//   - Status: snapshot for the status bar
//
// # Usage
//
//	st := session.NewState(session.Options{
//	    Token:          cfg.Server.Token,
//	    DefaultProfile: cfg.UI.Profile,
//	    Settings:       settings,
//	})
//	_ = st.SetProfile("clinical")
package session
