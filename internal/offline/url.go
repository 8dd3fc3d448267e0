// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
)

var (
	// ErrInvalidURLScheme is returned when the server URL is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https server URLs are allowed")

	// ErrInsecureURL is returned for plain http to a non-loopback host.
	ErrInsecureURL = errors.New("plain http is only allowed for localhost servers")
)

// IsLocalhost checks if a host string refers to localhost.
// Accepts "localhost", "127.0.0.1", "::1", "[::1]" and any loopback variant,
// with or without a port.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateServerURL checks that rawURL can be used as the gateway base URL.
// The bearer token travels with every request, so plain http is limited to
// loopback hosts.
func ValidateServerURL(rawURL string) error {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return ErrInvalidURLScheme
	}

	switch strings.ToLower(parsed.Scheme) {
	case "https":
		return nil
	case "http":
		if IsLocalhost(parsed.Hostname()) {
			return nil
		}
		return ErrInsecureURL
	default:
		return ErrInvalidURLScheme
	}
}
