// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdown renders assistant replies with glamour. Output is cached per turn
// because reply bodies never change once displayed; the cache is dropped
// when the wrap width changes.
type markdown struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func newMarkdown(style string) *markdown {
	return &markdown{
		style: style,
		width: 78,
		cache: make(map[string]string),
	}
}

func (md *markdown) resize(width int) {
	if width < 20 {
		width = 20
	}
	if width == md.width {
		return
	}
	md.width = width
	md.renderer = nil
	md.reset()
}

func (md *markdown) reset() {
	md.cache = make(map[string]string)
}

// render returns the rendered body for key, falling back to the raw
// content if glamour fails.
func (md *markdown) render(key, content string) string {
	if out, ok := md.cache[key]; ok {
		return out
	}
	if md.renderer == nil {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(md.style),
			glamour.WithWordWrap(md.width),
		)
		if err != nil {
			return content
		}
		md.renderer = r
	}

	out, err := md.renderer.Render(content)
	if err != nil {
		out = content
	}
	out = strings.Trim(out, "\n")
	md.cache[key] = out
	return out
}
