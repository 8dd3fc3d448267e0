// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/auditchat/internal/model"
)

func sampleTranscript() Transcript {
	score := 7.5
	reply := model.NewAssistantTurn("m1", "Honesty matters.", time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC))
	reply.Audit = &model.AuditPayload{
		ProfileName: "Default",
		SpiritScore: &score,
		Ledger: []model.LedgerEntry{
			{Value: "care", Score: -0.2, Confidence: 0.3, Reason: "a bit | curt"},
			{Value: "honesty", Score: 0.9, Confidence: 0.8, Reason: "direct"},
		},
	}
	reply.SuggestedFollowUps = []string{"Why honesty?"}

	question := model.NewUserTurn("Is lying ever ok?")
	question.Timestamp = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	return Transcript{
		Conversation: model.Conversation{ID: "c1", Title: "Ethics: lying", LastUpdated: time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)},
		Turns:        []*model.Turn{question, reply},
		ExportedAt:   time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	md := string(out)

	wants := []string{
		`title: "Ethics: lying"`,
		"id: c1",
		"messages: 2",
		"# Ethics: lying",
		"### You <sub>2024-05-01 10:00:00</sub>",
		"Is lying ever ok?",
		"### Assistant",
		"spirit score 7.5/10, 1 upholds, 1 conflicts, 0 neutral (Default)",
		"| + | honesty | 80% | direct |",
		`| - | care | 30% | a bit \| curt |`,
		"- Why honesty?",
	}
	for _, want := range wants {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
	if strings.Index(md, "Is lying") > strings.Index(md, "Honesty matters") {
		t.Error("turns out of order")
	}
}

func TestMarkdownExport_SummaryOnly(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeLedger = false
	opts.IncludeTimestamps = false

	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	md := string(out)
	if strings.Contains(md, "| Value |") {
		t.Error("ledger table written with IncludeLedger=false")
	}
	if strings.Contains(md, "<sub>") {
		t.Error("timestamps written with IncludeTimestamps=false")
	}
	if !strings.Contains(md, "1 upholds") {
		t.Error("audit summary missing")
	}
}

func TestMarkdownExport_EmptyReplyFallback(t *testing.T) {
	tr := sampleTranscript()
	tr.Turns[1].Content = "  "
	out, err := NewMarkdownExporter(nil).Export(tr)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if !strings.Contains(string(out), model.FallbackContent) {
		t.Error("empty assistant reply should export the fallback text")
	}
}

func TestExport_Empty(t *testing.T) {
	tr := Transcript{Conversation: model.Conversation{ID: "c1"}}
	for _, e := range []Exporter{NewMarkdownExporter(nil), NewJSONExporter()} {
		if _, err := e.Export(tr); !errors.Is(err, ErrEmptyTranscript) {
			t.Errorf("%T: got %v, want ErrEmptyTranscript", e, err)
		}
	}
}

func TestJSONExport(t *testing.T) {
	out, err := NewJSONExporter().Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	var decoded Transcript
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded.Turns) != 2 || decoded.Turns[1].Audit == nil {
		t.Fatalf("audit lost in JSON export: %+v", decoded.Turns)
	}
	if got, _ := decoded.Turns[1].Audit.Score(); got != 7.5 {
		t.Errorf("spirit score = %v, want 7.5", got)
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format  string
		ext     string
		wantErr bool
	}{
		{"markdown", ".md", false},
		{"MD", ".md", false},
		{"", ".md", false},
		{"json", ".json", false},
		{"html", "", true},
	}
	for _, tt := range tests {
		e, err := ForFormat(tt.format, nil)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ForFormat(%q) expected error", tt.format)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ForFormat(%q) error = %v", tt.format, err)
		}
		if e.FileExtension() != tt.ext {
			t.Errorf("ForFormat(%q) ext = %s, want %s", tt.format, e.FileExtension(), tt.ext)
		}
	}
}

func TestToFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = filepath.Join(t.TempDir(), "out")

	path, err := ToFile(sampleTranscript(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	if want := "conversation_Ethics-_lying_20240502_090000.md"; filepath.Base(path) != want {
		t.Errorf("file name = %s, want %s", filepath.Base(path), want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Honesty matters.") {
		t.Error("written file missing content")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a/b\\c:d", "a-b-c-d"},
		{"two words", "two_words"},
		{"   ", "conversation"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
