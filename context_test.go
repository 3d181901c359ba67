package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeContextFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game_features.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing context fixture: %v", err)
	}
	return path
}

const validContextYAML = `game_name: Word Trip
current_features:
  - Daily Puzzle
  - Hint System
known_constraints:
  - No offline mode
recent_changes:
  - Released v2.1 with new levels
target_audience: casual players
`

func TestLoadGameContext_Valid(t *testing.T) {
	path := writeContextFile(t, validContextYAML)
	ctx, err := LoadGameContext(path, "Word Trip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.GameName != "Word Trip" {
		t.Fatalf("unexpected game name %q", ctx.GameName)
	}
	if len(ctx.CurrentFeatures) != 2 || len(ctx.KnownConstraints) != 1 || len(ctx.RecentChanges) != 1 {
		t.Fatalf("unexpected lists: %+v", ctx)
	}
	if ctx.AdditionalInfo["target_audience"] != "casual players" {
		t.Fatalf("extra key not captured: %+v", ctx.AdditionalInfo)
	}
}

func TestLoadGameContext_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"missing field", "game_name: Word Trip\ncurrent_features: [a]\nknown_constraints: [b]\n", "recent_changes"},
		{"empty file", "", "empty"},
		{"empty game name", "game_name: \"\"\ncurrent_features: [a]\nknown_constraints: [b]\nrecent_changes: [c]\n", "game_name"},
		{"empty list item", "game_name: G\ncurrent_features: [a, \"\"]\nknown_constraints: [b]\nrecent_changes: [c]\n", "empty string"},
		{"not yaml", "{{{{", "parse"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeContextFile(t, tc.content)
			_, err := LoadGameContext(path, "")
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadGameContext_MissingFile(t *testing.T) {
	_, err := LoadGameContext(filepath.Join(t.TempDir(), "nope.yaml"), "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadGameContext_NameMismatchNotFatal(t *testing.T) {
	path := writeContextFile(t, validContextYAML)
	ctx, err := LoadGameContext(path, "Another Game")
	if err != nil {
		t.Fatalf("mismatch should not be fatal: %v", err)
	}
	if ctx.GameName != "Word Trip" {
		t.Fatalf("unexpected game name %q", ctx.GameName)
	}
}

func TestFormatForAI(t *testing.T) {
	ctx := &GameContext{
		GameName:         "Word Trip",
		CurrentFeatures:  []string{"Daily Puzzle"},
		KnownConstraints: []string{"No offline mode"},
		RecentChanges:    []string{"Released v2.1"},
		AdditionalInfo:   map[string]string{"target_audience": "casual players"},
	}
	out := ctx.FormatForAI()

	for _, want := range []string{
		"GAME: Word Trip",
		"CURRENT FEATURES:\n  - Daily Puzzle",
		"KNOWN CONSTRAINTS:\n  - No offline mode",
		"RECENT CHANGES:\n  - Released v2.1",
		"ADDITIONAL CONTEXT:\n  target_audience: casual players",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
