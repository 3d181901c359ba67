package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// GameContext is the externally supplied domain knowledge injected into
// classification prompts: what the game does today, what it deliberately
// doesn't, and what changed recently. Read-only after loading.
type GameContext struct {
	GameName         string   `yaml:"game_name"`
	CurrentFeatures  []string `yaml:"current_features"`
	KnownConstraints []string `yaml:"known_constraints"`
	RecentChanges    []string `yaml:"recent_changes"`

	// Any extra top-level keys in the YAML file beyond the required four.
	AdditionalInfo map[string]string `yaml:"-"`
}

var contextRequiredFields = []string{"game_name", "current_features", "known_constraints", "recent_changes"}

// LoadGameContext reads and validates the context YAML. A game name mismatch
// against the requested game is logged, not fatal, so one context file can
// serve closely named titles.
func LoadGameContext(path, requestedGame string) (*GameContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context file: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse context yaml %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("context file %s is empty", path)
	}

	var missing []string
	for _, f := range contextRequiredFields {
		if _, ok := raw[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("context file %s missing required fields: %s", path, strings.Join(missing, ", "))
	}

	var ctx GameContext
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("parse context fields %s: %w", path, err)
	}
	ctx.GameName = strings.TrimSpace(ctx.GameName)
	if ctx.GameName == "" {
		return nil, fmt.Errorf("context field 'game_name' must be a non-empty string")
	}
	for _, lf := range []struct {
		name  string
		items []string
	}{
		{"current_features", ctx.CurrentFeatures},
		{"known_constraints", ctx.KnownConstraints},
		{"recent_changes", ctx.RecentChanges},
	} {
		if len(lf.items) == 0 {
			log.Printf("context field '%s' is an empty list", lf.name)
		}
		for i, item := range lf.items {
			if strings.TrimSpace(item) == "" {
				return nil, fmt.Errorf("context field '%s' contains an empty string at index %d", lf.name, i)
			}
		}
	}

	ctx.AdditionalInfo = make(map[string]string)
	for key, value := range raw {
		isRequired := false
		for _, f := range contextRequiredFields {
			if key == f {
				isRequired = true
				break
			}
		}
		if !isRequired {
			ctx.AdditionalInfo[key] = fmt.Sprintf("%v", value)
		}
	}

	if requestedGame != "" && !strings.EqualFold(ctx.GameName, strings.TrimSpace(requestedGame)) {
		log.Printf("context game name mismatch: file has %q, requested %q", ctx.GameName, requestedGame)
	}

	log.Printf("context loaded game=%q features=%d constraints=%d changes=%d",
		ctx.GameName, len(ctx.CurrentFeatures), len(ctx.KnownConstraints), len(ctx.RecentChanges))
	return &ctx, nil
}

// FormatForAI flattens the context into the plain-text block embedded in
// classification prompts.
func (c *GameContext) FormatForAI() string {
	var b strings.Builder
	fmt.Fprintf(&b, "GAME: %s\n\n", c.GameName)

	b.WriteString("CURRENT FEATURES:\n")
	for _, f := range c.CurrentFeatures {
		fmt.Fprintf(&b, "  - %s\n", f)
	}

	b.WriteString("\nKNOWN CONSTRAINTS:\n")
	for _, k := range c.KnownConstraints {
		fmt.Fprintf(&b, "  - %s\n", k)
	}

	b.WriteString("\nRECENT CHANGES:\n")
	for _, r := range c.RecentChanges {
		fmt.Fprintf(&b, "  - %s\n", r)
	}

	if len(c.AdditionalInfo) > 0 {
		b.WriteString("\nADDITIONAL CONTEXT:\n")
		keys := make([]string, 0, len(c.AdditionalInfo))
		for k := range c.AdditionalInfo {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: %s\n", k, c.AdditionalInfo[k])
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
