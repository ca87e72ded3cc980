package generate

import (
	"context"
	"encoding/json"
	"html"
	"strconv"
	"strings"

	"contentmaker/internal/domain"
	"contentmaker/internal/prompts"
	"contentmaker/internal/providers/image"
	"contentmaker/internal/providers/text"
)

// Canvas size of generated games.
const (
	CanvasWidth  = 800
	CanvasHeight = 600
)

type sprite struct {
	file   string
	prompt string
	w, h   int
}

// Concept is the character sheet parsed from the design answer.
type Concept struct {
	Name      string
	Abilities string
}

// ParseConcept reads the "Name:" and "Abilities:" lines of the model's
// design, defaulting to a generic hero who can jump.
func ParseConcept(theme, design string) Concept {
	c := Concept{Name: theme + " Hero", Abilities: "jump"}
	if v, ok := markerLine(design, "Name:"); ok {
		c.Name = v
	}
	if v, ok := markerLine(design, "Abilities:"); ok {
		c.Abilities = v
	}
	return c
}

func markerLine(s, marker string) (string, bool) {
	i := strings.Index(s, marker)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(marker):]
	if j := strings.IndexByte(rest, '\n'); j >= 0 {
		rest = rest[:j]
	}
	rest = strings.TrimSpace(rest)
	return rest, rest != ""
}

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(code string) string {
	trimmed := strings.TrimSpace(code)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

func (r *run) game(ctx context.Context, spec *domain.GameSpec) (string, error) {
	theme := spec.Theme
	design, err := r.complete(ctx, "design game", prompts.GameConcept, struct{ Theme string }{theme},
		text.Request{Temperature: 0.8, MaxTokens: 800, Shape: text.ShapeGameConcept})
	if err != nil {
		return "", err
	}
	concept := ParseConcept(theme, design)

	sprites := []sprite{
		{"player.png", "pixel art main character, " + theme + " theme", 64, 64},
		{"enemy1.png", "pixel art enemy, " + theme + " theme", 64, 64},
		{"platform.png", "pixel art platform tile, " + theme + " theme", 128, 32},
		{"background.png", "pixel art background, " + theme + " theme, side-scrolling", CanvasWidth, CanvasHeight},
		{"coin.png", "pixel art coin, " + theme + " theme", 32, 32},
	}
	for _, s := range sprites {
		if _, err := r.drawImage(ctx, s.file, image.Request{Prompt: s.prompt, Width: s.w, Height: s.h, Seed: theme}); err != nil {
			return "", err
		}
	}

	platforms := mustJSON([]map[string]any{
		{"x": 0, "y": CanvasHeight - 20, "w": CanvasWidth, "h": 20, "sprite": "platform.png"},
		{"x": 200, "y": CanvasHeight - 150, "w": 150, "h": 20, "sprite": "platform.png"},
		{"x": 450, "y": CanvasHeight - 260, "w": 150, "h": 20, "sprite": "platform.png"},
	})
	collectibles := mustJSON([]map[string]any{
		{"x": 100, "y": CanvasHeight - 100, "sprite": "coin.png"},
		{"x": 260, "y": CanvasHeight - 190, "sprite": "coin.png"},
		{"x": 510, "y": CanvasHeight - 300, "sprite": "coin.png"},
	})
	enemies := mustJSON([]map[string]string{
		{"name": "Generic Enemy", "appearance": "Enemy from " + theme, "behavior": "patrols", "sprite": "enemy1.png"},
	})

	code, err := r.complete(ctx, "generate game code", prompts.GameCode, struct {
		Theme            string
		PlayerName       string
		PlayerAbilities  string
		PlayerSprite     string
		EnemyData        string
		LevelDescription string
		BackgroundSprite string
		PlatformData     string
		CollectibleData  string
		CanvasWidth      int
		CanvasHeight     int
	}{
		Theme:            theme,
		PlayerName:       concept.Name,
		PlayerAbilities:  concept.Abilities,
		PlayerSprite:     "player.png",
		EnemyData:        enemies,
		LevelDescription: "A level in the world of " + theme,
		BackgroundSprite: "background.png",
		PlatformData:     platforms,
		CollectibleData:  collectibles,
		CanvasWidth:      CanvasWidth,
		CanvasHeight:     CanvasHeight,
	}, text.Request{Temperature: 0.4, MaxTokens: 4000, Shape: text.ShapeGameCode})
	if err != nil {
		return "", err
	}

	page, err := prompts.GamePage()
	if err != nil {
		return "", domain.StepError("build game page", err)
	}
	page = strings.NewReplacer(
		"{{GAME_CODE}}", StripCodeFence(code),
		"{{CANVAS_WIDTH}}", strconv.Itoa(CanvasWidth),
		"{{CANVAS_HEIGHT}}", strconv.Itoa(CanvasHeight),
		"{{GAME_THEME}}", html.EscapeString(theme),
		"{{PLATFORM_DATA}}", platforms,
		"{{COLLECTIBLE_DATA}}", collectibles,
	).Replace(page)
	if _, err := r.write(ctx, "save game page", "index.html", []byte(page)); err != nil {
		return "", err
	}
	return r.archive(ctx, "game.zip")
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
