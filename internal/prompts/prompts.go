// Package prompts renders the LLM prompt templates shipped with the binary.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

//go:embed templates/*.tmpl templates/game.html
var files embed.FS

// Template names.
const (
	Article      = "article.tmpl"
	Post         = "post.tmpl"
	TweetThread  = "tweet_thread.tmpl"
	BookChapter  = "book_chapter.tmpl"
	Story        = "story.tmpl"
	Educational  = "educational.tmpl"
	PodcastTopic = "podcast_topic.tmpl"
	PodcastFree  = "podcast_free.tmpl"
	GameConcept  = "game_concept.tmpl"
	GameCode     = "game_code.tmpl"
)

var templates = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		Option("missingkey=error").
		ParseFS(files, "templates/*.tmpl"),
)

// Render executes the named template. Lines left empty by omitted optional
// sections are dropped.
func Render(name string, data any) (string, error) {
	t := templates.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("prompts: template %q not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("prompts: render %s: %w", name, err)
	}
	return collapse(buf.String()), nil
}

func collapse(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, strings.TrimRight(line, " \t"))
		}
	}
	return strings.Join(kept, "\n")
}

// GamePage returns the HTML shell for generated platformer games.
func GamePage() (string, error) {
	data, err := files.ReadFile("templates/game.html")
	if err != nil {
		return "", fmt.Errorf("prompts: read game page: %w", err)
	}
	return string(data), nil
}

// LanguageName returns the English display name of a BCP 47 code, or ""
// for empty, unparsable or English input so prompts stay unchanged.
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	if base, _ := tag.Base(); base.String() == "en" {
		return ""
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
