package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type articleData struct {
	Topic              string
	StyleTone          string
	DesiredWords       int
	CustomInstructions string
	Language           string
}

func TestRenderDropsEmptySections(t *testing.T) {
	out, err := Render(Article, articleData{Topic: "volcanoes"})
	require.NoError(t, err)
	assert.Contains(t, out, `"volcanoes"`)
	assert.Contains(t, out, "Style and tone: neutral.")
	assert.Contains(t, out, "not specified")
	assert.NotContains(t, out, "additional instructions")
	assert.NotContains(t, out, "\n\n")
	for _, line := range strings.Split(out, "\n") {
		assert.NotEmpty(t, strings.TrimSpace(line))
	}
}

func TestRenderIncludesOptionalSections(t *testing.T) {
	out, err := Render(Article, articleData{Topic: "tea", DesiredWords: 800, CustomInstructions: "cite sources", Language: "Indonesian"})
	require.NoError(t, err)
	assert.Contains(t, out, "800")
	assert.Contains(t, out, "Follow these additional instructions: cite sources")
	assert.Contains(t, out, "Write the article in Indonesian.")
}

func TestRenderBookChapterJoinsCharacters(t *testing.T) {
	data := struct {
		Genre                  string
		StyleTone              string
		ChapterTopic           string
		PlotSummary            string
		PreviousChapterSummary string
		CustomInstructions     string
		Language               string
		Characters             []string
		DesiredWords           int
	}{ChapterTopic: "the escape", Characters: []string{"Ana", "Bo"}}
	out, err := Render(BookChapter, data)
	require.NoError(t, err)
	assert.Contains(t, out, "Ana, Bo")
	assert.NotContains(t, out, "previous chapter")
}

func TestRenderPost(t *testing.T) {
	out, err := Render(Post, struct {
		Topic          string
		Style          string
		Words          int
		TargetAudience string
		Language       string
	}{Topic: "remote work", Style: "informative", Words: 500})
	require.NoError(t, err)
	assert.Contains(t, out, `"remote work"`)
	assert.Contains(t, out, "about 500 words")
	assert.NotContains(t, out, "Target audience")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("nope.tmpl", nil)
	assert.Error(t, err)
}

func TestRenderMissingFieldFails(t *testing.T) {
	_, err := Render(Story, map[string]string{})
	assert.Error(t, err)
}

func TestGamePagePlaceholders(t *testing.T) {
	page, err := GamePage()
	require.NoError(t, err)
	for _, p := range []string{"{{CANVAS_WIDTH}}", "{{CANVAS_HEIGHT}}", "{{GAME_CODE}}", "{{GAME_THEME}}"} {
		assert.Contains(t, page, p)
	}
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "", LanguageName(""))
	assert.Equal(t, "", LanguageName("en-US"))
	assert.Equal(t, "Indonesian", LanguageName("id"))
	assert.Equal(t, "", LanguageName("!!"))
}
