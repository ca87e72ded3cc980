package generate

import (
	"context"
	"fmt"
	"strings"

	"contentmaker/internal/domain"
	"contentmaker/internal/prompts"
	"contentmaker/internal/providers/image"
	"contentmaker/internal/providers/music"
	"contentmaker/internal/providers/text"
)

const (
	// maxScenes bounds the per-paragraph illustrations of one job.
	maxScenes      = 12
	scenePromptLen = 200
	bundleMusicSec = 30
)

func (r *run) story(ctx context.Context, req domain.Request, spec *domain.StorySpec) (string, error) {
	body, err := r.complete(ctx, "generate story", prompts.Story, struct {
		Topic    string
		Language string
	}{req.Topic, r.lang}, text.Request{Temperature: 0.8, MaxTokens: 2000})
	if err != nil {
		return "", err
	}
	key, err := r.write(ctx, "save story", "story.txt", []byte(body+"\n"))
	if err != nil || !spec.WithMedia {
		return key, err
	}
	m := mediaPlan{
		portrait: fmt.Sprintf("Portrait of %s, %s, high quality, detailed", req.Topic, spec.ImageStyle),
		scene:    "Scene from the story: %s, " + spec.ImageStyle,
		voice:    spec.Voice,
	}
	return r.bundle(ctx, "story_bundle.zip", body, m)
}

func (r *run) educational(ctx context.Context, req domain.Request, spec *domain.EducationalSpec) (string, error) {
	body, err := r.complete(ctx, "generate educational content", prompts.Educational, struct {
		Topic      string
		Style      domain.EducationalStyle
		Difficulty domain.Difficulty
		Language   string
	}{req.Topic, spec.Style, spec.Difficulty, r.lang}, text.Request{Temperature: 0.7, MaxTokens: 2000})
	if err != nil {
		return "", err
	}
	key, err := r.write(ctx, "save educational content", "educational.txt", []byte(body+"\n"))
	if err != nil || !spec.WithMedia {
		return key, err
	}
	m := mediaPlan{
		portrait: fmt.Sprintf("Educational illustration about %s, professional diagram, clean design", req.Topic),
		scene:    "Educational illustration: %s, professional diagram, educational style",
		voice:    spec.Voice,
	}
	return r.bundle(ctx, "educational_bundle.zip", body, m)
}

type mediaPlan struct {
	portrait string
	// scene is a format string receiving the shortened paragraph.
	scene string
	voice string
}

// bundle renders the illustrations, narration and background music for
// body and zips the directory.
func (r *run) bundle(ctx context.Context, name, body string, m mediaPlan) (string, error) {
	if _, err := r.drawImage(ctx, "main.png", image.Request{Prompt: m.portrait, Width: 512, Height: 512, Seed: r.dir}); err != nil {
		return "", err
	}
	for i, p := range paragraphs(body) {
		if i == maxScenes {
			r.logger.Info().Int("limit", maxScenes).Msg("generate: scene limit reached")
			break
		}
		prompt := fmt.Sprintf(m.scene, ScenePrompt(p))
		if _, err := r.drawImage(ctx, fmt.Sprintf("scene_%d.png", i+1), image.Request{Prompt: prompt, Width: 512, Height: 512, Seed: r.dir}); err != nil {
			return "", err
		}
	}
	if _, err := r.speak(ctx, "voice_over", body, m.voice); err != nil {
		return "", err
	}
	if _, err := r.compose(ctx, "background_music.wav", music.Track{DurationSeconds: bundleMusicSec, Tempo: 80, Genre: "ambient"}); err != nil {
		return "", err
	}
	return r.archive(ctx, name)
}

// ScenePrompt collapses whitespace in a paragraph and keeps the first 200
// characters.
func ScenePrompt(paragraph string) string {
	return truncateRunes(strings.Join(strings.Fields(paragraph), " "), scenePromptLen)
}

func (r *run) podcast(ctx context.Context, spec *domain.PodcastSpec) (string, error) {
	var (
		script string
		err    error
	)
	req := text.Request{Temperature: 0.7, MaxTokens: 2000}
	switch spec.Type {
	case domain.PodcastCustomText:
		script = spec.CustomText
	case domain.PodcastTopicBased:
		script, err = r.complete(ctx, "generate podcast script", prompts.PodcastTopic, struct {
			Topic    string
			Language string
		}{spec.Topic, r.lang}, req)
	default:
		script, err = r.complete(ctx, "generate podcast script", prompts.PodcastFree, struct {
			Language string
		}{r.lang}, req)
	}
	if err != nil {
		return "", err
	}
	if _, err := r.write(ctx, "save podcast script", "podcast_script.txt", []byte(script+"\n")); err != nil {
		return "", err
	}
	return r.speak(ctx, "podcast_audio", script, spec.Voice)
}

func (r *run) track(ctx context.Context, spec *domain.MusicSpec) (string, error) {
	return r.compose(ctx, "music.wav", music.Track{
		DurationSeconds: spec.DurationSeconds,
		Tempo:           spec.Tempo,
		Genre:           spec.Genre,
		Mood:            spec.Mood,
	})
}
