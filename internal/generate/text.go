package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contentmaker/internal/domain"
	"contentmaker/internal/prompts"
	"contentmaker/internal/providers/text"
)

// MaxTweetRunes is the longest tweet kept verbatim.
const MaxTweetRunes = 280

func (r *run) article(ctx context.Context, req domain.Request, spec *domain.ArticleSpec) (string, error) {
	maxTokens := 2000
	if spec.DesiredWords > 0 {
		maxTokens = spec.DesiredWords * 3 / 2
	}
	body, err := r.complete(ctx, "generate article", prompts.Article, struct {
		Topic              string
		StyleTone          string
		DesiredWords       int
		CustomInstructions string
		Language           string
	}{req.Topic, spec.StyleTone, spec.DesiredWords, spec.CustomInstructions, r.lang},
		text.Request{Temperature: 0.7, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	return r.write(ctx, "save article", "article.txt", []byte(body+"\n"))
}

func (r *run) post(ctx context.Context, req domain.Request, spec *domain.PostSpec) (string, error) {
	words := spec.Length.Words()
	body, err := r.complete(ctx, "generate post", prompts.Post, struct {
		Topic          string
		Style          string
		Words          int
		TargetAudience string
		Language       string
	}{req.Topic, spec.Style, words, spec.TargetAudience, r.lang},
		text.Request{Temperature: 0.7, MaxTokens: words * 2})
	if err != nil {
		return "", err
	}
	return r.write(ctx, "save post", "post.txt", []byte(body+"\n"))
}

func (r *run) tweetThread(ctx context.Context, req domain.Request, spec *domain.TweetThreadSpec) (string, error) {
	raw, err := r.complete(ctx, "generate tweet thread", prompts.TweetThread, struct {
		Topic              string
		NumTweets          int
		StyleTone          string
		CallToAction       string
		CustomInstructions string
		Language           string
	}{req.Topic, spec.NumTweets, spec.StyleTone, spec.CallToAction, spec.CustomInstructions, r.lang},
		text.Request{Temperature: 0.6, MaxTokens: spec.NumTweets*150 + 200, Shape: text.ShapeJSONList, Items: spec.NumTweets})
	if err != nil {
		return "", err
	}
	tweets, err := ParseThread(raw)
	if err != nil {
		return "", domain.StepError("parse tweet thread", err)
	}
	data, err := json.MarshalIndent(tweets, "", "  ")
	if err != nil {
		return "", domain.StepError("encode tweet thread", err)
	}
	return r.write(ctx, "save tweet thread", "tweet_thread.json", data)
}

// ParseThread extracts the JSON array between the first '[' and the last
// ']' of raw. Every element must be a string; long tweets are shortened.
func ParseThread(raw string) ([]string, error) {
	start, end := -1, -1
	for i, c := range raw {
		if c == '[' && start < 0 {
			start = i
		}
		if c == ']' {
			end = i
		}
	}
	if start < 0 || end <= start {
		return nil, fmt.Errorf("model output is not a JSON array: %.200q", raw)
	}
	var items []any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("decode tweets: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("model returned no tweets")
	}
	tweets := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("tweet %d is not a string", i+1)
		}
		if len([]rune(s)) > MaxTweetRunes {
			s = truncateRunes(s, MaxTweetRunes-1) + "…"
		}
		tweets[i] = s
	}
	return tweets, nil
}

func (r *run) bookChapter(ctx context.Context, spec *domain.BookChapterSpec) (string, error) {
	maxTokens := 3000
	if spec.DesiredWords > 0 {
		maxTokens = spec.DesiredWords * 8 / 5
	}
	body, err := r.complete(ctx, "generate chapter", prompts.BookChapter, struct {
		Genre                  string
		StyleTone              string
		ChapterTopic           string
		PlotSummary            string
		Characters             []string
		PreviousChapterSummary string
		DesiredWords           int
		CustomInstructions     string
		Language               string
	}{spec.Genre, spec.StyleTone, spec.ChapterTopic, spec.PlotSummary, spec.Characters, spec.PreviousChapterSummary, spec.DesiredWords, spec.CustomInstructions, r.lang},
		text.Request{Temperature: 0.75, MaxTokens: maxTokens})
	if err != nil {
		return "", err
	}
	return r.write(ctx, "save chapter", "chapter.txt", []byte(body+"\n"))
}
