package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

const (
	// DefaultTweetCount applies when a thread request omits num_tweets.
	DefaultTweetCount = 3
	// MaxTweetCount caps the number of tweets in one thread.
	MaxTweetCount = 25
	// MaxDesiredWords caps desired_length_words for long-form text.
	MaxDesiredWords = 20000
	// DefaultMusicDuration is the track length in seconds.
	DefaultMusicDuration = 60
	// MaxMusicDuration caps generated tracks at ten minutes.
	MaxMusicDuration = 600
	// DefaultMusicTempo is expressed in beats per minute.
	DefaultMusicTempo = 120
	MinMusicTempo     = 40
	MaxMusicTempo     = 240
	// DefaultMusicGenre applies when no genre is requested.
	DefaultMusicGenre = "electronic"
)

// Request is a validated content request. Spec carries the options of the
// requested kind; its concrete type identifies the kind.
type Request struct {
	Topic    string
	Language string
	Spec     Spec
}

// Spec is the sum type over per-kind request options.
type Spec interface {
	Kind() ContentKind
	normalize(r *Request)
	validate(r *Request) error
}

type envelope struct {
	ContentType ContentKind     `json:"content_type"`
	Topic       string          `json:"topic,omitempty"`
	Language    string          `json:"language,omitempty"`
	Options     json.RawMessage `json:"options,omitempty"`
}

// Kind returns the content kind of the request, or "" when Spec is unset.
func (r Request) Kind() ContentKind {
	if r.Spec == nil {
		return ""
	}
	return r.Spec.Kind()
}

// DecodeRequest parses a JSON request body. Malformed payloads and unknown
// content types are reported as *ValidationError.
func DecodeRequest(data []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return Request{}, ve
		}
		return Request{}, invalid("body", "malformed JSON: %v", err)
	}
	return r, nil
}

// UnmarshalJSON decodes the envelope and the options of the named kind.
func (r *Request) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	spec, err := newSpec(env.ContentType)
	if err != nil {
		return err
	}
	opts := bytes.TrimSpace(env.Options)
	if len(opts) > 0 && !bytes.Equal(opts, []byte("null")) {
		if err := json.Unmarshal(opts, spec); err != nil {
			return invalid("options", "invalid %s options: %v", env.ContentType, err)
		}
	}
	r.Topic = env.Topic
	r.Language = env.Language
	r.Spec = spec
	return nil
}

// MarshalJSON encodes the request in the same envelope it is decoded from.
func (r Request) MarshalJSON() ([]byte, error) {
	env := envelope{ContentType: r.Kind(), Topic: r.Topic, Language: r.Language}
	if r.Spec != nil {
		opts, err := json.Marshal(r.Spec)
		if err != nil {
			return nil, err
		}
		env.Options = opts
	}
	return json.Marshal(env)
}

func newSpec(kind ContentKind) (Spec, error) {
	switch kind {
	case KindStory:
		return &StorySpec{}, nil
	case KindEducational:
		return &EducationalSpec{}, nil
	case KindPodcast:
		return &PodcastSpec{}, nil
	case KindArticle:
		return &ArticleSpec{}, nil
	case KindPost:
		return &PostSpec{}, nil
	case KindTweetThread:
		return &TweetThreadSpec{}, nil
	case KindBookChapter:
		return &BookChapterSpec{}, nil
	case KindMusic:
		return &MusicSpec{}, nil
	case KindPlatformerGame:
		return &GameSpec{}, nil
	case "":
		return nil, invalid("content_type", "is required")
	default:
		return nil, invalid("content_type", "unsupported content type %q", kind)
	}
}

// Validate normalizes defaults and checks kind-specific required fields.
func (r *Request) Validate() error {
	if r.Spec == nil {
		return invalid("content_type", "is required")
	}
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Language != "" {
		tag, err := language.Parse(r.Language)
		if err != nil {
			return invalid("language", "unrecognized language %q", r.Language)
		}
		base, _ := tag.Base()
		r.Language = base.String()
	}
	r.Spec.normalize(r)
	return r.Spec.validate(r)
}

func requireTopic(r *Request) error {
	if r.Topic == "" {
		return invalid("topic", "is required for %s", r.Kind())
	}
	return nil
}

func checkWords(words int) error {
	if words < 0 || words > MaxDesiredWords {
		return invalid("options.desired_length_words", "must be between 0 and %d", MaxDesiredWords)
	}
	return nil
}

// StorySpec requests a short illustrated story. The request topic is the
// main character description.
type StorySpec struct {
	WithMedia  bool   `json:"with_media,omitempty"`
	Voice      string `json:"voice,omitempty"`
	ImageStyle string `json:"image_style,omitempty"`
}

func (*StorySpec) Kind() ContentKind { return KindStory }

func (s *StorySpec) normalize(*Request) {
	if s.ImageStyle == "" {
		s.ImageStyle = "storybook illustration"
	}
}

func (s *StorySpec) validate(r *Request) error { return requireTopic(r) }

// EducationalStyle is the presentation style of an educational script.
type EducationalStyle string

const (
	StyleLecture   EducationalStyle = "lecture"
	StyleTutorial  EducationalStyle = "tutorial"
	StyleExplainer EducationalStyle = "explainer"
)

// Difficulty is the target audience level of an educational script.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// EducationalSpec requests an educational script.
type EducationalSpec struct {
	Style      EducationalStyle `json:"educational_style,omitempty"`
	Difficulty Difficulty       `json:"difficulty_level,omitempty"`
	WithMedia  bool             `json:"with_media,omitempty"`
	Voice      string           `json:"voice,omitempty"`
}

func (*EducationalSpec) Kind() ContentKind { return KindEducational }

func (s *EducationalSpec) normalize(*Request) {
	if s.Style == "" {
		s.Style = StyleExplainer
	}
	if s.Difficulty == "" {
		s.Difficulty = DifficultyBeginner
	}
}

func (s *EducationalSpec) validate(r *Request) error {
	switch s.Style {
	case StyleLecture, StyleTutorial, StyleExplainer:
	default:
		return invalid("options.educational_style", "must be one of lecture, tutorial, explainer")
	}
	switch s.Difficulty {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
	default:
		return invalid("options.difficulty_level", "must be one of beginner, intermediate, advanced")
	}
	return requireTopic(r)
}

// PodcastType selects where the podcast script comes from.
type PodcastType string

const (
	PodcastCustomText     PodcastType = "custom_text"
	PodcastTopicBased     PodcastType = "topic_based"
	PodcastFreeGeneration PodcastType = "free_generation"
)

// PodcastSpec requests a narrated podcast episode.
type PodcastSpec struct {
	Type       PodcastType `json:"podcast_type"`
	CustomText string      `json:"custom_text,omitempty"`
	Topic      string      `json:"topic,omitempty"`
	Voice      string      `json:"voice,omitempty"`
}

func (*PodcastSpec) Kind() ContentKind { return KindPodcast }

func (s *PodcastSpec) normalize(r *Request) {
	s.CustomText = strings.TrimSpace(s.CustomText)
	s.Topic = strings.TrimSpace(s.Topic)
	if s.Topic == "" {
		s.Topic = r.Topic
	}
}

func (s *PodcastSpec) validate(*Request) error {
	switch s.Type {
	case PodcastCustomText:
		if s.CustomText == "" {
			return invalid("options.custom_text", "is required for custom_text podcasts")
		}
	case PodcastTopicBased:
		if s.Topic == "" {
			return invalid("options.topic", "is required for topic_based podcasts")
		}
	case PodcastFreeGeneration:
	case "":
		return invalid("options.podcast_type", "is required")
	default:
		return invalid("options.podcast_type", "unsupported podcast type %q", s.Type)
	}
	return nil
}

// ArticleSpec requests a long-form article.
type ArticleSpec struct {
	DesiredWords       int    `json:"desired_length_words,omitempty"`
	StyleTone          string `json:"style_tone,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

func (*ArticleSpec) Kind() ContentKind { return KindArticle }

func (*ArticleSpec) normalize(*Request) {}

func (s *ArticleSpec) validate(r *Request) error {
	if err := checkWords(s.DesiredWords); err != nil {
		return err
	}
	return requireTopic(r)
}

// PostLength is the rough size of a blog post.
type PostLength string

const (
	PostShort  PostLength = "short"
	PostMedium PostLength = "medium"
	PostLong   PostLength = "long"
)

// DefaultPostStyle applies when a post request omits style.
const DefaultPostStyle = "informative"

// Words returns the target word count for the length.
func (l PostLength) Words() int {
	switch l {
	case PostShort:
		return 200
	case PostLong:
		return 1000
	default:
		return 500
	}
}

// PostSpec requests a blog post.
type PostSpec struct {
	Style          string     `json:"style,omitempty"`
	Length         PostLength `json:"length,omitempty"`
	TargetAudience string     `json:"target_audience,omitempty"`
}

func (*PostSpec) Kind() ContentKind { return KindPost }

func (s *PostSpec) normalize(*Request) {
	s.Style = strings.TrimSpace(s.Style)
	if s.Style == "" {
		s.Style = DefaultPostStyle
	}
	s.Length = PostLength(strings.ToLower(strings.TrimSpace(string(s.Length))))
	if s.Length == "" {
		s.Length = PostMedium
	}
	s.TargetAudience = strings.TrimSpace(s.TargetAudience)
}

func (s *PostSpec) validate(r *Request) error {
	switch s.Length {
	case PostShort, PostMedium, PostLong:
	default:
		return invalid("options.length", "must be one of short, medium, long")
	}
	return requireTopic(r)
}

// TweetThreadSpec requests a thread of short social posts.
type TweetThreadSpec struct {
	NumTweets          int    `json:"num_tweets,omitempty"`
	StyleTone          string `json:"style_tone,omitempty"`
	CallToAction       string `json:"call_to_action,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

func (*TweetThreadSpec) Kind() ContentKind { return KindTweetThread }

func (s *TweetThreadSpec) normalize(*Request) {
	if s.NumTweets == 0 {
		s.NumTweets = DefaultTweetCount
	}
}

func (s *TweetThreadSpec) validate(r *Request) error {
	if s.NumTweets < 1 || s.NumTweets > MaxTweetCount {
		return invalid("options.num_tweets", "must be between 1 and %d", MaxTweetCount)
	}
	return requireTopic(r)
}

// BookChapterSpec requests a single chapter of a longer book.
type BookChapterSpec struct {
	PlotSummary            string   `json:"plot_summary,omitempty"`
	ChapterTopic           string   `json:"chapter_topic,omitempty"`
	PreviousChapterSummary string   `json:"previous_chapter_summary,omitempty"`
	Characters             []string `json:"characters,omitempty"`
	Genre                  string   `json:"genre,omitempty"`
	StyleTone              string   `json:"style_tone,omitempty"`
	DesiredWords           int      `json:"desired_length_words,omitempty"`
	CustomInstructions     string   `json:"custom_instructions,omitempty"`
}

func (*BookChapterSpec) Kind() ContentKind { return KindBookChapter }

func (s *BookChapterSpec) normalize(*Request) {
	s.PlotSummary = strings.TrimSpace(s.PlotSummary)
	s.ChapterTopic = strings.TrimSpace(s.ChapterTopic)
	chars := s.Characters[:0]
	for _, c := range s.Characters {
		if c = strings.TrimSpace(c); c != "" {
			chars = append(chars, c)
		}
	}
	s.Characters = chars
}

func (s *BookChapterSpec) validate(*Request) error {
	if s.PlotSummary == "" && s.ChapterTopic == "" {
		return invalid("options", "book_chapter requires plot_summary or chapter_topic")
	}
	return checkWords(s.DesiredWords)
}

// MusicSpec requests an instrumental background track.
type MusicSpec struct {
	DurationSeconds int    `json:"duration,omitempty"`
	Tempo           int    `json:"tempo,omitempty"`
	Genre           string `json:"genre,omitempty"`
	Mood            string `json:"mood,omitempty"`
}

func (*MusicSpec) Kind() ContentKind { return KindMusic }

func (s *MusicSpec) normalize(*Request) {
	if s.DurationSeconds == 0 {
		s.DurationSeconds = DefaultMusicDuration
	}
	if s.Tempo == 0 {
		s.Tempo = DefaultMusicTempo
	}
	if s.Genre == "" {
		s.Genre = DefaultMusicGenre
	}
}

func (s *MusicSpec) validate(*Request) error {
	if s.DurationSeconds < 1 || s.DurationSeconds > MaxMusicDuration {
		return invalid("options.duration", "must be between 1 and %d seconds", MaxMusicDuration)
	}
	if s.Tempo < MinMusicTempo || s.Tempo > MaxMusicTempo {
		return invalid("options.tempo", "must be between %d and %d bpm", MinMusicTempo, MaxMusicTempo)
	}
	return nil
}

// GameSpec requests a small browser platformer.
type GameSpec struct {
	Theme string `json:"theme,omitempty"`
}

func (*GameSpec) Kind() ContentKind { return KindPlatformerGame }

func (s *GameSpec) normalize(r *Request) {
	s.Theme = strings.TrimSpace(s.Theme)
	if s.Theme == "" {
		s.Theme = r.Topic
	}
	if r.Topic == "" {
		r.Topic = s.Theme
	}
}

func (s *GameSpec) validate(*Request) error {
	if s.Theme == "" {
		return invalid("options.theme", "is required for platformer_game")
	}
	return nil
}

// NewGameRequest builds the request submitted through the games endpoint.
func NewGameRequest(theme string) Request {
	return Request{Topic: theme, Spec: &GameSpec{Theme: theme}}
}

// String renders the request for log lines.
func (r Request) String() string {
	return fmt.Sprintf("%s(%q)", r.Kind(), r.Topic)
}
