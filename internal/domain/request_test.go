package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAndValidate(t *testing.T, body string) (Request, error) {
	t.Helper()
	req, err := DecodeRequest([]byte(body))
	if err != nil {
		return req, err
	}
	return req, req.Validate()
}

func TestDecodeRequestArticle(t *testing.T) {
	req, err := decodeAndValidate(t, `{"content_type":"article","topic":" volcanoes "}`)
	require.NoError(t, err)
	assert.Equal(t, KindArticle, req.Kind())
	assert.Equal(t, "volcanoes", req.Topic)
	_, ok := req.Spec.(*ArticleSpec)
	assert.True(t, ok)
}

func TestDecodeRequestValidationFailures(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"malformed":              {`{"content_type":`, "body"},
		"missing kind":           {`{"topic":"x"}`, "content_type"},
		"unknown kind":           {`{"content_type":"poem","topic":"x"}`, "content_type"},
		"article without topic":  {`{"content_type":"article"}`, "topic"},
		"chapter without source": {`{"content_type":"book_chapter","topic":"x","options":{"genre":"sf"}}`, "options"},
		"podcast without type":   {`{"content_type":"podcast","topic":"x"}`, "options.podcast_type"},
		"custom podcast no text": {`{"content_type":"podcast","options":{"podcast_type":"custom_text"}}`, "options.custom_text"},
		"bad style":              {`{"content_type":"educational","topic":"x","options":{"educational_style":"rant"}}`, "options.educational_style"},
		"post without topic":     {`{"content_type":"post","options":{"length":"short"}}`, "topic"},
		"bad post length":        {`{"content_type":"post","topic":"x","options":{"length":"epic"}}`, "options.length"},
		"too many tweets":        {`{"content_type":"tweet_thread","topic":"x","options":{"num_tweets":99}}`, "options.num_tweets"},
		"slow tempo":             {`{"content_type":"music","options":{"tempo":5}}`, "options.tempo"},
		"game without theme":     {`{"content_type":"platformer_game"}`, "options.theme"},
		"wrong option type":      {`{"content_type":"article","topic":"x","options":{"desired_length_words":"many"}}`, "options"},
		"bad language":           {`{"content_type":"article","topic":"x","language":"not a language!"}`, "language"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeAndValidate(t, tc.body)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "err = %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestBookChapterAcceptsEitherSource(t *testing.T) {
	_, err := decodeAndValidate(t, `{"content_type":"book_chapter","options":{"plot_summary":"a heist"}}`)
	require.NoError(t, err)
	_, err = decodeAndValidate(t, `{"content_type":"book_chapter","options":{"chapter_topic":"the escape"}}`)
	require.NoError(t, err)
}

func TestDefaultsApplied(t *testing.T) {
	req, err := decodeAndValidate(t, `{"content_type":"tweet_thread","topic":"running"}`)
	require.NoError(t, err)
	assert.Equal(t, DefaultTweetCount, req.Spec.(*TweetThreadSpec).NumTweets)

	req, err = decodeAndValidate(t, `{"content_type":"music"}`)
	require.NoError(t, err)
	music := req.Spec.(*MusicSpec)
	assert.Equal(t, DefaultMusicDuration, music.DurationSeconds)
	assert.Equal(t, DefaultMusicTempo, music.Tempo)
	assert.Equal(t, DefaultMusicGenre, music.Genre)

	req, err = decodeAndValidate(t, `{"content_type":"educational","topic":"fractions","language":"id-ID"}`)
	require.NoError(t, err)
	edu := req.Spec.(*EducationalSpec)
	assert.Equal(t, StyleExplainer, edu.Style)
	assert.Equal(t, DifficultyBeginner, edu.Difficulty)
	assert.Equal(t, "id", req.Language)
}

func TestPostDefaults(t *testing.T) {
	req, err := decodeAndValidate(t, `{"content_type":"post","topic":"remote work"}`)
	require.NoError(t, err)
	post := req.Spec.(*PostSpec)
	assert.Equal(t, KindPost, req.Kind())
	assert.Equal(t, DefaultPostStyle, post.Style)
	assert.Equal(t, PostMedium, post.Length)
	assert.Equal(t, 500, post.Length.Words())

	req, err = decodeAndValidate(t, `{"content_type":"post","topic":"x","options":{"length":"LONG","style":"casual"}}`)
	require.NoError(t, err)
	post = req.Spec.(*PostSpec)
	assert.Equal(t, PostLong, post.Length)
	assert.Equal(t, 1000, post.Length.Words())
	assert.Equal(t, "casual", post.Style)
}

func TestGameThemeFallsBackToTopic(t *testing.T) {
	req, err := decodeAndValidate(t, `{"content_type":"platformer_game","topic":"space pirates"}`)
	require.NoError(t, err)
	assert.Equal(t, "space pirates", req.Spec.(*GameSpec).Theme)

	game := NewGameRequest("jungle")
	require.NoError(t, game.Validate())
	assert.Equal(t, "jungle", game.Topic)
}

func TestRequestRoundTripKeepsOptions(t *testing.T) {
	req, err := decodeAndValidate(t, `{"content_type":"podcast","options":{"podcast_type":"topic_based","topic":"bees","voice":"josh"}}`)
	require.NoError(t, err)
	raw, err := req.MarshalJSON()
	require.NoError(t, err)

	again, err := DecodeRequest(raw)
	require.NoError(t, err)
	assert.Equal(t, req.Spec, again.Spec)
}
