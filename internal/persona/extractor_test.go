package persona

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/persona-cli/internal/classify"
	"github.com/sells-group/persona-cli/internal/model"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	lex, err := classify.DefaultLexicon()
	require.NoError(t, err)
	return New(lex, WithClock(func() time.Time { return fixedNow }))
}

func post(id string, n model.Network, at time.Time, text string) model.Post {
	return model.Post{ID: id, ProfileID: "prof-" + string(n), Network: n, PostedAt: at, Text: text, Link: "https://example.com/" + id}
}

func cls(sentiment, style string, conf float64, topics ...string) model.Classification {
	return model.Classification{Topics: topics, Intent: model.IntentOther, Sentiment: sentiment, Style: style, Confidence: conf}
}

func TestExtract_Empty(t *testing.T) {
	v := newExtractor(t).Extract(nil, nil)

	assert.Equal(t, model.ToneBalanced, v.Tone)
	assert.Equal(t, model.StyleFormal, v.Style)
	assert.Equal(t, 0, v.Metadata.TotalPosts)
	assert.Zero(t, v.Metadata.MeanConfidence)
	assert.Equal(t, fixedNow, v.Metadata.ExtractedAt)
	assert.Empty(t, v.Topics)
	assert.Empty(t, v.Objections)
	assert.Empty(t, v.ActivityWindows)
	assert.Empty(t, v.ChannelPreference)
	assert.Empty(t, v.PainPoints)
	assert.Empty(t, v.ValueTriggers)
	assert.NotNil(t, v.Topics)
	assert.NotNil(t, v.Objections)
}

func TestExtract_TopicRanking(t *testing.T) {
	mon := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	posts := []model.Post{
		post("p1", model.NetworkLinkedIn, mon, "a"),
		post("p2", model.NetworkLinkedIn, mon, "b"),
		post("p3", model.NetworkLinkedIn, mon, "c"),
		post("p4", model.NetworkLinkedIn, mon, "d"),
	}
	c := map[string]model.Classification{
		"p1": cls(model.SentimentNeutral, model.StyleFormal, 0.5, "Cloud", "ERP"),
		"p2": cls(model.SentimentNeutral, model.StyleFormal, 0.5, "ERP"),
		"p3": cls(model.SentimentNeutral, model.StyleFormal, 0.5, "Supply Chain", "ERP"),
		"p4": cls(model.SentimentNeutral, model.StyleFormal, 0.5, "Supply Chain", "AI", "Security", "Finance"),
	}

	v := newExtractor(t).Extract(posts, c)

	require.Len(t, v.Topics, 5)
	assert.Equal(t, []string{"ERP", "Supply Chain", "Cloud", "AI", "Security"}, v.Topics)
}

func TestExtract_Tone(t *testing.T) {
	tests := []struct {
		name               string
		pos, neg, neutrals int
		want               string
	}{
		{"optimistic", 3, 1, 0, model.ToneOptimistic},
		{"critical", 0, 2, 0, model.ToneCritical},
		{"neutral", 1, 1, 3, model.ToneNeutral},
		{"balanced", 2, 2, 1, model.ToneBalanced},
		{"boundary is not dominance", 3, 2, 0, model.ToneBalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var posts []model.Post
			c := make(map[string]model.Classification)
			add := func(n int, sentiment string) {
				for i := 0; i < n; i++ {
					id := fmt.Sprintf("%s-%d", sentiment, i)
					posts = append(posts, post(id, model.NetworkGitHub, fixedNow, "x"))
					c[id] = cls(sentiment, model.StyleDirect, 0.5, "General")
				}
			}
			add(tt.pos, model.SentimentPositive)
			add(tt.neg, model.SentimentNegative)
			add(tt.neutrals, model.SentimentNeutral)

			v := newExtractor(t).Extract(posts, c)
			assert.Equal(t, tt.want, v.Tone)
		})
	}
}

func TestExtract_ActivityWindows(t *testing.T) {
	at := func(day, hour int) time.Time { return time.Date(2026, 3, day, hour, 30, 0, 0, time.UTC) }
	// 2026-03-09 is a Monday.
	posts := []model.Post{
		post("a", model.NetworkTwitter, at(10, 9), "x"),  // Tuesday
		post("b", model.NetworkTwitter, at(9, 14), "x"),  // Monday
		post("c", model.NetworkTwitter, at(9, 9), "x"),   // Monday
		post("d", model.NetworkTwitter, at(9, 9), "x"),   // Monday, repeated hour
		post("e", model.NetworkTwitter, at(11, 8), "x"),  // Wednesday
		post("f", model.NetworkTwitter, at(12, 8), "x"),  // Thursday
		post("g", model.NetworkTwitter, at(12, 18), "x"), // Thursday
		post("h", model.NetworkTwitter, at(12, 20), "x"), // Thursday
	}

	v := newExtractor(t).Extract(posts, nil)

	require.Len(t, v.ActivityWindows, 3)
	assert.Equal(t, model.ActivityWindow{Weekday: "Thursday", Hours: []int{8, 18, 20}}, v.ActivityWindows[0])
	assert.Equal(t, model.ActivityWindow{Weekday: "Monday", Hours: []int{9, 14}}, v.ActivityWindows[1])
	assert.Equal(t, model.ActivityWindow{Weekday: "Tuesday", Hours: []int{9}}, v.ActivityWindows[2])
}

func TestExtract_ChannelPreference(t *testing.T) {
	posts := []model.Post{
		post("1", model.NetworkGitHub, fixedNow, "x"),
		post("2", model.NetworkLinkedIn, fixedNow, "x"),
		post("3", model.NetworkLinkedIn, fixedNow, "x"),
		post("4", model.NetworkTwitter, fixedNow, "x"),
	}

	v := newExtractor(t).Extract(posts, nil)

	assert.Equal(t, []model.Network{model.NetworkLinkedIn, model.NetworkGitHub, model.NetworkTwitter}, v.ChannelPreference)
	assert.Equal(t, 4, v.Metadata.TotalPosts)
	assert.Zero(t, v.Metadata.MeanConfidence)
}

func TestExtract_KeywordTables(t *testing.T) {
	posts := []model.Post{
		post("1", model.NetworkLinkedIn, fixedNow, "Our team lives in a Spreadsheet and every report is a manual process."),
		post("2", model.NetworkLinkedIn, fixedNow, "Honestly it is too expensive and we already have a tool. Risk is high."),
		post("3", model.NetworkLinkedIn, fixedNow, "Looking for efficiency and real-time visibility, savings matter."),
	}

	v := newExtractor(t).Extract(posts, nil)

	assert.Equal(t, []string{"spreadsheet", "manual process", "visibility"}, v.PainPoints)
	assert.Equal(t, []string{"too expensive", "already have", "risk"}, v.Objections)
	assert.Equal(t, []string{"efficiency", "real-time", "savings"}, v.ValueTriggers)
}

func TestExtract_KeywordTablesCapped(t *testing.T) {
	posts := []model.Post{
		post("1", model.NetworkLinkedIn, fixedNow, "manual process, spreadsheet, rework, slow, downtime, integration, stockout"),
	}

	v := newExtractor(t).Extract(posts, nil)

	assert.Equal(t, []string{"manual process", "spreadsheet", "rework", "slow", "downtime"}, v.PainPoints)
}

func TestExtract_StyleModeAndConfidence(t *testing.T) {
	posts := []model.Post{
		post("1", model.NetworkGitHub, fixedNow, "x"),
		post("2", model.NetworkGitHub, fixedNow, "x"),
		post("3", model.NetworkGitHub, fixedNow, "x"),
	}
	c := map[string]model.Classification{
		"1": cls(model.SentimentNeutral, model.StyleHumor, 0.5, "General"),
		"2": cls(model.SentimentNeutral, model.StyleTechnical, 0.7, "General"),
		"3": cls(model.SentimentNeutral, model.StyleTechnical, 0.75, "General"),
	}

	v := newExtractor(t).Extract(posts, c)

	assert.Equal(t, model.StyleTechnical, v.Style)
	assert.InDelta(t, 0.65, v.Metadata.MeanConfidence, 1e-9)
}

func TestExtract_FallsBackToStoredClassification(t *testing.T) {
	p := post("1", model.NetworkGitHub, fixedNow, "x")
	classifiedAt := fixedNow
	p.Topics = []string{"Cloud"}
	p.Sentiment = model.SentimentPositive
	p.Style = model.StyleDirect
	p.Confidence = 0.6
	p.ClassifiedAt = &classifiedAt

	v := newExtractor(t).Extract([]model.Post{p}, nil)

	assert.Equal(t, []string{"Cloud"}, v.Topics)
	assert.Equal(t, model.ToneOptimistic, v.Tone)
	assert.Equal(t, model.StyleDirect, v.Style)
}

func TestExtract_WithClassifier(t *testing.T) {
	lex, err := classify.DefaultLexicon()
	require.NoError(t, err)
	c := classify.New(lex)

	posts := []model.Post{
		post("1", model.NetworkLinkedIn, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), "Excited to announce our new ERP go-live! Proud of the team."),
		post("2", model.NetworkLinkedIn, time.Date(2026, 3, 3, 11, 0, 0, 0, time.UTC), "Great results from the Protheus rollout, amazing productivity gains."),
		post("3", model.NetworkLinkedIn, time.Date(2026, 3, 4, 15, 0, 0, 0, time.UTC), "Happy to share our supply chain dashboard is live."),
	}
	cs := make(map[string]model.Classification, len(posts))
	for _, p := range posts {
		cs[p.ID] = c.Classify(p.Text)
	}

	v := New(lex).Extract(posts, cs)

	require.NotEmpty(t, v.Topics)
	assert.Equal(t, "ERP", v.Topics[0])
	assert.Equal(t, model.ToneOptimistic, v.Tone)
	assert.Equal(t, []model.Network{model.NetworkLinkedIn}, v.ChannelPreference)
	assert.Contains(t, v.ValueTriggers, "productivity")
	assert.Equal(t, 3, v.Metadata.TotalPosts)
}
