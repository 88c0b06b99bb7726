package classify

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/sells-group/persona-cli/internal/model"
)

const (
	baseConfidence   = 0.5
	mediumTextBonus  = 0.2
	longTextBonus    = 0.1
	mediumTextLength = 50
	longTextLength   = 150
	perHitBonus      = 0.05
	maxHitBonus      = 0.2

	// directMaxLength bounds the "short single sentence" style rule.
	directMaxLength = 80
)

// Classifier annotates post text. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	lex *Lexicon
}

// New creates a Classifier over lex.
func New(lex *Lexicon) *Classifier {
	return &Classifier{lex: lex}
}

// Lexicon returns the tables the classifier was built with.
func (c *Classifier) Lexicon() *Lexicon { return c.lex }

// Classify annotates one post text. The result depends only on text.
func (c *Classifier) Classify(text string) model.Classification {
	lowered := strings.ToLower(text)
	hits := 0

	var topics []string
	for _, t := range c.lex.Topics {
		if m := MatchKeywords(lowered, t.Keywords); len(m) > 0 {
			topics = append(topics, t.Key())
			hits += len(m)
		}
	}
	if len(topics) == 0 {
		topics = []string{model.TopicGeneral}
	}

	intent := model.IntentOther
	for _, in := range c.lex.Intents {
		m := MatchKeywords(lowered, in.Keywords)
		hits += len(m)
		if len(m) > 0 && intent == model.IntentOther {
			intent = in.Key()
		}
	}

	pos := len(MatchKeywords(lowered, c.lex.Sentiment.Positive))
	neg := len(MatchKeywords(lowered, c.lex.Sentiment.Negative))
	hits += pos + neg
	sentiment := model.SentimentNeutral
	switch {
	case pos > neg:
		sentiment = model.SentimentPositive
	case neg > pos:
		sentiment = model.SentimentNegative
	}

	return model.Classification{
		Topics:     topics,
		Intent:     intent,
		Sentiment:  sentiment,
		Style:      c.style(text),
		Confidence: confidence(text, hits),
	}
}

func (c *Classifier) style(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	for _, s := range c.lex.Styles {
		if s.re != nil && s.re.MatchString(trimmed) {
			return s.Label
		}
	}
	if utf8.RuneCountInString(trimmed) <= directMaxLength && sentenceCount(trimmed) <= 1 {
		return model.StyleDirect
	}
	return model.StyleFormal
}

// sentenceCount counts sentence terminators, treating a trailing run of
// punctuation as one sentence end.
func sentenceCount(text string) int {
	n := 0
	prevTerminator := false
	for _, r := range text {
		isTerm := r == '.' || r == '!' || r == '?'
		if isTerm && !prevTerminator {
			n++
		}
		prevTerminator = isTerm
	}
	if n == 0 {
		return 1
	}
	if last, _ := utf8.DecodeLastRuneInString(text); last != '.' && last != '!' && last != '?' {
		n++
	}
	return n
}

func confidence(text string, hits int) float64 {
	conf := baseConfidence
	length := utf8.RuneCountInString(text)
	if length > mediumTextLength {
		conf += mediumTextBonus
	}
	if length > longTextLength {
		conf += longTextBonus
	}
	conf += math.Min(float64(hits)*perHitBonus, maxHitBonus)
	return math.Round(math.Min(conf, 1.0)*100) / 100
}

// ClassifyAll annotates posts in parallel with at most workers goroutines and
// returns the classifications keyed by post id.
func (c *Classifier) ClassifyAll(ctx context.Context, posts []model.Post, workers int) (map[string]model.Classification, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]model.Classification, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range posts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.Classify(posts[i].Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]model.Classification, len(posts))
	for i, p := range posts {
		out[p.ID] = results[i]
	}
	return out, nil
}
