// Package persona aggregates a person's classified posts into a persona
// vector.
package persona

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/persona-cli/internal/classify"
	"github.com/sells-group/persona-cli/internal/model"
)

const (
	maxTopics     = 5
	maxKeywords   = 5
	maxWindows    = 3
	maxChannels   = 3
	toneDominance = 1.5
)

// Extractor builds persona vectors. It performs no I/O.
type Extractor struct {
	lex *classify.Lexicon
	now func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock overrides the extraction timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) { e.now = now }
}

// New creates an Extractor that scans raw text with lex's objection,
// pain-point and value-trigger tables.
func New(lex *classify.Lexicon, opts ...Option) *Extractor {
	e := &Extractor{lex: lex, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract aggregates posts into a persona vector. Posts are considered in the
// order given. A post's classification is taken from cls, falling back to
// the one stored on the post. Extract never fails; an empty post list yields
// the default vector.
func (e *Extractor) Extract(posts []model.Post, cls map[string]model.Classification) model.PersonaVector {
	topics := newCounter()
	styles := newCounter()
	channels := newCounter()
	var pos, neg, neutral int
	var confSum float64
	var classified int

	for _, p := range posts {
		channels.add(string(p.Network))

		c, ok := cls[p.ID]
		if !ok {
			c, ok = p.Classification()
		}
		if !ok {
			continue
		}
		classified++
		confSum += c.Confidence
		for _, t := range c.Topics {
			topics.add(t)
		}
		if c.Style != "" {
			styles.add(c.Style)
		}
		switch c.Sentiment {
		case model.SentimentPositive:
			pos++
		case model.SentimentNegative:
			neg++
		default:
			neutral++
		}
	}

	v := model.PersonaVector{
		Topics:            topics.top(maxTopics),
		Objections:        e.firstMatches(posts, e.lexObjections()),
		Tone:              tone(pos, neg, neutral),
		ActivityWindows:   activityWindows(posts),
		ChannelPreference: toNetworks(channels.top(maxChannels)),
		PainPoints:        e.firstMatches(posts, e.lexPainPoints()),
		ValueTriggers:     e.firstMatches(posts, e.lexValueTriggers()),
		Style:             model.StyleFormal,
		Metadata: model.PersonaMeta{
			TotalPosts:  len(posts),
			ExtractedAt: e.now().UTC(),
		},
	}
	if s := styles.top(1); len(s) == 1 {
		v.Style = s[0]
	}
	if classified > 0 {
		v.Metadata.MeanConfidence = math.Round(confSum/float64(classified)*100) / 100
	}
	return v
}

func (e *Extractor) lexObjections() []string {
	if e.lex == nil {
		return nil
	}
	return e.lex.Objections
}

func (e *Extractor) lexPainPoints() []string {
	if e.lex == nil {
		return nil
	}
	return e.lex.PainPoints
}

func (e *Extractor) lexValueTriggers() []string {
	if e.lex == nil {
		return nil
	}
	return e.lex.ValueTriggers
}

// firstMatches returns up to maxKeywords distinct keywords from table in
// order of first occurrence: post order, then position within the post.
func (e *Extractor) firstMatches(posts []model.Post, table []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, p := range posts {
		lowered := strings.ToLower(p.Text)
		type hit struct {
			kw  string
			pos int
		}
		var hits []hit
		for _, kw := range classify.MatchKeywords(lowered, table) {
			if !seen[kw] {
				hits = append(hits, hit{kw, strings.Index(lowered, kw)})
			}
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
		for _, h := range hits {
			seen[h.kw] = true
			out = append(out, h.kw)
			if len(out) == maxKeywords {
				return out
			}
		}
	}
	return out
}

func tone(pos, neg, neutral int) string {
	switch {
	case float64(pos) > toneDominance*float64(neg):
		return model.ToneOptimistic
	case float64(neg) > toneDominance*float64(pos):
		return model.ToneCritical
	case neutral > pos+neg:
		return model.ToneNeutral
	default:
		return model.ToneBalanced
	}
}

// activityWindows returns the weekdays with the most distinct posting hours
// (UTC), each with its sorted hours. Ties keep first-seen order.
func activityWindows(posts []model.Post) []model.ActivityWindow {
	var order []time.Weekday
	hours := make(map[time.Weekday]map[int]bool)
	for _, p := range posts {
		if p.PostedAt.IsZero() {
			continue
		}
		t := p.PostedAt.UTC()
		d := t.Weekday()
		if hours[d] == nil {
			hours[d] = make(map[int]bool)
			order = append(order, d)
		}
		hours[d][t.Hour()] = true
	}

	sort.SliceStable(order, func(i, j int) bool {
		return len(hours[order[i]]) > len(hours[order[j]])
	})
	if len(order) > maxWindows {
		order = order[:maxWindows]
	}

	out := make([]model.ActivityWindow, 0, len(order))
	for _, d := range order {
		hs := make([]int, 0, len(hours[d]))
		for h := range hours[d] {
			hs = append(hs, h)
		}
		sort.Ints(hs)
		out = append(out, model.ActivityWindow{Weekday: d.String(), Hours: hs})
	}
	return out
}

func toNetworks(names []string) []model.Network {
	out := make([]model.Network, 0, len(names))
	for _, n := range names {
		out = append(out, model.Network(n))
	}
	return out
}

// counter tallies labels while remembering first-seen order.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(label string) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label]++
}

// top returns up to n labels by descending count, ties in first-seen order.
func (c *counter) top(n int) []string {
	out := append([]string{}, c.order...)
	sort.SliceStable(out, func(i, j int) bool {
		return c.counts[out[i]] > c.counts[out[j]]
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
