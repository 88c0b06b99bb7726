package model

import "time"

// Intent labels, in the priority order the classifier evaluates them.
const (
	IntentBuyingSignal = "buying_signal"
	IntentComplaint    = "complaint"
	IntentQuestion     = "question"
	IntentAnnouncement = "announcement"
	IntentOther        = "other"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Communication style labels.
const (
	StyleFormal    = "formal"
	StyleTechnical = "technical"
	StyleHumor     = "humor"
	StyleDirect    = "direct"
)

// TopicGeneral is assigned when no topic keyword matches.
const TopicGeneral = "General"

// Metrics holds optional engagement counts.
type Metrics struct {
	Likes    *int `json:"likes,omitempty"`
	Shares   *int `json:"shares,omitempty"`
	Comments *int `json:"comments,omitempty"`
}

// Post is one item of public activity collected from a confirmed profile.
// Everything except the classification fields is immutable once stored.
type Post struct {
	ID         string    `json:"id"`
	ProfileID  string    `json:"profile_id"`
	Network    Network   `json:"network"`
	ExternalID string    `json:"external_id,omitempty"`
	PostedAt   time.Time `json:"posted_at"`
	Text       string    `json:"text"`
	Link       string    `json:"link"`
	Language   string    `json:"language,omitempty"`
	Metrics    Metrics   `json:"metrics"`

	Topics       []string   `json:"topics,omitempty"`
	Intent       string     `json:"intent,omitempty"`
	Sentiment    string     `json:"sentiment,omitempty"`
	Style        string     `json:"style,omitempty"`
	Confidence   float64    `json:"confidence,omitempty"`
	ClassifiedAt *time.Time `json:"classified_at,omitempty"`
}

// Classified reports whether classification fields have been populated.
func (p Post) Classified() bool {
	return p.ClassifiedAt != nil
}

// Classification returns the stored classification, if any.
func (p Post) Classification() (Classification, bool) {
	if !p.Classified() {
		return Classification{}, false
	}
	return Classification{
		Topics:     p.Topics,
		Intent:     p.Intent,
		Sentiment:  p.Sentiment,
		Style:      p.Style,
		Confidence: p.Confidence,
	}, true
}

// Classification is the transient per-post annotation produced by the classifier.
type Classification struct {
	Topics     []string `json:"topics"`
	Intent     string   `json:"intent"`
	Sentiment  string   `json:"sentiment"`
	Style      string   `json:"style,omitempty"`
	Confidence float64  `json:"confidence"`
}
