// Package classify annotates post text with topics, intent, sentiment, style
// and a confidence score using versioned keyword tables.
package classify

import (
	_ "embed"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexiconYAML []byte

// KeywordSet is one named row of an ordered keyword table.
type KeywordSet struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Key returns the row's name, or its label for label-keyed tables.
func (k KeywordSet) Key() string {
	if k.Name != "" {
		return k.Name
	}
	return k.Label
}

// StylePattern maps a regular expression to a style label.
type StylePattern struct {
	Label   string `yaml:"label"`
	Pattern string `yaml:"pattern"`

	re *regexp.Regexp
}

// SentimentTable holds the positive and negative keyword lists.
type SentimentTable struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Lexicon is the immutable set of keyword tables shared by the classifier and
// the persona extractor. Load one per process (or per test) and pass it
// explicitly; nothing in this package holds a global copy.
type Lexicon struct {
	Version       int            `yaml:"version"`
	Topics        []KeywordSet   `yaml:"topics"`
	Intents       []KeywordSet   `yaml:"intents"`
	Sentiment     SentimentTable `yaml:"sentiment"`
	Styles        []StylePattern `yaml:"styles"`
	Objections    []string       `yaml:"objections"`
	PainPoints    []string       `yaml:"pain_points"`
	ValueTriggers []string       `yaml:"value_triggers"`
}

// DefaultLexicon returns the lexicon embedded in the binary.
func DefaultLexicon() (*Lexicon, error) {
	return ParseLexicon(defaultLexiconYAML)
}

// LoadLexicon reads a lexicon from a YAML file. An empty path returns the
// embedded default.
func LoadLexicon(path string) (*Lexicon, error) {
	if path == "" {
		return DefaultLexicon()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read lexicon %s", path)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes a lexicon document with a top-level "lexicon" key,
// lower-cases every keyword and compiles the style patterns.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var wrapper struct {
		Lexicon Lexicon `yaml:"lexicon"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "classify: parse lexicon")
	}
	lex := &wrapper.Lexicon

	if len(lex.Topics) == 0 {
		return nil, eris.New("classify: lexicon has no topics")
	}
	if len(lex.Intents) == 0 {
		return nil, eris.New("classify: lexicon has no intents")
	}

	for i := range lex.Topics {
		lex.Topics[i].Keywords = lowerAll(lex.Topics[i].Keywords)
	}
	for i := range lex.Intents {
		lex.Intents[i].Keywords = lowerAll(lex.Intents[i].Keywords)
	}
	lex.Sentiment.Positive = lowerAll(lex.Sentiment.Positive)
	lex.Sentiment.Negative = lowerAll(lex.Sentiment.Negative)
	lex.Objections = lowerAll(lex.Objections)
	lex.PainPoints = lowerAll(lex.PainPoints)
	lex.ValueTriggers = lowerAll(lex.ValueTriggers)

	for i := range lex.Styles {
		re, err := regexp.Compile(lex.Styles[i].Pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "classify: compile style %q", lex.Styles[i].Label)
		}
		lex.Styles[i].re = re
	}

	return lex, nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MatchKeywords returns the keywords from list found in lowered text, in
// list order.
func MatchKeywords(lowered string, list []string) []string {
	var hits []string
	for _, kw := range list {
		if strings.Contains(lowered, kw) {
			hits = append(hits, kw)
		}
	}
	return hits
}
