// Package identity derives profile candidates for a person and scores how
// likely each one is to belong to them. Everything here is pure string work.
package identity

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/persona-cli/internal/model"
)

// maxHeuristicVariants bounds the handle guesses per network.
const maxHeuristicVariants = 3

// Candidate is an unconfirmed guess that a handle belongs to the person.
type Candidate struct {
	Network       model.Network   `json:"network"`
	Handle        string          `json:"handle"`
	URL           string          `json:"url"`
	EvidenceCount int             `json:"evidence_count"`
	Origin        model.OriginTag `json:"origin"`
	Evidence      map[string]any  `json:"evidence,omitempty"`
}

// profileURLTemplates maps each network to its public profile URL shape.
var profileURLTemplates = map[model.Network]string{
	model.NetworkLinkedIn: "https://linkedin.com/in/%s",
	model.NetworkTwitter:  "https://x.com/%s",
	model.NetworkGitHub:   "https://github.com/%s",
}

// ProfileURL builds the canonical profile URL for a handle.
func ProfileURL(n model.Network, handle string) string {
	tmpl, ok := profileURLTemplates[n]
	if !ok {
		return ""
	}
	return fmt.Sprintf(tmpl, handle)
}

// GenerateCandidates derives the candidate set for a seed. A URL supplied for a
// network yields exactly one provided candidate; otherwise up to three handle
// variants are guessed from the name.
func GenerateCandidates(seed model.Seed) []Candidate {
	first, last := nameTokens(seed.Name)

	var out []Candidate
	for _, n := range model.Networks() {
		if raw := seed.URLFor(n); raw != "" {
			canonical := CanonicalURL(raw)
			ev := baseEvidence(seed, model.OriginProvided, 2)
			ev["source_url"] = raw
			out = append(out, Candidate{
				Network:       n,
				Handle:        HandleFromURL(canonical),
				URL:           canonical,
				EvidenceCount: 2,
				Origin:        model.OriginProvided,
				Evidence:      ev,
			})
			continue
		}

		for _, v := range handleVariants(n, first, last) {
			ev := baseEvidence(seed, model.OriginHeuristic, 1)
			ev["variant"] = v.rule
			out = append(out, Candidate{
				Network:       n,
				Handle:        v.handle,
				URL:           ProfileURL(n, v.handle),
				EvidenceCount: 1,
				Origin:        model.OriginHeuristic,
				Evidence:      ev,
			})
		}
	}
	return out
}

func baseEvidence(seed model.Seed, origin model.OriginTag, count int) map[string]any {
	ev := map[string]any{
		"origin":         string(origin),
		"evidence_count": count,
		"name":           strings.TrimSpace(seed.Name),
	}
	if c := strings.TrimSpace(seed.Company); c != "" {
		ev["company"] = c
	}
	if r := strings.TrimSpace(seed.Role); r != "" {
		ev["role"] = r
	}
	return ev
}

type variant struct {
	handle string
	rule   string
}

// handleVariants returns concatenation, underscore-join and initial+last
// variants, deduplicated, in that order.
func handleVariants(n model.Network, first, last string) []variant {
	if first == "" {
		return nil
	}
	if last == "" {
		return []variant{{handle: first, rule: "single"}}
	}

	sep := "_"
	if n == model.NetworkGitHub {
		// GitHub logins only allow alphanumerics and hyphens.
		sep = "-"
	}
	initial := string([]rune(first)[:1])

	raw := []variant{
		{handle: first + last, rule: "concat"},
		{handle: first + sep + last, rule: "underscore"},
		{handle: initial + last, rule: "initial_last"},
	}

	seen := make(map[string]bool, len(raw))
	out := make([]variant, 0, maxHeuristicVariants)
	for _, v := range raw {
		if seen[v.handle] || len(out) == maxHeuristicVariants {
			continue
		}
		seen[v.handle] = true
		out = append(out, v)
	}
	return out
}

// nameTokens folds accents, lower-cases and returns the first and last name tokens.
func nameTokens(name string) (first, last string) {
	tokens := strings.FieldsFunc(foldASCII(strings.ToLower(name)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	default:
		return tokens[0], tokens[len(tokens)-1]
	}
}

// foldASCII strips combining marks so "João Conceição" becomes "Joao Conceicao".
func foldASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CanonicalURL normalises a profile URL so it can serve as a natural key:
// https scheme, lower-case host without "www.", no query, fragment or trailing slash.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host == "twitter.com" {
		host = "x.com"
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	return "https://" + host + path
}

// HandleFromURL returns the last path segment of a profile URL.
func HandleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimPrefix(parts[i], "@"); p != "" {
			return p
		}
	}
	return ""
}
