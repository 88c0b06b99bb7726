package scan

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/persona-cli/internal/config"
	"github.com/sells-group/persona-cli/internal/cost"
	"github.com/sells-group/persona-cli/internal/metrics"
	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/resilience"
	"github.com/sells-group/persona-cli/pkg/anthropic"
	"github.com/sells-group/persona-cli/pkg/jina"
	"github.com/sells-group/persona-cli/pkg/perplexity"
)

const perplexityActivityPrompt = `List the most recent public LinkedIn posts written by the owner of the profile %s
published after %s. For each post give the full text, the publication date and the post URL.
Return the raw information as text.`

const haikuActivityPrompt = `Extract the LinkedIn posts from the following activity data.
Return a valid JSON array. Each element is an object with these fields:
- text: string (full post text)
- posted_at: string (ISO-8601 date or date-time)
- link: string (post URL, empty if unknown)
- likes: integer or null
- comments: integer or null
- shares: integer or null

Return at most %d posts, newest first. If there are no posts return [].

Activity data:
%s`

// LinkedInFetcher reads the public activity page through Jina Reader, falls
// back to a Perplexity search when the page is behind the login wall, and
// structures the text with Haiku.
type LinkedInFetcher struct {
	jina       jina.Client
	perplexity perplexity.Client
	ai         anthropic.Client
	model      string
	suffix     string
	costs      *cost.Calculator
	metrics    *metrics.Metrics
}

// NewLinkedInFetcher creates a LinkedIn strategy. The Perplexity client is
// optional.
func NewLinkedInFetcher(cfg config.LinkedInConfig, aiCfg config.AnthropicConfig, jc jina.Client, pc perplexity.Client, ai anthropic.Client) *LinkedInFetcher {
	suffix := cfg.ActivitySuffix
	if suffix == "" {
		suffix = "/recent-activity/all/"
	}
	return &LinkedInFetcher{
		jina:       jc,
		perplexity: pc,
		ai:         ai,
		model:      aiCfg.HaikuModel,
		suffix:     suffix,
	}
}

// WithSpend prices every collaborator call with calc and records the estimate
// on m.
func (f *LinkedInFetcher) WithSpend(calc *cost.Calculator, m *metrics.Metrics) *LinkedInFetcher {
	f.costs = calc
	f.metrics = m
	return f
}

// Network implements Fetcher.
func (f *LinkedInFetcher) Network() model.Network { return model.NetworkLinkedIn }

// Fetch implements Fetcher.
func (f *LinkedInFetcher) Fetch(ctx context.Context, call Caller, profile model.IdentityProfile, since time.Time, limit int) ([]RawPost, error) {
	if f.ai == nil {
		return nil, eris.New("linkedin: no extraction client configured")
	}
	log := zap.L().With(zap.String("network", "linkedin"), zap.String("url", profile.URL))

	activityURL := strings.TrimRight(profile.URL, "/") + f.suffix
	var raw string

	if f.jina != nil {
		err := call(ctx, "jina_read", func(ctx context.Context) error {
			resp, err := f.jina.Read(ctx, activityURL)
			if err != nil {
				return classifyAPIError(err)
			}
			f.metrics.AddSpend("jina", f.costs.Jina(resp.Data.Usage.Tokens))
			raw = resp.Data.Content
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Debug("linkedin: jina read failed, falling back to perplexity", zap.Error(err))
		}
	}

	if raw != "" && isLoginWall(raw) {
		log.Debug("linkedin: activity page returned login wall, falling back to perplexity")
		raw = ""
	}

	if raw == "" {
		if f.perplexity == nil {
			return nil, eris.New("linkedin: activity page unavailable and no search fallback configured")
		}
		temp := 0.2
		err := call(ctx, "perplexity", func(ctx context.Context) error {
			resp, err := f.perplexity.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
				Messages: []perplexity.Message{
					{Role: "user", Content: fmt.Sprintf(perplexityActivityPrompt, profile.URL, since.Format("2006-01-02"))},
				},
				Temperature:   &temp,
				SearchDomains: []string{"linkedin.com"},
				SearchRecency: recencyFor(since),
			})
			if err != nil {
				return classifyAPIError(err)
			}
			f.metrics.AddSpend("perplexity", f.costs.PerplexityQuery())
			raw = resp.Text()
			return nil
		})
		if err != nil {
			return nil, eris.Wrap(err, "linkedin: perplexity search")
		}
	}

	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var text string
	temp := 0.0
	err := call(ctx, "haiku_extract", func(ctx context.Context) error {
		resp, err := f.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       f.model,
			MaxTokens:   4096,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: "user", Content: fmt.Sprintf(haikuActivityPrompt, limit, raw)},
			},
		})
		if err != nil {
			return classifyAPIError(err)
		}
		resp.Usage.Log(f.model, "linkedin_activity")
		f.metrics.AddSpend("anthropic", f.costs.Claude(f.model, resp.Usage.InputTokens, resp.Usage.OutputTokens))
		text = resp.Text()
		return nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "linkedin: haiku extraction")
	}

	return parseLinkedInPosts(text, profile.URL)
}

type linkedInPost struct {
	Text     string `json:"text"`
	PostedAt string `json:"posted_at"`
	Link     string `json:"link"`
	Likes    *int   `json:"likes"`
	Comments *int   `json:"comments"`
	Shares   *int   `json:"shares"`
}

// recencyFor picks the narrowest search recency filter covering since. A zero
// since leaves the search unfiltered.
func recencyFor(since time.Time) string {
	if since.IsZero() {
		return ""
	}
	switch age := time.Since(since); {
	case age <= 24*time.Hour:
		return perplexity.RecencyDay
	case age <= 7*24*time.Hour:
		return perplexity.RecencyWeek
	case age <= 31*24*time.Hour:
		return perplexity.RecencyMonth
	case age <= 366*24*time.Hour:
		return perplexity.RecencyYear
	default:
		return ""
	}
}

func parseLinkedInPosts(text, profileURL string) ([]RawPost, error) {
	var items []linkedInPost
	if err := json.Unmarshal([]byte(cleanJSONArray(text)), &items); err != nil {
		return nil, eris.Wrap(err, "linkedin: parse extracted posts")
	}

	posts := make([]RawPost, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it.Text) == "" {
			continue
		}
		postedAt, ok := parseDate(it.PostedAt)
		if !ok {
			continue
		}
		link := strings.TrimSpace(it.Link)
		if link == "" {
			sum := sha1.Sum([]byte(it.Text))
			link = strings.TrimRight(profileURL, "/") + "/recent-activity/#" + hex.EncodeToString(sum[:6])
		}
		posts = append(posts, RawPost{
			ExternalID: link,
			PostedAt:   postedAt,
			Text:       it.Text,
			Link:       link,
			Metrics:    model.Metrics{Likes: it.Likes, Comments: it.Comments, Shares: it.Shares},
		})
	}
	return posts, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// isLoginWall detects a LinkedIn login wall in place of the activity feed.
func isLoginWall(content string) bool {
	if len(content) < 100 {
		return true
	}
	lower := strings.ToLower(content)
	for _, indicator := range []string{
		"sign in",
		"join now",
		"authwall",
		"login_required",
		"please log in",
		"sign up to view",
	} {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// cleanJSONArray extracts a JSON array from text that may carry markdown
// code fences or prose around it.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// classifyAPIError marks retryable collaborator statuses as transient.
func classifyAPIError(err error) error {
	var jinaErr *jina.APIError
	var pplxErr *perplexity.APIError
	switch {
	case errors.As(err, &jinaErr):
		return resilience.StatusError("jina", jinaErr.StatusCode, []byte(jinaErr.Body))
	case errors.As(err, &pplxErr):
		return resilience.StatusError("perplexity", pplxErr.StatusCode, []byte(pplxErr.Body))
	}
	if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
		return resilience.NewTransientError(err, code)
	}
	return err
}
