package scan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/persona-cli/internal/config"
	"github.com/sells-group/persona-cli/internal/identity"
	"github.com/sells-group/persona-cli/internal/model"
)

// GitHub's public events feed is capped at 300 events (3 pages of 100).
const githubMaxPages = 3

// GitHubFetcher reads a user's public events feed.
type GitHubFetcher struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewGitHubFetcher creates a GitHub strategy. A nil client uses a default.
func NewGitHubFetcher(cfg config.GitHubConfig, hc *http.Client) *GitHubFetcher {
	if hc == nil {
		hc = defaultHTTPClient()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.github.com"
	}
	return &GitHubFetcher{baseURL: base, token: cfg.Token, http: hc}
}

// Network implements Fetcher.
func (f *GitHubFetcher) Network() model.Network { return model.NetworkGitHub }

// Fetch implements Fetcher.
func (f *GitHubFetcher) Fetch(ctx context.Context, call Caller, profile model.IdentityProfile, since time.Time, limit int) ([]RawPost, error) {
	handle := profile.Handle
	if handle == "" {
		handle = identity.HandleFromURL(profile.URL)
	}
	if handle == "" {
		return nil, eris.New("github: profile has no handle")
	}

	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if f.token != "" {
		headers["Authorization"] = "Bearer " + f.token
	}

	var posts []RawPost
	for page := 1; page <= githubMaxPages; page++ {
		reqURL := fmt.Sprintf("%s/users/%s/events/public?per_page=100&page=%d", f.baseURL, url.PathEscape(handle), page)

		var body []byte
		err := call(ctx, "events", func(ctx context.Context) error {
			b, err := getJSON(ctx, f.http, "github", reqURL, headers)
			body = b
			return err
		})
		if err != nil {
			return nil, err
		}
		if !gjson.ValidBytes(body) {
			return nil, eris.New("github: malformed events payload")
		}
		events := gjson.ParseBytes(body)
		if !events.IsArray() {
			return nil, eris.New("github: events payload is not an array")
		}

		batch := events.Array()
		reachedWindow := false
		for _, ev := range batch {
			p, ok := githubEventPost(ev)
			if !ok {
				continue
			}
			if !p.PostedAt.After(since) {
				reachedWindow = true
				continue
			}
			posts = append(posts, p)
		}

		if len(batch) < 100 || reachedWindow || len(posts) >= limit {
			break
		}
	}
	return posts, nil
}

// githubEventPost maps one event to a post. Event types without authored
// text are skipped.
func githubEventPost(ev gjson.Result) (RawPost, bool) {
	repo := ev.Get("repo.name").String()
	p := RawPost{
		ExternalID: ev.Get("id").String(),
		PostedAt:   ev.Get("created_at").Time().UTC(),
	}

	switch ev.Get("type").String() {
	case "PushEvent":
		var msgs []string
		for _, m := range ev.Get("payload.commits.#.message").Array() {
			msgs = append(msgs, m.String())
		}
		p.Text = strings.Join(msgs, "\n")
		p.Link = fmt.Sprintf("https://github.com/%s/commit/%s", repo, ev.Get("payload.head").String())
	case "IssuesEvent":
		issue := ev.Get("payload.issue")
		p.Text = joinText(issue.Get("title").String(), issue.Get("body").String())
		p.Link = issue.Get("html_url").String()
		p.Metrics.Comments = intPtr(int(issue.Get("comments").Int()))
		p.Metrics.Likes = intPtr(int(issue.Get("reactions.+1").Int()))
	case "IssueCommentEvent":
		c := ev.Get("payload.comment")
		p.Text = c.Get("body").String()
		p.Link = c.Get("html_url").String()
		p.Metrics.Likes = intPtr(int(c.Get("reactions.+1").Int()))
	case "PullRequestEvent":
		pr := ev.Get("payload.pull_request")
		p.Text = joinText(pr.Get("title").String(), pr.Get("body").String())
		p.Link = pr.Get("html_url").String()
		p.Metrics.Comments = intPtr(int(pr.Get("comments").Int()))
	case "ReleaseEvent":
		rel := ev.Get("payload.release")
		p.Text = joinText(rel.Get("name").String(), rel.Get("body").String())
		p.Link = rel.Get("html_url").String()
	default:
		return RawPost{}, false
	}

	if strings.TrimSpace(p.Text) == "" || p.Link == "" || p.PostedAt.IsZero() {
		return RawPost{}, false
	}
	return p, true
}

func joinText(parts ...string) string {
	var out []string
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, "\n\n")
}
