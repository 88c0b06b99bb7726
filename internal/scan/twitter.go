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

// TwitterFetcher reads a user's timeline through the X API v2.
type TwitterFetcher struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewTwitterFetcher creates an X strategy. A nil client uses a default.
func NewTwitterFetcher(cfg config.TwitterConfig, hc *http.Client) *TwitterFetcher {
	if hc == nil {
		hc = defaultHTTPClient()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.twitter.com"
	}
	return &TwitterFetcher{baseURL: base, token: cfg.BearerToken, http: hc}
}

// Network implements Fetcher.
func (f *TwitterFetcher) Network() model.Network { return model.NetworkTwitter }

// Fetch implements Fetcher.
func (f *TwitterFetcher) Fetch(ctx context.Context, call Caller, profile model.IdentityProfile, since time.Time, limit int) ([]RawPost, error) {
	handle := profile.Handle
	if handle == "" {
		handle = identity.HandleFromURL(profile.URL)
	}
	if handle == "" {
		return nil, eris.New("twitter: profile has no handle")
	}
	headers := map[string]string{"Authorization": "Bearer " + f.token}

	var userBody []byte
	err := call(ctx, "users/by", func(ctx context.Context) error {
		b, err := getJSON(ctx, f.http, "twitter", f.baseURL+"/2/users/by/username/"+url.PathEscape(handle), headers)
		userBody = b
		return err
	})
	if err != nil {
		return nil, err
	}
	userID := gjson.GetBytes(userBody, "data.id").String()
	if userID == "" {
		return nil, eris.Errorf("twitter: user %q not found", handle)
	}

	// The timeline endpoint accepts 5..100 results per page.
	maxResults := min(max(limit, 5), 100)
	q := url.Values{}
	q.Set("max_results", fmt.Sprint(maxResults))
	q.Set("start_time", since.UTC().Format(time.RFC3339))
	q.Set("tweet.fields", "created_at,lang,public_metrics")
	q.Set("exclude", "retweets")
	tweetsURL := fmt.Sprintf("%s/2/users/%s/tweets?%s", f.baseURL, url.PathEscape(userID), q.Encode())

	var body []byte
	err = call(ctx, "tweets", func(ctx context.Context) error {
		b, err := getJSON(ctx, f.http, "twitter", tweetsURL, headers)
		body = b
		return err
	})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, eris.New("twitter: malformed timeline payload")
	}

	var posts []RawPost
	gjson.GetBytes(body, "data").ForEach(func(_, tw gjson.Result) bool {
		id := tw.Get("id").String()
		text := tw.Get("text").String()
		if id == "" || strings.TrimSpace(text) == "" {
			return true
		}
		m := tw.Get("public_metrics")
		posts = append(posts, RawPost{
			ExternalID: id,
			PostedAt:   tw.Get("created_at").Time().UTC(),
			Text:       text,
			Link:       fmt.Sprintf("https://x.com/%s/status/%s", handle, id),
			Language:   tw.Get("lang").String(),
			Metrics: model.Metrics{
				Likes:    intPtr(int(m.Get("like_count").Int())),
				Shares:   intPtr(int(m.Get("retweet_count").Int())),
				Comments: intPtr(int(m.Get("reply_count").Int())),
			},
		})
		return true
	})
	return posts, nil
}
