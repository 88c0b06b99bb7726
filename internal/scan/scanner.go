package scan

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/persona-cli/internal/config"
	"github.com/sells-group/persona-cli/internal/metrics"
	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/resilience"
)

// Scanner runs the network strategies for confirmed profiles.
type Scanner struct {
	cfg      config.ScanConfig
	fetchers map[model.Network]Fetcher
	limiters *Limiters
	breakers *resilience.Breakers
	retry    resilience.RetryConfig
	policy   *bluemonday.Policy
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithMetrics records scan metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scanner) { s.metrics = m }
}

// WithClock overrides the time source used for the trailing window.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) { s.now = now }
}

// WithRetry overrides the retry policy for outbound calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Scanner) { s.retry = cfg }
}

// New creates a Scanner. One fetcher per network; later fetchers replace
// earlier ones for the same network.
func New(cfg config.ScanConfig, fetchers []Fetcher, opts ...Option) *Scanner {
	s := &Scanner{
		cfg:      cfg,
		fetchers: make(map[model.Network]Fetcher, len(fetchers)),
		retry:    resilience.DefaultRetryConfig().WithAttempts(cfg.RetryAttempts),
		policy:   bluemonday.StrictPolicy(),
		now:      time.Now,
	}
	for _, f := range fetchers {
		s.fetchers[f.Network()] = f
	}
	for _, o := range opts {
		o(s)
	}

	s.limiters = NewLimiters(cfg.RatePerSecond, cfg.Burst, s.metrics)
	bcfg := resilience.DefaultBreakerConfig()
	if cfg.BreakerFailures > 0 {
		bcfg.MaxFailures = cfg.BreakerFailures
	}
	bcfg.OnStateChange = func(name string, _, to gobreaker.State) {
		s.metrics.SetBreakerState(name, int(to))
	}
	s.breakers = resilience.NewBreakers(bcfg)
	return s
}

// Since returns the start of the trailing window.
func (s *Scanner) Since() time.Time {
	months := s.cfg.WindowMonths
	if months <= 0 {
		months = 12
	}
	return s.now().UTC().AddDate(0, -months, 0)
}

func (s *Scanner) maxPosts() int {
	if s.cfg.MaxPosts <= 0 {
		return 50
	}
	return s.cfg.MaxPosts
}

func (s *Scanner) caller(n model.Network) Caller {
	return func(ctx context.Context, op string, fn func(ctx context.Context) error) error {
		rc := s.retry
		rc.OnRetry = resilience.RetryLogger(string(n), op)
		return resilience.Do(ctx, rc, func(ctx context.Context) error {
			if err := s.limiters.Wait(ctx, n); err != nil {
				return err
			}
			return s.breakers.Execute(ctx, string(n), fn)
		})
	}
}

// Scan collects the recent posts of one confirmed profile. Only a profile
// that is not confirmed yields an error; collaborator failures are logged
// and reported through the scan status with no posts.
func (s *Scanner) Scan(ctx context.Context, profile model.IdentityProfile) (model.ProfileScan, error) {
	result := model.ProfileScan{
		ProfileID: profile.ID,
		Network:   profile.Network,
		URL:       profile.URL,
	}
	if !profile.Confirmed() {
		return result, eris.Wrapf(model.ErrProfileNotConfirmed, "scan %s profile %s is %s", profile.Network, profile.URL, profile.Status)
	}

	log := zap.L().With(
		zap.String("network", string(profile.Network)),
		zap.String("profile_id", profile.ID),
		zap.String("url", profile.URL),
	)

	fetcher, ok := s.fetchers[profile.Network]
	if !ok {
		result.Status = model.ScanStatusFailed
		result.Error = "no fetch strategy for network"
		log.Warn("scan: no fetch strategy for network")
		s.metrics.ObserveScan(string(profile.Network), string(result.Status), 0)
		return result, nil
	}

	since := s.Since()
	raws, err := fetcher.Fetch(ctx, s.caller(profile.Network), profile, since, s.maxPosts())
	if err != nil {
		result.Status = model.ScanStatusFailed
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.Status = model.ScanStatusTimeout
		}
		result.Error = err.Error()
		log.Warn("scan: fetch failed, continuing with empty result", zap.String("status", string(result.Status)), zap.Error(err))
		s.metrics.ObserveScan(string(profile.Network), string(result.Status), 0)
		return result, nil
	}

	result.Posts = s.normalize(profile, raws, since)
	result.PostCount = len(result.Posts)
	result.Status = model.ScanStatusOK
	if result.PostCount == 0 {
		result.Status = model.ScanStatusEmpty
	}
	log.Info("scan: profile scanned", zap.Int("posts", result.PostCount), zap.Int("raw", len(raws)))
	s.metrics.ObserveScan(string(profile.Network), string(result.Status), result.PostCount)
	return result, nil
}

// ScanAll scans every profile concurrently and waits for all of them. Each
// scan runs under its own timeout; a straggler is abandoned and reported as
// a timeout without affecting its siblings. Results keep the input order.
func (s *Scanner) ScanAll(ctx context.Context, profiles []model.IdentityProfile) []model.ProfileScan {
	results := make([]model.ProfileScan, len(profiles))
	timeout := s.cfg.TaskTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var g errgroup.Group
	for i, p := range profiles {
		g.Go(func() error {
			tctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			res, err := s.Scan(tctx, p)
			if err != nil {
				res.Status = model.ScanStatusFailed
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// normalize sanitises raw posts, drops those outside the window, orders them
// newest-first, collapses duplicate links and truncates to the post cap.
func (s *Scanner) normalize(profile model.IdentityProfile, raws []RawPost, since time.Time) []model.Post {
	posts := make([]model.Post, 0, len(raws))
	for _, r := range raws {
		if !r.PostedAt.After(since) {
			continue
		}
		link := normalizeLink(r.Link)
		if link == "" {
			continue
		}
		text := s.sanitize(r.Text)
		if text == "" {
			continue
		}
		posts = append(posts, model.Post{
			ID:         PostID(profile.ID, link),
			ProfileID:  profile.ID,
			Network:    profile.Network,
			ExternalID: r.ExternalID,
			PostedAt:   r.PostedAt.UTC(),
			Text:       text,
			Link:       link,
			Language:   DetectLanguage(r.Language, text),
			Metrics:    r.Metrics,
		})
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PostedAt.After(posts[j].PostedAt)
	})

	seen := make(map[string]struct{}, len(posts))
	out := posts[:0]
	for _, p := range posts {
		if _, dup := seen[p.Link]; dup {
			continue
		}
		seen[p.Link] = struct{}{}
		out = append(out, p)
	}

	if limit := s.maxPosts(); len(out) > limit {
		out = out[:limit]
	}
	return out
}

func normalizeLink(link string) string {
	return strings.TrimRight(strings.TrimSpace(link), "/")
}

// PostID derives the stable id of a post from its natural key, so re-scans
// address the same record.
func PostID(profileID, link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(profileID+"|"+link)).String()
}
