package scan

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/pkg/anthropic"
	"github.com/sells-group/persona-cli/pkg/jina"
	"github.com/sells-group/persona-cli/pkg/perplexity"
)

type mockJina struct{ mock.Mock }

func (m *mockJina) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if r := args.Get(0); r != nil {
		return r.(*jina.ReadResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPerplexity struct{ mock.Mock }

func (m *mockPerplexity) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*perplexity.ChatCompletionResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAnthropic struct{ mock.Mock }

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*anthropic.MessageResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

// stubFetcher returns canned posts or an error, optionally after a delay.
type stubFetcher struct {
	network model.Network
	posts   []RawPost
	err     error
	delay   time.Duration
	calls   int
}

func (f *stubFetcher) Network() model.Network { return f.network }

func (f *stubFetcher) Fetch(ctx context.Context, call Caller, _ model.IdentityProfile, _ time.Time, _ int) ([]RawPost, error) {
	f.calls++
	err := call(ctx, "stub", func(ctx context.Context) error {
		if f.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.delay):
			}
		}
		return f.err
	})
	if err != nil {
		return nil, err
	}
	return f.posts, nil
}

// passthrough is a Caller that applies no gating.
func passthrough(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
