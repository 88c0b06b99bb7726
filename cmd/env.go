package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/persona-cli/internal/classify"
	"github.com/sells-group/persona-cli/internal/cost"
	"github.com/sells-group/persona-cli/internal/metrics"
	"github.com/sells-group/persona-cli/internal/persona"
	"github.com/sells-group/persona-cli/internal/pipeline"
	"github.com/sells-group/persona-cli/internal/playbook"
	"github.com/sells-group/persona-cli/internal/scan"
	"github.com/sells-group/persona-cli/internal/store"
	anthropicpkg "github.com/sells-group/persona-cli/pkg/anthropic"
	"github.com/sells-group/persona-cli/pkg/jina"
	"github.com/sells-group/persona-cli/pkg/perplexity"
)

// serviceEnv holds the store, the metrics registry and the pipeline service
// needed by the pipeline commands.
type serviceEnv struct {
	Store    store.Store
	Registry *prometheus.Registry
	Service  *pipeline.Service
}

// Close releases resources held by the environment.
func (e *serviceEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initService validates the config for mode, opens the store and builds the
// pipeline service. Callers should defer env.Close().
func initService(ctx context.Context, mode string) (*serviceEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	lex, err := loadLexicon()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	catalog, err := loadCatalog()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	scanner := scan.New(cfg.Scan, initFetchers(m), scan.WithMetrics(m))
	svc := pipeline.New(cfg, st, scanner,
		classify.New(lex),
		persona.New(lex),
		playbook.NewGenerator(catalog),
		pipeline.WithMetrics(m),
	)

	return &serviceEnv{Store: st, Registry: reg, Service: svc}, nil
}

// initFetchers builds one collection strategy per network. LinkedIn needs an
// Anthropic key to structure activity text; without one it is left out and
// LinkedIn scans report failed.
func initFetchers(m *metrics.Metrics) []scan.Fetcher {
	fetchers := []scan.Fetcher{
		scan.NewGitHubFetcher(cfg.Networks.GitHub, nil),
		scan.NewTwitterFetcher(cfg.Networks.Twitter, nil),
	}

	if cfg.Anthropic.Key == "" {
		zap.L().Warn("PERSONA_ANTHROPIC_KEY not set, linkedin scanning disabled")
		return fetchers
	}

	jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))

	var perplexityClient perplexity.Client
	if cfg.Perplexity.Key != "" {
		perplexityClient = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	} else {
		zap.L().Debug("PERSONA_PERPLEXITY_KEY not set, linkedin search fallback disabled")
	}

	anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
	linkedin := scan.NewLinkedInFetcher(cfg.Networks.LinkedIn, cfg.Anthropic, jinaClient, perplexityClient, anthropicClient).
		WithSpend(cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing)), m)
	return append(fetchers, linkedin)
}

func loadLexicon() (*classify.Lexicon, error) {
	if cfg.Classify.LexiconPath == "" {
		return classify.DefaultLexicon()
	}
	lex, err := classify.LoadLexicon(cfg.Classify.LexiconPath)
	if err != nil {
		return nil, eris.Wrap(err, "load lexicon")
	}
	zap.L().Info("lexicon loaded", zap.String("path", cfg.Classify.LexiconPath))
	return lex, nil
}

func loadCatalog() (*playbook.Catalog, error) {
	if cfg.Playbook.CatalogPath == "" {
		return playbook.DefaultCatalog()
	}
	catalog, err := playbook.LoadCatalog(cfg.Playbook.CatalogPath)
	if err != nil {
		return nil, eris.Wrap(err, "load vendor catalog")
	}
	zap.L().Info("vendor catalog loaded", zap.String("path", cfg.Playbook.CatalogPath))
	return catalog, nil
}
