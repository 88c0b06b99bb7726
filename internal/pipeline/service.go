// Package pipeline wires identity resolution, network scanning,
// classification, persona extraction and playbook generation into the
// operations exposed by the CLI and the HTTP API.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/persona-cli/internal/classify"
	"github.com/sells-group/persona-cli/internal/config"
	"github.com/sells-group/persona-cli/internal/identity"
	"github.com/sells-group/persona-cli/internal/metrics"
	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/persona"
	"github.com/sells-group/persona-cli/internal/playbook"
	"github.com/sells-group/persona-cli/internal/store"
)

// Phase names recorded on runs.
const (
	PhaseResolve  = "resolve"
	PhaseScan     = "scan"
	PhaseClassify = "classify"
	PhaseExtract  = "extract"
	PhasePlaybook = "playbook"
)

// Scanner collects posts for a set of confirmed profiles. Every profile gets
// a result, failed or not.
type Scanner interface {
	ScanAll(ctx context.Context, profiles []model.IdentityProfile) []model.ProfileScan
}

// Service runs the persona pipeline against a store.
type Service struct {
	cfg        *config.Config
	store      store.Store
	scanner    Scanner
	classifier *classify.Classifier
	extractor  *persona.Extractor
	generator  *playbook.Generator
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records pipeline metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time stamped on classifications.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	scanner Scanner,
	classifier *classify.Classifier,
	extractor *persona.Extractor,
	generator *playbook.Generator,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:        cfg,
		store:      st,
		scanner:    scanner,
		classifier: classifier,
		extractor:  extractor,
		generator:  generator,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Resolve upserts the person a seed describes, generates and scores its
// candidate profiles and stores them. Exhaustion is not an error: the result
// carries every profile with its true status.
func (s *Service) Resolve(ctx context.Context, seed model.Seed) (*model.ResolutionResult, error) {
	if err := seed.Validate(); err != nil {
		return nil, err
	}

	person, err := s.store.UpsertPerson(ctx, model.PersonFromSeed(seed))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: upsert person")
	}

	t, err := s.startRun(ctx, person.ID, model.RunKindResolve)
	if err != nil {
		return nil, err
	}

	var profiles []model.IdentityProfile
	err = t.phase(ctx, PhaseResolve, model.RunStatusResolving, func() (*model.PhaseResult, error) {
		resolved, resolveErr := identity.Resolve(person.ID, seed)
		if resolveErr != nil {
			return nil, resolveErr
		}
		stored, upsertErr := s.store.UpsertProfiles(ctx, resolved)
		if upsertErr != nil {
			return nil, eris.Wrap(upsertErr, "pipeline: upsert profiles")
		}
		profiles = stored

		summary := model.Summarize(stored)
		for _, p := range stored {
			s.metrics.ObserveProfile(string(p.Network), string(p.Status))
		}
		return &model.PhaseResult{
			Metadata: map[string]any{
				"total":     summary.Total,
				"confirmed": summary.Confirmed,
				"probable":  summary.Probable,
				"pending":   summary.Pending,
			},
		}, nil
	})
	t.finish(ctx, err)
	if err != nil {
		return nil, err
	}

	return &model.ResolutionResult{
		Person:   *person,
		Profiles: profiles,
		Summary:  model.Summarize(profiles),
		RunID:    t.run.ID,
	}, nil
}

// Scan collects posts from every confirmed profile of a person and stores
// the new ones.
func (s *Service) Scan(ctx context.Context, personID string) (*model.ScanResult, error) {
	confirmed, err := s.confirmedProfiles(ctx, personID)
	if err != nil {
		return nil, err
	}

	t, err := s.startRun(ctx, personID, model.RunKindScan)
	if err != nil {
		return nil, err
	}

	var scans []model.ProfileScan
	var stored int
	err = t.phase(ctx, PhaseScan, model.RunStatusScanning, func() (*model.PhaseResult, error) {
		var scanErr error
		scans, stored, scanErr = s.scanAndStore(ctx, confirmed)
		if scanErr != nil {
			return nil, scanErr
		}
		return scanPhaseResult(scans, stored), nil
	})
	t.finish(ctx, err)
	if err != nil {
		return nil, err
	}

	return &model.ScanResult{PersonID: personID, Scans: scans, Stored: stored, RunID: t.run.ID}, nil
}

// ScanProfile scans a single stored profile. It fails with
// ErrProfileNotConfirmed unless the profile is confirmed.
func (s *Service) ScanProfile(ctx context.Context, profileID string) (*model.ScanResult, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "pipeline: profile id is required")
	}
	profile, err := s.store.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !profile.Confirmed() {
		return nil, eris.Wrapf(model.ErrProfileNotConfirmed, "pipeline: %s profile %s is %s", profile.Network, profile.URL, profile.Status)
	}

	scans, stored, err := s.scanAndStore(ctx, []model.IdentityProfile{*profile})
	if err != nil {
		return nil, err
	}
	return &model.ScanResult{PersonID: profile.PersonID, Scans: scans, Stored: stored}, nil
}

// BuildPersona scans the person's confirmed profiles, classifies every post
// not yet classified and extracts the persona vector. Extraction starts only
// after every scan and classification has finished or failed empty.
func (s *Service) BuildPersona(ctx context.Context, personID string) (*model.PersonaResult, error) {
	confirmed, err := s.confirmedProfiles(ctx, personID)
	if err != nil {
		return nil, err
	}

	t, err := s.startRun(ctx, personID, model.RunKindPersona)
	if err != nil {
		return nil, err
	}

	result, err := s.buildPersona(ctx, t, personID, confirmed)
	t.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	result.RunID = t.run.ID
	return result, nil
}

func (s *Service) buildPersona(ctx context.Context, t *tracker, personID string, confirmed []model.IdentityProfile) (*model.PersonaResult, error) {
	var scans []model.ProfileScan
	err := t.phase(ctx, PhaseScan, model.RunStatusScanning, func() (*model.PhaseResult, error) {
		var stored int
		var scanErr error
		scans, stored, scanErr = s.scanAndStore(ctx, confirmed)
		if scanErr != nil {
			return nil, scanErr
		}
		return scanPhaseResult(scans, stored), nil
	})
	if err != nil {
		return nil, err
	}

	var posts []model.Post
	var cls map[string]model.Classification
	var classified int
	err = t.phase(ctx, PhaseClassify, model.RunStatusClassifying, func() (*model.PhaseResult, error) {
		var classifyErr error
		posts, classifyErr = s.confirmedPosts(ctx, personID, confirmed)
		if classifyErr != nil {
			return nil, classifyErr
		}
		cls, classified, classifyErr = s.classify(ctx, posts)
		if classifyErr != nil {
			return nil, classifyErr
		}
		return &model.PhaseResult{
			Metadata: map[string]any{"posts": len(posts), "classified": classified},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	var vector model.PersonaVector
	err = t.phase(ctx, PhaseExtract, model.RunStatusExtracting, func() (*model.PhaseResult, error) {
		vector = s.extractor.Extract(posts, cls)
		vector.PersonID = personID
		if saveErr := s.store.SavePersona(ctx, vector); saveErr != nil {
			return nil, eris.Wrap(saveErr, "pipeline: save persona")
		}
		return &model.PhaseResult{
			Metadata: map[string]any{"topics": vector.Topics, "tone": vector.Tone, "style": vector.Style},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &model.PersonaResult{
		Persona: vector,
		Stats: model.PersonaStats{
			TotalPosts:      len(posts),
			ProfilesScanned: len(confirmed),
			Classifications: classified,
		},
		Scans: scans,
	}, nil
}

// GeneratePlaybook derives the vendor playbook from the stored persona
// vector. No record is written when the persona is missing.
func (s *Service) GeneratePlaybook(ctx context.Context, personID, vendor string) (*model.PlaybookResult, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "pipeline: person id is required")
	}
	vendor = s.vendorOrDefault(vendor)
	if vendor == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "pipeline: vendor is required")
	}
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	vector, err := s.store.GetPersona(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get persona")
	}
	if vector == nil {
		return nil, eris.Wrapf(model.ErrPersonaNotFound, "pipeline: person %s has no persona", personID)
	}

	t, err := s.startRun(ctx, personID, model.RunKindPlaybook)
	if err != nil {
		return nil, err
	}

	var pb model.Playbook
	err = t.phase(ctx, PhasePlaybook, model.RunStatusGenerating, func() (*model.PhaseResult, error) {
		var genErr error
		pb, genErr = s.generator.Generate(*vector, vendor)
		if genErr != nil {
			return nil, genErr
		}
		pb.PersonID = personID
		if upsertErr := s.store.UpsertPlaybook(ctx, pb); upsertErr != nil {
			return nil, eris.Wrap(upsertErr, "pipeline: upsert playbook")
		}
		return &model.PhaseResult{
			Metadata: map[string]any{"vendor": pb.Vendor, "product_fit": len(pb.ProductFit)},
		}, nil
	})
	t.finish(ctx, err)
	if err != nil {
		return nil, err
	}
	return &model.PlaybookResult{Playbook: pb, RunID: t.run.ID}, nil
}

// Persona returns the stored persona vector of a person.
func (s *Service) Persona(ctx context.Context, personID string) (*model.PersonaVector, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "pipeline: person id is required")
	}
	vector, err := s.store.GetPersona(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get persona")
	}
	if vector == nil {
		return nil, eris.Wrapf(model.ErrPersonaNotFound, "pipeline: person %s has no persona", personID)
	}
	return vector, nil
}

// Playbook returns the stored playbook of a person for a vendor.
func (s *Service) Playbook(ctx context.Context, personID, vendor string) (*model.Playbook, error) {
	vendor = playbook.NormalizeVendor(s.vendorOrDefault(vendor))
	if strings.TrimSpace(personID) == "" || vendor == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "pipeline: person id and vendor are required")
	}
	pb, err := s.store.GetPlaybook(ctx, personID, vendor)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: get playbook")
	}
	if pb == nil {
		return nil, eris.Wrapf(model.ErrPlaybookNotFound, "pipeline: person %s vendor %s", personID, vendor)
	}
	return pb, nil
}

// Run returns a recorded pipeline run.
func (s *Service) Run(ctx context.Context, runID string) (*model.Run, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "pipeline: run id is required")
	}
	return s.store.GetRun(ctx, runID)
}

// Runs lists recorded pipeline runs, newest first.
func (s *Service) Runs(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	runs, err := s.store.ListRuns(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list runs")
	}
	return runs, nil
}

func (s *Service) vendorOrDefault(vendor string) string {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" && s.cfg != nil {
		vendor = strings.TrimSpace(s.cfg.Playbook.DefaultVendor)
	}
	return vendor
}

// confirmedProfiles validates personID and returns its confirmed profiles.
func (s *Service) confirmedProfiles(ctx context.Context, personID string) ([]model.IdentityProfile, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "pipeline: person id is required")
	}
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	profiles, err := s.store.ListProfiles(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list profiles")
	}

	var confirmed []model.IdentityProfile
	for _, p := range profiles {
		if p.Confirmed() {
			confirmed = append(confirmed, p)
		}
	}
	if len(confirmed) == 0 {
		return nil, eris.Wrapf(model.ErrNoConfirmedProfiles, "pipeline: person %s has %d profiles, none confirmed", personID, len(profiles))
	}
	return confirmed, nil
}

// scanAndStore scans profiles and stores their posts. Only the store can fail
// it; failed scans are reported per profile.
func (s *Service) scanAndStore(ctx context.Context, profiles []model.IdentityProfile) ([]model.ProfileScan, int, error) {
	scans := s.scanner.ScanAll(ctx, profiles)

	var posts []model.Post
	for _, sc := range scans {
		posts = append(posts, sc.Posts...)
	}
	stored, err := s.store.UpsertPosts(ctx, posts)
	if err != nil {
		return scans, 0, eris.Wrap(err, "pipeline: store posts")
	}
	return scans, stored, nil
}

// confirmedPosts returns the stored posts of the confirmed profiles.
func (s *Service) confirmedPosts(ctx context.Context, personID string, confirmed []model.IdentityProfile) ([]model.Post, error) {
	all, err := s.store.ListPosts(ctx, personID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list posts")
	}
	ids := make(map[string]struct{}, len(confirmed))
	for _, p := range confirmed {
		ids[p.ID] = struct{}{}
	}
	posts := make([]model.Post, 0, len(all))
	for _, p := range all {
		if _, ok := ids[p.ProfileID]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// classify returns a classification for every post, classifying and storing
// those that have none yet. It reports how many posts it classified.
func (s *Service) classify(ctx context.Context, posts []model.Post) (map[string]model.Classification, int, error) {
	cls := make(map[string]model.Classification, len(posts))
	var pending []model.Post
	for _, p := range posts {
		if c, ok := p.Classification(); ok {
			cls[p.ID] = c
			continue
		}
		pending = append(pending, p)
	}
	if len(pending) == 0 {
		return cls, 0, nil
	}

	fresh, err := s.classifier.ClassifyAll(ctx, pending, s.workers())
	if err != nil {
		return nil, 0, eris.Wrap(err, "pipeline: classify posts")
	}

	at := s.now().UTC()
	for _, p := range pending {
		c := fresh[p.ID]
		cls[p.ID] = c
		ok, err := s.store.SetClassification(ctx, p.ID, c, at)
		if err != nil {
			return nil, 0, eris.Wrapf(err, "pipeline: store classification %s", p.ID)
		}
		if !ok {
			zap.L().Debug("pipeline: post already classified", zap.String("post_id", p.ID))
		}
	}
	s.metrics.AddClassified(len(pending))
	return cls, len(pending), nil
}

func (s *Service) workers() int {
	if s.cfg == nil || s.cfg.Classify.Workers <= 0 {
		return 1
	}
	return s.cfg.Classify.Workers
}

func scanPhaseResult(scans []model.ProfileScan, stored int) *model.PhaseResult {
	statuses := make(map[string]any, len(scans))
	collected := 0
	for _, sc := range scans {
		statuses[string(sc.Network)+":"+sc.ProfileID] = string(sc.Status)
		collected += sc.PostCount
	}
	return &model.PhaseResult{
		Metadata: map[string]any{
			"profiles":  len(scans),
			"collected": collected,
			"stored":    stored,
			"statuses":  statuses,
		},
	}
}
