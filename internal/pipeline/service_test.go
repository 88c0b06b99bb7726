package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/persona-cli/internal/classify"
	"github.com/sells-group/persona-cli/internal/config"
	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/persona"
	"github.com/sells-group/persona-cli/internal/playbook"
	"github.com/sells-group/persona-cli/internal/store"
)

var anaSeed = model.Seed{Name: "Ana Souza", Company: "Acme", LinkedInURL: "https://linkedin.com/in/anasouza"}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Classify.Workers = 4
	cfg.Playbook.DefaultVendor = "generic"
	return cfg
}

func newTestService(t *testing.T, st store.Store, sc Scanner) *Service {
	t.Helper()
	lex, err := classify.DefaultLexicon()
	require.NoError(t, err)
	cat, err := playbook.DefaultCatalog()
	require.NoError(t, err)
	return New(testConfig(), st, sc, classify.New(lex), persona.New(lex), playbook.NewGenerator(cat))
}

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// postsAt returns n posts with the given text, one hour apart.
func postsAt(n int, text string, start time.Time) []model.Post {
	out := make([]model.Post, n)
	for i := range out {
		out[i] = model.Post{
			PostedAt: start.Add(time.Duration(i) * time.Hour),
			Text:     text,
			Link:     fmt.Sprintf("https://linkedin.com/feed/update/%s-%d", start.Format("0102"), i),
			Language: "en",
		}
	}
	return out
}

func resolveAna(t *testing.T, svc *Service) string {
	t.Helper()
	res, err := svc.Resolve(context.Background(), anaSeed)
	require.NoError(t, err)
	return res.Person.ID
}

// --- Resolve ---

func TestService_Resolve_AnaSouza(t *testing.T) {
	st := newSQLiteStore(t)
	svc := newTestService(t, st, &stubScanner{})

	res, err := svc.Resolve(context.Background(), anaSeed)
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", res.Person.Name)
	assert.Equal(t, 1, res.Summary.Confirmed)
	assert.Equal(t, 6, res.Summary.Pending)
	assert.Equal(t, len(res.Profiles), res.Summary.Total)
	for _, p := range res.Profiles {
		if p.Network == model.NetworkLinkedIn {
			assert.Equal(t, model.ProfileStatusConfirmed, p.Status)
			assert.GreaterOrEqual(t, p.Confidence, 0.85)
			continue
		}
		assert.InDelta(t, 0.3, p.Confidence, 1e-9)
		assert.Equal(t, model.ProfileStatusPending, p.Status)
	}

	run, err := st.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.Len(t, run.Result.Phases, 1)
	assert.Equal(t, PhaseResolve, run.Result.Phases[0].Name)
}

func TestService_Resolve_Idempotent(t *testing.T) {
	st := newSQLiteStore(t)
	svc := newTestService(t, st, &stubScanner{})
	ctx := context.Background()

	first, err := svc.Resolve(ctx, anaSeed)
	require.NoError(t, err)
	second, err := svc.Resolve(ctx, model.Seed{Name: "ana souza", Company: "ACME", Role: "CFO", LinkedInURL: anaSeed.LinkedInURL})
	require.NoError(t, err)

	assert.Equal(t, first.Person.ID, second.Person.ID)
	assert.Equal(t, "CFO", second.Person.Role)

	profiles, err := st.ListProfiles(ctx, first.Person.ID)
	require.NoError(t, err)
	assert.Len(t, profiles, first.Summary.Total)
}

func TestService_Resolve_ReturningPersonAddsCompany(t *testing.T) {
	st := newSQLiteStore(t)
	svc := newTestService(t, st, &stubScanner{})
	ctx := context.Background()

	first, err := svc.Resolve(ctx, model.Seed{Name: "Ana Souza", LinkedInURL: anaSeed.LinkedInURL})
	require.NoError(t, err)
	assert.Empty(t, first.Person.Company)

	second, err := svc.Resolve(ctx, model.Seed{PersonID: first.Person.ID, Name: "Ana Souza", Company: "Acme", LinkedInURL: anaSeed.LinkedInURL})
	require.NoError(t, err)

	assert.Equal(t, first.Person.ID, second.Person.ID)
	assert.Equal(t, "Acme", second.Person.Company)
	assert.Equal(t, model.PersonKey("Ana Souza", "Acme"), second.Person.Key)
	assert.Equal(t, 1, second.Summary.Confirmed)
}

func TestService_Resolve_MissingNameDoesNoWork(t *testing.T) {
	ms := new(mockStore)
	svc := newTestService(t, ms, &stubScanner{})

	_, err := svc.Resolve(context.Background(), model.Seed{Company: "Acme"})
	require.Error(t, err)
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	ms.AssertNotCalled(t, "UpsertPerson", mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "CreateRun", mock.Anything, mock.Anything, mock.Anything)
}

// --- Scan ---

func TestService_Scan_OnlyConfirmedProfiles(t *testing.T) {
	st := newSQLiteStore(t)
	sc := &stubScanner{posts: map[model.Network][]model.Post{
		model.NetworkLinkedIn: postsAt(3, "Working on our ERP rollout", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
	}}
	svc := newTestService(t, st, sc)
	personID := resolveAna(t, svc)

	res, err := svc.Scan(context.Background(), personID)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Stored)
	require.Len(t, res.Scans, 1)
	assert.Equal(t, model.NetworkLinkedIn, res.Scans[0].Network)

	for _, p := range sc.scanned {
		assert.True(t, p.Confirmed())
	}

	// Re-scanning the same posts stores nothing new.
	res, err = svc.Scan(context.Background(), personID)
	require.NoError(t, err)
	assert.Zero(t, res.Stored)
}

func TestService_Scan_UnknownPerson(t *testing.T) {
	svc := newTestService(t, newSQLiteStore(t), &stubScanner{})

	_, err := svc.Scan(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
}

func TestService_ScanProfile_RequiresConfirmed(t *testing.T) {
	st := newSQLiteStore(t)
	svc := newTestService(t, st, &stubScanner{})
	ctx := context.Background()

	res, err := svc.Resolve(ctx, anaSeed)
	require.NoError(t, err)

	for _, p := range res.Profiles {
		_, err := svc.ScanProfile(ctx, p.ID)
		if p.Confirmed() {
			assert.NoError(t, err)
			continue
		}
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrProfileNotConfirmed))
		assert.Equal(t, model.KindPrecondition, model.KindOf(err))
	}
}

// --- BuildPersona ---

func TestService_BuildPersona_ERPScenario(t *testing.T) {
	st := newSQLiteStore(t)
	sc := &stubScanner{posts: map[model.Network][]model.Post{
		model.NetworkLinkedIn: postsAt(10, "Our ERP migration to Protheus is moving along", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
	}}
	svc := newTestService(t, st, sc)
	ctx := context.Background()
	personID := resolveAna(t, svc)

	res, err := svc.BuildPersona(ctx, personID)
	require.NoError(t, err)

	require.NotEmpty(t, res.Persona.Topics)
	assert.Equal(t, "ERP", res.Persona.Topics[0])
	assert.Equal(t, personID, res.Persona.PersonID)
	assert.Equal(t, model.PersonaStats{TotalPosts: 10, ProfilesScanned: 1, Classifications: 10}, res.Stats)
	assert.Equal(t, []model.Network{model.NetworkLinkedIn}, res.Persona.ChannelPreference)

	pb, err := svc.GeneratePlaybook(ctx, personID, "TOTVS")
	require.NoError(t, err)
	assert.Contains(t, pb.Playbook.Opening, "ERP")
	assert.Equal(t, "totvs", pb.Playbook.Vendor)
	assert.Contains(t, pb.Playbook.ProductFit, "Protheus")

	stored, err := svc.Playbook(ctx, personID, " totvs ")
	require.NoError(t, err)
	assert.Equal(t, pb.Playbook.Opening, stored.Opening)
}

func TestService_BuildPersona_OptimisticScenario(t *testing.T) {
	st := newSQLiteStore(t)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	posts := postsAt(5, "Great quarter, proud of the team", start)
	posts = append(posts, postsAt(1, "Terrible outage today", start.AddDate(0, 0, 1))...)
	sc := &stubScanner{posts: map[model.Network][]model.Post{model.NetworkLinkedIn: posts}}
	svc := newTestService(t, st, sc)
	ctx := context.Background()
	personID := resolveAna(t, svc)

	res, err := svc.BuildPersona(ctx, personID)
	require.NoError(t, err)
	assert.Equal(t, model.ToneOptimistic, res.Persona.Tone)

	pb, err := svc.GeneratePlaybook(ctx, personID, "")
	require.NoError(t, err)
	assert.Equal(t, playbook.GenericVendor, pb.Playbook.Vendor)
	assert.Contains(t, pb.Playbook.CallToAction, "momentum")
}

func TestService_BuildPersona_ClassifiesOnce(t *testing.T) {
	st := newSQLiteStore(t)
	sc := &stubScanner{posts: map[model.Network][]model.Post{
		model.NetworkLinkedIn: postsAt(4, "Looking for a new WMS vendor", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
	}}
	svc := newTestService(t, st, sc)
	ctx := context.Background()
	personID := resolveAna(t, svc)

	first, err := svc.BuildPersona(ctx, personID)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Stats.Classifications)

	second, err := svc.BuildPersona(ctx, personID)
	require.NoError(t, err)
	assert.Zero(t, second.Stats.Classifications)
	assert.Equal(t, 4, second.Stats.TotalPosts)
	assert.Equal(t, first.Persona.Topics, second.Persona.Topics)

	persisted, err := svc.Persona(ctx, personID)
	require.NoError(t, err)
	assert.Equal(t, 4, persisted.Metadata.TotalPosts)
}

func TestService_BuildPersona_FailedScanIsEmpty(t *testing.T) {
	st := newSQLiteStore(t)
	sc := &stubScanner{fail: map[model.Network]bool{model.NetworkLinkedIn: true}}
	svc := newTestService(t, st, sc)
	personID := resolveAna(t, svc)

	res, err := svc.BuildPersona(context.Background(), personID)
	require.NoError(t, err)

	require.Len(t, res.Scans, 1)
	assert.Equal(t, model.ScanStatusFailed, res.Scans[0].Status)
	assert.Equal(t, "unreachable", res.Scans[0].Error)
	assert.Zero(t, res.Persona.Metadata.TotalPosts)
	assert.Equal(t, model.ToneBalanced, res.Persona.Tone)
	assert.Equal(t, model.StyleFormal, res.Persona.Style)
}

func TestService_BuildPersona_NoConfirmedProfiles(t *testing.T) {
	st := newSQLiteStore(t)
	sc := &stubScanner{}
	svc := newTestService(t, st, sc)
	ctx := context.Background()

	res, err := svc.Resolve(ctx, model.Seed{Name: "Ana Souza"})
	require.NoError(t, err)
	require.Zero(t, res.Summary.Confirmed)

	_, err = svc.BuildPersona(ctx, res.Person.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrNoConfirmedProfiles))
	assert.Empty(t, sc.scanned)

	v, err := st.GetPersona(ctx, res.Person.ID)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestService_BuildPersona_RecordsRun(t *testing.T) {
	st := newSQLiteStore(t)
	sc := &stubScanner{posts: map[model.Network][]model.Post{
		model.NetworkLinkedIn: postsAt(2, "Supply chain visibility matters", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
	}}
	svc := newTestService(t, st, sc)
	ctx := context.Background()
	personID := resolveAna(t, svc)

	res, err := svc.BuildPersona(ctx, personID)
	require.NoError(t, err)

	run, err := st.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunKindPersona, run.Kind)
	assert.Equal(t, model.RunStatusComplete, run.Status)

	names := make([]string, 0, len(run.Result.Phases))
	for _, ph := range run.Result.Phases {
		names = append(names, ph.Name)
		assert.Equal(t, model.PhaseStatusComplete, ph.Status)
	}
	assert.Equal(t, []string{PhaseScan, PhaseClassify, PhaseExtract}, names)
}

// failingPostsStore fails every post write.
type failingPostsStore struct {
	store.Store
}

func (failingPostsStore) UpsertPosts(context.Context, []model.Post) (int, error) {
	return 0, eris.New("disk full")
}

func TestService_BuildPersona_StoreFailureFailsRun(t *testing.T) {
	st := newSQLiteStore(t)
	sc := &stubScanner{posts: map[model.Network][]model.Post{
		model.NetworkLinkedIn: postsAt(1, "hello", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
	}}
	personID := resolveAna(t, newTestService(t, st, sc))

	svc := newTestService(t, failingPostsStore{st}, sc)
	_, err := svc.BuildPersona(context.Background(), personID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, model.KindInternal, model.KindOf(err))

	runs, err := st.ListRuns(context.Background(), store.RunFilter{PersonID: personID, Kind: model.RunKindPersona})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	require.Len(t, runs[0].Result.Phases, 1)
	assert.Equal(t, model.PhaseStatusFailed, runs[0].Result.Phases[0].Status)
}

// --- GeneratePlaybook ---

func TestService_GeneratePlaybook_NoPersona(t *testing.T) {
	ms := new(mockStore)
	ms.On("GetPerson", mock.Anything, "p1").Return(&model.Person{ID: "p1"}, nil)
	ms.On("GetPersona", mock.Anything, "p1").Return(nil, nil)
	svc := newTestService(t, ms, &stubScanner{})

	_, err := svc.GeneratePlaybook(context.Background(), "p1", "sap")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPersonaNotFound))
	assert.Equal(t, model.KindPrecondition, model.KindOf(err))

	ms.AssertNotCalled(t, "CreateRun", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "UpsertPlaybook", mock.Anything, mock.Anything)
	ms.AssertExpectations(t)
}

func TestService_GeneratePlaybook_InvalidInput(t *testing.T) {
	ms := new(mockStore)
	svc := newTestService(t, ms, &stubScanner{})

	_, err := svc.GeneratePlaybook(context.Background(), " ", "sap")
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))

	svc.cfg.Playbook.DefaultVendor = ""
	_, err = svc.GeneratePlaybook(context.Background(), "p1", "")
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))

	ms.AssertNotCalled(t, "GetPerson", mock.Anything, mock.Anything)
}

func TestService_GeneratePlaybook_TrackingFailuresAreLogged(t *testing.T) {
	ms := new(mockStore)
	vector := &model.PersonaVector{PersonID: "p1", Topics: []string{"ERP"}, Tone: model.ToneCritical, Style: model.StyleFormal}
	ms.On("GetPerson", mock.Anything, "p1").Return(&model.Person{ID: "p1"}, nil)
	ms.On("GetPersona", mock.Anything, "p1").Return(vector, nil)
	ms.On("CreateRun", mock.Anything, "p1", model.RunKindPlaybook).Return(&model.Run{ID: "run-1"}, nil)
	ms.On("UpdateRunStatus", mock.Anything, "run-1", model.RunStatusGenerating).Return(eris.New("db down"))
	ms.On("CreatePhase", mock.Anything, "run-1", PhasePlaybook).Return(nil, eris.New("db down"))
	ms.On("UpsertPlaybook", mock.Anything, mock.MatchedBy(func(pb model.Playbook) bool {
		return pb.PersonID == "p1" && pb.Vendor == "sap"
	})).Return(nil)
	ms.On("UpdateRunResult", mock.Anything, "run-1", mock.Anything).Return(eris.New("db down"))
	svc := newTestService(t, ms, &stubScanner{})

	res, err := svc.GeneratePlaybook(context.Background(), "p1", "SAP")
	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Contains(t, res.Playbook.CallToAction, "SAP")
	ms.AssertExpectations(t)
	ms.AssertNotCalled(t, "CompletePhase", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Playbook_NotFound(t *testing.T) {
	svc := newTestService(t, newSQLiteStore(t), &stubScanner{})

	_, err := svc.Playbook(context.Background(), "p1", "sap")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPlaybookNotFound))

	_, err = svc.Persona(context.Background(), "p1")
	assert.True(t, errors.Is(err, model.ErrPersonaNotFound))
}

func TestService_Runs(t *testing.T) {
	st := newSQLiteStore(t)
	svc := newTestService(t, st, &stubScanner{})
	ctx := context.Background()

	res, err := svc.Resolve(ctx, anaSeed)
	require.NoError(t, err)

	run, err := svc.Run(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, model.RunKindResolve, run.Kind)

	runs, err := svc.Runs(ctx, store.RunFilter{PersonID: res.Person.ID})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = svc.Run(ctx, "")
	assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	_, err = svc.Run(ctx, "missing")
	assert.Equal(t, model.KindNotFound, model.KindOf(err))
}
