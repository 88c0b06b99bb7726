package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/persona-cli/internal/model"
	"github.com/sells-group/persona-cli/internal/store"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) UpsertPerson(ctx context.Context, p model.Person) (*model.Person, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Person), args.Error(1)
}

func (m *mockStore) GetPerson(ctx context.Context, personID string) (*model.Person, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Person), args.Error(1)
}

func (m *mockStore) UpsertProfiles(ctx context.Context, profiles []model.IdentityProfile) ([]model.IdentityProfile, error) {
	args := m.Called(ctx, profiles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IdentityProfile), args.Error(1)
}

func (m *mockStore) ListProfiles(ctx context.Context, personID string) ([]model.IdentityProfile, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IdentityProfile), args.Error(1)
}

func (m *mockStore) GetProfile(ctx context.Context, profileID string) (*model.IdentityProfile, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IdentityProfile), args.Error(1)
}

func (m *mockStore) UpsertPosts(ctx context.Context, posts []model.Post) (int, error) {
	args := m.Called(ctx, posts)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) SetClassification(ctx context.Context, postID string, c model.Classification, at time.Time) (bool, error) {
	args := m.Called(ctx, postID, c, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ListPosts(ctx context.Context, personID string) ([]model.Post, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Post), args.Error(1)
}

func (m *mockStore) SavePersona(ctx context.Context, v model.PersonaVector) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *mockStore) GetPersona(ctx context.Context, personID string) (*model.PersonaVector, error) {
	args := m.Called(ctx, personID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PersonaVector), args.Error(1)
}

func (m *mockStore) UpsertPlaybook(ctx context.Context, pb model.Playbook) error {
	args := m.Called(ctx, pb)
	return args.Error(0)
}

func (m *mockStore) GetPlaybook(ctx context.Context, personID, vendor string) (*model.Playbook, error) {
	args := m.Called(ctx, personID, vendor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Playbook), args.Error(1)
}

func (m *mockStore) CreateRun(ctx context.Context, personID string, kind model.RunKind) (*model.Run, error) {
	args := m.Called(ctx, personID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *mockStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	args := m.Called(ctx, runID, result)
	return args.Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Run), args.Error(1)
}

func (m *mockStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	args := m.Called(ctx, runID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RunPhase), args.Error(1)
}

func (m *mockStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	args := m.Called(ctx, phaseID, result)
	return args.Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Scanner Stub ---

// stubScanner returns canned posts per network and records the profiles it
// was asked to scan.
type stubScanner struct {
	mu      sync.Mutex
	posts   map[model.Network][]model.Post
	fail    map[model.Network]bool
	scanned []model.IdentityProfile
}

func (s *stubScanner) ScanAll(_ context.Context, profiles []model.IdentityProfile) []model.ProfileScan {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ProfileScan, 0, len(profiles))
	for _, p := range profiles {
		s.scanned = append(s.scanned, p)
		res := model.ProfileScan{ProfileID: p.ID, Network: p.Network, URL: p.URL}
		if s.fail[p.Network] {
			res.Status = model.ScanStatusFailed
			res.Error = "unreachable"
			out = append(out, res)
			continue
		}
		for _, post := range s.posts[p.Network] {
			post.ProfileID = p.ID
			post.Network = p.Network
			post.ID = p.ID + "|" + post.Link
			res.Posts = append(res.Posts, post)
		}
		res.PostCount = len(res.Posts)
		res.Status = model.ScanStatusOK
		if res.PostCount == 0 {
			res.Status = model.ScanStatusEmpty
		}
		out = append(out, res)
	}
	return out
}
