// Package store persists persons, identity profiles, posts, persona vectors,
// playbooks and pipeline runs.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/persona-cli/internal/config"
	"github.com/sells-group/persona-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	PersonID string          `json:"person_id,omitempty"`
	Kind     model.RunKind   `json:"kind,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the persona pipeline.
type Store interface {
	// Persons
	UpsertPerson(ctx context.Context, p model.Person) (*model.Person, error)
	GetPerson(ctx context.Context, personID string) (*model.Person, error)

	// Identity profiles
	UpsertProfiles(ctx context.Context, profiles []model.IdentityProfile) ([]model.IdentityProfile, error)
	ListProfiles(ctx context.Context, personID string) ([]model.IdentityProfile, error)
	GetProfile(ctx context.Context, profileID string) (*model.IdentityProfile, error)

	// Posts
	UpsertPosts(ctx context.Context, posts []model.Post) (int, error)
	SetClassification(ctx context.Context, postID string, c model.Classification, at time.Time) (bool, error)
	ListPosts(ctx context.Context, personID string) ([]model.Post, error)

	// Personas and playbooks
	SavePersona(ctx context.Context, v model.PersonaVector) error
	GetPersona(ctx context.Context, personID string) (*model.PersonaVector, error)
	UpsertPlaybook(ctx context.Context, pb model.Playbook) error
	GetPlaybook(ctx context.Context, personID, vendor string) (*model.Playbook, error)

	// Runs
	CreateRun(ctx context.Context, personID string, kind model.RunKind) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// withProfileIDs fills in the derived id of every profile lacking one.
func withProfileIDs(profiles []model.IdentityProfile, now time.Time) []model.IdentityProfile {
	out := make([]model.IdentityProfile, len(profiles))
	for i, p := range profiles {
		if p.ID == "" {
			p.ID = model.ProfileID(p.PersonID, p.Network, p.URL)
		}
		p.UpdatedAt = now
		out[i] = p
	}
	return out
}

// runStatusFor is the terminal status a run result implies.
func runStatusFor(result *model.RunResult) model.RunStatus {
	if result != nil && result.Error != "" {
		return model.RunStatusFailed
	}
	return model.RunStatusComplete
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
