package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/persona-cli/internal/db"
	"github.com/sells-group/persona-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const pgUpsertPerson = `INSERT INTO persons (id, person_key, name, company, role, email, phone, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (person_key) DO UPDATE SET
		name = excluded.name,
		company = COALESCE(NULLIF(excluded.company, ''), persons.company),
		role = COALESCE(NULLIF(excluded.role, ''), persons.role),
		email = COALESCE(NULLIF(excluded.email, ''), persons.email),
		phone = COALESCE(NULLIF(excluded.phone, ''), persons.phone),
		updated_at = excluded.updated_at
	RETURNING id`

const pgPersonKeyOwner = `SELECT id FROM persons WHERE person_key = $1 AND id <> $2`

const pgUpdatePerson = `UPDATE persons SET person_key = $1, name = $2, company = $3, role = $4, email = $5, phone = $6, updated_at = $7
	WHERE id = $8`

const pgListPosts = `SELECT p.id, p.profile_id, p.network, p.external_id, p.posted_at, p.text, p.link, p.language, p.metrics,
	p.topics, p.intent, p.sentiment, p.style, p.confidence, p.classified_at
	FROM posts p JOIN identity_profiles ip ON ip.id = p.profile_id
	WHERE ip.person_id = $1
	ORDER BY p.posted_at DESC, p.id`

const (
	pgGetPerson         = `SELECT id, person_key, name, company, role, email, phone, created_at, updated_at FROM persons WHERE id = $1`
	pgListProfiles      = `SELECT ` + profileColumns + ` FROM identity_profiles WHERE person_id = $1 ORDER BY network, confidence DESC, url`
	pgGetProfile        = `SELECT ` + profileColumns + ` FROM identity_profiles WHERE id = $1`
	pgSetClassification = `UPDATE posts SET topics = $1, intent = $2, sentiment = $3, style = $4, confidence = $5, classified_at = $6 WHERE id = $7 AND classified_at IS NULL`
	pgSavePersona       = `INSERT INTO personas (person_id, vector, updated_at) VALUES ($1, $2, $3) ON CONFLICT (person_id) DO UPDATE SET vector = excluded.vector, updated_at = excluded.updated_at`
	pgGetPersona        = `SELECT vector FROM personas WHERE person_id = $1`
	pgUpsertPlaybook    = `INSERT INTO playbooks (person_id, vendor, body, refreshed_at) VALUES ($1, $2, $3, $4) ON CONFLICT (person_id, vendor) DO UPDATE SET body = excluded.body, refreshed_at = excluded.refreshed_at`
	pgGetPlaybook       = `SELECT body FROM playbooks WHERE person_id = $1 AND vendor = $2`
	pgInsertRun         = `INSERT INTO runs (id, person_id, kind, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	pgUpdateRunStatus   = `UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`
	pgUpdateRunResult   = `UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`
	pgGetRun            = `SELECT ` + runColumns + ` FROM runs WHERE id = $1`
	pgInsertPhase       = `INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES ($1, $2, $3, $4, $5)`
	pgCompletePhase     = `UPDATE run_phases SET status = $1, result = $2 WHERE id = $3`
)

const undefinedTable = "42P01"

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"upsert_person":      pgUpsertPerson,
	"get_person":         pgGetPerson,
	"list_profiles":      pgListProfiles,
	"set_classification": pgSetClassification,
	"list_posts":         pgListPosts,
	"get_persona":        pgGetPersona,
	"insert_run":         pgInsertRun,
	"update_run_status":  pgUpdateRunStatus,
	"update_run_result":  pgUpdateRunResult,
	"get_run":            pgGetRun,
	"insert_phase":       pgInsertPhase,
	"complete_phase":     pgCompletePhase,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				// Tables do not exist before the first migrate.
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
					continue
				}
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, such as a pgxmock pool in tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS persons (
	id         TEXT PRIMARY KEY,
	person_key TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	company    TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS identity_profiles (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL REFERENCES persons(id),
	network    TEXT NOT NULL,
	handle     TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	status     TEXT NOT NULL,
	evidence   JSONB,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (person_id, network, url)
);

CREATE TABLE IF NOT EXISTS posts (
	id            TEXT PRIMARY KEY,
	profile_id    TEXT NOT NULL REFERENCES identity_profiles(id),
	network       TEXT NOT NULL,
	external_id   TEXT NOT NULL DEFAULT '',
	posted_at     TIMESTAMPTZ NOT NULL,
	text          TEXT NOT NULL,
	link          TEXT NOT NULL,
	language      TEXT NOT NULL DEFAULT '',
	metrics       JSONB,
	topics        JSONB,
	intent        TEXT NOT NULL DEFAULT '',
	sentiment     TEXT NOT NULL DEFAULT '',
	style         TEXT NOT NULL DEFAULT '',
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	classified_at TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS personas (
	person_id  TEXT PRIMARY KEY REFERENCES persons(id),
	vector     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS playbooks (
	person_id    TEXT NOT NULL REFERENCES persons(id),
	vendor       TEXT NOT NULL,
	body         JSONB NOT NULL,
	refreshed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (person_id, vendor)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	person_id  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_phases (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_identity_profiles_person ON identity_profiles(person_id);
CREATE INDEX IF NOT EXISTS idx_posts_profile ON posts(profile_id);
CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_person ON runs(person_id);
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// --- Persons ---

func (s *PostgresStore) UpsertPerson(ctx context.Context, p model.Person) (*model.Person, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	} else {
		stored, err := s.GetPerson(ctx, p.ID)
		if err == nil {
			return s.updatePerson(ctx, stored.Merge(p))
		}
		if !errors.Is(err, model.ErrPersonNotFound) {
			return nil, err
		}
	}
	now := time.Now().UTC()

	var id string
	err := s.pool.QueryRow(ctx, pgUpsertPerson,
		p.ID, p.Key, p.Name, p.Company, p.Role, p.Email, p.Phone, now, now,
	).Scan(&id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert person")
	}
	return s.GetPerson(ctx, id)
}

func (s *PostgresStore) updatePerson(ctx context.Context, p model.Person) (*model.Person, error) {
	var owner string
	err := s.pool.QueryRow(ctx, pgPersonKeyOwner, p.Key, p.ID).Scan(&owner)
	switch {
	case err == nil:
		return nil, eris.Wrapf(model.ErrInvalidInput, "postgres: person key %q belongs to person %s", p.Key, owner)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, eris.Wrap(err, "postgres: check person key")
	}

	if _, err := s.pool.Exec(ctx, pgUpdatePerson,
		p.Key, p.Name, p.Company, p.Role, p.Email, p.Phone, time.Now().UTC(), p.ID,
	); err != nil {
		return nil, eris.Wrap(err, "postgres: update person")
	}
	return s.GetPerson(ctx, p.ID)
}

func (s *PostgresStore) GetPerson(ctx context.Context, personID string) (*model.Person, error) {
	var p model.Person
	err := s.pool.QueryRow(ctx, pgGetPerson, personID).
		Scan(&p.ID, &p.Key, &p.Name, &p.Company, &p.Role, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrPersonNotFound, "person %s", personID)
		}
		return nil, eris.Wrapf(err, "postgres: get person %s", personID)
	}
	return &p, nil
}

// --- Identity profiles ---

func (s *PostgresStore) UpsertProfiles(ctx context.Context, profiles []model.IdentityProfile) ([]model.IdentityProfile, error) {
	out := withProfileIDs(profiles, time.Now().UTC())

	rows := make([][]any, 0, len(out))
	for _, p := range out {
		evidence, err := json.Marshal(p.Evidence)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal evidence")
		}
		rows = append(rows, []any{p.ID, p.PersonID, string(p.Network), p.Handle, p.URL, p.Confidence, string(p.Status), evidence, p.UpdatedAt})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "identity_profiles",
		Columns:      []string{"id", "person_id", "network", "handle", "url", "confidence", "status", "evidence", "updated_at"},
		ConflictKeys: []string{"person_id", "network", "url"},
		UpdateCols:   []string{"handle", "confidence", "status", "evidence", "updated_at"},
	}, rows)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert profiles")
	}
	return out, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context, personID string) ([]model.IdentityProfile, error) {
	rows, err := s.pool.Query(ctx, pgListProfiles, personID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list profiles")
	}
	defer rows.Close()

	var out []model.IdentityProfile
	for rows.Next() {
		p, err := scanPgProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list profiles iterate")
}

func (s *PostgresStore) GetProfile(ctx context.Context, profileID string) (*model.IdentityProfile, error) {
	p, err := scanPgProfile(s.pool.QueryRow(ctx, pgGetProfile, profileID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrProfileNotFound, "profile %s", profileID)
	}
	return p, err
}

// --- Posts ---

// UpsertPosts bulk-inserts posts not yet stored and returns how many were new.
func (s *PostgresStore) UpsertPosts(ctx context.Context, posts []model.Post) (int, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(posts))
	for _, p := range posts {
		metrics, err := json.Marshal(p.Metrics)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal metrics")
		}
		rows = append(rows, []any{p.ID, p.ProfileID, string(p.Network), p.ExternalID, p.PostedAt.UTC(), p.Text, p.Link, p.Language, metrics, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "posts",
		Columns:      []string{"id", "profile_id", "network", "external_id", "posted_at", "text", "link", "language", "metrics", "created_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert posts")
	}
	return int(n), nil
}

func (s *PostgresStore) SetClassification(ctx context.Context, postID string, c model.Classification, at time.Time) (bool, error) {
	topics, err := json.Marshal(emptyIfNil(c.Topics))
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal topics")
	}
	tag, err := s.pool.Exec(ctx, pgSetClassification,
		topics, c.Intent, c.Sentiment, c.Style, c.Confidence, at.UTC(), postID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: classify post %s", postID)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, personID string) ([]model.Post, error) {
	rows, err := s.pool.Query(ctx, pgListPosts, personID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list posts")
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		var metrics, topics []byte
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.Network, &p.ExternalID, &p.PostedAt, &p.Text, &p.Link, &p.Language,
			&metrics, &topics, &p.Intent, &p.Sentiment, &p.Style, &p.Confidence, &p.ClassifiedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan post")
		}
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &p.Metrics); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal metrics")
			}
		}
		if len(topics) > 0 {
			if err := json.Unmarshal(topics, &p.Topics); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal topics")
			}
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list posts iterate")
}

// --- Personas and playbooks ---

func (s *PostgresStore) SavePersona(ctx context.Context, v model.PersonaVector) error {
	body, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal persona")
	}
	_, err = s.pool.Exec(ctx, pgSavePersona, v.PersonID, body, time.Now().UTC())
	return eris.Wrap(err, "postgres: save persona")
}

func (s *PostgresStore) GetPersona(ctx context.Context, personID string) (*model.PersonaVector, error) {
	var body []byte
	if err := s.pool.QueryRow(ctx, pgGetPersona, personID).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get persona")
	}
	var v model.PersonaVector
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal persona")
	}
	return &v, nil
}

func (s *PostgresStore) UpsertPlaybook(ctx context.Context, pb model.Playbook) error {
	body, err := json.Marshal(pb)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal playbook")
	}
	_, err = s.pool.Exec(ctx, pgUpsertPlaybook, pb.PersonID, pb.Vendor, body, pb.RefreshedAt.UTC())
	return eris.Wrap(err, "postgres: upsert playbook")
}

func (s *PostgresStore) GetPlaybook(ctx context.Context, personID, vendor string) (*model.Playbook, error) {
	var body []byte
	if err := s.pool.QueryRow(ctx, pgGetPlaybook, personID, vendor).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get playbook")
	}
	var pb model.Playbook
	if err := json.Unmarshal(body, &pb); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal playbook")
	}
	return &pb, nil
}

// --- Runs ---

func (s *PostgresStore) CreateRun(ctx context.Context, personID string, kind model.RunKind) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx, pgInsertRun, id, personID, string(kind), string(model.RunStatusQueued), now, now)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		PersonID:  personID,
		Kind:      kind,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx, pgUpdateRunStatus, string(status), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrRunNotFound, "%s", runID)
	}
	return nil
}

func (s *PostgresStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx, pgUpdateRunResult, resultJSON, string(runStatusFor(result)), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run result %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrRunNotFound, "%s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, pgGetRun, runID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(model.ErrRunNotFound, "run %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.PersonID != "" {
		query += fmt.Sprintf(` AND person_id = $%d`, argIdx)
		args = append(args, filter.PersonID)
		argIdx++
	}
	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, argIdx)
		args = append(args, string(filter.Kind))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx, pgInsertPhase, id, runID, name, string(model.PhaseStatusRunning), now)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phase result")
	}

	tag, err := s.pool.Exec(ctx, pgCompletePhase, string(result.Status), resultJSON, phaseID)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete phase %s", phaseID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(errPhaseNotFound, "%s", phaseID)
	}
	return nil
}

func scanPgProfile(row pgx.Row) (*model.IdentityProfile, error) {
	var p model.IdentityProfile
	var evidence []byte
	err := row.Scan(&p.ID, &p.PersonID, &p.Network, &p.Handle, &p.URL, &p.Confidence, &p.Status, &evidence, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan profile")
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &p.Evidence); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal evidence")
		}
	}
	return &p, nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var resultNull *[]byte
	if err := row.Scan(&r.ID, &r.PersonID, &r.Kind, &r.Status, &resultNull, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if resultNull != nil {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(*resultNull, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}
