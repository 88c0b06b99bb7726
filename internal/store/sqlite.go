package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/persona-cli/internal/model"
)

var errPhaseNotFound = eris.New("phase not found")

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS persons (
	id         TEXT PRIMARY KEY,
	person_key TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	company    TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS identity_profiles (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL REFERENCES persons(id),
	network    TEXT NOT NULL,
	handle     TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL,
	confidence REAL NOT NULL,
	status     TEXT NOT NULL,
	evidence   TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (person_id, network, url)
);

CREATE TABLE IF NOT EXISTS posts (
	id            TEXT PRIMARY KEY,
	profile_id    TEXT NOT NULL REFERENCES identity_profiles(id),
	network       TEXT NOT NULL,
	external_id   TEXT NOT NULL DEFAULT '',
	posted_at     DATETIME NOT NULL,
	text          TEXT NOT NULL,
	link          TEXT NOT NULL,
	language      TEXT NOT NULL DEFAULT '',
	metrics       TEXT,
	topics        TEXT,
	intent        TEXT NOT NULL DEFAULT '',
	sentiment     TEXT NOT NULL DEFAULT '',
	style         TEXT NOT NULL DEFAULT '',
	confidence    REAL NOT NULL DEFAULT 0,
	classified_at DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS personas (
	person_id  TEXT PRIMARY KEY REFERENCES persons(id),
	vector     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS playbooks (
	person_id    TEXT NOT NULL REFERENCES persons(id),
	vendor       TEXT NOT NULL,
	body         TEXT NOT NULL,
	refreshed_at DATETIME NOT NULL,
	PRIMARY KEY (person_id, vendor)
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	person_id  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_phases (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	name       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	started_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_identity_profiles_person ON identity_profiles(person_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_posts_profile_link ON posts(profile_id, link);
CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_person ON runs(person_id);
CREATE INDEX IF NOT EXISTS idx_run_phases_run_id ON run_phases(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Persons ---

// UpsertPerson updates the person p.ID names when it exists, and otherwise
// inserts p or updates the person holding its natural key. Empty optional
// fields never clear stored values.
func (s *SQLiteStore) UpsertPerson(ctx context.Context, p model.Person) (*model.Person, error) {
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
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO persons (id, person_key, name, company, role, email, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (person_key) DO UPDATE SET
		   name = excluded.name,
		   company = COALESCE(NULLIF(excluded.company, ''), persons.company),
		   role = COALESCE(NULLIF(excluded.role, ''), persons.role),
		   email = COALESCE(NULLIF(excluded.email, ''), persons.email),
		   phone = COALESCE(NULLIF(excluded.phone, ''), persons.phone),
		   updated_at = excluded.updated_at
		 RETURNING id`,
		p.ID, p.Key, p.Name, p.Company, p.Role, p.Email, p.Phone, now, now,
	).Scan(&id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert person")
	}
	return s.GetPerson(ctx, id)
}

// updatePerson rewrites the person row by id. The natural key may change but
// must not collide with another person's.
func (s *SQLiteStore) updatePerson(ctx context.Context, p model.Person) (*model.Person, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM persons WHERE person_key = ? AND id <> ?`, p.Key, p.ID,
	).Scan(&owner)
	switch {
	case err == nil:
		return nil, eris.Wrapf(model.ErrInvalidInput, "sqlite: person key %q belongs to person %s", p.Key, owner)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, eris.Wrap(err, "sqlite: check person key")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE persons SET person_key = ?, name = ?, company = ?, role = ?, email = ?, phone = ?, updated_at = ?
		 WHERE id = ?`,
		p.Key, p.Name, p.Company, p.Role, p.Email, p.Phone, time.Now().UTC(), p.ID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: update person")
	}
	return s.GetPerson(ctx, p.ID)
}

func (s *SQLiteStore) GetPerson(ctx context.Context, personID string) (*model.Person, error) {
	var p model.Person
	err := s.db.QueryRowContext(ctx,
		`SELECT id, person_key, name, company, role, email, phone, created_at, updated_at FROM persons WHERE id = ?`,
		personID,
	).Scan(&p.ID, &p.Key, &p.Name, &p.Company, &p.Role, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrPersonNotFound, "person %s", personID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get person")
	}
	return &p, nil
}

// --- Identity profiles ---

func (s *SQLiteStore) UpsertProfiles(ctx context.Context, profiles []model.IdentityProfile) ([]model.IdentityProfile, error) {
	out := withProfileIDs(profiles, time.Now().UTC())
	if len(out) == 0 {
		return out, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin upsert profiles")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, p := range out {
		evidence, err := json.Marshal(p.Evidence)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal evidence")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO identity_profiles (id, person_id, network, handle, url, confidence, status, evidence, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (person_id, network, url) DO UPDATE SET
			   handle = excluded.handle, confidence = excluded.confidence, status = excluded.status,
			   evidence = excluded.evidence, updated_at = excluded.updated_at`,
			p.ID, p.PersonID, string(p.Network), p.Handle, p.URL, p.Confidence, string(p.Status), string(evidence), p.UpdatedAt,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: upsert profile %s", p.URL)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit upsert profiles")
	}
	return out, nil
}

const profileColumns = `id, person_id, network, handle, url, confidence, status, evidence, updated_at`

func (s *SQLiteStore) ListProfiles(ctx context.Context, personID string) ([]model.IdentityProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM identity_profiles WHERE person_id = ? ORDER BY network, confidence DESC, url`,
		personID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list profiles")
	}
	defer rows.Close()

	var out []model.IdentityProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list profiles iterate")
}

func (s *SQLiteStore) GetProfile(ctx context.Context, profileID string) (*model.IdentityProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM identity_profiles WHERE id = ?`, profileID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrProfileNotFound, "profile %s", profileID)
	}
	return p, err
}

// --- Posts ---

// UpsertPosts inserts posts not yet stored and returns how many were new.
// Stored posts are immutable, so conflicts are ignored.
func (s *SQLiteStore) UpsertPosts(ctx context.Context, posts []model.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert posts")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	inserted := 0
	for _, p := range posts {
		metrics, err := json.Marshal(p.Metrics)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal metrics")
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO posts (id, profile_id, network, external_id, posted_at, text, link, language, metrics, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			p.ID, p.ProfileID, string(p.Network), p.ExternalID, p.PostedAt.UTC(), p.Text, p.Link, p.Language, string(metrics), now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert post %s", p.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert posts")
	}
	return inserted, nil
}

// SetClassification stores c on an unclassified post. It reports false when
// the post was already classified or does not exist.
func (s *SQLiteStore) SetClassification(ctx context.Context, postID string, c model.Classification, at time.Time) (bool, error) {
	topics, err := json.Marshal(emptyIfNil(c.Topics))
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal topics")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET topics = ?, intent = ?, sentiment = ?, style = ?, confidence = ?, classified_at = ?
		 WHERE id = ? AND classified_at IS NULL`,
		string(topics), c.Intent, c.Sentiment, c.Style, c.Confidence, at.UTC(), postID,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: classify post %s", postID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

// ListPosts returns every stored post of the person's profiles, newest first.
func (s *SQLiteStore) ListPosts(ctx context.Context, personID string) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.profile_id, p.network, p.external_id, p.posted_at, p.text, p.link, p.language, p.metrics,
		        p.topics, p.intent, p.sentiment, p.style, p.confidence, p.classified_at
		 FROM posts p JOIN identity_profiles ip ON ip.id = p.profile_id
		 WHERE ip.person_id = ?
		 ORDER BY p.posted_at DESC, p.id`,
		personID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list posts")
	}
	defer rows.Close()

	var out []model.Post
	for rows.Next() {
		var p model.Post
		var metrics, topics sql.NullString
		var classifiedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.ProfileID, &p.Network, &p.ExternalID, &p.PostedAt, &p.Text, &p.Link, &p.Language,
			&metrics, &topics, &p.Intent, &p.Sentiment, &p.Style, &p.Confidence, &classifiedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan post")
		}
		if metrics.Valid {
			if err := json.Unmarshal([]byte(metrics.String), &p.Metrics); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal metrics")
			}
		}
		if topics.Valid {
			if err := json.Unmarshal([]byte(topics.String), &p.Topics); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal topics")
			}
		}
		if classifiedAt.Valid {
			t := classifiedAt.Time
			p.ClassifiedAt = &t
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list posts iterate")
}

// --- Personas and playbooks ---

func (s *SQLiteStore) SavePersona(ctx context.Context, v model.PersonaVector) error {
	body, err := json.Marshal(v)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal persona")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO personas (person_id, vector, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (person_id) DO UPDATE SET vector = excluded.vector, updated_at = excluded.updated_at`,
		v.PersonID, string(body), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save persona")
}

// GetPersona returns nil, nil when the person has no persona yet.
func (s *SQLiteStore) GetPersona(ctx context.Context, personID string) (*model.PersonaVector, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT vector FROM personas WHERE person_id = ?`, personID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get persona")
	}
	var v model.PersonaVector
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal persona")
	}
	return &v, nil
}

func (s *SQLiteStore) UpsertPlaybook(ctx context.Context, pb model.Playbook) error {
	body, err := json.Marshal(pb)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal playbook")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO playbooks (person_id, vendor, body, refreshed_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (person_id, vendor) DO UPDATE SET body = excluded.body, refreshed_at = excluded.refreshed_at`,
		pb.PersonID, pb.Vendor, string(body), pb.RefreshedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: upsert playbook")
}

// GetPlaybook returns nil, nil when no playbook exists for the pair.
func (s *SQLiteStore) GetPlaybook(ctx context.Context, personID, vendor string) (*model.Playbook, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM playbooks WHERE person_id = ? AND vendor = ?`, personID, vendor,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get playbook")
	}
	var pb model.Playbook
	if err := json.Unmarshal([]byte(body), &pb); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal playbook")
	}
	return &pb, nil
}

// --- Runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, personID string, kind model.RunKind) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, person_id, kind, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, personID, string(kind), string(model.RunStatusQueued), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, model.ErrRunNotFound, runID)
}

// UpdateRunResult stores result and moves the run to its terminal status.
func (s *SQLiteStore) UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(runStatusFor(result)), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run result %s", runID)
	}
	return checkRowsAffected(res, model.ErrRunNotFound, runID)
}

const runColumns = `id, person_id, kind, status, result, created_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrRunNotFound, "run %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.PersonID != "" {
		query += ` AND person_id = ?`
		args = append(args, filter.PersonID)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_phases (id, run_id, name, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, runID, name, string(model.PhaseStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert phase for run %s", runID)
	}

	return &model.RunPhase{
		ID:        id,
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phase result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE run_phases SET status = ?, result = ? WHERE id = ?`,
		string(result.Status), string(resultJSON), phaseID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete phase %s", phaseID)
	}
	return checkRowsAffected(res, errPhaseNotFound, phaseID)
}

// helpers

func checkRowsAffected(res sql.Result, notFound error, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(notFound, "%s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProfile(row scannable) (*model.IdentityProfile, error) {
	var p model.IdentityProfile
	var evidence sql.NullString
	err := row.Scan(&p.ID, &p.PersonID, &p.Network, &p.Handle, &p.URL, &p.Confidence, &p.Status, &evidence, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan profile")
	}
	if evidence.Valid && evidence.String != "null" {
		if err := json.Unmarshal([]byte(evidence.String), &p.Evidence); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal evidence")
		}
	}
	return &p, nil
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.PersonID, &r.Kind, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if resultJSON.Valid {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}
