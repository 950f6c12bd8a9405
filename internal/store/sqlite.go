package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

var _ Store = (*SQLiteStore)(nil)

// storeHooks let tests fail individual steps of a write transaction.
type storeHooks struct {
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *SQLiteStore) beginTx(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *SQLiteStore) commit(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New opens (creating if needed) the database in cfg.DataDir, applies
// pragmas and runs migrations.
func New(cfg Config) (*SQLiteStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, dbFileName))
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// One writer at a time keeps version checks and WAL happy.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Migrations ---

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS knowledge_documents (
			project_id TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
			data       TEXT    NOT NULL,
			version    INTEGER NOT NULL,
			status     TEXT    NOT NULL,
			created_at TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS fragments (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			source_name TEXT NOT NULL,
			source_kind TEXT NOT NULL DEFAULT '',
			summary     TEXT NOT NULL DEFAULT '',
			entities    TEXT NOT NULL DEFAULT '[]',
			ui_info     TEXT NOT NULL DEFAULT '{}',
			tech_info   TEXT NOT NULL DEFAULT '{}',
			refs        TEXT NOT NULL DEFAULT '[]',
			created_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_fragments_project ON fragments(project_id, seq);
		CREATE INDEX IF NOT EXISTS idx_documents_status ON knowledge_documents(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- Projects ---

// EnsureProject implements Store.
func (s *SQLiteStore) EnsureProject(ctx context.Context, p knowledge.Project) error {
	if p.ID == "" {
		return errors.New("store: project id is required")
	}
	name := p.Name
	if name == "" {
		name = p.ID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = CASE WHEN ? != '' THEN excluded.name ELSE projects.name END`,
		p.ID, name, knowledge.Now(), p.Name)
	if err != nil {
		return fmt.Errorf("store: ensure project %q: %w", p.ID, err)
	}
	return nil
}

// GetProject implements Store.
func (s *SQLiteStore) GetProject(ctx context.Context, projectID string) (*knowledge.Project, error) {
	var p knowledge.Project
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM projects WHERE id = ?`, projectID,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: project %q: %w", projectID, knowledge.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project %q: %w", projectID, err)
	}
	return &p, nil
}

// ListProjects implements Store.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]knowledge.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	out := []knowledge.Project{}
	for rows.Next() {
		var p knowledge.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject implements Store.
func (s *SQLiteStore) DeleteProject(ctx context.Context, projectID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("store: delete project %q: %w", projectID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: project %q: %w", projectID, knowledge.ErrNotFound)
	}
	return nil
}

// --- Fragments ---

// AddFragment implements Store.
func (s *SQLiteStore) AddFragment(ctx context.Context, f *knowledge.Fragment) error {
	if f.ProjectID == "" {
		return errors.New("store: fragment project id is required")
	}
	if f.SourceName == "" {
		return errors.New("store: fragment source name is required")
	}
	if err := s.EnsureProject(ctx, knowledge.Project{ID: f.ProjectID}); err != nil {
		return err
	}

	id := f.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := f.CreatedAt
	if createdAt == "" {
		createdAt = knowledge.Now()
	}

	entities, err := marshalOr(f.Entities, "[]")
	if err != nil {
		return fmt.Errorf("store: encode entities: %w", err)
	}
	uiInfo, err := marshalOr(f.UIInfo, "{}")
	if err != nil {
		return fmt.Errorf("store: encode ui info: %w", err)
	}
	techInfo, err := marshalOr(f.TechInfo, "{}")
	if err != nil {
		return fmt.Errorf("store: encode tech info: %w", err)
	}
	refs, err := marshalOr(f.References, "[]")
	if err != nil {
		return fmt.Errorf("store: encode references: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fragments (id, project_id, source_name, source_kind, summary, entities, ui_info, tech_info, refs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, f.ProjectID, f.SourceName, f.SourceKind, f.Summary, entities, uiInfo, techInfo, refs, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("store: fragment %q already exists", id)
		}
		return fmt.Errorf("store: add fragment: %w", err)
	}
	f.ID, f.CreatedAt = id, createdAt
	return nil
}

// ListFragments implements Store.
func (s *SQLiteStore) ListFragments(ctx context.Context, projectID string) ([]knowledge.Fragment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, source_name, source_kind, summary, entities, ui_info, tech_info, refs, created_at
		FROM fragments WHERE project_id = ? ORDER BY seq`, projectID)
	if err != nil {
		return nil, fmt.Errorf("store: list fragments: %w", err)
	}
	defer rows.Close()

	out := []knowledge.Fragment{}
	for rows.Next() {
		var (
			f                                   knowledge.Fragment
			entities, uiInfo, techInfo, refsRaw string
		)
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.SourceName, &f.SourceKind, &f.Summary,
			&entities, &uiInfo, &techInfo, &refsRaw, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan fragment: %w", err)
		}
		for _, col := range []struct {
			raw  string
			dest any
		}{
			{entities, &f.Entities},
			{uiInfo, &f.UIInfo},
			{techInfo, &f.TechInfo},
			{refsRaw, &f.References},
		} {
			if err := json.Unmarshal([]byte(col.raw), col.dest); err != nil {
				return nil, fmt.Errorf("store: decode fragment %s: %w", f.ID, err)
			}
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- Documents ---

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, projectID string) (*knowledge.Document, error) {
	var data, createdAt, updatedAt string
	var version int
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version, created_at, updated_at FROM knowledge_documents WHERE project_id = ?`, projectID,
	).Scan(&data, &version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: document for %q: %w", projectID, knowledge.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document %q: %w", projectID, err)
	}

	doc, err := knowledge.ParseDocument([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("store: decode document %q: %w", projectID, err)
	}
	// Columns are authoritative for bookkeeping fields.
	doc.Version, doc.CreatedAt, doc.UpdatedAt = version, createdAt, updatedAt
	return doc, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, projectID string, doc *knowledge.Document, expectedVersion int) error {
	if doc == nil {
		return fmt.Errorf("store: put %q: %w: nil document", projectID, knowledge.ErrInvalidDocument)
	}
	if expectedVersion < 0 {
		return fmt.Errorf("store: put %q: negative expected version %d", projectID, expectedVersion)
	}

	now := knowledge.Now()
	next := *doc
	next.Version = expectedVersion + 1
	next.UpdatedAt = now
	if expectedVersion == 0 || next.CreatedAt == "" {
		next.CreatedAt = now
	}
	if err := knowledge.Validate(&next); err != nil {
		return fmt.Errorf("store: put %q: %w", projectID, err)
	}
	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("store: encode document: %w", err)
	}

	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		projectID, projectID, now); err != nil {
		return fmt.Errorf("store: ensure project %q: %w", projectID, err)
	}

	if expectedVersion == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO knowledge_documents (project_id, data, version, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			projectID, string(data), next.Version, string(next.Status), next.CreatedAt, next.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("store: put %q: document already exists: %w", projectID, knowledge.ErrVersionConflict)
			}
			return fmt.Errorf("store: insert document %q: %w", projectID, err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE knowledge_documents
			SET data = ?, version = ?, status = ?, updated_at = ?
			WHERE project_id = ? AND version = ?`,
			string(data), next.Version, string(next.Status), next.UpdatedAt, projectID, expectedVersion)
		if err != nil {
			return fmt.Errorf("store: update document %q: %w", projectID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var current int
			err := tx.QueryRowContext(ctx,
				`SELECT version FROM knowledge_documents WHERE project_id = ?`, projectID).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("store: put %q: %w", projectID, knowledge.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("store: read version %q: %w", projectID, err)
			}
			return fmt.Errorf("store: put %q: expected version %d, stored %d: %w",
				projectID, expectedVersion, current, knowledge.ErrVersionConflict)
		}
	}

	if err := s.commit(tx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	doc.Version, doc.CreatedAt, doc.UpdatedAt = next.Version, next.CreatedAt, next.UpdatedAt
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, projectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_documents WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("store: delete document %q: %w", projectID, err)
	}
	return nil
}

// --- Helpers ---

// isUniqueViolation checks if an error is a SQLite UNIQUE or PRIMARY KEY
// constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func marshalOr[T any](v T, empty string) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if s := string(b); s != "null" {
		return s, nil
	}
	return empty, nil
}
