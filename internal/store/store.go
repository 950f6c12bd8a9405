// Package store persists projects, analysis fragments and one knowledge
// document per project.
//
// Document writes are optimistic: Put succeeds only when the caller's
// expected version matches the stored one, and the stored version is
// then exactly expected+1.
package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/HendryAvila/prdkb/internal/knowledge"
)

// Store is the persistence port used by the engine.
type Store interface {
	// Get returns the project's document or knowledge.ErrNotFound.
	Get(ctx context.Context, projectID string) (*knowledge.Document, error)

	// Put writes doc when the stored version equals expectedVersion.
	// expectedVersion 0 means "no document exists yet". On success
	// doc.Version is set to expectedVersion+1 along with the timestamps.
	// A stale expectation returns knowledge.ErrVersionConflict.
	Put(ctx context.Context, projectID string, doc *knowledge.Document, expectedVersion int) error

	// Delete removes the project's document. Missing documents are not an
	// error.
	Delete(ctx context.Context, projectID string) error

	// EnsureProject creates the project if it does not exist. An existing
	// project keeps its name unless p.Name is non-empty.
	EnsureProject(ctx context.Context, p knowledge.Project) error
	GetProject(ctx context.Context, projectID string) (*knowledge.Project, error)
	ListProjects(ctx context.Context) ([]knowledge.Project, error)
	// DeleteProject removes the project, its fragments and its document.
	DeleteProject(ctx context.Context, projectID string) error

	// AddFragment stores f, assigning ID and CreatedAt when empty. The
	// project is created on demand.
	AddFragment(ctx context.Context, f *knowledge.Fragment) error
	// ListFragments returns the project's fragments in insertion order.
	ListFragments(ctx context.Context, projectID string) ([]knowledge.Fragment, error)

	Close() error
}

// Config holds store configuration.
type Config struct {
	DataDir string
}

// DefaultConfig places the database under ~/.prdkb.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".prdkb")}
}

// dbFileName is the SQLite database file inside DataDir.
const dbFileName = "knowledge.db"
